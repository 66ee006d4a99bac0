package translate

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscreds "github.com/aws/aws-sdk-go-v2/credentials"
	awstranslate "github.com/aws/aws-sdk-go-v2/service/translate"
	"github.com/aws/aws-sdk-go-v2/service/translate/types"
	"github.com/aws/smithy-go"
	"github.com/sirupsen/logrus"

	"github.com/Arean82/jsontrans/credentials"
	"github.com/Arean82/jsontrans/langs"
)

// awsRegion is where the Translate endpoint is called. The service is
// regionless from the caller's perspective; us-east-1 is the conventional
// default.
const awsRegion = "us-east-1"

// amazonBackend is the cloud neural translation backend. AWS Translate has
// no batch call, so each string is forwarded individually and per-string
// failures are aggregated into a PartialFailureError. Auth rejections and
// throttling abort the batch immediately instead, since they would repeat
// for every remaining string.
type amazonBackend struct {
	client *awstranslate.Client
	log    *logrus.Logger
}

func newAmazonBackend(ctx context.Context, creds *credentials.Amazon, opts Options) (*amazonBackend, error) {
	cfg, err := awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(awsRegion),
		awsconfig.WithCredentialsProvider(
			awscreds.NewStaticCredentialsProvider(creds.AccessKey, creds.SecretKey, ""),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("loading AWS config: %w", err)
	}
	return &amazonBackend{
		client: awstranslate.NewFromConfig(cfg),
		log:    opts.logger(),
	}, nil
}

func (b *amazonBackend) Name() string { return EngineAmazon }

// Verify lists supported languages, a cheap call that exercises signing.
func (b *amazonBackend) Verify(ctx context.Context) error {
	_, err := b.client.ListLanguages(ctx, &awstranslate.ListLanguagesInput{})
	if err == nil {
		return nil
	}
	if classified := classifyAWSError(err); classified != nil {
		return classified
	}
	return fmt.Errorf("verifying aws credentials: %w", err)
}

func (b *amazonBackend) Translate(ctx context.Context, batch []string, sourceLang, targetLang string) ([]string, error) {
	if len(batch) == 0 {
		return nil, nil
	}

	start := time.Now()
	out, err := b.translate(ctx, batch, sourceLang, targetLang)
	observeRequest(EngineAmazon, time.Since(start), err, len(batch))
	return out, err
}

func (b *amazonBackend) translate(ctx context.Context, batch []string, sourceLang, targetLang string) ([]string, error) {
	source := langs.Canonicalize(sourceLang)
	target := langs.Canonicalize(targetLang)

	results := make([]string, len(batch))
	var failedIdx []int
	var causes []error

	for i, text := range batch {
		// The selector never emits empties, but the vendor rejects them,
		// so pass them through untouched.
		if strings.TrimSpace(text) == "" {
			results[i] = text
			continue
		}

		out, err := b.client.TranslateText(ctx, &awstranslate.TranslateTextInput{
			Text:               aws.String(text),
			SourceLanguageCode: aws.String(source),
			TargetLanguageCode: aws.String(target),
		})
		if err != nil {
			if classified := classifyAWSError(err); classified != nil {
				return nil, classified
			}
			b.log.WithFields(logrus.Fields{
				"backend": EngineAmazon,
				"index":   i,
				"target":  target,
			}).WithError(err).Warn("Translation call failed")
			failedIdx = append(failedIdx, i)
			causes = append(causes, err)
			continue
		}
		results[i] = aws.ToString(out.TranslatedText)
	}

	if len(failedIdx) == len(batch) {
		return nil, fmt.Errorf("all %d strings failed: %w", len(batch), causes[0])
	}
	if len(failedIdx) > 0 {
		return results, &PartialFailureError{Backend: EngineAmazon, Indices: failedIdx, Causes: causes}
	}
	return results, nil
}

// classifyAWSError maps SDK errors onto the adapter taxonomy. Returns nil
// for errors that stay per-string.
func classifyAWSError(err error) error {
	var tooMany *types.TooManyRequestsException
	if errors.As(err, &tooMany) {
		return &RateLimitedError{Backend: EngineAmazon, Detail: aws.ToString(tooMany.Message)}
	}

	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.ErrorCode() {
		case "UnrecognizedClientException", "InvalidSignatureException",
			"AccessDeniedException", "ExpiredTokenException",
			"IncompleteSignatureException", "MissingAuthenticationTokenException":
			return &AuthError{Backend: EngineAmazon, Reason: apiErr.ErrorMessage()}
		case "ThrottlingException", "TooManyRequestsException", "LimitExceededException":
			return &RateLimitedError{Backend: EngineAmazon, Detail: apiErr.ErrorMessage()}
		}
	}
	return nil
}
