// Package translate implements the translation backend adapters: an
// OpenAI-compatible chat completion backend and the AWS Translate neural
// backend, selected by engine id at configuration time.
package translate

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Arean82/jsontrans/credentials"
)

// Engine ids.
const (
	EngineOpenAI = "openai"
	EngineAmazon = "amazon"
)

// Backend is the capability boundary hiding vendor-specific translation
// call semantics. Translate takes an ordered batch and returns translations
// in the same order, or an error from the taxonomy in errors.go.
type Backend interface {
	// Name returns the engine id.
	Name() string
	// Translate translates a batch of strings from sourceLang to targetLang.
	// On a *PartialFailureError the returned slice is still valid at every
	// index not named by the error.
	Translate(ctx context.Context, batch []string, sourceLang, targetLang string) ([]string, error)
	// Verify checks that the stored credentials are usable before a run.
	Verify(ctx context.Context) error
}

// Options carries adapter configuration shared by both backends.
type Options struct {
	// Model overrides the completion model (openai only).
	Model string
	// BaseURL overrides the API base URL (openai only).
	BaseURL string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
	// Timeout is the per-request timeout (default 120s).
	Timeout time.Duration
	// Logger receives per-request debug logging. Optional.
	Logger *logrus.Logger
}

func (o Options) effectiveTimeout() time.Duration {
	if o.Timeout > 0 {
		return o.Timeout
	}
	return 120 * time.Second
}

func (o Options) logger() *logrus.Logger {
	if o.Logger != nil {
		return o.Logger
	}
	return logrus.StandardLogger()
}

// New creates the backend for the given engine id. Missing credentials for
// the selected engine are an *AuthError, raised here so the run fails
// before any document work starts.
func New(ctx context.Context, engine string, creds *credentials.File, opts Options) (Backend, error) {
	switch engine {
	case EngineOpenAI:
		if creds.OpenAI == nil || creds.OpenAI.Key == "" {
			return nil, &AuthError{Backend: EngineOpenAI, Reason: "no openai_key in credentials file"}
		}
		return newOpenAIBackend(creds.OpenAI.Key, opts), nil
	case EngineAmazon:
		if creds.Amazon == nil || creds.Amazon.AccessKey == "" || creds.Amazon.SecretKey == "" {
			return nil, &AuthError{Backend: EngineAmazon, Reason: "no aws_access_key/aws_secret_key in credentials file"}
		}
		return newAmazonBackend(ctx, creds.Amazon, opts)
	default:
		return nil, fmt.Errorf("unknown translation engine: %s (supported: openai, amazon)", engine)
	}
}

// makeHTTPClient builds an HTTP client honoring an explicit proxy URL or
// the HTTP_PROXY/HTTPS_PROXY environment.
func makeHTTPClient(proxyURL string, timeout time.Duration) *http.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if proxyURL != "" {
		if parsed, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &http.Client{
		Transport: transport,
		Timeout:   timeout,
	}
}
