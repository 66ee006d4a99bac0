package translate

import (
	"errors"
	"fmt"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/translate/types"
	"github.com/aws/smithy-go"
)

func TestClassifyAWSError(t *testing.T) {
	t.Run("too many requests type", func(t *testing.T) {
		err := classifyAWSError(&types.TooManyRequestsException{Message: aws.String("slow down")})
		var rateErr *RateLimitedError
		if !errors.As(err, &rateErr) {
			t.Fatalf("err = %v, want *RateLimitedError", err)
		}
		if rateErr.Backend != EngineAmazon {
			t.Errorf("Backend = %q", rateErr.Backend)
		}
	})

	t.Run("auth codes", func(t *testing.T) {
		for _, code := range []string{
			"UnrecognizedClientException",
			"InvalidSignatureException",
			"AccessDeniedException",
			"ExpiredTokenException",
		} {
			err := classifyAWSError(&smithy.GenericAPIError{Code: code, Message: "denied"})
			var authErr *AuthError
			if !errors.As(err, &authErr) {
				t.Errorf("code %s: err = %v, want *AuthError", code, err)
			}
		}
	})

	t.Run("throttle codes", func(t *testing.T) {
		for _, code := range []string{"ThrottlingException", "LimitExceededException"} {
			err := classifyAWSError(&smithy.GenericAPIError{Code: code, Message: "throttled"})
			var rateErr *RateLimitedError
			if !errors.As(err, &rateErr) {
				t.Errorf("code %s: err = %v, want *RateLimitedError", code, err)
			}
		}
	})

	t.Run("wrapped errors unwrap", func(t *testing.T) {
		inner := &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "denied"}
		err := classifyAWSError(fmt.Errorf("operation error Translate: %w", inner))
		var authErr *AuthError
		if !errors.As(err, &authErr) {
			t.Errorf("wrapped err = %v, want *AuthError", err)
		}
	})

	t.Run("per-string errors stay nil", func(t *testing.T) {
		cases := []error{
			&smithy.GenericAPIError{Code: "UnsupportedLanguagePairException", Message: "no such pair"},
			&smithy.GenericAPIError{Code: "TextSizeLimitExceededException", Message: "too long"},
			errors.New("connection reset"),
		}
		for _, c := range cases {
			if got := classifyAWSError(c); got != nil {
				t.Errorf("classifyAWSError(%v) = %v, want nil", c, got)
			}
		}
	})
}
