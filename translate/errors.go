package translate

import (
	"fmt"
	"strings"
	"time"
)

// AuthError means credentials are missing or rejected. Fatal for the run:
// no retry can help.
type AuthError struct {
	Backend string
	Reason  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s: authentication failed: %s", e.Backend, e.Reason)
}

// RateLimitedError means the vendor signalled throttling. The caller owns
// the retry policy; RetryAfter carries the vendor's hint when one was given
// (zero otherwise).
type RateLimitedError struct {
	Backend    string
	RetryAfter time.Duration
	Detail     string
}

func (e *RateLimitedError) Error() string {
	if e.RetryAfter > 0 {
		return fmt.Sprintf("%s: rate limited (retry after %s)", e.Backend, e.RetryAfter)
	}
	return fmt.Sprintf("%s: rate limited: %s", e.Backend, e.Detail)
}

// MalformedResponseError means the backend returned a shape the adapter
// cannot use, most commonly a translation count that does not match the
// batch size.
type MalformedResponseError struct {
	Backend  string
	Expected int
	Got      int
	Detail   string
}

func (e *MalformedResponseError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("%s: malformed response: %s", e.Backend, e.Detail)
	}
	return fmt.Sprintf("%s: malformed response: got %d translations, expected %d", e.Backend, e.Got, e.Expected)
}

// PartialFailureError means some strings in a batch failed while others
// succeeded. Indices name the failed positions; the results slice returned
// alongside this error is valid at every other position.
type PartialFailureError struct {
	Backend string
	Indices []int
	Causes  []error
}

func (e *PartialFailureError) Error() string {
	parts := make([]string, len(e.Indices))
	for i, idx := range e.Indices {
		parts[i] = fmt.Sprintf("%d", idx)
	}
	return fmt.Sprintf("%s: %d of batch failed (indices %s)", e.Backend, len(e.Indices), strings.Join(parts, ", "))
}
