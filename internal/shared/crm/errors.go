package crm

import (
	"errors"
	"fmt"
)

var (
	// ErrAuthFailed means the CRM rejected the login credentials.
	ErrAuthFailed = errors.New("crm: authentication failed")
	// ErrRateLimitExhausted means too many callers are already queued
	// behind the rate limiter.
	ErrRateLimitExhausted = errors.New("crm: rate limit queue exhausted")
)

// TransientError wraps a network or 5xx failure that was retried and
// still failed. Callers may skip the record and continue the batch.
type TransientError struct {
	Op       string
	Attempts int
	Err      error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("crm: %s failed after %d attempts: %v", e.Op, e.Attempts, e.Err)
}

func (e *TransientError) Unwrap() error { return e.Err }

// PermanentError wraps a 4xx (other than 401) response. The offending
// record is skipped; the batch continues.
type PermanentError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *PermanentError) Error() string {
	return fmt.Sprintf("crm: %s rejected with status %d: %s", e.Op, e.StatusCode, e.Body)
}

// IsPermanent reports whether err is a non-retryable CRM rejection.
func IsPermanent(err error) bool {
	var pe *PermanentError
	return errors.As(err, &pe)
}
