// Package captcha solves image CAPTCHAs and reCAPTCHA challenges through an
// external task-based solving service.
package captcha

import (
	"context"
	"errors"
)

// ErrInsufficientBalance is returned when the account backing the service has no quota left.
var ErrInsufficientBalance = errors.New("captcha: insufficient balance")

// Result is the uniform outcome of a solve call: a value or a failure reason.
type Result struct {
	Value string
	Err   error
}

// OK reports whether the solve succeeded.
func (r Result) OK() bool {
	return r.Err == nil
}

// Solver is the adapter interface the interaction layer depends on.
// Implementations block until the task is solved, fails, or ctx is done.
type Solver interface {
	SolveImageCaptcha(ctx context.Context, image []byte) Result
	SolveChallengeCaptcha(ctx context.Context, siteURL, siteKey, userAgent string) Result
}
