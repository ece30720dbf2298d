// internal/humanoid/errors.go
package humanoid

import (
	"errors"
	"fmt"

	"github.com/das-group/HOSIT/internal/session"
)

var (
	ErrElementNotFound = errors.New("element not found")
	ErrActionFailed    = errors.New("action failed")
	ErrScrollStalled   = errors.New("scroll stalled")
	ErrScrollAborted   = errors.New("scroll aborted")
	// ErrSessionFatal is returned by every operation once the session is terminated.
	ErrSessionFatal = session.ErrFatal
)

// InteractionError carries the failed operation, its target and the error kind.
type InteractionError struct {
	Op       string
	Selector string
	Kind     error
	Err      error
}

func (e *InteractionError) Error() string {
	if e.Selector == "" {
		return fmt.Sprintf("humanoid: %s: %v: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("humanoid: %s '%s': %v: %v", e.Op, e.Selector, e.Kind, e.Err)
}

// Unwrap exposes both the kind sentinel and the underlying cause to errors.Is.
func (e *InteractionError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}

func notFound(op, selector string, err error) error {
	return &InteractionError{Op: op, Selector: selector, Kind: ErrElementNotFound, Err: err}
}

func actionFailed(op, selector string, err error) error {
	return &InteractionError{Op: op, Selector: selector, Kind: ErrActionFailed, Err: err}
}

// classify keeps a driver's missing-element report as ElementNotFound; every
// other driver error is ActionFailed.
func classify(op, selector string, err error) error {
	if errors.Is(err, ErrElementNotFound) {
		return notFound(op, selector, err)
	}
	return actionFailed(op, selector, err)
}
