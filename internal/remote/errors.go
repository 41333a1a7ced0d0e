package remote

import (
	"errors"
	"fmt"
)

// ErrBreakerOpen is wrapped by failures rejected locally because the
// collaborator has been failing repeatedly.
var ErrBreakerOpen = errors.New("collaborator unavailable")

// Failure is the single error kind for anything that goes wrong talking to
// the collaborator: unreachable network, non-success status or an
// undecodable body.
type Failure struct {
	Op      string // operation, e.g. "generate-from-text"
	Status  int    // HTTP status, 0 if no response was received
	Message string // optional human-readable detail
	Err     error
}

func (f *Failure) Error() string {
	msg := f.Message
	if msg == "" && f.Err != nil {
		msg = f.Err.Error()
	}
	if f.Status != 0 {
		return fmt.Sprintf("remote %s failed (status %d): %s", f.Op, f.Status, msg)
	}
	return fmt.Sprintf("remote %s failed: %s", f.Op, msg)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// IsFailure reports whether err is or wraps a *Failure
func IsFailure(err error) bool {
	var f *Failure
	return errors.As(err, &f)
}

// AsFailure wraps err into a *Failure for op unless it already is one
func AsFailure(op string, err error) error {
	if err == nil {
		return nil
	}
	var f *Failure
	if errors.As(err, &f) {
		return err
	}
	return &Failure{Op: op, Err: err}
}
