package sensor

import (
	"errors"
	"fmt"
	"syscall"
)

// ErrTransient marks an I/O error that should be retried within the
// decoder's budget, such as a device that is momentarily busy.
var ErrTransient = errors.New("transient serial error")

// AcquisitionError is returned by Acquire when the port fails in a way that
// retrying will not fix. It is distinct from the "no sample" result.
type AcquisitionError struct {
	Attempt int
	Err     error
}

func (e *AcquisitionError) Error() string {
	return fmt.Sprintf("sensor acquisition failed on attempt %d: %v", e.Attempt, e.Err)
}

func (e *AcquisitionError) Unwrap() error { return e.Err }

// IsTransient reports whether err is a retryable I/O error. go.bug.st/serial
// passes read(2) errors through unchanged, so only the errno values that mean
// "try again" qualify; a closed port is never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrTransient) || errors.Is(err, syscall.EAGAIN) || errors.Is(err, syscall.EINTR)
}

func isAttemptFailure(err error) bool {
	return errors.Is(err, ErrNoHeader) ||
		errors.Is(err, ErrShortFrame) ||
		errors.Is(err, ErrBadHeader) ||
		errors.Is(err, ErrChecksum) ||
		errors.Is(err, ErrOutOfRange) ||
		errors.Is(err, errBudgetExhausted)
}
