package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// Outcome is the result class of one capability call.
type Outcome int

const (
	OK Outcome = iota
	TimedOut
	ProviderError
)

func (o Outcome) String() string {
	switch o {
	case OK:
		return "ok"
	case TimedOut:
		return "timed_out"
	case ProviderError:
		return "provider_error"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// Error is returned by every capability adapter.
type Error struct {
	Provider string
	Op       string
	Status   int // HTTP status when the provider answered, 0 otherwise
	Err      error
}

func (e *Error) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s %s: status %d: %v", e.Provider, e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Provider, e.Op, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Wrap tags err with the provider and operation. A nil err stays nil.
func Wrap(providerName, op string, err error) error {
	if err == nil {
		return nil
	}
	var pe *Error
	if errors.As(err, &pe) {
		return err
	}
	return &Error{Provider: providerName, Op: op, Err: err}
}

// WrapStatus is Wrap for a provider that answered with a non-2xx status.
func WrapStatus(providerName, op string, status int, err error) error {
	return &Error{Provider: providerName, Op: op, Status: status, Err: err}
}

// Classify maps any error returned by a capability to its Outcome.
func Classify(err error) Outcome {
	if err == nil {
		return OK
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return TimedOut
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return TimedOut
	}
	return ProviderError
}
