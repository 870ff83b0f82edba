package decode

import (
	"context"
	"errors"
	"strings"
)

var (
	ErrNotString            = errors.New("target type is not string")
	ErrInvalidJSON          = errors.New("body is not valid JSON")
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrTrailingData         = errors.New("unexpected data after top-level value")
	ErrModuleSealed         = errors.New("contract module already resolved")
	ErrUnexportedType       = errors.New("contract type must be a named exported type")

	errNoSubtypes = errors.New("not a known subtype")
)

// FatalError marks a failure that must stop the chain and reach the caller unchanged.
type FatalError struct {
	Err error
}

func (e *FatalError) Error() string {
	return "fatal: " + e.Err.Error()
}

func (e *FatalError) Unwrap() error {
	return e.Err
}

// IsFatal reports whether err aborts a Chain. Cooperative cancellation and
// explicit FatalErrors are fatal. Out-of-memory and stack exhaustion are
// unrecoverable runtime faults in Go and never surface as errors at all.
func IsFatal(err error) bool {
	var fatal *FatalError
	return errors.As(err, &fatal) ||
		errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded)
}

// StrategyError records why one strategy failed.
type StrategyError struct {
	Strategy string
	Err      error
}

func (e StrategyError) Error() string {
	return e.Strategy + ": " + e.Err.Error()
}

func (e StrategyError) Unwrap() error {
	return e.Err
}

// AggregateError is returned when every strategy of a Chain failed.
type AggregateError struct {
	Failures []StrategyError
}

const aggregateMessage = "unable to deserialize the server response: a proper deserialization method may be missing"

func (e *AggregateError) Error() string {
	parts := make([]string, len(e.Failures))
	for i, f := range e.Failures {
		parts[i] = f.Error()
	}
	return aggregateMessage + " (" + strings.Join(parts, "; ") + ")"
}

func (e *AggregateError) Unwrap() []error {
	errs := make([]error, len(e.Failures))
	for i, f := range e.Failures {
		errs[i] = f
	}
	return errs
}
