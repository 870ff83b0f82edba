package result

// Execution holds either a success payload or a structured error payload.
type Execution[T, E any] struct {
	result T
	detail *E
}

// NewExecution creates an Execution. A nil detail marks a successful outcome.
func NewExecution[T, E any](result T, detail *E) Execution[T, E] {
	return Execution[T, E]{result: result, detail: detail}
}

// Result returns the success payload, or the zero value of T on failure.
func (e Execution[T, E]) Result() T {
	return e.result
}

// ErrorDetail returns the structured error payload, or nil.
func (e Execution[T, E]) ErrorDetail() *E {
	return e.detail
}

// HasError reports whether a structured error payload is present.
func (e Execution[T, E]) HasError() bool {
	return e.detail != nil
}
