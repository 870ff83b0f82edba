package result

import (
	"fmt"
	"net/http"
	"slices"
	"strconv"
	"strings"
)

// ErrorDetails is implemented by structured error payloads that carry a
// better message than the raw server text.
type ErrorDetails interface {
	ErrorMessage() string
}

// ErrorCoder is implemented by structured error payloads that carry numeric codes.
type ErrorCoder interface {
	ErrorCodes() []int
}

// ErrorDataProvider is implemented by structured error payloads that carry free-form data.
type ErrorDataProvider interface {
	ErrorData() []string
}

// ErrorInfo describes a failed request independently of the transport error.
type ErrorInfo struct {
	message    string
	errorCodes []int
	statusCode int
	data       []string
}

func NewErrorInfo(message string, statusCode int) *ErrorInfo {
	return NewErrorInfoWithCodes(message, nil, statusCode)
}

func NewErrorInfoWithCodes(message string, errorCodes []int, statusCode int) *ErrorInfo {
	return &ErrorInfo{
		message:    message,
		errorCodes: slices.Clone(errorCodes),
		statusCode: statusCode,
	}
}

func NewErrorInfoWithData(message string, errorCodes []int, statusCode int, data []string) *ErrorInfo {
	info := NewErrorInfoWithCodes(message, errorCodes, statusCode)
	info.data = slices.Clone(data)
	return info
}

func (e *ErrorInfo) Message() string {
	return e.message
}

// ErrorCodes returns a copy of the error codes, or nil when none were supplied.
func (e *ErrorInfo) ErrorCodes() []int {
	return slices.Clone(e.errorCodes)
}

func (e *ErrorInfo) StatusCode() int {
	return e.statusCode
}

// Data returns a copy of the free-form data, or nil.
func (e *ErrorInfo) Data() []string {
	return slices.Clone(e.data)
}

// String renders a stable one-line summary used in failure diagnostics.
func (e *ErrorInfo) String() string {
	codes := "(none)"
	if e.errorCodes != nil {
		parts := make([]string, len(e.errorCodes))
		for i, c := range e.errorCodes {
			parts[i] = strconv.Itoa(c)
		}
		codes = strings.Join(parts, ", ")
	}

	status := strconv.Itoa(e.statusCode)
	if text := http.StatusText(e.statusCode); text != "" {
		status += " " + text
	}

	return fmt.Sprintf(`[%T] Message: "%s", ErrorCodes: [%s], StatusCode: %s`, *e, e.message, codes, status)
}

// ErrorInfoFrom derives an ErrorInfo from a failed request. It returns nil when
// the request succeeded.
func ErrorInfoFrom[T, E any](r *Request[T, E]) *ErrorInfo {
	if r == nil || !r.HasError() {
		return nil
	}

	message := r.ServerErrorText()
	var codes []int
	var data []string

	if detail := r.ErrorDetail(); detail != nil {
		if d, ok := any(detail).(ErrorDetails); ok {
			if m := d.ErrorMessage(); m != "" {
				message = m
			}
		}
		if c, ok := any(detail).(ErrorCoder); ok {
			codes = c.ErrorCodes()
		}
		if p, ok := any(detail).(ErrorDataProvider); ok {
			data = p.ErrorData()
		}
	}

	return NewErrorInfoWithData(message, codes, r.StatusCode(), data)
}
