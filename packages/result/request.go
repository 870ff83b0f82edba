package result

import (
	"bytes"
	"net/http"
)

// Request is the Execution of one HTTP exchange together with its transport metadata.
type Request[T, E any] struct {
	Execution[T, E]
	serverErrorText string
	statusCode      int
	headers         http.Header
	contentType     string
	body            []byte
	decodedBy       string
}

// Success builds the outcome of a 2xx response whose body was decoded by strategy.
func Success[T, E any](value T, strategy string, statusCode int, headers http.Header, contentType string, body []byte) *Request[T, E] {
	return &Request[T, E]{
		Execution:   NewExecution[T, E](value, nil),
		statusCode:  statusCode,
		headers:     headers.Clone(),
		contentType: contentType,
		body:        bytes.Clone(body),
		decodedBy:   strategy,
	}
}

// Failure builds the outcome of a non-2xx response. detail is nil when the error
// body could not be parsed into E; serverErrorText always carries the raw body.
func Failure[T, E any](detail *E, serverErrorText string, statusCode int, headers http.Header, contentType string) *Request[T, E] {
	var zero T
	return &Request[T, E]{
		Execution:       NewExecution(zero, detail),
		serverErrorText: serverErrorText,
		statusCode:      statusCode,
		headers:         headers.Clone(),
		contentType:     contentType,
		body:            []byte(serverErrorText),
	}
}

// HasError reports whether the exchange failed: a structured error was decoded
// or the status code is outside the 2xx range.
func (r *Request[T, E]) HasError() bool {
	return r.Execution.HasError() || !IsSuccessStatus(r.statusCode)
}

// ServerErrorText returns the raw response body of a failed exchange.
func (r *Request[T, E]) ServerErrorText() string {
	return r.serverErrorText
}

func (r *Request[T, E]) StatusCode() int {
	return r.statusCode
}

// Headers returns a copy of the response headers.
func (r *Request[T, E]) Headers() http.Header {
	return r.headers.Clone()
}

// ContentType returns the response Content-Type header value.
func (r *Request[T, E]) ContentType() string {
	return r.contentType
}

// Body returns a copy of the raw response body.
func (r *Request[T, E]) Body() []byte {
	return bytes.Clone(r.body)
}

// DecodedBy names the deserialization strategy that produced Result.
// It is empty for failed exchanges.
func (r *Request[T, E]) DecodedBy() string {
	return r.decodedBy
}

// IsSuccessStatus reports whether code is in the 2xx range.
func IsSuccessStatus(code int) bool {
	return code >= 200 && code < 300
}
