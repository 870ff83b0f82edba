package session

import (
	"fmt"
	"net/http"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	apihttp "github.com/abdul-hamid-achik/apiharness/packages/http"
	"github.com/abdul-hamid-achik/apiharness/packages/result"
)

// DefaultFailureMessage is used when a stopped call has no FailureMessage.
const DefaultFailureMessage = "request failed"

// StopError is returned when a call made with StopAtFailure fails.
type StopError struct {
	Method  string
	Path    string
	Message string
	Info    *result.ErrorInfo
}

func (e *StopError) Error() string {
	if e.Info == nil {
		return fmt.Sprintf("%s %s: %s", e.Method, e.Path, e.Message)
	}
	return fmt.Sprintf("%s %s: %s: %s", e.Method, e.Path, e.Message, e.Info)
}

type callOptions struct {
	stopAtFailure bool
	message       string
}

// CallOption configures a single call.
type CallOption func(*callOptions)

// StopAtFailure halts the scenario when the call fails.
func StopAtFailure() CallOption {
	return func(o *callOptions) {
		o.stopAtFailure = true
	}
}

// FailureMessage sets the message reported when a stopped call fails.
func FailureMessage(msg string) CallOption {
	return func(o *callOptions) {
		o.message = msg
	}
}

func Get[T, E any](s *Session, path string, opts ...CallOption) (*result.Request[T, E], error) {
	return call(s, http.MethodGet, path, opts, func(c *apihttp.Client, target string) (*result.Request[T, E], error) {
		return apihttp.Get[T, E](c, target)
	})
}

// GetWithQuery appends params to path with ResolveQueryParameters.
func GetWithQuery[T, E any](s *Session, path string, params map[string]any, opts ...CallOption) (*result.Request[T, E], error) {
	return Get[T, E](s, ResolveQueryParameters(path, params), opts...)
}

// GetString returns the raw body of a successful response.
func GetString[E any](s *Session, path string, opts ...CallOption) (*result.Request[string, E], error) {
	return call(s, http.MethodGet, path, opts, func(c *apihttp.Client, target string) (*result.Request[string, E], error) {
		return apihttp.GetString[E](c, target)
	})
}

func GetStringWithQuery[E any](s *Session, path string, params map[string]any, opts ...CallOption) (*result.Request[string, E], error) {
	return GetString[E](s, ResolveQueryParameters(path, params), opts...)
}

// Post serializes payload in the session's request format.
func Post[T, E, Req any](s *Session, path string, payload Req, opts ...CallOption) (*result.Request[T, E], error) {
	return call(s, http.MethodPost, path, opts, func(c *apihttp.Client, target string) (*result.Request[T, E], error) {
		return apihttp.Post[T, E](c, target, payload)
	})
}

// PostJSON serializes payload as JSON regardless of the request format.
func PostJSON[T, E, Req any](s *Session, path string, payload Req, opts ...CallOption) (*result.Request[T, E], error) {
	return call(s, http.MethodPost, path, opts, func(c *apihttp.Client, target string) (*result.Request[T, E], error) {
		return apihttp.PostJSON[T, E](c, target, payload)
	})
}

// PostString sends an already encoded body. An empty contentType means JSON.
func PostString[T, E any](s *Session, path, body, contentType string, opts ...CallOption) (*result.Request[T, E], error) {
	return call(s, http.MethodPost, path, opts, func(c *apihttp.Client, target string) (*result.Request[T, E], error) {
		return apihttp.PostString[T, E](c, target, body, contentType)
	})
}

// PostForm sends params form-url-encoded.
func PostForm[T, E any](s *Session, path string, params map[string]string, opts ...CallOption) (*result.Request[T, E], error) {
	return call(s, http.MethodPost, path, opts, func(c *apihttp.Client, target string) (*result.Request[T, E], error) {
		return apihttp.PostForm[T, E](c, target, params)
	})
}

func Put[T, E, Req any](s *Session, path string, payload Req, opts ...CallOption) (*result.Request[T, E], error) {
	return call(s, http.MethodPut, path, opts, func(c *apihttp.Client, target string) (*result.Request[T, E], error) {
		return apihttp.Put[T, E](c, target, payload)
	})
}

func PutString[T, E any](s *Session, path, body, contentType string, opts ...CallOption) (*result.Request[T, E], error) {
	return call(s, http.MethodPut, path, opts, func(c *apihttp.Client, target string) (*result.Request[T, E], error) {
		return apihttp.PutString[T, E](c, target, body, contentType)
	})
}

func Delete[T, E any](s *Session, path string, opts ...CallOption) (*result.Request[T, E], error) {
	return call(s, http.MethodDelete, path, opts, func(c *apihttp.Client, target string) (*result.Request[T, E], error) {
		return apihttp.Delete[T, E](c, target)
	})
}

// call runs one request, refreshes the snapshot and applies StopAtFailure.
// Transport faults and undecodable success bodies are returned as errors and
// clear the snapshot.
func call[T, E any](s *Session, method, path string, opts []CallOption, do func(*apihttp.Client, string) (*result.Request[T, E], error)) (*result.Request[T, E], error) {
	o := callOptions{message: DefaultFailureMessage}
	for _, opt := range opts {
		opt(&o)
	}

	c, err := s.transport()
	if err != nil {
		return nil, err
	}

	target := s.resolver.Resolve(path)
	r, err := do(c, target)
	if err != nil {
		s.reset()
		return nil, err
	}

	record(s, r)

	if o.stopAtFailure && r.HasError() {
		return r, s.stop(method, target, o.message)
	}
	return r, nil
}

func record[T, E any](s *Session, r *result.Request[T, E]) {
	s.statusCode = r.StatusCode()
	s.contentType = r.ContentType()
	s.headers = r.Headers()
	s.body = r.Body()
	s.lastError = result.ErrorInfoFrom(r)
	s.decodedBy = r.DecodedBy()
	if r.HasError() {
		s.lastResult = nil
	} else {
		s.lastResult = r.Result()
	}
}

func (s *Session) reset() {
	s.lastResult = nil
	s.lastError = nil
	s.decodedBy = ""
	s.statusCode = 0
	s.contentType = ""
	s.headers = nil
	s.body = nil
}

func (s *Session) stop(method, path, message string) error {
	err := &StopError{Method: method, Path: path, Message: message, Info: s.lastError}
	s.logger.Warn("stopping at failure",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", s.statusCode))
	if s.t != nil {
		require.Fail(s.t, message, err.Error())
	}
	return err
}
