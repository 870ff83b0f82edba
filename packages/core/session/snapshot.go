package session

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/abdul-hamid-achik/apiharness/packages/assertions"
	"github.com/abdul-hamid-achik/apiharness/packages/capture"
	"github.com/abdul-hamid-achik/apiharness/packages/result"
)

// LastResult returns the decoded payload of the last call, or nil when it failed.
func (s *Session) LastResult() any {
	return s.lastResult
}

// LastResultAs returns the last payload as T.
func LastResultAs[T any](s *Session) (T, bool) {
	v, ok := s.lastResult.(T)
	return v, ok
}

// LastError describes the last call when it failed, or is nil.
func (s *Session) LastError() *result.ErrorInfo {
	return s.lastError
}

// DecodedBy names the strategy that decoded the last successful payload.
func (s *Session) DecodedBy() string {
	return s.decodedBy
}

func (s *Session) StatusCode() int {
	return s.statusCode
}

func (s *Session) ContentType() string {
	return s.contentType
}

// Headers returns a copy of the last response headers.
func (s *Session) Headers() http.Header {
	return s.headers.Clone()
}

// Body returns a copy of the last raw response body.
func (s *Session) Body() []byte {
	return bytes.Clone(s.body)
}

func (s *Session) lastResponse() *capture.Response {
	return &capture.Response{
		StatusCode: s.statusCode,
		Headers:    s.headers.Clone(),
		Body:       bytes.Clone(s.body),
	}
}

// Capture extracts expr from the last response and stores it as name for
// later {{name}} placeholders. expr is "status", "header <Name>", "body" or a
// body path such as "body.data.id".
func (s *Session) Capture(name, expr string) (any, error) {
	if s.statusCode == 0 {
		return nil, fmt.Errorf("capture %s: no response recorded", name)
	}
	value, ok := capture.NewExtractor(s.lastResponse()).Extract(capture.Parse(name, expr))
	if !ok {
		return nil, fmt.Errorf("capture %s: %q not found in response", name, expr)
	}
	s.resolver.SetCapture(s.step, name, value)
	return value, nil
}

// Assert evaluates an assertion such as "status == 201" or "hasError ==
// false" against the last call.
func (s *Session) Assert(expr string, opts ...assertions.EvaluatorOption) (*assertions.Result, error) {
	a, err := assertions.Parse(expr)
	if err != nil {
		return nil, err
	}
	opts = append([]assertions.EvaluatorOption{
		assertions.WithErrorInfo(s.lastError),
		assertions.WithDecodedBy(s.decodedBy),
	}, opts...)
	return assertions.NewEvaluator(s.lastResponse(), opts...).Evaluate(a), nil
}
