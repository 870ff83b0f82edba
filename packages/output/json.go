package output

import (
	"encoding/json"
	"io"
	"net/http"
	"os"
	"time"
)

// JSONOutput represents one call outcome as JSON
type JSONOutput struct {
	Passed     bool            `json:"passed"`
	Request    JSONRequest     `json:"request"`
	Response   JSONResponse    `json:"response"`
	Error      *JSONError      `json:"error,omitempty"`
	Assertions []JSONAssertion `json:"assertions,omitempty"`
	Captures   map[string]any  `json:"captures,omitempty"`
	Time       string          `json:"time"`
}

// JSONRequest represents request details
type JSONRequest struct {
	Method string `json:"method"`
	URL    string `json:"url"`
}

// JSONResponse represents response details
type JSONResponse struct {
	StatusCode  int               `json:"statusCode"`
	Status      string            `json:"status"`
	ContentType string            `json:"contentType,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	DecodedBy   string            `json:"decodedBy,omitempty"`
	Body        json.RawMessage   `json:"body,omitempty"`
	Duration    float64           `json:"duration"`
}

// JSONError represents the error info of a failed call
type JSONError struct {
	Message    string   `json:"message"`
	ErrorCodes []int    `json:"errorCodes,omitempty"`
	StatusCode int      `json:"statusCode"`
	Data       []string `json:"data,omitempty"`
	Summary    string   `json:"summary"`
}

// JSONAssertion represents an assertion result
type JSONAssertion struct {
	Subject  string `json:"subject"`
	Operator string `json:"operator"`
	Expected any    `json:"expected"`
	Actual   any    `json:"actual"`
	Passed   bool   `json:"passed"`
	Message  string `json:"message,omitempty"`
}

// JSONFormatter formats call outcomes as JSON
type JSONFormatter struct {
	writer io.Writer
}

type JSONOption func(*JSONFormatter)

func NewJSONFormatter(opts ...JSONOption) *JSONFormatter {
	f := &JSONFormatter{
		writer: os.Stdout,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

func JSONWithWriter(w io.Writer) JSONOption {
	return func(f *JSONFormatter) {
		f.writer = w
	}
}

func (f *JSONFormatter) FormatOutcome(o *Outcome) {
	out := JSONOutput{
		Passed:   o.Passed(),
		Request:  JSONRequest{Method: o.Method, URL: o.URL},
		Captures: o.Captures,
		Time:     time.Now().Format(time.RFC3339),
		Response: JSONResponse{
			StatusCode:  o.StatusCode,
			Status:      http.StatusText(o.StatusCode),
			ContentType: o.ContentType,
			DecodedBy:   o.DecodedBy,
			Duration:    float64(o.Duration.Milliseconds()),
		},
	}

	if len(o.Headers) > 0 {
		out.Response.Headers = make(map[string]string, len(o.Headers))
		for name := range o.Headers {
			out.Response.Headers[name] = o.Headers.Get(name)
		}
	}

	if len(o.Body) > 0 {
		if json.Valid(o.Body) {
			out.Response.Body = json.RawMessage(o.Body)
		} else {
			text, _ := json.Marshal(string(o.Body))
			out.Response.Body = text
		}
	}

	if o.Error != nil {
		out.Error = &JSONError{
			Message:    o.Error.Message(),
			ErrorCodes: o.Error.ErrorCodes(),
			StatusCode: o.Error.StatusCode(),
			Data:       o.Error.Data(),
			Summary:    o.Error.String(),
		}
	}

	for _, a := range o.Assertions {
		out.Assertions = append(out.Assertions, JSONAssertion{
			Subject:  a.Subject,
			Operator: a.Operator,
			Expected: a.Expected,
			Actual:   a.Actual,
			Passed:   a.Passed,
			Message:  a.Message,
		})
	}

	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(out)
}

func (f *JSONFormatter) FormatError(err error) {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	_ = encoder.Encode(map[string]string{"error": err.Error()})
}
