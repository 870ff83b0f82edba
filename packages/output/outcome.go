package output

import (
	"io"
	"net/http"
	"time"

	"github.com/abdul-hamid-achik/apiharness/packages/assertions"
	"github.com/abdul-hamid-achik/apiharness/packages/result"
)

// Outcome is everything a formatter shows about one call.
type Outcome struct {
	Method      string
	URL         string
	StatusCode  int
	ContentType string
	Headers     http.Header
	Body        []byte
	DecodedBy   string
	Error       *result.ErrorInfo
	Assertions  []*assertions.Result
	Captures    map[string]any
	Duration    time.Duration
}

// NewOutcome collects the formatter view of a finished request.
func NewOutcome[T, E any](method, url string, r *result.Request[T, E], duration time.Duration) *Outcome {
	return &Outcome{
		Method:      method,
		URL:         url,
		StatusCode:  r.StatusCode(),
		ContentType: r.ContentType(),
		Headers:     r.Headers(),
		Body:        r.Body(),
		DecodedBy:   r.DecodedBy(),
		Error:       result.ErrorInfoFrom(r),
		Duration:    duration,
	}
}

// Passed reports whether the call succeeded and every assertion held.
func (o *Outcome) Passed() bool {
	if o.Error != nil {
		return false
	}
	for _, a := range o.Assertions {
		if !a.Passed {
			return false
		}
	}
	return true
}

// Formatter renders call outcomes.
type Formatter interface {
	FormatOutcome(outcome *Outcome)
	FormatError(err error)
}

// NewFormatter returns the formatter for name: "json" or, by default, "console".
func NewFormatter(name string, w io.Writer, verbose, noColor bool) Formatter {
	if name == "json" {
		return NewJSONFormatter(JSONWithWriter(w))
	}
	return NewConsoleFormatter(WithWriter(w), WithVerbose(verbose), WithNoColor(noColor))
}
