package capture

import (
	"bytes"
	"net/http"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// Response is the part of an HTTP exchange that captures and assertions read.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// IsJSON reports whether the body is a JSON document.
func (r *Response) IsJSON() bool {
	return len(bytes.TrimSpace(r.Body)) > 0 && gjson.ValidBytes(r.Body)
}

func (r *Response) BodyString() string {
	return string(r.Body)
}

// Header returns the first value of the named header.
func (r *Response) Header(name string) string {
	return r.Headers.Get(name)
}

type Source int

const (
	SourceBody Source = iota
	SourceHeader
	SourceStatus
)

// Capture names a value to extract from a response.
type Capture struct {
	Name   string
	Source Source
	Path   string
}

var bracketIndex = regexp.MustCompile(`\[(\d+)\]`)

// Parse reads an expression such as "status", "header Location", "body.data.id"
// or a bare JSON path like "data.items[0].id".
func Parse(name, expr string) Capture {
	expr = strings.TrimSpace(expr)
	switch {
	case expr == "status":
		return Capture{Name: name, Source: SourceStatus}
	case strings.HasPrefix(expr, "header "):
		return Capture{Name: name, Source: SourceHeader, Path: strings.TrimSpace(strings.TrimPrefix(expr, "header "))}
	case expr == "body":
		return Capture{Name: name, Source: SourceBody}
	case strings.HasPrefix(expr, "body."):
		return Capture{Name: name, Source: SourceBody, Path: JSONPath(strings.TrimPrefix(expr, "body."))}
	default:
		return Capture{Name: name, Source: SourceBody, Path: JSONPath(expr)}
	}
}

// JSONPath converts array bracket notation to gjson dot notation,
// e.g. "items[0].tags[1]" becomes "items.0.tags.1".
func JSONPath(path string) string {
	return strings.TrimPrefix(bracketIndex.ReplaceAllString(path, ".$1"), ".")
}

type Extractor struct {
	response *Response
	bodyJSON gjson.Result
}

func NewExtractor(resp *Response) *Extractor {
	e := &Extractor{
		response: resp,
	}
	if resp.IsJSON() {
		e.bodyJSON = gjson.ParseBytes(resp.Body)
	}
	return e
}

func (e *Extractor) Extract(capture Capture) (any, bool) {
	switch capture.Source {
	case SourceBody:
		return e.extractFromBody(capture.Path)
	case SourceHeader:
		return e.extractFromHeader(capture.Path)
	case SourceStatus:
		return e.response.StatusCode, true
	default:
		return nil, false
	}
}

func (e *Extractor) extractFromBody(path string) (any, bool) {
	if !e.bodyJSON.Exists() {
		if path == "" {
			return e.response.BodyString(), true
		}
		return nil, false
	}

	if path == "" {
		return e.bodyJSON.Value(), true
	}

	result := e.bodyJSON.Get(path)
	if !result.Exists() {
		return nil, false
	}
	return result.Value(), true
}

func (e *Extractor) extractFromHeader(name string) (any, bool) {
	value := e.response.Header(name)
	if value == "" {
		return nil, false
	}
	return value, true
}

// ExtractAll returns the value of every capture that could be extracted.
func ExtractAll(resp *Response, captures []Capture) map[string]any {
	extractor := NewExtractor(resp)
	results := make(map[string]any)

	for _, c := range captures {
		if value, ok := extractor.Extract(c); ok {
			results[c.Name] = value
		}
	}

	return results
}
