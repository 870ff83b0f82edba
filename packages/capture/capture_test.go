package capture

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func jsonResponse(body string) *Response {
	return &Response{
		StatusCode: http.StatusCreated,
		Headers:    http.Header{"Location": {"/api/users/123"}},
		Body:       []byte(body),
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		expr string
		want Capture
	}{
		{"status", Capture{Name: "c", Source: SourceStatus}},
		{"header Location", Capture{Name: "c", Source: SourceHeader, Path: "Location"}},
		{"body", Capture{Name: "c", Source: SourceBody}},
		{"body.data.id", Capture{Name: "c", Source: SourceBody, Path: "data.id"}},
		{"items[0].tags[1]", Capture{Name: "c", Source: SourceBody, Path: "items.0.tags.1"}},
		{"[2].id", Capture{Name: "c", Source: SourceBody, Path: "2.id"}},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			assert.Equal(t, tt.want, Parse("c", tt.expr))
		})
	}
}

func TestExtractor(t *testing.T) {
	resp := jsonResponse(`{"id":"123","user":{"name":"Alice"},"tags":["a","b"]}`)
	e := NewExtractor(resp)

	tests := []struct {
		name   string
		expr   string
		want   any
		wantOK bool
	}{
		{"body path", "id", "123", true},
		{"nested path", "body.user.name", "Alice", true},
		{"array index", "tags[1]", "b", true},
		{"missing path", "nope", nil, false},
		{"status", "status", http.StatusCreated, true},
		{"header", "header Location", "/api/users/123", true},
		{"missing header", "header X-Missing", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := e.Extract(Parse("v", tt.expr))
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractor_NonJSONBody(t *testing.T) {
	e := NewExtractor(&Response{StatusCode: 200, Body: []byte("plain text")})

	got, ok := e.Extract(Parse("v", "body"))
	require.True(t, ok)
	assert.Equal(t, "plain text", got)

	_, ok = e.Extract(Parse("v", "body.id"))
	assert.False(t, ok)
}

func TestExtractAll(t *testing.T) {
	resp := jsonResponse(`{"id":"123"}`)

	got := ExtractAll(resp, []Capture{
		Parse("userId", "id"),
		Parse("location", "header Location"),
		Parse("missing", "nope"),
	})

	assert.Equal(t, map[string]any{"userId": "123", "location": "/api/users/123"}, got)
}
