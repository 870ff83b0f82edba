package session

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolveQueryParameters(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		params map[string]any
		want   string
	}{
		{
			name:   "reserved characters keep one layer of encoding",
			path:   "api/users",
			params: map[string]any{"name": "a b&c"},
			want:   "api/users?name=a%20b%26c",
		},
		{
			name:   "appends to an existing query",
			path:   "api/users?page=1",
			params: map[string]any{"q": "x"},
			want:   "api/users?page=1&q=x",
		},
		{
			name:   "replaces a parameter already in the query",
			path:   "api/users?page=1&sort=name",
			params: map[string]any{"page": 2},
			want:   "api/users?sort=name&page=2",
		},
		{
			name:   "empty value keeps the existing parameter",
			path:   "api/users?page=1",
			params: map[string]any{"page": ""},
			want:   "api/users?page=1",
		},
		{
			name:   "sorted and empty values skipped",
			path:   "p",
			params: map[string]any{"c": true, "a": "", "b": 2, "d": nil},
			want:   "p?b=2&c=true",
		},
		{
			name:   "percent sign",
			path:   "p",
			params: map[string]any{"rate": "100%"},
			want:   "p?rate=100%25",
		},
		{
			name:   "non ascii",
			path:   "p",
			params: map[string]any{"city": "é"},
			want:   "p?city=%C3%A9",
		},
		{
			name:   "values without a string form are skipped",
			path:   "p",
			params: map[string]any{"obj": struct{ A int }{1}, "ok": "y"},
			want:   "p?ok=y",
		},
		{
			name:   "no parameters",
			path:   "p",
			params: nil,
			want:   "p?",
		},
		{
			name:   "undecodable result is returned as built",
			path:   "p%zz",
			params: map[string]any{"a": "b c"},
			want:   "p%zz?a=b%2520c",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ResolveQueryParameters(tt.path, tt.params))
		})
	}
}
