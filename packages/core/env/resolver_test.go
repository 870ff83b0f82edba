package env

import (
	"strconv"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolverResolve(t *testing.T) {
	t.Setenv("APIHARNESS_TEST_HOST", "api.test")

	tests := []struct {
		name      string
		input     string
		variables map[string]any
		captures  map[string]any
		expected  string
	}{
		{
			name:     "no placeholders",
			input:    "api/users",
			expected: "api/users",
		},
		{
			name:      "simple variable",
			input:     "api/users/{{userId}}",
			variables: map[string]any{"userId": 7},
			expected:  "api/users/7",
		},
		{
			name:      "multiple variables",
			input:     "{{resource}}/{{id}}",
			variables: map[string]any{"resource": "users", "id": "2"},
			expected:  "users/2",
		},
		{
			name:      "capture wins over variable",
			input:     "users/{{id}}",
			variables: map[string]any{"id": "from-var"},
			captures:  map[string]any{"id": "from-capture"},
			expected:  "users/from-capture",
		},
		{
			name:     "whitespace inside braces",
			input:    "users/{{ id }}",
			captures: map[string]any{"id": "3"},
			expected: "users/3",
		},
		{
			name:     "environment variable",
			input:    "https://{{$APIHARNESS_TEST_HOST}}/users",
			expected: "https://api.test/users",
		},
		{
			name:     "unresolved stays as-is",
			input:    "users/{{unknown}}",
			expected: "users/{{unknown}}",
		},
		{
			name:     "unknown function stays as-is",
			input:    "users/{{nope()}}",
			expected: "users/{{nope()}}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewResolver()
			r.SetVariables(tt.variables)
			for k, v := range tt.captures {
				r.SetCapture("", k, v)
			}

			assert.Equal(t, tt.expected, r.Resolve(tt.input))
		})
	}
}

func TestResolverFunctions(t *testing.T) {
	r := NewResolver()

	id := r.Resolve("{{uuid()}}")
	_, err := uuid.Parse(id)
	assert.NoError(t, err)

	ts, err := strconv.ParseInt(r.Resolve("{{timestamp()}}"), 10, 64)
	require.NoError(t, err)
	assert.Positive(t, ts)

	assert.NotEqual(t, "{{now()}}", r.Resolve("{{now()}}"))
}

func TestResolverNamespacedCapture(t *testing.T) {
	r := NewResolver()
	r.SetCapture("createUser", "id", "123")

	assert.Equal(t, "users/123", r.Resolve("users/{{createUser.id}}"))
	assert.Equal(t, "users/123", r.Resolve("users/{{id}}"))

	v, ok := r.GetVariable("createUser.id")
	require.True(t, ok)
	assert.Equal(t, "123", v)
}

func TestResolverVariableCase(t *testing.T) {
	r := NewResolver()
	r.SetVariables(map[string]any{"username": "alice", "Id": 1, "id": 2})
	r.SetCapture("", "token", "abc")

	assert.Equal(t, "users/alice", r.Resolve("users/{{UserName}}"))
	assert.Equal(t, "2", r.Resolve("{{id}}"))
	assert.Equal(t, "{{TOKEN}}", r.Resolve("{{TOKEN}}"))

	v, ok := r.GetVariable("USERNAME")
	require.True(t, ok)
	assert.Equal(t, "alice", v)
}

func TestResolverConcurrentAccess(t *testing.T) {
	r := NewResolver()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.SetVariable("n", i)
			_ = r.Resolve("{{n}}")
		}(i)
	}
	wg.Wait()

	_, ok := r.GetVariable("n")
	assert.True(t, ok)
}
