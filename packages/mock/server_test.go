package mock

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const routesYAML = `
routes:
  - method: post
    path: /api/users
    response:
      status: 201
      body:
        id: "123"
        name: Alice
  - path: /api/users/{id}
    response:
      headers:
        X-Source: mock
      body: '{"id":"{{id}}"}'
  - method: delete
    path: /api/users/{id}/
    response:
      status: 204
`

func get(t *testing.T, url string) (*http.Response, string) {
	t.Helper()
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp, string(body)
}

func TestParseRoutes(t *testing.T) {
	routes, err := ParseRoutes([]byte(routesYAML))
	require.NoError(t, err)
	require.Len(t, routes, 3)

	assert.Equal(t, http.MethodPost, routes[0].Method)
	assert.Equal(t, http.StatusCreated, routes[0].Response.StatusCode)
	assert.Equal(t, "application/json", routes[0].Response.ContentType)

	assert.Equal(t, http.MethodGet, routes[1].Method)
	assert.Equal(t, http.StatusOK, routes[1].Response.StatusCode)

	assert.Equal(t, "/api/users/{id}", routes[2].Path)
}

func TestParseRoutes_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"missing path", "routes:\n  - method: get\n"},
		{"bad method", "routes:\n  - method: brew\n    path: /coffee\n"},
		{"bad yaml", "routes: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRoutes([]byte(tt.yaml))
			assert.Error(t, err)
		})
	}
}

func TestServer_CannedRoutes(t *testing.T) {
	routes, err := ParseRoutes([]byte(routesYAML))
	require.NoError(t, err)

	s := NewServer(WithRoutes(routes...))
	ts := httptest.NewServer(s)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/api/users", "application/json", strings.NewReader(`{"name":"Alice"}`))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.JSONEq(t, `{"id":"123","name":"Alice"}`, string(body))

	resp, text := get(t, ts.URL+"/api/users/42")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "mock", resp.Header.Get("X-Source"))
	assert.Equal(t, `{"id":"42"}`, text)

	resp, _ = get(t, ts.URL+"/nowhere")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	recorded := s.Requests()
	require.Len(t, recorded, 3)
	assert.Equal(t, `{"name":"Alice"}`, string(recorded[0].Body))
	assert.Equal(t, "/api/users/42", recorded[1].Path)

	s.Reset()
	_, ok := s.LastRequest()
	assert.False(t, ok)
}

func TestServer_HandleOverridesCannedRoute(t *testing.T) {
	s := NewServer()
	s.Respond(http.MethodGet, "/ping", http.StatusOK, "canned")
	s.Handle(http.MethodGet, "/ping", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("custom " + r.URL.Query().Get("q")))
	})

	ts := httptest.NewServer(s)
	defer ts.Close()

	_, body := get(t, ts.URL+"/ping?q=a%20b")
	assert.Equal(t, "custom a b", body)

	last, ok := s.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "q=a%20b", last.RawQuery)
}

func TestServer_RateLimit(t *testing.T) {
	s := NewServer(WithRateLimit(0.001, 2))
	s.Respond(http.MethodGet, "/", http.StatusOK, "ok")
	ts := httptest.NewServer(s)
	defer ts.Close()

	var statuses []int
	for i := 0; i < 3; i++ {
		resp, _ := get(t, ts.URL+"/")
		statuses = append(statuses, resp.StatusCode)
	}

	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, statuses)
}

func TestServer_LoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte(routesYAML), 0644))

	s := NewServer()
	require.NoError(t, s.LoadFile(path))
	assert.Len(t, s.GetRoutes(), 3)

	assert.Error(t, s.LoadFile(filepath.Join(t.TempDir(), "missing.yaml")))
	assert.Len(t, s.GetRoutes(), 3)
}

func TestServer_Watch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "routes.yaml")
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  - path: /a\n"), 0644))

	s := NewServer()
	require.NoError(t, s.LoadFile(path))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Watch(ctx, path) }()

	// Give the watcher time to register before writing
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("routes:\n  - path: /a\n  - path: /b\n"), 0644))

	assert.Eventually(t, func() bool {
		return len(s.GetRoutes()) == 2
	}, 3*time.Second, 50*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("watcher did not stop")
	}
}
