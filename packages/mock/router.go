package mock

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Route represents a mock route. Path uses chi patterns such as /api/users/{id}.
type Route struct {
	Method   string        `yaml:"method"`
	Path     string        `yaml:"path"`
	Name     string        `yaml:"name,omitempty"`
	Response *MockResponse `yaml:"response"`
}

// MockResponse represents a mock HTTP response. Body may be a string or any
// YAML value, which is served as JSON.
type MockResponse struct {
	StatusCode  int               `yaml:"status"`
	ContentType string            `yaml:"contentType,omitempty"`
	Headers     map[string]string `yaml:"headers,omitempty"`
	Body        any               `yaml:"body,omitempty"`
}

var supportedMethods = map[string]bool{
	http.MethodGet:     true,
	http.MethodHead:    true,
	http.MethodPost:    true,
	http.MethodPut:     true,
	http.MethodPatch:   true,
	http.MethodDelete:  true,
	http.MethodOptions: true,
}

type routesFile struct {
	Routes []*Route `yaml:"routes"`
}

// LoadRoutes reads a YAML routes file.
func LoadRoutes(path string) ([]*Route, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read routes file %s: %w", path, err)
	}
	routes, err := ParseRoutes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse routes file %s: %w", path, err)
	}
	return routes, nil
}

// ParseRoutes decodes routes from YAML and fills in defaults.
func ParseRoutes(data []byte) ([]*Route, error) {
	var file routesFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, err
	}
	for i, route := range file.Routes {
		if err := route.normalize(); err != nil {
			return nil, fmt.Errorf("route %d: %w", i, err)
		}
	}
	return file.Routes, nil
}

func (r *Route) normalize() error {
	if r.Path == "" {
		return fmt.Errorf("path is required")
	}
	r.Method = strings.ToUpper(strings.TrimSpace(r.Method))
	if r.Method == "" {
		r.Method = http.MethodGet
	}
	if !supportedMethods[r.Method] {
		return fmt.Errorf("unsupported method %q", r.Method)
	}
	r.Path = normalizePath(r.Path)
	if r.Response == nil {
		r.Response = &MockResponse{}
	}
	if r.Response.StatusCode == 0 {
		r.Response.StatusCode = http.StatusOK
	}
	if r.Response.ContentType == "" {
		r.Response.ContentType = "application/json"
	}
	return nil
}

// render returns the body text with {{param}} placeholders replaced.
func (m *MockResponse) render(params map[string]string) (string, error) {
	var body string
	switch b := m.Body.(type) {
	case nil:
	case string:
		body = b
	default:
		data, err := json.Marshal(b)
		if err != nil {
			return "", err
		}
		body = string(data)
	}
	for key, value := range params {
		body = strings.ReplaceAll(body, "{{"+key+"}}", value)
	}
	return body, nil
}

func normalizePath(path string) string {
	// Ensure path starts with /
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	// Remove trailing slash (except for root)
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = path[:len(path)-1]
	}
	return path
}
