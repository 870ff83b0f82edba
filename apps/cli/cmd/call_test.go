package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/apiharness/packages/core/config"
	"github.com/abdul-hamid-achik/apiharness/packages/core/session"
	apihttp "github.com/abdul-hamid-achik/apiharness/packages/http"
	"github.com/abdul-hamid-achik/apiharness/packages/mock"
	"github.com/abdul-hamid-achik/apiharness/packages/output"
)

func TestCallCommand(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodPost, "/api/users", http.StatusCreated, map[string]any{"id": "123", "name": "Alice"})
	ts := httptest.NewServer(m)
	defer ts.Close()

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetArgs([]string{
		"call", "post", "api/users",
		"--base-url", ts.URL,
		"--data", `{"name":"Alice"}`,
		"--header", "X-Trace: abc",
		"--expect", "status == 201",
		"--capture", "id=body.id",
		"--output", "json",
	})

	require.NoError(t, rootCmd.Execute())

	var got output.JSONOutput
	require.NoError(t, json.Unmarshal(out.Bytes(), &got))
	assert.True(t, got.Passed)
	assert.Equal(t, http.StatusCreated, got.Response.StatusCode)
	assert.Equal(t, ts.URL+"/api/users", got.Request.URL)
	assert.Equal(t, "123", got.Captures["id"])
	require.Len(t, got.Assertions, 1)
	assert.True(t, got.Assertions[0].Passed)

	sent, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "abc", sent.Headers.Get("X-Trace"))
	assert.JSONEq(t, `{"name":"Alice"}`, string(sent.Body))
}

func TestParsePairs(t *testing.T) {
	pairs, err := parsePairs([]string{"page=2", "name=a=b", " q =x"}, "=")
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"page": "2", "name": "a=b", "q": "x"}, pairs)

	_, err = parsePairs([]string{"novalue"}, "=")
	assert.Error(t, err)
}

func TestCutHeader(t *testing.T) {
	tests := []struct {
		in          string
		name, value string
		ok          bool
	}{
		{"X-Trace=abc", "X-Trace", "abc", true},
		{"X-Trace: abc", "X-Trace", "abc", true},
		{"X-Url: http://a=b", "X-Url", "http://a=b", true},
		{"X-Eq=a:b", "X-Eq", "a:b", true},
		{"broken", "", "", false},
	}
	for _, tt := range tests {
		name, value, ok := cutHeader(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.name, name, tt.in)
		assert.Equal(t, tt.value, value, tt.in)
	}
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitSuccess, exitCode(nil))
	assert.Equal(t, ExitTestFailure, exitCode(errors.New("plain")))
	assert.Equal(t, ExitNetworkError, exitCode(withExitCode(ExitNetworkError, errors.New("down"))))
	assert.Nil(t, withExitCode(ExitConfigError, nil))
}

func TestNewCallSession_MergesFlagsOverConfigFile(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodGet, "/users/{name}", http.StatusOK, map[string]any{"name": "alice"})
	ts := httptest.NewServer(m)
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "apiharness.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"baseUrl": "http://unused.test",
		"logLevel": "error",
		"noColor": true,
		"headers": {"X-Env": "staging"},
		"values": {"UserName": "alice"}
	}`), 0644))

	loaded, err := config.LoadConfig(path)
	require.NoError(t, err)

	prevSettings := settings
	prevBaseURL, prevHeaders, prevAuth := callBaseURLFlag, callHeaderFlags, callAuthFlag
	t.Cleanup(func() {
		settings = prevSettings
		callBaseURLFlag, callHeaderFlags, callAuthFlag = prevBaseURL, prevHeaders, prevAuth
	})
	settings = loaded.Merge(&config.Config{Verbose: config.BoolPtr(true)})
	callBaseURLFlag = ts.URL
	callHeaderFlags = []string{"X-Trace: abc"}
	callAuthFlag = "Bearer:tok"

	assert.Equal(t, "error", settings.LogLevel)
	assert.True(t, settings.GetNoColor())
	assert.True(t, settings.GetVerbose())

	s, err := newCallSession()
	require.NoError(t, err)
	assert.Equal(t, ts.URL, s.BaseURL())

	_, err = session.Get[any, any](s, "users/{{UserName}}")
	require.NoError(t, err)

	sent, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/users/alice", sent.Path)
	assert.Equal(t, "staging", sent.Headers.Get("X-Env"))
	assert.Equal(t, "abc", sent.Headers.Get("X-Trace"))
	assert.Equal(t, "Bearer tok", sent.Headers.Get("Authorization"))
}

func TestCallFlagConfig_RejectsBadFlags(t *testing.T) {
	prevFormat, prevAuth := callFormatFlag, callAuthFlag
	t.Cleanup(func() { callFormatFlag, callAuthFlag = prevFormat, prevAuth })

	callFormatFlag, callAuthFlag = "yaml", ""
	_, err := callFlagConfig()
	assert.ErrorIs(t, err, apihttp.ErrUnsupportedFormat)

	callFormatFlag, callAuthFlag = "", ":tok"
	_, err = callFlagConfig()
	assert.ErrorIs(t, err, apihttp.ErrInvalidAuthScheme)
}
