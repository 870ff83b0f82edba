package session

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdul-hamid-achik/apiharness/packages/core/config"
	"github.com/abdul-hamid-achik/apiharness/packages/decode"
	apihttp "github.com/abdul-hamid-achik/apiharness/packages/http"
	"github.com/abdul-hamid-achik/apiharness/packages/mock"
)

type users struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
	Job  string `json:"job"`
}

type errorDetails struct {
	Error string `json:"error"`
}

// fakeT records failures without stopping the test goroutine.
type fakeT struct {
	failed   bool
	messages []string
}

func (f *fakeT) Errorf(format string, args ...any) {
	f.messages = append(f.messages, fmt.Sprintf(format, args...))
}

func (f *fakeT) FailNow() {
	f.failed = true
}

func newMockSession(t *testing.T, m *mock.Server, opts ...Option) *Session {
	t.Helper()
	ts := httptest.NewServer(m)
	t.Cleanup(ts.Close)

	s, err := New(append([]Option{WithBaseURL(ts.URL)}, opts...)...)
	require.NoError(t, err)
	return s
}

func TestSession_PostCreated(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodPost, "/api/users", http.StatusCreated, map[string]any{
		"name": "Alice",
		"job":  "Engineer",
		"id":   "123",
	})
	s := newMockSession(t, m)

	r, err := Post[users, errorDetails](s, "api/users", users{Name: "Alice", Job: "Engineer"})
	require.NoError(t, err)

	assert.Equal(t, http.StatusCreated, r.StatusCode())
	assert.False(t, r.HasError())
	assert.Equal(t, "123", r.Result().ID)
	assert.Equal(t, decode.StrategyContract, r.DecodedBy())

	assert.Equal(t, http.StatusCreated, s.StatusCode())
	assert.Nil(t, s.LastError())
	last, ok := LastResultAs[users](s)
	require.True(t, ok)
	assert.Equal(t, "Alice", last.Name)
	assert.Equal(t, "application/json", s.ContentType())

	sent, ok := m.LastRequest()
	require.True(t, ok)
	assert.JSONEq(t, `{"name":"Alice","job":"Engineer"}`, string(sent.Body))
}

func TestSession_PostBadRequest(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodGet, "/api/users/1", http.StatusOK, map[string]any{"id": "1", "name": "Bob", "job": "Chef"})
	m.Respond(http.MethodPost, "/api/users", http.StatusBadRequest, `{"error":"name required"}`)
	s := newMockSession(t, m)

	_, err := Get[users, errorDetails](s, "api/users/1")
	require.NoError(t, err)
	require.NotNil(t, s.LastResult())

	r, err := Post[users, errorDetails](s, "api/users", users{Job: "Engineer"})
	require.NoError(t, err)

	assert.True(t, r.HasError())
	assert.Equal(t, `{"error":"name required"}`, r.ServerErrorText())
	require.NotNil(t, r.ErrorDetail())
	assert.Equal(t, "name required", r.ErrorDetail().Error)

	assert.Nil(t, s.LastResult())
	require.NotNil(t, s.LastError())
	assert.Equal(t, http.StatusBadRequest, s.LastError().StatusCode())
	assert.Equal(t, `{"error":"name required"}`, s.LastError().Message())
	assert.Equal(t, http.StatusBadRequest, s.StatusCode())
	assert.Equal(t, `{"error":"name required"}`, string(s.Body()))
}

func TestSession_StopAtFailure(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodDelete, "/api/users/1", http.StatusNotFound, `{"error":"missing"}`)

	t.Run("fails the test with the supplied message", func(t *testing.T) {
		ft := &fakeT{}
		s := newMockSession(t, m, WithT(ft))

		r, err := Delete[struct{}, errorDetails](s, "api/users/1", StopAtFailure(), FailureMessage("user must exist"))

		var stop *StopError
		require.ErrorAs(t, err, &stop)
		assert.Equal(t, "user must exist", stop.Message)
		assert.Equal(t, http.MethodDelete, stop.Method)
		require.NotNil(t, stop.Info)
		assert.Equal(t, http.StatusNotFound, stop.Info.StatusCode())

		assert.True(t, ft.failed)
		require.NotEmpty(t, ft.messages)
		assert.Contains(t, ft.messages[0], "user must exist")

		require.NotNil(t, r)
		assert.Equal(t, http.StatusNotFound, s.StatusCode(), "snapshot is updated before stopping")
	})

	t.Run("default message without a TestingT", func(t *testing.T) {
		s := newMockSession(t, m)

		_, err := Delete[struct{}, errorDetails](s, "api/users/1", StopAtFailure())

		var stop *StopError
		require.ErrorAs(t, err, &stop)
		assert.Equal(t, DefaultFailureMessage, stop.Message)
	})

	t.Run("soft failure continues", func(t *testing.T) {
		ft := &fakeT{}
		s := newMockSession(t, m, WithT(ft))

		r, err := Delete[struct{}, errorDetails](s, "api/users/1")
		require.NoError(t, err)
		assert.True(t, r.HasError())
		assert.False(t, ft.failed)
		assert.NotNil(t, s.LastError())
	})
}

func TestSession_GetWithQueryEncodesOnce(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodGet, "/search", http.StatusOK, map[string]any{})
	s := newMockSession(t, m)

	_, err := GetWithQuery[map[string]any, errorDetails](s, "search", map[string]any{"name": "a b&c"})
	require.NoError(t, err)

	sent, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "name=a%20b%26c", sent.RawQuery)
}

func TestSession_CustomHeadersScopedToCall(t *testing.T) {
	var seen string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = r.Header.Get("X-Trace")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))

	s, err := New(WithBaseURL(server.URL))
	require.NoError(t, err)
	s.SetHeader("X-Trace", "abc")

	_, err = Get[map[string]any, errorDetails](s, "/")
	require.NoError(t, err)
	assert.Equal(t, "abc", seen)

	defaults, err := s.DefaultHeaders()
	require.NoError(t, err)
	assert.Empty(t, defaults.Get("X-Trace"))

	server.Close()
	_, err = Get[map[string]any, errorDetails](s, "/")
	require.ErrorIs(t, err, apihttp.ErrTransport)
	assert.Equal(t, 0, s.StatusCode(), "faults clear the snapshot")

	defaults, err = s.DefaultHeaders()
	require.NoError(t, err)
	assert.Empty(t, defaults.Get("X-Trace"))
	assert.Equal(t, "abc", s.CustomHeaders()["X-Trace"])

	s.RemoveHeader("x-trace")
	assert.Empty(t, s.CustomHeaders())
}

func TestSession_FormatSwitchPreservesState(t *testing.T) {
	type seenRequest struct {
		accept, auth, keep, cookie string
	}
	var seen []seenRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		req := seenRequest{
			accept: r.Header.Get("Accept"),
			auth:   r.Header.Get("Authorization"),
			keep:   r.Header.Get("X-Keep"),
		}
		if c, err := r.Cookie("session"); err == nil {
			req.cookie = c.Value
		}
		seen = append(seen, req)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer server.Close()

	s, err := New(WithBaseURL(server.URL))
	require.NoError(t, err)

	require.ErrorIs(t, s.SetAuthorization("", "tok"), apihttp.ErrInvalidAuthScheme)
	require.NoError(t, s.SetAuthorization(apihttp.AuthBearer, "tok"))
	s.SetHeader("X-Keep", "1")
	require.NoError(t, s.AddCookie(&http.Cookie{Name: "session", Value: "s1"}))

	_, err = Get[map[string]any, errorDetails](s, "/")
	require.NoError(t, err)

	require.NoError(t, s.SetRequestFormat(apihttp.FormatXML))
	assert.Equal(t, apihttp.FormatXML, s.RequestFormat())

	_, err = Get[map[string]any, errorDetails](s, "/")
	require.NoError(t, err)

	require.Len(t, seen, 2)
	assert.Equal(t, seenRequest{"application/json", "Bearer tok", "1", "s1"}, seen[0])
	assert.Equal(t, seenRequest{"application/xml", "Bearer tok", "1", "s1"}, seen[1])

	assert.ErrorIs(t, s.SetRequestFormat(apihttp.RequestFormat(9)), apihttp.ErrUnsupportedFormat)
}

func TestSession_AuthorizationChangeAppliesToExistingClient(t *testing.T) {
	var auth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		auth = r.Header.Get("Authorization")
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	s, err := New(WithBaseURL(server.URL))
	require.NoError(t, err)

	_, err = Delete[struct{}, errorDetails](s, "/x")
	require.NoError(t, err)
	assert.Empty(t, auth)

	require.NoError(t, s.SetAuthorization(apihttp.AuthBasic, apihttp.BasicToken("u", "p")))
	_, err = Delete[struct{}, errorDetails](s, "/x")
	require.NoError(t, err)
	assert.Equal(t, "Basic dTpw", auth)
}

func TestSession_CaptureResolvesPlaceholders(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodPost, "/api/users", http.StatusCreated, map[string]any{"id": "123", "name": "Alice", "job": "Engineer"})
	m.Respond(http.MethodGet, "/api/users/{id}", http.StatusOK, `{"id":"{{id}}","name":"Alice","job":"Engineer"}`)
	s := newMockSession(t, m)

	_, err := PostJSON[users, errorDetails](s, "api/users", map[string]string{"name": "Alice"})
	require.NoError(t, err)

	id, err := s.Capture("userId", "body.id")
	require.NoError(t, err)
	assert.Equal(t, "123", id)

	_, err = s.Capture("missing", "body.nope")
	assert.Error(t, err)

	r, err := Get[users, errorDetails](s, "api/users/{{userId}}")
	require.NoError(t, err)
	assert.Equal(t, "123", r.Result().ID)

	sent, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/api/users/123", sent.Path)
}

func TestSession_Assert(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodGet, "/api/users/1", http.StatusOK, map[string]any{"id": "1", "name": "Alice", "job": "Engineer"})
	s := newMockSession(t, m)

	_, err := Get[users, errorDetails](s, "api/users/1")
	require.NoError(t, err)

	res, err := s.Assert("status == 200")
	require.NoError(t, err)
	assert.True(t, res.Passed, res.Message)

	res, err = s.Assert("body.name == Alice")
	require.NoError(t, err)
	assert.True(t, res.Passed, res.Message)

	res, err = s.Assert("header Content-Type contains xml")
	require.NoError(t, err)
	assert.False(t, res.Passed)

	for _, expr := range []string{"hasError == false", "error !exists", `decodedBy == "contract"`} {
		res, err = s.Assert(expr)
		require.NoError(t, err)
		assert.True(t, res.Passed, "%s: %s", expr, res.Message)
	}
	assert.Equal(t, decode.StrategyContract, s.DecodedBy())

	_, err = s.Assert("status")
	assert.Error(t, err)
}

func TestSession_AssertFailedCallEnvelope(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodGet, "/api/users/9", http.StatusNotFound, map[string]any{"error": "not found"})
	s := newMockSession(t, m)

	r, err := Get[users, errorDetails](s, "api/users/9")
	require.NoError(t, err)
	require.True(t, r.HasError())

	for _, expr := range []string{"hasError == true", "error exists", "error.status == 404", "decodedBy !exists"} {
		res, err := s.Assert(expr)
		require.NoError(t, err)
		assert.True(t, res.Passed, "%s: %s", expr, res.Message)
	}
	assert.Empty(t, s.DecodedBy())
}

func TestSession_UndecodableSuccessBody(t *testing.T) {
	m := mock.NewServer()
	m.Handle(http.MethodGet, "/broken", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("not json"))
	})
	s := newMockSession(t, m)

	_, err := Get[users, errorDetails](s, "broken")

	var agg *decode.AggregateError
	require.ErrorAs(t, err, &agg)
	assert.Len(t, agg.Failures, 4)
	assert.Nil(t, s.LastResult())
	assert.Equal(t, 0, s.StatusCode())
}

func TestSession_CallCountSurvivesRebuild(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodGet, "/ping", http.StatusOK, "pong")
	s := newMockSession(t, m)
	s.SetStep("Login", "Submit")

	for range 2 {
		_, err := GetString[errorDetails](s, "ping")
		require.NoError(t, err)
	}
	require.NoError(t, s.SetRequestFormat(apihttp.FormatXML))
	r, err := GetString[errorDetails](s, "ping")
	require.NoError(t, err)

	assert.Equal(t, "pong", r.Result())
	assert.Equal(t, 3, s.CallCount())
}

func TestSession_NoBaseURL(t *testing.T) {
	s, err := New()
	require.NoError(t, err)

	_, err = Get[users, errorDetails](s, "api/users")
	assert.ErrorIs(t, err, ErrNoBaseURL)
}

func TestFromConfig(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.BaseURL = "http://localhost:8080"
	cfg.RequestFormat = "xml"
	cfg.Headers = map[string]string{"X-Tenant": "acme"}
	cfg.Authorization = &config.Authorization{Scheme: "Bearer", Token: "tok"}
	cfg.Values = map[string]any{"tenant": "acme"}

	s, err := FromConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8080", s.BaseURL())
	assert.Equal(t, apihttp.FormatXML, s.RequestFormat())
	assert.Equal(t, map[string]string{"X-Tenant": "acme"}, s.CustomHeaders())
	auth, ok := s.Authorization()
	require.True(t, ok)
	assert.Equal(t, apihttp.Authorization{Scheme: apihttp.AuthBearer, Token: "tok"}, auth)
	tenant, ok := s.Variable("tenant")
	require.True(t, ok)
	assert.Equal(t, "acme", tenant)
	assert.NotEmpty(t, s.ID())

	overridden, err := FromConfig(cfg, WithBaseURL("http://other:9090"))
	require.NoError(t, err)
	assert.Equal(t, "http://other:9090", overridden.BaseURL())

	cfg.RequestFormat = "yaml"
	_, err = FromConfig(cfg)
	assert.True(t, errors.Is(err, apihttp.ErrUnsupportedFormat))
}

func TestFromConfig_FileValuesKeepPlaceholderCase(t *testing.T) {
	m := mock.NewServer()
	m.Respond(http.MethodGet, "/users/{name}", http.StatusOK, map[string]any{"name": "alice"})
	ts := httptest.NewServer(m)
	defer ts.Close()

	path := filepath.Join(t.TempDir(), "ExternalConfig.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"baseUrl": "`+ts.URL+`",
		"values": {"UserName": "alice"}
	}`), 0644))

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)
	s, err := FromConfig(cfg)
	require.NoError(t, err)

	r, err := Get[users, errorDetails](s, "users/{{UserName}}")
	require.NoError(t, err)
	assert.Equal(t, "alice", r.Result().Name)

	sent, ok := m.LastRequest()
	require.True(t, ok)
	assert.Equal(t, "/users/alice", sent.Path)

	name, ok := s.Variable("UserName")
	require.True(t, ok)
	assert.Equal(t, "alice", name)
}
