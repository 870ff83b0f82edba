package session

import (
	"errors"
	"maps"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/apiharness/packages/core/config"
	"github.com/abdul-hamid-achik/apiharness/packages/core/env"
	"github.com/abdul-hamid-achik/apiharness/packages/decode"
	apihttp "github.com/abdul-hamid-achik/apiharness/packages/http"
	"github.com/abdul-hamid-achik/apiharness/packages/result"
)

var ErrNoBaseURL = errors.New("session has no base URL")

// Session is the transport context of one test scenario.
type Session struct {
	id            string
	baseURL       string
	format        apihttp.RequestFormat
	authorization *apihttp.Authorization
	customHeaders map[string]string
	jar           http.CookieJar
	counter       *apihttp.CallCounter
	registry      *decode.Registry
	resolver      *env.Resolver

	insecure        bool
	followRedirects bool
	maxRedirects    int
	indentJSON      bool

	test string
	step string

	t      require.TestingT
	logger *zap.Logger
	client *apihttp.Client

	lastResult  any
	lastError   *result.ErrorInfo
	decodedBy   string
	statusCode  int
	contentType string
	headers     http.Header
	body        []byte
}

// Option configures a Session.
type Option func(*Session)

// WithT fails t when a call made with StopAtFailure fails.
func WithT(t require.TestingT) Option {
	return func(s *Session) {
		s.t = t
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Session) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithBaseURL sets the URL relative paths are resolved against.
func WithBaseURL(baseURL string) Option {
	return func(s *Session) {
		s.baseURL = baseURL
	}
}

// WithRequestFormat sets the initial request format.
func WithRequestFormat(format apihttp.RequestFormat) Option {
	return func(s *Session) {
		s.format = format
	}
}

// WithInsecureSkipVerify disables TLS certificate validation for every client
// the session builds. Test-only: never use it against production endpoints.
func WithInsecureSkipVerify(insecure bool) Option {
	return func(s *Session) {
		s.insecure = insecure
	}
}

// WithRegistry sets the contract registry used for polymorphic decoding.
func WithRegistry(registry *decode.Registry) Option {
	return func(s *Session) {
		if registry != nil {
			s.registry = registry
		}
	}
}

func WithFollowRedirects(follow bool) Option {
	return func(s *Session) {
		s.followRedirects = follow
	}
}

func WithMaxRedirects(max int) Option {
	return func(s *Session) {
		s.maxRedirects = max
	}
}

// WithIndentedJSON indents serialized request bodies.
func WithIndentedJSON(indent bool) Option {
	return func(s *Session) {
		s.indentJSON = indent
	}
}

// WithHeaders seeds the custom headers.
func WithHeaders(headers map[string]string) Option {
	return func(s *Session) {
		maps.Copy(s.customHeaders, headers)
	}
}

// WithVariables seeds the values available to {{name}} placeholders in paths.
func WithVariables(vars map[string]any) Option {
	return func(s *Session) {
		s.resolver.SetVariables(vars)
	}
}

// New creates a session. The HTTP client is built on first use.
func New(opts ...Option) (*Session, error) {
	jar, err := apihttp.NewCookieJar()
	if err != nil {
		return nil, err
	}

	s := &Session{
		id:              uuid.NewString(),
		format:          apihttp.FormatJSON,
		customHeaders:   make(map[string]string),
		jar:             jar,
		counter:         apihttp.NewCallCounter(),
		registry:        decode.NewRegistry(),
		resolver:        env.NewResolver(),
		followRedirects: true,
		maxRedirects:    apihttp.DefaultMaxRedirects,
		logger:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With(zap.String("session", s.id))
	s.resolver.SetLogger(s.logger)

	if _, err := s.format.MediaType(); err != nil {
		return nil, err
	}
	return s, nil
}

// FromConfig creates a session from loaded configuration. opts are applied
// after the configuration and take precedence.
func FromConfig(cfg *config.Config, opts ...Option) (*Session, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	format, err := apihttp.ParseRequestFormat(cfg.RequestFormat)
	if err != nil {
		return nil, err
	}

	cfgOpts := []Option{
		WithBaseURL(cfg.BaseURL),
		WithRequestFormat(format),
		WithInsecureSkipVerify(!cfg.GetValidateSSL()),
		WithFollowRedirects(cfg.GetFollowRedirects()),
		WithIndentedJSON(cfg.GetIndentJSON()),
		WithHeaders(cfg.Headers),
		WithVariables(cfg.Values),
	}
	if cfg.MaxRedirects > 0 {
		cfgOpts = append(cfgOpts, WithMaxRedirects(cfg.MaxRedirects))
	}

	s, err := New(append(cfgOpts, opts...)...)
	if err != nil {
		return nil, err
	}
	if cfg.Authorization != nil {
		if err := s.SetAuthorization(apihttp.AuthScheme(cfg.Authorization.Scheme), cfg.Authorization.Token); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// ID identifies the session in logs.
func (s *Session) ID() string {
	return s.id
}

func (s *Session) BaseURL() string {
	return s.baseURL
}

// SetBaseURL changes the base URL. The client is rebuilt on the next call.
func (s *Session) SetBaseURL(baseURL string) {
	if baseURL == s.baseURL {
		return
	}
	s.baseURL = baseURL
	s.client = nil
}

func (s *Session) RequestFormat() apihttp.RequestFormat {
	return s.format
}

// SetRequestFormat switches the Accept header. The client is rebuilt on the
// next call with the same authorization, cookies and custom headers.
func (s *Session) SetRequestFormat(format apihttp.RequestFormat) error {
	if _, err := format.MediaType(); err != nil {
		return err
	}
	if format == s.format {
		return nil
	}
	s.logger.Debug("switching request format",
		zap.Stringer("from", s.format),
		zap.Stringer("to", format))
	s.format = format
	s.client = nil
	return nil
}

// SetAuthorization attaches scheme and token to every subsequent call.
func (s *Session) SetAuthorization(scheme apihttp.AuthScheme, token string) error {
	auth := apihttp.Authorization{Scheme: scheme, Token: token}
	if err := auth.Validate(); err != nil {
		return err
	}
	if s.client != nil {
		if err := s.client.SetAuthorization(scheme, token); err != nil {
			return err
		}
	}
	s.authorization = &auth
	return nil
}

// Authorization returns the current authorization, if any.
func (s *Session) Authorization() (apihttp.Authorization, bool) {
	if s.authorization == nil {
		return apihttp.Authorization{}, false
	}
	return *s.authorization, true
}

// CustomHeaders returns a copy of the headers added to each call.
func (s *Session) CustomHeaders() map[string]string {
	return maps.Clone(s.customHeaders)
}

// SetHeader adds a header to every subsequent call.
func (s *Session) SetHeader(name, value string) {
	s.customHeaders[name] = value
}

func (s *Session) RemoveHeader(name string) {
	for key := range s.customHeaders {
		if strings.EqualFold(key, name) {
			delete(s.customHeaders, key)
		}
	}
}

func (s *Session) ClearHeaders() {
	clear(s.customHeaders)
}

// AddCookie stores a cookie for the base URL. Cookies are never removed.
func (s *Session) AddCookie(cookie *http.Cookie) error {
	c, err := s.transport()
	if err != nil {
		return err
	}
	return c.AddCookie(cookie)
}

// Cookies returns the cookies named name that would be sent to the base URL.
func (s *Session) Cookies(name string) []*http.Cookie {
	c, err := s.transport()
	if err != nil {
		return nil
	}
	return c.Cookies(name)
}

// SetStep names the current test and step for call correlation.
func (s *Session) SetStep(test, step string) {
	s.test = test
	s.step = step
}

// CallCount returns the number of calls made during the current step.
func (s *Session) CallCount() int {
	return s.counter.Count(apihttp.StepKey(s.test, s.step))
}

// SetVariable makes value available to {{name}} placeholders in paths.
func (s *Session) SetVariable(name string, value any) {
	s.resolver.SetVariable(name, value)
}

// Variable returns a captured value or variable.
func (s *Session) Variable(name string) (any, bool) {
	return s.resolver.GetVariable(name)
}

// DefaultHeaders returns the headers the current client sends with every call.
func (s *Session) DefaultHeaders() (http.Header, error) {
	c, err := s.transport()
	if err != nil {
		return nil, err
	}
	return c.DefaultHeaders(), nil
}

// transport returns the client, building it when the session changed.
func (s *Session) transport() (*apihttp.Client, error) {
	if s.client != nil {
		return s.client, nil
	}
	if strings.TrimSpace(s.baseURL) == "" {
		return nil, ErrNoBaseURL
	}

	opts := []apihttp.ClientOption{
		apihttp.WithFormat(s.format),
		apihttp.WithCookieJar(s.jar),
		apihttp.WithCustomHeaders(s.CustomHeaders),
		apihttp.WithInsecureSkipVerify(s.insecure),
		apihttp.WithFollowRedirects(s.followRedirects),
		apihttp.WithMaxRedirects(s.maxRedirects),
		apihttp.WithIndentedJSON(s.indentJSON),
		apihttp.WithRegistry(s.registry),
		apihttp.WithCallCounter(s.counter),
		apihttp.WithStepInfo(func() (string, string) { return s.test, s.step }),
		apihttp.WithLogger(s.logger),
	}
	if s.authorization != nil {
		opts = append(opts, apihttp.WithAuthorization(*s.authorization))
	}

	c, err := apihttp.NewClient(s.baseURL, opts...)
	if err != nil {
		return nil, err
	}
	s.logger.Debug("http client built",
		zap.String("base_url", s.baseURL),
		zap.Stringer("format", s.format))
	s.client = c
	return c, nil
}
