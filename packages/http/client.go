package http

import (
	"crypto/tls"
	"errors"
	"fmt"
	"net/http"
	neturl "net/url"
	"strings"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/abdul-hamid-achik/apiharness/packages/decode"
)

const (
	// DefaultMaxRedirects is the maximum number of redirects to follow
	DefaultMaxRedirects = 10
)

var (
	ErrEmptyBaseURL = errors.New("base URL must not be empty")
	ErrTransport    = errors.New("transport failure")
)

// Client sends requests relative to a base URL. A Client belongs to one
// session and is not meant for concurrent use.
type Client struct {
	rc             *resty.Client
	baseURL        string
	format         RequestFormat
	authorization  *Authorization
	jar            http.CookieJar
	customHeaders  func() map[string]string
	insecure       bool
	followRedirect bool
	maxRedirects   int
	indentJSON     bool
	registry       *decode.Registry
	chain          *decode.Chain
	stringChain    *decode.Chain
	counter        *CallCounter
	stepInfo       func() (test, step string)
	logger         *zap.Logger
}

type ClientOption func(*Client)

// WithFormat sets the Accept header through a RequestFormat.
func WithFormat(format RequestFormat) ClientOption {
	return func(c *Client) {
		c.format = format
	}
}

// WithAuthorization applies an Authorization header to every request.
func WithAuthorization(auth Authorization) ClientOption {
	return func(c *Client) {
		c.authorization = &auth
	}
}

// WithCookieJar shares a jar between clients.
func WithCookieJar(jar http.CookieJar) ClientOption {
	return func(c *Client) {
		c.jar = jar
	}
}

// WithCustomHeaders sets the source of per-call headers. It is read once per
// call and the returned map is copied into that request only.
func WithCustomHeaders(source func() map[string]string) ClientOption {
	return func(c *Client) {
		c.customHeaders = source
	}
}

// WithInsecureSkipVerify disables TLS certificate validation. This is a
// test-only posture for servers with self-signed certificates and must never
// be used against production endpoints.
func WithInsecureSkipVerify(insecure bool) ClientOption {
	return func(c *Client) {
		c.insecure = insecure
	}
}

func WithFollowRedirects(follow bool) ClientOption {
	return func(c *Client) {
		c.followRedirect = follow
	}
}

func WithMaxRedirects(max int) ClientOption {
	return func(c *Client) {
		c.maxRedirects = max
	}
}

// WithIndentedJSON indents serialized request bodies.
func WithIndentedJSON(indent bool) ClientOption {
	return func(c *Client) {
		c.indentJSON = indent
	}
}

// WithRegistry sets the contract registry used for polymorphic decoding.
func WithRegistry(registry *decode.Registry) ClientOption {
	return func(c *Client) {
		c.registry = registry
	}
}

// WithCallCounter shares a call counter between clients.
func WithCallCounter(counter *CallCounter) ClientOption {
	return func(c *Client) {
		c.counter = counter
	}
}

// WithStepInfo sets the source of the current test and step names.
func WithStepInfo(source func() (test, step string)) ClientOption {
	return func(c *Client) {
		c.stepInfo = source
	}
}

func WithLogger(logger *zap.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for baseURL.
func NewClient(baseURL string, opts ...ClientOption) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, ErrEmptyBaseURL
	}
	if err := ValidateURL(baseURL); err != nil {
		return nil, err
	}

	c := &Client{
		baseURL:        baseURL,
		format:         FormatJSON,
		followRedirect: true,
		maxRedirects:   DefaultMaxRedirects,
		logger:         zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}

	mediaType, err := c.format.MediaType()
	if err != nil {
		return nil, err
	}

	if c.jar == nil {
		if c.jar, err = NewCookieJar(); err != nil {
			return nil, err
		}
	}
	if c.registry == nil {
		c.registry = decode.NewRegistry()
	}
	if c.counter == nil {
		c.counter = NewCallCounter()
	}

	c.chain = decode.NewChain(c.registry, decode.WithLogger(c.logger))
	c.stringChain = decode.NewChain(c.registry,
		decode.WithLogger(c.logger),
		decode.WithStrategies(decode.StringStrategy()),
	)

	redirectPolicy := resty.RedirectPolicyFunc(func(req *http.Request, via []*http.Request) error {
		if !c.followRedirect {
			return http.ErrUseLastResponse
		}
		if len(via) >= c.maxRedirects {
			return http.ErrUseLastResponse
		}
		return nil
	})

	c.rc = resty.New().
		SetCookieJar(c.jar).
		SetHeader("Accept", mediaType).
		SetRedirectPolicy(redirectPolicy).
		SetLogger(c.logger.Sugar())

	// Configure TLS verification
	if c.insecure {
		c.rc.SetTLSClientConfig(&tls.Config{InsecureSkipVerify: true})
	}

	if c.authorization != nil {
		if err := c.applyAuthorization(*c.authorization); err != nil {
			return nil, err
		}
	}

	return c, nil
}

func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) Format() RequestFormat {
	return c.format
}

// SetAuthorization applies scheme and token to every subsequent request.
func (c *Client) SetAuthorization(scheme AuthScheme, token string) error {
	auth := Authorization{Scheme: scheme, Token: token}
	if err := c.applyAuthorization(auth); err != nil {
		return err
	}
	c.authorization = &auth
	return nil
}

// Authorization returns the current authorization, if any.
func (c *Client) Authorization() (Authorization, bool) {
	if c.authorization == nil {
		return Authorization{}, false
	}
	return *c.authorization, true
}

func (c *Client) applyAuthorization(auth Authorization) error {
	if err := auth.Validate(); err != nil {
		return err
	}
	c.rc.SetAuthScheme(string(auth.Scheme)).SetAuthToken(auth.Token)
	return nil
}

// DefaultHeaders returns a copy of the headers sent with every request.
// Custom headers never appear here; they live on individual requests.
func (c *Client) DefaultHeaders() http.Header {
	return c.rc.Header.Clone()
}

// CallCount returns the number of calls made under a StepKey.
func (c *Client) CallCount(key string) int {
	return c.counter.Count(key)
}

func (c *Client) resolve(path string) (string, error) {
	target := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		target = strings.TrimRight(c.baseURL, "/") + "/" + strings.TrimLeft(path, "/")
	}
	if err := ValidateURL(target); err != nil {
		return "", err
	}
	return target, nil
}

func (c *Client) headersForCall() map[string]string {
	if c.customHeaders == nil {
		return nil
	}
	src := c.customHeaders()
	headers := make(map[string]string, len(src))
	for k, v := range src {
		headers[k] = v
	}
	return headers
}

func (c *Client) nextCorrelationID() string {
	if c.stepInfo == nil {
		return ""
	}
	key := StepKey(c.stepInfo())
	if key == "" {
		return ""
	}
	return correlationID(key, c.counter.Next(key))
}

// send performs one request and reads the whole response.
func (c *Client) send(method, path string, prepare func(*resty.Request)) (*resty.Response, error) {
	target, err := c.resolve(path)
	if err != nil {
		return nil, err
	}

	req := c.rc.R().SetHeaders(c.headersForCall())
	if prepare != nil {
		prepare(req)
	}

	correlation := c.nextCorrelationID()
	c.logger.Debug("sending request",
		zap.String("method", method),
		zap.String("url", target),
		zap.String("correlation_id", correlation))

	resp, err := req.Execute(method, target)
	if err != nil {
		c.logger.Warn("request failed",
			zap.String("method", method),
			zap.String("url", target),
			zap.Error(err))
		return nil, fmt.Errorf("%w: %s %s: %w", ErrTransport, method, target, err)
	}

	c.logger.Debug("response received",
		zap.String("method", method),
		zap.String("url", target),
		zap.Int("status", resp.StatusCode()),
		zap.Duration("duration", resp.Time()))

	return resp, nil
}

// ValidateURL checks that a URL is well-formed and uses an allowed scheme
func ValidateURL(rawURL string) error {
	u, err := neturl.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("invalid URL: %v", err)
	}

	// Check for valid scheme
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported URL scheme: %s (only http and https are allowed)", u.Scheme)
	}

	// Check for valid host
	if u.Host == "" {
		return fmt.Errorf("URL must have a host")
	}

	return nil
}
