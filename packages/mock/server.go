// Package mock provides a scriptable HTTP server that answers with canned
// responses and records every request it receives.
package mock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// RecordedRequest is one request received by the server.
type RecordedRequest struct {
	Method   string
	Path     string
	RawQuery string
	Headers  http.Header
	Body     []byte
}

// Server is a mock HTTP server driven by routes
type Server struct {
	mu       sync.RWMutex
	routes   []*Route
	handlers []handlerRoute
	router   chi.Router
	requests []RecordedRequest

	port    int
	delay   time.Duration
	limiter *rate.Limiter
	logger  *zap.Logger
}

type handlerRoute struct {
	method  string
	path    string
	handler http.HandlerFunc
}

// Option is a functional option for Server
type Option func(*Server)

// WithPort sets the server port
func WithPort(port int) Option {
	return func(s *Server) {
		s.port = port
	}
}

// WithDelay adds a delay to all responses
func WithDelay(delay time.Duration) Option {
	return func(s *Server) {
		s.delay = delay
	}
}

// WithRateLimit answers 429 Too Many Requests beyond rps requests per second.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		if rps <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRoutes serves routes from the start.
func WithRoutes(routes ...*Route) Option {
	return func(s *Server) {
		s.routes = append(s.routes, routes...)
	}
}

// NewServer creates a new mock server
func NewServer(opts ...Option) *Server {
	s := &Server{
		port:   3000,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	valid := s.routes[:0]
	for _, route := range s.routes {
		if err := route.normalize(); err != nil {
			s.logger.Warn("skipping invalid route", zap.String("path", route.Path), zap.Error(err))
			continue
		}
		valid = append(valid, route)
	}
	s.routes = valid
	s.rebuild()
	return s
}

// LoadFile replaces the canned routes with those of a YAML routes file.
func (s *Server) LoadFile(path string) error {
	routes, err := LoadRoutes(path)
	if err != nil {
		return err
	}
	return s.SetRoutes(routes)
}

// SetRoutes replaces the canned routes. Handlers added with Handle are kept.
func (s *Server) SetRoutes(routes []*Route) error {
	for i, route := range routes {
		if err := route.normalize(); err != nil {
			return fmt.Errorf("route %d: %w", i, err)
		}
	}
	s.mu.Lock()
	s.routes = routes
	s.mu.Unlock()
	s.rebuild()
	return nil
}

// AddRoute adds one canned route.
func (s *Server) AddRoute(route *Route) error {
	if err := route.normalize(); err != nil {
		return err
	}
	s.mu.Lock()
	s.routes = append(s.routes, route)
	s.mu.Unlock()
	s.rebuild()
	return nil
}

// Respond adds a canned route answering method and path with status and body.
func (s *Server) Respond(method, path string, status int, body any) {
	_ = s.AddRoute(&Route{
		Method:   method,
		Path:     path,
		Response: &MockResponse{StatusCode: status, Body: body},
	})
}

// Handle registers a custom handler. Handlers take precedence over canned
// routes with the same method and path. method must be a standard HTTP method.
func (s *Server) Handle(method, path string, handler http.HandlerFunc) {
	s.mu.Lock()
	s.handlers = append(s.handlers, handlerRoute{method: method, path: normalizePath(path), handler: handler})
	s.mu.Unlock()
	s.rebuild()
}

// GetRoutes returns all canned routes
func (s *Server) GetRoutes() []*Route {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]*Route(nil), s.routes...)
}

// Requests returns a copy of every request received so far.
func (s *Server) Requests() []RecordedRequest {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]RecordedRequest(nil), s.requests...)
}

// LastRequest returns the most recent request.
func (s *Server) LastRequest() (RecordedRequest, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.requests) == 0 {
		return RecordedRequest{}, false
	}
	return s.requests[len(s.requests)-1], true
}

// Reset forgets recorded requests.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = nil
}

func (s *Server) rebuild() {
	s.mu.Lock()
	defer s.mu.Unlock()

	r := chi.NewRouter()
	r.NotFound(func(w http.ResponseWriter, req *http.Request) {
		s.logger.Debug("no route", zap.String("method", req.Method), zap.String("path", req.URL.Path))
		http.NotFound(w, req)
	})

	registered := make(map[string]bool)
	for _, h := range s.handlers {
		r.MethodFunc(h.method, h.path, h.handler)
		registered[h.method+" "+h.path] = true
	}
	for _, route := range s.routes {
		if registered[route.Method+" "+route.Path] {
			continue
		}
		r.MethodFunc(route.Method, route.Path, s.cannedHandler(route))
		registered[route.Method+" "+route.Path] = true
	}
	s.router = r
}

func (s *Server) cannedHandler(route *Route) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		params := make(map[string]string)
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			for i, key := range rctx.URLParams.Keys {
				params[key] = rctx.URLParams.Values[i]
			}
		}

		resp := route.Response
		body, err := resp.render(params)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		for key, value := range resp.Headers {
			w.Header().Set(key, value)
		}
		w.Header().Set("Content-Type", resp.ContentType)
		w.WriteHeader(resp.StatusCode)
		_, _ = w.Write([]byte(body))
	}
}

// ServeHTTP records the request, applies the rate limit and delay, then routes it.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	body, _ := io.ReadAll(r.Body)
	r.Body = io.NopCloser(bytes.NewReader(body))

	s.mu.Lock()
	s.requests = append(s.requests, RecordedRequest{
		Method:   r.Method,
		Path:     r.URL.Path,
		RawQuery: r.URL.RawQuery,
		Headers:  r.Header.Clone(),
		Body:     body,
	})
	router := s.router
	s.mu.Unlock()

	if s.limiter != nil && !s.limiter.Allow() {
		s.logger.Debug("rate limited", zap.String("method", r.Method), zap.String("path", r.URL.Path))
		http.Error(w, http.StatusText(http.StatusTooManyRequests), http.StatusTooManyRequests)
		return
	}

	// Apply delay if configured
	if s.delay > 0 {
		time.Sleep(s.delay)
	}

	router.ServeHTTP(w, r)

	s.logger.Debug("request served",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Duration("duration", time.Since(start)))
}

// StartWithContext starts the server and shuts it down when ctx is done.
func (s *Server) StartWithContext(ctx context.Context) error {
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.port),
		Handler: s,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("mock server starting",
		zap.String("url", fmt.Sprintf("http://localhost:%d", s.port)),
		zap.Int("routes", len(s.GetRoutes())))

	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
