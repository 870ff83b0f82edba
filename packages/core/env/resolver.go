package env

import (
	"os"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"
	"go.uber.org/zap"
)

var variablePattern = regexp.MustCompile(`\{\{([^}]+)\}\}`)

// funcs back {{name()}} placeholders.
var funcs = map[string]func() string{
	"uuid":        func() string { return uuid.NewString() },
	"timestamp":   func() string { return strconv.FormatInt(time.Now().Unix(), 10) },
	"timestampMs": func() string { return strconv.FormatInt(time.Now().UnixMilli(), 10) },
	"now":         func() string { return time.Now().UTC().Format(time.RFC3339) },
}

// Resolver replaces {{name}} placeholders in request paths. Lookups try
// captures first, then variables. {{$NAME}} reads the process environment and
// {{uuid()}}, {{timestamp()}}, {{timestampMs()}} and {{now()}} generate values.
type Resolver struct {
	mu        sync.RWMutex
	variables map[string]any
	captures  map[string]any
	logger    *zap.Logger
}

func NewResolver() *Resolver {
	return &Resolver{
		variables: make(map[string]any),
		captures:  make(map[string]any),
		logger:    zap.NewNop(),
	}
}

// SetLogger sets the logger that reports unresolved placeholders.
func (r *Resolver) SetLogger(logger *zap.Logger) {
	if logger == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
}

func (r *Resolver) SetVariables(vars map[string]any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range vars {
		r.variables[k] = v
	}
}

func (r *Resolver) SetVariable(name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.variables[name] = value
}

// SetCapture stores a value captured from a response. When step is not empty
// the value is also reachable as {{step.name}}.
func (r *Resolver) SetCapture(step, name string, value any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.captures[name] = value
	if step != "" {
		r.captures[step+"."+name] = value
	}
}

// GetVariable returns a capture or variable by name.
func (r *Resolver) GetVariable(name string) (any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.lookup(name)
}

// lookup matches variable names case-insensitively when there is no exact
// match, since config loading folds their case.
func (r *Resolver) lookup(name string) (any, bool) {
	if v, ok := r.captures[name]; ok {
		return v, true
	}
	if v, ok := r.variables[name]; ok {
		return v, true
	}
	for k, v := range r.variables {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return nil, false
}

// Resolve replaces every resolvable placeholder in input. Unresolved
// placeholders stay as they are.
func (r *Resolver) Resolve(input string) string {
	return variablePattern.ReplaceAllStringFunc(input, func(match string) string {
		expr := strings.TrimSpace(match[2 : len(match)-2])
		if val, ok := r.resolveExpr(expr); ok {
			return val
		}
		r.mu.RLock()
		logger := r.logger
		r.mu.RUnlock()
		logger.Warn("unresolved placeholder", zap.String("placeholder", expr))
		return match
	})
}

func (r *Resolver) resolveExpr(expr string) (string, bool) {
	if envVar, ok := strings.CutPrefix(expr, "$"); ok {
		val, found := os.LookupEnv(envVar)
		return val, found
	}

	if name, ok := strings.CutSuffix(expr, "()"); ok {
		fn, found := funcs[name]
		if !found {
			return "", false
		}
		return fn(), true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	val, ok := r.lookup(expr)
	if !ok {
		return "", false
	}
	return cast.ToString(val), true
}
