package decode

import (
	"go.uber.org/zap"
)

// Strategy names, in default chain order.
const (
	StrategyContract   = "contract"
	StrategyTolerant   = "tolerant"
	StrategyNegotiated = "negotiated"
	StrategyString     = "string"
)

// Input is a response body together with its Content-Type header value.
type Input struct {
	Body        []byte
	ContentType string
}

// Strategy is one named interpreter of a response body. Decode receives a
// non-nil pointer to a zero value of the target type.
type Strategy struct {
	Name   string
	Decode func(in Input, target any) error
}

// Chain is an ordered list of strategies.
type Chain struct {
	strategies []Strategy
	logger     *zap.Logger
}

type ChainOption func(*Chain)

// WithStrategies replaces the default strategies.
func WithStrategies(strategies ...Strategy) ChainOption {
	return func(c *Chain) {
		c.strategies = strategies
	}
}

func WithLogger(logger *zap.Logger) ChainOption {
	return func(c *Chain) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewChain builds a chain with the default strategies. A nil registry gets an empty one.
func NewChain(registry *Registry, opts ...ChainOption) *Chain {
	if registry == nil {
		registry = NewRegistry()
	}
	c := &Chain{
		strategies: DefaultStrategies(registry),
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DefaultStrategies returns contract, tolerant, negotiated and string, in that order.
func DefaultStrategies(registry *Registry) []Strategy {
	return []Strategy{
		ContractStrategy(registry),
		TolerantStrategy(),
		NegotiatedStrategy(),
		StringStrategy(),
	}
}

// Names returns the strategy names in order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.strategies))
	for i, s := range c.strategies {
		names[i] = s.Name
	}
	return names
}

// Decode runs the chain and returns the first successful value with the name
// of the strategy that produced it.
func Decode[T any](c *Chain, in Input) (T, string, error) {
	var zero T
	failures := make([]StrategyError, 0, len(c.strategies))

	for _, s := range c.strategies {
		var value T
		err := s.Decode(in, &value)
		if err == nil {
			c.logger.Debug("response decoded", zap.String("strategy", s.Name))
			return value, s.Name, nil
		}
		if IsFatal(err) {
			return zero, s.Name, err
		}
		c.logger.Debug("decode strategy failed", zap.String("strategy", s.Name), zap.Error(err))
		failures = append(failures, StrategyError{Strategy: s.Name, Err: err})
	}

	return zero, "", &AggregateError{Failures: failures}
}
