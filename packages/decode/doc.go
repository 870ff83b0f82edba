// Package decode turns HTTP response bodies into typed values.
//
// A Chain tries its strategies in a fixed order until one succeeds:
//   - contract: strict JSON with polymorphic subtype resolution through a Registry
//   - tolerant: any valid JSON, weakly decoded into the target
//   - negotiated: a codec picked from the response media type (JSON, XML, YAML, form)
//   - string: the raw body, only when the target is a string
//
// A failing strategy does not stop the chain unless its error is fatal
// (see IsFatal). When every strategy fails, Decode returns an *AggregateError
// carrying one StrategyError per attempt.
package decode
