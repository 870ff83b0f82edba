// Package http executes API requests for apiharness test scenarios.
//
// It wraps a resty client with:
//   - An Accept header fixed by the RequestFormat (JSON or XML)
//   - A session-wide Authorization scheme and token
//   - Custom headers copied into each request at call time
//   - A cookie jar shared across clients of one session
//   - Success routing through a decode.Chain and failure routing to raw error text
//   - A per-step call counter for correlation identifiers
//
// Every verb blocks until the response is fully read or the transport fails.
package http
