// Package session holds the transport state of one test scenario and exposes
// one high-level verb per HTTP method.
//
// A Session owns:
//   - The base URL and request format used to build its HTTP client
//   - An Authorization that survives client rebuilds
//   - Custom headers that are sent with each call but never stored on the client
//   - A cookie jar and a call counter shared by every client it builds
//   - A snapshot of the last call: result, error info, status, content type, headers and body
//
// Verbs accept StopAtFailure and FailureMessage call options. A stopped call
// fails the configured require.TestingT and returns a *StopError.
//
// A Session belongs to a single scenario and is not safe for concurrent use.
package session
