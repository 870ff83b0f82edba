// Package result defines the outcome types returned by every apiharness request.
//
// It provides:
//   - Execution: a success payload or a structured error, never both
//   - Request: an Execution plus the transport metadata of one HTTP exchange
//   - ErrorInfo: a presentation-ready description of a failed request
//
// All types are immutable once constructed.
package result
