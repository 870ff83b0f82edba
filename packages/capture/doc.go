// Package capture extracts values from HTTP responses for use in subsequent requests.
//
// It supports capturing values from:
//   - Response body (gjson paths, with [N] array indexes)
//   - Response headers
//   - Response status code
//
// Captured values can be used in later request paths via {{name}} or
// {{step.name}} placeholders.
package capture
