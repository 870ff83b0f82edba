// Package env resolves {{placeholder}} expressions in request paths.
//
// It provides functionality for:
//   - Variable interpolation using {{variable}} syntax
//   - Values captured from previous responses, optionally namespaced by step
//   - Process environment lookups with {{$NAME}}
//   - Generated values such as {{uuid()}} and {{timestamp()}}
package env
