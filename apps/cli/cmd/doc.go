// Package cmd implements the apiharness CLI commands using Cobra.
//
// Available commands:
//   - call: Send one request through a session and print the outcome
//   - mock: Serve canned responses from a YAML routes file
//   - version: Show apiharness version information
//   - completion: Generate shell completion scripts
//
// Settings come from apiharness.json (or --config), APIHARNESS_* environment
// variables and flags, in increasing order of precedence.
package cmd
