// Package config handles configuration loading for apiharness sessions.
//
// It provides functionality for:
//   - Loading apiharness.json, .apiharness.json or ExternalConfig.json files
//   - Overriding any setting through APIHARNESS_* environment variables
//   - Default configuration values and merging of CLI overrides
//   - Case-insensitive lookup of shared test values
package config
