package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/go-viper/mapstructure/v2"
	"github.com/spf13/cast"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override file settings,
// e.g. APIHARNESS_BASEURL or APIHARNESS_AUTHORIZATION_TOKEN.
const EnvPrefix = "APIHARNESS"

// Authorization is the scheme and token applied to every request of a session.
type Authorization struct {
	Scheme string `mapstructure:"scheme" json:"scheme,omitempty"`
	Token  string `mapstructure:"token" json:"token,omitempty"`
}

// Config represents the apiharness configuration
type Config struct {
	BaseURL         string            `mapstructure:"baseUrl" json:"baseUrl,omitempty"`
	RequestFormat   string            `mapstructure:"requestFormat" json:"requestFormat,omitempty"`
	ValidateSSL     *bool             `mapstructure:"validateSSL" json:"validateSSL,omitempty"`
	FollowRedirects *bool             `mapstructure:"followRedirects" json:"followRedirects,omitempty"`
	MaxRedirects    int               `mapstructure:"maxRedirects" json:"maxRedirects,omitempty"`
	Headers         map[string]string `mapstructure:"headers" json:"headers,omitempty"` // Sent with every request of a session
	Authorization   *Authorization    `mapstructure:"authorization" json:"authorization,omitempty"`
	IndentJSON      *bool             `mapstructure:"indentJson" json:"indentJson,omitempty"`
	LogLevel        string            `mapstructure:"logLevel" json:"logLevel,omitempty"`
	Verbose         *bool             `mapstructure:"verbose" json:"verbose,omitempty"`
	NoColor         *bool             `mapstructure:"noColor" json:"noColor,omitempty"`
	Values          map[string]any    `mapstructure:"values" json:"values,omitempty"` // Free-form data shared by test steps
}

// BoolPtr returns a pointer to b
func BoolPtr(b bool) *bool {
	return &b
}

// getBool returns the value of a bool pointer, or the default if nil
func getBool(b *bool, defaultVal bool) bool {
	if b == nil {
		return defaultVal
	}
	return *b
}

// GetFollowRedirects returns the follow redirects setting, defaulting to true
func (c *Config) GetFollowRedirects() bool {
	return getBool(c.FollowRedirects, true)
}

// GetValidateSSL returns the validate SSL setting, defaulting to false.
// Skipping certificate validation is a test-only posture for servers with
// self-signed certificates; it is never safe against production endpoints.
func (c *Config) GetValidateSSL() bool {
	return getBool(c.ValidateSSL, false)
}

// GetIndentJSON returns the indent JSON setting, defaulting to false
func (c *Config) GetIndentJSON() bool {
	return getBool(c.IndentJSON, false)
}

// GetVerbose returns the verbose setting, defaulting to false
func (c *Config) GetVerbose() bool {
	return getBool(c.Verbose, false)
}

// GetNoColor returns the no color setting, defaulting to false
func (c *Config) GetNoColor() bool {
	return getBool(c.NoColor, false)
}

// Lookup returns a shared value by key, ignoring case.
func (c *Config) Lookup(key string) (any, bool) {
	if v, ok := c.Values[key]; ok {
		return v, true
	}
	for k, v := range c.Values {
		if strings.EqualFold(k, key) {
			return v, true
		}
	}
	return nil, false
}

// Value returns a shared value as a string, or "" when it is missing.
func (c *Config) Value(key string) string {
	v, ok := c.Lookup(key)
	if !ok {
		return ""
	}
	return cast.ToString(v)
}

// ConfigFilenames contains the possible config file names
var ConfigFilenames = []string{
	"apiharness.json",
	".apiharness.json",
	"ExternalConfig.json",
}

// LoadConfig loads configuration from the specified path or searches for config files
func LoadConfig(path string) (*Config, error) {
	if path != "" {
		return loadConfigFromFile(path)
	}

	// Search for config file in current directory
	return FindAndLoadConfig(".")
}

// FindAndLoadConfig searches for a config file in the given directory
func FindAndLoadConfig(dir string) (*Config, error) {
	for _, filename := range ConfigFilenames {
		configPath := filepath.Join(dir, filename)
		if _, err := os.Stat(configPath); err == nil {
			return loadConfigFromFile(configPath)
		}
	}

	// Defaults overlaid with the environment if no config file found
	return decode(newViper())
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(path)
	if filepath.Ext(path) == "" {
		v.SetConfigType("json")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("config file %s: %w", path, os.ErrNotExist)
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}
	return decode(v)
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// AutomaticEnv only applies to keys viper already knows
	defaults := DefaultConfig()
	v.SetDefault("baseUrl", defaults.BaseURL)
	v.SetDefault("requestFormat", defaults.RequestFormat)
	v.SetDefault("validateSSL", *defaults.ValidateSSL)
	v.SetDefault("followRedirects", *defaults.FollowRedirects)
	v.SetDefault("maxRedirects", defaults.MaxRedirects)
	v.SetDefault("indentJson", *defaults.IndentJSON)
	v.SetDefault("logLevel", defaults.LogLevel)
	v.SetDefault("verbose", *defaults.Verbose)
	v.SetDefault("noColor", *defaults.NoColor)
	v.SetDefault("authorization.scheme", "")
	v.SetDefault("authorization.token", "")
	return v
}

func decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	hook := viper.DecodeHook(mapstructure.ComposeDecodeHookFunc(
		mapstructure.StringToTimeDurationHookFunc(),
		mapstructure.StringToSliceHookFunc(","),
	))
	if err := v.Unmarshal(config, hook); err != nil {
		return nil, fmt.Errorf("decoding config: %w", err)
	}
	if config.Authorization != nil && config.Authorization.Scheme == "" && config.Authorization.Token == "" {
		config.Authorization = nil
	}
	return config, nil
}

// Merge merges another config into this one, with other taking precedence
func (c *Config) Merge(other *Config) *Config {
	if other == nil {
		return c
	}

	result := *c // Copy

	if other.BaseURL != "" {
		result.BaseURL = other.BaseURL
	}
	if other.RequestFormat != "" {
		result.RequestFormat = other.RequestFormat
	}
	if other.MaxRedirects > 0 {
		result.MaxRedirects = other.MaxRedirects
	}
	if other.LogLevel != "" {
		result.LogLevel = other.LogLevel
	}
	if other.Authorization != nil {
		auth := *other.Authorization
		result.Authorization = &auth
	}

	// Boolean flags - only override if explicitly set in other config
	if other.FollowRedirects != nil {
		result.FollowRedirects = other.FollowRedirects
	}
	if other.ValidateSSL != nil {
		result.ValidateSSL = other.ValidateSSL
	}
	if other.IndentJSON != nil {
		result.IndentJSON = other.IndentJSON
	}
	if other.Verbose != nil {
		result.Verbose = other.Verbose
	}
	if other.NoColor != nil {
		result.NoColor = other.NoColor
	}

	// Merge headers
	if len(other.Headers) > 0 {
		headers := make(map[string]string, len(c.Headers)+len(other.Headers))
		for k, v := range c.Headers {
			headers[k] = v
		}
		for k, v := range other.Headers {
			headers[k] = v
		}
		result.Headers = headers
	}

	// Merge values
	if len(other.Values) > 0 {
		values := make(map[string]any, len(c.Values)+len(other.Values))
		for k, v := range c.Values {
			values[k] = v
		}
		for k, v := range other.Values {
			values[k] = v
		}
		result.Values = values
	}

	return &result
}
