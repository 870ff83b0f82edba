package config

// DefaultConfig returns a configuration with default values
func DefaultConfig() *Config {
	return &Config{
		BaseURL:         "",
		RequestFormat:   "json",
		ValidateSSL:     BoolPtr(false),
		FollowRedirects: BoolPtr(true),
		MaxRedirects:    10,
		Headers:         nil,
		Authorization:   nil,
		IndentJSON:      BoolPtr(false),
		LogLevel:        "warn",
		Verbose:         BoolPtr(false),
		NoColor:         BoolPtr(false),
		Values:          nil,
	}
}
