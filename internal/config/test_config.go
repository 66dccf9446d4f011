package config

import "time"

// TestConfig returns a config suitable for testing
func TestConfig() *Config {
	cfg := defaultConfig()
	cfg.API.BaseURL = "http://127.0.0.1:4800/api"
	cfg.API.HTTPTimeout = 5 * time.Second
	cfg.API.UserAgent = "fragments-test/1.0"
	cfg.Database.Path = ""
	cfg.Log.Level = "off"
	cfg.Log.Path = ""
	return cfg
}
