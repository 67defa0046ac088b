package config

import (
	"fmt"
	"time"
)

// Config holds the client settings
type Config struct {
	Endpoint       string        `mapstructure:"endpoint"`
	InviteURLBase  string        `mapstructure:"invite_url_base"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	CacheMaxAge    time.Duration `mapstructure:"cache_max_age"`
	DataDir        string        `mapstructure:"data_dir"`
	LogFile        string        `mapstructure:"log_file"`
	LogLevel       string        `mapstructure:"log_level"`
	Theme          string        `mapstructure:"theme"`
}

// DefaultConfig returns the built-in settings
func DefaultConfig() *Config {
	return &Config{
		Endpoint:       "http://localhost:8000/graphql/",
		InviteURLBase:  "http://localhost:3000",
		RequestTimeout: 30 * time.Second,
		CacheMaxAge:    5 * time.Minute,
		LogLevel:       "info",
		Theme:          "default",
	}
}

// Validate rejects settings the client cannot run with
func (c *Config) Validate() error {
	if c.Endpoint == "" {
		return fmt.Errorf("endpoint must not be empty")
	}
	if c.RequestTimeout <= 0 {
		return fmt.Errorf("request_timeout must be positive, got %s", c.RequestTimeout)
	}
	if c.CacheMaxAge < 0 {
		return fmt.Errorf("cache_max_age must not be negative, got %s", c.CacheMaxAge)
	}
	return nil
}
