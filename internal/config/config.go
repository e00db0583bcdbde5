// internal/config/config.go
package config

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadFromFile loads configuration from a YAML file.
func LoadFromFile(filename string) (*Config, error) {
	if filename == "" {
		return nil, fmt.Errorf("configuration filename cannot be empty")
	}

	if _, err := os.Stat(filename); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", filename)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file: %v", err)
	}

	return LoadFromBytes(data)
}

// LoadFromBytes loads configuration from YAML bytes.
func LoadFromBytes(data []byte) (*Config, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("configuration data cannot be empty")
	}

	// Substitute environment variables, so credentials can stay out of the file
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML configuration: %v", err)
	}

	applyDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %v", err)
	}

	return &cfg, nil
}

// LoadFromReader loads configuration from an io.Reader.
func LoadFromReader(reader io.Reader) (*Config, error) {
	if reader == nil {
		return nil, fmt.Errorf("reader cannot be nil")
	}

	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("failed to read from reader: %v", err)
	}

	return LoadFromBytes(data)
}

// applyDefaults applies default values to the configuration.
func applyDefaults(cfg *Config) {
	if cfg.MaxArticles == 0 {
		cfg.MaxArticles = 100
	}

	if cfg.Resolver.RetryAttempts == 0 {
		cfg.Resolver.RetryAttempts = 3
	}

	if cfg.Resolver.RetryDelay == 0 {
		cfg.Resolver.RetryDelay = 2 * time.Second
	}

	if cfg.Resolver.Timeout == 0 {
		cfg.Resolver.Timeout = 15 * time.Second
	}

	if cfg.Resolver.Concurrency == 0 {
		cfg.Resolver.Concurrency = 1
	}

	if cfg.Resolver.RateLimit == 0 {
		cfg.Resolver.RateLimit = 1.0
	}

	if cfg.Output.Directory == "" {
		cfg.Output.Directory = "docs"
	}

	if cfg.Output.ItemsPerPage == 0 {
		cfg.Output.ItemsPerPage = 8
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
}

// Validate checks the configuration for required fields and sane values.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Server.URL) == "" {
		return fmt.Errorf("server.url is required")
	}

	if strings.TrimSpace(c.Server.Username) == "" {
		return fmt.Errorf("server.username is required")
	}

	if strings.TrimSpace(c.Server.Password) == "" {
		return fmt.Errorf("server.password is required")
	}

	if len(c.Feeds) == 0 && len(c.Categories) == 0 {
		return fmt.Errorf("at least one feed or category must be configured")
	}

	if c.MaxArticles < 1 {
		return fmt.Errorf("max_articles must be positive, got %d", c.MaxArticles)
	}

	if c.Output.ItemsPerPage < 1 {
		return fmt.Errorf("output.items_per_page must be positive, got %d", c.Output.ItemsPerPage)
	}

	if c.Resolver.RetryAttempts < 1 {
		return fmt.Errorf("resolver.retry_attempts must be positive, got %d", c.Resolver.RetryAttempts)
	}

	if c.Resolver.Concurrency < 1 {
		return fmt.Errorf("resolver.concurrency must be positive, got %d", c.Resolver.Concurrency)
	}

	return nil
}

// GenerateTemplate returns a skeleton configuration for the template command.
func GenerateTemplate() *Config {
	return &Config{
		Name: "music_feeds",
		Server: ServerConfig{
			URL:      "https://rss.example.com",
			Username: "user",
			Password: "${FRESHRSS_PASSWORD}",
		},
		Categories:  []string{"Music"},
		MaxArticles: 100,
		Resolver: ResolverConfig{
			RetryAttempts: 3,
			RetryDelay:    2 * time.Second,
			Timeout:       15 * time.Second,
			Concurrency:   1,
			RateLimit:     1.0,
		},
		Output: OutputConfig{
			Directory:    "docs",
			ItemsPerPage: 8,
		},
		LogLevel: "info",
	}
}
