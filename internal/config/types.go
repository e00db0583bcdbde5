// internal/config/types.go
package config

import "time"

// Config is the root configuration for an embedfeed run.
type Config struct {
	Name        string         `yaml:"name,omitempty" json:"name,omitempty"`
	Server      ServerConfig   `yaml:"server" json:"server"`
	Feeds       []string       `yaml:"feeds,omitempty" json:"feeds,omitempty"`
	Categories  []string       `yaml:"categories,omitempty" json:"categories,omitempty"`
	MaxArticles int            `yaml:"max_articles,omitempty" json:"max_articles,omitempty"`
	UnreadOnly  bool           `yaml:"unread_only,omitempty" json:"unread_only,omitempty"`
	Resolver    ResolverConfig `yaml:"resolver,omitempty" json:"resolver,omitempty"`
	Output      OutputConfig   `yaml:"output,omitempty" json:"output,omitempty"`
	LogLevel    string         `yaml:"log_level,omitempty" json:"log_level,omitempty"`
}

// ServerConfig describes the FreshRSS instance articles are read from.
type ServerConfig struct {
	URL      string `yaml:"url" json:"url"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
}

// ResolverConfig controls the Bandcamp page resolver.
type ResolverConfig struct {
	RetryAttempts int           `yaml:"retry_attempts,omitempty" json:"retry_attempts,omitempty"`
	RetryDelay    time.Duration `yaml:"retry_delay,omitempty" json:"retry_delay,omitempty"`
	Timeout       time.Duration `yaml:"timeout,omitempty" json:"timeout,omitempty"`
	Concurrency   int           `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	RateLimit     float64       `yaml:"rate_limit,omitempty" json:"rate_limit,omitempty"`
	UserAgent     string        `yaml:"user_agent,omitempty" json:"user_agent,omitempty"`
}

// OutputConfig controls where artifacts and run history land.
type OutputConfig struct {
	Directory    string `yaml:"directory,omitempty" json:"directory,omitempty"`
	ItemsPerPage int    `yaml:"items_per_page,omitempty" json:"items_per_page,omitempty"`
	HistoryDB    string `yaml:"history_db,omitempty" json:"history_db,omitempty"`
}
