// internal/config/config_test.go
package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

const validYAML = `
name: test_run
server:
  url: https://rss.example.com
  username: alice
  password: secret
feeds:
  - feed/12
categories:
  - Music
max_articles: 50
output:
  directory: out
  items_per_page: 8
`

func TestLoadFromBytes(t *testing.T) {
	cfg, err := LoadFromBytes([]byte(validYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.URL != "https://rss.example.com" {
		t.Errorf("unexpected server url: %q", cfg.Server.URL)
	}
	if cfg.MaxArticles != 50 {
		t.Errorf("expected max_articles 50, got %d", cfg.MaxArticles)
	}
	if cfg.Output.ItemsPerPage != 8 {
		t.Errorf("expected items_per_page 8, got %d", cfg.Output.ItemsPerPage)
	}
}

func TestLoadFromBytesAppliesDefaults(t *testing.T) {
	minimal := `
server:
  url: https://rss.example.com
  username: alice
  password: secret
feeds:
  - feed/12
`
	cfg, err := LoadFromBytes([]byte(minimal))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Resolver.RetryAttempts != 3 {
		t.Errorf("expected default retry_attempts 3, got %d", cfg.Resolver.RetryAttempts)
	}
	if cfg.Resolver.RetryDelay != 2*time.Second {
		t.Errorf("expected default retry_delay 2s, got %v", cfg.Resolver.RetryDelay)
	}
	if cfg.Resolver.Timeout != 15*time.Second {
		t.Errorf("expected default timeout 15s, got %v", cfg.Resolver.Timeout)
	}
	if cfg.Output.ItemsPerPage != 8 {
		t.Errorf("expected default items_per_page 8, got %d", cfg.Output.ItemsPerPage)
	}
	if cfg.Output.Directory != "docs" {
		t.Errorf("expected default output directory docs, got %q", cfg.Output.Directory)
	}
	if cfg.Resolver.Concurrency != 1 {
		t.Errorf("expected default concurrency 1, got %d", cfg.Resolver.Concurrency)
	}
}

func TestLoadFromBytesExpandsEnvironment(t *testing.T) {
	os.Setenv("EMBEDFEED_TEST_PASSWORD", "hunter2")
	defer os.Unsetenv("EMBEDFEED_TEST_PASSWORD")

	yaml := strings.Replace(validYAML, "password: secret",
		"password: ${EMBEDFEED_TEST_PASSWORD}", 1)

	cfg, err := LoadFromBytes([]byte(yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Password != "hunter2" {
		t.Errorf("expected expanded password, got %q", cfg.Server.Password)
	}
}

func TestValidateRejectsMissingSelectors(t *testing.T) {
	yaml := `
server:
  url: https://rss.example.com
  username: alice
  password: secret
`
	_, err := LoadFromBytes([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for config without feeds or categories")
	}
	if !strings.Contains(err.Error(), "feed or category") {
		t.Errorf("unexpected error message: %v", err)
	}
}

func TestValidateRejectsMissingServer(t *testing.T) {
	yaml := `
feeds:
  - feed/12
`
	_, err := LoadFromBytes([]byte(yaml))
	if err == nil {
		t.Fatal("expected error for config without server url")
	}
}
