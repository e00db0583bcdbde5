// internal/utils/sanitize_test.go
package utils

import "testing"

func TestSanitizeFeedName(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"plain", "Heavy Blog", "Heavy_Blog"},
		{"punctuation stripped", "The Quietus: Reviews!", "The_Quietus_Reviews"},
		{"hyphen kept", "post-rock weekly", "post-rock_weekly"},
		{"surrounding space trimmed", "  Bandcamp Daily  ", "Bandcamp_Daily"},
		{"only punctuation", "!!!", ""},
		{"underscores kept", "lo_fi", "lo_fi"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SanitizeFeedName(tt.input)
			if got != tt.expected {
				t.Errorf("SanitizeFeedName(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestListenedKey(t *testing.T) {
	got := ListenedKey("Heavy Blog")
	expected := "freshrss_listened_Heavy_Blog"
	if got != expected {
		t.Errorf("expected %q, got %q", expected, got)
	}
}

func TestParseLogLevel(t *testing.T) {
	if ParseLogLevel("DEBUG") != DebugLevel {
		t.Errorf("expected debug level")
	}
	if ParseLogLevel("nonsense") != InfoLevel {
		t.Errorf("unknown names should default to info")
	}
}
