package services_test

import (
	"testing"

	"feedcast-pipeline/internal/services"
)

func TestReputationKnownSources(t *testing.T) {
	reputation := newTestReputation(t, 4.0)

	if got := reputation.Reputation("Reuters"); got != 9.5 {
		t.Errorf("Expected Reuters reputation 9.5, got %v", got)
	}
	if got := reputation.Reputation("TECHCRUNCH"); got != 7.0 {
		t.Errorf("Expected case-insensitive lookup, got %v", got)
	}
}

func TestReputationUnknownSourceGetsDefault(t *testing.T) {
	reputation := newTestReputation(t, 4.0)

	if got := reputation.Reputation("random neighborhood blog"); got != 4.0 {
		t.Errorf("Expected default reputation 4.0, got %v", got)
	}
	if got := reputation.Reputation(""); got != 4.0 {
		t.Errorf("Expected default for empty name, got %v", got)
	}
}

func TestReputationFallsBackToDomain(t *testing.T) {
	reputation := newTestReputation(t, 4.0)

	if got := reputation.Reputation("https://www.techcrunch.com/2026/story"); got != 7.0 {
		t.Errorf("Expected URL lookup to resolve techcrunch, got %v", got)
	}
}

func TestPublicationFromURL(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{"https://www.techcrunch.com/2026/story", "techcrunch"},
		{"https://m.engadget.com/story", "engadget"},
		{"http://arstechnica.com:8080/x", "arstechnica"},
		{"reuters.com", "reuters"},
		{"plainname", "plainname"},
		{"", ""},
	}

	for _, tc := range cases {
		if got := services.PublicationFromURL(tc.raw); got != tc.want {
			t.Errorf("PublicationFromURL(%q) = %q, want %q", tc.raw, got, tc.want)
		}
	}
}
