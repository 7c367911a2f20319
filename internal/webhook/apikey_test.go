package webhook

import (
	"strings"
	"testing"
)

func TestGenerateAPIKey(t *testing.T) {
	plaintext, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}

	if !strings.HasPrefix(plaintext, "whk_") {
		t.Fatalf("plaintext %q missing whk_ prefix", plaintext)
	}
	if len(plaintext) != 4+64 {
		t.Fatalf("plaintext length = %d", len(plaintext))
	}
	if prefix != plaintext[:12] {
		t.Fatalf("prefix = %q, want first 12 chars of %q", prefix, plaintext)
	}
	if hash != HashKey(plaintext) {
		t.Fatal("stored hash does not match HashKey of the plaintext")
	}

	second, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}
	if second == plaintext {
		t.Fatal("two generated keys collided")
	}
}

func TestHashKeyIsDeterministic(t *testing.T) {
	if HashKey("whk_abc") != HashKey("whk_abc") {
		t.Fatal("same input must hash identically")
	}
	if HashKey("whk_abc") == HashKey("whk_abd") {
		t.Fatal("different inputs must hash differently")
	}
}

func TestIsDomainAllowed(t *testing.T) {
	tests := []struct {
		name    string
		origin  string
		allowed []string
		want    bool
	}{
		{"exact match", "https://example.com", []string{"example.com"}, true},
		{"exact mismatch", "https://evil.com", []string{"example.com"}, false},
		{"wildcard subdomain", "https://forms.example.com", []string{"*.example.com"}, true},
		{"wildcard matches apex", "https://example.com", []string{"*.example.com"}, true},
		{"wildcard all", "https://anything.io", []string{"*"}, true},
		{"case insensitive", "https://Example.COM", []string{"example.com"}, true},
		{"empty origin", "", []string{"example.com"}, false},
		{"port ignored", "https://example.com:8443", []string{"example.com"}, true},
	}

	for _, tt := range tests {
		if got := isDomainAllowed(tt.origin, tt.allowed); got != tt.want {
			t.Errorf("%s: isDomainAllowed(%q, %v) = %v, want %v", tt.name, tt.origin, tt.allowed, got, tt.want)
		}
	}
}
