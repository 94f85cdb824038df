package store

import (
	"strings"
	"testing"

	"golang.org/x/crypto/bcrypt"
)

func TestGenerateAPIKey(t *testing.T) {
	fullKey, hash, prefix, err := GenerateAPIKey()
	if err != nil {
		t.Fatalf("GenerateAPIKey: %v", err)
	}

	if !strings.HasPrefix(fullKey, "wsk_") {
		t.Fatalf("key must carry the wsk_ prefix, got %q", fullKey[:8])
	}
	if len(fullKey) != 68 {
		t.Fatalf("expected 68-char key, got %d", len(fullKey))
	}
	if prefix != fullKey[:8] {
		t.Fatalf("prefix must be the first 8 chars, got %q", prefix)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(fullKey)); err != nil {
		t.Fatalf("hash must verify against the full key: %v", err)
	}
}

func TestGenerateAPIKey_Unique(t *testing.T) {
	a, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	b, _, _, err := GenerateAPIKey()
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Fatal("consecutive keys must differ")
	}
}
