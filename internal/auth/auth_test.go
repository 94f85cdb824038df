package auth

import (
	"context"
	"testing"
)

func TestStaticAuth_ValidKey(t *testing.T) {
	a := NewStaticAuthenticator()

	client, err := a.Authenticate(context.Background(), "wsk_local_dev_key")
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if client.Role != "reviewer" {
		t.Errorf("expected reviewer role, got %s", client.Role)
	}
}

func TestStaticAuth_MissingKey(t *testing.T) {
	a := NewStaticAuthenticator()

	if _, err := a.Authenticate(context.Background(), ""); err != ErrMissingAPIKey {
		t.Fatalf("expected ErrMissingAPIKey, got: %v", err)
	}
}

func TestStaticAuth_WrongPrefix(t *testing.T) {
	a := NewStaticAuthenticator()

	if _, err := a.Authenticate(context.Background(), "tsk_wrong_scheme"); err != ErrInvalidAPIKey {
		t.Fatalf("expected ErrInvalidAPIKey, got: %v", err)
	}
}
