package auth

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// testAPIKey is the raw API key used in tests. Must start with "wsk_"
// and be >= 8 chars.
const testAPIKey = "wsk_test_valid_key_1234567890abcdef"

// testHash returns a bcrypt hash of testAPIKey using MinCost (fast for tests).
func testHash(t *testing.T) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(testAPIKey), bcrypt.MinCost)
	if err != nil {
		t.Fatalf("failed to generate bcrypt hash: %v", err)
	}
	return string(hash)
}

// mockStore implements ClientStore for testing.
type mockStore struct {
	row       *clientRow
	err       error
	callCount atomic.Int32
}

func (m *mockStore) LookupByPrefix(_ context.Context, _ string) (*clientRow, error) {
	m.callCount.Add(1)
	if m.err != nil {
		return nil, m.err
	}
	return m.row, nil
}

func TestPostgresAuth_CacheMiss_ValidKey(t *testing.T) {
	store := &mockStore{
		row: &clientRow{
			ClientID:   "cli_abc",
			Name:       "trading-bot",
			APIKeyHash: testHash(t),
			Role:       "agent",
		},
	}
	cache := NewAuthCache(1 * time.Minute)
	a := newPostgresAuthenticatorWithStore(store, cache, zap.NewNop())

	client, err := a.Authenticate(context.Background(), testAPIKey)
	if err != nil {
		t.Fatalf("expected no error, got: %v", err)
	}
	if client.ClientID != "cli_abc" {
		t.Errorf("expected client ID cli_abc, got %s", client.ClientID)
	}
	if client.Role != "agent" {
		t.Errorf("expected agent role, got %s", client.Role)
	}
	if store.callCount.Load() != 1 {
		t.Errorf("expected 1 DB call, got %d", store.callCount.Load())
	}
}

func TestPostgresAuth_CacheHit_NoDBCall(t *testing.T) {
	store := &mockStore{
		row: &clientRow{
			ClientID:   "cli_abc",
			APIKeyHash: testHash(t),
			Role:       "reviewer",
		},
	}
	cache := NewAuthCache(1 * time.Minute)
	a := newPostgresAuthenticatorWithStore(store, cache, zap.NewNop())

	// First call — cache miss, hits DB
	if _, err := a.Authenticate(context.Background(), testAPIKey); err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	if store.callCount.Load() != 1 {
		t.Fatalf("expected 1 DB call after first auth, got %d", store.callCount.Load())
	}

	// Second call — cache hit, no DB call
	client, err := a.Authenticate(context.Background(), testAPIKey)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}
	if store.callCount.Load() != 1 {
		t.Errorf("expected still 1 DB call (cache hit), got %d", store.callCount.Load())
	}
	if client.ClientID != "cli_abc" {
		t.Errorf("expected cli_abc from cache, got %s", client.ClientID)
	}
}

func TestPostgresAuth_WrongKey_BcryptMismatch(t *testing.T) {
	store := &mockStore{
		row: &clientRow{
			ClientID:   "cli_abc",
			APIKeyHash: testHash(t),
		},
	}
	cache := NewAuthCache(1 * time.Minute)
	a := newPostgresAuthenticatorWithStore(store, cache, zap.NewNop())

	_, err := a.Authenticate(context.Background(), "wsk_test_wrong_key_000000000000000")
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey, got: %v", err)
	}
}

func TestPostgresAuth_UnknownPrefix(t *testing.T) {
	store := &mockStore{err: ErrInvalidAPIKey}
	cache := NewAuthCache(1 * time.Minute)
	a := newPostgresAuthenticatorWithStore(store, cache, zap.NewNop())

	_, err := a.Authenticate(context.Background(), testAPIKey)
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey, got: %v", err)
	}
}

func TestPostgresAuth_DBError_Unavailable(t *testing.T) {
	store := &mockStore{err: errors.New("connection refused")}
	cache := NewAuthCache(1 * time.Minute)
	a := newPostgresAuthenticatorWithStore(store, cache, zap.NewNop())

	_, err := a.Authenticate(context.Background(), testAPIKey)
	if !errors.Is(err, ErrAuthUnavailable) {
		t.Fatalf("expected ErrAuthUnavailable, got: %v", err)
	}
}

func TestPostgresAuth_ShortKeyRejected(t *testing.T) {
	store := &mockStore{}
	cache := NewAuthCache(1 * time.Minute)
	a := newPostgresAuthenticatorWithStore(store, cache, zap.NewNop())

	_, err := a.Authenticate(context.Background(), "wsk_a")
	if !errors.Is(err, ErrInvalidAPIKey) {
		t.Fatalf("expected ErrInvalidAPIKey for short key, got: %v", err)
	}
	if store.callCount.Load() != 0 {
		t.Error("short key must be rejected before any DB call")
	}
}
