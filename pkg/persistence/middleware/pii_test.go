package middleware_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/persistence/middleware"
)

func newPII(t *testing.T, key []byte) middleware.Middleware {
	t.Helper()
	mw, err := middleware.NewPIIMiddleware(key)
	if err != nil {
		t.Fatalf("NewPIIMiddleware failed: %v", err)
	}
	return mw
}

func TestPIIMiddleware_SealsAnswers(t *testing.T) {
	underlyingStore := NewMockStore()
	secureStore := newPII(t, generateKey(t))(underlyingStore)

	ctx := context.Background()
	userID := "pii-user"
	s := domain.NewSession(userID, domain.StepAwaitingNationalID)
	s.Name = "Ana Souza"

	if err := secureStore.Save(ctx, userID, s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// Immutability check
	if s.Name != "Ana Souza" {
		t.Error("Middleware modified original session in memory!")
	}

	raw := underlyingStore.data[userID]
	if strings.Contains(raw.Name, "Ana") {
		t.Errorf("Expected sealed name at rest, got %q", raw.Name)
	}
	if raw.Step != domain.StepAwaitingNationalID {
		t.Errorf("Expected step to stay readable, got %q", raw.Step)
	}

	loaded, err := secureStore.Load(ctx, userID)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "Ana Souza" {
		t.Errorf("Expected name to round trip, got %q", loaded.Name)
	}
}

func TestPIIMiddleware_SessionsWithoutAnswersPassThrough(t *testing.T) {
	underlyingStore := NewMockStore()
	secureStore := newPII(t, nil)(underlyingStore)

	ctx := context.Background()
	s := domain.NewSession("u", domain.StepAwaitingDocuments)
	s.CountryName = "Canada"
	if err := secureStore.Save(ctx, "u", s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if underlyingStore.data["u"] != s {
		t.Error("Expected the session to reach the store as given")
	}
}

func TestPIIMiddleware_ForeignKeyDropsSession(t *testing.T) {
	underlyingStore := NewMockStore()
	ctx := context.Background()

	s := domain.NewSession("u", domain.StepAwaitingNationalID)
	s.Name = "Ana Souza"
	if err := newPII(t, generateKey(t))(underlyingStore).Save(ctx, "u", s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// A restarted process without a configured key holds a different one.
	_, err := newPII(t, nil)(underlyingStore).Load(ctx, "u")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestPIIMiddleware_RejectsPlainAnswers(t *testing.T) {
	underlyingStore := NewMockStore()
	ctx := context.Background()

	s := domain.NewSession("u", domain.StepAwaitingNationalID)
	s.Name = "Ana Souza"
	underlyingStore.data["u"] = s

	_, err := newPII(t, generateKey(t))(underlyingStore).Load(ctx, "u")
	if !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestPIIMiddleware_InvalidKey(t *testing.T) {
	if _, err := middleware.NewPIIMiddleware([]byte("short")); !errors.Is(err, middleware.ErrInvalidKey) {
		t.Errorf("Expected ErrInvalidKey, got %v", err)
	}
}

func TestChain_Order(t *testing.T) {
	underlyingStore := NewMockStore()
	enc, err := middleware.NewEncryptionMiddleware(middleware.EncryptionConfig{ActiveKey: generateKey(t)})
	if err != nil {
		t.Fatal(err)
	}
	store := middleware.Chain(underlyingStore, newPII(t, nil), enc)

	ctx := context.Background()
	s := domain.NewSession("u", domain.StepAwaitingNationalID)
	s.Name = "Ana Souza"
	if err := store.Save(ctx, "u", s); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// PII runs first, then the sealed copy goes into the envelope.
	if underlyingStore.data["u"].Envelope == "" {
		t.Error("Expected backend to hold an envelope")
	}
	loaded, err := store.Load(ctx, "u")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Name != "Ana Souza" {
		t.Errorf("Expected name back through both layers, got %q", loaded.Name)
	}
}
