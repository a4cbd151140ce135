package middleware

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/aretw0/youvisa/pkg/domain"
	"github.com/aretw0/youvisa/pkg/ports"
)

const sealedPrefix = "sealed:"

type piiMiddleware struct {
	next ports.SessionStore
	key  []byte
}

// NewPIIMiddleware creates a middleware that seals the registration answers
// (name and national id) field by field before they reach the wrapped store.
// The rest of the session stays readable.
//
// A nil key makes the middleware generate one for the life of the process.
// Answers sealed by a previous process then cannot be opened, and the session
// is reported as missing so the user starts over.
func NewPIIMiddleware(key []byte) (Middleware, error) {
	if key == nil {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("failed to generate pii key: %w", err)
		}
	}
	if len(key) != 32 {
		return nil, ErrInvalidKey
	}
	return func(next ports.SessionStore) ports.SessionStore {
		return &piiMiddleware{next: next, key: key}
	}, nil
}

func (m *piiMiddleware) Save(ctx context.Context, userID string, s *domain.Session) error {
	if s.Name == "" && s.NationalID == "" {
		return m.next.Save(ctx, userID, s)
	}

	// Copy so the caller's session is left untouched.
	cloned := s.Clone()
	var err error
	if cloned.Name, err = m.seal(s.Name); err != nil {
		return fmt.Errorf("failed to seal name: %w", err)
	}
	if cloned.NationalID, err = m.seal(s.NationalID); err != nil {
		return fmt.Errorf("failed to seal national id: %w", err)
	}
	return m.next.Save(ctx, userID, cloned)
}

func (m *piiMiddleware) Load(ctx context.Context, userID string) (*domain.Session, error) {
	s, err := m.next.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if s.Name == "" && s.NationalID == "" {
		return s, nil
	}

	name, nameErr := m.open(s.Name)
	nationalID, idErr := m.open(s.NationalID)
	if nameErr != nil || idErr != nil {
		return nil, fmt.Errorf("registration answers of %s cannot be opened: %w", userID, domain.ErrSessionNotFound)
	}
	opened := s.Clone()
	opened.Name, opened.NationalID = name, nationalID
	return opened, nil
}

func (m *piiMiddleware) Delete(ctx context.Context, userID string) error {
	return m.next.Delete(ctx, userID)
}

func (m *piiMiddleware) List(ctx context.Context) ([]string, error) {
	return m.next.List(ctx)
}

func (m *piiMiddleware) seal(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	ciphertext, err := encrypt([]byte(v), m.key)
	if err != nil {
		return "", err
	}
	return sealedPrefix + base64.StdEncoding.EncodeToString(ciphertext), nil
}

// open rejects plain values: a store behind this middleware only holds sealed answers.
func (m *piiMiddleware) open(v string) (string, error) {
	if v == "" {
		return "", nil
	}
	encoded, ok := strings.CutPrefix(v, sealedPrefix)
	if !ok {
		return "", fmt.Errorf("answer is not sealed")
	}
	ciphertext, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	plain, err := decrypt(ciphertext, m.key)
	if err != nil {
		return "", err
	}
	return string(plain), nil
}
