package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/youvisa/pkg/domain"
)

// nopStore structure
type nopStore struct{}

func (nopStore) Save(ctx context.Context, userID string, s *domain.Session) error { return nil }
func (nopStore) Load(ctx context.Context, userID string) (*domain.Session, error) {
	return nil, domain.ErrSessionNotFound
}
func (nopStore) Delete(ctx context.Context, userID string) error { return nil }
func (nopStore) List(ctx context.Context) ([]string, error)      { return nil, nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		uid := fmt.Sprintf("user-%d", i)
		_ = mgr.WithLock(ctx, uid, func(ctx context.Context, tx Tx) error {
			return tx.Save(ctx, domain.NewSession(uid, domain.StepAwaitingName))
		})
		_ = mgr.Delete(ctx, uid)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory", lockCount)
	}
}
