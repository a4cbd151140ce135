//go:build integration

package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/youvisa/pkg/ports"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("youvisa"),
		tcpostgres.WithUsername("youvisa"),
		tcpostgres.WithPassword("youvisa"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	return dsn
}

func TestStore_Contract(t *testing.T) {
	dsn := startPostgres(t)
	ctx := context.Background()

	ports.RunTaskStoreContract(t, func(t *testing.T) ports.TaskStore {
		store, err := Open(ctx, dsn)
		require.NoError(t, err)
		t.Cleanup(func() { _ = store.Close() })

		_, err = store.db.ExecContext(ctx,
			`TRUNCATE documents, tasks, countries, users RESTART IDENTITY CASCADE`)
		require.NoError(t, err)
		return store
	})
}
