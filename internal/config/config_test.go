package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("STORE_DRIVER", "")
	t.Setenv("THREAD_MAX_DEPTH", "")
	t.Setenv("COMMENTS_AUTO_APPROVE", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Equal(t, 3, cfg.ThreadMaxDepth)
	assert.True(t, cfg.CommentsAutoApprove)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("STORE_DRIVER", "memory")
	t.Setenv("THREAD_MAX_DEPTH", "5")
	t.Setenv("COMMENTS_AUTO_APPROVE", "false")
	t.Setenv("COUNTER_RECONCILE_INTERVAL", "90")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, StoreDriverMemory, cfg.StoreDriver)
	assert.Equal(t, 5, cfg.ThreadMaxDepth)
	assert.False(t, cfg.CommentsAutoApprove)
	assert.Equal(t, 90*time.Second, cfg.CounterReconcileInterval)
}

func TestLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("STORE_DRIVER", "mongo")
	_, err := Load()
	assert.Error(t, err)
}

func TestPostgresDSN(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://x"}
	assert.Equal(t, "postgres://x", cfg.PostgresDSN())

	cfg = &Config{PostgresHost: "db", PostgresPort: "5432", PostgresUser: "u", PostgresPassword: "p", PostgresDB: "d", PostgresSSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=d sslmode=disable", cfg.PostgresDSN())
}
