package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestBackoffNextDelay(t *testing.T) {
	b := backoff{maxRetries: 5, delay: 500 * time.Millisecond, maxDelay: 5 * time.Second}
	require.Equal(t, 500*time.Millisecond, b.nextDelay(0))
	require.Equal(t, time.Second, b.nextDelay(1))
	require.Equal(t, 4*time.Second, b.nextDelay(3))
	require.Equal(t, 5*time.Second, b.nextDelay(4))
}

func TestOpenSQLite(t *testing.T) {
	db, err := Open(context.Background(), Options{Driver: "sqlite", DSN: "file::memory:"})
	require.NoError(t, err)
	require.NoError(t, db.Exec("SELECT 1").Error)
}

func TestOpenUnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), Options{Driver: "oracle", DSN: "x"})
	require.Error(t, err)
}
