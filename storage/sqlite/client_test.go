package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
	"github.com/poiesic/persimmon/storage"
	"github.com/poiesic/persimmon/storage/storetest"
)

func TestClient_Conformance(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "persimmon.db"))
	require.NoError(t, err)
	defer c.Close()

	storetest.Run(t, c)
}

func TestClient_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "a", "b", "persimmon.db")
	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	ctx := context.Background()
	require.NoError(t, c.Put(ctx, "items", "1", core.MustAttributes("id", 1)))
	_, err = c.Get(ctx, "items", "1", nil)
	assert.NoError(t, err)
}

func TestClient_Closed(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "persimmon.db"))
	require.NoError(t, err)
	require.NoError(t, c.Close())

	_, err = c.Search(context.Background(), "items", query.New())
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestClient_CancelledContext(t *testing.T) {
	c, err := Open(filepath.Join(t.TempDir(), "persimmon.db"))
	require.NoError(t, err)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = c.Put(ctx, "items", "1", core.MustAttributes("id", 1))
	assert.ErrorIs(t, err, context.Canceled)
}
