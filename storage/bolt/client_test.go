package bolt

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/storage"
	"github.com/poiesic/persimmon/storage/storetest"
)

func openTemp(t *testing.T) (*Client, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "persimmon.db")
	c, err := Open(path)
	require.NoError(t, err)
	return c, path
}

func TestClient_Conformance(t *testing.T) {
	c, _ := openTemp(t)
	defer c.Close()

	storetest.Run(t, c)
}

func TestClient_Reopen(t *testing.T) {
	ctx := context.Background()
	c, path := openTemp(t)
	require.NoError(t, c.Put(ctx, "items", "1", core.MustAttributes("id", 1, "name", "kept")))
	require.NoError(t, c.Close())

	c, err := Open(path)
	require.NoError(t, err)
	defer c.Close()

	doc, err := c.Get(ctx, "items", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, "kept", doc.Fields.Value("name").Str())
}

func TestClient_Closed(t *testing.T) {
	c, _ := openTemp(t)
	require.NoError(t, c.Close())
	require.NoError(t, c.Close())

	err := c.Put(context.Background(), "items", "1", core.MustAttributes("id", 1))
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}

func TestClient_MissingBucket(t *testing.T) {
	c, _ := openTemp(t)
	defer c.Close()
	ctx := context.Background()

	_, err := c.Get(ctx, "nothing", "1", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.ErrorIs(t, c.Patch(ctx, "nothing", "1", core.Attributes{}), storage.ErrNotFound)
	assert.ErrorIs(t, c.Delete(ctx, "nothing", "1"), storage.ErrNotFound)
}
