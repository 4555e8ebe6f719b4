package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/storage"
	"github.com/poiesic/persimmon/storage/storetest"
)

func TestClient_Conformance(t *testing.T) {
	client, err := NewMemoryClient()
	require.NoError(t, err)
	defer client.Close()

	storetest.Run(t, client)
}

func TestClient_Persistence(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	client, err := Open(dir)
	require.NoError(t, err)
	require.NoError(t, client.Put(ctx, "items", "1", core.MustAttributes("id", 1, "name", "kept")))
	require.NoError(t, client.Close())

	client, err = Open(dir)
	require.NoError(t, err)
	defer client.Close()

	doc, err := client.Get(ctx, "items", "1", nil)
	require.NoError(t, err)
	assert.Equal(t, "kept", doc.Fields.Value("name").Str())
}

func TestClient_Closed(t *testing.T) {
	client, err := NewMemoryClient()
	require.NoError(t, err)
	require.NoError(t, client.Close())
	require.NoError(t, client.Close(), "close is idempotent")

	_, err = client.Get(context.Background(), "items", "1", nil)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
