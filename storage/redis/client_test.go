package redis

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
	"github.com/poiesic/persimmon/storage"
	"github.com/poiesic/persimmon/storage/storetest"
)

var (
	testRDB   *redis.Client
	redisAddr string
	skipRedis bool
)

func TestMain(m *testing.M) {
	ctx := context.Background()
	var container testcontainers.Container

	func() {
		defer func() {
			if r := recover(); r != nil {
				skipRedis = true
			}
		}()
		var err error
		container, err = testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
			ContainerRequest: testcontainers.ContainerRequest{
				Image:        "redis:7-alpine",
				ExposedPorts: []string{"6379/tcp"},
				WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
			},
			Started: true,
		})
		if err != nil {
			skipRedis = true
			return
		}
		host, err := container.Host(ctx)
		if err != nil {
			skipRedis = true
			return
		}
		port, err := container.MappedPort(ctx, "6379")
		if err != nil {
			skipRedis = true
			return
		}
		redisAddr = fmt.Sprintf("%s:%s", host, port.Port())
		testRDB = redis.NewClient(&redis.Options{Addr: redisAddr})
		if err := testRDB.Ping(ctx).Err(); err != nil {
			skipRedis = true
		}
	}()

	code := m.Run()

	if testRDB != nil {
		_ = testRDB.Close()
	}
	if container != nil {
		_ = container.Terminate(ctx)
	}
	os.Exit(code)
}

func newClient(t *testing.T, opts ...Option) *Client {
	t.Helper()
	if skipRedis || testRDB == nil {
		t.Skip("Redis not available")
	}
	require.NoError(t, testRDB.FlushDB(context.Background()).Err())
	return New(testRDB, opts...)
}

func TestClient_Conformance(t *testing.T) {
	storetest.Run(t, newClient(t))
}

func TestClient_Namespaces(t *testing.T) {
	a := newClient(t)
	b := New(testRDB, WithNamespace("other"))
	ctx := context.Background()

	require.NoError(t, a.Put(ctx, "things", "1", core.MustAttributes("name", "a")))

	_, err := b.Get(ctx, "things", "1", nil)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	res, err := b.Search(ctx, "things", query.New())
	require.NoError(t, err)
	assert.Empty(t, res.Hits)
}

func TestClient_EmptyDocumentExists(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "things", "empty", core.Attributes{}))

	doc, err := c.Get(ctx, "things", "empty", nil)
	require.NoError(t, err)
	assert.Equal(t, 0, doc.Fields.Len())
	assert.NoError(t, c.Patch(ctx, "things", "empty", core.Attributes{}))
	assert.ErrorIs(t, c.Patch(ctx, "things", "nope", core.Attributes{}), storage.ErrNotFound)
}

func TestClient_DeleteDropsFromIndex(t *testing.T) {
	c := newClient(t)
	ctx := context.Background()

	require.NoError(t, c.Put(ctx, "things", "1", core.MustAttributes("n", 1)))
	require.NoError(t, c.Put(ctx, "things", "2", core.MustAttributes("n", 2)))
	require.NoError(t, c.Delete(ctx, "things", "1"))

	n, err := testRDB.SCard(ctx, c.indexKey("things")).Result()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestConnect(t *testing.T) {
	if skipRedis {
		t.Skip("Redis not available")
	}
	ctx := context.Background()

	_, err := Connect(ctx, "not a url")
	require.Error(t, err)

	c, err := Connect(ctx, "redis://"+redisAddr+"/1")
	require.NoError(t, err)
	require.NoError(t, c.Put(ctx, "things", "1", core.MustAttributes("n", 1)))
	require.NoError(t, c.Delete(ctx, "things", "1"))
	require.NoError(t, c.Close())
}

func TestKeys(t *testing.T) {
	c := New(nil)
	assert.Equal(t, "persimmon:doc:3:a:b:c", c.documentKey("a:b", "c"))
	assert.NotEqual(t, c.documentKey("a", "b:c"), c.documentKey("a:b", "c"))
	assert.Equal(t, "persimmon:ids:1:a", c.indexKey("a"))
}
