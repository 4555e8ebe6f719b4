package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, "persimmon.db", cfg.Storage.Path)
	assert.Equal(t, 8, cfg.Import.Workers)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.NoError(t, cfg.Validate())
}

func TestNew(t *testing.T) {
	t.Run("with no options", func(t *testing.T) {
		assert.Equal(t, DefaultConfig(), New())
	})

	t.Run("with mongo", func(t *testing.T) {
		cfg := New(
			WithBackend(BackendMongo),
			WithURI("mongodb://localhost:27017"),
			WithDatabase("shop"),
		)

		assert.Equal(t, BackendMongo, cfg.Storage.Backend)
		assert.Equal(t, "mongodb://localhost:27017", cfg.Storage.URI)
		assert.Equal(t, "shop", cfg.Storage.Database)
	})

	t.Run("with everything else", func(t *testing.T) {
		cfg := New(
			WithPath("/tmp/x"),
			WithInMemory(),
			WithNamespace("ns"),
			WithWorkers(2),
			WithLogLevel("debug"),
		)

		assert.Equal(t, "/tmp/x", cfg.Storage.Path)
		assert.True(t, cfg.Storage.InMemory)
		assert.Equal(t, "ns", cfg.Storage.Namespace)
		assert.Equal(t, 2, cfg.Import.Workers)
		assert.Equal(t, "debug", cfg.Logging.Level)
	})
}

func TestLoad(t *testing.T) {
	t.Run("missing file yields defaults", func(t *testing.T) {
		cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("file overrides defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persimmon.yaml")
		content := `
storage:
  backend: sqlite
  path: data/docs.db
logging:
  level: debug
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0644))

		cfg, err := Load(path)
		require.NoError(t, err)
		assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
		assert.Equal(t, "data/docs.db", cfg.Storage.Path)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, 8, cfg.Import.Workers, "unset fields keep defaults")
	})

	t.Run("options apply after the file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "persimmon.yaml")
		require.NoError(t, os.WriteFile(path, []byte("import:\n  workers: 3\n"), 0644))

		cfg, err := Load(path, WithWorkers(5))
		require.NoError(t, err)
		assert.Equal(t, 5, cfg.Import.Workers)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("storage: [unclosed"), 0644))

		_, err := Load(path)
		assert.Error(t, err)
	})
}

func TestSave(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := New(WithBackend(BackendRedis), WithURI("redis://localhost:6379/0"))
	require.NoError(t, cfg.Save(path))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    []Option
		wantErr string
	}{
		{"defaults", nil, ""},
		{"backend is case insensitive", []Option{WithBackend(" BOLT ")}, ""},
		{"unknown backend", []Option{WithBackend("elasticsearch")}, "unknown backend"},
		{"badger in memory without path", []Option{WithPath(""), WithInMemory()}, ""},
		{"badger without path", []Option{WithPath("")}, "storage.path"},
		{"sqlite without path", []Option{WithBackend(BackendSQLite), WithPath("")}, "storage.path"},
		{"mongo without uri", []Option{WithBackend(BackendMongo)}, "storage.uri"},
		{"mongo without database", []Option{WithBackend(BackendMongo), WithURI("mongodb://x"), WithDatabase("")}, "storage.database"},
		{"redis without uri", []Option{WithBackend(BackendRedis)}, "storage.uri"},
		{"no workers", []Option{WithWorkers(0)}, "import.workers"},
		{"unknown log level", []Option{WithLogLevel("trace")}, "log level"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.opts...).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestNormalize_ExpandsURI(t *testing.T) {
	t.Setenv("PERSIMMON_TEST_HOST", "db.internal")
	cfg := New(WithURI("redis://${PERSIMMON_TEST_HOST}:6379"))
	cfg.Normalize()
	assert.Equal(t, "redis://db.internal:6379", cfg.Storage.URI)
}
