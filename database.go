// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package persimmon

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/poiesic/persimmon/config"
	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/ingest"
	"github.com/poiesic/persimmon/storage"
	"github.com/poiesic/persimmon/storage/badger"
	"github.com/poiesic/persimmon/storage/bolt"
	"github.com/poiesic/persimmon/storage/mongo"
	"github.com/poiesic/persimmon/storage/redis"
	"github.com/poiesic/persimmon/storage/sqlite"
)

// Database bundles a storage client and the repository on top of it.
type Database struct {
	cfg    *config.Config
	client storage.Client
	repo   storage.Repository
	logger *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	logger   *slog.Logger
	repoOpts []storage.Option
}

// WithLogger sets the logger used by the database, its repository and the
// badger backend.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// WithRepositoryOptions passes options through to storage.NewRepository.
func WithRepositoryOptions(opts ...storage.Option) DatabaseOption {
	return func(o *databaseOptions) {
		o.repoOpts = append(o.repoOpts, opts...)
	}
}

// Open validates cfg, connects the configured backend and builds a
// repository on it.
func Open(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}
	if options.logger == nil {
		options.logger = slog.Default()
	}

	client, err := OpenClient(ctx, cfg.Storage, options.logger)
	if err != nil {
		return nil, err
	}

	repoOpts := append([]storage.Option{storage.WithLogger(options.logger)}, options.repoOpts...)
	repo, err := storage.NewRepository(client, repoOpts...)
	if err != nil {
		client.Close()
		return nil, err
	}

	options.logger.Debug("database opened", "backend", cfg.Storage.Backend)
	return &Database{
		cfg:    cfg,
		client: client,
		repo:   repo,
		logger: options.logger,
	}, nil
}

// OpenClient connects the storage backend described by sc.
func OpenClient(ctx context.Context, sc config.StorageConfig, logger *slog.Logger) (storage.Client, error) {
	var (
		client storage.Client
		err    error
	)
	switch sc.Backend {
	case config.BackendBadger:
		opts := []badger.Option{badger.WithLogger(logger)}
		if sc.InMemory {
			opts = append(opts, badger.InMemory())
		}
		client, err = openAs(badger.Open(sc.Path, opts...))
	case config.BackendBolt:
		client, err = openAs(bolt.Open(sc.Path))
	case config.BackendSQLite:
		client, err = openAs(sqlite.Open(sc.Path))
	case config.BackendMongo:
		client, err = openAs(mongo.Connect(ctx, sc.URI, sc.Database))
	case config.BackendRedis:
		client, err = openAs(redis.Connect(ctx, sc.URI, redis.WithNamespace(sc.Namespace)))
	default:
		err = fmt.Errorf("unknown backend %q", sc.Backend)
	}
	if err != nil {
		return nil, fmt.Errorf("open %s backend: %w", sc.Backend, err)
	}
	return client, nil
}

// openAs keeps a failed open from producing a non-nil interface holding a
// nil pointer.
func openAs[C storage.Client](c C, err error) (storage.Client, error) {
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Close closes the storage client.
func (db *Database) Close() error {
	if err := db.client.Close(); err != nil {
		db.logger.Error("error closing storage client", "err", err)
		return err
	}
	return nil
}

// Repository returns the repository.
func (db *Database) Repository() storage.Repository {
	return db.repo
}

// Client returns the raw storage client.
func (db *Database) Client() storage.Client {
	return db.client
}

// Config returns the validated configuration the database was opened with.
func (db *Database) Config() *config.Config {
	return db.cfg
}

// NewLoader creates a bulk loader for class. The configured import workers
// and the database logger are applied before opts.
func (db *Database) NewLoader(class core.Class, opts ...ingest.Option) (*ingest.Loader, error) {
	base := []ingest.Option{
		ingest.WithPoolSize(db.cfg.Import.Workers),
		ingest.WithLogger(db.logger),
	}
	return ingest.NewLoader(db.repo, class, append(base, opts...)...)
}
