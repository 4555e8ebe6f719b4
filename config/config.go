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


package config

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"gopkg.in/yaml.v3"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendBolt   = "bolt"
	BackendSQLite = "sqlite"
	BackendMongo  = "mongo"
	BackendRedis  = "redis"
)

// Backends lists every supported storage backend.
var Backends = []string{BackendBadger, BackendBolt, BackendSQLite, BackendMongo, BackendRedis}

var logLevels = []string{"debug", "info", "warn", "error"}

// Config holds configuration for a persimmon database.
type Config struct {
	Storage StorageConfig `yaml:"storage"`
	Import  ImportConfig  `yaml:"import"`
	Logging LoggingConfig `yaml:"logging"`
}

// StorageConfig selects and configures the document store.
type StorageConfig struct {
	// Backend is one of Backends.
	Backend string `yaml:"backend"`

	// Path is the database file or directory for embedded backends
	// (badger, bolt, sqlite).
	Path string `yaml:"path"`

	// InMemory keeps badger data in memory. Path is ignored.
	InMemory bool `yaml:"in_memory"`

	// URI is the server address for mongo (mongodb://...) and redis
	// (redis://...).
	URI string `yaml:"uri"`

	// Database is the MongoDB database name.
	Database string `yaml:"database"`

	// Namespace prefixes every Redis key.
	Namespace string `yaml:"namespace"`
}

// ImportConfig tunes bulk loading.
type ImportConfig struct {
	// Workers is the number of concurrent inserts.
	Workers int `yaml:"workers"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Option is a functional option for configuring a Config.
type Option func(*Config)

// WithBackend selects the storage backend.
func WithBackend(backend string) Option {
	return func(c *Config) {
		c.Storage.Backend = backend
	}
}

// WithPath sets the on-disk location for embedded backends.
func WithPath(path string) Option {
	return func(c *Config) {
		c.Storage.Path = path
	}
}

// WithInMemory keeps badger data in memory.
func WithInMemory() Option {
	return func(c *Config) {
		c.Storage.InMemory = true
	}
}

// WithURI sets the server address for networked backends.
func WithURI(uri string) Option {
	return func(c *Config) {
		c.Storage.URI = uri
	}
}

// WithDatabase sets the MongoDB database name.
func WithDatabase(name string) Option {
	return func(c *Config) {
		c.Storage.Database = name
	}
}

// WithNamespace sets the Redis key prefix.
func WithNamespace(ns string) Option {
	return func(c *Config) {
		c.Storage.Namespace = ns
	}
}

// WithWorkers sets the import concurrency.
func WithWorkers(n int) Option {
	return func(c *Config) {
		c.Import.Workers = n
	}
}

// WithLogLevel sets the log level.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		c.Logging.Level = level
	}
}

// DefaultConfig returns a Config for a badger database in ./persimmon.db.
func DefaultConfig() *Config {
	return &Config{
		Storage: StorageConfig{
			Backend:   BackendBadger,
			Path:      "persimmon.db",
			Database:  "persimmon",
			Namespace: "persimmon",
		},
		Import: ImportConfig{
			Workers: 8,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// New creates a Config with the default values and applies the provided
// options.
func New(opts ...Option) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Load reads a YAML file over the defaults. A missing file yields the
// defaults.
func Load(path string, opts ...Option) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	for _, opt := range opts {
		opt(cfg)
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Normalize lowercases enumerated values and expands environment variables
// in the URI.
func (c *Config) Normalize() {
	c.Storage.Backend = strings.ToLower(strings.TrimSpace(c.Storage.Backend))
	c.Storage.URI = os.ExpandEnv(c.Storage.URI)
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
}

// Validate checks that the configuration is valid and complete.
// It normalizes the configuration first.
func (c *Config) Validate() error {
	c.Normalize()

	if !slices.Contains(Backends, c.Storage.Backend) {
		return fmt.Errorf("config: unknown backend %q (want one of %s)",
			c.Storage.Backend, strings.Join(Backends, ", "))
	}
	switch c.Storage.Backend {
	case BackendBadger:
		if c.Storage.Path == "" && !c.Storage.InMemory {
			return errors.New("config: storage.path is required for badger unless in_memory is set")
		}
	case BackendBolt, BackendSQLite:
		if c.Storage.Path == "" {
			return fmt.Errorf("config: storage.path is required for %s", c.Storage.Backend)
		}
	case BackendMongo:
		if c.Storage.URI == "" {
			return errors.New("config: storage.uri is required for mongo")
		}
		if c.Storage.Database == "" {
			return errors.New("config: storage.database is required for mongo")
		}
	case BackendRedis:
		if c.Storage.URI == "" {
			return errors.New("config: storage.uri is required for redis")
		}
	}
	if c.Import.Workers < 1 {
		return errors.New("config: import.workers must be at least 1")
	}
	if !slices.Contains(logLevels, c.Logging.Level) {
		return fmt.Errorf("config: unknown log level %q", c.Logging.Level)
	}
	return nil
}
