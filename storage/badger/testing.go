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


package badger

import (
	"log/slog"
)

type clientConfig struct {
	inMemory bool
	logger   *slog.Logger
}

// Option configures Open.
type Option func(*clientConfig)

// InMemory keeps all data in memory. The path passed to Open is ignored.
func InMemory() Option {
	return func(c *clientConfig) { c.inMemory = true }
}

// WithLogger routes BadgerDB's log output to logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *clientConfig) { c.logger = logger }
}

// NewMemoryClient creates an in-memory client for testing.
// Caller must close the client when done.
func NewMemoryClient() (*Client, error) {
	return Open("", InMemory())
}
