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


// Package storage maps Storable models onto documents in a document store.
//
// The Repository is the only thing application code talks to. It turns
// models into attribute sets and back, and delegates every read and write to
// a Client, a small document-addressing contract implemented by the backend
// subpackages:
//
//   - badger: embedded BadgerDB (default; in-memory mode for tests)
//   - bolt: embedded bbolt, one bucket per collection
//   - sqlite: SQLite through database/sql
//   - mongo: MongoDB, with filter, sort and window push-down
//   - redis: Redis, one hash per document
//
// # Usage
//
//	client, err := badger.NewMemoryClient()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer client.Close()
//
//	repo, err := storage.NewRepository(client)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	p := core.Fill(&Product{}, core.MustAttributes("id", 1, "name", "Hammer"))
//	if err := repo.Insert(ctx, p); err != nil {
//	    log.Fatal(err)
//	}
//
//	found, err := storage.FindAs[Product](ctx, repo, 1)
//
// # Errors
//
// Missing documents surface as ErrNotFound. Every other client failure is
// wrapped in ErrStore with the original error kept in the chain. Nothing is
// retried.
//
// # Thread Safety
//
// Repository and all Client implementations are safe for concurrent use.
// Concurrent writes to the same document are last-write-wins.
//
// # Context Support
//
// All repository methods accept context.Context and pass it to the client
// unchanged. Pass context.Background() for operations without specific
// timeout requirements.
package storage
