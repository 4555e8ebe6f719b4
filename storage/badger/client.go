package badger

import (
	"context"
	"errors"

	"github.com/dgraph-io/badger/v4"
	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
	"github.com/poiesic/persimmon/storage"
)

// Client implements storage.Client for BadgerDB. Documents are stored as
// mus-encoded attribute sets under one key per document.
type Client struct {
	backend *Backend
}

var _ storage.Client = (*Client)(nil)

// NewClient creates a new Client on an open backend. The client owns the
// backend and closes it on Close.
func NewClient(backend *Backend) *Client {
	return &Client{backend: backend}
}

// Open opens a BadgerDB database at path and returns a client for it.
func Open(path string, opts ...Option) (*Client, error) {
	cfg := clientConfig{}
	for _, opt := range opts {
		opt(&cfg)
	}
	backend, err := OpenBackend(path, cfg.inMemory, cfg.logger)
	if err != nil {
		return nil, err
	}
	return NewClient(backend), nil
}

// Close closes the underlying backend.
func (c *Client) Close() error {
	if c.backend.IsClosed() {
		return nil
	}
	return c.backend.Close()
}

// Get retrieves a document. Returns storage.ErrNotFound if it doesn't exist.
func (c *Client) Get(ctx context.Context, collection, id string, fields []string) (*storage.Document, error) {
	var doc *storage.Document
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		attrs, err := readDocument(tx, makeDocumentKey(collection, id))
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			attrs = query.Project(attrs, fields...)
		}
		doc = &storage.Document{ID: id, Fields: attrs}
		return nil
	}, false)
	return doc, err
}

// Put creates or replaces a document.
func (c *Client) Put(ctx context.Context, collection, id string, fields core.Attributes) error {
	return c.backend.WithTx(func(tx *badger.Txn) error {
		if err := tx.Set(makeDocumentKey(collection, id), storage.MarshalAttributes(fields)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Patch merges fields into an existing document.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Patch(ctx context.Context, collection, id string, fields core.Attributes) error {
	key := makeDocumentKey(collection, id)
	return c.backend.WithTx(func(tx *badger.Txn) error {
		attrs, err := readDocument(tx, key)
		if err != nil {
			return err
		}
		attrs.Merge(fields)
		if err := tx.Set(key, storage.MarshalAttributes(attrs)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Delete removes a document.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	key := makeDocumentKey(collection, id)
	return c.backend.WithTx(func(tx *badger.Txn) error {
		if _, err := tx.Get(key); err != nil {
			if errors.Is(err, badger.ErrKeyNotFound) {
				return storage.ErrNotFound
			}
			return err
		}
		if err := tx.Delete(key); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Search scans the collection and evaluates q in memory.
func (c *Client) Search(ctx context.Context, collection string, q query.Query) (*storage.SearchResult, error) {
	var docs []storage.Document
	err := c.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makeCollectionPrefix(collection)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			item := iter.Item()
			var attrs core.Attributes
			err := item.Value(func(val []byte) error {
				var err error
				attrs, err = storage.UnmarshalAttributes(val)
				return err
			})
			if err != nil {
				return err
			}
			docs = append(docs, storage.Document{ID: documentID(collection, item.Key()), Fields: attrs})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}
	return storage.Evaluate(q, docs), nil
}

// readDocument reads and decodes a document.
// Returns storage.ErrNotFound if the key doesn't exist.
func readDocument(tx *badger.Txn, key []byte) (core.Attributes, error) {
	item, err := tx.Get(key)
	if err != nil {
		if errors.Is(err, badger.ErrKeyNotFound) {
			return core.Attributes{}, storage.ErrNotFound
		}
		return core.Attributes{}, err
	}
	var attrs core.Attributes
	err = item.Value(func(val []byte) error {
		var err error
		attrs, err = storage.UnmarshalAttributes(val)
		return err
	})
	return attrs, err
}
