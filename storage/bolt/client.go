// Package bolt implements storage.Client on bbolt. Each collection is a
// bucket; documents are mus-encoded attribute sets keyed by id.
package bolt

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.etcd.io/bbolt"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
	"github.com/poiesic/persimmon/storage"
)

// Client implements storage.Client for bbolt.
type Client struct {
	db     *bbolt.DB
	closed atomic.Bool
}

var _ storage.Client = (*Client)(nil)

// Open opens or creates a bbolt database file at path.
func Open(path string) (*Client, error) {
	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return &Client{db: db}, nil
}

// Close closes the database file.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.db.Close()
}

func (c *Client) view(fn func(tx *bbolt.Tx) error) error {
	if c.closed.Load() {
		return storage.ErrStorageClosed
	}
	return c.db.View(fn)
}

func (c *Client) update(fn func(tx *bbolt.Tx) error) error {
	if c.closed.Load() {
		return storage.ErrStorageClosed
	}
	return c.db.Update(fn)
}

// Get retrieves a document. Returns storage.ErrNotFound if it doesn't exist.
func (c *Client) Get(ctx context.Context, collection, id string, fields []string) (*storage.Document, error) {
	var doc *storage.Document
	err := c.view(func(tx *bbolt.Tx) error {
		attrs, err := readDocument(tx.Bucket([]byte(collection)), id)
		if err != nil {
			return err
		}
		if len(fields) > 0 {
			attrs = query.Project(attrs, fields...)
		}
		doc = &storage.Document{ID: id, Fields: attrs}
		return nil
	})
	return doc, err
}

// Put creates or replaces a document, creating the collection bucket on
// first use.
func (c *Client) Put(ctx context.Context, collection, id string, fields core.Attributes) error {
	return c.update(func(tx *bbolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(collection))
		if err != nil {
			return fmt.Errorf("failed to create bucket %s: %w", collection, err)
		}
		return b.Put([]byte(id), storage.MarshalAttributes(fields))
	})
}

// Patch merges fields into an existing document.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Patch(ctx context.Context, collection, id string, fields core.Attributes) error {
	return c.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		attrs, err := readDocument(b, id)
		if err != nil {
			return err
		}
		attrs.Merge(fields)
		return b.Put([]byte(id), storage.MarshalAttributes(attrs))
	})
}

// Delete removes a document.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	return c.update(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil || b.Get([]byte(id)) == nil {
			return storage.ErrNotFound
		}
		return b.Delete([]byte(id))
	})
}

// Search reads the collection bucket in key order and evaluates q in memory.
func (c *Client) Search(ctx context.Context, collection string, q query.Query) (*storage.SearchResult, error) {
	var docs []storage.Document
	err := c.view(func(tx *bbolt.Tx) error {
		b := tx.Bucket([]byte(collection))
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			attrs, err := storage.UnmarshalAttributes(v)
			if err != nil {
				return fmt.Errorf("document %s: %w", k, err)
			}
			docs = append(docs, storage.Document{ID: string(k), Fields: attrs})
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return storage.Evaluate(q, docs), nil
}

// readDocument reads and decodes a document from b, which may be nil.
func readDocument(b *bbolt.Bucket, id string) (core.Attributes, error) {
	if b == nil {
		return core.Attributes{}, storage.ErrNotFound
	}
	data := b.Get([]byte(id))
	if data == nil {
		return core.Attributes{}, storage.ErrNotFound
	}
	return storage.UnmarshalAttributes(data)
}
