// Package sqlite implements storage.Client on SQLite.
//
// All collections share one table:
//
//	documents(collection, id, data)  PRIMARY KEY (collection, id)
//
// data holds the mus-encoded attribute set. Queries are evaluated in memory
// over the rows of a collection.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
	"github.com/poiesic/persimmon/storage"
)

// Client implements storage.Client for SQLite.
type Client struct {
	db     *sql.DB
	closed atomic.Bool
}

var _ storage.Client = (*Client)(nil)

// Open opens or creates the database file at dbPath.
func Open(dbPath string) (*Client, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS documents (
		collection TEXT NOT NULL,
		id TEXT NOT NULL,
		data BLOB NOT NULL,
		PRIMARY KEY (collection, id)
	)`); err != nil {
		db.Close()
		return nil, err
	}
	return &Client{db: db}, nil
}

// Close closes the database.
func (c *Client) Close() error {
	if c.closed.Swap(true) {
		return nil
	}
	return c.db.Close()
}

func (c *Client) check() error {
	if c.closed.Load() {
		return storage.ErrStorageClosed
	}
	return nil
}

// Get retrieves a document. Returns storage.ErrNotFound if it doesn't exist.
func (c *Client) Get(ctx context.Context, collection, id string, fields []string) (*storage.Document, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	attrs, err := readDocument(ctx, c.db, collection, id)
	if err != nil {
		return nil, err
	}
	if len(fields) > 0 {
		attrs = query.Project(attrs, fields...)
	}
	return &storage.Document{ID: id, Fields: attrs}, nil
}

// Put creates or replaces a document.
func (c *Client) Put(ctx context.Context, collection, id string, fields core.Attributes) error {
	if err := c.check(); err != nil {
		return err
	}
	_, err := c.db.ExecContext(ctx,
		`INSERT INTO documents (collection, id, data) VALUES (?, ?, ?)
		 ON CONFLICT(collection, id) DO UPDATE SET data = excluded.data`,
		collection, id, storage.MarshalAttributes(fields),
	)
	return err
}

// Patch merges fields into an existing document inside a transaction.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Patch(ctx context.Context, collection, id string, fields core.Attributes) error {
	if err := c.check(); err != nil {
		return err
	}
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	attrs, err := readDocument(ctx, tx, collection, id)
	if err != nil {
		return err
	}
	attrs.Merge(fields)
	if _, err := tx.ExecContext(ctx,
		"UPDATE documents SET data = ? WHERE collection = ? AND id = ?",
		storage.MarshalAttributes(attrs), collection, id,
	); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrTransactionFailed, err)
	}
	return nil
}

// Delete removes a document.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	if err := c.check(); err != nil {
		return err
	}
	res, err := c.db.ExecContext(ctx,
		"DELETE FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Search loads the collection in id order and evaluates q in memory.
func (c *Client) Search(ctx context.Context, collection string, q query.Query) (*storage.SearchResult, error) {
	if err := c.check(); err != nil {
		return nil, err
	}
	rows, err := c.db.QueryContext(ctx,
		"SELECT id, data FROM documents WHERE collection = ? ORDER BY id",
		collection,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var docs []storage.Document
	for rows.Next() {
		var id string
		var data []byte
		if err := rows.Scan(&id, &data); err != nil {
			return nil, err
		}
		attrs, err := storage.UnmarshalAttributes(data)
		if err != nil {
			return nil, fmt.Errorf("document %s: %w", id, err)
		}
		docs = append(docs, storage.Document{ID: id, Fields: attrs})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return storage.Evaluate(q, docs), nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func readDocument(ctx context.Context, db queryer, collection, id string) (core.Attributes, error) {
	var data []byte
	err := db.QueryRowContext(ctx,
		"SELECT data FROM documents WHERE collection = ? AND id = ?",
		collection, id,
	).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Attributes{}, storage.ErrNotFound
	}
	if err != nil {
		return core.Attributes{}, err
	}
	return storage.UnmarshalAttributes(data)
}
