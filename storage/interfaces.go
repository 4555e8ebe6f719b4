package storage

import (
	"context"

	"github.com/poiesic/persimmon/collection"
	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
)

// Repository maps Storable models onto documents held by a Client.
// Implementations must be safe for concurrent use.
type Repository interface {
	// Instantiate returns an empty, non-existing instance of class.
	Instantiate(class core.Class) (core.Storable, error)

	// Find loads the document with the given id. With columns, only those
	// fields are hydrated; the primary key is always set.
	// Returns ErrNotFound if the document doesn't exist.
	Find(ctx context.Context, id any, class core.Class, columns ...string) (core.Storable, error)

	// All runs q against the collection bound to class. Items are returned in
	// store order, each annotated with its position and, for ranked queries,
	// its score. No partial collection is returned on failure.
	All(ctx context.Context, q query.Builder, class core.Class, opts ...ListOption) (*collection.Collection, error)

	// Insert stores the full attribute set of model, replacing any document
	// with the same id.
	// Returns core.ErrValidation if the primary key is missing or empty.
	Insert(ctx context.Context, model core.Storable) error

	// Update writes only the fields currently loaded in model. Stored fields
	// the model doesn't hold are left untouched.
	// Returns ErrNotFound if the document doesn't exist.
	Update(ctx context.Context, model core.Storable) error

	// Save inserts model if it has not been stored yet, otherwise updates
	// it. When fields are given, an update writes only those fields.
	Save(ctx context.Context, model core.Storable, fields ...string) error

	// Delete removes the document with the given id.
	// Returns ErrNotFound if the document doesn't exist.
	Delete(ctx context.Context, id any, class core.Class) error

	// DeleteModel removes the document backing model and marks it as no
	// longer existing.
	DeleteModel(ctx context.Context, model core.Storable) error
}

// Client is the document store a Repository talks to. Backends live in the
// subpackages of storage.
//
// Clients return ErrNotFound for missing documents. Search results that are
// neither sorted nor ranked come back in ascending id order.
type Client interface {
	// Get returns a document. With fields, only those fields are returned.
	Get(ctx context.Context, collection, id string, fields []string) (*Document, error)

	// Put creates or replaces a document.
	Put(ctx context.Context, collection, id string, fields core.Attributes) error

	// Patch merges fields into an existing document.
	Patch(ctx context.Context, collection, id string, fields core.Attributes) error

	// Delete removes a document.
	Delete(ctx context.Context, collection, id string) error

	// Search runs q against a collection.
	Search(ctx context.Context, collection string, q query.Query) (*SearchResult, error)

	// Close releases the client's resources.
	Close() error
}

// Document is a stored document as returned by a Client.
type Document struct {
	ID     string
	Fields core.Attributes
}

// Hit is a single search result.
type Hit struct {
	Document
	Score  float64
	Scored bool
}

// SearchResult is the raw response of Client.Search.
type SearchResult struct {
	Hits []Hit
	// Total is the number of documents matched before the window was applied.
	Total int64
}

func (r *SearchResult) clone() *SearchResult {
	out := &SearchResult{Hits: make([]Hit, len(r.Hits)), Total: r.Total}
	for i, h := range r.Hits {
		h.Fields = h.Fields.Clone()
		out.Hits[i] = h
	}
	return out
}

// Evaluate runs q in memory over docs. Backends without a native query
// engine use it for Search.
func Evaluate(q query.Query, docs []Document) *SearchResult {
	records := make([]query.Record, len(docs))
	for i, d := range docs {
		records[i] = query.Record{ID: d.ID, Fields: d.Fields}
	}
	res := query.Evaluate(q, records)
	out := &SearchResult{Hits: make([]Hit, len(res.Hits)), Total: res.Total}
	for i, h := range res.Hits {
		out.Hits[i] = Hit{
			Document: Document{ID: h.ID, Fields: h.Fields},
			Score:    h.Score,
			Scored:   res.Ranked,
		}
	}
	return out
}

type listConfig struct {
	columns []string
	raw     func(*SearchResult)
}

// ListOption configures a call to Repository.All.
type ListOption func(*listConfig)

// WithColumns overrides the query's field selection.
func WithColumns(columns ...string) ListOption {
	return func(c *listConfig) {
		c.columns = columns
	}
}

// WithRawResult registers a callback that receives a copy of the raw search
// response before it is mapped to models.
func WithRawResult(fn func(*SearchResult)) ListOption {
	return func(c *listConfig) {
		c.raw = fn
	}
}
