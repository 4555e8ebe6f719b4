// Package mongo implements storage.Client on MongoDB.
//
// Each collection maps to a MongoDB collection of the same name and each
// document's id is stored as _id. Filters, sorting and the result window are
// pushed down to the server unless the query carries full text clauses, in
// which case filtered documents are scored and windowed client-side.
package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	mongodriver "go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
	"github.com/poiesic/persimmon/storage"
)

const idField = "_id"

// Client implements storage.Client for MongoDB.
type Client struct {
	db    *mongodriver.Database
	owned *mongodriver.Client
}

var _ storage.Client = (*Client)(nil)

// New returns a Client on an existing database handle. Close does not
// disconnect the underlying driver client.
func New(db *mongodriver.Database) *Client {
	return &Client{db: db}
}

// Connect dials uri and returns a Client on database. Close disconnects.
func Connect(ctx context.Context, uri, database string) (*Client, error) {
	if database == "" {
		return nil, errors.New("database name is required")
	}
	mc, err := mongodriver.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongodb connect: %w", err)
	}
	if err := mc.Ping(ctx, nil); err != nil {
		_ = mc.Disconnect(context.Background())
		return nil, fmt.Errorf("mongodb ping: %w", err)
	}
	return &Client{db: mc.Database(database), owned: mc}, nil
}

// Close disconnects the driver client if Connect created it.
func (c *Client) Close() error {
	if c.owned == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return c.owned.Disconnect(ctx)
}

// Get retrieves a document. Returns storage.ErrNotFound if it doesn't exist.
func (c *Client) Get(ctx context.Context, collection, id string, fields []string) (*storage.Document, error) {
	opts := options.FindOne()
	if len(fields) > 0 {
		opts.SetProjection(projection(fields))
	}
	var raw bson.D
	err := c.db.Collection(collection).FindOne(ctx, bson.D{{Key: idField, Value: id}}, opts).Decode(&raw)
	if err != nil {
		if errors.Is(err, mongodriver.ErrNoDocuments) {
			return nil, storage.ErrNotFound
		}
		return nil, fmt.Errorf("mongodb get %s/%s: %w", collection, id, err)
	}
	doc, err := fromBSON(raw)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

// Put creates or replaces a document.
func (c *Client) Put(ctx context.Context, collection, id string, fields core.Attributes) error {
	doc := append(bson.D{{Key: idField, Value: id}}, toBSON(fields.Without(idField))...)
	_, err := c.db.Collection(collection).ReplaceOne(ctx, bson.D{{Key: idField, Value: id}}, doc,
		options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("mongodb put %s/%s: %w", collection, id, err)
	}
	return nil
}

// Patch sets fields on an existing document.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Patch(ctx context.Context, collection, id string, fields core.Attributes) error {
	coll := c.db.Collection(collection)
	filter := bson.D{{Key: idField, Value: id}}
	set := toBSON(fields.Without(idField))
	if len(set) == 0 {
		n, err := coll.CountDocuments(ctx, filter)
		if err != nil {
			return fmt.Errorf("mongodb patch %s/%s: %w", collection, id, err)
		}
		if n == 0 {
			return storage.ErrNotFound
		}
		return nil
	}
	res, err := coll.UpdateOne(ctx, filter, bson.D{{Key: "$set", Value: set}})
	if err != nil {
		return fmt.Errorf("mongodb patch %s/%s: %w", collection, id, err)
	}
	if res.MatchedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a document.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	res, err := c.db.Collection(collection).DeleteOne(ctx, bson.D{{Key: idField, Value: id}})
	if err != nil {
		return fmt.Errorf("mongodb delete %s/%s: %w", collection, id, err)
	}
	if res.DeletedCount == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Search runs q against a collection.
func (c *Client) Search(ctx context.Context, collection string, q query.Query) (*storage.SearchResult, error) {
	coll := c.db.Collection(collection)
	filter := Filter(q)

	if len(q.Matches()) > 0 {
		docs, err := c.find(ctx, coll, filter, options.Find().SetSort(bson.D{{Key: idField, Value: 1}}))
		if err != nil {
			return nil, fmt.Errorf("mongodb search %s: %w", collection, err)
		}
		return storage.Evaluate(q, docs), nil
	}

	total, err := coll.CountDocuments(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("mongodb count %s: %w", collection, err)
	}
	opts := options.Find().SetSort(Sort(q))
	offset, limit := q.Window()
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if fields := q.Fields(); len(fields) > 0 {
		opts.SetProjection(projection(fields))
	}
	docs, err := c.find(ctx, coll, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("mongodb search %s: %w", collection, err)
	}

	ranked := q.Ranked()
	res := &storage.SearchResult{Hits: make([]storage.Hit, len(docs)), Total: total}
	for i, d := range docs {
		res.Hits[i] = storage.Hit{Document: d, Scored: ranked}
		if ranked {
			res.Hits[i].Score = 1
		}
	}
	return res, nil
}

func (c *Client) find(ctx context.Context, coll *mongodriver.Collection, filter bson.D, opts *options.FindOptionsBuilder) ([]storage.Document, error) {
	cursor, err := coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer func() { _ = cursor.Close(ctx) }()

	var docs []storage.Document
	for cursor.Next(ctx) {
		var raw bson.D
		if err := cursor.Decode(&raw); err != nil {
			return nil, err
		}
		doc, err := fromBSON(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, doc)
	}
	return docs, cursor.Err()
}

// Filter translates the filter predicates of q into a MongoDB filter.
// Predicates are joined with $and so repeated fields don't overwrite each
// other.
func Filter(q query.Query) bson.D {
	var clauses bson.A
	for _, f := range q.Filters() {
		var cond any
		switch f.Op {
		case query.Eq:
			cond = toBSONValue(f.Value)
		case query.Ne:
			cond = bson.D{{Key: "$ne", Value: toBSONValue(f.Value)}}
		case query.Gt:
			cond = bson.D{{Key: "$gt", Value: toBSONValue(f.Value)}}
		case query.Gte:
			cond = bson.D{{Key: "$gte", Value: toBSONValue(f.Value)}}
		case query.Lt:
			cond = bson.D{{Key: "$lt", Value: toBSONValue(f.Value)}}
		case query.Lte:
			cond = bson.D{{Key: "$lte", Value: toBSONValue(f.Value)}}
		case query.In:
			cond = bson.D{{Key: "$in", Value: toBSONValue(f.Value)}}
		case query.Exists:
			cond = bson.D{{Key: "$exists", Value: true}, {Key: "$nin", Value: bson.A{nil, bson.A{}}}}
		case query.Prefix:
			cond = bson.D{{Key: "$regex", Value: "^" + regexp.QuoteMeta(f.Value.Str())}}
		default:
			continue
		}
		clauses = append(clauses, bson.D{{Key: f.Field, Value: cond}})
	}
	if len(clauses) == 0 {
		return bson.D{}
	}
	return bson.D{{Key: "$and", Value: clauses}}
}

// Sort translates the sort keys of q, ending with _id so the order is total.
func Sort(q query.Query) bson.D {
	sort := bson.D{}
	for _, s := range q.Sorts() {
		dir := 1
		if s.Direction == query.Desc {
			dir = -1
		}
		sort = append(sort, bson.E{Key: s.Field, Value: dir})
	}
	return append(sort, bson.E{Key: idField, Value: 1})
}

func projection(fields []string) bson.D {
	p := make(bson.D, 0, len(fields))
	for _, f := range fields {
		p = append(p, bson.E{Key: f, Value: 1})
	}
	return p
}
