// Package redis implements storage.Client on Redis.
//
// Every document is a hash whose fields hold mus-encoded values, and every
// collection keeps a set of its document ids so it can be scanned without
// KEYS or SCAN. Queries are evaluated client-side.
package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
	"github.com/poiesic/persimmon/storage"
)

// DefaultNamespace prefixes every key the client writes.
const DefaultNamespace = "persimmon"

// idField is written into every hash so that documents without fields
// still exist.
const idField = "_id"

// patchScript sets fields only when the hash already exists.
var patchScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], unpack(ARGV))
return 1
`)

// Client implements storage.Client for Redis.
type Client struct {
	rdb       redis.UniversalClient
	namespace string
	owned     bool
}

var _ storage.Client = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithNamespace sets the key prefix. Clients with different namespaces can
// share a database.
func WithNamespace(ns string) Option {
	return func(c *Client) { c.namespace = ns }
}

// New returns a Client on an existing connection. Close does not close rdb.
func New(rdb redis.UniversalClient, opts ...Option) *Client {
	c := &Client{rdb: rdb, namespace: DefaultNamespace}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect parses a redis:// URL, pings the server and returns a Client that
// closes the connection on Close.
func Connect(ctx context.Context, url string, opts ...Option) (*Client, error) {
	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(ropts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	c := New(rdb, opts...)
	c.owned = true
	return c, nil
}

// Close closes the connection if Connect opened it.
func (c *Client) Close() error {
	if !c.owned {
		return nil
	}
	return c.rdb.Close()
}

// Get retrieves a document. Returns storage.ErrNotFound if it doesn't exist.
func (c *Client) Get(ctx context.Context, collection, id string, fields []string) (*storage.Document, error) {
	key := c.documentKey(collection, id)
	if len(fields) == 0 {
		raw, err := c.rdb.HGetAll(ctx, key).Result()
		if err != nil {
			return nil, fmt.Errorf("redis get %s: %w", key, err)
		}
		if len(raw) == 0 {
			return nil, storage.ErrNotFound
		}
		attrs, err := decodeHash(raw)
		if err != nil {
			return nil, err
		}
		return &storage.Document{ID: id, Fields: attrs}, nil
	}

	// Nested paths live inside their top level field.
	names := slices.Clone(fields)
	for _, f := range fields {
		if head, _, ok := strings.Cut(f, "."); ok && !slices.Contains(names, head) {
			names = append(names, head)
		}
	}
	vals, err := c.rdb.HMGet(ctx, key, append([]string{idField}, names...)...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis get %s: %w", key, err)
	}
	if vals[0] == nil {
		return nil, storage.ErrNotFound
	}
	var attrs core.Attributes
	for i, f := range names {
		s, ok := vals[i+1].(string)
		if !ok {
			continue
		}
		v, err := storage.UnmarshalValue([]byte(s))
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f, err)
		}
		attrs.Set(f, v)
	}
	return &storage.Document{ID: id, Fields: query.Project(attrs, fields...)}, nil
}

// Put creates or replaces a document.
func (c *Client) Put(ctx context.Context, collection, id string, fields core.Attributes) error {
	key := c.documentKey(collection, id)
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, key)
		pipe.HSet(ctx, key, append([]any{idField, id}, encodeFields(fields)...)...)
		pipe.SAdd(ctx, c.indexKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put %s: %w", key, err)
	}
	return nil
}

// Patch sets fields on an existing document.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Patch(ctx context.Context, collection, id string, fields core.Attributes) error {
	key := c.documentKey(collection, id)
	if fields.Len() == 0 {
		n, err := c.rdb.Exists(ctx, key).Result()
		if err != nil {
			return fmt.Errorf("redis patch %s: %w", key, err)
		}
		if n == 0 {
			return storage.ErrNotFound
		}
		return nil
	}
	applied, err := patchScript.Run(ctx, c.rdb, []string{key}, encodeFields(fields)...).Int()
	if err != nil {
		return fmt.Errorf("redis patch %s: %w", key, err)
	}
	if applied == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Delete removes a document.
// Returns storage.ErrNotFound if the document doesn't exist.
func (c *Client) Delete(ctx context.Context, collection, id string) error {
	key := c.documentKey(collection, id)
	var del *redis.IntCmd
	_, err := c.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		del = pipe.Del(ctx, key)
		pipe.SRem(ctx, c.indexKey(collection), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete %s: %w", key, err)
	}
	if del.Val() == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// Search loads every document of the collection and evaluates q against
// them.
func (c *Client) Search(ctx context.Context, collection string, q query.Query) (*storage.SearchResult, error) {
	ids, err := c.rdb.SMembers(ctx, c.indexKey(collection)).Result()
	if err != nil {
		return nil, fmt.Errorf("redis search %s: %w", collection, err)
	}
	slices.Sort(ids)

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = c.rdb.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, c.documentKey(collection, id))
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("redis search %s: %w", collection, err)
	}

	docs := make([]storage.Document, 0, len(ids))
	for i, cmd := range cmds {
		raw := cmd.Val()
		if len(raw) == 0 {
			// Removed between SMEMBERS and HGETALL.
			continue
		}
		attrs, err := decodeHash(raw)
		if err != nil {
			return nil, err
		}
		docs = append(docs, storage.Document{ID: ids[i], Fields: attrs})
	}
	return storage.Evaluate(q, docs), nil
}

// documentKey format: ns:doc:len:collection:id
func (c *Client) documentKey(collection, id string) string {
	return fmt.Sprintf("%s:doc:%d:%s:%s", c.namespace, len(collection), collection, id)
}

// indexKey format: ns:ids:len:collection
func (c *Client) indexKey(collection string) string {
	return fmt.Sprintf("%s:ids:%d:%s", c.namespace, len(collection), collection)
}

func encodeFields(fields core.Attributes) []any {
	fields = fields.Without(idField)
	out := make([]any, 0, fields.Len()*2)
	for _, k := range fields.Keys() {
		out = append(out, k, storage.MarshalValue(fields.Value(k)))
	}
	return out
}

// decodeHash rebuilds attributes from a hash. Hash fields are unordered, so
// keys come back sorted.
func decodeHash(raw map[string]string) (core.Attributes, error) {
	keys := make([]string, 0, len(raw))
	for k := range raw {
		if k != idField {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	var attrs core.Attributes
	for _, k := range keys {
		v, err := storage.UnmarshalValue([]byte(raw[k]))
		if err != nil {
			return core.Attributes{}, fmt.Errorf("field %q: %w", k, err)
		}
		attrs.Set(k, v)
	}
	return attrs, nil
}
