// Package storetest provides the conformance suite every storage.Client
// implementation must pass.
package storetest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
	"github.com/poiesic/persimmon/storage"
)

// Run runs the common client test suite against c. Each subtest uses its own
// collection, so c may be shared with other tests.
func Run(t *testing.T, c storage.Client) {
	t.Helper()
	ctx := context.Background()

	t.Run("Get missing", func(t *testing.T) {
		_, err := c.Get(ctx, "st_missing", "nope", nil)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Put and Get", func(t *testing.T) {
		seen := time.Date(2024, 5, 1, 12, 30, 0, 123456000, time.UTC)
		attrs := core.MustAttributes(
			"id", 1,
			"name", "Product 1",
			"price", 19.5,
			"active", true,
			"note", nil,
			"seen", seen,
			"tags", []string{"a", "b"},
			"dims", map[string]any{"w": 10, "unit": "cm"},
		)
		require.NoError(t, c.Put(ctx, "st_put", "1", attrs))

		doc, err := c.Get(ctx, "st_put", "1", nil)
		require.NoError(t, err)
		assert.Equal(t, "1", doc.ID)
		assert.True(t, attrs.Equal(doc.Fields), "got %v", doc.Fields.Map())
		assert.Equal(t, core.KindInt, doc.Fields.Value("id").Kind())
		assert.Equal(t, core.KindFloat, doc.Fields.Value("price").Kind())
		assert.True(t, doc.Fields.Has("note"), "null fields are kept")
	})

	t.Run("Put replaces", func(t *testing.T) {
		require.NoError(t, c.Put(ctx, "st_replace", "1", core.MustAttributes("id", 1, "name", "old", "price", 20)))
		require.NoError(t, c.Put(ctx, "st_replace", "1", core.MustAttributes("id", 1, "name", "new")))

		doc, err := c.Get(ctx, "st_replace", "1", nil)
		require.NoError(t, err)
		assert.Equal(t, "new", doc.Fields.Value("name").Str())
		assert.False(t, doc.Fields.Has("price"))
	})

	t.Run("Get with fields", func(t *testing.T) {
		require.NoError(t, c.Put(ctx, "st_fields", "1", core.MustAttributes("id", 1, "name", "x", "price", 20)))

		doc, err := c.Get(ctx, "st_fields", "1", []string{"name", "missing"})
		require.NoError(t, err)
		assert.Equal(t, []string{"name"}, doc.Fields.Keys())
	})

	t.Run("Nested fields", func(t *testing.T) {
		attrs := core.MustAttributes("id", 1, "name", "box", "dims", map[string]any{"w": 10, "h": 4})
		require.NoError(t, c.Put(ctx, "st_nested", "1", attrs))

		doc, err := c.Get(ctx, "st_nested", "1", []string{"dims.w", "dims.depth", "name.x"})
		require.NoError(t, err)
		assert.Equal(t, []string{"dims"}, doc.Fields.Keys())
		dims := doc.Fields.Value("dims").Map()
		assert.Equal(t, []string{"w"}, dims.Keys())
		assert.Equal(t, int64(10), dims.Value("w").Int())

		res, err := c.Search(ctx, "st_nested", query.New().Select("dims.h"))
		require.NoError(t, err)
		require.Len(t, res.Hits, 1)
		assert.Equal(t, []string{"dims"}, res.Hits[0].Fields.Keys())
		assert.Equal(t, int64(4), res.Hits[0].Fields.Value("dims").Map().Value("h").Int())
	})

	t.Run("Patch merges", func(t *testing.T) {
		require.NoError(t, c.Put(ctx, "st_patch", "1", core.MustAttributes("id", 1, "name", "Product 1", "price", 20)))
		require.NoError(t, c.Patch(ctx, "st_patch", "1", core.MustAttributes("name", "Product 2", "stock", 3)))

		doc, err := c.Get(ctx, "st_patch", "1", nil)
		require.NoError(t, err)
		want := core.MustAttributes("id", 1, "name", "Product 2", "price", 20, "stock", 3)
		assert.True(t, want.Equal(doc.Fields), "got %v", doc.Fields.Map())
	})

	t.Run("Patch missing", func(t *testing.T) {
		err := c.Patch(ctx, "st_patch_missing", "1", core.MustAttributes("name", "x"))
		assert.ErrorIs(t, err, storage.ErrNotFound)

		_, err = c.Get(ctx, "st_patch_missing", "1", nil)
		assert.ErrorIs(t, err, storage.ErrNotFound, "patch must not create documents")
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, c.Put(ctx, "st_delete", "1", core.MustAttributes("id", 1)))
		require.NoError(t, c.Delete(ctx, "st_delete", "1"))

		_, err := c.Get(ctx, "st_delete", "1", nil)
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, c.Delete(ctx, "st_delete", "1"), storage.ErrNotFound)
	})

	t.Run("Collections are isolated", func(t *testing.T) {
		require.NoError(t, c.Put(ctx, "st_iso", "1", core.MustAttributes("id", 1)))
		require.NoError(t, c.Put(ctx, "st_iso:x", "1", core.MustAttributes("id", 2)))

		res, err := c.Search(ctx, "st_iso", query.New())
		require.NoError(t, err)
		require.Len(t, res.Hits, 1)
		assert.Equal(t, int64(1), res.Hits[0].Fields.Value("id").Int())
	})

	t.Run("Search empty collection", func(t *testing.T) {
		res, err := c.Search(ctx, "st_empty", query.New())
		require.NoError(t, err)
		assert.Empty(t, res.Hits)
		assert.Equal(t, int64(0), res.Total)
	})

	seedSearch(t, c)

	t.Run("Search match all", func(t *testing.T) {
		res, err := c.Search(ctx, "st_search", query.New())
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "2", "3", "4"}, hitIDs(res))
		assert.Equal(t, int64(4), res.Total)
		for _, h := range res.Hits {
			assert.True(t, h.Scored)
			assert.Greater(t, h.Score, 0.0)
		}
	})

	t.Run("Search filters", func(t *testing.T) {
		tests := []struct {
			name string
			q    query.Query
			want []string
		}{
			{"eq", query.New().Eq("category", "tools"), []string{"1", "3"}},
			{"range", query.New().Where("price", query.Gte, 20), []string{"1", "4"}},
			{"in", query.New().In("category", "garden", "kitchen"), []string{"2", "4"}},
			{"exists", query.New().Exists("stock"), []string{"1", "2"}},
			{"prefix", query.New().Prefix("name", "Claw"), []string{"3"}},
			{"combined", query.New().Eq("category", "tools").Where("price", query.Lt, 20), []string{"3"}},
		}
		for _, tt := range tests {
			t.Run(tt.name, func(t *testing.T) {
				res, err := c.Search(ctx, "st_search", tt.q)
				require.NoError(t, err)
				assert.Equal(t, tt.want, hitIDs(res))
				assert.Equal(t, int64(len(tt.want)), res.Total)
			})
		}
	})

	t.Run("Search sort and window", func(t *testing.T) {
		q := query.New().OrderBy("price", query.Desc)
		res, err := c.Search(ctx, "st_search", q)
		require.NoError(t, err)
		assert.Equal(t, []string{"4", "1", "3", "2"}, hitIDs(res))
		for _, h := range res.Hits {
			assert.False(t, h.Scored)
		}

		res, err = c.Search(ctx, "st_search", q.Offset(1).Limit(2))
		require.NoError(t, err)
		assert.Equal(t, []string{"1", "3"}, hitIDs(res))
		assert.Equal(t, int64(4), res.Total)
	})

	t.Run("Search match ranks by score", func(t *testing.T) {
		res, err := c.Search(ctx, "st_search", query.New().Match("name", "hammer"))
		require.NoError(t, err)
		require.Equal(t, []string{"1", "3"}, hitIDs(res))
		assert.True(t, res.Hits[0].Scored)
		assert.Greater(t, res.Hits[0].Score, res.Hits[1].Score)
	})

	t.Run("Search projection", func(t *testing.T) {
		res, err := c.Search(ctx, "st_search", query.New().Eq("id", 2).Select("name"))
		require.NoError(t, err)
		require.Len(t, res.Hits, 1)
		assert.Equal(t, "2", res.Hits[0].ID)
		assert.Equal(t, []string{"name"}, res.Hits[0].Fields.Keys())
	})
}

func seedSearch(t *testing.T, c storage.Client) {
	t.Helper()
	docs := []core.Attributes{
		core.MustAttributes("id", 1, "name", "Hammer hammer drill", "category", "tools", "price", 120, "stock", 4),
		core.MustAttributes("id", 2, "name", "Garden hose", "category", "garden", "price", 15, "stock", 0),
		core.MustAttributes("id", 3, "name", "Claw hammer", "category", "tools", "price", 19.5),
		core.MustAttributes("id", 4, "name", "Espresso machine", "category", "kitchen", "price", 450),
	}
	for _, d := range docs {
		require.NoError(t, c.Put(context.Background(), "st_search", d.Value("id").String(), d))
	}
}

func hitIDs(res *storage.SearchResult) []string {
	out := make([]string, len(res.Hits))
	for i, h := range res.Hits {
		out[i] = h.ID
	}
	return out
}
