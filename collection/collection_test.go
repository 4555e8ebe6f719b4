package collection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/persimmon/core"
)

type item struct{ core.Model }

func (*item) Collection() string { return "items" }
func (*item) PrimaryKey() string { return "id" }

type other struct{ core.Model }

func (*other) Collection() string { return "others" }
func (*other) PrimaryKey() string { return "id" }

func items(n int) []core.Storable {
	out := make([]core.Storable, n)
	for i := range out {
		out[i] = core.Fill(&item{}, core.MustAttributes("id", i))
	}
	return out
}

func TestCollection_Basics(t *testing.T) {
	src := items(3)
	c := New(src, 10)

	assert.Equal(t, 3, c.Count())
	assert.Equal(t, int64(10), c.Total())
	assert.False(t, c.IsEmpty())

	first, ok := c.First()
	require.True(t, ok)
	assert.Same(t, src[0], first)

	at, ok := c.At(2)
	require.True(t, ok)
	assert.Same(t, src[2], at)
	_, ok = c.At(3)
	assert.False(t, ok)
	_, ok = c.At(-1)
	assert.False(t, ok)
}

func TestCollection_CountIsFixed(t *testing.T) {
	src := items(2)
	c := New(src, -1)
	src[0] = nil

	assert.Equal(t, 2, c.Count())
	assert.Equal(t, int64(2), c.Total())
	first, _ := c.First()
	assert.NotNil(t, first)

	out := c.Items()
	out[0] = nil
	first, _ = c.First()
	assert.NotNil(t, first)
}

func TestCollection_Empty(t *testing.T) {
	for _, c := range []*Collection{Empty(), New(nil, -1)} {
		assert.True(t, c.IsEmpty())
		assert.Equal(t, 0, c.Count())
		_, ok := c.First()
		assert.False(t, ok)
		for range c.All() {
			t.Fatal("empty collection yielded an item")
		}
	}
}

func TestCollection_AllIsRestartable(t *testing.T) {
	c := New(items(4), -1)

	for pass := 0; pass < 2; pass++ {
		var seen []int
		for i, s := range c.All() {
			seen = append(seen, i)
			assert.Equal(t, int64(i), s.ToMap().Value("id").Int())
		}
		assert.Equal(t, []int{0, 1, 2, 3}, seen)
	}

	first, _ := c.First()
	for _, s := range c.All() {
		assert.Same(t, first, s, "first equals the first iterated element")
		break
	}
}

func TestEach(t *testing.T) {
	mixed := append(items(2), &other{})
	c := New(mixed, -1)

	var got []int
	for i, it := range Each[*item](c) {
		got = append(got, i)
		assert.Equal(t, "items", it.Collection())
	}
	assert.Equal(t, []int{0, 1}, got)
	assert.Len(t, Slice[*other](c), 1)
}
