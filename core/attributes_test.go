package core

import (
	"encoding/json"
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttributes_ZeroValue(t *testing.T) {
	var a Attributes
	assert.Equal(t, 0, a.Len())
	assert.False(t, a.Has("x"))
	assert.True(t, a.Value("x").IsNull())

	a.Set("x", Int(1))
	assert.Equal(t, 1, a.Len())
}

func TestAttributes_Presence(t *testing.T) {
	a := MustAttributes("name", nil)

	v, ok := a.Get("name")
	assert.True(t, ok, "null field must be present")
	assert.True(t, v.IsNull())

	_, ok = a.Get("price")
	assert.False(t, ok, "unloaded field must be absent")
}

func TestAttributes_Order(t *testing.T) {
	var a Attributes
	a.Set("id", Int(1))
	a.Set("name", String("a"))
	a.Set("price", Int(20))
	a.Set("name", String("b"))

	assert.Equal(t, []string{"id", "name", "price"}, a.Keys())
	assert.Equal(t, "b", a.Value("name").Str())

	assert.True(t, a.Delete("name"))
	assert.False(t, a.Delete("name"))
	assert.Equal(t, []string{"id", "price"}, a.Keys())
}

func TestAttributes_Merge(t *testing.T) {
	a := MustAttributes("id", 1, "name", "Product 1", "price", 20)
	a.Merge(MustAttributes("name", "Product 2", "stock", 3))

	assert.Equal(t, []string{"id", "name", "price", "stock"}, a.Keys())
	assert.Equal(t, "Product 2", a.Value("name").Str())
	assert.Equal(t, int64(20), a.Value("price").Int(), "absent keys are untouched")
	assert.Equal(t, int64(1), a.Value("id").Int(), "primary key survives a merge that does not name it")
}

func TestAttributes_OnlyWithout(t *testing.T) {
	a := MustAttributes("id", 1, "name", "x", "price", 20)

	only := a.Only("price", "id", "missing")
	assert.Equal(t, []string{"id", "price"}, only.Keys())

	without := a.Without("price")
	assert.Equal(t, []string{"id", "name"}, without.Keys())
	assert.Equal(t, 3, a.Len(), "source is not modified")
}

func TestAttributes_Clone(t *testing.T) {
	a := MustAttributes("id", 1, "nested", map[string]any{"k": "v"})
	b := a.Clone()
	b.Set("id", Int(2))

	assert.Equal(t, int64(1), a.Value("id").Int())
	assert.True(t, a.Value("nested").Equal(b.Value("nested")))
}

func TestAttributes_CopyOnWrite(t *testing.T) {
	a := MustAttributes("x", 1)
	b := a
	b.Set("y", Int(2))

	assert.False(t, a.Has("y"))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, []string{"x"}, a.Keys())
	assert.True(t, b.Has("y"))
	assert.Equal(t, 2, b.Len())
	assert.Equal(t, []string{"x", "y"}, b.Keys())

	c := b
	c.Set("x", Int(3))
	assert.True(t, c.Delete("y"))
	assert.Equal(t, int64(1), b.Value("x").Int())
	assert.Equal(t, []string{"x", "y"}, b.Keys())
	assert.Equal(t, []string{"x"}, c.Keys())

	var m Attributes
	m.Merge(a)
	m.Set("z", Int(4))
	assert.Equal(t, 1, a.Len())
	assert.Equal(t, 2, m.Len())
}

func TestAttributes_CopyKeepsPresenceConsistent(t *testing.T) {
	var a Attributes
	a.Set("x", Int(1))
	b := a
	a.Set("y", Int(2))

	for _, attrs := range []Attributes{a, b} {
		assert.Equal(t, attrs.Len(), len(attrs.Keys()))
		for _, k := range []string{"x", "y"} {
			assert.Equal(t, attrs.Has(k), slices.Contains(attrs.Keys(), k), k)
		}
	}
}

func TestAttributes_Equal(t *testing.T) {
	a := MustAttributes("x", 1, "y", "z")
	b := MustAttributes("y", "z", "x", 1)
	c := MustAttributes("x", 1)
	d := MustAttributes("x", 1, "y", "w")

	assert.True(t, a.Equal(b))
	assert.False(t, a.Equal(c))
	assert.False(t, a.Equal(d))
}

func TestNewAttributes_Errors(t *testing.T) {
	_, err := NewAttributes("id")
	assert.ErrorIs(t, err, ErrOddPairs)

	_, err = NewAttributes(1, "x")
	assert.ErrorIs(t, err, ErrFieldName)

	_, err = NewAttributes("id", struct{}{})
	assert.ErrorIs(t, err, ErrType)
}

func TestFromMap(t *testing.T) {
	a, err := FromMap(map[string]any{"price": 20, "name": "x", "id": 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"id", "name", "price"}, a.Keys())
	assert.Equal(t, map[string]any{"id": int64(1), "name": "x", "price": int64(20)}, a.Map())
}

func TestAttributes_MarshalJSON(t *testing.T) {
	a := MustAttributes("name", "Product 1", "id", 1, "price", 19.5)
	b, err := json.Marshal(a)
	require.NoError(t, err)
	assert.Equal(t, `{"name":"Product 1","id":1,"price":19.5}`, string(b))

	var empty Attributes
	b, err = json.Marshal(empty)
	require.NoError(t, err)
	assert.Equal(t, `{}`, string(b))
}
