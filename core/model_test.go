package core

import (
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestModel_FillMatchesSetters(t *testing.T) {
	p1 := &product{}
	p1.Set("id", Int(1))
	p1.Set("name", String("name"))

	p2 := Fill(&product{}, MustAttributes("id", 1, "name", "name"))

	assert.True(t, p1.ToMap().Equal(p2.ToMap()))
	assert.Equal(t, p1.ToMap().Keys(), p2.ToMap().Keys())
}

func TestModel_FillIsPartial(t *testing.T) {
	p := Fill(&product{}, MustAttributes("id", 1, "name", "Product 1", "price", 20))
	Fill(p, MustAttributes("name", "Product 2"))

	assert.Equal(t, "Product 2", p.Str("name"))
	assert.Equal(t, int64(20), p.Int("price"))
	assert.Equal(t, int64(1), p.Int("id"))
}

func TestModel_ToMapIsACopy(t *testing.T) {
	p := Fill(&product{}, MustAttributes("id", 1))
	m := p.ToMap()
	m.Set("id", Int(99))

	assert.Equal(t, int64(1), p.Int("id"))
}

func TestModel_FillDoesNotAlias(t *testing.T) {
	attrs := MustAttributes("id", 1)
	p := Fill(&product{}, attrs)
	attrs.Set("id", Int(2))

	assert.Equal(t, int64(1), p.Int("id"))
}

func TestModel_Accessors(t *testing.T) {
	p := &product{}
	require.NoError(t, p.SetAny("name", "Product 1"))
	require.NoError(t, p.SetAny("price", 20))
	require.NoError(t, p.SetAny("active", true))
	assert.Error(t, p.SetAny("bad", struct{}{}))

	assert.Equal(t, "Product 1", p.Str("name"))
	assert.Equal(t, 20.0, p.Float("price"))
	assert.True(t, p.Bool("active"))
	assert.Equal(t, int64(0), p.Int("missing"), "missing numeric fields read as zero")
	assert.True(t, p.Has("name"))
	assert.False(t, p.Has("bad"))

	assert.True(t, p.Unset("active"))
	assert.False(t, p.Has("active"))
}

func TestModel_State(t *testing.T) {
	p := &product{}
	assert.False(t, p.Exists())
	assert.True(t, p.CreatedAt().IsZero())

	now := time.Now().UTC()
	p.SetExists(true)
	p.SetTimestamps(now, now.Add(time.Second))
	p.SetHit(Hit{Position: 3, Score: 1.5, Scored: true})

	assert.True(t, p.Exists())
	assert.Equal(t, now, p.CreatedAt())
	assert.Equal(t, now.Add(time.Second), p.UpdatedAt())
	score, ok := p.Score()
	assert.True(t, ok)
	assert.Equal(t, 1.5, score)
	assert.Equal(t, 3, p.Position())
}

func TestDocument(t *testing.T) {
	d := NewDocument("products", "sku")
	d.Set("sku", String("A-1"))

	assert.Equal(t, "products", d.Collection())
	assert.Equal(t, "sku", d.PrimaryKey())

	key, err := ValidateKey(d)
	require.NoError(t, err)
	assert.Equal(t, "A-1", key)
}

// Filling disjoint attribute sets must not depend on order.
func TestFill_DisjointCommutes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	toAttrs := func(prefix string, m map[string]int64) Attributes {
		var a Attributes
		for k, v := range m {
			a.Set(prefix+k, Int(v))
		}
		return a
	}

	properties.Property("fill(a).fill(b) == fill(b).fill(a)", prop.ForAll(
		func(ma, mb map[string]int64) bool {
			a := toAttrs("a_", ma)
			b := toAttrs("b_", mb)
			ab := Fill(&product{}, a, b)
			ba := Fill(&product{}, b, a)
			return ab.ToMap().Equal(ba.ToMap())
		},
		gen.MapOf(gen.Identifier(), gen.Int64()),
		gen.MapOf(gen.Identifier(), gen.Int64()),
	))

	properties.TestingRun(t)
}
