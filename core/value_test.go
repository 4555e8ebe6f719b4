package core

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrom(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 30, 0, 123456789, time.FixedZone("X", 3600))

	tests := []struct {
		name string
		in   any
		want Value
	}{
		{"nil", nil, Null()},
		{"bool", true, Bool(true)},
		{"int", 20, Int(20)},
		{"int32", int32(-3), Int(-3)},
		{"uint16", uint16(9), Int(9)},
		{"float32", float32(0.5), Float(0.5)},
		{"float64", 19.99, Float(19.99)},
		{"json int", json.Number("12"), Int(12)},
		{"json float", json.Number("1.25"), Float(1.25)},
		{"string", "Product 1", String("Product 1")},
		{"bytes", []byte("raw"), String("raw")},
		{"time", now, Time(now)},
		{"strings", []string{"a", "b"}, List(String("a"), String("b"))},
		{"mixed list", []any{1, "x"}, List(Int(1), String("x"))},
		{"value", Float(2), Float(2)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := From(tt.in)
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "got %v (%s), want %v (%s)", got, got.Kind(), tt.want, tt.want.Kind())
		})
	}
}

func TestFrom_Unsupported(t *testing.T) {
	_, err := From(struct{}{})
	assert.ErrorIs(t, err, ErrType)

	_, err = From(uint64(1 << 63))
	assert.ErrorIs(t, err, ErrType)

	_, err = From([]any{1, make(chan int)})
	assert.ErrorIs(t, err, ErrType)

	assert.Panics(t, func() { MustFrom(struct{}{}) })
}

func TestFrom_Map(t *testing.T) {
	v, err := From(map[string]any{"b": 2, "a": "x"})
	require.NoError(t, err)
	require.Equal(t, KindMap, v.Kind())

	m := v.Map()
	assert.Equal(t, []string{"a", "b"}, m.Keys())
	assert.Equal(t, int64(2), m.Value("b").Int())
}

func TestValue_Accessors(t *testing.T) {
	t.Run("numbers cross convert", func(t *testing.T) {
		assert.Equal(t, 20.0, Int(20).Float())
		assert.Equal(t, int64(19), Float(19.99).Int())
	})

	t.Run("wrong kind reads as zero", func(t *testing.T) {
		assert.Equal(t, int64(0), String("20").Int())
		assert.Equal(t, 0.0, Null().Float())
		assert.Equal(t, "", Int(1).Str())
		assert.False(t, String("true").Bool())
		assert.True(t, Int(1).Time().IsZero())
		assert.Nil(t, Int(1).List())
		assert.Equal(t, 0, Int(1).Map().Len())
	})

	t.Run("time is utc milli", func(t *testing.T) {
		ts := time.Date(2024, 1, 1, 0, 0, 0, 999, time.FixedZone("Y", -7200))
		v := Time(ts)
		assert.Equal(t, time.UTC, v.Time().Location())
		assert.Equal(t, 0, v.Time().Nanosecond())
		assert.True(t, v.Time().Equal(ts.Truncate(time.Millisecond)))
	})

	t.Run("list is copied", func(t *testing.T) {
		items := []Value{Int(1)}
		v := List(items...)
		items[0] = Int(2)
		assert.Equal(t, int64(1), v.List()[0].Int())
	})
}

func TestValue_String(t *testing.T) {
	assert.Equal(t, "1", Int(1).String())
	assert.Equal(t, "1.5", Float(1.5).String())
	assert.Equal(t, "20", Float(20).String())
	assert.Equal(t, "abc", String("abc").String())
	assert.Equal(t, "true", Bool(true).String())
	assert.Equal(t, "", Null().String())
}

func TestValue_Equal(t *testing.T) {
	assert.True(t, Null().Equal(Value{}))
	assert.False(t, Int(1).Equal(Float(1)))
	assert.True(t, List(Int(1), String("a")).Equal(List(Int(1), String("a"))))
	assert.False(t, List(Int(1)).Equal(List(Int(1), Int(2))))

	a := MustAttributes("x", 1, "y", "z")
	b := MustAttributes("y", "z", "x", 1)
	assert.True(t, Map(a).Equal(Map(b)))
}

func TestCompare(t *testing.T) {
	tests := []struct {
		name string
		a, b Value
		want int
	}{
		{"ints", Int(1), Int(2), -1},
		{"int vs float", Int(2), Float(1.5), 1},
		{"equal numbers", Int(2), Float(2), 0},
		{"strings", String("b"), String("a"), 1},
		{"bools", Bool(false), Bool(true), -1},
		{"null first", Null(), Int(0), -1},
		{"kind order", String("a"), Time(time.Unix(0, 0)), -1},
		{"times", Time(time.Unix(10, 0)), Time(time.Unix(5, 0)), 1},
		{"lists", List(Int(1), Int(2)), List(Int(1), Int(3)), -1},
		{"list prefix", List(Int(1)), List(Int(1), Int(0)), -1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Compare(tt.a, tt.b))
		})
	}
}

func TestValue_MarshalJSON(t *testing.T) {
	v := Map(MustAttributes("name", "x", "tags", []string{"a"}, "price", 20))
	b, err := json.Marshal(v)
	require.NoError(t, err)
	assert.JSONEq(t, `{"name":"x","tags":["a"],"price":20}`, string(b))
}
