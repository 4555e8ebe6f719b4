package core

import (
	"bytes"
	"encoding/json"
	"maps"
	"slices"
	"sort"
)

// Attributes is an ordered field map with explicit presence.
//
// A field that was loaded as null is present (Has returns true) and holds
// Null; a field that was never loaded is absent. Partial updates rely on
// this distinction, so never use Null as a stand-in for "not loaded".
//
// The zero value is an empty, ready to use attribute set. Copies share
// storage. Only the value that built the storage writes to it in place; any
// other copy clones it on its first write, so writing to a copy never changes
// the original. Use Clone for a snapshot that later writes to the original
// cannot reach. Attributes must be cloned before being shared between
// goroutines.
type Attributes struct {
	s *attrState
}

type attrState struct {
	// owner is the only Attributes allowed to write in place.
	owner  *Attributes
	keys   []string
	values map[string]Value
}

// own returns state that a may write to, cloning shared state first.
func (a *Attributes) own() *attrState {
	switch {
	case a.s == nil:
		a.s = &attrState{owner: a, values: make(map[string]Value)}
	case a.s.owner != a:
		a.s = &attrState{
			owner:  a,
			keys:   slices.Clone(a.s.keys),
			values: maps.Clone(a.s.values),
		}
	}
	return a.s
}

func (a Attributes) keys() []string {
	if a.s == nil {
		return nil
	}
	return a.s.keys
}

func (a Attributes) lookup(field string) (Value, bool) {
	if a.s == nil {
		return Value{}, false
	}
	v, ok := a.s.values[field]
	return v, ok
}

// NewAttributes builds attributes from alternating field/value pairs.
func NewAttributes(pairs ...any) (Attributes, error) {
	var a Attributes
	if len(pairs)%2 != 0 {
		return a, ErrOddPairs
	}
	for i := 0; i < len(pairs); i += 2 {
		field, ok := pairs[i].(string)
		if !ok {
			return Attributes{}, ErrFieldName
		}
		v, err := From(pairs[i+1])
		if err != nil {
			return Attributes{}, err
		}
		a.Set(field, v)
	}
	return a, nil
}

// MustAttributes is like NewAttributes but panics on error.
func MustAttributes(pairs ...any) Attributes {
	a, err := NewAttributes(pairs...)
	if err != nil {
		panic(err)
	}
	return a
}

// FromMap converts a plain map. Keys are added in sorted order.
func FromMap(m map[string]any) (Attributes, error) {
	var a Attributes
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v, err := From(m[k])
		if err != nil {
			return Attributes{}, err
		}
		a.Set(k, v)
	}
	return a, nil
}

// Set stores a value. New fields are appended to the key order, existing
// fields keep their position.
func (a *Attributes) Set(field string, v Value) {
	s := a.own()
	if _, ok := s.values[field]; !ok {
		s.keys = append(s.keys, field)
	}
	s.values[field] = v
}

// Get returns the value of a field and whether it is present.
func (a Attributes) Get(field string) (Value, bool) {
	return a.lookup(field)
}

// Value returns the value of a field, or Null when absent.
func (a Attributes) Value(field string) Value {
	v, _ := a.lookup(field)
	return v
}

// Has reports whether the field is present.
func (a Attributes) Has(field string) bool {
	_, ok := a.lookup(field)
	return ok
}

// Delete removes a field. Returns false if it was absent.
func (a *Attributes) Delete(field string) bool {
	if !a.Has(field) {
		return false
	}
	s := a.own()
	delete(s.values, field)
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == field })
	return true
}

// Keys returns the field names in insertion order.
func (a Attributes) Keys() []string {
	return slices.Clone(a.keys())
}

// Len returns the number of present fields.
func (a Attributes) Len() int {
	return len(a.keys())
}

// Merge copies every field of other into a, overwriting existing values.
// Fields absent from other are left untouched.
func (a *Attributes) Merge(other Attributes) {
	for _, k := range other.keys() {
		a.Set(k, other.Value(k))
	}
}

// Only returns the subset of present fields named in fields, in the order
// they appear in a.
func (a Attributes) Only(fields ...string) Attributes {
	var out Attributes
	for _, k := range a.keys() {
		if slices.Contains(fields, k) {
			out.Set(k, a.Value(k))
		}
	}
	return out
}

// Without returns a copy of a with the named fields removed.
func (a Attributes) Without(fields ...string) Attributes {
	var out Attributes
	for _, k := range a.keys() {
		if !slices.Contains(fields, k) {
			out.Set(k, a.Value(k))
		}
	}
	return out
}

// Clone returns a deep copy.
func (a Attributes) Clone() Attributes {
	var out Attributes
	for _, k := range a.keys() {
		v := a.Value(k)
		switch v.kind {
		case KindList:
			v = List(v.list...)
		case KindMap:
			if v.m != nil {
				v = Map(*v.m)
			}
		}
		out.Set(k, v)
	}
	return out
}

// Equal reports whether both sets hold the same fields with equal values.
// Key order is not significant.
func (a Attributes) Equal(o Attributes) bool {
	if a.Len() != o.Len() {
		return false
	}
	for _, k := range a.keys() {
		v := a.Value(k)
		ov, ok := o.lookup(k)
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}

// Map returns the plain Go representation.
func (a Attributes) Map() map[string]any {
	out := make(map[string]any, a.Len())
	for _, k := range a.keys() {
		out[k] = a.Value(k).Interface()
	}
	return out
}

// MarshalJSON encodes the attributes as a JSON object in key order.
func (a Attributes) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, k := range a.keys() {
		if i > 0 {
			buf.WriteByte(',')
		}
		kb, err := json.Marshal(k)
		if err != nil {
			return nil, err
		}
		buf.Write(kb)
		buf.WriteByte(':')
		vb, err := a.Value(k).MarshalJSON()
		if err != nil {
			return nil, err
		}
		buf.Write(vb)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
