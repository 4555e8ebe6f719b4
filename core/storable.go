package core

import "time"

// Names of the fields the repository adds to stored documents.
const (
	CreatedAtField = "created_at"
	UpdatedAtField = "updated_at"
)

// Mappable is implemented by values that can export their current state as
// attributes.
type Mappable interface {
	// ToMap returns the fields currently held, and only those. The result
	// must be safe for the caller to modify.
	ToMap() Attributes
}

// Storable is the contract every persistable model satisfies.
//
// Collection and PrimaryKey are fixed per concrete type and must not depend
// on the receiver's state; the repository calls them on zero values.
type Storable interface {
	Mappable

	// Collection returns the logical bucket the model's documents live in.
	Collection() string

	// PrimaryKey returns the name of the field that identifies a document
	// within its collection.
	PrimaryKey() string

	// Fill merges attrs into the model. Existing fields are overwritten,
	// new fields are added, fields absent from attrs are left alone.
	Fill(attrs Attributes)
}

// Persisted is implemented by models that track whether they represent a
// document that already exists in the store.
type Persisted interface {
	Exists() bool
	SetExists(exists bool)
}

// Timestamped is implemented by models that carry creation and update times.
type Timestamped interface {
	CreatedAt() time.Time
	UpdatedAt() time.Time
	SetTimestamps(created, updated time.Time)
}

// Annotated is implemented by models that accept per-result metadata from a
// search.
type Annotated interface {
	SetHit(hit Hit)
}

// Hit is the out-of-band metadata attached to a model produced by a search.
type Hit struct {
	// Position is the zero-based index within the result set.
	Position int
	// Score is the relevance score; only meaningful when Scored is true.
	Score float64
	// Scored is true for relevance-ranked queries.
	Scored bool
}

// Fill merges each attribute set into s in order and returns s, so calls can
// be chained.
func Fill[T Storable](s T, attrs ...Attributes) T {
	for _, a := range attrs {
		s.Fill(a)
	}
	return s
}

// KeyOf returns the primary key value of s and whether it is usable as a
// document id.
func KeyOf(s Storable) (Value, bool) {
	v, ok := s.ToMap().Get(s.PrimaryKey())
	if !ok || v.IsNull() {
		return v, false
	}
	switch v.Kind() {
	case KindString:
		return v, v.Str() != ""
	case KindInt, KindFloat, KindBool:
		return v, true
	}
	return v, false
}
