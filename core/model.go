package core

import "time"

// Model is the embeddable base for domain models. It holds the attribute
// bag and the state the repository maintains: existence, timestamps and
// search metadata. Embedders supply Collection and PrimaryKey:
//
//	type Product struct{ core.Model }
//
//	func (*Product) Collection() string { return "products" }
//	func (*Product) PrimaryKey() string { return "id" }
type Model struct {
	attrs     Attributes
	exists    bool
	createdAt time.Time
	updatedAt time.Time
	hit       Hit
}

// ToMap returns a copy of the loaded attributes.
func (m *Model) ToMap() Attributes {
	return m.attrs.Clone()
}

// Fill merges attrs into the model.
func (m *Model) Fill(attrs Attributes) {
	m.attrs.Merge(attrs.Clone())
}

// Set stores a single field.
func (m *Model) Set(field string, v Value) {
	m.attrs.Set(field, v)
}

// SetAny converts v with From and stores it.
func (m *Model) SetAny(field string, v any) error {
	val, err := From(v)
	if err != nil {
		return err
	}
	m.attrs.Set(field, val)
	return nil
}

// Unset removes a field from the model. A later update leaves the stored
// field untouched.
func (m *Model) Unset(field string) bool {
	return m.attrs.Delete(field)
}

// Get returns a field and whether it is loaded.
func (m *Model) Get(field string) (Value, bool) {
	return m.attrs.Get(field)
}

// Has reports whether a field is loaded.
func (m *Model) Has(field string) bool {
	return m.attrs.Has(field)
}

// Str returns a string field, "" when absent.
func (m *Model) Str(field string) string {
	return m.attrs.Value(field).Str()
}

// Int returns a numeric field as an integer, 0 when absent.
func (m *Model) Int(field string) int64 {
	return m.attrs.Value(field).Int()
}

// Float returns a numeric field as a float, 0 when absent.
func (m *Model) Float(field string) float64 {
	return m.attrs.Value(field).Float()
}

// Bool returns a boolean field, false when absent.
func (m *Model) Bool(field string) bool {
	return m.attrs.Value(field).Bool()
}

// Exists reports whether the model represents a stored document.
func (m *Model) Exists() bool { return m.exists }

// SetExists is called by the repository after a successful write or read.
func (m *Model) SetExists(exists bool) { m.exists = exists }

// CreatedAt returns the creation time, zero until the model is stored.
func (m *Model) CreatedAt() time.Time { return m.createdAt }

// UpdatedAt returns the last update time, zero until the model is stored.
func (m *Model) UpdatedAt() time.Time { return m.updatedAt }

// SetTimestamps is called by the repository after a successful write or read.
func (m *Model) SetTimestamps(created, updated time.Time) {
	m.createdAt = created
	m.updatedAt = updated
}

// SetHit attaches search metadata.
func (m *Model) SetHit(hit Hit) { m.hit = hit }

// Hit returns the search metadata attached by the last search.
func (m *Model) Hit() Hit { return m.hit }

// Score returns the relevance score and whether the model came from a
// ranked search.
func (m *Model) Score() (float64, bool) { return m.hit.Score, m.hit.Scored }

// Position returns the zero-based position within the last result set.
func (m *Model) Position() int { return m.hit.Position }

// Document is a Storable whose collection and primary key are chosen at
// runtime. Tools that handle arbitrary collections use it instead of a
// dedicated model type.
type Document struct {
	Model
	collection string
	primaryKey string
}

var (
	_ Storable    = (*Document)(nil)
	_ Persisted   = (*Document)(nil)
	_ Timestamped = (*Document)(nil)
	_ Annotated   = (*Document)(nil)
)

// NewDocument returns an empty document bound to collection.
func NewDocument(collection, primaryKey string) *Document {
	return &Document{collection: collection, primaryKey: primaryKey}
}

func (d *Document) Collection() string { return d.collection }

func (d *Document) PrimaryKey() string { return d.primaryKey }
