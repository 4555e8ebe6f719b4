// Package query describes store queries as immutable values.
//
// A Query is built with fluent methods that each return a modified copy, so
// a base query can be shared and specialized freely:
//
//	base := query.New().Eq("category", "tools")
//	cheap := base.Where("price", query.Lt, 10).OrderBy("price", query.Asc)
//	search := base.Match("name", "hammer").Limit(20)
//
// Backends that cannot execute queries natively use Evaluate.
package query

import (
	"errors"
	"fmt"
	"slices"

	"github.com/poiesic/persimmon/core"
)

// Op is a filter comparison operator.
type Op string

const (
	Eq     Op = "eq"
	Ne     Op = "ne"
	Gt     Op = "gt"
	Gte    Op = "gte"
	Lt     Op = "lt"
	Lte    Op = "lte"
	In     Op = "in"
	Exists Op = "exists"
	Prefix Op = "prefix"
)

// Valid reports whether op is a known operator.
func (op Op) Valid() bool {
	switch op {
	case Eq, Ne, Gt, Gte, Lt, Lte, In, Exists, Prefix:
		return true
	}
	return false
}

// Direction is a sort direction.
type Direction int

const (
	Asc Direction = iota
	Desc
)

func (d Direction) String() string {
	if d == Desc {
		return "desc"
	}
	return "asc"
}

var (
	ErrInvalidQuery = errors.New("invalid query")
)

// Filter is a single predicate on a field. Field names may use dots to reach
// into nested maps.
type Filter struct {
	Field string
	Op    Op
	Value core.Value
}

// Match is a full text clause. An empty Field searches every string field.
type Match struct {
	Field string
	Text  string
}

// Sort orders results by a field.
type Sort struct {
	Field     string
	Direction Direction
}

// Builder is anything that can produce a Query.
type Builder interface {
	Build() Query
}

// Query is an immutable query description. The zero value matches every
// document in the collection.
type Query struct {
	filters []Filter
	matches []Match
	fields  []string
	sorts   []Sort
	offset  int
	limit   int
	err     error
}

var _ Builder = Query{}

// New returns an empty query.
func New() Query {
	return Query{}
}

// Build returns q itself.
func (q Query) Build() Query {
	return q
}

func (q Query) clone() Query {
	q.filters = slices.Clone(q.filters)
	q.matches = slices.Clone(q.matches)
	q.fields = slices.Clone(q.fields)
	q.sorts = slices.Clone(q.sorts)
	return q
}

func (q Query) fail(err error) Query {
	if q.err == nil {
		q.err = err
	}
	return q
}

// Where adds a filter. Values are converted with core.From; conversion
// failures surface from Err.
func (q Query) Where(field string, op Op, value any) Query {
	q = q.clone()
	if field == "" {
		return q.fail(fmt.Errorf("%w: empty filter field", ErrInvalidQuery))
	}
	if !op.Valid() {
		return q.fail(fmt.Errorf("%w: unknown operator %q", ErrInvalidQuery, op))
	}
	v, err := core.From(value)
	if err != nil {
		return q.fail(fmt.Errorf("%w: field %q: %w", ErrInvalidQuery, field, err))
	}
	switch op {
	case In:
		if v.Kind() != core.KindList {
			return q.fail(fmt.Errorf("%w: in on %q needs a list", ErrInvalidQuery, field))
		}
	case Prefix:
		if v.Kind() != core.KindString {
			return q.fail(fmt.Errorf("%w: prefix on %q needs a string", ErrInvalidQuery, field))
		}
	}
	q.filters = append(q.filters, Filter{Field: field, Op: op, Value: v})
	return q
}

// Eq is shorthand for Where(field, Eq, value).
func (q Query) Eq(field string, value any) Query {
	return q.Where(field, Eq, value)
}

// In matches documents whose field equals any of values.
func (q Query) In(field string, values ...any) Query {
	return q.Where(field, In, values)
}

// Exists matches documents where field is present and not null.
func (q Query) Exists(field string) Query {
	return q.Where(field, Exists, nil)
}

// Prefix matches string fields starting with prefix.
func (q Query) Prefix(field, prefix string) Query {
	return q.Where(field, Prefix, prefix)
}

// Match adds a full text clause. Documents must contain at least one of the
// terms in text.
func (q Query) Match(field, text string) Query {
	q = q.clone()
	if len(Terms(text)) == 0 {
		return q.fail(fmt.Errorf("%w: match text has no terms", ErrInvalidQuery))
	}
	q.matches = append(q.matches, Match{Field: field, Text: text})
	return q
}

// Select restricts the fields returned for each document. Calling it with no
// fields restores the full document.
func (q Query) Select(fields ...string) Query {
	q = q.clone()
	q.fields = slices.Clone(fields)
	return q
}

// OrderBy appends a sort key. Sorted queries are not relevance ranked.
func (q Query) OrderBy(field string, dir Direction) Query {
	q = q.clone()
	if field == "" {
		return q.fail(fmt.Errorf("%w: empty sort field", ErrInvalidQuery))
	}
	q.sorts = append(q.sorts, Sort{Field: field, Direction: dir})
	return q
}

// Offset skips the first n results.
func (q Query) Offset(n int) Query {
	q = q.clone()
	if n < 0 {
		return q.fail(fmt.Errorf("%w: negative offset %d", ErrInvalidQuery, n))
	}
	q.offset = n
	return q
}

// Limit caps the number of results. 0 means no limit.
func (q Query) Limit(n int) Query {
	q = q.clone()
	if n < 0 {
		return q.fail(fmt.Errorf("%w: negative limit %d", ErrInvalidQuery, n))
	}
	q.limit = n
	return q
}

// Page sets the window to the given one-based page of size results.
func (q Query) Page(page, size int) Query {
	if page < 1 || size < 1 {
		return q.clone().fail(fmt.Errorf("%w: page %d of size %d", ErrInvalidQuery, page, size))
	}
	return q.Offset((page - 1) * size).Limit(size)
}

// Err returns the first construction error, if any.
func (q Query) Err() error { return q.err }

// Filters returns a copy of the filter predicates.
func (q Query) Filters() []Filter { return slices.Clone(q.filters) }

// Matches returns a copy of the full text clauses.
func (q Query) Matches() []Match { return slices.Clone(q.matches) }

// Fields returns the selected fields, nil for the full document.
func (q Query) Fields() []string { return slices.Clone(q.fields) }

// Sorts returns a copy of the sort keys.
func (q Query) Sorts() []Sort { return slices.Clone(q.sorts) }

// Window returns the offset and limit.
func (q Query) Window() (offset, limit int) { return q.offset, q.limit }

// Ranked reports whether results are ordered by relevance score.
func (q Query) Ranked() bool { return len(q.sorts) == 0 }
