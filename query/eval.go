package query

import (
	"cmp"
	"slices"
	"strings"
	"unicode"

	"github.com/poiesic/persimmon/core"
)

// Record is a stored document as seen by the evaluator.
type Record struct {
	ID     string
	Fields core.Attributes
}

// Scored is a record that matched a query, with its relevance score.
type Scored struct {
	Record
	Score float64
}

// Result is the outcome of evaluating a query.
type Result struct {
	Hits   []Scored
	Total  int64
	Ranked bool
}

// Evaluate runs q against records in memory: filter, score, sort, window,
// then project. Total counts every match before the window is applied.
//
// Full text clauses score the summed frequency of the query terms found in
// the searched fields; documents missing any clause are dropped. Without
// full text clauses every match scores 1. Sorted queries carry no score.
func Evaluate(q Query, records []Record) Result {
	ranked := q.Ranked()
	hits := make([]Scored, 0, len(records))
	for _, r := range records {
		if !matchesFilters(q.filters, r.Fields) {
			continue
		}
		score, ok := scoreMatches(q.matches, r.Fields)
		if !ok {
			continue
		}
		if !ranked {
			score = 0
		}
		hits = append(hits, Scored{Record: r, Score: score})
	}

	if ranked {
		slices.SortStableFunc(hits, func(a, b Scored) int {
			if c := cmp.Compare(b.Score, a.Score); c != 0 {
				return c
			}
			return cmp.Compare(a.ID, b.ID)
		})
	} else {
		slices.SortStableFunc(hits, func(a, b Scored) int {
			for _, s := range q.sorts {
				if c := compareField(a.Fields, b.Fields, s); c != 0 {
					return c
				}
			}
			return cmp.Compare(a.ID, b.ID)
		})
	}

	total := int64(len(hits))
	hits = window(hits, q.offset, q.limit)
	if len(q.fields) > 0 {
		for i := range hits {
			hits[i].Fields = Project(hits[i].Fields, q.fields...)
		}
	}
	return Result{Hits: hits, Total: total, Ranked: ranked}
}

func window(hits []Scored, offset, limit int) []Scored {
	if offset >= len(hits) {
		return nil
	}
	hits = hits[offset:]
	if limit > 0 && limit < len(hits) {
		hits = hits[:limit]
	}
	return hits
}

// Terms splits text into lowercase terms on anything that is not a letter or
// a digit.
func Terms(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// Lookup resolves a possibly dotted field name. An exact key wins over a
// nested path.
func Lookup(attrs core.Attributes, field string) (core.Value, bool) {
	if v, ok := attrs.Get(field); ok {
		return v, true
	}
	head, rest, found := strings.Cut(field, ".")
	if !found {
		return core.Value{}, false
	}
	v, ok := attrs.Get(head)
	if !ok || v.Kind() != core.KindMap {
		return core.Value{}, false
	}
	return Lookup(v.Map(), rest)
}

// Project keeps the named fields of attrs, in the order they appear in attrs.
// A dotted name keeps only that nested value, wrapped in maps the way it was
// found: projecting "dims.w" out of {dims: {w: 1, h: 2}} gives {dims: {w: 1}}.
func Project(attrs core.Attributes, fields ...string) core.Attributes {
	var nested []string
	for _, f := range fields {
		if !attrs.Has(f) && strings.Contains(f, ".") {
			nested = append(nested, f)
		}
	}
	out := attrs.Only(fields...)
	if len(nested) == 0 {
		return out
	}
	for _, k := range attrs.Keys() {
		var rest []string
		for _, f := range nested {
			if head, tail, _ := strings.Cut(f, "."); head == k {
				rest = append(rest, tail)
			}
		}
		if len(rest) == 0 || out.Has(k) {
			continue
		}
		v := attrs.Value(k)
		if v.Kind() != core.KindMap {
			continue
		}
		if sub := Project(v.Map(), rest...); sub.Len() > 0 {
			out.Set(k, core.Map(sub))
		}
	}
	return orderLike(attrs, out)
}

// orderLike returns out with its keys in the order they appear in attrs.
func orderLike(attrs, out core.Attributes) core.Attributes {
	var sorted core.Attributes
	for _, k := range attrs.Keys() {
		if v, ok := out.Get(k); ok {
			sorted.Set(k, v)
		}
	}
	return sorted
}

// Test reports whether attrs satisfies a single filter.
func (f Filter) Test(attrs core.Attributes) bool {
	v, ok := Lookup(attrs, f.Field)
	switch f.Op {
	case Exists:
		return ok && !v.IsNull() && !(v.Kind() == core.KindList && v.Len() == 0)
	case Ne:
		return !ok || !anyItem(v, f.Value, equal)
	}
	if !ok {
		return false
	}
	switch f.Op {
	case Eq:
		return anyItem(v, f.Value, equal)
	case In:
		for _, want := range f.Value.List() {
			if anyItem(v, want, equal) {
				return true
			}
		}
		return false
	case Prefix:
		return anyItem(v, f.Value, func(got, want core.Value) bool {
			return got.Kind() == core.KindString && strings.HasPrefix(got.Str(), want.Str())
		})
	case Gt:
		return anyItem(v, f.Value, ordered(func(c int) bool { return c > 0 }))
	case Gte:
		return anyItem(v, f.Value, ordered(func(c int) bool { return c >= 0 }))
	case Lt:
		return anyItem(v, f.Value, ordered(func(c int) bool { return c < 0 }))
	case Lte:
		return anyItem(v, f.Value, ordered(func(c int) bool { return c <= 0 }))
	}
	return false
}

func matchesFilters(filters []Filter, attrs core.Attributes) bool {
	for _, f := range filters {
		if !f.Test(attrs) {
			return false
		}
	}
	return true
}

// anyItem applies pred to v, or to each item when v is a list and want is not.
func anyItem(v, want core.Value, pred func(got, want core.Value) bool) bool {
	if v.Kind() == core.KindList && want.Kind() != core.KindList {
		return slices.ContainsFunc(v.List(), func(item core.Value) bool { return pred(item, want) })
	}
	return pred(v, want)
}

func orderable(a, b core.Value) bool {
	if a.IsNumber() && b.IsNumber() {
		return true
	}
	if a.Kind() != b.Kind() {
		return false
	}
	switch a.Kind() {
	case core.KindString, core.KindTime, core.KindBool:
		return true
	}
	return false
}

func equal(got, want core.Value) bool {
	if got.IsNumber() && want.IsNumber() {
		return core.Compare(got, want) == 0
	}
	return got.Equal(want)
}

func ordered(accept func(int) bool) func(got, want core.Value) bool {
	return func(got, want core.Value) bool {
		return orderable(got, want) && accept(core.Compare(got, want))
	}
}

func scoreMatches(matches []Match, attrs core.Attributes) (float64, bool) {
	if len(matches) == 0 {
		return 1, true
	}
	var total float64
	for _, m := range matches {
		freq := termFrequencies(attrs, m.Field)
		var score float64
		for _, term := range Terms(m.Text) {
			score += float64(freq[term])
		}
		if score == 0 {
			return 0, false
		}
		total += score
	}
	return total, true
}

func termFrequencies(attrs core.Attributes, field string) map[string]int {
	freq := make(map[string]int)
	var add func(v core.Value)
	add = func(v core.Value) {
		switch v.Kind() {
		case core.KindString:
			for _, t := range Terms(v.Str()) {
				freq[t]++
			}
		case core.KindList:
			for _, item := range v.List() {
				add(item)
			}
		case core.KindMap:
			if field == "" {
				m := v.Map()
				for _, k := range m.Keys() {
					add(m.Value(k))
				}
			}
		}
	}
	if field != "" {
		if v, ok := Lookup(attrs, field); ok {
			add(v)
		}
		return freq
	}
	for _, k := range attrs.Keys() {
		add(attrs.Value(k))
	}
	return freq
}

// compareField orders two documents by one sort key. Missing and null values
// sort last in both directions.
func compareField(a, b core.Attributes, s Sort) int {
	av, aok := Lookup(a, s.Field)
	bv, bok := Lookup(b, s.Field)
	aok = aok && !av.IsNull()
	bok = bok && !bv.IsNull()
	switch {
	case !aok && !bok:
		return 0
	case !aok:
		return 1
	case !bok:
		return -1
	}
	c := core.Compare(av, bv)
	if s.Direction == Desc {
		c = -c
	}
	return c
}
