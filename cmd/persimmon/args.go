package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
)

// parseValue reads a command line value as JSON, falling back to a plain
// string: 42 is an int, "42" and abc are strings, [1,2] is a list.
func parseValue(s string) core.Value {
	dec := json.NewDecoder(bytes.NewReader([]byte(s)))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil || dec.More() {
		return core.String(s)
	}
	v, err := core.From(raw)
	if err != nil {
		return core.String(s)
	}
	return v
}

// parseAssignments converts field=value arguments into attributes.
func parseAssignments(args []string) (core.Attributes, error) {
	var attrs core.Attributes
	for _, arg := range args {
		field, value, ok := strings.Cut(arg, "=")
		if !ok || field == "" {
			return core.Attributes{}, fmt.Errorf("invalid assignment %q: want field=value", arg)
		}
		attrs.Set(field, parseValue(value))
	}
	return attrs, nil
}

// whereOps lists two-character operators first.
var whereOps = []struct {
	token string
	op    query.Op
}{
	{"!=", query.Ne},
	{">=", query.Gte},
	{"<=", query.Lte},
	{"^=", query.Prefix},
	{"=", query.Eq},
	{">", query.Gt},
	{"<", query.Lt},
}

// parseWhere adds one --where clause to q.
func parseWhere(q query.Query, clause string) (query.Query, error) {
	if field, ok := strings.CutSuffix(clause, "?"); ok && field != "" && !strings.ContainsAny(field, "=<>!^") {
		return q.Exists(field), nil
	}
	i := strings.IndexAny(clause, "=!<>^")
	if i <= 0 {
		return q, fmt.Errorf("invalid filter %q", clause)
	}
	field, rest := clause[:i], clause[i:]
	for _, w := range whereOps {
		raw, ok := strings.CutPrefix(rest, w.token)
		if !ok {
			continue
		}
		if w.op == query.Prefix {
			return q.Prefix(field, raw), nil
		}
		return q.Where(field, w.op, parseValue(raw)), nil
	}
	return q, fmt.Errorf("invalid filter %q", clause)
}

func buildQuery(c *cli.Context) (query.Query, error) {
	q := query.New()
	for _, m := range c.StringSlice("match") {
		field, text, ok := strings.Cut(m, "=")
		if !ok {
			field, text = "", m
		}
		q = q.Match(field, text)
	}
	for _, w := range c.StringSlice("where") {
		var err error
		if q, err = parseWhere(q, w); err != nil {
			return q, err
		}
	}
	for _, s := range c.StringSlice("sort") {
		field, dir, _ := strings.Cut(s, ":")
		switch strings.ToLower(dir) {
		case "", "asc":
			q = q.OrderBy(field, query.Asc)
		case "desc":
			q = q.OrderBy(field, query.Desc)
		default:
			return q, fmt.Errorf("invalid sort direction %q", dir)
		}
	}
	if fields := c.StringSlice("fields"); len(fields) > 0 {
		q = q.Select(fields...)
	}
	q = q.Offset(c.Int("offset")).Limit(c.Int("limit"))
	return q, q.Err()
}
