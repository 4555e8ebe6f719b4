// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package storage

import (
	"context"

	"github.com/poiesic/persimmon/collection"
	"github.com/poiesic/persimmon/core"
	"github.com/poiesic/persimmon/query"
)

const (
	// DefaultPageSize is the default number of documents fetched per page.
	DefaultPageSize = 100
)

// PageIterator walks the results of a query page by page using offset/limit
// windows.
type PageIterator struct {
	repo     Repository
	class    core.Class
	pageSize int
}

// NewPageIterator creates a new page iterator.
// pageSize: number of documents to fetch per page (defaults when <= 0)
func NewPageIterator(repo Repository, class core.Class, pageSize int) *PageIterator {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}

	return &PageIterator{
		repo:     repo,
		class:    class,
		pageSize: pageSize,
	}
}

// ForEach runs q one page at a time, calling fn for each non-empty page.
// Any window already set on q is replaced. Iteration stops on the first error
// from fn or the repository, or when the results are exhausted.
// Context cancellation is checked between pages.
func (it *PageIterator) ForEach(ctx context.Context, b query.Builder, fn func(*collection.Collection) error) error {
	q := query.New()
	if b != nil {
		q = b.Build()
	}

	for page := 1; ; page++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c, err := it.repo.All(ctx, q.Page(page, it.pageSize), it.class)
		if err != nil {
			return err
		}
		if c.IsEmpty() {
			return nil
		}
		if err := fn(c); err != nil {
			return err
		}
		if c.Count() < it.pageSize || int64(page*it.pageSize) >= c.Total() {
			return nil
		}
	}
}

// ForEachPage is a shorthand for NewPageIterator(repo, class, pageSize).ForEach.
func ForEachPage(ctx context.Context, repo Repository, q query.Builder, class core.Class, pageSize int, fn func(*collection.Collection) error) error {
	return NewPageIterator(repo, class, pageSize).ForEach(ctx, q, fn)
}
