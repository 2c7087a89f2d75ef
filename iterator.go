// Copyright 2016 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package bigquery

import (
	"context"
	"fmt"

	"google.golang.org/api/iterator"
)

// A pageFetcher returns one page of rows. The page token identifies the page
// to fetch; it is threaded from one response into the next request unchanged
// and is never interpreted by this package. A fetcher closes over the
// identity of the resource being read and the options of the original call,
// so fetching a page is a pure function of that state plus the token.
type pageFetcher func(ctx context.Context, s service, schema Schema, pageSize int, pageToken string) (*fetchPageResult, error)

// fetchPageResult is one page of row results.
type fetchPageResult struct {
	pageToken  string
	rows       [][]Value
	totalRows  uint64
	schema     Schema
	cacheHit   bool
	execErrors []*Error
}

func newRowIterator(ctx context.Context, c *Client, pf pageFetcher) *RowIterator {
	it := &RowIterator{
		ctx: ctx,
		c:   c,
		pf:  pf,
	}
	it.pageInfo, it.nextFunc = iterator.NewPageInfo(
		it.fetchPage,
		func() int { return len(it.rows) },
		func() interface{} { r := it.rows; it.rows = nil; return r })
	return it
}

// A RowIterator provides access to the result of a BigQuery lookup.
type RowIterator struct {
	ctx      context.Context
	c        *Client
	pf       pageFetcher
	pageInfo *iterator.PageInfo
	nextFunc func() error

	// defer failures from iterator construction until iteration, so that
	// they surface through the usual Next error path.
	err error

	// Schema is the schema of the result rows. It is populated by the first
	// call to Next or by fetching the first page.
	Schema Schema

	// TotalRows is the total number of rows in the result, as reported by
	// the service. It is populated once the first page has been fetched.
	TotalRows uint64

	// CacheHit reports whether the results were served from the query
	// cache. It is populated once the first page has been fetched, and is
	// always false for table reads.
	CacheHit bool

	// ExecutionErrors holds the non-fatal errors the service reported
	// while running the query that produced these results. It is only
	// populated for query result reads.
	ExecutionErrors []*Error

	rows [][]Value
}

// Next loads the next row into dst. Its return value is iterator.Done if
// there are no more results. Once Next returns iterator.Done, all subsequent
// calls will return iterator.Done.
//
// dst may implement ValueLoader, or may be a *[]Value.
func (it *RowIterator) Next(dst interface{}) error {
	vl, ok := dst.(ValueLoader)
	if !ok {
		switch dst := dst.(type) {
		case *[]Value:
			vl = (*ValueList)(dst)
		default:
			return fmt.Errorf("bigquery: cannot convert %T to ValueLoader", dst)
		}
	}
	if err := it.nextFunc(); err != nil {
		return err
	}
	row := it.rows[0]
	it.rows = it.rows[1:]
	return vl.Load(row, it.Schema)
}

// PageInfo supports pagination. See the google.golang.org/api/iterator
// package for details.
func (it *RowIterator) PageInfo() *iterator.PageInfo { return it.pageInfo }

func (it *RowIterator) fetchPage(pageSize int, pageToken string) (string, error) {
	if it.err != nil {
		return "", it.err
	}
	res, err := it.pf(it.ctx, it.c.service, it.Schema, pageSize, pageToken)
	if err != nil {
		return "", err
	}
	it.rows = append(it.rows, res.rows...)
	it.Schema = res.schema
	it.TotalRows = res.totalRows
	it.CacheHit = res.cacheHit
	it.ExecutionErrors = res.execErrors
	return res.pageToken, nil
}
