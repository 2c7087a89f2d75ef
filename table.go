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
	"time"

	"github.com/ahmedalikamal/bigquery-go/internal/optional"
	"github.com/ahmedalikamal/bigquery-go/internal/trace"
	"google.golang.org/api/iterator"
)

// A Table is a reference to a BigQuery table.
type Table struct {
	// ProjectID, DatasetID and TableID may be omitted if the Table is the
	// destination for a query. In this case the result table is stored
	// temporarily by the service.
	ProjectID string
	DatasetID string
	// TableID must contain only letters, numbers, and underscores.
	TableID string

	c *Client
}

// TableMetadata contains information about a BigQuery table.
type TableMetadata struct {
	// These fields can be set when creating a table.
	Name           string            // The user-friendly name for this table.
	Description    string            // The user-friendly description of this table.
	Schema         Schema            // The table schema.
	ExpirationTime time.Time         // The time when this table expires.
	Labels         map[string]string // User-provided labels.

	// These fields are read-only.
	FullID           string // The full table ID in the form projectID:datasetID.tableID.
	Type             TableType
	CreationTime     time.Time
	LastModifiedTime time.Time

	// The size of the table in bytes. This does not include data that is
	// being buffered during a streaming insert.
	NumBytes int64

	// The number of rows of data in this table. This does not include data
	// that is being buffered during a streaming insert.
	NumRows uint64

	// ETag is the ETag obtained when reading metadata. Pass it to
	// Table.Update to ensure that the metadata hasn't changed since it was
	// read.
	ETag string
}

// TableType is the type of table.
type TableType string

const (
	// RegularTable is a regular table.
	RegularTable TableType = "TABLE"
	// ViewTable is a table defined by an SQL query.
	ViewTable TableType = "VIEW"
	// ExternalTable is a table backed by data stored outside the service.
	ExternalTable TableType = "EXTERNAL"
)

// Table creates a handle to a BigQuery table in the dataset. To determine if
// a table exists, call Table.Metadata.
func (d *Dataset) Table(tableID string) *Table {
	return &Table{ProjectID: d.ProjectID, DatasetID: d.DatasetID, TableID: tableID, c: d.c}
}

// FullyQualifiedName returns the ID of the table in projectID:datasetID.tableID format.
func (t *Table) FullyQualifiedName() string {
	return t.ProjectID + ":" + t.DatasetID + "." + t.TableID
}

// Create creates a table in the BigQuery service. Pass in a TableMetadata
// value to configure the table.
func (t *Table) Create(ctx context.Context, tm *TableMetadata, opts ...RequestOption) (err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Table.Create")
	defer func() { trace.EndSpan(ctx, err) }()

	opt, err := optionMap(opts...)
	if err != nil {
		return err
	}
	return runWithRetry(ctx, t.c.retry, func() (err error) {
		_, err = t.c.service.insertTable(ctx, t.ProjectID, t.DatasetID, t.TableID, tm, opt)
		return err
	})
}

// Metadata fetches the metadata for the table.
func (t *Table) Metadata(ctx context.Context, opts ...RequestOption) (md *TableMetadata, err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Table.Metadata")
	defer func() { trace.EndSpan(ctx, err) }()

	opt, err := optionMap(opts...)
	if err != nil {
		return nil, err
	}
	err = runWithRetry(ctx, t.c.retry, func() (err error) {
		md, err = t.c.service.getTable(ctx, t.ProjectID, t.DatasetID, t.TableID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return md, nil
}

// Update modifies specific Table metadata fields.
func (t *Table) Update(ctx context.Context, tm TableMetadataToUpdate, etag string) (md *TableMetadata, err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Table.Update")
	defer func() { trace.EndSpan(ctx, err) }()

	err = runWithRetry(ctx, t.c.retry, func() (err error) {
		md, err = t.c.service.patchTable(ctx, t.ProjectID, t.DatasetID, t.TableID, &tm, etag)
		return err
	})
	if err != nil {
		return nil, err
	}
	return md, nil
}

// Delete deletes the table.
func (t *Table) Delete(ctx context.Context) (err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Table.Delete")
	defer func() { trace.EndSpan(ctx, err) }()

	return runWithRetry(ctx, t.c.retry, func() (err error) {
		return t.c.service.deleteTable(ctx, t.ProjectID, t.DatasetID, t.TableID)
	})
}

// TableMetadataToUpdate is used when updating a table's metadata.
// Only non-nil fields will be updated.
type TableMetadataToUpdate struct {
	Description optional.String // The user-friendly description of this table.
	Name        optional.String // The user-friendly name for this table.

	// Schema is the table's schema. When updating a schema, you can only
	// add columns or relax a column's mode.
	Schema Schema

	// ExpirationTime is the time when this table expires.
	ExpirationTime time.Time

	labelUpdater
}

// Read fetches the contents of the table. The options apply to the
// underlying table data listing calls; each page of rows is fetched with the
// previous response's page token.
func (t *Table) Read(ctx context.Context, opts ...RequestOption) *RowIterator {
	opt, err := optionMap(opts...)
	it := newRowIterator(ctx, t.c, func(ctx context.Context, s service, schema Schema, pageSize int, pageToken string) (res *fetchPageResult, err error) {
		err = runWithRetry(ctx, t.c.retry, func() (err error) {
			res, err = s.readTabledata(ctx, t.ProjectID, t.DatasetID, t.TableID, schema, nextPageOptions(opt, pageSize, pageToken))
			return err
		})
		return res, err
	})
	it.err = err
	startPageToken(it.pageInfo, opt)
	return it
}

// Tables returns an iterator over the tables in the dataset.
func (d *Dataset) Tables(ctx context.Context, opts ...RequestOption) *TableIterator {
	it := &TableIterator{
		ctx:     ctx,
		dataset: d,
	}
	it.opt, it.err = optionMap(opts...)
	it.pageInfo, it.nextFunc = iterator.NewPageInfo(
		it.fetch,
		func() int { return len(it.items) },
		func() interface{} { b := it.items; it.items = nil; return b })
	startPageToken(it.pageInfo, it.opt)
	return it
}

// A TableIterator is an iterator over the tables in a dataset.
type TableIterator struct {
	ctx      context.Context
	dataset  *Dataset
	opt      optionsMap
	err      error
	items    []*Table
	pageInfo *iterator.PageInfo
	nextFunc func() error
}

// Next returns the next Table. Its second return value is iterator.Done if
// there are no more results. Once Next returns Done, all subsequent calls
// will return Done.
func (it *TableIterator) Next() (*Table, error) {
	if err := it.nextFunc(); err != nil {
		return nil, err
	}
	item := it.items[0]
	it.items = it.items[1:]
	return item, nil
}

// PageInfo supports pagination. See the google.golang.org/api/iterator
// package for details.
func (it *TableIterator) PageInfo() *iterator.PageInfo { return it.pageInfo }

func (it *TableIterator) fetch(pageSize int, pageToken string) (string, error) {
	if it.err != nil {
		return "", it.err
	}
	opt := nextPageOptions(it.opt, pageSize, pageToken)
	var tables []*Table
	var token string
	err := runWithRetry(it.ctx, it.dataset.c.retry, func() (err error) {
		tables, token, err = it.dataset.c.service.listTables(it.ctx, it.dataset.ProjectID, it.dataset.DatasetID, opt)
		return err
	})
	if err != nil {
		return "", err
	}
	for _, t := range tables {
		t.c = it.dataset.c
		it.items = append(it.items, t)
	}
	return token, nil
}
