// Copyright 2015 Google LLC
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
	"reflect"

	"github.com/ahmedalikamal/bigquery-go/internal/trace"
)

// An Inserter does streaming inserts into a BigQuery table.
// It is safe for concurrent use.
type Inserter struct {
	t *Table

	// SkipInvalidRows causes rows containing invalid data to be silently
	// ignored. The default value is false, which causes the entire request
	// to fail if there is an attempt to insert an invalid row.
	SkipInvalidRows bool

	// IgnoreUnknownValues causes values not matching the schema to be
	// ignored. The default value is false, which causes records containing
	// such values to be treated as invalid records.
	IgnoreUnknownValues bool

	// A TableTemplateSuffix allows Inserters to create tables automatically.
	//
	// Experimental: this option is experimental and may be modified or
	// removed in future versions, regardless of any other documented package
	// stability guarantees.
	//
	// When you specify a suffix, the table you upload data to will be used
	// as a template for creating a new table, with the same schema, called
	// <table> + <suffix>.
	//
	// More information is available at
	// https://cloud.google.com/bigquery/streaming-data-into-bigquery#template-tables
	TableTemplateSuffix string
}

// Inserter returns an Inserter that can be used to append rows to t.
// The returned Inserter may optionally be further configured before its Put
// method is called.
func (t *Table) Inserter() *Inserter {
	return &Inserter{t: t}
}

// A ValueSaver returns a row of data to be inserted into a table.
type ValueSaver interface {
	// Save returns a row to be inserted into a BigQuery table, represented
	// as a map from field name to Value.
	// If insertID is non-empty, BigQuery will use it to de-duplicate
	// insertions of this row on a best-effort basis.
	Save() (row map[string]Value, insertID string, err error)
}

// An insertionRow represents one row of data to be inserted into a table.
type insertionRow struct {
	// If InsertID is non-empty, BigQuery will use it to de-duplicate
	// insertions of this row on a best-effort basis.
	InsertID string
	// The data to be inserted, represented as a map from field name to
	// Value.
	Row map[string]Value
}

// Put uploads one or more rows to the BigQuery service.
//
// If src is ValueSaver, then its Save method is called to produce a row for
// uploading. src can also be a slice of ValueSavers, in which case a single
// call will be made to insert multiple rows.
//
// Put never retries the upload, even on transient failure: the service
// applies rows it received before reporting an error, so a blind retry
// could write duplicates. Callers who want retry semantics should set
// insert IDs via ValueSaver and re-invoke Put themselves.
//
// Put returns a PutMultiError if one or more rows failed to be uploaded.
// The PutMultiError contains a RowInsertionError for each failed row.
func (ins *Inserter) Put(ctx context.Context, src interface{}) (err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Inserter.Put")
	defer func() { trace.EndSpan(ctx, err) }()

	savers, err := valueSavers(src)
	if err != nil {
		return err
	}
	var rows []*insertionRow
	for _, saver := range savers {
		row, insertID, err := saver.Save()
		if err != nil {
			return err
		}
		rows = append(rows, &insertionRow{InsertID: insertID, Row: row})
	}
	return ins.t.c.service.insertRows(ctx, ins.t.ProjectID, ins.t.DatasetID, ins.t.TableID, rows, &insertRowsConf{
		skipInvalidRows:     ins.SkipInvalidRows,
		ignoreUnknownValues: ins.IgnoreUnknownValues,
		templateSuffix:      ins.TableTemplateSuffix,
	})
}

func valueSavers(src interface{}) ([]ValueSaver, error) {
	if saver, ok := src.(ValueSaver); ok {
		return []ValueSaver{saver}, nil
	}
	srcVal := reflect.ValueOf(src)
	if srcVal.Kind() != reflect.Slice {
		return nil, fmt.Errorf("bigquery: src must be a ValueSaver or a slice of ValueSavers; got %T", src)
	}
	savers := make([]ValueSaver, 0, srcVal.Len())
	for i := 0; i < srcVal.Len(); i++ {
		s := srcVal.Index(i).Interface()
		saver, ok := s.(ValueSaver)
		if !ok {
			return nil, fmt.Errorf("bigquery: src element %d must be a ValueSaver; got %T", i, s)
		}
		savers = append(savers, saver)
	}
	return savers, nil
}
