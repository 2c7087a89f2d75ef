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
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

type tableServiceStub struct {
	service

	createdTables []string
	deletedTables []string

	readPages []*fetchPageResult
	readErrs  []error
	readCalls int
	readToks  []string

	listings  [][]string
	listToks  []string
	listCalls int
}

func (s *tableServiceStub) insertTable(ctx context.Context, projectID, datasetID, tableID string, tm *TableMetadata, opt optionsMap) (*TableMetadata, error) {
	s.createdTables = append(s.createdTables, projectID+":"+datasetID+"."+tableID)
	return tm, nil
}

func (s *tableServiceStub) getTable(ctx context.Context, projectID, datasetID, tableID string, opt optionsMap) (*TableMetadata, error) {
	return &TableMetadata{FullID: projectID + ":" + datasetID + "." + tableID}, nil
}

func (s *tableServiceStub) deleteTable(ctx context.Context, projectID, datasetID, tableID string) error {
	s.deletedTables = append(s.deletedTables, projectID+":"+datasetID+"."+tableID)
	return nil
}

func (s *tableServiceStub) readTabledata(ctx context.Context, projectID, datasetID, tableID string, schema Schema, opt optionsMap) (*fetchPageResult, error) {
	tok, _ := opt[pageTokenKind].(string)
	s.readToks = append(s.readToks, tok)
	if len(s.readErrs) > 0 {
		err := s.readErrs[0]
		s.readErrs = s.readErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	if s.readCalls >= len(s.readPages) {
		return nil, errors.New("unexpected readTabledata call")
	}
	res := s.readPages[s.readCalls]
	s.readCalls++
	return res, nil
}

func (s *tableServiceStub) listTables(ctx context.Context, projectID, datasetID string, opt optionsMap) ([]*Table, string, error) {
	if s.listCalls >= len(s.listings) {
		return nil, "", errors.New("unexpected listTables call")
	}
	ids := s.listings[s.listCalls]
	tok := s.listToks[s.listCalls]
	s.listCalls++
	var tables []*Table
	for _, id := range ids {
		tables = append(tables, &Table{ProjectID: projectID, DatasetID: datasetID, TableID: id})
	}
	return tables, tok, nil
}

func TestTableHandle(t *testing.T) {
	c := newTestClient(nil)
	tbl := c.Dataset("ds").Table("tbl")
	if got, want := tbl.FullyQualifiedName(), "client-project-id:ds.tbl"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTableCreateDelete(t *testing.T) {
	ctx := context.Background()
	s := &tableServiceStub{}
	c := newTestClient(s)
	tbl := c.Dataset("ds").Table("tbl")

	if err := tbl.Create(ctx, &TableMetadata{Name: "friendly"}); err != nil {
		t.Fatal(err)
	}
	if got, want := s.createdTables, []string{"client-project-id:ds.tbl"}; !cmp.Equal(got, want) {
		t.Errorf("created %v, want %v", got, want)
	}

	if err := tbl.Delete(ctx); err != nil {
		t.Fatal(err)
	}
	if got, want := s.deletedTables, []string{"client-project-id:ds.tbl"}; !cmp.Equal(got, want) {
		t.Errorf("deleted %v, want %v", got, want)
	}
}

var testReadSchema = Schema{
	{Name: "name", Type: StringFieldType},
}

func readPage(token string, names ...string) *fetchPageResult {
	res := &fetchPageResult{
		pageToken: token,
		schema:    testReadSchema,
		totalRows: 4,
	}
	for _, n := range names {
		res.rows = append(res.rows, []Value{n})
	}
	return res
}

func TestTableRead(t *testing.T) {
	ctx := context.Background()
	s := &tableServiceStub{
		readPages: []*fetchPageResult{
			readPage("t1", "a", "b"),
			readPage("t2", "c"),
			readPage("", "d"),
		},
	}
	c := newTestClient(s)

	it := c.Dataset("ds").Table("tbl").Read(ctx)
	var got []string
	for {
		var vals []Value
		err := it.Next(&vals)
		if err == iterator.Done {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, vals[0].(string))
	}
	if want := []string{"a", "b", "c", "d"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	// One remote call per page of the result, no more.
	if s.readCalls != 3 {
		t.Errorf("made %d read calls, want 3", s.readCalls)
	}
	if want := []string{"", "t1", "t2"}; !cmp.Equal(s.readToks, want) {
		t.Errorf("got tokens %v, want %v", s.readToks, want)
	}
	if got, want := it.TotalRows, uint64(4); got != want {
		t.Errorf("got TotalRows %d, want %d", got, want)
	}
	if diff := cmp.Diff(it.Schema, testReadSchema); diff != "" {
		t.Errorf("schema: got=-, want=+:\n%s", diff)
	}
}

func TestTableReadStartPageToken(t *testing.T) {
	ctx := context.Background()
	s := &tableServiceStub{
		readPages: []*fetchPageResult{
			readPage("t2", "c"),
			readPage("", "d"),
		},
	}
	c := newTestClient(s)

	// A caller-supplied PageToken resumes the read mid-stream.
	it := c.Dataset("ds").Table("tbl").Read(ctx, PageToken("t1"))
	var got []string
	for {
		var vals []Value
		err := it.Next(&vals)
		if err == iterator.Done {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		got = append(got, vals[0].(string))
	}
	if want := []string{"c", "d"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if want := []string{"t1", "t2"}; !cmp.Equal(s.readToks, want) {
		t.Errorf("got tokens %v, want %v", s.readToks, want)
	}
}

func TestTableReadRetries(t *testing.T) {
	ctx := context.Background()
	s := &tableServiceStub{
		readPages: []*fetchPageResult{readPage("", "a")},
		readErrs:  []error{&googleapi.Error{Code: 503}},
	}
	c := newTestClient(s)

	it := c.Dataset("ds").Table("tbl").Read(ctx)
	var vals []Value
	if err := it.Next(&vals); err != nil {
		t.Fatal(err)
	}
	// The transient failure and its retry both carry the same (empty) page
	// token: a failed fetch is re-sent, not skipped.
	if want := []string{"", ""}; !cmp.Equal(s.readToks, want) {
		t.Errorf("got tokens %v, want %v", s.readToks, want)
	}
}

func TestTableReadBadOptions(t *testing.T) {
	ctx := context.Background()
	s := &tableServiceStub{}
	c := newTestClient(s)

	it := c.Dataset("ds").Table("tbl").Read(ctx, PageToken("a"), PageToken("b"))
	var vals []Value
	if err := it.Next(&vals); err == nil || err == iterator.Done {
		t.Errorf("got %v, want duplicate option error", err)
	}
	if s.readCalls != 0 {
		t.Errorf("made %d read calls, want 0", s.readCalls)
	}
}

func TestTableIterator(t *testing.T) {
	ctx := context.Background()
	s := &tableServiceStub{
		listings: [][]string{{"t1", "t2"}, {"t3"}},
		listToks: []string{"tok", ""},
	}
	c := newTestClient(s)

	it := c.Dataset("ds").Tables(ctx)
	var got []string
	for {
		tbl, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if tbl.c != c {
			t.Error("iterator did not populate the table's client")
		}
		got = append(got, tbl.TableID)
	}
	if want := []string{"t1", "t2", "t3"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if s.listCalls != 2 {
		t.Errorf("made %d list calls, want 2", s.listCalls)
	}
}
