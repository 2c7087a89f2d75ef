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
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	bq "google.golang.org/api/bigquery/v2"
)

func TestBQToError(t *testing.T) {
	if got := bqToError(nil); got != nil {
		t.Errorf("got %v, want nil", got)
	}
	got := bqToError(&bq.ErrorProto{
		Location: "loc",
		Message:  "msg",
		Reason:   "reason",
	})
	want := &Error{Location: "loc", Message: "msg", Reason: "reason"}
	if diff := cmp.Diff(got, want); diff != "" {
		t.Errorf("got=-, want=+:\n%s", diff)
	}
}

func TestMultiErrorMessage(t *testing.T) {
	for _, tc := range []struct {
		m    MultiError
		want string
	}{
		{nil, "(0 errors)"},
		{MultiError{errors.New("a")}, "a"},
		{MultiError{errors.New("a"), errors.New("b")}, "a (and 1 other error)"},
		{MultiError{errors.New("a"), errors.New("b"), errors.New("c")}, "a (and 2 other errors)"},
	} {
		if got := tc.m.Error(); got != tc.want {
			t.Errorf("got %q, want %q", got, tc.want)
		}
	}
}

func TestPutMultiErrorMessage(t *testing.T) {
	one := PutMultiError{RowInsertionError{InsertID: "a", RowIndex: 0}}
	if got := one.Error(); !strings.Contains(got, "1 row insertion failed") {
		t.Errorf("got %q, want singular message", got)
	}
	two := PutMultiError{
		RowInsertionError{InsertID: "a", RowIndex: 0},
		RowInsertionError{InsertID: "b", RowIndex: 1},
	}
	if got := two.Error(); !strings.Contains(got, "2 row insertions failed") {
		t.Errorf("got %q, want plural message", got)
	}
}

func TestRowInsertionErrorMessage(t *testing.T) {
	e := &RowInsertionError{
		InsertID: "id",
		RowIndex: 3,
		Errors:   MultiError{&Error{Reason: "invalid"}},
	}
	got := e.Error()
	for _, want := range []string{"id", "3", "invalid"} {
		if !strings.Contains(got, want) {
			t.Errorf("error message %q does not mention %q", got, want)
		}
	}
}
