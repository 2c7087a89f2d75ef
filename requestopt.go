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
	"fmt"
	"time"

	"google.golang.org/api/iterator"
)

// optionKind identifies the request parameter a RequestOption sets.
type optionKind int

const (
	pageTokenKind optionKind = iota
	maxResultsKind
	fieldsKind
	allDatasetsKind
	datasetFilterKind
	stateFilterKind
	allUsersKind
	startIndexKind
	maxWaitKind
	deleteContentsKind
)

var optionKindNames = map[optionKind]string{
	pageTokenKind:      "PageToken",
	maxResultsKind:     "MaxResults",
	fieldsKind:         "Fields",
	allDatasetsKind:    "AllDatasets",
	datasetFilterKind:  "DatasetFilter",
	stateFilterKind:    "StateFilter",
	allUsersKind:       "AllUsers",
	startIndexKind:     "StartIndex",
	maxWaitKind:        "MaxWait",
	deleteContentsKind: "DeleteContents",
}

func (k optionKind) String() string {
	if n, ok := optionKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("optionKind(%d)", int(k))
}

// A RequestOption modifies a single call to the service. Each option sets
// exactly one request parameter; passing two options that set the same
// parameter to one call is an error.
type RequestOption struct {
	kind  optionKind
	value interface{}
}

func (o RequestOption) String() string {
	return fmt.Sprintf("%s(%v)", o.kind, o.value)
}

// MaxResults returns a RequestOption that limits the number of results
// returned per page of a listing call.
func MaxResults(n int64) RequestOption {
	return RequestOption{kind: maxResultsKind, value: n}
}

// PageToken returns a RequestOption that sets the page to return from a
// listing call. The token must have been obtained from a previous response;
// its contents are opaque.
func PageToken(token string) RequestOption {
	return RequestOption{kind: pageTokenKind, value: token}
}

// Fields returns a RequestOption that restricts which fields of a resource
// the service includes in its response.
func Fields(fields ...string) RequestOption {
	return RequestOption{kind: fieldsKind, value: fields}
}

// AllDatasets returns a RequestOption that causes dataset listing calls to
// include hidden datasets.
func AllDatasets() RequestOption {
	return RequestOption{kind: allDatasetsKind, value: true}
}

// DatasetFilter returns a RequestOption that restricts dataset listing calls
// to datasets with the given label filter expression.
func DatasetFilter(filter string) RequestOption {
	return RequestOption{kind: datasetFilterKind, value: filter}
}

// StateFilter returns a RequestOption that restricts job listing calls to
// jobs in the given states.
func StateFilter(states ...State) RequestOption {
	return RequestOption{kind: stateFilterKind, value: states}
}

// AllUsers returns a RequestOption that causes job listing calls to include
// jobs owned by all users in the project, not just the caller.
func AllUsers() RequestOption {
	return RequestOption{kind: allUsersKind, value: true}
}

// StartIndex returns a RequestOption that sets the zero-based row to start
// reading from for table data and query result reads.
func StartIndex(i uint64) RequestOption {
	return RequestOption{kind: startIndexKind, value: i}
}

// DeleteContents returns a RequestOption that causes a dataset deletion to
// also delete the dataset's tables. Without it, deleting a non-empty dataset
// fails.
func DeleteContents() RequestOption {
	return RequestOption{kind: deleteContentsKind, value: true}
}

// MaxWait returns a RequestOption that bounds how long a call waiting for
// query job completion will block. When the budget is spent before the job
// completes, the call fails with an error matching ErrJobWaitTimeout; the
// job may still be running on the service.
func MaxWait(d time.Duration) RequestOption {
	return RequestOption{kind: maxWaitKind, value: d}
}

// optionsMap holds the flattened request modifiers for one call, keyed by
// kind.
type optionsMap map[optionKind]interface{}

// optionMap flattens opts, failing if the same kind appears twice. The
// duplicate check is explicit rather than last-write-wins so that a
// misconfigured call fails before anything is sent to the service.
func optionMap(opts ...RequestOption) (optionsMap, error) {
	m := make(optionsMap, len(opts))
	for _, o := range opts {
		if _, ok := m[o.kind]; ok {
			return nil, fmt.Errorf("bigquery: duplicate option %s", o)
		}
		m[o.kind] = o.value
	}
	return m, nil
}

// nextPageOptions returns the option map for the next page of a listing
// call: the original options with the page token replaced by the cursor from
// the previous response, and the page size replaced when the iterator
// specifies one. The receiver is not modified.
func nextPageOptions(opt optionsMap, pageSize int, pageToken string) optionsMap {
	m := make(optionsMap, len(opt)+2)
	for k, v := range opt {
		m[k] = v
	}
	if pageSize > 0 {
		m[maxResultsKind] = int64(pageSize)
	}
	if pageToken == "" {
		delete(m, pageTokenKind)
	} else {
		m[pageTokenKind] = pageToken
	}
	return m
}

// startPageToken seeds an iterator's cursor from a caller-supplied PageToken
// option, so the first fetch resumes from that page. Later fetches use the
// cursor from the previous response.
func startPageToken(pi *iterator.PageInfo, opt optionsMap) {
	if tok, ok := opt[pageTokenKind].(string); ok {
		pi.Token = tok
	}
}
