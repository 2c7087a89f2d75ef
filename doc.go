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

/*
Package bigquery provides a client for the BigQuery service.

# Creating a Client

To start working with this package, create a client:

	ctx := context.Background()
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		// TODO: Handle error.
	}

Operations performed via the client are billed to the given project, and
partially specified dataset, table and job references are completed with its
project ID before any request is issued.

# Querying

To query existing tables, create a Query and call its Read method:

	q := client.Query(`
		SELECT year, SUM(number) as num
		FROM bigquery-public-data.usa_names.usa_1910_2013
		WHERE name = "William"
		GROUP BY year
		ORDER BY year
	`)
	it, err := q.Read(ctx)
	if err != nil {
		// TODO: Handle error.
	}

Read submits the query as an asynchronous job and blocks, polling with
backoff, until the job completes. Then iterate over the results:

	for {
		var values []bigquery.Value
		err := it.Next(&values)
		if err == iterator.Done {
			break
		}
		if err != nil {
			// TODO: Handle error.
		}
		fmt.Println(values)
	}

# Listing and pagination

Listing calls (Datasets, Tables, Jobs, table reads) return iterators that
fetch one page of results at a time. The page token returned by the service
is opaque; it is threaded into the next list request unchanged. For explicit
page-at-a-time access, use iterator.NewPager with any of this package's
iterators.

# Errors and retries

Transient failures (rate limits, backend errors, 5xx responses, connection
resets) are retried automatically with exponential backoff; other failures
are returned immediately. Use SetRetry to customize the backoff or the
predicate deciding which errors are retried, and WithMaxRetries to bound the
attempt budget. Streaming inserts are never retried by the client: the
response reports per-row errors and the caller decides what to resend.
*/
package bigquery // import "github.com/ahmedalikamal/bigquery-go"
