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

	"github.com/ahmedalikamal/bigquery-go/internal/trace"
	"github.com/google/uuid"
	bq "google.golang.org/api/bigquery/v2"
)

// QueryPriority specifies a priority with which a query is to be executed.
type QueryPriority string

const (
	// BatchPriority specifies that the query should be scheduled with the
	// batch priority. BigQuery queues each batch query on your behalf, and
	// starts the query as soon as idle resources are available. Batch
	// queries don't count towards your concurrent rate limit.
	BatchPriority QueryPriority = "BATCH"
	// InteractivePriority specifies that the query should be scheduled with
	// interactive priority, which means that the query is executed as soon
	// as possible. Interactive queries count towards your concurrent rate
	// limit and your daily limit. It is the default priority.
	InteractivePriority QueryPriority = "INTERACTIVE"
)

// QueryConfig holds the configuration for a query job.
type QueryConfig struct {
	// Q is the query string to execute.
	Q string

	// DefaultDatasetID specifies the default dataset to use for unqualified
	// table names in the query. If DefaultDatasetID is not set, all table
	// names in the query string must be qualified with a dataset.
	DefaultDatasetID string

	// DisableQueryCache prevents results being fetched from the query
	// cache. If this field is false, results are fetched from the cache if
	// they are available. The query cache is a best-effort cache that is
	// flushed whenever tables in the query are modified.
	DisableQueryCache bool

	// AllowLargeResults allows the query to produce arbitrarily large
	// result tables.
	AllowLargeResults bool

	// Priority specifies the priority with which to schedule the query.
	// The default priority is InteractivePriority.
	Priority QueryPriority
}

// toBQ converts the QueryConfig into the request body for a job insertion.
func (q *QueryConfig) toBQ(projectID, jobID string) *bq.Job {
	query := &bq.JobConfigurationQuery{
		Query:             q.Q,
		Priority:          string(q.Priority),
		AllowLargeResults: q.AllowLargeResults,
	}
	// UseQueryCache defaults to true in the service, so it must always be
	// sent explicitly.
	useCache := !q.DisableQueryCache
	query.UseQueryCache = &useCache
	if q.DefaultDatasetID != "" {
		query.DefaultDataset = &bq.DatasetReference{
			ProjectId: projectID,
			DatasetId: q.DefaultDatasetID,
		}
	}
	return &bq.Job{
		JobReference: &bq.JobReference{
			ProjectId: projectID,
			JobId:     jobID,
		},
		Configuration: &bq.JobConfiguration{
			Query: query,
		},
	}
}

// A Query queries data from a BigQuery table. Use Client.Query to create a
// Query and call its Run or Read methods.
type Query struct {
	QueryConfig

	client *Client
}

// Query creates a query with string q.
// The returned Query may optionally be further configured before its Run
// method is called.
func (c *Client) Query(q string) *Query {
	return &Query{
		QueryConfig: QueryConfig{Q: q},
		client:      c,
	}
}

// Run initiates a query job.
func (q *Query) Run(ctx context.Context) (j *Job, err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Query.Run")
	defer func() { trace.EndSpan(ctx, err) }()

	// A client-generated job ID makes the insert idempotent, so it is
	// safe to retry.
	jobID := uuid.New().String()
	err = runWithRetryExplicit(ctx, q.client.retry, func() (err error) {
		j, err = q.client.service.insertQueryJob(ctx, q.client.projectID, jobID, &q.QueryConfig)
		return err
	}, jobRetryReasons)
	if err != nil {
		return nil, err
	}
	j.c = q.client
	return j, nil
}

// Read submits a query for execution and returns the results via a
// RowIterator. It is a shorthand for Query.Run followed by Job.Read.
func (q *Query) Read(ctx context.Context, opts ...RequestOption) (*RowIterator, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return nil, err
	}
	return job.Read(ctx, opts...)
}
