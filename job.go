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
	"errors"
	"time"

	"github.com/ahmedalikamal/bigquery-go/internal"
	"github.com/ahmedalikamal/bigquery-go/internal/trace"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/iterator"
)

// A Job represents an operation which has been submitted for processing.
type Job struct {
	c         *Client
	projectID string
	jobID     string

	isQuery bool
}

// JobFromID creates a Job which refers to an existing BigQuery job. The job
// need not have been created by this package. For example, the job may have
// been created in the BigQuery console.
func (c *Client) JobFromID(ctx context.Context, id string) (j *Job, err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Client.JobFromID")
	defer func() { trace.EndSpan(ctx, err) }()

	err = runWithRetry(ctx, c.retry, func() (err error) {
		j, err = c.service.getJob(ctx, c.projectID, id, nil)
		return err
	})
	if err != nil {
		return nil, err
	}
	j.c = c
	return j, nil
}

// ID returns the job's ID.
func (j *Job) ID() string {
	return j.jobID
}

// State is one of a sequence of states that a Job progresses through as it is
// processed.
type State int

const (
	// StateUnspecified is the default JobIterator state.
	StateUnspecified State = iota
	// Pending is a state that describes that the job is pending.
	Pending
	// Running is a state that describes that the job is running.
	Running
	// Done is a state that describes that the job is done.
	Done
)

// stateFilterValue is the wire representation of a State in a job listing
// filter.
func (s State) stateFilterValue() string {
	switch s {
	case Pending:
		return "pending"
	case Running:
		return "running"
	default:
		return "done"
	}
}

// JobStatus contains the current State of a job, and errors encountered
// while processing that job.
type JobStatus struct {
	State State

	err error

	// All errors encountered during the running of the job. Not all Errors
	// are fatal, so errors here do not necessarily mean that the job has
	// completed or was unsuccessful.
	Errors []*Error

	// Statistics about the job.
	Statistics *JobStatistics
}

// JobStatistics contains statistics about a job.
type JobStatistics struct {
	CreationTime        time.Time
	StartTime           time.Time
	EndTime             time.Time
	TotalBytesProcessed int64
}

// Done reports whether the job has completed.
// After Done returns true, the Err method will return an error if the job
// completed unsuccessfully.
func (s *JobStatus) Done() bool {
	return s.State == Done
}

// Err returns the error that caused the job to complete unsuccessfully (if
// any).
func (s *JobStatus) Err() error {
	return s.err
}

// Status retrieves the current status of the job from BigQuery. It fails if
// the Status could not be determined.
func (j *Job) Status(ctx context.Context) (js *JobStatus, err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Job.Status")
	defer func() { trace.EndSpan(ctx, err) }()

	err = runWithRetry(ctx, j.c.retry, func() (err error) {
		js, err = j.c.service.jobStatus(ctx, j.projectID, j.jobID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return js, nil
}

// Cancel requests that a job be cancelled. This method returns without
// waiting for cancellation to take effect. To check whether the job has
// terminated, use Job.Status. Cancelled jobs may still incur costs.
func (j *Job) Cancel(ctx context.Context) (err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Job.Cancel")
	defer func() { trace.EndSpan(ctx, err) }()

	// Jobs.Cancel returns a job entity, but the only relevant piece of
	// its state is the status. Errors are not part of the response.
	return runWithRetry(ctx, j.c.retry, func() (err error) {
		return j.c.service.cancelJob(ctx, j.projectID, j.jobID)
	})
}

// ErrJobWaitTimeout is returned by Job.Wait when the wait budget supplied
// with MaxWait elapses before the job completes. The job itself keeps
// running; only the wait is abandoned.
var ErrJobWaitTimeout = errors.New("bigquery: timed out waiting for job to complete")

// Hooks for testing.
var (
	timeNow = time.Now

	// Polling for job completion backs off independently of call retries.
	defaultWaitBackoff = gax.Backoff{
		Initial:    1 * time.Second,
		Max:        60 * time.Second,
		Multiplier: 1.3,
	}
)

// Wait blocks until the job or the context is done. It returns the final
// status of the job. If an error occurs while retrieving the status, Wait
// returns that error. But Wait returns nil if the status was retrieved
// successfully, even if status.Err() != nil. So callers must check both
// errors. See the example for Job.Wait.
//
// If a MaxWait option is supplied and the job is still not done when that
// budget elapses, Wait returns an error matching ErrJobWaitTimeout.
func (j *Job) Wait(ctx context.Context, opts ...RequestOption) (js *JobStatus, err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Job.Wait")
	defer func() { trace.EndSpan(ctx, err) }()

	opt, err := optionMap(opts...)
	if err != nil {
		return nil, err
	}
	var deadline time.Time
	if d, ok := opt[maxWaitKind].(time.Duration); ok {
		deadline = timeNow().Add(d)
	}
	if j.isQuery {
		// Use jobs.getQueryResults, which blocks server-side between
		// polls, instead of repeatedly hitting jobs.get.
		if err := j.waitForQuery(ctx, opt, deadline); err != nil {
			return nil, err
		}
		// Even though getQueryResults blocks until the job is done, we
		// still need a call to jobStatus to get the job error, if any.
	}
	err = internal.Retry(ctx, defaultWaitBackoff, func() (stop bool, err error) {
		js, err = j.Status(ctx)
		if err != nil {
			return true, err
		}
		if js.Done() {
			return true, nil
		}
		if !deadline.IsZero() && !timeNow().Before(deadline) {
			return true, ErrJobWaitTimeout
		}
		trace.TracePrintf(ctx, map[string]interface{}{"job_id": j.jobID}, "job not yet done, backing off")
		return false, nil
	})
	if err != nil {
		return nil, err
	}
	return js, nil
}

// waitForQuery polls the query job's results until the backend reports the
// job complete.
func (j *Job) waitForQuery(ctx context.Context, opt optionsMap, deadline time.Time) error {
	// Only fetch the job's completeness; rows come later through Read.
	opt = nextPageOptions(opt, 0, "")
	opt[maxResultsKind] = int64(0)
	return internal.Retry(ctx, defaultWaitBackoff, func() (stop bool, err error) {
		res, err := j.c.service.getQueryResults(ctx, j.projectID, j.jobID, opt)
		if err != nil {
			return !retryableError(err, jobRetryReasons), err
		}
		if res.jobComplete {
			return true, nil
		}
		if !deadline.IsZero() && !timeNow().Before(deadline) {
			return true, ErrJobWaitTimeout
		}
		trace.TracePrintf(ctx, map[string]interface{}{"job_id": j.jobID}, "query job not yet complete, backing off")
		return false, nil
	})
}

// errIncompleteJob surfaces when query results are read before the job has
// finished running.
var errIncompleteJob = errors.New("bigquery: query job not yet complete")

// Read fetches the results of a query job.
// If the job is not yet done, Read blocks, polling with backoff, until it
// is. A MaxWait option bounds that wait the same way it does for Job.Wait.
func (j *Job) Read(ctx context.Context, opts ...RequestOption) (ri *RowIterator, err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Job.Read")
	defer func() { trace.EndSpan(ctx, err) }()

	opt, err := optionMap(opts...)
	if err != nil {
		return nil, err
	}
	if !j.isQuery {
		return nil, errors.New("bigquery: cannot read from a non-query job")
	}
	var deadline time.Time
	if d, ok := opt[maxWaitKind].(time.Duration); ok {
		deadline = timeNow().Add(d)
	}
	if err := j.waitForQuery(ctx, opt, deadline); err != nil {
		return nil, err
	}
	it := newRowIterator(ctx, j.c, func(ctx context.Context, s service, schema Schema, pageSize int, pageToken string) (res *fetchPageResult, err error) {
		var qp *queryResultsPage
		err = runWithRetryExplicit(ctx, j.c.retry, func() (err error) {
			qp, err = s.getQueryResults(ctx, j.projectID, j.jobID, nextPageOptions(opt, pageSize, pageToken))
			return err
		}, jobRetryReasons)
		if err != nil {
			return nil, err
		}
		if !qp.jobComplete {
			return nil, errIncompleteJob
		}
		return &fetchPageResult{
			pageToken:  qp.pageToken,
			rows:       qp.rows,
			totalRows:  qp.totalRows,
			schema:     qp.schema,
			cacheHit:   qp.cacheHit,
			execErrors: qp.execErrors,
		}, nil
	})
	startPageToken(it.pageInfo, opt)
	return it, nil
}

// Jobs lists jobs within a project.
func (c *Client) Jobs(ctx context.Context, opts ...RequestOption) *JobIterator {
	it := &JobIterator{
		ctx: ctx,
		c:   c,
	}
	it.opt, it.err = optionMap(opts...)
	it.pageInfo, it.nextFunc = iterator.NewPageInfo(
		it.fetch,
		func() int { return len(it.items) },
		func() interface{} { b := it.items; it.items = nil; return b })
	startPageToken(it.pageInfo, it.opt)
	return it
}

// JobIterator iterates over jobs in a project.
type JobIterator struct {
	ctx      context.Context
	c        *Client
	opt      optionsMap
	err      error
	items    []*Job
	pageInfo *iterator.PageInfo
	nextFunc func() error
}

// Next returns the next Job. Its second return value is iterator.Done if
// there are no more results.
func (it *JobIterator) Next() (*Job, error) {
	if err := it.nextFunc(); err != nil {
		return nil, err
	}
	item := it.items[0]
	it.items = it.items[1:]
	return item, nil
}

// PageInfo supports pagination. See the google.golang.org/api/iterator
// package for details.
func (it *JobIterator) PageInfo() *iterator.PageInfo { return it.pageInfo }

func (it *JobIterator) fetch(pageSize int, pageToken string) (string, error) {
	if it.err != nil {
		return "", it.err
	}
	opt := nextPageOptions(it.opt, pageSize, pageToken)
	var jobs []*Job
	var token string
	err := runWithRetry(it.ctx, it.c.retry, func() (err error) {
		jobs, token, err = it.c.service.listJobs(it.ctx, it.c.projectID, opt)
		return err
	})
	if err != nil {
		return "", err
	}
	for _, j := range jobs {
		j.c = it.c
		it.items = append(it.items, j)
	}
	return token, nil
}
