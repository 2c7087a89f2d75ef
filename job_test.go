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
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	gax "github.com/googleapis/gax-go/v2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"
)

type jobServiceStub struct {
	service

	// statuses are returned from jobStatus in order; the last one repeats.
	statuses    []*JobStatus
	statusErrs  []error
	statusCalls int

	// queryResults are returned from getQueryResults in order; the last
	// one repeats.
	queryResults []*queryResultsPage
	queryErrs    []error
	queryCalls   int
	queryToks    []string

	cancelled []string

	jobListings [][]string
	listToks    []string
	listCalls   int
	listOpts    []optionsMap
}

func (s *jobServiceStub) getJob(ctx context.Context, projectID, jobID string, opt optionsMap) (*Job, error) {
	return &Job{projectID: projectID, jobID: jobID, isQuery: true}, nil
}

func (s *jobServiceStub) jobStatus(ctx context.Context, projectID, jobID string) (*JobStatus, error) {
	i := s.statusCalls
	s.statusCalls++
	if i < len(s.statusErrs) && s.statusErrs[i] != nil {
		return nil, s.statusErrs[i]
	}
	if i >= len(s.statuses) {
		i = len(s.statuses) - 1
	}
	return s.statuses[i], nil
}

func (s *jobServiceStub) getQueryResults(ctx context.Context, projectID, jobID string, opt optionsMap) (*queryResultsPage, error) {
	tok, _ := opt[pageTokenKind].(string)
	s.queryToks = append(s.queryToks, tok)
	i := s.queryCalls
	s.queryCalls++
	if i < len(s.queryErrs) && s.queryErrs[i] != nil {
		return nil, s.queryErrs[i]
	}
	if i >= len(s.queryResults) {
		i = len(s.queryResults) - 1
	}
	return s.queryResults[i], nil
}

func (s *jobServiceStub) cancelJob(ctx context.Context, projectID, jobID string) error {
	s.cancelled = append(s.cancelled, jobID)
	return nil
}

func (s *jobServiceStub) listJobs(ctx context.Context, projectID string, opt optionsMap) ([]*Job, string, error) {
	if s.listCalls >= len(s.jobListings) {
		return nil, "", errors.New("unexpected listJobs call")
	}
	ids := s.jobListings[s.listCalls]
	tok := s.listToks[s.listCalls]
	s.listCalls++
	s.listOpts = append(s.listOpts, opt)
	var jobs []*Job
	for _, id := range ids {
		jobs = append(jobs, &Job{projectID: projectID, jobID: id})
	}
	return jobs, tok, nil
}

// useFastPolling shrinks the job polling backoff for the duration of a test.
func useFastPolling(t *testing.T) {
	t.Helper()
	saved := defaultWaitBackoff
	defaultWaitBackoff = gax.Backoff{Initial: time.Nanosecond, Max: time.Nanosecond, Multiplier: 2}
	t.Cleanup(func() { defaultWaitBackoff = saved })
}

// useFakeClock replaces the wall clock with one that advances by step on
// every reading.
func useFakeClock(t *testing.T, step time.Duration) {
	t.Helper()
	saved := timeNow
	now := time.Unix(0, 0)
	timeNow = func() time.Time {
		now = now.Add(step)
		return now
	}
	t.Cleanup(func() { timeNow = saved })
}

func TestJobFromID(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(&jobServiceStub{})

	j, err := c.JobFromID(ctx, "the-job")
	if err != nil {
		t.Fatal(err)
	}
	if got, want := j.ID(), "the-job"; got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if j.c != c {
		t.Error("job's client not populated")
	}
}

func TestJobStatus(t *testing.T) {
	ctx := context.Background()
	wantErr := &Error{Reason: "invalidQuery", Message: "bad syntax"}
	s := &jobServiceStub{
		statuses: []*JobStatus{{State: Done, err: wantErr}},
	}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job"}

	js, err := j.Status(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !js.Done() {
		t.Error("got not done, want done")
	}
	if got := js.Err(); got != wantErr {
		t.Errorf("got %v, want %v", got, wantErr)
	}
}

func TestJobCancel(t *testing.T) {
	ctx := context.Background()
	s := &jobServiceStub{}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job"}

	if err := j.Cancel(ctx); err != nil {
		t.Fatal(err)
	}
	if want := []string{"job"}; !cmp.Equal(s.cancelled, want) {
		t.Errorf("cancelled %v, want %v", s.cancelled, want)
	}
}

func TestJobWait(t *testing.T) {
	useFastPolling(t)
	ctx := context.Background()
	s := &jobServiceStub{
		statuses: []*JobStatus{
			{State: Pending},
			{State: Running},
			{State: Done},
		},
	}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job"}

	js, err := j.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !js.Done() {
		t.Error("got not done, want done")
	}
	if s.statusCalls != 3 {
		t.Errorf("made %d status calls, want 3", s.statusCalls)
	}
}

func TestJobWaitQuery(t *testing.T) {
	useFastPolling(t)
	ctx := context.Background()
	s := &jobServiceStub{
		queryResults: []*queryResultsPage{
			{jobComplete: false},
			{jobComplete: false},
			{jobComplete: true},
		},
		statuses: []*JobStatus{{State: Done}},
	}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job", isQuery: true}

	js, err := j.Wait(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !js.Done() {
		t.Error("got not done, want done")
	}
	if s.queryCalls != 3 {
		t.Errorf("made %d getQueryResults calls, want 3", s.queryCalls)
	}
	if s.statusCalls != 1 {
		t.Errorf("made %d status calls, want 1", s.statusCalls)
	}
}

func TestJobWaitRetriesTransientErrors(t *testing.T) {
	useFastPolling(t)
	ctx := context.Background()
	s := &jobServiceStub{
		queryErrs: []error{
			&googleapi.Error{Code: 503},
			&googleapi.Error{
				Code:   200,
				Errors: []googleapi.ErrorItem{{Reason: "internalError"}},
			},
		},
		queryResults: []*queryResultsPage{
			nil, nil,
			{jobComplete: true},
		},
		statuses: []*JobStatus{{State: Done}},
	}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job", isQuery: true}

	if _, err := j.Wait(ctx); err != nil {
		t.Fatal(err)
	}
	if s.queryCalls != 3 {
		t.Errorf("made %d getQueryResults calls, want 3", s.queryCalls)
	}
}

func TestJobWaitTimeout(t *testing.T) {
	useFastPolling(t)
	useFakeClock(t, time.Second)
	ctx := context.Background()
	s := &jobServiceStub{
		statuses: []*JobStatus{{State: Running}},
	}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job"}

	_, err := j.Wait(ctx, MaxWait(3*time.Second))
	if !errors.Is(err, ErrJobWaitTimeout) {
		t.Fatalf("got %v, want ErrJobWaitTimeout", err)
	}
	// A timed-out wait is not a retry failure: the error says plainly that
	// the budget was spent, not that attempts were exhausted.
	var re *RetryExhaustedError
	if errors.As(err, &re) {
		t.Error("got RetryExhaustedError, want plain timeout")
	}
}

func TestJobWaitQueryTimeout(t *testing.T) {
	useFastPolling(t)
	useFakeClock(t, time.Second)
	ctx := context.Background()
	s := &jobServiceStub{
		queryResults: []*queryResultsPage{{jobComplete: false}},
	}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job", isQuery: true}

	_, err := j.Wait(ctx, MaxWait(3*time.Second))
	if !errors.Is(err, ErrJobWaitTimeout) {
		t.Fatalf("got %v, want ErrJobWaitTimeout", err)
	}
}

func TestJobRead(t *testing.T) {
	useFastPolling(t)
	ctx := context.Background()
	execErrs := []*Error{{Message: "billing tier limit exceeded", Reason: "billingTierLimitExceeded"}}
	s := &jobServiceStub{
		queryResults: []*queryResultsPage{
			// The completion check, then two pages of results.
			{jobComplete: true},
			{
				jobComplete: true,
				schema:      testReadSchema,
				pageToken:   "qt1",
				rows:        [][]Value{{"a"}, {"b"}},
				totalRows:   3,
				cacheHit:    true,
				execErrors:  execErrs,
			},
			{
				jobComplete: true,
				schema:      testReadSchema,
				rows:        [][]Value{{"c"}},
				totalRows:   3,
				cacheHit:    true,
				execErrors:  execErrs,
			},
		},
	}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job", isQuery: true}

	it, err := j.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
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
	if want := []string{"a", "b", "c"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	if want := []string{"", "", "qt1"}; !cmp.Equal(s.queryToks, want) {
		t.Errorf("got tokens %v, want %v", s.queryToks, want)
	}
	if !it.CacheHit {
		t.Error("got CacheHit false, want true")
	}
	if diff := cmp.Diff(it.ExecutionErrors, execErrs); diff != "" {
		t.Errorf("execution errors: got=-, want=+:\n%s", diff)
	}
}

func TestJobReadIncompleteGuard(t *testing.T) {
	useFastPolling(t)
	ctx := context.Background()
	// The completion check sees the job done, but a subsequent page claims
	// otherwise; the iterator refuses to serve it.
	s := &jobServiceStub{
		queryResults: []*queryResultsPage{
			{jobComplete: true},
			{jobComplete: false},
		},
	}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job", isQuery: true}

	it, err := j.Read(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var vals []Value
	if err := it.Next(&vals); !errors.Is(err, errIncompleteJob) {
		t.Errorf("got %v, want errIncompleteJob", err)
	}
}

func TestJobReadTimeout(t *testing.T) {
	useFastPolling(t)
	useFakeClock(t, time.Second)
	ctx := context.Background()
	s := &jobServiceStub{
		queryResults: []*queryResultsPage{{jobComplete: false}},
	}
	c := newTestClient(s)
	j := &Job{c: c, projectID: "client-project-id", jobID: "job", isQuery: true}

	if _, err := j.Read(ctx, MaxWait(3*time.Second)); !errors.Is(err, ErrJobWaitTimeout) {
		t.Errorf("got %v, want ErrJobWaitTimeout", err)
	}
}

func TestJobReadNonQuery(t *testing.T) {
	ctx := context.Background()
	c := newTestClient(&jobServiceStub{})
	j := &Job{c: c, projectID: "client-project-id", jobID: "job"}

	if _, err := j.Read(ctx); err == nil {
		t.Error("got nil, want non-query job error")
	}
}

func TestJobIterator(t *testing.T) {
	ctx := context.Background()
	s := &jobServiceStub{
		jobListings: [][]string{{"j1", "j2"}, {"j3"}},
		listToks:    []string{"tok", ""},
	}
	c := newTestClient(s)

	it := c.Jobs(ctx, StateFilter(Pending, Running), AllUsers())
	var got []string
	for {
		j, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			t.Fatal(err)
		}
		if j.c != c {
			t.Error("iterator did not populate the job's client")
		}
		got = append(got, j.ID())
	}
	if want := []string{"j1", "j2", "j3"}; !cmp.Equal(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
	states, _ := s.listOpts[0][stateFilterKind].([]State)
	if want := []State{Pending, Running}; !cmp.Equal(states, want) {
		t.Errorf("got state filter %v, want %v", states, want)
	}
	if all, _ := s.listOpts[0][allUsersKind].(bool); !all {
		t.Error("all users option not passed through")
	}
}

func TestStateFilterValues(t *testing.T) {
	for st, want := range map[State]string{
		Pending: "pending",
		Running: "running",
		Done:    "done",
	} {
		if got := st.stateFilterValue(); got != want {
			t.Errorf("%v: got %q, want %q", st, got, want)
		}
	}
}
