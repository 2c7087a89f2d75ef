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
	"fmt"
	"time"

	"github.com/ahmedalikamal/bigquery-go/internal/optional"
	bq "google.golang.org/api/bigquery/v2"
	"google.golang.org/api/googleapi"
)

// service provides an internal abstraction to isolate the generated
// BigQuery API; most of this package uses this interface instead.
// The single production implementation, *bigqueryService, contains all the
// knowledge of the generated API. Methods perform exactly one remote call;
// retrying is the caller's concern.
type service interface {
	// Datasets
	insertDataset(ctx context.Context, projectID, datasetID string, md *DatasetMetadata, opt optionsMap) (*DatasetMetadata, error)
	getDataset(ctx context.Context, projectID, datasetID string, opt optionsMap) (*DatasetMetadata, error)
	patchDataset(ctx context.Context, projectID, datasetID string, upd *DatasetMetadataToUpdate, etag string) (*DatasetMetadata, error)
	deleteDataset(ctx context.Context, projectID, datasetID string, opt optionsMap) error
	// listDatasets returns a page of Datasets and a next page token. Note:
	// the Datasets do not have their c field populated.
	listDatasets(ctx context.Context, projectID string, opt optionsMap) ([]*Dataset, string, error)

	// Tables
	insertTable(ctx context.Context, projectID, datasetID, tableID string, tm *TableMetadata, opt optionsMap) (*TableMetadata, error)
	getTable(ctx context.Context, projectID, datasetID, tableID string, opt optionsMap) (*TableMetadata, error)
	patchTable(ctx context.Context, projectID, datasetID, tableID string, upd *TableMetadataToUpdate, etag string) (*TableMetadata, error)
	deleteTable(ctx context.Context, projectID, datasetID, tableID string) error
	listTables(ctx context.Context, projectID, datasetID string, opt optionsMap) ([]*Table, string, error)

	// Table data
	readTabledata(ctx context.Context, projectID, datasetID, tableID string, schema Schema, opt optionsMap) (*fetchPageResult, error)
	// insertRows performs a streaming insert. It is never retried by this
	// library; per-row failures are reported in the returned PutMultiError
	// and the caller decides what to resend.
	insertRows(ctx context.Context, projectID, datasetID, tableID string, rows []*insertionRow, conf *insertRowsConf) error

	// Jobs
	insertQueryJob(ctx context.Context, projectID, jobID string, conf *QueryConfig) (*Job, error)
	getJob(ctx context.Context, projectID, jobID string, opt optionsMap) (*Job, error)
	jobStatus(ctx context.Context, projectID, jobID string) (*JobStatus, error)
	cancelJob(ctx context.Context, projectID, jobID string) error
	// listJobs returns a page of Jobs and a next page token. Note: the Jobs
	// do not have their c field populated.
	listJobs(ctx context.Context, projectID string, opt optionsMap) ([]*Job, string, error)
	getQueryResults(ctx context.Context, projectID, jobID string, opt optionsMap) (*queryResultsPage, error)
}

// queryResultsPage is one response from the getQueryResults operation. When
// jobComplete is false the other fields are meaningless and the caller
// should poll again.
type queryResultsPage struct {
	jobComplete bool
	schema      Schema
	pageToken   string
	rows        [][]Value
	totalRows   uint64
	cacheHit    bool
	execErrors  []*Error
}

type bigqueryService struct {
	s *bq.Service
}

func newBigqueryService(s *bq.Service) *bigqueryService {
	return &bigqueryService{s: s}
}

// Option-map accessors. A kind that is absent yields the zero value.

func optInt64(opt optionsMap, k optionKind) (int64, bool) {
	v, ok := opt[k].(int64)
	return v, ok
}

func optString(opt optionsMap, k optionKind) (string, bool) {
	v, ok := opt[k].(string)
	return v, ok
}

func optBool(opt optionsMap, k optionKind) bool {
	v, _ := opt[k].(bool)
	return v
}

func optFields(opt optionsMap) ([]googleapi.Field, bool) {
	ss, ok := opt[fieldsKind].([]string)
	if !ok {
		return nil, false
	}
	fs := make([]googleapi.Field, len(ss))
	for i, s := range ss {
		fs[i] = googleapi.Field(s)
	}
	return fs, true
}

func (s *bigqueryService) insertDataset(ctx context.Context, projectID, datasetID string, md *DatasetMetadata, opt optionsMap) (*DatasetMetadata, error) {
	ds := md.toBQ()
	ds.DatasetReference = &bq.DatasetReference{
		ProjectId: projectID,
		DatasetId: datasetID,
	}
	call := s.s.Datasets.Insert(projectID, ds).Context(ctx)
	setClientHeader(call.Header())
	if fs, ok := optFields(opt); ok {
		call.Fields(fs...)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return bqToDatasetMetadata(res), nil
}

func (s *bigqueryService) getDataset(ctx context.Context, projectID, datasetID string, opt optionsMap) (*DatasetMetadata, error) {
	call := s.s.Datasets.Get(projectID, datasetID).Context(ctx)
	setClientHeader(call.Header())
	if fs, ok := optFields(opt); ok {
		call.Fields(fs...)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return bqToDatasetMetadata(res), nil
}

func (s *bigqueryService) patchDataset(ctx context.Context, projectID, datasetID string, upd *DatasetMetadataToUpdate, etag string) (*DatasetMetadata, error) {
	ds := upd.toBQ()
	call := s.s.Datasets.Patch(projectID, datasetID, ds).Context(ctx)
	setClientHeader(call.Header())
	if etag != "" {
		call.Header().Set("If-Match", etag)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return bqToDatasetMetadata(res), nil
}

func (s *bigqueryService) deleteDataset(ctx context.Context, projectID, datasetID string, opt optionsMap) error {
	call := s.s.Datasets.Delete(projectID, datasetID).Context(ctx).
		DeleteContents(optBool(opt, deleteContentsKind))
	setClientHeader(call.Header())
	return call.Do()
}

func (s *bigqueryService) listDatasets(ctx context.Context, projectID string, opt optionsMap) ([]*Dataset, string, error) {
	call := s.s.Datasets.List(projectID).Context(ctx).
		All(optBool(opt, allDatasetsKind))
	setClientHeader(call.Header())
	if tok, ok := optString(opt, pageTokenKind); ok {
		call.PageToken(tok)
	}
	if n, ok := optInt64(opt, maxResultsKind); ok && n > 0 {
		call.MaxResults(n)
	}
	if f, ok := optString(opt, datasetFilterKind); ok {
		call.Filter(f)
	}
	res, err := call.Do()
	if err != nil {
		return nil, "", err
	}
	var datasets []*Dataset
	for _, d := range res.Datasets {
		datasets = append(datasets, &Dataset{
			ProjectID: d.DatasetReference.ProjectId,
			DatasetID: d.DatasetReference.DatasetId,
		})
	}
	return datasets, res.NextPageToken, nil
}

func (s *bigqueryService) insertTable(ctx context.Context, projectID, datasetID, tableID string, tm *TableMetadata, opt optionsMap) (*TableMetadata, error) {
	t := tm.toBQ()
	t.TableReference = &bq.TableReference{
		ProjectId: projectID,
		DatasetId: datasetID,
		TableId:   tableID,
	}
	call := s.s.Tables.Insert(projectID, datasetID, t).Context(ctx)
	setClientHeader(call.Header())
	if fs, ok := optFields(opt); ok {
		call.Fields(fs...)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return bqToTableMetadata(res), nil
}

func (s *bigqueryService) getTable(ctx context.Context, projectID, datasetID, tableID string, opt optionsMap) (*TableMetadata, error) {
	call := s.s.Tables.Get(projectID, datasetID, tableID).Context(ctx)
	setClientHeader(call.Header())
	if fs, ok := optFields(opt); ok {
		call.Fields(fs...)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return bqToTableMetadata(res), nil
}

func (s *bigqueryService) patchTable(ctx context.Context, projectID, datasetID, tableID string, upd *TableMetadataToUpdate, etag string) (*TableMetadata, error) {
	t := upd.toBQ()
	call := s.s.Tables.Patch(projectID, datasetID, tableID, t).Context(ctx)
	setClientHeader(call.Header())
	if etag != "" {
		call.Header().Set("If-Match", etag)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return bqToTableMetadata(res), nil
}

func (s *bigqueryService) deleteTable(ctx context.Context, projectID, datasetID, tableID string) error {
	call := s.s.Tables.Delete(projectID, datasetID, tableID).Context(ctx)
	setClientHeader(call.Header())
	return call.Do()
}

func (s *bigqueryService) listTables(ctx context.Context, projectID, datasetID string, opt optionsMap) ([]*Table, string, error) {
	call := s.s.Tables.List(projectID, datasetID).Context(ctx)
	setClientHeader(call.Header())
	if tok, ok := optString(opt, pageTokenKind); ok {
		call.PageToken(tok)
	}
	if n, ok := optInt64(opt, maxResultsKind); ok && n > 0 {
		call.MaxResults(n)
	}
	res, err := call.Do()
	if err != nil {
		return nil, "", err
	}
	var tables []*Table
	for _, t := range res.Tables {
		tables = append(tables, &Table{
			ProjectID: t.TableReference.ProjectId,
			DatasetID: t.TableReference.DatasetId,
			TableID:   t.TableReference.TableId,
		})
	}
	return tables, res.NextPageToken, nil
}

func (s *bigqueryService) readTabledata(ctx context.Context, projectID, datasetID, tableID string, schema Schema, opt optionsMap) (*fetchPageResult, error) {
	// The schema is needed to interpret row cells. It is not part of the
	// tabledata response, so fetch it once; callers cache it across pages.
	if schema == nil {
		t, err := s.s.Tables.Get(projectID, datasetID, tableID).
			Fields("schema").
			Context(ctx).
			Do()
		if err != nil {
			return nil, err
		}
		schema = bqToSchema(t.Schema)
	}
	call := s.s.Tabledata.List(projectID, datasetID, tableID).Context(ctx)
	setClientHeader(call.Header())
	if tok, ok := optString(opt, pageTokenKind); ok && tok != "" {
		call.PageToken(tok)
	} else if i, ok := opt[startIndexKind].(uint64); ok {
		call.StartIndex(i)
	}
	if n, ok := optInt64(opt, maxResultsKind); ok && n > 0 {
		call.MaxResults(n)
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	rows, err := convertRows(res.Rows, schema)
	if err != nil {
		return nil, err
	}
	return &fetchPageResult{
		pageToken: res.PageToken,
		rows:      rows,
		totalRows: uint64(res.TotalRows),
		schema:    schema,
	}, nil
}

type insertRowsConf struct {
	templateSuffix      string
	ignoreUnknownValues bool
	skipInvalidRows     bool
}

func (s *bigqueryService) insertRows(ctx context.Context, projectID, datasetID, tableID string, rows []*insertionRow, conf *insertRowsConf) error {
	req := &bq.TableDataInsertAllRequest{
		TemplateSuffix:      conf.templateSuffix,
		IgnoreUnknownValues: conf.ignoreUnknownValues,
		SkipInvalidRows:     conf.skipInvalidRows,
	}
	for _, row := range rows {
		m := make(map[string]bq.JsonValue)
		for k, v := range row.Row {
			m[k] = bq.JsonValue(v)
		}
		req.Rows = append(req.Rows, &bq.TableDataInsertAllRequestRows{
			InsertId: row.InsertID,
			Json:     m,
		})
	}
	call := s.s.Tabledata.InsertAll(projectID, datasetID, tableID, req).Context(ctx)
	setClientHeader(call.Header())
	res, err := call.Do()
	if err != nil {
		return err
	}
	if len(res.InsertErrors) == 0 {
		return nil
	}

	var errs PutMultiError
	for _, e := range res.InsertErrors {
		if int(e.Index) >= len(rows) {
			return errors.New("bigquery: service error index out of range")
		}
		rie := RowInsertionError{
			InsertID: rows[e.Index].InsertID,
			RowIndex: int(e.Index),
		}
		for _, errp := range e.Errors {
			rie.Errors = append(rie.Errors, bqToError(errp))
		}
		errs = append(errs, rie)
	}
	return errs
}

func (s *bigqueryService) insertQueryJob(ctx context.Context, projectID, jobID string, conf *QueryConfig) (*Job, error) {
	job := conf.toBQ(projectID, jobID)
	call := s.s.Jobs.Insert(projectID, job).Context(ctx)
	setClientHeader(call.Header())
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return bqToJob(res), nil
}

func (s *bigqueryService) getJob(ctx context.Context, projectID, jobID string, opt optionsMap) (*Job, error) {
	call := s.s.Jobs.Get(projectID, jobID).
		Fields("configuration", "jobReference").
		Context(ctx)
	setClientHeader(call.Header())
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	return bqToJob(res), nil
}

func (s *bigqueryService) jobStatus(ctx context.Context, projectID, jobID string) (*JobStatus, error) {
	call := s.s.Jobs.Get(projectID, jobID).
		Fields("status", "statistics").
		Context(ctx)
	setClientHeader(call.Header())
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	st, err := bqToJobStatus(res.Status)
	if err != nil {
		return nil, err
	}
	if res.Statistics != nil {
		st.Statistics = &JobStatistics{
			CreationTime:        unixMillisToTime(res.Statistics.CreationTime),
			StartTime:           unixMillisToTime(res.Statistics.StartTime),
			EndTime:             unixMillisToTime(res.Statistics.EndTime),
			TotalBytesProcessed: res.Statistics.TotalBytesProcessed,
		}
	}
	return st, nil
}

func (s *bigqueryService) cancelJob(ctx context.Context, projectID, jobID string) error {
	call := s.s.Jobs.Cancel(projectID, jobID).
		Fields(). // We don't need any of the response data.
		Context(ctx)
	setClientHeader(call.Header())
	_, err := call.Do()
	return err
}

func (s *bigqueryService) listJobs(ctx context.Context, projectID string, opt optionsMap) ([]*Job, string, error) {
	call := s.s.Jobs.List(projectID).
		Projection("full").
		AllUsers(optBool(opt, allUsersKind)).
		Context(ctx)
	setClientHeader(call.Header())
	if tok, ok := optString(opt, pageTokenKind); ok {
		call.PageToken(tok)
	}
	if n, ok := optInt64(opt, maxResultsKind); ok && n > 0 {
		call.MaxResults(n)
	}
	if states, ok := opt[stateFilterKind].([]State); ok {
		var filter []string
		for _, st := range states {
			filter = append(filter, st.stateFilterValue())
		}
		call.StateFilter(filter...)
	}
	res, err := call.Do()
	if err != nil {
		return nil, "", err
	}
	var jobs []*Job
	for _, j := range res.Jobs {
		jobs = append(jobs, &Job{
			projectID: j.JobReference.ProjectId,
			jobID:     j.JobReference.JobId,
			isQuery:   j.Configuration != nil && j.Configuration.Query != nil,
		})
	}
	return jobs, res.NextPageToken, nil
}

func (s *bigqueryService) getQueryResults(ctx context.Context, projectID, jobID string, opt optionsMap) (*queryResultsPage, error) {
	call := s.s.Jobs.GetQueryResults(projectID, jobID).Context(ctx)
	setClientHeader(call.Header())
	if tok, ok := optString(opt, pageTokenKind); ok && tok != "" {
		call.PageToken(tok)
	} else if i, ok := opt[startIndexKind].(uint64); ok {
		call.StartIndex(i)
	}
	if n, ok := optInt64(opt, maxResultsKind); ok && n >= 0 {
		call.MaxResults(n)
	}
	if d, ok := opt[maxWaitKind].(time.Duration); ok {
		// Ask the service to hold the request open for up to the caller's
		// wait budget before reporting an incomplete job.
		call.TimeoutMs(int64(d / time.Millisecond))
	}
	res, err := call.Do()
	if err != nil {
		return nil, err
	}
	page := &queryResultsPage{
		jobComplete: res.JobComplete,
		pageToken:   res.PageToken,
		cacheHit:    res.CacheHit,
	}
	for _, ep := range res.Errors {
		page.execErrors = append(page.execErrors, bqToError(ep))
	}
	if !res.JobComplete {
		return page, nil
	}
	page.schema = bqToSchema(res.Schema)
	if res.TotalRows != 0 {
		page.totalRows = res.TotalRows
	}
	page.rows, err = convertRows(res.Rows, page.schema)
	if err != nil {
		return nil, err
	}
	return page, nil
}

func bqToJob(j *bq.Job) *Job {
	return &Job{
		projectID: j.JobReference.ProjectId,
		jobID:     j.JobReference.JobId,
		isQuery:   j.Configuration != nil && j.Configuration.Query != nil,
	}
}

var stateMap = map[string]State{"PENDING": Pending, "RUNNING": Running, "DONE": Done}

func bqToJobStatus(status *bq.JobStatus) (*JobStatus, error) {
	state, ok := stateMap[status.State]
	if !ok {
		return nil, fmt.Errorf("bigquery: unexpected job state: %q", status.State)
	}
	newStatus := &JobStatus{
		State: state,
	}
	if err := bqToError(status.ErrorResult); state == Done && err != nil {
		newStatus.err = err
	}
	for _, ep := range status.Errors {
		newStatus.Errors = append(newStatus.Errors, bqToError(ep))
	}
	return newStatus, nil
}

func (md *DatasetMetadata) toBQ() *bq.Dataset {
	ds := &bq.Dataset{}
	if md == nil {
		return ds
	}
	ds.FriendlyName = md.Name
	ds.Description = md.Description
	ds.Location = md.Location
	ds.DefaultTableExpirationMs = int64(md.DefaultTableExpiration / time.Millisecond)
	ds.Labels = md.Labels
	return ds
}

func bqToDatasetMetadata(d *bq.Dataset) *DatasetMetadata {
	return &DatasetMetadata{
		CreationTime:           unixMillisToTime(d.CreationTime),
		LastModifiedTime:       unixMillisToTime(d.LastModifiedTime),
		DefaultTableExpiration: time.Duration(d.DefaultTableExpirationMs) * time.Millisecond,
		Description:            d.Description,
		Name:                   d.FriendlyName,
		FullID:                 d.Id,
		Location:               d.Location,
		Labels:                 d.Labels,
		ETag:                   d.Etag,
	}
}

func (u *DatasetMetadataToUpdate) toBQ() *bq.Dataset {
	ds := &bq.Dataset{}
	forceSend := func(field string) {
		ds.ForceSendFields = append(ds.ForceSendFields, field)
	}
	if u.Description != nil {
		ds.Description = optional.ToString(u.Description)
		forceSend("Description")
	}
	if u.Name != nil {
		ds.FriendlyName = optional.ToString(u.Name)
		forceSend("FriendlyName")
	}
	if u.DefaultTableExpiration != nil {
		dur := optional.ToDuration(u.DefaultTableExpiration)
		if dur == 0 {
			// Send a null to delete the field.
			ds.NullFields = append(ds.NullFields, "DefaultTableExpirationMs")
		} else {
			ds.DefaultTableExpirationMs = int64(dur / time.Millisecond)
		}
	}
	if u.setLabels != nil || u.deleteLabels != nil {
		ds.Labels = map[string]string{}
		for k, v := range u.setLabels {
			ds.Labels[k] = v
		}
		if len(ds.Labels) == 0 && len(u.deleteLabels) > 0 {
			forceSend("Labels")
		}
		for l := range u.deleteLabels {
			ds.NullFields = append(ds.NullFields, "Labels."+l)
		}
	}
	return ds
}

func (tm *TableMetadata) toBQ() *bq.Table {
	t := &bq.Table{}
	if tm == nil {
		return t
	}
	t.FriendlyName = tm.Name
	t.Description = tm.Description
	t.Schema = tm.Schema.toBQTableSchema()
	t.Labels = tm.Labels
	if !tm.ExpirationTime.IsZero() {
		t.ExpirationTime = tm.ExpirationTime.UnixNano() / 1e6
	}
	return t
}

func bqToTableMetadata(t *bq.Table) *TableMetadata {
	return &TableMetadata{
		Description:      t.Description,
		Name:             t.FriendlyName,
		Schema:           bqToSchema(t.Schema),
		FullID:           t.Id,
		Labels:           t.Labels,
		Type:             TableType(t.Type),
		ExpirationTime:   unixMillisToTime(t.ExpirationTime),
		CreationTime:     unixMillisToTime(t.CreationTime),
		LastModifiedTime: unixMillisToTime(int64(t.LastModifiedTime)),
		NumBytes:         t.NumBytes,
		NumRows:          t.NumRows,
		ETag:             t.Etag,
	}
}

func (u *TableMetadataToUpdate) toBQ() *bq.Table {
	t := &bq.Table{}
	forceSend := func(field string) {
		t.ForceSendFields = append(t.ForceSendFields, field)
	}
	if u.Description != nil {
		t.Description = optional.ToString(u.Description)
		forceSend("Description")
	}
	if u.Name != nil {
		t.FriendlyName = optional.ToString(u.Name)
		forceSend("FriendlyName")
	}
	if u.Schema != nil {
		t.Schema = u.Schema.toBQTableSchema()
		forceSend("Schema")
	}
	if !u.ExpirationTime.IsZero() {
		t.ExpirationTime = u.ExpirationTime.UnixNano() / 1e6
		forceSend("ExpirationTime")
	}
	if u.setLabels != nil || u.deleteLabels != nil {
		t.Labels = map[string]string{}
		for k, v := range u.setLabels {
			t.Labels[k] = v
		}
		if len(t.Labels) == 0 && len(u.deleteLabels) > 0 {
			forceSend("Labels")
		}
		for l := range u.deleteLabels {
			t.NullFields = append(t.NullFields, "Labels."+l)
		}
	}
	return t
}
