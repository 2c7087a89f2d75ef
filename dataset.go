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

// Dataset is a reference to a BigQuery dataset.
type Dataset struct {
	ProjectID string
	DatasetID string
	c         *Client
}

// DatasetMetadata contains information about a BigQuery dataset.
type DatasetMetadata struct {
	// These fields can be set when creating a dataset.
	Name                   string            // The user-friendly name for this dataset.
	Description            string            // The user-friendly description of this dataset.
	Location               string            // The geo location of the dataset.
	DefaultTableExpiration time.Duration     // The default expiration time for new tables.
	Labels                 map[string]string // User-provided labels.

	// These fields are read-only.
	CreationTime     time.Time
	LastModifiedTime time.Time // When the dataset or any of its tables were modified.
	FullID           string    // The full dataset ID in the form projectID:datasetID.

	// ETag is the ETag obtained when reading metadata. Pass it to
	// Dataset.Update to ensure that the metadata hasn't changed since it was
	// read.
	ETag string
}

// Dataset creates a handle to a BigQuery dataset in the client's project.
func (c *Client) Dataset(id string) *Dataset {
	return c.DatasetInProject(c.projectID, id)
}

// DatasetInProject creates a handle to a BigQuery dataset in the specified
// project.
func (c *Client) DatasetInProject(projectID, datasetID string) *Dataset {
	return &Dataset{
		ProjectID: projectID,
		DatasetID: datasetID,
		c:         c,
	}
}

// Create creates a dataset in the BigQuery service. An error will be
// returned if the dataset already exists. Pass in a DatasetMetadata value to
// configure the dataset.
func (d *Dataset) Create(ctx context.Context, md *DatasetMetadata, opts ...RequestOption) (err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Dataset.Create")
	defer func() { trace.EndSpan(ctx, err) }()

	opt, err := optionMap(opts...)
	if err != nil {
		return err
	}
	return runWithRetry(ctx, d.c.retry, func() (err error) {
		_, err = d.c.service.insertDataset(ctx, d.ProjectID, d.DatasetID, md, opt)
		return err
	})
}

// Metadata fetches the metadata for the dataset.
func (d *Dataset) Metadata(ctx context.Context, opts ...RequestOption) (md *DatasetMetadata, err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Dataset.Metadata")
	defer func() { trace.EndSpan(ctx, err) }()

	opt, err := optionMap(opts...)
	if err != nil {
		return nil, err
	}
	err = runWithRetry(ctx, d.c.retry, func() (err error) {
		md, err = d.c.service.getDataset(ctx, d.ProjectID, d.DatasetID, opt)
		return err
	})
	if err != nil {
		return nil, err
	}
	return md, nil
}

// Update modifies specific Dataset metadata fields.
// To perform a read-modify-write that protects against intervening reads,
// set the etag argument to the DatasetMetadata.ETag field from the read.
// Pass the empty string for etag for a "blind write" that will always
// succeed.
func (d *Dataset) Update(ctx context.Context, dm DatasetMetadataToUpdate, etag string) (md *DatasetMetadata, err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Dataset.Update")
	defer func() { trace.EndSpan(ctx, err) }()

	err = runWithRetry(ctx, d.c.retry, func() (err error) {
		md, err = d.c.service.patchDataset(ctx, d.ProjectID, d.DatasetID, &dm, etag)
		return err
	})
	if err != nil {
		return nil, err
	}
	return md, nil
}

// Delete deletes the dataset. Delete will fail if the dataset is not empty
// unless the DeleteContents option is given.
func (d *Dataset) Delete(ctx context.Context, opts ...RequestOption) (err error) {
	ctx = trace.StartSpan(ctx, "bigquery.Dataset.Delete")
	defer func() { trace.EndSpan(ctx, err) }()

	opt, err := optionMap(opts...)
	if err != nil {
		return err
	}
	return runWithRetry(ctx, d.c.retry, func() (err error) {
		return d.c.service.deleteDataset(ctx, d.ProjectID, d.DatasetID, opt)
	})
}

// DatasetMetadataToUpdate is used when updating a dataset's metadata.
// Only non-nil fields will be updated.
type DatasetMetadataToUpdate struct {
	Description optional.String // The user-friendly description of this dataset.
	Name        optional.String // The user-friendly name for this dataset.

	// DefaultTableExpiration is the default expiration time for new tables.
	// If set to time.Duration(0), new tables never expire.
	DefaultTableExpiration optional.Duration

	labelUpdater
}

// labelUpdater contains common code for updating labels.
type labelUpdater struct {
	setLabels    map[string]string
	deleteLabels map[string]bool
}

// SetLabel causes a label to be added or modified on a call to Update.
func (u *labelUpdater) SetLabel(name, value string) {
	if u.setLabels == nil {
		u.setLabels = map[string]string{}
	}
	u.setLabels[name] = value
}

// DeleteLabel causes a label to be deleted on a call to Update.
func (u *labelUpdater) DeleteLabel(name string) {
	if u.deleteLabels == nil {
		u.deleteLabels = map[string]bool{}
	}
	u.deleteLabels[name] = true
}

// Datasets returns an iterator over the datasets in the client's project.
func (c *Client) Datasets(ctx context.Context, opts ...RequestOption) *DatasetIterator {
	return c.DatasetsInProject(ctx, c.projectID, opts...)
}

// DatasetsInProject returns an iterator over the datasets in the provided
// project.
func (c *Client) DatasetsInProject(ctx context.Context, projectID string, opts ...RequestOption) *DatasetIterator {
	it := &DatasetIterator{
		ctx:       ctx,
		c:         c,
		projectID: projectID,
	}
	it.opt, it.err = optionMap(opts...)
	it.pageInfo, it.nextFunc = iterator.NewPageInfo(
		it.fetch,
		func() int { return len(it.items) },
		func() interface{} { b := it.items; it.items = nil; return b })
	startPageToken(it.pageInfo, it.opt)
	return it
}

// DatasetIterator iterates over the datasets in a project.
type DatasetIterator struct {
	ctx       context.Context
	c         *Client
	projectID string
	opt       optionsMap
	err       error
	items     []*Dataset
	pageInfo  *iterator.PageInfo
	nextFunc  func() error
}

// Next returns the next Dataset. Its second return value is iterator.Done if
// there are no more results. Once Next returns Done, all subsequent calls
// will return Done.
func (it *DatasetIterator) Next() (*Dataset, error) {
	if err := it.nextFunc(); err != nil {
		return nil, err
	}
	item := it.items[0]
	it.items = it.items[1:]
	return item, nil
}

// PageInfo supports pagination. See the google.golang.org/api/iterator
// package for details.
func (it *DatasetIterator) PageInfo() *iterator.PageInfo { return it.pageInfo }

func (it *DatasetIterator) fetch(pageSize int, pageToken string) (string, error) {
	if it.err != nil {
		return "", it.err
	}
	opt := nextPageOptions(it.opt, pageSize, pageToken)
	var datasets []*Dataset
	var token string
	err := runWithRetry(it.ctx, it.c.retry, func() (err error) {
		datasets, token, err = it.c.service.listDatasets(it.ctx, it.projectID, opt)
		return err
	})
	if err != nil {
		return "", err
	}
	for _, d := range datasets {
		d.c = it.c
		it.items = append(it.items, d)
	}
	return token, nil
}
