// Copyright 2023 Google LLC
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
	"google.golang.org/api/option"
	"google.golang.org/api/option/internaloption"
)

// type for collecting custom ClientOption values.
type customClientConfig struct {
	// maxRetries controls the maximum number of retry attempts for retryable
	// errors. When set to 0 (default), retries continue until context
	// cancellation. When set to a positive value N, after N consecutive
	// retryable failures the operation returns a RetryExhaustedError
	// containing all N errors.
	maxRetries int
}

type customClientOption interface {
	option.ClientOption
	ApplyCustomClientOpt(*customClientConfig)
}

func newCustomClientConfig(opts ...option.ClientOption) *customClientConfig {
	conf := &customClientConfig{}
	for _, opt := range opts {
		if cOpt, ok := opt.(customClientOption); ok {
			cOpt.ApplyCustomClientOpt(conf)
		}
	}
	return conf
}

// WithMaxRetries is a ClientOption that configures the maximum number of
// retry attempts for retryable errors.
//
// When maxRetries is 0 or less (the default), retries continue with
// exponential backoff until the context is cancelled or the operation
// succeeds.
//
// When maxRetries is a positive value N, after N consecutive retryable
// failures the operation returns a RetryExhaustedError that contains all N
// errors for debugging purposes.
func WithMaxRetries(maxRetries int) option.ClientOption {
	return &applierMaxRetries{maxRetries: maxRetries}
}

type applierMaxRetries struct {
	internaloption.EmbeddableAdapter
	maxRetries int
}

func (s *applierMaxRetries) ApplyCustomClientOpt(c *customClientConfig) {
	c.maxRetries = s.maxRetries
}
