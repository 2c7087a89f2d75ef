// Copyright 2018 Google LLC
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

package trace

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	"google.golang.org/api/googleapi"
)

func TestToStatus(t *testing.T) {
	for _, test := range []struct {
		err  error
		want string
	}{
		{errors.New("plain failure"), "plain failure"},
		{&googleapi.Error{Code: 503, Message: "backend error"}, "backend error"},
	} {
		code, msg := toStatus(test.err)
		if code != codes.Error {
			t.Errorf("%v: got code %v, want %v", test.err, code, codes.Error)
		}
		if msg != test.want {
			t.Errorf("%v: got message %q, want %q", test.err, msg, test.want)
		}
	}
}

func TestSpanHelpersWithoutProvider(t *testing.T) {
	// With no tracer provider registered the helpers operate on no-op
	// spans; they must still accept every attribute type and not panic.
	ctx := StartSpan(context.Background(), "bigquery.test")
	TracePrintf(ctx, map[string]interface{}{
		"job_id": "j1",
		"done":   false,
		"calls":  3,
		"rows":   int64(7),
		"ratio":  0.5,
	}, "polling %s", "j1")
	EndSpan(ctx, errors.New("final"))
	EndSpan(ctx, nil)
}
