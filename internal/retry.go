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

package internal

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	gax "github.com/googleapis/gax-go/v2"
)

// Retry calls the supplied function f repeatedly according to the provided
// backoff parameters. It returns when one of the following occurs:
// When f's first return value is true, Retry immediately returns with f's second
// return value.
// When the provided context is done, Retry returns with an error that
// includes both ctx.Error() and the last error returned by f.
func Retry(ctx context.Context, bo gax.Backoff, f func() (stop bool, err error)) error {
	return RetryN(ctx, bo, 0, f)
}

// RetryN behaves like Retry but additionally bounds the number of retryable
// failures. When maxAttempts > 0 and f has failed maxAttempts consecutive
// times, RetryN returns a RetryExhaustedError carrying every collected error.
// When maxAttempts <= 0 the attempt budget is unlimited and only f's stop
// value or context cancellation end the loop.
func RetryN(ctx context.Context, bo gax.Backoff, maxAttempts int, f func() (stop bool, err error)) error {
	return retryN(ctx, bo, maxAttempts, f, gax.Sleep)
}

// retryN takes the sleep function as a parameter so tests can run without
// real backoff waits.
func retryN(ctx context.Context, bo gax.Backoff, maxAttempts int, f func() (stop bool, err error),
	sleep func(context.Context, time.Duration) error) error {
	var lastErr error
	var attemptErrs []error
	bounded := maxAttempts > 0

	for {
		stop, err := f()
		if stop {
			return err
		}
		// Context errors are not attempts against the budget; the sleep
		// below surfaces them with the last real cause attached.
		if err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
			lastErr = err
			if bounded {
				attemptErrs = append(attemptErrs, err)
			}
		}
		if bounded && len(attemptErrs) >= maxAttempts {
			return &RetryExhaustedError{
				MaxAttempts: maxAttempts,
				Errors:      attemptErrs,
			}
		}
		if ctxErr := sleep(ctx, bo.Pause()); ctxErr != nil {
			if lastErr != nil {
				return wrappedCallErr{ctxErr: ctxErr, wrappedErr: lastErr}
			}
			return ctxErr
		}
	}
}

// RetryExhaustedError is returned when the attempt budget has been spent
// without the call succeeding. It carries every error seen along the way,
// in order, for diagnosing persistent failures.
type RetryExhaustedError struct {
	// MaxAttempts is the configured budget that was reached.
	MaxAttempts int
	// Errors holds the error from each failed attempt, oldest first.
	Errors []error
}

// Error implements the error interface.
func (e *RetryExhaustedError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("retry exhausted after %d attempts with no errors recorded", e.MaxAttempts)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "retry exhausted after %d attempts; errors:\n", e.MaxAttempts)
	for i, err := range e.Errors {
		fmt.Fprintf(&sb, "  [%d]: %v\n", i+1, err)
	}
	return sb.String()
}

// Unwrap returns the most recent attempt's error so that errors.Is and
// errors.As keep working through the wrapper.
func (e *RetryExhaustedError) Unwrap() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[len(e.Errors)-1]
}

// FirstError returns the error from the first failed attempt, or nil if no
// errors were collected.
func (e *RetryExhaustedError) FirstError() error {
	if len(e.Errors) == 0 {
		return nil
	}
	return e.Errors[0]
}

// Use this error type to return an error which allows introspection of both
// the context error and the error from the service.
type wrappedCallErr struct {
	ctxErr     error
	wrappedErr error
}

func (e wrappedCallErr) Error() string {
	return fmt.Sprintf("retry failed with %v; last error: %v", e.ctxErr, e.wrappedErr)
}

func (e wrappedCallErr) Unwrap() error {
	return e.wrappedErr
}

// Is allows errors.Is to match the error from the call as well as context
// sentinel errors.
func (e wrappedCallErr) Is(err error) bool {
	return e.ctxErr == err || e.wrappedErr == err
}
