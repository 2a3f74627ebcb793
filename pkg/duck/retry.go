// Copyright 2026 Oxbow Labs
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package duck

import (
	"context"
	"fmt"
	"time"
)

// RetryOptions parameterizes the exponential-backoff combinator.
type RetryOptions struct {
	// MaxAttempts is the total number of attempts (first try included).
	MaxAttempts int

	// InitialDelay is slept after the first failure.
	InitialDelay time.Duration

	// Multiplier scales the delay after each failed attempt.
	Multiplier float64

	// MaxDelay caps the backoff delay.
	MaxDelay time.Duration

	// RetryIf decides whether an error is retryable. A nil predicate retries
	// every error.
	RetryIf func(error) bool
}

// DefaultRetryOptions are used for view-creation recovery.
func DefaultRetryOptions() RetryOptions {
	return RetryOptions{
		MaxAttempts:  3,
		InitialDelay: 200 * time.Millisecond,
		Multiplier:   2.0,
		MaxDelay:     2 * time.Second,
	}
}

// Retry runs fn with exponential backoff until it succeeds, the attempts are
// exhausted, the predicate rejects the error, or the context is cancelled.
func Retry(ctx context.Context, opts RetryOptions, fn func() error) error {
	if opts.MaxAttempts < 1 {
		opts.MaxAttempts = 1
	}
	if opts.Multiplier <= 1 {
		opts.Multiplier = 2.0
	}

	var lastErr error
	delay := opts.InitialDelay

	for attempt := 1; attempt <= opts.MaxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil {
			return nil
		}
		if opts.RetryIf != nil && !opts.RetryIf(lastErr) {
			return lastErr
		}
		if attempt == opts.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("retry cancelled after attempt %d/%d: %w", attempt, opts.MaxAttempts, ctx.Err())
		case <-time.After(delay):
		}

		delay = time.Duration(float64(delay) * opts.Multiplier)
		if opts.MaxDelay > 0 && delay > opts.MaxDelay {
			delay = opts.MaxDelay
		}
	}

	return fmt.Errorf("failed after %d attempts: %w", opts.MaxAttempts, lastErr)
}
