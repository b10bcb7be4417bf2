// go-dxlbridge
// Copyright (c) 2025 The Zaparoo Project Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-dxlbridge.
//
// go-dxlbridge is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-dxlbridge is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-dxlbridge; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

// Package retry provides bounded retry helpers
package retry

import (
	"context"
	"errors"
	"time"
)

// ErrExhausted is returned when an operation still asks for a retry after
// the configured number of attempts. Callers wrap it with their own context.
var ErrExhausted = errors.New("retries exhausted")

// Operation represents a function that can be retried
// Returns: data, shouldRetry, error
// - data: the result if successful
// - shouldRetry: true if the operation should be retried
// - error: any permanent error that should stop retries
type Operation[T any] func() (T, bool, error)

// Config configures retry behavior
type Config struct {
	OnRetry     func(attempt int) error
	Description string
	MaxRetries  int
	RetryDelay  time.Duration
}

// Result carries the last value observed and how many attempts ran
type Result[T any] struct {
	Value    T
	Attempts int
}

// WithRetry executes an operation at most MaxRetries+1 times. The last value
// returned by the operation is reported even when retries run out, so callers
// can describe what they saw.
func WithRetry[T any](ctx context.Context, config Config, operation Operation[T]) (Result[T], error) {
	var res Result[T]

	for attempt := 0; attempt <= config.MaxRetries; attempt++ {
		value, shouldRetry, err := operation()
		res.Value = value
		res.Attempts = attempt + 1
		if err != nil {
			return res, err
		}

		if !shouldRetry {
			return res, nil
		}

		if attempt >= config.MaxRetries {
			break
		}

		if config.OnRetry != nil {
			if err := config.OnRetry(attempt + 1); err != nil {
				return res, err
			}
		}

		if err := sleep(ctx, config.RetryDelay); err != nil {
			return res, err
		}
	}

	return res, ErrExhausted
}

// TimeoutRetry repeats an operation until it stops asking for a retry or the
// timeout passes. It polls every interval.
func TimeoutRetry[T any](ctx context.Context, timeout, interval time.Duration, operation Operation[T]) (T, error) {
	var zero T
	deadline := time.Now().Add(timeout)

	for time.Now().Before(deadline) {
		result, shouldRetry, err := operation()
		if err != nil {
			return zero, err
		}

		if !shouldRetry {
			return result, nil
		}

		if err := sleep(ctx, interval); err != nil {
			return zero, err
		}
	}

	return zero, context.DeadlineExceeded
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
			return nil
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
