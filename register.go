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

package dxlbridge

import (
	"context"
	"errors"

	"github.com/ZaparooProject/go-dxlbridge/internal/retry"
)

// writeConfirmed sets a control item and reads it back until it holds want.
// The item is only written when it differs, so EEPROM cells are not rewritten
// on every boot. Bus errors count as a failed attempt.
func writeConfirmed(
	ctx context.Context, servo Servo, id uint8, item ControlItem, want int32, cfg ConfirmConfig,
) error {
	var lastErr error
	check := func() (int32, bool) {
		got, err := servo.ReadItem(ctx, item, id)
		if err != nil {
			lastErr = err
			return got, false
		}
		return got, got == want
	}

	res, err := retry.WithRetry(ctx, retry.Config{
		Description: string(item),
		MaxRetries:  cfg.MaxRetries,
		RetryDelay:  cfg.RetryDelay,
		OnRetry: func(attempt int) error {
			debugf("%s: confirm attempt %d for value %d", item, attempt+1, want)
			return nil
		},
	}, func() (int32, bool, error) {
		if got, ok := check(); ok {
			return got, false, nil
		}
		if err := servo.WriteItem(ctx, item, id, want); err != nil {
			lastErr = err
			return 0, true, nil
		}
		got, ok := check()
		return got, !ok, nil
	})
	if err == nil {
		return nil
	}
	if !errors.Is(err, retry.ErrExhausted) {
		return err
	}
	return &RegisterError{
		Cause:    lastErr,
		Item:     item,
		Want:     want,
		Got:      res.Value,
		Attempts: res.Attempts,
		ID:       id,
	}
}
