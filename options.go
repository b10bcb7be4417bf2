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
	"errors"
	"fmt"
	"time"
)

// Defaults used by New
const (
	DefaultServoID          uint8 = 1
	DefaultIdentity               = "VM200G"
	DefaultMonitorInterval        = 100 * time.Millisecond
	DefaultAnnounceInterval       = 500 * time.Millisecond
	DefaultIdleDelay              = time.Millisecond
)

// ConfirmConfig bounds the read-after-write loop used for register writes
type ConfirmConfig struct {
	MaxRetries int
	RetryDelay time.Duration
}

// DefaultConfirmConfig returns the confirmation bounds used by New
func DefaultConfirmConfig() ConfirmConfig {
	return ConfirmConfig{
		MaxRetries: 5,
		RetryDelay: 10 * time.Millisecond,
	}
}

// Option is a functional option for configuring a Bridge
type Option func(*Bridge) error

// WithServoID sets the bus ID of the servo
func WithServoID(id uint8) Option {
	return func(b *Bridge) error {
		if id > 252 {
			return fmt.Errorf("servo id %d out of range 0-252", id)
		}
		b.servoID = id
		return nil
	}
}

// WithProfile selects the servo family
func WithProfile(p Profile) Option {
	return func(b *Bridge) error {
		if p.TurnSize <= 0 {
			return fmt.Errorf("profile %q: turn size must be positive", p.Name)
		}
		if len(p.Table) == 0 {
			return fmt.Errorf("profile %q: empty control table", p.Name)
		}
		b.profile = p
		return nil
	}
}

// WithMonitorInterval sets how often the rollover monitor runs
func WithMonitorInterval(d time.Duration) Option {
	return func(b *Bridge) error {
		if d <= 0 {
			return errors.New("monitor interval must be positive")
		}
		b.monitorInterval = d
		return nil
	}
}

// WithConfirm sets the register confirmation bounds
func WithConfirm(cfg ConfirmConfig) Option {
	return func(b *Bridge) error {
		if cfg.MaxRetries < 0 {
			return errors.New("confirm retries must not be negative")
		}
		b.confirm = cfg
		return nil
	}
}

// WithIdentity sets the string sent in reply to the identification query
func WithIdentity(identity string) Option {
	return func(b *Bridge) error {
		if identity == "" {
			return errors.New("identity must not be empty")
		}
		b.identity = identity
		return nil
	}
}

// WithRolloverCorrection enables the half-turn correction applied to the
// homing offset during boot reconciliation
func WithRolloverCorrection(enabled bool) Option {
	return func(b *Bridge) error {
		b.rolloverCorrection = enabled
		return nil
	}
}

// WithClock replaces the time source. The returned times must carry a
// monotonic reading for interval checks to be immune to wall clock jumps.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) error {
		if now == nil {
			return errors.New("clock must not be nil")
		}
		b.now = now
		return nil
	}
}

// WithIdleDelay sets how long Run sleeps when an iteration had nothing to do
func WithIdleDelay(d time.Duration) Option {
	return func(b *Bridge) error {
		if d < 0 {
			return errors.New("idle delay must not be negative")
		}
		b.idleDelay = d
		return nil
	}
}

// WithAnnounceInterval sets the repeat interval of the fault announcement
func WithAnnounceInterval(d time.Duration) Option {
	return func(b *Bridge) error {
		if d <= 0 {
			return errors.New("announce interval must be positive")
		}
		b.announceInterval = d
		return nil
	}
}
