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

package config

import (
	"fmt"
	"strings"
	"time"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
)

// Profile resolves the configured variant and applies the control table and
// goal limit overrides
func (c *Config) Profile() (dxlbridge.Profile, error) {
	p, err := dxlbridge.LookupProfile(c.Variant)
	if err != nil {
		return dxlbridge.Profile{}, err
	}
	if len(c.ControlTable) > 0 {
		table := make(dxlbridge.ControlTable, len(c.ControlTable))
		for name, reg := range c.ControlTable {
			table[dxlbridge.ControlItem(name)] = dxlbridge.Register{Addr: reg.Addr, Size: reg.Size}
		}
		p = p.WithTable(table)
	}
	if c.GoalLimits != nil {
		p.GoalLimits = dxlbridge.Range(c.GoalLimits.Min, c.GoalLimits.Max)
	}
	return p, nil
}

// BusTimeout returns the servo bus status timeout
func (c *Config) BusTimeout() time.Duration {
	d, err := parseDuration(c.ServoBus.Timeout)
	if err != nil || d <= 0 {
		return 100 * time.Millisecond
	}
	return d
}

// Options converts the configuration into bridge options
func (c *Config) Options() ([]dxlbridge.Option, error) {
	profile, err := c.Profile()
	if err != nil {
		return nil, err
	}

	opts := []dxlbridge.Option{
		dxlbridge.WithProfile(profile),
		dxlbridge.WithServoID(uint8(c.ServoID)),
		dxlbridge.WithRolloverCorrection(c.RolloverCorrection),
	}
	if c.Identity != "" {
		opts = append(opts, dxlbridge.WithIdentity(c.Identity))
	}

	if c.MonitorInterval != "" {
		d, err := parseDuration(c.MonitorInterval)
		if err != nil {
			return nil, fmt.Errorf("parse monitor_interval: %w", err)
		}
		opts = append(opts, dxlbridge.WithMonitorInterval(d))
	}

	confirm := dxlbridge.DefaultConfirmConfig()
	if c.ConfirmRetries != nil {
		confirm.MaxRetries = *c.ConfirmRetries
	}
	if c.ConfirmDelay != "" {
		d, err := parseDuration(c.ConfirmDelay)
		if err != nil {
			return nil, fmt.Errorf("parse confirm_delay: %w", err)
		}
		confirm.RetryDelay = d
	}
	opts = append(opts, dxlbridge.WithConfirm(confirm))

	return opts, nil
}

func parseDuration(raw string) (time.Duration, error) {
	return time.ParseDuration(strings.TrimSpace(raw))
}
