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

// Validate checks configuration correctness. It does not mutate cfg.
func Validate(cfg *Config) error {
	if _, err := dxlbridge.LookupProfile(cfg.Variant); err != nil {
		return err
	}

	if cfg.ServoID < 0 || cfg.ServoID > 252 {
		return fmt.Errorf("servo_id %d out of range 0-252", cfg.ServoID)
	}

	if cfg.ConfirmRetries != nil && *cfg.ConfirmRetries < 0 {
		return fmt.Errorf("confirm_retries must not be negative, got %d", *cfg.ConfirmRetries)
	}

	for name, raw := range map[string]string{
		"monitor_interval":  cfg.MonitorInterval,
		"confirm_delay":     cfg.ConfirmDelay,
		"servo_bus.timeout": cfg.ServoBus.Timeout,
	} {
		if raw == "" {
			continue
		}
		if _, err := time.ParseDuration(strings.TrimSpace(raw)); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}

	if g := cfg.GoalLimits; g != nil && g.Min > g.Max {
		return fmt.Errorf("goal_limits: min %d is above max %d", g.Min, g.Max)
	}

	for name, reg := range cfg.ControlTable {
		switch reg.Size {
		case 1, 2, 4:
		default:
			return fmt.Errorf("control_table %q: size must be 1, 2 or 4, got %d", name, reg.Size)
		}
	}

	if cfg.Host.Baud <= 0 {
		return fmt.Errorf("host.baud must be positive, got %d", cfg.Host.Baud)
	}
	if cfg.ServoBus.Baud <= 0 {
		return fmt.Errorf("servo_bus.baud must be positive, got %d", cfg.ServoBus.Baud)
	}

	switch cfg.Store.Kind {
	case StoreMRAM:
		if cfg.Store.SPIPort == "" {
			return fmt.Errorf("store.spi_port is required for kind %q", StoreMRAM)
		}
	case StoreFile:
		if cfg.Store.Path == "" {
			return fmt.Errorf("store.path is required for kind %q", StoreFile)
		}
	case StoreNone:
	default:
		return fmt.Errorf("store.kind %q is not one of mram, file, none", cfg.Store.Kind)
	}
	if cfg.Store.Kind != StoreNone && cfg.Store.Size < 4 {
		return fmt.Errorf("store.size must hold at least 4 bytes, got %d", cfg.Store.Size)
	}

	return nil
}
