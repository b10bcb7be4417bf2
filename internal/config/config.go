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

// Package config loads the bridge configuration from YAML or TOML files
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config is the on-disk configuration of the bridge daemon
type Config struct {
	ControlTable       map[string]RegisterConfig `yaml:"control_table" toml:"control_table"`
	GoalLimits         *LimitsConfig             `yaml:"goal_limits" toml:"goal_limits"`
	ConfirmRetries     *int                      `yaml:"confirm_retries" toml:"confirm_retries"`
	Variant            string                    `yaml:"variant" toml:"variant"`
	Identity           string                    `yaml:"identity" toml:"identity"`
	MonitorInterval    string                    `yaml:"monitor_interval" toml:"monitor_interval"`
	ConfirmDelay       string                    `yaml:"confirm_delay" toml:"confirm_delay"`
	Log                LogConfig                 `yaml:"log" toml:"log"`
	Host               HostConfig                `yaml:"host" toml:"host"`
	ServoBus           BusConfig                 `yaml:"servo_bus" toml:"servo_bus"`
	Store              StoreConfig               `yaml:"store" toml:"store"`
	ServoID            int                       `yaml:"servo_id" toml:"servo_id"`
	RolloverCorrection bool                      `yaml:"rollover_correction" toml:"rollover_correction"`
}

// RegisterConfig overrides one control table entry
type RegisterConfig struct {
	Addr uint16 `yaml:"addr" toml:"addr"`
	Size int    `yaml:"size" toml:"size"`
}

// LimitsConfig overrides the goal position range
type LimitsConfig struct {
	Min int32 `yaml:"min" toml:"min"`
	Max int32 `yaml:"max" toml:"max"`
}

// HostConfig describes the serial link to the host computer
type HostConfig struct {
	Port string `yaml:"port" toml:"port"`
	Baud int    `yaml:"baud" toml:"baud"`
}

// BusConfig describes the servo bus
type BusConfig struct {
	Port    string `yaml:"port" toml:"port"`
	DirPin  string `yaml:"dir_pin" toml:"dir_pin"`
	Timeout string `yaml:"timeout" toml:"timeout"`
	Baud    int    `yaml:"baud" toml:"baud"`
}

// Store kinds
const (
	StoreMRAM = "mram"
	StoreFile = "file"
	StoreNone = "none"
)

// StoreConfig selects the non-volatile position store
type StoreConfig struct {
	Kind    string `yaml:"kind" toml:"kind"`
	SPIPort string `yaml:"spi_port" toml:"spi_port"`
	Path    string `yaml:"path" toml:"path"`
	SpeedHz int64  `yaml:"speed_hz" toml:"speed_hz"`
	Size    int    `yaml:"size" toml:"size"`
}

// LogConfig configures the console logger
type LogConfig struct {
	Level   string `yaml:"level" toml:"level"`
	NoColor bool   `yaml:"no_color" toml:"no_color"`
}

// Default returns the configuration used when no file is given
func Default() Config {
	return Config{
		Variant:         "mx",
		ServoID:         1,
		Identity:        "VM200G",
		MonitorInterval: "100ms",
		ConfirmDelay:    "10ms",
		Host:            HostConfig{Baud: 115200},
		ServoBus:        BusConfig{Baud: 57600, Timeout: "100ms"},
		Store: StoreConfig{
			Kind:    StoreMRAM,
			SPIPort: "SPI0.0",
			SpeedHz: 10_000_000,
			Size:    32 * 1024,
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads a configuration file over the defaults. Files ending in .toml
// are decoded as TOML, everything else as YAML.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("load config: %w", err)
	}

	if err := Decode(data, filepath.Ext(path), &cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}

	if err := Validate(&cfg); err != nil {
		return Config{}, fmt.Errorf("load config %s: %w", path, err)
	}
	return cfg, nil
}

// Decode unmarshals data into cfg. ext picks the format.
func Decode(data []byte, ext string, cfg *Config) error {
	switch strings.ToLower(ext) {
	case ".toml":
		if err := toml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse toml: %w", err)
		}
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return fmt.Errorf("parse yaml: %w", err)
		}
	}
	return nil
}
