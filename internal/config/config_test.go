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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
)

const yamlConfig = `
variant: y
servo_id: 3
identity: VM300Y
monitor_interval: 50ms
confirm_retries: 2
goal_limits:
  min: -1000
  max: 1000
control_table:
  goal_position:
    addr: 600
    size: 4
host:
  port: /dev/ttyACM0
servo_bus:
  port: /dev/ttyUSB0
  dir_pin: GPIO17
store:
  kind: file
  path: /var/lib/dxlbridge/position.bin
`

const tomlConfig = `
variant = "pro"
servo_id = 2
rollover_correction = true

[host]
port = "/dev/ttyS1"
baud = 9600

[store]
kind = "none"

[log]
level = "debug"
no_color = true
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad_YAML(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeFile(t, "bridge.yaml", yamlConfig))
	require.NoError(t, err)

	assert.Equal(t, "y", cfg.Variant)
	assert.Equal(t, 3, cfg.ServoID)
	assert.Equal(t, "VM300Y", cfg.Identity)
	assert.Equal(t, "/dev/ttyACM0", cfg.Host.Port)
	assert.Equal(t, 115200, cfg.Host.Baud, "default kept")
	assert.Equal(t, 57600, cfg.ServoBus.Baud, "default kept")
	assert.Equal(t, "GPIO17", cfg.ServoBus.DirPin)
	assert.Equal(t, StoreFile, cfg.Store.Kind)
	require.NotNil(t, cfg.ConfirmRetries)
	assert.Equal(t, 2, *cfg.ConfirmRetries)

	p, err := cfg.Profile()
	require.NoError(t, err)
	reg, err := p.Register(dxlbridge.ItemGoalPosition)
	require.NoError(t, err)
	assert.Equal(t, uint16(600), reg.Addr)
	assert.Equal(t, dxlbridge.Range(-1000, 1000), p.GoalLimits)
}

func TestLoad_TOML(t *testing.T) {
	t.Parallel()

	cfg, err := Load(writeFile(t, "bridge.toml", tomlConfig))
	require.NoError(t, err)

	assert.Equal(t, "pro", cfg.Variant)
	assert.Equal(t, 2, cfg.ServoID)
	assert.True(t, cfg.RolloverCorrection)
	assert.Equal(t, 9600, cfg.Host.Baud)
	assert.Equal(t, StoreNone, cfg.Store.Kind)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.NoColor)
	assert.Equal(t, 100*time.Millisecond, cfg.BusTimeout())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)

	_, err = Load(writeFile(t, "bad.yaml", "variant: [unclosed"))
	require.Error(t, err)

	_, err = Load(writeFile(t, "bad.toml", "variant = "))
	require.Error(t, err)

	_, err = Load(writeFile(t, "ax.yaml", "variant: ax"))
	require.ErrorIs(t, err, dxlbridge.ErrUnknownProfile)
}

func TestValidate(t *testing.T) {
	t.Parallel()

	negative := -1
	tests := []struct {
		mutate  func(*Config)
		name    string
		wantErr string
	}{
		{name: "defaults", mutate: func(*Config) {}},
		{name: "servo id", mutate: func(c *Config) { c.ServoID = 253 }, wantErr: "servo_id"},
		{name: "retries", mutate: func(c *Config) { c.ConfirmRetries = &negative }, wantErr: "confirm_retries"},
		{name: "interval", mutate: func(c *Config) { c.MonitorInterval = "soon" }, wantErr: "monitor_interval"},
		{name: "bus timeout", mutate: func(c *Config) { c.ServoBus.Timeout = "1 sec" }, wantErr: "servo_bus.timeout"},
		{
			name:    "goal limits",
			mutate:  func(c *Config) { c.GoalLimits = &LimitsConfig{Min: 10, Max: -10} },
			wantErr: "goal_limits",
		},
		{
			name:    "register size",
			mutate:  func(c *Config) { c.ControlTable = map[string]RegisterConfig{"moving": {Addr: 1, Size: 3}} },
			wantErr: "control_table",
		},
		{name: "host baud", mutate: func(c *Config) { c.Host.Baud = 0 }, wantErr: "host.baud"},
		{name: "bus baud", mutate: func(c *Config) { c.ServoBus.Baud = -1 }, wantErr: "servo_bus.baud"},
		{name: "store kind", mutate: func(c *Config) { c.Store.Kind = "eeprom" }, wantErr: "store.kind"},
		{name: "file path", mutate: func(c *Config) { c.Store.Kind = StoreFile }, wantErr: "store.path"},
		{name: "spi port", mutate: func(c *Config) { c.Store.SPIPort = "" }, wantErr: "store.spi_port"},
		{name: "store size", mutate: func(c *Config) { c.Store.Size = 2 }, wantErr: "store.size"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			cfg := Default()
			tt.mutate(&cfg)
			err := Validate(&cfg)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestOptions(t *testing.T) {
	t.Parallel()

	cfg := Default()
	cfg.ServoID = 7
	cfg.Identity = "VM201G"

	opts, err := cfg.Options()
	require.NoError(t, err)
	assert.NotEmpty(t, opts)

	// The options must be accepted by the bridge.
	_, err = dxlbridge.New(stubServo{}, nil, stubLink{}, opts...)
	require.NoError(t, err)

	cfg.Variant = "unknown"
	_, err = cfg.Options()
	require.ErrorIs(t, err, dxlbridge.ErrUnknownProfile)
}
