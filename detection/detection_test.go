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

package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.bug.st/serial/enumerator"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		expected    bool
	}{
		{name: "empty ignore list", devicePath: "/dev/ttyUSB0", ignorePaths: []string{}},
		{name: "empty device path", devicePath: "", ignorePaths: []string{"/dev/ttyUSB0"}},
		{name: "exact unix path", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "exact windows path", devicePath: "COM2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "case insensitive", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"/DEV/TTYUSB0"}, expected: true},
		{name: "windows case insensitive", devicePath: "com2", ignorePaths: []string{"COM2"}, expected: true},
		{name: "no match", devicePath: "/dev/ttyUSB1", ignorePaths: []string{"/dev/ttyUSB0"}},
		{
			name:        "match among several",
			devicePath:  "/dev/ttyAMA0",
			ignorePaths: []string{"/dev/ttyUSB0", "/dev/ttyAMA0", "COM2"},
			expected:    true,
		},
		{name: "relative components", devicePath: "/dev/../dev/ttyUSB0", ignorePaths: []string{"/dev/ttyUSB0"}, expected: true},
		{name: "blank entries skipped", devicePath: "/dev/ttyUSB0", ignorePaths: []string{"", "/dev/ttyUSB0"}, expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestParseVIDPID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "0403:6014", want: "0403:6014"},
		{in: "fff1:ff48", want: "FFF1:FF48"},
		{in: "VID:0403 PID:6014", want: "0403:6014"},
		{in: "vendor=0403 product=6014", want: "0403:6014"},
		{in: "vid=0x0403 pid=0x6014", want: "0403:6014"},
		{in: "0403", want: ""},
		{in: "", want: ""},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ParseVIDPID(tt.in))
		})
	}
}

func TestFormatVIDPID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "0403:6014", FormatVIDPID("0403", "6014"))
	assert.Equal(t, "0403:00AB", FormatVIDPID("403", "ab"))
	assert.Empty(t, FormatVIDPID("", "6014"))
}

func TestIsBlocked(t *testing.T) {
	t.Parallel()

	assert.True(t, IsBlocked("1d50:6018", DefaultBlocklist()))
	assert.False(t, IsBlocked("0403:6014", DefaultBlocklist()))
	assert.False(t, IsBlocked("", []string{""}))
}

func TestFilterPorts(t *testing.T) {
	t.Parallel()

	details := []*enumerator.PortDetails{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyUSB1", IsUSB: true, VID: "1a86", PID: "7523", Product: "USB Serial"},
		{Name: "/dev/ttyUSB0", IsUSB: true, VID: "0403", PID: "6014", SerialNumber: "FT1"},
		{Name: "/dev/ttyACM0", IsUSB: true, VID: "1d50", PID: "6018"},
		{Name: "/dev/ttyUSB2", IsUSB: true, VID: "1a86", PID: "7523"},
		nil,
	}

	t.Run("defaults", func(t *testing.T) {
		t.Parallel()
		ports := filterPorts(details, DefaultOptions())
		require.Len(t, ports, 4)
		assert.Equal(t, "/dev/ttyUSB0", ports[0].Name)
		assert.Equal(t, "ROBOTIS U2D2", ports[0].Adapter)
		assert.Equal(t, "FT1", ports[0].SerialNumber)
		assert.Equal(t, "/dev/ttyS0", ports[1].Name)
		assert.Equal(t, "/dev/ttyUSB0 [0403:6014] ROBOTIS U2D2", ports[0].String())
		assert.Equal(t, "/dev/ttyS0", ports[1].String())
		assert.Equal(t, "/dev/ttyUSB1 [1A86:7523] USB Serial", ports[2].String())
		assert.Equal(t, "/dev/ttyUSB2 [1A86:7523]", ports[3].String())
	})

	t.Run("usb only with ignore paths", func(t *testing.T) {
		t.Parallel()
		opts := DefaultOptions()
		opts.USBOnly = true
		opts.IgnorePaths = []string{"/dev/ttyUSB2"}
		ports := filterPorts(details, opts)
		require.Len(t, ports, 2)
		assert.Equal(t, "/dev/ttyUSB0", ports[0].Name)
		assert.Equal(t, "/dev/ttyUSB1", ports[1].Name)
	})
}
