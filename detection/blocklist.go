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
	"path/filepath"
	"strings"
)

// DefaultBlocklist returns USB adapters that must never be opened as a
// servo bus or host link. Entries are VID:PID in hex, case-insensitive.
func DefaultBlocklist() []string {
	return []string{
		"1D50:6018", // Black Magic Probe GDB server
		"0483:374B", // ST-LINK/V2-1 virtual COM port
	}
}

// IsBlocked reports whether vidpid matches an entry in blocklist.
func IsBlocked(vidpid string, blocklist []string) bool {
	vidpid = strings.ToUpper(strings.TrimSpace(vidpid))
	if vidpid == "" {
		return false
	}
	for _, blocked := range blocklist {
		if strings.ToUpper(strings.TrimSpace(blocked)) == vidpid {
			return true
		}
	}
	return false
}

// ParseVIDPID normalizes a USB identifier to "VVVV:PPPP". It accepts
// "0403:6014", "VID:0403 PID:6014" and "vid=0403 pid=6014". An empty
// string is returned when either half is missing.
func ParseVIDPID(descriptor string) string {
	descriptor = strings.ToUpper(strings.TrimSpace(descriptor))

	vid := afterAny(descriptor, "VID:", "VID=", "VENDOR=")
	pid := afterAny(descriptor, "PID:", "PID=", "PRODUCT=")
	if vid == "" && pid == "" {
		if a, b, ok := strings.Cut(descriptor, ":"); ok {
			vid, pid = leadingHex(a), leadingHex(b)
		}
	}
	if vid == "" || pid == "" {
		return ""
	}
	return vid + ":" + pid
}

// FormatVIDPID joins the separate hex strings reported by the port
// enumerator.
func FormatVIDPID(vid, pid string) string {
	vid, pid = leadingHex(strings.ToUpper(vid)), leadingHex(strings.ToUpper(pid))
	if vid == "" || pid == "" {
		return ""
	}
	return padHex(vid) + ":" + padHex(pid)
}

func afterAny(s string, keys ...string) string {
	for _, k := range keys {
		if idx := strings.Index(s, k); idx >= 0 {
			return leadingHex(s[idx+len(k):])
		}
	}
	return ""
}

func leadingHex(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "0X")
	end := 0
	for end < len(s) && end < 4 && isHex(s[end]) {
		end++
	}
	return s[:end]
}

func padHex(s string) string {
	for len(s) < 4 {
		s = "0" + s
	}
	return s
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'F') || (c >= 'a' && c <= 'f')
}

// IsPathIgnored reports whether devicePath names one of ignorePaths.
// Comparison is case-insensitive and on cleaned paths, so "COM2" matches
// "com2" and "/dev/../dev/ttyUSB0" matches "/dev/ttyUSB0".
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" {
		return false
	}
	want := normalizedPath(devicePath)
	for _, p := range ignorePaths {
		if p != "" && normalizedPath(p) == want {
			return true
		}
	}
	return false
}

func normalizedPath(p string) string {
	if strings.Contains(p, "/") {
		p = filepath.Clean(p)
	}
	return strings.ToLower(p)
}
