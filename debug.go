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
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

var (
	debugEnabled atomic.Bool
	pkgLogger    atomic.Pointer[zerolog.Logger]
)

// SetDebugEnabled turns verbose protocol and persistence tracing on or off
func SetDebugEnabled(enabled bool) {
	debugEnabled.Store(enabled)
}

// SetLogger replaces the logger used by the bridge. Until it is called the
// zerolog global logger is used.
func SetLogger(l zerolog.Logger) {
	pkgLogger.Store(&l)
}

func logger() *zerolog.Logger {
	if l := pkgLogger.Load(); l != nil {
		return l
	}
	return &log.Logger
}

func debugf(format string, args ...any) {
	if !debugEnabled.Load() {
		return
	}
	logger().Debug().Msgf(format, args...)
}

func debugln(msg string) {
	if !debugEnabled.Load() {
		return
	}
	logger().Debug().Msg(msg)
}
