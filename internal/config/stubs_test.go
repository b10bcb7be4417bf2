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
	"context"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
)

type stubServo struct{}

func (stubServo) Ping(context.Context, uint8) error { return nil }

func (stubServo) ReadItem(context.Context, dxlbridge.ControlItem, uint8) (int32, error) {
	return 0, nil
}

func (stubServo) WriteItem(context.Context, dxlbridge.ControlItem, uint8, int32) error { return nil }

func (stubServo) SetGoalPosition(context.Context, uint8, int32) error { return nil }

func (stubServo) TorqueOn(context.Context, uint8) error { return nil }

func (stubServo) TorqueOff(context.Context, uint8) error { return nil }

type stubLink struct{}

func (stubLink) Buffered() int { return 0 }

func (stubLink) Peek(int) ([]byte, error) { return nil, nil }

func (stubLink) Discard(int) (int, error) { return 0, nil }

func (stubLink) Write(p []byte) (int, error) { return len(p), nil }
