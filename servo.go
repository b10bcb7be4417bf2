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

import "context"

// ControlItem names a register in a servo's control table
type ControlItem string

// Control table items used by the bridge
const (
	ItemID                  ControlItem = "id"
	ItemOperatingMode       ControlItem = "operating_mode"
	ItemHomingOffset        ControlItem = "homing_offset"
	ItemVelocityLimit       ControlItem = "velocity_limit"
	ItemTorqueEnable        ControlItem = "torque_enable"
	ItemHardwareErrorStatus ControlItem = "hardware_error_status"
	ItemPositionPGain       ControlItem = "position_p_gain"
	ItemGoalVelocity        ControlItem = "goal_velocity"
	ItemGoalPosition        ControlItem = "goal_position"
	ItemMoving              ControlItem = "moving"
	ItemPresentPosition     ControlItem = "present_position"
)

// Servo is the control interface of the actuator. Implementations talk to a
// servo bus; see the dynamixel package.
type Servo interface {
	// Ping returns nil when the servo with the given ID answers
	Ping(ctx context.Context, id uint8) error

	// ReadItem reads a control table item
	ReadItem(ctx context.Context, item ControlItem, id uint8) (int32, error)

	// WriteItem writes a control table item
	WriteItem(ctx context.Context, item ControlItem, id uint8, value int32) error

	// SetGoalPosition commands the servo to move to an absolute position
	SetGoalPosition(ctx context.Context, id uint8, position int32) error

	// TorqueOn enables the servo output
	TorqueOn(ctx context.Context, id uint8) error

	// TorqueOff disables the servo output. Required before EEPROM area writes.
	TorqueOff(ctx context.Context, id uint8) error
}

// LastErrorReporter is implemented by servos that remember the last bus error
type LastErrorReporter interface {
	LastError() error
}
