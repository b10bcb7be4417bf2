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

// State is everything the bridge knows about the servo between loop
// iterations. One State is created per Bridge and shared by pointer with its
// PositionKeeper and Engine.
type State struct {
	// FaultErr is the fatal error that halted the bridge
	FaultErr error

	// Degraded collects non-fatal boot and runtime faults, oldest first
	Degraded []error

	// RawPosition is the present position read at boot with no homing offset
	RawPosition int32

	// Offset is the homing offset computed at boot
	Offset int32

	// StoredPosition mirrors the persisted absolute position
	StoredPosition int32

	// LastPosition is the position most recently observed by the monitor
	LastPosition int32

	// Rollovers counts turn crossings recorded since boot
	Rollovers int

	// Fault is set once the bridge has entered the fatal halt
	Fault bool

	// StoreAvailable is false once the store was found absent or failed
	StoreAvailable bool

	// OffsetConfirmed reports whether the homing offset read back correctly
	OffsetConfirmed bool
}

func (s *State) degrade(err error) {
	s.Degraded = append(s.Degraded, err)
}
