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
	"errors"
	"fmt"
)

// Bridge errors
var (
	// ErrFraming marks a host frame that failed marker, checksum and literal checks
	ErrFraming = errors.New("frame rejected")
	// ErrDeviceUnreachable is the fatal boot condition: the servo did not answer a ping
	ErrDeviceUnreachable = errors.New("servo unreachable")
	// ErrRegisterWriteMismatch means a register never read back the value written to it
	ErrRegisterWriteMismatch = errors.New("register write not confirmed")
	// ErrStoreUnavailable means the non-volatile store is absent or failing
	ErrStoreUnavailable = errors.New("non-volatile store unavailable")
	// ErrHalted is returned by Step once the bridge has entered the fault halt
	ErrHalted = errors.New("bridge halted")
	// ErrUnknownProfile is returned when a profile name does not match any family
	ErrUnknownProfile = errors.New("unknown device profile")
	// ErrUnknownItem is returned for a control item missing from a control table
	ErrUnknownItem = errors.New("unknown control table item")
)

// DeviceError describes a servo that could not be reached
type DeviceError struct {
	Err error
	Op  string
	ID  uint8
}

// Error implements the error interface
func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s: servo %d: %v", e.Op, e.ID, e.Err)
}

// Unwrap exposes both the unreachable sentinel and the bus error
func (e *DeviceError) Unwrap() []error {
	return []error{ErrDeviceUnreachable, e.Err}
}

// RegisterError describes a register that did not confirm a write
type RegisterError struct {
	Cause    error // last bus error seen while confirming, if any
	Item     ControlItem
	Want     int32
	Got      int32
	Attempts int
	ID       uint8
}

// Error implements the error interface
func (e *RegisterError) Error() string {
	msg := fmt.Sprintf("servo %d %s: wrote %d, read back %d after %d attempts",
		e.ID, e.Item, e.Want, e.Got, e.Attempts)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

// Unwrap exposes the mismatch sentinel and the last bus error
func (e *RegisterError) Unwrap() []error {
	if e.Cause == nil {
		return []error{ErrRegisterWriteMismatch}
	}
	return []error{ErrRegisterWriteMismatch, e.Cause}
}

// StoreError describes a failed non-volatile store access
type StoreError struct {
	Err  error
	Op   string
	Addr uint16
}

// Error implements the error interface
func (e *StoreError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("store %s at 0x%04X failed", e.Op, e.Addr)
	}
	return fmt.Sprintf("store %s at 0x%04X: %v", e.Op, e.Addr, e.Err)
}

// Unwrap exposes the unavailable sentinel and the backend error
func (e *StoreError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrStoreUnavailable}
	}
	return []error{ErrStoreUnavailable, e.Err}
}
