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
	"github.com/ZaparooProject/go-dxlbridge/internal/frame"
)

// StoredPositionAddr is the store address of the persisted position. The
// position occupies four bytes, most significant first.
const StoredPositionAddr uint16 = 0

// Store is a byte-addressable non-volatile memory. See the store/mram and
// store/filestore packages.
type Store interface {
	// Present reports whether the memory answers
	Present() bool

	// ReadByteAt reads one byte
	ReadByteAt(addr uint16) (byte, error)

	// WriteByteAt writes one byte
	WriteByteAt(addr uint16, value byte) error
}

// LoadStoredPosition reads the persisted absolute position
func LoadStoredPosition(s Store) (int32, error) {
	var buf [frame.PayloadLength]byte
	for i := range buf {
		addr := StoredPositionAddr + uint16(i)
		b, err := s.ReadByteAt(addr)
		if err != nil {
			return 0, &StoreError{Op: "read", Addr: addr, Err: err}
		}
		buf[i] = b
	}
	return frame.Int32(buf[:]), nil
}

// SaveStoredPosition persists an absolute position
func SaveStoredPosition(s Store, position int32) error {
	var buf [frame.PayloadLength]byte
	frame.PutInt32(buf[:], position)
	for i, b := range buf {
		addr := StoredPositionAddr + uint16(i)
		if err := s.WriteByteAt(addr, b); err != nil {
			return &StoreError{Op: "write", Addr: addr, Err: err}
		}
	}
	return nil
}
