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

package virtual

import (
	"errors"
	"fmt"
	"sync"
)

// ErrStoreAbsent is returned by a MemoryStore marked absent
var ErrStoreAbsent = errors.New("virtual store: not present")

// MemoryStore is a byte-addressable in-memory Store
type MemoryStore struct {
	writeErr error
	data     []byte
	writes   int
	mu       sync.Mutex
	absent   bool
}

// NewMemoryStore creates a zeroed store of the given size
func NewMemoryStore(size int) *MemoryStore {
	return &MemoryStore{data: make([]byte, size)}
}

// SetAbsent makes Present report false and all I/O fail
func (m *MemoryStore) SetAbsent(absent bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.absent = absent
}

// FailWrites makes every write return err. A nil err clears the failure.
func (m *MemoryStore) FailWrites(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.writeErr = err
}

// Load copies p into the store at addr without counting writes
func (m *MemoryStore) Load(addr uint16, p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data[addr:], p)
}

// Bytes returns a copy of n bytes at addr
func (m *MemoryStore) Bytes(addr uint16, n int) []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]byte(nil), m.data[addr:int(addr)+n]...)
}

// Writes returns the number of byte writes accepted
func (m *MemoryStore) Writes() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.writes
}

// Present implements dxlbridge.Store
func (m *MemoryStore) Present() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.absent
}

// ReadByteAt implements dxlbridge.Store
func (m *MemoryStore) ReadByteAt(addr uint16) (byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.absent {
		return 0, ErrStoreAbsent
	}
	if int(addr) >= len(m.data) {
		return 0, fmt.Errorf("virtual store: address 0x%04X out of range", addr)
	}
	return m.data[addr], nil
}

// WriteByteAt implements dxlbridge.Store
func (m *MemoryStore) WriteByteAt(addr uint16, value byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.absent {
		return ErrStoreAbsent
	}
	if m.writeErr != nil {
		return m.writeErr
	}
	if int(addr) >= len(m.data) {
		return fmt.Errorf("virtual store: address 0x%04X out of range", addr)
	}
	m.data[addr] = value
	m.writes++
	return nil
}
