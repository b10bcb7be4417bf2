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

// Package filestore keeps the bridge position in a fixed-size file. It stands
// in for the MRAM on development hosts and in simulation.
package filestore

import (
	"errors"
	"fmt"
	"os"
	"sync"
)

// DefaultSize matches the MRAM capacity
const DefaultSize = 32 * 1024

// ErrAddressRange is returned for addresses past the end of the image
var ErrAddressRange = errors.New("filestore: address out of range")

// ErrLocked is returned when another process holds the image
var ErrLocked = errors.New("filestore: image is locked by another process")

// Store is a byte-addressable file image. The file is held under an
// exclusive lock for the lifetime of the Store.
//
// Thread Safety: Store is safe for concurrent use.
type Store struct {
	file *os.File
	path string
	size int
	mu   sync.Mutex
}

// Open opens or creates the image at path, extends it to size bytes and
// locks it
func Open(path string, size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}

	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o600)
	if err != nil {
		return nil, fmt.Errorf("filestore: open %s: %w", path, err)
	}

	if err := lock(f); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("filestore: lock %s: %w", path, err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("filestore: stat %s: %w", path, err)
	}
	if info.Size() < int64(size) {
		if err := f.Truncate(int64(size)); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("filestore: size %s: %w", path, err)
		}
	}

	return &Store{file: f, path: path, size: size}, nil
}

// Close unlocks and closes the image
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	if err != nil {
		return fmt.Errorf("filestore: close %s: %w", s.path, err)
	}
	return nil
}

// Present reports whether the image is open
func (s *Store) Present() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.file != nil
}

// ReadByteAt reads one byte
func (s *Store) ReadByteAt(addr uint16) (byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(addr); err != nil {
		return 0, err
	}
	var b [1]byte
	if _, err := s.file.ReadAt(b[:], int64(addr)); err != nil {
		return 0, fmt.Errorf("filestore: read 0x%04X: %w", addr, err)
	}
	return b[0], nil
}

// WriteByteAt writes one byte and syncs it to disk
func (s *Store) WriteByteAt(addr uint16, value byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(addr); err != nil {
		return err
	}
	if _, err := s.file.WriteAt([]byte{value}, int64(addr)); err != nil {
		return fmt.Errorf("filestore: write 0x%04X: %w", addr, err)
	}
	if err := s.file.Sync(); err != nil {
		return fmt.Errorf("filestore: sync: %w", err)
	}
	return nil
}

func (s *Store) check(addr uint16) error {
	if s.file == nil {
		return fmt.Errorf("filestore: %s is closed", s.path)
	}
	if int(addr) >= s.size {
		return fmt.Errorf("%w: 0x%04X", ErrAddressRange, addr)
	}
	return nil
}
