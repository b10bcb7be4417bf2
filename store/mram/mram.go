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

// Package mram drives an Everspin MR25H256 SPI MRAM as the bridge's
// non-volatile position store
package mram

import (
	"errors"
	"fmt"
	"io"
	"sync"

	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	opWREN  = 0x06
	opWRDI  = 0x04
	opRDSR  = 0x05
	opREAD  = 0x03
	opWRITE = 0x02

	// statusWEL is the write enable latch bit of the status register
	statusWEL = 0x02

	// Size is the capacity of the MR25H256 in bytes
	Size = 32 * 1024

	// DefaultSpeed is a conservative SPI clock for the part (max 40 MHz)
	DefaultSpeed = 10 * physic.MegaHertz
)

// ErrAddressRange is returned for addresses past the end of the memory
var ErrAddressRange = errors.New("mram: address out of range")

// Device is an MR25H256 on a SPI connection.
//
// Thread Safety: Device serializes SPI transactions and is safe for
// concurrent use.
type Device struct {
	conn   conn.Conn
	closer io.Closer
	size   int
	mu     sync.Mutex
}

// New wraps an already configured SPI connection
func New(c conn.Conn) *Device {
	return &Device{conn: c, size: Size}
}

// Open initializes periph, opens the named SPI port and connects to the
// memory in SPI mode 0. An empty name selects the first port.
func Open(portName string, speed physic.Frequency) (*Device, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("mram: initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("mram: open SPI port %q: %w", portName, err)
	}

	if speed <= 0 {
		speed = DefaultSpeed
	}
	c, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("mram: connect SPI port %q: %w", portName, err)
	}

	d := New(c)
	d.closer = port
	return d, nil
}

// Close releases the SPI port
func (d *Device) Close() error {
	if d.closer == nil {
		return nil
	}
	if err := d.closer.Close(); err != nil {
		return fmt.Errorf("mram: close: %w", err)
	}
	return nil
}

// Present checks for the memory by setting and clearing the write enable
// latch and reading it back. A missing chip reads all zeros or all ones and
// cannot follow both changes.
func (d *Device) Present() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.conn.Tx([]byte{opWREN}, nil); err != nil {
		return false
	}
	set, err := d.status()
	if err != nil || set&statusWEL == 0 {
		return false
	}
	if err := d.conn.Tx([]byte{opWRDI}, nil); err != nil {
		return false
	}
	cleared, err := d.status()
	return err == nil && cleared&statusWEL == 0
}

func (d *Device) status() (byte, error) {
	r := make([]byte, 2)
	if err := d.conn.Tx([]byte{opRDSR, 0x00}, r); err != nil {
		return 0, fmt.Errorf("mram: read status: %w", err)
	}
	return r[1], nil
}

// ReadByteAt reads one byte
func (d *Device) ReadByteAt(addr uint16) (byte, error) {
	if int(addr) >= d.size {
		return 0, fmt.Errorf("%w: 0x%04X", ErrAddressRange, addr)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	w := []byte{opREAD, byte(addr >> 8), byte(addr), 0x00}
	r := make([]byte, len(w))
	if err := d.conn.Tx(w, r); err != nil {
		return 0, fmt.Errorf("mram: read 0x%04X: %w", addr, err)
	}
	return r[3], nil
}

// WriteByteAt writes one byte. The write enable latch is cleared again
// afterwards so a glitch on the bus cannot corrupt the memory.
func (d *Device) WriteByteAt(addr uint16, value byte) error {
	if int(addr) >= d.size {
		return fmt.Errorf("%w: 0x%04X", ErrAddressRange, addr)
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	if err := d.conn.Tx([]byte{opWREN}, nil); err != nil {
		return fmt.Errorf("mram: write enable: %w", err)
	}
	if err := d.conn.Tx([]byte{opWRITE, byte(addr >> 8), byte(addr), value}, nil); err != nil {
		return fmt.Errorf("mram: write 0x%04X: %w", addr, err)
	}
	if err := d.conn.Tx([]byte{opWRDI}, nil); err != nil {
		return fmt.Errorf("mram: write disable: %w", err)
	}
	return nil
}

// String implements conn.Resource
func (d *Device) String() string {
	return fmt.Sprintf("MR25H256(%s)", d.conn)
}
