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

// Package uart provides the serial host link of the bridge
package uart

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
)

const (
	// DefaultBaud is the host link speed
	DefaultBaud = 115200

	// pollTimeout bounds each blocking port read so Run notices cancellation
	pollTimeout = 50 * time.Millisecond

	// maxBuffered caps unread input. Bytes past the cap are dropped.
	maxBuffered = 4096
)

// ErrShortBuffer is returned by Peek and Discard when fewer bytes are buffered
var ErrShortBuffer = errors.New("uart: not enough buffered bytes")

// Transport is a serial port with a receive buffer. Run fills the buffer from
// a dedicated goroutine; Buffered, Peek and Discard never block, so the
// control loop can poll the link between servo operations.
//
// Thread Safety: all methods are safe for concurrent use.
type Transport struct {
	port     io.ReadWriteCloser
	readErr  error
	portName string
	buf      []byte
	dropped  int
	mu       sync.Mutex
	writeMu  sync.Mutex
}

// Open opens a serial port for the host link
func Open(portName string, baud int) (*Transport, error) {
	if baud <= 0 {
		baud = DefaultBaud
	}
	port, err := serial.Open(portName, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("uart: open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(pollTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("uart: set read timeout: %w", err)
	}
	return New(port, portName), nil
}

// New wraps an already open port. Reads from port should time out
// periodically so Run can observe cancellation.
func New(port io.ReadWriteCloser, portName string) *Transport {
	return &Transport{
		port:     port,
		portName: portName,
	}
}

// Run reads the port into the buffer until ctx is done or the port fails
func (t *Transport) Run(ctx context.Context) error {
	chunk := make([]byte, 256)
	for {
		if ctx.Err() != nil {
			return nil
		}
		n, err := t.port.Read(chunk)
		if n > 0 {
			t.append(chunk[:n])
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			t.mu.Lock()
			t.readErr = err
			t.mu.Unlock()
			return fmt.Errorf("uart: read %s: %w", t.portName, err)
		}
	}
}

func (t *Transport) append(p []byte) {
	t.mu.Lock()
	defer t.mu.Unlock()
	room := maxBuffered - len(t.buf)
	if room < len(p) {
		t.dropped += len(p) - max(room, 0)
		p = p[:max(room, 0)]
	}
	t.buf = append(t.buf, p...)
}

// Buffered returns the number of unread bytes
func (t *Transport) Buffered() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.buf)
}

// Peek returns the next n unread bytes without consuming them
func (t *Transport) Peek(n int) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > len(t.buf) {
		return nil, ErrShortBuffer
	}
	return append([]byte(nil), t.buf[:n]...), nil
}

// Discard consumes n unread bytes
func (t *Transport) Discard(n int) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if n > len(t.buf) {
		n = len(t.buf)
		t.buf = t.buf[:0]
		return n, ErrShortBuffer
	}
	t.buf = append(t.buf[:0], t.buf[n:]...)
	return n, nil
}

// Write sends p to the host
func (t *Transport) Write(p []byte) (int, error) {
	t.writeMu.Lock()
	defer t.writeMu.Unlock()
	n, err := t.port.Write(p)
	if err != nil {
		return n, fmt.Errorf("uart: write %s: %w", t.portName, err)
	}
	return n, nil
}

// Dropped returns how many received bytes were lost to a full buffer
func (t *Transport) Dropped() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.dropped
}

// Err returns the error that stopped Run, if any
func (t *Transport) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.readErr
}

// Close closes the port
func (t *Transport) Close() error {
	if t.port == nil {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("uart: close %s: %w", t.portName, err)
	}
	return nil
}

// String returns the port name
func (t *Transport) String() string {
	return t.portName
}
