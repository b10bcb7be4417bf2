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

// Package dynamixel implements a DYNAMIXEL Protocol 2.0 servo bus client.
//
// Bus satisfies dxlbridge.Servo. Control table addresses come from the
// dxlbridge.Profile it is created with, so one Bus type serves every servo
// family. Register values are little-endian on the wire.
package dynamixel

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
)

// DefaultTimeout is how long the bus waits for a status packet
const DefaultTimeout = 100 * time.Millisecond

// Bus talks to servos over a half duplex serial line.
//
// Thread Safety: Bus serializes transactions with an internal mutex and is
// safe for concurrent use.
type Bus struct {
	port    io.ReadWriter
	closer  io.Closer
	dir     gpio.PinOut
	lastErr error
	profile dxlbridge.Profile
	timeout time.Duration
	mu      sync.Mutex
}

// Option configures a Bus
type Option func(*Bus) error

// WithTimeout sets the status packet timeout
func WithTimeout(d time.Duration) Option {
	return func(b *Bus) error {
		if d <= 0 {
			return errors.New("dynamixel: timeout must be positive")
		}
		b.timeout = d
		return nil
	}
}

// WithDirPin drives pin high while transmitting, for RS-485 transceivers
// that need an explicit direction signal
func WithDirPin(pin gpio.PinOut) Option {
	return func(b *Bus) error {
		if pin == nil {
			return errors.New("dynamixel: nil direction pin")
		}
		b.dir = pin
		return pin.Out(gpio.Low)
	}
}

// WithDirPinName looks the direction pin up in the periph GPIO registry
func WithDirPinName(name string) Option {
	return func(b *Bus) error {
		if _, err := host.Init(); err != nil {
			return fmt.Errorf("dynamixel: initialize periph host: %w", err)
		}
		pin := gpioreg.ByName(name)
		if pin == nil {
			return fmt.Errorf("dynamixel: no gpio pin named %q", name)
		}
		return WithDirPin(pin)(b)
	}
}

// New creates a bus over an open port. If port is an io.Closer it is closed
// by Close.
func New(port io.ReadWriter, profile dxlbridge.Profile, opts ...Option) (*Bus, error) {
	b := &Bus{
		port:    port,
		profile: profile,
		timeout: DefaultTimeout,
	}
	if c, ok := port.(io.Closer); ok {
		b.closer = c
	}
	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Open opens a serial port and creates a bus over it
func Open(name string, baud int, profile dxlbridge.Profile, opts ...Option) (*Bus, error) {
	port, err := serial.Open(name, &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
	if err != nil {
		return nil, fmt.Errorf("dynamixel: open %s: %w", name, err)
	}

	b, err := New(port, profile, opts...)
	if err != nil {
		_ = port.Close()
		return nil, err
	}
	if err := port.SetReadTimeout(b.timeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("dynamixel: set read timeout: %w", err)
	}
	return b, nil
}

// Close closes the underlying port
func (b *Bus) Close() error {
	if b.closer == nil {
		return nil
	}
	if err := b.closer.Close(); err != nil {
		return fmt.Errorf("dynamixel: close: %w", err)
	}
	return nil
}

// LastError returns the most recent bus error, nil after a clean transaction
func (b *Bus) LastError() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastErr
}

// Ping implements dxlbridge.Servo
func (b *Bus) Ping(ctx context.Context, id uint8) error {
	_, err := b.transact(ctx, id, InstPing, nil)
	return err
}

// ReadItem implements dxlbridge.Servo
func (b *Bus) ReadItem(ctx context.Context, item dxlbridge.ControlItem, id uint8) (int32, error) {
	reg, err := b.profile.Register(item)
	if err != nil {
		return 0, err
	}

	params := binary.LittleEndian.AppendUint16(nil, reg.Addr)
	params = binary.LittleEndian.AppendUint16(params, uint16(reg.Size))
	st, err := b.transact(ctx, id, InstRead, params)
	if err != nil {
		return 0, fmt.Errorf("read %s: %w", item, err)
	}
	if len(st.Params) != reg.Size {
		return 0, b.record(fmt.Errorf("read %s: %w: %d data bytes, want %d",
			item, ErrBadPacket, len(st.Params), reg.Size))
	}
	return value(st.Params)
}

// WriteItem implements dxlbridge.Servo
func (b *Bus) WriteItem(ctx context.Context, item dxlbridge.ControlItem, id uint8, v int32) error {
	reg, err := b.profile.Register(item)
	if err != nil {
		return err
	}
	data, err := putValue(reg.Size, v)
	if err != nil {
		return fmt.Errorf("write %s: %w", item, err)
	}

	params := binary.LittleEndian.AppendUint16(nil, reg.Addr)
	params = append(params, data...)
	if _, err := b.transact(ctx, id, InstWrite, params); err != nil {
		return fmt.Errorf("write %s: %w", item, err)
	}
	return nil
}

// SetGoalPosition implements dxlbridge.Servo
func (b *Bus) SetGoalPosition(ctx context.Context, id uint8, position int32) error {
	return b.WriteItem(ctx, dxlbridge.ItemGoalPosition, id, position)
}

// TorqueOn implements dxlbridge.Servo
func (b *Bus) TorqueOn(ctx context.Context, id uint8) error {
	return b.WriteItem(ctx, dxlbridge.ItemTorqueEnable, id, 1)
}

// TorqueOff implements dxlbridge.Servo
func (b *Bus) TorqueOff(ctx context.Context, id uint8) error {
	return b.WriteItem(ctx, dxlbridge.ItemTorqueEnable, id, 0)
}

// transact sends one instruction and waits for the matching status packet.
// Broadcast instructions return without waiting.
func (b *Bus) transact(ctx context.Context, id uint8, inst byte, params []byte) (Status, error) {
	if err := ctx.Err(); err != nil {
		return Status{}, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if r, ok := b.port.(interface{ ResetInputBuffer() error }); ok {
		_ = r.ResetInputBuffer()
	}

	if err := b.send(EncodeInstruction(id, inst, params)); err != nil {
		return Status{}, b.record(err)
	}
	if id == BroadcastID {
		return Status{}, b.record(nil)
	}

	st, err := ReadStatus(&deadlineReader{r: b.port, deadline: time.Now().Add(b.timeout), ctx: ctx})
	if err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
			err = ErrTimeout
		}
		return Status{}, b.record(err)
	}
	if st.ID != id {
		return Status{}, b.record(fmt.Errorf("%w: got %d want %d", ErrWrongID, st.ID, id))
	}
	if code := st.Error &^ alertBit; code != 0 {
		return st, b.record(&StatusError{ID: id, Instruction: inst, Code: code})
	}
	return st, b.record(nil)
}

func (b *Bus) send(pkt []byte) error {
	if b.dir != nil {
		if err := b.dir.Out(gpio.High); err != nil {
			return fmt.Errorf("set direction pin: %w", err)
		}
		defer func() { _ = b.dir.Out(gpio.Low) }()
	}

	if _, err := b.port.Write(pkt); err != nil {
		return fmt.Errorf("send packet: %w", err)
	}
	if d, ok := b.port.(interface{ Drain() error }); ok {
		if err := d.Drain(); err != nil {
			return fmt.Errorf("drain: %w", err)
		}
	}
	return nil
}

func (b *Bus) record(err error) error {
	b.lastErr = err
	return err
}

// deadlineReader turns a port read timeout (a zero length read) into an
// error once the deadline has passed
type deadlineReader struct {
	deadline time.Time
	r        io.Reader
	ctx      context.Context
}

func (d *deadlineReader) Read(p []byte) (int, error) {
	for {
		if err := d.ctx.Err(); err != nil {
			return 0, err
		}
		n, err := d.r.Read(p)
		if n > 0 || err != nil {
			return n, err
		}
		if !time.Now().Before(d.deadline) {
			return 0, ErrTimeout
		}
	}
}
