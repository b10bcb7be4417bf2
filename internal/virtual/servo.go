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

// Package virtual provides in-memory stand-ins for the servo, the position
// store and the host link. They back the package tests and the daemon's
// -simulate mode.
package virtual

import (
	"context"
	"errors"
	"fmt"
	"sync"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
)

// ErrNoResponse is returned by a servo that is switched off
var ErrNoResponse = errors.New("virtual servo: no status packet")

// WriteOp records one register write seen by a Servo
type WriteOp struct {
	Item  dxlbridge.ControlItem
	Value int32
}

// Servo simulates one DYNAMIXEL servo. The encoder is modelled as a raw
// absolute count; the present position is raw plus the homing offset, as on
// the real device.
type Servo struct {
	lastErr  error
	regs     map[dxlbridge.ControlItem]int32
	readErrs map[dxlbridge.ControlItem]error
	sticky   map[dxlbridge.ControlItem]int32
	profile  dxlbridge.Profile
	writes   []WriteOp
	reads    int
	raw      int32
	speed    int32
	mu       sync.Mutex
	id       uint8
	offline  bool
}

// NewServo creates a powered servo with the given ID, all registers zero
func NewServo(profile dxlbridge.Profile, id uint8) *Servo {
	s := &Servo{
		profile:  profile,
		id:       id,
		regs:     make(map[dxlbridge.ControlItem]int32),
		readErrs: make(map[dxlbridge.ControlItem]error),
		sticky:   make(map[dxlbridge.ControlItem]int32),
	}
	s.regs[dxlbridge.ItemID] = int32(id)
	return s
}

// SetOffline makes the servo stop answering
func (s *Servo) SetOffline(offline bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline = offline
}

// SetRaw places the encoder at an absolute raw count
func (s *Servo) SetRaw(raw int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.raw = raw
}

// Raw returns the raw encoder count
func (s *Servo) Raw() int32 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.raw
}

// SetSpeed sets how far the shaft moves toward its goal on every present
// position read. Zero keeps the shaft still.
func (s *Servo) SetSpeed(counts int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speed = counts
}

// SetRegister sets a register without recording a write
func (s *Servo) SetRegister(item dxlbridge.ControlItem, value int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.regs[item] = value
}

// Stick makes an item ignore writes and always read back value
func (s *Servo) Stick(item dxlbridge.ControlItem, value int32) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sticky[item] = value
}

// FailReads makes reads of item return err. A nil err clears the failure.
func (s *Servo) FailReads(item dxlbridge.ControlItem, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.readErrs, item)
		return
	}
	s.readErrs[item] = err
}

// PowerCycle simulates switching the servo off and on. The encoder keeps
// only its position within one turn, RAM registers clear and torque drops.
// EEPROM registers such as the homing offset survive.
func (s *Servo) PowerCycle() {
	s.mu.Lock()
	defer s.mu.Unlock()
	size := s.profile.TurnSize
	s.raw %= size
	if s.raw < 0 {
		s.raw += size
	}
	for _, item := range []dxlbridge.ControlItem{
		dxlbridge.ItemTorqueEnable,
		dxlbridge.ItemGoalPosition,
		dxlbridge.ItemMoving,
		dxlbridge.ItemHardwareErrorStatus,
	} {
		delete(s.regs, item)
	}
	s.regs[dxlbridge.ItemGoalPosition] = s.raw + s.regs[dxlbridge.ItemHomingOffset]
}

// Writes returns the register writes seen so far
func (s *Servo) Writes() []WriteOp {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]WriteOp(nil), s.writes...)
}

// WriteCount returns how many writes targeted item
func (s *Servo) WriteCount(item dxlbridge.ControlItem) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, w := range s.writes {
		if w.Item == item {
			n++
		}
	}
	return n
}

// ResetWrites clears the write log
func (s *Servo) ResetWrites() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.writes = nil
}

// Reads returns how many register reads the servo answered
func (s *Servo) Reads() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reads
}

// Ping implements dxlbridge.Servo
func (s *Servo) Ping(_ context.Context, id uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.check(id)
}

// ReadItem implements dxlbridge.Servo
func (s *Servo) ReadItem(_ context.Context, item dxlbridge.ControlItem, id uint8) (int32, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.check(id); err != nil {
		return 0, err
	}
	if _, err := s.profile.Register(item); err != nil {
		return 0, s.fail(err)
	}
	if err := s.readErrs[item]; err != nil {
		return 0, s.fail(err)
	}
	s.reads++

	if v, ok := s.sticky[item]; ok {
		return v, nil
	}
	switch item {
	case dxlbridge.ItemPresentPosition:
		s.advance()
		return s.present(), nil
	case dxlbridge.ItemMoving:
		if s.regs[dxlbridge.ItemTorqueEnable] != 0 && s.present() != s.regs[dxlbridge.ItemGoalPosition] {
			return 1, nil
		}
		return 0, nil
	}
	return s.regs[item], nil
}

// WriteItem implements dxlbridge.Servo
func (s *Servo) WriteItem(_ context.Context, item dxlbridge.ControlItem, id uint8, value int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(id, item, value)
}

// SetGoalPosition implements dxlbridge.Servo
func (s *Servo) SetGoalPosition(_ context.Context, id uint8, position int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(id, dxlbridge.ItemGoalPosition, position)
}

// TorqueOn implements dxlbridge.Servo
func (s *Servo) TorqueOn(_ context.Context, id uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(id, dxlbridge.ItemTorqueEnable, 1)
}

// TorqueOff implements dxlbridge.Servo
func (s *Servo) TorqueOff(_ context.Context, id uint8) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.write(id, dxlbridge.ItemTorqueEnable, 0)
}

// LastError implements dxlbridge.LastErrorReporter
func (s *Servo) LastError() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastErr
}

func (s *Servo) check(id uint8) error {
	if s.offline || id != s.id {
		return s.fail(ErrNoResponse)
	}
	return nil
}

func (s *Servo) fail(err error) error {
	s.lastErr = err
	return err
}

func (s *Servo) write(id uint8, item dxlbridge.ControlItem, value int32) error {
	if err := s.check(id); err != nil {
		return err
	}
	if _, err := s.profile.Register(item); err != nil {
		return s.fail(err)
	}
	if item == dxlbridge.ItemPresentPosition || item == dxlbridge.ItemMoving {
		return s.fail(fmt.Errorf("virtual servo: %s is read-only", item))
	}
	if item == dxlbridge.ItemHomingOffset && s.regs[dxlbridge.ItemTorqueEnable] != 0 {
		return s.fail(errors.New("virtual servo: homing offset needs torque off"))
	}
	s.writes = append(s.writes, WriteOp{Item: item, Value: value})
	if _, ok := s.sticky[item]; ok {
		return nil
	}
	s.regs[item] = value
	return nil
}

func (s *Servo) present() int32 {
	return s.raw + s.regs[dxlbridge.ItemHomingOffset]
}

// advance moves the shaft toward its goal by the configured speed
func (s *Servo) advance() {
	if s.speed <= 0 || s.regs[dxlbridge.ItemTorqueEnable] == 0 {
		return
	}
	diff := int64(s.regs[dxlbridge.ItemGoalPosition]) - int64(s.present())
	switch {
	case diff > int64(s.speed):
		diff = int64(s.speed)
	case diff < -int64(s.speed):
		diff = -int64(s.speed)
	}
	s.raw += int32(diff)
}
