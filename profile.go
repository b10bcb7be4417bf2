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
	"fmt"
	"math"
	"sort"
	"strings"
)

// Limits is an inclusive value range. A zero Limits is unbounded.
type Limits struct {
	Min     int32
	Max     int32
	Bounded bool
}

// Range returns bounded limits [lo, hi]
func Range(lo, hi int32) Limits {
	return Limits{Min: lo, Max: hi, Bounded: true}
}

// Clamp constrains v into the range. Unbounded limits still saturate at the
// int32 range so the result always fits a register.
func (l Limits) Clamp(v int64) int32 {
	lo, hi := int64(math.MinInt32), int64(math.MaxInt32)
	if l.Bounded {
		lo, hi = int64(l.Min), int64(l.Max)
	}
	switch {
	case v < lo:
		return int32(lo)
	case v > hi:
		return int32(hi)
	default:
		return int32(v)
	}
}

// String implements fmt.Stringer
func (l Limits) String() string {
	if !l.Bounded {
		return "unbounded"
	}
	return fmt.Sprintf("[%d, %d]", l.Min, l.Max)
}

// Register locates a control item in a servo's control table
type Register struct {
	Addr uint16 `yaml:"addr" toml:"addr"`
	Size int    `yaml:"size" toml:"size"`
}

// ControlTable maps items to their registers
type ControlTable map[ControlItem]Register

// Profile describes one servo family. It replaces compile-time variant
// switches: every family difference the bridge cares about lives here.
type Profile struct {
	Table             ControlTable
	Name              string
	Description       string
	VelocityItem      ControlItem
	GoalLimits        Limits
	OffsetLimits      Limits
	TurnSize          int32
	OperatingMode     int32
	VelocityDefault   int32
	PositionPGain     int32
	SupportsMultiTurn bool
}

// Operating modes written during bring-up
const (
	OperatingModePosition         int32 = 3
	OperatingModeExtendedPosition int32 = 4
)

// ProfileMX describes MX-28/MX-64 servos on protocol 2.0. Extended position
// mode is used and multi-turn tracking applies.
//
// GoalLimits is the full extended position register range, the limit of the
// servo itself. A profile describes the servo family, not the mechanism it
// drives; installations with less travel narrow it through goal_limits
// (the VM200 stage uses -19500 to 13000).
func ProfileMX() Profile {
	return Profile{
		Name:              "mx",
		Description:       "Dynamixel MX",
		TurnSize:          4096,
		GoalLimits:        Range(-1044479, 1044479),
		OffsetLimits:      Range(-1044479, 1044479),
		OperatingMode:     OperatingModeExtendedPosition,
		VelocityItem:      ItemVelocityLimit,
		VelocityDefault:   1023,
		PositionPGain:     850,
		SupportsMultiTurn: true,
		Table: ControlTable{
			ItemID:                  {Addr: 7, Size: 1},
			ItemOperatingMode:       {Addr: 11, Size: 1},
			ItemHomingOffset:        {Addr: 20, Size: 4},
			ItemVelocityLimit:       {Addr: 44, Size: 4},
			ItemTorqueEnable:        {Addr: 64, Size: 1},
			ItemHardwareErrorStatus: {Addr: 70, Size: 1},
			ItemPositionPGain:       {Addr: 84, Size: 2},
			ItemGoalVelocity:        {Addr: 104, Size: 4},
			ItemGoalPosition:        {Addr: 116, Size: 4},
			ItemMoving:              {Addr: 122, Size: 1},
			ItemPresentPosition:     {Addr: 132, Size: 4},
		},
	}
}

// ProfilePro describes DYNAMIXEL-P (PM42-010-S260-R) servos. They run in
// single turn position mode and accept any goal.
func ProfilePro() Profile {
	return Profile{
		Name:              "pro",
		Description:       "Dynamixel Pro",
		TurnSize:          526374,
		OffsetLimits:      Range(-263187, 263187),
		OperatingMode:     OperatingModePosition,
		VelocityItem:      ItemVelocityLimit,
		VelocityDefault:   2600,
		PositionPGain:     1061,
		SupportsMultiTurn: false,
		Table: ControlTable{
			ItemID:                  {Addr: 7, Size: 1},
			ItemOperatingMode:       {Addr: 11, Size: 1},
			ItemHomingOffset:        {Addr: 20, Size: 4},
			ItemVelocityLimit:       {Addr: 44, Size: 4},
			ItemTorqueEnable:        {Addr: 512, Size: 1},
			ItemHardwareErrorStatus: {Addr: 518, Size: 1},
			ItemPositionPGain:       {Addr: 532, Size: 2},
			ItemGoalVelocity:        {Addr: 552, Size: 4},
			ItemGoalPosition:        {Addr: 564, Size: 4},
			ItemMoving:              {Addr: 570, Size: 1},
			ItemPresentPosition:     {Addr: 580, Size: 4},
		},
	}
}

// ProfileY describes DYNAMIXEL-Y (YM070-210-R099-RH) servos. They keep their
// own position with a backup battery, so multi-turn tracking is skipped.
// The control table can be overridden from configuration.
func ProfileY() Profile {
	return Profile{
		Name:              "y",
		Description:       "Dynamixel Y",
		TurnSize:          25952256,
		GoalLimits:        Range(-25952256, 25952256),
		OffsetLimits:      Range(-25952256, 25952256),
		OperatingMode:     OperatingModePosition,
		VelocityItem:      ItemGoalVelocity,
		VelocityDefault:   200000,
		PositionPGain:     6283185,
		SupportsMultiTurn: false,
		Table: ControlTable{
			ItemID:                  {Addr: 12, Size: 1},
			ItemOperatingMode:       {Addr: 33, Size: 1},
			ItemHomingOffset:        {Addr: 40, Size: 4},
			ItemVelocityLimit:       {Addr: 72, Size: 4},
			ItemTorqueEnable:        {Addr: 512, Size: 1},
			ItemHardwareErrorStatus: {Addr: 524, Size: 2},
			ItemPositionPGain:       {Addr: 232, Size: 4},
			ItemGoalVelocity:        {Addr: 528, Size: 4},
			ItemGoalPosition:        {Addr: 532, Size: 4},
			ItemMoving:              {Addr: 541, Size: 1},
			ItemPresentPosition:     {Addr: 552, Size: 4},
		},
	}
}

var profiles = map[string]func() Profile{
	"mx":  ProfileMX,
	"pro": ProfilePro,
	"y":   ProfileY,
}

// LookupProfile returns the profile registered under name (case-insensitive)
func LookupProfile(name string) (Profile, error) {
	ctor, ok := profiles[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Profile{}, fmt.Errorf("%w: %q (known: %s)", ErrUnknownProfile, name,
			strings.Join(ProfileNames(), ", "))
	}
	return ctor(), nil
}

// ProfileNames lists registered profile names in sorted order
func ProfileNames() []string {
	names := make([]string, 0, len(profiles))
	for name := range profiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Register returns the register of an item
func (p Profile) Register(item ControlItem) (Register, error) {
	reg, ok := p.Table[item]
	if !ok {
		return Register{}, fmt.Errorf("%w: %s in profile %s", ErrUnknownItem, item, p.Name)
	}
	return reg, nil
}

// WithTable returns a copy of p with the given registers overriding its own
func (p Profile) WithTable(overrides ControlTable) Profile {
	table := make(ControlTable, len(p.Table)+len(overrides))
	for item, reg := range p.Table {
		table[item] = reg
	}
	for item, reg := range overrides {
		table[item] = reg
	}
	p.Table = table
	return p
}

// Turn returns the turn index of an absolute position, rounding toward
// negative infinity so that -1 is in turn -1 and not turn 0.
func (p Profile) Turn(position int32) int32 {
	size := int64(p.TurnSize)
	if size <= 0 {
		return 0
	}
	pos := int64(position)
	turn := pos / size
	if pos%size != 0 && pos < 0 {
		turn--
	}
	return int32(turn)
}

// RolledOver reports whether current has left the turn that stored is in,
// or drifted more than half a turn away from it.
func (p Profile) RolledOver(stored, current int32) bool {
	if p.Turn(stored) != p.Turn(current) {
		return true
	}
	diff := int64(current) - int64(stored)
	if diff < 0 {
		diff = -diff
	}
	return diff > int64(p.TurnSize/2)
}
