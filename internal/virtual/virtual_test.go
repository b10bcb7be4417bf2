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
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
)

func TestServo_PresentFollowsHomingOffset(t *testing.T) {
	t.Parallel()

	s := NewServo(dxlbridge.ProfileMX(), 1)
	ctx := context.Background()
	s.SetRaw(104)

	require.NoError(t, s.WriteItem(ctx, dxlbridge.ItemHomingOffset, 1, 8192))
	pos, err := s.ReadItem(ctx, dxlbridge.ItemPresentPosition, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(8296), pos)

	require.NoError(t, s.TorqueOn(ctx, 1))
	err = s.WriteItem(ctx, dxlbridge.ItemHomingOffset, 1, 0)
	require.Error(t, err, "EEPROM write with torque on")
	assert.Equal(t, err, s.LastError())
}

func TestServo_PowerCycleKeepsSingleTurn(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  int32
		want int32
	}{
		{name: "positive", raw: 13000, want: 712},
		{name: "negative", raw: -100, want: 3996},
		{name: "exact turn", raw: 8192, want: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			s := NewServo(dxlbridge.ProfileMX(), 1)
			s.SetRaw(tt.raw)
			s.PowerCycle()
			assert.Equal(t, tt.want, s.Raw())
		})
	}
}

func TestServo_Motion(t *testing.T) {
	t.Parallel()

	s := NewServo(dxlbridge.ProfileMX(), 1)
	ctx := context.Background()
	s.SetSpeed(100)
	require.NoError(t, s.TorqueOn(ctx, 1))
	require.NoError(t, s.SetGoalPosition(ctx, 1, 250))

	var positions []int32
	for i := 0; i < 4; i++ {
		pos, err := s.ReadItem(ctx, dxlbridge.ItemPresentPosition, 1)
		require.NoError(t, err)
		positions = append(positions, pos)
	}
	assert.Equal(t, []int32{100, 200, 250, 250}, positions)

	moving, err := s.ReadItem(ctx, dxlbridge.ItemMoving, 1)
	require.NoError(t, err)
	assert.Zero(t, moving)
}

func TestServo_Failures(t *testing.T) {
	t.Parallel()

	s := NewServo(dxlbridge.ProfileMX(), 1)
	ctx := context.Background()

	require.ErrorIs(t, s.Ping(ctx, 2), ErrNoResponse)
	s.SetOffline(true)
	require.ErrorIs(t, s.Ping(ctx, 1), ErrNoResponse)
	s.SetOffline(false)

	boom := errors.New("boom")
	s.FailReads(dxlbridge.ItemMoving, boom)
	_, err := s.ReadItem(ctx, dxlbridge.ItemMoving, 1)
	require.ErrorIs(t, err, boom)
	s.FailReads(dxlbridge.ItemMoving, nil)
	_, err = s.ReadItem(ctx, dxlbridge.ItemMoving, 1)
	require.NoError(t, err)

	require.Error(t, s.WriteItem(ctx, dxlbridge.ItemPresentPosition, 1, 5))

	s.Stick(dxlbridge.ItemOperatingMode, 3)
	require.NoError(t, s.WriteItem(ctx, dxlbridge.ItemOperatingMode, 1, 4))
	mode, err := s.ReadItem(ctx, dxlbridge.ItemOperatingMode, 1)
	require.NoError(t, err)
	assert.Equal(t, int32(3), mode)
	assert.Equal(t, 1, s.WriteCount(dxlbridge.ItemOperatingMode))
}

func TestMemoryStore(t *testing.T) {
	t.Parallel()

	m := NewMemoryStore(8)
	require.NoError(t, m.WriteByteAt(7, 0xAB))
	b, err := m.ReadByteAt(7)
	require.NoError(t, err)
	assert.Equal(t, byte(0xAB), b)
	assert.Equal(t, 1, m.Writes())

	_, err = m.ReadByteAt(8)
	require.Error(t, err)

	m.SetAbsent(true)
	assert.False(t, m.Present())
	require.ErrorIs(t, m.WriteByteAt(0, 1), ErrStoreAbsent)
}

func TestLinkPair(t *testing.T) {
	t.Parallel()

	host, bridge := NewPair()
	_, err := host.Write([]byte("$000000#"))
	require.NoError(t, err)
	assert.Equal(t, 8, bridge.Buffered())
	assert.Zero(t, host.Buffered())

	_, err = bridge.Write([]byte("VM200G"))
	require.NoError(t, err)
	got, err := host.Peek(6)
	require.NoError(t, err)
	assert.Equal(t, "VM200G", string(got))

	n, err := host.Discard(7)
	require.ErrorIs(t, err, ErrShortBuffer)
	assert.Equal(t, 6, n)
}

func TestLinkRead(t *testing.T) {
	t.Parallel()

	host, bridge := NewPair()
	buf := make([]byte, 4)

	n, err := host.Read(buf)
	require.NoError(t, err)
	assert.Zero(t, n)

	_, err = bridge.Write([]byte("VM200G"))
	require.NoError(t, err)
	n, err = host.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "VM20", string(buf[:n]))
	n, err = host.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "0G", string(buf[:n]))
	assert.Zero(t, host.Buffered())
}
