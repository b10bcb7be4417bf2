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

package dxlbridge_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
	"github.com/ZaparooProject/go-dxlbridge/internal/frame"
	"github.com/ZaparooProject/go-dxlbridge/internal/virtual"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	servo := virtual.NewServo(dxlbridge.ProfileMX(), 1)
	link := virtual.NewLink()

	tests := []struct {
		name  string
		servo dxlbridge.Servo
		link  dxlbridge.Link
		opts  []dxlbridge.Option
	}{
		{name: "nil servo", link: link},
		{name: "nil link", servo: servo},
		{name: "bad servo id", servo: servo, link: link, opts: []dxlbridge.Option{dxlbridge.WithServoID(253)}},
		{name: "empty identity", servo: servo, link: link, opts: []dxlbridge.Option{dxlbridge.WithIdentity("")}},
		{name: "zero interval", servo: servo, link: link, opts: []dxlbridge.Option{dxlbridge.WithMonitorInterval(0)}},
		{name: "negative retries", servo: servo, link: link, opts: []dxlbridge.Option{
			dxlbridge.WithConfirm(dxlbridge.ConfirmConfig{MaxRetries: -1}),
		}},
		{name: "empty profile", servo: servo, link: link, opts: []dxlbridge.Option{
			dxlbridge.WithProfile(dxlbridge.Profile{Name: "none", TurnSize: 10}),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := dxlbridge.New(tt.servo, nil, tt.link, tt.opts...)
			assert.Error(t, err)
		})
	}
}

func TestBoot_WritesDefaults(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		profile  dxlbridge.Profile
		velocity dxlbridge.ControlItem
		mode     int32
		speed    int32
		gain     int32
	}{
		{name: "mx", profile: dxlbridge.ProfileMX(), velocity: dxlbridge.ItemVelocityLimit, mode: 4, speed: 1023, gain: 850},
		{name: "pro", profile: dxlbridge.ProfilePro(), velocity: dxlbridge.ItemVelocityLimit, mode: 3, speed: 2600, gain: 1061},
		{name: "y", profile: dxlbridge.ProfileY(), velocity: dxlbridge.ItemGoalVelocity, mode: 3, speed: 200000, gain: 6283185},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRig(t, tt.profile, nil)
			require.NoError(t, r.bridge.Boot(context.Background()))

			ctx := context.Background()
			read := func(item dxlbridge.ControlItem) int32 {
				v, err := r.servo.ReadItem(ctx, item, testServoID)
				require.NoError(t, err)
				return v
			}
			assert.Equal(t, tt.mode, read(dxlbridge.ItemOperatingMode))
			assert.Equal(t, tt.speed, read(tt.velocity))
			assert.Equal(t, tt.gain, read(dxlbridge.ItemPositionPGain))
			assert.Equal(t, int32(1), read(dxlbridge.ItemTorqueEnable))
			assert.Empty(t, r.bridge.State().Degraded)
			assert.True(t, r.bridge.State().StoreAvailable)
		})
	}
}

func TestBoot_DefaultsAlreadySetAreNotRewritten(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), nil)
	require.NoError(t, r.bridge.Boot(context.Background()))
	r.servo.PowerCycle()
	r.servo.ResetWrites()

	again, err := dxlbridge.New(r.servo, r.store, r.link,
		dxlbridge.WithProfile(dxlbridge.ProfileMX()), dxlbridge.WithClock(r.clock.Now))
	require.NoError(t, err)
	require.NoError(t, again.Boot(context.Background()))

	assert.Zero(t, r.servo.WriteCount(dxlbridge.ItemOperatingMode))
	assert.Zero(t, r.servo.WriteCount(dxlbridge.ItemVelocityLimit))
	assert.Zero(t, r.servo.WriteCount(dxlbridge.ItemPositionPGain))
}

func TestBoot_Reconciliation(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), func(r *rig) {
		storePosition(r.store, 8200)
		r.servo.SetRaw(104)
	})
	require.NoError(t, r.bridge.Boot(context.Background()))

	st := r.bridge.State()
	assert.Equal(t, int32(8200), st.StoredPosition)
	assert.Equal(t, int32(104), st.RawPosition)
	assert.Equal(t, int32(8192), st.Offset)
	assert.True(t, st.OffsetConfirmed)
	assert.Equal(t, int32(8296), st.LastPosition)

	present, err := r.servo.ReadItem(context.Background(), dxlbridge.ItemPresentPosition, testServoID)
	require.NoError(t, err)
	assert.Equal(t, int32(8296), present)
}

func TestBoot_ReconciliationClearsStaleOffset(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), func(r *rig) {
		storePosition(r.store, -5000)
		r.servo.SetRaw(3000)
		r.servo.SetRegister(dxlbridge.ItemHomingOffset, 40960)
	})
	require.NoError(t, r.bridge.Boot(context.Background()))

	st := r.bridge.State()
	assert.Equal(t, int32(3000), st.RawPosition)
	assert.Equal(t, int32(-8192), st.Offset)
	assert.Equal(t, int32(-5192), st.LastPosition)
}

func TestBoot_SurvivesPowerCycle(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), nil)
	r.boot(t)
	ctx := context.Background()

	// Drive three turns out; the monitor records each crossing.
	for _, pos := range []int32{3000, 5000, 9000, 13000} {
		r.servo.SetRaw(pos)
		r.clock.Advance(100 * time.Millisecond)
		_, err := r.bridge.Step(ctx)
		require.NoError(t, err)
	}
	require.Equal(t, int32(13000), r.bridge.State().StoredPosition)

	r.servo.PowerCycle()
	require.Equal(t, int32(13000%4096), r.servo.Raw())

	again, err := dxlbridge.New(r.servo, r.store, r.link,
		dxlbridge.WithProfile(dxlbridge.ProfileMX()), dxlbridge.WithClock(r.clock.Now))
	require.NoError(t, err)
	require.NoError(t, again.Boot(ctx))

	present, err := r.servo.ReadItem(ctx, dxlbridge.ItemPresentPosition, testServoID)
	require.NoError(t, err)
	assert.Equal(t, int32(13000), present)
}

func TestBoot_StoreAbsentRunsDegraded(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), func(r *rig) {
		r.store.SetAbsent(true)
		r.servo.SetRaw(1500)
	})
	require.NoError(t, r.bridge.Boot(context.Background()))

	st := r.bridge.State()
	assert.False(t, st.StoreAvailable)
	require.Len(t, st.Degraded, 1)
	assert.ErrorIs(t, st.Degraded[0], dxlbridge.ErrStoreUnavailable)
	assert.Equal(t, int32(1500), st.StoredPosition)

	// Commands are still served.
	r.link.TakeOutput()
	r.link.Feed(frame.BuildCommand(2000))
	r.drain(t)
	assert.Len(t, r.link.Output(), frame.ResponseFrameLength)
}

func TestBoot_NilStoreRunsDegraded(t *testing.T) {
	t.Parallel()

	servo := virtual.NewServo(dxlbridge.ProfileMX(), testServoID)
	b, err := dxlbridge.New(servo, nil, virtual.NewLink())
	require.NoError(t, err)
	require.NoError(t, b.Boot(context.Background()))

	st := b.State()
	assert.False(t, st.StoreAvailable)
	require.Len(t, st.Degraded, 1)
	assert.ErrorIs(t, st.Degraded[0], dxlbridge.ErrStoreUnavailable)
}

func TestBoot_RegisterConfirmIsBounded(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), func(r *rig) {
		r.servo.Stick(dxlbridge.ItemOperatingMode, 3)
	})
	require.NoError(t, r.bridge.Boot(context.Background()))

	// MaxRetries is 3 in the rig: one attempt plus three retries.
	assert.Equal(t, 4, r.servo.WriteCount(dxlbridge.ItemOperatingMode))

	st := r.bridge.State()
	require.Len(t, st.Degraded, 1)
	assert.ErrorIs(t, st.Degraded[0], dxlbridge.ErrRegisterWriteMismatch)

	var regErr *dxlbridge.RegisterError
	require.ErrorAs(t, st.Degraded[0], &regErr)
	assert.Equal(t, dxlbridge.ItemOperatingMode, regErr.Item)
	assert.Equal(t, int32(4), regErr.Want)
	assert.Equal(t, int32(3), regErr.Got)
	assert.Equal(t, 4, regErr.Attempts)
}

func TestBoot_HomingOffsetMismatchIsReported(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), func(r *rig) {
		storePosition(r.store, 8200)
		r.servo.Stick(dxlbridge.ItemHomingOffset, 0)
	})
	require.NoError(t, r.bridge.Boot(context.Background()))

	st := r.bridge.State()
	assert.False(t, st.OffsetConfirmed)
	require.Len(t, st.Degraded, 1)
	assert.ErrorIs(t, st.Degraded[0], dxlbridge.ErrRegisterWriteMismatch)
	assert.Equal(t, 4, r.servo.WriteCount(dxlbridge.ItemHomingOffset))
}

func TestBoot_PingFailureHalts(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), func(r *rig) {
		r.servo.SetOffline(true)
	})
	ctx := context.Background()

	err := r.bridge.Boot(ctx)
	require.ErrorIs(t, err, dxlbridge.ErrDeviceUnreachable)
	var devErr *dxlbridge.DeviceError
	require.ErrorAs(t, err, &devErr)
	assert.Equal(t, "ping", devErr.Op)

	announcement := "ERROR! Could not find a Dynamixel with ID 1"
	assert.Equal(t, 1, strings.Count(string(r.link.Output()), announcement))

	// Commands are ignored and nothing reaches the servo.
	r.servo.SetOffline(false)
	r.link.Feed(frame.BuildCommand(5000))
	_, err = r.bridge.Step(ctx)
	require.ErrorIs(t, err, dxlbridge.ErrHalted)
	assert.Empty(t, r.servo.Writes())

	// The announcement repeats every 500ms.
	r.clock.Advance(499 * time.Millisecond)
	_, _ = r.bridge.Step(ctx)
	assert.Equal(t, 1, strings.Count(string(r.link.Output()), announcement))
	r.clock.Advance(time.Millisecond)
	_, _ = r.bridge.Step(ctx)
	assert.Equal(t, 2, strings.Count(string(r.link.Output()), announcement))
	assert.Empty(t, r.servo.Writes())
	assert.True(t, r.bridge.State().Fault)
}

func TestRun_HaltAnnouncesUntilCancelled(t *testing.T) {
	t.Parallel()

	servo := virtual.NewServo(dxlbridge.ProfileMX(), testServoID)
	servo.SetOffline(true)
	link := virtual.NewLink()
	b, err := dxlbridge.New(servo, nil, link, dxlbridge.WithAnnounceInterval(5*time.Millisecond))
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Millisecond)
	defer cancel()
	err = b.Run(ctx)

	require.ErrorIs(t, err, dxlbridge.ErrDeviceUnreachable)
	assert.GreaterOrEqual(t, strings.Count(string(link.Output()), "Could not find a Dynamixel"), 2)
	assert.Empty(t, servo.Writes())
}

func TestRun_ServesCommands(t *testing.T) {
	t.Parallel()

	servo := virtual.NewServo(dxlbridge.ProfileMX(), testServoID)
	link := virtual.NewLink()
	b, err := dxlbridge.New(servo, virtual.NewMemoryStore(64), link)
	require.NoError(t, err)

	link.Feed(frame.IdentifyFrame)
	link.Feed(frame.BuildCommand(4096))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()

	require.Eventually(t, func() bool {
		return len(link.Output()) >= len("VM200G")+frame.ResponseFrameLength
	}, time.Second, time.Millisecond)
	cancel()
	require.NoError(t, <-done)

	out := link.Output()
	assert.Equal(t, "VM200G", string(out[:6]))
	resp, err := frame.DecodeResponse(out[6:])
	require.NoError(t, err)
	assert.Equal(t, int32(4096), resp.Goal)
}

func TestStep_MonitorPersistsRollover(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		to        int32
		wantSaved int32
		wantWrite bool
	}{
		{name: "crosses turn boundary", to: 4106, wantSaved: 4106, wantWrite: true},
		{name: "stays in turn", to: 4095, wantSaved: 4090, wantWrite: false},
		{name: "crosses downward", to: -3, wantSaved: -3, wantWrite: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			r := newRig(t, dxlbridge.ProfileMX(), func(r *rig) {
				storePosition(r.store, 4090)
				r.servo.SetRaw(4090)
			})
			r.boot(t)
			require.Equal(t, int32(4090), r.bridge.State().LastPosition)
			writesBefore := r.store.Writes()

			r.servo.SetRaw(tt.to - r.bridge.State().Offset)
			r.clock.Advance(100 * time.Millisecond)
			_, err := r.bridge.Step(context.Background())
			require.NoError(t, err)

			stored, err := dxlbridge.LoadStoredPosition(r.store)
			require.NoError(t, err)
			assert.Equal(t, tt.wantSaved, stored)
			assert.Equal(t, tt.wantWrite, r.store.Writes() > writesBefore)
		})
	}
}

func TestStep_MonitorWaitsForInterval(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), nil, dxlbridge.WithMonitorInterval(250*time.Millisecond))
	r.boot(t)
	reads := r.servo.Reads()

	r.servo.SetRaw(9000)
	r.clock.Advance(249 * time.Millisecond)
	_, err := r.bridge.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, reads, r.servo.Reads())

	r.clock.Advance(time.Millisecond)
	_, err = r.bridge.Step(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(9000), r.bridge.State().StoredPosition)
}

func TestStep_StoreWriteFailureDegradesOnce(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfileMX(), nil)
	r.boot(t)
	failure := errors.New("spi: bus fault")
	r.store.FailWrites(failure)
	ctx := context.Background()

	r.servo.SetRaw(5000)
	r.clock.Advance(100 * time.Millisecond)
	_, err := r.bridge.Step(ctx)
	require.ErrorIs(t, err, dxlbridge.ErrStoreUnavailable)
	require.ErrorIs(t, err, failure)

	r.servo.SetRaw(9000)
	r.clock.Advance(100 * time.Millisecond)
	_, err = r.bridge.Step(ctx)
	require.NoError(t, err)

	st := r.bridge.State()
	assert.False(t, st.StoreAvailable)
	assert.Len(t, st.Degraded, 1)
	assert.Equal(t, int32(9000), st.StoredPosition)
	assert.Equal(t, 2, st.Rollovers)
}

func TestStep_SingleTurnProfilesSkipMonitor(t *testing.T) {
	t.Parallel()

	r := newRig(t, dxlbridge.ProfilePro(), func(r *rig) {
		storePosition(r.store, 1000000)
		r.servo.SetRaw(12345)
	})
	r.boot(t)
	writes := r.store.Writes()

	r.servo.SetRaw(400000)
	r.clock.Advance(time.Second)
	_, err := r.bridge.Step(context.Background())
	require.NoError(t, err)

	st := r.bridge.State()
	assert.Equal(t, int32(12345), st.RawPosition)
	assert.Zero(t, st.Offset)
	assert.Equal(t, writes, r.store.Writes())
	assert.Zero(t, r.servo.WriteCount(dxlbridge.ItemHomingOffset))
}
