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

package client_test

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
	"github.com/ZaparooProject/go-dxlbridge/client"
	"github.com/ZaparooProject/go-dxlbridge/internal/virtual"
)

func TestMain(m *testing.M) {
	dxlbridge.SetLogger(zerolog.Nop())
	os.Exit(m.Run())
}

// startBridge runs a bridge over virtual parts and returns a client on the
// host end of the link
func startBridge(t *testing.T, opts ...dxlbridge.Option) (*client.Client, *virtual.Servo) {
	t.Helper()

	servo := virtual.NewServo(dxlbridge.ProfileMX(), 1)
	servo.SetRaw(1000)
	hostEnd, bridgeEnd := virtual.NewPair()

	base := []dxlbridge.Option{
		dxlbridge.WithProfile(dxlbridge.ProfileMX()),
		dxlbridge.WithIdleDelay(time.Millisecond),
	}
	b, err := dxlbridge.New(servo, virtual.NewMemoryStore(32*1024), bridgeEnd, append(base, opts...)...)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- b.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		assert.NoError(t, <-done)
	})

	return client.New(hostEnd, client.WithSettle(20*time.Millisecond)), servo
}

func TestClient_Identify(t *testing.T) {
	t.Parallel()

	c, _ := startBridge(t, dxlbridge.WithIdentity("BENCH1"))
	id, err := c.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BENCH1", id)
}

func TestClient_MoveTo(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		position int32
		wantGoal int32
	}{
		{name: "in range", position: 5000, wantGoal: 5000},
		{name: "negative", position: -4096, wantGoal: -4096},
		{name: "clamped high", position: 2_000_000, wantGoal: 1044479},
		{name: "clamped low", position: -2_000_000, wantGoal: -1044479},
	}

	c, _ := startBridge(t)
	ctx := context.Background()
	// Requests share one bridge so they run in order.
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := c.MoveTo(ctx, tt.position)
			require.NoError(t, err)
			assert.Equal(t, tt.wantGoal, resp.Goal)
		})
	}
}

func TestClient_Status(t *testing.T) {
	t.Parallel()

	c, servo := startBridge(t)
	ctx := context.Background()

	_, err := c.MoveTo(ctx, 3000)
	require.NoError(t, err)

	servo.SetRegister(dxlbridge.ItemHardwareErrorStatus, 0x04)
	resp, err := c.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, int32(3000), resp.Goal)
	assert.Equal(t, byte(0x04), resp.HardwareError)
}

func TestClient_Diagnostics(t *testing.T) {
	t.Parallel()

	c, _ := startBridge(t)
	dump, err := c.Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Contains(t, dump, "Current Dynamixel ID is 1\r\n")
	assert.True(t, strings.HasSuffix(dump, "Current firmware is for Dynamixel MX\r\n"))

	// The link is clean afterwards.
	id, err := c.Identify(context.Background())
	require.NoError(t, err)
	assert.Equal(t, dxlbridge.DefaultIdentity, id)
}

// silentLink accepts writes and never answers
type silentLink struct {
	readErr error
	written []byte
}

func (s *silentLink) Read(_ []byte) (int, error) { return 0, s.readErr }

func (s *silentLink) Write(p []byte) (int, error) {
	s.written = append(s.written, p...)
	return len(p), nil
}

func TestClient_NoReply(t *testing.T) {
	t.Parallel()

	link := &silentLink{}
	c := client.New(link, client.WithTimeout(30*time.Millisecond), client.WithPollInterval(time.Millisecond))

	_, err := c.Status(context.Background())
	require.ErrorIs(t, err, client.ErrNoReply)
	assert.Equal(t, []byte("$123400#"), link.written)
}

func TestClient_ReadError(t *testing.T) {
	t.Parallel()

	boom := errors.New("unplugged")
	c := client.New(&silentLink{readErr: boom})

	_, err := c.Identify(context.Background())
	require.ErrorIs(t, err, boom)
}

func TestClient_ContextCancelled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c := client.New(&silentLink{}, client.WithTimeout(time.Second))

	_, err := c.MoveTo(ctx, 10)
	require.ErrorIs(t, err, context.Canceled)
}

func TestClient_CloseWithoutPort(t *testing.T) {
	t.Parallel()

	assert.NoError(t, client.New(&silentLink{}).Close())
}
