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
	"context"
	"errors"
	"fmt"
	"time"
)

// Bridge connects a host link to one servo. It owns the shared State and
// drives the PositionKeeper and Engine from a single control loop.
//
// Thread Safety: Bridge is NOT thread-safe. Boot, Step and Run must be called
// from one goroutine. The Link implementation may be filled concurrently.
type Bridge struct {
	servo            Servo
	store            Store
	link             Link
	now              func() time.Time
	state            *State
	keeper           *PositionKeeper
	engine           *Engine
	lastCheck        time.Time
	lastAnnounce     time.Time
	identity         string
	profile          Profile
	confirm          ConfirmConfig
	monitorInterval  time.Duration
	announceInterval time.Duration
	idleDelay        time.Duration
	servoID          uint8
	booted           bool

	rolloverCorrection bool
}

// New creates a bridge. store may be nil when no non-volatile memory is
// fitted; the bridge then runs degraded.
func New(servo Servo, store Store, link Link, opts ...Option) (*Bridge, error) {
	if servo == nil {
		return nil, errors.New("servo is required")
	}
	if link == nil {
		return nil, errors.New("host link is required")
	}

	b := &Bridge{
		servo:            servo,
		store:            store,
		link:             link,
		now:              time.Now,
		state:            &State{},
		identity:         DefaultIdentity,
		profile:          ProfileMX(),
		confirm:          DefaultConfirmConfig(),
		monitorInterval:  DefaultMonitorInterval,
		announceInterval: DefaultAnnounceInterval,
		idleDelay:        DefaultIdleDelay,
		servoID:          DefaultServoID,
	}

	for _, opt := range opts {
		if err := opt(b); err != nil {
			return nil, err
		}
	}

	b.keeper = NewPositionKeeper(servo, store, b.state, KeeperConfig{
		Profile:            b.profile,
		Confirm:            b.confirm,
		ServoID:            b.servoID,
		RolloverCorrection: b.rolloverCorrection,
	})
	b.engine = NewEngine(link, servo, b.state, EngineConfig{
		Diagnostics: b.WriteDiagnostics,
		Identity:    b.identity,
		Profile:     b.profile,
		ServoID:     b.servoID,
	})
	return b, nil
}

// Profile returns the selected servo family
func (b *Bridge) Profile() Profile {
	return b.profile
}

// State returns a snapshot of the bridge state
func (b *Bridge) State() State {
	st := *b.state
	st.Degraded = append([]error(nil), b.state.Degraded...)
	return st
}

// Phase returns the host protocol phase between control loop steps
func (b *Bridge) Phase() ProtocolState {
	return b.engine.Phase()
}

// Stats returns the protocol engine counters
func (b *Bridge) Stats() EngineStats {
	return b.engine.Stats()
}

// Boot brings the servo up: it pings the servo, probes the store, writes the
// operating defaults and reconciles the multi-turn position. Only an
// unreachable servo is fatal; the bridge then halts and Boot returns an error
// wrapping ErrDeviceUnreachable. Every other fault is recorded in
// State.Degraded and Boot returns nil.
func (b *Bridge) Boot(ctx context.Context) error {
	b.booted = true
	id := b.servoID
	log := logger()

	if err := b.servo.Ping(ctx, id); err != nil {
		derr := &DeviceError{Op: "ping", ID: id, Err: err}
		b.halt(derr)
		return derr
	}
	debugf("servo %d answered ping", id)

	switch {
	case b.store == nil:
		b.degrade(&StoreError{Op: "probe", Err: errors.New("no store configured")})
	case !b.store.Present():
		b.degrade(&StoreError{Op: "probe"})
	default:
		b.state.StoreAvailable = true
	}

	if err := b.servo.TorqueOff(ctx, id); err != nil {
		b.degrade(fmt.Errorf("torque off: %w", err))
	}

	debugln("writing operating defaults")
	p := b.profile
	defaults := []struct {
		item  ControlItem
		value int32
	}{
		{ItemOperatingMode, p.OperatingMode},
		{p.VelocityItem, p.VelocityDefault},
		{ItemPositionPGain, p.PositionPGain},
	}
	for _, d := range defaults {
		if err := writeConfirmed(ctx, b.servo, id, d.item, d.value, b.confirm); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			b.degrade(fmt.Errorf("set %s: %w", d.item, err))
		}
	}

	if err := b.keeper.Reconcile(ctx); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		b.degrade(fmt.Errorf("reconcile: %w", err))
	}

	if err := b.servo.TorqueOn(ctx, id); err != nil {
		b.degrade(fmt.Errorf("torque on: %w", err))
	}

	b.lastCheck = b.now()
	log.Info().
		Str("profile", p.Name).
		Uint8("servo_id", id).
		Int32("position", b.state.LastPosition).
		Int32("stored", b.state.StoredPosition).
		Int32("offset", b.state.Offset).
		Int("degraded", len(b.state.Degraded)).
		Msg("bridge ready")
	return nil
}

// Step runs one control loop iteration: the rollover monitor when its
// interval has passed, then at most one host command. It reports whether
// host input was consumed. Errors are non-fatal except ErrHalted.
func (b *Bridge) Step(ctx context.Context) (bool, error) {
	if b.state.Fault {
		if b.now().Sub(b.lastAnnounce) >= b.announceInterval {
			b.announce()
		}
		return false, fmt.Errorf("%w: %w", ErrHalted, b.state.FaultErr)
	}

	var monitorErr error
	if now := b.now(); now.Sub(b.lastCheck) >= b.monitorInterval {
		b.lastCheck = now
		storeWasUp := b.state.StoreAvailable
		if _, err := b.keeper.Check(ctx); err != nil {
			monitorErr = err
			if storeWasUp && !b.state.StoreAvailable {
				b.degrade(err)
			}
		}
	}

	handled, err := b.engine.Poll(ctx)
	return handled, errors.Join(monitorErr, err)
}

// Run boots the bridge if needed and then steps it until ctx is done.
// A halted bridge keeps announcing its fault and Run returns the fault once
// ctx is cancelled. Run returns nil on a clean shutdown.
func (b *Bridge) Run(ctx context.Context) error {
	if !b.booted {
		if err := b.Boot(ctx); err != nil && !b.state.Fault {
			return err
		}
	}
	if b.state.Fault {
		return b.haltLoop(ctx)
	}

	idle := time.NewTimer(0)
	defer idle.Stop()
	for {
		if ctx.Err() != nil {
			return nil
		}

		handled, err := b.Step(ctx)
		if err != nil {
			logger().Warn().Err(err).Stringer("phase", b.engine.Phase()).Msg("control loop")
		}
		if handled {
			continue
		}

		idle.Reset(b.idleDelay)
		select {
		case <-ctx.Done():
			return nil
		case <-idle.C:
		}
	}
}

func (b *Bridge) haltLoop(ctx context.Context) error {
	ticker := time.NewTicker(b.announceInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return b.state.FaultErr
		case <-ticker.C:
			b.announce()
		}
	}
}

// halt enters the permanent fault state. No servo writes happen after this.
func (b *Bridge) halt(err error) {
	b.state.Fault = true
	b.state.FaultErr = err
	logger().Error().Err(err).Msg("servo not found, halting")
	b.announce()
}

func (b *Bridge) announce() {
	b.lastAnnounce = b.now()
	msg := fmt.Sprintf("\r\nERROR! Could not find a Dynamixel with ID %d\r\n"+
		"Please turn everything off and check your connections!", b.servoID)
	if _, err := b.link.Write([]byte(msg)); err != nil {
		debugf("announce: %v", err)
	}
}

func (b *Bridge) degrade(err error) {
	b.state.degrade(err)
	logger().Warn().Err(err).Msg("running degraded")
}
