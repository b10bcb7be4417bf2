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
	"fmt"
)

// KeeperConfig configures a PositionKeeper
type KeeperConfig struct {
	Profile            Profile
	Confirm            ConfirmConfig
	ServoID            uint8
	RolloverCorrection bool
}

// PositionKeeper recovers the absolute position of a multi-turn servo
// across power cycles. The servo only remembers its position within one
// turn, so the keeper persists the last known absolute position and turns it
// back into a homing offset at boot.
//
// Thread Safety: PositionKeeper is NOT thread-safe. It shares State with the
// Engine and both must run on the control loop goroutine.
type PositionKeeper struct {
	servo Servo
	store Store
	state *State
	cfg   KeeperConfig
}

// NewPositionKeeper creates a keeper over the given servo and store. A nil
// store is treated as absent.
func NewPositionKeeper(servo Servo, store Store, state *State, cfg KeeperConfig) *PositionKeeper {
	return &PositionKeeper{
		servo: servo,
		store: store,
		state: state,
		cfg:   cfg,
	}
}

// ComputeOffset returns the homing offset that maps a raw single-turn
// reading back into the turn of the stored absolute position. With correct
// set, an offset that would leave the result more than half a turn away from
// stored is moved one turn toward it.
func ComputeOffset(p Profile, stored, raw int32, correct bool) int32 {
	size := int64(p.TurnSize)
	offset := int64(p.Turn(stored)) * size
	if correct {
		diff := int64(raw) + offset - int64(stored)
		switch {
		case diff > size/2:
			offset -= size
		case diff < -size/2:
			offset += size
		}
	}
	return p.OffsetLimits.Clamp(offset)
}

// Reconcile runs the boot reconciliation. Profiles without multi-turn
// support only record the raw position. Errors are never fatal; the caller
// records them as degraded state.
func (k *PositionKeeper) Reconcile(ctx context.Context) error {
	p := k.cfg.Profile
	id := k.cfg.ServoID

	if !p.SupportsMultiTurn {
		raw, err := k.servo.ReadItem(ctx, ItemPresentPosition, id)
		if err != nil {
			return fmt.Errorf("read present position: %w", err)
		}
		k.state.RawPosition = raw
		k.state.LastPosition = raw
		k.state.StoredPosition = raw
		return nil
	}

	if err := writeConfirmed(ctx, k.servo, id, ItemHomingOffset, 0, k.cfg.Confirm); err != nil {
		return fmt.Errorf("reset homing offset: %w", err)
	}

	raw, err := k.servo.ReadItem(ctx, ItemPresentPosition, id)
	if err != nil {
		return fmt.Errorf("read raw position: %w", err)
	}
	k.state.RawPosition = raw
	k.state.LastPosition = raw

	if !k.storeUsable() {
		// Nothing to reconcile against; track from the raw reading.
		k.state.StoredPosition = raw
		return nil
	}

	stored, err := LoadStoredPosition(k.store)
	if err != nil {
		k.markStoreFailed()
		k.state.StoredPosition = raw
		return err
	}
	k.state.StoredPosition = stored

	offset := ComputeOffset(p, stored, raw, k.cfg.RolloverCorrection)
	k.state.Offset = offset
	debugf("reconcile: stored=%d turn=%d raw=%d offset=%d", stored, p.Turn(stored), raw, offset)

	if err := writeConfirmed(ctx, k.servo, id, ItemHomingOffset, offset, k.cfg.Confirm); err != nil {
		return fmt.Errorf("apply homing offset: %w", err)
	}
	k.state.OffsetConfirmed = true

	present, err := k.servo.ReadItem(ctx, ItemPresentPosition, id)
	if err != nil {
		return fmt.Errorf("read reconciled position: %w", err)
	}
	k.state.LastPosition = present
	return nil
}

// Check reads the present position and persists it when it has left the
// turn of the stored position. It reports whether a rollover was recorded.
// The in-memory stored position follows the servo even when the store has
// failed.
func (k *PositionKeeper) Check(ctx context.Context) (bool, error) {
	p := k.cfg.Profile
	if !p.SupportsMultiTurn {
		return false, nil
	}

	current, err := k.servo.ReadItem(ctx, ItemPresentPosition, k.cfg.ServoID)
	if err != nil {
		return false, fmt.Errorf("monitor: read present position: %w", err)
	}
	k.state.LastPosition = current

	if !p.RolledOver(k.state.StoredPosition, current) {
		return false, nil
	}

	debugf("monitor: rollover %d -> %d", k.state.StoredPosition, current)
	k.state.StoredPosition = current
	k.state.Rollovers++

	if !k.storeUsable() {
		return true, nil
	}
	if err := SaveStoredPosition(k.store, current); err != nil {
		k.markStoreFailed()
		return true, err
	}
	return true, nil
}

func (k *PositionKeeper) storeUsable() bool {
	return k.store != nil && k.state.StoreAvailable
}

func (k *PositionKeeper) markStoreFailed() {
	k.state.StoreAvailable = false
}
