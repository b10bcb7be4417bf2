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

package main

import (
	"errors"
	"fmt"
	"io"

	"periph.io/x/conn/v3/physic"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
	"github.com/ZaparooProject/go-dxlbridge/dynamixel"
	"github.com/ZaparooProject/go-dxlbridge/internal/config"
	"github.com/ZaparooProject/go-dxlbridge/internal/virtual"
	"github.com/ZaparooProject/go-dxlbridge/store/filestore"
	"github.com/ZaparooProject/go-dxlbridge/store/mram"
)

// hardware is the servo bus and position store the bridge runs on
type hardware struct {
	servo     dxlbridge.Servo
	store     dxlbridge.Store
	busName   string
	storeName string
	closers   []io.Closer
}

// Close releases everything opened by openHardware
func (h *hardware) Close() {
	for i := len(h.closers) - 1; i >= 0; i-- {
		_ = h.closers[i].Close()
	}
	h.closers = nil
}

func openHardware(cfg config.Config, simulate bool) (*hardware, error) {
	profile, err := cfg.Profile()
	if err != nil {
		return nil, err
	}

	if simulate {
		servo := virtual.NewServo(profile, uint8(cfg.ServoID))
		servo.SetSpeed(64)
		h := &hardware{servo: servo, busName: "simulated", storeName: "none"}
		if cfg.Store.Kind != config.StoreNone {
			h.store, h.storeName = virtual.NewMemoryStore(cfg.Store.Size), "memory"
		}
		return h, nil
	}

	h := &hardware{}
	store, name, closer, err := openStore(cfg.Store)
	if err != nil {
		return nil, err
	}
	h.store, h.storeName = store, name
	if closer != nil {
		h.closers = append(h.closers, closer)
	}

	if cfg.ServoBus.Port == "" {
		h.Close()
		return nil, errors.New("no servo bus port configured, set servo_bus.port or -bus")
	}
	busOpts := []dynamixel.Option{dynamixel.WithTimeout(cfg.BusTimeout())}
	if cfg.ServoBus.DirPin != "" {
		busOpts = append(busOpts, dynamixel.WithDirPinName(cfg.ServoBus.DirPin))
	}
	bus, err := dynamixel.Open(cfg.ServoBus.Port, cfg.ServoBus.Baud, profile, busOpts...)
	if err != nil {
		h.Close()
		return nil, err
	}
	h.servo, h.busName = bus, cfg.ServoBus.Port
	h.closers = append(h.closers, bus)
	return h, nil
}

// openStore opens the configured position store. An MRAM that cannot be
// reached is not fatal; the bridge runs degraded without it.
func openStore(sc config.StoreConfig) (dxlbridge.Store, string, io.Closer, error) {
	switch sc.Kind {
	case config.StoreNone:
		return nil, "none", nil, nil
	case config.StoreFile:
		s, err := filestore.Open(sc.Path, sc.Size)
		if err != nil {
			return nil, "", nil, err
		}
		return s, "file " + sc.Path, s, nil
	case config.StoreMRAM:
		d, err := mram.Open(sc.SPIPort, physic.Frequency(sc.SpeedHz)*physic.Hertz)
		if err != nil {
			return nil, fmt.Sprintf("unavailable (%v)", err), nil, nil
		}
		return d, d.String(), d, nil
	default:
		return nil, "", nil, fmt.Errorf("unknown store kind %q", sc.Kind)
	}
}
