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

/*
Package dxlbridge bridges a host computer and a DYNAMIXEL servo that has no
multi-turn memory of its own.

The servo's absolute encoder wraps every TurnSize counts and forgets how many
turns have accumulated when power is removed. The bridge keeps the last known
absolute position in a byte-addressable non-volatile store (an SPI MRAM on the
reference hardware) and, at boot, derives a homing offset that puts the shaft
back into the turn it was in before power was lost.

The host talks to the bridge with fixed-length frames over a serial link:

	'$' | int32 BE position | checksum | '%' | '#'   position command
	"$000000#"                                     identity query
	"$DEBUG!#"                                     diagnostics dump
	"$1234xx#"                                     status only

Every position and status command is answered with a 12 byte frame carrying
the goal position, present position, moving flag and hardware error byte.

Basic Usage:

	import (
	    "github.com/ZaparooProject/go-dxlbridge"
	    "github.com/ZaparooProject/go-dxlbridge/dynamixel"
	    "github.com/ZaparooProject/go-dxlbridge/store/mram"
	    "github.com/ZaparooProject/go-dxlbridge/transport/uart"
	)

	link, err := uart.Open("/dev/ttyACM0", 115200)
	if err != nil {
	    log.Fatal(err)
	}
	defer link.Close()

	bus, err := dynamixel.Open("/dev/ttyUSB0", 57600, dxlbridge.ProfileMX())
	if err != nil {
	    log.Fatal(err)
	}
	defer bus.Close()

	mem, err := mram.Open("SPI0.0")
	if err != nil {
	    log.Fatal(err)
	}

	bridge, err := dxlbridge.New(bus, mem, link,
	    dxlbridge.WithProfile(dxlbridge.ProfileMX()),
	    dxlbridge.WithServoID(1),
	)
	if err != nil {
	    log.Fatal(err)
	}

	// Run boots the servo and then serves the host until ctx is cancelled.
	err = bridge.Run(ctx)

Device Profiles:

Each servo family is described by a Profile: its turn size, the goal and
offset ranges it accepts, bring-up defaults, whether multi-turn tracking
applies, and its control table. ProfileMX, ProfilePro and ProfileY cover the
supported families.

Error Handling:

A servo that does not answer the boot ping puts the bridge into a permanent
halt that announces the fault on the host link. Every other fault degrades
the bridge without stopping it:

	if errors.Is(err, dxlbridge.ErrDeviceUnreachable) {
	    // Power cycle required
	}

Thread Safety:

Bridge, Engine and PositionKeeper are driven from a single goroutine. The
servo and store are only touched from that goroutine.
*/
package dxlbridge
