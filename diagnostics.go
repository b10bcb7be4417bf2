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
	"io"
	"strconv"
)

const unavailable = "unavailable"

// diagWriter keeps the first write error so the dump can be written line by
// line without checking each one.
type diagWriter struct {
	w   io.Writer
	err error
}

func (d *diagWriter) line(format string, args ...any) {
	if d.err != nil {
		return
	}
	_, d.err = fmt.Fprintf(d.w, format+"\r\n", args...)
}

// WriteDiagnostics writes the human readable state dump sent in reply to the
// diagnostics query. Registers are read live; a failed read prints
// "unavailable" instead of aborting the dump.
func (b *Bridge) WriteDiagnostics(ctx context.Context, w io.Writer) error {
	id := b.servoID
	p := b.profile
	st := b.state

	read := func(item ControlItem) string {
		v, err := b.servo.ReadItem(ctx, item, id)
		if err != nil {
			debugf("diagnostics: read %s: %v", item, err)
			return unavailable
		}
		return strconv.FormatInt(int64(v), 10)
	}

	lastErr := func() string {
		if r, ok := b.servo.(LastErrorReporter); ok {
			if err := r.LastError(); err != nil {
				return err.Error()
			}
		}
		return "none"
	}

	storeState := "available"
	if !st.StoreAvailable {
		storeState = unavailable
	}

	d := &diagWriter{w: w}
	d.line("")
	d.line("Current Dynamixel ID is %s", read(ItemID))
	d.line("Dynamixel speed is set to %s", read(p.VelocityItem))
	d.line("Dynamixel position P Gain is set to %s", read(ItemPositionPGain))
	d.line("Last known position was %d", st.LastPosition)
	d.line("Saved position is %d", st.StoredPosition)
	d.line("Present position is %s", read(ItemPresentPosition))
	d.line("Raw Dynamixel Position with no offset was %d", st.RawPosition)
	d.line("Dynamixel current offset is set to %s", read(ItemHomingOffset))
	d.line("Current saved Turn is %d", p.Turn(st.StoredPosition))
	d.line("Turn crossings since boot: %d", st.Rollovers)
	d.line("Position store is %s", storeState)
	d.line("Last Reported Error was %s", lastErr())
	d.line("Current Hardware Error is %s", read(ItemHardwareErrorStatus))
	d.line("Current controller firmware is version %s", Version())
	d.line("Current firmware is for %s", p.Description)
	return d.err
}
