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

package frame

import (
	"encoding/binary"
	"errors"
	"fmt"
)

// ErrShortFrame is returned when a frame is shorter than its fixed length
var ErrShortFrame = errors.New("frame: short frame")

// ErrBadMarkers is returned when a frame does not start with '$' or end with '#'
var ErrBadMarkers = errors.New("frame: bad start or end marker")

// PutInt32 writes v into b[0:4] as big-endian two's complement.
func PutInt32(b []byte, v int32) {
	binary.BigEndian.PutUint32(b, uint32(v))
}

// Int32 decodes a big-endian two's complement value from b[0:4].
func Int32(b []byte) int32 {
	return int32(binary.BigEndian.Uint32(b))
}

// BuildCommand encodes a position command for the given desired position.
func BuildCommand(position int32) []byte {
	frm := make([]byte, CommandFrameLength)
	frm[0] = StartMarker
	PutInt32(frm[payloadOffset:], position)
	frm[checksumOffset] = CalculateChecksum(frm[payloadOffset : payloadOffset+PayloadLength])
	frm[markerOffset] = CommandMarker
	frm[endOffset] = EndMarker
	return frm
}

// Response is the decoded content of a response frame
type Response struct {
	Goal          int32
	Present       int32
	Moving        byte
	HardwareError byte
}

// IsMoving reports whether the servo flagged itself as moving
func (r Response) IsMoving() bool {
	return r.Moving != 0
}

// String implements fmt.Stringer
func (r Response) String() string {
	return fmt.Sprintf("goal=%d present=%d moving=%t hwerr=0x%02X",
		r.Goal, r.Present, r.IsMoving(), r.HardwareError)
}

// EncodeResponse builds a response frame. No checksum is carried on the
// outbound direction.
func EncodeResponse(r Response) []byte {
	frm := make([]byte, ResponseFrameLength)
	frm[0] = StartMarker
	PutInt32(frm[1:5], r.Goal)
	PutInt32(frm[5:9], r.Present)
	frm[9] = r.Moving
	frm[10] = r.HardwareError
	frm[11] = EndMarker
	return frm
}

// DecodeResponse parses a response frame produced by EncodeResponse.
func DecodeResponse(frm []byte) (Response, error) {
	if len(frm) < ResponseFrameLength {
		return Response{}, ErrShortFrame
	}
	if frm[0] != StartMarker || frm[ResponseFrameLength-1] != EndMarker {
		return Response{}, ErrBadMarkers
	}
	return Response{
		Goal:          Int32(frm[1:5]),
		Present:       Int32(frm[5:9]),
		Moving:        frm[9],
		HardwareError: frm[10],
	}, nil
}
