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

package dynamixel

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
)

// Instructions
const (
	InstPing   byte = 0x01
	InstRead   byte = 0x02
	InstWrite  byte = 0x03
	InstStatus byte = 0x55
)

// BroadcastID addresses every servo on the bus. Servos do not answer it.
const BroadcastID uint8 = 0xFE

var header = []byte{0xFF, 0xFF, 0xFD, 0x00}

// maxGarbage bounds how many stray bytes are skipped looking for a header
const maxGarbage = 256

// Status is a decoded status packet
type Status struct {
	Params []byte
	ID     uint8
	Error  byte
}

// Alert reports whether the servo flagged a hardware error
func (s Status) Alert() bool {
	return s.Error&alertBit != 0
}

// EncodeInstruction builds an instruction packet
func EncodeInstruction(id uint8, inst byte, params []byte) []byte {
	return encodePacket(id, inst, params)
}

// encodePacket builds "FF FF FD 00 ID LEN_L LEN_H INST PARAMS CRC_L CRC_H".
// Instruction and parameters are byte stuffed so the header never appears
// inside a packet.
func encodePacket(id uint8, inst byte, params []byte) []byte {
	body := stuff(append([]byte{inst}, params...))
	length := len(body) + 2

	pkt := make([]byte, 0, len(header)+3+len(body)+2)
	pkt = append(pkt, header...)
	pkt = append(pkt, id)
	pkt = binary.LittleEndian.AppendUint16(pkt, uint16(length))
	pkt = append(pkt, body...)
	return binary.LittleEndian.AppendUint16(pkt, CRC16(pkt))
}

// stuff inserts 0xFD after every FF FF FD sequence
func stuff(data []byte) []byte {
	out := make([]byte, 0, len(data)+len(data)/3)
	for i, b := range data {
		out = append(out, b)
		if b == 0xFD && i >= 2 && data[i-1] == 0xFF && data[i-2] == 0xFF {
			out = append(out, 0xFD)
		}
	}
	return out
}

// unstuff removes the 0xFD inserted by stuff
func unstuff(data []byte) []byte {
	out := make([]byte, 0, len(data))
	for i := 0; i < len(data); i++ {
		out = append(out, data[i])
		n := len(out)
		if n >= 3 && out[n-3] == 0xFF && out[n-2] == 0xFF && out[n-1] == 0xFD &&
			i+1 < len(data) && data[i+1] == 0xFD {
			i++
		}
	}
	return out
}

// ReadStatus reads one status packet from r. Bytes ahead of the header are
// skipped.
func ReadStatus(r io.Reader) (Status, error) {
	var st Status

	window := make([]byte, 0, len(header))
	one := make([]byte, 1)
	for skipped := 0; !bytes.Equal(window, header); skipped++ {
		if skipped > maxGarbage+len(header) {
			return st, fmt.Errorf("%w: no header", ErrBadPacket)
		}
		if _, err := io.ReadFull(r, one); err != nil {
			return st, err
		}
		if len(window) == len(header) {
			window = window[1:]
		}
		window = append(window, one[0])
	}

	head := make([]byte, 3)
	if _, err := io.ReadFull(r, head); err != nil {
		return st, err
	}
	length := int(binary.LittleEndian.Uint16(head[1:]))
	if length < 4 {
		return st, fmt.Errorf("%w: length %d", ErrBadPacket, length)
	}

	rest := make([]byte, length)
	if _, err := io.ReadFull(r, rest); err != nil {
		return st, err
	}

	pkt := make([]byte, 0, len(header)+len(head)+len(rest))
	pkt = append(pkt, header...)
	pkt = append(pkt, head...)
	pkt = append(pkt, rest...)
	want := binary.LittleEndian.Uint16(pkt[len(pkt)-2:])
	if got := CRC16(pkt[:len(pkt)-2]); got != want {
		return st, fmt.Errorf("%w: got 0x%04X want 0x%04X", ErrCRCMismatch, got, want)
	}

	body := unstuff(rest[:len(rest)-2])
	if body[0] != InstStatus {
		return st, fmt.Errorf("%w: instruction 0x%02X", ErrBadPacket, body[0])
	}

	st.ID = head[0]
	st.Error = body[1]
	st.Params = body[2:]
	return st, nil
}

// putValue encodes v little-endian into size bytes
func putValue(size int, v int32) ([]byte, error) {
	switch size {
	case 1:
		return []byte{byte(v)}, nil
	case 2:
		return binary.LittleEndian.AppendUint16(nil, uint16(v)), nil
	case 4:
		return binary.LittleEndian.AppendUint32(nil, uint32(v)), nil
	default:
		return nil, fmt.Errorf("%w: %d", ErrRegisterSize, size)
	}
}

// value decodes a register. One byte registers are unsigned; wider ones are
// sign extended.
func value(b []byte) (int32, error) {
	switch len(b) {
	case 1:
		return int32(b[0]), nil
	case 2:
		return int32(int16(binary.LittleEndian.Uint16(b))), nil
	case 4:
		return int32(binary.LittleEndian.Uint32(b)), nil
	default:
		return 0, fmt.Errorf("%w: %d", ErrRegisterSize, len(b))
	}
}
