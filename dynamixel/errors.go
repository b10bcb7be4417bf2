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
	"errors"
	"fmt"
)

// Bus errors
var (
	ErrTimeout      = errors.New("dynamixel: status packet timeout")
	ErrCRCMismatch  = errors.New("dynamixel: status packet CRC mismatch")
	ErrBadPacket    = errors.New("dynamixel: malformed status packet")
	ErrWrongID      = errors.New("dynamixel: status packet from unexpected id")
	ErrRegisterSize = errors.New("dynamixel: unsupported register size")
)

// Status packet error codes
const (
	ErrCodeResultFail  byte = 0x01
	ErrCodeInstruction byte = 0x02
	ErrCodeCRC         byte = 0x03
	ErrCodeDataRange   byte = 0x04
	ErrCodeDataLength  byte = 0x05
	ErrCodeDataLimit   byte = 0x06
	ErrCodeAccess      byte = 0x07

	// alertBit is set when the servo has a hardware error pending
	alertBit byte = 0x80
)

// StatusError is an error reported by the servo in its status packet
type StatusError struct {
	Instruction byte
	Code        byte
	ID          uint8
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("dynamixel: servo %d rejected instruction 0x%02X: %s", e.ID, e.Instruction, codeText(e.Code))
}

func codeText(code byte) string {
	switch code {
	case ErrCodeResultFail:
		return "result fail"
	case ErrCodeInstruction:
		return "instruction error"
	case ErrCodeCRC:
		return "crc error"
	case ErrCodeDataRange:
		return "data range error"
	case ErrCodeDataLength:
		return "data length error"
	case ErrCodeDataLimit:
		return "data limit error"
	case ErrCodeAccess:
		return "access error"
	default:
		return fmt.Sprintf("error 0x%02X", code)
	}
}
