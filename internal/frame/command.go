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

import "bytes"

// Kind identifies which command a frame carries
type Kind int

const (
	// KindInvalid is a frame that failed every check
	KindInvalid Kind = iota
	// KindPosition is a checksum-valid position command
	KindPosition
	// KindIdentify is the "$000000#" identity query
	KindIdentify
	// KindDiagnostics is the "$DEBUG!#" dump request
	KindDiagnostics
	// KindStatus is the "$1234xx#" status-only request
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindPosition:
		return "position"
	case KindIdentify:
		return "identify"
	case KindDiagnostics:
		return "diagnostics"
	case KindStatus:
		return "status"
	default:
		return "invalid"
	}
}

// Command is a classified command frame
type Command struct {
	Kind     Kind
	Position int32 // only meaningful for KindPosition
}

// Classify validates a command frame and identifies its kind. The checks run
// in priority order: position command, identify, diagnostics, status.
func Classify(frm []byte) Command {
	if len(frm) < CommandFrameLength {
		return Command{Kind: KindInvalid}
	}
	frm = frm[:CommandFrameLength]
	if frm[0] != StartMarker || frm[endOffset] != EndMarker {
		return Command{Kind: KindInvalid}
	}

	if ValidateCommandChecksum(frm) && frm[markerOffset] == CommandMarker {
		return Command{
			Kind:     KindPosition,
			Position: Int32(frm[payloadOffset : payloadOffset+PayloadLength]),
		}
	}

	body := frm[payloadOffset:endOffset]
	switch {
	case bytes.Equal(body, identifyPayload):
		return Command{Kind: KindIdentify}
	case bytes.Equal(body, diagnosticsPayload):
		return Command{Kind: KindDiagnostics}
	case bytes.HasPrefix(body, statusPayload):
		return Command{Kind: KindStatus}
	}
	return Command{Kind: KindInvalid}
}
