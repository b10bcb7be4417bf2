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

// Package frame provides framing constants and codecs for the host link protocol
package frame

// Frame markers
const (
	StartMarker   = '$' // First byte of every frame in both directions
	EndMarker     = '#' // Last byte of every frame in both directions
	CommandMarker = '%' // Fixed byte 6 of a position command
)

// Frame sizes
const (
	CommandFrameLength  = 8  // start + 4 payload + checksum + marker + end
	ResponseFrameLength = 12 // start + goal(4) + present(4) + moving + error + end
	PayloadLength       = 4  // bytes carrying a big-endian int32
)

// Byte offsets inside a command frame
const (
	payloadOffset  = 1
	checksumOffset = 5
	markerOffset   = 6
	endOffset      = CommandFrameLength - 1
)

// Literal command frames. The status literal only fixes bytes 1-4; the
// trailing two payload bytes are ignored.
var (
	IdentifyFrame    = []byte("$000000#")
	DiagnosticsFrame = []byte("$DEBUG!#")
	StatusFrame      = []byte("$123400#")
)

var (
	identifyPayload    = []byte("000000")
	diagnosticsPayload = []byte("DEBUG!")
	statusPayload      = []byte("1234")
)
