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

// Buffer is a fixed-capacity command frame buffer that tracks how many bytes
// it holds. It never grows past CommandFrameLength.
type Buffer struct {
	data [CommandFrameLength]byte
	n    int
}

// Append copies as many bytes of p as fit and returns the count copied.
func (b *Buffer) Append(p []byte) int {
	n := copy(b.data[b.n:], p)
	b.n += n
	return n
}

// Len returns the number of bytes held
func (b *Buffer) Len() int {
	return b.n
}

// Full reports whether the buffer holds a complete command frame
func (b *Buffer) Full() bool {
	return b.n == CommandFrameLength
}

// Bytes returns the held bytes. The slice aliases the buffer.
func (b *Buffer) Bytes() []byte {
	return b.data[:b.n]
}

// Reset empties the buffer
func (b *Buffer) Reset() {
	b.n = 0
}
