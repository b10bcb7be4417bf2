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

package virtual

import (
	"errors"
	"sync"
)

// ErrShortBuffer is returned when more bytes are requested than buffered
var ErrShortBuffer = errors.New("virtual link: not enough buffered bytes")

// Link is an in-memory host link. Bytes fed in are read by the bridge;
// bytes the bridge writes are collected for inspection.
type Link struct {
	writeErr error
	peer     *Link
	in       []byte
	out      []byte
	mu       sync.Mutex
}

// NewLink creates an empty link
func NewLink() *Link {
	return &Link{}
}

// NewPair creates two links wired back to back: bytes written to one are
// buffered for reading on the other
func NewPair() (*Link, *Link) {
	a, b := NewLink(), NewLink()
	a.peer, b.peer = b, a
	return a, b
}

// Feed queues host bytes for the bridge
func (l *Link) Feed(p []byte) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.in = append(l.in, p...)
}

// FailWrites makes Write return err. A nil err clears the failure.
func (l *Link) FailWrites(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.writeErr = err
}

// Output returns everything written so far
func (l *Link) Output() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]byte(nil), l.out...)
}

// TakeOutput returns and clears everything written so far
func (l *Link) TakeOutput() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := l.out
	l.out = nil
	return out
}

// Buffered implements dxlbridge.Link
func (l *Link) Buffered() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.in)
}

// Peek implements dxlbridge.Link
func (l *Link) Peek(n int) ([]byte, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.in) {
		return nil, ErrShortBuffer
	}
	return append([]byte(nil), l.in[:n]...), nil
}

// Discard implements dxlbridge.Link
func (l *Link) Discard(n int) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if n > len(l.in) {
		n = len(l.in)
		l.in = l.in[:0]
		return n, ErrShortBuffer
	}
	l.in = l.in[n:]
	return n, nil
}

// Write implements dxlbridge.Link
func (l *Link) Write(p []byte) (int, error) {
	l.mu.Lock()
	if l.writeErr != nil {
		l.mu.Unlock()
		return 0, l.writeErr
	}
	l.out = append(l.out, p...)
	peer := l.peer
	l.mu.Unlock()

	// The peer lock is taken only after ours is released, so two links
	// writing to each other cannot deadlock.
	if peer != nil {
		peer.Feed(p)
	}
	return len(p), nil
}

// Read drains buffered bytes into p. It returns 0, nil when nothing is
// buffered, the way a serial port behaves after its read timeout.
func (l *Link) Read(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	n := copy(p, l.in)
	l.in = l.in[n:]
	return n, nil
}
