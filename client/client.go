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

// Package client talks to a running bridge from the host side of the link.
package client

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"go.bug.st/serial"

	"github.com/ZaparooProject/go-dxlbridge/internal/frame"
	"github.com/ZaparooProject/go-dxlbridge/internal/retry"
)

const (
	// DefaultTimeout bounds a single request
	DefaultTimeout = time.Second
	// DefaultPollInterval is the pause between reads while waiting
	DefaultPollInterval = 2 * time.Millisecond
	// DefaultSettle is how long the link must stay quiet before a reply
	// without a fixed length is considered complete
	DefaultSettle = 50 * time.Millisecond

	portReadTimeout = 10 * time.Millisecond
	maxReply        = 8192
)

// ErrNoReply is returned when the bridge sends nothing before the timeout
var ErrNoReply = errors.New("client: no reply from bridge")

// diagnosticsTail starts the last line of a diagnostics dump
var diagnosticsTail = []byte("\r\nCurrent firmware is for ")

// Client issues host commands and decodes replies. The ReadWriter's Read
// must return promptly when no data is pending, as a serial port with a
// read timeout does.
//
// Thread Safety: requests are serialized.
type Client struct {
	rw       io.ReadWriter
	closer   io.Closer
	pending  []byte
	timeout  time.Duration
	interval time.Duration
	settle   time.Duration
	mu       sync.Mutex
}

// Option configures a Client
type Option func(*Client)

// WithTimeout sets the per-request timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithPollInterval sets the pause between reads
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithSettle sets the quiet period that ends identity replies
func WithSettle(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.settle = d
		}
	}
}

// New wraps an open link
func New(rw io.ReadWriter, opts ...Option) *Client {
	c := &Client{
		rw:       rw,
		timeout:  DefaultTimeout,
		interval: DefaultPollInterval,
		settle:   DefaultSettle,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Open connects to a bridge on a serial port
func Open(portName string, baud int, opts ...Option) (*Client, error) {
	port, err := serial.Open(portName, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("client: open %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(portReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("client: set read timeout: %w", err)
	}
	c := New(port, opts...)
	c.closer = port
	return c, nil
}

// Close releases the port opened by Open
func (c *Client) Close() error {
	if c.closer == nil {
		return nil
	}
	return c.closer.Close()
}

// Identify returns the bridge identity string
func (c *Client) Identify(ctx context.Context) (string, error) {
	reply, err := c.request(ctx, frame.IdentifyFrame, c.untilQuiet())
	if err != nil {
		return "", fmt.Errorf("identify: %w", err)
	}
	return string(reply), nil
}

// Status reports the servo without moving it
func (c *Client) Status(ctx context.Context) (frame.Response, error) {
	return c.response(ctx, "status", frame.StatusFrame)
}

// MoveTo sends a goal position and returns the status that follows it
func (c *Client) MoveTo(ctx context.Context, position int32) (frame.Response, error) {
	return c.response(ctx, "move", frame.BuildCommand(position))
}

// Diagnostics returns the multi-line diagnostics dump
func (c *Client) Diagnostics(ctx context.Context) (string, error) {
	reply, err := c.request(ctx, frame.DiagnosticsFrame, func(buf []byte, _ bool) (int, bool) {
		idx := bytes.Index(buf, diagnosticsTail)
		if idx < 0 {
			return 0, false
		}
		end := bytes.Index(buf[idx+len(diagnosticsTail):], []byte("\r\n"))
		if end < 0 {
			return 0, false
		}
		return idx + len(diagnosticsTail) + end + 2, true
	})
	if err != nil {
		return "", fmt.Errorf("diagnostics: %w", err)
	}
	return string(reply), nil
}

func (c *Client) response(ctx context.Context, op string, cmd []byte) (frame.Response, error) {
	reply, err := c.request(ctx, cmd, func(buf []byte, _ bool) (int, bool) {
		start := bytes.IndexByte(buf, frame.StartMarker)
		if start < 0 || len(buf)-start < frame.ResponseFrameLength {
			return 0, false
		}
		return start + frame.ResponseFrameLength, true
	})
	if err != nil {
		return frame.Response{}, fmt.Errorf("%s: %w", op, err)
	}
	resp, err := frame.DecodeResponse(reply[bytes.IndexByte(reply, frame.StartMarker):])
	if err != nil {
		return frame.Response{}, fmt.Errorf("%s: %w", op, err)
	}
	return resp, nil
}

func (c *Client) untilQuiet() func([]byte, bool) (int, bool) {
	return func(buf []byte, quiet bool) (int, bool) {
		if len(buf) == 0 || !quiet {
			return 0, false
		}
		return len(buf), true
	}
}

// request writes cmd and reads until complete reports the reply length.
// complete is told whether the link has been quiet for the settle period.
func (c *Client) request(
	ctx context.Context, cmd []byte, complete func(buf []byte, quiet bool) (int, bool),
) ([]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// Anything left over belongs to an earlier exchange.
	c.pending = c.pending[:0]
	if err := c.drain(); err != nil {
		return nil, err
	}

	if _, err := c.rw.Write(cmd); err != nil {
		return nil, fmt.Errorf("write: %w", err)
	}

	chunk := make([]byte, 256)
	lastData := time.Now()
	reply, err := retry.TimeoutRetry(ctx, c.timeout, c.interval, func() ([]byte, bool, error) {
		n, err := c.rw.Read(chunk)
		if err != nil && !errors.Is(err, io.EOF) {
			return nil, false, fmt.Errorf("read: %w", err)
		}
		if n > 0 {
			c.pending = append(c.pending, chunk[:n]...)
			lastData = time.Now()
			if len(c.pending) > maxReply {
				return nil, false, fmt.Errorf("reply exceeds %d bytes", maxReply)
			}
		}
		quiet := n == 0 && time.Since(lastData) >= c.settle
		end, ok := complete(c.pending, quiet)
		if !ok {
			return nil, true, nil
		}
		out := append([]byte(nil), c.pending[:end]...)
		c.pending = append(c.pending[:0], c.pending[end:]...)
		return out, false, nil
	})
	if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
		return nil, ErrNoReply
	}
	return reply, err
}

// drain discards unread bytes already waiting on the link
func (c *Client) drain() error {
	chunk := make([]byte, 256)
	for range maxReply / len(chunk) {
		n, err := c.rw.Read(chunk)
		if err != nil && !errors.Is(err, io.EOF) {
			return fmt.Errorf("read: %w", err)
		}
		if n == 0 {
			return nil
		}
	}
	return nil
}
