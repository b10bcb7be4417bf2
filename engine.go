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
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/ZaparooProject/go-dxlbridge/internal/frame"
)

// Link is the host side byte stream as seen by the control loop. Buffered
// and Peek never block, so polling the link never stalls the monitor.
type Link interface {
	// Buffered returns the number of bytes that can be read without blocking
	Buffered() int

	// Peek returns the next n buffered bytes without consuming them
	Peek(n int) ([]byte, error)

	// Discard consumes n buffered bytes
	Discard(n int) (int, error)

	io.Writer
}

// ProtocolState is the phase of the host protocol state machine
type ProtocolState int

// Protocol phases
const (
	StateIdle ProtocolState = iota
	StateCollecting
	StateValidating
	StateDispatching
	StateResponding
)

// String implements fmt.Stringer
func (s ProtocolState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateCollecting:
		return "collecting"
	case StateValidating:
		return "validating"
	case StateDispatching:
		return "dispatching"
	case StateResponding:
		return "responding"
	default:
		return fmt.Sprintf("ProtocolState(%d)", int(s))
	}
}

// EngineStats counts what the engine has seen since it was created
type EngineStats struct {
	Frames           int
	Positions        int
	Identifies       int
	Diagnostics      int
	Statuses         int
	Rejected         int
	Discarded        int
	GoalWrites       int
	Responses        int
	ResponseFailures int
}

// DiagnosticsFunc writes the human readable diagnostics dump
type DiagnosticsFunc func(ctx context.Context, w io.Writer) error

// EngineConfig configures an Engine
type EngineConfig struct {
	Diagnostics DiagnosticsFunc
	Identity    string
	Profile     Profile
	ServoID     uint8
}

// Engine decodes host command frames and answers them.
//
// Thread Safety: Engine is NOT thread-safe. Poll must be called from the
// control loop goroutine only.
type Engine struct {
	link  Link
	servo Servo
	state *State
	cfg   EngineConfig
	buf   frame.Buffer
	phase ProtocolState
	stats EngineStats
}

// NewEngine creates an engine reading commands from link
func NewEngine(link Link, servo Servo, state *State, cfg EngineConfig) *Engine {
	if cfg.Identity == "" {
		cfg.Identity = DefaultIdentity
	}
	return &Engine{
		link:  link,
		servo: servo,
		state: state,
		cfg:   cfg,
	}
}

// Phase returns the current protocol phase
func (e *Engine) Phase() ProtocolState {
	return e.phase
}

// Stats returns a copy of the engine counters
func (e *Engine) Stats() EngineStats {
	return e.stats
}

// Poll handles at most one command frame. It returns true when it consumed
// input. Bytes ahead of a start marker are discarded; a frame is only
// assembled once a whole frame is buffered, so Poll never waits for input.
// A rejected frame consumes only its start marker.
func (e *Engine) Poll(ctx context.Context) (bool, error) {
	defer e.settle()

	discarded, err := e.skipToStart()
	if err != nil {
		return discarded > 0, err
	}
	if e.link.Buffered() < frame.CommandFrameLength {
		return discarded > 0, nil
	}

	e.phase = StateCollecting
	data, err := e.link.Peek(frame.CommandFrameLength)
	if err != nil {
		return discarded > 0, fmt.Errorf("peek command frame: %w", err)
	}
	e.buf.Reset()
	e.buf.Append(data)

	e.phase = StateValidating
	cmd := frame.Classify(e.buf.Bytes())
	if cmd.Kind == frame.KindInvalid {
		e.stats.Rejected++
		debugf("%v: % X", ErrFraming, e.buf.Bytes())
		_, err := e.link.Discard(1)
		return true, err
	}
	if _, err := e.link.Discard(frame.CommandFrameLength); err != nil {
		return true, fmt.Errorf("consume command frame: %w", err)
	}
	e.stats.Frames++

	e.phase = StateDispatching
	return true, e.dispatch(ctx, cmd)
}

// settle sets the phase seen between polls: collecting while a start
// marker heads the link, idle otherwise.
func (e *Engine) settle() {
	e.phase = StateIdle
	if e.link.Buffered() == 0 {
		return
	}
	if b, err := e.link.Peek(1); err == nil && b[0] == frame.StartMarker {
		e.phase = StateCollecting
	}
}

func (e *Engine) skipToStart() (int, error) {
	n := 0
	for e.link.Buffered() > 0 {
		b, err := e.link.Peek(1)
		if err != nil {
			return n, fmt.Errorf("peek: %w", err)
		}
		if b[0] == frame.StartMarker {
			break
		}
		if _, err := e.link.Discard(1); err != nil {
			return n, fmt.Errorf("discard: %w", err)
		}
		n++
	}
	e.stats.Discarded += n
	return n, nil
}

func (e *Engine) dispatch(ctx context.Context, cmd frame.Command) error {
	switch cmd.Kind {
	case frame.KindPosition:
		e.stats.Positions++
		writeErr := e.applyGoal(ctx, cmd.Position)
		if err := e.respond(ctx); err != nil {
			if writeErr != nil {
				return fmt.Errorf("%w; %w", writeErr, err)
			}
			return err
		}
		return writeErr
	case frame.KindIdentify:
		e.stats.Identifies++
		return e.write([]byte(e.cfg.Identity))
	case frame.KindDiagnostics:
		e.stats.Diagnostics++
		if e.cfg.Diagnostics == nil {
			return nil
		}
		var out bytes.Buffer
		if err := e.cfg.Diagnostics(ctx, &out); err != nil {
			return fmt.Errorf("diagnostics: %w", err)
		}
		return e.write(out.Bytes())
	case frame.KindStatus:
		e.stats.Statuses++
		return e.respond(ctx)
	default:
		return ErrFraming
	}
}

// applyGoal clamps the requested goal into the profile range and writes it
// unless the servo already holds that goal.
func (e *Engine) applyGoal(ctx context.Context, requested int32) error {
	goal := e.cfg.Profile.GoalLimits.Clamp(int64(requested))
	if goal != requested {
		debugf("goal %d clamped to %d", requested, goal)
	}

	current, err := e.servo.ReadItem(ctx, ItemGoalPosition, e.cfg.ServoID)
	if err == nil && current == goal {
		return nil
	}
	if err != nil {
		debugf("read goal position: %v", err)
	}

	if err := e.servo.SetGoalPosition(ctx, e.cfg.ServoID, goal); err != nil {
		return fmt.Errorf("set goal position %d: %w", goal, err)
	}
	e.stats.GoalWrites++
	return nil
}

func (e *Engine) respond(ctx context.Context) error {
	e.phase = StateResponding
	resp, err := e.readStatus(ctx)
	if err != nil {
		e.stats.ResponseFailures++
		return fmt.Errorf("status not sent: %w", err)
	}
	if err := e.write(frame.EncodeResponse(resp)); err != nil {
		return err
	}
	e.stats.Responses++
	return nil
}

func (e *Engine) readStatus(ctx context.Context) (frame.Response, error) {
	id := e.cfg.ServoID
	var resp frame.Response

	goal, err := e.servo.ReadItem(ctx, ItemGoalPosition, id)
	if err != nil {
		return resp, fmt.Errorf("read goal position: %w", err)
	}
	present, err := e.servo.ReadItem(ctx, ItemPresentPosition, id)
	if err != nil {
		return resp, fmt.Errorf("read present position: %w", err)
	}
	moving, err := e.servo.ReadItem(ctx, ItemMoving, id)
	if err != nil {
		return resp, fmt.Errorf("read moving: %w", err)
	}
	hwErr, err := e.servo.ReadItem(ctx, ItemHardwareErrorStatus, id)
	if err != nil {
		return resp, fmt.Errorf("read hardware error: %w", err)
	}

	resp.Goal = goal
	resp.Present = present
	resp.Moving = byte(moving)
	resp.HardwareError = byte(hwErr)
	e.state.LastPosition = present
	return resp, nil
}

func (e *Engine) write(p []byte) error {
	if _, err := e.link.Write(p); err != nil {
		return fmt.Errorf("write host link: %w", err)
	}
	return nil
}
