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

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/ZaparooProject/go-dxlbridge/internal/frame"
)

// errQuit ends the console loop
var errQuit = errors.New("quit")

// bridgeClient is the part of client.Client the console drives
type bridgeClient interface {
	Identify(ctx context.Context) (string, error)
	Status(ctx context.Context) (frame.Response, error)
	MoveTo(ctx context.Context, position int32) (frame.Response, error)
	Diagnostics(ctx context.Context) (string, error)
}

// command is one console verb
type command struct {
	run     func(ctx context.Context, c *console, args []string) error
	name    string
	usage   string
	help    string
	aliases []string
}

type console struct {
	client   bridgeClient
	out      io.Writer
	commands map[string]*command
	names    []string
}

func newConsole(client bridgeClient, out io.Writer) *console {
	c := &console{client: client, out: out, commands: make(map[string]*command)}
	for _, cmd := range []*command{
		{name: "id", help: "Show the bridge identity", run: cmdIdentify},
		{name: "status", aliases: []string{"st"}, help: "Show goal, present position and error flags", run: cmdStatus},
		{name: "move", aliases: []string{"mv"}, usage: "<position>", help: "Set the goal position", run: cmdMove},
		{name: "debug", aliases: []string{"diag"}, help: "Print the diagnostics dump", run: cmdDebug},
		{name: "help", aliases: []string{"?"}, help: "List commands", run: cmdHelp},
		{name: "quit", aliases: []string{"exit", "q"}, help: "Leave the console", run: cmdQuit},
	} {
		c.commands[cmd.name] = cmd
		c.names = append(c.names, cmd.name)
		for _, a := range cmd.aliases {
			c.commands[a] = cmd
		}
	}
	sort.Strings(c.names)
	return c
}

// exec runs one input line. It returns errQuit when the console should end.
func (c *console) exec(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}
	cmd, ok := c.commands[strings.ToLower(fields[0])]
	if !ok {
		return fmt.Errorf("unknown command %q, type help for a list", fields[0])
	}
	return cmd.run(ctx, c, fields[1:])
}

// complete offers command names for liner tab completion
func (c *console) complete(line string) []string {
	prefix := strings.ToLower(strings.TrimLeft(line, " "))
	var out []string
	for _, name := range c.names {
		if strings.HasPrefix(name, prefix) {
			out = append(out, name)
		}
	}
	return out
}

func (c *console) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(c.out, format, args...)
}

func cmdIdentify(ctx context.Context, c *console, _ []string) error {
	id, err := c.client.Identify(ctx)
	if err != nil {
		return err
	}
	c.printf("%s\n", id)
	return nil
}

func cmdStatus(ctx context.Context, c *console, _ []string) error {
	resp, err := c.client.Status(ctx)
	if err != nil {
		return err
	}
	c.printf("%s\n", resp)
	return nil
}

func cmdMove(ctx context.Context, c *console, args []string) error {
	if len(args) != 1 {
		return errors.New("usage: move <position>")
	}
	pos, err := strconv.ParseInt(args[0], 10, 32)
	if err != nil {
		return fmt.Errorf("bad position %q: %w", args[0], err)
	}
	resp, err := c.client.MoveTo(ctx, int32(pos))
	if err != nil {
		return err
	}
	if resp.Goal != int32(pos) {
		c.printf("goal clamped to %d\n", resp.Goal)
	}
	c.printf("%s\n", resp)
	return nil
}

func cmdDebug(ctx context.Context, c *console, _ []string) error {
	dump, err := c.client.Diagnostics(ctx)
	if err != nil {
		return err
	}
	c.printf("%s", strings.ReplaceAll(dump, "\r\n", "\n"))
	return nil
}

func cmdHelp(_ context.Context, c *console, _ []string) error {
	for _, name := range c.names {
		cmd := c.commands[name]
		usage := cmd.name
		if cmd.usage != "" {
			usage += " " + cmd.usage
		}
		c.printf("  %-18s %s\n", usage, cmd.help)
	}
	return nil
}

func cmdQuit(context.Context, *console, []string) error {
	return errQuit
}
