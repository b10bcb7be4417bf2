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
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	dxlbridge "github.com/ZaparooProject/go-dxlbridge"
	"github.com/ZaparooProject/go-dxlbridge/detection"
	"github.com/ZaparooProject/go-dxlbridge/internal/config"
	"github.com/ZaparooProject/go-dxlbridge/internal/logging"
	"github.com/ZaparooProject/go-dxlbridge/transport/uart"
)

type flags struct {
	configPath *string
	hostPort   *string
	busPort    *string
	storeKind  *string
	debug      *bool
	simulate   *bool
	list       *bool
}

func parseFlags(fs *flag.FlagSet, args []string) (*flags, error) {
	f := &flags{
		configPath: fs.String("config", "", "Configuration file (.yaml, .yml or .toml)"),
		hostPort:   fs.String("host", "", "Host link serial port, overrides host.port"),
		busPort:    fs.String("bus", "", "Servo bus serial port, overrides servo_bus.port"),
		storeKind:  fs.String("store", "", "Position store kind (mram, file, none), overrides store.kind"),
		debug:      fs.Bool("debug", false, "Enable debug output"),
		simulate:   fs.Bool("simulate", false, "Use a simulated servo and in-memory store"),
		list:       fs.Bool("list", false, "List serial ports and exit"),
	}
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return f, nil
}

// loadConfig reads the file named by -config and applies flag overrides
func loadConfig(f *flags) (config.Config, error) {
	cfg := config.Default()
	if *f.configPath != "" {
		loaded, err := config.Load(*f.configPath)
		if err != nil {
			return config.Config{}, err
		}
		cfg = loaded
	}
	if *f.hostPort != "" {
		cfg.Host.Port = *f.hostPort
	}
	if *f.busPort != "" {
		cfg.ServoBus.Port = *f.busPort
	}
	if *f.storeKind != "" {
		cfg.Store.Kind = *f.storeKind
	}
	if err := config.Validate(&cfg); err != nil {
		return config.Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func newLogger(w io.Writer, cfg config.Config, debug bool) zerolog.Logger {
	lc := logging.DefaultConfig(logging.ProfileRuntime)
	if lvl, ok := logging.ParseLevel(cfg.Log.Level); ok {
		lc.Level = lvl
	}
	lc.NoColor = cfg.Log.NoColor
	logging.ApplyEnv(&lc, os.Getenv)
	if debug {
		lc.Level = zerolog.DebugLevel
	}
	return logging.New(w, lc)
}

func listPorts(w io.Writer) error {
	ports, err := detection.ListPorts(detection.DefaultOptions())
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		_, _ = fmt.Fprintln(w, "No serial ports found")
		return nil
	}
	for _, p := range ports {
		_, _ = fmt.Fprintln(w, p.String())
	}
	return nil
}

func run(ctx context.Context, f *flags) error {
	if *f.list {
		return listPorts(os.Stdout)
	}

	cfg, err := loadConfig(f)
	if err != nil {
		return err
	}

	logger := newLogger(os.Stderr, cfg, *f.debug)
	dxlbridge.SetLogger(logger)
	dxlbridge.SetDebugEnabled(*f.debug)

	if cfg.Host.Port == "" {
		return errors.New("no host port configured, set host.port or -host")
	}

	hw, err := openHardware(cfg, *f.simulate)
	if err != nil {
		return err
	}
	defer hw.Close()

	link, err := uart.Open(cfg.Host.Port, cfg.Host.Baud)
	if err != nil {
		return err
	}
	defer func() { _ = link.Close() }()

	opts, err := cfg.Options()
	if err != nil {
		return err
	}
	bridge, err := dxlbridge.New(hw.servo, hw.store, link, opts...)
	if err != nil {
		return err
	}

	logger.Info().
		Str("host", link.String()).
		Str("bus", hw.busName).
		Str("store", hw.storeName).
		Str("profile", bridge.Profile().Name).
		Str("version", dxlbridge.Version()).
		Msg("starting bridge")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return link.Run(gctx) })
	g.Go(func() error { return bridge.Run(gctx) })
	if err := g.Wait(); err != nil {
		return err
	}
	if n := link.Dropped(); n > 0 {
		logger.Warn().Int("bytes", n).Msg("host input dropped on overflow")
	}
	return nil
}

func main() {
	f, err := parseFlags(flag.CommandLine, os.Args[1:])
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err = run(ctx, f)
	stop()
	if err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
