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

// Package detection finds serial ports that can carry the servo bus or
// the host link.
package detection

import (
	"fmt"
	"sort"

	"go.bug.st/serial/enumerator"
)

// Port describes a serial port found on this machine.
type Port struct {
	Name         string
	VIDPID       string
	Product      string
	SerialNumber string
	Adapter      string
	USB          bool
}

func (p Port) String() string {
	if !p.USB {
		return p.Name
	}
	desc := p.Product
	if p.Adapter != "" {
		desc = p.Adapter
	}
	if desc == "" {
		return fmt.Sprintf("%s [%s]", p.Name, p.VIDPID)
	}
	return fmt.Sprintf("%s [%s] %s", p.Name, p.VIDPID, desc)
}

// Options controls which ports ListPorts returns.
type Options struct {
	Blocklist   []string
	IgnorePaths []string
	USBOnly     bool
}

// DefaultOptions returns options with the default blocklist applied.
func DefaultOptions() Options {
	return Options{Blocklist: DefaultBlocklist()}
}

// knownAdapters maps USB IDs to the DYNAMIXEL interfaces they belong to.
var knownAdapters = map[string]string{
	"0403:6014": "ROBOTIS U2D2",
	"FFF1:FF48": "ROBOTIS OpenCM9.04",
}

// ListPorts enumerates serial ports and filters them through opts.
func ListPorts(opts Options) ([]Port, error) {
	details, err := enumerator.GetDetailedPortsList()
	if err != nil {
		return nil, fmt.Errorf("enumerate serial ports: %w", err)
	}
	return filterPorts(details, opts), nil
}

func filterPorts(details []*enumerator.PortDetails, opts Options) []Port {
	ports := make([]Port, 0, len(details))
	for _, d := range details {
		if d == nil || d.Name == "" {
			continue
		}
		if IsPathIgnored(d.Name, opts.IgnorePaths) {
			continue
		}
		if opts.USBOnly && !d.IsUSB {
			continue
		}
		p := Port{Name: d.Name, USB: d.IsUSB}
		if d.IsUSB {
			p.VIDPID = FormatVIDPID(d.VID, d.PID)
			if IsBlocked(p.VIDPID, opts.Blocklist) {
				continue
			}
			p.Product = d.Product
			p.SerialNumber = d.SerialNumber
			p.Adapter = knownAdapters[p.VIDPID]
		}
		ports = append(ports, p)
	}
	sort.SliceStable(ports, func(i, j int) bool {
		// Recognised servo adapters sort first.
		ai, aj := ports[i].Adapter != "", ports[j].Adapter != ""
		if ai != aj {
			return ai
		}
		return ports[i].Name < ports[j].Name
	})
	return ports
}
