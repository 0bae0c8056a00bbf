// Copyright 2024 The AluVM Authors
// This file is part of the AluVM library.
//
// The AluVM library is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// The AluVM library is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with the AluVM library. If not, see <http://www.gnu.org/licenses/>.

// Package vm implements the outer execution driver: it resolves libraries
// by id, hands control to a library's inner dispatch loop, and interprets
// the result to decide the next site, the next library, or termination.
package vm

import (
	"github.com/AluVM/aluvm/internal/colorlog"
	"github.com/AluVM/aluvm/pkg/core"
	"github.com/AluVM/aluvm/pkg/isa"
	"github.com/AluVM/aluvm/pkg/lib"
)

// Resolver looks up a library by its content-addressed identifier. A
// resolver is free to back this with an in-memory map, an LRU-cached
// store, or any other read-only source; the VM never mutates what it
// returns.
type Resolver func(id core.LibId) (*lib.Lib, bool)

// Vm owns a single Core exclusively and drives execution across library
// boundaries. It is strictly single-threaded: Exec must not be called
// concurrently with itself or with any other method on the same Vm.
type Vm struct {
	core   *core.Core
	decode lib.Decoder
	log    *colorlog.Logger
}

// New constructs a Vm around a fresh Core built from cfg and ext, decoding
// instructions with decode. The Vm logs nothing until SetLogger is called.
func New(cfg core.Config, ext core.CoreExt, decode lib.Decoder) *Vm {
	return &Vm{core: core.New(cfg, ext), decode: decode}
}

// SetLogger attaches a logger the driver reports resolver misses and
// complexity-limit breaches to, at Warn. Instruction-level tracing never
// happens here or in Lib.Exec's hot dispatch path; only the outer driver
// logs, and only at the coarse granularity of a library switch.
func (v *Vm) SetLogger(log *colorlog.Logger) { v.log = log }

// Core returns the Vm's underlying control-register state, for inspection
// between runs (e.g. reading CF or the call stack after Exec returns).
func (v *Vm) Core() *core.Core { return v.core }

// Exec runs the program starting at entry, resolving external libraries
// through resolver, until termination. It returns the final value of CK.
//
// Loop: resolve the current site's library; if unresolved, fail CK and
// either exit (if CH demands it) or advance the offset by one byte and
// retry resolution — a deliberately preserved quirk of skipping over an
// unresolved reference one byte at a time rather than treating it as
// immediately fatal. Otherwise hand control to the library's inner loop
// and interpret its StepResult: Halt ends the run, Instr/Next update the
// current site and the charge-skip flag for the next inner-loop call.
func (v *Vm) Exec(entry core.LibSite, ctx isa.Context, resolver Resolver) core.Status {
	site := entry
	skip := false

	for {
		l, ok := resolver(site.LibId)
		if !ok {
			v.warnf("library not found", "site", site.String())
			if stop := v.core.FailCK(); stop {
				return v.core.CK()
			}
			if site.Offset == 0xFFFF {
				return v.core.CK()
			}
			site.Offset++
			continue
		}

		res := l.Exec(site.LibId, v.core, ctx, site.Offset, skip, v.decode)
		if limit, ok := v.core.CL(); ok && v.core.CA() >= limit {
			v.warnf("complexity limit reached", "ca", v.core.CA(), "cl", limit)
		}
		switch res.Kind {
		case lib.StepHalt:
			return v.core.CK()
		case lib.StepInstr:
			site = res.Site
			skip = false
		case lib.StepNext:
			site = res.Site
			skip = true
		}
	}
}

// warnf logs msg at Warn if a logger is attached; a Vm with no logger set
// stays silent.
func (v *Vm) warnf(msg string, kv ...interface{}) {
	if v.log != nil {
		v.log.Warn(msg, kv...)
	}
}

// Reset zeroes the Vm's Core, preserving CH and CL, and resets the
// extension register bank.
func (v *Vm) Reset() { v.core.Reset() }
