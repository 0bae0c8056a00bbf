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

package core

import "math"

// CallStackSize is the compile-time bound on the call stack's depth.
const CallStackSize = 0x100

// MaxCycles is CY's hard cap. The (MaxCycles+1)-th taken jump fails CK.
const MaxCycles uint16 = 0xFFFF

// Config carries the construction-time parameters of a Core: CH (the
// halt-on-failure latch) and CL (the complexity limit), both of which
// survive Reset.
type Config struct {
	// Halt is CH: when true, the first Ok→Fail transition of CK terminates
	// the program.
	Halt bool
	// ComplexityLimit is CL. A nil pointer means unset (no limit).
	ComplexityLimit *uint64
}

// Core holds the control registers and call stack shared by every ISA:
// CH, CK, CF, CO, CY, CA, CL, and CS. It is distinct from the pluggable
// per-ISA register bank (CoreExt), which Core holds only to forward Reset.
type Core struct {
	ext CoreExt

	ch Status // halt-on-failure latch; set once at construction
	ck Status // check register
	cf uint64 // failure counter, monotonically increasing
	co Status // overflow/carry/test register
	cy uint16 // cycle counter
	ca uint64 // complexity accumulator
	cl *uint64 // complexity limit, nil if unset

	cs []Site // call stack, len(cs) <= CallStackSize
}

// New constructs a Core from its configuration and an extension register
// bank. Passing NopExt{} is valid for pure control-flow programs.
func New(cfg Config, ext CoreExt) *Core {
	if ext == nil {
		ext = NopExt{}
	}
	return &Core{
		ext: ext,
		ch:  Status(cfg.Halt),
		cl:  cfg.ComplexityLimit,
		cs:  make([]Site, 0, CallStackSize),
	}
}

// Ext returns the extension register bank backing this Core.
func (c *Core) Ext() CoreExt { return c.ext }

// CH reports the halt-on-failure latch.
func (c *Core) CH() bool { return bool(c.ch) }

// CK returns the check register.
func (c *Core) CK() Status { return c.ck }

// CF returns the failure counter.
func (c *Core) CF() uint64 { return c.cf }

// CO returns the overflow/test register.
func (c *Core) CO() Status { return c.co }

// CY returns the cycle counter.
func (c *Core) CY() uint16 { return c.cy }

// CA returns the complexity accumulator.
func (c *Core) CA() uint64 { return c.ca }

// CL returns the complexity limit and whether one is set.
func (c *Core) CL() (uint64, bool) {
	if c.cl == nil {
		return 0, false
	}
	return *c.cl, true
}

// CP returns the call stack depth (the implicit "top of stack" index).
func (c *Core) CP() int { return len(c.cs) }

// SetCO sets the overflow/test register, used by instructions that compare
// or test a value (e.g. an arithmetic ISA's comparison opcodes).
func (c *Core) SetCO(s Status) { c.co = s }

// InvertCO negates CO in place, the effect of the NOCO opcode.
func (c *Core) InvertCO() { c.co = c.co.Not() }

// ResetCK sets CK back to StatusOk without touching CF, the effect of the
// RSET opcode's "CK ← Ok" half.
func (c *Core) ResetCK() { c.ck = StatusOk }

// FailCK sets CK to StatusFail and increments CF. It returns true when the
// caller must stop the program: CH is set and this call observed the first
// Ok→Fail transition. Every runtime failure funnels through FailCK — none
// of them surface as a distinct out-of-band error.
func (c *Core) FailCK() bool {
	wasOk := c.ck == StatusOk
	c.ck = StatusFail
	c.cf++
	return bool(c.ch) && wasOk
}

// ChargeComplexity adds n to CA, saturating at math.MaxUint64, and reports
// whether the accumulator has now reached or passed CL (if one is set).
// It does not itself mutate CK; callers observing a breach must route it
// through FailCK so every CK transition is accounted for uniformly.
func (c *Core) ChargeComplexity(n uint64) (breached bool) {
	if math.MaxUint64-c.ca < n {
		c.ca = math.MaxUint64
	} else {
		c.ca += n
	}
	limit, ok := c.CL()
	return ok && c.ca >= limit
}

// IncrementCY accounts for one taken jump. It reports false (the jump must
// not be taken) once CY has already reached MaxCycles; otherwise it
// increments CY and reports true. CY accounts for every taken jump — JMP,
// SH, JINE/SHNE, JIFAIL/SHFAIL, FN, CALL, EXEC, and RET alike.
func (c *Core) IncrementCY() bool {
	if c.cy >= MaxCycles {
		return false
	}
	c.cy++
	return true
}

// PushCS pushes site onto the call stack, returning false if the stack is
// already at CallStackSize (the caller must then treat this as a failure).
func (c *Core) PushCS(site Site) bool {
	if len(c.cs) >= CallStackSize {
		return false
	}
	c.cs = append(c.cs, site)
	return true
}

// PopCS pops and returns the top of the call stack, or ok=false if empty.
func (c *Core) PopCS() (Site, bool) {
	if len(c.cs) == 0 {
		return Site{}, false
	}
	top := c.cs[len(c.cs)-1]
	c.cs = c.cs[:len(c.cs)-1]
	return top, true
}

// CallStack returns a read-only snapshot of the call stack, bottom first.
func (c *Core) CallStack() []Site {
	out := make([]Site, len(c.cs))
	copy(out, c.cs)
	return out
}

// Reset clears every register except CH and CL (which are construction-time
// configuration, not runtime-mutated state), and resets the extension
// register bank via its own Reset.
func (c *Core) Reset() {
	c.ck = StatusOk
	c.cf = 0
	c.co = StatusOk
	c.cy = 0
	c.ca = 0
	c.cs = c.cs[:0]
	c.ext.Reset()
}
