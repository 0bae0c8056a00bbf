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

import "fmt"

// Register names a single register in an extension register bank and
// fixes its byte width. The core never inspects register contents; Register
// exists so ISAs can describe their banks for disassembly and for the
// Instruction contract's SrcRegs/DstRegs metadata.
type Register struct {
	// Name is the register's mnemonic, e.g. "a8[0]" for an 8-bit general
	// register or "r256[3]" for a 256-bit one. Display-only.
	Name string
	// Bytes is the fixed byte width of the register's value.
	Bytes uint16
}

// String renders the register's mnemonic name.
func (r Register) String() string { return r.Name }

// CoreExt is the opaque, per-ISA register bank. The runtime (Core) never
// interprets the bytes it holds; it only calls Reset on VM reset, after
// preserving CH and CL. Every ISA extension implements CoreExt over
// whatever value representation suits it.
type CoreExt interface {
	// Get returns the raw byte value currently held in reg, or ok=false if
	// the register is unset.
	Get(reg Register) (value []byte, ok bool)
	// Put stores value into reg, or clears it if value is nil.
	Put(reg Register, value []byte)
	// Clr clears reg, equivalent to Put(reg, nil).
	Clr(reg Register)
	// Reset clears every register in the bank.
	Reset()
}

// NopExt is the zero-register CoreExt used when a library declares no ISA
// extension register bank (pure control-flow programs). All operations are
// no-ops; Get always reports ok=false.
type NopExt struct{}

// Get always reports the register as unset.
func (NopExt) Get(Register) ([]byte, bool) { return nil, false }

// Put discards value; NopExt has no registers to hold it in.
func (NopExt) Put(Register, []byte) {}

// Clr is a no-op.
func (NopExt) Clr(Register) {}

// Reset is a no-op.
func (NopExt) Reset() {}

// ErrUnknownRegister builds the error a CoreExt implementation should
// return (via a panic-free path, e.g. from a validating wrapper) when asked
// to operate on a Register outside its bank.
func ErrUnknownRegister(reg Register) error {
	return fmt.Errorf("core: unknown register %q", reg.Name)
}
