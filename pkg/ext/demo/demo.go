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

// Package demo is a minimal 256-bit extension instruction set, existing
// solely to demonstrate that an ISA beyond the control-flow core can
// plug into the runtime through CoreExt and isa.Instruction without any
// change to pkg/core, pkg/lib, or pkg/vm. It is not a general-purpose
// arithmetic ISA: four opcodes, eight registers, no overflow checking
// beyond wraparound.
package demo

import (
	"github.com/holiman/uint256"

	"github.com/AluVM/aluvm/pkg/bytecode"
	"github.com/AluVM/aluvm/pkg/core"
	"github.com/AluVM/aluvm/pkg/isa"
)

// NumRegs is the fixed register count of the demo bank.
const NumRegs = 8

// Opcode constants. This ISA claims the low end of the 128..=255
// sub-range left to non-control-flow instruction sets.
const (
	OpLdi byte = 128 // LDI dst, imm256   dst <- imm
	OpAdd byte = 129 // ADD dst, src      dst <- dst + src (mod 2^256)
	OpEq  byte = 130 // EQ  a, b          CO <- Ok if a == b else Fail
	OpClr byte = 131 // CLR dst           dst <- unset
)

// Reg returns the Register descriptor for register index i.
func Reg(i int) core.Register {
	return core.Register{Name: regName(i), Bytes: 32}
}

func regName(i int) string {
	const digits = "01234567"
	if i < 0 || i >= NumRegs {
		return "r256[?]"
	}
	return "r256[" + string(digits[i]) + "]"
}

// Bank is the CoreExt implementation backing the demo ISA: NumRegs
// optional 256-bit values.
type Bank struct {
	values [NumRegs]*uint256.Int
}

// NewBank returns a Bank with every register unset.
func NewBank() *Bank { return &Bank{} }

func regIndex(reg core.Register) (int, bool) {
	for i := 0; i < NumRegs; i++ {
		if reg.Name == regName(i) {
			return i, true
		}
	}
	return 0, false
}

// Get implements core.CoreExt.
func (b *Bank) Get(reg core.Register) ([]byte, bool) {
	i, ok := regIndex(reg)
	if !ok || b.values[i] == nil {
		return nil, false
	}
	out := b.values[i].Bytes32()
	return out[:], true
}

// Put implements core.CoreExt. A nil value clears the register.
func (b *Bank) Put(reg core.Register, value []byte) {
	i, ok := regIndex(reg)
	if !ok {
		return
	}
	if value == nil {
		b.values[i] = nil
		return
	}
	var padded [32]byte
	copy(padded[32-len(value):], value)
	b.values[i] = new(uint256.Int).SetBytes(padded[:])
}

// Clr implements core.CoreExt.
func (b *Bank) Clr(reg core.Register) { b.Put(reg, nil) }

// Reset implements core.CoreExt.
func (b *Bank) Reset() {
	for i := range b.values {
		b.values[i] = nil
	}
}

func (b *Bank) get(i int) *uint256.Int {
	if b.values[i] == nil {
		return new(uint256.Int)
	}
	return b.values[i]
}

// regOperand is the shared metadata of instructions carrying one or two
// 1-byte register-index operands.
type regOperand struct {
	dst int
	src int
}

// Ldi loads a 256-bit immediate into Dst.
type Ldi struct {
	Dst int
	Imm uint256.Int
}

func (Ldi) Opcode() byte       { return OpLdi }
func (Ldi) IsGotoTarget() bool { return false }
func (l Ldi) SrcRegs() []core.Register { return nil }
func (l Ldi) DstRegs() []core.Register { return []core.Register{Reg(l.Dst)} }
func (Ldi) OpDataBytes() uint16  { return 33 }
func (Ldi) ExtDataBytes() uint16 { return 0 }
func (l Ldi) Complexity() uint64 {
	return isa.BaseComplexity(33, 0, isa.RegsByteLen(l.DstRegs()), 0)
}
func (Ldi) CodeByteLen() uint16 { return 34 }
func (l Ldi) Encode(w *bytecode.Writer) error {
	if err := w.WriteByte(byte(l.Dst)); err != nil {
		return err
	}
	imm := l.Imm.Bytes32()
	return w.WriteFixed(imm[:])
}
func (l Ldi) Exec(_ core.Site, c *core.Core, ctx isa.Context) isa.ExecStep {
	imm := l.Imm.Bytes32()
	ctx.Ext.Put(Reg(l.Dst), imm[:])
	return isa.Next()
}

// Add computes Dst <- Dst + Src, mod 2^256.
type Add struct{ regOperand }

func (Add) Opcode() byte       { return OpAdd }
func (Add) IsGotoTarget() bool { return false }
func (a Add) SrcRegs() []core.Register { return []core.Register{Reg(a.src)} }
func (a Add) DstRegs() []core.Register { return []core.Register{Reg(a.dst)} }
func (Add) OpDataBytes() uint16  { return 2 }
func (Add) ExtDataBytes() uint16 { return 0 }
func (a Add) Complexity() uint64 {
	return isa.BaseComplexity(2, isa.RegsByteLen(a.SrcRegs()), isa.RegsByteLen(a.DstRegs()), 0)
}
func (Add) CodeByteLen() uint16 { return 3 }
func (a Add) Encode(w *bytecode.Writer) error {
	if err := w.WriteByte(byte(a.dst)); err != nil {
		return err
	}
	return w.WriteByte(byte(a.src))
}
func (a Add) Exec(_ core.Site, c *core.Core, ctx isa.Context) isa.ExecStep {
	bank, ok := ctx.Ext.(*Bank)
	if !ok {
		return isa.Fail()
	}
	sum := new(uint256.Int).Add(bank.get(a.dst), bank.get(a.src))
	out := sum.Bytes32()
	bank.Put(Reg(a.dst), out[:])
	return isa.Next()
}

// Eq sets CO to Ok if the two registers hold equal values, Fail otherwise.
type Eq struct{ regOperand }

func (Eq) Opcode() byte       { return OpEq }
func (Eq) IsGotoTarget() bool { return false }
func (e Eq) SrcRegs() []core.Register { return []core.Register{Reg(e.dst), Reg(e.src)} }
func (Eq) DstRegs() []core.Register   { return nil }
func (Eq) OpDataBytes() uint16  { return 2 }
func (Eq) ExtDataBytes() uint16 { return 0 }
func (e Eq) Complexity() uint64 {
	return isa.BaseComplexity(2, isa.RegsByteLen(e.SrcRegs()), 0, 0)
}
func (Eq) CodeByteLen() uint16 { return 3 }
func (e Eq) Encode(w *bytecode.Writer) error {
	if err := w.WriteByte(byte(e.dst)); err != nil {
		return err
	}
	return w.WriteByte(byte(e.src))
}
func (e Eq) Exec(_ core.Site, c *core.Core, ctx isa.Context) isa.ExecStep {
	bank, ok := ctx.Ext.(*Bank)
	if !ok {
		return isa.Fail()
	}
	if bank.get(e.dst).Eq(bank.get(e.src)) {
		c.SetCO(core.StatusOk)
	} else {
		c.SetCO(core.StatusFail)
	}
	return isa.Next()
}

// Clr clears Dst back to unset.
type Clr struct{ Dst int }

func (Clr) Opcode() byte       { return OpClr }
func (Clr) IsGotoTarget() bool { return false }
func (c Clr) SrcRegs() []core.Register { return nil }
func (c Clr) DstRegs() []core.Register { return []core.Register{Reg(c.Dst)} }
func (Clr) OpDataBytes() uint16  { return 1 }
func (Clr) ExtDataBytes() uint16 { return 0 }
func (c Clr) Complexity() uint64 {
	return isa.BaseComplexity(1, 0, isa.RegsByteLen(c.DstRegs()), 0)
}
func (Clr) CodeByteLen() uint16 { return 2 }
func (c Clr) Encode(w *bytecode.Writer) error { return w.WriteByte(byte(c.Dst)) }
func (c Clr) Exec(_ core.Site, _ *core.Core, ctx isa.Context) isa.ExecStep {
	ctx.Ext.Clr(Reg(c.Dst))
	return isa.Next()
}

// Decode decodes one demo-ISA instruction given its opcode byte, for use
// as (or composed into) a pkg/lib.Decoder.
func Decode(opcode byte, r *bytecode.Reader) (isa.Instruction, error) {
	switch opcode {
	case OpLdi:
		dst, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		raw, err := r.ReadFixed(32)
		if err != nil {
			return nil, err
		}
		var imm uint256.Int
		imm.SetBytes(raw)
		return Ldi{Dst: int(dst), Imm: imm}, nil
	case OpAdd:
		dst, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		src, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return Add{regOperand{dst: int(dst), src: int(src)}}, nil
	case OpEq:
		a, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return Eq{regOperand{dst: int(a), src: int(b)}}, nil
	case OpClr:
		dst, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return Clr{Dst: int(dst)}, nil
	default:
		return nil, nil
	}
}
