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

// Package ctrl implements the control-flow instruction set: opcodes 0
// through 16, with 17 through 127 reserved (always-failing) and 128
// through 255 left to other instruction sets.
package ctrl

import (
	"math"

	"github.com/AluVM/aluvm/pkg/bytecode"
	"github.com/AluVM/aluvm/pkg/core"
	"github.com/AluVM/aluvm/pkg/isa"
)

// Opcode constants for the defined control-flow instructions.
const (
	OpNop    byte = 0
	OpNoCo   byte = 1
	OpChCo   byte = 2
	OpChCk   byte = 3
	OpFail   byte = 4
	OpRset   byte = 5
	OpJmp    byte = 6
	OpJine   byte = 7
	OpJiFail byte = 8
	OpSh     byte = 9
	OpShNe   byte = 10
	OpShFail byte = 11
	OpExec   byte = 12
	OpFn     byte = 13
	OpCall   byte = 14
	OpRet    byte = 15
	OpStop   byte = 16
)

// ReservedLow and ReservedHigh bound the reserved opcode sub-range that
// always decodes to ReservedInstr and always fails at execution.
const (
	ReservedLow  byte = 17
	ReservedHigh byte = 127
)

// extDataBytesLibId is the byte width folded into complexity accounting for
// an externally referenced LibId behind a 1-byte wire-format index.
const extDataBytesLibId = 32

var _ isa.Instruction = Nop{}
var _ isa.Instruction = NoCo{}
var _ isa.Instruction = ChCo{}
var _ isa.Instruction = ChCk{}
var _ isa.Instruction = Fail{}
var _ isa.Instruction = Rset{}
var _ isa.Instruction = Jmp{}
var _ isa.Instruction = Jine{}
var _ isa.Instruction = JiFail{}
var _ isa.Instruction = Sh{}
var _ isa.Instruction = ShNe{}
var _ isa.Instruction = ShFail{}
var _ isa.Instruction = Exec{}
var _ isa.Instruction = Fn{}
var _ isa.Instruction = Call{}
var _ isa.Instruction = Ret{}
var _ isa.Instruction = Stop{}
var _ isa.Instruction = ReservedInstr{}

// noRegs implements the empty SrcRegs/DstRegs shared by every control-flow
// instruction: none of them touch an extension register bank.
type noRegs struct{}

func (noRegs) SrcRegs() []core.Register { return nil }
func (noRegs) DstRegs() []core.Register { return nil }

// simple implements the metadata shared by every zero-operand instruction.
type simple struct{ noRegs }

func (simple) OpDataBytes() uint16   { return 0 }
func (simple) ExtDataBytes() uint16  { return 0 }
func (simple) Complexity() uint64    { return isa.BaseComplexity(0, 0, 0, 0) }
func (simple) CodeByteLen() uint16   { return 1 }
func (simple) Encode(*bytecode.Writer) error { return nil }

// Nop has no effect; it is the only control-flow instruction that reports
// itself as a goto target.
type Nop struct{ simple }

func (Nop) Opcode() byte       { return OpNop }
func (Nop) IsGotoTarget() bool { return true }
func (Nop) Exec(core.Site, *core.Core, isa.Context) isa.ExecStep { return isa.Next() }

// NoCo inverts CO.
type NoCo struct{ simple }

func (NoCo) Opcode() byte       { return OpNoCo }
func (NoCo) IsGotoTarget() bool { return false }
func (NoCo) Exec(_ core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	c.InvertCO()
	return isa.Next()
}

// ChCo fails the step if CO is Fail, otherwise advances.
type ChCo struct{ simple }

func (ChCo) Opcode() byte       { return OpChCo }
func (ChCo) IsGotoTarget() bool { return false }
func (ChCo) Exec(_ core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if c.CO().IsFail() {
		return isa.Fail()
	}
	return isa.Next()
}

// ChCk stops execution if CK is Fail, otherwise advances.
type ChCk struct{ simple }

func (ChCk) Opcode() byte       { return OpChCk }
func (ChCk) IsGotoTarget() bool { return false }
func (ChCk) Exec(_ core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if c.CK().IsFail() {
		return isa.Stop()
	}
	return isa.Next()
}

// Fail sets CK to Fail unconditionally. Whether that stops the program is
// decided by the runtime's halt-on-failure policy, not by this opcode.
type Fail struct{ simple }

func (Fail) Opcode() byte       { return OpFail }
func (Fail) IsGotoTarget() bool { return false }
func (Fail) Exec(core.Site, *core.Core, isa.Context) isa.ExecStep { return isa.Fail() }

// Rset sets CO to the current value of CK, then resets CK to Ok.
type Rset struct{ simple }

func (Rset) Opcode() byte       { return OpRset }
func (Rset) IsGotoTarget() bool { return false }
func (Rset) Exec(_ core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	c.SetCO(c.CK())
	c.ResetCK()
	return isa.Next()
}

// Stop terminates execution normally.
type Stop struct{ simple }

func (Stop) Opcode() byte       { return OpStop }
func (Stop) IsGotoTarget() bool { return false }
func (Stop) Exec(core.Site, *core.Core, isa.Context) isa.ExecStep { return isa.Stop() }

// Ret pops the call stack and resumes there, charging CY like any other
// taken jump; popping an empty stack terminates the program normally
// rather than failing, mirroring "return from the outermost function ends
// the program."
type Ret struct{ simple }

func (Ret) Opcode() byte       { return OpRet }
func (Ret) IsGotoTarget() bool { return false }
func (Ret) Exec(_ core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	site, ok := c.PopCS()
	if !ok {
		return isa.Stop()
	}
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Ret(site)
}

// posJump implements the shared metadata of the three absolute-position
// conditional/unconditional jumps (Jmp, Jine, JiFail) and Fn, all of which
// carry a single u16 LE operand.
type posJump struct {
	noRegs
	Pos uint16
}

func (posJump) OpDataBytes() uint16  { return 2 }
func (posJump) ExtDataBytes() uint16 { return 0 }
func (p posJump) Complexity() uint64 { return isa.BaseComplexity(2, 0, 0, 0) }
func (posJump) CodeByteLen() uint16  { return 3 }
func (p posJump) Encode(w *bytecode.Writer) error { return w.WriteWord(p.Pos) }

// Jmp jumps unconditionally to Pos.
type Jmp struct{ posJump }

func (Jmp) Opcode() byte       { return OpJmp }
func (Jmp) IsGotoTarget() bool { return false }
func (j Jmp) Exec(_ core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Jump(j.Pos)
}

// Jine jumps to Pos if CO is Fail, otherwise advances.
type Jine struct{ posJump }

func (Jine) Opcode() byte       { return OpJine }
func (Jine) IsGotoTarget() bool { return false }
func (j Jine) Exec(_ core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if c.CO().IsOk() {
		return isa.Next()
	}
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Jump(j.Pos)
}

// JiFail jumps to Pos if CK is Fail, otherwise advances.
type JiFail struct{ posJump }

func (JiFail) Opcode() byte       { return OpJiFail }
func (JiFail) IsGotoTarget() bool { return false }
func (j JiFail) Exec(_ core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if c.CK().IsOk() {
		return isa.Next()
	}
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Jump(j.Pos)
}

// Fn pushes the current site (the address of the FN instruction itself)
// onto the call stack, then jumps unconditionally to Pos. A subsequent RET
// therefore resumes execution at this FN, not after it.
type Fn struct{ posJump }

func (Fn) Opcode() byte       { return OpFn }
func (Fn) IsGotoTarget() bool { return false }
func (f Fn) Exec(site core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if !c.PushCS(site) {
		return isa.Fail()
	}
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Jump(f.Pos)
}

// shiftJump implements the shared metadata of the three relative jumps
// (Sh, ShNe, ShFail), all of which carry a single signed-byte operand
// interpreted relative to the current instruction's own offset.
type shiftJump struct {
	noRegs
	Shift int8
}

func (shiftJump) OpDataBytes() uint16  { return 1 }
func (shiftJump) ExtDataBytes() uint16 { return 0 }
func (shiftJump) Complexity() uint64   { return isa.BaseComplexity(1, 0, 0, 0) }
func (shiftJump) CodeByteLen() uint16  { return 2 }
func (s shiftJump) Encode(w *bytecode.Writer) error { return w.WriteByte(byte(s.Shift)) }

// target computes the absolute jump offset of a relative shift from site,
// reporting false if it would fall outside the u16 offset range.
func (s shiftJump) target(site core.Site) (uint16, bool) {
	abs := int32(site.Offset) + int32(s.Shift)
	if abs < 0 || abs > math.MaxUint16 {
		return 0, false
	}
	return uint16(abs), true
}

// Sh jumps unconditionally by Shift bytes relative to its own offset.
type Sh struct{ shiftJump }

func (Sh) Opcode() byte       { return OpSh }
func (Sh) IsGotoTarget() bool { return false }
func (s Sh) Exec(site core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	pos, ok := s.target(site)
	if !ok {
		return isa.Fail()
	}
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Jump(pos)
}

// ShNe shifts by Shift bytes if CO is Fail, otherwise advances.
type ShNe struct{ shiftJump }

func (ShNe) Opcode() byte       { return OpShNe }
func (ShNe) IsGotoTarget() bool { return false }
func (s ShNe) Exec(site core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if c.CO().IsOk() {
		return isa.Next()
	}
	pos, ok := s.target(site)
	if !ok {
		return isa.Fail()
	}
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Jump(pos)
}

// ShFail shifts by Shift bytes if CK is Fail, otherwise advances.
type ShFail struct{ shiftJump }

func (ShFail) Opcode() byte       { return OpShFail }
func (ShFail) IsGotoTarget() bool { return false }
func (s ShFail) Exec(site core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if c.CK().IsOk() {
		return isa.Next()
	}
	pos, ok := s.target(site)
	if !ok {
		return isa.Fail()
	}
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Jump(pos)
}

// remoteJump implements the shared metadata of Exec and Call, both of which
// carry a 1-byte library-reference index and a u16 LE offset within that
// library. LibId is resolved at decode time from the reader's libs segment.
type remoteJump struct {
	noRegs
	Site core.Site
}

func (remoteJump) OpDataBytes() uint16  { return 3 }
func (remoteJump) ExtDataBytes() uint16 { return extDataBytesLibId }
func (remoteJump) Complexity() uint64 {
	return isa.BaseComplexity(3, 0, 0, extDataBytesLibId)
}
func (remoteJump) CodeByteLen() uint16 { return 4 }
func (r remoteJump) Encode(w *bytecode.Writer) error {
	if err := w.WriteRef(r.Site.LibId); err != nil {
		return err
	}
	return w.WriteWord(r.Site.Offset)
}

// Exec performs an absolute external jump without pushing a call frame.
type Exec struct{ remoteJump }

func (Exec) Opcode() byte       { return OpExec }
func (Exec) IsGotoTarget() bool { return false }
func (e Exec) Exec(_ core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Call(e.Site)
}

// Call performs an absolute external jump, pushing the current site as a
// return frame first.
type Call struct{ remoteJump }

func (Call) Opcode() byte       { return OpCall }
func (Call) IsGotoTarget() bool { return false }
func (call Call) Exec(site core.Site, c *core.Core, _ isa.Context) isa.ExecStep {
	if !c.PushCS(site) {
		return isa.Fail()
	}
	if !c.IncrementCY() {
		return isa.Fail()
	}
	return isa.Call(call.Site)
}

// ReservedInstr represents an opcode in the reserved sub-range 17..=127.
// It decodes cleanly (consuming no operand bytes) but always fails at
// execution with the maximum possible complexity charge, so that any
// attempt to run one saturates CA immediately.
type ReservedInstr struct {
	noRegs
	Opc byte
}

func (r ReservedInstr) Opcode() byte       { return r.Opc }
func (ReservedInstr) IsGotoTarget() bool   { return false }
func (ReservedInstr) OpDataBytes() uint16  { return 0 }
func (ReservedInstr) ExtDataBytes() uint16 { return 0 }
func (ReservedInstr) Complexity() uint64   { return math.MaxUint64 }
func (ReservedInstr) CodeByteLen() uint16  { return 1 }
func (ReservedInstr) Encode(*bytecode.Writer) error { return nil }
func (ReservedInstr) Exec(core.Site, *core.Core, isa.Context) isa.ExecStep {
	return isa.Fail()
}

// Decode reads one control-flow instruction's operands from r, given the
// already-consumed opcode byte. Opcodes 17..=127 decode to ReservedInstr;
// opcodes 128..=255 are out of this ISA's range and are the caller's
// responsibility to dispatch elsewhere.
func Decode(opcode byte, r *bytecode.Reader) (isa.Instruction, error) {
	switch opcode {
	case OpNop:
		return Nop{}, nil
	case OpNoCo:
		return NoCo{}, nil
	case OpChCo:
		return ChCo{}, nil
	case OpChCk:
		return ChCk{}, nil
	case OpFail:
		return Fail{}, nil
	case OpRset:
		return Rset{}, nil
	case OpJmp:
		pos, err := r.ReadWord()
		if err != nil {
			return nil, err
		}
		return Jmp{posJump{Pos: pos}}, nil
	case OpJine:
		pos, err := r.ReadWord()
		if err != nil {
			return nil, err
		}
		return Jine{posJump{Pos: pos}}, nil
	case OpJiFail:
		pos, err := r.ReadWord()
		if err != nil {
			return nil, err
		}
		return JiFail{posJump{Pos: pos}}, nil
	case OpSh:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return Sh{shiftJump{Shift: int8(b)}}, nil
	case OpShNe:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return ShNe{shiftJump{Shift: int8(b)}}, nil
	case OpShFail:
		b, err := r.ReadByte()
		if err != nil {
			return nil, err
		}
		return ShFail{shiftJump{Shift: int8(b)}}, nil
	case OpExec:
		site, err := decodeRemoteSite(r)
		if err != nil {
			return nil, err
		}
		return Exec{remoteJump{Site: site}}, nil
	case OpFn:
		pos, err := r.ReadWord()
		if err != nil {
			return nil, err
		}
		return Fn{posJump{Pos: pos}}, nil
	case OpCall:
		site, err := decodeRemoteSite(r)
		if err != nil {
			return nil, err
		}
		return Call{remoteJump{Site: site}}, nil
	case OpRet:
		return Ret{}, nil
	case OpStop:
		return Stop{}, nil
	default:
		if opcode >= ReservedLow && opcode <= ReservedHigh {
			return ReservedInstr{Opc: opcode}, nil
		}
		return nil, nil
	}
}

func decodeRemoteSite(r *bytecode.Reader) (core.Site, error) {
	libID, err := r.ReadRef()
	if err != nil {
		return core.Site{}, err
	}
	off, err := r.ReadWord()
	if err != nil {
		return core.Site{}, err
	}
	return core.NewSite(libID, off), nil
}
