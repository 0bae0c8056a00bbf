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

// Package lib implements the immutable library bundle (code, data, and
// external-reference segments plus its declared ISA), the assembler that
// builds one from a sequence of instructions, and the inner execution loop
// that runs within a single library's code segment.
package lib

import (
	"errors"

	"github.com/AluVM/aluvm/pkg/bytecode"
	"github.com/AluVM/aluvm/pkg/core"
	"github.com/AluVM/aluvm/pkg/isa"
)

// ErrTruncated is returned by Disassemble when the code segment ends in the
// middle of an instruction's operand bytes.
var ErrTruncated = errors.New("lib: code segment ends mid-instruction")

// Decoder decodes one instruction's operands from r given its already
// consumed opcode byte. Implementations dispatch by opcode sub-range; a nil
// Instruction with a nil error signals an opcode outside any ISA this
// decoder knows about.
type Decoder func(opcode byte, r *bytecode.Reader) (isa.Instruction, error)

// ErrUnknownOpcode is returned when a Decoder recognizes no ISA owning the
// given opcode.
var ErrUnknownOpcode = errors.New("lib: opcode not owned by any known ISA")

// Lib is an immutable bundle of a declared ISA, its declared extensions,
// the external libraries it references, and its code and data segments.
// Values are never mutated after construction; Assemble and the zero value
// plus direct field assignment are the only ways to build one.
type Lib struct {
	Isa  core.IsaId
	Isae []core.IsaId
	Libs []core.LibId
	Code []byte
	Data []byte
}

// Id computes the library's content-addressed identifier. It is
// recomputed on every call rather than cached, since Lib is a plain value
// type that may be constructed by field assignment as well as Assemble.
func (l *Lib) Id() core.LibId {
	return core.ComputeLibId(l.Isa, l.Isae, l.Libs, l.Code, l.Data)
}

// Assemble encodes instrs in order into a new Lib declaring isaId as its
// primary ISA and isae as its declared extensions. External library
// references discovered while encoding Call/Exec-style instructions are
// collected into the Libs segment automatically by the underlying writer.
func Assemble(isaId core.IsaId, isae []core.IsaId, instrs []isa.Instruction) (*Lib, error) {
	w := bytecode.NewWriter()
	for _, instr := range instrs {
		if err := w.WriteByte(instr.Opcode()); err != nil {
			return nil, err
		}
		if err := instr.Encode(w); err != nil {
			return nil, err
		}
	}
	return &Lib{
		Isa:  isaId,
		Isae: isae,
		Libs: w.Libs(),
		Code: append([]byte(nil), w.Code()...),
		Data: append([]byte(nil), w.Data()...),
	}, nil
}

// Disassemble decodes every instruction in the code segment in order,
// failing with ErrTruncated if the final instruction's operand bytes run
// past the end of the segment.
func (l *Lib) Disassemble(decode Decoder) ([]isa.Instruction, error) {
	r := bytecode.NewReader(l.Code, l.Data, l.Libs)
	var out []isa.Instruction
	for !r.IsEof() {
		opcode, err := r.ReadByte()
		if err != nil {
			return nil, ErrTruncated
		}
		instr, err := decode(opcode, r)
		if err != nil {
			if errors.Is(err, bytecode.ErrCodeEof) {
				return nil, ErrTruncated
			}
			return nil, err
		}
		if instr == nil {
			return nil, ErrUnknownOpcode
		}
		out = append(out, instr)
	}
	return out, nil
}

// StepKind discriminates the variant returned by Lib.Exec to its caller,
// the VM driver.
type StepKind int

const (
	// StepHalt terminates the outer VM loop; Core's CK holds the final
	// status.
	StepHalt StepKind = iota
	// StepInstr reports a fresh cross-library entry (via Call/Exec): the
	// driver must charge the resumed instruction's complexity normally.
	StepInstr
	// StepNext reports a resumption (via Ret): the driver must skip
	// charging the resumed instruction's complexity, since it was already
	// charged the first time it ran, before the call that is now
	// returning.
	StepNext
)

// StepResult is the outcome of one Lib.Exec invocation.
type StepResult struct {
	Kind StepKind
	Site core.Site
}

// Exec runs the inner dispatch loop starting at offset within this
// library's code segment: decode one instruction, charge its complexity
// (unless skipCharge suppresses the very first charge in this
// invocation), execute it, and interpret the result. Next, Jump, and a
// non-halting Fail all loop internally; Call, Ret, Stop, and a halting
// Fail return to the caller.
func (l *Lib) Exec(selfId core.LibId, c *core.Core, ctx isa.Context, offset uint16, skipCharge bool, decode Decoder) StepResult {
	first := true
	for {
		if int(offset) >= len(l.Code) {
			c.FailCK()
			return StepResult{Kind: StepHalt}
		}

		r := bytecode.NewReader(l.Code, l.Data, l.Libs)
		r.Seek(offset)
		opcode, err := r.ReadByte()
		if err != nil {
			c.FailCK()
			return StepResult{Kind: StepHalt}
		}
		instr, err := decode(opcode, r)
		if err != nil || instr == nil {
			c.FailCK()
			return StepResult{Kind: StepHalt}
		}

		suppressCharge := first && skipCharge
		first = false
		if !suppressCharge {
			if breached := c.ChargeComplexity(instr.Complexity()); breached {
				if stop := c.FailCK(); stop {
					return StepResult{Kind: StepHalt}
				}
				offset += instr.CodeByteLen()
				continue
			}
		}

		site := core.NewSite(selfId, offset)
		step := instr.Exec(site, c, ctx)
		switch step.Kind {
		case isa.StepNext:
			offset += instr.CodeByteLen()
		case isa.StepJump:
			offset = step.Pos
		case isa.StepCall:
			return StepResult{Kind: StepInstr, Site: step.Site}
		case isa.StepRet:
			return StepResult{Kind: StepNext, Site: step.Site}
		case isa.StepStop:
			return StepResult{Kind: StepHalt}
		case isa.StepFail:
			if stop := c.FailCK(); stop {
				return StepResult{Kind: StepHalt}
			}
			offset += instr.CodeByteLen()
		}
	}
}
