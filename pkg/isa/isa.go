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

// Package isa defines the contract any instruction set implements to plug
// into the runtime: the Instruction interface, the execution context
// passed to it, and the ExecStep verdict it returns.
package isa

import (
	"fmt"

	"github.com/AluVM/aluvm/pkg/bytecode"
	"github.com/AluVM/aluvm/pkg/core"
)

// Context is the environment available to an instruction's Exec, beyond
// the Core it mutates directly. It carries the extension register bank,
// which extension instructions read and write; it carries nothing
// executing code can use to allocate, perform I/O, or otherwise escape the
// deterministic model.
type Context struct {
	// Ext is the extension register bank belonging to the library's
	// declared ISA, already resolved by the caller.
	Ext core.CoreExt
}

// StepKind discriminates the variant held by an ExecStep.
type StepKind int

const (
	// StepNext advances by the encoded length of the executed instruction.
	StepNext StepKind = iota
	// StepJump sets the offset within the current library.
	StepJump
	// StepCall switches the current library and offset.
	StepCall
	// StepRet is like StepCall but represents a stack-popped restoration.
	StepRet
	// StepStop terminates execution normally.
	StepStop
	// StepFail sets CK to Fail; the runtime decides whether to continue
	// based on CH.
	StepFail
)

// String renders the step kind's mnemonic, used in logging and test
// failure messages.
func (k StepKind) String() string {
	switch k {
	case StepNext:
		return "Next"
	case StepJump:
		return "Jump"
	case StepCall:
		return "Call"
	case StepRet:
		return "Ret"
	case StepStop:
		return "Stop"
	case StepFail:
		return "Fail"
	default:
		return fmt.Sprintf("StepKind(%d)", int(k))
	}
}

// ExecStep is the verdict an instruction's Exec returns. Exactly one of
// Pos (for StepJump) or Site (for StepCall/StepRet) is meaningful,
// depending on Kind.
type ExecStep struct {
	Kind StepKind
	Pos  uint16
	Site core.Site
}

// Next builds the "advance past this instruction" verdict.
func Next() ExecStep { return ExecStep{Kind: StepNext} }

// Jump builds the "set offset within the current library" verdict.
func Jump(pos uint16) ExecStep { return ExecStep{Kind: StepJump, Pos: pos} }

// Call builds the "switch library and offset" verdict.
func Call(site core.Site) ExecStep { return ExecStep{Kind: StepCall, Site: site} }

// Ret builds the "restore a popped call-stack site" verdict.
func Ret(site core.Site) ExecStep { return ExecStep{Kind: StepRet, Site: site} }

// Stop builds the "terminate normally" verdict.
func Stop() ExecStep { return ExecStep{Kind: StepStop} }

// Fail builds the "set CK to Fail" verdict.
func Fail() ExecStep { return ExecStep{Kind: StepFail} }

// Instruction is the contract every opcode in every ISA implements so the
// runtime can dispatch, account for, and marshal it without knowing its
// concrete type.
type Instruction interface {
	// Opcode returns the instruction's single-byte opcode.
	Opcode() byte

	// IsGotoTarget reports whether this instruction is marked as a jump
	// target (true only for Nop in the control-flow ISA). The runtime does
	// not check it: a jump may land on any instruction.
	IsGotoTarget() bool

	// SrcRegs and DstRegs list the extension registers this instruction
	// reads from and writes to, for disassembly and complexity accounting.
	// Control-flow instructions return nil for both.
	SrcRegs() []core.Register
	DstRegs() []core.Register

	// OpDataBytes counts the operand bytes this instruction occupies in
	// the code segment, excluding the opcode byte itself.
	OpDataBytes() uint16

	// ExtDataBytes counts the bytes of any externally referenced data
	// (e.g. a full LibId behind a 1-byte wire-format index) folded into
	// complexity accounting but not written to the code segment.
	ExtDataBytes() uint16

	// Complexity returns the CA charge this instruction incurs, charged
	// before Exec runs.
	Complexity() uint64

	// CodeByteLen returns the total on-wire length including the opcode
	// byte; it must equal 1 + OpDataBytes() for every well-formed opcode.
	CodeByteLen() uint16

	// Encode writes the instruction's operand bytes (not the opcode byte,
	// which the caller already wrote) to w.
	Encode(w *bytecode.Writer) error

	// Exec runs the instruction against core and ctx, given the Site of
	// the instruction itself (needed for relative jumps and FN's
	// current-site push), and returns the runtime's next action.
	Exec(site core.Site, c *core.Core, ctx Context) ExecStep
}

// BaseComplexity computes the standard charge formula shared by every ISA:
// (opDataBytes + srcBytes + dstBytes + 2*extDataBytes) * 8 * 1000.
func BaseComplexity(opDataBytes, srcBytes, dstBytes, extDataBytes uint64) uint64 {
	return (opDataBytes + srcBytes + dstBytes + 2*extDataBytes) * 8 * 1000
}

// RegsByteLen sums the byte widths of a register list, used by ISAs when
// computing srcBytes/dstBytes for BaseComplexity.
func RegsByteLen(regs []core.Register) uint64 {
	var total uint64
	for _, r := range regs {
		total += uint64(r.Bytes)
	}
	return total
}
