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

package ctrl

import (
	"bytes"
	"testing"

	"github.com/AluVM/aluvm/pkg/bytecode"
	"github.com/AluVM/aluvm/pkg/core"
	"github.com/AluVM/aluvm/pkg/isa"
)

func encode(t *testing.T, instr isa.Instruction) []byte {
	t.Helper()
	w := bytecode.NewWriter()
	if err := w.WriteByte(instr.Opcode()); err != nil {
		t.Fatalf("WriteByte(opcode): %v", err)
	}
	if err := instr.Encode(w); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	return w.Code()
}

func TestEncodeLiteralVectors(t *testing.T) {
	tests := []struct {
		name  string
		instr isa.Instruction
		want  []byte
	}{
		{"Nop", Nop{}, []byte{0x00}},
		{"ChCk", ChCk{}, []byte{0x03}},
		{"Jmp", Jmp{posJump{Pos: 0x75AE}}, []byte{0x06, 0xAE, 0x75}},
		{"Sh -5", Sh{shiftJump{Shift: -5}}, []byte{0x09, 0xFB}},
		{"Stop", Stop{}, []byte{0x10}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encode(t, tt.instr)
			if !bytes.Equal(got, tt.want) {
				t.Errorf("encode(%s) = % x, want % x", tt.name, got, tt.want)
			}
			if uint16(len(got)) != tt.instr.CodeByteLen() {
				t.Errorf("CodeByteLen() = %d, want len(encoded) = %d", tt.instr.CodeByteLen(), len(got))
			}
		})
	}
}

func TestEncodeCallWithLibRef(t *testing.T) {
	libID := core.LibId{}
	libID[0] = 0x42

	w := bytecode.NewWriter()
	call := Call{remoteJump{Site: core.NewSite(libID, 0x69AB)}}
	if err := w.WriteByte(call.Opcode()); err != nil {
		t.Fatal(err)
	}
	if err := call.Encode(w); err != nil {
		t.Fatal(err)
	}

	want := []byte{0x0E, 0x00, 0xAB, 0x69}
	if !bytes.Equal(w.Code(), want) {
		t.Errorf("Call encode = % x, want % x", w.Code(), want)
	}
	if len(w.Libs()) != 1 || w.Libs()[0] != libID {
		t.Errorf("libs segment = %v, want single entry %v", w.Libs(), libID)
	}
}

func TestDecodeRoundTrip(t *testing.T) {
	libID := core.LibId{7, 7, 7}

	instrs := []isa.Instruction{
		Nop{},
		NoCo{},
		ChCo{},
		ChCk{},
		Fail{},
		Rset{},
		Jmp{posJump{Pos: 0x1234}},
		Jine{posJump{Pos: 0x0001}},
		JiFail{posJump{Pos: 0xFFFF}},
		Sh{shiftJump{Shift: 100}},
		ShNe{shiftJump{Shift: -100}},
		ShFail{shiftJump{Shift: 0}},
		Exec{remoteJump{Site: core.NewSite(libID, 0x0000)}},
		Fn{posJump{Pos: 0x0004}},
		Call{remoteJump{Site: core.NewSite(libID, 0x69AB)}},
		Ret{},
		Stop{},
	}

	for _, instr := range instrs {
		w := bytecode.NewWriter()
		if err := w.WriteByte(instr.Opcode()); err != nil {
			t.Fatal(err)
		}
		if err := instr.Encode(w); err != nil {
			t.Fatalf("Encode(%T): %v", instr, err)
		}

		r := bytecode.NewReader(w.Code(), w.Data(), w.Libs())
		opcode, err := r.ReadByte()
		if err != nil {
			t.Fatalf("ReadByte: %v", err)
		}
		got, err := Decode(opcode, r)
		if err != nil {
			t.Fatalf("Decode(%T): %v", instr, err)
		}
		if got != instr {
			t.Errorf("Decode(%T) = %#v, want %#v", instr, got, instr)
		}
		if !r.IsEof() {
			t.Errorf("Decode(%T) left %d trailing bytes", instr, len(w.Code())-int(r.Offset()))
		}
	}
}

func TestReservedOpcodeAlwaysFails(t *testing.T) {
	for opcode := ReservedLow; opcode <= ReservedHigh; opcode++ {
		r := bytecode.NewReader(nil, nil, nil)
		instr, err := Decode(opcode, r)
		if err != nil {
			t.Fatalf("Decode(%d): %v", opcode, err)
		}
		ri, ok := instr.(ReservedInstr)
		if !ok {
			t.Fatalf("Decode(%d) = %T, want ReservedInstr", opcode, instr)
		}
		if ri.Opcode() != opcode {
			t.Errorf("ReservedInstr.Opcode() = %d, want %d", ri.Opcode(), opcode)
		}
		if ri.Complexity() == 0 {
			t.Errorf("ReservedInstr.Complexity() = 0, want saturating max")
		}
		step := ri.Exec(core.Site{}, core.New(core.Config{}, nil), isa.Context{})
		if step.Kind != isa.StepFail {
			t.Errorf("ReservedInstr.Exec() = %v, want Fail", step.Kind)
		}
	}
}

func TestJmpChargesCycleCounter(t *testing.T) {
	c := core.New(core.Config{}, nil)
	jmp := Jmp{posJump{Pos: 0x10}}
	step := jmp.Exec(core.NewSite(core.LibId{}, 0), c, isa.Context{})
	if step.Kind != isa.StepJump || step.Pos != 0x10 {
		t.Fatalf("Exec = %#v, want Jump(0x10)", step)
	}
	if c.CY() != 1 {
		t.Errorf("CY = %d after one taken jump, want 1", c.CY())
	}
}

func TestShRelativeToOwnOffset(t *testing.T) {
	c := core.New(core.Config{}, nil)
	sh := Sh{shiftJump{Shift: -5}}
	step := sh.Exec(core.NewSite(core.LibId{}, 10), c, isa.Context{})
	if step.Kind != isa.StepJump || step.Pos != 5 {
		t.Fatalf("Exec = %#v, want Jump(5)", step)
	}
}

func TestShOverflowFails(t *testing.T) {
	c := core.New(core.Config{}, nil)
	sh := Sh{shiftJump{Shift: -5}}
	step := sh.Exec(core.NewSite(core.LibId{}, 2), c, isa.Context{})
	if step.Kind != isa.StepFail {
		t.Fatalf("Exec = %#v, want Fail on negative overflow", step)
	}
}

func TestFnPushesCurrentSite(t *testing.T) {
	c := core.New(core.Config{}, nil)
	site := core.NewSite(core.LibId{1}, 0)
	fn := Fn{posJump{Pos: 4}}

	step := fn.Exec(site, c, isa.Context{})
	if step.Kind != isa.StepJump || step.Pos != 4 {
		t.Fatalf("Exec = %#v, want Jump(4)", step)
	}

	popped, ok := c.PopCS()
	if !ok {
		t.Fatalf("PopCS reported empty stack")
	}
	if popped != site {
		t.Errorf("pushed site = %v, want %v (address of FN itself)", popped, site)
	}
}

func TestRetOnEmptyStackStops(t *testing.T) {
	c := core.New(core.Config{}, nil)
	ret := Ret{}
	step := ret.Exec(core.Site{}, c, isa.Context{})
	if step.Kind != isa.StepStop {
		t.Errorf("Exec = %#v, want Stop (return from outermost function)", step)
	}
	if c.CY() != 0 {
		t.Errorf("CY = %d after an untaken ret (empty stack), want 0", c.CY())
	}
}

func TestRetChargesCycleCounter(t *testing.T) {
	c := core.New(core.Config{}, nil)
	pushed := core.NewSite(core.LibId{}, 7)
	c.PushCS(pushed)

	ret := Ret{}
	step := ret.Exec(core.Site{}, c, isa.Context{})
	if step.Kind != isa.StepRet || step.Site != pushed {
		t.Fatalf("Exec = %#v, want Ret(%v)", step, pushed)
	}
	if c.CY() != 1 {
		t.Errorf("CY = %d after one taken ret, want 1", c.CY())
	}
}

func TestRetFailsAtCycleCap(t *testing.T) {
	c := core.New(core.Config{}, nil)
	for i := uint16(0); i < core.MaxCycles; i++ {
		c.PushCS(core.NewSite(core.LibId{}, i))
		if step := (Ret{}).Exec(core.Site{}, c, isa.Context{}); step.Kind != isa.StepRet {
			t.Fatalf("Exec = %#v at i=%d, want Ret", step, i)
		}
	}
	if c.CY() != core.MaxCycles {
		t.Fatalf("CY = %d, want MaxCycles (%d)", c.CY(), core.MaxCycles)
	}

	c.PushCS(core.NewSite(core.LibId{}, 0))
	step := (Ret{}).Exec(core.Site{}, c, isa.Context{})
	if step.Kind != isa.StepFail {
		t.Errorf("Exec = %#v at cap, want Fail", step)
	}
	if c.CY() != core.MaxCycles {
		t.Errorf("CY = %d after a ret past the cap, want unchanged MaxCycles (%d)", c.CY(), core.MaxCycles)
	}
}

func TestRsetMovesCkIntoCoAndResetsCk(t *testing.T) {
	c := core.New(core.Config{}, nil)
	c.FailCK()
	rset := Rset{}
	step := rset.Exec(core.Site{}, c, isa.Context{})
	if step.Kind != isa.StepNext {
		t.Fatalf("Exec = %#v, want Next", step)
	}
	if c.CO() != core.StatusFail {
		t.Errorf("CO = %v, want Fail (CO <- CK)", c.CO())
	}
	if c.CK() != core.StatusOk {
		t.Errorf("CK = %v, want Ok after RSET", c.CK())
	}
}
