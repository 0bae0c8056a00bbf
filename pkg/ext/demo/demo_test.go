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

package demo

import (
	"bytes"
	"testing"

	"github.com/holiman/uint256"

	"github.com/AluVM/aluvm/pkg/bytecode"
	"github.com/AluVM/aluvm/pkg/core"
	"github.com/AluVM/aluvm/pkg/isa"
)

func TestBankGetPutClrReset(t *testing.T) {
	b := NewBank()
	if _, ok := b.Get(Reg(0)); ok {
		t.Fatalf("fresh Bank should report register 0 as unset")
	}

	b.Put(Reg(0), []byte{0x01, 0x02})
	got, ok := b.Get(Reg(0))
	if !ok {
		t.Fatalf("Get after Put reported unset")
	}
	want := make([]byte, 32)
	want[30], want[31] = 0x01, 0x02
	if !bytes.Equal(got, want) {
		t.Errorf("Get = % x, want % x", got, want)
	}

	b.Clr(Reg(0))
	if _, ok := b.Get(Reg(0)); ok {
		t.Errorf("Get after Clr should report unset")
	}

	b.Put(Reg(1), []byte{0xff})
	b.Reset()
	if _, ok := b.Get(Reg(1)); ok {
		t.Errorf("Get after Reset should report unset")
	}
}

func TestLdiExec(t *testing.T) {
	bank := NewBank()
	ctx := isa.Context{Ext: bank}
	c := core.New(core.Config{}, bank)

	instr := Ldi{Dst: 2, Imm: *uint256.NewInt(42)}
	step := instr.Exec(core.Site{}, c, ctx)
	if step.Kind != isa.StepNext {
		t.Fatalf("Exec = %v, want Next", step.Kind)
	}

	got, ok := bank.Get(Reg(2))
	if !ok {
		t.Fatalf("register 2 unset after LDI")
	}
	want := uint256.NewInt(42).Bytes32()
	if !bytes.Equal(got, want[:]) {
		t.Errorf("register 2 = % x, want % x", got, want)
	}
}

func TestAddExec(t *testing.T) {
	bank := NewBank()
	ctx := isa.Context{Ext: bank}
	c := core.New(core.Config{}, bank)

	Ldi{Dst: 0, Imm: *uint256.NewInt(10)}.Exec(core.Site{}, c, ctx)
	Ldi{Dst: 1, Imm: *uint256.NewInt(32)}.Exec(core.Site{}, c, ctx)

	add := Add{regOperand{dst: 0, src: 1}}
	step := add.Exec(core.Site{}, c, ctx)
	if step.Kind != isa.StepNext {
		t.Fatalf("Exec = %v, want Next", step.Kind)
	}

	got, _ := bank.Get(Reg(0))
	want := uint256.NewInt(42).Bytes32()
	if !bytes.Equal(got, want[:]) {
		t.Errorf("register 0 = % x, want 42", got)
	}
}

func TestEqExecSetsCO(t *testing.T) {
	bank := NewBank()
	ctx := isa.Context{Ext: bank}
	c := core.New(core.Config{}, bank)

	Ldi{Dst: 0, Imm: *uint256.NewInt(7)}.Exec(core.Site{}, c, ctx)
	Ldi{Dst: 1, Imm: *uint256.NewInt(7)}.Exec(core.Site{}, c, ctx)

	eq := Eq{regOperand{dst: 0, src: 1}}
	eq.Exec(core.Site{}, c, ctx)
	if c.CO() != core.StatusOk {
		t.Errorf("CO = %v after equal registers, want Ok", c.CO())
	}

	Ldi{Dst: 1, Imm: *uint256.NewInt(8)}.Exec(core.Site{}, c, ctx)
	eq.Exec(core.Site{}, c, ctx)
	if c.CO() != core.StatusFail {
		t.Errorf("CO = %v after unequal registers, want Fail", c.CO())
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	instrs := []isa.Instruction{
		Ldi{Dst: 3, Imm: *uint256.NewInt(0xdeadbeef)},
		Add{regOperand{dst: 0, src: 1}},
		Eq{regOperand{dst: 2, src: 3}},
		Clr{Dst: 4},
	}

	for _, instr := range instrs {
		w := bytecode.NewWriter()
		if err := w.WriteByte(instr.Opcode()); err != nil {
			t.Fatal(err)
		}
		if err := instr.Encode(w); err != nil {
			t.Fatalf("Encode(%T): %v", instr, err)
		}
		if uint16(len(w.Code())) != instr.CodeByteLen() {
			t.Errorf("CodeByteLen() = %d, want %d", instr.CodeByteLen(), len(w.Code()))
		}

		r := bytecode.NewReader(w.Code(), w.Data(), w.Libs())
		opcode, err := r.ReadByte()
		if err != nil {
			t.Fatal(err)
		}
		got, err := Decode(opcode, r)
		if err != nil {
			t.Fatalf("Decode(%T): %v", instr, err)
		}
		if got != instr {
			t.Errorf("Decode(%T) = %#v, want %#v", instr, got, instr)
		}
	}
}

func TestClrExec(t *testing.T) {
	bank := NewBank()
	ctx := isa.Context{Ext: bank}
	c := core.New(core.Config{}, bank)

	Ldi{Dst: 5, Imm: *uint256.NewInt(1)}.Exec(core.Site{}, c, ctx)
	Clr{Dst: 5}.Exec(core.Site{}, c, ctx)

	if _, ok := bank.Get(Reg(5)); ok {
		t.Errorf("register 5 still set after CLR")
	}
}
