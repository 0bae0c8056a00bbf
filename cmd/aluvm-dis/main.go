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

// Command aluvm-dis loads a library from a directory of Snappy-compressed,
// gob-encoded library files and prints a formatted disassembly listing.
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/olekukonko/tablewriter"
	"gopkg.in/urfave/cli.v1"

	"github.com/AluVM/aluvm/internal/colorlog"
	"github.com/AluVM/aluvm/pkg/bytecode"
	"github.com/AluVM/aluvm/pkg/core"
	"github.com/AluVM/aluvm/pkg/ctrl"
	"github.com/AluVM/aluvm/pkg/ext/demo"
	"github.com/AluVM/aluvm/pkg/isa"
	"github.com/AluVM/aluvm/pkg/lib"
	"github.com/AluVM/aluvm/pkg/resolver"
)

var (
	dirFlag = cli.StringFlag{
		Name:  "dir",
		Usage: "directory holding compressed library files",
	}
	idFlag = cli.StringFlag{
		Name:  "id",
		Usage: "Bech32 library identifier to disassemble",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "aluvm-dis"
	app.Usage = "disassemble an AluVM library"
	app.Flags = []cli.Flag{dirFlag, idFlag}
	app.Action = disassemble

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// decode dispatches an opcode to the control-flow ISA first, falling back
// to the bundled demo ISA for opcodes 128-255 (the demo ISA decodes
// 128-131; any other opcode in that range is left unrecognized).
func decode(opcode byte, r *bytecode.Reader) (isa.Instruction, error) {
	instr, err := ctrl.Decode(opcode, r)
	if err != nil || instr != nil {
		return instr, err
	}
	return demo.Decode(opcode, r)
}

func disassemble(ctx *cli.Context) error {
	dir := ctx.String(dirFlag.Name)
	idStr := ctx.String(idFlag.Name)
	if dir == "" || idStr == "" {
		return cli.NewExitError("both --dir and --id are required", 2)
	}

	log := colorlog.NewStdout(colorlog.LevelInfo)

	id, err := core.ParseLibId(idStr)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("parsing library id: %v", err), 1)
	}

	store := &dirStore{dir: dir}
	res, err := resolver.NewResolver(store, 16)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("building resolver: %v", err), 1)
	}

	l, ok := res.Resolve(id)
	if !ok {
		log.Error("library not found", "id", id.String(), "dir", dir)
		return cli.NewExitError("library not found", 1)
	}

	instrs, err := l.Disassemble(decode)
	if err != nil {
		return cli.NewExitError(fmt.Sprintf("disassembling %s: %v", id, err), 1)
	}

	printListing(l, instrs)
	return nil
}

func printListing(l *lib.Lib, instrs []isa.Instruction) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"offset", "goto", "mnemonic", "operands", "complexity"})

	var offset uint16
	for _, instr := range instrs {
		goto_ := ""
		if instr.IsGotoTarget() {
			goto_ = "*"
		}
		table.Append([]string{
			fmt.Sprintf("%04x", offset),
			goto_,
			mnemonic(instr),
			operands(instr),
			fmt.Sprintf("%d", instr.Complexity()),
		})
		offset += instr.CodeByteLen()
	}
	table.Render()
}

func mnemonic(instr isa.Instruction) string {
	name := fmt.Sprintf("%T", instr)
	if i := strings.LastIndexByte(name, '.'); i >= 0 {
		name = name[i+1:]
	}
	return strings.ToUpper(name)
}

func operands(instr isa.Instruction) string {
	return strings.TrimPrefix(fmt.Sprintf("%+v", instr), fmt.Sprintf("%T", instr))
}

// dirStore implements resolver.Store over a plain directory: each library
// is a single file named after its Bech32 id, holding the Snappy-compressed
// gob encoding resolver.Resolver already produces via Put.
type dirStore struct {
	dir string
}

func (d *dirStore) path(id core.LibId) string {
	return filepath.Join(d.dir, id.String()+".bin")
}

func (d *dirStore) Get(id core.LibId) ([]byte, bool) {
	b, err := os.ReadFile(d.path(id))
	if err != nil {
		return nil, false
	}
	return b, true
}

func (d *dirStore) Put(id core.LibId, compressed []byte) {
	_ = os.WriteFile(d.path(id), compressed, 0o644)
}
