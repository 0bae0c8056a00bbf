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

// Command aluvm-stl writes a declarative field/type descriptor of the
// module's wire-visible types (LibSite, Lib, CoreConfig) to a directory.
// It does not implement a strict-type schema serializer; it emits a
// minimal descriptor sufficient for downstream tooling to know the shape
// of these types without importing Go.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/naoina/toml"
	"gopkg.in/urfave/cli.v1"

	"github.com/AluVM/aluvm/internal/colorlog"
)

var (
	outFlag = cli.StringFlag{
		Name:  "out",
		Usage: "directory to write descriptor files into",
		Value: ".",
	}
	formatFlag = cli.StringFlag{
		Name:  "format",
		Usage: "descriptor encoding: toml or json",
		Value: "toml",
	}
)

func main() {
	app := cli.NewApp()
	app.Name = "aluvm-stl"
	app.Usage = "emit field/type descriptors for AluVM's wire-visible types"
	app.Flags = []cli.Flag{outFlag, formatFlag}
	app.Action = emit

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// fieldDescriptor names one struct field and its wire type.
type fieldDescriptor struct {
	Name string
	Type string
}

// typeDescriptor is the minimal per-type shape this emitter produces.
type typeDescriptor struct {
	Name   string
	Fields []fieldDescriptor
}

func descriptors() []typeDescriptor {
	return []typeDescriptor{
		{
			Name: "LibSite",
			Fields: []fieldDescriptor{
				{Name: "LibId", Type: "bytes[30]"},
				{Name: "Offset", Type: "uint16"},
			},
		},
		{
			Name: "Lib",
			Fields: []fieldDescriptor{
				{Name: "Isa", Type: "string[1..16]"},
				{Name: "Isae", Type: "list<string[1..16]>"},
				{Name: "Libs", Type: "list<bytes[30]>"},
				{Name: "Code", Type: "bytes[0..65535]"},
				{Name: "Data", Type: "bytes[0..65535]"},
			},
		},
		{
			Name: "CoreConfig",
			Fields: []fieldDescriptor{
				{Name: "Halt", Type: "bool"},
				{Name: "ComplexityLimit", Type: "uint64"},
				{Name: "ComplexityLimitSet", Type: "bool"},
			},
		},
	}
}

func emit(ctx *cli.Context) error {
	out := ctx.String(outFlag.Name)
	format := ctx.String(formatFlag.Name)
	log := colorlog.NewStdout(colorlog.LevelInfo)

	var marshal func(interface{}) ([]byte, error)
	var ext string
	switch format {
	case "toml":
		marshal = toml.Marshal
		ext = "toml"
	case "json":
		marshal = func(v interface{}) ([]byte, error) { return json.MarshalIndent(v, "", "  ") }
		ext = "json"
	default:
		return cli.NewExitError(fmt.Sprintf("unknown format %q, want toml or json", format), 2)
	}

	if err := os.MkdirAll(out, 0o755); err != nil {
		return cli.NewExitError(fmt.Sprintf("creating %s: %v", out, err), 1)
	}

	for _, d := range descriptors() {
		b, err := marshal(d)
		if err != nil {
			return cli.NewExitError(fmt.Sprintf("marshalling %s: %v", d.Name, err), 1)
		}
		path := filepath.Join(out, fmt.Sprintf("%s.%s", d.Name, ext))
		if err := os.WriteFile(path, b, 0o644); err != nil {
			return cli.NewExitError(fmt.Sprintf("writing %s: %v", path, err), 1)
		}
		log.Info("wrote descriptor", "type", d.Name, "path", path)
	}
	return nil
}
