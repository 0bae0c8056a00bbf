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

package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/AluVM/aluvm/internal/colorlog"
	"github.com/AluVM/aluvm/pkg/core"
	"github.com/AluVM/aluvm/pkg/ctrl"
	"github.com/AluVM/aluvm/pkg/isa"
	"github.com/AluVM/aluvm/pkg/lib"
)

func mustIsaId(t *testing.T, s string) core.IsaId {
	t.Helper()
	id, err := core.NewIsaId(s)
	if err != nil {
		t.Fatalf("NewIsaId(%q): %v", s, err)
	}
	return id
}

func TestExecSingleLibraryNopStop(t *testing.T) {
	l := &lib.Lib{Isa: mustIsaId(t, "CTRL"), Code: []byte{0x00, 0x10}}
	id := l.Id()
	resolver := func(want core.LibId) (*lib.Lib, bool) {
		if want == id {
			return l, true
		}
		return nil, false
	}

	v := New(core.Config{}, nil, ctrl.Decode)
	status := v.Exec(core.NewSite(id, 0), isa.Context{}, resolver)
	if status != core.StatusOk {
		t.Errorf("status = %v, want Ok", status)
	}
}

func TestExecExternalCallAcrossLibraries(t *testing.T) {
	libB := &lib.Lib{Isa: mustIsaId(t, "CTRL"), Code: []byte{0x10}}
	idB := libB.Id()
	libA := &lib.Lib{Isa: mustIsaId(t, "CTRL"), Code: []byte{0x0E, 0x00, 0x00, 0x00}, Libs: []core.LibId{idB}}
	idA := libA.Id()

	libs := map[core.LibId]*lib.Lib{idA: libA, idB: libB}
	resolver := func(id core.LibId) (*lib.Lib, bool) {
		l, ok := libs[id]
		return l, ok
	}

	v := New(core.Config{}, nil, ctrl.Decode)
	status := v.Exec(core.NewSite(idA, 0), isa.Context{}, resolver)
	if status != core.StatusOk {
		t.Errorf("status = %v, want Ok", status)
	}
}

func TestExecUnresolvedLibraryHaltsImmediatelyWhenHalting(t *testing.T) {
	resolver := func(core.LibId) (*lib.Lib, bool) { return nil, false }

	v := New(core.Config{Halt: true}, nil, ctrl.Decode)
	status := v.Exec(core.NewSite(core.LibId{1, 2, 3}, 0), isa.Context{}, resolver)
	if status != core.StatusFail {
		t.Errorf("status = %v, want Fail", status)
	}
	if v.Core().CF() != 1 {
		t.Errorf("CF = %d, want 1 (stop on first failed resolution)", v.Core().CF())
	}
}

func TestExecUnresolvedLibrarySkipsByteUntilOffsetOverflow(t *testing.T) {
	resolver := func(core.LibId) (*lib.Lib, bool) { return nil, false }

	v := New(core.Config{Halt: false}, nil, ctrl.Decode)
	status := v.Exec(core.NewSite(core.LibId{9}, 0xFFFE), isa.Context{}, resolver)
	if status != core.StatusFail {
		t.Errorf("status = %v, want Fail", status)
	}
	// offsets 0xFFFE and 0xFFFF both fail resolution before the offset
	// would overflow past 0xFFFF, so CF must be exactly 2.
	if v.Core().CF() != 2 {
		t.Errorf("CF = %d, want 2 (one failure per skipped offset)", v.Core().CF())
	}
}

func TestExecFailContinuesWithoutHalt(t *testing.T) {
	l := &lib.Lib{Isa: mustIsaId(t, "CTRL"), Code: []byte{0x04, 0x10}}
	id := l.Id()
	resolver := func(core.LibId) (*lib.Lib, bool) { return l, true }

	v := New(core.Config{Halt: false}, nil, ctrl.Decode)
	status := v.Exec(core.NewSite(id, 0), isa.Context{}, resolver)
	if status != core.StatusFail {
		t.Errorf("status = %v, want Fail", status)
	}
	if v.Core().CF() != 1 {
		t.Errorf("CF = %d, want 1", v.Core().CF())
	}
}

func TestExecLogsResolverMiss(t *testing.T) {
	resolver := func(core.LibId) (*lib.Lib, bool) { return nil, false }

	var buf bytes.Buffer
	v := New(core.Config{Halt: true}, nil, ctrl.Decode)
	v.SetLogger(colorlog.New(&buf, colorlog.LevelWarn, false))

	status := v.Exec(core.NewSite(core.LibId{1, 2, 3}, 0), isa.Context{}, resolver)
	if status != core.StatusFail {
		t.Errorf("status = %v, want Fail", status)
	}
	if !strings.Contains(buf.String(), "library not found") {
		t.Errorf("expected a resolver-miss warning, got %q", buf.String())
	}
}

func TestExecLogsComplexityLimitReached(t *testing.T) {
	limit := uint64(1)
	l := &lib.Lib{Isa: mustIsaId(t, "CTRL"), Code: []byte{0x06, 0x04, 0x00, 0x10, 0x10}}
	id := l.Id()
	resolver := func(core.LibId) (*lib.Lib, bool) { return l, true }

	var buf bytes.Buffer
	v := New(core.Config{ComplexityLimit: &limit}, nil, ctrl.Decode)
	v.SetLogger(colorlog.New(&buf, colorlog.LevelWarn, false))

	status := v.Exec(core.NewSite(id, 0), isa.Context{}, resolver)
	if status != core.StatusFail {
		t.Errorf("status = %v, want Fail", status)
	}
	if !strings.Contains(buf.String(), "complexity limit reached") {
		t.Errorf("expected a complexity-limit warning, got %q", buf.String())
	}
}

func TestExecSilentWithoutLogger(t *testing.T) {
	resolver := func(core.LibId) (*lib.Lib, bool) { return nil, false }

	v := New(core.Config{Halt: true}, nil, ctrl.Decode)
	status := v.Exec(core.NewSite(core.LibId{1}, 0), isa.Context{}, resolver)
	if status != core.StatusFail {
		t.Errorf("status = %v, want Fail", status)
	}
}

func TestResetPreservesHaltAndLimit(t *testing.T) {
	limit := uint64(500)
	v := New(core.Config{Halt: true, ComplexityLimit: &limit}, nil, ctrl.Decode)
	v.Core().FailCK()
	v.Reset()

	if !v.Core().CH() {
		t.Errorf("CH lost across Reset")
	}
	got, ok := v.Core().CL()
	if !ok || got != limit {
		t.Errorf("CL lost across Reset: got (%d, %v)", got, ok)
	}
	if v.Core().CK() != core.StatusOk {
		t.Errorf("CK = %v after Reset, want Ok", v.Core().CK())
	}
}
