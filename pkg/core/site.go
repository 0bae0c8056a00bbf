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

// Site identifies a byte offset into the code segment of a named library.
// It is the VM's program-location primitive: (lib_id, offset).
type Site struct {
	LibId  LibId
	Offset uint16
}

// NewSite constructs a Site.
func NewSite(lib LibId, offset uint16) Site {
	return Site{LibId: lib, Offset: offset}
}

// LibSite is Site specialized to a concrete, resolved LibId, as opposed to
// a library reference that has not yet been looked up through a resolver.
// In this implementation the two are the same shape, so LibSite is simply
// an alias kept for interface fidelity with external call sites (the VM
// driver's entry point, the assembler's external-jump operands).
type LibSite = Site

// Compare returns -1, 0, or 1 comparing s to other under the total order
// (lib_id, offset), lib_id taking precedence.
func (s Site) Compare(other Site) int {
	if c := bytesCompare(s.LibId[:], other.LibId[:]); c != 0 {
		return c
	}
	switch {
	case s.Offset < other.Offset:
		return -1
	case s.Offset > other.Offset:
		return 1
	default:
		return 0
	}
}

// Less reports whether s sorts before other.
func (s Site) Less(other Site) bool { return s.Compare(other) < 0 }

// String renders the site as "<lib-id>:<offset>".
func (s Site) String() string {
	return fmt.Sprintf("%s:%#04x", s.LibId, s.Offset)
}

func bytesCompare(a, b []byte) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			if a[i] < b[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	default:
		return 0
	}
}
