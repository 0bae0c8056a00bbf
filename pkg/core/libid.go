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

import (
	"encoding/binary"
	"sort"

	"golang.org/x/crypto/sha3"

	"github.com/AluVM/aluvm/common/bech32"
)

// LibIdLength is the fixed byte length of a library's content-addressed
// digest.
const LibIdLength = 30

// libIdHRP is the human-readable part prepended to the Bech32 display form
// of a LibId.
const libIdHRP = "aluz"

// LibId is the 30-byte content-addressed digest of a Library's
// (isa, isae, libs, code, data) tuple. Two libraries with equal content
// always compute equal LibIds; the VM driver resolves libraries by this
// identity.
type LibId [LibIdLength]byte

// ZeroLibId is the identity value with no meaningful library behind it; used
// as a sentinel in tests and as the initial Site before any entry point has
// been resolved.
var ZeroLibId = LibId{}

// IsZero reports whether id is the zero value.
func (id LibId) IsZero() bool { return id == ZeroLibId }

// Bytes returns id's raw 30-byte representation.
func (id LibId) Bytes() []byte { return id[:] }

// String renders id using a Bech32-style grouped encoding: the
// human-readable part "aluz" followed by the 30-byte payload. The encoding
// reuses this module's own Bech32 implementation.
func (id LibId) String() string {
	s, err := bech32.Encode(libIdHRP, id[:])
	if err != nil {
		// Bech32 encoding of a fixed 30-byte payload cannot fail; guard
		// against a future change to Encode's length limits regardless.
		return "aluz1?"
	}
	return s
}

// ParseLibId decodes the Bech32 grouped form produced by LibId.String back
// into a LibId.
func ParseLibId(s string) (LibId, error) {
	_, payload, err := bech32.DecodeExpectLength(s, LibIdLength)
	if err != nil {
		return LibId{}, err
	}
	var id LibId
	copy(id[:], payload)
	return id, nil
}

// ComputeLibId computes the content-addressed LibId of a library from its
// five canonical fields. The digest is SHA3-256 truncated to LibIdLength
// bytes over a deterministic, length-prefixed serialization of every field
// so that no two distinct (isa, isae, libs, code, data) tuples can collide
// by concatenation ambiguity.
func ComputeLibId(isa IsaId, isae []IsaId, libs []LibId, code, data []byte) LibId {
	h := sha3.New256()

	writeLP := func(b []byte) {
		var lenBuf [4]byte
		binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(b)))
		h.Write(lenBuf[:])
		h.Write(b)
	}

	writeLP([]byte(isa))

	sortedIsae := make([]string, len(isae))
	for i, e := range isae {
		sortedIsae[i] = string(e)
	}
	sort.Strings(sortedIsae)
	var isaeBuf []byte
	for _, e := range sortedIsae {
		isaeBuf = append(isaeBuf, byte(len(e)))
		isaeBuf = append(isaeBuf, e...)
	}
	writeLP(isaeBuf)

	var libsBuf []byte
	for _, l := range libs {
		libsBuf = append(libsBuf, l[:]...)
	}
	writeLP(libsBuf)

	writeLP(code)
	writeLP(data)

	sum := h.Sum(nil)
	var id LibId
	copy(id[:], sum[:LibIdLength])
	return id
}
