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

// IsaId names an instruction set: 1 to 16 uppercase alphanumeric characters.
type IsaId string

// MaxIsaIdLen is the longest permitted IsaId.
const MaxIsaIdLen = 16

// NewIsaId validates s and returns it as an IsaId, or an error describing
// why it is not a valid ISA identifier.
func NewIsaId(s string) (IsaId, error) {
	if len(s) < 1 || len(s) > MaxIsaIdLen {
		return "", fmt.Errorf("core: isa id %q must be 1..=%d characters", s, MaxIsaIdLen)
	}
	for _, r := range s {
		isUpper := r >= 'A' && r <= 'Z'
		isDigit := r >= '0' && r <= '9'
		if !isUpper && !isDigit {
			return "", fmt.Errorf("core: isa id %q must be uppercase alphanumeric", s)
		}
	}
	return IsaId(s), nil
}

// MustIsaId is like NewIsaId but panics on an invalid identifier; intended
// for package-level constants where the value is a compile-time literal.
func MustIsaId(s string) IsaId {
	id, err := NewIsaId(s)
	if err != nil {
		panic(err)
	}
	return id
}
