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

// Package bytecode implements the paired code/data segment marshaller
// shared by every instruction set: a Writer and Reader over two parallel
// byte buffers plus a write-once segment of externally referenced library
// identifiers.
package bytecode

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/AluVM/aluvm/pkg/core"
)

// MaxLibSegment is the hard cap on distinct external library references a
// single code segment may carry; a reference is encoded as a 1-byte index.
const MaxLibSegment = 255

// MaxSegmentLen is the hard cap on the byte length of either the code or
// the data segment (both are u16-offset addressable).
const MaxSegmentLen = 1<<16 - 1

// ErrCodeEof is returned when a read runs past the end of the code segment.
var ErrCodeEof = errors.New("bytecode: read past end of code segment")

// ErrLibSegOverflow is returned when a write_ref would add a 256th distinct
// external library reference.
var ErrLibSegOverflow = errors.New("bytecode: library reference segment full")

// ErrDataOverflow is returned when a data-segment write would exceed
// MaxSegmentLen bytes.
var ErrDataOverflow = errors.New("bytecode: data segment capacity exceeded")

// ErrMarshalFail is returned on writer exhaustion not covered by a more
// specific sentinel (e.g. a code segment write that would exceed
// MaxSegmentLen).
var ErrMarshalFail = errors.New("bytecode: marshalling failed")

// Writer accumulates a code segment, a data segment, and the ordered set of
// library identifiers referenced from the code segment. It is not safe for
// concurrent use.
type Writer struct {
	code []byte
	data []byte
	libs []core.LibId
}

// NewWriter returns an empty Writer.
func NewWriter() *Writer {
	return &Writer{}
}

// Offset returns the current code-segment cursor (the length of code
// written so far).
func (w *Writer) Offset() uint16 { return uint16(len(w.code)) }

// WriteByte appends a single byte to the code segment.
func (w *Writer) WriteByte(b byte) error {
	if len(w.code) >= MaxSegmentLen {
		return ErrMarshalFail
	}
	w.code = append(w.code, b)
	return nil
}

// WriteWord appends v to the code segment as two little-endian bytes.
func (w *Writer) WriteWord(v uint16) error {
	if len(w.code)+2 > MaxSegmentLen {
		return ErrMarshalFail
	}
	var buf [2]byte
	binary.LittleEndian.PutUint16(buf[:], v)
	w.code = append(w.code, buf[:]...)
	return nil
}

// WriteFixed appends b verbatim to the code segment.
func (w *Writer) WriteFixed(b []byte) error {
	if len(w.code)+len(b) > MaxSegmentLen {
		return ErrMarshalFail
	}
	w.code = append(w.code, b...)
	return nil
}

// WriteRef writes a 1-byte index into the library reference segment for
// id, adding id to the segment if it is not already present. It fails with
// ErrLibSegOverflow if id is new and the segment already holds
// MaxLibSegment entries.
func (w *Writer) WriteRef(id core.LibId) error {
	idx := -1
	for i, l := range w.libs {
		if l == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		if len(w.libs) >= MaxLibSegment {
			return ErrLibSegOverflow
		}
		w.libs = append(w.libs, id)
		idx = len(w.libs) - 1
	}
	return w.WriteByte(byte(idx))
}

// WriteData appends b to the data segment and writes a (offset:u16,
// len:u16) pair into the code segment pointing at it.
func (w *Writer) WriteData(b []byte) error {
	if len(w.data)+len(b) > MaxSegmentLen {
		return ErrDataOverflow
	}
	offset := uint16(len(w.data))
	w.data = append(w.data, b...)
	if err := w.WriteWord(offset); err != nil {
		return err
	}
	return w.WriteWord(uint16(len(b)))
}

// Code returns the accumulated code segment.
func (w *Writer) Code() []byte { return w.code }

// Data returns the accumulated data segment.
func (w *Writer) Data() []byte { return w.data }

// Libs returns the accumulated, ordered library-reference segment.
func (w *Writer) Libs() []core.LibId { return w.libs }

// Reader walks a code segment, resolving (offset, len) data references and
// library-reference indices against the data and libs segments supplied at
// construction. It is not safe for concurrent use.
type Reader struct {
	code []byte
	data []byte
	libs []core.LibId
	pos  int
}

// NewReader constructs a Reader over code, with data and libs as the
// segments referenced by WriteData/WriteRef operands.
func NewReader(code, data []byte, libs []core.LibId) *Reader {
	return &Reader{code: code, data: data, libs: libs}
}

// Offset returns the reader's current code-segment cursor.
func (r *Reader) Offset() uint16 { return uint16(r.pos) }

// Seek moves the cursor to an absolute code-segment offset.
func (r *Reader) Seek(offset uint16) { r.pos = int(offset) }

// IsEof reports whether the cursor has reached the end of the code segment.
func (r *Reader) IsEof() bool { return r.pos >= len(r.code) }

// ReadByte consumes and returns one byte from the code segment.
func (r *Reader) ReadByte() (byte, error) {
	if r.pos >= len(r.code) {
		return 0, ErrCodeEof
	}
	b := r.code[r.pos]
	r.pos++
	return b, nil
}

// ReadWord consumes two little-endian bytes from the code segment.
func (r *Reader) ReadWord() (uint16, error) {
	if r.pos+2 > len(r.code) {
		return 0, ErrCodeEof
	}
	v := binary.LittleEndian.Uint16(r.code[r.pos:])
	r.pos += 2
	return v, nil
}

// ReadFixed consumes exactly n bytes from the code segment.
func (r *Reader) ReadFixed(n int) ([]byte, error) {
	if r.pos+n > len(r.code) {
		return nil, ErrCodeEof
	}
	b := r.code[r.pos : r.pos+n]
	r.pos += n
	return b, nil
}

// ReadRef consumes a 1-byte library-reference index and resolves it against
// the libs segment.
func (r *Reader) ReadRef() (core.LibId, error) {
	idx, err := r.ReadByte()
	if err != nil {
		return core.LibId{}, err
	}
	if int(idx) >= len(r.libs) {
		return core.LibId{}, fmt.Errorf("%w: library reference index %d out of range", ErrCodeEof, idx)
	}
	return r.libs[idx], nil
}

// ReadData consumes a (offset:u16, len:u16) pair from the code segment and
// returns the referenced slice of the data segment.
func (r *Reader) ReadData() ([]byte, error) {
	offset, err := r.ReadWord()
	if err != nil {
		return nil, err
	}
	length, err := r.ReadWord()
	if err != nil {
		return nil, err
	}
	end := int(offset) + int(length)
	if end > len(r.data) {
		return nil, ErrDataOverflow
	}
	return r.data[offset:end], nil
}
