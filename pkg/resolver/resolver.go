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

// Package resolver provides library-lookup backends for pkg/vm.Resolver:
// a plain in-memory map for tests and small programs, and an LRU-cached
// resolver, backed by a larger compressed store, for programs that
// reference many libraries but touch only a working set at a time.
package resolver

import (
	"bytes"
	"encoding/gob"
	"fmt"

	lru "github.com/hashicorp/golang-lru"
	"github.com/golang/snappy"

	"github.com/AluVM/aluvm/pkg/core"
	"github.com/AluVM/aluvm/pkg/lib"
)

// MapStore is the simplest resolver backend: a fixed in-memory set of
// decoded libraries keyed by their own computed LibId. It does not
// implement Store. Suitable for tests, disassembly tooling,
// and small closed programs.
type MapStore struct {
	libs map[core.LibId]*lib.Lib
}

// NewMapStore builds a MapStore from libs, indexing each by Lib.Id().
func NewMapStore(libs ...*lib.Lib) *MapStore {
	m := &MapStore{libs: make(map[core.LibId]*lib.Lib, len(libs))}
	for _, l := range libs {
		m.libs[l.Id()] = l
	}
	return m
}

// Add inserts l into the store, indexed by its own computed id.
func (m *MapStore) Add(l *lib.Lib) { m.libs[l.Id()] = l }

// Resolve implements pkg/vm.Resolver.
func (m *MapStore) Resolve(id core.LibId) (*lib.Lib, bool) {
	l, ok := m.libs[id]
	return l, ok
}

// Store is the backing source an LRU-cached Resolver pulls cold entries
// from: typically a key-value database keeping libraries compressed at
// rest.
type Store interface {
	// Get returns the compressed, serialized bytes for id, or ok=false if
	// id is not present.
	Get(id core.LibId) (compressed []byte, ok bool)
	// Put stores the compressed, serialized bytes for id.
	Put(id core.LibId, compressed []byte)
}

// MemStore is a Store backed by an in-memory map, holding libraries
// already Snappy-compressed — useful in tests that want to exercise the
// Resolver's cache-miss path without a real database.
type MemStore struct {
	entries map[core.LibId][]byte
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore { return &MemStore{entries: make(map[core.LibId][]byte)} }

// Get implements Store.
func (m *MemStore) Get(id core.LibId) ([]byte, bool) {
	b, ok := m.entries[id]
	return b, ok
}

// Put implements Store.
func (m *MemStore) Put(id core.LibId, compressed []byte) { m.entries[id] = compressed }

// Resolver looks up libraries by id through a small in-memory LRU cache of
// decoded *lib.Lib values, falling back to a Store holding the full set
// Snappy-compressed. It is the production-shaped counterpart to MapStore:
// a VM with a large library corpus only needs the working set hot.
type Resolver struct {
	store Store
	cache *lru.ARCCache
}

// NewResolver builds a Resolver over store with an ARC cache capped at
// cacheSize decoded libraries.
func NewResolver(store Store, cacheSize int) (*Resolver, error) {
	cache, err := lru.NewARC(cacheSize)
	if err != nil {
		return nil, fmt.Errorf("resolver: building cache: %w", err)
	}
	return &Resolver{store: store, cache: cache}, nil
}

// Put compresses and stores l in the backing Store, indexed by its own
// computed id, and seeds the cache with the decoded value.
func (r *Resolver) Put(l *lib.Lib) error {
	id := l.Id()
	encoded, err := encodeLib(l)
	if err != nil {
		return fmt.Errorf("resolver: encoding %s: %w", id, err)
	}
	r.store.Put(id, snappy.Encode(nil, encoded))
	r.cache.Add(id, l)
	return nil
}

// Resolve implements pkg/vm.Resolver: a cache hit returns immediately; a
// miss decompresses and decodes from the backing Store and populates the
// cache before returning.
func (r *Resolver) Resolve(id core.LibId) (*lib.Lib, bool) {
	if cached, ok := r.cache.Get(id); ok {
		return cached.(*lib.Lib), true
	}

	compressed, ok := r.store.Get(id)
	if !ok {
		return nil, false
	}
	raw, err := snappy.Decode(nil, compressed)
	if err != nil {
		return nil, false
	}
	l, err := decodeLib(raw)
	if err != nil {
		return nil, false
	}
	r.cache.Add(id, l)
	return l, true
}

// gobLib mirrors lib.Lib's exported fields for gob encoding; lib.Lib
// itself stays free of struct tags and encoding concerns.
type gobLib struct {
	Isa  core.IsaId
	Isae []core.IsaId
	Libs []core.LibId
	Code []byte
	Data []byte
}

func encodeLib(l *lib.Lib) ([]byte, error) {
	var buf bytes.Buffer
	g := gobLib{Isa: l.Isa, Isae: l.Isae, Libs: l.Libs, Code: l.Code, Data: l.Data}
	if err := gob.NewEncoder(&buf).Encode(g); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func decodeLib(raw []byte) (*lib.Lib, error) {
	var g gobLib
	if err := gob.NewDecoder(bytes.NewReader(raw)).Decode(&g); err != nil {
		return nil, err
	}
	return &lib.Lib{Isa: g.Isa, Isae: g.Isae, Libs: g.Libs, Code: g.Code, Data: g.Data}, nil
}
