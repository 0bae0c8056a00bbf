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

// Package libconfig loads VM construction parameters (CoreConfig, the
// runtime-facing mirror of core.Config) from a TOML file. The VM itself
// never reads configuration from disk; loading it is left to this
// package's callers.
package libconfig

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"reflect"

	"github.com/naoina/toml"

	"github.com/AluVM/aluvm/pkg/core"
)

// tomlSettings mirrors struct field names directly into TOML keys,
// rejecting unknown fields instead of silently ignoring typos.
var tomlSettings = toml.Config{
	NormFieldName: func(rt reflect.Type, key string) string { return key },
	FieldToKey:    func(rt reflect.Type, field string) string { return field },
	MissingField: func(rt reflect.Type, field string) error {
		return fmt.Errorf("field %q is not defined in %s", field, rt.String())
	},
}

// CoreConfig is the on-disk shape of a Vm's construction parameters.
// ComplexityLimit of 0 means "unset" on disk; a program that legitimately
// wants CL=Some(0) (fail on the first positive-complexity instruction)
// must set ComplexityLimitSet explicitly.
type CoreConfig struct {
	Halt               bool
	ComplexityLimit    uint64
	ComplexityLimitSet bool
}

// ToCore converts the on-disk shape into the runtime's core.Config.
func (c CoreConfig) ToCore() core.Config {
	cfg := core.Config{Halt: c.Halt}
	if c.ComplexityLimitSet {
		limit := c.ComplexityLimit
		cfg.ComplexityLimit = &limit
	}
	return cfg
}

// Load reads and decodes a CoreConfig from a TOML file at path.
func Load(path string) (CoreConfig, error) {
	var cfg CoreConfig
	f, err := os.Open(path)
	if err != nil {
		return cfg, err
	}
	defer f.Close()

	err = tomlSettings.NewDecoder(bufio.NewReader(f)).Decode(&cfg)
	var lineErr *toml.LineError
	if errors.As(err, &lineErr) {
		err = fmt.Errorf("%s, %w", path, err)
	}
	return cfg, err
}
