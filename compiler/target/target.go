// Copyright 2025 Google LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package target selects the configuration kernels are compiled for.
//
// A configuration reconciles three version matrices: the instruction
// sets the code generator can emit, the instruction sets and
// architectures the installed toolchain accepts, and the compute
// capability of the device the kernel will run on.
package target

import (
	"fmt"
	"slices"
	"strings"

	"github.com/ptx-org/ptxc/base/vers"
)

// Capabilities advertises the versions a collaborator supports.
// Both the code generator and the toolchain provide one.
type Capabilities interface {
	// ISAs returns the supported instruction set versions.
	ISAs() *vers.Set

	// Archs returns the supported architecture versions.
	Archs() *vers.Set
}

// ToolchainInfo describes the installed toolchain to the resolver.
type ToolchainInfo interface {
	Capabilities

	// Release returns the toolkit release version (for example "v12.4").
	Release() string
}

// Config is the target a kernel is compiled for. It is built by
// Resolve, cached, and never mutated afterwards.
type Config struct {
	// ISA is the instruction set version the code generator emits for.
	ISA string

	// ToolchainISA is the instruction set version the assembler is
	// asked to parse. It differs from ISA when the caller pinned a
	// version the toolchain does not advertise.
	ToolchainISA string

	// Arch is the architecture (compute capability) compiled for.
	Arch string

	// Debug compiles with full debug info, disabling optimizations.
	Debug bool

	// LineInfo compiles with line tables.
	LineInfo bool

	// Extra code generation flags, canonically ordered.
	Extra []string
}

// Equal returns true if both configurations compile kernels identically.
func (cfg *Config) Equal(o *Config) bool {
	if cfg == nil || o == nil {
		return cfg == o
	}
	return cfg.ISA == o.ISA &&
		cfg.ToolchainISA == o.ToolchainISA &&
		cfg.Arch == o.Arch &&
		cfg.Debug == o.Debug &&
		cfg.LineInfo == o.LineInfo &&
		slices.Equal(cfg.Extra, o.Extra)
}

// Canonical returns a stable encoding of the configuration,
// used as a compilation fingerprint component.
func (cfg *Config) Canonical() string {
	fields := []string{
		"isa=" + cfg.ISA,
		"tisa=" + cfg.ToolchainISA,
		"arch=" + cfg.Arch,
		fmt.Sprintf("debug=%t", cfg.Debug),
		fmt.Sprintf("lineinfo=%t", cfg.LineInfo),
		"extra=" + strings.Join(cfg.Extra, ","),
	}
	return strings.Join(fields, " ")
}

// SM returns the architecture in the form the toolchain names it,
// for example "sm_70" for architecture v7.0.
func (cfg *Config) SM() string {
	major, minor, err := vers.Parts(cfg.Arch)
	if err != nil {
		return "sm_unknown"
	}
	return fmt.Sprintf("sm_%d%d", major, minor)
}

// String returns a short description for error messages.
func (cfg *Config) String() string {
	s := fmt.Sprintf("%s, ptx %s", cfg.SM(), vers.Human(cfg.ISA))
	if cfg.Debug {
		s += ", debug"
	} else if cfg.LineInfo {
		s += ", lineinfo"
	}
	return s
}
