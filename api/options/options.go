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

// Package options specifies how a kernel is compiled.
package options

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/ptx-org/ptxc/base/vers"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/xyproto/env/v2"
)

// debugEnv sets the process-wide default debug level.
const debugEnv = "PTXC_DEBUG"

// Option configures one aspect of a compilation.
type Option func(*Set) error

// Set is a resolved bag of compilation options.
type Set struct {
	isa          string
	arch         string
	debug        int
	name         string
	alwaysInline bool
	maxThreads   int
	minBlocks    int
	fastMath     bool
	sink         comperr.Sink
}

// NewSet applies options over the process defaults.
func NewSet(opts ...Option) (*Set, error) {
	set := &Set{debug: env.Int(debugEnv, 0)}
	for _, opt := range opts {
		if err := opt(set); err != nil {
			return nil, err
		}
	}
	return set, nil
}

// ISA pins the instruction set version the code generator targets
// (for example "8.0"). The toolchain is asked to accept that exact
// version even if it does not advertise it.
func ISA(v string) Option {
	return func(set *Set) error {
		canon, err := vers.Canon(v)
		if err != nil {
			return errors.Wrapf(err, "invalid instruction set version %q", v)
		}
		set.isa = canon
		return nil
	}
}

// Arch pins the device architecture to compile for (for example "7.0").
func Arch(v string) Option {
	return func(set *Set) error {
		canon, err := vers.Canon(v)
		if err != nil {
			return errors.Wrapf(err, "invalid architecture version %q", v)
		}
		set.arch = canon
		return nil
	}
}

// Debug sets the debug level:
// 0 compiles with full optimizations, 1 adds line tables,
// 2 and above add full debug info at the cost of optimizations.
func Debug(level int) Option {
	return func(set *Set) error {
		if level < 0 {
			return errors.Errorf("invalid debug level %d", level)
		}
		set.debug = level
		return nil
	}
}

// Name overrides the kernel entry point name in the generated assembly.
func Name(name string) Option {
	return func(set *Set) error {
		if name == "" {
			return errors.Errorf("empty kernel name override")
		}
		set.name = name
		return nil
	}
}

// AlwaysInline asks the code generator to inline every device function
// into the kernel body.
func AlwaysInline() Option {
	return func(set *Set) error {
		set.alwaysInline = true
		return nil
	}
}

// MaxThreads bounds the number of threads a block may launch with,
// letting the assembler allocate registers accordingly.
func MaxThreads(n int) Option {
	return func(set *Set) error {
		if n <= 0 {
			return errors.Errorf("invalid maximum number of threads %d", n)
		}
		set.maxThreads = n
		return nil
	}
}

// MinBlocks sets the number of blocks the kernel wants resident
// per multiprocessor.
func MinBlocks(n int) Option {
	return func(set *Set) error {
		if n <= 0 {
			return errors.Errorf("invalid minimum number of blocks %d", n)
		}
		set.minBlocks = n
		return nil
	}
}

// FastMath trades floating point accuracy for speed in the
// generated code.
func FastMath() Option {
	return func(set *Set) error {
		set.fastMath = true
		return nil
	}
}

// WithDiagnostics installs the sink receiving compiler diagnostics.
func WithDiagnostics(sink comperr.Sink) Option {
	return func(set *Set) error {
		set.sink = sink
		return nil
	}
}

// ISA returns the pinned instruction set version, if any.
func (set *Set) ISA() (string, bool) {
	return set.isa, set.isa != ""
}

// Arch returns the pinned architecture version, if any.
func (set *Set) Arch() (string, bool) {
	return set.arch, set.arch != ""
}

// Debug level of the compilation.
func (set *Set) Debug() int {
	return set.debug
}

// Name returns the kernel entry point override, or the empty string.
func (set *Set) Name() string {
	return set.name
}

// AlwaysInline reports whether device functions are all inlined.
func (set *Set) AlwaysInline() bool {
	return set.alwaysInline
}

// MaxThreads returns the thread bound, or 0 when unset.
func (set *Set) MaxThreads() int {
	return set.maxThreads
}

// MinBlocks returns the resident block request, or 0 when unset.
func (set *Set) MinBlocks() int {
	return set.minBlocks
}

// FastMath reports whether fast math is enabled.
func (set *Set) FastMath() bool {
	return set.fastMath
}

// Sink receiving compiler diagnostics. May be nil.
func (set *Set) Sink() comperr.Sink {
	return set.sink
}

// Canonical returns a stable encoding of the options that select a
// target configuration. Two sets with the same canonical form resolve
// to the same configuration on a given device.
func (set *Set) Canonical() string {
	fields := []string{
		"isa=" + set.isa,
		"arch=" + set.arch,
		fmt.Sprintf("debug=%d", set.debug),
		fmt.Sprintf("maxthreads=%d", set.maxThreads),
		fmt.Sprintf("minblocks=%d", set.minBlocks),
		fmt.Sprintf("fastmath=%t", set.fastMath),
	}
	return strings.Join(fields, " ")
}
