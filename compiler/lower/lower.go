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

// Package lower drives the upstream code generator and post-processes
// the assembly it produces.
//
// The generator is a black box turning a kernel function into device
// assembly. This package owns what happens around that call: deciding
// whether the result needs the device runtime library, collecting the
// globals the embedding runtime must initialize, and patching the
// assembly directives the toolchain is sensitive to.
package lower

import (
	"fmt"
	"regexp"

	"github.com/pkg/errors"
	"github.com/ptx-org/ptxc/base/iter"
	"github.com/ptx-org/ptxc/base/vers"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/ptx-org/ptxc/compiler/sig"
	"github.com/ptx-org/ptxc/compiler/target"
)

type (
	// Request is what the code generator needs to lower one kernel.
	Request struct {
		// Name of the entry point in the generated assembly.
		Name string

		// ID of the function instance to lower.
		ID uint64

		// Sig is the kernel signature.
		Sig *sig.Signature

		// Kernel lowers an entry point rather than a device function.
		Kernel bool

		// AlwaysInline inlines every device function into the body.
		AlwaysInline bool

		// Config is the target to generate code for.
		Config *target.Config
	}

	// Generator is the upstream code generator.
	Generator interface {
		target.Capabilities

		// Lower generates device assembly for a request.
		Lower(req *Request) (*Result, error)
	}

	// Symbol is a function appearing in generated assembly.
	Symbol struct {
		// Name of the function.
		Name string

		// Declaration is true for functions declared but not defined
		// in the assembly.
		Declaration bool

		// Intrinsic is true for functions the generator resolved to
		// a device intrinsic.
		Intrinsic bool
	}

	// Global is a module scope variable in generated assembly.
	Global struct {
		// Name of the variable.
		Name string

		// ExternallyInitialized is true when the embedding runtime
		// writes the variable before launch.
		ExternallyInitialized bool
	}

	// Result of lowering one kernel.
	Result struct {
		// Assembly is the generated device assembly text.
		Assembly string

		// Entry is the name of the kernel in the assembly.
		Entry string

		// Functions appearing in the assembly.
		Functions []Symbol

		// Globals appearing in the assembly.
		Globals []Global

		// Deferred lists the method identities the generator found
		// calls to but did not compile.
		Deferred []string

		// NeedsDeviceRuntime is set by Drive when the assembly calls
		// into the device runtime library.
		NeedsDeviceRuntime bool

		// ExternalGlobals is set by Drive to the names of the
		// externally initialized globals.
		ExternalGlobals []string
	}
)

// deviceIntrinsics are the undefined functions the driver resolves
// at load time without the device runtime library.
var deviceIntrinsics = []string{
	"vprintf",
	"malloc",
	"free",
	"__assertfail",
	"__nvvm_reflect",
}

var (
	targetDebugRE = regexp.MustCompile(`(\.target sm_\d+), debug`)
	versionRE     = regexp.MustCompile(`\.version \d+\.\d+`)
)

// Drive lowers a request and prepares the result for assembly.
func Drive(gen Generator, req *Request) (*Result, error) {
	res, err := gen.Lower(req)
	if err != nil {
		return nil, errors.Wrapf(err, "cannot lower %s", req.Name)
	}
	if res.Entry == "" {
		return nil, comperr.Errorf(comperr.Internal, "code generator returned no entry point for %s", req.Name)
	}
	res.NeedsDeviceRuntime = iter.Any(callsDeviceRuntime, res.Functions)
	for _, g := range res.Globals {
		if g.ExternallyInitialized {
			res.ExternalGlobals = append(res.ExternalGlobals, g.Name)
		}
	}
	asm, err := postprocess(res.Assembly, req.Config)
	if err != nil {
		return nil, err
	}
	res.Assembly = asm
	return res, nil
}

// callsDeviceRuntime reports whether a symbol requires linking the
// device runtime library: declared, not defined, and not one of the
// intrinsics the driver resolves itself.
func callsDeviceRuntime(sym Symbol) bool {
	if !sym.Declaration || sym.Intrinsic {
		return false
	}
	for _, name := range deviceIntrinsics {
		if sym.Name == name {
			return false
		}
	}
	return true
}

// postprocess patches assembly directives to what the toolchain expects.
func postprocess(asm string, cfg *target.Config) (string, error) {
	if !cfg.Debug {
		// The target directive requests debug relocations the
		// assembler only accepts under --device-debug.
		asm = targetDebugRE.ReplaceAllString(asm, "$1")
	}
	if cfg.ToolchainISA != cfg.ISA {
		major, minor, err := vers.Parts(cfg.ToolchainISA)
		if err != nil {
			return "", comperr.New(comperr.Internal, errors.Wrapf(err, "invalid toolchain instruction set %q", cfg.ToolchainISA))
		}
		asm = versionRE.ReplaceAllString(asm, fmt.Sprintf(".version %d.%d", major, minor))
	}
	return asm, nil
}
