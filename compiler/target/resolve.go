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

package target

import (
	"fmt"

	"github.com/ptx-org/ptxc/api/options"
	"github.com/ptx-org/ptxc/base/vers"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/ptx-org/ptxc/driver"
	"golang.org/x/mod/semver"
)

const (
	// isaFloor is the oldest instruction set version worth emitting:
	// older versions predate the features the code generator relies on.
	isaFloor = "v6.0"

	// archFloor is the oldest architecture the compiler supports.
	archFloor = "v3.5"

	// debugSafeRelease is the first toolkit release assembling full
	// debug info correctly. Older releases miscompile device debug
	// tables, so extended debug info is disabled below it.
	debugSafeRelease = "v11.5"
)

// Resolve selects the configuration to compile a kernel with, given
// the capabilities of the code generator, the installed toolchain and
// the device the kernel will run on.
func Resolve(gen Capabilities, tc ToolchainInfo, dev driver.Device, set *options.Set) (*Config, error) {
	cfg := &Config{}
	if err := resolveISA(cfg, gen, tc, set); err != nil {
		return nil, err
	}
	if err := resolveArch(cfg, gen, tc, dev, set); err != nil {
		return nil, err
	}
	resolveDebug(cfg, tc, set)
	resolveExtra(cfg, set)
	return cfg, nil
}

func resolveISA(cfg *Config, gen Capabilities, tc ToolchainInfo, set *options.Set) error {
	if pin, ok := set.ISA(); ok {
		// The generator needs a version at least as recent as the
		// pin; the toolchain is trusted to accept the pin verbatim.
		isa, ok := gen.ISAs().AtLeast(pin).Max()
		if !ok {
			return comperr.Errorf(comperr.UnsupportedISA,
				"code generator does not support instruction set %s or newer (supported: %s)",
				vers.Human(pin), gen.ISAs())
		}
		cfg.ISA = isa
		cfg.ToolchainISA = pin
		return nil
	}
	isa, ok := gen.ISAs().AtLeast(isaFloor).Max()
	if !ok {
		return comperr.Errorf(comperr.UnsupportedISA,
			"code generator does not support instruction set %s or newer (supported: %s)",
			vers.Human(isaFloor), gen.ISAs())
	}
	tcISA, ok := tc.ISAs().AtLeast(isaFloor).Max()
	if !ok {
		return comperr.Errorf(comperr.UnsupportedISA,
			"toolchain does not support instruction set %s or newer (supported: %s)",
			vers.Human(isaFloor), tc.ISAs())
	}
	cfg.ISA = isa
	cfg.ToolchainISA = tcISA
	return nil
}

func resolveArch(cfg *Config, gen Capabilities, tc ToolchainInfo, dev driver.Device, set *options.Set) error {
	devCap := dev.Capability()
	if pin, ok := set.Arch(); ok {
		if !gen.Archs().Contains(pin) {
			return comperr.Errorf(comperr.UnsupportedArch,
				"code generator does not support architecture %s (supported: %s)",
				vers.Human(pin), gen.Archs())
		}
		if !tc.Archs().Contains(pin) {
			return comperr.Errorf(comperr.UnsupportedArch,
				"toolchain does not support architecture %s (supported: %s)",
				vers.Human(pin), tc.Archs())
		}
		if semver.Compare(pin, devCap) > 0 {
			return comperr.Errorf(comperr.UnsupportedArch,
				"device %d has compute capability %s, cannot run %s code",
				dev.Ordinal(), vers.Human(devCap), vers.Human(pin))
		}
		cfg.Arch = pin
		return nil
	}
	// The instruction set bounds the architecture: code emitted at a
	// given version can only name architectures that version knows.
	hi := devCap
	isa := cfg.ISA
	if semver.Compare(cfg.ToolchainISA, isa) < 0 {
		isa = cfg.ToolchainISA
	}
	if bound, ok := MaxArchFor(isa); ok && semver.Compare(bound, hi) < 0 {
		hi = bound
	}
	arch, ok := gen.Archs().Intersect(tc.Archs()).Between(archFloor, hi).Max()
	if !ok {
		return comperr.Errorf(comperr.UnsupportedArch,
			"no architecture within [%s, %s] supported by both the code generator (%s) and the toolchain (%s)",
			vers.Human(archFloor), vers.Human(hi), gen.Archs(), tc.Archs())
	}
	cfg.Arch = arch
	return nil
}

func resolveDebug(cfg *Config, tc ToolchainInfo, set *options.Set) {
	level := set.Debug()
	cfg.LineInfo = level >= 1
	if level < 2 {
		return
	}
	if semver.Compare(tc.Release(), debugSafeRelease) < 0 {
		set.Sink().Warn("target", "device debug info disabled",
			fmt.Sprintf("CUDA %s generates invalid debug info; use %s or newer",
				vers.Human(tc.Release()), vers.Human(debugSafeRelease)))
		return
	}
	cfg.Debug = true
}

func resolveExtra(cfg *Config, set *options.Set) {
	if n := set.MaxThreads(); n > 0 {
		cfg.Extra = append(cfg.Extra, fmt.Sprintf("maxthreads=%d", n))
	}
	if n := set.MinBlocks(); n > 0 {
		cfg.Extra = append(cfg.Extra, fmt.Sprintf("minblocks=%d", n))
	}
	if set.FastMath() {
		cfg.Extra = append(cfg.Extra, "fastmath")
	}
}
