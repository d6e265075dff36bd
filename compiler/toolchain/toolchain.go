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

// Package toolchain invokes the vendor assembler and linker on
// generated device assembly.
package toolchain

import (
	"github.com/pkg/errors"
	"github.com/ptx-org/ptxc/base/vers"
)

// DeviceRuntime locates the device runtime library kernels link
// against when they call back into the runtime.
type DeviceRuntime struct {
	// LibraryPath is the directory holding the library.
	LibraryPath string

	// Library is the name the linker resolves (for example "cudadevrt").
	Library string
}

// Desc describes an installed toolchain.
type Desc struct {
	// Release of the toolkit, for example "12.4".
	Release string

	// PTXAS is the path of the assembler binary.
	PTXAS string

	// NVLink is the path of the device linker binary.
	NVLink string

	// DeviceRuntime locates the device runtime library.
	DeviceRuntime DeviceRuntime

	// ISAs overrides the instruction sets derived from Release.
	ISAs []string

	// Archs overrides the architectures derived from Release.
	Archs []string
}

// Toolchain is an installed toolkit the compiler shells out to.
type Toolchain struct {
	release       string
	ptxas         string
	nvlink        string
	deviceRuntime DeviceRuntime
	isas          *vers.Set
	archs         *vers.Set
}

// New returns a toolchain given its description. Capability sets not
// given explicitly are derived from the release version.
func New(desc Desc) (*Toolchain, error) {
	release, err := vers.Canon(desc.Release)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid toolkit release %q", desc.Release)
	}
	if desc.PTXAS == "" {
		return nil, errors.Errorf("toolchain has no assembler")
	}
	tc := &Toolchain{
		release:       release,
		ptxas:         desc.PTXAS,
		nvlink:        desc.NVLink,
		deviceRuntime: desc.DeviceRuntime,
	}
	if len(desc.ISAs) > 0 {
		if tc.isas, err = vers.NewSet(desc.ISAs...); err != nil {
			return nil, err
		}
	}
	if len(desc.Archs) > 0 {
		if tc.archs, err = vers.NewSet(desc.Archs...); err != nil {
			return nil, err
		}
	}
	if tc.isas != nil && tc.archs != nil {
		return tc, nil
	}
	isas, archs, err := SupportFor(release)
	if err != nil {
		return nil, err
	}
	if tc.isas == nil {
		tc.isas = isas
	}
	if tc.archs == nil {
		tc.archs = archs
	}
	return tc, nil
}

// Release of the toolkit.
func (tc *Toolchain) Release() string {
	return tc.release
}

// ISAs returns the instruction set versions the assembler parses.
func (tc *Toolchain) ISAs() *vers.Set {
	return tc.isas
}

// Archs returns the architectures the assembler encodes.
func (tc *Toolchain) Archs() *vers.Set {
	return tc.archs
}
