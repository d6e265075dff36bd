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

// Package ptx compiles jobs to PTX assembly and turns it into device
// binaries with the vendor toolchain.
package ptx

import (
	"github.com/ptx-org/ptxc/api/options"
	"github.com/ptx-org/ptxc/compiler"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/ptx-org/ptxc/compiler/lower"
	"github.com/ptx-org/ptxc/compiler/target"
	"github.com/ptx-org/ptxc/compiler/toolchain"
	"github.com/ptx-org/ptxc/driver"
)

// Backend compiles jobs through a PTX code generator and an installed
// toolchain.
type Backend struct {
	gen lower.Generator
	tc  *toolchain.Toolchain
}

var _ compiler.Backend = (*Backend)(nil)

// New returns a backend pairing a code generator with a toolchain.
func New(gen lower.Generator, tc *toolchain.Toolchain) *Backend {
	return &Backend{gen: gen, tc: tc}
}

// Resolve computes the compilation target of a device, intersecting
// what the generator emits with what the assembler accepts.
func (b *Backend) Resolve(dev driver.Device, set *options.Set) (*target.Config, error) {
	return target.Resolve(b.gen, b.tc, dev, set)
}

// Lower generates PTX for a job.
func (b *Backend) Lower(job *compiler.Job) (*lower.Result, error) {
	return lower.Drive(b.gen, &lower.Request{
		Name:         job.EntryName(),
		ID:           job.Source.ID,
		Sig:          job.Sig,
		Kernel:       job.Kernel,
		AlwaysInline: job.AlwaysInline,
		Config:       job.Config,
	})
}

// Emit assembles lowered PTX into a loadable binary image.
func (b *Backend) Emit(cfg *target.Config, res *lower.Result, sink comperr.Sink) ([]byte, error) {
	return b.tc.Assemble(cfg, res.Assembly, res.NeedsDeviceRuntime, sink)
}
