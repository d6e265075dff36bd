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

package api

import (
	"github.com/pkg/errors"
	"github.com/ptx-org/ptxc/compiler"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/ptx-org/ptxc/driver"
	"go.uber.org/multierr"
)

// Kernel is a compiled method loaded in one context.
type Kernel struct {
	ctx driver.Context
	art *compiler.Artifact
	mod driver.Module
	fun driver.Function
}

// load loads an artifact into a context. A load failing for lack of
// device memory triggers a reclaim and exactly one retry.
func load(ctx driver.Context, art *compiler.Artifact, sink comperr.Sink) (*Kernel, error) {
	mod, err := ctx.Load(art.Image)
	if driver.IsOOM(err) {
		sink.Warn("loader", "device out of memory, reclaiming", err.Error())
		if rerr := ctx.Reclaim(); rerr != nil {
			return nil, comperr.New(comperr.OutOfMemory, multierr.Append(err, rerr))
		}
		mod, err = ctx.Load(art.Image)
	}
	switch {
	case driver.IsOOM(err):
		return nil, comperr.New(comperr.OutOfMemory, err)
	case err != nil:
		return nil, comperr.New(comperr.ModuleLoad, errors.Wrap(err, "cannot load the compiled module"))
	}
	fun, err := mod.Function(art.Entry)
	if err != nil {
		return nil, comperr.New(comperr.ModuleLoad, errors.Wrapf(err, "cannot resolve the entry point %s", art.Entry))
	}
	return &Kernel{ctx: ctx, art: art, mod: mod, fun: fun}, nil
}

// Function returns the launchable device function.
func (k *Kernel) Function() driver.Function {
	return k.fun
}

// Entry returns the name of the entry point in the image.
func (k *Kernel) Entry() string {
	return k.art.Entry
}

// Image returns the binary loaded on the device.
func (k *Kernel) Image() []byte {
	return k.art.Image
}

// ExternalGlobals lists the module globals the host initializes
// before launch.
func (k *Kernel) ExternalGlobals() []string {
	return k.art.ExternalGlobals
}

// DeferredIDs returns the queue ids of the kernels this one launches.
func (k *Kernel) DeferredIDs() []int {
	return k.art.DeferredIDs
}

// Module returns the loaded module backing the kernel.
func (k *Kernel) Module() driver.Module {
	return k.mod
}

// Context the kernel is loaded in.
func (k *Kernel) Context() driver.Context {
	return k.ctx
}
