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

// Package drivertest provides an in-memory driver implementation for tests.
package drivertest

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/ptx-org/ptxc/driver"
)

// Device is a fake device with a fixed compute capability.
type Device struct {
	ordinal    int
	capability string
}

var _ driver.Device = (*Device)(nil)

// NewDevice returns a device with the given ordinal and capability
// (a canonical version string, for example "v8.0").
func NewDevice(ordinal int, capability string) *Device {
	return &Device{ordinal: ordinal, capability: capability}
}

// Ordinal of the device.
func (dev *Device) Ordinal() int {
	return dev.ordinal
}

// Capability of the device.
func (dev *Device) Capability() string {
	return dev.capability
}

// Context is a fake execution context recording loads and reclaims.
//
// The exported fields configure failure behavior and are read under the
// context lock: set them before handing the context to the code under test.
type Context struct {
	// OOMLoads is the number of Load calls to reject with
	// driver.ErrOutOfMemory before loads start succeeding.
	OOMLoads int

	// LoadErr rejects every Load call when set.
	LoadErr error

	// Entries restricts the function names modules resolve.
	// A nil slice accepts every name.
	Entries []string

	dev      *Device
	mu       sync.Mutex
	loads    int
	reclaims int
}

var _ driver.Context = (*Context)(nil)

// NewContext returns a context on a device.
func NewContext(dev *Device) *Context {
	return &Context{dev: dev}
}

// Device owning the context.
func (ctx *Context) Device() driver.Device {
	return ctx.dev
}

// Load records the image and returns a module on it.
func (ctx *Context) Load(image []byte) (driver.Module, error) {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.loads++
	if ctx.LoadErr != nil {
		return nil, ctx.LoadErr
	}
	if ctx.OOMLoads > 0 {
		ctx.OOMLoads--
		return nil, errors.Wrap(driver.ErrOutOfMemory, "cuModuleLoadDataEx")
	}
	return &Module{ctx: ctx, image: image}, nil
}

// Reclaim counts the call and frees nothing.
func (ctx *Context) Reclaim() error {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	ctx.reclaims++
	return nil
}

// Loads returns the number of Load calls, including rejected ones.
func (ctx *Context) Loads() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.loads
}

// Reclaims returns the number of Reclaim calls.
func (ctx *Context) Reclaims() int {
	ctx.mu.Lock()
	defer ctx.mu.Unlock()
	return ctx.reclaims
}

// Module is a fake loaded module.
type Module struct {
	ctx      *Context
	image    []byte
	unloaded bool
}

var _ driver.Module = (*Module)(nil)

// Image passed to Load.
func (mod *Module) Image() []byte {
	return mod.image
}

// Function resolves a kernel name in the module.
func (mod *Module) Function(name string) (driver.Function, error) {
	if mod.unloaded {
		return nil, errors.Errorf("module has been unloaded")
	}
	if mod.ctx.Entries == nil {
		return &Function{name: name}, nil
	}
	for _, entry := range mod.ctx.Entries {
		if entry == name {
			return &Function{name: name}, nil
		}
	}
	return nil, errors.Errorf("named symbol not found: %s", name)
}

// Unload marks the module as unloaded.
func (mod *Module) Unload() error {
	mod.unloaded = true
	return nil
}

// Function is a fake kernel handle.
type Function struct {
	name string
}

var _ driver.Function = (*Function)(nil)

// Name of the kernel.
func (fn *Function) Name() string {
	return fn.name
}
