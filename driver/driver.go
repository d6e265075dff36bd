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

// Package driver defines the contract between the compiler and the GPU driver.
//
// The compiler never talks to the vendor driver directly. The embedding
// runtime implements these interfaces on top of whatever binding it uses and
// injects them; tests inject in-memory fakes (see drivertest).
package driver

import (
	stderrors "errors"

	"github.com/pkg/errors"
)

// ErrOutOfMemory reports that the device rejected an allocation.
//
// Implementations wrap their binding's out-of-memory condition with
// this sentinel so that module loads can be retried after reclaiming
// cached resources.
var ErrOutOfMemory = errors.New("device out of memory")

// IsOOM reports whether err is classified as a device out-of-memory
// condition anywhere in its chain.
func IsOOM(err error) bool {
	return stderrors.Is(err, ErrOutOfMemory)
}

type (
	// Device is a GPU installed on the host.
	Device interface {
		// Ordinal of the device on the host, starting at 0.
		Ordinal() int

		// Capability returns the compute capability of the device
		// as a canonical version string (for example "v8.0").
		Capability() string
	}

	// Context is an execution context on a device. Compiled kernels are
	// only valid within the context they were loaded in.
	Context interface {
		// Device owning the context.
		Device() Device

		// Load a linked binary image into the context.
		Load(image []byte) (Module, error)

		// Reclaim releases cached device resources held by the
		// context so that a failed load can be retried.
		Reclaim() error
	}

	// Module is a binary image loaded into a context.
	Module interface {
		// Function returns the handle of a kernel function given
		// its entry point name in the image.
		Function(name string) (Function, error)

		// Unload the module from its context.
		Unload() error
	}

	// Function is an executable kernel handle. Launching it is the
	// embedding runtime's affair.
	Function interface {
		// Name of the function in the module.
		Name() string
	}
)
