// Copyright 2024 Google LLC
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

// Package api exposes the kernel compilation runtime.
//
// A Runtime owns the configuration cache, the per-context kernel cache
// and the deferred compilation queue. Embedding programs hand it
// method sources and get back kernels loaded on their contexts.
package api

import (
	"github.com/ptx-org/ptxc/api/options"
	"github.com/ptx-org/ptxc/compiler"
	"github.com/ptx-org/ptxc/compiler/deferred"
	"github.com/ptx-org/ptxc/compiler/sig"
	"github.com/ptx-org/ptxc/compiler/target"
	"github.com/ptx-org/ptxc/driver"
)

// Runtime compiles methods into kernels through a backend.
type Runtime struct {
	bck     compiler.Backend
	configs *target.Cache
	kernels kernelCache
	queue   *deferred.Queue
}

// New returns a runtime compiling through a backend.
func New(bck compiler.Backend) *Runtime {
	return &Runtime{
		bck:     bck,
		configs: target.NewCache(bck.Resolve),
		queue:   deferred.NewQueue(),
	}
}

// Config returns the compilation target of a device under some
// options. Targets are resolved once per device and option set.
func (rtm *Runtime) Config(dev driver.Device, opts ...options.Option) (*target.Config, error) {
	set, err := options.NewSet(opts...)
	if err != nil {
		return nil, err
	}
	return rtm.configs.GetOrBuild(dev, set)
}

// Kernel compiles a method for a context and loads it, or returns the
// kernel already loaded for an identical request. At most one
// compilation runs per request and context.
func (rtm *Runtime) Kernel(ctx driver.Context, src compiler.Source, sg *sig.Signature, opts ...options.Option) (*Kernel, error) {
	set, err := options.NewSet(opts...)
	if err != nil {
		return nil, err
	}
	cfg, err := rtm.configs.GetOrBuild(ctx.Device(), set)
	if err != nil {
		return nil, err
	}
	job := &compiler.Job{
		Source:       src,
		Sig:          sg,
		Kernel:       true,
		Name:         set.Name(),
		AlwaysInline: set.AlwaysInline(),
		Config:       cfg,
	}
	return rtm.kernels.getOrCompile(ctx, job.Fingerprint(), func() (*Kernel, error) {
		art, err := compiler.Compile(rtm.bck, rtm.queue, job, set.Sink())
		if err != nil {
			return nil, err
		}
		return load(ctx, art, set.Sink())
	})
}

// EvictContext drops the kernels cached for a context. Call it when
// the context is destroyed; the driver unloads the context's modules
// with it.
func (rtm *Runtime) EvictContext(ctx driver.Context) {
	rtm.kernels.evict(ctx)
}

// Deferred returns the queue of kernels waiting for compilation.
func (rtm *Runtime) Deferred() *deferred.Queue {
	return rtm.queue
}
