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

// Package compiler turns methods of the host program into binary
// kernel images.
//
// A Job pairs a method with a resolved target configuration. A Backend
// lowers the job to device assembly and assembles it into an Artifact.
// The shipped backend compiles to PTX (see the ptx package).
package compiler

import (
	"github.com/ptx-org/ptxc/api/options"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/ptx-org/ptxc/compiler/deferred"
	"github.com/ptx-org/ptxc/compiler/kparams"
	"github.com/ptx-org/ptxc/compiler/lower"
	"github.com/ptx-org/ptxc/compiler/target"
	"github.com/ptx-org/ptxc/driver"
)

// Backend compiles jobs to one device code format.
type Backend interface {
	// Resolve computes the compilation target for a device.
	Resolve(dev driver.Device, set *options.Set) (*target.Config, error)

	// Lower generates device assembly for a job.
	Lower(job *Job) (*lower.Result, error)

	// Emit assembles lowered code into a loadable image.
	Emit(cfg *target.Config, res *lower.Result, sink comperr.Sink) ([]byte, error)
}

// Compile runs a job through a backend.
//
// Kernel parameters are validated before any code is generated.
// Kernels discovered for deferred compilation are enqueued and their
// ids recorded on the artifact.
func Compile(bck Backend, queue *deferred.Queue, job *Job, sink comperr.Sink) (*Artifact, error) {
	if job.Config == nil {
		return nil, comperr.Errorf(comperr.Internal, "job %s has no compilation target", job.Source.Name)
	}
	if job.Kernel {
		if err := kparams.Validate(job.Config, job.Sig, sink); err != nil {
			return nil, err
		}
	}
	res, err := bck.Lower(job)
	if err != nil {
		return nil, err
	}
	image, err := bck.Emit(job.Config, res, sink)
	if err != nil {
		return nil, err
	}
	art := &Artifact{
		Image:           image,
		Entry:           res.Entry,
		ExternalGlobals: res.ExternalGlobals,
	}
	if len(res.Deferred) > 0 && queue == nil {
		return nil, comperr.Errorf(comperr.Internal, "job %s defers kernels but has no queue to put them on", job.Source.Name)
	}
	for _, method := range res.Deferred {
		art.DeferredIDs = append(art.DeferredIDs, queue.Enqueue(method, job.Config))
	}
	return art, nil
}
