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

package compiler

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/ptx-org/ptxc/compiler/sig"
	"github.com/ptx-org/ptxc/compiler/target"
)

type (
	// Source identifies a method of the host program.
	Source struct {
		// Name of the method.
		Name string

		// ID is the stable numeric identity deferred launches
		// refer to.
		ID uint64
	}

	// Job is a request to compile one method for one target.
	Job struct {
		// Source identifies the method to compile.
		Source Source

		// Sig lists the kernel parameters.
		Sig *sig.Signature

		// Kernel compiles a launchable entry point instead of a
		// plain device function.
		Kernel bool

		// Name overrides the entry point name derived from Source.
		Name string

		// AlwaysInline forces device functions into the entry point.
		AlwaysInline bool

		// Config is the resolved compilation target.
		Config *target.Config
	}

	// Artifact is the outcome of compiling a job.
	Artifact struct {
		// Image is the binary loadable on a device.
		Image []byte

		// Entry is the name of the entry point inside the image.
		Entry string

		// ExternalGlobals lists device globals the host initializes.
		ExternalGlobals []string

		// DeferredIDs are the queue ids of kernels discovered
		// during lowering and left for later compilation.
		DeferredIDs []int
	}
)

// EntryName returns the name the entry point is compiled under: the
// override when set, the source name otherwise, sanitized for the
// assembler.
func (job *Job) EntryName() string {
	name := job.Name
	if name == "" {
		name = job.Source.Name
	}
	return SafeName(name)
}

// SafeName rewrites a method name into an identifier the assembler
// accepts: letters, digits and underscores, not starting with a digit.
// Every other character becomes an underscore.
func SafeName(name string) string {
	var s strings.Builder
	for i, r := range name {
		switch {
		case r == '_' || (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z'):
		case r >= '0' && r <= '9':
			if i == 0 {
				s.WriteByte('_')
			}
		default:
			s.WriteByte('_')
			continue
		}
		s.WriteRune(r)
	}
	return s.String()
}

// Fingerprint returns a stable key covering every field of the job.
// Jobs with equal fingerprints compile to interchangeable artifacts.
// The job must carry a resolved config.
func (job *Job) Fingerprint() string {
	h := sha256.New()
	fmt.Fprintf(h, "source=%s#%d\n", job.Source.Name, job.Source.ID)
	fmt.Fprintf(h, "sig=%s\n", job.Sig.Canonical())
	fmt.Fprintf(h, "kernel=%t name=%s inline=%t\n", job.Kernel, job.Name, job.AlwaysInline)
	fmt.Fprintf(h, "target=%s\n", job.Config.Canonical())
	return hex.EncodeToString(h.Sum(nil))
}
