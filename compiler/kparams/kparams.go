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

// Package kparams validates kernel parameters against the limits of
// the device parameter memory.
package kparams

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	ptxcfmt "github.com/ptx-org/ptxc/base/fmt"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/ptx-org/ptxc/compiler/sig"
	"github.com/ptx-org/ptxc/compiler/target"
	"golang.org/x/mod/semver"
)

const (
	// baseLimit is the parameter space available to a kernel launch.
	baseLimit = 4096

	// largeLimit is the parameter space on architectures and
	// instruction sets supporting large kernel parameters.
	largeLimit = 32764

	largeLimitArch = "v7.0"
	largeLimitISA  = "v8.1"
)

// Limit returns the parameter space available to a kernel compiled
// with a configuration. Large kernel parameters need both an
// architecture and an assembler instruction set supporting them.
func Limit(cfg *target.Config) int {
	if semver.Compare(cfg.Arch, largeLimitArch) >= 0 &&
		semver.Compare(cfg.ToolchainISA, largeLimitISA) >= 0 {
		return largeLimit
	}
	return baseLimit
}

// Validate checks that a kernel signature fits the parameter space of
// a configuration. It runs before any assembly is attempted so that
// oversized kernels fail with a layout report instead of an assembler
// log. Ghost parameters occupy no space and are skipped.
func Validate(cfg *target.Config, sg *sig.Signature, sink comperr.Sink) error {
	usage := sig.StateParam().Type.SizeOf()
	for _, p := range sg.Params() {
		if p.Type.Ghost() {
			continue
		}
		usage += p.Type.SizeOf()
	}
	limit := Limit(cfg)
	if usage <= limit {
		return nil
	}
	msg := fmt.Sprintf("kernel uses %s of parameter space, %s available on %s",
		ptxcfmt.Bytes(usage), ptxcfmt.Bytes(limit), cfg)
	layout, err := breakdown(sg)
	if err != nil {
		sink.Warn("kparams", "cannot build the parameter layout", err.Error())
		return comperr.Errorf(comperr.ParamSpace, "%s", msg)
	}
	return comperr.Errorf(comperr.ParamSpace, "%s\nparameter layout:\n%s", msg, layout)
}

// breakdown lists every parameter with its footprint, in declaration
// order, the implicit state parameter first. Signature types are caller
// provided: a panic while printing one degrades to an error here rather
// than losing the validation failure.
func breakdown(sg *sig.Signature) (s string, err error) {
	defer func() {
		r := recover()
		if r == nil {
			return
		}
		err = errors.Errorf("recovered from panic: %v", r)
	}()
	params := append([]sig.Param{sig.StateParam()}, sg.Params()...)
	lines := make([]string, len(params))
	for i, p := range params {
		lines[i] = fmt.Sprintf("%s %s: %s", p.Name, p.Type.String(), ptxcfmt.Bytes(p.Type.SizeOf()))
	}
	return ptxcfmt.Indent(strings.Join(lines, "\n")), nil
}
