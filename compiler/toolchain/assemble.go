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

package toolchain

import (
	"os"

	"github.com/pkg/errors"
	ptxcfmt "github.com/ptx-org/ptxc/base/fmt"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/ptx-org/ptxc/compiler/target"
)

// Assemble turns device assembly into a binary image loadable on the
// configured architecture. Kernels calling into the device runtime are
// compiled to an object and linked against the runtime library.
//
// Inputs of a failing stage are preserved on disk and named in the
// error. Intermediates are deleted once the stage consuming them
// succeeds.
func (tc *Toolchain) Assemble(cfg *target.Config, asm string, needsDeviceRuntime bool, sink comperr.Sink) ([]byte, error) {
	input, err := writeTemp("ptxc_*.ptx", []byte(asm))
	if err != nil {
		return nil, comperr.New(comperr.Internal, err)
	}
	output, err := tempPath("ptxc_*.cubin")
	if err != nil {
		return nil, comperr.New(comperr.Internal, err)
	}

	args := []string{"--verbose", "--gpu-name", cfg.SM()}
	if cfg.Debug {
		args = append(args, "--device-debug")
	} else if cfg.LineInfo {
		args = append(args, "--generate-line-info")
	}
	if needsDeviceRuntime {
		args = append(args, "--compile-only")
	}
	args = append(args, "--output-file", output, input)

	log, err := runTool(tc.ptxas, args...)
	if err != nil {
		os.Remove(output)
		uploadFailing("ptxas", input, sink)
		return nil, comperr.New(comperr.Assembler,
			errors.Wrapf(err, "cannot assemble for %s (input preserved at %s)", cfg, input))
	}
	if log != "" {
		sink.Info("ptxas", "assembler output for "+cfg.SM(), ptxcfmt.Number(log))
	}
	os.Remove(input)

	if needsDeviceRuntime {
		return tc.link(cfg, output, sink)
	}
	return readImage(output)
}

// link links an assembled object against the device runtime library.
func (tc *Toolchain) link(cfg *target.Config, object string, sink comperr.Sink) ([]byte, error) {
	if tc.nvlink == "" {
		return nil, comperr.Errorf(comperr.Linker,
			"kernel needs the device runtime but the toolchain has no linker (object preserved at %s)", object)
	}
	if tc.deviceRuntime.Library == "" {
		return nil, comperr.Errorf(comperr.Linker,
			"kernel needs the device runtime but the toolchain has no runtime library (object preserved at %s)", object)
	}
	output, err := tempPath("ptxc_*.cubin")
	if err != nil {
		return nil, comperr.New(comperr.Internal, err)
	}

	args := []string{"--verbose", "--extra-warnings", "-arch", cfg.SM()}
	if cfg.Debug {
		args = append(args, "-g")
	}
	args = append(args,
		"--library-path", tc.deviceRuntime.LibraryPath,
		"--library", tc.deviceRuntime.Library,
		object,
		"--output-file", output,
	)

	log, err := runTool(tc.nvlink, args...)
	if err != nil {
		os.Remove(output)
		return nil, comperr.New(comperr.Linker,
			errors.Wrapf(err, "cannot link for %s (object preserved at %s)", cfg, object))
	}
	if log != "" {
		sink.Info("nvlink", "linker output for "+cfg.SM(), ptxcfmt.Number(log))
	}
	os.Remove(object)
	return readImage(output)
}

// readImage reads a finished binary and removes its backing file.
func readImage(path string) ([]byte, error) {
	image, err := os.ReadFile(path)
	if err != nil {
		return nil, comperr.New(comperr.Internal, errors.Wrapf(err, "cannot read the binary image %s", path))
	}
	os.Remove(path)
	return image, nil
}
