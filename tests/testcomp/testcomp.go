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

// Package testcomp provides scripted code generators and toolchains
// for compiler tests.
package testcomp

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"testing"

	"github.com/ptx-org/ptxc/base/vers"
	"github.com/ptx-org/ptxc/compiler/lower"
	"github.com/ptx-org/ptxc/compiler/toolchain"
)

// Image is the binary every scripted tool writes to its output file.
const Image = "PTXCIMG"

// Generator is a scripted code generator. It renders a minimal kernel
// for every request and records the requests it lowered.
type Generator struct {
	isas  *vers.Set
	archs *vers.Set

	// Err fails every Lower call when set.
	Err error

	// Functions are declared on every result.
	Functions []lower.Symbol

	// Globals are declared on every result.
	Globals []lower.Global

	// Deferred method identities reported on every result.
	Deferred []string

	mu       sync.Mutex
	requests []*lower.Request
}

// NewGenerator returns a generator advertising typical capabilities.
func NewGenerator() *Generator {
	return &Generator{
		isas:  vers.MustSet("v6.0", "v7.0", "v8.0", "v8.3"),
		archs: vers.MustSet("v5.0", "v6.0", "v7.0", "v8.0", "v9.0"),
	}
}

// ISAs returns the instruction sets the generator emits.
func (g *Generator) ISAs() *vers.Set { return g.isas }

// Archs returns the architectures the generator encodes.
func (g *Generator) Archs() *vers.Set { return g.archs }

// Lower renders assembly for a request.
func (g *Generator) Lower(req *lower.Request) (*lower.Result, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.requests = append(g.requests, req)
	if g.Err != nil {
		return nil, g.Err
	}
	major, minor, err := vers.Parts(req.Config.ISA)
	if err != nil {
		return nil, err
	}
	return &lower.Result{
		Assembly: fmt.Sprintf(".version %d.%d\n.target %s, debug\n.visible .entry %s()\n{\n\tret;\n}\n",
			major, minor, req.Config.SM(), req.Name),
		Entry:     req.Name,
		Functions: slices.Clone(g.Functions),
		Globals:   slices.Clone(g.Globals),
		Deferred:  slices.Clone(g.Deferred),
	}, nil
}

// Calls returns the number of requests lowered so far.
func (g *Generator) Calls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.requests)
}

// Requests returns the lowered requests in call order.
func (g *Generator) Requests() []*lower.Request {
	g.mu.Lock()
	defer g.mu.Unlock()
	return slices.Clone(g.requests)
}

// toolScript writes Image to the output file and logs one line, which
// is all the pipeline needs from a tool that succeeds.
const toolScript = `#!/bin/sh
out=
while [ $# -gt 0 ]; do
	case "$1" in
	--output-file) shift; out="$1" ;;
	esac
	shift
done
echo "%s info    : 0 bytes gmem"
printf '%s' > "$out"
`

func writeTool(tb testing.TB, dir, name string) string {
	tb.Helper()
	path := filepath.Join(dir, name)
	script := fmt.Sprintf(toolScript, name, Image)
	if err := os.WriteFile(path, []byte(script), 0o755); err != nil {
		tb.Fatal(err)
	}
	return path
}

// Tools writes assembler and linker scripts into a directory.
func Tools(tb testing.TB, dir string) (ptxas, nvlink string) {
	tb.Helper()
	return writeTool(tb, dir, "ptxas"), writeTool(tb, dir, "nvlink")
}

// Toolchain returns a toolchain backed by scripted tools.
func Toolchain(tb testing.TB) *toolchain.Toolchain {
	tb.Helper()
	dir := tb.TempDir()
	ptxas, nvlink := Tools(tb, dir)
	tc, err := toolchain.New(toolchain.Desc{
		Release: "12.4",
		PTXAS:   ptxas,
		NVLink:  nvlink,
		DeviceRuntime: toolchain.DeviceRuntime{
			LibraryPath: dir,
			Library:     "cudadevrt",
		},
	})
	if err != nil {
		tb.Fatalf("cannot build toolchain:\n%+v", err)
	}
	return tc
}
