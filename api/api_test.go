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

package api_test

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/gx-org/backend/dtype"
	"github.com/pkg/errors"
	"github.com/ptx-org/ptxc/api"
	"github.com/ptx-org/ptxc/api/options"
	"github.com/ptx-org/ptxc/compiler"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/ptx-org/ptxc/compiler/ptx"
	"github.com/ptx-org/ptxc/compiler/sig"
	"github.com/ptx-org/ptxc/driver/drivertest"
	"github.com/ptx-org/ptxc/tests/testcomp"
)

var vaddSrc = compiler.Source{Name: "vadd", ID: 1}

func vaddSig() *sig.Signature {
	return sig.New(
		sig.P("x", sig.Pointer(sig.Scalar(dtype.Float32))),
		sig.P("n", sig.Scalar(dtype.Int32)),
	)
}

func newRuntime(t *testing.T) (*api.Runtime, *testcomp.Generator) {
	t.Helper()
	t.Setenv("PTXC_DEBUG", "")
	t.Setenv("BUILDKITE", "")
	gen := testcomp.NewGenerator()
	return api.New(ptx.New(gen, testcomp.Toolchain(t))), gen
}

func TestKernelCached(t *testing.T) {
	rtm, gen := newRuntime(t)
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	k1, err := rtm.Kernel(ctx, vaddSrc, vaddSig())
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	k2, err := rtm.Kernel(ctx, vaddSrc, vaddSig())
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	if k1 != k2 {
		t.Errorf("two kernels for one request in one context")
	}
	if gen.Calls() != 1 {
		t.Errorf("generator ran %d times but want 1", gen.Calls())
	}
	if ctx.Loads() != 1 {
		t.Errorf("module loaded %d times but want 1", ctx.Loads())
	}
	if got := string(k1.Image()); got != testcomp.Image {
		t.Errorf("image=%q but want %q", got, testcomp.Image)
	}
	if k1.Entry() != "vadd" || k1.Function().Name() != "vadd" {
		t.Errorf("entry=%s function=%s but want vadd", k1.Entry(), k1.Function().Name())
	}
	if k1.Context() != ctx {
		t.Errorf("kernel is not bound to its context")
	}
}

func TestKernelPerContext(t *testing.T) {
	rtm, gen := newRuntime(t)
	dev := drivertest.NewDevice(0, "v8.0")
	ctx1 := drivertest.NewContext(dev)
	ctx2 := drivertest.NewContext(dev)
	k1, err := rtm.Kernel(ctx1, vaddSrc, vaddSig())
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	k2, err := rtm.Kernel(ctx2, vaddSrc, vaddSig())
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	if k1 == k2 {
		t.Errorf("contexts share a kernel")
	}
	if gen.Calls() != 2 {
		t.Errorf("generator ran %d times but want one run per context", gen.Calls())
	}
	if ctx1.Loads() != 1 || ctx2.Loads() != 1 {
		t.Errorf("loads=%d,%d but want one per context", ctx1.Loads(), ctx2.Loads())
	}
	if k1.Context() != ctx1 || k2.Context() != ctx2 {
		t.Errorf("kernels are not bound to their contexts")
	}
}

func TestKernelOptionsKeyTheCache(t *testing.T) {
	rtm, gen := newRuntime(t)
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	k1, err := rtm.Kernel(ctx, vaddSrc, vaddSig())
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	k2, err := rtm.Kernel(ctx, vaddSrc, vaddSig(), options.Name("vaddWide"))
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	if k1 == k2 {
		t.Errorf("renamed kernel was served from the cache")
	}
	if k2.Entry() != "vaddWide" {
		t.Errorf("entry=%s but want vaddWide", k2.Entry())
	}
	if gen.Calls() != 2 {
		t.Errorf("generator ran %d times but want 2", gen.Calls())
	}
	k3, err := rtm.Kernel(ctx, vaddSrc, vaddSig(), options.Name("vaddWide"))
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	if k3 != k2 {
		t.Errorf("identical renamed request was compiled again")
	}
}

func TestKernelConcurrent(t *testing.T) {
	rtm, gen := newRuntime(t)
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	const requests = 16
	kernels := make([]*api.Kernel, requests)
	errs := make([]error, requests)
	var wg sync.WaitGroup
	for i := range requests {
		wg.Add(1)
		go func() {
			defer wg.Done()
			kernels[i], errs[i] = rtm.Kernel(ctx, vaddSrc, vaddSig())
		}()
	}
	wg.Wait()
	for i := range requests {
		if errs[i] != nil {
			t.Fatalf("cannot build kernel:\n%+v", errs[i])
		}
		if kernels[i] != kernels[0] {
			t.Fatalf("concurrent requests got different kernels")
		}
	}
	if gen.Calls() != 1 {
		t.Errorf("generator ran %d times under contention but want 1", gen.Calls())
	}
	if ctx.Loads() != 1 {
		t.Errorf("module loaded %d times under contention but want 1", ctx.Loads())
	}
}

func TestKernelParamSpace(t *testing.T) {
	wide := func(extra ...sig.Param) *sig.Signature {
		params := make([]sig.Param, 510)
		for i := range params {
			params[i] = sig.P(fmt.Sprintf("p%d", i), sig.Pointer(sig.Scalar(dtype.Float32)))
		}
		return sig.New(append(params, extra...)...)
	}
	rtm, gen := newRuntime(t)
	older := drivertest.NewContext(drivertest.NewDevice(0, "v6.0"))
	newer := drivertest.NewContext(drivertest.NewDevice(1, "v8.0"))
	// 16 state bytes + 510 pointers = 4096: the space is filled exactly.
	if _, err := rtm.Kernel(older, compiler.Source{Name: "fit", ID: 2}, wide()); err != nil {
		t.Fatalf("a kernel filling the parameter space must compile:\n%+v", err)
	}
	// One more byte overflows on the older device only.
	flag := sig.P("flag", sig.Scalar(dtype.Bool))
	_, err := rtm.Kernel(older, compiler.Source{Name: "wide", ID: 3}, wide(flag))
	if err == nil {
		t.Fatalf("compiled a kernel exceeding the parameter space")
	}
	if !comperr.IsKind(err, comperr.ParamSpace) {
		t.Errorf("error kind=%v but want %v", comperr.KindOf(err), comperr.ParamSpace)
	}
	if !strings.Contains(err.Error(), "p0 *float32: 8 bytes") {
		t.Errorf("error misses the parameter layout:\n%s", err.Error())
	}
	if gen.Calls() != 1 {
		t.Errorf("code was generated for a kernel that cannot launch")
	}
	if _, err := rtm.Kernel(newer, compiler.Source{Name: "wide", ID: 3}, wide(flag)); err != nil {
		t.Fatalf("the device raises the parameter space limit:\n%+v", err)
	}
}

func TestKernelOOMRetry(t *testing.T) {
	rtm, _ := newRuntime(t)
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	ctx.OOMLoads = 1
	var diags []comperr.Diagnostic
	sink := comperr.Sink(func(d comperr.Diagnostic) {
		diags = append(diags, d)
	})
	k, err := rtm.Kernel(ctx, vaddSrc, vaddSig(), options.WithDiagnostics(sink))
	if err != nil {
		t.Fatalf("load was not retried after reclaiming:\n%+v", err)
	}
	if ctx.Loads() != 2 || ctx.Reclaims() != 1 {
		t.Errorf("loads=%d reclaims=%d but want 2 and 1", ctx.Loads(), ctx.Reclaims())
	}
	if got := string(k.Image()); got != testcomp.Image {
		t.Errorf("image=%q but want %q", got, testcomp.Image)
	}
	var warned bool
	for _, d := range diags {
		if d.Severity == comperr.Warning && d.Component == "loader" {
			warned = true
		}
	}
	if !warned {
		t.Errorf("no loader warning for the reclaimed load: %v", diags)
	}
}

func TestKernelOOMExhausted(t *testing.T) {
	rtm, _ := newRuntime(t)
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	ctx.OOMLoads = 2
	_, err := rtm.Kernel(ctx, vaddSrc, vaddSig())
	if err == nil {
		t.Fatalf("load succeeded on a full device")
	}
	if !comperr.IsKind(err, comperr.OutOfMemory) {
		t.Errorf("error kind=%v but want %v", comperr.KindOf(err), comperr.OutOfMemory)
	}
	if ctx.Loads() != 2 || ctx.Reclaims() != 1 {
		t.Errorf("loads=%d reclaims=%d but want exactly one retry", ctx.Loads(), ctx.Reclaims())
	}
}

func TestKernelLoadFailure(t *testing.T) {
	rtm, _ := newRuntime(t)
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	ctx.LoadErr = errors.New("device-side syntax error")
	_, err := rtm.Kernel(ctx, vaddSrc, vaddSig())
	if err == nil {
		t.Fatalf("load succeeded on a rejecting context")
	}
	if !comperr.IsKind(err, comperr.ModuleLoad) {
		t.Errorf("error kind=%v but want %v", comperr.KindOf(err), comperr.ModuleLoad)
	}
}

func TestKernelMissingEntry(t *testing.T) {
	rtm, _ := newRuntime(t)
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	ctx.Entries = []string{"somethingElse"}
	_, err := rtm.Kernel(ctx, vaddSrc, vaddSig())
	if err == nil {
		t.Fatalf("entry point resolved in a module without it")
	}
	if !comperr.IsKind(err, comperr.ModuleLoad) {
		t.Errorf("error kind=%v but want %v", comperr.KindOf(err), comperr.ModuleLoad)
	}
	if !strings.Contains(err.Error(), "vadd") {
		t.Errorf("error does not name the entry point:\n%s", err.Error())
	}
}

func TestKernelErrorNotCached(t *testing.T) {
	rtm, gen := newRuntime(t)
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	gen.Err = errors.New("unsupported operation")
	if _, err := rtm.Kernel(ctx, vaddSrc, vaddSig()); err == nil {
		t.Fatalf("compilation succeeded with a failing generator")
	}
	gen.Err = nil
	if _, err := rtm.Kernel(ctx, vaddSrc, vaddSig()); err != nil {
		t.Fatalf("failed compilation was cached:\n%+v", err)
	}
	if gen.Calls() != 2 {
		t.Errorf("generator ran %d times but want 2", gen.Calls())
	}
}

func TestEvictContext(t *testing.T) {
	rtm, gen := newRuntime(t)
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	k1, err := rtm.Kernel(ctx, vaddSrc, vaddSig())
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	rtm.EvictContext(ctx)
	k2, err := rtm.Kernel(ctx, vaddSrc, vaddSig())
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	if k1 == k2 {
		t.Errorf("evicted kernel was served from the cache")
	}
	if gen.Calls() != 2 || ctx.Loads() != 2 {
		t.Errorf("calls=%d loads=%d but want recompilation after eviction", gen.Calls(), ctx.Loads())
	}
}

func TestConfig(t *testing.T) {
	rtm, _ := newRuntime(t)
	dev := drivertest.NewDevice(0, "v8.0")
	cfg1, err := rtm.Config(dev)
	if err != nil {
		t.Fatalf("cannot resolve:\n%+v", err)
	}
	cfg2, err := rtm.Config(dev)
	if err != nil {
		t.Fatalf("cannot resolve:\n%+v", err)
	}
	if cfg1 != cfg2 {
		t.Errorf("device target was resolved twice")
	}
	cfg3, err := rtm.Config(dev, options.Debug(1))
	if err != nil {
		t.Fatalf("cannot resolve:\n%+v", err)
	}
	if cfg3 == cfg1 {
		t.Errorf("debug target was served from the default entry")
	}
	if !cfg3.LineInfo || cfg3.Debug {
		t.Errorf("debug level 1 resolved to %+v but want line info only", cfg3)
	}
}

func TestConfigUnsupportedDevice(t *testing.T) {
	rtm, _ := newRuntime(t)
	_, err := rtm.Config(drivertest.NewDevice(0, "v3.0"))
	if err == nil {
		t.Fatalf("resolved a target for a device below every architecture")
	}
	if !comperr.IsKind(err, comperr.UnsupportedArch) {
		t.Errorf("error kind=%v but want %v", comperr.KindOf(err), comperr.UnsupportedArch)
	}
}

func TestDeferred(t *testing.T) {
	rtm, gen := newRuntime(t)
	gen.Deferred = []string{"childKernel"}
	ctx := drivertest.NewContext(drivertest.NewDevice(0, "v8.0"))
	k, err := rtm.Kernel(ctx, vaddSrc, vaddSig())
	if err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	if len(k.DeferredIDs()) != 1 || k.DeferredIDs()[0] != 1 {
		t.Fatalf("deferred ids=%v but want [1]", k.DeferredIDs())
	}
	job, err := rtm.Deferred().Resolve(1)
	if err != nil {
		t.Fatalf("cannot resolve the deferred kernel:\n%+v", err)
	}
	if job.Method != "childKernel" {
		t.Errorf("deferred method=%s but want childKernel", job.Method)
	}
	if _, err := rtm.Kernel(ctx, vaddSrc, vaddSig()); err != nil {
		t.Fatalf("cannot build kernel:\n%+v", err)
	}
	if rtm.Deferred().Size() != 1 {
		t.Errorf("cached request enqueued again: %d jobs", rtm.Deferred().Size())
	}
}
