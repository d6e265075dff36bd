package target_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/ptx-org/ptxc/api/options"
	"github.com/ptx-org/ptxc/base/vers"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/ptx-org/ptxc/compiler/target"
	"github.com/ptx-org/ptxc/driver/drivertest"
)

type caps struct {
	isas  *vers.Set
	archs *vers.Set
}

func newCaps(isas, archs []string) caps {
	return caps{isas: vers.MustSet(isas...), archs: vers.MustSet(archs...)}
}

func (c caps) ISAs() *vers.Set {
	return c.isas
}

func (c caps) Archs() *vers.Set {
	return c.archs
}

type tcInfo struct {
	caps
	release string
}

func (tc tcInfo) Release() string {
	return tc.release
}

var (
	allArchs = []string{"3.5", "5.0", "6.0", "6.1", "7.0", "7.5", "8.0", "8.6", "9.0"}

	testGen = newCaps([]string{"6.0", "7.0", "8.0", "8.3"}, allArchs)
	testTC  = tcInfo{
		caps:    newCaps([]string{"6.0", "7.0", "8.0", "8.4"}, allArchs),
		release: "v12.4",
	}
)

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		gen      target.Capabilities
		tc       target.ToolchainInfo
		devCap   string
		opts     []options.Option
		want     *target.Config
		wantKind comperr.Kind
		wantErr  bool
	}{
		{
			name:   "unpinned picks the best mutual versions",
			gen:    testGen,
			tc:     testTC,
			devCap: "v8.0",
			want: &target.Config{
				ISA:          "v8.3",
				ToolchainISA: "v8.4",
				Arch:         "v8.0",
			},
		},
		{
			name:   "pinned isa emits at the best generator version",
			gen:    testGen,
			tc:     testTC,
			devCap: "v8.0",
			opts:   []options.Option{options.ISA("8.0")},
			want: &target.Config{
				ISA:          "v8.3",
				ToolchainISA: "v8.0",
				Arch:         "v8.0",
			},
		},
		{
			name:     "pinned isa newer than the generator",
			gen:      testGen,
			tc:       testTC,
			devCap:   "v8.0",
			opts:     []options.Option{options.ISA("9.9")},
			wantErr:  true,
			wantKind: comperr.UnsupportedISA,
		},
		{
			name:   "pinned arch below the device capability",
			gen:    testGen,
			tc:     testTC,
			devCap: "v8.0",
			opts:   []options.Option{options.Arch("7.0")},
			want: &target.Config{
				ISA:          "v8.3",
				ToolchainISA: "v8.4",
				Arch:         "v7.0",
			},
		},
		{
			name:     "pinned arch above the device capability",
			gen:      testGen,
			tc:       testTC,
			devCap:   "v8.0",
			opts:     []options.Option{options.Arch("9.0")},
			wantErr:  true,
			wantKind: comperr.UnsupportedArch,
		},
		{
			name:     "pinned arch unknown to the toolchain",
			gen:      testGen,
			tc:       tcInfo{caps: newCaps([]string{"8.0"}, []string{"7.0", "7.5"}), release: "v12.4"},
			devCap:   "v8.0",
			opts:     []options.Option{options.Arch("8.0")},
			wantErr:  true,
			wantKind: comperr.UnsupportedArch,
		},
		{
			name:   "old instruction set bounds the architecture",
			gen:    newCaps([]string{"6.0"}, allArchs),
			tc:     tcInfo{caps: newCaps([]string{"6.0"}, allArchs), release: "v9.0"},
			devCap: "v8.0",
			want: &target.Config{
				ISA:          "v6.0",
				ToolchainISA: "v6.0",
				Arch:         "v7.0",
			},
		},
		{
			name:   "device capability bounds the architecture",
			gen:    testGen,
			tc:     testTC,
			devCap: "v6.1",
			want: &target.Config{
				ISA:          "v8.3",
				ToolchainISA: "v8.4",
				Arch:         "v6.1",
			},
		},
		{
			name:   "debug level one keeps line tables only",
			gen:    testGen,
			tc:     testTC,
			devCap: "v8.0",
			opts:   []options.Option{options.Debug(1)},
			want: &target.Config{
				ISA:          "v8.3",
				ToolchainISA: "v8.4",
				Arch:         "v8.0",
				LineInfo:     true,
			},
		},
		{
			name:   "debug level two enables full debug info",
			gen:    testGen,
			tc:     testTC,
			devCap: "v8.0",
			opts:   []options.Option{options.Debug(2)},
			want: &target.Config{
				ISA:          "v8.3",
				ToolchainISA: "v8.4",
				Arch:         "v8.0",
				Debug:        true,
				LineInfo:     true,
			},
		},
		{
			name:   "code generation flags are carried",
			gen:    testGen,
			tc:     testTC,
			devCap: "v8.0",
			opts:   []options.Option{options.MaxThreads(256), options.MinBlocks(2), options.FastMath()},
			want: &target.Config{
				ISA:          "v8.3",
				ToolchainISA: "v8.4",
				Arch:         "v8.0",
				Extra:        []string{"maxthreads=256", "minblocks=2", "fastmath"},
			},
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			t.Setenv("PTXC_DEBUG", "")
			set, err := options.NewSet(test.opts...)
			if err != nil {
				t.Fatalf("cannot build option set:\n%+v", err)
			}
			dev := drivertest.NewDevice(0, test.devCap)
			got, err := target.Resolve(test.gen, test.tc, dev, set)
			if test.wantErr {
				if err == nil {
					t.Fatalf("Resolve returned %v but want an error", got)
				}
				if kind := comperr.KindOf(err); kind != test.wantKind {
					t.Errorf("error kind=%v but want %v:\n%+v", kind, test.wantKind, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("cannot resolve configuration:\n%+v", err)
			}
			if !got.Equal(test.want) {
				t.Errorf("unexpected configuration (-want +got):\n%s", cmp.Diff(test.want, got))
			}
		})
	}
}

func TestResolveDebugDowngrade(t *testing.T) {
	t.Setenv("PTXC_DEBUG", "")
	var diags []comperr.Diagnostic
	set, err := options.NewSet(
		options.Debug(2),
		options.WithDiagnostics(func(d comperr.Diagnostic) {
			diags = append(diags, d)
		}),
	)
	if err != nil {
		t.Fatalf("cannot build option set:\n%+v", err)
	}
	oldTC := tcInfo{caps: testTC.caps, release: "v11.2"}
	cfg, err := target.Resolve(testGen, oldTC, drivertest.NewDevice(0, "v8.0"), set)
	if err != nil {
		t.Fatalf("cannot resolve configuration:\n%+v", err)
	}
	if cfg.Debug {
		t.Errorf("debug info enabled on a toolkit known to miscompile it")
	}
	if !cfg.LineInfo {
		t.Errorf("line tables dropped with the debug info")
	}
	if len(diags) != 1 {
		t.Fatalf("got %d diagnostics but want 1: %v", len(diags), diags)
	}
	if diags[0].Severity != comperr.Warning {
		t.Errorf("diagnostic severity=%v but want %v", diags[0].Severity, comperr.Warning)
	}
	if !strings.Contains(diags[0].Detail, "11.2") {
		t.Errorf("diagnostic does not name the toolkit release: %q", diags[0].Detail)
	}
}
