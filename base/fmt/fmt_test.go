package fmt_test

import (
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	ptxcfmt "github.com/ptx-org/ptxc/base/fmt"
)

func TestNumber(t *testing.T) {
	tests := []struct {
		txt  string
		want string
	}{
		{
			txt: `
.version 8.3
.target sm_86
`,
			want: `
1 .version 8.3
2 .target sm_86
`,
		},
		{
			txt: `
Line1
Line2
Line3
Line4
Line5
Line6
Line7
Line8
Line9
Line10
`,
			want: `
01 Line1
02 Line2
03 Line3
04 Line4
05 Line5
06 Line6
07 Line7
08 Line8
09 Line9
10 Line10
`,
		},
	}
	for _, test := range tests {
		got := ptxcfmt.Number(strings.TrimSpace(test.txt))
		want := strings.TrimSpace(test.want)
		if got != want {
			t.Errorf("got:\n%s\nbut want:\n%s\ndiff:\n%s", got, want, cmp.Diff(got, want))
		}
	}
}

func TestIndent(t *testing.T) {
	got := ptxcfmt.Indent("a\nb\n")
	want := "\ta\n\tb\n"
	if got != want {
		t.Errorf("got %q but want %q", got, want)
	}
	got = ptxcfmt.IndentSkip(1, "a\nb\n")
	want = "a\n\tb\n"
	if got != want {
		t.Errorf("got %q but want %q", got, want)
	}
}

func TestBytes(t *testing.T) {
	tests := []struct {
		n    int
		want string
	}{
		{n: 16, want: "16 bytes"},
		{n: 4096, want: "4.000 KiB"},
		{n: 4097, want: "4.001 KiB"},
		{n: 32764, want: "31.996 KiB"},
		{n: 8 << 20, want: "8.000 MiB"},
	}
	for ti, test := range tests {
		if got := ptxcfmt.Bytes(test.n); got != test.want {
			t.Errorf("test %d: got %q but want %q", ti, got, test.want)
		}
	}
}
