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

package toolchain_test

import (
	"strings"
	"testing"

	"github.com/ptx-org/ptxc/compiler/toolchain"
)

func TestNew(t *testing.T) {
	tc, err := toolchain.New(toolchain.Desc{
		Release: "12.4",
		PTXAS:   "/usr/local/cuda/bin/ptxas",
	})
	if err != nil {
		t.Fatalf("cannot build toolchain:\n%+v", err)
	}
	if got, want := tc.Release(), "v12.4"; got != want {
		t.Errorf("release=%s but want %s", got, want)
	}
	if !tc.ISAs().Contains("v8.4") || tc.ISAs().Contains("v8.5") {
		t.Errorf("wrong derived instruction sets: %s", tc.ISAs())
	}
	if !tc.Archs().Contains("v9.0") || tc.Archs().Contains("v3.5") {
		t.Errorf("wrong derived architectures: %s", tc.Archs())
	}
}

func TestNewOverrides(t *testing.T) {
	tc, err := toolchain.New(toolchain.Desc{
		Release: "12.4",
		PTXAS:   "/usr/local/cuda/bin/ptxas",
		ISAs:    []string{"8.0", "7.0"},
		Archs:   []string{"7.0"},
	})
	if err != nil {
		t.Fatalf("cannot build toolchain:\n%+v", err)
	}
	if got, want := tc.ISAs().Len(), 2; got != want {
		t.Errorf("isas=%s but want %d versions", tc.ISAs(), want)
	}
	if !tc.ISAs().Contains("v7.0") || !tc.ISAs().Contains("v8.0") {
		t.Errorf("overridden instruction sets lost: %s", tc.ISAs())
	}
	if got, want := tc.Archs().Len(), 1; got != want {
		t.Errorf("archs=%s but want %d versions", tc.Archs(), want)
	}
}

func TestNewPartialOverride(t *testing.T) {
	tc, err := toolchain.New(toolchain.Desc{
		Release: "11.5",
		PTXAS:   "/usr/local/cuda/bin/ptxas",
		ISAs:    []string{"7.5"},
	})
	if err != nil {
		t.Fatalf("cannot build toolchain:\n%+v", err)
	}
	if got, want := tc.ISAs().Len(), 1; got != want {
		t.Errorf("isas=%s but want %d versions", tc.ISAs(), want)
	}
	if !tc.Archs().Contains("v8.6") {
		t.Errorf("architectures were not derived from the release: %s", tc.Archs())
	}
}

func TestNewErrors(t *testing.T) {
	tests := []struct {
		name string
		desc toolchain.Desc
		want string
	}{
		{
			name: "no assembler",
			desc: toolchain.Desc{Release: "12.4"},
			want: "has no assembler",
		},
		{
			name: "bad release",
			desc: toolchain.Desc{Release: "dunno", PTXAS: "/usr/bin/ptxas"},
			want: "invalid toolkit release",
		},
		{
			name: "release too old",
			desc: toolchain.Desc{Release: "8.0", PTXAS: "/usr/bin/ptxas"},
			want: "older than",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if _, err := toolchain.New(test.desc); err == nil {
				t.Fatalf("toolchain built from an invalid description")
			} else if !strings.Contains(err.Error(), test.want) {
				t.Errorf("error misses %q:\n%s", test.want, err.Error())
			}
		})
	}
}
