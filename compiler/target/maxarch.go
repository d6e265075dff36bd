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

package target

import (
	"github.com/ptx-org/ptxc/base/vers"
	"golang.org/x/exp/maps"
	"golang.org/x/mod/semver"
)

// maxArchForISA maps an instruction set version to the newest
// architecture it can encode, from the ISA reference manuals.
var maxArchForISA = map[string]string{
	"v6.0": "v7.0",
	"v6.1": "v7.2",
	"v6.3": "v7.5",
	"v7.0": "v8.0",
	"v7.1": "v8.6",
	"v7.4": "v8.7",
	"v7.8": "v9.0",
	"v8.6": "v10.0",
	"v8.7": "v12.0",
}

var maxArchISAs = vers.MustSet(maps.Keys(maxArchForISA)...)

// MaxArchFor returns the newest architecture encodable at an
// instruction set version. Versions between two table entries bound
// the same architectures as the older entry.
func MaxArchFor(isa string) (string, bool) {
	canon, err := vers.Canon(isa)
	if err != nil {
		return "", false
	}
	if arch, ok := maxArchForISA[canon]; ok {
		return arch, true
	}
	best := ""
	for v := range maxArchISAs.Iter() {
		if semver.Compare(v, canon) > 0 {
			break
		}
		best = v
	}
	if best == "" {
		return "", false
	}
	return maxArchForISA[best], true
}
