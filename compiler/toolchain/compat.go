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
	"github.com/pkg/errors"
	"github.com/ptx-org/ptxc/base/vers"
	"golang.org/x/mod/semver"
)

// isaSince maps an instruction set version to the toolkit release
// introducing it. Assemblers keep parsing older versions, so
// instruction sets have no end of life.
var isaSince = map[string]string{
	"v6.0": "v9.0",
	"v6.1": "v9.1",
	"v6.3": "v10.0",
	"v6.4": "v10.1",
	"v6.5": "v10.2",
	"v7.0": "v11.0",
	"v7.1": "v11.1",
	"v7.2": "v11.2",
	"v7.3": "v11.3",
	"v7.4": "v11.4",
	"v7.5": "v11.5",
	"v7.6": "v11.6",
	"v7.7": "v11.7",
	"v7.8": "v11.8",
	"v8.0": "v12.0",
	"v8.1": "v12.1",
	"v8.2": "v12.2",
	"v8.3": "v12.3",
	"v8.4": "v12.4",
	"v8.5": "v12.5",
	"v8.6": "v12.6",
	"v8.7": "v12.8",
}

// archLifetime is the release span an architecture is supported in:
// from since included to until excluded. An empty until means the
// architecture is still supported.
type archLifetime struct {
	since string
	until string
}

var archSupport = map[string]archLifetime{
	"v3.5":  {since: "v9.0", until: "v12.0"},
	"v3.7":  {since: "v9.0", until: "v12.0"},
	"v5.0":  {since: "v9.0"},
	"v5.2":  {since: "v9.0"},
	"v5.3":  {since: "v9.0"},
	"v6.0":  {since: "v9.0"},
	"v6.1":  {since: "v9.0"},
	"v6.2":  {since: "v9.0"},
	"v7.0":  {since: "v9.0"},
	"v7.2":  {since: "v9.2"},
	"v7.5":  {since: "v10.0"},
	"v8.0":  {since: "v11.0"},
	"v8.6":  {since: "v11.1"},
	"v8.7":  {since: "v11.4"},
	"v8.9":  {since: "v11.8"},
	"v9.0":  {since: "v11.8"},
	"v10.0": {since: "v12.8"},
	"v12.0": {since: "v12.8"},
}

// oldestRelease is the oldest toolkit the compiler knows the
// capabilities of.
var oldestRelease = "v9.0"

// SupportFor returns the instruction sets and architectures a toolkit
// release supports.
func SupportFor(release string) (isas, archs *vers.Set, err error) {
	r, err := vers.Canon(release)
	if err != nil {
		return nil, nil, errors.Wrapf(err, "invalid toolkit release %q", release)
	}
	if semver.Compare(r, oldestRelease) < 0 {
		return nil, nil, errors.Errorf("toolkit release %s is older than the oldest supported release %s",
			vers.Human(r), vers.Human(oldestRelease))
	}
	var isaList []string
	for isa, since := range isaSince {
		if semver.Compare(since, r) <= 0 {
			isaList = append(isaList, isa)
		}
	}
	var archList []string
	for arch, life := range archSupport {
		if semver.Compare(life.since, r) > 0 {
			continue
		}
		if life.until != "" && semver.Compare(r, life.until) >= 0 {
			continue
		}
		archList = append(archList, arch)
	}
	if isas, err = vers.NewSet(isaList...); err != nil {
		return nil, nil, err
	}
	if archs, err = vers.NewSet(archList...); err != nil {
		return nil, nil, err
	}
	return isas, archs, nil
}
