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

// Package vers provides ordered sets of version numbers.
//
// Versions are semver strings of the form "v<major>.<minor>" and are
// compared with [golang.org/x/mod/semver]. Capability matrices (instruction
// set levels, architecture levels) are represented as immutable sets.
package vers

import (
	"slices"
	"strconv"
	"strings"

	"github.com/pkg/errors"
	"github.com/ptx-org/ptxc/base/stringseq"
	"golang.org/x/mod/semver"
)

// Set is an immutable, ascending set of versions.
type Set struct {
	list []string
}

// Canon normalises a version to its canonical "v<major>.<minor>" form.
// A missing "v" prefix is added so that callers can write "8.3".
func Canon(v string) (string, error) {
	if !strings.HasPrefix(v, "v") {
		v = "v" + v
	}
	if !semver.IsValid(v) {
		return "", errors.Errorf("invalid version %q", v)
	}
	return semver.MajorMinor(v), nil
}

// NewSet returns a set given a list of versions.
// Duplicates are removed and the versions are sorted in ascending order.
func NewSet(versions ...string) (*Set, error) {
	list := make([]string, 0, len(versions))
	for _, v := range versions {
		cv, err := Canon(v)
		if err != nil {
			return nil, err
		}
		if slices.Contains(list, cv) {
			continue
		}
		list = append(list, cv)
	}
	slices.SortFunc(list, semver.Compare)
	return &Set{list: list}, nil
}

// MustSet returns a set given a list of versions, panicking on invalid input.
// Only for static tables.
func MustSet(versions ...string) *Set {
	s, err := NewSet(versions...)
	if err != nil {
		panic(err)
	}
	return s
}

// Len returns the number of versions in the set.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.list)
}

// Empty returns true if the set has no version.
func (s *Set) Empty() bool {
	return s.Len() == 0
}

// Max returns the highest version in the set.
func (s *Set) Max() (string, bool) {
	if s.Empty() {
		return "", false
	}
	return s.list[len(s.list)-1], true
}

// Contains returns true if the set contains a version.
func (s *Set) Contains(v string) bool {
	if s.Empty() {
		return false
	}
	cv, err := Canon(v)
	if err != nil {
		return false
	}
	return slices.Contains(s.list, cv)
}

// AtLeast returns the subset of versions greater than or equal to a floor.
func (s *Set) AtLeast(lo string) *Set {
	return s.filter(func(v string) bool {
		return semver.Compare(v, lo) >= 0
	})
}

// Between returns the subset of versions within [lo, hi], bounds included.
func (s *Set) Between(lo, hi string) *Set {
	return s.filter(func(v string) bool {
		return semver.Compare(v, lo) >= 0 && semver.Compare(v, hi) <= 0
	})
}

// Intersect returns the set of versions present in both sets.
func (s *Set) Intersect(o *Set) *Set {
	return s.filter(o.Contains)
}

func (s *Set) filter(keep func(string) bool) *Set {
	n := &Set{}
	for v := range s.Iter() {
		if keep(v) {
			n.list = append(n.list, v)
		}
	}
	return n
}

// Iter returns an iterator over the versions in ascending order.
func (s *Set) Iter() func(func(string) bool) {
	return func(yield func(string) bool) {
		if s == nil {
			return
		}
		for _, v := range s.list {
			if !yield(v) {
				return
			}
		}
	}
}

// String returns the versions as a human readable list.
func (s *Set) String() string {
	return stringseq.Join(func(yield func(string) bool) {
		for v := range s.Iter() {
			if !yield(Human(v)) {
				return
			}
		}
	}, ", ")
}

// Parts returns the major and minor components of a version.
func Parts(v string) (major, minor int, err error) {
	cv, err := Canon(v)
	if err != nil {
		return 0, 0, err
	}
	sp := strings.SplitN(strings.TrimPrefix(cv, "v"), ".", 2)
	if major, err = strconv.Atoi(sp[0]); err != nil {
		return 0, 0, errors.Errorf("invalid version %q: %v", v, err)
	}
	minor = 0
	if len(sp) == 2 {
		if minor, err = strconv.Atoi(sp[1]); err != nil {
			return 0, 0, errors.Errorf("invalid version %q: %v", v, err)
		}
	}
	return major, minor, nil
}

// Human returns a version without its "v" prefix, for error messages.
func Human(v string) string {
	return strings.TrimPrefix(v, "v")
}
