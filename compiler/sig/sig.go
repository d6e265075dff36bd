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

// Package sig models the signature of a kernel as it crosses the
// host-device boundary.
//
// A kernel parameter occupies space in the device parameter memory
// according to its type. Ghost types occupy none: they exist for the
// code generator but never reach the device.
package sig

import (
	"fmt"
	"strings"

	"github.com/gx-org/backend/dtype"
	"github.com/gx-org/backend/shape"
)

const (
	// pointerSize is the size of a device pointer in bytes.
	pointerSize = 8

	// arrayHeaderWords counts the non-extent words of an array
	// descriptor: data pointer, byte length, element count.
	arrayHeaderWords = 3
)

// Type of a kernel parameter.
type Type interface {
	// String returns a canonical representation of the type.
	// Two types with the same string occupy parameter memory identically.
	String() string

	// SizeOf returns the parameter space footprint in bytes.
	SizeOf() int

	// AlignOf returns the alignment of the type in bytes.
	AlignOf() int

	// Ghost reports whether the parameter occupies no parameter space.
	Ghost() bool
}

type scalar struct {
	dt dtype.DataType
}

// Scalar returns the type of an atomic value.
func Scalar(dt dtype.DataType) Type {
	return scalar{dt: dt}
}

func (s scalar) String() string {
	return s.dt.String()
}

func (s scalar) SizeOf() int {
	return dtype.Sizeof(s.dt)
}

func (s scalar) AlignOf() int {
	return dtype.Sizeof(s.dt)
}

func (s scalar) Ghost() bool {
	return false
}

type pointer struct {
	elem Type
}

// Pointer returns the type of a device pointer to elem.
func Pointer(elem Type) Type {
	return pointer{elem: elem}
}

func (p pointer) String() string {
	return "*" + p.elem.String()
}

func (p pointer) SizeOf() int {
	return pointerSize
}

func (p pointer) AlignOf() int {
	return pointerSize
}

func (p pointer) Ghost() bool {
	return false
}

type array struct {
	dt   dtype.DataType
	rank int
}

// Array returns the type of a device array descriptor passed by value:
// a data pointer, a byte length, an element count, and one extent per axis.
func Array(dt dtype.DataType, rank int) Type {
	return array{dt: dt, rank: rank}
}

// FromShape returns the array descriptor type of a backend shape.
func FromShape(sh *shape.Shape) Type {
	return Array(sh.DType, len(sh.AxisLengths))
}

func (a array) String() string {
	return strings.Repeat("[]", a.rank) + a.dt.String()
}

func (a array) SizeOf() int {
	return pointerSize * (arrayHeaderWords + a.rank)
}

func (a array) AlignOf() int {
	return pointerSize
}

func (a array) Ghost() bool {
	return false
}

type structT struct {
	name   string
	fields []Type
}

// Struct returns an aggregate type with naturally aligned fields.
func Struct(name string, fields ...Type) Type {
	return structT{name: name, fields: fields}
}

func (st structT) String() string {
	fields := make([]string, len(st.fields))
	for i, f := range st.fields {
		fields[i] = f.String()
	}
	return fmt.Sprintf("%s{%s}", st.name, strings.Join(fields, ", "))
}

func (st structT) SizeOf() int {
	size := 0
	for _, f := range st.fields {
		size = alignUp(size, f.AlignOf()) + f.SizeOf()
	}
	return alignUp(size, st.AlignOf())
}

func (st structT) AlignOf() int {
	align := 1
	for _, f := range st.fields {
		if a := f.AlignOf(); a > align {
			align = a
		}
	}
	return align
}

func (st structT) Ghost() bool {
	return false
}

type ghost struct {
	name string
}

// Ghost returns a zero-size marker type. The code generator sees it,
// the device never does.
func Ghost(name string) Type {
	return ghost{name: name}
}

func (g ghost) String() string {
	return g.name
}

func (g ghost) SizeOf() int {
	return 0
}

func (g ghost) AlignOf() int {
	return 1
}

func (g ghost) Ghost() bool {
	return true
}

type constant struct {
	t Type
}

// Constant marks a parameter folded into the generated code at compile
// time. It occupies no parameter space.
func Constant(t Type) Type {
	return constant{t: t}
}

func (c constant) String() string {
	return "const " + c.t.String()
}

func (c constant) SizeOf() int {
	return 0
}

func (c constant) AlignOf() int {
	return 1
}

func (c constant) Ghost() bool {
	return true
}

func alignUp(off, align int) int {
	if align <= 1 {
		return off
	}
	return (off + align - 1) / align * align
}
