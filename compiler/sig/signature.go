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

package sig

import (
	"strings"

	"github.com/gx-org/backend/dtype"
)

// Param is a named kernel parameter.
type Param struct {
	Name string
	Type Type
}

// P builds a parameter.
func P(name string, t Type) Param {
	return Param{Name: name, Type: t}
}

// Signature is the ordered parameter list of a kernel.
type Signature struct {
	params []Param
}

// New returns a signature over the given parameters.
func New(params ...Param) *Signature {
	return &Signature{params: params}
}

// Params returns the parameters in declaration order.
func (sg *Signature) Params() []Param {
	if sg == nil {
		return nil
	}
	return sg.params
}

// Len returns the number of parameters.
func (sg *Signature) Len() int {
	if sg == nil {
		return 0
	}
	return len(sg.params)
}

// Canonical returns a stable encoding of the signature.
// It feeds compilation fingerprints.
func (sg *Signature) Canonical() string {
	params := make([]string, sg.Len())
	for i, p := range sg.Params() {
		params[i] = p.Name + ":" + p.Type.String()
	}
	return strings.Join(params, ";")
}

// String representation of the signature.
func (sg *Signature) String() string {
	params := make([]string, sg.Len())
	for i, p := range sg.Params() {
		params[i] = p.Name + " " + p.Type.String()
	}
	return "(" + strings.Join(params, ", ") + ")"
}

// StateParam returns the implicit parameter every kernel receives
// before its declared parameters: a pointer to the exception flag and
// the random number generator seed.
func StateParam() Param {
	return P("state", Struct("kernelState",
		Pointer(Scalar(dtype.Int32)),
		Scalar(dtype.Uint32),
	))
}
