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

// Package comperr classifies kernel compilation errors and carries
// compiler diagnostics to their sink.
package comperr

import (
	stderrors "errors"
	"fmt"

	"github.com/pkg/errors"
)

// Kind classifies a compilation error by the stage that produced it.
type Kind int

const (
	// Internal is a bug in the compiler itself.
	Internal Kind = iota
	// UnsupportedISA reports that no instruction set satisfies the request.
	UnsupportedISA
	// UnsupportedArch reports that no architecture satisfies the request.
	UnsupportedArch
	// ParamSpace reports a kernel exceeding the parameter space limit.
	ParamSpace
	// Assembler reports an assembler process failure.
	Assembler
	// Linker reports a device linker process failure.
	Linker
	// ModuleLoad reports that the driver rejected the linked image.
	ModuleLoad
	// OutOfMemory reports a device out-of-memory condition that
	// survived a reclaim and retry.
	OutOfMemory
)

var kindNames = [...]string{
	Internal:        "internal error",
	UnsupportedISA:  "unsupported instruction set",
	UnsupportedArch: "unsupported architecture",
	ParamSpace:      "kernel parameter space exceeded",
	Assembler:       "assembler error",
	Linker:          "linker error",
	ModuleLoad:      "module load error",
	OutOfMemory:     "out of device memory",
}

// String representation of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return fmt.Sprintf("kind(%d)", int(k))
	}
	return kindNames[k]
}

// Error is an error classified with the compilation stage that produced it.
type Error struct {
	kind Kind
	err  error
}

// New classifies an error. Returns nil if err is nil.
func New(kind Kind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{kind: kind, err: err}
}

// Errorf builds a classified error from a format string.
func Errorf(kind Kind, format string, a ...any) error {
	return New(kind, errors.Errorf(format, a...))
}

// Kind of the error.
func (err *Error) Kind() Kind {
	return err.kind
}

// Error returns the description of the underlying error.
func (err *Error) Error() string {
	return err.err.Error()
}

// Unwrap the underlying error.
func (err *Error) Unwrap() error {
	return err.err
}

// Format writes the error into the state of the formatter.
// Verbose formatting appends the stack trace of the cause.
func (err *Error) Format(s fmt.State, verb rune) {
	format(err, s, verb)
}

// KindOf returns the classification of an error, walking through
// wrapped errors. An unclassified error is Internal.
func KindOf(err error) Kind {
	var cerr *Error
	if !stderrors.As(err, &cerr) {
		return Internal
	}
	return cerr.kind
}

// IsKind reports whether an error is classified with a kind.
func IsKind(err error, kind Kind) bool {
	var cerr *Error
	if !stderrors.As(err, &cerr) {
		return false
	}
	return cerr.kind == kind
}
