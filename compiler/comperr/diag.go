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

package comperr

// Severity of a diagnostic.
type Severity int

const (
	// Info carries tool output or compiler feedback on a success path.
	Info Severity = iota
	// Warning reports a degraded but non-fatal condition.
	Warning
)

// String representation of the severity.
func (s Severity) String() string {
	switch s {
	case Info:
		return "info"
	case Warning:
		return "warning"
	default:
		return "info"
	}
}

// Diagnostic is non-fatal compiler feedback. The compiler never prints:
// diagnostics are handed to the sink the caller installed.
type Diagnostic struct {
	// Severity of the diagnostic.
	Severity Severity
	// Component that produced the diagnostic (for example "ptxas").
	Component string
	// Summary is a one line description.
	Summary string
	// Detail carries the full text, such as a tool log. May be empty.
	Detail string
}

// Sink receives diagnostics. A nil sink drops them.
type Sink func(Diagnostic)

// Send a diagnostic to the sink.
func (sink Sink) Send(d Diagnostic) {
	if sink == nil {
		return
	}
	sink(d)
}

// Info sends an info diagnostic to the sink.
func (sink Sink) Info(component, summary, detail string) {
	sink.Send(Diagnostic{Severity: Info, Component: component, Summary: summary, Detail: detail})
}

// Warn sends a warning diagnostic to the sink.
func (sink Sink) Warn(component, summary, detail string) {
	sink.Send(Diagnostic{Severity: Warning, Component: component, Summary: summary, Detail: detail})
}
