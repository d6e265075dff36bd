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
	"bytes"
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
	"syscall"

	"github.com/pkg/errors"
	ptxcfmt "github.com/ptx-org/ptxc/base/fmt"
	"github.com/ptx-org/ptxc/compiler/comperr"
	"github.com/xyproto/env/v2"
	"go.uber.org/multierr"
)

// buildkiteEnv flags a CI run where failing inputs are uploaded as
// build artifacts.
const buildkiteEnv = "BUILDKITE"

// runTool runs a tool to completion and returns its combined output.
//
// Both streams go through one pipe drained by a background reader, so
// interleaving matches what a terminal would show. The reader is
// joined before the exit status is inspected: a failure report always
// carries the complete log.
func runTool(tool string, args ...string) (string, error) {
	r, w, err := os.Pipe()
	if err != nil {
		return "", errors.Wrap(err, "cannot create an output pipe")
	}
	var out bytes.Buffer
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(&out, r)
		done <- err
	}()

	cmd := exec.Command(tool, args...)
	cmd.Stdout = w
	cmd.Stderr = w
	runErr := cmd.Run()
	w.Close()
	readErr := <-done
	r.Close()

	log := strings.TrimSuffix(out.String(), "\n")
	if runErr != nil {
		logBlock := "\t(no output)"
		if log != "" {
			logBlock = ptxcfmt.Indent(ptxcfmt.Number(log))
		}
		err := errors.Errorf("%s %s\ncommand: %s\noutput:\n%s",
			tool, exitReason(runErr), argv(tool, args), logBlock)
		return log, multierr.Append(err, readErr)
	}
	if readErr != nil {
		return log, errors.Wrapf(readErr, "cannot read the output of %s", tool)
	}
	return log, nil
}

// exitReason describes how a process ended, telling a tool crash
// (signal) apart from a tool rejection (exit code).
func exitReason(err error) string {
	var xerr *exec.ExitError
	if !stderrors.As(err, &xerr) {
		return fmt.Sprintf("did not run: %v", err)
	}
	if st, ok := xerr.Sys().(syscall.WaitStatus); ok && st.Signaled() {
		return fmt.Sprintf("received signal %s", st.Signal())
	}
	return fmt.Sprintf("exited with code %d", xerr.ExitCode())
}

// argv renders a command line for an error message.
func argv(tool string, args []string) string {
	return strings.Join(append([]string{tool}, args...), " ")
}

// uploadFailing uploads the input a tool failed on to the CI artifact
// store. Best effort: failures only feed the diagnostics sink.
func uploadFailing(component, path string, sink comperr.Sink) {
	if !env.Bool(buildkiteEnv) {
		return
	}
	out, err := exec.Command("buildkite-agent", "artifact", "upload", path).CombinedOutput()
	if err != nil {
		sink.Warn(component, "cannot upload the failing input", strings.TrimSpace(string(out)))
		return
	}
	sink.Info(component, "failing input uploaded", path)
}

// writeTemp writes data to a fresh temporary file and returns its path.
func writeTemp(pattern string, data []byte) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", errors.Wrap(err, "cannot create a temporary file")
	}
	_, werr := f.Write(data)
	if err := multierr.Append(werr, f.Close()); err != nil {
		os.Remove(f.Name())
		return "", errors.Wrapf(err, "cannot write %s", f.Name())
	}
	return f.Name(), nil
}

// tempPath reserves a fresh temporary file for a tool to write to.
func tempPath(pattern string) (string, error) {
	f, err := os.CreateTemp("", pattern)
	if err != nil {
		return "", errors.Wrap(err, "cannot create a temporary file")
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}
