// Copyright 2024 edbtools, Inc.
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

package dbsession

import (
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/edbtools/edbexport/libraries/utils/filesys"
)

// RepairRunner runs the external repair passes against the working copy.
// Injecting it keeps the retry state machine testable without launching real
// processes.
type RepairRunner interface {
	// Repair runs the general repair pass, appending tool output to the log
	// artifact at logPath.
	Repair(dbPath, logPath string) error

	// Defragment runs the defragmentation pass, appending output to the same
	// log artifact.
	Defragment(dbPath, logPath string) error
}

// EsentutlRunner shells out to esentutl. Invocations are synchronous and
// blocking; there is no timeout or cancellation beyond what the tool itself
// enforces.
//
// Exit codes are captured but not consulted: only the subsequent re-attach
// decides whether recovery worked, which also means a missing esentutl is
// indistinguishable from a still-corrupt file. That matches the historical
// behavior of this tool chain and is deliberate.
type EsentutlRunner struct {
	Bin string

	fs filesys.Filesys
}

var _ RepairRunner = (*EsentutlRunner)(nil)

// NewEsentutlRunner creates a runner that invokes esentutl from PATH.
func NewEsentutlRunner(fs filesys.Filesys) *EsentutlRunner {
	return &EsentutlRunner{Bin: "esentutl", fs: fs}
}

func (r *EsentutlRunner) Repair(dbPath, logPath string) error {
	return r.run(logPath, "/p", dbPath, "/o")
}

func (r *EsentutlRunner) Defragment(dbPath, logPath string) error {
	return r.run(logPath, "/d", dbPath, "/o")
}

func (r *EsentutlRunner) run(logPath string, args ...string) error {
	out, runErr := exec.Command(r.Bin, args...).CombinedOutput()

	wr, err := r.fs.OpenForWriteAppend(logPath, os.FileMode(0644))
	if err != nil {
		return err
	}
	defer wr.Close()

	fmt.Fprintf(wr, "--- %s %s ---\n", r.Bin, strings.Join(args, " "))
	wr.Write(out)
	if runErr != nil {
		fmt.Fprintf(wr, "(%v)\n", runErr)
	}

	return runErr
}
