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

package commands

import (
	"context"

	"github.com/edbtools/edbexport/cmd/edbexport/cli"
)

// VersionCmd prints the tool's version.
type VersionCmd struct {
	VersionStr string
}

var _ cli.Command = VersionCmd{}

func (cmd VersionCmd) Name() string {
	return "version"
}

func (cmd VersionCmd) Description() string {
	return "Displays the version of this tool."
}

func (cmd VersionCmd) Exec(ctx context.Context, commandStr string, args []string) int {
	cli.Println("edbexport version", cmd.VersionStr)
	return 0
}
