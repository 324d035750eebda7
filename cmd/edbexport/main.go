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

package main

import (
	"context"
	"os"

	"github.com/edbtools/edbexport/cmd/edbexport/cli"
	"github.com/edbtools/edbexport/cmd/edbexport/commands"
)

const Version = "0.2.0"

var commandHandler = cli.NewSubCommandHandler("edbexport", "ESE database export tool", []cli.Command{
	commands.ExportCmd{},
	commands.VersionCmd{VersionStr: Version},
})

func main() {
	os.Exit(commandHandler.Exec(context.Background(), "edbexport", os.Args[1:]))
}
