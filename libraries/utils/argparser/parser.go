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

// Package argparser parses command lines for the tool's subcommands.
package argparser

import (
	"errors"
	"fmt"
	"strings"
)

// ErrHelp is returned by Parse when the universal --help or -h flag is
// found.
var ErrHelp = errors.New("help requested")

// OptionType distinguishes boolean flags from options that take a value.
type OptionType int

const (
	OptionalFlag OptionType = iota
	OptionalValue
)

// An Option encapsulates the information necessary to represent and parse
// one command line argument.
type Option struct {
	// Long name, specified on the command line with --Name. Required.
	Name string
	// Abbreviated name, specified with -Abbrev. Optional.
	Abbrev string
	// Brief description of the value, for usage text.
	ValDesc string
	// Whether this option is a flag or takes a value.
	OptType OptionType
	// Help text.
	Desc string
}

// ArgParser parses a command line against a set of supported options.
type ArgParser struct {
	Name              string
	MaxArgs           int
	Supported         []*Option
	nameOrAbbrevToOpt map[string]*Option
}

// NewArgParserWithMaxArgs creates a parser for a named command that accepts
// at most maxArgs positional arguments; -1 means any number.
func NewArgParserWithMaxArgs(name string, maxArgs int) *ArgParser {
	return &ArgParser{
		Name:              name,
		MaxArgs:           maxArgs,
		nameOrAbbrevToOpt: make(map[string]*Option),
	}
}

// SupportOption adds support for the option given. Options must have a
// unique name and abbreviation.
func (ap *ArgParser) SupportOption(opt *Option) {
	_, nameExist := ap.nameOrAbbrevToOpt[opt.Name]
	_, abbrevExist := ap.nameOrAbbrevToOpt[opt.Abbrev]

	if opt.Name == "" {
		panic("Name is required")
	} else if opt.Name == "help" || opt.Abbrev == "help" || opt.Name == "h" || opt.Abbrev == "h" {
		panic(`"help" and "h" are both reserved`)
	} else if nameExist || abbrevExist {
		panic("There is a bug. Two supported arguments have the same name or abbreviation")
	} else if opt.Name[0] == '-' || (len(opt.Abbrev) > 0 && opt.Abbrev[0] == '-') {
		panic("There is a bug. Option names and abbreviations should not start with -")
	}

	ap.Supported = append(ap.Supported, opt)
	ap.nameOrAbbrevToOpt[opt.Name] = opt

	if opt.Abbrev != "" {
		ap.nameOrAbbrevToOpt[opt.Abbrev] = opt
	}
}

// SupportsFlag adds support for a new flag (argument with no value).
func (ap *ArgParser) SupportsFlag(name, abbrev, desc string) *ArgParser {
	ap.SupportOption(&Option{Name: name, Abbrev: abbrev, OptType: OptionalFlag, Desc: desc})
	return ap
}

// SupportsString adds support for a new string argument.
func (ap *ArgParser) SupportsString(name, abbrev, valDesc, desc string) *ArgParser {
	ap.SupportOption(&Option{Name: name, Abbrev: abbrev, ValDesc: valDesc, OptType: OptionalValue, Desc: desc})
	return ap
}

// Parse parses args against the options previously registered with the
// Supports* methods. Unrecognized options and missing values produce an
// error; --help or -h produces ErrHelp.
func (ap *ArgParser) Parse(args []string) (*ArgParseResults, error) {
	var positional []string
	named := make(map[string]string)
	onlyPositionalLeft := false

	for i := 0; i < len(args); i++ {
		arg := args[i]

		if len(arg) == 0 || arg[0] != '-' || onlyPositionalLeft {
			positional = append(positional, arg)
			continue
		}

		if arg == "--" {
			onlyPositionalLeft = true
			continue
		}

		name := strings.TrimLeft(arg, "-")

		var value string
		hasValue := false
		if idx := strings.IndexByte(name, '='); idx != -1 {
			name, value = name[:idx], name[idx+1:]
			hasValue = true
		}

		if name == "help" || name == "h" {
			return nil, ErrHelp
		}

		opt, ok := ap.nameOrAbbrevToOpt[name]
		if !ok {
			return nil, fmt.Errorf("error: unknown option `%s'", name)
		}

		if opt.OptType == OptionalFlag {
			if hasValue {
				return nil, fmt.Errorf("error: option `%s' does not take a value", opt.Name)
			}

			named[opt.Name] = ""
			continue
		}

		if !hasValue {
			i++
			if i >= len(args) {
				return nil, fmt.Errorf("error: no value for option `%s'", opt.Name)
			}

			value = args[i]
		}

		named[opt.Name] = value
	}

	if ap.MaxArgs >= 0 && len(positional) > ap.MaxArgs {
		return nil, ap.tooManyArgsErr(positional)
	}

	return &ArgParseResults{options: named, Args: positional}, nil
}

func (ap *ArgParser) tooManyArgsErr(received []string) error {
	if ap.MaxArgs == 0 {
		return fmt.Errorf("error: %s does not take positional arguments, but found %d: %s", ap.Name, len(received), strings.Join(received, ", "))
	}

	return fmt.Errorf("error: %s has too many positional arguments. Expected at most %d, found %d: %s", ap.Name, ap.MaxArgs, len(received), strings.Join(received, ", "))
}

// ArgParseResults is the result of a successful Parse.
type ArgParseResults struct {
	options map[string]string
	Args    []string
}

// Contains reports whether the named option appeared on the command line.
func (res *ArgParseResults) Contains(name string) bool {
	_, ok := res.options[name]
	return ok
}

// GetValue returns the value of the named option and whether it was
// provided.
func (res *ArgParseResults) GetValue(name string) (string, bool) {
	v, ok := res.options[name]
	return v, ok
}

// GetValueOrDefault returns the value of the named option, or defVal when it
// was not provided.
func (res *ArgParseResults) GetValueOrDefault(name, defVal string) string {
	if v, ok := res.options[name]; ok {
		return v
	}

	return defVal
}

// NArg returns the number of positional arguments.
func (res *ArgParseResults) NArg() int {
	return len(res.Args)
}

// Arg returns the i'th positional argument.
func (res *ArgParseResults) Arg(i int) string {
	return res.Args[i]
}
