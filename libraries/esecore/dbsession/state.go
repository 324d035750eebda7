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

// State is one step of the session bring-up ladder. The manager only ever
// moves forward through these, with AttachFailed -> RepairInvoked ->
// ReInitialized -> ReAttaching as the single permitted detour.
type State int

const (
	StateInit State = iota
	StateParametersSet
	StateInstanceCreated
	StateSessionBegun
	StateAttaching
	StateAttached
	StateAttachFailed
	StateRepairInvoked
	StateReInitialized
	StateReAttaching
	StateOpened
	StateClosing
	StateClosed
	StateFatalFailure
)

var stateNames = map[State]string{
	StateInit:            "Init",
	StateParametersSet:   "ParametersSet",
	StateInstanceCreated: "InstanceCreated",
	StateSessionBegun:    "SessionBegun",
	StateAttaching:       "Attaching",
	StateAttached:        "Attached",
	StateAttachFailed:    "AttachFailed",
	StateRepairInvoked:   "RepairInvoked",
	StateReInitialized:   "ReInitialized",
	StateReAttaching:     "ReAttaching",
	StateOpened:          "Opened",
	StateClosing:         "Closing",
	StateClosed:          "Closed",
	StateFatalFailure:    "FatalFailure",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}

	return "Unknown"
}
