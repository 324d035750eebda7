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

package esent

import (
	"errors"
	"fmt"
)

// JET error codes the exporter makes decisions on. The full error space is
// much larger; everything else is carried through opaquely in JetError.Code.
const (
	ErrcodeRecordNotFound        int32 = -1601
	ErrcodeNoCurrentRecord       int32 = -1603
	ErrcodeObjectNotFound        int32 = -1305
	ErrcodeDatabaseCorrupted     int32 = -1206
	ErrcodeFileNotFound          int32 = -1811
	ErrcodeInvalidParameter      int32 = -1003
	ErrcodeColumnNull            int32 = 1004
	ErrcodePageSizeMismatch      int32 = -1213
	ErrcodeDatabaseDirtyShutdown int32 = -550
)

// ErrClass partitions engine failures the way the session manager needs to
// see them: a method failure is the engine itself reporting that an operation
// could not be carried out (the class that a repair pass may fix), while a
// runtime failure is everything beneath or outside the engine call, such as a
// missing DLL or a bad handle. Only method failures on attach are candidates
// for the repair/retry cycle.
type ErrClass int

const (
	ClassRuntime ErrClass = iota
	ClassMethodFailure
	ClassResource
)

// JetError is an error returned by an engine call.
type JetError struct {
	Op    string
	Code  int32
	Class ErrClass
}

func (e *JetError) Error() string {
	return fmt.Sprintf("esent: %s failed with JET_err %d", e.Op, e.Code)
}

// MethodFailure wraps a raw engine error code as a method-failure class error.
func MethodFailure(op string, code int32) *JetError {
	return &JetError{Op: op, Code: code, Class: ClassMethodFailure}
}

// RuntimeFailure marks an error that did not come from an engine status code.
func RuntimeFailure(op string, code int32) *JetError {
	return &JetError{Op: op, Code: code, Class: ClassRuntime}
}

// IsMethodFailure reports whether err is an engine-level method failure, the
// one class of attach error the session manager is allowed to repair.
func IsMethodFailure(err error) bool {
	var je *JetError
	if errors.As(err, &je) {
		return je.Class == ClassMethodFailure
	}

	return false
}

func hasCode(err error, code int32) bool {
	var je *JetError
	if errors.As(err, &je) {
		return je.Code == code
	}

	return false
}

// IsNoCurrentRecord reports whether err is the benign cursor-positioning
// failure raised when moving to the first record of an empty table.
func IsNoCurrentRecord(err error) bool {
	return hasCode(err, ErrcodeNoCurrentRecord)
}

// IsRecordNotFound reports whether err is a failed equality seek.
func IsRecordNotFound(err error) bool {
	return hasCode(err, ErrcodeRecordNotFound)
}

// IsObjectNotFound reports whether err indicates a table or index that does
// not exist in the attached database.
func IsObjectNotFound(err error) bool {
	return hasCode(err, ErrcodeObjectNotFound)
}
