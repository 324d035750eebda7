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

// Package esent defines the surface of the native ESE storage engine as the
// exporter consumes it: instances, sessions, attached databases and table
// cursors, all strictly read-only. The production implementation binds to
// esent.dll on Windows; everything above this package depends only on the
// interfaces, so the session manager, catalog reader and exporters can be
// exercised against in-memory fakes.
package esent

import "time"

// Param identifies an engine system parameter (JET_param values).
type Param uint32

const (
	ParamSystemPath           Param = 0
	ParamTempPath             Param = 1
	ParamLogFilePath          Param = 2
	ParamOutstandingIOMax     Param = 30
	ParamRecovery             Param = 34
	ParamEnableOnlineDefrag   Param = 35
	ParamEnableIndexChecking  Param = 45
	ParamEnableIndexCleanup   Param = 54
	ParamDatabasePageSize     Param = 64
	ParamCreatePathIfNotExist Param = 160
)

// Api creates engine instances. It is the root of the object model; one
// process typically creates a single instance per run.
type Api interface {
	// CreateInstance creates a new, uninitialized engine instance. Instance
	// names must be unique within the process.
	CreateInstance(name string) (Instance, error)
}

// Instance is an isolated engine execution context. Parameters must be set
// before Init; Term releases everything the instance owns.
type Instance interface {
	// SetSystemParameter sets an integer or string valued system parameter.
	// Exactly one of intVal and strVal is meaningful for any given Param.
	SetSystemParameter(p Param, intVal int, strVal string) error

	// Init brings the instance online, replaying transaction logs if recovery
	// is enabled.
	Init() error

	// BeginSession starts a logical connection within the instance.
	BeginSession() (Session, error)

	// Term shuts the instance down. Term is safe to call on an instance whose
	// Init failed.
	Term() error
}

// Session is a logical connection. Databases are attached to and opened
// through a session.
type Session interface {
	// AttachDatabase registers the database file with the session in
	// read-only mode.
	AttachDatabase(path string) error

	// OpenDatabase opens a previously attached database for reading.
	OpenDatabase(path string) (Database, error)

	// DetachDatabase unregisters the database file.
	DetachDatabase(path string) error

	// End ends the session.
	End() error
}

// Database is an open, attached database.
type Database interface {
	// TableNames lists the tables in the engine's object catalog. Hidden
	// system tables may be omitted by the engine; callers that need them must
	// ask for them by name.
	TableNames() ([]string, error)

	// OpenTable opens a read-only cursor on the named table.
	OpenTable(name string) (Table, error)

	// Close closes the database.
	Close() error
}

// ColumnInfo describes one column of a table.
type ColumnInfo struct {
	Name      string
	ID        uint32
	Coltyp    Coltyp
	CodePage  uint16
	MaxLength uint32
}

// Table is a read-only cursor over one table. A Table is only valid while the
// Database that produced it remains open.
type Table interface {
	// Columns returns the table's column descriptors. The result is stable
	// for the lifetime of the cursor and may be cached by the caller.
	Columns() ([]ColumnInfo, error)

	// MoveFirst positions the cursor on the first record of the current
	// index. An empty table yields a no-current-record error.
	MoveFirst() error

	// MoveNext advances the cursor. A no-current-record error marks the end
	// of the table.
	MoveNext() error

	// IndexRecordCount returns the engine's record count for the current
	// index.
	IndexRecordCount() (int, error)

	// RetrieveColumn returns the raw bytes of a column in the current record,
	// or nil for a null value.
	RetrieveColumn(columnID uint32) ([]byte, error)

	// RetrieveInt32 retrieves a column through the engine's typed accessor.
	// It fails rather than coercing if the stored value is not a 32-bit
	// integer.
	RetrieveInt32(columnID uint32) (int32, error)

	// RetrieveInt64 retrieves a column through the engine's typed 64-bit
	// accessor.
	RetrieveInt64(columnID uint32) (int64, error)

	// RetrieveDateTime retrieves a DateTime column through the engine's own
	// date conversion rather than raw bytes.
	RetrieveDateTime(columnID uint32) (time.Time, error)

	// SetCurrentIndex switches the cursor to the named index. The empty
	// string selects the primary index.
	SetCurrentIndex(name string) error

	// SeekUint32 builds a key from a 32-bit unsigned value and seeks an exact
	// match on the current index.
	SeekUint32(key uint32) error

	// Close releases the cursor.
	Close() error
}
