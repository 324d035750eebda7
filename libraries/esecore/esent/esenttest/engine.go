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

// Package esenttest provides an in-memory engine implementing the esent
// interfaces, with scriptable failures, so session bring-up, catalog reading
// and export logic can be tested without esent.dll or external repair tools.
package esenttest

import (
	"encoding/binary"
	"time"

	"github.com/edbtools/edbexport/libraries/esecore/esent"
)

// ParamCall records one SetSystemParameter invocation.
type ParamCall struct {
	Param  esent.Param
	IntVal int
	StrVal string
}

// Engine is a fake esent.Api. Databases are keyed by attach path. The
// AttachErrs queue is consumed one error per AttachDatabase call; a nil entry
// (or an empty queue with a known path) means the attach succeeds.
type Engine struct {
	Databases map[string]*Database

	AttachErrs        []error
	CreateInstanceErr error
	InitErr           error
	BeginSessionErr   error
	OpenErr           error

	AttachCalls      int
	InitCalls        int
	TermCalls        int
	InstancesMade    int
	SessionsEnded    int
	ParamsByInstance [][]ParamCall
}

// NewEngine creates an empty fake engine.
func NewEngine() *Engine {
	return &Engine{Databases: make(map[string]*Database)}
}

// AddDatabase registers a database reachable at the given attach path.
func (e *Engine) AddDatabase(path string) *Database {
	db := &Database{tables: make(map[string]*Table)}
	e.Databases[path] = db

	return db
}

func (e *Engine) CreateInstance(name string) (esent.Instance, error) {
	if e.CreateInstanceErr != nil {
		return nil, e.CreateInstanceErr
	}

	e.InstancesMade++
	e.ParamsByInstance = append(e.ParamsByInstance, nil)

	return &instance{eng: e, idx: len(e.ParamsByInstance) - 1}, nil
}

type instance struct {
	eng *Engine
	idx int
}

func (in *instance) SetSystemParameter(p esent.Param, intVal int, strVal string) error {
	in.eng.ParamsByInstance[in.idx] = append(in.eng.ParamsByInstance[in.idx], ParamCall{p, intVal, strVal})
	return nil
}

func (in *instance) Init() error {
	if in.eng.InitErr != nil {
		return in.eng.InitErr
	}

	in.eng.InitCalls++
	return nil
}

func (in *instance) Term() error {
	in.eng.TermCalls++
	return nil
}

func (in *instance) BeginSession() (esent.Session, error) {
	if in.eng.BeginSessionErr != nil {
		return nil, in.eng.BeginSessionErr
	}

	return &session{eng: in.eng, attached: make(map[string]bool)}, nil
}

type session struct {
	eng      *Engine
	attached map[string]bool
}

func (s *session) AttachDatabase(path string) error {
	s.eng.AttachCalls++

	if len(s.eng.AttachErrs) > 0 {
		err := s.eng.AttachErrs[0]
		s.eng.AttachErrs = s.eng.AttachErrs[1:]

		if err != nil {
			return err
		}
	}

	if _, ok := s.eng.Databases[path]; !ok {
		return esent.MethodFailure("JetAttachDatabase2", esent.ErrcodeFileNotFound)
	}

	s.attached[path] = true
	return nil
}

func (s *session) OpenDatabase(path string) (esent.Database, error) {
	if s.eng.OpenErr != nil {
		return nil, s.eng.OpenErr
	}

	if !s.attached[path] {
		return nil, esent.MethodFailure("JetOpenDatabase", esent.ErrcodeFileNotFound)
	}

	return s.eng.Databases[path], nil
}

func (s *session) DetachDatabase(path string) error {
	delete(s.attached, path)
	return nil
}

func (s *session) End() error {
	s.eng.SessionsEnded++
	return nil
}

// Database is a fake attached database.
type Database struct {
	tables map[string]*Table
	order  []string
}

var _ esent.Database = (*Database)(nil)

// AddTable adds a table visible in the object catalog.
func (db *Database) AddTable(name string) *Table {
	return db.add(name, false)
}

// AddHiddenTable adds a table that OpenTable can reach but TableNames omits,
// the way the engine hides its MSys catalog tables.
func (db *Database) AddHiddenTable(name string) *Table {
	return db.add(name, true)
}

func (db *Database) add(name string, hidden bool) *Table {
	tbl := &Table{Name: name}
	db.tables[name] = tbl

	if !hidden {
		db.order = append(db.order, name)
	}

	return tbl
}

func (db *Database) TableNames() ([]string, error) {
	names := make([]string, len(db.order))
	copy(names, db.order)

	return names, nil
}

func (db *Database) OpenTable(name string) (esent.Table, error) {
	tbl, ok := db.tables[name]
	if !ok {
		return nil, esent.MethodFailure("JetOpenTable", esent.ErrcodeObjectNotFound)
	}

	if tbl.OpenErr != nil {
		return nil, tbl.OpenErr
	}

	return &cursor{tbl: tbl, pos: -1}, nil
}

func (db *Database) Close() error {
	return nil
}

// Row is one fake record: column id to raw bytes.
type Row map[uint32][]byte

// Table is a fake table definition shared by every cursor opened on it.
type Table struct {
	Name         string
	Cols         []esent.ColumnInfo
	Rows         []Row
	PrimaryKeyID uint32

	OpenErr      error
	MoveFirstErr error

	// NativeTimes serves RetrieveDateTime, keyed by row index then column id.
	NativeTimes map[int]map[uint32]time.Time
}

// AddColumn appends a column descriptor and returns its id.
func (t *Table) AddColumn(name string, coltyp esent.Coltyp, codePage uint16, maxLength uint32) uint32 {
	id := uint32(len(t.Cols) + 1)
	t.Cols = append(t.Cols, esent.ColumnInfo{Name: name, ID: id, Coltyp: coltyp, CodePage: codePage, MaxLength: maxLength})

	return id
}

// AddRow appends a record.
func (t *Table) AddRow(cells Row) {
	t.Rows = append(t.Rows, cells)
}

type cursor struct {
	tbl      *Table
	pos      int
	curIndex string
}

var _ esent.Table = (*cursor)(nil)

func (c *cursor) Columns() ([]esent.ColumnInfo, error) {
	cols := make([]esent.ColumnInfo, len(c.tbl.Cols))
	copy(cols, c.tbl.Cols)

	return cols, nil
}

func (c *cursor) MoveFirst() error {
	if c.tbl.MoveFirstErr != nil {
		return c.tbl.MoveFirstErr
	}

	if len(c.tbl.Rows) == 0 {
		return esent.MethodFailure("JetMove", esent.ErrcodeNoCurrentRecord)
	}

	c.pos = 0
	return nil
}

func (c *cursor) MoveNext() error {
	if c.pos+1 >= len(c.tbl.Rows) {
		return esent.MethodFailure("JetMove", esent.ErrcodeNoCurrentRecord)
	}

	c.pos++
	return nil
}

func (c *cursor) IndexRecordCount() (int, error) {
	return len(c.tbl.Rows), nil
}

func (c *cursor) current() (Row, error) {
	if c.pos < 0 || c.pos >= len(c.tbl.Rows) {
		return nil, esent.MethodFailure("JetRetrieveColumn", esent.ErrcodeNoCurrentRecord)
	}

	return c.tbl.Rows[c.pos], nil
}

func (c *cursor) RetrieveColumn(columnID uint32) ([]byte, error) {
	row, err := c.current()
	if err != nil {
		return nil, err
	}

	return row[columnID], nil
}

func (c *cursor) RetrieveInt32(columnID uint32) (int32, error) {
	row, err := c.current()
	if err != nil {
		return 0, err
	}

	b := row[columnID]
	if len(b) != 4 {
		return 0, esent.MethodFailure("JetRetrieveColumn(int32)", esent.ErrcodeInvalidParameter)
	}

	return int32(binary.LittleEndian.Uint32(b)), nil
}

func (c *cursor) RetrieveInt64(columnID uint32) (int64, error) {
	row, err := c.current()
	if err != nil {
		return 0, err
	}

	b := row[columnID]
	if len(b) != 8 {
		return 0, esent.MethodFailure("JetRetrieveColumn(int64)", esent.ErrcodeInvalidParameter)
	}

	return int64(binary.LittleEndian.Uint64(b)), nil
}

func (c *cursor) RetrieveDateTime(columnID uint32) (time.Time, error) {
	if _, err := c.current(); err != nil {
		return time.Time{}, err
	}

	if times, ok := c.tbl.NativeTimes[c.pos]; ok {
		if t, ok := times[columnID]; ok {
			return t, nil
		}
	}

	return time.Time{}, esent.MethodFailure("JetRetrieveColumn(datetime)", esent.ErrcodeInvalidParameter)
}

func (c *cursor) SetCurrentIndex(name string) error {
	c.curIndex = name
	c.pos = -1

	return nil
}

func (c *cursor) SeekUint32(key uint32) error {
	for i, row := range c.tbl.Rows {
		b := row[c.tbl.PrimaryKeyID]
		if len(b) == 4 && binary.LittleEndian.Uint32(b) == key {
			c.pos = i
			return nil
		}
	}

	return esent.MethodFailure("JetSeek", esent.ErrcodeRecordNotFound)
}

func (c *cursor) Close() error {
	return nil
}
