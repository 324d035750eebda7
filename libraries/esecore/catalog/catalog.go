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

// Package catalog enumerates the tables and columns the exporter should
// process. The engine's object catalog omits its own system tables, so the
// well-known hidden ones are always appended by name.
package catalog

import (
	"github.com/sirupsen/logrus"

	"github.com/edbtools/edbexport/libraries/esecore/esent"
	"github.com/edbtools/edbexport/libraries/utils/set"
)

// The engine's catalog, its shadow copy, the object-id map and the locale
// map. These exist in every database but are hidden from TableNames.
var hiddenSystemTables = []string{
	"MSysObjects",
	"MSysObjectsShadow",
	"MSysObjids",
	"MSysLocales",
}

// ListTables returns every table to process: the engine catalog's names in
// catalog order, with the hidden system tables appended.
func ListTables(db esent.Database) ([]string, error) {
	names, err := db.TableNames()
	if err != nil {
		return nil, err
	}

	all := set.NewStrSet(names)
	all.Add(hiddenSystemTables...)

	return all.AsSlice(), nil
}

// Columns is a table's column descriptors, read once and cached for the
// remainder of that table's processing.
type Columns struct {
	All    []esent.ColumnInfo
	byName map[string]esent.ColumnInfo
}

// ByName looks a descriptor up by column name.
func (c *Columns) ByName(name string) (esent.ColumnInfo, bool) {
	ci, ok := c.byName[name]
	return ci, ok
}

// Handle is an open table positioned on its first record, with cached
// schema.
type Handle struct {
	Name     string
	Table    esent.Table
	Cols     *Columns
	RowCount int
}

// Close releases the underlying cursor.
func (h *Handle) Close() {
	_ = h.Table.Close()
}

// Open opens the named table and probes it. It returns (nil, true) when the
// table should be skipped: a benign first-record failure or a row count
// below one means the table is genuinely empty, and any other navigation
// failure is logged as a warning so the scan can continue with the next
// table. Neither is an error.
func Open(db esent.Database, name string, lg *logrus.Entry) (h *Handle, skipped bool) {
	lg = lg.WithField("table", name)

	tbl, err := db.OpenTable(name)
	if err != nil {
		lg.WithError(err).Warn("unable to open table; skipping")
		return nil, true
	}

	if err = tbl.MoveFirst(); err != nil {
		_ = tbl.Close()

		if esent.IsNoCurrentRecord(err) {
			lg.Info("skipped, empty")
		} else {
			lg.WithError(err).Warn("unable to position on first record; skipping")
		}

		return nil, true
	}

	count, err := tbl.IndexRecordCount()
	if err != nil {
		_ = tbl.Close()
		lg.WithError(err).Warn("unable to count records; skipping")

		return nil, true
	}

	if count < 1 {
		_ = tbl.Close()
		lg.Info("skipped, empty")

		return nil, true
	}

	cols, err := tbl.Columns()
	if err != nil {
		_ = tbl.Close()
		lg.WithError(err).Warn("unable to read column descriptors; skipping")

		return nil, true
	}

	byName := make(map[string]esent.ColumnInfo, len(cols))
	for _, ci := range cols {
		byName[ci.Name] = ci
	}

	return &Handle{
		Name:     name,
		Table:    tbl,
		Cols:     &Columns{All: cols, byName: byName},
		RowCount: count,
	}, false
}
