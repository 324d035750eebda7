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

package catalog

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edbtools/edbexport/libraries/esecore/esent"
	"github.com/edbtools/edbexport/libraries/esecore/esent/esenttest"
)

func testLogger() *logrus.Entry {
	lg := logrus.New()
	lg.SetOutput(io.Discard)

	return logrus.NewEntry(lg)
}

func TestListTablesAppendsHiddenSystemTables(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")
	db.AddTable("SystemIndex_PropertyStore")
	db.AddTable("SystemIndex_Gthr")
	db.AddHiddenTable("MSysObjects")

	names, err := ListTables(db)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"SystemIndex_PropertyStore",
		"SystemIndex_Gthr",
		"MSysObjects",
		"MSysObjectsShadow",
		"MSysObjids",
		"MSysLocales",
	}, names)
}

func TestListTablesDeduplicates(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")
	db.AddTable("MSysObjects")
	db.AddTable("Content")

	names, err := ListTables(db)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"MSysObjects",
		"Content",
		"MSysObjectsShadow",
		"MSysObjids",
		"MSysLocales",
	}, names)
}

func TestOpenCachesColumns(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	tbl := db.AddTable("Content")
	idCol := tbl.AddColumn("Id", esent.ColtypLong, 0, 4)
	nameCol := tbl.AddColumn("Name", esent.ColtypLongText, 1200, 255)
	tbl.AddRow(esenttest.Row{idCol: {1, 0, 0, 0}, nameCol: {'a', 0}})

	h, skipped := Open(db, "Content", testLogger())
	require.False(t, skipped)
	defer h.Close()

	assert.Equal(t, 1, h.RowCount)
	require.Len(t, h.Cols.All, 2)

	ci, ok := h.Cols.ByName("Name")
	require.True(t, ok)
	assert.Equal(t, esent.ColtypLongText, ci.Coltyp)
	assert.Equal(t, uint16(1200), ci.CodePage)

	_, ok = h.Cols.ByName("Missing")
	assert.False(t, ok)
}

func TestOpenSkipsEmptyTable(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")
	db.AddTable("Empty")

	h, skipped := Open(db, "Empty", testLogger())
	assert.True(t, skipped)
	assert.Nil(t, h)
}

func TestOpenSkipsMissingTable(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	h, skipped := Open(db, "NotThere", testLogger())
	assert.True(t, skipped)
	assert.Nil(t, h)
}

func TestOpenSkipsOnNavigationFailureAndContinues(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	bad := db.AddTable("Corrupt")
	bad.MoveFirstErr = errors.New("page checksum mismatch")

	good := db.AddTable("Fine")
	id := good.AddColumn("Id", esent.ColtypLong, 0, 4)
	good.AddRow(esenttest.Row{id: {1, 0, 0, 0}})

	h, skipped := Open(db, "Corrupt", testLogger())
	assert.True(t, skipped)
	assert.Nil(t, h)

	h, skipped = Open(db, "Fine", testLogger())
	require.False(t, skipped)
	h.Close()
}
