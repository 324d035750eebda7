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

package tblexport

import (
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edbtools/edbexport/libraries/esecore/catalog"
	"github.com/edbtools/edbexport/libraries/esecore/decode"
	"github.com/edbtools/edbexport/libraries/esecore/esent"
	"github.com/edbtools/edbexport/libraries/esecore/esent/esenttest"
	"github.com/edbtools/edbexport/libraries/utils/filesys"
)

func testLogger() *logrus.Entry {
	lg := logrus.New()
	lg.SetOutput(io.Discard)

	return logrus.NewEntry(lg)
}

// utf16le encodes an ASCII string as little-endian UTF-16, the way the
// engine stores Unicode text.
func utf16le(s string) []byte {
	b := make([]byte, 0, len(s)*2)
	for i := 0; i < len(s); i++ {
		b = append(b, s[i], 0)
	}

	return b
}

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func newExporter(t *testing.T) (*Exporter, *filesys.InMemFS) {
	t.Helper()

	fs := filesys.NewInMemFS()

	sink, err := NewDirSink(fs, "/out", ',')
	require.NoError(t, err)

	return NewExporter(decode.NewDecoder(decode.DefaultVocabulary()), sink, testLogger()), fs
}

func TestExportTableWritesAllArtifacts(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	tbl := db.AddTable("Content")
	idCol := tbl.AddColumn("Id", esent.ColtypLong, 0, 4)
	nameCol := tbl.AddColumn("Name", esent.ColtypLongText, 1200, 255)
	tbl.AddRow(esenttest.Row{idCol: le32(7), nameCol: utf16le("first")})
	tbl.AddRow(esenttest.Row{idCol: le32(8), nameCol: utf16le("second")})

	h, skipped := catalog.Open(db, "Content", testLogger())
	require.False(t, skipped)
	defer h.Close()

	e, fs := newExporter(t)

	n, err := e.ExportTable(h)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, []string{
		"/out/Content.columns.csv",
		"/out/Content.info.txt",
		"/out/Content.records.csv",
	}, fs.Paths())

	records, err := fs.ReadFile("/out/Content.records.csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(records)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "Id,Name", lines[0])
	assert.Equal(t, "7,first", lines[1])
	assert.Equal(t, "8,second", lines[2])

	columns, err := fs.ReadFile("/out/Content.columns.csv")
	require.NoError(t, err)
	assert.Contains(t, string(columns), "Name,2,LongText,255,1200")

	info, err := fs.ReadFile("/out/Content.info.txt")
	require.NoError(t, err)
	assert.Contains(t, string(info), "table: Content")
	assert.Contains(t, string(info), "records: 2")
}

func TestExportTableSparseColumnsUnionHeader(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	tbl := db.AddTable("Sparse")
	a := tbl.AddColumn("A", esent.ColtypLong, 0, 4)
	b := tbl.AddColumn("B", esent.ColtypLong, 0, 4)
	tbl.AddRow(esenttest.Row{a: le32(1)})
	tbl.AddRow(esenttest.Row{b: le32(2)})

	h, skipped := catalog.Open(db, "Sparse", testLogger())
	require.False(t, skipped)
	defer h.Close()

	e, fs := newExporter(t)

	_, err := e.ExportTable(h)
	require.NoError(t, err)

	records, err := fs.ReadFile("/out/Sparse.records.csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(records)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "A,B", lines[0])
	assert.Equal(t, "1,", lines[1])
	assert.Equal(t, ",2", lines[2])
}

func TestExportTableMSysColumnsUseTypedRetrieval(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	// These columns are Binary on the wire; the byte decoder would render
	// them as hex. The typed path must win.
	tbl := db.AddHiddenTable("MSysObjects")
	objid := tbl.AddColumn("ObjidTable", esent.ColtypBinary, 0, 4)
	typ := tbl.AddColumn("Type", esent.ColtypBinary, 0, 4)
	id := tbl.AddColumn("Id", esent.ColtypBinary, 0, 4)
	name := tbl.AddColumn("Name", esent.ColtypText, 1252, 64)
	tbl.AddRow(esenttest.Row{objid: le32(2), typ: le32(1), id: le32(12), name: []byte("MSysObjects")})

	h, skipped := catalog.Open(db, "MSysObjects", testLogger())
	require.False(t, skipped)
	defer h.Close()

	e, fs := newExporter(t)

	_, err := e.ExportTable(h)
	require.NoError(t, err)

	records, err := fs.ReadFile("/out/MSysObjects.records.csv")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(records)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "ObjidTable,Type,Id,Name", lines[0])
	assert.Equal(t, "2,1,12,MSysObjects", lines[1])
}

func TestExportTableZeroDecodedRowsWritesNoRecordsArtifact(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	tbl := db.AddTable("AllNull")
	tbl.AddColumn("A", esent.ColtypLong, 0, 4)
	tbl.AddRow(esenttest.Row{})
	tbl.AddRow(esenttest.Row{})

	h, skipped := catalog.Open(db, "AllNull", testLogger())
	require.False(t, skipped)
	defer h.Close()

	e, fs := newExporter(t)

	n, err := e.ExportTable(h)
	require.NoError(t, err)
	assert.Equal(t, 0, n)

	assert.Equal(t, []string{
		"/out/AllNull.columns.csv",
		"/out/AllNull.info.txt",
	}, fs.Paths())
}

func TestExportTableExpandsFileAttributes(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	tbl := db.AddTable("Files")
	attrs := tbl.AddColumn("4392-System_FileAttributes", esent.ColtypUnsignedLong, 0, 4)
	tbl.AddRow(esenttest.Row{attrs: le32(33)})

	h, skipped := catalog.Open(db, "Files", testLogger())
	require.False(t, skipped)
	defer h.Close()

	e, fs := newExporter(t)

	_, err := e.ExportTable(h)
	require.NoError(t, err)

	records, err := fs.ReadFile("/out/Files.records.csv")
	require.NoError(t, err)
	assert.Contains(t, string(records), "\"ReadOnly, Archive (33)\"")
}

func TestDirSinkCustomDelimiter(t *testing.T) {
	fs := filesys.NewInMemFS()

	sink, err := NewDirSink(fs, "/out", '|')
	require.NoError(t, err)

	r := NewRow()
	r.Set("a", "1")
	r.Set("b", "2")

	_, err = sink.WriteRecords("T", []string{"a", "b"}, []*Row{r})
	require.NoError(t, err)

	records, err := fs.ReadFile("/out/T.records.csv")
	require.NoError(t, err)
	assert.Equal(t, "a|b\n1|2\n", string(records))
}

func TestDirSinkSanitizesArtifactNames(t *testing.T) {
	fs := filesys.NewInMemFS()

	sink, err := NewDirSink(fs, "/out", ',')
	require.NoError(t, err)

	r := NewRow()
	r.Set("a", "1")

	n, err := sink.WriteRecords("T.mapi.calendar/meeting", []string{"a"}, []*Row{r})
	require.NoError(t, err)
	assert.Greater(t, n, int64(0))

	assert.Equal(t, []string{"/out/T.mapi.calendar_meeting.records.csv"}, fs.Paths())
}
