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

package propstore

import (
	"io"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edbtools/edbexport/libraries/esecore/catalog"
	"github.com/edbtools/edbexport/libraries/esecore/decode"
	"github.com/edbtools/edbexport/libraries/esecore/esent"
	"github.com/edbtools/edbexport/libraries/esecore/esent/esenttest"
	"github.com/edbtools/edbexport/libraries/esecore/tblexport"
)

func testLogger() *logrus.Entry {
	lg := logrus.New()
	lg.SetOutput(io.Discard)

	return logrus.NewEntry(lg)
}

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

// recSink records artifacts instead of writing files.
type recSink struct {
	columnsFor []string
	artifacts  []string
	headers    map[string][]string
	records    map[string][]*tblexport.Row
	infoRows   int
}

func newRecSink() *recSink {
	return &recSink{
		headers: make(map[string][]string),
		records: make(map[string][]*tblexport.Row),
	}
}

func (s *recSink) WriteColumns(table string, cols []esent.ColumnInfo) error {
	s.columnsFor = append(s.columnsFor, table)
	return nil
}

func (s *recSink) WriteRecords(artifact string, header []string, rows []*tblexport.Row) (int64, error) {
	s.artifacts = append(s.artifacts, artifact)
	s.headers[artifact] = header
	s.records[artifact] = rows

	return int64(len(rows)), nil
}

func (s *recSink) WriteInfo(table string, rowCount int, recordBytes int64) error {
	s.infoRows = rowCount
	return nil
}

// newPropertyStore builds a five-record fake property store covering two
// file item types, a mapi record, and a record with no store value.
func newPropertyStore(t *testing.T) *catalog.Handle {
	t.Helper()

	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	tbl := db.AddTable(TableName)
	workID := tbl.AddColumn("WorkID", esent.ColtypUnsignedLong, 0, 4)
	store := tbl.AddColumn("15F-System_Search_Store", esent.ColtypLongText, 1200, 0)
	itemType := tbl.AddColumn("5-System_ItemType", esent.ColtypLongText, 1200, 0)
	kind := tbl.AddColumn("27-System_KindText", esent.ColtypLongText, 1200, 0)
	size := tbl.AddColumn("4403-System_Size", esent.ColtypBinary, 0, 8)

	tbl.PrimaryKeyID = workID

	tbl.AddRow(esenttest.Row{
		workID:   le32(1),
		store:    utf16le("file"),
		itemType: utf16le(".txt"),
		size:     {100, 0, 0, 0, 0, 0, 0, 0},
	})
	tbl.AddRow(esenttest.Row{
		workID:   le32(2),
		store:    utf16le("file"),
		itemType: utf16le(".jpg"),
	})
	tbl.AddRow(esenttest.Row{
		workID: le32(3),
		store:  utf16le("mapi"),
		kind:   utf16le("email;communication"),
	})
	tbl.AddRow(esenttest.Row{
		workID:   le32(4),
		store:    utf16le("file"),
		itemType: utf16le(".txt"),
	})
	tbl.AddRow(esenttest.Row{
		workID: le32(5),
	})

	h, skipped := catalog.Open(db, TableName, testLogger())
	require.False(t, skipped)

	return h
}

func TestScanGroupsByStoreAndType(t *testing.T) {
	h := newPropertyStore(t)
	defer h.Close()

	g, err := Scan(h, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{"file", "mapi", UnknownValue}, g.Stores())
	assert.Equal(t, []string{".txt", ".jpg"}, g.Discriminators("file"))
	assert.Equal(t, []uint32{1, 4}, g.Keys("file", ".txt"))
	assert.Equal(t, []uint32{2}, g.Keys("file", ".jpg"))

	// The mapi store discriminates on kind, truncated at the first ';'.
	assert.Equal(t, []string{"email"}, g.Discriminators("mapi"))
	assert.Equal(t, []uint32{3}, g.Keys("mapi", "email"))

	// No store value lands the record in the placeholder group.
	assert.Equal(t, []uint32{5}, g.Keys(UnknownValue, UnknownValue))
}

func TestScanPartitionsKeysWithoutLossOrDuplication(t *testing.T) {
	h := newPropertyStore(t)
	defer h.Close()

	g, err := Scan(h, testLogger())
	require.NoError(t, err)

	seen := make(map[uint32]int)
	for _, store := range g.Stores() {
		for _, disc := range g.Discriminators(store) {
			require.NotEmpty(t, g.Keys(store, disc))

			for _, key := range g.Keys(store, disc) {
				seen[key]++
			}
		}
	}

	assert.Equal(t, map[uint32]int{1: 1, 2: 1, 3: 1, 4: 1, 5: 1}, seen)
	assert.Equal(t, 5, g.TotalKeys())
}

func TestScanWithoutKeyColumnFails(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	tbl := db.AddTable(TableName)
	id := tbl.AddColumn("NotAKey", esent.ColtypLong, 0, 4)
	tbl.AddRow(esenttest.Row{id: le32(1)})

	h, skipped := catalog.Open(db, TableName, testLogger())
	require.False(t, skipped)
	defer h.Close()

	_, err := Scan(h, testLogger())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WorkID")
}

func TestScanWithoutDiscriminatorColumns(t *testing.T) {
	eng := esenttest.NewEngine()
	db := eng.AddDatabase("/work/db.edb")

	tbl := db.AddTable(TableName)
	workID := tbl.AddColumn("WorkID", esent.ColtypUnsignedLong, 0, 4)
	tbl.PrimaryKeyID = workID
	tbl.AddRow(esenttest.Row{workID: le32(9)})

	h, skipped := catalog.Open(db, TableName, testLogger())
	require.False(t, skipped)
	defer h.Close()

	g, err := Scan(h, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []string{UnknownValue}, g.Stores())
	assert.Equal(t, []uint32{9}, g.Keys(UnknownValue, UnknownValue))
}

func TestExportWritesOneArtifactPerGroup(t *testing.T) {
	h := newPropertyStore(t)
	defer h.Close()

	g, err := Scan(h, testLogger())
	require.NoError(t, err)

	sink := newRecSink()
	dec := decode.NewDecoder(decode.DefaultVocabulary())

	total, err := Export(h, g, dec, sink, nil, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Equal(t, 5, sink.infoRows)

	assert.Equal(t, []string{TableName}, sink.columnsFor)
	assert.Equal(t, []string{
		TableName + ".file..txt",
		TableName + ".file..jpg",
		TableName + ".mapi.email",
		TableName + "." + UnknownValue + "." + UnknownValue,
	}, sink.artifacts)

	// Group headers are unions of the group's populated columns only.
	txt := sink.records[TableName+".file..txt"]
	require.Len(t, txt, 2)
	assert.Equal(t, "1", txt[0].Get("WorkID"))
	assert.Equal(t, "100", txt[0].Get("4403-System_Size"))
	assert.Contains(t, sink.headers[TableName+".file..txt"], "4403-System_Size")
	assert.NotContains(t, sink.headers[TableName+".file..jpg"], "4403-System_Size")

	mapi := sink.records[TableName+".mapi.email"]
	require.Len(t, mapi, 1)
	assert.Equal(t, "email;communication", mapi[0].Get("27-System_KindText"))
}

func TestExportSkipsUnseekableKeys(t *testing.T) {
	h := newPropertyStore(t)
	defer h.Close()

	g, err := Scan(h, testLogger())
	require.NoError(t, err)

	// A key that vanished between the passes must not sink the group.
	g.add("file", ".txt", 999)

	sink := newRecSink()
	dec := decode.NewDecoder(decode.DefaultVocabulary())

	total, err := Export(h, g, dec, sink, nil, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	assert.Len(t, sink.records[TableName+".file..txt"], 2)
}

func TestExportReportsPerGroupProgress(t *testing.T) {
	h := newPropertyStore(t)
	defer h.Close()

	g, err := Scan(h, testLogger())
	require.NoError(t, err)

	type group struct {
		store, disc string
		records     int
	}

	var reported []group
	progress := func(store, disc string, records int) {
		reported = append(reported, group{store, disc, records})
	}

	sink := newRecSink()
	dec := decode.NewDecoder(decode.DefaultVocabulary())

	_, err = Export(h, g, dec, sink, progress, testLogger())
	require.NoError(t, err)

	assert.Equal(t, []group{
		{"file", ".txt", 2},
		{"file", ".jpg", 1},
		{"mapi", "email", 1},
		{UnknownValue, UnknownValue, 1},
	}, reported)
}

func TestTruncateKind(t *testing.T) {
	assert.Equal(t, "email", truncateKind("email;communication"))
	assert.Equal(t, "email", truncateKind("email"))
	assert.Equal(t, UnknownValue, truncateKind(";communication"))
	assert.Equal(t, UnknownValue, truncateKind(""))
}
