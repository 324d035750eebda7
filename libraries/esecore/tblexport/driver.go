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
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edbtools/edbexport/libraries/esecore/catalog"
	"github.com/edbtools/edbexport/libraries/esecore/decode"
	"github.com/edbtools/edbexport/libraries/esecore/esent"
)

// int32Columns names the system-table columns that bypass the byte decoder.
// The engine stores these compressed, so raw retrieval returns bytes that do
// not decode as plain integers; the typed retrieval path asks the engine to
// expand them instead.
var int32Columns = map[string]map[string]bool{
	"MSysObjects":       {"ObjidTable": true, "Type": true, "Id": true},
	"MSysObjectsShadow": {"ObjidTable": true, "Type": true, "Id": true},
	"MSysObjids":        {"objid": true, "objidTable": true, "type": true},
	"MSysLocales":       {"LCMapFlags": true},
}

// fileAttributesColumn marks the column whose numeric value is expanded into
// a flag list after decoding.
const fileAttributesColumn = "System_FileAttributes"

// Exporter decodes table records and writes them through a sink.
type Exporter struct {
	dec  *decode.Decoder
	sink Sink
	lg   *logrus.Entry
}

// NewExporter creates an Exporter.
func NewExporter(dec *decode.Decoder, sink Sink, lg *logrus.Entry) *Exporter {
	return &Exporter{dec: dec, sink: sink, lg: lg}
}

// ExportTable scans an open table from its current position to the end,
// decodes every record, and writes the table's artifacts. Tables where no
// record decoded a single cell produce no records artifact. Returns the
// number of exported records.
func (e *Exporter) ExportTable(h *catalog.Handle) (int, error) {
	lg := e.lg.WithField("table", h.Name)

	err := e.sink.WriteColumns(h.Name, h.Cols.All)
	if err != nil {
		return 0, err
	}

	special := int32Columns[h.Name]

	var rows []*Row
	for {
		row := DecodeRow(h.Table, h.Cols.All, e.dec, special, lg)
		if row.Len() > 0 {
			rows = append(rows, row)
		}

		err = h.Table.MoveNext()
		if err != nil {
			if !esent.IsNoCurrentRecord(err) {
				lg.WithError(err).Warn("scan stopped early")
			}

			break
		}
	}

	var written int64
	if len(rows) > 0 {
		written, err = e.sink.WriteRecords(h.Name, UnionHeader(rows), rows)
		if err != nil {
			return 0, err
		}
	}

	err = e.sink.WriteInfo(h.Name, len(rows), written)
	if err != nil {
		return 0, err
	}

	return len(rows), nil
}

// DecodeRow decodes the record the cursor is positioned on. Cells in
// int32Cols go through the engine's typed retrieval; everything else goes
// through the byte decoder. Cell failures are logged and skipped, never
// propagated.
func DecodeRow(tbl esent.Table, cols []esent.ColumnInfo, dec *decode.Decoder, int32Cols map[string]bool, lg *logrus.Entry) *Row {
	row := NewRow()

	for _, ci := range cols {
		if int32Cols[ci.Name] {
			v, err := tbl.RetrieveInt32(ci.ID)
			if err != nil {
				lg.WithError(err).WithField("column", ci.Name).Debug("typed retrieval failed")
				continue
			}

			row.Set(ci.Name, strconv.FormatInt(int64(v), 10))
			continue
		}

		b, err := tbl.RetrieveColumn(ci.ID)
		if err != nil {
			lg.WithError(err).WithField("column", ci.Name).Debug("retrieval failed")
			continue
		}

		rv := decode.RawValue{
			Bytes:      b,
			Coltyp:     ci.Coltyp,
			ColumnName: ci.Name,
			MaxLength:  ci.MaxLength,
			CodePage:   ci.CodePage,
		}

		if ci.Coltyp == esent.ColtypDateTime {
			id := ci.ID
			rv.NativeTime = func() (time.Time, error) {
				return tbl.RetrieveDateTime(id)
			}
		}

		v := dec.Decode(rv)

		if strings.HasSuffix(ci.Name, fileAttributesColumn) && v.Kind() == decode.KindUint {
			row.Set(ci.Name, dec.FormatFileAttributes(v.Uint64()))
			continue
		}

		row.Set(ci.Name, v.String())
	}

	return row
}
