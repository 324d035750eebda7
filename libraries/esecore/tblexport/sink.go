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
	"encoding/csv"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/edbtools/edbexport/libraries/esecore/esent"
	"github.com/edbtools/edbexport/libraries/utils/filesys"
)

// Sink receives a table's export artifacts. One table produces one columns
// artifact, one info artifact, and one or more records artifacts (grouped
// tables write one per group).
type Sink interface {
	// WriteColumns writes the table's schema artifact.
	WriteColumns(table string, cols []esent.ColumnInfo) error

	// WriteRecords writes one records artifact and returns the number of
	// bytes written.
	WriteRecords(artifact string, header []string, rows []*Row) (int64, error)

	// WriteInfo writes the table's summary artifact.
	WriteInfo(table string, rowCount int, recordBytes int64) error
}

// DirSink writes delimited artifacts into a single output directory.
type DirSink struct {
	fs    filesys.Filesys
	dir   string
	delim rune
}

var _ Sink = (*DirSink)(nil)

// NewDirSink creates the output directory and returns a sink writing into
// it. delim is the field delimiter for records and columns artifacts.
func NewDirSink(fs filesys.Filesys, dir string, delim rune) (*DirSink, error) {
	err := fs.MkDirs(dir)
	if err != nil {
		return nil, errors.Wrapf(err, "unable to create output directory %s", dir)
	}

	return &DirSink{fs: fs, dir: dir, delim: delim}, nil
}

func (s *DirSink) WriteColumns(table string, cols []esent.ColumnInfo) error {
	wc, err := s.fs.OpenForWrite(s.artifactPath(table, "columns.csv"), 0644)
	if err != nil {
		return err
	}
	defer wc.Close()

	w := csv.NewWriter(wc)
	w.Comma = s.delim

	err = w.Write([]string{"name", "id", "type", "cbmax", "codepage"})
	if err != nil {
		return err
	}

	for _, ci := range cols {
		err = w.Write([]string{
			ci.Name,
			strconv.FormatUint(uint64(ci.ID), 10),
			ci.Coltyp.String(),
			strconv.FormatUint(uint64(ci.MaxLength), 10),
			strconv.FormatUint(uint64(ci.CodePage), 10),
		})
		if err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

func (s *DirSink) WriteRecords(artifact string, header []string, rows []*Row) (int64, error) {
	wc, err := s.fs.OpenForWrite(s.artifactPath(artifact, "records.csv"), 0644)
	if err != nil {
		return 0, err
	}
	defer wc.Close()

	cw := &countingWriter{w: wc}
	w := csv.NewWriter(cw)
	w.Comma = s.delim

	err = w.Write(header)
	if err != nil {
		return cw.n, err
	}

	rec := make([]string, len(header))
	for _, row := range rows {
		for i, col := range header {
			rec[i] = row.Get(col)
		}

		err = w.Write(rec)
		if err != nil {
			return cw.n, err
		}
	}

	w.Flush()
	return cw.n, w.Error()
}

func (s *DirSink) WriteInfo(table string, rowCount int, recordBytes int64) error {
	var sb strings.Builder
	fmt.Fprintf(&sb, "table: %s\n", table)
	fmt.Fprintf(&sb, "records: %s\n", humanize.Comma(int64(rowCount)))
	fmt.Fprintf(&sb, "written: %s\n", humanize.Bytes(uint64(recordBytes)))

	return s.fs.WriteFile(s.artifactPath(table, "info.txt"), []byte(sb.String()), 0644)
}

func (s *DirSink) artifactPath(artifact, suffix string) string {
	return filepath.Join(s.dir, sanitizeArtifact(artifact)+"."+suffix)
}

// sanitizeArtifact maps group and table names onto filesystem-safe artifact
// names. Store and discriminator values come straight out of the database
// and can hold separators or anything else.
func sanitizeArtifact(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
			return r
		case r == '.' || r == '-' || r == '_':
			return r
		default:
			return '_'
		}
	}, name)
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)

	return n, err
}
