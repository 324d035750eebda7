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

// Package tblexport walks open tables, decodes their cells and writes the
// per-table export artifacts through a Sink.
package tblexport

import (
	"github.com/edbtools/edbexport/libraries/utils/set"
)

// Row is one exported record. Columns keep insertion order and only columns
// that decoded to a non-empty rendering are present, so sparse tables stay
// sparse in the output.
type Row struct {
	cols []string
	vals map[string]string
}

// NewRow creates an empty row.
func NewRow() *Row {
	return &Row{vals: make(map[string]string)}
}

// Set records a cell. Empty renderings are dropped.
func (r *Row) Set(col, val string) {
	if val == "" {
		return
	}

	if _, ok := r.vals[col]; !ok {
		r.cols = append(r.cols, col)
	}

	r.vals[col] = val
}

// Get returns the rendering for a column, or the empty string.
func (r *Row) Get(col string) string {
	return r.vals[col]
}

// Columns returns the row's column names in insertion order.
func (r *Row) Columns() []string {
	return r.cols
}

// Len returns the number of populated cells.
func (r *Row) Len() int {
	return len(r.cols)
}

// UnionHeader builds the header for a set of rows: the insertion-ordered
// union of every column populated in any of them.
func UnionHeader(rows []*Row) []string {
	header := set.NewStrSet(nil)
	for _, r := range rows {
		header.Add(r.cols...)
	}

	return header.AsSlice()
}
