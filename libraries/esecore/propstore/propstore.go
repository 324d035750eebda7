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

// Package propstore exports the Windows Search property store. The table is
// one huge polymorphic bag: every indexed item of every store lives in it,
// keyed by WorkID, with hundreds of sparse System_* columns. Exporting it
// flat would bury each item type's columns in everyone else's, so records
// are partitioned by store and item type and each partition gets its own
// artifact with its own header.
//
// The partitioning is done in two passes. The first scans the table once
// reading only the key and the discriminator columns, building the group
// key lists. The second switches the cursor to the primary index and seeks
// each key once, decoding the full record. No record is read twice.
package propstore

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/edbtools/edbexport/libraries/esecore/catalog"
	"github.com/edbtools/edbexport/libraries/esecore/decode"
	"github.com/edbtools/edbexport/libraries/esecore/esent"
	"github.com/edbtools/edbexport/libraries/esecore/tblexport"
)

const (
	// TableName is the property store's table name.
	TableName = "SystemIndex_PropertyStore"

	// KeyColumn is the uint32 primary key.
	KeyColumn = "WorkID"

	// StoreColumn is the major-type discriminator: which indexing store the
	// item came from (file, mapi, csc, ...).
	StoreColumn = "System_Search_Store"

	// ItemTypeColumn is the sub-type discriminator for every store except
	// mapi, typically a file extension.
	ItemTypeColumn = "System_ItemType"

	// KindColumn is the sub-type discriminator for the mapi store, whose
	// items all share one item type. The value is a ';'-separated list; only
	// the first entry discriminates.
	KindColumn = "System_KindText"

	// MapiStore is the store name that switches the sub-type discriminator
	// from item type to kind.
	MapiStore = "mapi"

	// UnknownValue stands in for a missing or empty discriminator so a record
	// always lands in a group.
	UnknownValue = "Unknown"
)

// Grouping is the pass-1 result: per store, per sub-type discriminator, the
// ordered list of primary keys. Orders follow first observation.
type Grouping struct {
	stores []string
	groups map[string]*storeGroup
}

type storeGroup struct {
	discs []string
	keys  map[string][]uint32
}

func newGrouping() *Grouping {
	return &Grouping{groups: make(map[string]*storeGroup)}
}

func (g *Grouping) add(store, disc string, key uint32) {
	sg, ok := g.groups[store]
	if !ok {
		sg = &storeGroup{keys: make(map[string][]uint32)}
		g.groups[store] = sg
		g.stores = append(g.stores, store)
	}

	if _, ok = sg.keys[disc]; !ok {
		sg.discs = append(sg.discs, disc)
	}

	sg.keys[disc] = append(sg.keys[disc], key)
}

// Stores returns the store names in first-observed order.
func (g *Grouping) Stores() []string {
	return g.stores
}

// Discriminators returns a store's sub-type values in first-observed order.
func (g *Grouping) Discriminators(store string) []string {
	sg, ok := g.groups[store]
	if !ok {
		return nil
	}

	return sg.discs
}

// Keys returns the ordered primary keys of one group.
func (g *Grouping) Keys(store, disc string) []uint32 {
	sg, ok := g.groups[store]
	if !ok {
		return nil
	}

	return sg.keys[disc]
}

// TotalKeys returns the number of keys across all groups.
func (g *Grouping) TotalKeys() int {
	n := 0
	for _, sg := range g.groups {
		for _, keys := range sg.keys {
			n += len(keys)
		}
	}

	return n
}

// Scan is pass 1: one sequential read of the table, which must be positioned
// on its first record, collecting only the key and the discriminators. A
// record whose key cannot be read is skipped with a warning; missing
// discriminator columns or values fall back to UnknownValue.
func Scan(h *catalog.Handle, lg *logrus.Entry) (*Grouping, error) {
	lg = lg.WithField("table", h.Name)

	keyCol, ok := findColumn(h.Cols.All, KeyColumn)
	if !ok {
		return nil, errors.Errorf("table %s has no %s column", h.Name, KeyColumn)
	}

	storeCol, hasStore := findColumn(h.Cols.All, StoreColumn)
	itemTypeCol, hasItemType := findColumn(h.Cols.All, ItemTypeColumn)
	kindCol, hasKind := findColumn(h.Cols.All, KindColumn)

	g := newGrouping()
	for {
		key, err := h.Table.RetrieveInt32(keyCol.ID)
		if err != nil {
			lg.WithError(err).Warn("record key unreadable; record skipped")
		} else {
			store := UnknownValue
			if hasStore {
				store = readDiscriminator(h.Table, storeCol.ID)
			}

			disc := UnknownValue
			if store == MapiStore {
				if hasKind {
					disc = truncateKind(readDiscriminator(h.Table, kindCol.ID))
				}
			} else if hasItemType {
				disc = readDiscriminator(h.Table, itemTypeCol.ID)
			}

			g.add(store, disc, uint32(key))
		}

		err = h.Table.MoveNext()
		if err != nil {
			if !esent.IsNoCurrentRecord(err) {
				lg.WithError(err).Warn("scan stopped early")
			}

			break
		}
	}

	return g, nil
}

// ProgressFunc receives one call per written group, for user-facing
// progress. Groups can take minutes each on a large index, so reporting
// happens as they complete rather than at the end.
type ProgressFunc func(store, disc string, records int)

// Export is pass 2: seeks every grouped key on the primary index, decodes
// the full record, and writes one records artifact per group plus the
// table's columns and info artifacts. progress may be nil. Returns the
// number of exported records.
func Export(h *catalog.Handle, g *Grouping, dec *decode.Decoder, sink tblexport.Sink, progress ProgressFunc, lg *logrus.Entry) (int, error) {
	lg = lg.WithField("table", h.Name)

	err := sink.WriteColumns(h.Name, h.Cols.All)
	if err != nil {
		return 0, err
	}

	// An empty index name selects the primary index.
	err = h.Table.SetCurrentIndex("")
	if err != nil {
		return 0, errors.Wrap(err, "unable to switch to the primary index")
	}

	total := 0
	var written int64

	for _, store := range g.Stores() {
		for _, disc := range g.Discriminators(store) {
			keys := g.Keys(store, disc)

			rows := make([]*tblexport.Row, 0, len(keys))
			for _, key := range keys {
				err = h.Table.SeekUint32(key)
				if err != nil {
					lg.WithError(err).WithField("key", key).Warn("seek failed; record skipped")
					continue
				}

				row := tblexport.DecodeRow(h.Table, h.Cols.All, dec, nil, lg)
				if row.Len() > 0 {
					rows = append(rows, row)
				}
			}

			if len(rows) == 0 {
				continue
			}

			artifact := fmt.Sprintf("%s.%s.%s", h.Name, store, disc)

			n, err := sink.WriteRecords(artifact, tblexport.UnionHeader(rows), rows)
			if err != nil {
				return total, err
			}

			written += n
			total += len(rows)

			if progress != nil {
				progress(store, disc, len(rows))
			}

			lg.WithFields(logrus.Fields{
				"store":   store,
				"type":    disc,
				"records": len(rows),
			}).Debug("group exported")
		}
	}

	err = sink.WriteInfo(h.Name, total, written)
	if err != nil {
		return total, err
	}

	return total, nil
}

// findColumn resolves a well-known column. Property store column names carry
// a numeric propid prefix ("4447-System_DateModified"), so matching is by
// suffix.
func findColumn(cols []esent.ColumnInfo, name string) (esent.ColumnInfo, bool) {
	for _, ci := range cols {
		if ci.Name == name || strings.HasSuffix(ci.Name, "-"+name) {
			return ci, true
		}
	}

	return esent.ColumnInfo{}, false
}

// readDiscriminator does the minimal UTF-16 read pass 1 needs; null, empty
// or undecodable values fall back to UnknownValue.
func readDiscriminator(tbl esent.Table, columnID uint32) string {
	b, err := tbl.RetrieveColumn(columnID)
	if err != nil || len(b) == 0 {
		return UnknownValue
	}

	s, ok := decode.DecodeUTF16(b)
	if !ok || s == "" {
		return UnknownValue
	}

	return s
}

// truncateKind keeps the first entry of a ';'-separated kind list.
func truncateKind(kind string) string {
	if i := strings.IndexByte(kind, ';'); i >= 0 {
		kind = kind[:i]
	}

	if kind == "" {
		return UnknownValue
	}

	return kind
}
