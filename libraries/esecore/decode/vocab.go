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

package decode

import (
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
)

// Vocabulary is the column-name domain knowledge the decoder disambiguates
// overloaded wire types with. Schemas reuse the 8-byte Binary type for sizes,
// timestamps, durations and identifiers alike, so names are the only signal.
// The sets are deliberately open-world: a name matching none of them falls
// back to hex, never to an error, because the observed schema varies across
// engine and content versions.
//
// A Vocabulary is immutable once handed to a Decoder. Tests and operators can
// substitute their own.
type Vocabulary struct {
	// SizeNames marks columns holding unsigned 64-bit byte counts or ids.
	SizeNames []string `toml:"size_names"`

	// DateNames marks columns holding FILETIME timestamps. Property-store
	// column names carry a numeric propid prefix ("4447-System_DateModified")
	// and store little-endian; the same names without the prefix come from
	// gatherer tables and store big-endian.
	DateNames []string `toml:"date_names"`

	// DurationNames marks columns holding elapsed 100ns tick counts.
	DurationNames []string `toml:"duration_names"`

	// UnicodeBlobNames is the allow-list of LongBinary columns that actually
	// hold text.
	UnicodeBlobNames []string `toml:"unicode_blob_names"`

	// SentinelDateName is the one gatherer column that is declared as an
	// 8-byte Binary and always stores a big-endian FILETIME.
	SentinelDateName string `toml:"sentinel_date_name"`

	// ImportanceMarker fuzzily marks priority/importance counters.
	ImportanceMarker string `toml:"importance_marker"`

	// FileNameMarker marks the one Binary column that holds a UTF-16 name.
	FileNameMarker string `toml:"file_name_marker"`

	// AttributeFlags maps file-attribute bits to display names, tested in
	// order when rendering attribute columns.
	AttributeFlags []AttrFlag `toml:"attribute_flags"`
}

// AttrFlag is one bit of a file-attribute mask and its display name.
type AttrFlag struct {
	Bit  uint64 `toml:"bit"`
	Name string `toml:"name"`
}

// DefaultVocabulary returns the vocabulary observed in Windows Search index
// databases. It is known to be incomplete relative to the full schema; that
// is intentional, unknown names must keep degrading to hex.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		SizeNames: []string{
			"System_Size",
			"System_FileFRN",
			"System_ThumbnailCacheId",
		},
		DateNames: []string{
			"System_DateModified",
			"System_DateCreated",
			"System_DateAccessed",
			"System_DateAcquired",
			"System_DateImported",
			"System_ItemDate",
			"System_Document_DateCreated",
			"System_Document_DateSaved",
			"System_Message_DateSent",
			"System_Message_DateReceived",
			"System_Search_GatherTime",
			"System_Media_DateEncoded",
		},
		DurationNames: []string{
			"System_Media_Duration",
		},
		UnicodeBlobNames: []string{
			"System_ItemUrl",
			"System_ItemPathDisplay",
			"System_ItemPathDisplayNarrow",
			"System_ItemNameDisplay",
			"System_Search_AutoSummary",
			"System_Title",
			"System_Author",
		},
		SentinelDateName: "LastModified",
		ImportanceMarker: "Importance",
		FileNameMarker:   "System_FileName",
		AttributeFlags: []AttrFlag{
			{0x1, "ReadOnly"},
			{0x2, "Hidden"},
			{0x4, "System"},
			{0x10, "Directory"},
			{0x20, "Archive"},
			{0x40, "Device"},
			{0x80, "Normal"},
			{0x100, "Temporary"},
			{0x200, "SparseFile"},
			{0x400, "ReparsePoint"},
			{0x800, "Compressed"},
			{0x1000, "Offline"},
			{0x2000, "NotContentIndexed"},
			{0x4000, "Encrypted"},
		},
	}
}

// LoadVocabulary reads a TOML overlay and merges it over the defaults. Only
// the fields present in the file are replaced, so an overlay can extend one
// set without restating the rest.
func LoadVocabulary(data []byte) (Vocabulary, error) {
	var overlay Vocabulary
	if err := toml.Unmarshal(data, &overlay); err != nil {
		return Vocabulary{}, errors.Wrap(err, "invalid vocabulary file")
	}

	v := DefaultVocabulary()

	if len(overlay.SizeNames) > 0 {
		v.SizeNames = overlay.SizeNames
	}
	if len(overlay.DateNames) > 0 {
		v.DateNames = overlay.DateNames
	}
	if len(overlay.DurationNames) > 0 {
		v.DurationNames = overlay.DurationNames
	}
	if len(overlay.UnicodeBlobNames) > 0 {
		v.UnicodeBlobNames = overlay.UnicodeBlobNames
	}
	if overlay.SentinelDateName != "" {
		v.SentinelDateName = overlay.SentinelDateName
	}
	if overlay.ImportanceMarker != "" {
		v.ImportanceMarker = overlay.ImportanceMarker
	}
	if overlay.FileNameMarker != "" {
		v.FileNameMarker = overlay.FileNameMarker
	}
	if len(overlay.AttributeFlags) > 0 {
		v.AttributeFlags = overlay.AttributeFlags
	}

	return v, nil
}

// nameMatches reports whether the column name falls in the given vocabulary
// set. Property-store names carry propid prefixes, so membership is a
// case-insensitive substring match.
func nameMatches(name string, vocab []string) bool {
	lower := strings.ToLower(name)
	for _, entry := range vocab {
		if strings.Contains(lower, strings.ToLower(entry)) {
			return true
		}
	}

	return false
}
