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

// Package decode converts raw column bytes into typed display values. The
// engine reports roughly a dozen wire types, but the schemas this tool reads
// span hundreds of column names that reuse a handful of them, the 8-byte
// Binary type most of all, for timestamps, sizes, durations, identifiers and
// free text. Interpretation therefore keys on the column name, in a fixed
// precedence order, and anything unrecognized or malformed degrades to a hex
// rendering instead of failing.
package decode

import (
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/encoding/unicode"

	"github.com/edbtools/edbexport/libraries/esecore/esent"
)

// RawValue is one cell as retrieved from the engine, together with the
// schema facts decoding needs.
type RawValue struct {
	Bytes      []byte
	Coltyp     esent.Coltyp
	ColumnName string
	MaxLength  uint32
	CodePage   uint16

	// NativeTime, when non-nil, retrieves this cell through the engine's own
	// date conversion. It is the fallback for DateTime columns whose raw
	// bytes do not parse as a FILETIME.
	NativeTime func() (time.Time, error)
}

// Decoder decodes cells using an immutable vocabulary.
type Decoder struct {
	vocab Vocabulary
}

// NewDecoder creates a Decoder around the given vocabulary.
func NewDecoder(vocab Vocabulary) *Decoder {
	return &Decoder{vocab: vocab}
}

// Vocabulary returns the decoder's vocabulary.
func (d *Decoder) Vocabulary() Vocabulary {
	return d.vocab
}

// Decode converts one cell. It never fails: null bytes yield the null value
// and every conversion problem yields the hex fallback.
func (d *Decoder) Decode(rv RawValue) Value {
	b := rv.Bytes
	if b == nil {
		return Null()
	}

	switch rv.Coltyp {
	case esent.ColtypBit:
		if len(b) == 1 {
			return Bool(b[0] != 0)
		}

	case esent.ColtypUnsignedByte:
		if len(b) == 1 {
			return Uint(uint64(b[0]))
		}

	case esent.ColtypShort:
		if len(b) == 2 {
			return Int(int64(int16(le16(b))))
		}

	case esent.ColtypUnsignedShort:
		if len(b) == 2 {
			return Uint(uint64(le16(b)))
		}

	case esent.ColtypLong:
		if len(b) == 4 {
			return Int(int64(int32(le32(b))))
		}

	case esent.ColtypUnsignedLong:
		if len(b) == 4 {
			return Uint(uint64(le32(b)))
		}

	case esent.ColtypCurrency, esent.ColtypLongLong:
		if len(b) == 8 {
			return Int(int64(le64(b)))
		}

	case esent.ColtypIEEESingle:
		if len(b) == 4 {
			return Float(float64(f32(b)))
		}

	case esent.ColtypIEEEDouble:
		if len(b) == 8 {
			return Float(f64(b))
		}

	case esent.ColtypGUID:
		if len(b) == 16 {
			return GUID(formatWindowsGUID(b))
		}

	case esent.ColtypText, esent.ColtypLongText:
		if s, ok := decodeText(b, rv.CodePage); ok {
			return String(s)
		}

	case esent.ColtypDateTime:
		if t, ok := filetimeLE(b); ok {
			return Time(t)
		}
		if rv.NativeTime != nil {
			if t, err := rv.NativeTime(); err == nil {
				return Time(t)
			}
		}

	case esent.ColtypBinary:
		return d.decodeBinary(rv)

	case esent.ColtypLongBinary:
		return d.decodeLongBinary(rv)
	}

	return Hex(b)
}

// decodeBinary disambiguates the overloaded 8-byte Binary wire type by
// column name. The precedence order below is load bearing: several names
// would match more than one set.
func (d *Decoder) decodeBinary(rv RawValue) Value {
	b := rv.Bytes
	name := rv.ColumnName

	switch {
	case nameMatches(name, d.vocab.SizeNames):
		if len(b) == 8 {
			return Uint(le64(b))
		}

	case strings.EqualFold(name, d.vocab.SentinelDateName) && rv.MaxLength == 8:
		if t, ok := filetimeBE(b); ok {
			return Time(t)
		}

	case nameMatches(name, d.vocab.DateNames) && hasPropidPrefix(name):
		if t, ok := filetimeLE(b); ok {
			return Time(t)
		}

	case nameMatches(name, d.vocab.DateNames):
		if t, ok := filetimeBE(b); ok {
			return Time(t)
		}

	case nameMatches(name, d.vocab.DurationNames):
		if len(b) == 8 {
			return Ticks(le64(b))
		}

	case strings.Contains(name, d.vocab.ImportanceMarker):
		if len(b) == 8 {
			return Uint(le64(b))
		}

	case strings.Contains(name, d.vocab.FileNameMarker):
		if s, ok := DecodeUTF16(b); ok {
			return String(s)
		}
	}

	return Hex(b)
}

// decodeLongBinary decodes large blobs. Only allow-listed columns are known
// to hold text; the stored form begins with a two-digit prefix when it is
// UTF-16 and is plain UTF-8 otherwise. Everything else stays hex.
func (d *Decoder) decodeLongBinary(rv RawValue) Value {
	b := rv.Bytes

	if !nameMatches(rv.ColumnName, d.vocab.UnicodeBlobNames) {
		return Hex(b)
	}

	// The two-digit prefix is a textual property; in the stored UTF-16LE
	// bytes each digit is followed by a NUL.
	if len(b) >= 4 && isASCIIDigit(b[0]) && b[1] == 0 && isASCIIDigit(b[2]) && b[3] == 0 {
		if s, ok := DecodeUTF16(b); ok {
			return String(s)
		}

		return Hex(b)
	}

	if utf8.Valid(b) {
		return String(strings.TrimRight(string(b), "\x00"))
	}

	return Hex(b)
}

// FormatFileAttributes renders a file-attribute mask as a comma-joined list
// of flag names followed by the raw value, for example "ReadOnly, Archive
// (33)".
func (d *Decoder) FormatFileAttributes(mask uint64) string {
	var names []string
	for _, flag := range d.vocab.AttributeFlags {
		if mask&flag.Bit != 0 {
			names = append(names, flag.Name)
		}
	}

	var sb strings.Builder
	sb.WriteString(strings.Join(names, ", "))
	if len(names) > 0 {
		sb.WriteString(" ")
	}
	sb.WriteString("(")
	sb.WriteString(Uint(mask).String())
	sb.WriteString(")")

	return sb.String()
}

// DecodeUTF16 decodes a little-endian UTF-16 buffer, dropping a trailing
// NUL. It reports false for buffers of odd length.
func DecodeUTF16(b []byte) (string, bool) {
	if len(b)%2 != 0 {
		return "", false
	}

	dec := unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM).NewDecoder()
	s, err := dec.String(string(b))

	if err != nil {
		return "", false
	}

	return strings.TrimRight(s, "\x00"), true
}

// decodeText decodes Text and LongText columns using the table-reported code
// page; absent or Unicode code pages decode as UTF-16.
func decodeText(b []byte, codePage uint16) (string, bool) {
	switch codePage {
	case 1252:
		s, err := charmap.Windows1252.NewDecoder().String(string(b))

		if err != nil {
			return "", false
		}

		return strings.TrimRight(s, "\x00"), true

	case 65001, 20127:
		if !utf8.Valid(b) {
			return "", false
		}

		return strings.TrimRight(string(b), "\x00"), true

	default:
		return DecodeUTF16(b)
	}
}

// formatWindowsGUID renders the engine's mixed-endian GUID layout: the first
// three fields are little-endian, the final eight bytes are not.
func formatWindowsGUID(b []byte) string {
	var rfc [16]byte
	rfc[0], rfc[1], rfc[2], rfc[3] = b[3], b[2], b[1], b[0]
	rfc[4], rfc[5] = b[5], b[4]
	rfc[6], rfc[7] = b[7], b[6]
	copy(rfc[8:], b[8:16])

	u, err := uuid.FromBytes(rfc[:])
	if err != nil {
		return ""
	}

	return "{" + u.String() + "}"
}

func hasPropidPrefix(name string) bool {
	return len(name) >= 2 && isASCIIDigit(name[0]) && isASCIIDigit(name[1])
}

func isASCIIDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func le16(b []byte) uint16 {
	return uint16(b[0]) | uint16(b[1])<<8
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func le64(b []byte) uint64 {
	return uint64(le32(b)) | uint64(le32(b[4:]))<<32
}

func f32(b []byte) float32 {
	return math.Float32frombits(le32(b))
}

func f64(b []byte) float64 {
	return math.Float64frombits(le64(b))
}
