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
	"encoding/hex"
	"fmt"
	"strconv"
	"time"
)

// Kind identifies the typed scalar a cell decoded to.
type Kind int

const (
	KindNull Kind = iota
	KindBool
	KindInt
	KindUint
	KindFloat
	KindString
	KindTime
	KindDuration
	KindGUID
	KindHex
)

// filetimeLayout renders timestamps the way downstream consumers of these
// exports expect them: day first, seven fractional digits, UTC.
const filetimeLayout = "02/01/2006 15:04:05.0000000"

// Value is one decoded cell: a typed scalar or null. The zero Value is null.
type Value struct {
	kind Kind
	i    int64
	u    uint64
	f    float64
	b    bool
	s    string
	t    time.Time
}

// Null returns the null Value.
func Null() Value {
	return Value{}
}

// Bool wraps a boolean.
func Bool(b bool) Value {
	return Value{kind: KindBool, b: b}
}

// Int wraps a signed integer.
func Int(i int64) Value {
	return Value{kind: KindInt, i: i}
}

// Uint wraps an unsigned integer.
func Uint(u uint64) Value {
	return Value{kind: KindUint, u: u}
}

// Float wraps a float.
func Float(f float64) Value {
	return Value{kind: KindFloat, f: f}
}

// String wraps a string.
func String(s string) Value {
	return Value{kind: KindString, s: s}
}

// Time wraps a timestamp.
func Time(t time.Time) Value {
	return Value{kind: KindTime, t: t.UTC()}
}

// Ticks wraps an elapsed duration counted in 100 nanosecond ticks.
func Ticks(ticks uint64) Value {
	return Value{kind: KindDuration, u: ticks}
}

// GUID wraps an already formatted GUID string.
func GUID(s string) Value {
	return Value{kind: KindGUID, s: s}
}

// Hex wraps raw bytes as the canonical lower-case hex fallback rendering.
// Every unrecoverable cell degrades to this rather than failing.
func Hex(b []byte) Value {
	return Value{kind: KindHex, s: hex.EncodeToString(b)}
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	return v.kind
}

// IsNull reports whether the value is null.
func (v Value) IsNull() bool {
	return v.kind == KindNull
}

// Uint64 returns the unsigned payload of a KindUint or KindDuration value.
func (v Value) Uint64() uint64 {
	return v.u
}

// String renders the value for export. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindNull:
		return ""
	case KindBool:
		return strconv.FormatBool(v.b)
	case KindInt:
		return strconv.FormatInt(v.i, 10)
	case KindUint:
		return strconv.FormatUint(v.u, 10)
	case KindFloat:
		return strconv.FormatFloat(v.f, 'g', -1, 64)
	case KindString, KindGUID, KindHex:
		return v.s
	case KindTime:
		return v.t.Format(filetimeLayout)
	case KindDuration:
		return formatTicks(v.u)
	}

	return ""
}

// formatTicks renders an elapsed tick count as dd:hh:mm:ss followed by the
// raw count.
func formatTicks(ticks uint64) string {
	secs := ticks / 10000000

	days := secs / 86400
	hours := secs % 86400 / 3600
	mins := secs % 3600 / 60

	return fmt.Sprintf("%02d:%02d:%02d:%02d (%d)", days, hours, mins, secs%60, ticks)
}
