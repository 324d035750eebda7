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
	"encoding/binary"
	"time"
)

// filetimeEpochDelta is the number of seconds between the FILETIME epoch
// (1 January 1601) and the Unix epoch.
const filetimeEpochDelta = 11644473600

// fromFiletime converts a 64-bit FILETIME (100 nanosecond intervals since
// 1601) to a UTC time. It reports false for values that do not land in a
// plausible calendar range; those degrade to the hex fallback upstream.
func fromFiletime(ft uint64) (time.Time, bool) {
	secs := int64(ft/10000000) - filetimeEpochDelta
	nanos := int64(ft%10000000) * 100

	t := time.Unix(secs, nanos).UTC()
	if t.Year() < 1601 || t.Year() > 9999 {
		return time.Time{}, false
	}

	return t, true
}

// filetimeLE interprets an 8-byte buffer as a little-endian FILETIME, the
// layout the property store writes.
func filetimeLE(b []byte) (time.Time, bool) {
	if len(b) != 8 {
		return time.Time{}, false
	}

	return fromFiletime(binary.LittleEndian.Uint64(b))
}

// filetimeBE interprets an 8-byte buffer as a big-endian FILETIME. The
// gatherer tables store their timestamps byte-reversed relative to the
// property store.
func filetimeBE(b []byte) (time.Time, bool) {
	if len(b) != 8 {
		return time.Time{}, false
	}

	return fromFiletime(binary.BigEndian.Uint64(b))
}
