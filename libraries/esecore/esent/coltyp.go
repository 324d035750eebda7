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

package esent

// Coltyp is an ESE column wire type (JET_coltyp). The engine exposes about a
// dozen of these; the schemas we read reuse a handful of them (Binary and
// LongBinary especially) for hundreds of semantically distinct columns.
type Coltyp uint32

const (
	ColtypNil           Coltyp = 0
	ColtypBit           Coltyp = 1
	ColtypUnsignedByte  Coltyp = 2
	ColtypShort         Coltyp = 3
	ColtypLong          Coltyp = 4
	ColtypCurrency      Coltyp = 5
	ColtypIEEESingle    Coltyp = 6
	ColtypIEEEDouble    Coltyp = 7
	ColtypDateTime      Coltyp = 8
	ColtypBinary        Coltyp = 9
	ColtypText          Coltyp = 10
	ColtypLongBinary    Coltyp = 11
	ColtypLongText      Coltyp = 12
	ColtypSLV           Coltyp = 13
	ColtypUnsignedLong  Coltyp = 14
	ColtypLongLong      Coltyp = 15
	ColtypGUID          Coltyp = 16
	ColtypUnsignedShort Coltyp = 17
)

var coltypNames = map[Coltyp]string{
	ColtypNil:           "Nil",
	ColtypBit:           "Bit",
	ColtypUnsignedByte:  "UnsignedByte",
	ColtypShort:         "Short",
	ColtypLong:          "Long",
	ColtypCurrency:      "Currency",
	ColtypIEEESingle:    "IEEESingle",
	ColtypIEEEDouble:    "IEEEDouble",
	ColtypDateTime:      "DateTime",
	ColtypBinary:        "Binary",
	ColtypText:          "Text",
	ColtypLongBinary:    "LongBinary",
	ColtypLongText:      "LongText",
	ColtypSLV:           "SLV",
	ColtypUnsignedLong:  "UnsignedLong",
	ColtypLongLong:      "LongLong",
	ColtypGUID:          "GUID",
	ColtypUnsignedShort: "UnsignedShort",
}

func (ct Coltyp) String() string {
	if name, ok := coltypNames[ct]; ok {
		return name
	}

	return "Unknown"
}
