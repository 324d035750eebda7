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

//go:build windows

package esent

import (
	"encoding/binary"
	"math"
	"time"
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

var (
	modesent = windows.NewLazySystemDLL("esent.dll")

	procJetCreateInstance2W    = modesent.NewProc("JetCreateInstance2W")
	procJetSetSystemParameterW = modesent.NewProc("JetSetSystemParameterW")
	procJetInit2               = modesent.NewProc("JetInit2")
	procJetTerm2               = modesent.NewProc("JetTerm2")
	procJetBeginSessionW       = modesent.NewProc("JetBeginSessionW")
	procJetEndSession          = modesent.NewProc("JetEndSession")
	procJetAttachDatabase2W    = modesent.NewProc("JetAttachDatabase2W")
	procJetDetachDatabaseW     = modesent.NewProc("JetDetachDatabaseW")
	procJetOpenDatabaseW       = modesent.NewProc("JetOpenDatabaseW")
	procJetCloseDatabase       = modesent.NewProc("JetCloseDatabase")
	procJetOpenTableW          = modesent.NewProc("JetOpenTableW")
	procJetCloseTable          = modesent.NewProc("JetCloseTable")
	procJetMove                = modesent.NewProc("JetMove")
	procJetMakeKey             = modesent.NewProc("JetMakeKey")
	procJetSeek                = modesent.NewProc("JetSeek")
	procJetRetrieveColumn      = modesent.NewProc("JetRetrieveColumn")
	procJetGetTableColumnInfoW = modesent.NewProc("JetGetTableColumnInfoW")
	procJetGetObjectInfoW      = modesent.NewProc("JetGetObjectInfoW")
	procJetSetCurrentIndexW    = modesent.NewProc("JetSetCurrentIndexW")
	procJetIndexRecordCount    = modesent.NewProc("JetIndexRecordCount")
)

const (
	bitDbReadOnly      = 0x1
	bitNewKey          = 0x1
	bitSeekEQ          = 0x1
	moveFirst          = -2147483648
	moveNext           = 1
	wrnBufferTruncated = 1006

	objtypTable        = 1
	colInfoList        = 1
	objInfoListNoStats = 9
)

// jetCall invokes an esent entry point and converts its JET_ERR return into a
// JetError. Positive return codes are warnings and treated as success.
func jetCall(proc *windows.LazyProc, op string, args ...uintptr) error {
	if err := proc.Find(); err != nil {
		return errors.Wrapf(err, "esent: %s is not available", op)
	}

	r1, _, _ := proc.Call(args...)
	code := int32(r1)

	if code < 0 {
		return MethodFailure(op, code)
	}

	return nil
}

// winApi is the production Api bound to esent.dll.
type winApi struct{}

// NewApi returns the engine implementation for this platform.
func NewApi() (Api, error) {
	if err := modesent.Load(); err != nil {
		return nil, errors.Wrap(err, "unable to load esent.dll")
	}

	return winApi{}, nil
}

func (winApi) CreateInstance(name string) (Instance, error) {
	nameu, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}

	inst := &winInstance{}
	err = jetCall(procJetCreateInstance2W, "JetCreateInstance2",
		uintptr(unsafe.Pointer(&inst.id)),
		uintptr(unsafe.Pointer(nameu)),
		uintptr(unsafe.Pointer(nameu)),
		0)

	if err != nil {
		return nil, err
	}

	return inst, nil
}

type winInstance struct {
	id uintptr
}

func (in *winInstance) SetSystemParameter(p Param, intVal int, strVal string) error {
	var strp *uint16
	if strVal != "" {
		var err error
		strp, err = windows.UTF16PtrFromString(strVal)

		if err != nil {
			return err
		}
	}

	return jetCall(procJetSetSystemParameterW, "JetSetSystemParameter",
		uintptr(unsafe.Pointer(&in.id)),
		0,
		uintptr(p),
		uintptr(intVal),
		uintptr(unsafe.Pointer(strp)))
}

func (in *winInstance) Init() error {
	return jetCall(procJetInit2, "JetInit", uintptr(unsafe.Pointer(&in.id)), 0)
}

func (in *winInstance) Term() error {
	return jetCall(procJetTerm2, "JetTerm", in.id, 0)
}

func (in *winInstance) BeginSession() (Session, error) {
	sess := &winSession{}
	err := jetCall(procJetBeginSessionW, "JetBeginSession",
		in.id,
		uintptr(unsafe.Pointer(&sess.id)),
		0,
		0)

	if err != nil {
		return nil, err
	}

	return sess, nil
}

type winSession struct {
	id uintptr
}

func (s *winSession) AttachDatabase(path string) error {
	pathu, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}

	return jetCall(procJetAttachDatabase2W, "JetAttachDatabase2",
		s.id,
		uintptr(unsafe.Pointer(pathu)),
		0,
		bitDbReadOnly)
}

func (s *winSession) DetachDatabase(path string) error {
	pathu, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return err
	}

	return jetCall(procJetDetachDatabaseW, "JetDetachDatabase",
		s.id,
		uintptr(unsafe.Pointer(pathu)))
}

func (s *winSession) OpenDatabase(path string) (Database, error) {
	pathu, err := windows.UTF16PtrFromString(path)
	if err != nil {
		return nil, err
	}

	db := &winDatabase{sesid: s.id}
	err = jetCall(procJetOpenDatabaseW, "JetOpenDatabase",
		s.id,
		uintptr(unsafe.Pointer(pathu)),
		0,
		uintptr(unsafe.Pointer(&db.dbid)),
		bitDbReadOnly)

	if err != nil {
		return nil, err
	}

	return db, nil
}

func (s *winSession) End() error {
	return jetCall(procJetEndSession, "JetEndSession", s.id, 0)
}

type winDatabase struct {
	sesid uintptr
	dbid  uint32
}

// objectList mirrors JET_OBJECTLIST.
type objectList struct {
	cbStruct              uint32
	_                     uint32
	tableid               uintptr
	cRecord               uint32
	columnidcontainername uint32
	columnidobjectname    uint32
	columnidobjtyp        uint32
	columniddtCreate      uint32
	columniddtUpdate      uint32
	columnidgrbit         uint32
	columnidflags         uint32
	columnidcRecord       uint32
	columnidcPage         uint32
}

func (db *winDatabase) TableNames() ([]string, error) {
	var ol objectList
	ol.cbStruct = uint32(unsafe.Sizeof(ol))

	err := jetCall(procJetGetObjectInfoW, "JetGetObjectInfo",
		db.sesid,
		uintptr(db.dbid),
		objtypTable,
		0,
		0,
		uintptr(unsafe.Pointer(&ol)),
		uintptr(ol.cbStruct),
		objInfoListNoStats)

	if err != nil {
		return nil, err
	}

	list := &winTable{sesid: db.sesid, tableid: ol.tableid}
	defer list.Close()

	var names []string
	err = list.MoveFirst()
	for err == nil {
		var objtyp int32
		objtyp, err = list.RetrieveInt32(ol.columnidobjtyp)

		if err != nil {
			return nil, err
		}

		if objtyp == objtypTable {
			raw, rerr := list.RetrieveColumn(ol.columnidobjectname)

			if rerr != nil {
				return nil, rerr
			}

			names = append(names, decodeUTF16Z(raw))
		}

		err = list.MoveNext()
	}

	if !IsNoCurrentRecord(err) {
		return nil, err
	}

	return names, nil
}

func (db *winDatabase) OpenTable(name string) (Table, error) {
	nameu, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return nil, err
	}

	tbl := &winTable{sesid: db.sesid}
	err = jetCall(procJetOpenTableW, "JetOpenTable",
		db.sesid,
		uintptr(db.dbid),
		uintptr(unsafe.Pointer(nameu)),
		0,
		0,
		0,
		uintptr(unsafe.Pointer(&tbl.tableid)))

	if err != nil {
		return nil, err
	}

	return tbl, nil
}

func (db *winDatabase) Close() error {
	return jetCall(procJetCloseDatabase, "JetCloseDatabase", db.sesid, uintptr(db.dbid), 0)
}

type winTable struct {
	sesid   uintptr
	tableid uintptr
}

// columnList mirrors JET_COLUMNLIST.
type columnList struct {
	cbStruct                  uint32
	_                         uint32
	tableid                   uintptr
	cRecord                   uint32
	columnidPresentationOrder uint32
	columnidcolumnname        uint32
	columnidcolumnid          uint32
	columnidcoltyp            uint32
	columnidCountry           uint32
	columnidLangid            uint32
	columnidCp                uint32
	columnidCollate           uint32
	columnidcbMax             uint32
	columnidgrbit             uint32
	columnidDefault           uint32
	columnidBaseTableName     uint32
	columnidBaseColumnName    uint32
	columnidDefinitionName    uint32
}

func (t *winTable) Columns() ([]ColumnInfo, error) {
	var cl columnList
	cl.cbStruct = uint32(unsafe.Sizeof(cl))

	err := jetCall(procJetGetTableColumnInfoW, "JetGetTableColumnInfo",
		t.sesid,
		t.tableid,
		0,
		uintptr(unsafe.Pointer(&cl)),
		uintptr(cl.cbStruct),
		colInfoList)

	if err != nil {
		return nil, err
	}

	list := &winTable{sesid: t.sesid, tableid: cl.tableid}
	defer list.Close()

	var cols []ColumnInfo
	err = list.MoveFirst()
	for err == nil {
		var col ColumnInfo

		raw, rerr := list.RetrieveColumn(cl.columnidcolumnname)
		if rerr != nil {
			return nil, rerr
		}
		col.Name = decodeUTF16Z(raw)

		id, rerr := list.RetrieveInt32(cl.columnidcolumnid)
		if rerr != nil {
			return nil, rerr
		}
		col.ID = uint32(id)

		coltyp, rerr := list.RetrieveInt32(cl.columnidcoltyp)
		if rerr != nil {
			return nil, rerr
		}
		col.Coltyp = Coltyp(coltyp)

		cp, rerr := list.RetrieveInt32(cl.columnidCp)
		if rerr != nil && !IsRecordNotFound(rerr) {
			return nil, rerr
		}
		col.CodePage = uint16(cp)

		cbMax, rerr := list.RetrieveInt32(cl.columnidcbMax)
		if rerr != nil {
			return nil, rerr
		}
		col.MaxLength = uint32(cbMax)

		cols = append(cols, col)
		err = list.MoveNext()
	}

	if !IsNoCurrentRecord(err) {
		return nil, err
	}

	return cols, nil
}

func (t *winTable) move(offset int32) error {
	return jetCall(procJetMove, "JetMove", t.sesid, t.tableid, uintptr(offset), 0)
}

func (t *winTable) MoveFirst() error {
	return t.move(moveFirst)
}

func (t *winTable) MoveNext() error {
	return t.move(moveNext)
}

func (t *winTable) IndexRecordCount() (int, error) {
	var count uint32
	err := jetCall(procJetIndexRecordCount, "JetIndexRecordCount",
		t.sesid,
		t.tableid,
		uintptr(unsafe.Pointer(&count)),
		uintptr(math.MaxUint32))

	if err != nil {
		return 0, err
	}

	return int(count), nil
}

func (t *winTable) retrieve(columnID uint32, buf []byte) (int, error) {
	var actual uint32
	var bufp unsafe.Pointer
	if len(buf) > 0 {
		bufp = unsafe.Pointer(&buf[0])
	}

	if err := procJetRetrieveColumn.Find(); err != nil {
		return 0, errors.Wrap(err, "esent: JetRetrieveColumn is not available")
	}

	r1, _, _ := procJetRetrieveColumn.Call(
		t.sesid,
		t.tableid,
		uintptr(columnID),
		uintptr(bufp),
		uintptr(len(buf)),
		uintptr(unsafe.Pointer(&actual)),
		0,
		0)
	code := int32(r1)

	if code < 0 {
		return 0, MethodFailure("JetRetrieveColumn", code)
	}

	if code == ErrcodeColumnNull {
		return -1, nil
	}

	if code == wrnBufferTruncated {
		return int(actual), &JetError{Op: "JetRetrieveColumn", Code: wrnBufferTruncated, Class: ClassMethodFailure}
	}

	return int(actual), nil
}

func (t *winTable) RetrieveColumn(columnID uint32) ([]byte, error) {
	buf := make([]byte, 256)
	n, err := t.retrieve(columnID, buf)

	if err != nil && hasCode(err, wrnBufferTruncated) {
		buf = make([]byte, n)
		n, err = t.retrieve(columnID, buf)
	}

	if err != nil {
		return nil, err
	}

	if n < 0 {
		return nil, nil
	}

	return buf[:n], nil
}

func (t *winTable) RetrieveInt32(columnID uint32) (int32, error) {
	var buf [4]byte
	n, err := t.retrieve(columnID, buf[:])

	if err != nil {
		return 0, err
	}

	if n != 4 {
		return 0, MethodFailure("JetRetrieveColumn(int32)", ErrcodeInvalidParameter)
	}

	return int32(binary.LittleEndian.Uint32(buf[:])), nil
}

func (t *winTable) RetrieveInt64(columnID uint32) (int64, error) {
	var buf [8]byte
	n, err := t.retrieve(columnID, buf[:])

	if err != nil {
		return 0, err
	}

	if n != 8 {
		return 0, MethodFailure("JetRetrieveColumn(int64)", ErrcodeInvalidParameter)
	}

	return int64(binary.LittleEndian.Uint64(buf[:])), nil
}

// RetrieveDateTime reads a DateTime column as the engine stores it: an OLE
// automation date, whole and fractional days since 30 December 1899.
func (t *winTable) RetrieveDateTime(columnID uint32) (time.Time, error) {
	var buf [8]byte
	n, err := t.retrieve(columnID, buf[:])

	if err != nil {
		return time.Time{}, err
	}

	if n != 8 {
		return time.Time{}, MethodFailure("JetRetrieveColumn(datetime)", ErrcodeInvalidParameter)
	}

	days := math.Float64frombits(binary.LittleEndian.Uint64(buf[:]))
	epoch := time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

	whole := math.Trunc(days)
	frac := math.Abs(days - whole)

	return epoch.AddDate(0, 0, int(whole)).Add(time.Duration(frac * 24 * float64(time.Hour))), nil
}

func (t *winTable) SetCurrentIndex(name string) error {
	var nameu *uint16
	if name != "" {
		var err error
		nameu, err = windows.UTF16PtrFromString(name)

		if err != nil {
			return err
		}
	}

	return jetCall(procJetSetCurrentIndexW, "JetSetCurrentIndex",
		t.sesid,
		t.tableid,
		uintptr(unsafe.Pointer(nameu)))
}

func (t *winTable) SeekUint32(key uint32) error {
	var kb [4]byte
	binary.LittleEndian.PutUint32(kb[:], key)

	err := jetCall(procJetMakeKey, "JetMakeKey",
		t.sesid,
		t.tableid,
		uintptr(unsafe.Pointer(&kb[0])),
		uintptr(len(kb)),
		bitNewKey)

	if err != nil {
		return err
	}

	return jetCall(procJetSeek, "JetSeek", t.sesid, t.tableid, bitSeekEQ)
}

func (t *winTable) Close() error {
	return jetCall(procJetCloseTable, "JetCloseTable", t.sesid, t.tableid)
}

// decodeUTF16Z converts a NUL terminated little-endian UTF-16 buffer, as
// returned for the engine's own metadata strings, to a Go string.
func decodeUTF16Z(b []byte) string {
	u16 := make([]uint16, 0, len(b)/2)
	for i := 0; i+1 < len(b); i += 2 {
		c := binary.LittleEndian.Uint16(b[i:])
		if c == 0 {
			break
		}
		u16 = append(u16, c)
	}

	return windows.UTF16ToString(u16)
}
