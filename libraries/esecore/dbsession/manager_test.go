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

package dbsession

import (
	"io"
	"testing"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edbtools/edbexport/libraries/esecore/esent"
	"github.com/edbtools/edbexport/libraries/esecore/esent/esenttest"
)

const testDBPath = "/work/test.edb"

func testLogger() *logrus.Entry {
	lg := logrus.New()
	lg.SetOutput(io.Discard)

	return logrus.NewEntry(lg)
}

func testConfig() Config {
	return Config{
		DatabasePath:     testDBPath,
		PageSize:         8192,
		FileSize:         32768,
		SystemPath:       "/scratch/sys",
		LogPath:          "/scratch/log",
		TempPath:         "/scratch/tmp",
		MaxOutstandingIO: 64,
	}
}

// fakeRepair records pass order without launching anything.
type fakeRepair struct {
	calls []string
	errs  map[string]error
}

func (r *fakeRepair) Repair(dbPath, logPath string) error {
	r.calls = append(r.calls, "repair")
	return r.errs["repair"]
}

func (r *fakeRepair) Defragment(dbPath, logPath string) error {
	r.calls = append(r.calls, "defrag")
	return r.errs["defrag"]
}

func TestOpenHappyPath(t *testing.T) {
	eng := esenttest.NewEngine()
	eng.AddDatabase(testDBPath)

	repair := &fakeRepair{}
	m := NewManager(eng, testConfig(), repair, testLogger())

	db, err := m.Open()
	require.NoError(t, err)
	require.NotNil(t, db)

	assert.Equal(t, StateOpened, m.State())
	assert.Equal(t, 1, eng.AttachCalls)
	assert.Empty(t, repair.calls)

	assert.Equal(t, []State{
		StateInit,
		StateParametersSet,
		StateInstanceCreated,
		StateSessionBegun,
		StateAttaching,
		StateAttached,
		StateOpened,
	}, m.History())

	m.Close()
	assert.Equal(t, StateClosed, m.State())
	assert.Equal(t, 1, eng.TermCalls)
}

func TestOpenRepairsOnceOnMethodFailure(t *testing.T) {
	eng := esenttest.NewEngine()
	eng.AddDatabase(testDBPath)
	eng.AttachErrs = []error{esent.MethodFailure("JetAttachDatabase2", esent.ErrcodeDatabaseCorrupted)}

	repair := &fakeRepair{}
	m := NewManager(eng, testConfig(), repair, testLogger())

	db, err := m.Open()
	require.NoError(t, err)
	require.NotNil(t, db)

	// Exactly two passes, in order, then exactly one retried attach on a
	// fresh instance configured identically.
	assert.Equal(t, []string{"repair", "defrag"}, repair.calls)
	assert.Equal(t, 2, eng.AttachCalls)
	assert.Equal(t, 2, eng.InstancesMade)
	require.Len(t, eng.ParamsByInstance, 2)
	assert.Equal(t, eng.ParamsByInstance[0], eng.ParamsByInstance[1])

	assert.Equal(t, []State{
		StateInit,
		StateParametersSet,
		StateInstanceCreated,
		StateSessionBegun,
		StateAttaching,
		StateAttachFailed,
		StateRepairInvoked,
		StateParametersSet,
		StateInstanceCreated,
		StateSessionBegun,
		StateReInitialized,
		StateReAttaching,
		StateAttached,
		StateOpened,
	}, m.History())
}

func TestOpenSecondAttachFailureIsFatal(t *testing.T) {
	eng := esenttest.NewEngine()
	eng.AddDatabase(testDBPath)
	eng.AttachErrs = []error{
		esent.MethodFailure("JetAttachDatabase2", esent.ErrcodeDatabaseCorrupted),
		esent.MethodFailure("JetAttachDatabase2", esent.ErrcodeDatabaseCorrupted),
	}

	repair := &fakeRepair{}
	m := NewManager(eng, testConfig(), repair, testLogger())

	db, err := m.Open()
	require.Error(t, err)
	assert.Nil(t, db)
	assert.Contains(t, err.Error(), "could not be recovered")

	// One repair cycle only, and no partially-open handle retained.
	assert.Equal(t, []string{"repair", "defrag"}, repair.calls)
	assert.Equal(t, 2, eng.AttachCalls)
	assert.Equal(t, StateFatalFailure, m.State())
	assert.Equal(t, 2, eng.TermCalls)
}

func TestOpenNonMethodFailureSkipsRepair(t *testing.T) {
	eng := esenttest.NewEngine()
	eng.AddDatabase(testDBPath)
	eng.AttachErrs = []error{errors.New("esent.dll could not be loaded")}

	repair := &fakeRepair{}
	m := NewManager(eng, testConfig(), repair, testLogger())

	_, err := m.Open()
	require.Error(t, err)

	assert.Empty(t, repair.calls)
	assert.Equal(t, 1, eng.AttachCalls)
	assert.Equal(t, StateFatalFailure, m.State())
}

func TestOpenInitFailureIsFatal(t *testing.T) {
	eng := esenttest.NewEngine()
	eng.AddDatabase(testDBPath)
	eng.InitErr = errors.New("instance init failed")

	m := NewManager(eng, testConfig(), &fakeRepair{}, testLogger())

	_, err := m.Open()
	require.Error(t, err)

	assert.Equal(t, 0, eng.AttachCalls)
	assert.Equal(t, StateFatalFailure, m.State())
}

func TestOpenDatabaseFailureIsFatal(t *testing.T) {
	eng := esenttest.NewEngine()
	eng.AddDatabase(testDBPath)
	eng.OpenErr = errors.New("open refused")

	m := NewManager(eng, testConfig(), &fakeRepair{}, testLogger())

	_, err := m.Open()
	require.Error(t, err)
	assert.Equal(t, StateFatalFailure, m.State())
}

func TestRepairToolErrorsDoNotStopTheRetry(t *testing.T) {
	eng := esenttest.NewEngine()
	eng.AddDatabase(testDBPath)
	eng.AttachErrs = []error{esent.MethodFailure("JetAttachDatabase2", esent.ErrcodeDatabaseCorrupted)}

	// The tool's exit status is not consulted; only the retried attach
	// decides recovery.
	repair := &fakeRepair{errs: map[string]error{"repair": errors.New("exit status 2")}}
	m := NewManager(eng, testConfig(), repair, testLogger())

	db, err := m.Open()
	require.NoError(t, err)
	require.NotNil(t, db)

	assert.Equal(t, []string{"repair", "defrag"}, repair.calls)
}

func TestCloseIsIdempotent(t *testing.T) {
	eng := esenttest.NewEngine()
	eng.AddDatabase(testDBPath)

	m := NewManager(eng, testConfig(), &fakeRepair{}, testLogger())
	_, err := m.Open()
	require.NoError(t, err)

	m.Close()
	m.Close()

	assert.Equal(t, StateClosed, m.State())
	assert.Equal(t, 1, eng.TermCalls)
}
