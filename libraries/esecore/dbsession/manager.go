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

// Package dbsession brings the storage engine online against the private
// working copy of a database, tolerating exactly one class of corruption:
// an attach that fails with an engine-level method failure triggers one
// external repair pass, one defragmentation pass, a full reinitialization
// with identical configuration, and a single retried attach. Everything else
// is fatal.
package dbsession

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/edbtools/edbexport/libraries/esecore/esent"
)

// Manager owns the engine instance, session and open database for one run.
// It is used from a single goroutine.
type Manager struct {
	api    esent.Api
	cfg    Config
	repair RepairRunner
	lg     *logrus.Entry

	// RepairLogPath receives the combined output of the repair passes.
	RepairLogPath string

	state   State
	history []State
	instSeq int

	inst esent.Instance
	sess esent.Session
	db   esent.Database
}

// NewManager creates a Manager. cfg must come from ProbeConfig so the page
// size matches the file the engine is about to attach.
func NewManager(api esent.Api, cfg Config, repair RepairRunner, lg *logrus.Entry) *Manager {
	m := &Manager{
		api:           api,
		cfg:           cfg,
		repair:        repair,
		lg:            lg,
		RepairLogPath: cfg.DatabasePath + ".repair.log",
	}
	m.setState(StateInit)

	return m
}

// State returns the manager's current state.
func (m *Manager) State() State {
	return m.state
}

// History returns every state the manager has passed through, in order.
func (m *Manager) History() []State {
	h := make([]State, len(m.history))
	copy(h, m.history)

	return h
}

func (m *Manager) setState(s State) {
	m.state = s
	m.history = append(m.history, s)
	m.lg.WithField("state", s.String()).Debug("session state")
}

// Open drives the bring-up ladder to an open, read-only database. On any
// fatal failure no handle is retained.
func (m *Manager) Open() (esent.Database, error) {
	if err := m.bringUp(); err != nil {
		m.fail()
		return nil, errors.Wrap(err, "engine initialization failed")
	}

	m.setState(StateAttaching)
	err := m.sess.AttachDatabase(m.cfg.DatabasePath)

	if err != nil {
		m.setState(StateAttachFailed)

		if !esent.IsMethodFailure(err) {
			m.fail()
			return nil, errors.Wrap(err, "attach failed with an unrecoverable error")
		}

		if err = m.repairAndReattach(err); err != nil {
			m.fail()
			return nil, err
		}
	}

	m.setState(StateAttached)

	db, err := m.sess.OpenDatabase(m.cfg.DatabasePath)
	if err != nil {
		m.fail()
		return nil, errors.Wrap(err, "unable to open the attached database")
	}

	m.db = db
	m.setState(StateOpened)

	return db, nil
}

// repairAndReattach runs the one permitted repair/retry cycle: general
// repair, then defragmentation, against the same working copy, then a fresh
// instance and session with identical configuration and exactly one more
// attach.
func (m *Manager) repairAndReattach(attachErr error) error {
	m.setState(StateRepairInvoked)
	m.lg.WithError(attachErr).Warn("attach failed; invoking external repair")

	if err := m.repair.Repair(m.cfg.DatabasePath, m.RepairLogPath); err != nil {
		m.lg.WithError(err).Warn("repair pass reported an error")
	}
	if err := m.repair.Defragment(m.cfg.DatabasePath, m.RepairLogPath); err != nil {
		m.lg.WithError(err).Warn("defragmentation pass reported an error")
	}

	m.teardown()

	if err := m.bringUp(); err != nil {
		return errors.Wrap(err, "engine reinitialization failed after repair")
	}
	m.setState(StateReInitialized)

	m.setState(StateReAttaching)
	if err := m.sess.AttachDatabase(m.cfg.DatabasePath); err != nil {
		return errors.Wrap(err,
			"attach failed again after repair; the database could not be recovered. "+
				"Inspect the repair log and try running esentutl /p against a fresh copy manually")
	}

	return nil
}

// bringUp creates and configures a fresh instance and begins a session.
// Failures here have no recovery path.
func (m *Manager) bringUp() error {
	m.instSeq++
	inst, err := m.api.CreateInstance(fmt.Sprintf("edbexport-%d", m.instSeq))

	if err != nil {
		return errors.Wrap(err, "unable to create an engine instance")
	}

	m.inst = inst
	if err = m.applyParameters(inst); err != nil {
		return errors.Wrap(err, "unable to configure the engine instance")
	}
	m.setState(StateParametersSet)

	if err = inst.Init(); err != nil {
		return errors.Wrap(err, "unable to initialize the engine instance")
	}
	m.setState(StateInstanceCreated)

	sess, err := inst.BeginSession()
	if err != nil {
		return errors.Wrap(err, "unable to begin an engine session")
	}

	m.sess = sess
	m.setState(StateSessionBegun)

	return nil
}

func (m *Manager) applyParameters(inst esent.Instance) error {
	params := []struct {
		p      esent.Param
		intVal int
		strVal string
	}{
		{esent.ParamDatabasePageSize, m.cfg.PageSize, ""},
		{esent.ParamRecovery, 0, "On"},
		{esent.ParamEnableIndexChecking, 1, ""},
		{esent.ParamEnableIndexCleanup, 1, ""},
		{esent.ParamEnableOnlineDefrag, 1, ""},
		{esent.ParamCreatePathIfNotExist, 1, ""},
		{esent.ParamOutstandingIOMax, m.cfg.MaxOutstandingIO, ""},
		{esent.ParamSystemPath, 0, m.cfg.SystemPath},
		{esent.ParamLogFilePath, 0, m.cfg.LogPath},
		{esent.ParamTempPath, 0, m.cfg.TempPath},
	}

	for _, param := range params {
		if err := inst.SetSystemParameter(param.p, param.intVal, param.strVal); err != nil {
			return err
		}
	}

	return nil
}

// teardown releases whatever handles exist, in reverse order of creation.
// Errors are logged only; teardown runs on paths that already have a more
// interesting error to report.
func (m *Manager) teardown() {
	if m.db != nil {
		if err := m.db.Close(); err != nil {
			m.lg.WithError(err).Warn("unable to close the database")
		}
		m.db = nil
	}

	if m.sess != nil {
		if err := m.sess.DetachDatabase(m.cfg.DatabasePath); err != nil {
			m.lg.WithError(err).Debug("detach failed")
		}
		if err := m.sess.End(); err != nil {
			m.lg.WithError(err).Warn("unable to end the session")
		}
		m.sess = nil
	}

	if m.inst != nil {
		if err := m.inst.Term(); err != nil {
			m.lg.WithError(err).Warn("unable to terminate the instance")
		}
		m.inst = nil
	}
}

func (m *Manager) fail() {
	m.teardown()
	m.setState(StateFatalFailure)
}

// Close tears the session down. It is idempotent and safe after a fatal
// failure.
func (m *Manager) Close() {
	if m.state == StateClosed || m.state == StateFatalFailure {
		return
	}

	m.setState(StateClosing)
	m.teardown()
	m.setState(StateClosed)
}
