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
	"encoding/binary"
	"io"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/edbtools/edbexport/libraries/utils/filesys"
)

// The database header stores the native page size at this offset. Reading it
// up front lets the instance be configured before the engine ever touches
// the file.
const (
	pageSizeOffset  = 236
	headerProbeSize = 256
)

// ErrEmptyDatabase is returned when the working copy's size probe comes back
// non-positive. There is nothing to scan and no recovery path.
var ErrEmptyDatabase = errors.New("database file is empty; there is nothing to scan")

// Config is the fixed engine configuration for one run.
type Config struct {
	// DatabasePath is the private working copy the engine will attach.
	DatabasePath string

	// PageSize is the native page size probed from the database header.
	PageSize int

	// FileSize is the total size of the working copy in bytes.
	FileSize int64

	// SystemPath, LogPath and TempPath are per-run-unique engine directories,
	// so concurrent runs never collide on checkpoint or log files.
	SystemPath string
	LogPath    string
	TempPath   string

	// MaxOutstandingIO caps the engine's outstanding asynchronous I/O depth.
	MaxOutstandingIO int
}

// ProbeConfig stats the working copy and reads its header to build the engine
// configuration. A non-positive size or an unreadable header is fatal; the
// repair cycle only exists for databases the engine can at least look at.
func ProbeConfig(fs filesys.Filesys, dbPath, scratchDir string) (Config, error) {
	size, err := fs.Size(dbPath)
	if err != nil {
		return Config{}, errors.Wrap(err, "unable to stat the working copy")
	}

	if size <= 0 {
		return Config{}, ErrEmptyDatabase
	}

	pageSize, err := probePageSize(fs, dbPath)
	if err != nil {
		return Config{}, err
	}

	runDir := filepath.Join(scratchDir, "edbexport-"+uuid.New().String())

	return Config{
		DatabasePath:     dbPath,
		PageSize:         pageSize,
		FileSize:         size,
		SystemPath:       filepath.Join(runDir, "sys"),
		LogPath:          filepath.Join(runDir, "log"),
		TempPath:         filepath.Join(runDir, "tmp"),
		MaxOutstandingIO: 64,
	}, nil
}

func probePageSize(fs filesys.Filesys, dbPath string) (int, error) {
	rd, err := fs.OpenForRead(dbPath)
	if err != nil {
		return 0, errors.Wrap(err, "unable to open the working copy")
	}
	defer rd.Close()

	header := make([]byte, headerProbeSize)
	if _, err = io.ReadFull(rd, header); err != nil {
		return 0, errors.Wrap(err, "unable to read the database header")
	}

	pageSize := int(binary.LittleEndian.Uint32(header[pageSizeOffset:]))
	if pageSize <= 0 || pageSize > 64*1024 {
		return 0, errors.Errorf("implausible page size %d in database header", pageSize)
	}

	return pageSize, nil
}
