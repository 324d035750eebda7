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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edbtools/edbexport/libraries/utils/filesys"
)

func headerWithPageSize(pageSize uint32) []byte {
	header := make([]byte, 4096)
	binary.LittleEndian.PutUint32(header[pageSizeOffset:], pageSize)

	return header
}

func TestProbeConfig(t *testing.T) {
	fs := filesys.NewInMemFS()
	require.NoError(t, fs.WriteFile("/work/db.edb", headerWithPageSize(32768), 0644))

	cfg, err := ProbeConfig(fs, "/work/db.edb", "/scratch")
	require.NoError(t, err)

	assert.Equal(t, 32768, cfg.PageSize)
	assert.Equal(t, int64(4096), cfg.FileSize)
	assert.Equal(t, 64, cfg.MaxOutstandingIO)
	assert.NotEmpty(t, cfg.SystemPath)
	assert.NotEqual(t, cfg.SystemPath, cfg.LogPath)
}

func TestProbeConfigUniquePathsPerRun(t *testing.T) {
	fs := filesys.NewInMemFS()
	require.NoError(t, fs.WriteFile("/work/db.edb", headerWithPageSize(8192), 0644))

	first, err := ProbeConfig(fs, "/work/db.edb", "/scratch")
	require.NoError(t, err)

	second, err := ProbeConfig(fs, "/work/db.edb", "/scratch")
	require.NoError(t, err)

	// Concurrent runs must never collide on engine system or log dirs.
	assert.NotEqual(t, first.SystemPath, second.SystemPath)
	assert.NotEqual(t, first.LogPath, second.LogPath)
}

func TestProbeConfigEmptyFileIsFatal(t *testing.T) {
	fs := filesys.NewInMemFS()
	require.NoError(t, fs.WriteFile("/work/db.edb", nil, 0644))

	_, err := ProbeConfig(fs, "/work/db.edb", "/scratch")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyDatabase)
}

func TestProbeConfigRejectsImplausiblePageSize(t *testing.T) {
	fs := filesys.NewInMemFS()
	require.NoError(t, fs.WriteFile("/work/db.edb", headerWithPageSize(0), 0644))

	_, err := ProbeConfig(fs, "/work/db.edb", "/scratch")
	assert.Error(t, err)
}

func TestProbeConfigMissingFile(t *testing.T) {
	fs := filesys.NewInMemFS()

	_, err := ProbeConfig(fs, "/work/missing.edb", "/scratch")
	assert.Error(t, err)
}
