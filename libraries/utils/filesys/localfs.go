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

package filesys

import (
	"io"
	"os"
	"path/filepath"
)

// LocalFS is the machine's local filesystem
var LocalFS Filesys = &localFS{}

type localFS struct{}

func (fs *localFS) OpenForRead(fp string) (io.ReadCloser, error) {
	return os.Open(fp)
}

func (fs *localFS) ReadFile(fp string) ([]byte, error) {
	return os.ReadFile(fp)
}

func (fs *localFS) OpenForWrite(fp string, perm os.FileMode) (io.WriteCloser, error) {
	return os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
}

func (fs *localFS) OpenForWriteAppend(fp string, perm os.FileMode) (io.WriteCloser, error) {
	return os.OpenFile(fp, os.O_WRONLY|os.O_CREATE|os.O_APPEND, perm)
}

func (fs *localFS) WriteFile(fp string, data []byte, perm os.FileMode) error {
	return os.WriteFile(fp, data, perm)
}

func (fs *localFS) Exists(path string) (exists bool, isDir bool) {
	stat, err := os.Stat(path)

	if err != nil {
		return false, false
	}

	return true, stat.IsDir()
}

func (fs *localFS) Size(path string) (int64, error) {
	stat, err := os.Stat(path)

	if err != nil {
		return 0, err
	}

	return stat.Size(), nil
}

func (fs *localFS) MkDirs(path string) error {
	return os.MkdirAll(path, os.ModePerm)
}

func (fs *localFS) DeleteFile(path string) error {
	return os.Remove(path)
}

func (fs *localFS) Delete(path string, force bool) error {
	if force {
		return os.RemoveAll(path)
	}

	return os.Remove(path)
}

func (fs *localFS) Abs(path string) (string, error) {
	if filepath.IsAbs(path) {
		return path, nil
	}

	return filepath.Abs(path)
}

func (fs *localFS) TempDir() string {
	return os.TempDir()
}
