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
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
)

// InMemFS is a simple path-keyed in-memory Filesys for tests. Directories
// exist implicitly once a file below them does, or explicitly via MkDirs.
type InMemFS struct {
	mu    sync.Mutex
	files map[string][]byte
	dirs  map[string]bool
}

var _ Filesys = (*InMemFS)(nil)

// NewInMemFS creates an empty in-memory filesystem.
func NewInMemFS() *InMemFS {
	return &InMemFS{files: make(map[string][]byte), dirs: make(map[string]bool)}
}

func (fs *InMemFS) norm(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

func (fs *InMemFS) OpenForRead(fp string) (io.ReadCloser, error) {
	data, err := fs.ReadFile(fp)
	if err != nil {
		return nil, err
	}

	return io.NopCloser(bytes.NewReader(data)), nil
}

func (fs *InMemFS) ReadFile(fp string) ([]byte, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, ok := fs.files[fs.norm(fp)]
	if !ok {
		return nil, os.ErrNotExist
	}

	out := make([]byte, len(data))
	copy(out, data)

	return out, nil
}

type memWriter struct {
	fs   *InMemFS
	path string
	buf  bytes.Buffer
}

func (w *memWriter) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *memWriter) Close() error {
	w.fs.mu.Lock()
	defer w.fs.mu.Unlock()

	w.fs.files[w.path] = append(w.fs.files[w.path], w.buf.Bytes()...)
	return nil
}

func (fs *InMemFS) OpenForWrite(fp string, perm os.FileMode) (io.WriteCloser, error) {
	fs.mu.Lock()
	fs.files[fs.norm(fp)] = nil
	fs.mu.Unlock()

	return &memWriter{fs: fs, path: fs.norm(fp)}, nil
}

func (fs *InMemFS) OpenForWriteAppend(fp string, perm os.FileMode) (io.WriteCloser, error) {
	return &memWriter{fs: fs, path: fs.norm(fp)}, nil
}

func (fs *InMemFS) WriteFile(fp string, data []byte, perm os.FileMode) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	out := make([]byte, len(data))
	copy(out, data)
	fs.files[fs.norm(fp)] = out

	return nil
}

func (fs *InMemFS) Exists(path string) (exists bool, isDir bool) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p := fs.norm(path)
	if _, ok := fs.files[p]; ok {
		return true, false
	}

	if fs.dirs[p] {
		return true, true
	}

	for fp := range fs.files {
		if strings.HasPrefix(fp, p+"/") {
			return true, true
		}
	}

	return false, false
}

func (fs *InMemFS) Size(path string) (int64, error) {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	data, ok := fs.files[fs.norm(path)]
	if !ok {
		return 0, os.ErrNotExist
	}

	return int64(len(data)), nil
}

func (fs *InMemFS) MkDirs(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	fs.dirs[fs.norm(path)] = true
	return nil
}

func (fs *InMemFS) DeleteFile(path string) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p := fs.norm(path)
	if _, ok := fs.files[p]; !ok {
		return os.ErrNotExist
	}

	delete(fs.files, p)
	return nil
}

func (fs *InMemFS) Delete(path string, force bool) error {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	p := fs.norm(path)

	if _, ok := fs.files[p]; ok {
		delete(fs.files, p)
		return nil
	}

	var children []string
	for fp := range fs.files {
		if strings.HasPrefix(fp, p+"/") {
			children = append(children, fp)
		}
	}

	if !fs.dirs[p] && len(children) == 0 {
		return os.ErrNotExist
	}

	if len(children) > 0 && !force {
		return errors.New("directory not empty: " + p)
	}

	for _, fp := range children {
		delete(fs.files, fp)
	}

	for dp := range fs.dirs {
		if dp == p || strings.HasPrefix(dp, p+"/") {
			delete(fs.dirs, dp)
		}
	}

	return nil
}

func (fs *InMemFS) Abs(path string) (string, error) {
	if strings.HasPrefix(path, "/") {
		return path, nil
	}

	return "/" + path, nil
}

func (fs *InMemFS) TempDir() string {
	return "/tmp"
}

// Paths lists every file currently in the filesystem, sorted, for test
// assertions.
func (fs *InMemFS) Paths() []string {
	fs.mu.Lock()
	defer fs.mu.Unlock()

	var paths []string
	for fp := range fs.files {
		paths = append(paths, fp)
	}
	sort.Strings(paths)

	return paths
}
