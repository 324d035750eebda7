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

// Package filesys abstracts the filesystem operations the exporter performs
// so they can be backed by an in-memory implementation in tests.
package filesys

import (
	"io"
	"os"
)

// Filesys is the interface the exporter works against.
type Filesys interface {
	// OpenForRead opens a file for reading.
	OpenForRead(fp string) (io.ReadCloser, error)

	// ReadFile reads the entire contents of a file.
	ReadFile(fp string) ([]byte, error)

	// OpenForWrite opens a file for writing, creating it if it does not exist
	// and truncating it if it does.
	OpenForWrite(fp string, perm os.FileMode) (io.WriteCloser, error)

	// OpenForWriteAppend opens a file for appending, creating it if needed.
	OpenForWriteAppend(fp string, perm os.FileMode) (io.WriteCloser, error)

	// WriteFile writes the entire data buffer to a file.
	WriteFile(fp string, data []byte, perm os.FileMode) error

	// Exists tells you whether a file or directory exists at the path, and if
	// it does whether it is a directory.
	Exists(path string) (exists bool, isDir bool)

	// Size returns the size of the file at the path in bytes.
	Size(path string) (int64, error)

	// MkDirs creates a directory and any missing parents.
	MkDirs(path string) error

	// DeleteFile deletes the file at the path.
	DeleteFile(path string) error

	// Delete deletes a file or directory. Directories with contents are only
	// deleted when force is true.
	Delete(path string, force bool) error

	// Abs converts a path to an absolute path. Absolute inputs are returned
	// unaltered.
	Abs(path string) (string, error)

	// TempDir returns the path of a directory for temporary files.
	TempDir() string
}
