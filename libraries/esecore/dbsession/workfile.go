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
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/edbtools/edbexport/libraries/utils/filesys"
)

// WorkingCopy is the private copy of the source database. The source file is
// never opened by the engine; only this copy is attached, repaired or
// defragmented. The copy is exclusively owned by the process and deleted
// exactly once, on every exit path.
type WorkingCopy struct {
	SourcePath string
	Path       string

	fs         filesys.Filesys
	dir        string
	lock       filesys.FilesysLock
	removeOnce sync.Once
	lg         *logrus.Entry
}

// CreateWorkingCopy copies the source database into destDir and takes an
// exclusive lock on the copy. destDir must be dedicated to the copy: it holds
// the copy and its lock file, and is deleted along with them.
func CreateWorkingCopy(fs filesys.Filesys, sourcePath, destDir string, lg *logrus.Entry) (*WorkingCopy, error) {
	if err := fs.MkDirs(destDir); err != nil {
		return nil, errors.Wrap(err, "unable to create the working directory")
	}

	destPath := filepath.Join(destDir, filepath.Base(sourcePath))
	if err := copyFile(fs, sourcePath, destPath); err != nil {
		// A failed copy must not leave a partial database behind.
		if cleanupErr := fs.Delete(destDir, true); cleanupErr != nil {
			lg.WithError(cleanupErr).Warn("unable to clean up the working directory")
		}

		return nil, errors.Wrap(err, "unable to copy the source database")
	}

	lock := filesys.CreateFilesysLock(fs, destPath+".lock")
	locked, err := lock.TryLock()

	if err != nil {
		return nil, errors.Wrap(err, "unable to lock the working copy")
	}

	if !locked {
		return nil, errors.Errorf("working copy %s is in use by another process", destPath)
	}

	return &WorkingCopy{SourcePath: sourcePath, Path: destPath, fs: fs, dir: destDir, lock: lock, lg: lg}, nil
}

// Remove deletes the working copy. It is safe to call from every exit path;
// only the first call deletes, and deletion failures are logged rather than
// surfaced, since by this point the export outcome is already decided.
func (wc *WorkingCopy) Remove() {
	wc.removeOnce.Do(func() {
		if err := wc.lock.Unlock(); err != nil {
			wc.lg.WithError(err).Warn("unable to unlock the working copy")
		}

		// The directory holds the copy and its lock file; deleting it whole
		// leaves nothing behind.
		if err := wc.fs.Delete(wc.dir, true); err != nil {
			wc.lg.WithError(err).Warn("unable to delete the working copy")
			return
		}

		wc.lg.WithField("path", wc.Path).Debug("deleted working copy")
	})
}

func copyFile(fs filesys.Filesys, src, dest string) (err error) {
	rd, err := fs.OpenForRead(src)
	if err != nil {
		return err
	}
	defer func() {
		closeErr := rd.Close()

		if err == nil {
			err = closeErr
		}
	}()

	wr, err := fs.OpenForWrite(dest, os.FileMode(0644))
	if err != nil {
		return err
	}
	defer func() {
		closeErr := wr.Close()

		if err == nil {
			err = closeErr
		}
	}()

	_, err = io.Copy(wr, rd)
	return err
}
