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
	"sync/atomic"

	"github.com/juju/fslock"
)

// FilesysLock guards a resource against concurrent exporter runs. The
// working copy of a database is exclusively owned by one process.
type FilesysLock interface {
	// TryLock attempts to take the lock, reporting false if another process
	// holds it.
	TryLock() (bool, error)

	// Unlock releases the lock.
	Unlock() error
}

// CreateFilesysLock creates the lock implementation matching the filesystem.
func CreateFilesysLock(fs Filesys, filename string) FilesysLock {
	if _, ok := fs.(*InMemFS); ok {
		return &inMemLock{}
	}

	return &localLock{lck: fslock.New(filename)}
}

type localLock struct {
	lck *fslock.Lock
}

func (l *localLock) TryLock() (bool, error) {
	err := l.lck.TryLock()

	if err == fslock.ErrLocked {
		return false, nil
	}

	if err != nil {
		return false, err
	}

	return true, nil
}

func (l *localLock) Unlock() error {
	return l.lck.Unlock()
}

type inMemLock struct {
	state int32
}

func (l *inMemLock) TryLock() (bool, error) {
	return atomic.CompareAndSwapInt32(&l.state, 0, 1), nil
}

func (l *inMemLock) Unlock() error {
	atomic.StoreInt32(&l.state, 0)
	return nil
}
