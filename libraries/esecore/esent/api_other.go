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

//go:build !windows

package esent

import "github.com/pkg/errors"

// NewApi returns the engine implementation for this platform. The native
// engine only exists on Windows; other platforms can still run everything
// that accepts an Api, such as the test fakes.
func NewApi() (Api, error) {
	return nil, errors.New("the ESE storage engine (esent.dll) is only available on Windows")
}
