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

package set

// StrSet is a set of strings which remembers the order in which items were
// first added. Export headers are computed as ordered unions, so iteration
// order matters.
type StrSet struct {
	items   map[string]struct{}
	ordered []string
}

// NewStrSet creates a set from a list of strings
func NewStrSet(items []string) *StrSet {
	s := &StrSet{items: make(map[string]struct{}, len(items))}

	for _, item := range items {
		s.Add(item)
	}

	return s
}

// Add adds new items to the set.  Items already present are ignored.
func (s *StrSet) Add(items ...string) {
	for _, item := range items {
		if _, present := s.items[item]; !present {
			s.items[item] = struct{}{}
			s.ordered = append(s.ordered, item)
		}
	}
}

// Contains returns true if the item being checked is already in the set.
func (s *StrSet) Contains(item string) bool {
	_, present := s.items[item]
	return present
}

// Size returns the number of unique elements in the set
func (s *StrSet) Size() int {
	return len(s.items)
}

// AsSlice converts the set to a slice, in insertion order.
func (s *StrSet) AsSlice() []string {
	sl := make([]string, len(s.ordered))
	copy(sl, s.ordered)

	return sl
}

// Iterate accepts a callback which will be called once for each item in the
// set, in insertion order, until the callback returns false.
func (s *StrSet) Iterate(callBack func(string) (cont bool)) {
	for _, item := range s.ordered {
		if !callBack(item) {
			break
		}
	}
}
