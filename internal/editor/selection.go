/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"log/slog"

	"pagecraft/internal/tree"
)

// SetSelection replaces the selection. Duplicates and ids not in the tree are
// dropped, order is kept.
func (s *Store) SetSelection(ids []string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return
	}
	seen := make(map[string]struct{}, len(ids))
	sel := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, dup := seen[id]; dup || !tree.Contains(s.elements, id) {
			continue
		}
		seen[id] = struct{}{}
		sel = append(sel, id)
	}
	s.selected = sel
}

// AddToSelection appends id unless it is already selected or not in the tree.
func (s *Store) AddToSelection(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return
	}
	if !tree.Contains(s.elements, id) {
		return
	}
	for _, v := range s.selected {
		if v == id {
			return
		}
	}
	s.selected = append(append([]string{}, s.selected...), id)
}

// ClearSelection empties the selection. Unlike the other setters it also works in
// preview mode.
func (s *Store) ClearSelection() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.selected = []string{}
}

// SetHovered sets the hovered element; an empty or unknown id clears it.
func (s *Store) SetHovered(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return
	}
	if !tree.Contains(s.elements, id) {
		id = ""
	}
	s.hovered = id
}

// SetPreviewMode toggles the read-only preview. Entering preview clears selection
// and hover.
func (s *Store) SetPreviewMode(on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if on {
		s.selected = []string{}
		s.hovered = ""
	}
	if s.preview != on {
		s.log.Debug("preview mode", slog.Bool("on", on))
	}
	s.preview = on
}
