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

	"pagecraft/internal/domain"
	"pagecraft/internal/tree"
)

// AddElement creates an element from d and inserts it under parentID at index
// (root when parentID is empty; a negative index appends). Root insertions select
// the new element.
//
// When parentID does not exist the tree is left unchanged but the history slot is
// still consumed; ok is false and id is empty in that case.
func (s *Store) AddElement(d domain.Descriptor, parentID string, index int) (id string, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return "", false
	}
	s.pushHistoryLocked()
	el := tree.NewElement(d, s.newID())
	out, ok := tree.Insert(s.elements, el, parentID, index)
	if !ok {
		s.log.Debug("add: parent not found", slog.String("parent", parentID), slog.String("type", d.Type))
		return "", false
	}
	s.elements = out
	if parentID == "" {
		s.selected = []string{el.ID}
	}
	s.log.Debug("add", slog.String("id", el.ID), slog.String("type", el.Type), slog.String("parent", parentID))
	s.saveLocked()
	return el.ID, true
}

// UpdateElement merges u into the element with the given id. It reports whether the
// element was found; a missing id still consumes a history slot. Replacement
// children whose ids clash with the rest of the tree get fresh ids.
func (s *Store) UpdateElement(id string, u domain.ElementUpdate) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return false
	}
	s.pushHistoryLocked()
	if u.ReplaceChildren {
		u.Children = s.freshChildrenLocked(id, u.Children)
	}
	out, ok := tree.Update(s.elements, id, u)
	if !ok {
		return false
	}
	s.elements = out
	if u.ReplaceChildren {
		s.pruneDanglingLocked()
	}
	s.log.Debug("update", slog.String("id", id))
	s.saveLocked()
	return true
}

// freshChildrenLocked re-mints ids in children that are used anywhere in the tree
// outside the current subtree of parentID's children, which is about to be replaced.
func (s *Store) freshChildrenLocked(parentID string, children []domain.Element) []domain.Element {
	replaced := map[string]struct{}{}
	if parent, ok := tree.Find(s.elements, parentID); ok {
		for _, cid := range tree.IDs(parent.Children) {
			replaced[cid] = struct{}{}
		}
	}
	taken := map[string]struct{}{}
	for _, eid := range tree.IDs(s.elements) {
		if _, gone := replaced[eid]; !gone {
			taken[eid] = struct{}{}
		}
	}
	return tree.Freshen(children, taken, s.newID)
}

// DeleteElements removes the listed elements and their descendants at any depth,
// then clears the whole selection. It returns the number of matched elements.
func (s *Store) DeleteElements(ids []string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return 0
	}
	s.pushHistoryLocked()
	out, removed := tree.Delete(s.elements, ids)
	s.elements = out
	s.selected = []string{}
	s.pruneDanglingLocked()
	s.log.Debug("delete", slog.Int("requested", len(ids)), slog.Int("removed", removed))
	s.saveLocked()
	return removed
}

// MoveElement detaches id and reinserts it under newParentID (root when empty) at
// newIndex. Moves that cannot be resolved, including moving a node into its own
// subtree, leave the state and history untouched and report false. UpdateElement,
// in contrast, records a history entry even when its id is missing.
func (s *Store) MoveElement(id, newParentID string, newIndex int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return false
	}
	out, ok := tree.Move(s.elements, id, newParentID, newIndex)
	if !ok {
		s.log.Debug("move rejected", slog.String("id", id), slog.String("parent", newParentID))
		return false
	}
	s.pushHistoryLocked()
	s.elements = out
	s.log.Debug("move", slog.String("id", id), slog.String("parent", newParentID), slog.Int("index", newIndex))
	s.saveLocked()
	return true
}

// DuplicateElements inserts a fresh-id deep clone right after each listed element.
// Selection is left as it was. It returns the ids of the clone roots.
func (s *Store) DuplicateElements(ids []string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return nil
	}
	s.pushHistoryLocked()
	out, created := tree.Duplicate(s.elements, ids, s.newID)
	s.elements = out
	s.log.Debug("duplicate", slog.Int("requested", len(ids)), slog.Int("created", len(created)))
	s.saveLocked()
	return created
}

// ClearCanvas removes every element and clears the selection.
func (s *Store) ClearCanvas() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return
	}
	s.pushHistoryLocked()
	s.elements = []domain.Element{}
	s.selected = []string{}
	s.hovered = ""
	s.log.Debug("clear")
	s.saveLocked()
}
