/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package editor

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"pagecraft/internal/domain"
	"pagecraft/internal/tree"
)

// CopyToClipboard stores fresh-id deep copies of the selected elements, replacing
// the previous clipboard. It returns the number of copied elements.
func (s *Store) CopyToClipboard() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return 0
	}
	var picked []domain.Element
	for _, id := range s.selected {
		if e, ok := tree.Find(s.elements, id); ok {
			picked = append(picked, e)
		}
	}
	s.clipboard = tree.CloneFreshAll(picked, s.newID)
	s.log.Debug("copy", slog.Int("elements", len(s.clipboard)))
	return len(s.clipboard)
}

// PasteFromClipboard appends fresh-id copies of the clipboard to the root and selects
// exactly the pasted elements. An empty clipboard is a no-op without a history entry.
func (s *Store) PasteFromClipboard() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview || len(s.clipboard) == 0 {
		return nil
	}
	s.pushHistoryLocked()
	pasted := tree.CloneFreshAll(s.clipboard, s.newID)
	out := make([]domain.Element, 0, len(s.elements)+len(pasted))
	out = append(out, s.elements...)
	out = append(out, pasted...)
	s.elements = out
	ids := make([]string, 0, len(pasted))
	for _, e := range pasted {
		ids = append(ids, e.ID)
	}
	s.selected = ids
	s.log.Debug("paste", slog.Int("elements", len(ids)))
	s.saveLocked()
	return append([]string{}, ids...)
}

// Clipboard returns a copy of the clipboard contents, or nil when empty.
func (s *Store) Clipboard() []domain.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clipboard == nil {
		return nil
	}
	return tree.DeepCopy(s.clipboard)
}

// ExportClipboard encodes the clipboard as a JSON array of elements.
func (s *Store) ExportClipboard() ([]byte, error) {
	els := s.Clipboard()
	if els == nil {
		els = []domain.Element{}
	}
	return json.Marshal(els)
}

// ImportClipboard replaces the clipboard with elements decoded from JSON, either an
// array or a single element object. Malformed input returns an error and leaves the
// clipboard untouched. Imported elements get fresh ids.
func (s *Store) ImportClipboard(data []byte) error {
	els, err := decodeElements(data)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return nil
	}
	s.clipboard = tree.CloneFreshAll(els, s.newID)
	s.log.Debug("clipboard imported", slog.Int("elements", len(s.clipboard)))
	return nil
}

func decodeElements(data []byte) ([]domain.Element, error) {
	var els []domain.Element
	if err := json.Unmarshal(data, &els); err != nil {
		var one domain.Element
		if err1 := json.Unmarshal(data, &one); err1 != nil {
			return nil, fmt.Errorf("decode clipboard: %w", err)
		}
		els = []domain.Element{one}
	}
	var bad error
	tree.Walk(els, func(e domain.Element, _ int) bool {
		if e.Type == "" {
			bad = errors.New("decode clipboard: element without type")
			return false
		}
		return true
	})
	if bad != nil {
		return nil, bad
	}
	return tree.DeepCopy(els), nil
}

// SetClonePreview parks a converted page in the transient preview slot.
// The slot is not part of history or persistence.
func (s *Store) SetClonePreview(e domain.Element) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := tree.CopyElement(e)
	s.clonePreview = &cp
}

// ClonePreview returns the parked element, if any.
func (s *Store) ClonePreview() (domain.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.clonePreview == nil {
		return domain.Element{}, false
	}
	return tree.CopyElement(*s.clonePreview), true
}

// DiscardClonePreview empties the preview slot.
func (s *Store) DiscardClonePreview() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.clonePreview = nil
}

// CommitClonePreview inserts the parked element (with fresh ids) under parentID at
// index like AddElement does, selects it when inserted at the root and empties the
// slot. It reports false when the slot is empty, preview mode is on or the parent is
// missing.
func (s *Store) CommitClonePreview(parentID string, index int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview || s.clonePreview == nil {
		return "", false
	}
	el := tree.CloneFresh(*s.clonePreview, s.newID)
	out, ok := tree.Insert(s.elements, el, parentID, index)
	if !ok {
		return "", false
	}
	s.pushHistoryLocked()
	s.elements = out
	if parentID == "" {
		s.selected = []string{el.ID}
	}
	s.clonePreview = nil
	s.log.Debug("clone committed", slog.String("id", el.ID), slog.Int("nodes", tree.Count([]domain.Element{el})))
	s.saveLocked()
	return el.ID, true
}
