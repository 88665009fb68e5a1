/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package editor owns the canvas state: the element forest, selection, hover,
// clipboard, preview mode and undo history.
//
// A Store is created by the composition root and passed to its consumers; there is
// no global instance. Every mutating entry point snapshots the pre-mutation state,
// applies a pure tree operation and hands the new document to the Saver. While
// preview mode is on, mutating entry points are no-ops.
package editor

import (
	"log/slog"
	"sync"

	"pagecraft/internal/domain"
	"pagecraft/internal/idgen"
	applog "pagecraft/internal/log"
	"pagecraft/internal/tree"
	"pagecraft/internal/undo"
)

// Saver receives the persistable document after every change.
// Implementations must not block; failures are theirs to log.
type Saver interface {
	Save(doc domain.Document)
}

// Options configures a Store. Zero values pick defaults.
type Options struct {
	HistoryLimit int
	IDs          idgen.Generator
	Saver        Saver
	Logger       *slog.Logger
}

type Store struct {
	mu sync.Mutex

	elements     []domain.Element
	selected     []string
	hovered      string
	clipboard    []domain.Element
	preview      bool
	clonePreview *domain.Element
	ui           domain.UIPrefs

	history *undo.Manager
	newID   idgen.Generator
	saver   Saver
	log     *slog.Logger
}

func New(opts Options) *Store {
	if opts.IDs == nil {
		opts.IDs = idgen.Default()
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("editor")
	}
	return &Store{
		elements: []domain.Element{},
		selected: []string{},
		ui:       domain.DefaultUIPrefs(),
		history:  undo.NewManager(undo.Config{MaxDepth: opts.HistoryLimit}),
		newID:    opts.IDs,
		saver:    opts.Saver,
		log:      opts.Logger,
	}
}

// Load rehydrates the store from a persisted document. Elements and UI preferences
// are taken over; history, selection, hover, clipboard and preview mode start empty.
// Load itself is not recorded in history and does not trigger a save.
func (s *Store) Load(doc domain.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.elements = tree.DeepCopy(doc.Canvas.Elements)
	s.ui = doc.UI
	s.selected = []string{}
	s.hovered = ""
	s.clipboard = nil
	s.preview = false
	s.clonePreview = nil
	s.history.Clear()
	s.log.Debug("state loaded", slog.Int("elements", tree.Count(s.elements)))
}

// Document returns the persistable part of the state.
func (s *Store) Document() domain.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentLocked()
}

func (s *Store) documentLocked() domain.Document {
	return domain.Document{
		Version: domain.SchemaVersion,
		Canvas:  domain.CanvasState{Elements: tree.DeepCopy(s.elements)},
		UI:      s.ui,
	}
}

// Elements returns a deep copy of the root forest.
func (s *Store) Elements() []domain.Element {
	s.mu.Lock()
	defer s.mu.Unlock()
	return tree.DeepCopy(s.elements)
}

// Find returns a copy of the element with the given id.
func (s *Store) Find(id string) (domain.Element, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := tree.Find(s.elements, id)
	if !ok {
		return domain.Element{}, false
	}
	return tree.CopyElement(e), true
}

func (s *Store) SelectedIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string{}, s.selected...)
}

// HoveredID returns the hovered element id; ok is false when nothing is hovered.
func (s *Store) HoveredID() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hovered, s.hovered != ""
}

func (s *Store) PreviewMode() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.preview
}

func (s *Store) CanUndo() bool { return s.history.CanUndo() }
func (s *Store) CanRedo() bool { return s.history.CanRedo() }

// HistoryLen returns the sizes of the past and future stacks.
func (s *Store) HistoryLen() (past, future int) { return s.history.Stats() }

func (s *Store) UIPrefs() domain.UIPrefs {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.ui
}

// SetUIPrefs replaces the UI preferences. Preferences are persisted but not
// tracked by undo history.
func (s *Store) SetUIPrefs(p domain.UIPrefs) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ui = p
	s.saveLocked()
}

// Undo restores the newest past snapshot. It never pushes a new snapshot.
func (s *Store) Undo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return false
	}
	snap, ok := s.history.Undo(s.snapshotLocked())
	if !ok {
		return false
	}
	s.applySnapshotLocked(snap)
	s.log.Debug("undo", slog.Int("elements", len(s.elements)))
	s.saveLocked()
	return true
}

// Redo re-applies the next future snapshot.
func (s *Store) Redo() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.preview {
		return false
	}
	snap, ok := s.history.Redo(s.snapshotLocked())
	if !ok {
		return false
	}
	s.applySnapshotLocked(snap)
	s.log.Debug("redo", slog.Int("elements", len(s.elements)))
	s.saveLocked()
	return true
}

func (s *Store) snapshotLocked() undo.Snapshot {
	return undo.Snapshot{Elements: s.elements, SelectedIDs: s.selected}
}

func (s *Store) pushHistoryLocked() {
	s.history.Push(s.snapshotLocked())
}

func (s *Store) applySnapshotLocked(snap undo.Snapshot) {
	s.elements = snap.Elements
	if s.elements == nil {
		s.elements = []domain.Element{}
	}
	s.selected = append([]string{}, snap.SelectedIDs...)
	s.pruneDanglingLocked()
}

// pruneDanglingLocked drops selection and hover references to nodes that no
// longer exist.
func (s *Store) pruneDanglingLocked() {
	if s.hovered != "" && !tree.Contains(s.elements, s.hovered) {
		s.hovered = ""
	}
	if len(s.selected) == 0 {
		return
	}
	present := make(map[string]struct{})
	for _, id := range tree.IDs(s.elements) {
		present[id] = struct{}{}
	}
	kept := make([]string, 0, len(s.selected))
	for _, id := range s.selected {
		if _, ok := present[id]; ok {
			kept = append(kept, id)
		}
	}
	s.selected = kept
}

func (s *Store) saveLocked() {
	if s.saver == nil {
		return
	}
	s.saver.Save(s.documentLocked())
}
