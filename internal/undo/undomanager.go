/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"

	"pagecraft/internal/domain"
	"pagecraft/internal/tree"
)

// DefaultMaxDepth is the number of past snapshots kept when Config.MaxDepth is unset.
const DefaultMaxDepth = 50

// Snapshot is the captured {elements, selectedIds} pair.
// The manager stores structural copies; callers may keep using the values they pass in.
type Snapshot struct {
	Elements    []domain.Element
	SelectedIDs []string
	TS          time.Time
}

// Config controls the depth cap.
type Config struct {
	// MaxDepth caps the past stack; oldest entries are dropped first.
	MaxDepth int
}

// Manager holds the past and future stacks of the canvas.
// Push clears the future stack; Undo and Redo only move snapshots between the two.
// It is safe for concurrent use.
type Manager struct {
	cfg    Config
	mu     sync.Mutex
	past   []Snapshot
	future []Snapshot // future[0] is the next redo
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxDepth <= 0 {
		cfg.MaxDepth = DefaultMaxDepth
	}
	return &Manager{cfg: cfg}
}

// Push records the pre-mutation state and invalidates redo.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past = append(m.past, clone(s))
	m.future = nil
	m.enforceCapLocked()
}

// Undo pops the newest past snapshot and returns it for the caller to apply.
// current, the state being replaced, goes to the front of the future stack.
func (m *Manager) Undo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.past) == 0 {
		return Snapshot{}, false
	}
	s := m.past[len(m.past)-1]
	m.past = m.past[:len(m.past)-1]
	m.future = append([]Snapshot{clone(current)}, m.future...)
	return s, true
}

// Redo takes the first future snapshot and returns it for the caller to apply.
// current goes to the end of the past stack.
func (m *Manager) Redo(current Snapshot) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.future) == 0 {
		return Snapshot{}, false
	}
	s := m.future[0]
	m.future = m.future[1:]
	m.past = append(m.past, clone(current))
	m.enforceCapLocked()
	return s, true
}

// Clear drops both stacks.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.past = nil
	m.future = nil
}

// Stats returns the current stack sizes.
func (m *Manager) Stats() (past int, future int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.past), len(m.future)
}

func (m *Manager) CanUndo() bool { p, _ := m.Stats(); return p > 0 }
func (m *Manager) CanRedo() bool { _, f := m.Stats(); return f > 0 }

func (m *Manager) enforceCapLocked() {
	if len(m.past) > m.cfg.MaxDepth {
		// drop the oldest extras
		toDrop := len(m.past) - m.cfg.MaxDepth
		m.past = append([]Snapshot{}, m.past[toDrop:]...)
	}
}

func clone(s Snapshot) Snapshot {
	if s.TS.IsZero() {
		s.TS = time.Now()
	}
	return Snapshot{
		Elements:    tree.DeepCopy(s.Elements),
		SelectedIDs: append([]string{}, s.SelectedIDs...),
		TS:          s.TS,
	}
}
