/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the data model shared by the editor core, the converter and persistence.
// Element trees are plain values: a node owns its children slice, so a tree can never
// reference itself.

// Element is one node of the canvas tree.
// Type is a registry key ("button", "section-container", ...) and is opaque to the core;
// unknown types are kept as-is.
type Element struct {
	ID       string         `json:"id"`
	Type     string         `json:"type"`
	Props    map[string]any `json:"props"`
	Style    map[string]any `json:"style"`
	Children []Element      `json:"children"`
}

// Descriptor describes an element to be created by AddElement.
// Props are merged over DefaultProps; caller keys win.
type Descriptor struct {
	Type         string
	DefaultProps map[string]any
	Props        map[string]any
	Style        map[string]any
}

// ElementUpdate is a partial update applied by UpdateElement.
// Props and Style are shallow-merged. Type replaces the node type when non-empty.
// Children replaces the whole child list only when ReplaceChildren is set, so an
// explicit empty list can be distinguished from "no change".
type ElementUpdate struct {
	Props           map[string]any
	Style           map[string]any
	Type            string
	Children        []Element
	ReplaceChildren bool
}

// UIPrefs are the non-transient editor preferences persisted next to the canvas.
// Preview mode, selection and hover are transient and never stored.
type UIPrefs struct {
	Theme        string  `json:"theme,omitempty"` // system | light | dark
	Zoom         float64 `json:"zoom"`
	ShowGrid     bool    `json:"showGrid"`
	SnapToGrid   bool    `json:"snapToGrid"`
	GridSize     int     `json:"gridSize"`
	LeftPanelTab string  `json:"leftPanelTab,omitempty"` // components | blocks | layers
	DevToolsOpen bool    `json:"devToolsOpen"`
}

// DefaultUIPrefs returns the in-memory defaults stored preferences are merged over.
func DefaultUIPrefs() UIPrefs {
	return UIPrefs{Theme: "system", Zoom: 1, ShowGrid: true, SnapToGrid: false, GridSize: 8, LeftPanelTab: "components"}
}

// SchemaVersion is the current version of the persisted Document layout.
// Version 1 stored a bare top-level "elements" array without UI preferences.
const SchemaVersion = 2

// Document is the persisted state slot: canvas elements plus UI preferences.
// History, selection, hover and clipboard are deliberately absent.
type Document struct {
	Version int         `json:"version"`
	Canvas  CanvasState `json:"canvas"`
	UI      UIPrefs     `json:"ui"`
}

// CanvasState holds the persisted part of the canvas.
type CanvasState struct {
	Elements []Element `json:"elements"`
}

// NewDocument returns an empty document at the current schema version.
func NewDocument() Document {
	return Document{Version: SchemaVersion, Canvas: CanvasState{Elements: []Element{}}, UI: DefaultUIPrefs()}
}
