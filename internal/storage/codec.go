/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"bytes"
	"context"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"

	"pagecraft/internal/domain"
	"pagecraft/internal/idgen"
	"pagecraft/internal/tree"
)

// SchemaJSON is the JSON schema of the on-disk Document.
//
//go:embed state.schema.json
var SchemaJSON []byte

var (
	// ErrNotFound reports an absent state slot.
	ErrNotFound = errors.New("storage: state not found")
	// ErrCorrupt reports a state slot that could not be decoded.
	ErrCorrupt = errors.New("storage: state corrupt")
)

// v1Document is the layout written before UI preferences were persisted.
type v1Document struct {
	Elements []domain.Element `json:"elements"`
}

// EncodeJSON renders doc in the human-readable on-disk form.
func EncodeJSON(doc domain.Document) ([]byte, error) {
	doc.Version = domain.SchemaVersion
	doc.Canvas.Elements = tree.DeepCopy(doc.Canvas.Elements)
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal state: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeJSON parses any known layout and migrates it to the current one.
// Stored UI preferences are merged over the defaults.
func DecodeJSON(data []byte) (domain.Document, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return domain.NewDocument(), fmt.Errorf("%w: empty", ErrCorrupt)
	}
	var probe struct {
		Version  *int            `json:"version"`
		Elements json.RawMessage `json:"elements"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return domain.NewDocument(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	version := 0
	if probe.Version != nil {
		version = *probe.Version
	} else if probe.Elements != nil {
		version = 1
	}

	doc := domain.NewDocument()
	switch {
	case version == 1:
		var v1 v1Document
		if err := json.Unmarshal(data, &v1); err != nil {
			return domain.NewDocument(), fmt.Errorf("%w: v1: %v", ErrCorrupt, err)
		}
		doc.Canvas.Elements = v1.Elements
	case version >= 2:
		if err := json.Unmarshal(data, &doc); err != nil {
			return domain.NewDocument(), fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	default:
		return domain.NewDocument(), fmt.Errorf("%w: unknown layout", ErrCorrupt)
	}
	return normalize(doc), nil
}

// normalize drops nodes that cannot be rendered, re-mints repeated ids and
// stamps the current version.
func normalize(doc domain.Document) domain.Document {
	doc.Version = domain.SchemaVersion
	doc.Canvas.Elements = tree.Rewrite(doc.Canvas.Elements, func(e domain.Element) ([]domain.Element, bool) {
		if e.Type == "" || e.ID == "" {
			return nil, true
		}
		return nil, false
	})
	doc.Canvas.Elements = tree.Freshen(doc.Canvas.Elements, map[string]struct{}{}, idgen.Default())
	if doc.UI.Zoom <= 0 {
		doc.UI.Zoom = domain.DefaultUIPrefs().Zoom
	}
	if doc.UI.GridSize <= 0 {
		doc.UI.GridSize = domain.DefaultUIPrefs().GridSize
	}
	return doc
}

// LoadOrEmpty loads the slot and maps an absent slot to an empty Document.
// Corrupt state also yields the empty Document, with the error for logging.
func LoadOrEmpty(ctx context.Context, b Backend) (domain.Document, error) {
	doc, err := b.Load(ctx)
	if errors.Is(err, ErrNotFound) {
		return domain.NewDocument(), nil
	}
	return doc, err
}
