/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package registry keeps the catalog of component kinds known to the editor.
// A Registry is an ordinary value owned by the composition root; there is no
// package-level instance.
package registry

import (
	_ "embed"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"pagecraft/internal/domain"
	"pagecraft/internal/tree"
)

//go:embed catalog.yaml
var builtinCatalog []byte

// Kind describes one component type.
type Kind struct {
	Type         string         `yaml:"type"`
	Label        string         `yaml:"label"`
	Category     string         `yaml:"category"`
	DefaultProps map[string]any `yaml:"default_props"`
	DefaultStyle map[string]any `yaml:"default_style"`
}

type catalogFile struct {
	Kinds []Kind `yaml:"kinds"`
}

// Registry maps type keys to kinds. It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// NewBuiltin returns a registry seeded with the embedded catalog.
func NewBuiltin() (*Registry, error) {
	r := New()
	if err := r.LoadYAML(builtinCatalog); err != nil {
		return nil, fmt.Errorf("load builtin catalog: %w", err)
	}
	return r, nil
}

// LoadYAML registers every kind listed in a catalog document.
func (r *Registry) LoadYAML(data []byte) error {
	var cf catalogFile
	if err := yaml.Unmarshal(data, &cf); err != nil {
		return fmt.Errorf("parse catalog: %w", err)
	}
	for _, k := range cf.Kinds {
		if err := r.Register(k); err != nil {
			return err
		}
	}
	return nil
}

// Register adds or replaces a kind.
func (r *Registry) Register(k Kind) error {
	k.Type = strings.TrimSpace(k.Type)
	if k.Type == "" {
		return errors.New("kind type is required")
	}
	k.DefaultProps = normalize(k.DefaultProps)
	k.DefaultStyle = normalize(k.DefaultStyle)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[k.Type] = k
	return nil
}

// Remove deletes a kind; it reports whether it existed.
func (r *Registry) Remove(typ string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.kinds[typ]
	delete(r.kinds, typ)
	return ok
}

// Get returns a copy of the kind registered under typ.
func (r *Registry) Get(typ string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[typ]
	if !ok {
		return Kind{}, false
	}
	k.DefaultProps = tree.MergeMap(nil, k.DefaultProps)
	k.DefaultStyle = tree.MergeMap(nil, k.DefaultStyle)
	return k, true
}

// List returns all kinds sorted by category, then type.
func (r *Registry) List() []Kind {
	r.mu.RLock()
	out := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].Category != out[j].Category {
			return out[i].Category < out[j].Category
		}
		return out[i].Type < out[j].Type
	})
	return out
}

// Descriptor builds an AddElement descriptor for typ with the caller's props and style.
// Unknown types are allowed and get no defaults.
func (r *Registry) Descriptor(typ string, props, style map[string]any) domain.Descriptor {
	d := domain.Descriptor{Type: typ, Props: props}
	if k, ok := r.Get(typ); ok {
		d.DefaultProps = k.DefaultProps
		d.Style = tree.MergeMap(k.DefaultStyle, style)
		return d
	}
	d.Style = style
	return d
}

// normalize converts YAML-decoded nested maps into map[string]any so defaults look
// the same as JSON-decoded props.
func normalize(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return normalize(t)
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, x := range t {
			m[fmt.Sprint(k)] = normalizeValue(x)
		}
		return m
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = normalizeValue(x)
		}
		return out
	case int:
		return float64(t)
	default:
		return v
	}
}
