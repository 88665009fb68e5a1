/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package tree implements the pure element-tree operations used by the editor store.
//
// Every operation is built on Rewrite, a single depth-first traversal that lets a
// callback replace a node with zero or more nodes. Operations never modify their
// input: each level that is visited gets a freshly allocated slice, and prop/style
// maps are replaced rather than written to.
package tree

import (
	"pagecraft/internal/domain"
	"pagecraft/internal/idgen"
)

// RewriteFunc inspects a node. When handled is true the node is replaced by
// replacement (possibly empty) and its subtree is not visited further; otherwise the
// node is kept and its children are rewritten recursively.
type RewriteFunc func(e domain.Element) (replacement []domain.Element, handled bool)

// Rewrite applies fn to every node of the forest, depth-first, in sibling order.
func Rewrite(nodes []domain.Element, fn RewriteFunc) []domain.Element {
	out := make([]domain.Element, 0, len(nodes))
	for _, n := range nodes {
		if repl, ok := fn(n); ok {
			out = append(out, repl...)
			continue
		}
		n.Children = Rewrite(n.Children, fn)
		out = append(out, n)
	}
	return out
}

// Walk visits every node depth-first (pre-order) with its depth (roots are 0).
// Returning false from fn stops the walk.
func Walk(nodes []domain.Element, fn func(e domain.Element, depth int) bool) {
	walk(nodes, 0, fn)
}

func walk(nodes []domain.Element, depth int, fn func(domain.Element, int) bool) bool {
	for _, n := range nodes {
		if !fn(n, depth) {
			return false
		}
		if !walk(n.Children, depth+1, fn) {
			return false
		}
	}
	return true
}

// Find returns the node with the given id anywhere in the forest.
func Find(nodes []domain.Element, id string) (domain.Element, bool) {
	var found domain.Element
	ok := false
	Walk(nodes, func(e domain.Element, _ int) bool {
		if e.ID == id {
			found, ok = e, true
			return false
		}
		return true
	})
	return found, ok
}

// Contains reports whether id exists anywhere in the forest.
func Contains(nodes []domain.Element, id string) bool {
	_, ok := Find(nodes, id)
	return ok
}

// IDs lists every id in pre-order.
func IDs(nodes []domain.Element) []string {
	var ids []string
	Walk(nodes, func(e domain.Element, _ int) bool {
		ids = append(ids, e.ID)
		return true
	})
	return ids
}

// Count returns the total number of nodes.
func Count(nodes []domain.Element) int {
	n := 0
	Walk(nodes, func(domain.Element, int) bool { n++; return true })
	return n
}

// DuplicateIDs returns ids that occur more than once, in first-repeat order.
func DuplicateIDs(nodes []domain.Element) []string {
	seen := map[string]int{}
	var dups []string
	Walk(nodes, func(e domain.Element, _ int) bool {
		seen[e.ID]++
		if seen[e.ID] == 2 {
			dups = append(dups, e.ID)
		}
		return true
	})
	return dups
}

// NewElement builds a childless element from d with the given id.
func NewElement(d domain.Descriptor, id string) domain.Element {
	return domain.Element{
		ID:       id,
		Type:     d.Type,
		Props:    MergeMap(d.DefaultProps, d.Props),
		Style:    MergeMap(nil, d.Style),
		Children: []domain.Element{},
	}
}

// Insert places el as a child of parentID at index, or into the root sequence when
// parentID is empty. A negative or out-of-range index is clamped (negative appends).
// It reports false and returns nodes unchanged when parentID does not exist.
func Insert(nodes []domain.Element, el domain.Element, parentID string, index int) ([]domain.Element, bool) {
	if parentID == "" {
		return splice(nodes, index, el), true
	}
	found := false
	out := Rewrite(nodes, func(e domain.Element) ([]domain.Element, bool) {
		if found || e.ID != parentID {
			return nil, false
		}
		found = true
		e.Children = splice(e.Children, index, el)
		return []domain.Element{e}, true
	})
	if !found {
		return nodes, false
	}
	return out, true
}

// Update applies u to the node with the given id.
func Update(nodes []domain.Element, id string, u domain.ElementUpdate) ([]domain.Element, bool) {
	found := false
	out := Rewrite(nodes, func(e domain.Element) ([]domain.Element, bool) {
		if found || e.ID != id {
			return nil, false
		}
		found = true
		if u.Props != nil {
			e.Props = MergeMap(e.Props, u.Props)
		}
		if u.Style != nil {
			e.Style = MergeMap(e.Style, u.Style)
		}
		if u.Type != "" {
			e.Type = u.Type
		}
		if u.ReplaceChildren {
			e.Children = DeepCopy(u.Children)
		}
		return []domain.Element{e}, true
	})
	if !found {
		return nodes, false
	}
	return out, true
}

// Delete removes every node whose id is in ids, at any depth, together with its
// descendants. It returns the new forest and the number of matched nodes.
func Delete(nodes []domain.Element, ids []string) ([]domain.Element, int) {
	set := toSet(ids)
	removed := 0
	out := Rewrite(nodes, func(e domain.Element) ([]domain.Element, bool) {
		if _, ok := set[e.ID]; ok {
			removed++
			return nil, true
		}
		return nil, false
	})
	return out, removed
}

// Detach removes the node with the given id and returns it with its subtree.
func Detach(nodes []domain.Element, id string) ([]domain.Element, domain.Element, bool) {
	var detached domain.Element
	found := false
	out := Rewrite(nodes, func(e domain.Element) ([]domain.Element, bool) {
		if found || e.ID != id {
			return nil, false
		}
		found = true
		detached = e
		return nil, true
	})
	if !found {
		return nodes, domain.Element{}, false
	}
	return out, detached, true
}

// Move detaches id and reinserts it under newParentID (root when empty) at newIndex.
// newParentID is resolved after detachment, so a node can never be moved into its own
// subtree: such a move finds no parent and leaves the forest unchanged.
func Move(nodes []domain.Element, id, newParentID string, newIndex int) ([]domain.Element, bool) {
	rest, el, ok := Detach(nodes, id)
	if !ok {
		return nodes, false
	}
	out, ok := Insert(rest, el, newParentID, newIndex)
	if !ok {
		return nodes, false
	}
	return out, true
}

// Duplicate inserts, right after every node whose id is in ids, a deep clone with
// fresh ids. Selected descendants of a selected node are duplicated inside the
// original; the clone is taken from the original subtree as it was before.
func Duplicate(nodes []domain.Element, ids []string, gen idgen.Generator) ([]domain.Element, []string) {
	set := toSet(ids)
	var created []string
	var fn RewriteFunc
	fn = func(e domain.Element) ([]domain.Element, bool) {
		if _, ok := set[e.ID]; !ok {
			return nil, false
		}
		clone := CloneFresh(e, gen)
		created = append(created, clone.ID)
		orig := e
		orig.Children = Rewrite(e.Children, fn)
		return []domain.Element{orig, clone}, true
	}
	return Rewrite(nodes, fn), created
}

// CloneFresh deep-copies e and assigns a new id to it and every descendant.
func CloneFresh(e domain.Element, gen idgen.Generator) domain.Element {
	c := CopyElement(e)
	reassign(&c, gen)
	return c
}

// CloneFreshAll applies CloneFresh to each node.
func CloneFreshAll(nodes []domain.Element, gen idgen.Generator) []domain.Element {
	out := make([]domain.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, CloneFresh(n, gen))
	}
	return out
}

// Freshen returns a deep copy of nodes in which every id that is empty, already
// in taken or repeated within nodes is replaced by one from gen. The ids of the
// returned forest are added to taken.
func Freshen(nodes []domain.Element, taken map[string]struct{}, gen idgen.Generator) []domain.Element {
	out := DeepCopy(nodes)
	for i := range out {
		freshen(&out[i], taken, gen)
	}
	return out
}

func freshen(e *domain.Element, taken map[string]struct{}, gen idgen.Generator) {
	free := func(id string) bool {
		_, used := taken[id]
		return id != "" && !used
	}
	if !free(e.ID) {
		id := gen()
		for !free(id) {
			id = gen()
		}
		e.ID = id
	}
	taken[e.ID] = struct{}{}
	for i := range e.Children {
		freshen(&e.Children[i], taken, gen)
	}
}

func reassign(e *domain.Element, gen idgen.Generator) {
	e.ID = gen()
	for i := range e.Children {
		reassign(&e.Children[i], gen)
	}
}

// DeepCopy returns a structural copy of the forest that shares no slices or maps
// with the input. Ids are preserved.
func DeepCopy(nodes []domain.Element) []domain.Element {
	out := make([]domain.Element, 0, len(nodes))
	for _, n := range nodes {
		out = append(out, CopyElement(n))
	}
	return out
}

// CopyElement deep-copies one node. Nil maps and slices come back empty.
func CopyElement(e domain.Element) domain.Element {
	return domain.Element{
		ID:       e.ID,
		Type:     e.Type,
		Props:    MergeMap(nil, e.Props),
		Style:    MergeMap(nil, e.Style),
		Children: DeepCopy(e.Children),
	}
}

// MergeMap returns a new map holding base overlaid with over (over wins).
// Nested maps and slices are copied.
func MergeMap(base, over map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(over))
	for k, v := range base {
		out[k] = copyValue(v)
	}
	for k, v := range over {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return MergeMap(nil, t)
	case []any:
		out := make([]any, len(t))
		for i, x := range t {
			out[i] = copyValue(x)
		}
		return out
	default:
		return v
	}
}

func splice(list []domain.Element, index int, el domain.Element) []domain.Element {
	if index < 0 || index > len(list) {
		index = len(list)
	}
	out := make([]domain.Element, 0, len(list)+1)
	out = append(out, list[:index]...)
	out = append(out, el)
	out = append(out, list[index:]...)
	return out
}

func toSet(ids []string) map[string]struct{} {
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}
