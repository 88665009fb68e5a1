/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package tree

import (
	"reflect"
	"testing"

	"pagecraft/internal/domain"
	"pagecraft/internal/idgen"
)

func el(id, typ string, children ...domain.Element) domain.Element {
	if children == nil {
		children = []domain.Element{}
	}
	return domain.Element{ID: id, Type: typ, Props: map[string]any{"label": id}, Style: map[string]any{}, Children: children}
}

// sample builds:
//
//	a
//	b
//	  b1
//	    b1x
//	  b2
//	c
func sample() []domain.Element {
	return []domain.Element{
		el("a", "button"),
		el("b", "section-container", el("b1", "card-root", el("b1x", "paragraph")), el("b2", "divider")),
		el("c", "heading"),
	}
}

func ids(nodes []domain.Element) []string { return IDs(nodes) }

func TestInsert_RootAndNested(t *testing.T) {
	nodes := sample()
	out, ok := Insert(nodes, el("n", "input"), "", 1)
	if !ok {
		t.Fatalf("root insert failed")
	}
	if got := []string{out[0].ID, out[1].ID, out[2].ID}; !reflect.DeepEqual(got, []string{"a", "n", "b"}) {
		t.Fatalf("root order = %v", got)
	}
	out, ok = Insert(nodes, el("n", "input"), "b1", 0)
	if !ok {
		t.Fatalf("nested insert failed")
	}
	b1, _ := Find(out, "b1")
	if len(b1.Children) != 2 || b1.Children[0].ID != "n" {
		t.Fatalf("nested children = %v", ids(b1.Children))
	}
	// input untouched
	if Contains(nodes, "n") {
		t.Fatalf("Insert must not modify its input")
	}
}

func TestInsert_IndexClampedAndAppend(t *testing.T) {
	nodes := sample()
	out, _ := Insert(nodes, el("n", "input"), "b", 99)
	b, _ := Find(out, "b")
	if b.Children[len(b.Children)-1].ID != "n" {
		t.Fatalf("out-of-range index should append, got %v", ids(b.Children))
	}
	out, _ = Insert(nodes, el("m", "input"), "", -1)
	if out[len(out)-1].ID != "m" {
		t.Fatalf("negative index should append at root")
	}
}

func TestInsert_MissingParent(t *testing.T) {
	nodes := sample()
	out, ok := Insert(nodes, el("n", "input"), "nope", 0)
	if ok {
		t.Fatalf("expected failure for missing parent")
	}
	if !reflect.DeepEqual(out, nodes) {
		t.Fatalf("tree changed on failed insert")
	}
}

func TestUpdate_MergesPropsAndStyle(t *testing.T) {
	nodes := sample()
	nodes[0].Props = map[string]any{"label": "a", "variant": "default"}
	nodes[0].Style = map[string]any{"x": 1.0}
	out, ok := Update(nodes, "a", domain.ElementUpdate{
		Props: map[string]any{"variant": "outline"},
		Style: map[string]any{"y": 2.0},
	})
	if !ok {
		t.Fatalf("update not applied")
	}
	a := out[0]
	if a.Props["label"] != "a" || a.Props["variant"] != "outline" {
		t.Fatalf("props merge wrong: %v", a.Props)
	}
	if a.Style["x"] != 1.0 || a.Style["y"] != 2.0 {
		t.Fatalf("style merge wrong: %v", a.Style)
	}
	if nodes[0].Props["variant"] != "default" {
		t.Fatalf("input props were mutated")
	}
}

func TestUpdate_TypeAndChildrenReplacement(t *testing.T) {
	nodes := sample()
	out, ok := Update(nodes, "b1x", domain.ElementUpdate{Type: "heading"})
	if !ok {
		t.Fatalf("nested update failed")
	}
	if e, _ := Find(out, "b1x"); e.Type != "heading" {
		t.Fatalf("type not replaced: %q", e.Type)
	}
	out, _ = Update(nodes, "b", domain.ElementUpdate{ReplaceChildren: true, Children: []domain.Element{}})
	if b, _ := Find(out, "b"); len(b.Children) != 0 {
		t.Fatalf("children not replaced")
	}
	if Contains(out, "b1x") {
		t.Fatalf("replaced descendants still reachable")
	}
	// Without ReplaceChildren, an empty Children slice is not a replacement.
	out, _ = Update(nodes, "b", domain.ElementUpdate{Children: []domain.Element{}})
	if b, _ := Find(out, "b"); len(b.Children) != 2 {
		t.Fatalf("children replaced without ReplaceChildren")
	}
}

func TestUpdate_NotFound(t *testing.T) {
	nodes := sample()
	out, ok := Update(nodes, "zzz", domain.ElementUpdate{Type: "x"})
	if ok || !reflect.DeepEqual(out, nodes) {
		t.Fatalf("update of unknown id must be a no-op")
	}
}

func TestDelete_CascadesAtAnyDepth(t *testing.T) {
	nodes := sample()
	out, n := Delete(nodes, []string{"b1", "c"})
	if n != 2 {
		t.Fatalf("removed = %d, want 2", n)
	}
	for _, id := range []string{"b1", "b1x", "c"} {
		if Contains(out, id) {
			t.Fatalf("%s still present after delete", id)
		}
	}
	if !Contains(out, "b2") || !Contains(out, "a") {
		t.Fatalf("unrelated nodes removed: %v", ids(out))
	}
}

func TestMove_ToRootAndNested(t *testing.T) {
	nodes := sample()
	out, ok := Move(nodes, "b1x", "", 0)
	if !ok || out[0].ID != "b1x" {
		t.Fatalf("move to root failed: %v", ids(out))
	}
	if b1, _ := Find(out, "b1"); len(b1.Children) != 0 {
		t.Fatalf("node not detached from old parent")
	}
	out, ok = Move(nodes, "a", "b", 1)
	if !ok {
		t.Fatalf("move into b failed")
	}
	b, _ := Find(out, "b")
	if got := ids(b.Children); !reflect.DeepEqual(got, []string{"b1", "b1x", "a", "b2"}) {
		t.Fatalf("unexpected subtree order: %v", got)
	}
	if Count(out) != Count(nodes) {
		t.Fatalf("move changed node count")
	}
}

func TestMove_IntoOwnDescendantIsNoop(t *testing.T) {
	nodes := sample()
	out, ok := Move(nodes, "b", "b1x", 0)
	if ok {
		t.Fatalf("moving a node into its own subtree must fail")
	}
	if !reflect.DeepEqual(out, nodes) {
		t.Fatalf("tree changed on rejected move")
	}
	if _, ok := Move(nodes, "missing", "", 0); ok {
		t.Fatalf("moving a missing node must fail")
	}
}

func TestDuplicate_FreshIDsAndSameShape(t *testing.T) {
	nodes := sample()
	out, created := Duplicate(nodes, []string{"b1"}, idgen.Sequence("d"))
	if len(created) != 1 {
		t.Fatalf("created = %v", created)
	}
	b, _ := Find(out, "b")
	if len(b.Children) != 3 || b.Children[0].ID != "b1" || b.Children[1].ID != created[0] || b.Children[2].ID != "b2" {
		t.Fatalf("clone not placed right after original: %v", ids(b.Children))
	}
	orig, clone := b.Children[0], b.Children[1]
	if !reflect.DeepEqual(orig, nodes[1].Children[0]) {
		t.Fatalf("original subtree changed")
	}
	if clone.Type != orig.Type || !reflect.DeepEqual(clone.Props, orig.Props) {
		t.Fatalf("clone shape differs")
	}
	if len(clone.Children) != 1 || clone.Children[0].ID == "b1x" || clone.Children[0].Type != "paragraph" {
		t.Fatalf("clone child wrong: %+v", clone.Children)
	}
	if d := DuplicateIDs(out); len(d) != 0 {
		t.Fatalf("duplicate ids after duplicate: %v", d)
	}
}

func TestDuplicate_NestedSelection(t *testing.T) {
	nodes := sample()
	out, created := Duplicate(nodes, []string{"b", "b2"}, idgen.Sequence("d"))
	if len(created) != 2 {
		t.Fatalf("created = %v", created)
	}
	if len(out) != 4 || out[1].ID != "b" || out[2].ID != created[0] {
		t.Fatalf("root order: %v", []string{out[0].ID, out[1].ID, out[2].ID})
	}
	// original b now holds b1, b2, b2-clone; the clone of b is taken from the pre-duplicate subtree
	if len(out[1].Children) != 3 || len(out[2].Children) != 2 {
		t.Fatalf("children: orig=%d clone=%d", len(out[1].Children), len(out[2].Children))
	}
	if d := DuplicateIDs(out); len(d) != 0 {
		t.Fatalf("duplicate ids: %v", d)
	}
}

func TestDeepCopy_SharesNothing(t *testing.T) {
	nodes := sample()
	nodes[0].Props["items"] = []any{map[string]any{"k": "v"}}
	cp := DeepCopy(nodes)
	cp[0].Props["items"].([]any)[0].(map[string]any)["k"] = "changed"
	cp[1].Children[0].Type = "changed"
	if nodes[0].Props["items"].([]any)[0].(map[string]any)["k"] != "v" {
		t.Fatalf("nested prop shared between copies")
	}
	if nodes[1].Children[0].Type != "card-root" {
		t.Fatalf("children shared between copies")
	}
}

func TestNewElement_MergesDefaults(t *testing.T) {
	e := NewElement(domain.Descriptor{
		Type:         "button",
		DefaultProps: map[string]any{"children": "Button", "variant": "default"},
		Props:        map[string]any{"variant": "ghost"},
	}, "x")
	if e.Props["children"] != "Button" || e.Props["variant"] != "ghost" {
		t.Fatalf("merge wrong: %v", e.Props)
	}
	if e.Children == nil || e.Style == nil {
		t.Fatalf("children/style must be non-nil")
	}
}

func TestWalk_DepthAndStop(t *testing.T) {
	var depths []int
	Walk(sample(), func(e domain.Element, d int) bool {
		depths = append(depths, d)
		return e.ID != "b1x"
	})
	if !reflect.DeepEqual(depths, []int{0, 0, 1, 2}) {
		t.Fatalf("depths = %v", depths)
	}
}

func TestFreshen_ReplacesTakenEmptyAndRepeatedIDs(t *testing.T) {
	taken := map[string]struct{}{"a": {}, "n1": {}}
	in := []domain.Element{
		el("a", "paragraph"),
		el("keep", "section-container", el("", "divider"), el("keep", "badge")),
	}
	out := Freshen(in, taken, idgen.Sequence("n"))
	if got := ids(out); !reflect.DeepEqual(got, []string{"n2", "keep", "n3", "n4"}) {
		t.Fatalf("ids = %v", got)
	}
	if in[0].ID != "a" || in[1].Children[0].ID != "" {
		t.Fatalf("input modified: %+v", in)
	}
	for _, id := range []string{"a", "n1", "n2", "keep", "n3", "n4"} {
		if _, ok := taken[id]; !ok {
			t.Fatalf("%s missing from taken", id)
		}
	}
}
