/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package convert

import (
	"strings"
	"sync"
	"testing"

	"pagecraft/internal/domain"
	"pagecraft/internal/idgen"
	"pagecraft/internal/tree"
)

func newConverter() *Converter {
	return New(Options{IDs: idgen.Sequence("n")})
}

// content returns the children of the card-content node of a scaffold.
func content(t *testing.T, root domain.Element) []domain.Element {
	t.Helper()
	if root.Type != "section-container" || len(root.Children) != 1 {
		t.Fatalf("root is not a section scaffold: %+v", root)
	}
	card := root.Children[0]
	if card.Type != "card-root" || len(card.Children) != 1 || card.Children[0].Type != "card-content" {
		t.Fatalf("scaffold shape wrong: %+v", card)
	}
	return card.Children[0].Children
}

func TestConvert_Heading(t *testing.T) {
	got := content(t, newConverter().Convert("<h2>Hello</h2>"))
	if len(got) != 1 {
		t.Fatalf("expected one node, got %d", len(got))
	}
	h := got[0]
	if h.Type != "heading" || h.Props["level"] != 2.0 || h.Props["text"] != "Hello" {
		t.Fatalf("heading = %+v", h)
	}
}

func TestConvert_HeadingLevelClamped(t *testing.T) {
	got := content(t, newConverter().Convert("<h6>Small</h6>"))
	if got[0].Props["level"] != 4.0 {
		t.Fatalf("level = %v, want 4", got[0].Props["level"])
	}
}

func TestConvert_ButtonVariants(t *testing.T) {
	cases := []struct {
		html, variant, label string
	}{
		{`<button class="outline">Click</button>`, "outline", "Click"},
		{`<button class="btn btn-ghost">Go</button>`, "ghost", "Go"},
		{`<button class="Secondary">Go</button>`, "secondary", "Go"},
		{`<button class="danger-zone">Drop</button>`, "destructive", "Drop"},
		{`<button class="is-destructive">Drop</button>`, "destructive", "Drop"},
		{`<a href="/x">Docs</a>`, "link", "Docs"},
		{`<a class="outline" href="/x">Docs</a>`, "outline", "Docs"},
		{`<button></button>`, "default", "Button"},
		{`<a href="/x"></a>`, "link", "Link"},
	}
	for _, tc := range cases {
		got := content(t, newConverter().Convert(tc.html))
		if len(got) != 1 || got[0].Type != "button" {
			t.Fatalf("%s: expected one button, got %+v", tc.html, got)
		}
		if got[0].Props["variant"] != tc.variant || got[0].Props["children"] != tc.label {
			t.Fatalf("%s: props = %v", tc.html, got[0].Props)
		}
	}
}

func TestConvert_Empty(t *testing.T) {
	for _, src := range []string{"", "   ", "<script>alert(1)</script>"} {
		got := content(t, newConverter().Convert(src))
		if len(got) != 1 || got[0].Type != "paragraph" || got[0].Props["text"] != EmptyPlaceholder {
			t.Fatalf("%q: expected placeholder, got %+v", src, got)
		}
	}
}

func TestConvert_DeepNestingStops(t *testing.T) {
	src := strings.Repeat("<div>", 50) + "deep" + strings.Repeat("</div>", 50)
	res := newConverter().ConvertResult(src)
	if !res.Clipped {
		t.Fatalf("expected depth limit to clip output")
	}
	if res.Nodes > DefaultMaxNodes {
		t.Fatalf("nodes = %d beyond budget", res.Nodes)
	}
	content(t, res.Root)
}

func TestConvert_NodeBudget(t *testing.T) {
	src := "<div>" + strings.Repeat("<p>x</p>", 100) + "</div>"
	res := newConverter().ConvertResult(src)
	if res.Nodes != DefaultMaxNodes || !res.Clipped {
		t.Fatalf("nodes = %d clipped = %v", res.Nodes, res.Clipped)
	}
	if got := content(t, res.Root); len(got) != DefaultMaxNodes {
		t.Fatalf("content has %d nodes", len(got))
	}
	// Scaffold nodes are not counted against the budget.
	if n := tree.Count([]domain.Element{res.Root}); n != DefaultMaxNodes+3 {
		t.Fatalf("total = %d", n)
	}
}

func TestConvert_FormControlsAndDivider(t *testing.T) {
	src := `<form><label>Email</label><input type="email" placeholder="you@x.io"><textarea placeholder="Say hi"></textarea><hr><input></form>`
	got := content(t, newConverter().Convert(src))
	types := make([]string, 0, len(got))
	for _, e := range got {
		types = append(types, e.Type)
	}
	if strings.Join(types, ",") != "paragraph,input,textarea,divider,input" {
		t.Fatalf("types = %v", types)
	}
	if got[1].Props["type"] != "email" || got[1].Props["placeholder"] != "you@x.io" {
		t.Fatalf("input props = %v", got[1].Props)
	}
	if got[2].Props["placeholder"] != "Say hi" {
		t.Fatalf("textarea props = %v", got[2].Props)
	}
	if got[3].Props["spacing"] != "sm" {
		t.Fatalf("divider props = %v", got[3].Props)
	}
	if got[4].Props["type"] != "text" {
		t.Fatalf("input without type = %v", got[4].Props)
	}
}

func TestConvert_SpanWithoutDirectTextSplices(t *testing.T) {
	got := content(t, newConverter().Convert(`<div><span><button>A</button><button>B</button></span><p>  Hello   <b>world</b> </p></div>`))
	if len(got) != 3 {
		t.Fatalf("expected 3 nodes, got %+v", got)
	}
	if got[0].Type != "button" || got[1].Type != "button" {
		t.Fatalf("span did not splice its children: %+v", got)
	}
	if got[2].Type != "paragraph" || got[2].Props["text"] != "Hello world" {
		t.Fatalf("paragraph = %+v", got[2])
	}
}

func TestConvert_TextLimits(t *testing.T) {
	long := strings.Repeat("a", 1000)
	got := content(t, newConverter().Convert("<div>"+long+"</div><p>"+long+"</p>"))
	if len(got) != 2 {
		t.Fatalf("got %d nodes", len(got))
	}
	if n := len(got[0].Props["text"].(string)); n != 240 {
		t.Fatalf("text node length = %d", n)
	}
	if n := len(got[1].Props["text"].(string)); n != 360 {
		t.Fatalf("paragraph length = %d", n)
	}
}

func TestConvert_InputTruncated(t *testing.T) {
	c := New(Options{MaxChars: 20, IDs: idgen.Sequence("n")})
	res := c.ConvertResult("<h1>abc</h1>" + strings.Repeat("<p>zzz</p>", 20))
	if !res.Truncated {
		t.Fatalf("expected truncation")
	}
	got := content(t, res.Root)
	if got[0].Type != "heading" {
		t.Fatalf("first node = %+v", got[0])
	}
}

func TestConvert_FreshUniqueIDs(t *testing.T) {
	c := New(Options{})
	a := c.Convert(`<div><h1>x</h1><p>y</p><button>z</button></div>`)
	b := c.Convert(`<div><h1>x</h1><p>y</p><button>z</button></div>`)
	if d := tree.DuplicateIDs([]domain.Element{a, b}); len(d) != 0 {
		t.Fatalf("duplicate ids across conversions: %v", d)
	}
}

func TestConvert_ConcurrentCallsKeepOwnBudget(t *testing.T) {
	c := New(Options{MaxNodes: 5})
	src := "<div>" + strings.Repeat("<p>x</p>", 10) + "</div>"
	var wg sync.WaitGroup
	counts := make([]int, 8)
	for i := range counts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			counts[i] = c.ConvertResult(src).Nodes
		}(i)
	}
	wg.Wait()
	for i, n := range counts {
		if n != 5 {
			t.Fatalf("call %d produced %d nodes", i, n)
		}
	}
}
