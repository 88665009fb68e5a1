/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package cli

import (
	"bytes"
	"strings"
	"testing"

	"pagecraft/internal/domain"
	"pagecraft/internal/registry"
)

func TestRenderTreeShowsNesting(t *testing.T) {
	out := RenderTree([]domain.Element{
		{ID: "s1", Type: "section-container", Children: []domain.Element{
			{ID: "h1", Type: "heading", Props: map[string]any{"text": "Hello"}},
		}},
		{ID: "b1", Type: "button", Props: map[string]any{"children": "Click"}},
	})
	for _, want := range []string{"section-container", "#s1", "heading", "#h1", `"Hello"`, "button", `"Click"`} {
		if !strings.Contains(out, want) {
			t.Fatalf("tree missing %q:\n%s", want, out)
		}
	}
	if lines := strings.Count(strings.TrimRight(out, "\n"), "\n") + 1; lines != 3 {
		t.Fatalf("expected 3 lines, got %d:\n%s", lines, out)
	}
}

func TestRenderTreeEmpty(t *testing.T) {
	if out := RenderTree(nil); !strings.Contains(out, "(empty canvas)") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSummary(t *testing.T) {
	cases := []struct {
		props map[string]any
		want  string
	}{
		{map[string]any{"text": "hi", "children": "x"}, "hi"},
		{map[string]any{"children": "Go"}, "Go"},
		{map[string]any{"text": "  ", "title": "T"}, "T"},
		{map[string]any{"level": 2.0}, ""},
		{map[string]any{"text": strings.Repeat("é", 50)}, strings.Repeat("é", 37) + "..."},
	}
	for _, tc := range cases {
		if got := Summary(domain.Element{Props: tc.props}); got != tc.want {
			t.Fatalf("Summary(%v) = %q, want %q", tc.props, got, tc.want)
		}
	}
}

func TestKindsTable(t *testing.T) {
	var buf bytes.Buffer
	err := KindsTable(&buf, []registry.Kind{
		{Type: "button", Category: "components", Label: "Button", DefaultProps: map[string]any{"variant": "default", "children": "Button"}},
	})
	if err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "TYPE") || !strings.Contains(out, "children,variant") {
		t.Fatalf("table wrong:\n%s", out)
	}
}

func TestOutputResults(t *testing.T) {
	var buf bytes.Buffer
	if err := OutputResults(&buf, "json", map[string]int{"a": 1}); err != nil || !strings.Contains(buf.String(), `"a": 1`) {
		t.Fatalf("json output %q, %v", buf.String(), err)
	}
	buf.Reset()
	if err := OutputResults(&buf, "yaml", map[string]int{"a": 1}); err != nil || strings.TrimSpace(buf.String()) != "a: 1" {
		t.Fatalf("yaml output %q, %v", buf.String(), err)
	}
	if err := OutputResults(&buf, "xml", nil); err == nil {
		t.Fatalf("unsupported format should fail")
	}
}

func TestParseAssignments(t *testing.T) {
	got, err := ParseAssignments([]string{"text=Hello world", "level=2", "bold=true", `items=["a","b"]`, `quoted="7"`})
	if err != nil {
		t.Fatal(err)
	}
	if got["text"] != "Hello world" || got["level"] != 2.0 || got["bold"] != true || got["quoted"] != "7" {
		t.Fatalf("parsed = %#v", got)
	}
	if items, ok := got["items"].([]any); !ok || len(items) != 2 {
		t.Fatalf("items = %#v", got["items"])
	}
	if _, err := ParseAssignments([]string{"novalue"}); err == nil {
		t.Fatalf("missing = should fail")
	}
	if _, err := ParseAssignments([]string{"=x"}); err == nil {
		t.Fatalf("empty key should fail")
	}
}
