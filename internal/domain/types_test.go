package domain

import (
	"encoding/json"
	"testing"
)

func TestDocumentJSONRoundTripKeepsUnknownTypes(t *testing.T) {
	d := NewDocument()
	d.Canvas.Elements = []Element{
		{
			ID:    "a",
			Type:  "totally-unknown-widget",
			Props: map[string]any{"text": "hi", "items": []any{"x", "y"}},
			Style: map[string]any{"x": 10.0},
			Children: []Element{
				{ID: "b", Type: "paragraph", Props: map[string]any{}, Style: map[string]any{}, Children: []Element{}},
			},
		},
	}

	b, err := json.Marshal(d)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got Document
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Version != SchemaVersion {
		t.Fatalf("version = %d, want %d", got.Version, SchemaVersion)
	}
	if len(got.Canvas.Elements) != 1 || got.Canvas.Elements[0].Type != "totally-unknown-widget" {
		t.Fatalf("unexpected elements: %+v", got.Canvas.Elements)
	}
	if len(got.Canvas.Elements[0].Children) != 1 || got.Canvas.Elements[0].Children[0].ID != "b" {
		t.Fatalf("children lost: %+v", got.Canvas.Elements[0].Children)
	}
}

func TestDocumentJSONOmitsTransientState(t *testing.T) {
	b, err := json.Marshal(NewDocument())
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	for _, k := range []string{"selectedIds", "hoveredId", "clipboard", "history", "previewMode"} {
		if _, ok := m[k]; ok {
			t.Fatalf("transient key %q must not be persisted", k)
		}
	}
	if _, ok := m["canvas"]; !ok {
		t.Fatalf("canvas key missing")
	}
}
