/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"testing"

	gojsonschema "github.com/xeipuuv/gojsonschema"

	"pagecraft/internal/domain"
	"pagecraft/internal/tree"
)

func sampleDoc() domain.Document {
	doc := domain.NewDocument()
	doc.Canvas.Elements = []domain.Element{
		{ID: "a", Type: "section-container", Props: map[string]any{"padding": "md"}, Children: []domain.Element{
			{ID: "b", Type: "heading", Props: map[string]any{"text": "Hi", "bold": true}},
		}},
		{ID: "c", Type: "some-future-kind", Style: map[string]any{"className": "x"}},
	}
	doc.UI.Theme = "dark"
	doc.UI.ShowGrid = false
	return doc
}

func TestEncodedDocumentConformsToSchema(t *testing.T) {
	data, err := EncodeJSON(sampleDoc())
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(SchemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		for _, e := range result.Errors() {
			t.Logf("schema error: %s", e)
		}
		t.Fatalf("state does not conform to schema")
	}
}

func TestEmptyDocumentConformsToSchema(t *testing.T) {
	data, err := EncodeJSON(domain.NewDocument())
	if err != nil {
		t.Fatalf("EncodeJSON: %v", err)
	}
	result, err := gojsonschema.Validate(gojsonschema.NewBytesLoader(SchemaJSON), gojsonschema.NewBytesLoader(data))
	if err != nil {
		t.Fatalf("schema validate error: %v", err)
	}
	if !result.Valid() {
		t.Fatalf("empty state does not conform: %v", result.Errors())
	}
}

func TestDecodeKeepsElementsAndPrefs(t *testing.T) {
	data, err := EncodeJSON(sampleDoc())
	if err != nil {
		t.Fatal(err)
	}
	got, err := DecodeJSON(data)
	if err != nil {
		t.Fatalf("DecodeJSON: %v", err)
	}
	if len(got.Canvas.Elements) != 2 || got.Canvas.Elements[1].Type != "some-future-kind" {
		t.Fatalf("elements lost: %+v", got.Canvas.Elements)
	}
	if got.Canvas.Elements[0].Children[0].Props["bold"] != true {
		t.Fatalf("nested props lost")
	}
	if got.UI.Theme != "dark" || got.UI.ShowGrid {
		t.Fatalf("ui prefs lost: %+v", got.UI)
	}
}

func TestDecodeMigratesV1(t *testing.T) {
	v1 := []byte(`{"elements":[{"id":"x","type":"button","props":{"children":"Go"}}]}`)
	got, err := DecodeJSON(v1)
	if err != nil {
		t.Fatalf("DecodeJSON v1: %v", err)
	}
	if got.Version != domain.SchemaVersion {
		t.Fatalf("version = %d", got.Version)
	}
	if len(got.Canvas.Elements) != 1 || got.Canvas.Elements[0].Props["children"] != "Go" {
		t.Fatalf("v1 elements not migrated: %+v", got.Canvas.Elements)
	}
	if got.UI != domain.DefaultUIPrefs() {
		t.Fatalf("v1 should get default prefs: %+v", got.UI)
	}
}

func TestDecodeMergesPartialPrefsOverDefaults(t *testing.T) {
	got, err := DecodeJSON([]byte(`{"version":2,"canvas":{"elements":[]},"ui":{"zoom":2}}`))
	if err != nil {
		t.Fatal(err)
	}
	want := domain.DefaultUIPrefs()
	want.Zoom = 2
	if got.UI != want {
		t.Fatalf("ui = %+v, want %+v", got.UI, want)
	}
}

func TestDecodeMissingCanvasDefaultsToEmpty(t *testing.T) {
	got, err := DecodeJSON([]byte(`{"version":2}`))
	if err != nil {
		t.Fatal(err)
	}
	if got.Canvas.Elements == nil || len(got.Canvas.Elements) != 0 {
		t.Fatalf("elements = %#v", got.Canvas.Elements)
	}
}

func TestDecodeDropsUntypedNodes(t *testing.T) {
	got, err := DecodeJSON([]byte(`{"version":2,"canvas":{"elements":[{"id":"a","type":"card-root","children":[{"id":"b"},{"id":"c","type":"paragraph"}]},{"type":"x"}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Canvas.Elements) != 1 || len(got.Canvas.Elements[0].Children) != 1 || got.Canvas.Elements[0].Children[0].ID != "c" {
		t.Fatalf("sanitize wrong: %+v", got.Canvas.Elements)
	}
}

func TestDecodeCorrupt(t *testing.T) {
	for _, in := range []string{"", "{", "[]", `{"foo":1}`, `{"version":2,"canvas":{"elements":"nope"}}`} {
		doc, err := DecodeJSON([]byte(in))
		if !errors.Is(err, ErrCorrupt) {
			t.Fatalf("%q: err = %v, want ErrCorrupt", in, err)
		}
		if len(doc.Canvas.Elements) != 0 || doc.UI != domain.DefaultUIPrefs() {
			t.Fatalf("%q: corrupt input must yield the empty document", in)
		}
	}
}

func TestDecodeRemintsRepeatedIDs(t *testing.T) {
	got, err := DecodeJSON([]byte(`{"version":2,"canvas":{"elements":[{"id":"a","type":"card-root","children":[{"id":"a","type":"paragraph"}]},{"id":"b","type":"divider"},{"id":"b","type":"badge"}]}}`))
	if err != nil {
		t.Fatal(err)
	}
	els := got.Canvas.Elements
	if len(els) != 3 || els[0].ID != "a" || els[1].ID != "b" {
		t.Fatalf("first occurrences should keep their ids: %+v", els)
	}
	if d := tree.DuplicateIDs(els); len(d) != 0 {
		t.Fatalf("duplicate ids survived decode: %v", d)
	}
	if els[0].Children[0].Type != "paragraph" || els[2].Type != "badge" {
		t.Fatalf("re-minted nodes lost their content: %+v", els)
	}
}
