/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package cli holds the terminal formatting shared by pagecraft commands.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/tree"
	"gopkg.in/yaml.v3"

	"pagecraft/internal/domain"
	"pagecraft/internal/registry"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
	FormatYAML OutputFormat = "yaml"
)

var (
	typeStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12"))
	idStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))
	textStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	emptyStyle = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("8"))
	enumStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).MarginRight(1)
)

// summaryKeys are the props shown next to a node, first present wins.
var summaryKeys = []string{"text", "children", "title", "placeholder", "src"}

const summaryLimit = 40

// RenderTree draws the forest with one line per element.
func RenderTree(elements []domain.Element) string {
	if len(elements) == 0 {
		return emptyStyle.Render("(empty canvas)")
	}
	root := tree.New().
		Enumerator(tree.RoundedEnumerator).
		EnumeratorStyle(enumStyle)
	for _, e := range elements {
		root.Child(node(e))
	}
	return root.String()
}

func node(e domain.Element) any {
	l := Label(e)
	if len(e.Children) == 0 {
		return l
	}
	t := tree.Root(l).Enumerator(tree.RoundedEnumerator).EnumeratorStyle(enumStyle)
	for _, c := range e.Children {
		t.Child(node(c))
	}
	return t
}

// Label renders "type #id "summary"" for one element.
func Label(e domain.Element) string {
	var b strings.Builder
	b.WriteString(typeStyle.Render(e.Type))
	b.WriteByte(' ')
	b.WriteString(idStyle.Render("#" + e.ID))
	if s := Summary(e); s != "" {
		b.WriteByte(' ')
		b.WriteString(textStyle.Render(strconv.Quote(s)))
	}
	return b.String()
}

// Summary returns the first human-readable prop of e, truncated.
func Summary(e domain.Element) string {
	for _, k := range summaryKeys {
		if s, ok := e.Props[k].(string); ok && strings.TrimSpace(s) != "" {
			return TruncateString(s, summaryLimit)
		}
	}
	return ""
}

// KindsTable lists registered kinds as an aligned table.
func KindsTable(w io.Writer, kinds []registry.Kind) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "TYPE\tCATEGORY\tLABEL\tDEFAULT PROPS")
	for _, k := range kinds {
		keys := make([]string, 0, len(k.DefaultProps))
		for key := range k.DefaultProps {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", k.Type, k.Category, k.Label, strings.Join(keys, ","))
	}
	return tw.Flush()
}

// OutputResults formats and outputs results based on the specified format
func OutputResults(w io.Writer, format string, data any) error {
	switch OutputFormat(format) {
	case FormatJSON:
		encoder := json.NewEncoder(w)
		encoder.SetIndent("", "  ")
		return encoder.Encode(data)
	case FormatYAML:
		out, err := yaml.Marshal(data)
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	case FormatText:
		_, err := fmt.Fprintf(w, "%v\n", data)
		return err
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// ParseAssignments turns key=value pairs into a map. Values that parse as
// JSON (numbers, booleans, arrays, objects, quoted strings) keep their type;
// anything else is taken as a plain string.
func ParseAssignments(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(pairs))
	for _, p := range pairs {
		k, v, ok := strings.Cut(p, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid assignment %q, want key=value", p)
		}
		var parsed any
		if err := json.Unmarshal([]byte(v), &parsed); err == nil {
			out[k] = parsed
		} else {
			out[k] = v
		}
	}
	return out, nil
}

// TruncateString truncates a string to the specified rune length
func TruncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}
