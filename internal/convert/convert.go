/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package convert turns an HTML fragment into an element subtree that can be
// dropped onto the canvas. Conversion is bounded in input size, depth and node
// count and never fails: the worst case is an empty scaffold.
package convert

import (
	"log/slog"
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagecraft/internal/domain"
	"pagecraft/internal/idgen"
	applog "pagecraft/internal/log"
)

const (
	DefaultMaxChars = 200000
	DefaultMaxDepth = 6
	DefaultMaxNodes = 40

	textLimit      = 240
	paragraphLimit = 360
	labelLimit     = 120

	// EmptyPlaceholder is the paragraph text used when nothing converts.
	EmptyPlaceholder = "(Empty selection)"
)

// Options bounds a Converter. Zero values select the defaults.
type Options struct {
	MaxChars int
	MaxDepth int
	MaxNodes int
	IDs      idgen.Generator
	Logger   *slog.Logger
}

// Converter is safe for concurrent use; every call keeps its own counters.
type Converter struct {
	opts Options
}

func New(opts Options) *Converter {
	if opts.MaxChars <= 0 {
		opts.MaxChars = DefaultMaxChars
	}
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.MaxNodes <= 0 {
		opts.MaxNodes = DefaultMaxNodes
	}
	if opts.IDs == nil {
		opts.IDs = idgen.Default()
	}
	if opts.Logger == nil {
		opts.Logger = applog.WithComponent("convert")
	}
	return &Converter{opts: opts}
}

// Result carries the converted scaffold plus what the limits cut off.
type Result struct {
	Root      domain.Element
	Nodes     int
	Truncated bool
	Clipped   bool
}

// run is the per-call state.
type run struct {
	opts    *Options
	count   int
	clipped bool
}

// Convert returns a section-container > card-root > card-content scaffold
// holding the converted fragment.
func (c *Converter) Convert(src string) domain.Element {
	return c.ConvertResult(src).Root
}

func (c *Converter) ConvertResult(src string) Result {
	l := applog.WithOperation(c.opts.Logger, "convert")
	src, truncated := truncateRunes(src, c.opts.MaxChars)
	r := &run{opts: &c.opts}

	var body []domain.Element
	doc, err := html.Parse(strings.NewReader(src))
	if err != nil {
		l.Warn("html parse failed", slog.Any("err", err))
	} else if start := startNode(doc); start != nil {
		body = r.node(start, 0)
	}

	res := Result{Root: r.wrap(body), Nodes: r.count, Truncated: truncated, Clipped: r.clipped}
	l.Debug("converted",
		slog.Int("input", len(src)),
		slog.Int("nodes", r.count),
		slog.Bool("truncated", truncated),
		slog.Bool("clipped", r.clipped))
	return res
}

// startNode picks the single top-level element of the fragment, or the body
// when the fragment has several top-level nodes.
func startNode(doc *html.Node) *html.Node {
	body := findBody(doc)
	if body == nil {
		return nil
	}
	var only *html.Node
	for ch := body.FirstChild; ch != nil; ch = ch.NextSibling {
		switch ch.Type {
		case html.ElementNode:
			if only != nil {
				return body
			}
			only = ch
		case html.TextNode:
			if strings.TrimSpace(ch.Data) != "" {
				return body
			}
		}
	}
	if only != nil {
		return only
	}
	return body
}

func findBody(n *html.Node) *html.Node {
	if n.Type == html.ElementNode && n.DataAtom == atom.Body {
		return n
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if b := findBody(ch); b != nil {
			return b
		}
	}
	return nil
}

func (r *run) wrap(body []domain.Element) domain.Element {
	if len(body) == 0 {
		body = []domain.Element{r.mint("paragraph", map[string]any{"text": EmptyPlaceholder}, nil)}
	}
	content := r.mint("card-content", map[string]any{}, body)
	card := r.mint("card-root", map[string]any{}, []domain.Element{content})
	return r.mint("section-container", map[string]any{"padding": "md"}, []domain.Element{card})
}

func (r *run) mint(typ string, props map[string]any, children []domain.Element) domain.Element {
	if children == nil {
		children = []domain.Element{}
	}
	return domain.Element{
		ID:       r.opts.IDs(),
		Type:     typ,
		Props:    props,
		Style:    map[string]any{},
		Children: children,
	}
}

// emit mints a counted node, or reports false once the node budget is spent.
func (r *run) emit(typ string, props map[string]any) ([]domain.Element, bool) {
	if r.count >= r.opts.MaxNodes {
		r.clipped = true
		return nil, false
	}
	r.count++
	return []domain.Element{r.mint(typ, props, nil)}, true
}

func (r *run) node(n *html.Node, depth int) []domain.Element {
	if depth > r.opts.MaxDepth {
		r.clipped = true
		return nil
	}
	if r.count >= r.opts.MaxNodes {
		r.clipped = true
		return nil
	}
	switch n.Type {
	case html.TextNode:
		text := collapse(n.Data)
		if text == "" {
			return nil
		}
		out, _ := r.emit("paragraph", map[string]any{"text": clip(text, textLimit)})
		return out
	case html.ElementNode:
	default:
		return nil
	}

	switch n.DataAtom {
	case atom.Script, atom.Style, atom.Noscript, atom.Template, atom.Head:
		return nil
	case atom.H1, atom.H2, atom.H3, atom.H4, atom.H5, atom.H6:
		level := int(n.Data[1] - '0')
		if level > 4 {
			level = 4
		}
		out, _ := r.emit("heading", map[string]any{
			"level": float64(level),
			"text":  clip(textOf(n), textLimit),
		})
		return out
	case atom.P, atom.Span, atom.Small, atom.Label:
		if hasDirectText(n) {
			out, _ := r.emit("paragraph", map[string]any{"text": clip(textOf(n), paragraphLimit)})
			return out
		}
		return r.children(n, depth)
	case atom.Button, atom.A:
		label := clip(textOf(n), labelLimit)
		if label == "" {
			label = "Button"
			if n.DataAtom == atom.A {
				label = "Link"
			}
		}
		out, _ := r.emit("button", map[string]any{
			"children": label,
			"variant":  variantOf(n),
		})
		return out
	case atom.Input:
		typ := attr(n, "type")
		if typ == "" {
			typ = "text"
		}
		out, _ := r.emit("input", map[string]any{"type": typ, "placeholder": attr(n, "placeholder")})
		return out
	case atom.Textarea:
		out, _ := r.emit("textarea", map[string]any{"placeholder": attr(n, "placeholder")})
		return out
	case atom.Hr:
		out, _ := r.emit("divider", map[string]any{"spacing": "sm"})
		return out
	}

	out := r.children(n, depth)
	if len(out) == 0 && depth > 0 {
		if text := textOf(n); text != "" {
			p, _ := r.emit("paragraph", map[string]any{"text": clip(text, textLimit)})
			return p
		}
	}
	return out
}

func (r *run) children(n *html.Node, depth int) []domain.Element {
	var out []domain.Element
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		out = append(out, r.node(ch, depth+1)...)
	}
	return out
}

func variantOf(n *html.Node) string {
	class := strings.ToLower(attr(n, "class"))
	switch {
	case strings.Contains(class, "outline"):
		return "outline"
	case strings.Contains(class, "ghost"):
		return "ghost"
	case strings.Contains(class, "secondary"):
		return "secondary"
	case strings.Contains(class, "destructive"), strings.Contains(class, "danger"):
		return "destructive"
	case n.DataAtom == atom.A:
		return "link"
	}
	return "default"
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasDirectText(n *html.Node) bool {
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		if ch.Type == html.TextNode && strings.TrimSpace(ch.Data) != "" {
			return true
		}
	}
	return false
}

// textOf returns the collapsed visible text of a subtree.
func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			sb.WriteString(n.Data)
			sb.WriteByte(' ')
			return
		case html.ElementNode:
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			}
		}
		for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
			walk(ch)
		}
	}
	walk(n)
	return collapse(sb.String())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func clip(s string, limit int) string {
	out, _ := truncateRunes(s, limit)
	return out
}

func truncateRunes(s string, limit int) (string, bool) {
	if utf8.RuneCountInString(s) <= limit {
		return s, false
	}
	i := 0
	for pos := range s {
		if i == limit {
			return s[:pos], true
		}
		i++
	}
	return s, false
}
