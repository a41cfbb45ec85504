/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package htmltree implements render.Tree over a parsed HTML document.
//
// A parsed document has no layout engine behind it, so geometry comes from
// hints on the elements: a data-rect="x,y,w,h" attribute (written by the live
// host on capture) or inline left/top/width/height in px.
package htmltree

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"pagecraft/internal/geom"
	"pagecraft/internal/render"
)

// Annotation attributes written by the live host.
const (
	AttrRect     = "data-rect"
	AttrHidden   = "data-pc-hidden"
	AttrComputed = "data-pc-computed"
	AttrScroll   = "data-pc-scroll"
)

// Annotations lists every attribute that Strip removes.
var Annotations = []string{AttrRect, AttrHidden, AttrComputed, AttrScroll}

var nonVisual = map[atom.Atom]bool{
	atom.Head: true, atom.Script: true, atom.Style: true, atom.Template: true,
	atom.Meta: true, atom.Link: true, atom.Title: true, atom.Noscript: true,
}

// Tree is a render.Tree over golang.org/x/net/html nodes.
type Tree struct {
	doc   *html.Node
	nodes []*html.Node // index = handle; slot 0 unused
	index map[*html.Node]render.Handle
}

var _ render.Tree = (*Tree)(nil)

// Parse reads a full HTML document.
func Parse(r io.Reader) (*Tree, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}
	return New(doc), nil
}

// ParseString is Parse over a string.
func ParseString(s string) (*Tree, error) { return Parse(strings.NewReader(s)) }

// New wraps an already parsed document node.
func New(doc *html.Node) *Tree {
	return &Tree{doc: doc, nodes: []*html.Node{nil}, index: map[*html.Node]render.Handle{}}
}

// Node exposes the underlying node of h (nil for None or unknown handles).
func (t *Tree) Node(h render.Handle) *html.Node {
	if h <= 0 || int(h) >= len(t.nodes) {
		return nil
	}
	return t.nodes[h]
}

func (t *Tree) handle(n *html.Node) render.Handle {
	if n == nil || n.Type != html.ElementNode {
		return render.None
	}
	if h, ok := t.index[n]; ok {
		return h
	}
	h := render.Handle(len(t.nodes))
	t.nodes = append(t.nodes, n)
	t.index[n] = h
	return h
}

// Root returns the html element.
func (t *Tree) Root() render.Handle {
	for c := t.doc.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			return t.handle(c)
		}
	}
	return render.None
}

// Body returns the body element, or None.
func (t *Tree) Body() render.Handle {
	root := t.Root()
	for _, c := range t.Children(root) {
		if t.Tag(c) == "body" {
			return c
		}
	}
	return render.None
}

func (t *Tree) Parent(h render.Handle) render.Handle {
	n := t.Node(h)
	if n == nil {
		return render.None
	}
	return t.handle(n.Parent)
}

func (t *Tree) Children(h render.Handle) []render.Handle {
	n := t.Node(h)
	if n == nil {
		return nil
	}
	var out []render.Handle
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.ElementNode {
			out = append(out, t.handle(c))
		}
	}
	return out
}

func (t *Tree) Tag(h render.Handle) string {
	if n := t.Node(h); n != nil {
		return n.Data
	}
	return ""
}

func (t *Tree) Attr(h render.Handle, name string) (string, bool) {
	n := t.Node(h)
	if n == nil {
		return "", false
	}
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			return a.Val, true
		}
	}
	return "", false
}

func (t *Tree) SetAttr(h render.Handle, name, val string) {
	n := t.Node(h)
	if n == nil {
		return
	}
	for i, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			n.Attr[i].Val = val
			return
		}
	}
	n.Attr = append(n.Attr, html.Attribute{Key: name, Val: val})
}

func (t *Tree) RemoveAttr(h render.Handle, name string) {
	n := t.Node(h)
	if n == nil {
		return
	}
	out := n.Attr[:0]
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == name {
			continue
		}
		out = append(out, a)
	}
	n.Attr = out
}

func (t *Tree) Text(h render.Handle) string {
	n := t.Node(h)
	if n == nil {
		return ""
	}
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			b.WriteString(n.Data)
		case html.ElementNode:
			if n.DataAtom == atom.Script || n.DataAtom == atom.Style {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

func (t *Tree) OwnText(h render.Handle) string {
	n := t.Node(h)
	if n == nil {
		return ""
	}
	var b strings.Builder
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if c.Type == html.TextNode {
			b.WriteString(c.Data)
		}
	}
	return b.String()
}

func (t *Tree) SetText(h render.Handle, s string) {
	n := t.Node(h)
	if n == nil {
		return
	}
	removeAll(n)
	n.AppendChild(&html.Node{Type: html.TextNode, Data: s})
}

func (t *Tree) Bounds(h render.Handle) geom.Rect {
	n := t.Node(h)
	if n == nil {
		return geom.Rect{}
	}
	if v, ok := t.Attr(h, AttrRect); ok {
		if r, ok := parseRect(v); ok {
			return r
		}
	}
	st := parseStyle(attr(n, "style"))
	return geom.R(px(st.get("left")), px(st.get("top")), px(st.get("width")), px(st.get("height")))
}

func (t *Tree) Rendered(h render.Handle) bool {
	n := t.Node(h)
	if n == nil {
		return false
	}
	for ; n != nil && n.Type == html.ElementNode; n = n.Parent {
		if nonVisual[n.DataAtom] {
			return false
		}
		if hasAttr(n, "hidden") || attr(n, AttrHidden) == "true" {
			return false
		}
		if strings.EqualFold(parseStyle(attr(n, "style")).get("display"), "none") {
			return false
		}
	}
	return true
}

func (t *Tree) Style(h render.Handle, prop string) string {
	n := t.Node(h)
	if n == nil {
		return ""
	}
	prop = strings.ToLower(strings.TrimSpace(prop))
	if v := parseStyle(attr(n, "style")).get(prop); v != "" {
		return v
	}
	if raw := attr(n, AttrComputed); raw != "" {
		var m map[string]string
		if err := json.Unmarshal([]byte(raw), &m); err == nil {
			return m[prop]
		}
	}
	return ""
}

func (t *Tree) SetStyle(h render.Handle, prop, val string) {
	n := t.Node(h)
	if n == nil {
		return
	}
	st := parseStyle(attr(n, "style"))
	st.set(strings.ToLower(strings.TrimSpace(prop)), strings.TrimSpace(val))
	if s := st.String(); s != "" {
		t.SetAttr(h, "style", s)
	} else {
		t.RemoveAttr(h, "style")
	}
}

// ElementAt picks the deepest rendered element whose bounds contain p; among
// equally deep candidates the later one in document order wins.
func (t *Tree) ElementAt(p geom.Pt) render.Handle {
	best, bestDepth := render.None, -1
	render.Walk(t, t.Root(), func(h render.Handle) bool {
		if !t.Rendered(h) {
			return false
		}
		b := t.Bounds(h)
		if !b.Empty() && b.Contains(p) {
			if d := render.Depth(t, h); d >= bestDepth {
				best, bestDepth = h, d
			}
		}
		return true
	})
	return best
}

// Scroll reads the scroll offset recorded on the root element.
func (t *Tree) Scroll() geom.Pt {
	v, ok := t.Attr(t.Root(), AttrScroll)
	if !ok {
		return geom.Pt{}
	}
	parts := strings.Split(v, ",")
	if len(parts) != 2 {
		return geom.Pt{}
	}
	x, _ := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	y, _ := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	return geom.Pt{X: x, Y: y}
}

// SetScroll records a scroll offset on the root element.
func (t *Tree) SetScroll(p geom.Pt) {
	t.SetAttr(t.Root(), AttrScroll, ftoa(p.X)+","+ftoa(p.Y))
}

// SetBounds writes a data-rect hint.
func (t *Tree) SetBounds(h render.Handle, r geom.Rect) {
	t.SetAttr(h, AttrRect, strings.Join([]string{ftoa(r.X), ftoa(r.Y), ftoa(r.W), ftoa(r.H)}, ","))
}

func (t *Tree) CreateElement(tag string) render.Handle {
	tag = strings.ToLower(tag)
	return t.handle(&html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))})
}

func (t *Tree) Clone(h render.Handle) render.Handle {
	n := t.Node(h)
	if n == nil {
		return render.None
	}
	return t.handle(deepCopy(n))
}

func (t *Tree) AppendChild(parent, child render.Handle) {
	p, c := t.Node(parent), t.Node(child)
	if p == nil || c == nil {
		return
	}
	detach(c)
	p.AppendChild(c)
}

func (t *Tree) ReplaceChildren(h render.Handle, children ...render.Handle) {
	n := t.Node(h)
	if n == nil {
		return
	}
	removeAll(n)
	for _, c := range children {
		t.AppendChild(h, c)
	}
}

func (t *Tree) ReplaceWith(old, repl render.Handle) {
	o, r := t.Node(old), t.Node(repl)
	if o == nil || r == nil || o.Parent == nil || o == r {
		return
	}
	detach(r)
	o.Parent.InsertBefore(r, o)
	o.Parent.RemoveChild(o)
}

// Render writes the whole document.
func (t *Tree) Render(w io.Writer) error { return html.Render(w, t.doc) }

// String renders the whole document to a string.
func (t *Tree) String() string {
	var buf bytes.Buffer
	_ = t.Render(&buf)
	return buf.String()
}

// OuterHTML renders h and its subtree.
func (t *Tree) OuterHTML(h render.Handle) string {
	n := t.Node(h)
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	_ = html.Render(&buf, n)
	return buf.String()
}

// InnerHTML renders the children of h.
func (t *Tree) InnerHTML(h render.Handle) string {
	n := t.Node(h)
	if n == nil {
		return ""
	}
	var buf bytes.Buffer
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		_ = html.Render(&buf, c)
	}
	return buf.String()
}

// RenderBody returns the inner HTML of body.
func (t *Tree) RenderBody() string { return t.InnerHTML(t.Body()) }

// Strip removes the capture annotations from every element.
func (t *Tree) Strip() {
	render.Walk(t, t.Root(), func(h render.Handle) bool {
		for _, a := range Annotations {
			t.RemoveAttr(h, a)
		}
		return true
	})
}

func deepCopy(n *html.Node) *html.Node {
	c := &html.Node{
		Type:      n.Type,
		DataAtom:  n.DataAtom,
		Data:      n.Data,
		Namespace: n.Namespace,
		Attr:      append([]html.Attribute(nil), n.Attr...),
	}
	for ch := n.FirstChild; ch != nil; ch = ch.NextSibling {
		c.AppendChild(deepCopy(ch))
	}
	return c
}

func detach(n *html.Node) {
	if n.Parent != nil {
		n.Parent.RemoveChild(n)
	}
}

func removeAll(n *html.Node) {
	for c := n.FirstChild; c != nil; {
		next := c.NextSibling
		n.RemoveChild(c)
		c = next
	}
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func hasAttr(n *html.Node, key string) bool {
	for _, a := range n.Attr {
		if a.Namespace == "" && a.Key == key {
			return true
		}
	}
	return false
}

func parseRect(v string) (geom.Rect, bool) {
	parts := strings.Split(v, ",")
	if len(parts) != 4 {
		return geom.Rect{}, false
	}
	var f [4]float64
	for i, p := range parts {
		x, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return geom.Rect{}, false
		}
		f[i] = x
	}
	return geom.R(f[0], f[1], f[2], f[3]), true
}

func px(v string) float64 {
	v = strings.TrimSuffix(strings.TrimSpace(v), "px")
	f, _ := strconv.ParseFloat(v, 64)
	return f
}

func ftoa(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }
