/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render defines the host render tree the editor engine works on.
//
// The engine never holds DOM nodes directly. Every element is addressed by an
// opaque Handle issued by a Tree implementation, which keeps classification,
// table and menu models testable against a parsed document and usable against
// a live browser page alike.
package render

import (
	"strings"

	"pagecraft/internal/geom"
)

// Handle addresses one element of a Tree. The zero value is None.
type Handle int

// None is the absent element.
const None Handle = 0

// Tree is the host-provided view of a rendered page.
type Tree interface {
	// Root returns the document element.
	Root() Handle
	// Parent returns the parent element or None at the root.
	Parent(h Handle) Handle
	// Children returns element children in document order.
	Children(h Handle) []Handle

	Tag(h Handle) string
	Attr(h Handle, name string) (string, bool)
	SetAttr(h Handle, name, val string)
	RemoveAttr(h Handle, name string)

	// Text returns the full text content of h.
	Text(h Handle) string
	// OwnText returns only the text nodes that are direct children of h.
	OwnText(h Handle) string
	// SetText replaces all content of h with a single text node.
	SetText(h Handle, s string)

	// Bounds is the element rectangle in viewport coordinates.
	Bounds(h Handle) geom.Rect
	// Rendered reports whether h takes part in the visible tree.
	Rendered(h Handle) bool
	// Style returns the computed value of a CSS property ("" when unknown).
	Style(h Handle, prop string) string
	// SetStyle writes an inline style property; an empty value removes it.
	SetStyle(h Handle, prop, val string)
	// ElementAt returns the topmost element under a viewport point.
	ElementAt(p geom.Pt) Handle
	// Scroll returns the current document scroll offset.
	Scroll() geom.Pt

	// CreateElement returns a new detached element.
	CreateElement(tag string) Handle
	// Clone returns a detached deep copy of h.
	Clone(h Handle) Handle
	// AppendChild moves child to the end of parent's children.
	AppendChild(parent, child Handle)
	// ReplaceChildren removes all content of h and appends children.
	ReplaceChildren(h Handle, children ...Handle)
	// ReplaceWith puts repl where old is; old becomes detached.
	ReplaceWith(old, repl Handle)
}

// Walk visits h and its descendants depth first in document order.
// Returning false from fn skips the subtree below that element.
func Walk(t Tree, h Handle, fn func(Handle) bool) {
	if h == None {
		return
	}
	if !fn(h) {
		return
	}
	for _, c := range t.Children(h) {
		Walk(t, c, fn)
	}
}

// AttrOr returns the attribute value or def when absent.
func AttrOr(t Tree, h Handle, name, def string) string {
	if v, ok := t.Attr(h, name); ok {
		return v
	}
	return def
}

// HasAttr reports attribute presence.
func HasAttr(t Tree, h Handle, name string) bool {
	_, ok := t.Attr(h, name)
	return ok
}

// Classes returns the class list of h.
func Classes(t Tree, h Handle) []string {
	v, _ := t.Attr(h, "class")
	return strings.Fields(v)
}

// HasClass reports whether h carries the given class.
func HasClass(t Tree, h Handle, class string) bool {
	for _, c := range Classes(t, h) {
		if c == class {
			return true
		}
	}
	return false
}

// Contains reports whether h equals ancestor or lies below it.
func Contains(t Tree, ancestor, h Handle) bool {
	for n := h; n != None; n = t.Parent(n) {
		if n == ancestor {
			return true
		}
	}
	return false
}

// Depth counts the parents between h and the root.
func Depth(t Tree, h Handle) int {
	d := 0
	for n := t.Parent(h); n != None; n = t.Parent(n) {
		d++
	}
	return d
}

// IndexInParent returns the element index of h among its siblings, or -1.
func IndexInParent(t Tree, h Handle) int {
	p := t.Parent(h)
	if p == None {
		return -1
	}
	for i, c := range t.Children(p) {
		if c == h {
			return i
		}
	}
	return -1
}
