/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package classify scans a render tree for editable structures (tables,
// menus, panels, buttons, forms) and returns them as a flat registry.
//
// The selectors are deliberately broad class-substring heuristics. A false
// positive costs nothing more than an extra highlight the operator ignores.
package classify

import (
	"fmt"
	"log/slog"
	"strings"

	"pagecraft/internal/geom"
	applog "pagecraft/internal/log"
	"pagecraft/internal/render"
)

// Category is the structural kind of a classified element.
type Category string

const (
	Table  Category = "table"
	Menu   Category = "menu"
	Panel  Category = "panel"
	Button Category = "button"
	Form   Category = "form"
	Other  Category = "other"
)

// DefaultMinSize is the side length an element must exceed to be eligible.
const DefaultMinSize = 20

// Rule binds a category to its discovery selector.
type Rule struct {
	Type     Category
	Selector string
}

// Rules lists the categories in precedence order. An element matched by more
// than one rule is registered under the first.
var Rules = []Rule{
	{Table, "table, [role=table], [class*=table]"},
	{Menu, "nav, [role=menu], [role=navigation], [class*=menu], [class*=nav], [class*=sidebar]"},
	{Panel, "aside, section, [class*=panel], [class*=card]"},
	{Button, "button, [role=button], input[type=button], input[type=submit], [class*=btn]"},
	{Form, "form, [class*=form]"},
}

// Element is one classified element.
type Element struct {
	ID       string
	Type     Category
	Handle   render.Handle
	Bounds   geom.Rect
	Selector string
	Name     string
}

// Options tunes classification.
type Options struct {
	// MinSize is the exclusive minimum width and height; 0 means DefaultMinSize.
	MinSize float64
}

// Registry is the result of one classification pass. It is rebuilt wholesale,
// never patched.
type Registry struct {
	elems    []Element
	byHandle map[render.Handle]int
}

// Classify scans t and returns the registry. It only reads the tree.
func Classify(t render.Tree, opts Options) *Registry {
	min := opts.MinSize
	if min <= 0 {
		min = DefaultMinSize
	}
	reg := &Registry{byHandle: map[render.Handle]int{}}
	root := t.Root()
	if root == render.None {
		return reg
	}
	for _, rule := range Rules {
		for i, h := range render.QueryAll(t, root, rule.Selector) {
			if _, dup := reg.byHandle[h]; dup {
				continue
			}
			if !t.Rendered(h) {
				continue
			}
			b := t.Bounds(h)
			if !b.Exceeds(min) {
				continue
			}
			id, ok := t.Attr(h, "id")
			if !ok || strings.TrimSpace(id) == "" {
				id = fmt.Sprintf("%s-%d", rule.Type, i)
			}
			reg.byHandle[h] = len(reg.elems)
			reg.elems = append(reg.elems, Element{
				ID:       id,
				Type:     rule.Type,
				Handle:   h,
				Bounds:   b,
				Selector: rule.Selector,
				Name:     DisplayName(t, h),
			})
		}
	}
	applog.WithOperation(applog.WithComponent("classify"), "scan").Debug("classified",
		slog.Int("elements", len(reg.elems)), slog.Float64("min_size", min))
	return reg
}

// DisplayName derives a human name: data-name, aria-label, first class, tag.
func DisplayName(t render.Tree, h render.Handle) string {
	for _, a := range []string{"data-name", "aria-label"} {
		if v, ok := t.Attr(h, a); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	if cls := render.Classes(t, h); len(cls) > 0 {
		return cls[0]
	}
	return t.Tag(h)
}

// Len returns the number of registered elements.
func (r *Registry) Len() int { return len(r.elems) }

// All returns a copy of the registered elements in registration order.
func (r *Registry) All() []Element { return append([]Element(nil), r.elems...) }

// Lookup returns the element registered for h.
func (r *Registry) Lookup(h render.Handle) (Element, bool) {
	if r == nil {
		return Element{}, false
	}
	i, ok := r.byHandle[h]
	if !ok {
		return Element{}, false
	}
	return r.elems[i], true
}

// ByID returns the first element with the given id.
func (r *Registry) ByID(id string) (Element, bool) {
	for _, e := range r.elems {
		if e.ID == id {
			return e, true
		}
	}
	return Element{}, false
}

// OfType filters the registry by category.
func (r *Registry) OfType(c Category) []Element {
	var out []Element
	for _, e := range r.elems {
		if e.Type == c {
			out = append(out, e)
		}
	}
	return out
}
