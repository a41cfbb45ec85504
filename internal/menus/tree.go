/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package menus

import (
	"fmt"
	"strings"

	"pagecraft/internal/render"
)

// Selectors used by extraction.
const (
	ItemSelector    = "li, a, [role=menuitem], [class*=item]"
	SubmenuSelector = "ul, ol, [class*=submenu]"
	IconSelector    = "[class*=icon]"
)

// DefaultLabel replaces an empty label.
const DefaultLabel = "Menu Item"

// Item is one node of a menu tree. Level is always parent level + 1 with
// top level items at 0, and Order equals the item's index among its siblings.
type Item struct {
	ID       string        `json:"id"`
	Label    string        `json:"label"`
	Icon     string        `json:"icon,omitempty"`
	URL      string        `json:"url,omitempty"`
	Parent   string        `json:"parent,omitempty"`
	Children []*Item       `json:"children,omitempty"`
	Order    int           `json:"order"`
	Visible  bool          `json:"visible"`
	Disabled bool          `json:"disabled"`
	Level    int           `json:"level"`
	Source   render.Handle `json:"-"`
}

// Clone deep-copies the item and its subtree.
func (it *Item) Clone() *Item {
	c := *it
	c.Children = cloneAll(it.Children)
	return &c
}

func cloneAll(items []*Item) []*Item {
	if items == nil {
		return nil
	}
	out := make([]*Item, len(items))
	for i, it := range items {
		out[i] = it.Clone()
	}
	return out
}

// Extract reads the item tree of a menu container. A container holding a
// single wrapping list is descended into.
func Extract(t render.Tree, container render.Handle) []*Item {
	return extractList(t, listOf(t, container), 0, "", "mi-")
}

// listOf finds the element whose children are the top level items.
func listOf(t render.Tree, container render.Handle) render.Handle {
	item := render.Compile(ItemSelector)
	h := container
	for {
		kids := t.Children(h)
		for _, k := range kids {
			if item.Match(t, k) {
				return h
			}
		}
		wrap := wrapperOf(t, kids)
		if wrap == render.None {
			return h
		}
		h = wrap
	}
}

// wrapperOf picks the child to descend into: the first list that holds
// items, else the first div that does. Children without items (a logo, a
// search box) are skipped.
func wrapperOf(t render.Tree, kids []render.Handle) render.Handle {
	var div render.Handle
	for _, k := range kids {
		if render.Query(t, k, ItemSelector) == render.None {
			continue
		}
		switch t.Tag(k) {
		case "ul", "ol", "menu":
			return k
		case "div":
			if div == render.None {
				div = k
			}
		}
	}
	return div
}

func extractList(t render.Tree, list render.Handle, level int, parentID, prefix string) []*Item {
	item := render.Compile(ItemSelector)
	var out []*Item
	for _, h := range t.Children(list) {
		if !item.Match(t, h) {
			continue
		}
		idx := len(out)
		id := fmt.Sprintf("%s%d", prefix, idx)
		it := &Item{
			ID:       id,
			Label:    labelOf(t, h),
			Icon:     iconOf(t, h),
			URL:      urlOf(t, h),
			Parent:   parentID,
			Order:    idx,
			Visible:  visibleOf(t, h),
			Disabled: disabledOf(t, h),
			Level:    level,
			Source:   h,
		}
		if sub := submenuOf(t, h); sub != render.None {
			it.Children = extractList(t, listOf(t, sub), level+1, id, id+".")
		}
		out = append(out, it)
	}
	return out
}

func submenuOf(t render.Tree, h render.Handle) render.Handle {
	sub := render.Compile(SubmenuSelector)
	for _, c := range t.Children(h) {
		if sub.Match(t, c) {
			return c
		}
	}
	return render.None
}

// labelOf joins the item's own text, leaving out nested submenus and icons.
func labelOf(t render.Tree, h render.Handle) string {
	sub := render.Compile(SubmenuSelector)
	icon := render.Compile(IconSelector)
	var parts []string
	render.Walk(t, h, func(n render.Handle) bool {
		if n != h && (sub.Match(t, n) || icon.Match(t, n)) {
			return false
		}
		parts = append(parts, t.OwnText(n))
		return true
	})
	label := strings.Join(strings.Fields(strings.Join(parts, " ")), " ")
	if label == "" {
		return DefaultLabel
	}
	return label
}

func iconOf(t render.Tree, h render.Handle) string {
	sub := render.Compile(SubmenuSelector)
	icon := render.Compile(IconSelector)
	found := ""
	render.Walk(t, h, func(n render.Handle) bool {
		if found != "" || (n != h && sub.Match(t, n)) {
			return false
		}
		if n != h && icon.Match(t, n) {
			found = strings.TrimSpace(t.Text(n))
			if found == "" {
				found = render.Classes(t, n)[0]
			}
			return false
		}
		return true
	})
	return found
}

func urlOf(t render.Tree, h render.Handle) string {
	for _, a := range []string{"href", "data-url"} {
		if v, ok := t.Attr(h, a); ok && strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	sub := render.Compile(SubmenuSelector)
	found := ""
	render.Walk(t, h, func(n render.Handle) bool {
		if found != "" || (n != h && sub.Match(t, n)) {
			return false
		}
		if n != h && t.Tag(n) == "a" {
			found = strings.TrimSpace(render.AttrOr(t, n, "href", ""))
			return false
		}
		return true
	})
	return found
}

func visibleOf(t render.Tree, h render.Handle) bool {
	if render.HasAttr(t, h, "hidden") || render.AttrOr(t, h, "aria-hidden", "") == "true" {
		return false
	}
	return !strings.EqualFold(t.Style(h, "display"), "none")
}

func disabledOf(t render.Tree, h render.Handle) bool {
	return render.HasAttr(t, h, "disabled") ||
		render.AttrOr(t, h, "aria-disabled", "") == "true" ||
		render.HasClass(t, h, "disabled")
}

// Flatten lists items depth first in order.
func Flatten(items []*Item) []*Item {
	var out []*Item
	var walk func([]*Item)
	walk = func(list []*Item) {
		for _, it := range list {
			out = append(out, it)
			walk(it.Children)
		}
	}
	walk(items)
	return out
}

// Find returns the item with id and the sibling list that holds it.
func Find(items []*Item, id string) (*Item, []*Item) {
	for _, it := range items {
		if it.ID == id {
			return it, items
		}
		if f, list := Find(it.Children, id); f != nil {
			return f, list
		}
	}
	return nil, nil
}

// inSubtree reports whether id is root or one of its descendants.
func inSubtree(root *Item, id string) bool {
	if root.ID == id {
		return true
	}
	for _, c := range root.Children {
		if inSubtree(c, id) {
			return true
		}
	}
	return false
}

func renumber(list []*Item) {
	for i, it := range list {
		it.Order = i
	}
}

func setLevel(it *Item, level int) {
	it.Level = level
	for _, c := range it.Children {
		setLevel(c, level+1)
	}
}

func remove(list []*Item, it *Item) []*Item {
	for i, x := range list {
		if x == it {
			return append(list[:i:i], list[i+1:]...)
		}
	}
	return list
}

func insertAt(list []*Item, i int, it *Item) []*Item {
	if i < 0 {
		i = 0
	}
	if i > len(list) {
		i = len(list)
	}
	out := make([]*Item, 0, len(list)+1)
	out = append(out, list[:i]...)
	out = append(out, it)
	return append(out, list[i:]...)
}

func indexIn(list []*Item, it *Item) int {
	for i, x := range list {
		if x == it {
			return i
		}
	}
	return -1
}
