/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package menus edits navigation menus as item trees: drag reorder and
// reparenting, per-item edits, rebuilding the menu markup from the tree and
// restoring the original markup on reset.
package menus

import (
	"encoding/json"
	"errors"
	"html"
	"log/slog"
	"net/url"
	"strconv"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	applog "pagecraft/internal/log"
	"pagecraft/internal/render"
	"pagecraft/internal/undo"
)

// ErrNoMenu is returned when the editor has no menu container.
var ErrNoMenu = errors.New("menus: no active menu")

var allowedSchemes = map[string]bool{"http": true, "https": true, "mailto": true, "tel": true}

// Options configures an Editor.
type Options struct {
	// Undo receives a tree snapshot before every edit; nil disables history.
	Undo *undo.Manager
}

// Patch carries the inline edits of one item. Nil fields are left alone.
type Patch struct {
	Label    *string
	Icon     *string
	URL      *string
	Visible  *bool
	Disabled *bool
}

// Editor owns the item tree of one menu container.
type Editor struct {
	tree      render.Tree
	container render.Handle
	pristine  render.Handle
	target    string
	opts      Options

	roots   []*Item
	initial []*Item
	policy  *bluemonday.Policy
	log     *slog.Logger
}

// New extracts the tree of container.
func New(t render.Tree, container render.Handle, opts Options) (*Editor, error) {
	if container == render.None {
		return nil, ErrNoMenu
	}
	e := &Editor{
		tree:      t,
		container: container,
		target:    "menu:" + render.AttrOr(t, container, "id", strconv.Itoa(int(container))),
		opts:      opts,
		policy:    bluemonday.StrictPolicy(),
		log:       applog.WithComponent("menus"),
	}
	e.pristine = t.Clone(container)
	e.extract()
	return e, nil
}

func (e *Editor) extract() {
	e.roots = Extract(e.tree, e.container)
	e.initial = cloneAll(e.roots)
	e.log.Debug("extracted", slog.String("target", e.target), slog.Int("items", len(Flatten(e.roots))))
}

// Container returns the menu element. It changes after Reset.
func (e *Editor) Container() render.Handle { return e.container }

// Target is the undo key of this editor.
func (e *Editor) Target() string { return e.target }

// Items returns a deep copy of the current tree.
func (e *Editor) Items() []*Item { return cloneAll(e.roots) }

// Snapshot returns the tree as extracted at activation.
func (e *Editor) Snapshot() []*Item { return cloneAll(e.initial) }

// Find returns a copy of the item with id.
func (e *Editor) Find(id string) (*Item, bool) {
	it, _ := Find(e.roots, id)
	if it == nil {
		return nil, false
	}
	return it.Clone(), true
}

// siblings returns the list that holds items whose parent is parentID.
func (e *Editor) siblings(parentID string) *[]*Item {
	if parentID == "" {
		return &e.roots
	}
	p, _ := Find(e.roots, parentID)
	if p == nil {
		return nil
	}
	return &p.Children
}

// Move drops item dragID onto targetID. With asChild the item becomes the
// last child of the target; otherwise it takes the target's position in the
// target's sibling list. Moves into the item's own subtree are refused.
func (e *Editor) Move(dragID, targetID string, asChild bool) bool {
	drag, _ := Find(e.roots, dragID)
	target, _ := Find(e.roots, targetID)
	if drag == nil || target == nil || inSubtree(drag, targetID) {
		return false
	}
	from := e.siblings(drag.Parent)
	if from == nil {
		return false
	}
	e.record()

	if asChild {
		*from = remove(*from, drag)
		renumber(*from)
		target.Children = append(target.Children, drag)
		drag.Parent = target.ID
		setLevel(drag, target.Level+1)
		renumber(target.Children)
		return true
	}

	if drag.Parent == target.Parent {
		to := indexIn(*from, target)
		*from = insertAt(remove(*from, drag), to, drag)
		renumber(*from)
		return true
	}

	*from = remove(*from, drag)
	renumber(*from)
	into := e.siblings(target.Parent)
	*into = insertAt(*into, indexIn(*into, target), drag)
	drag.Parent = target.Parent
	setLevel(drag, target.Level)
	renumber(*into)
	return true
}

// Update applies p to item id. Labels and icons are reduced to plain text;
// a URL with a scheme other than http, https, mailto or tel is dropped.
func (e *Editor) Update(id string, p Patch) bool {
	it, _ := Find(e.roots, id)
	if it == nil {
		return false
	}
	e.record()
	if p.Label != nil {
		it.Label = e.plain(*p.Label)
		if it.Label == "" {
			it.Label = DefaultLabel
		}
	}
	if p.Icon != nil {
		it.Icon = e.plain(*p.Icon)
	}
	if p.URL != nil {
		it.URL = SafeURL(*p.URL)
		if it.URL == "" && strings.TrimSpace(*p.URL) != "" {
			e.log.Warn("dropped url", slog.String("item", id), slog.String("url", *p.URL))
		}
	}
	if p.Visible != nil {
		it.Visible = *p.Visible
	}
	if p.Disabled != nil {
		it.Disabled = *p.Disabled
	}
	return true
}

func (e *Editor) plain(s string) string {
	return strings.TrimSpace(html.UnescapeString(e.policy.Sanitize(s)))
}

// SafeURL returns u when it is relative or uses an allowed scheme, else "".
func SafeURL(u string) string {
	u = strings.TrimSpace(u)
	if u == "" {
		return ""
	}
	parsed, err := url.Parse(u)
	if err != nil {
		return ""
	}
	if parsed.Scheme == "" {
		if parsed.Host != "" {
			return ""
		}
		return u
	}
	if !allowedSchemes[strings.ToLower(parsed.Scheme)] {
		return ""
	}
	return u
}

// Apply rebuilds the item list from the visible items. Siblings of the
// list inside the container are kept.
func (e *Editor) Apply() error {
	if e.container == render.None {
		return ErrNoMenu
	}
	t := e.tree
	list := listOf(t, e.container)
	items := e.buildItems(e.roots)
	switch t.Tag(list) {
	case "ul", "ol", "menu":
		t.ReplaceChildren(list, items...)
	default:
		ul := t.CreateElement("ul")
		t.ReplaceChildren(ul, items...)
		t.ReplaceChildren(list, ul)
	}
	e.log.Info("applied", slog.String("target", e.target), slog.Int("items", len(Flatten(e.roots))))
	return nil
}

func (e *Editor) buildItems(items []*Item) []render.Handle {
	t := e.tree
	var out []render.Handle
	for _, it := range items {
		if !it.Visible {
			continue
		}
		li := t.CreateElement("li")
		t.SetAttr(li, "data-menu-id", it.ID)
		var body render.Handle
		if href := SafeURL(it.URL); href != "" {
			body = t.CreateElement("a")
			t.SetAttr(body, "href", href)
		} else {
			body = t.CreateElement("div")
		}
		if it.Disabled {
			t.SetAttr(li, "class", "disabled")
			t.SetAttr(li, "aria-disabled", "true")
		}
		var parts []render.Handle
		if it.Icon != "" {
			icon := t.CreateElement("span")
			t.SetAttr(icon, "class", "icon")
			t.SetText(icon, it.Icon)
			parts = append(parts, icon)
		}
		label := t.CreateElement("span")
		t.SetAttr(label, "class", "label")
		t.SetText(label, it.Label)
		parts = append(parts, label)
		t.ReplaceChildren(body, parts...)

		liKids := []render.Handle{body}
		if sub := e.buildItems(it.Children); len(sub) > 0 {
			ul := t.CreateElement("ul")
			t.SetAttr(ul, "class", "submenu")
			t.ReplaceChildren(ul, sub...)
			liKids = append(liKids, ul)
		}
		t.ReplaceChildren(li, liKids...)
		it.Source = li
		out = append(out, li)
	}
	return out
}

// Reset restores the markup captured at activation and extracts again.
func (e *Editor) Reset() error {
	if e.container == render.None || e.pristine == render.None {
		return ErrNoMenu
	}
	restored := e.tree.Clone(e.pristine)
	e.tree.ReplaceWith(e.container, restored)
	e.container = restored
	e.extract()
	if e.opts.Undo != nil {
		e.opts.Undo.Clear(e.target)
	}
	e.log.Info("reset", slog.String("target", e.target))
	return nil
}

// Undo reverts the last tree edit.
func (e *Editor) Undo() bool {
	if e.opts.Undo == nil {
		return false
	}
	s, ok := e.opts.Undo.Undo(e.target, e.encode())
	return ok && e.decode(s.Blob)
}

// Redo re-applies the last undone edit.
func (e *Editor) Redo() bool {
	if e.opts.Undo == nil {
		return false
	}
	s, ok := e.opts.Undo.Redo(e.target, e.encode())
	return ok && e.decode(s.Blob)
}

func (e *Editor) record() {
	if e.opts.Undo == nil {
		return
	}
	if b := e.encode(); b != nil {
		e.opts.Undo.Push(undo.Snapshot{Target: e.target, Blob: b})
	}
}

func (e *Editor) encode() []byte {
	b, err := json.Marshal(e.roots)
	if err != nil {
		e.log.Error("encode tree", slog.Any("err", err))
		return nil
	}
	return b
}

func (e *Editor) decode(b []byte) bool {
	var roots []*Item
	if err := json.Unmarshal(b, &roots); err != nil {
		e.log.Error("decode tree", slog.Any("err", err))
		return false
	}
	e.roots = roots
	return true
}
