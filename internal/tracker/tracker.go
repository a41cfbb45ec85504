/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package tracker maps pointer positions onto classified elements and keeps
// the single hovered and single selected element together with their
// highlight overlays.
package tracker

import (
	"log/slog"

	"pagecraft/internal/classify"
	"pagecraft/internal/geom"
	applog "pagecraft/internal/log"
	"pagecraft/internal/render"
)

// State of the tracker.
type State int

const (
	Idle State = iota
	Armed
)

func (s State) String() string {
	if s == Armed {
		return "armed"
	}
	return "idle"
}

// Overlay is a highlight box in page coordinates.
type Overlay struct {
	Visible bool
	Rect    geom.Rect
	Label   string
}

// ClickResult tells the host what to do with the native click.
type ClickResult struct {
	// PreventDefault is set when the click selected an element; the page's
	// own link or button under the pointer must not fire.
	PreventDefault bool
	Selected       classify.Element
}

// Tracker follows the pointer over a render tree.
type Tracker struct {
	tree  render.Tree
	reg   *classify.Registry
	state State

	hovered, selected       classify.Element
	hasHovered, hasSelected bool
	hover, selection        Overlay

	onSelect func(classify.Element)
	log      *slog.Logger
}

// New returns an idle tracker over t.
func New(t render.Tree) *Tracker {
	return &Tracker{tree: t, log: applog.WithComponent("tracker")}
}

// OnSelect registers the host notification fired on every selection.
func (tr *Tracker) OnSelect(fn func(classify.Element)) { tr.onSelect = fn }

// State returns the current state.
func (tr *Tracker) State() State { return tr.state }

// Activate arms the tracker with a fresh registry.
func (tr *Tracker) Activate(reg *classify.Registry) {
	tr.reg = reg
	tr.state = Armed
	tr.log.Debug("armed", slog.Int("elements", reg.Len()))
}

// Deactivate returns to Idle and clears hover, selection and overlays.
func (tr *Tracker) Deactivate() {
	tr.state = Idle
	tr.reg = nil
	tr.clearHover()
	tr.clearSelection()
}

// SetRegistry swaps in a rebuilt registry (viewport resize). Hover and
// selection survive only if their element is still registered.
func (tr *Tracker) SetRegistry(reg *classify.Registry) {
	tr.reg = reg
	if tr.hasHovered {
		if e, ok := reg.Lookup(tr.hovered.Handle); ok {
			tr.setHover(e)
		} else {
			tr.clearHover()
		}
	}
	if tr.hasSelected {
		if e, ok := reg.Lookup(tr.selected.Handle); ok {
			tr.setSelection(e)
		} else {
			tr.clearSelection()
		}
	}
}

// Resolve returns the registered element that equals or encloses the
// topmost element under p.
func (tr *Tracker) Resolve(p geom.Pt) (classify.Element, bool) {
	if tr.reg == nil {
		return classify.Element{}, false
	}
	for h := tr.tree.ElementAt(p); h != render.None; h = tr.tree.Parent(h) {
		if e, ok := tr.reg.Lookup(h); ok {
			return e, true
		}
	}
	return classify.Element{}, false
}

// Move handles a pointer move. Nothing under the pointer clears the hover.
func (tr *Tracker) Move(p geom.Pt) (classify.Element, bool) {
	if tr.state != Armed {
		return classify.Element{}, false
	}
	e, ok := tr.Resolve(p)
	if !ok {
		tr.clearHover()
		return classify.Element{}, false
	}
	tr.setHover(e)
	return e, true
}

// Click promotes the element under p to the selection.
func (tr *Tracker) Click(p geom.Pt) ClickResult {
	if tr.state != Armed {
		return ClickResult{}
	}
	tr.Move(p)
	if !tr.hasHovered {
		return ClickResult{}
	}
	tr.setSelection(tr.hovered)
	tr.log.Info("selected", slog.String("id", tr.selected.ID), slog.String("type", string(tr.selected.Type)))
	if tr.onSelect != nil {
		tr.onSelect(tr.selected)
	}
	return ClickResult{PreventDefault: true, Selected: tr.selected}
}

// Select sets the selection directly, e.g. from a layer list in the host UI.
func (tr *Tracker) Select(e classify.Element) {
	if tr.state != Armed {
		return
	}
	tr.setSelection(e)
	if tr.onSelect != nil {
		tr.onSelect(e)
	}
}

// ClearSelection drops the selection highlight.
func (tr *Tracker) ClearSelection() { tr.clearSelection() }

func (tr *Tracker) Hovered() (classify.Element, bool)  { return tr.hovered, tr.hasHovered }
func (tr *Tracker) Selected() (classify.Element, bool) { return tr.selected, tr.hasSelected }

// HoverOverlay returns the hover highlight.
func (tr *Tracker) HoverOverlay() Overlay { return tr.hover }

// SelectionOverlay returns the selection highlight.
func (tr *Tracker) SelectionOverlay() Overlay { return tr.selection }

// Refresh repositions both overlays from the current geometry and scroll.
func (tr *Tracker) Refresh() {
	if tr.hasHovered {
		tr.setHover(tr.hovered)
	}
	if tr.hasSelected {
		tr.setSelection(tr.selected)
	}
}

func (tr *Tracker) overlayFor(e classify.Element) Overlay {
	b := tr.tree.Bounds(e.Handle)
	return Overlay{Visible: true, Rect: b.Translate(tr.tree.Scroll()), Label: e.Name}
}

func (tr *Tracker) setHover(e classify.Element) {
	tr.hovered, tr.hasHovered = e, true
	tr.hover = tr.overlayFor(e)
}

func (tr *Tracker) clearHover() {
	tr.hovered, tr.hasHovered = classify.Element{}, false
	tr.hover = Overlay{}
}

func (tr *Tracker) setSelection(e classify.Element) {
	tr.selected, tr.hasSelected = e, true
	tr.selection = tr.overlayFor(e)
}

func (tr *Tracker) clearSelection() {
	tr.selected, tr.hasSelected = classify.Element{}, false
	tr.selection = Overlay{}
}
