/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package editor

import (
	"pagecraft/internal/classify"
	"pagecraft/internal/render"
)

// Kind names the active structural editor.
type Kind int

const (
	None Kind = iota
	TableEditor
	MenuEditor
)

func (k Kind) String() string {
	switch k {
	case TableEditor:
		return "table"
	case MenuEditor:
		return "menu"
	default:
		return "none"
	}
}

// Session is the coordination state of the shell. It is a value; the only
// way to change it is Reduce.
type Session struct {
	Armed    bool
	Active   Kind
	Selected classify.Element
	Hovered  classify.Element
}

// HasSelection reports whether an element is selected.
func (s Session) HasSelection() bool { return s.Selected.Handle != render.None }

// HasHover reports whether an element is hovered.
func (s Session) HasHover() bool { return s.Hovered.Handle != render.None }

// Action is a session transition.
type Action interface{ action() }

type (
	Arm      struct{}
	Disarm   struct{}
	Hover    struct{ Element classify.Element }
	Unhover  struct{}
	Select   struct{ Element classify.Element }
	Deselect struct{}
	Open     struct{ Kind Kind }
	Close    struct{}
)

func (Arm) action()      {}
func (Disarm) action()   {}
func (Hover) action()    {}
func (Unhover) action()  {}
func (Select) action()   {}
func (Deselect) action() {}
func (Open) action()     {}
func (Close) action()    {}

// Reduce returns the session after a. Hover and selection each hold a single
// element, so selecting replaces the previous selection. Changing the
// selection closes the active editor, which belongs to the old element.
func Reduce(s Session, a Action) Session {
	switch a := a.(type) {
	case Arm:
		s.Armed = true
	case Disarm:
		return Session{}
	case Hover:
		if s.Armed {
			s.Hovered = a.Element
		}
	case Unhover:
		s.Hovered = classify.Element{}
	case Select:
		if !s.Armed || a.Element.Handle == render.None {
			return s
		}
		if a.Element.Handle != s.Selected.Handle {
			s.Active = None
		}
		s.Selected = a.Element
	case Deselect:
		s.Selected = classify.Element{}
		s.Active = None
	case Open:
		if !s.HasSelection() {
			return s
		}
		s.Active = a.Kind
	case Close:
		s.Active = None
	}
	return s
}
