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
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"pagecraft/internal/classify"
	"pagecraft/internal/render"
)

func el(h int, typ classify.Category) classify.Element {
	return classify.Element{ID: string(typ), Type: typ, Handle: render.Handle(h)}
}

func TestReduceIgnoresInputWhileIdle(t *testing.T) {
	s := Reduce(Session{}, Select{Element: el(1, classify.Table)})
	assert.False(t, s.HasSelection())
	s = Reduce(s, Hover{Element: el(1, classify.Table)})
	assert.False(t, s.HasHover())
	s = Reduce(s, Open{Kind: TableEditor})
	assert.Equal(t, None, s.Active)
}

func TestReduceSelectionReplacesAndClosesEditor(t *testing.T) {
	s := Reduce(Session{}, Arm{})
	s = Reduce(s, Select{Element: el(1, classify.Table)})
	s = Reduce(s, Open{Kind: TableEditor})
	assert.Equal(t, TableEditor, s.Active)

	s = Reduce(s, Select{Element: el(1, classify.Table)})
	assert.Equal(t, TableEditor, s.Active, "reselecting the same element keeps the editor")

	s = Reduce(s, Select{Element: el(2, classify.Menu)})
	assert.Equal(t, render.Handle(2), s.Selected.Handle)
	assert.Equal(t, None, s.Active)

	s = Reduce(s, Open{Kind: MenuEditor})
	s = Reduce(s, Deselect{})
	assert.False(t, s.HasSelection())
	assert.Equal(t, None, s.Active)

	assert.Equal(t, Session{}, Reduce(s, Disarm{}))
}

func TestReduceRandomKeepsSingleSelection(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	s := Session{}
	for i := 0; i < 1000; i++ {
		e := el(1+rng.Intn(4), classify.Table)
		var a Action
		switch rng.Intn(8) {
		case 0:
			a = Arm{}
		case 1:
			a = Disarm{}
		case 2:
			a = Hover{Element: e}
		case 3:
			a = Unhover{}
		case 4:
			a = Select{Element: e}
		case 5:
			a = Deselect{}
		case 6:
			a = Open{Kind: Kind(1 + rng.Intn(2))}
		default:
			a = Close{}
		}
		prev := s
		s = Reduce(s, a)
		if s.Active != None {
			assert.True(t, s.HasSelection(), "an editor needs a selected element")
		}
		if !s.Armed {
			assert.False(t, s.HasSelection() || s.HasHover())
		}
		if sel, ok := a.(Select); ok && s.Armed && prev.Armed {
			assert.Equal(t, sel.Element.Handle, s.Selected.Handle)
		}
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "table", TableEditor.String())
	assert.Equal(t, "menu", MenuEditor.String())
	assert.Equal(t, "none", None.String())
}
