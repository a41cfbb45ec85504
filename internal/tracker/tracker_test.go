/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package tracker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/classify"
	"pagecraft/internal/geom"
	"pagecraft/internal/render/htmltree"
)

const page = `<html><body>
<nav id="menu" data-rect="0,0,100,400"><a href="/home" data-rect="10,10,80,20">Home</a></nav>
<section id="main" data-rect="100,0,500,400">
  <table id="grid" data-rect="120,20,300,200"><tr><td data-rect="120,20,100,20">1</td></tr></table>
</section>
<p id="loose" data-rect="700,0,100,100">not classified</p>
</body></html>`

func setup(t *testing.T) (*Tracker, *htmltree.Tree) {
	t.Helper()
	tree, err := htmltree.ParseString(page)
	require.NoError(t, err)
	tr := New(tree)
	tr.Activate(classify.Classify(tree, classify.Options{}))
	return tr, tree
}

func TestIdleIgnoresPointer(t *testing.T) {
	tree, err := htmltree.ParseString(page)
	require.NoError(t, err)
	tr := New(tree)
	_, ok := tr.Move(geom.Pt{X: 20, Y: 20})
	assert.False(t, ok)
	assert.False(t, tr.Click(geom.Pt{X: 20, Y: 20}).PreventDefault)
	assert.Equal(t, Idle, tr.State())
}

func TestMoveWalksToNearestRegisteredAncestor(t *testing.T) {
	tr, _ := setup(t)

	e, ok := tr.Move(geom.Pt{X: 20, Y: 15}) // on the link inside nav
	require.True(t, ok)
	assert.Equal(t, "menu", e.ID)

	e, ok = tr.Move(geom.Pt{X: 130, Y: 25}) // on a td inside the table
	require.True(t, ok)
	assert.Equal(t, "grid", e.ID)

	_, ok = tr.Move(geom.Pt{X: 750, Y: 50}) // unclassified paragraph
	assert.False(t, ok)
	_, hovered := tr.Hovered()
	assert.False(t, hovered)
	assert.False(t, tr.HoverOverlay().Visible)
}

func TestClickSelectsAndNotifies(t *testing.T) {
	tr, _ := setup(t)
	var notified []string
	tr.OnSelect(func(e classify.Element) { notified = append(notified, e.ID) })

	res := tr.Click(geom.Pt{X: 20, Y: 15})
	assert.True(t, res.PreventDefault)
	assert.Equal(t, "menu", res.Selected.ID)

	res = tr.Click(geom.Pt{X: 750, Y: 50})
	assert.False(t, res.PreventDefault)

	assert.Equal(t, []string{"menu"}, notified)
	sel, ok := tr.Selected()
	require.True(t, ok)
	assert.Equal(t, "menu", sel.ID)
}

func TestSingleSelectionAndHover(t *testing.T) {
	tr, _ := setup(t)
	points := []geom.Pt{{X: 20, Y: 15}, {X: 130, Y: 25}, {X: 300, Y: 300}, {X: 750, Y: 50}, {X: 20, Y: 300}}
	for _, p := range points {
		before, had := tr.Selected()
		res := tr.Click(p)
		sel, ok := tr.Selected()
		if res.PreventDefault {
			require.True(t, ok)
			assert.Equal(t, res.Selected.ID, sel.ID)
			assert.Equal(t, tr.SelectionOverlay().Label, sel.Name)
		} else if had {
			assert.Equal(t, before.ID, sel.ID)
		}
		h, hok := tr.Hovered()
		if hok {
			assert.Equal(t, tr.HoverOverlay().Label, h.Name)
		}
	}
	sel, _ := tr.Selected()
	assert.Equal(t, "menu", sel.ID)
}

func TestOverlaysUsePageCoordinates(t *testing.T) {
	tr, tree := setup(t)
	tree.SetScroll(geom.Pt{X: 0, Y: 250})
	tr.Click(geom.Pt{X: 130, Y: 25})
	assert.Equal(t, geom.R(120, 270, 300, 200), tr.SelectionOverlay().Rect)
	assert.True(t, tr.HoverOverlay().Visible)
}

func TestDeactivateClearsEverything(t *testing.T) {
	tr, _ := setup(t)
	tr.Click(geom.Pt{X: 20, Y: 15})
	tr.Deactivate()
	_, ok := tr.Selected()
	assert.False(t, ok)
	assert.False(t, tr.SelectionOverlay().Visible)
	assert.False(t, tr.HoverOverlay().Visible)
	assert.Equal(t, Idle, tr.State())
}
