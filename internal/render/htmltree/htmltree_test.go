/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package htmltree

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/geom"
	"pagecraft/internal/render"
)

const page = `<!DOCTYPE html><html><head><title>x</title></head><body>
<div id="outer" data-rect="0,0,400,300">
  <nav class="side-nav" data-rect="0,0,100,300" style="color: red">
    <a id="link" href="/a" data-rect="10,10,80,20">Home</a>
  </nav>
  <section id="sec" style="left: 100px; top: 0px; width: 300px; height: 300px">text</section>
  <p id="gone" hidden data-rect="0,0,50,50">gone</p>
  <div style="display:none"><span id="inner" data-rect="0,0,50,50">x</span></div>
</div>
</body></html>`

func mustParse(t *testing.T, s string) *Tree {
	t.Helper()
	tr, err := ParseString(s)
	require.NoError(t, err)
	return tr
}

func byID(t *testing.T, tr *Tree, id string) render.Handle {
	t.Helper()
	h := render.Query(tr, tr.Root(), "#"+id)
	require.NotEqual(t, render.None, h, "missing #%s", id)
	return h
}

func TestBoundsFromHints(t *testing.T) {
	tr := mustParse(t, page)
	assert.Equal(t, geom.R(10, 10, 80, 20), tr.Bounds(byID(t, tr, "link")))
	assert.Equal(t, geom.R(100, 0, 300, 300), tr.Bounds(byID(t, tr, "sec")))
}

func TestRenderedHonoursHiddenAndAncestors(t *testing.T) {
	tr := mustParse(t, page)
	assert.True(t, tr.Rendered(byID(t, tr, "link")))
	assert.False(t, tr.Rendered(byID(t, tr, "gone")))
	assert.False(t, tr.Rendered(byID(t, tr, "inner")))
	head := render.Query(tr, tr.Root(), "title")
	assert.False(t, tr.Rendered(head))
}

func TestElementAtPicksDeepest(t *testing.T) {
	tr := mustParse(t, page)
	assert.Equal(t, byID(t, tr, "link"), tr.ElementAt(geom.Pt{X: 20, Y: 15}))
	assert.Equal(t, byID(t, tr, "sec"), tr.ElementAt(geom.Pt{X: 200, Y: 100}))
	assert.Equal(t, render.None, tr.ElementAt(geom.Pt{X: 900, Y: 900}))
}

func TestStyleMergesComputedAndInline(t *testing.T) {
	tr := mustParse(t, `<html><body><div id="d" style="color: blue" data-pc-computed='{"color":"red","margin":"4px"}'></div></body></html>`)
	d := byID(t, tr, "d")
	assert.Equal(t, "blue", tr.Style(d, "color"))
	assert.Equal(t, "4px", tr.Style(d, "margin"))

	tr.SetStyle(d, "width", "120px")
	assert.Equal(t, "color: blue; width: 120px", render.AttrOr(tr, d, "style", ""))
	tr.SetStyle(d, "color", "")
	assert.Equal(t, "width: 120px", render.AttrOr(tr, d, "style", ""))
}

func TestStructuralEdits(t *testing.T) {
	tr := mustParse(t, `<html><body><ul id="l"><li>a</li><li>b</li></ul></body></html>`)
	l := byID(t, tr, "l")
	kids := tr.Children(l)
	require.Len(t, kids, 2)

	clone := tr.Clone(l)
	assert.Equal(t, render.None, tr.Parent(clone))

	li := tr.CreateElement("li")
	tr.SetText(li, "c")
	tr.ReplaceChildren(l, kids[1], li, kids[0])
	assert.Equal(t, "bca", tr.Text(l))

	tr.ReplaceWith(l, clone)
	assert.Equal(t, render.None, tr.Parent(l))
	assert.Equal(t, "ab", tr.Text(clone))
	assert.Contains(t, tr.RenderBody(), "<li>a</li><li>b</li>")
}

func TestOwnTextSkipsNestedElements(t *testing.T) {
	tr := mustParse(t, `<html><body><li id="i"> Reports <ul><li>Daily</li></ul></li></body></html>`)
	assert.Equal(t, "Reports", strings.TrimSpace(tr.OwnText(byID(t, tr, "i"))))
}

func TestScrollAndStrip(t *testing.T) {
	tr := mustParse(t, page)
	tr.SetScroll(geom.Pt{X: 0, Y: 120})
	assert.Equal(t, geom.Pt{X: 0, Y: 120}, tr.Scroll())
	tr.Strip()
	assert.NotContains(t, tr.String(), "data-rect")
	assert.NotContains(t, tr.String(), "data-pc-scroll")
}
