/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package classify

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/render/htmltree"
)

func parse(t *testing.T, body string) *htmltree.Tree {
	t.Helper()
	tr, err := htmltree.ParseString("<html><body>" + body + "</body></html>")
	require.NoError(t, err)
	return tr
}

func TestClassifyCategoriesAndNames(t *testing.T) {
	tr := parse(t, `
<table id="grades" data-rect="0,0,300,200"><tr><td>x</td></tr></table>
<nav aria-label="Main menu" data-rect="0,200,120,400"></nav>
<aside class="info-panel wide" data-rect="300,0,200,200"></aside>
<button data-rect="10,10,80,30">Save</button>
<form data-name="Signup" data-rect="300,200,200,100"></form>
<div class="card" style="display:none" data-rect="0,0,100,100"></div>`)

	reg := Classify(tr, Options{})
	require.Equal(t, 5, reg.Len())

	byType := map[Category]Element{}
	for _, e := range reg.All() {
		byType[e.Type] = e
	}
	assert.Equal(t, "grades", byType[Table].ID)
	assert.Equal(t, "Main menu", byType[Menu].Name)
	assert.Equal(t, "info-panel", byType[Panel].Name)
	assert.Equal(t, "button", byType[Button].Name)
	assert.Equal(t, "button-0", byType[Button].ID)
	assert.Equal(t, "Signup", byType[Form].Name)
}

func TestMinimumSizeIsExclusive(t *testing.T) {
	sizes := [][2]int{{20, 100}, {100, 20}, {21, 21}, {5, 5}, {21, 20}, {300, 300}}
	var b strings.Builder
	for i, s := range sizes {
		fmt.Fprintf(&b, `<section id="s%d" data-rect="0,0,%d,%d"></section>`, i, s[0], s[1])
	}
	reg := Classify(parse(t, b.String()), Options{})

	got := map[string]bool{}
	for _, e := range reg.All() {
		got[e.ID] = true
		assert.Greater(t, e.Bounds.W, 20.0)
		assert.Greater(t, e.Bounds.H, 20.0)
	}
	assert.Equal(t, map[string]bool{"s2": true, "s5": true}, got)
}

func TestCustomMinSize(t *testing.T) {
	tr := parse(t, `<section id="s" data-rect="0,0,30,30"></section>`)
	assert.Equal(t, 1, Classify(tr, Options{}).Len())
	assert.Equal(t, 0, Classify(tr, Options{MinSize: 40}).Len())
}

func TestFirstCategoryWins(t *testing.T) {
	// Matches both the table rule (class*=table) and the menu rule (class*=nav).
	tr := parse(t, `<div id="x" class="table-nav" data-rect="0,0,100,100"></div>`)
	reg := Classify(tr, Options{})
	require.Equal(t, 1, reg.Len())
	assert.Equal(t, Table, reg.All()[0].Type)
}

func TestEmptyDocument(t *testing.T) {
	reg := Classify(parse(t, ""), Options{})
	assert.Equal(t, 0, reg.Len())
	_, ok := reg.ByID("anything")
	assert.False(t, ok)
}

func TestLookupByHandle(t *testing.T) {
	tr := parse(t, `<nav id="n" data-rect="0,0,100,100"></nav>`)
	reg := Classify(tr, Options{})
	e, ok := reg.ByID("n")
	require.True(t, ok)
	got, ok := reg.Lookup(e.Handle)
	require.True(t, ok)
	assert.Equal(t, Menu, got.Type)
	assert.Len(t, reg.OfType(Menu), 1)
}
