/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/render"
	"pagecraft/internal/render/htmltree"
)

const doc = `<html><body>
<nav id="n" class="main-nav" role="navigation"><ul><li class="item"><a href="/x">x</a></li></ul></nav>
<table id="t" class="grid"><thead><tr><th>A</th></tr></thead><tbody><tr><td>1</td></tr></tbody></table>
<div class="data-table-wrap"><input type="submit" id="go"></div>
<button class="btn primary" id="b">b</button>
</body></html>`

func ids(t render.Tree, hs []render.Handle) []string {
	out := make([]string, 0, len(hs))
	for _, h := range hs {
		out = append(out, render.AttrOr(t, h, "id", t.Tag(h)))
	}
	return out
}

func TestQueryAllForms(t *testing.T) {
	tr, err := htmltree.ParseString(doc)
	require.NoError(t, err)
	root := tr.Root()

	cases := []struct {
		sel  string
		want []string
	}{
		{"table", []string{"t"}},
		{"#b", []string{"b"}},
		{".btn.primary", []string{"b"}},
		{"[role=navigation]", []string{"n"}},
		{`[class*="table"]`, []string{"div"}},
		{"[class^=main]", []string{"n"}},
		{"input[type=submit]", []string{"go"}},
		{"thead tr", []string{"tr"}},
		{"nav a[href]", []string{"a"}},
		{"button, nav", []string{"n", "b"}},
		{"[class*=nope]", []string{}},
	}
	for _, c := range cases {
		got := ids(tr, render.QueryAll(tr, root, c.sel))
		assert.Equal(t, c.want, got, c.sel)
	}
}

func TestContainsAndIndex(t *testing.T) {
	tr, err := htmltree.ParseString(doc)
	require.NoError(t, err)
	nav := render.Query(tr, tr.Root(), "#n")
	a := render.Query(tr, nav, "a")
	assert.True(t, render.Contains(tr, nav, a))
	assert.True(t, render.Contains(tr, a, a))
	assert.False(t, render.Contains(tr, a, nav))
	assert.Equal(t, 0, render.IndexInParent(tr, render.Query(tr, nav, "ul")))
	assert.True(t, render.Matches(tr, nav, "nav.main-nav"))
}
