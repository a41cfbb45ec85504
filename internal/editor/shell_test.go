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
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/domain"
	"pagecraft/internal/geom"
	"pagecraft/internal/layout"
	applog "pagecraft/internal/log"
	"pagecraft/internal/render"
	"pagecraft/internal/render/htmltree"
	"pagecraft/internal/tables"
)

const dashboard = `<html><body>
<table id="people" data-rect="0,0,400,100">
<thead><tr><th data-rect="0,0,120,20">Name</th><th data-rect="120,0,200,20">Email</th><th data-rect="320,0,80,20">Role</th></tr></thead>
<tbody><tr><td>Ada</td><td>ada@example.org</td><td>teacher</td></tr></tbody>
</table>
<nav id="side" class="sidebar" data-rect="0,120,200,300" data-selectable><ul>
  <li><a href="/home">Home</a></li>
  <li><a href="/fees">Fees</a></li>
</ul></nav>
<section id="stats" data-rect="220,120,300,200" data-selectable>Stats</section>
<button id="tiny" data-rect="600,0,10,10">x</button>
</body></html>`

func newShell(t *testing.T, opts Options) (*Shell, *htmltree.Tree) {
	t.Helper()
	tree, err := htmltree.ParseString(dashboard)
	require.NoError(t, err)
	return NewShell(tree, opts), tree
}

func headerTexts(tree *htmltree.Tree, table render.Handle) []string {
	var out []string
	for _, c := range tables.Cells(tree, tables.HeaderRow(tree, table)) {
		out = append(out, strings.TrimSpace(tree.Text(c)))
	}
	return out
}

func TestActivateClassifies(t *testing.T) {
	s, _ := newShell(t, Options{})
	assert.Equal(t, 3, s.Activate())
	assert.True(t, s.Session().Armed)
	_, ok := s.Registry().ByID("tiny")
	assert.False(t, ok)
	assert.Empty(t, s.Notices())

	s.Deactivate()
	assert.Equal(t, Session{}, s.Session())
	assert.Nil(t, s.Registry())
}

func TestActivateEmptyPage(t *testing.T) {
	tree, err := htmltree.ParseString(`<html><body><p>plain</p></body></html>`)
	require.NoError(t, err)
	s := NewShell(tree, Options{})
	assert.Zero(t, s.Activate())
	n := s.Notices()
	require.Len(t, n, 1)
	assert.Equal(t, Info, n[0].Level)
}

func TestHoverAndClickKeepOneSelection(t *testing.T) {
	s, _ := newShell(t, Options{})
	s.Activate()

	s.PointerMove(geom.Pt{X: 10, Y: 10})
	assert.Equal(t, "people", s.Session().Hovered.ID)
	s.PointerMove(geom.Pt{X: 900, Y: 900})
	assert.False(t, s.Session().HasHover())

	res := s.Click(geom.Pt{X: 230, Y: 130})
	assert.True(t, res.PreventDefault)
	assert.Equal(t, "stats", s.Session().Selected.ID)
	assert.Equal(t, "stats", s.Session().Hovered.ID)

	s.Click(geom.Pt{X: 10, Y: 130})
	assert.Equal(t, "side", s.Session().Selected.ID)
	sel, ok := s.Tracker().Selected()
	require.True(t, ok)
	assert.Equal(t, sel.Handle, s.Session().Selected.Handle)

	res = s.Click(geom.Pt{X: 900, Y: 900})
	assert.False(t, res.PreventDefault)
	assert.Equal(t, "side", s.Session().Selected.ID, "clicking empty space keeps the selection")
}

func TestOpenEditorByType(t *testing.T) {
	s, tree := newShell(t, Options{})
	s.Activate()

	_, ok := s.OpenEditor()
	assert.False(t, ok, "nothing selected")

	require.True(t, s.SelectByID("stats"))
	kind, ok := s.OpenEditor()
	assert.False(t, ok)
	assert.Equal(t, None, kind)
	require.Len(t, s.Notices(), 1)

	require.True(t, s.SelectByID("people"))
	kind, ok = s.OpenEditor()
	require.True(t, ok)
	assert.Equal(t, TableEditor, kind)
	require.NotNil(t, s.Tables())
	assert.Nil(t, s.Menus())

	require.True(t, s.Tables().Move("col-2", "col-0"))
	require.True(t, s.Apply())
	assert.Equal(t, []string{"Role", "Name", "Email"}, headerTexts(tree, s.Tables().Table()))
	assert.Equal(t, TableEditor, s.Session().Active, "apply keeps the editor open")

	require.True(t, s.SelectByID("side"))
	assert.Equal(t, None, s.Session().Active)
	assert.Nil(t, s.Tables())

	kind, ok = s.OpenEditor()
	require.True(t, ok)
	assert.Equal(t, MenuEditor, kind)
	assert.Nil(t, s.Tables())
	assert.Len(t, s.Menus().Items(), 2)
}

func TestResetKeepsEditorOnRestoredElement(t *testing.T) {
	s, tree := newShell(t, Options{})
	s.Activate()
	require.True(t, s.SelectByID("people"))
	_, ok := s.OpenEditor()
	require.True(t, ok)
	require.True(t, s.Tables().Move("col-2", "col-0"))
	require.True(t, s.Apply())

	require.True(t, s.Reset())
	assert.Equal(t, TableEditor, s.Session().Active)
	require.NotNil(t, s.Tables())
	assert.Equal(t, s.Tables().Table(), s.Session().Selected.Handle)
	assert.Equal(t, []string{"Name", "Email", "Role"}, headerTexts(tree, s.Tables().Table()))
	assert.Len(t, render.QueryAll(tree, tree.Root(), "table"), 1)
}

func TestUndoRedoForwarded(t *testing.T) {
	s, _ := newShell(t, Options{})
	s.Activate()
	assert.False(t, s.Undo())
	require.True(t, s.SelectByID("side"))
	_, ok := s.OpenEditor()
	require.True(t, ok)
	require.True(t, s.Menus().Move("mi-1", "mi-0", false))
	require.True(t, s.Undo())
	assert.Equal(t, "Home", s.Menus().Items()[0].Label)
	require.True(t, s.Redo())
	assert.Equal(t, "Fees", s.Menus().Items()[0].Label)
}

func TestGuardedNoOps(t *testing.T) {
	s, _ := newShell(t, Options{})
	assert.False(t, s.Apply())
	assert.False(t, s.Reset())
	assert.False(t, s.Redo())
	_, ok := s.Inspector()
	assert.False(t, ok)
	_, ok = s.SaveLayout(context.Background(), "x", "")
	assert.False(t, ok)
	assert.False(t, s.SelectByID("people"))
	assert.Empty(t, s.Notices())
}

func TestLayoutOperationsNotify(t *testing.T) {
	ctx := context.Background()
	lm, err := layout.NewManager(ctx, &layout.MemoryStore{}, layout.Options{})
	require.NoError(t, err)
	confirm := false
	s, _ := newShell(t, Options{Layouts: lm, Confirm: func(domain.Configuration) bool { return confirm }})

	cfg, ok := s.SaveLayout(ctx, "Teacher view", "")
	require.True(t, ok)
	assert.Len(t, cfg.Components, 2)
	assert.Equal(t, Success, s.Notices()[0].Level)

	_, ok = s.LoadLayout(cfg.ID)
	assert.True(t, ok)
	_, ok = s.LoadLayout("missing")
	assert.False(t, ok)
	n := s.Notices()
	assert.Equal(t, Failure, n[len(n)-1].Level)

	dir := t.TempDir()
	p, ok := s.ExportLayout(cfg.ID, dir)
	require.True(t, ok)
	assert.Equal(t, "teacherview.json", filepath.Base(p))

	bad := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"id":"x","name":"y"}`), 0o644))
	s.Notices()
	_, ok = s.ImportLayout(ctx, bad)
	assert.False(t, ok)
	n = s.Notices()
	require.Len(t, n, 1)
	assert.True(t, n[0].Blocking)
	assert.Equal(t, 1, lm.Len())

	_, ok = s.ImportLayout(ctx, p)
	require.True(t, ok)
	assert.Equal(t, 2, lm.Len())

	assert.False(t, s.DeleteLayout(ctx, cfg.ID))
	assert.Equal(t, 2, lm.Len())
	confirm = true
	assert.True(t, s.DeleteLayout(ctx, cfg.ID))
	assert.Equal(t, 1, lm.Len())
}

func TestResizeDropsVanishedSelection(t *testing.T) {
	s, tree := newShell(t, Options{})
	s.Activate()
	require.True(t, s.SelectByID("stats"))

	stats := render.Query(tree, tree.Root(), "#stats")
	tree.SetBounds(stats, geom.R(220, 120, 15, 15))
	s.Resize()
	assert.False(t, s.Session().HasSelection())
	_, ok := s.Registry().ByID("stats")
	assert.False(t, ok)
	assert.Equal(t, 2, s.Registry().Len())
}

func TestEditorLogsCarrySelectedID(t *testing.T) {
	logPath := filepath.Join(t.TempDir(), "editor.json")
	applog.Init(applog.Options{Level: "info", Format: "json", File: logPath})
	defer applog.Init(applog.Options{Level: "info"})

	s, _ := newShell(t, Options{})
	s.Activate()
	require.True(t, s.SelectByID("people"))
	_, ok := s.OpenEditor()
	require.True(t, ok)
	require.True(t, s.Apply())

	data, err := os.ReadFile(logPath)
	require.NoError(t, err)
	var opened, applied bool
	for _, ln := range strings.Split(strings.TrimSpace(string(data)), "\n") {
		if !strings.Contains(ln, `"target":"people"`) {
			continue
		}
		opened = opened || strings.Contains(ln, `"msg":"editor opened"`)
		applied = applied || strings.Contains(ln, `"msg":"changes applied"`)
	}
	assert.True(t, opened, "editor opened line lacks target: %s", data)
	assert.True(t, applied, "changes applied line lacks target: %s", data)
}
