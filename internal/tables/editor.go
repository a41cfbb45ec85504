/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package tables edits the column model of a table element: drag reorder,
// bounded drag resize, visibility and title edits, and reconciliation of the
// model back onto the table rows.
//
// Cells are tracked by the id of their column, captured once at extraction,
// so any number of Apply passes keeps every cell under its own header.
package tables

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"pagecraft/internal/geom"
	applog "pagecraft/internal/log"
	"pagecraft/internal/render"
	"pagecraft/internal/undo"
)

// ErrNoTable is returned when the editor has no table to work on.
var ErrNoTable = errors.New("tables: no active table")

// Options configures an Editor.
type Options struct {
	Limits Limits
	// Undo receives a model snapshot before every edit; nil disables history.
	Undo *undo.Manager
}

// Editor owns the column model of one table.
type Editor struct {
	tree     render.Tree
	table    render.Handle
	pristine render.Handle
	target   string
	opts     Options

	cols     []Column
	initial  []Column
	rows     []render.Handle
	cellByID map[render.Handle]map[string]render.Handle
	extra    map[render.Handle][]render.Handle

	resize *gesture
	log    *slog.Logger
}

type gesture struct {
	id     string
	startX float64
	startW float64
}

// New extracts the column model of table.
func New(t render.Tree, table render.Handle, opts Options) (*Editor, error) {
	if table == render.None {
		return nil, ErrNoTable
	}
	opts.Limits = opts.Limits.normalized()
	e := &Editor{
		tree:   t,
		table:  table,
		target: "table:" + render.AttrOr(t, table, "id", strconv.Itoa(int(table))),
		opts:   opts,
		log:    applog.WithComponent("tables"),
	}
	e.pristine = t.Clone(table)
	e.extract()
	e.log.Debug("extracted", slog.String("target", e.target), slog.Int("columns", len(e.cols)), slog.Int("rows", len(e.rows)))
	return e, nil
}

// extract builds the model and the per-row cell index, stamping every cell
// with its column id.
func (e *Editor) extract() {
	e.cols = ExtractColumns(e.tree, e.table, e.opts.Limits)
	e.initial = append([]Column(nil), e.cols...)
	e.rows = Rows(e.tree, e.table)
	e.cellByID = make(map[render.Handle]map[string]render.Handle, len(e.rows))
	e.extra = make(map[render.Handle][]render.Handle)
	for _, row := range e.rows {
		idx := make(map[string]render.Handle, len(e.cols))
		for i, c := range Cells(e.tree, row) {
			if i >= len(e.cols) {
				e.extra[row] = append(e.extra[row], c)
				continue
			}
			id := e.cols[i].ID
			e.tree.SetAttr(c, AttrColID, id)
			idx[id] = c
		}
		e.cellByID[row] = idx
	}
}

// Table returns the handle of the edited table. It changes after Reset.
func (e *Editor) Table() render.Handle { return e.table }

// Target is the undo key of this editor.
func (e *Editor) Target() string { return e.target }

// Columns returns a copy of the model in render order.
func (e *Editor) Columns() []Column { return append([]Column(nil), e.cols...) }

// Snapshot returns the model as extracted at activation.
func (e *Editor) Snapshot() []Column { return append([]Column(nil), e.initial...) }

// Column returns the column with id.
func (e *Editor) Column(id string) (Column, bool) {
	if i := indexOf(e.cols, id); i >= 0 {
		return e.cols[i], true
	}
	return Column{}, false
}

// Move drops column dragID onto targetID: dragID is spliced out and
// re-inserted at targetID's position, then orders are renumbered.
func (e *Editor) Move(dragID, targetID string) bool {
	from, to := indexOf(e.cols, dragID), indexOf(e.cols, targetID)
	if from < 0 || to < 0 || from == to {
		return false
	}
	e.record()
	moved := e.cols[from]
	e.cols = append(e.cols[:from], e.cols[from+1:]...)
	e.cols = append(e.cols[:to], append([]Column{moved}, e.cols[to:]...)...)
	renumber(e.cols)
	return true
}

// BeginResize starts a resize gesture at pointer x. Refused when the column
// is not resizable or another gesture is in progress.
func (e *Editor) BeginResize(id string, x float64) bool {
	if e.resize != nil {
		return false
	}
	i := indexOf(e.cols, id)
	if i < 0 || !e.cols[i].Resizable {
		return false
	}
	e.record()
	e.resize = &gesture{id: id, startX: x, startW: e.cols[i].Width}
	return true
}

// ResizeTo moves the active gesture to pointer x and returns the new width.
func (e *Editor) ResizeTo(x float64) (float64, bool) {
	if e.resize == nil {
		return 0, false
	}
	i := indexOf(e.cols, e.resize.id)
	if i < 0 {
		return 0, false
	}
	c := &e.cols[i]
	c.Width = geom.Clamp(e.resize.startW+x-e.resize.startX, c.MinWidth, c.MaxWidth)
	return c.Width, true
}

// EndResize finishes the active gesture.
func (e *Editor) EndResize() { e.resize = nil }

// Resizing reports whether a gesture is in progress.
func (e *Editor) Resizing() bool { return e.resize != nil }

// SetWidth sets a width directly, clamped to the column's bounds.
func (e *Editor) SetWidth(id string, w float64) bool {
	return e.edit(id, func(c *Column) bool {
		if !c.Resizable {
			return false
		}
		c.Width = geom.Clamp(w, c.MinWidth, c.MaxWidth)
		return true
	})
}

// SetVisible shows or hides a column.
func (e *Editor) SetVisible(id string, visible bool) bool {
	return e.edit(id, func(c *Column) bool { c.Visible = visible; return true })
}

// SetTitle renames a column header.
func (e *Editor) SetTitle(id, title string) bool {
	return e.edit(id, func(c *Column) bool { c.Title = title; return true })
}

// SetSortable toggles the sortable flag.
func (e *Editor) SetSortable(id string, sortable bool) bool {
	return e.edit(id, func(c *Column) bool { c.Sortable = sortable; return true })
}

func (e *Editor) edit(id string, fn func(*Column) bool) bool {
	i := indexOf(e.cols, id)
	if i < 0 {
		return false
	}
	before := e.encode()
	c := e.cols[i]
	if !fn(&c) {
		return false
	}
	e.push(before)
	e.cols[i] = c
	return true
}

// Apply rebuilds every row from the visible columns in order. Hidden
// columns' cells are left out of the row entirely.
func (e *Editor) Apply() error {
	if e.table == render.None {
		return ErrNoTable
	}
	head := HeaderRow(e.tree, e.table)
	for _, row := range e.rows {
		idx := e.cellByID[row]
		kids := make([]render.Handle, 0, len(e.cols)+len(e.extra[row]))
		for _, c := range e.cols {
			if !c.Visible {
				continue
			}
			cell, ok := idx[c.ID]
			if !ok {
				continue
			}
			e.tree.SetStyle(cell, "width", strconv.FormatFloat(c.Width, 'f', -1, 64)+"px")
			if row == head {
				e.retitle(cell, c)
			}
			kids = append(kids, cell)
		}
		kids = append(kids, e.extra[row]...)
		e.tree.ReplaceChildren(row, kids...)
	}
	e.log.Info("applied", slog.String("target", e.target), slog.Int("rows", len(e.rows)))
	return nil
}

func (e *Editor) retitle(cell render.Handle, c Column) {
	if c.Title != "" && strings.TrimSpace(e.tree.Text(cell)) != c.Title {
		e.tree.SetText(cell, c.Title)
	}
	if c.Sortable {
		e.tree.SetAttr(cell, "data-sortable", "")
	} else {
		e.tree.RemoveAttr(cell, "data-sortable")
	}
}

// Reset restores the table from the copy taken at extraction and extracts
// the model again. Undo history of the table is dropped.
func (e *Editor) Reset() error {
	if e.table == render.None || e.pristine == render.None {
		return ErrNoTable
	}
	restored := e.tree.Clone(e.pristine)
	e.tree.ReplaceWith(e.table, restored)
	e.table = restored
	e.resize = nil
	e.extract()
	if e.opts.Undo != nil {
		e.opts.Undo.Clear(e.target)
	}
	e.log.Info("reset", slog.String("target", e.target))
	return nil
}

// Undo reverts the last model edit.
func (e *Editor) Undo() bool {
	if e.opts.Undo == nil {
		return false
	}
	s, ok := e.opts.Undo.Undo(e.target, e.encode())
	if !ok {
		return false
	}
	return e.decode(s.Blob)
}

// Redo re-applies the last undone edit.
func (e *Editor) Redo() bool {
	if e.opts.Undo == nil {
		return false
	}
	s, ok := e.opts.Undo.Redo(e.target, e.encode())
	if !ok {
		return false
	}
	return e.decode(s.Blob)
}

func (e *Editor) record() { e.push(e.encode()) }

func (e *Editor) push(blob []byte) {
	if e.opts.Undo == nil || blob == nil {
		return
	}
	e.opts.Undo.Push(undo.Snapshot{Target: e.target, Blob: blob})
}

func (e *Editor) encode() []byte {
	b, err := json.Marshal(e.cols)
	if err != nil {
		e.log.Error("encode model", slog.Any("err", err))
		return nil
	}
	return b
}

func (e *Editor) decode(b []byte) bool {
	var cols []Column
	if err := json.Unmarshal(b, &cols); err != nil {
		e.log.Error("decode model", slog.Any("err", fmt.Errorf("undo snapshot: %w", err)))
		return false
	}
	e.cols = cols
	renumber(e.cols)
	return true
}
