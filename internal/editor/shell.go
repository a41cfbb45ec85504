/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package editor is the coordination shell of the edit mode. It owns the
// session, arms the classifier and tracker, keeps exactly one structural
// editor open for the selected element and turns every failure into a
// Notice for the host UI.
package editor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"pagecraft/internal/classify"
	"pagecraft/internal/domain"
	"pagecraft/internal/geom"
	"pagecraft/internal/layout"
	applog "pagecraft/internal/log"
	"pagecraft/internal/menus"
	"pagecraft/internal/render"
	"pagecraft/internal/tables"
	"pagecraft/internal/tracker"
	"pagecraft/internal/undo"
)

// Level grades a notice.
type Level string

const (
	Info    Level = "info"
	Success Level = "success"
	Warning Level = "warning"
	Failure Level = "error"
)

// Notice is a user-facing message. Blocking notices need an acknowledgement.
type Notice struct {
	Level    Level
	Message  string
	Blocking bool
}

// Options configures a Shell.
type Options struct {
	MinSize float64
	Limits  tables.Limits
	Undo    *undo.Manager
	Layouts *layout.Manager
	// Confirm is asked before a layout is deleted; nil declines every delete.
	Confirm layout.Confirm
}

// Shell coordinates one page.
type Shell struct {
	tree render.Tree
	opts Options

	session Session
	reg     *classify.Registry
	track   *tracker.Tracker
	tables  *tables.Editor
	menus   *menus.Editor
	notices []Notice
	log     *slog.Logger
}

// NewShell returns an idle shell over t.
func NewShell(t render.Tree, opts Options) *Shell {
	if opts.Undo == nil {
		opts.Undo = undo.NewManager(undo.Config{})
	}
	s := &Shell{tree: t, opts: opts, track: tracker.New(t), log: applog.WithComponent("editor")}
	s.track.OnSelect(func(e classify.Element) { s.dispatch(Select{Element: e}) })
	return s
}

func (s *Shell) dispatch(a Action) {
	before := s.session
	s.session = Reduce(s.session, a)
	if before.Active != None && s.session.Active == None {
		s.tables, s.menus = nil, nil
	}
}

// Session returns the current session.
func (s *Shell) Session() Session { return s.session }

// Registry returns the current classification, nil while idle.
func (s *Shell) Registry() *classify.Registry { return s.reg }

// Tracker exposes overlays to the host.
func (s *Shell) Tracker() *tracker.Tracker { return s.track }

// Activate classifies the page and arms the tracker.
func (s *Shell) Activate() int {
	s.reg = classify.Classify(s.tree, classify.Options{MinSize: s.opts.MinSize})
	s.track.Activate(s.reg)
	s.dispatch(Arm{})
	if s.reg.Len() == 0 {
		s.notify(Info, "No editable elements found on this page.", false)
	}
	s.log.Info("edit mode on", slog.Int("elements", s.reg.Len()))
	return s.reg.Len()
}

// Deactivate leaves edit mode and closes any editor.
func (s *Shell) Deactivate() {
	s.track.Deactivate()
	s.dispatch(Disarm{})
	s.tables, s.menus, s.reg = nil, nil, nil
	s.log.Info("edit mode off")
}

// Resize rebuilds the registry after a viewport change.
func (s *Shell) Resize() {
	if !s.session.Armed {
		return
	}
	s.reclassify()
	s.track.Refresh()
}

func (s *Shell) reclassify() {
	s.reg = classify.Classify(s.tree, classify.Options{MinSize: s.opts.MinSize})
	s.track.SetRegistry(s.reg)
	s.syncFromTracker()
}

// syncFromTracker mirrors hover and selection after the tracker dropped or
// refreshed them.
func (s *Shell) syncFromTracker() {
	if e, ok := s.track.Hovered(); ok {
		s.dispatch(Hover{Element: e})
	} else {
		s.dispatch(Unhover{})
	}
	if e, ok := s.track.Selected(); ok {
		s.dispatch(Select{Element: e})
	} else if s.session.HasSelection() {
		s.dispatch(Deselect{})
	}
}

// PointerMove forwards a pointer move in viewport coordinates.
func (s *Shell) PointerMove(p geom.Pt) {
	if e, ok := s.track.Move(p); ok {
		s.dispatch(Hover{Element: e})
		return
	}
	s.dispatch(Unhover{})
}

// Click forwards a click; the host must suppress the page's own handling
// when PreventDefault is set.
func (s *Shell) Click(p geom.Pt) tracker.ClickResult {
	res := s.track.Click(p)
	if e, ok := s.track.Hovered(); ok {
		s.dispatch(Hover{Element: e})
	} else {
		s.dispatch(Unhover{})
	}
	return res
}

// SelectByID selects a registered element by id.
func (s *Shell) SelectByID(id string) bool {
	if s.reg == nil {
		return false
	}
	e, ok := s.reg.ByID(id)
	if !ok {
		return false
	}
	s.track.Select(e)
	return true
}

// OpenEditor opens the editor matching the selected element's type. Only
// tables and menus have one.
func (s *Shell) OpenEditor() (Kind, bool) {
	if !s.session.HasSelection() {
		return None, false
	}
	sel := s.session.Selected
	s.dispatch(Close{})
	switch sel.Type {
	case classify.Table:
		ed, err := tables.New(s.tree, sel.Handle, tables.Options{Limits: s.opts.Limits, Undo: s.opts.Undo})
		if err != nil {
			s.fail("Could not open the table editor", err)
			return None, false
		}
		s.tables = ed
		s.dispatch(Open{Kind: TableEditor})
	case classify.Menu:
		ed, err := menus.New(s.tree, sel.Handle, menus.Options{Undo: s.opts.Undo})
		if err != nil {
			s.fail("Could not open the menu editor", err)
			return None, false
		}
		s.menus = ed
		s.dispatch(Open{Kind: MenuEditor})
	default:
		s.notify(Info, fmt.Sprintf("%s elements have no structural editor; use the property panel.", sel.Type), false)
		return None, false
	}
	s.log.InfoContext(s.logCtx(), "editor opened", slog.String("kind", s.session.Active.String()))
	return s.session.Active, true
}

// CloseEditor closes the active editor without applying.
func (s *Shell) CloseEditor() { s.dispatch(Close{}) }

// Tables returns the open table editor or nil.
func (s *Shell) Tables() *tables.Editor { return s.tables }

// Menus returns the open menu editor or nil.
func (s *Shell) Menus() *menus.Editor { return s.menus }

// Apply writes the active editor's model to the page.
func (s *Shell) Apply() bool {
	var err error
	switch s.session.Active {
	case TableEditor:
		err = s.tables.Apply()
	case MenuEditor:
		err = s.menus.Apply()
	default:
		return false
	}
	if err != nil {
		s.fail("Apply failed", err)
		return false
	}
	s.log.InfoContext(s.logCtx(), "changes applied", slog.String("kind", s.session.Active.String()))
	s.reclassify()
	s.notify(Success, "Changes applied.", false)
	return true
}

// Reset restores the active element to its markup from when the editor opened.
func (s *Shell) Reset() bool {
	var err error
	var restored render.Handle
	switch s.session.Active {
	case TableEditor:
		err = s.tables.Reset()
		restored = s.tables.Table()
	case MenuEditor:
		err = s.menus.Reset()
		restored = s.menus.Container()
	default:
		return false
	}
	if err != nil {
		s.fail("Reset failed", err)
		return false
	}
	// The element was replaced; follow it in the registry and selection and
	// keep its editor open.
	active, tbl, mn := s.session.Active, s.tables, s.menus
	s.reg = classify.Classify(s.tree, classify.Options{MinSize: s.opts.MinSize})
	s.track.SetRegistry(s.reg)
	if e, ok := s.reg.Lookup(restored); ok {
		s.track.Select(e)
		s.tables, s.menus = tbl, mn
		s.dispatch(Open{Kind: active})
	} else {
		s.syncFromTracker()
	}
	s.notify(Info, "Original layout restored.", false)
	return true
}

// Undo reverts the last model edit of the active editor.
func (s *Shell) Undo() bool {
	switch s.session.Active {
	case TableEditor:
		return s.tables.Undo()
	case MenuEditor:
		return s.menus.Undo()
	}
	return false
}

// Redo re-applies the last undone model edit.
func (s *Shell) Redo() bool {
	switch s.session.Active {
	case TableEditor:
		return s.tables.Redo()
	case MenuEditor:
		return s.menus.Redo()
	}
	return false
}

// Inspector returns the property inspector of the selected element.
func (s *Shell) Inspector() (*Inspector, bool) {
	if !s.session.HasSelection() {
		return nil, false
	}
	sel := s.session.Selected
	return NewInspector(s.tree, sel.Handle, sel.ID, s.opts.Undo), true
}

// SaveLayout captures the page into the layout collection.
func (s *Shell) SaveLayout(ctx context.Context, name, description string) (domain.Configuration, bool) {
	if s.opts.Layouts == nil {
		return domain.Configuration{}, false
	}
	cfg, err := s.opts.Layouts.SaveCapture(ctx, s.tree, name, description)
	if err != nil {
		s.fail("Saving the layout failed", err)
		return cfg, false
	}
	s.notify(Success, fmt.Sprintf("Layout %q saved.", cfg.Name), false)
	return cfg, true
}

// LoadLayout hands a saved layout to the host.
func (s *Shell) LoadLayout(id string) (domain.Configuration, bool) {
	if s.opts.Layouts == nil {
		return domain.Configuration{}, false
	}
	cfg, err := s.opts.Layouts.Load(id)
	if err != nil {
		s.fail("Loading the layout failed", err)
		return cfg, false
	}
	s.notify(Success, fmt.Sprintf("Layout %q loaded.", cfg.Name), false)
	return cfg, true
}

// DeleteLayout removes a layout after confirmation. Declining is not an error.
func (s *Shell) DeleteLayout(ctx context.Context, id string) bool {
	if s.opts.Layouts == nil {
		return false
	}
	err := s.opts.Layouts.Delete(ctx, id, s.opts.Confirm)
	switch {
	case errors.Is(err, layout.ErrDeclined):
		return false
	case err != nil:
		s.fail("Deleting the layout failed", err)
		return false
	}
	s.notify(Success, "Layout deleted.", false)
	return true
}

// ExportLayout writes a layout file into dir.
func (s *Shell) ExportLayout(id, dir string) (string, bool) {
	if s.opts.Layouts == nil {
		return "", false
	}
	p, err := s.opts.Layouts.ExportFile(id, dir)
	if err != nil {
		s.fail("Export failed", err)
		return "", false
	}
	s.notify(Success, "Layout exported to "+p, false)
	return p, true
}

// ImportLayout imports a layout file. A rejected file raises a blocking notice.
func (s *Shell) ImportLayout(ctx context.Context, path string) (domain.Configuration, bool) {
	if s.opts.Layouts == nil {
		return domain.Configuration{}, false
	}
	cfg, err := s.opts.Layouts.ImportFile(ctx, path)
	var ve *layout.ValidationError
	switch {
	case errors.As(err, &ve), errors.Is(err, layout.ErrMalformed):
		s.log.Warn("import rejected", slog.String("path", path), slog.Any("err", err))
		s.notify(Failure, "Invalid layout file: "+err.Error(), true)
		return cfg, false
	case err != nil:
		s.fail("Import failed", err)
		return cfg, false
	}
	s.notify(Success, fmt.Sprintf("Layout %q imported.", cfg.Name), false)
	return cfg, true
}

// Notices returns and clears the pending notices.
func (s *Shell) Notices() []Notice {
	out := s.notices
	s.notices = nil
	return out
}

func (s *Shell) notify(l Level, msg string, blocking bool) {
	s.notices = append(s.notices, Notice{Level: l, Message: msg, Blocking: blocking})
}

func (s *Shell) fail(msg string, err error) {
	s.log.ErrorContext(s.logCtx(), msg, slog.Any("err", err))
	s.notify(Failure, msg+": "+err.Error(), false)
}

// logCtx tags log records with the selected element id.
func (s *Shell) logCtx() context.Context {
	ctx := context.Background()
	if s.session.HasSelection() {
		ctx = applog.ContextWithTarget(ctx, s.session.Selected.ID)
	}
	return ctx
}
