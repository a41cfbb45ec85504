//go:build fyne && cgo

/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"pagecraft/internal/crash"
	"pagecraft/internal/domain"
	"pagecraft/internal/editor"
	applog "pagecraft/internal/log"
	"pagecraft/internal/render/htmltree"
	"pagecraft/internal/telemetry"
)

// Run starts the desktop editor on the page at opts.Page.
func Run(opts Options) error {
	l := applog.WithComponent("ui")
	l.Info("starting UI", slog.String("page", opts.Page))
	defer crash.Recover(&crash.Rescue{Dir: opts.DataDir, Layouts: opts.Layouts})

	tree, err := loadPage(opts.Page)
	if err != nil {
		return err
	}

	fyneApp := app.NewWithID("pagecraft")
	if th := themeFor(opts.Theme); th != nil {
		fyneApp.Settings().SetTheme(th)
	}
	w := fyneApp.NewWindow("Pagecraft")
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1280)
	winH := prefs.IntWithFallback("window.height", 800)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	// Deletes are confirmed by a dialog first; the shell's synchronous
	// confirmation then only reads the answer.
	confirmed := false
	shell := editor.NewShell(tree, editor.Options{
		MinSize: opts.MinSize,
		Limits:  opts.Limits,
		Undo:    opts.Undo,
		Layouts: opts.Layouts,
		Confirm: func(domain.Configuration) bool { return confirmed },
	})

	status := widget.NewLabel("Ready")
	preview := NewPreviewCanvas(shell)
	inspector := newInspectorPanel()
	editorPanel := container.NewVBox()

	var refresh func()
	flush := func() {
		for _, n := range shell.Notices() {
			switch {
			case n.Blocking:
				dialog.ShowError(fmt.Errorf("%s", n.Message), w)
			default:
				status.SetText(string(n.Level) + ": " + n.Message)
			}
		}
	}
	refresh = func() {
		preview.Refresh()
		inspector.bind(shell, flush)
		rebuildEditorPanel(editorPanel, shell, func() { refresh() })
		flush()
	}
	preview.OnChange = refresh

	activate := widget.NewCheck("Edit mode", func(on bool) {
		if on {
			n := shell.Activate()
			telemetry.Event(telemetry.EventEditorActivated, map[string]any{"elements": n})
			l.Info("edit mode on", slog.Int("elements", n))
		} else {
			shell.Deactivate()
		}
		refresh()
	})

	ctx := context.Background()
	toolbar := widget.NewToolbar(
		widget.NewToolbarAction(theme.DocumentCreateIcon(), func() {
			kind, ok := shell.OpenEditor()
			if ok {
				telemetry.Event(telemetry.EventEditorOpened, map[string]any{"kind": kind.String()})
			}
			refresh()
		}),
		widget.NewToolbarAction(theme.ConfirmIcon(), func() { shell.Apply(); refresh() }),
		widget.NewToolbarAction(theme.ViewRefreshIcon(), func() { shell.Reset(); refresh() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { shell.Undo(); refresh() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { shell.Redo(); refresh() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), func() {
			name := widget.NewEntry()
			desc := widget.NewEntry()
			dialog.ShowForm("Save layout", "Save", "Cancel", []*widget.FormItem{
				widget.NewFormItem("Name", name),
				widget.NewFormItem("Description", desc),
			}, func(ok bool) {
				if !ok {
					return
				}
				if _, saved := shell.SaveLayout(ctx, name.Text, desc.Text); saved {
					telemetry.Event(telemetry.EventLayoutSaved, nil)
				}
				refresh()
			}, w)
		}),
		widget.NewToolbarAction(theme.FolderOpenIcon(), func() {
			showLayouts(ctx, w, shell, opts, &confirmed, refresh)
		}),
	)

	if opts.Layouts == nil {
		status.SetText("Layouts are not available: no store configured")
	}

	right := container.NewVScroll(container.NewVBox(
		widget.NewLabelWithStyle("Editor", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		editorPanel,
		widget.NewSeparator(),
		widget.NewLabelWithStyle("Properties", fyne.TextAlignLeading, fyne.TextStyle{Bold: true}),
		inspector.box,
	))
	split := container.NewHSplit(preview, right)
	split.Offset = 0.7
	w.SetContent(container.NewBorder(container.NewHBox(activate, toolbar), status, nil, nil, split))
	w.SetOnClosed(func() {
		sz := w.Canvas().Size()
		prefs.SetInt("window.width", int(sz.Width))
		prefs.SetInt("window.height", int(sz.Height))
	})
	refresh()
	w.ShowAndRun()
	return nil
}

func loadPage(path string) (*htmltree.Tree, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("no page given; capture one with: pagecraft capture <url> <out.html>")
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return htmltree.Parse(f)
}

// rebuildEditorPanel lists the columns or items of the active editor.
func rebuildEditorPanel(box *fyne.Container, s *editor.Shell, changed func()) {
	box.Objects = nil
	switch s.Session().Active {
	case editor.TableEditor:
		cols := s.Tables().Columns()
		for i, c := range cols {
			c := c
			title := widget.NewEntry()
			title.SetText(c.Title)
			title.OnSubmitted = func(v string) { s.Tables().SetTitle(c.ID, v); changed() }
			width := widget.NewEntry()
			width.SetText(strconv.FormatFloat(c.Width, 'f', 0, 64))
			width.OnSubmitted = func(v string) {
				if f, err := strconv.ParseFloat(v, 64); err == nil {
					s.Tables().SetWidth(c.ID, f)
					changed()
				}
			}
			vis := widget.NewCheck("", func(on bool) { s.Tables().SetVisible(c.ID, on); changed() })
			vis.Checked = c.Visible
			up := widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() {
				if i > 0 {
					s.Tables().Move(c.ID, cols[i-1].ID)
					changed()
				}
			})
			box.Add(container.NewBorder(nil, nil, container.NewHBox(vis, up), width, title))
		}
	case editor.MenuEditor:
		items := s.Menus().Items()
		for i, it := range items {
			it := it
			label := widget.NewEntry()
			label.SetText(it.Label)
			label.OnSubmitted = func(v string) {
				s.Menus().Update(it.ID, menusPatchLabel(v))
				changed()
			}
			up := widget.NewButtonWithIcon("", theme.MoveUpIcon(), func() {
				if i > 0 {
					s.Menus().Move(it.ID, items[i-1].ID, false)
					changed()
				}
			})
			box.Add(container.NewBorder(nil, nil, up, widget.NewLabel(fmt.Sprintf("%d sub", len(it.Children))), label))
		}
	default:
		box.Add(widget.NewLabel("Select a table or menu and open its editor."))
	}
	box.Refresh()
}

// showLayouts lists saved layouts with load, export, import and delete.
func showLayouts(ctx context.Context, w fyne.Window, s *editor.Shell, opts Options, confirmed *bool, refresh func()) {
	if opts.Layouts == nil {
		return
	}
	items := opts.Layouts.List()
	selected := -1
	list := widget.NewList(
		func() int { return len(items) },
		func() fyne.CanvasObject { return widget.NewLabel("") },
		func(i widget.ListItemID, o fyne.CanvasObject) {
			it := items[i]
			o.(*widget.Label).SetText(fmt.Sprintf("%s  (%s, %d components)", it.Name, it.CreatedAt.Local().Format("2006-01-02 15:04"), it.Components))
		},
	)
	list.OnSelected = func(id widget.ListItemID) { selected = int(id) }
	var d dialog.Dialog
	pick := func(fn func(id string)) func() {
		return func() {
			if selected >= 0 && selected < len(items) {
				fn(items[selected].ID)
			}
		}
	}
	buttons := container.NewHBox(
		widget.NewButton("Load", pick(func(id string) {
			if _, ok := s.LoadLayout(id); ok {
				telemetry.Event(telemetry.EventLayoutLoaded, nil)
			}
			d.Hide()
			refresh()
		})),
		widget.NewButton("Export", pick(func(id string) {
			dialog.ShowFolderOpen(func(dir fyne.ListableURI, err error) {
				if err != nil || dir == nil {
					return
				}
				s.ExportLayout(id, dir.Path())
				refresh()
			}, w)
		})),
		widget.NewButton("Import", func() {
			dialog.ShowFileOpen(func(rc fyne.URIReadCloser, err error) {
				if err != nil || rc == nil {
					return
				}
				p := rc.URI().Path()
				_ = rc.Close()
				s.ImportLayout(ctx, p)
				d.Hide()
				refresh()
			}, w)
		}),
		widget.NewButton("Delete", pick(func(id string) {
			dialog.ShowConfirm("Delete layout", "Delete this layout? This cannot be undone.", func(ok bool) {
				*confirmed = ok
				s.DeleteLayout(ctx, id)
				*confirmed = false
				d.Hide()
				refresh()
			}, w)
		})),
	)
	content := container.NewBorder(nil, buttons, nil, nil, list)
	d = dialog.NewCustom("Layouts", "Close", content, w)
	d.Resize(fyne.NewSize(520, 400))
	d.Show()
}
