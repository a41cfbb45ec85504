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
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"pagecraft/internal/editor"
	"pagecraft/internal/geom"
	"pagecraft/internal/tracker"
)

// PreviewCanvas draws the classified elements of the page with the hover and
// selection overlays, and forwards pointer input to the shell.
type PreviewCanvas struct {
	widget.BaseWidget
	shell   *editor.Shell
	zoom    float32
	offsetX float32
	offsetY float32

	// OnChange fires after input changed the session.
	OnChange func()
}

var (
	_ fyne.Tappable     = (*PreviewCanvas)(nil)
	_ desktop.Hoverable = (*PreviewCanvas)(nil)
	_ fyne.Scrollable   = (*PreviewCanvas)(nil)
)

func NewPreviewCanvas(s *editor.Shell) *PreviewCanvas {
	pc := &PreviewCanvas{shell: s, zoom: 0.75, offsetX: 16, offsetY: 16}
	pc.ExtendBaseWidget(pc)
	return pc
}

func (p *PreviewCanvas) toScreen(pt geom.Pt) fyne.Position {
	return fyne.NewPos(p.offsetX+float32(pt.X)*p.zoom, p.offsetY+float32(pt.Y)*p.zoom)
}

func (p *PreviewCanvas) toPage(pos fyne.Position) geom.Pt {
	return geom.Pt{X: float64((pos.X - p.offsetX) / p.zoom), Y: float64((pos.Y - p.offsetY) / p.zoom)}
}

// Tapped selects the element under the pointer.
func (p *PreviewCanvas) Tapped(e *fyne.PointEvent) {
	p.shell.Click(p.toPage(e.Position))
	p.changed()
}

func (p *PreviewCanvas) MouseIn(e *desktop.MouseEvent) { p.MouseMoved(e) }

func (p *PreviewCanvas) MouseMoved(e *desktop.MouseEvent) {
	before := p.shell.Session().Hovered.Handle
	p.shell.PointerMove(p.toPage(e.Position))
	if p.shell.Session().Hovered.Handle != before {
		p.Refresh()
	}
}

func (p *PreviewCanvas) MouseOut() {
	p.shell.PointerMove(geom.Pt{X: -1, Y: -1})
	p.Refresh()
}

// Scrolled zooms; the page re-lays out but classification stays as is.
func (p *PreviewCanvas) Scrolled(e *fyne.ScrollEvent) {
	p.zoom += float32(e.Scrolled.DY) * 0.05
	if p.zoom < 0.1 {
		p.zoom = 0.1
	}
	if p.zoom > 4.0 {
		p.zoom = 4.0
	}
	p.Refresh()
}

func (p *PreviewCanvas) changed() {
	if p.OnChange != nil {
		p.OnChange()
		return
	}
	p.Refresh()
}

func (p *PreviewCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 245, G: 245, B: 247, A: 255})
	hover := newOverlayRect(color.RGBA{R: 25, G: 118, B: 210, A: 255}, color.RGBA{R: 25, G: 118, B: 210, A: 30})
	sel := newOverlayRect(color.RGBA{R: 220, G: 0, B: 78, A: 255}, color.RGBA{R: 220, G: 0, B: 78, A: 30})
	sel.StrokeWidth = 2
	label := canvas.NewText("", color.RGBA{R: 220, G: 0, B: 78, A: 255})
	label.TextSize = 11
	return &previewRenderer{pc: p, bg: bg, hover: hover, sel: sel, label: label}
}

func newOverlayRect(stroke, fill color.Color) *canvas.Rectangle {
	r := canvas.NewRectangle(fill)
	r.StrokeColor = stroke
	r.StrokeWidth = 1
	r.Hide()
	return r
}

type previewRenderer struct {
	pc         *PreviewCanvas
	bg         *canvas.Rectangle
	boxes      []*canvas.Rectangle
	hover, sel *canvas.Rectangle
	label      *canvas.Text
}

func (r *previewRenderer) Destroy()           {}
func (r *previewRenderer) MinSize() fyne.Size { return fyne.NewSize(400, 300) }
func (r *previewRenderer) Refresh()           { r.Layout(r.pc.Size()); canvas.Refresh(r.pc) }

func (r *previewRenderer) Objects() []fyne.CanvasObject {
	objs := []fyne.CanvasObject{r.bg}
	for _, b := range r.boxes {
		objs = append(objs, b)
	}
	return append(objs, r.hover, r.sel, r.label)
}

func (r *previewRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))

	var elems []geom.Rect
	if reg := r.pc.shell.Registry(); reg != nil {
		for _, e := range reg.All() {
			elems = append(elems, e.Bounds)
		}
	}
	for len(r.boxes) < len(elems) {
		b := canvas.NewRectangle(color.White)
		b.StrokeColor = color.RGBA{R: 120, G: 120, B: 120, A: 255}
		b.StrokeWidth = 1
		r.boxes = append(r.boxes, b)
	}
	for i, b := range r.boxes {
		if i >= len(elems) {
			b.Hide()
			continue
		}
		r.place(b, elems[i])
		b.Show()
	}

	tr := r.pc.shell.Tracker()
	r.overlay(r.hover, tr.HoverOverlay())
	so := tr.SelectionOverlay()
	r.overlay(r.sel, so)
	if so.Visible {
		r.label.Text = so.Label
		r.label.Move(r.pc.toScreen(geom.Pt{X: so.Rect.X, Y: so.Rect.Y - 16}))
		r.label.Show()
	} else {
		r.label.Hide()
	}
	r.label.Refresh()
}

func (r *previewRenderer) overlay(rc *canvas.Rectangle, o tracker.Overlay) {
	if !o.Visible {
		rc.Hide()
		return
	}
	r.place(rc, o.Rect)
	rc.Show()
}

func (r *previewRenderer) place(rc *canvas.Rectangle, b geom.Rect) {
	p0 := r.pc.toScreen(b.Min())
	p1 := r.pc.toScreen(b.Max())
	rc.Move(p0)
	rc.Resize(fyne.NewSize(p1.X-p0.X, p1.Y-p0.Y))
	rc.Refresh()
}
