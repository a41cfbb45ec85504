/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/jung-kurt/gofpdf"

	"pagecraft/internal/domain"
)

// PDFOptions controls the wireframe export.
// Units are points; one CSS pixel maps to one point before scaling.
//
// The first page shows every visible component as a labelled box, scaled to
// fit the page. With Summary set, a second page lists tables, menus and the
// theme.
type PDFOptions struct {
	PageWidth  float64 // 0 means A4 landscape
	PageHeight float64
	Margin     float64 // 0 means 36pt
	Summary    bool
	Stroke     RGB
	Fill       RGB
	Text       RGB
}

func (o PDFOptions) withDefaults() PDFOptions {
	if o.PageWidth <= 0 || o.PageHeight <= 0 {
		o.PageWidth, o.PageHeight = 842, 595
	}
	if o.Margin <= 0 {
		o.Margin = 36
	}
	if o.Stroke.zero() {
		o.Stroke = defaultStroke
	}
	if o.Fill.zero() {
		o.Fill = defaultFill
	}
	if o.Text.zero() {
		o.Text = defaultText
	}
	return o
}

// WireframePDF writes cfg as a wireframe PDF to outPath.
func WireframePDF(cfg domain.Configuration, outPath string, opt PDFOptions) error {
	pdf, err := wireframe(cfg, opt)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	if err := pdf.OutputFileAndClose(outPath); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

func wireframe(cfg domain.Configuration, opt PDFOptions) (*gofpdf.Fpdf, error) {
	ext, err := pageExtent(cfg)
	if err != nil {
		return nil, err
	}
	opt = opt.withDefaults()

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: opt.PageWidth, Ht: opt.PageHeight},
	})
	pdf.SetTitle(fmt.Sprintf("%s - layout wireframe", cfg.Name), true)
	pdf.SetAuthor("pagecraft", false)
	pdf.SetAutoPageBreak(false, 0)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.AddPage()
	availW := opt.PageWidth - 2*opt.Margin
	availH := opt.PageHeight - 2*opt.Margin
	scale := availW / ext.W
	if s := availH / ext.H; s < scale {
		scale = s
	}

	pdf.SetLineWidth(0.75)
	for _, c := range paintOrder(cfg) {
		x := opt.Margin + (c.Position.X-ext.X)*scale
		y := opt.Margin + (c.Position.Y-ext.Y)*scale
		w, h := c.Size.Width*scale, c.Size.Height*scale
		pdf.SetDrawColor(int(opt.Stroke.R), int(opt.Stroke.G), int(opt.Stroke.B))
		pdf.SetFillColor(int(opt.Fill.R), int(opt.Fill.G), int(opt.Fill.B))
		pdf.Rect(x, y, w, h, "FD")

		fs := 9.0
		if h < fs+4 {
			continue
		}
		pdf.SetFont("Helvetica", "", fs)
		pdf.SetTextColor(int(opt.Text.R), int(opt.Text.G), int(opt.Text.B))
		pdf.ClipRect(x, y, w, h, false)
		pdf.Text(x+3, y+fs+1, tr(label(c)))
		pdf.ClipEnd()
	}

	if opt.Summary {
		pdf.AddPage()
		pdf.SetTextColor(int(opt.Text.R), int(opt.Text.G), int(opt.Text.B))
		y := opt.Margin
		for i, line := range summaryLines(cfg) {
			size := 10.0
			if i == 0 {
				size = 14
			}
			if y+size > opt.PageHeight-opt.Margin {
				pdf.AddPage()
				y = opt.Margin
			}
			pdf.SetFont("Helvetica", "", size)
			y += size * 1.3
			pdf.Text(opt.Margin, y, tr(line))
		}
	}
	return pdf, pdf.Error()
}
