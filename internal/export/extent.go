/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package export renders saved layouts as printable wireframes (PDF) and
// raster thumbnails (PNG). Neither output is read back by the application.
package export

import (
	"errors"
	"fmt"
	"image/color"
	"math"
	"sort"
	"strings"

	"pagecraft/internal/domain"
)

var (
	// ErrEmpty is returned for a configuration without visible components.
	ErrEmpty = errors.New("export: layout has no visible components")
	// ErrExtent is returned when the covered area cannot be drawn: it is
	// degenerate or not finite.
	ErrExtent = errors.New("export: layout extent out of range")
)

// RGB is an opaque drawing color.
type RGB struct{ R, G, B uint8 }

func (c RGB) rgba() color.RGBA { return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255} }

func (c RGB) zero() bool { return c == RGB{} }

var (
	defaultStroke = RGB{R: 25, G: 118, B: 210}
	defaultFill   = RGB{R: 227, G: 242, B: 253}
	defaultText   = RGB{R: 33, G: 33, B: 33}
)

// extent is the page area covered by the visible components.
type extent struct {
	X, Y, W, H float64
}

func pageExtent(cfg domain.Configuration) (extent, error) {
	var e extent
	first := true
	for _, c := range cfg.Components {
		if !c.Visible || c.Size.Width <= 0 || c.Size.Height <= 0 {
			continue
		}
		x0, y0 := c.Position.X, c.Position.Y
		x1, y1 := x0+c.Size.Width, y0+c.Size.Height
		if first {
			e = extent{X: x0, Y: y0, W: x1 - x0, H: y1 - y0}
			first = false
			continue
		}
		ex1, ey1 := e.X+e.W, e.Y+e.H
		if x0 < e.X {
			e.X = x0
		}
		if y0 < e.Y {
			e.Y = y0
		}
		if x1 > ex1 {
			ex1 = x1
		}
		if y1 > ey1 {
			ey1 = y1
		}
		e.W, e.H = ex1-e.X, ey1-e.Y
	}
	if first {
		return extent{}, ErrEmpty
	}
	for _, v := range []float64{e.X, e.Y, e.W, e.H} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return extent{}, ErrExtent
		}
	}
	if e.W <= 0 || e.H <= 0 {
		return extent{}, ErrExtent
	}
	return e, nil
}

// paintOrder returns the visible components sorted by z-index, lowest first.
func paintOrder(cfg domain.Configuration) []domain.ComponentLayout {
	out := make([]domain.ComponentLayout, 0, len(cfg.Components))
	for _, c := range cfg.Components {
		if c.Visible && c.Size.Width > 0 && c.Size.Height > 0 {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

func label(c domain.ComponentLayout) string {
	if s := strings.TrimSpace(c.Name); s != "" {
		return s
	}
	if c.Type != "" {
		return fmt.Sprintf("%s (%s)", c.ID, c.Type)
	}
	return c.ID
}

// summaryLines lists tables, menus and theme of cfg for the report page.
func summaryLines(cfg domain.Configuration) []string {
	var out []string
	out = append(out, fmt.Sprintf("Layout: %s (%s)", cfg.Name, cfg.ID))
	if !cfg.CreatedAt.IsZero() {
		out = append(out, "Created: "+cfg.CreatedAt.UTC().Format("2006-01-02 15:04:05 UTC"))
	}
	if cfg.Description != "" {
		out = append(out, cfg.Description)
	}
	out = append(out, "")
	for _, t := range cfg.Tables {
		cols := append([]domain.ColumnConfig(nil), t.Columns...)
		sort.SliceStable(cols, func(i, j int) bool { return cols[i].Order < cols[j].Order })
		out = append(out, fmt.Sprintf("Table %s: %d columns", t.ID, len(cols)))
		for _, c := range cols {
			vis := ""
			if !c.Visible {
				vis = " [hidden]"
			}
			out = append(out, fmt.Sprintf("  %d. %s  %gpx%s", c.Order+1, c.Title, c.Width, vis))
		}
	}
	for _, m := range cfg.Menus {
		pos := m.Position
		if pos == "" {
			pos = "left"
		}
		out = append(out, fmt.Sprintf("Menu %s (%s)", m.ID, pos))
		out = appendItems(out, m.Items, 1)
	}
	g := cfg.GlobalStyles
	out = append(out, "", fmt.Sprintf("Theme %s, primary %s, secondary %s, font %s %s",
		g.Theme, g.PrimaryColor, g.SecondaryColor, g.FontSize, g.FontFamily))
	return out
}

func appendItems(out []string, items []domain.MenuItem, depth int) []string {
	for _, it := range items {
		flags := ""
		if !it.Visible {
			flags += " [hidden]"
		}
		if it.Disabled {
			flags += " [disabled]"
		}
		out = append(out, fmt.Sprintf("%s- %s%s", strings.Repeat("  ", depth), it.Label, flags))
		out = appendItems(out, it.Children, depth+1)
	}
	return out
}
