/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package tables

import (
	"fmt"
	"strings"
	"unicode"

	"pagecraft/internal/render"
)

// Extraction defaults.
const (
	DefaultMinWidth = 50
	DefaultMaxWidth = 500
	FallbackWidth   = 150
)

// AttrColID stamps each cell with the id of the column it belongs to.
const AttrColID = "data-col-id"

// Column describes one table column. Order is the render position and is
// always equal to the column's index in the model list.
type Column struct {
	ID        string  `json:"id"`
	Key       string  `json:"key"`
	Title     string  `json:"title"`
	Width     float64 `json:"width"`
	MinWidth  float64 `json:"minWidth"`
	MaxWidth  float64 `json:"maxWidth"`
	Resizable bool    `json:"resizable"`
	Sortable  bool    `json:"sortable"`
	Visible   bool    `json:"visible"`
	Order     int     `json:"order"`
}

// Limits bounds column widths.
type Limits struct {
	MinWidth float64
	MaxWidth float64
}

func (l Limits) normalized() Limits {
	if l.MinWidth <= 0 {
		l.MinWidth = DefaultMinWidth
	}
	if l.MaxWidth <= 0 {
		l.MaxWidth = DefaultMaxWidth
	}
	if l.MaxWidth < l.MinWidth {
		l.MaxWidth = l.MinWidth
	}
	return l
}

// HeaderRow returns the first header row of table: thead tr, else the first tr.
func HeaderRow(t render.Tree, table render.Handle) render.Handle {
	rows := Rows(t, table)
	for _, r := range rows {
		if t.Tag(t.Parent(r)) == "thead" {
			return r
		}
	}
	if len(rows) == 0 {
		return render.None
	}
	return rows[0]
}

// Rows returns the tr elements owned by table. Rows of nested tables are
// left out.
func Rows(t render.Tree, table render.Handle) []render.Handle {
	var out []render.Handle
	for _, r := range render.QueryAll(t, table, "tr") {
		if ownerTable(t, r) == table {
			out = append(out, r)
		}
	}
	return out
}

func ownerTable(t render.Tree, h render.Handle) render.Handle {
	for p := t.Parent(h); p != render.None; p = t.Parent(p) {
		if t.Tag(p) == "table" {
			return p
		}
	}
	return render.None
}

// Cells returns the th/td children of a row.
func Cells(t render.Tree, row render.Handle) []render.Handle {
	var out []render.Handle
	for _, c := range t.Children(row) {
		switch t.Tag(c) {
		case "th", "td":
			out = append(out, c)
		}
	}
	return out
}

// ExtractColumns reads the column model from the header row of table.
func ExtractColumns(t render.Tree, table render.Handle, lim Limits) []Column {
	lim = lim.normalized()
	head := HeaderRow(t, table)
	if head == render.None {
		return nil
	}
	cells := Cells(t, head)
	cols := make([]Column, 0, len(cells))
	for i, c := range cells {
		title := strings.TrimSpace(t.Text(c))
		w := t.Bounds(c).W
		if w <= 0 {
			w = FallbackWidth
		}
		key := render.AttrOr(t, c, "data-key", "")
		if key == "" {
			key = slug(title)
		}
		if key == "" {
			key = fmt.Sprintf("column_%d", i)
		}
		cols = append(cols, Column{
			ID:        fmt.Sprintf("col-%d", i),
			Key:       key,
			Title:     title,
			Width:     w,
			MinWidth:  lim.MinWidth,
			MaxWidth:  lim.MaxWidth,
			Resizable: render.AttrOr(t, c, "data-resizable", "") != "false",
			Sortable:  render.HasAttr(t, c, "data-sortable"),
			Visible:   true,
			Order:     i,
		})
	}
	return cols
}

func slug(s string) string {
	var b strings.Builder
	lastSep := false
	for _, r := range strings.ToLower(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			lastSep = false
			continue
		}
		if b.Len() > 0 && !lastSep {
			b.WriteByte('_')
			lastSep = true
		}
	}
	return strings.TrimSuffix(b.String(), "_")
}

// renumber rewrites Order from list position.
func renumber(cols []Column) {
	for i := range cols {
		cols[i].Order = i
	}
}

func indexOf(cols []Column, id string) int {
	for i, c := range cols {
		if c.ID == id {
			return i
		}
	}
	return -1
}
