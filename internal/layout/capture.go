/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package layout

import (
	"fmt"
	"strconv"
	"strings"

	"pagecraft/internal/classify"
	"pagecraft/internal/domain"
	"pagecraft/internal/geom"
	"pagecraft/internal/menus"
	"pagecraft/internal/render"
	"pagecraft/internal/tables"
)

// Capture selectors.
const (
	SelectableSelector = "[data-selectable]"
	MenuSelector       = "nav, [class*=menu], [class*=sidebar]"
)

// StyleProps is the whitelist of computed properties stored per component.
var StyleProps = []string{
	"background-color", "color", "font-size", "font-family", "font-weight",
	"padding", "margin", "border", "border-radius", "box-shadow",
	"display", "position", "width", "height", "opacity",
}

// RootProps maps the root custom properties onto GlobalStyles fields.
var RootProps = []string{
	"--theme", "--primary-color", "--secondary-color", "--font-size",
	"--font-family", "--border-radius", "--spacing",
}

// Capture snapshots the page into a configuration without id or timestamp;
// Manager.Save assigns those.
func Capture(t render.Tree, name, description string) domain.Configuration {
	return domain.Configuration{
		Name:         name,
		Description:  description,
		Version:      domain.SchemaVersion,
		Components:   captureComponents(t),
		Tables:       captureTables(t),
		Menus:        captureMenus(t),
		GlobalStyles: captureGlobalStyles(t),
	}
}

func captureComponents(t render.Tree) []domain.ComponentLayout {
	scroll := t.Scroll()
	out := []domain.ComponentLayout{}
	for i, h := range render.QueryAll(t, t.Root(), SelectableSelector) {
		b := t.Bounds(h).Translate(scroll)
		c := domain.ComponentLayout{
			ID:       componentID(t, h, i),
			Type:     render.AttrOr(t, h, "data-type", t.Tag(h)),
			Name:     classify.DisplayName(t, h),
			Position: domain.Position{X: geom.Round(b.X, 2), Y: geom.Round(b.Y, 2)},
			Size:     domain.Size{Width: geom.Round(b.W, 2), Height: geom.Round(b.H, 2)},
			Visible:  t.Rendered(h),
			ZIndex:   zIndex(t.Style(h, "z-index")),
		}
		for _, p := range StyleProps {
			if v := strings.TrimSpace(t.Style(h, p)); v != "" {
				if c.Styles == nil {
					c.Styles = map[string]string{}
				}
				c.Styles[p] = v
			}
		}
		out = append(out, c)
	}
	return out
}

func componentID(t render.Tree, h render.Handle, i int) string {
	for _, a := range []string{"id", "data-id"} {
		if v := strings.TrimSpace(render.AttrOr(t, h, a, "")); v != "" {
			return v
		}
	}
	return fmt.Sprintf("component-%d", i)
}

func zIndex(v string) int {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil {
		return 0
	}
	return n
}

func captureTables(t render.Tree) []domain.TableLayout {
	out := []domain.TableLayout{}
	for i, h := range render.QueryAll(t, t.Root(), "table") {
		tl := domain.TableLayout{
			ID:         render.AttrOr(t, h, "id", fmt.Sprintf("table-%d", i)),
			Columns:    []domain.ColumnConfig{},
			Sort:       domain.SortState{Direction: "none"},
			Pagination: domain.Pagination{Page: 1, PageSize: 10},
		}
		for _, c := range tables.ExtractColumns(t, h, tables.Limits{}) {
			tl.Columns = append(tl.Columns, domain.ColumnConfig{
				ID: c.ID, Key: c.Key, Title: c.Title, Width: c.Width,
				Visible: c.Visible, Sortable: c.Sortable, Order: c.Order,
			})
		}
		out = append(out, tl)
	}
	return out
}

// captureMenus records every menu container that is not nested in another.
func captureMenus(t render.Tree) []domain.MenuLayout {
	out := []domain.MenuLayout{}
	var taken []render.Handle
	for i, h := range render.QueryAll(t, t.Root(), MenuSelector) {
		nested := false
		for _, p := range taken {
			if render.Contains(t, p, h) {
				nested = true
				break
			}
		}
		if nested {
			continue
		}
		taken = append(taken, h)
		out = append(out, domain.MenuLayout{
			ID:       render.AttrOr(t, h, "id", fmt.Sprintf("menu-%d", i)),
			Items:    MenuItems(menus.Extract(t, h)),
			Position: render.AttrOr(t, h, "data-position", "left"),
		})
	}
	return out
}

// MenuItems converts an editor tree into its persisted form.
func MenuItems(items []*menus.Item) []domain.MenuItem {
	if len(items) == 0 {
		return nil
	}
	out := make([]domain.MenuItem, 0, len(items))
	for _, it := range items {
		out = append(out, domain.MenuItem{
			ID: it.ID, Label: it.Label, Icon: it.Icon, URL: it.URL,
			Children: MenuItems(it.Children),
			Order:    it.Order, Visible: it.Visible, Disabled: it.Disabled, Level: it.Level,
		})
	}
	return out
}

func captureGlobalStyles(t render.Tree) domain.GlobalStyles {
	g := domain.DefaultGlobalStyles()
	fields := []*string{&g.Theme, &g.PrimaryColor, &g.SecondaryColor, &g.FontSize,
		&g.FontFamily, &g.BorderRadius, &g.Spacing}
	root := t.Root()
	for i, p := range RootProps {
		if v := strings.TrimSpace(t.Style(root, p)); v != "" {
			*fields[i] = v
		}
	}
	return g
}
