/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany..
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package domain

import "time"

// This file defines the persisted layout model. A Configuration serializes to
// the portable JSON document exchanged through export and import, so field
// names follow the camelCase wire format.

// SchemaVersion is written into every saved configuration.
const SchemaVersion = "1.0.0"

// Configuration is one saved page layout.
type Configuration struct {
	ID           string            `json:"id" validate:"required"`
	Name         string            `json:"name" validate:"required"`
	Description  string            `json:"description,omitempty"`
	CreatedAt    time.Time         `json:"createdAt"`
	Version      string            `json:"version"`
	Components   []ComponentLayout `json:"components" validate:"required,dive"`
	Tables       []TableLayout     `json:"tables" validate:"dive"`
	Menus        []MenuLayout      `json:"menus" validate:"dive"`
	GlobalStyles GlobalStyles      `json:"globalStyles"`
}

// Position is a page coordinate in CSS pixels.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is a box size in CSS pixels.
type Size struct {
	Width  float64 `json:"width" validate:"gte=0"`
	Height float64 `json:"height" validate:"gte=0"`
}

// ComponentLayout is the captured state of one [data-selectable] element.
type ComponentLayout struct {
	ID       string            `json:"id" validate:"required"`
	Type     string            `json:"type"`
	Name     string            `json:"name,omitempty"`
	Position Position          `json:"position"`
	Size     Size              `json:"size"`
	Styles   map[string]string `json:"styles,omitempty"`
	Visible  bool              `json:"visible"`
	ZIndex   int               `json:"zIndex"`
}

// ColumnConfig is one persisted table column.
type ColumnConfig struct {
	ID       string  `json:"id" validate:"required"`
	Key      string  `json:"key,omitempty"`
	Title    string  `json:"title"`
	Width    float64 `json:"width" validate:"gte=0"`
	Visible  bool    `json:"visible"`
	Sortable bool    `json:"sortable"`
	Order    int     `json:"order" validate:"gte=0"`
}

// SortState records the active sort of a table; Direction is none, asc or desc.
type SortState struct {
	Column    string `json:"column,omitempty"`
	Direction string `json:"direction" validate:"omitempty,oneof=none asc desc"`
}

// Pagination records the pager of a table.
type Pagination struct {
	Page     int `json:"page" validate:"gte=0"`
	PageSize int `json:"pageSize" validate:"gte=0"`
}

// TableLayout is the captured state of one table.
type TableLayout struct {
	ID         string            `json:"id" validate:"required"`
	Columns    []ColumnConfig    `json:"columns" validate:"dive"`
	Sort       SortState         `json:"sort"`
	Filters    map[string]string `json:"filters,omitempty"`
	Pagination Pagination        `json:"pagination"`
}

// MenuItem is one persisted menu entry.
type MenuItem struct {
	ID       string     `json:"id" validate:"required"`
	Label    string     `json:"label"`
	Icon     string     `json:"icon,omitempty"`
	URL      string     `json:"url,omitempty"`
	Children []MenuItem `json:"children,omitempty" validate:"dive"`
	Order    int        `json:"order"`
	Visible  bool       `json:"visible"`
	Disabled bool       `json:"disabled"`
	Level    int        `json:"level"`
}

// MenuLayout is the captured state of one menu container.
type MenuLayout struct {
	ID        string     `json:"id" validate:"required"`
	Items     []MenuItem `json:"items" validate:"dive"`
	Collapsed bool       `json:"collapsed"`
	Position  string     `json:"position,omitempty"`
}

// GlobalStyles is the page-wide theme read from root custom properties.
type GlobalStyles struct {
	Theme          string `json:"theme"`
	PrimaryColor   string `json:"primaryColor"`
	SecondaryColor string `json:"secondaryColor"`
	FontSize       string `json:"fontSize"`
	FontFamily     string `json:"fontFamily"`
	BorderRadius   string `json:"borderRadius"`
	Spacing        string `json:"spacing"`
}

// DefaultGlobalStyles fills properties the page does not define.
func DefaultGlobalStyles() GlobalStyles {
	return GlobalStyles{
		Theme:          "light",
		PrimaryColor:   "#1976d2",
		SecondaryColor: "#dc004e",
		FontSize:       "14px",
		FontFamily:     "Roboto, sans-serif",
		BorderRadius:   "4px",
		Spacing:        "8px",
	}
}

// Summary is the list view of a configuration.
type Summary struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CreatedAt  time.Time `json:"createdAt"`
	Components int       `json:"components"`
	Tables     int       `json:"tables"`
	Menus      int       `json:"menus"`
}

// Summarize returns the list view of c.
func (c Configuration) Summarize() Summary {
	return Summary{ID: c.ID, Name: c.Name, CreatedAt: c.CreatedAt,
		Components: len(c.Components), Tables: len(c.Tables), Menus: len(c.Menus)}
}
