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
	"errors"
	"fmt"
	"strconv"
	"strings"

	"pagecraft/internal/render"
	"pagecraft/internal/undo"
)

var (
	// ErrProperty is returned for a property outside the whitelist.
	ErrProperty = errors.New("inspector: property not editable")
	// ErrValue is returned for a value that could escape its declaration.
	ErrValue = errors.New("inspector: invalid value")
)

// Group is a section of the property panel.
type Group string

const (
	Spacing    Group = "spacing"
	Color      Group = "color"
	Typography Group = "typography"
	Transform  Group = "transform"
	Shadow     Group = "shadow"
)

// Properties lists the editable style properties per group.
var Properties = map[Group][]string{
	Spacing: {"margin", "margin-top", "margin-right", "margin-bottom", "margin-left",
		"padding", "padding-top", "padding-right", "padding-bottom", "padding-left"},
	Color:      {"color", "background-color", "border-color"},
	Typography: {"font-size", "font-family", "font-weight", "line-height", "text-align", "letter-spacing"},
	Transform:  {"transform"},
	Shadow:     {"box-shadow"},
}

// Groups is the panel order.
var Groups = []Group{Spacing, Color, Typography, Transform, Shadow}

var editable = func() map[string]bool {
	m := map[string]bool{}
	for _, props := range Properties {
		for _, p := range props {
			m[p] = true
		}
	}
	return m
}()

// Transform2D is the composed transform of the transform group.
type Transform2D struct {
	TranslateX, TranslateY float64 // px
	Rotate                 float64 // deg
	Scale                  float64 // 0 means 1
}

// CSS renders t as a transform value.
func (t Transform2D) CSS() string {
	s := t.Scale
	if s == 0 {
		s = 1
	}
	return fmt.Sprintf("translate(%spx, %spx) rotate(%sdeg) scale(%s)",
		num(t.TranslateX), num(t.TranslateY), num(t.Rotate), num(s))
}

// BoxShadow is the composed value of the shadow group.
type BoxShadow struct {
	X, Y, Blur, Spread float64
	Color              string
}

// CSS renders b as a box-shadow value.
func (b BoxShadow) CSS() string {
	c := strings.TrimSpace(b.Color)
	if c == "" {
		c = "rgba(0, 0, 0, 0.2)"
	}
	return fmt.Sprintf("%spx %spx %spx %spx %s", num(b.X), num(b.Y), num(b.Blur), num(b.Spread), c)
}

func num(f float64) string { return strconv.FormatFloat(f, 'f', -1, 64) }

// Inspector edits the inline style of one element.
type Inspector struct {
	tree   render.Tree
	h      render.Handle
	target string
	undo   *undo.Manager
}

// NewInspector returns an inspector for h. id names the undo history.
func NewInspector(t render.Tree, h render.Handle, id string, u *undo.Manager) *Inspector {
	return &Inspector{tree: t, h: h, target: "style:" + id, undo: u}
}

// Element returns the inspected element.
func (in *Inspector) Element() render.Handle { return in.h }

// Get returns the current (computed or inline) value of prop.
func (in *Inspector) Get(prop string) string { return in.tree.Style(in.h, prop) }

// Values returns the current value of every editable property of g.
func (in *Inspector) Values(g Group) map[string]string {
	out := map[string]string{}
	for _, p := range Properties[g] {
		out[p] = in.Get(p)
	}
	return out
}

// Set writes prop inline. An empty value removes the inline declaration.
func (in *Inspector) Set(prop, value string) error {
	prop = strings.ToLower(strings.TrimSpace(prop))
	if !editable[prop] {
		return fmt.Errorf("%w: %s", ErrProperty, prop)
	}
	value = strings.TrimSpace(value)
	if !safeValue(value) {
		return fmt.Errorf("%w: %q", ErrValue, value)
	}
	in.record()
	in.tree.SetStyle(in.h, prop, value)
	return nil
}

// SetTransform composes and writes the transform.
func (in *Inspector) SetTransform(t Transform2D) error { return in.Set("transform", t.CSS()) }

// SetShadow composes and writes the box shadow.
func (in *Inspector) SetShadow(b BoxShadow) error { return in.Set("box-shadow", b.CSS()) }

// Undo restores the style attribute from before the last Set.
func (in *Inspector) Undo() bool {
	if in.undo == nil {
		return false
	}
	s, ok := in.undo.Undo(in.target, in.style())
	if ok {
		in.restore(s.Blob)
	}
	return ok
}

// Redo re-applies the last undone Set.
func (in *Inspector) Redo() bool {
	if in.undo == nil {
		return false
	}
	s, ok := in.undo.Redo(in.target, in.style())
	if ok {
		in.restore(s.Blob)
	}
	return ok
}

func (in *Inspector) record() {
	if in.undo != nil {
		in.undo.Push(undo.Snapshot{Target: in.target, Blob: in.style()})
	}
}

func (in *Inspector) style() []byte {
	return []byte(render.AttrOr(in.tree, in.h, "style", ""))
}

func (in *Inspector) restore(b []byte) {
	if len(b) == 0 {
		in.tree.RemoveAttr(in.h, "style")
		return
	}
	in.tree.SetAttr(in.h, "style", string(b))
}

// safeValue rejects values that could end the declaration or pull in
// external resources.
func safeValue(v string) bool {
	if strings.ContainsAny(v, ";{}<>\\") {
		return false
	}
	l := strings.ToLower(v)
	for _, bad := range []string{"url(", "expression(", "javascript:", "@import"} {
		if strings.Contains(l, bad) {
			return false
		}
	}
	return true
}
