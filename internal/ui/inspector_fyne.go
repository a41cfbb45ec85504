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
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"

	"pagecraft/internal/editor"
	"pagecraft/internal/menus"
)

// inspectorPanel shows one accordion section per property group.
type inspectorPanel struct {
	box *fyne.Container
}

func newInspectorPanel() *inspectorPanel {
	return &inspectorPanel{box: container.NewVBox()}
}

func (p *inspectorPanel) bind(s *editor.Shell, flush func()) {
	p.box.Objects = nil
	in, ok := s.Inspector()
	if !ok {
		p.box.Add(widget.NewLabel("Nothing selected."))
		p.box.Refresh()
		return
	}
	acc := widget.NewAccordion()
	for _, g := range editor.Groups {
		form := widget.NewForm()
		for _, prop := range editor.Properties[g] {
			prop := prop
			e := widget.NewEntry()
			e.SetText(in.Get(prop))
			e.OnSubmitted = func(v string) {
				if err := in.Set(prop, v); err != nil {
					e.SetValidationError(err)
					return
				}
				e.SetValidationError(nil)
				flush()
			}
			form.Append(prop, e)
		}
		acc.Append(widget.NewAccordionItem(string(g), form))
	}
	p.box.Add(widget.NewLabel(s.Session().Selected.Name))
	p.box.Add(acc)
	p.box.Refresh()
}

func menusPatchLabel(v string) menus.Patch { return menus.Patch{Label: &v} }
