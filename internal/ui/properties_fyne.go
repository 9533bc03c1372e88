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
)

// propertiesPanel edits the base properties of the selected region.
type propertiesPanel struct {
	sess    *Session
	title   *widget.Label
	name    *widget.Entry
	x, y    *widget.Entry
	w, h    *widget.Entry
	visible *widget.Check
	locked  *widget.Check
	errText *widget.Label
	form    *fyne.Container
	root    *fyne.Container
	shownID string
	onApply func()
}

func newPropertiesPanel() *propertiesPanel {
	p := &propertiesPanel{
		title:   widget.NewLabel("No selection"),
		name:    widget.NewEntry(),
		x:       widget.NewEntry(),
		y:       widget.NewEntry(),
		w:       widget.NewEntry(),
		h:       widget.NewEntry(),
		visible: widget.NewCheck("Visible", nil),
		locked:  widget.NewCheck("Locked", nil),
		errText: widget.NewLabel(""),
	}
	p.title.TextStyle = fyne.TextStyle{Bold: true}
	apply := widget.NewButton("Apply", p.apply)
	p.form = container.NewVBox(
		widget.NewForm(
			widget.NewFormItem("Name", p.name),
			widget.NewFormItem("X", p.x),
			widget.NewFormItem("Y", p.y),
			widget.NewFormItem("Width", p.w),
			widget.NewFormItem("Height", p.h),
		),
		p.visible, p.locked, apply, p.errText,
	)
	p.form.Hide()
	p.root = container.NewVBox(p.title, p.form)
	return p
}

func (p *propertiesPanel) object() fyne.CanvasObject { return container.NewVScroll(p.root) }

// show loads the selected region into the form. The form keeps pending
// edits while the same region stays selected.
func (p *propertiesPanel) show(sess *Session) {
	p.sess = sess
	r, ok := sess.SelectedRegion()
	if !ok {
		p.shownID = ""
		p.title.SetText(selectionTitle(len(sess.Ctrl.Selection())))
		p.form.Hide()
		return
	}
	p.title.SetText(string(r.Type()) + " · " + r.ID)
	p.form.Show()
	if r.ID == p.shownID {
		return
	}
	p.shownID = r.ID
	p.load(fieldsOf(r))
}

func (p *propertiesPanel) load(f regionFields) {
	p.name.SetText(f.Name)
	p.x.SetText(f.X)
	p.y.SetText(f.Y)
	p.w.SetText(f.Width)
	p.h.SetText(f.Height)
	p.visible.SetChecked(f.Visible)
	p.locked.SetChecked(f.Locked)
	p.errText.SetText("")
}

func (p *propertiesPanel) apply() {
	if p.sess == nil {
		return
	}
	ok, err := p.sess.ApplyFields(regionFields{
		Name: p.name.Text, X: p.x.Text, Y: p.y.Text, Width: p.w.Text, Height: p.h.Text,
		Visible: p.visible.Checked, Locked: p.locked.Checked,
	})
	if err != nil {
		p.errText.SetText(err.Error())
		return
	}
	p.errText.SetText("")
	if ok {
		// reload clamped values from the store
		if r, found := p.sess.SelectedRegion(); found {
			p.load(fieldsOf(r))
		}
		if p.onApply != nil {
			p.onApply()
		}
	}
}
