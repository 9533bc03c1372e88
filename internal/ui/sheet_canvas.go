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
	"time"

	"fyne.io/fyne/v2"
	fcanvas "fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"sheetdesigner/internal/canvas"
	"sheetdesigner/internal/render"
	"sheetdesigner/internal/vector"
)

// SheetCanvas adapts toolkit input to the canvas controller and paints the
// template through render.Paint.
type SheetCanvas struct {
	widget.BaseWidget

	sess *Session
	mods canvas.Modifiers
	// OnChange runs after any event that changed the view or the template.
	OnChange func()

	flushTimer *time.Timer
	fitted     bool
}

// NewSheetCanvas binds a canvas widget to sess.
func NewSheetCanvas(sess *Session) *SheetCanvas {
	sc := &SheetCanvas{sess: sess}
	sc.ExtendBaseWidget(sc)
	return sc
}

// SetSession swaps the template being edited.
func (sc *SheetCanvas) SetSession(sess *Session) {
	sc.sess = sess
	sc.fitted = false
	sc.Refresh()
}

// CreateRenderer builds the renderer that repaints from scratch on each refresh.
func (sc *SheetCanvas) CreateRenderer() fyne.WidgetRenderer {
	bg := fcanvas.NewRectangle(color.RGBA{R: 60, G: 60, B: 66, A: 255})
	return &sheetRenderer{sc: sc, bg: bg, objects: []fyne.CanvasObject{bg}}
}

// MinSize keeps the canvas usable in small windows.
func (sc *SheetCanvas) MinSize() fyne.Size { return fyne.NewSize(400, 300) }

// Fit zooms the sheet to the widget size.
func (sc *SheetCanvas) Fit() {
	sz := sc.Size()
	if sz.Width <= 0 || sz.Height <= 0 {
		return
	}
	sc.sess.Ctrl.FitToViewport(float64(sz.Width), float64(sz.Height))
	sc.fitted = true
	sc.changed(true)
}

func (sc *SheetCanvas) changed(ok bool) {
	if !ok {
		return
	}
	sc.Refresh()
	if sc.OnChange != nil {
		sc.OnChange()
	}
}

func toPt(p fyne.Position) vector.Pt { return vector.Pt{X: float64(p.X), Y: float64(p.Y)} }

func toButton(b desktop.MouseButton) canvas.Button {
	switch b {
	case desktop.MouseButtonSecondary:
		return canvas.ButtonSecondary
	case desktop.MouseButtonTertiary:
		return canvas.ButtonMiddle
	}
	return canvas.ButtonPrimary
}

func toMods(m fyne.KeyModifier) canvas.Modifiers {
	return modifiers(m&fyne.KeyModifierShift != 0, m&fyne.KeyModifierControl != 0,
		m&fyne.KeyModifierAlt != 0, m&fyne.KeyModifierSuper != 0)
}

// MouseDown implements desktop.Mouseable.
func (sc *SheetCanvas) MouseDown(e *desktop.MouseEvent) {
	if c := fyne.CurrentApp().Driver().CanvasForObject(sc); c != nil {
		c.Focus(sc)
	}
	sc.mods = toMods(e.Modifier)
	sc.changed(sc.sess.Ctrl.Handle(canvas.PointerDown{Pos: toPt(e.Position), Button: toButton(e.Button), Mods: sc.mods, Time: time.Now()}))
}

// MouseUp implements desktop.Mouseable.
func (sc *SheetCanvas) MouseUp(e *desktop.MouseEvent) {
	sc.sess.Ctrl.Flush()
	sc.changed(sc.sess.Ctrl.Handle(canvas.PointerUp{Pos: toPt(e.Position), Button: toButton(e.Button), Mods: toMods(e.Modifier), Time: time.Now()}))
}

// MouseIn implements desktop.Hoverable.
func (sc *SheetCanvas) MouseIn(*desktop.MouseEvent) {}

// MouseOut implements desktop.Hoverable.
func (sc *SheetCanvas) MouseOut() {}

// MouseMoved implements desktop.Hoverable. Moves held back by the
// controller's throttle are flushed shortly after so the last position wins.
func (sc *SheetCanvas) MouseMoved(e *desktop.MouseEvent) {
	ok := sc.sess.Ctrl.Handle(canvas.PointerMove{Pos: toPt(e.Position), Mods: toMods(e.Modifier), Time: time.Now()})
	sc.changed(ok)
	if !ok {
		if sc.flushTimer != nil {
			sc.flushTimer.Stop()
		}
		sc.flushTimer = time.AfterFunc(20*time.Millisecond, func() {
			fyne.Do(func() { sc.changed(sc.sess.Ctrl.Flush()) })
		})
	}
}

// Scrolled zooms around the pointer.
func (sc *SheetCanvas) Scrolled(e *fyne.ScrollEvent) {
	sc.changed(sc.sess.Ctrl.Handle(canvas.Wheel{Pos: toPt(e.Position), DeltaY: -float64(e.Scrolled.DY), Mods: sc.mods, Time: time.Now()}))
}

// FocusGained implements fyne.Focusable.
func (sc *SheetCanvas) FocusGained() {}

// FocusLost implements fyne.Focusable.
func (sc *SheetCanvas) FocusLost() { sc.mods = 0 }

// TypedRune implements fyne.Focusable; keys arrive through TypedKey.
func (sc *SheetCanvas) TypedRune(rune) {}

// TypedKey implements fyne.Focusable.
func (sc *SheetCanvas) TypedKey(e *fyne.KeyEvent) {
	if k, ok := translateKey(string(e.Name)); ok {
		sc.changed(sc.sess.Ctrl.Handle(canvas.KeyDown{Key: k, Mods: sc.mods}))
	}
}

// KeyDown tracks held modifiers; see desktop.Keyable.
func (sc *SheetCanvas) KeyDown(e *fyne.KeyEvent) { sc.mods |= keyMod(e.Name) }

// KeyUp tracks released modifiers.
func (sc *SheetCanvas) KeyUp(e *fyne.KeyEvent) { sc.mods &^= keyMod(e.Name) }

// Command forwards a Ctrl/Cmd shortcut registered on the window.
func (sc *SheetCanvas) Command(key string, shift bool) {
	sc.changed(sc.sess.Ctrl.Handle(canvas.KeyDown{Key: key, Mods: modifiers(shift, true, false, false)}))
}

func keyMod(n fyne.KeyName) canvas.Modifiers {
	switch n {
	case desktop.KeyShiftLeft, desktop.KeyShiftRight:
		return canvas.ModShift
	case desktop.KeyControlLeft, desktop.KeyControlRight:
		return canvas.ModCtrl
	case desktop.KeyAltLeft, desktop.KeyAltRight:
		return canvas.ModAlt
	case desktop.KeySuperLeft, desktop.KeySuperRight:
		return canvas.ModMeta
	}
	return 0
}

type sheetRenderer struct {
	sc      *SheetCanvas
	bg      *fcanvas.Rectangle
	objects []fyne.CanvasObject
}

func (r *sheetRenderer) Destroy()                     {}
func (r *sheetRenderer) Objects() []fyne.CanvasObject { return r.objects }
func (r *sheetRenderer) MinSize() fyne.Size           { return r.sc.MinSize() }

func (r *sheetRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)
	r.bg.Move(fyne.NewPos(0, 0))
	if !r.sc.fitted && size.Width > 0 && size.Height > 0 {
		r.sc.sess.Ctrl.FitToViewport(float64(size.Width), float64(size.Height))
		r.sc.fitted = true
		r.paint()
	}
}

func (r *sheetRenderer) Refresh() {
	r.paint()
	fcanvas.Refresh(r.sc)
}

// paint rebuilds the object list from the current template and view.
func (r *sheetRenderer) paint() {
	sess := r.sc.sess
	vs := sess.Ctrl.State()
	surf := &fyneSurface{m: sess.Ctrl.View().Matrix(), scale: vs.Scale}
	render.Paint(surf, sess.Store.Template(), render.EditorOverlay(sess.Store.Template(), vs))
	r.objects = append([]fyne.CanvasObject{r.bg}, surf.objs...)
}

// fyneSurface turns render calls into positioned canvas objects in screen space.
type fyneSurface struct {
	m     vector.Affine2D
	scale float64
	objs  []fyne.CanvasObject
}

func nrgba(c vector.Color) color.NRGBA { return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A} }

func (s *fyneSurface) pos(p vector.Pt) fyne.Position {
	q := s.m.Apply(p)
	return fyne.NewPos(float32(q.X), float32(q.Y))
}

func (s *fyneSurface) width(st render.Style) float32 {
	if !st.Stroke.Enabled {
		return 0
	}
	w := st.Stroke.Width * s.scale
	if w < 1 {
		w = 1
	}
	return float32(w)
}

func (s *fyneSurface) Rect(r vector.Rect, st render.Style) {
	o := fcanvas.NewRectangle(color.Transparent)
	if st.Fill.Enabled {
		o.FillColor = nrgba(st.Fill.Color)
	}
	if st.Stroke.Enabled {
		o.StrokeColor = nrgba(st.Stroke.Color)
		o.StrokeWidth = s.width(st)
	}
	o.Move(s.pos(r.Min()))
	o.Resize(fyne.NewSize(float32(r.W*s.scale), float32(r.H*s.scale)))
	s.objs = append(s.objs, o)
}

func (s *fyneSurface) Ellipse(c vector.Pt, rx, ry float64, st render.Style) {
	o := fcanvas.NewCircle(color.Transparent)
	if st.Fill.Enabled {
		o.FillColor = nrgba(st.Fill.Color)
	}
	if st.Stroke.Enabled {
		o.StrokeColor = nrgba(st.Stroke.Color)
		o.StrokeWidth = s.width(st)
	}
	o.Position1 = s.pos(vector.Pt{X: c.X - rx, Y: c.Y - ry})
	o.Position2 = s.pos(vector.Pt{X: c.X + rx, Y: c.Y + ry})
	s.objs = append(s.objs, o)
}

func (s *fyneSurface) Line(a, b vector.Pt, st render.Style) {
	o := fcanvas.NewLine(nrgba(st.Stroke.Color))
	o.StrokeWidth = s.width(st)
	o.Position1 = s.pos(a)
	o.Position2 = s.pos(b)
	s.objs = append(s.objs, o)
}

func (s *fyneSurface) Text(p vector.Pt, size float64, str string, c vector.Color) {
	o := fcanvas.NewText(str, nrgba(c))
	o.TextSize = float32(size * s.scale)
	// canvas.Text is positioned by its top edge
	top := s.pos(vector.Pt{X: p.X, Y: p.Y - size})
	o.Move(top)
	s.objs = append(s.objs, o)
}
