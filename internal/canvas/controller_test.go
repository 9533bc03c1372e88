/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package canvas

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sheetdesigner/internal/domain"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/store"
	"sheetdesigner/internal/vector"
)

func setup(t *testing.T, snap bool) (*store.Store, *Controller) {
	t.Helper()
	n := 0
	s := store.New(store.Options{
		NewID:  func() string { n++; return fmt.Sprintf("r%d", n) },
		Logger: applog.Nop(),
	})
	cv := s.Template().Canvas
	cv.SnapToGrid = snap
	s.UpdateCanvas(cv)
	if s.Template().Canvas.SnapToGrid != snap {
		t.Fatalf("canvas update failed")
	}
	c := New(s, Options{Logger: applog.Nop()})
	t.Cleanup(c.Close)
	return s, c
}

func add(t *testing.T, s *store.Store, x, y, w, h float64) domain.Region {
	t.Helper()
	r, err := domain.NewRegion(domain.RegionSubjective, "", vector.R(x, y, w, h))
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	got, err := s.AddRegion(r)
	if err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	return got
}

func pt(x, y float64) vector.Pt { return vector.Pt{X: x, Y: y} }

func drag(c *Controller, from, to vector.Pt, mods Modifiers) {
	c.Handle(PointerDown{Pos: from, Mods: mods})
	c.Handle(PointerMove{Pos: to, Mods: mods})
	c.Handle(PointerUp{Pos: to, Mods: mods})
}

func TestScreenWorldRoundTrip(t *testing.T) {
	v := NewView(0.1, 5)
	v.Scale = 2
	v.Position = pt(100, 50)
	w := v.ScreenToWorld(pt(300, 250))
	if w != pt(100, 100) {
		t.Fatalf("ScreenToWorld = %+v", w)
	}
	if s := v.WorldToScreen(w); s != pt(300, 250) {
		t.Fatalf("WorldToScreen = %+v", s)
	}
	if m := v.Matrix().Apply(w); !m.Eq(pt(300, 250), 1e-9) {
		t.Fatalf("Matrix disagrees: %+v", m)
	}
}

func TestZoomKeepsCursorFixed(t *testing.T) {
	v := NewView(0.1, 5)
	v.Position = pt(40, -20)
	cursor := pt(320, 240)
	before := v.ScreenToWorld(cursor)
	for _, s := range []float64{1.7, 3.2, 0.4} {
		v.ZoomAt(cursor, s)
		if got := v.WorldToScreen(before); !got.Eq(cursor, 1e-9) {
			t.Fatalf("scale %v: anchor moved to %+v", s, got)
		}
	}
	v.ZoomAt(cursor, 50)
	if v.Scale != 5 {
		t.Fatalf("scale not clamped to max: %v", v.Scale)
	}
	v.ZoomAt(cursor, 0.001)
	if v.Scale != 0.1 {
		t.Fatalf("scale not clamped to min: %v", v.Scale)
	}
	if got := v.WorldToScreen(before); !got.Eq(cursor, 1e-9) {
		t.Fatalf("anchor moved after clamped zoom: %+v", got)
	}
}

func TestWheelZoomsAroundPointer(t *testing.T) {
	_, c := setup(t, false)
	p := pt(200, 100)
	anchor := c.ScreenToWorld(p)
	c.Handle(Wheel{Pos: p, DeltaY: -1})
	if c.View().Scale <= 1 {
		t.Fatalf("wheel up should zoom in, scale=%v", c.View().Scale)
	}
	if got := c.WorldToScreen(anchor); !got.Eq(p, 1e-9) {
		t.Fatalf("anchor moved: %+v", got)
	}
}

func TestSelectionBoxHitTest(t *testing.T) {
	s, c := setup(t, false)
	inside := add(t, s, 120, 120, 20, 20)
	outside := add(t, s, 500, 500, 20, 20)
	partial := add(t, s, 190, 190, 40, 40)
	_ = outside

	drag(c, pt(100, 100), pt(200, 200), 0)
	want := []string{inside.ID, partial.ID}
	if diff := cmp.Diff(want, c.Selection()); diff != "" {
		t.Fatalf("selection (-want +got):\n%s", diff)
	}
	if c.State().SelectionBox != nil {
		t.Fatalf("selection box should be cleared after release")
	}
}

func TestSelectionBoxTouchingEdgeDoesNotSelect(t *testing.T) {
	s, c := setup(t, false)
	add(t, s, 200, 100, 20, 20)
	drag(c, pt(100, 100), pt(200, 150), 0)
	if len(c.Selection()) != 0 {
		t.Fatalf("edge contact must not select: %v", c.Selection())
	}
}

func TestSelectionBoxAdditive(t *testing.T) {
	s, c := setup(t, false)
	a := add(t, s, 10, 10, 20, 20)
	b := add(t, s, 300, 300, 20, 20)
	c.Select(a.ID)
	drag(c, pt(290, 290), pt(350, 350), ModShift)
	if diff := cmp.Diff([]string{a.ID, b.ID}, c.Selection()); diff != "" {
		t.Fatalf("additive selection (-want +got):\n%s", diff)
	}
	drag(c, pt(290, 290), pt(350, 350), 0)
	if diff := cmp.Diff([]string{b.ID}, c.Selection()); diff != "" {
		t.Fatalf("replacing selection (-want +got):\n%s", diff)
	}
}

func TestBoxPreviewInWorldSpace(t *testing.T) {
	_, c := setup(t, false)
	c.SetScale(pt(0, 0), 2)
	c.Handle(PointerDown{Pos: pt(20, 20)})
	c.Handle(PointerMove{Pos: pt(120, 60)})
	box := c.State().SelectionBox
	if box == nil || *box != vector.R(10, 10, 50, 20) {
		t.Fatalf("unexpected box %+v", box)
	}
}

func TestMinimumDragDiscard(t *testing.T) {
	s, c := setup(t, false)
	entries := len(s.History().Items)
	c.SetTool(ToolObjective)
	drag(c, pt(100, 100), pt(105, 105), 0)
	if len(s.Regions()) != 0 {
		t.Fatalf("small drag created a region")
	}
	if len(s.History().Items) != entries {
		t.Fatalf("small drag appended history")
	}
	if c.Tool() != ToolObjective {
		t.Fatalf("tool should stay active after a discarded draw, got %s", c.Tool())
	}
}

func TestDrawCreatesSelectedRegionAndRevertsTool(t *testing.T) {
	s, c := setup(t, false)
	c.SetTool(ToolBarcode)
	drag(c, pt(150, 80), pt(50, 20), 0)
	regs := s.Regions()
	if len(regs) != 1 {
		t.Fatalf("want 1 region, got %d", len(regs))
	}
	r := regs[0]
	if r.Type() != domain.RegionBarcode || r.Bounds() != vector.R(50, 20, 100, 60) {
		t.Fatalf("unexpected region %+v", r.Base)
	}
	if r.Name != "Barcode 1" {
		t.Fatalf("unexpected name %q", r.Name)
	}
	if diff := cmp.Diff([]string{r.ID}, c.Selection()); diff != "" {
		t.Fatalf("new region not selected:\n%s", diff)
	}
	if c.Tool() != ToolSelect {
		t.Fatalf("tool should revert to select, got %s", c.Tool())
	}
}

func TestDrawSnapsToGrid(t *testing.T) {
	s, c := setup(t, true)
	c.SetTool(ToolAnchor)
	drag(c, pt(13, 26), pt(57, 83), 0)
	regs := s.Regions()
	if len(regs) != 1 {
		t.Fatalf("want 1 region, got %d", len(regs))
	}
	if got := regs[0].Bounds(); got != vector.R(10, 30, 40, 60) {
		t.Fatalf("unexpected snapped bounds %+v", got)
	}
}

func TestDrawSnapKeepsAtLeastOneGridCell(t *testing.T) {
	s, c := setup(t, true)
	cv := s.Template().Canvas
	cv.GridSize = 25
	s.UpdateCanvas(cv)
	c.SetTool(ToolAnchor)
	// 12 units pass the draw threshold but round to zero cells.
	drag(c, pt(100, 100), pt(112, 112), 0)
	regs := s.Regions()
	if len(regs) != 1 {
		t.Fatalf("want 1 region, got %d", len(regs))
	}
	if got := regs[0].Bounds(); got != vector.R(100, 100, 25, 25) {
		t.Fatalf("unexpected snapped bounds %+v", got)
	}
}

func TestDrawThresholdIsExclusive(t *testing.T) {
	s, c := setup(t, false)
	c.SetTool(ToolAnchor)
	drag(c, pt(100, 100), pt(110, 110), 0)
	if n := len(s.Regions()); n != 0 {
		t.Fatalf("a 10x10 draw must be discarded, got %d regions", n)
	}
	drag(c, pt(100, 100), pt(110.5, 110.5), 0)
	regs := s.Regions()
	if len(regs) != 1 {
		t.Fatalf("a 10.5x10.5 draw must create a region, got %d", len(regs))
	}
	if got := regs[0].Bounds(); got != vector.R(100, 100, 10.5, 10.5) {
		t.Fatalf("unexpected bounds %+v", got)
	}
}

func TestDrawUnderZoomUsesWorldCoordinates(t *testing.T) {
	s, c := setup(t, false)
	c.SetScale(pt(0, 0), 2)
	c.SetTool(ToolSubjective)
	drag(c, pt(100, 100), pt(300, 200), 0)
	regs := s.Regions()
	if len(regs) != 1 || regs[0].Bounds() != vector.R(50, 50, 100, 50) {
		t.Fatalf("unexpected regions %+v", regs)
	}
}

func TestDrawPreviewState(t *testing.T) {
	_, c := setup(t, false)
	c.SetTool(ToolAnchor)
	c.Handle(PointerDown{Pos: pt(10, 10)})
	c.Handle(PointerMove{Pos: pt(40, 30)})
	vs := c.State()
	if !vs.IsDrawing || vs.DrawingStart == nil || *vs.DrawingStart != pt(10, 10) {
		t.Fatalf("drawing state not exposed: %+v", vs)
	}
	if vs.DrawPreview == nil || *vs.DrawPreview != vector.R(10, 10, 30, 20) {
		t.Fatalf("unexpected preview %+v", vs.DrawPreview)
	}
}

func TestClickSelectsOnlyThatRegion(t *testing.T) {
	s, c := setup(t, false)
	a := add(t, s, 10, 10, 50, 50)
	b := add(t, s, 100, 10, 50, 50)
	c.SelectAll()
	c.Handle(PointerDown{Pos: pt(120, 20)})
	c.Handle(PointerUp{Pos: pt(120, 20)})
	if diff := cmp.Diff([]string{b.ID}, c.Selection()); diff != "" {
		t.Fatalf("click should narrow selection:\n%s", diff)
	}
	c.Handle(PointerDown{Pos: pt(20, 20), Mods: ModShift})
	c.Handle(PointerUp{Pos: pt(20, 20), Mods: ModShift})
	if diff := cmp.Diff([]string{b.ID, a.ID}, c.Selection()); diff != "" {
		t.Fatalf("shift click should toggle in:\n%s", diff)
	}
	c.Handle(PointerDown{Pos: pt(20, 20), Mods: ModShift})
	c.Handle(PointerUp{Pos: pt(20, 20), Mods: ModShift})
	if diff := cmp.Diff([]string{b.ID}, c.Selection()); diff != "" {
		t.Fatalf("shift click should toggle out:\n%s", diff)
	}
}

func TestClickPicksTopmostRegion(t *testing.T) {
	s, c := setup(t, false)
	add(t, s, 0, 0, 100, 100)
	top := add(t, s, 50, 50, 100, 100)
	c.Handle(PointerDown{Pos: pt(60, 60)})
	c.Handle(PointerUp{Pos: pt(60, 60)})
	if diff := cmp.Diff([]string{top.ID}, c.Selection()); diff != "" {
		t.Fatalf("expected topmost region:\n%s", diff)
	}
}

func TestDragMoveSnapsToGrid(t *testing.T) {
	s, c := setup(t, true)
	r := add(t, s, 100, 100, 50, 50)
	entries := len(s.History().Items)
	drag(c, pt(110, 110), pt(133, 127), 0)
	got, _ := s.Region(r.ID)
	if got.X != 120 || got.Y != 120 {
		t.Fatalf("want (120,120), got (%v,%v)", got.X, got.Y)
	}
	if len(s.History().Items) != entries+1 {
		t.Fatalf("drag should commit one history entry")
	}
}

func TestDragMoveSmartGuides(t *testing.T) {
	s, c := setup(t, false)
	add(t, s, 100, 100, 50, 50)
	b := add(t, s, 300, 200, 50, 50)
	c.Handle(PointerDown{Pos: pt(310, 210)})
	c.Handle(PointerMove{Pos: pt(310, 113)})
	vs := c.State()
	if vs.DragOffset != pt(0, -100) || len(vs.Guides) == 0 {
		t.Fatalf("expected snapped offset with guides, got %+v %v", vs.DragOffset, vs.Guides)
	}
	c.Handle(PointerUp{Pos: pt(310, 113)})
	got, _ := s.Region(b.ID)
	if got.Y != 100 || got.X != 300 {
		t.Fatalf("want (300,100), got (%v,%v)", got.X, got.Y)
	}
}

func TestDragSkipsLockedRegions(t *testing.T) {
	s, c := setup(t, false)
	a := add(t, s, 100, 100, 50, 50)
	locked := true
	s.UpdateRegion(a.ID, store.RegionPatch{Locked: &locked})
	entries := len(s.History().Items)
	drag(c, pt(110, 110), pt(400, 400), 0)
	got, _ := s.Region(a.ID)
	if got.X != 100 || got.Y != 100 {
		t.Fatalf("locked region moved to (%v,%v)", got.X, got.Y)
	}
	if len(s.History().Items) != entries {
		t.Fatalf("locked drag should not record history")
	}
	if diff := cmp.Diff([]string{a.ID}, c.Selection()); diff != "" {
		t.Fatalf("locked region should still be selectable:\n%s", diff)
	}
}

func TestPanToolMovesViewOnly(t *testing.T) {
	s, c := setup(t, false)
	add(t, s, 10, 10, 50, 50)
	entries := len(s.History().Items)
	c.SetTool(ToolPan)
	drag(c, pt(100, 100), pt(160, 130), 0)
	if c.View().Position != pt(60, 30) {
		t.Fatalf("unexpected position %+v", c.View().Position)
	}
	if len(s.History().Items) != entries {
		t.Fatalf("pan must not mutate the template")
	}
	c.SetTool(ToolSelect)
	c.Handle(PointerDown{Pos: pt(0, 0), Button: ButtonMiddle})
	c.Handle(PointerUp{Pos: pt(-10, 0), Button: ButtonMiddle})
	if c.View().Position != pt(50, 30) {
		t.Fatalf("middle drag should pan, got %+v", c.View().Position)
	}
}

func TestThrottleNeverAffectsCommit(t *testing.T) {
	s, c := setup(t, false)
	t0 := time.Now()
	c.SetTool(ToolSubjective)
	c.Handle(PointerDown{Pos: pt(0, 0), Time: t0})
	if c.Handle(PointerMove{Pos: pt(30, 30), Time: t0.Add(5 * time.Millisecond)}) {
		t.Fatalf("move inside the throttle window should be held back")
	}
	if p := c.State().DrawPreview; p == nil || p.W != 0 {
		t.Fatalf("preview should not have advanced: %+v", p)
	}
	if !c.Flush() || c.State().DrawPreview.W != 30 {
		t.Fatalf("flush should apply the held move")
	}
	c.Handle(PointerMove{Pos: pt(60, 60), Time: t0.Add(8 * time.Millisecond)})
	c.Handle(PointerUp{Pos: pt(200, 100), Time: t0.Add(9 * time.Millisecond)})
	regs := s.Regions()
	if len(regs) != 1 || regs[0].Bounds() != vector.R(0, 0, 200, 100) {
		t.Fatalf("commit should use the release point, got %+v", regs)
	}
}

func TestKeyboardShortcuts(t *testing.T) {
	s, c := setup(t, false)
	a := add(t, s, 10, 10, 50, 50)
	b := add(t, s, 100, 10, 50, 50)

	c.Handle(KeyDown{Key: "a", Mods: ModCtrl})
	if len(c.Selection()) != 2 {
		t.Fatalf("ctrl+a should select all")
	}
	c.Handle(KeyDown{Key: KeyEscape})
	if len(c.Selection()) != 0 || c.Tool() != ToolSelect {
		t.Fatalf("escape should clear selection and reset tool")
	}

	c.Select(a.ID)
	c.Handle(KeyDown{Key: KeyDelete})
	if _, ok := s.Region(a.ID); ok {
		t.Fatalf("delete should remove selection")
	}
	c.Handle(KeyDown{Key: "z", Mods: ModMeta})
	if _, ok := s.Region(a.ID); !ok {
		t.Fatalf("cmd+z should undo the delete")
	}
	c.Handle(KeyDown{Key: "z", Mods: ModCtrl | ModShift})
	if _, ok := s.Region(a.ID); ok {
		t.Fatalf("shift+ctrl+z should redo the delete")
	}
	c.Handle(KeyDown{Key: "z", Mods: ModCtrl})
	c.Handle(KeyDown{Key: "y", Mods: ModCtrl})
	if _, ok := s.Region(a.ID); ok {
		t.Fatalf("ctrl+y should redo")
	}

	c.Select(b.ID)
	c.Handle(KeyDown{Key: "d", Mods: ModCtrl})
	sel := c.Selection()
	if len(sel) != 1 || sel[0] == b.ID {
		t.Fatalf("ctrl+d should select the copy, got %v", sel)
	}
	cp, _ := s.Region(sel[0])
	if cp.X != 120 || cp.Y != 30 {
		t.Fatalf("copy at (%v,%v)", cp.X, cp.Y)
	}

	c.Handle(KeyDown{Key: KeyBackspace})
	if _, ok := s.Region(cp.ID); ok {
		t.Fatalf("backspace should delete")
	}
}

func TestArrowNudge(t *testing.T) {
	s, c := setup(t, false)
	a := add(t, s, 10, 10, 50, 50)
	c.Select(a.ID)
	c.Handle(KeyDown{Key: KeyArrowRight})
	c.Handle(KeyDown{Key: KeyArrowDown, Mods: ModShift})
	got, _ := s.Region(a.ID)
	if got.X != 11 || got.Y != 20 {
		t.Fatalf("want (11,20), got (%v,%v)", got.X, got.Y)
	}
}

func TestToolHotkeys(t *testing.T) {
	_, c := setup(t, false)
	for key, want := range map[string]ToolMode{"3": ToolObjective, "h": ToolPan, "v": ToolSelect, "1": ToolAnchor} {
		c.Handle(KeyDown{Key: key})
		if c.Tool() != want {
			t.Fatalf("key %q: tool %s want %s", key, c.Tool(), want)
		}
	}
}

func TestStaleSelectionResolvesToNotSelected(t *testing.T) {
	s, c := setup(t, false)
	a := add(t, s, 10, 10, 50, 50)
	b := add(t, s, 100, 10, 50, 50)
	c.Select(a.ID, b.ID, "ghost")
	if diff := cmp.Diff([]string{a.ID, b.ID}, c.Selection()); diff != "" {
		t.Fatalf("unknown ids must be dropped:\n%s", diff)
	}
	s.DeleteRegion(a.ID)
	if c.IsSelected(a.ID) {
		t.Fatalf("deleted region still selected")
	}
	if diff := cmp.Diff([]string{b.ID}, c.State().SelectedRegionIDs); diff != "" {
		t.Fatalf("state selection:\n%s", diff)
	}
}

func TestTemplateReplaceResetsSession(t *testing.T) {
	s, c := setup(t, false)
	a := add(t, s, 10, 10, 50, 50)
	c.Select(a.ID)
	c.SetTool(ToolBarcode)
	c.SetScale(pt(50, 50), 3)
	s.ResetTemplate()
	vs := c.State()
	if vs.Scale != 1 || vs.Position != (vector.Pt{}) || vs.ToolMode != ToolSelect || len(vs.SelectedRegionIDs) != 0 {
		t.Fatalf("session not reset: %+v", vs)
	}
}

func TestFitToViewport(t *testing.T) {
	s, c := setup(t, false)
	cv := s.Template().Canvas
	c.FitToViewport(cv.Width/2+40, cv.Height/2+40)
	if math.Abs(c.View().Scale-0.5) > 1e-9 {
		t.Fatalf("want scale 0.5, got %v", c.View().Scale)
	}
	if tl := c.WorldToScreen(pt(0, 0)); !tl.Eq(pt(20, 20), 1e-9) {
		t.Fatalf("canvas origin at %+v", tl)
	}
}
