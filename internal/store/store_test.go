/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package store

import (
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"sheetdesigner/internal/domain"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/schema"
	"sheetdesigner/internal/vector"
)

// newTestStore returns a store with deterministic ids and a ticking clock.
func newTestStore(t *testing.T) *Store {
	t.Helper()
	n := 0
	clock := time.Date(2025, 1, 1, 9, 0, 0, 0, time.UTC)
	return New(Options{
		NewID: func() string { n++; return fmt.Sprintf("id-%d", n) },
		Now: func() time.Time {
			clock = clock.Add(time.Second)
			return clock
		},
		Logger: applog.Nop(),
	})
}

func addRect(t *testing.T, s *Store, kind domain.RegionType, x, y, w, h float64) domain.Region {
	t.Helper()
	r, err := domain.NewRegion(kind, "", vector.R(x, y, w, h))
	if err != nil {
		t.Fatalf("NewRegion: %v", err)
	}
	got, err := s.AddRegion(r)
	if err != nil {
		t.Fatalf("AddRegion: %v", err)
	}
	return got
}

func TestNewStoreHasSingleHistoryEntry(t *testing.T) {
	s := newTestStore(t)
	h := s.History()
	if len(h.Items) != 1 || h.CurrentIndex != 0 || h.MaxItems != 50 {
		t.Fatalf("unexpected initial history %+v", h)
	}
	if s.CanUndo() || s.CanRedo() {
		t.Fatalf("fresh store cannot undo or redo")
	}
	if s.Template().Name != DefaultTemplateName {
		t.Fatalf("unexpected default name %q", s.Template().Name)
	}
}

func TestUndoRoundTrip(t *testing.T) {
	s := newTestStore(t)
	before := s.Template()

	a := addRect(t, s, domain.RegionAnchor, 10, 10, 30, 30)
	b := addRect(t, s, domain.RegionObjective, 100, 100, 200, 150)
	s.MoveRegion(a.ID, 5, 5)
	s.ResizeRegion(b.ID, 300, 120)
	s.DuplicateRegion(b.ID)
	s.AlignRegions([]string{a.ID, b.ID}, AlignTop)
	s.DeleteRegion(a.ID)

	steps := 0
	for s.Undo() {
		steps++
	}
	if steps != 7 {
		t.Fatalf("expected 7 undo steps, got %d", steps)
	}
	if diff := cmp.Diff(before, s.Template()); diff != "" {
		t.Fatalf("template after undo differs (-want +got):\n%s", diff)
	}
	for s.Redo() {
	}
	if len(s.Regions()) != 2 {
		t.Fatalf("expected 2 regions after redo all, got %d", len(s.Regions()))
	}
}

func TestRedoLostAfterMutation(t *testing.T) {
	s := newTestStore(t)
	a := addRect(t, s, domain.RegionAnchor, 10, 10, 30, 30)
	s.MoveRegion(a.ID, 100, 0)
	if !s.Undo() {
		t.Fatalf("undo failed")
	}
	s.MoveRegion(a.ID, 0, 50)
	if s.Redo() {
		t.Fatalf("redo must fail after a new mutation")
	}
	r, _ := s.Region(a.ID)
	if r.X != 10 || r.Y != 60 {
		t.Fatalf("template should reflect the new mutation, got (%v,%v)", r.X, r.Y)
	}
}

func TestDuplicateOffsetAndName(t *testing.T) {
	s := newTestStore(t)
	src := addRect(t, s, domain.RegionSubjective, 100, 200, 50, 50)
	c, ok := s.DuplicateRegion(src.ID)
	if !ok {
		t.Fatalf("duplicate failed")
	}
	if c.X != 120 || c.Y != 220 {
		t.Fatalf("want (120,220), got (%v,%v)", c.X, c.Y)
	}
	if c.ID == src.ID || c.Name == src.Name || !strings.HasSuffix(c.Name, "_copy") {
		t.Fatalf("copy is not distinguishable: %+v", c.Base)
	}
	orig, _ := s.Region(src.ID)
	if diff := cmp.Diff(src, orig); diff != "" {
		t.Fatalf("original changed (-want +got):\n%s", diff)
	}
	if _, ok := s.DuplicateRegion("missing"); ok {
		t.Fatalf("duplicating an unknown id must fail")
	}
}

func TestResizeFloor(t *testing.T) {
	s := newTestStore(t)
	r := addRect(t, s, domain.RegionBarcode, 0, 0, 100, 40)
	s.ResizeRegion(r.ID, -10, 0)
	got, _ := s.Region(r.ID)
	if got.Width != 1 || got.Height != 1 {
		t.Fatalf("want 1x1, got %vx%v", got.Width, got.Height)
	}
}

func TestAlignLeft(t *testing.T) {
	s := newTestStore(t)
	var ids []string
	for _, x := range []float64{100, 150, 200} {
		ids = append(ids, addRect(t, s, domain.RegionAnchor, x, x, 20, 20).ID)
	}
	if !s.AlignRegions(ids, AlignLeft) {
		t.Fatalf("align failed")
	}
	for _, r := range s.Regions() {
		if r.X != 100 {
			t.Fatalf("region %s x=%v, want 100", r.ID, r.X)
		}
	}
	if s.AlignRegions(ids[:1], AlignLeft) {
		t.Fatalf("align with one region must be a no-op")
	}
}

func TestAlignOtherModes(t *testing.T) {
	s := newTestStore(t)
	ref := addRect(t, s, domain.RegionAnchor, 100, 100, 100, 50)
	other := addRect(t, s, domain.RegionAnchor, 0, 0, 20, 10)
	ids := []string{ref.ID, other.ID}
	cases := []struct {
		mode AlignMode
		x, y float64
	}{
		{AlignRight, 180, 0},
		{AlignBottom, 180, 140},
		{AlignCenterHorizontal, 140, 140},
		{AlignCenterVertical, 140, 120},
		{AlignTop, 140, 100},
	}
	for _, tc := range cases {
		s.AlignRegions(ids, tc.mode)
		got, _ := s.Region(other.ID)
		if got.X != tc.x || got.Y != tc.y {
			t.Fatalf("%s: got (%v,%v) want (%v,%v)", tc.mode, got.X, got.Y, tc.x, tc.y)
		}
	}
}

func TestDistributeHorizontal(t *testing.T) {
	s := newTestStore(t)
	a := addRect(t, s, domain.RegionAnchor, 100, 0, 200, 10)
	b := addRect(t, s, domain.RegionAnchor, 150, 0, 180, 10)
	c := addRect(t, s, domain.RegionAnchor, 200, 0, 220, 10)
	if !s.DistributeRegions([]string{c.ID, a.ID, b.ID}, AxisHorizontal) {
		t.Fatalf("distribute failed")
	}
	ra, _ := s.Region(a.ID)
	rb, _ := s.Region(b.ID)
	rc, _ := s.Region(c.ID)
	gap := (420.0 - 100.0 - 600.0) / 2
	if ra.X != 100 {
		t.Fatalf("first moved: %v", ra.X)
	}
	if rc.X+rc.Width != 420 {
		t.Fatalf("last right edge moved: %v", rc.X+rc.Width)
	}
	if rb.X != 100+200+gap {
		t.Fatalf("middle x=%v want %v", rb.X, 100+200+gap)
	}
	if s.DistributeRegions([]string{a.ID, b.ID}, AxisHorizontal) {
		t.Fatalf("distribute with two regions must be a no-op")
	}
}

func TestDistributeVertical(t *testing.T) {
	s := newTestStore(t)
	a := addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	b := addRect(t, s, domain.RegionAnchor, 0, 15, 10, 10)
	c := addRect(t, s, domain.RegionAnchor, 0, 100, 10, 20)
	s.DistributeRegions([]string{a.ID, b.ID, c.ID}, AxisVertical)
	rb, _ := s.Region(b.ID)
	if rb.Y != 50 {
		t.Fatalf("middle y=%v want 50", rb.Y)
	}
}

func TestUpdateRegionsSingleEntry(t *testing.T) {
	s := newTestStore(t)
	a := addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	b := addRect(t, s, domain.RegionObjective, 0, 0, 100, 100)
	entries := len(s.History().Items)

	name := "Q1-5"
	locked := true
	props := &domain.ObjectiveProps{StartQuestionNumber: 1, QuestionCount: 10, OptionsPerQuestion: 5,
		QuestionsPerRow: 2, Layout: domain.Vertical, ScorePerQuestion: 1, BubbleStyle: domain.BubbleOval, BubbleSize: 10, Spacing: 4}
	n := s.UpdateRegions([]RegionUpdate{
		{ID: a.ID, Patch: RegionPatch{Locked: &locked}},
		{ID: b.ID, Patch: RegionPatch{Name: &name, Props: props}},
		{ID: "missing", Patch: RegionPatch{Name: &name}},
	})
	if n != 2 {
		t.Fatalf("want 2 updated, got %d", n)
	}
	if got := len(s.History().Items); got != entries+1 {
		t.Fatalf("want one history entry, got %d new", got-entries)
	}
	props.QuestionCount = 99
	rb, _ := s.Region(b.ID)
	if rb.Name != name || rb.Props.(*domain.ObjectiveProps).QuestionCount != 10 {
		t.Fatalf("patch not applied or aliased: %+v %+v", rb.Base, rb.Props)
	}
	if s.UpdateRegion(a.ID, RegionPatch{Props: &domain.BarcodeProps{}}) {
		t.Fatalf("patching with a foreign variant must fail")
	}
	if s.UpdateRegion(a.ID, RegionPatch{Locked: &locked}) {
		t.Fatalf("no-op patch must not report a change")
	}
}

func TestDeleteRegionsAndAddErrors(t *testing.T) {
	s := newTestStore(t)
	a := addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	b := addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	if n := s.DeleteRegions([]string{a.ID, b.ID, "zzz"}); n != 2 {
		t.Fatalf("want 2 deleted, got %d", n)
	}
	if len(s.Regions()) != 1 {
		t.Fatalf("want 1 left, got %d", len(s.Regions()))
	}
	if _, err := s.AddRegion(domain.Region{}); !errors.Is(err, ErrNoVariant) {
		t.Fatalf("want ErrNoVariant, got %v", err)
	}
	dup := s.Regions()[0]
	if _, err := s.AddRegion(dup); !errors.Is(err, ErrDuplicateID) {
		t.Fatalf("want ErrDuplicateID, got %v", err)
	}
}

func TestZOrder(t *testing.T) {
	s := newTestStore(t)
	a := addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	b := addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	c := addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	if a.ZIndex != 0 || b.ZIndex != 1 || c.ZIndex != 2 {
		t.Fatalf("new regions should stack: %d %d %d", a.ZIndex, b.ZIndex, c.ZIndex)
	}
	s.BringToFront(a.ID)
	order := func() []string {
		var ids []string
		for _, r := range s.Regions() {
			ids = append(ids, r.ID)
		}
		return ids
	}
	if diff := cmp.Diff([]string{b.ID, c.ID, a.ID}, order()); diff != "" {
		t.Fatalf("bring to front (-want +got):\n%s", diff)
	}
	s.SendToBack(c.ID)
	if diff := cmp.Diff([]string{c.ID, b.ID, a.ID}, order()); diff != "" {
		t.Fatalf("send to back (-want +got):\n%s", diff)
	}
	if s.ReorderRegion(c.ID, -1) {
		t.Fatalf("moving the bottom region down must be a no-op")
	}
	for i, r := range s.Regions() {
		if r.ZIndex != i {
			t.Fatalf("zIndex not dense: %s=%d at %d", r.ID, r.ZIndex, i)
		}
	}
}

func TestUpdateTemplateAppendsNoHistory(t *testing.T) {
	s := newTestStore(t)
	entries := len(s.History().Items)
	before := s.Template().UpdatedAt
	name := "Renamed"
	s.UpdateTemplate(TemplatePatch{Name: &name})
	if got := s.Template(); got.Name != name || !got.UpdatedAt.After(before) {
		t.Fatalf("rename not applied: %+v", got)
	}
	if len(s.History().Items) != entries {
		t.Fatalf("UpdateTemplate must not record history")
	}
	// the rename is baked into the next structural snapshot
	addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	s.Undo()
	if s.Template().Name != DefaultTemplateName {
		t.Fatalf("undo restores the snapshot taken before the rename, got %q", s.Template().Name)
	}
	s.Redo()
	if s.Template().Name != name {
		t.Fatalf("redo should carry the rename, got %q", s.Template().Name)
	}
}

func TestCanvasAndBackground(t *testing.T) {
	s := newTestStore(t)
	c := s.Template().Canvas
	c.Width = 0
	if s.UpdateCanvas(c) {
		t.Fatalf("zero width canvas must be rejected")
	}
	c.Width, c.GridSize = 1000, 20
	if !s.UpdateCanvas(c) || s.Template().Canvas.GridSize != 20 {
		t.Fatalf("canvas update not applied")
	}
	if s.UpdateCanvas(c) {
		t.Fatalf("unchanged canvas must not record history")
	}
	a := addRect(t, s, domain.RegionAnchor, 10, 10, 10, 10)
	if !s.SetBackgroundImage(&domain.BackgroundImage{URL: "scan.png", Width: 1240, Height: 1754, Opacity: 0.6}) {
		t.Fatalf("background not set")
	}
	got := s.Template()
	if got.Canvas.Width != 1240 || got.Canvas.Height != 1754 {
		t.Fatalf("canvas should adopt image size, got %vx%v", got.Canvas.Width, got.Canvas.Height)
	}
	if r, _ := s.Region(a.ID); r.X != 10 {
		t.Fatalf("background must not touch regions")
	}
	if !s.SetBackgroundImage(nil) || s.Template().BackgroundImage != nil {
		t.Fatalf("background not removed")
	}
}

func TestEveryNudgeIsOneUndoStep(t *testing.T) {
	s := newTestStore(t)
	s.opts.Now = func() time.Time { return time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC) }
	a := addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	before := s.Template()
	entries := len(s.History().Items)
	for i := 0; i < 3; i++ {
		if n := s.NudgeRegions([]string{a.ID}, 1, 0); n != 1 {
			t.Fatalf("nudge %d moved %d regions", i, n)
		}
	}
	if got := len(s.History().Items); got != entries+3 {
		t.Fatalf("want one entry per nudge, got %d new", got-entries)
	}
	for i := 0; i < 3; i++ {
		if !s.Undo() {
			t.Fatalf("undo %d failed", i)
		}
		if r, _ := s.Region(a.ID); r.X != float64(2-i) {
			t.Fatalf("after undo %d x=%v, want %d", i, r.X, 2-i)
		}
	}
	if diff := cmp.Diff(before, s.Template()); diff != "" {
		t.Fatalf("three undos should land on the pre-nudge state (-want +got):\n%s", diff)
	}
	if !s.CanUndo() {
		t.Fatalf("the add entry should still be undoable")
	}
}

func TestHistoryCap(t *testing.T) {
	s := New(Options{MaxHistory: 5, Logger: applog.Nop()})
	a := addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	for i := 0; i < 10; i++ {
		s.MoveRegion(a.ID, 1, 0)
	}
	h := s.History()
	if len(h.Items) != 5 || h.CurrentIndex != 4 {
		t.Fatalf("want 5 items at index 4, got %d at %d", len(h.Items), h.CurrentIndex)
	}
	undos := 0
	for s.Undo() {
		undos++
	}
	if undos != 4 {
		t.Fatalf("want 4 undos, got %d", undos)
	}
}

func TestClearHistoryKeepsTemplate(t *testing.T) {
	s := newTestStore(t)
	addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	s.ClearHistory()
	h := s.History()
	if len(h.Items) != 0 || h.CurrentIndex != -1 {
		t.Fatalf("history not cleared: %+v", h)
	}
	if len(s.Regions()) != 1 {
		t.Fatalf("live template changed")
	}
	if s.Undo() {
		t.Fatalf("undo after clear must fail")
	}
}

func TestImportExport(t *testing.T) {
	s := newTestStore(t)
	if _, res := s.ExportTemplate(schema.FormatJSON); res.Success || res.Code != schema.CodeNoRegions {
		t.Fatalf("export of an empty template should be blocked, got %+v", res)
	}
	addRect(t, s, domain.RegionObjective, 10, 10, 200, 100)
	text, res := s.ExportTemplate(schema.FormatJSON)
	if !res.Success || len(text) == 0 {
		t.Fatalf("export failed: %+v", res)
	}
	want := s.Template()

	other := newTestStore(t)
	if res := other.ImportTemplate(text); !res.Success {
		t.Fatalf("import failed: %+v", res)
	}
	if diff := cmp.Diff(want, other.Template()); diff != "" {
		t.Fatalf("import mismatch (-want +got):\n%s", diff)
	}
	if h := other.History(); len(h.Items) != 1 || h.CurrentIndex != 0 {
		t.Fatalf("import should reset history, got %+v", h)
	}
}

func TestImportRejectsForeignSchema(t *testing.T) {
	s := newTestStore(t)
	addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	before := s.Template()
	hist := s.History()

	res := s.ImportTemplate([]byte(`{"id":"x","name":"n","version":"1.0.0","schemaVersion":"2.0.0","regions":[]}`))
	if res.Success || !strings.Contains(res.Error, "2.0.0") {
		t.Fatalf("want schema rejection mentioning 2.0.0, got %+v", res)
	}
	if diff := cmp.Diff(before, s.Template()); diff != "" {
		t.Fatalf("live template changed (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(hist, s.History()); diff != "" {
		t.Fatalf("history changed (-want +got):\n%s", diff)
	}
}

func TestSubscribeNotifiesAndUnsubscribes(t *testing.T) {
	s := newTestStore(t)
	var got []Change
	unsub := s.Subscribe(func(c Change) { got = append(got, c) })
	addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	s.ResetTemplate()
	unsub()
	addRect(t, s, domain.RegionAnchor, 0, 0, 10, 10)
	if len(got) != 2 {
		t.Fatalf("want 2 notifications, got %d", len(got))
	}
	if got[0].Action != ActionAdd || got[0].Kind != ChangeEdit || got[1].Kind != ChangeReplace {
		t.Fatalf("unexpected changes %+v", got)
	}
}

func TestSnapshotsIndependentOfLiveTemplate(t *testing.T) {
	s := newTestStore(t)
	a := addRect(t, s, domain.RegionObjective, 0, 0, 100, 100)
	s.MoveRegion(a.ID, 10, 0)
	tpl := s.Template()
	tpl.Regions[0].Props.(*domain.ObjectiveProps).QuestionCount = 77
	s.Undo()
	r, _ := s.Region(a.ID)
	if r.X != 0 || r.Props.(*domain.ObjectiveProps).QuestionCount == 77 {
		t.Fatalf("snapshot aliased: %+v %+v", r.Base, r.Props)
	}
}
