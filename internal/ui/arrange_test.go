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
	"errors"
	"image"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/schema"
	"sheetdesigner/internal/store"
	"sheetdesigner/internal/vector"
)

func newTestSession(t *testing.T, path string) *Session {
	t.Helper()
	s, err := NewSession(path, testConfig(t))
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	t.Cleanup(s.Close)
	return s
}

func addAt(t *testing.T, s *Session, id string, x, y, w, h float64) {
	t.Helper()
	r, err := domain.NewRegion(domain.RegionAnchor, id, vector.R(x, y, w, h))
	if err != nil {
		t.Fatalf("new region: %v", err)
	}
	if _, err := s.Store.AddRegion(r); err != nil {
		t.Fatalf("add region: %v", err)
	}
}

func zOrder(s *Session) string {
	t := s.Store.Template()
	ids := make([]string, len(t.Regions))
	for _, r := range t.Regions {
		if r.ZIndex >= 0 && r.ZIndex < len(ids) {
			ids[r.ZIndex] = r.ID
		}
	}
	return strings.Join(ids, ",")
}

func TestSessionAlignAndDistributeSelection(t *testing.T) {
	s := newTestSession(t, "")
	addAt(t, s, "a", 40, 10, 10, 10)
	addAt(t, s, "b", 0, 60, 10, 10)
	addAt(t, s, "c", 200, 120, 10, 10)

	s.Ctrl.Select("a", "b", "c")
	if !s.Align(store.AlignTop) {
		t.Fatalf("align failed")
	}
	for _, id := range []string{"a", "b", "c"} {
		if r, _ := s.Store.Region(id); r.Y != 10 {
			t.Fatalf("%s y = %v, want 10", id, r.Y)
		}
	}
	if !s.Distribute(store.AxisHorizontal) {
		t.Fatalf("distribute failed")
	}
	// span 0..210 holds 30 units of regions, leaving two 90 unit gaps
	if r, _ := s.Store.Region("a"); r.X != 100 {
		t.Fatalf("middle x = %v, want 100", r.X)
	}

	s.Ctrl.Select("a", "b")
	if s.Distribute(store.AxisVertical) {
		t.Fatalf("two regions cannot be distributed")
	}
}

func TestSessionStackingKeepsSelectionOrder(t *testing.T) {
	s := newTestSession(t, "")
	addAt(t, s, "a", 0, 0, 10, 10)
	addAt(t, s, "b", 20, 0, 10, 10)
	addAt(t, s, "c", 40, 0, 10, 10)
	if got := zOrder(s); got != "a,b,c" {
		t.Fatalf("initial order = %s", got)
	}

	s.Ctrl.Select("b", "a")
	if n := s.BringToFront(); n != 2 {
		t.Fatalf("brought %d to front", n)
	}
	if got := zOrder(s); got != "c,a,b" {
		t.Fatalf("after front = %s, want c,a,b", got)
	}

	s.Ctrl.Select("b", "c")
	s.SendToBack()
	if got := zOrder(s); got != "c,b,a" {
		t.Fatalf("after back = %s, want c,b,a", got)
	}

	s.Ctrl.Select("c")
	if n := s.Raise(1); n != 1 {
		t.Fatalf("raise moved %d", n)
	}
	if got := zOrder(s); got != "b,c,a" {
		t.Fatalf("after raise = %s, want b,c,a", got)
	}
}

func TestSessionFitSizeToGrid(t *testing.T) {
	s := newTestSession(t, "")
	addAt(t, s, "a", 0, 0, 33, 47)
	if s.FitSizeToGrid() {
		t.Fatalf("nothing selected should be a no-op")
	}
	s.Ctrl.Select("a")
	if !s.FitSizeToGrid() {
		t.Fatalf("fit failed")
	}
	if r, _ := s.Store.Region("a"); r.Width != 30 || r.Height != 50 {
		t.Fatalf("size = %vx%v, want 30x50", r.Width, r.Height)
	}
	if s.FitSizeToGrid() {
		t.Fatalf("already on grid should report no change")
	}
}

func TestSessionSetInfo(t *testing.T) {
	s := newTestSession(t, filepath.Join(t.TempDir(), "quiz.json"))
	if err := s.SetInfo("  ", ""); !errors.Is(err, schema.ErrEmptyName) {
		t.Fatalf("blank name err = %v", err)
	}
	entries := len(s.Store.History().Items)
	if err := s.SetInfo("Term 2 Quiz", "Chapters 4-6"); err != nil {
		t.Fatalf("SetInfo: %v", err)
	}
	tpl := s.Store.Template()
	if tpl.Name != "Term 2 Quiz" || tpl.Description != "Chapters 4-6" {
		t.Fatalf("info = %q / %q", tpl.Name, tpl.Description)
	}
	if !s.Dirty() || !strings.Contains(s.Title(), "Term 2 Quiz") {
		t.Fatalf("rename should dirty the session: %q", s.Title())
	}
	if got := len(s.Store.History().Items); got != entries {
		t.Fatalf("rename appended history: %d -> %d", entries, got)
	}
}

func writeTemplateFile(t *testing.T, tpl domain.TemplateData) string {
	t.Helper()
	b, err := schema.Marshal(tpl, schema.FormatJSON)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	path := filepath.Join(t.TempDir(), tpl.ID+".json")
	if err := os.WriteFile(path, b, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	return path
}

func TestSessionImportFile(t *testing.T) {
	own := filepath.Join(t.TempDir(), "own.json")
	s := newTestSession(t, own)
	if s.Dirty() {
		t.Fatalf("fresh session is dirty")
	}

	foreign := domain.NewTemplate("ext", "Imported", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	foreign.SchemaVersion = "2.0.0"
	res, err := s.ImportFile(writeTemplateFile(t, foreign))
	if err != nil || res.Success || !errors.Is(res.Err(), schema.ErrUnsupportedSchemaVersion) {
		t.Fatalf("foreign import = %+v (%v)", res, err)
	}
	if s.Dirty() || s.Store.Template().Name == "Imported" {
		t.Fatalf("rejected import must leave the session alone")
	}

	good := domain.NewTemplate("ext", "Imported", time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC))
	r, _ := domain.NewRegion(domain.RegionAnchor, "r1", vector.R(10, 10, 20, 20))
	good.Regions = []domain.Region{r}
	res, err = s.ImportFile(writeTemplateFile(t, good))
	if err != nil || !res.Success {
		t.Fatalf("import = %+v (%v)", res, err)
	}
	if s.Store.Template().Name != "Imported" || s.Path != own {
		t.Fatalf("import should replace the template and keep the path: %q %q", s.Store.Template().Name, s.Path)
	}
	if !s.Dirty() {
		t.Fatalf("an imported template is unsaved")
	}
	if s.Store.CanUndo() {
		t.Fatalf("import resets history")
	}

	if _, err := s.ImportFile(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("missing file should fail")
	}
}

func TestSessionBackground(t *testing.T) {
	s := newTestSession(t, "")
	path := filepath.Join(t.TempDir(), "scan.png")
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := png.Encode(f, image.NewRGBA(image.Rect(0, 0, 64, 48))); err != nil {
		t.Fatalf("encode: %v", err)
	}
	_ = f.Close()

	if err := s.SetBackground(path); err != nil {
		t.Fatalf("SetBackground: %v", err)
	}
	tpl := s.Store.Template()
	if tpl.BackgroundImage == nil || tpl.BackgroundImage.URL != path {
		t.Fatalf("background = %+v", tpl.BackgroundImage)
	}
	if tpl.Canvas.Width != 64 || tpl.Canvas.Height != 48 {
		t.Fatalf("canvas = %vx%v, want 64x48", tpl.Canvas.Width, tpl.Canvas.Height)
	}
	if !s.RemoveBackground() || s.Store.Template().BackgroundImage != nil {
		t.Fatalf("background not removed")
	}
	if s.RemoveBackground() {
		t.Fatalf("removing twice should report no change")
	}

	notImage := filepath.Join(t.TempDir(), "notes.txt")
	_ = os.WriteFile(notImage, []byte("plain text"), 0o644)
	if err := s.SetBackground(notImage); err == nil {
		t.Fatalf("expected a decode error")
	}
}

func TestSessionTemplateTextAndClearHistory(t *testing.T) {
	s := newTestSession(t, "")
	if _, err := s.TemplateText(schema.FormatJSON); !errors.Is(err, schema.ErrNoRegions) {
		t.Fatalf("empty template err = %v", err)
	}
	addAt(t, s, "a", 0, 0, 10, 10)
	b, err := s.TemplateText(schema.FormatJSON)
	if err != nil || !strings.HasPrefix(strings.TrimSpace(string(b)), "{") {
		t.Fatalf("text = %q (%v)", b, err)
	}
	if !s.Store.CanUndo() {
		t.Fatalf("expected undo after add")
	}
	s.ClearHistory()
	if s.Store.CanUndo() || len(s.Store.Template().Regions) != 1 {
		t.Fatalf("clear history must keep the template and drop undo")
	}
}
