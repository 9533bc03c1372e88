/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"sheetdesigner/internal/vector"
)

func mustRegion(t *testing.T, kind RegionType, id string, r vector.Rect) Region {
	t.Helper()
	reg, err := NewRegion(kind, id, r)
	if err != nil {
		t.Fatalf("NewRegion(%s): %v", kind, err)
	}
	return reg
}

func TestTemplateJSONRoundTrip(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	tpl := NewTemplate("tpl-1", "Midterm", now)
	tpl.BackgroundImage = &BackgroundImage{URL: "scan.png", Width: 800, Height: 1100, Opacity: 0.5}
	tpl.Regions = []Region{
		mustRegion(t, RegionAnchor, "a1", vector.R(10, 10, 20, 20)),
		mustRegion(t, RegionBarcode, "b1", vector.R(100, 20, 200, 60)),
		mustRegion(t, RegionObjective, "o1", vector.R(50, 200, 300, 200)),
		mustRegion(t, RegionSubjective, "s1", vector.R(50, 500, 600, 300)),
	}

	b, err := json.Marshal(tpl)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var got TemplateData
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.Name != tpl.Name || got.SchemaVersion != SchemaVersion {
		t.Fatalf("identity mismatch: %+v", got)
	}
	if len(got.Regions) != 4 {
		t.Fatalf("want 4 regions, got %d", len(got.Regions))
	}
	for i, r := range got.Regions {
		if r.Type() != tpl.Regions[i].Type() {
			t.Fatalf("region %d: type %q want %q", i, r.Type(), tpl.Regions[i].Type())
		}
		if r.Base != tpl.Regions[i].Base {
			t.Fatalf("region %d: base %+v want %+v", i, r.Base, tpl.Regions[i].Base)
		}
	}
	obj, ok := got.Regions[2].Props.(*ObjectiveProps)
	if !ok {
		t.Fatalf("objective props type %T", got.Regions[2].Props)
	}
	if *obj != *tpl.Regions[2].Props.(*ObjectiveProps) {
		t.Fatalf("objective props mismatch: %+v", obj)
	}
}

func TestRegionJSONIsFlat(t *testing.T) {
	r := mustRegion(t, RegionBarcode, "b1", vector.R(1, 2, 30, 40))
	b, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		t.Fatalf("unmarshal map: %v", err)
	}
	for _, k := range []string{"type", "id", "x", "width", "zIndex", "barcodeType", "orientation"} {
		if _, ok := m[k]; !ok {
			t.Fatalf("missing key %q in %s", k, b)
		}
	}
	if m["type"] != "barcode" {
		t.Fatalf("type = %v", m["type"])
	}
}

func TestRegionUnmarshalDefaultsVisibleAndRejectsUnknownType(t *testing.T) {
	var r Region
	if err := json.Unmarshal([]byte(`{"type":"anchor","id":"x","width":5,"height":5,"shape":"cross","precision":"low"}`), &r); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !r.Visible {
		t.Fatalf("expected missing visible flag to default to true")
	}
	if a := r.Props.(*AnchorProps); a.Shape != AnchorCross || a.Precision != PrecisionLow {
		t.Fatalf("anchor props = %+v", a)
	}

	err := json.Unmarshal([]byte(`{"type":"hexagon","id":"y"}`), &r)
	if err == nil || !strings.Contains(err.Error(), "hexagon") {
		t.Fatalf("expected unknown type error, got %v", err)
	}
}

func TestCloneIsDeep(t *testing.T) {
	tpl := NewTemplate("t", "n", time.Unix(0, 0))
	tpl.Regions = []Region{mustRegion(t, RegionObjective, "o", vector.R(0, 0, 100, 100))}
	tpl.Metadata.Tags = []string{"math"}
	tpl.BackgroundImage = &BackgroundImage{URL: "a"}

	c := tpl.Clone()
	c.Regions[0].X = 55
	c.Regions[0].Props.(*ObjectiveProps).QuestionCount = 99
	c.Metadata.Tags[0] = "art"
	c.BackgroundImage.URL = "b"

	if tpl.Regions[0].X != 0 {
		t.Fatalf("base leaked into original")
	}
	if tpl.Regions[0].Props.(*ObjectiveProps).QuestionCount != 5 {
		t.Fatalf("props leaked into original")
	}
	if tpl.Metadata.Tags[0] != "math" || tpl.BackgroundImage.URL != "a" {
		t.Fatalf("metadata or background leaked into original")
	}
}

func TestNewRegionClampsAndDefaults(t *testing.T) {
	r := mustRegion(t, RegionAnchor, "a", vector.R(5, 5, 0, -3))
	if r.Width != 1 || r.Height != 1 {
		t.Fatalf("want 1x1, got %vx%v", r.Width, r.Height)
	}
	if r.Props.(*AnchorProps).AnchorID != "a" {
		t.Fatalf("anchor id not set")
	}
	if _, err := NewRegion("nope", "x", vector.R(0, 0, 1, 1)); err == nil {
		t.Fatalf("expected error for unknown type")
	}
	for _, k := range RegionTypes {
		if err := mustRegion(t, k, "id", vector.R(0, 0, 50, 50)).CheckProps(); err != nil {
			t.Fatalf("defaults for %s invalid: %v", k, err)
		}
	}
}

func TestCheckPropsRejectsBadEnums(t *testing.T) {
	r := mustRegion(t, RegionBarcode, "b", vector.R(0, 0, 50, 50))
	r.Props.(*BarcodeProps).BarcodeType = "ean13"
	if err := r.CheckProps(); err == nil {
		t.Fatalf("expected invalid barcode type")
	}
	o := mustRegion(t, RegionObjective, "o", vector.R(0, 0, 50, 50))
	o.Props.(*ObjectiveProps).QuestionsPerRow = 0
	if err := o.CheckProps(); err == nil {
		t.Fatalf("expected invalid objective counts")
	}
	if err := (Region{}).CheckProps(); err == nil {
		t.Fatalf("expected error for untyped region")
	}
}

func TestCheckPropsRejectsOversizedGeometry(t *testing.T) {
	o := mustRegion(t, RegionObjective, "o", vector.R(0, 0, 50, 50))
	op := o.Props.(*ObjectiveProps)
	op.QuestionCount = MaxQuestionCount
	op.OptionsPerQuestion = MaxOptionsPerQuestion
	if err := o.CheckProps(); err != nil {
		t.Fatalf("limits themselves are allowed: %v", err)
	}
	op.QuestionCount = 1 << 30
	if err := o.CheckProps(); err == nil || !strings.Contains(err.Error(), "too large") {
		t.Fatalf("huge question count err = %v", err)
	}
	op.QuestionCount, op.OptionsPerQuestion = 5, MaxOptionsPerQuestion+1
	if err := o.CheckProps(); err == nil {
		t.Fatalf("expected too many options")
	}

	s := mustRegion(t, RegionSubjective, "s", vector.R(0, 0, 50, 50))
	s.Props.(*SubjectiveProps).LineSpacing = 0.001
	if err := s.CheckProps(); err == nil {
		t.Fatalf("expected tiny line spacing to be refused")
	}
	s.Props.(*SubjectiveProps).HasLines = false
	if err := s.CheckProps(); err != nil {
		t.Fatalf("spacing is irrelevant without lines: %v", err)
	}
}

func TestMaxZIndexAndFind(t *testing.T) {
	tpl := NewTemplate("t", "n", time.Unix(0, 0))
	if tpl.MaxZIndex() != -1 {
		t.Fatalf("empty template max z = %d", tpl.MaxZIndex())
	}
	a := mustRegion(t, RegionAnchor, "a", vector.R(0, 0, 10, 10))
	b := mustRegion(t, RegionAnchor, "b", vector.R(0, 0, 10, 10))
	b.ZIndex = 4
	tpl.Regions = append(tpl.Regions, a, b)
	if tpl.MaxZIndex() != 4 {
		t.Fatalf("max z = %d", tpl.MaxZIndex())
	}
	if tpl.FindRegion("b") == nil || tpl.FindRegion("zz") != nil {
		t.Fatalf("FindRegion mismatch")
	}
}
