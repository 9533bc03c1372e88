/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package render paints a template onto an abstract drawing surface. The
// PNG, SVG and PDF exporters as well as the interactive canvas implement
// Surface, so every output shows the same picture.
package render

import (
	"fmt"
	"sort"
	"strconv"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/textlayout"
	"sheetdesigner/internal/vector"
)

// Style combines the stroke and fill of one primitive.
type Style struct {
	Stroke vector.Stroke
	Fill   vector.Fill
}

// Surface receives primitives in world coordinates (canvas units).
type Surface interface {
	Rect(r vector.Rect, st Style)
	Ellipse(center vector.Pt, rx, ry float64, st Style)
	Line(a, b vector.Pt, st Style)
	// Text draws s with its baseline starting at p.
	Text(p vector.Pt, size float64, s string, c vector.Color)
}

// Theme holds the colors used for each region type and for the overlay.
type Theme struct {
	Ink       vector.Color
	Grid      vector.Color
	Anchor    vector.Color
	Barcode   vector.Color
	Objective vector.Color
	Subject   vector.Color
	Selection vector.Color
	Guide     vector.Color
}

// DefaultTheme mirrors the editor palette.
var DefaultTheme = Theme{
	Ink:       vector.Black,
	Grid:      vector.Color{R: 230, G: 230, B: 230, A: 255},
	Anchor:    vector.Color{R: 239, G: 68, B: 68, A: 255},
	Barcode:   vector.Color{R: 59, G: 130, B: 246, A: 255},
	Objective: vector.Color{R: 16, G: 185, B: 129, A: 255},
	Subject:   vector.Color{R: 245, G: 158, B: 11, A: 255},
	Selection: vector.Color{R: 37, G: 99, B: 235, A: 255},
	Guide:     vector.Color{R: 236, G: 72, B: 153, A: 255},
}

// Accent is the outline color of a region type.
func (th Theme) Accent(t domain.RegionType) vector.Color {
	switch t {
	case domain.RegionAnchor:
		return th.Anchor
	case domain.RegionBarcode:
		return th.Barcode
	case domain.RegionObjective:
		return th.Objective
	case domain.RegionSubjective:
		return th.Subject
	}
	return th.Ink
}

// Overlay adds editor-only decorations. The zero value paints a clean sheet
// suitable for print.
type Overlay struct {
	Grid       bool
	Background bool
	Labels     bool
	Selected   []string
	// DragOffset is added to every selected region while a drag is in flight.
	DragOffset   vector.Pt
	SelectionBox *vector.Rect
	DrawPreview  *vector.Rect
	Guides       []vector.GuideLine
	Theme        *Theme
}

func (o Overlay) theme() Theme {
	if o.Theme != nil {
		return *o.Theme
	}
	return DefaultTheme
}

// Paint draws t onto s. Invisible regions are skipped; the rest are drawn in
// ascending zIndex order.
func Paint(s Surface, t domain.TemplateData, o Overlay) {
	th := o.theme()
	bounds := t.Canvas.Bounds()

	bg := vector.White
	if c, err := vector.ParseHex(t.Canvas.BackgroundColor); err == nil {
		bg = c
	}
	s.Rect(bounds, Style{Fill: vector.Fill{Color: bg, Enabled: true}})

	if o.Background && t.BackgroundImage != nil {
		paintBackground(s, *t.BackgroundImage, th)
	}
	if o.Grid && t.Canvas.GridSize > 0 {
		paintGrid(s, bounds, t.Canvas.GridSize, th.Grid)
	}

	selected := make(map[string]bool, len(o.Selected))
	for _, id := range o.Selected {
		selected[id] = true
	}

	for _, r := range sortedVisible(t.Regions) {
		if selected[r.ID] {
			r.X += o.DragOffset.X
			r.Y += o.DragOffset.Y
		}
		PaintRegion(s, r, th, o.Labels)
		if selected[r.ID] {
			s.Rect(r.Bounds().Inset(-2, -2), Style{Stroke: vector.Stroke{Color: th.Selection, Width: 2, Enabled: true}})
		}
	}

	dashed := Style{Stroke: vector.Stroke{Color: th.Selection, Width: 1, Dashed: true, Enabled: true}}
	if o.DrawPreview != nil {
		s.Rect(*o.DrawPreview, dashed)
	}
	if o.SelectionBox != nil {
		box := dashed
		box.Fill = vector.Fill{Color: vector.Color{R: th.Selection.R, G: th.Selection.G, B: th.Selection.B, A: 32}, Enabled: true}
		s.Rect(*o.SelectionBox, box)
	}
	for _, g := range o.Guides {
		s.Line(g.From, g.To, Style{Stroke: vector.Stroke{Color: th.Guide, Width: 1, Enabled: true}})
	}
}

func sortedVisible(rs []domain.Region) []domain.Region {
	out := make([]domain.Region, 0, len(rs))
	for _, r := range rs {
		if r.Visible {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

func paintBackground(s Surface, bg domain.BackgroundImage, th Theme) {
	r := vector.R(0, 0, bg.Width, bg.Height)
	s.Rect(r, Style{Stroke: vector.Stroke{Color: th.Grid, Width: 1, Dashed: true, Enabled: true}})
	s.Text(vector.Pt{X: 4, Y: 14}, 10, bg.URL, th.Grid)
}

func paintGrid(s Surface, b vector.Rect, step float64, c vector.Color) {
	st := Style{Stroke: vector.Stroke{Color: c, Width: 0.5, Enabled: true}}
	for x := step; x < b.W; x += step {
		s.Line(vector.Pt{X: x, Y: 0}, vector.Pt{X: x, Y: b.H}, st)
	}
	for y := step; y < b.H; y += step {
		s.Line(vector.Pt{X: 0, Y: y}, vector.Pt{X: b.W, Y: y}, st)
	}
}

// PaintRegion draws a single region, including its variant-specific content.
func PaintRegion(s Surface, r domain.Region, th Theme, labels bool) {
	accent := th.Accent(r.Type())
	outline := Style{Stroke: vector.Stroke{Color: accent, Width: 1, Enabled: true}}
	ink := Style{Stroke: vector.Stroke{Color: th.Ink, Width: 1, Enabled: true}}
	solid := Style{Fill: vector.Fill{Color: th.Ink, Enabled: true}}
	b := r.Bounds()

	switch p := r.Props.(type) {
	case *domain.AnchorProps:
		switch p.Shape {
		case domain.AnchorCircle:
			s.Ellipse(b.Center(), b.W/2, b.H/2, solid)
		case domain.AnchorCross:
			c := b.Center()
			thick := ink
			thick.Stroke.Width = max(1, min(b.W, b.H)/6)
			s.Line(vector.Pt{X: b.X, Y: c.Y}, vector.Pt{X: b.X + b.W, Y: c.Y}, thick)
			s.Line(vector.Pt{X: c.X, Y: b.Y}, vector.Pt{X: c.X, Y: b.Y + b.H}, thick)
		default:
			s.Rect(b, solid)
		}
	case *domain.BarcodeProps:
		s.Rect(b, outline)
		paintBarcode(s, b.Inset(4, 4), p, solid)
	case *domain.ObjectiveProps:
		s.Rect(b, outline)
		paintObjective(s, r, p, ink, th.Ink)
	case *domain.SubjectiveProps:
		s.Rect(b, outline)
		paintSubjective(s, b, p, th)
	default:
		s.Rect(b, outline)
	}

	if labels {
		if name := textlayout.Fit(nil, 10, b.W, r.Name); name != "" {
			s.Text(vector.Pt{X: b.X, Y: b.Y - 3}, 10, name, accent)
		}
	}
}

// barWidths is a fixed module pattern; exported sheets carry a placeholder,
// the scanner prints the real code per student.
var barWidths = []float64{2, 1, 1, 3, 1, 2, 2, 1, 3, 1, 1, 2, 1, 1, 2, 3}

func paintBarcode(s Surface, b vector.Rect, p *domain.BarcodeProps, solid Style) {
	if b.W <= 0 || b.H <= 0 {
		return
	}
	switch p.BarcodeType {
	case domain.BarcodeQR:
		side := min(b.W, b.H)
		f := side * 0.3
		for _, o := range []vector.Pt{{X: 0, Y: 0}, {X: side - f, Y: 0}, {X: 0, Y: side - f}} {
			s.Rect(vector.R(b.X+o.X, b.Y+o.Y, f, f), solid)
		}
	case domain.BarcodeDataMatrix:
		side := min(b.W, b.H)
		w := max(1, side/10)
		s.Rect(vector.R(b.X, b.Y, w, side), solid)
		s.Rect(vector.R(b.X, b.Y+side-w, side, w), solid)
	default:
		total := 0.0
		for _, w := range barWidths {
			total += w
		}
		along, across := b.W, b.H
		if p.Orientation == domain.Vertical {
			along, across = b.H, b.W
		}
		unit := along / (2 * total)
		pos := 0.0
		for _, w := range barWidths {
			bar := w * unit
			if p.Orientation == domain.Vertical {
				s.Rect(vector.R(b.X, b.Y+pos, across, bar), solid)
			} else {
				s.Rect(vector.R(b.X+pos, b.Y, bar, across), solid)
			}
			pos += 2 * bar
		}
	}
}

func paintObjective(s Surface, r domain.Region, p *domain.ObjectiveProps, ink Style, c vector.Color) {
	size := p.BubbleSize * 0.7
	for _, cell := range ObjectiveBubbles(r.Bounds(), p) {
		s.Text(cell.LabelAt, size, strconv.Itoa(cell.Number), c)
		for _, bb := range cell.Bubbles {
			switch p.BubbleStyle {
			case domain.BubbleSquare:
				s.Rect(vector.R(bb.Center.X-bb.Radius, bb.Center.Y-bb.Radius, 2*bb.Radius, 2*bb.Radius), ink)
			case domain.BubbleOval:
				s.Ellipse(bb.Center, bb.Radius, bb.Radius*0.7, ink)
			default:
				s.Ellipse(bb.Center, bb.Radius, bb.Radius, ink)
			}
		}
	}
}

func paintSubjective(s Surface, b vector.Rect, p *domain.SubjectiveProps, th Theme) {
	inner := b.Inset(p.Margin, p.Margin)
	header := fmt.Sprintf("%d. (%s pts)", p.QuestionNumber, strconv.FormatFloat(p.TotalScore, 'f', -1, 64))
	if header = textlayout.Fit(nil, 12, inner.W, header); header != "" {
		s.Text(vector.Pt{X: inner.X, Y: inner.Y + 12}, 12, header, th.Ink)
	}
	if !p.HasLines || p.LineSpacing <= 0 {
		return
	}
	st := Style{Stroke: vector.Stroke{Color: th.Grid, Width: 1, Enabled: true}}
	for _, y := range AnswerLines(b, p) {
		s.Line(vector.Pt{X: inner.X, Y: y}, vector.Pt{X: inner.X + inner.W, Y: y}, st)
	}
}

// AnswerLines returns the y coordinates of the ruled lines in a subjective
// region. The first line sits one spacing below the header. Spacing is
// floored at domain.MinLineSpacing and at most domain.MaxAnswerLines lines
// are returned.
func AnswerLines(b vector.Rect, p *domain.SubjectiveProps) []float64 {
	if !p.HasLines || p.LineSpacing <= 0 {
		return nil
	}
	step := max(p.LineSpacing, domain.MinLineSpacing)
	inner := b.Inset(p.Margin, p.Margin)
	var ys []float64
	for y := inner.Y + 12 + step; y <= inner.Y+inner.H && len(ys) < domain.MaxAnswerLines; y += step {
		ys = append(ys, y)
	}
	return ys
}
