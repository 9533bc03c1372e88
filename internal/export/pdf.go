/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/render"
	"sheetdesigner/internal/vector"
)

// WritePDF writes t as a single-page PDF proof. The page matches the canvas
// size converted to points; vector text uses the built-in Helvetica.
// Options.DPI does not affect vector output.
func WritePDF(w io.Writer, t domain.TemplateData, opt Options) error {
	_, ov := opt.resolve(t)
	scale := 72.0 / canvasDPI(t)
	pageW, pageH := t.Canvas.Width*scale, t.Canvas.Height*scale

	pdf := gofpdf.NewCustom(&gofpdf.InitType{
		UnitStr: "pt",
		Size:    gofpdf.SizeType{Wd: pageW, Ht: pageH},
	})
	pdf.SetTitle(t.Name, true)
	pdf.SetAuthor(t.Metadata.Author, true)
	pdf.SetSubject(t.Metadata.Subject, true)
	pdf.SetCreator("sheetdesigner", true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPageFormat("P", gofpdf.SizeType{Wd: pageW, Ht: pageH})

	render.Paint(&pdfSurface{pdf: pdf, scale: scale}, t, ov)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("write pdf: %w", err)
	}
	return nil
}

type pdfSurface struct {
	pdf   *gofpdf.Fpdf
	scale float64
}

func (s *pdfSurface) style(st render.Style) string {
	if st.Stroke.Enabled {
		setDrawColor(s.pdf, st.Stroke.Color)
		s.pdf.SetLineWidth(st.Stroke.Width * s.scale)
		if st.Stroke.Dashed {
			s.pdf.SetDashPattern([]float64{3, 2}, 0)
		} else {
			s.pdf.SetDashPattern(nil, 0)
		}
	}
	if st.Fill.Enabled {
		setFillColor(s.pdf, st.Fill.Color)
	}
	switch {
	case st.Fill.Enabled && st.Stroke.Enabled:
		return "FD"
	case st.Fill.Enabled:
		return "F"
	case st.Stroke.Enabled:
		return "D"
	}
	return ""
}

func (s *pdfSurface) Rect(r vector.Rect, st render.Style) {
	if op := s.style(st); op != "" {
		s.pdf.Rect(r.X*s.scale, r.Y*s.scale, r.W*s.scale, r.H*s.scale, op)
	}
}

func (s *pdfSurface) Ellipse(c vector.Pt, rx, ry float64, st render.Style) {
	if op := s.style(st); op != "" {
		s.pdf.Ellipse(c.X*s.scale, c.Y*s.scale, rx*s.scale, ry*s.scale, 0, op)
	}
}

func (s *pdfSurface) Line(a, b vector.Pt, st render.Style) {
	if !st.Stroke.Enabled {
		return
	}
	s.style(st)
	s.pdf.Line(a.X*s.scale, a.Y*s.scale, b.X*s.scale, b.Y*s.scale)
}

func (s *pdfSurface) Text(p vector.Pt, size float64, str string, c vector.Color) {
	s.pdf.SetFont("Helvetica", "", size*s.scale)
	s.pdf.SetTextColor(int(c.R), int(c.G), int(c.B))
	s.pdf.Text(p.X*s.scale, p.Y*s.scale, str)
}

func setDrawColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetDrawColor(int(c.R), int(c.G), int(c.B))
}

func setFillColor(pdf *gofpdf.Fpdf, c vector.Color) {
	pdf.SetFillColor(int(c.R), int(c.G), int(c.B))
}
