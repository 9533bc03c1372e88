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
	"bytes"
	"fmt"
	"io"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/render"
	"sheetdesigner/internal/vector"
)

// RenderSVG returns t as a standalone SVG document. The viewBox uses canvas
// units; width and height are scaled to the requested DPI.
func RenderSVG(t domain.TemplateData, opt Options) ([]byte, error) {
	dpi, ov := opt.resolve(t)
	scale := float64(dpi) / canvasDPI(t)

	s := &svgSurface{}
	s.wf("<?xml version=\"1.0\" encoding=\"UTF-8\"?>\n")
	s.wf("<svg xmlns=\"http://www.w3.org/2000/svg\" width=\"%g\" height=\"%g\" viewBox=\"0 0 %g %g\" data-template-id=\"%s\">\n",
		t.Canvas.Width*scale, t.Canvas.Height*scale, t.Canvas.Width, t.Canvas.Height, escAttr(t.ID))
	s.wf("  <title>%s</title>\n", escText(t.Name))
	render.Paint(s, t, ov)
	s.wf("</svg>\n")

	if s.err != nil {
		return nil, fmt.Errorf("build svg: %w", s.err)
	}
	return s.buf.Bytes(), nil
}

// WriteSVG renders t and writes the document to w.
func WriteSVG(w io.Writer, t domain.TemplateData, opt Options) error {
	b, err := RenderSVG(t, opt)
	if err != nil {
		return err
	}
	if _, err := w.Write(b); err != nil {
		return fmt.Errorf("write svg: %w", err)
	}
	return nil
}

type svgSurface struct {
	buf bytes.Buffer
	err error
}

func (s *svgSurface) wf(format string, args ...any) {
	if s.err != nil {
		return
	}
	_, s.err = fmt.Fprintf(&s.buf, format, args...)
}

func (s *svgSurface) Rect(r vector.Rect, st render.Style) {
	s.wf("  <rect x=\"%g\" y=\"%g\" width=\"%g\" height=\"%g\" %s/>\n", r.X, r.Y, r.W, r.H, svgPaint(st))
}

func (s *svgSurface) Ellipse(c vector.Pt, rx, ry float64, st render.Style) {
	if rx == ry {
		s.wf("  <circle cx=\"%g\" cy=\"%g\" r=\"%g\" %s/>\n", c.X, c.Y, rx, svgPaint(st))
		return
	}
	s.wf("  <ellipse cx=\"%g\" cy=\"%g\" rx=\"%g\" ry=\"%g\" %s/>\n", c.X, c.Y, rx, ry, svgPaint(st))
}

func (s *svgSurface) Line(a, b vector.Pt, st render.Style) {
	s.wf("  <line x1=\"%g\" y1=\"%g\" x2=\"%g\" y2=\"%g\" %s/>\n", a.X, a.Y, b.X, b.Y, svgPaint(st))
}

func (s *svgSurface) Text(p vector.Pt, size float64, str string, c vector.Color) {
	s.wf("  <text x=\"%g\" y=\"%g\" font-family=\"Helvetica, Arial, sans-serif\" font-size=\"%g\" fill=\"%s\">%s</text>\n",
		p.X, p.Y, size, svgColor(c), escText(str))
}

func svgPaint(st render.Style) string {
	fill := "none"
	if st.Fill.Enabled {
		fill = svgColor(st.Fill.Color)
		if a := st.Fill.Color.A; a < 255 {
			fill += fmt.Sprintf("\" fill-opacity=\"%.3g", float64(a)/255)
		}
	}
	out := fmt.Sprintf("fill=\"%s\"", fill)
	if st.Stroke.Enabled {
		out += fmt.Sprintf(" stroke=\"%s\" stroke-width=\"%g\"", svgColor(st.Stroke.Color), st.Stroke.Width)
		if st.Stroke.Dashed {
			out += " stroke-dasharray=\"4 2\""
		}
	}
	return out
}

func svgColor(c vector.Color) string {
	return c.Hex()
}

func escAttr(s string) string {
	// naive escaping sufficient for our simple usage
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '"':
			out = append(out, '&', 'q', 'u', 'o', 't', ';')
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '\n':
			out = append(out, ' ')
		case '\r':
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}

func escText(s string) string {
	out := make([]byte, 0, len(s))
	for i := 0; i < len(s); i++ {
		ch := s[i]
		switch ch {
		case '&':
			out = append(out, '&', 'a', 'm', 'p', ';')
		case '<':
			out = append(out, '&', 'l', 't', ';')
		case '>':
			out = append(out, '&', 'g', 't', ';')
		default:
			out = append(out, ch)
		}
	}
	return string(out)
}
