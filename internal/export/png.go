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
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"io"
	"math"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/render"
	"sheetdesigner/internal/vector"
)

// Options controls rendered exports.
//   - DPI: output resolution; 0 uses the template's export settings, then 300.
//   - Overlay: grid and background; nil derives them from export settings.
type Options struct {
	DPI     int
	Overlay *render.Overlay
}

func (o Options) resolve(t domain.TemplateData) (dpi int, ov render.Overlay) {
	dpi = o.DPI
	if dpi <= 0 {
		dpi = t.ExportSettings.DPI
	}
	if dpi <= 0 {
		dpi = 300
	}
	if o.Overlay != nil {
		ov = *o.Overlay
	} else {
		ov = render.ExportOverlay(t.ExportSettings)
	}
	return dpi, ov
}

// canvasDPI is the unit scale of template coordinates.
func canvasDPI(t domain.TemplateData) float64 {
	if t.Canvas.DPI > 0 {
		return float64(t.Canvas.DPI)
	}
	return 96
}

// RenderPNG rasterizes t into an image.
func RenderPNG(t domain.TemplateData, opt Options) *image.RGBA {
	dpi, ov := opt.resolve(t)
	scale := float64(dpi) / canvasDPI(t)
	w := int(math.Round(t.Canvas.Width * scale))
	h := int(math.Round(t.Canvas.Height * scale))
	img := image.NewRGBA(image.Rect(0, 0, max(w, 1), max(h, 1)))
	draw.Draw(img, img.Bounds(), &image.Uniform{C: color.RGBA{255, 255, 255, 255}}, image.Point{}, draw.Src)

	render.Paint(&pngSurface{img: img, scale: scale}, t, ov)
	return img
}

// WritePNG renders t and encodes it as PNG.
func WritePNG(w io.Writer, t domain.TemplateData, opt Options) error {
	if err := png.Encode(w, RenderPNG(t, opt)); err != nil {
		return fmt.Errorf("encode png: %w", err)
	}
	return nil
}

// pngSurface rasterizes without anti-aliasing; answer sheets are mostly
// axis-aligned boxes and the proof only needs to be legible.
type pngSurface struct {
	img   *image.RGBA
	scale float64
}

func (s *pngSurface) px(v float64) int { return int(math.Round(v * s.scale)) }

func (s *pngSurface) Rect(r vector.Rect, st render.Style) {
	x0, y0 := s.px(r.X), s.px(r.Y)
	x1, y1 := s.px(r.X+r.W)-1, s.px(r.Y+r.H)-1
	if st.Fill.Enabled {
		fillRect(s.img, x0, y0, x1, y1, toRGBA(st.Fill.Color))
	}
	if st.Stroke.Enabled {
		strokeRect(s.img, x0, y0, x1, y1, toRGBA(st.Stroke.Color))
	}
}

func (s *pngSurface) Ellipse(c vector.Pt, rx, ry float64, st render.Style) {
	cx, cy := c.X*s.scale, c.Y*s.scale
	ax, ay := rx*s.scale, ry*s.scale
	if ax <= 0 || ay <= 0 {
		return
	}
	fill, stroke := toRGBA(st.Fill.Color), toRGBA(st.Stroke.Color)
	// pixels within one device pixel of the outline count as stroke
	inner := func(d float64) bool { return d <= 1-1/math.Min(ax, ay) }
	for y := int(cy - ay - 1); y <= int(cy+ay+1); y++ {
		for x := int(cx - ax - 1); x <= int(cx+ax+1); x++ {
			dx, dy := (float64(x)+0.5-cx)/ax, (float64(y)+0.5-cy)/ay
			d := math.Sqrt(dx*dx + dy*dy)
			if d > 1 {
				continue
			}
			switch {
			case st.Stroke.Enabled && !inner(d):
				s.img.SetRGBA(x, y, stroke)
			case st.Fill.Enabled:
				s.img.SetRGBA(x, y, fill)
			}
		}
	}
}

func (s *pngSurface) Line(a, b vector.Pt, st render.Style) {
	if !st.Stroke.Enabled {
		return
	}
	col := toRGBA(st.Stroke.Color)
	w := max(1, s.px(st.Stroke.Width))
	x0, y0, x1, y1 := s.px(a.X), s.px(a.Y), s.px(b.X), s.px(b.Y)
	dx, dy := abs(x1-x0), -abs(y1-y0)
	sx, sy := sign(x1-x0), sign(y1-y0)
	e := dx + dy
	for i := 0; ; i++ {
		if !st.Stroke.Dashed || (i/4)%2 == 0 {
			fillRect(s.img, x0-w/2, y0-w/2, x0-w/2+w-1, y0-w/2+w-1, col)
		}
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * e
		if e2 >= dy {
			e += dy
			x0 += sx
		}
		if e2 <= dx {
			e += dx
			y0 += sy
		}
	}
}

func (s *pngSurface) Text(p vector.Pt, _ float64, str string, c vector.Color) {
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(toRGBA(c)),
		Face: basicfont.Face7x13,
		Dot:  fixed.P(s.px(p.X), s.px(p.Y)),
	}
	d.DrawString(str)
}

func toRGBA(c vector.Color) color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: c.A}
}

// strokeRect draws a 1px axis-aligned rectangle border inclusive of endpoints.
func strokeRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	for x := x0; x <= x1; x++ {
		img.SetRGBA(x, y0, col)
		img.SetRGBA(x, y1, col)
	}
	for y := y0; y <= y1; y++ {
		img.SetRGBA(x0, y, col)
		img.SetRGBA(x1, y, col)
	}
}

func fillRect(img *image.RGBA, x0, y0, x1, y1 int, col color.RGBA) {
	if x1 < x0 {
		x0, x1 = x1, x0
	}
	if y1 < y0 {
		y0, y1 = y1, y0
	}
	for y := y0; y <= y1; y++ {
		for x := x0; x <= x1; x++ {
			img.SetRGBA(x, y, col)
		}
	}
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v < 0:
		return -1
	case v > 0:
		return 1
	}
	return 0
}
