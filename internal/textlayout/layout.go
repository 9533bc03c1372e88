/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package textlayout measures and fits the short labels painted on a sheet:
// region names, question numbers and subjective headers. All measurement goes
// through a Provider so every surface truncates labels the same way.
package textlayout

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// Ellipsis is appended to labels cut to fit a width.
const Ellipsis = "..."

// Metrics provides font metrics in canvas units for a given size.
type Metrics struct {
	Ascent, Descent, LineGap float64
}

// Provider maps a font size to a face and the scale that turns the face's
// pixel advances into canvas units.
type Provider interface {
	Resolve(size float64) (font.Face, float64)
}

// BasicProvider uses x/image/basicfont Face7x13 scaled linearly, which keeps
// measurement deterministic across platforms.
type BasicProvider struct{}

func (BasicProvider) Resolve(size float64) (font.Face, float64) {
	f := basicfont.Face7x13
	h := f.Metrics().Height.Round()
	if size <= 0 || h == 0 {
		return f, 1
	}
	return f, size / float64(h)
}

func provider(p Provider) Provider {
	if p == nil {
		return BasicProvider{}
	}
	return p
}

// Measure returns the advance width and line height of s at size.
func Measure(p Provider, size float64, s string) (w, h float64) {
	face, scale := provider(p).Resolve(size)
	m := MetricsFor(p, size)
	return advance(face, s) * scale, m.Ascent + m.Descent
}

// MetricsFor returns the scaled metrics of the face used at size.
func MetricsFor(p Provider, size float64) Metrics {
	face, scale := provider(p).Resolve(size)
	m := face.Metrics()
	asc := float64(m.Ascent.Round())
	desc := float64(m.Descent.Round())
	return Metrics{
		Ascent:  asc * scale,
		Descent: desc * scale,
		LineGap: (float64(m.Height.Round()) - asc - desc) * scale,
	}
}

func advance(face font.Face, s string) float64 {
	d := &font.Drawer{Face: face}
	return float64(d.MeasureString(s) >> 6) // fixed.Int26_6 to px
}

// Fit returns s unchanged when it fits maxWidth, otherwise the longest prefix
// followed by Ellipsis that does. It returns "" when not even the ellipsis
// fits. A maxWidth <= 0 disables fitting.
func Fit(p Provider, size, maxWidth float64, s string) string {
	if maxWidth <= 0 || s == "" {
		return s
	}
	if w, _ := Measure(p, size, s); w <= maxWidth {
		return s
	}
	if w, _ := Measure(p, size, Ellipsis); w > maxWidth {
		return ""
	}
	cut := len(s)
	for cut > 0 {
		_, n := utf8.DecodeLastRuneInString(s[:cut])
		cut -= n
		cand := strings.TrimRight(s[:cut], " ") + Ellipsis
		if w, _ := Measure(p, size, cand); w <= maxWidth {
			return cand
		}
	}
	return Ellipsis
}

// Wrap breaks s on spaces and newlines into lines no wider than maxWidth. A
// single word wider than maxWidth stays on its own line.
func Wrap(p Provider, size, maxWidth float64, s string) []string {
	var lines []string
	for _, para := range strings.Split(s, "\n") {
		var cur string
		for _, word := range strings.Fields(para) {
			cand := word
			if cur != "" {
				cand = cur + " " + word
			}
			if w, _ := Measure(p, size, cand); cur != "" && maxWidth > 0 && w > maxWidth {
				lines = append(lines, cur)
				cur = word
				continue
			}
			cur = cand
		}
		lines = append(lines, cur)
	}
	return lines
}
