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
	"math"

	"sheetdesigner/internal/vector"
)

// View maps world coordinates to screen pixels with a uniform scale and a
// translation of the world origin.
type View struct {
	Scale    float64
	Position vector.Pt
	MinScale float64
	MaxScale float64
}

// NewView returns an identity view clamped to [minScale, maxScale].
func NewView(minScale, maxScale float64) View {
	if minScale <= 0 {
		minScale = 0.1
	}
	if maxScale < minScale {
		maxScale = 5
	}
	return View{Scale: 1, MinScale: minScale, MaxScale: maxScale}
}

// ScreenToWorld computes (p - position) / scale.
func (v View) ScreenToWorld(p vector.Pt) vector.Pt {
	return p.Sub(v.Position).Div(v.Scale)
}

// WorldToScreen computes p*scale + position.
func (v View) WorldToScreen(p vector.Pt) vector.Pt {
	return p.Mul(v.Scale).Add(v.Position)
}

// Matrix is the world-to-screen transform.
func (v View) Matrix() vector.Affine2D {
	return vector.Translate(v.Position.X, v.Position.Y).Mul(vector.Scale(v.Scale, v.Scale))
}

// ZoomAt sets a new scale while keeping the world point under the screen
// point p fixed on screen. The scale is clamped.
func (v *View) ZoomAt(p vector.Pt, scale float64) {
	anchor := v.ScreenToWorld(p)
	v.Scale = vector.Clamp(scale, v.MinScale, v.MaxScale)
	v.Position = p.Sub(anchor.Mul(v.Scale))
}

// ZoomBy multiplies the scale by factor around p.
func (v *View) ZoomBy(p vector.Pt, factor float64) {
	v.ZoomAt(p, v.Scale*factor)
}

// Fit scales and centers world rect r inside a viewport of w x h pixels,
// leaving padding pixels on every side.
func (v *View) Fit(r vector.Rect, w, h, padding float64) {
	if r.W <= 0 || r.H <= 0 || w <= 2*padding || h <= 2*padding {
		return
	}
	s := math.Min((w-2*padding)/r.W, (h-2*padding)/r.H)
	v.Scale = vector.Clamp(s, v.MinScale, v.MaxScale)
	v.Position = vector.Pt{
		X: (w-r.W*v.Scale)/2 - r.X*v.Scale,
		Y: (h-r.H*v.Scale)/2 - r.Y*v.Scale,
	}
}
