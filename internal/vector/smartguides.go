/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package vector

// Smart guides for dragging regions: while a selection moves, its edges and
// center are compared with every other region and the canvas bounds. UI
// agnostic and deterministic so the controller can be unit tested.

import "math"

// GuideOrientation of a rendered guide line.
type GuideOrientation string

const (
	GuideVertical   GuideOrientation = "vertical"
	GuideHorizontal GuideOrientation = "horizontal"
)

// GuideKind says which features aligned.
type GuideKind string

const (
	GuideEdge   GuideKind = "edge"
	GuideCenter GuideKind = "center"
)

// SnapOptions controls which guide candidates are considered and the threshold.
type SnapOptions struct {
	// Threshold is the maximum distance in world units at which snapping
	// occurs. Zero falls back to 6.
	Threshold     float64
	SnapToEdges   bool
	SnapToCenters bool
}

// Target is a static reference rect (another region, or the canvas).
// Higher Weight wins ties; use 1 when unsure.
type Target struct {
	Rect   Rect
	Weight float64
}

// GuideLine describes a visual guide generated during a snap alignment.
// Position is the x (vertical) or y (horizontal) coordinate of the guide,
// rounded to 3 decimals.
type GuideLine struct {
	Orientation GuideOrientation
	Kind        GuideKind
	Position    float64
	From        Pt
	To          Pt
}

type axisBest struct {
	delta float64
	dist  float64
	score float64
	guide GuideLine
	ok    bool
}

func (b *axisBest) consider(delta, threshold, weight float64, g GuideLine) {
	dist := math.Abs(delta)
	if dist > threshold {
		return
	}
	score := dist / math.Max(1, weight)
	if !b.ok || score < b.score {
		*b = axisBest{delta: delta, dist: dist, score: score, guide: g, ok: true}
	}
}

// ComputeSmartGuides snaps moving against targets independently in X and Y.
// It returns the snapped rectangle and the guides to draw.
func ComputeSmartGuides(moving Rect, targets []Target, opts SnapOptions) (Rect, []GuideLine) {
	if opts.Threshold <= 0 {
		opts.Threshold = 6
	}
	var bx, by axisBest

	mL, mR, mT, mB := moving.X, moving.X+moving.W, moving.Y, moving.Y+moving.H
	mc := moving.Center()

	for _, a := range targets {
		aL, aR, aT, aB := a.Rect.X, a.Rect.X+a.Rect.W, a.Rect.Y, a.Rect.Y+a.Rect.H
		ac := a.Rect.Center()

		if opts.SnapToEdges {
			// same edges, then abutting edges
			bx.consider(mL-aL, opts.Threshold, a.Weight, verticalGuide(aL, moving, a.Rect, GuideEdge))
			bx.consider(mR-aR, opts.Threshold, a.Weight, verticalGuide(aR, moving, a.Rect, GuideEdge))
			bx.consider(mL-aR, opts.Threshold, a.Weight, verticalGuide(aR, moving, a.Rect, GuideEdge))
			bx.consider(mR-aL, opts.Threshold, a.Weight, verticalGuide(aL, moving, a.Rect, GuideEdge))

			by.consider(mT-aT, opts.Threshold, a.Weight, horizontalGuide(aT, moving, a.Rect, GuideEdge))
			by.consider(mB-aB, opts.Threshold, a.Weight, horizontalGuide(aB, moving, a.Rect, GuideEdge))
			by.consider(mT-aB, opts.Threshold, a.Weight, horizontalGuide(aB, moving, a.Rect, GuideEdge))
			by.consider(mB-aT, opts.Threshold, a.Weight, horizontalGuide(aT, moving, a.Rect, GuideEdge))
		}
		if opts.SnapToCenters {
			bx.consider(mc.X-ac.X, opts.Threshold, a.Weight, verticalGuide(ac.X, moving, a.Rect, GuideCenter))
			by.consider(mc.Y-ac.Y, opts.Threshold, a.Weight, horizontalGuide(ac.Y, moving, a.Rect, GuideCenter))
		}
	}

	var guides []GuideLine
	snapped := moving
	if bx.ok {
		snapped.X = FloatRound(moving.X-bx.delta, 3)
		guides = append(guides, bx.guide)
	}
	if by.ok {
		snapped.Y = FloatRound(moving.Y-by.delta, 3)
		guides = append(guides, by.guide)
	}
	return snapped, guides
}

func verticalGuide(x float64, a, b Rect, kind GuideKind) GuideLine {
	x = FloatRound(x, 3)
	return GuideLine{
		Orientation: GuideVertical,
		Kind:        kind,
		Position:    x,
		From:        Pt{x, math.Min(a.Y, b.Y)},
		To:          Pt{x, math.Max(a.Y+a.H, b.Y+b.H)},
	}
}

func horizontalGuide(y float64, a, b Rect, kind GuideKind) GuideLine {
	y = FloatRound(y, 3)
	return GuideLine{
		Orientation: GuideHorizontal,
		Kind:        kind,
		Position:    y,
		From:        Pt{math.Min(a.X, b.X), y},
		To:          Pt{math.Max(a.X+a.W, b.X+b.W), y},
	}
}
