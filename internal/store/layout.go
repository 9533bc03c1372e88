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
	"fmt"
	"sort"

	"sheetdesigner/internal/domain"
)

// AlignMode selects the edge or center AlignRegions matches.
type AlignMode string

const (
	AlignLeft             AlignMode = "left"
	AlignRight            AlignMode = "right"
	AlignTop              AlignMode = "top"
	AlignBottom           AlignMode = "bottom"
	AlignCenterHorizontal AlignMode = "center-horizontal"
	AlignCenterVertical   AlignMode = "center-vertical"
)

// ParseAlignMode validates s as an AlignMode.
func ParseAlignMode(s string) (AlignMode, error) {
	switch m := AlignMode(s); m {
	case AlignLeft, AlignRight, AlignTop, AlignBottom, AlignCenterHorizontal, AlignCenterVertical:
		return m, nil
	}
	return "", fmt.Errorf("unknown align mode %q", s)
}

// Axis for DistributeRegions.
type Axis string

const (
	AxisHorizontal Axis = "horizontal"
	AxisVertical   Axis = "vertical"
)

// pick returns pointers to the listed regions in id order, skipping unknown ids.
func pick(t *domain.TemplateData, ids []string) []*domain.Region {
	var out []*domain.Region
	seen := make(map[string]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		if r := t.FindRegion(id); r != nil {
			out = append(out, r)
		}
	}
	return out
}

// AlignRegions aligns regions to the first one in ids. center-horizontal
// matches horizontal centers (x), center-vertical matches vertical centers (y).
// Fewer than two regions is a no-op.
func (s *Store) AlignRegions(ids []string, mode AlignMode) bool {
	return s.mutate(ActionAlign, "Align "+string(mode), func(t *domain.TemplateData) bool {
		rs := pick(t, ids)
		if len(rs) < 2 {
			return false
		}
		ref := *rs[0]
		for _, r := range rs[1:] {
			switch mode {
			case AlignLeft:
				r.X = ref.X
			case AlignRight:
				r.X = ref.X + ref.Width - r.Width
			case AlignTop:
				r.Y = ref.Y
			case AlignBottom:
				r.Y = ref.Y + ref.Height - r.Height
			case AlignCenterHorizontal:
				r.X = ref.X + ref.Width/2 - r.Width/2
			case AlignCenterVertical:
				r.Y = ref.Y + ref.Height/2 - r.Height/2
			default:
				return false
			}
		}
		return true
	})
}

// DistributeRegions spaces three or more regions with a uniform gap along
// axis. The first and last regions by position stay put; the gap may be
// negative when the regions are wider than the span.
func (s *Store) DistributeRegions(ids []string, axis Axis) bool {
	return s.mutate(ActionDistribute, "Distribute "+string(axis), func(t *domain.TemplateData) bool {
		rs := pick(t, ids)
		if len(rs) < 3 || (axis != AxisHorizontal && axis != AxisVertical) {
			return false
		}
		pos := func(r *domain.Region) *float64 {
			if axis == AxisHorizontal {
				return &r.X
			}
			return &r.Y
		}
		extent := func(r *domain.Region) float64 {
			if axis == AxisHorizontal {
				return r.Width
			}
			return r.Height
		}
		sort.SliceStable(rs, func(i, j int) bool { return *pos(rs[i]) < *pos(rs[j]) })

		first, last := rs[0], rs[len(rs)-1]
		span := *pos(last) + extent(last) - *pos(first)
		total := 0.0
		for _, r := range rs {
			total += extent(r)
		}
		gap := (span - total) / float64(len(rs)-1)

		cursor := *pos(first)
		for _, r := range rs[:len(rs)-1] {
			*pos(r) = cursor
			cursor += extent(r) + gap
		}
		return true
	})
}

// ReorderRegion moves a region by delta steps in the z-order (+1 towards the
// front) and renumbers zIndex densely from 0. Regions are kept sorted by zIndex.
func (s *Store) ReorderRegion(id string, delta int) bool {
	return s.mutate(ActionReorder, "Reorder region", func(t *domain.TemplateData) bool {
		return moveZ(t, id, delta)
	})
}

// BringToFront puts a region above all others.
func (s *Store) BringToFront(id string) bool {
	return s.ReorderRegion(id, len(s.Regions()))
}

// SendToBack puts a region below all others.
func (s *Store) SendToBack(id string) bool {
	return s.ReorderRegion(id, -len(s.Regions()))
}

func moveZ(t *domain.TemplateData, id string, delta int) bool {
	sort.SliceStable(t.Regions, func(i, j int) bool { return t.Regions[i].ZIndex < t.Regions[j].ZIndex })
	idx := t.RegionIndex(id)
	if idx < 0 {
		return false
	}
	newIdx := idx + delta
	if newIdx < 0 {
		newIdx = 0
	}
	if newIdx >= len(t.Regions) {
		newIdx = len(t.Regions) - 1
	}
	r := t.Regions[idx]
	if newIdx < idx {
		copy(t.Regions[newIdx+1:idx+1], t.Regions[newIdx:idx])
	} else {
		copy(t.Regions[idx:newIdx], t.Regions[idx+1:newIdx+1])
	}
	t.Regions[newIdx] = r

	changed := newIdx != idx
	for i := range t.Regions {
		if t.Regions[i].ZIndex != i {
			t.Regions[i].ZIndex = i
			changed = true
		}
	}
	return changed
}
