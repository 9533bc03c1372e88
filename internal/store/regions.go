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
	"log/slog"

	"sheetdesigner/internal/domain"
)

// AddRegion appends r on top of the z-order. An empty id is generated;
// sizes are floored at 1.
func (s *Store) AddRegion(r domain.Region) (domain.Region, error) {
	if r.Props == nil {
		return domain.Region{}, ErrNoVariant
	}
	r = r.Clone()
	if r.ID == "" {
		r.ID = s.opts.NewID()
	}
	r.Width = domain.ClampExtent(r.Width)
	r.Height = domain.ClampExtent(r.Height)

	var dup bool
	s.mutate(ActionAdd, "Add "+string(r.Type())+" region", func(t *domain.TemplateData) bool {
		if t.RegionIndex(r.ID) >= 0 {
			dup = true
			return false
		}
		r.ZIndex = t.MaxZIndex() + 1
		t.Regions = append(t.Regions, r)
		return true
	})
	if dup {
		return domain.Region{}, fmt.Errorf("%w: %s", ErrDuplicateID, r.ID)
	}
	return r.Clone(), nil
}

// RegionPatch carries optional field replacements for one region. A Props
// value must be of the region's own variant.
type RegionPatch struct {
	X, Y, Width, Height *float64
	Name                *string
	Visible, Locked     *bool
	Props               domain.Variant
}

// RegionUpdate pairs a region id with its patch.
type RegionUpdate struct {
	ID    string
	Patch RegionPatch
}

func applyPatch(r *domain.Region, p RegionPatch) bool {
	if p.Props != nil && p.Props.Kind() != r.Type() {
		return false
	}
	before := r.Clone()
	if p.X != nil {
		r.X = *p.X
	}
	if p.Y != nil {
		r.Y = *p.Y
	}
	if p.Width != nil {
		r.Width = domain.ClampExtent(*p.Width)
	}
	if p.Height != nil {
		r.Height = domain.ClampExtent(*p.Height)
	}
	if p.Name != nil {
		r.Name = *p.Name
	}
	if p.Visible != nil {
		r.Visible = *p.Visible
	}
	if p.Locked != nil {
		r.Locked = *p.Locked
	}
	if p.Props != nil {
		r.Props = domain.Region{Props: p.Props}.Clone().Props
	}
	return !regionEqual(before, *r)
}

func regionEqual(a, b domain.Region) bool {
	if a.Base != b.Base || a.Type() != b.Type() {
		return false
	}
	switch pa := a.Props.(type) {
	case *domain.AnchorProps:
		return *pa == *b.Props.(*domain.AnchorProps)
	case *domain.BarcodeProps:
		return *pa == *b.Props.(*domain.BarcodeProps)
	case *domain.ObjectiveProps:
		return *pa == *b.Props.(*domain.ObjectiveProps)
	case *domain.SubjectiveProps:
		return *pa == *b.Props.(*domain.SubjectiveProps)
	}
	return a.Props == nil && b.Props == nil
}

// UpdateRegion patches one region.
func (s *Store) UpdateRegion(id string, p RegionPatch) bool {
	return s.UpdateRegions([]RegionUpdate{{ID: id, Patch: p}}) == 1
}

// UpdateRegions applies a batch of patches as a single history entry and
// returns how many regions changed. Unknown ids are skipped.
func (s *Store) UpdateRegions(updates []RegionUpdate) int {
	n := 0
	s.mutate(ActionUpdate, "Update regions", func(t *domain.TemplateData) bool {
		for _, u := range updates {
			if r := t.FindRegion(u.ID); r != nil && applyPatch(r, u.Patch) {
				n++
			}
		}
		return n > 0
	})
	return n
}

// DeleteRegion removes one region.
func (s *Store) DeleteRegion(id string) bool {
	return s.DeleteRegions([]string{id}) == 1
}

// DeleteRegions removes every listed region in one history entry.
func (s *Store) DeleteRegions(ids []string) int {
	drop := idSet(ids)
	n := 0
	s.mutate(ActionDelete, "Delete regions", func(t *domain.TemplateData) bool {
		kept := t.Regions[:0]
		for _, r := range t.Regions {
			if _, ok := drop[r.ID]; ok {
				n++
				continue
			}
			kept = append(kept, r)
		}
		t.Regions = kept
		return n > 0
	})
	return n
}

// DuplicateRegion copies a region offset by the duplicate offset with a
// "_copy" name suffix. It returns false when id does not exist.
func (s *Store) DuplicateRegion(id string) (domain.Region, bool) {
	out := s.DuplicateRegions([]string{id})
	if len(out) == 0 {
		return domain.Region{}, false
	}
	return out[0], true
}

// DuplicateRegions copies every listed region in one history entry and
// returns the copies in the order given.
func (s *Store) DuplicateRegions(ids []string) []domain.Region {
	var out []domain.Region
	s.mutate(ActionDuplicate, "Duplicate regions", func(t *domain.TemplateData) bool {
		for _, id := range ids {
			src := t.FindRegion(id)
			if src == nil {
				continue
			}
			c := src.Clone()
			c.ID = s.opts.NewID()
			c.X += s.opts.DuplicateOffset
			c.Y += s.opts.DuplicateOffset
			c.Name = src.Name + "_copy"
			c.ZIndex = t.MaxZIndex() + 1
			if a, ok := c.Props.(*domain.AnchorProps); ok && a.AnchorID == src.ID {
				a.AnchorID = c.ID
			}
			t.Regions = append(t.Regions, c)
			out = append(out, c.Clone())
		}
		return len(out) > 0
	})
	return out
}

// MoveRegion translates one region by (dx, dy).
func (s *Store) MoveRegion(id string, dx, dy float64) bool {
	return s.MoveRegions([]string{id}, dx, dy) == 1
}

// MoveRegions translates every listed region in one history entry.
func (s *Store) MoveRegions(ids []string, dx, dy float64) int {
	return s.translate(ActionMove, ids, dx, dy)
}

// NudgeRegions translates like MoveRegions and records the step as a nudge.
// Every nudge is its own history entry.
func (s *Store) NudgeRegions(ids []string, dx, dy float64) int {
	return s.translate(ActionNudge, ids, dx, dy)
}

func (s *Store) translate(action string, ids []string, dx, dy float64) int {
	if dx == 0 && dy == 0 {
		return 0
	}
	set := idSet(ids)
	n := 0
	s.mutate(action, "Move regions", func(t *domain.TemplateData) bool {
		for i := range t.Regions {
			if _, ok := set[t.Regions[i].ID]; ok {
				t.Regions[i].X += dx
				t.Regions[i].Y += dy
				n++
			}
		}
		return n > 0
	})
	return n
}

// ResizeRegion sets the size of a region, flooring each extent at 1.
func (s *Store) ResizeRegion(id string, w, h float64) bool {
	w, h = domain.ClampExtent(w), domain.ClampExtent(h)
	ok := s.mutate(ActionResize, "Resize region", func(t *domain.TemplateData) bool {
		r := t.FindRegion(id)
		if r == nil {
			return false
		}
		r.Width, r.Height = w, h
		return true
	})
	if !ok {
		s.log.Debug("resize skipped", slog.String("id", id))
	}
	return ok
}

func idSet(ids []string) map[string]struct{} {
	m := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return m
}
