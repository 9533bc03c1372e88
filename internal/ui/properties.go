/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"fmt"
	"strconv"
	"strings"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/store"
)

// regionFields is the editable text form of a region's base properties.
type regionFields struct {
	Name                string
	X, Y, Width, Height string
	Visible, Locked     bool
}

func fieldsOf(r domain.Region) regionFields {
	f := func(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }
	return regionFields{
		Name: r.Name, X: f(r.X), Y: f(r.Y), Width: f(r.Width), Height: f(r.Height),
		Visible: r.Visible, Locked: r.Locked,
	}
}

// patch parses the form into a patch holding only the fields that differ from r.
func (rf regionFields) patch(r domain.Region) (store.RegionPatch, bool, error) {
	var p store.RegionPatch
	changed := false
	num := func(label, s string, cur float64, dst **float64) error {
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return fmt.Errorf("%s: not a number", label)
		}
		if v != cur {
			*dst = &v
			changed = true
		}
		return nil
	}
	if err := num("x", rf.X, r.X, &p.X); err != nil {
		return p, false, err
	}
	if err := num("y", rf.Y, r.Y, &p.Y); err != nil {
		return p, false, err
	}
	if err := num("width", rf.Width, r.Width, &p.Width); err != nil {
		return p, false, err
	}
	if err := num("height", rf.Height, r.Height, &p.Height); err != nil {
		return p, false, err
	}
	if (p.Width != nil && *p.Width <= 0) || (p.Height != nil && *p.Height <= 0) {
		return p, false, fmt.Errorf("size must be positive")
	}
	if name := strings.TrimSpace(rf.Name); name != r.Name {
		p.Name = &name
		changed = true
	}
	if rf.Visible != r.Visible {
		v := rf.Visible
		p.Visible = &v
		changed = true
	}
	if rf.Locked != r.Locked {
		v := rf.Locked
		p.Locked = &v
		changed = true
	}
	return p, changed, nil
}

// ApplyFields updates the single selected region from the form.
func (s *Session) ApplyFields(rf regionFields) (bool, error) {
	r, ok := s.SelectedRegion()
	if !ok {
		return false, nil
	}
	p, changed, err := rf.patch(r)
	if err != nil || !changed {
		return false, err
	}
	return s.Store.UpdateRegion(r.ID, p), nil
}

func selectionTitle(n int) string {
	if n == 0 {
		return "No selection"
	}
	return fmt.Sprintf("%d regions selected", n)
}
