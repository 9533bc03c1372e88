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
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"log/slog"
	"math"
	"os"
	"sort"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/tiff"
	_ "golang.org/x/image/webp"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/schema"
	"sheetdesigner/internal/store"
	"sheetdesigner/internal/vector"
)

// Align lines the selected regions up on the first one selected.
func (s *Session) Align(mode store.AlignMode) bool {
	return s.Store.AlignRegions(s.Ctrl.Selection(), mode)
}

// Distribute spaces the selected regions evenly between the outermost two.
func (s *Session) Distribute(axis store.Axis) bool {
	return s.Store.DistributeRegions(s.Ctrl.Selection(), axis)
}

// selectedByZ returns the selected regions ordered bottom to top.
func (s *Session) selectedByZ() []domain.Region {
	var out []domain.Region
	for _, id := range s.Ctrl.Selection() {
		if r, ok := s.Store.Region(id); ok {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ZIndex < out[j].ZIndex })
	return out
}

// Raise moves every selected region delta steps up (negative: down) the
// stacking order and returns how many moved. The selection keeps its own
// relative order.
func (s *Session) Raise(delta int) int {
	rs := s.selectedByZ()
	if delta > 0 {
		for i, j := 0, len(rs)-1; i < j; i, j = i+1, j-1 {
			rs[i], rs[j] = rs[j], rs[i]
		}
	}
	n := 0
	for _, r := range rs {
		if s.Store.ReorderRegion(r.ID, delta) {
			n++
		}
	}
	return n
}

// BringToFront stacks the selection above every other region.
func (s *Session) BringToFront() int {
	n := 0
	for _, r := range s.selectedByZ() {
		if s.Store.BringToFront(r.ID) {
			n++
		}
	}
	return n
}

// SendToBack stacks the selection below every other region.
func (s *Session) SendToBack() int {
	rs := s.selectedByZ()
	n := 0
	for i := len(rs) - 1; i >= 0; i-- {
		if s.Store.SendToBack(rs[i].ID) {
			n++
		}
	}
	return n
}

// FitSizeToGrid rounds the single selected region's size to whole grid
// cells, keeping at least one cell per side.
func (s *Session) FitSizeToGrid() bool {
	r, ok := s.SelectedRegion()
	grid := s.Store.Template().Canvas.GridSize
	if !ok || grid <= 0 {
		return false
	}
	w := math.Max(grid, vector.SnapTo(r.Width, grid))
	h := math.Max(grid, vector.SnapTo(r.Height, grid))
	if w == r.Width && h == r.Height {
		return false
	}
	return s.Store.ResizeRegion(r.ID, w, h)
}

// SetInfo renames the template and sets its description.
func (s *Session) SetInfo(name, description string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return schema.ErrEmptyName
	}
	t := s.Store.Template()
	if name == t.Name && description == t.Description {
		return nil
	}
	s.Store.UpdateTemplate(store.TemplatePatch{Name: &name, Description: &description})
	return nil
}

// ImportFile replaces the template with the one serialized in path. The
// session stays bound to its own file. A rejected import is returned as the
// result and leaves the session untouched.
func (s *Session) ImportFile(path string) (schema.Result, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return schema.Result{}, fmt.Errorf("read %s: %w", path, err)
	}
	res := s.Store.ImportTemplate(b)
	if res.Success {
		s.log.Info("template imported", slog.String("from", path), slog.Int("warnings", len(res.Warnings)))
	}
	return res, nil
}

// SetBackground uses the image at path as the sheet background. The canvas
// takes the image's pixel size.
func (s *Session) SetBackground(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	cfg, format, err := image.DecodeConfig(f)
	if err != nil {
		return fmt.Errorf("background %s: %w", path, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return errors.New("background image has no size")
	}
	s.log.Debug("background", slog.String("format", format), slog.Int("w", cfg.Width), slog.Int("h", cfg.Height))
	s.Store.SetBackgroundImage(&domain.BackgroundImage{
		URL: path, Width: float64(cfg.Width), Height: float64(cfg.Height), Opacity: 1,
	})
	return nil
}

// RemoveBackground drops the background image.
func (s *Session) RemoveBackground() bool { return s.Store.SetBackgroundImage(nil) }

// ClearHistory forgets every undo step. The template stays as it is.
func (s *Session) ClearHistory() { s.Store.ClearHistory() }

// TemplateText serializes the template, refusing one that fails validation.
func (s *Session) TemplateText(f schema.Format) ([]byte, error) {
	b, res := s.Store.ExportTemplate(f)
	if !res.Success {
		return nil, res.Err()
	}
	return b, nil
}
