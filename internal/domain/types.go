/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package domain

// This file defines the core data model of an answer-sheet template. A
// template owns a canvas description and a list of typed regions. Everything
// serializes to a human-readable JSON document (see internal/schema).

import (
	"time"

	"sheetdesigner/internal/vector"
)

const (
	// SchemaVersion is the only serialized schema accepted on import.
	SchemaVersion = "1.0.0"
	// DefaultTemplateVersion is stamped on new templates.
	DefaultTemplateVersion = "1.0.0"
)

// TemplateData is the root aggregate edited by the designer.
// It is owned by the store and only mutated through its actions.
type TemplateData struct {
	ID              string           `json:"id"`
	Name            string           `json:"name"`
	Description     string           `json:"description"`
	Version         string           `json:"version"`
	SchemaVersion   string           `json:"schemaVersion"`
	CreatedAt       time.Time        `json:"createdAt"`
	UpdatedAt       time.Time        `json:"updatedAt"`
	Canvas          CanvasSettings   `json:"canvas"`
	BackgroundImage *BackgroundImage `json:"backgroundImage,omitempty"`
	Regions         []Region         `json:"regions"`
	Metadata        Metadata         `json:"metadata"`
	ExportSettings  ExportSettings   `json:"exportSettings"`
}

// CanvasSettings describes the editing surface. Width and height share the
// unit space of region coordinates.
type CanvasSettings struct {
	Width           float64 `json:"width"`
	Height          float64 `json:"height"`
	DPI             int     `json:"dpi"`
	BackgroundColor string  `json:"backgroundColor"`
	GridSize        float64 `json:"gridSize"`
	SnapToGrid      bool    `json:"snapToGrid"`
	ShowGrid        bool    `json:"showGrid"`
}

// Bounds returns the canvas rectangle anchored at the origin.
func (c CanvasSettings) Bounds() vector.Rect { return vector.R(0, 0, c.Width, c.Height) }

// BackgroundImage references a scanned sheet shown beneath the regions.
type BackgroundImage struct {
	URL     string  `json:"url"`
	Width   float64 `json:"width"`
	Height  float64 `json:"height"`
	Opacity float64 `json:"opacity"`
}

// Metadata carries descriptive, non-geometric information.
type Metadata struct {
	Author   string            `json:"author,omitempty"`
	Subject  string            `json:"subject,omitempty"`
	ExamType string            `json:"examType,omitempty"`
	Tags     []string          `json:"tags,omitempty"`
	Extra    map[string]string `json:"extra,omitempty"`
}

// ExportSettings are the user's preferences for rendered output.
type ExportSettings struct {
	Format            string `json:"format"` // json, yaml, png, svg, pdf
	DPI               int    `json:"dpi"`
	IncludeBackground bool   `json:"includeBackground"`
	IncludeGuides     bool   `json:"includeGuides"`
}

// HistoryItem is one full snapshot of the template captured after an action.
type HistoryItem struct {
	ID          string       `json:"id"`
	Timestamp   time.Time    `json:"timestamp"`
	Action      string       `json:"action"`
	Data        TemplateData `json:"data"`
	Description string       `json:"description"`
}

// HistoryState is the linear undo/redo list. CurrentIndex points at the item
// that represents the displayed template, -1 when empty.
type HistoryState struct {
	Items        []HistoryItem `json:"items"`
	CurrentIndex int           `json:"currentIndex"`
	MaxItems     int           `json:"maxItems"`
}

// DefaultCanvas is an A4 portrait sheet at 96 dpi.
func DefaultCanvas() CanvasSettings {
	return CanvasSettings{
		Width:           794,
		Height:          1123,
		DPI:             96,
		BackgroundColor: "#ffffff",
		GridSize:        10,
		SnapToGrid:      true,
		ShowGrid:        true,
	}
}

// NewTemplate returns a blank template with default canvas and export settings.
func NewTemplate(id, name string, now time.Time) TemplateData {
	return TemplateData{
		ID:            id,
		Name:          name,
		Version:       DefaultTemplateVersion,
		SchemaVersion: SchemaVersion,
		CreatedAt:     now,
		UpdatedAt:     now,
		Canvas:        DefaultCanvas(),
		Regions:       []Region{},
		ExportSettings: ExportSettings{
			Format:        "json",
			DPI:           300,
			IncludeGuides: false,
		},
	}
}

// Clone returns a deep copy that shares no memory with t.
func (t TemplateData) Clone() TemplateData {
	out := t
	if t.BackgroundImage != nil {
		bg := *t.BackgroundImage
		out.BackgroundImage = &bg
	}
	if t.Regions != nil {
		out.Regions = make([]Region, len(t.Regions))
		for i, r := range t.Regions {
			out.Regions[i] = r.Clone()
		}
	}
	if t.Metadata.Tags != nil {
		out.Metadata.Tags = append([]string(nil), t.Metadata.Tags...)
	}
	if t.Metadata.Extra != nil {
		out.Metadata.Extra = make(map[string]string, len(t.Metadata.Extra))
		for k, v := range t.Metadata.Extra {
			out.Metadata.Extra[k] = v
		}
	}
	return out
}

// RegionIndex returns the slice index of the region with id, or -1.
func (t *TemplateData) RegionIndex(id string) int {
	for i := range t.Regions {
		if t.Regions[i].ID == id {
			return i
		}
	}
	return -1
}

// FindRegion returns a pointer into t.Regions, or nil.
func (t *TemplateData) FindRegion(id string) *Region {
	if i := t.RegionIndex(id); i >= 0 {
		return &t.Regions[i]
	}
	return nil
}

// MaxZIndex returns the highest zIndex in use, or -1 for an empty template.
func (t *TemplateData) MaxZIndex() int {
	maxZ := -1
	for _, r := range t.Regions {
		if r.ZIndex > maxZ {
			maxZ = r.ZIndex
		}
	}
	return maxZ
}
