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
	"fmt"

	"sheetdesigner/internal/domain"
)

// ToolMode is the active interaction behavior.
type ToolMode string

const (
	ToolSelect     ToolMode = "select"
	ToolPan        ToolMode = "pan"
	ToolAnchor     ToolMode = "anchor"
	ToolBarcode    ToolMode = "barcode"
	ToolObjective  ToolMode = "objective"
	ToolSubjective ToolMode = "subjective"
)

// Tools lists every mode in toolbar order.
var Tools = []ToolMode{ToolSelect, ToolPan, ToolAnchor, ToolBarcode, ToolObjective, ToolSubjective}

// RegionType returns the variant a drawing tool creates.
func (t ToolMode) RegionType() (domain.RegionType, bool) {
	switch t {
	case ToolAnchor:
		return domain.RegionAnchor, true
	case ToolBarcode:
		return domain.RegionBarcode, true
	case ToolObjective:
		return domain.RegionObjective, true
	case ToolSubjective:
		return domain.RegionSubjective, true
	}
	return "", false
}

// IsDrawing reports whether t creates regions.
func (t ToolMode) IsDrawing() bool {
	_, ok := t.RegionType()
	return ok
}

// ParseTool validates s as a tool mode.
func ParseTool(s string) (ToolMode, error) {
	for _, t := range Tools {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown tool %q", s)
}

// hotkeys maps unmodified keys to tools.
var hotkeys = map[string]ToolMode{
	"v": ToolSelect,
	"h": ToolPan,
	"1": ToolAnchor,
	"2": ToolBarcode,
	"3": ToolObjective,
	"4": ToolSubjective,
}
