/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package render

import (
	"sheetdesigner/internal/canvas"
	"sheetdesigner/internal/domain"
)

// EditorOverlay builds the overlay the editor paints for a controller state.
// Grid visibility follows the template's canvas settings.
func EditorOverlay(t domain.TemplateData, vs canvas.ViewState) Overlay {
	return Overlay{
		Grid:         t.Canvas.ShowGrid,
		Background:   true,
		Labels:       true,
		Selected:     vs.SelectedRegionIDs,
		DragOffset:   vs.DragOffset,
		SelectionBox: vs.SelectionBox,
		DrawPreview:  vs.DrawPreview,
		Guides:       vs.Guides,
	}
}

// ExportOverlay is the overlay for rendered output.
func ExportOverlay(es domain.ExportSettings) Overlay {
	return Overlay{Grid: es.IncludeGuides, Background: es.IncludeBackground}
}
