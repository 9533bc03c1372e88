/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package schema

import (
	"fmt"
	"strings"

	"sheetdesigner/internal/domain"
)

// Validate checks the structural invariants a template must satisfy before
// it is saved or exported. Out-of-bounds regions and invalid variant
// properties only produce warnings.
func Validate(t domain.TemplateData) Result {
	if strings.TrimSpace(t.Name) == "" {
		return Fail(CodeEmptyName, "template name must not be empty")
	}
	if len(t.Regions) == 0 {
		return Fail(CodeNoRegions, "template %q has no regions", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Regions))
	for _, r := range t.Regions {
		if r.Width <= 0 || r.Height <= 0 {
			return Fail(CodeInvalidDimensions, "region %q has invalid size %vx%v", r.Name, r.Width, r.Height)
		}
		if _, dup := seen[r.ID]; dup {
			return Fail(CodeDuplicateID, "region id %q is used more than once", r.ID)
		}
		seen[r.ID] = struct{}{}
	}

	var warnings []string
	canvas := t.Canvas.Bounds()
	for _, r := range t.Regions {
		if !canvas.ContainsRect(r.Bounds()) {
			warnings = append(warnings, fmt.Sprintf("region %q (%s) is out of bounds", r.Name, r.ID))
		}
		if err := r.CheckProps(); err != nil {
			warnings = append(warnings, fmt.Sprintf("region %q (%s): %v", r.Name, r.ID, err))
		}
	}
	return OK(warnings...)
}
