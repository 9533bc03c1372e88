/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package export

import (
	"fmt"
	"path/filepath"
	"strings"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/render"
)

// PresetName represents a named export preset.
type PresetName string

const (
	PresetWeb   PresetName = "web"
	PresetPrint PresetName = "print"
)

// ParsePreset validates a preset name.
func ParsePreset(s string) (PresetName, error) {
	switch p := PresetName(strings.ToLower(strings.TrimSpace(s))); p {
	case PresetWeb, PresetPrint:
		return p, nil
	}
	return "", fmt.Errorf("unknown export preset %q", s)
}

// BatchOptions controls batch export of one template into several formats.
//
// Path semantics: every output is named <base>.<format> inside OutDir, where
// base is the template name reduced to a file-safe slug (falling back to the
// template id).
//
//nolint:revive // keep fields explicit for clarity
type BatchOptions struct {
	Preset        PresetName
	Formats       []Format // empty means preset defaults
	DPIOverride   int      // when > 0 overrides the preset DPI
	IncludeGuides *bool    // when set, overrides the preset's default for the grid
	OutDir        string
}

// Batch exports t into every format of the preset and returns the written paths.
func Batch(t domain.TemplateData, opt BatchOptions) ([]string, error) {
	if opt.OutDir == "" {
		return nil, fmt.Errorf("batch export needs an output directory")
	}
	formats := opt.Formats
	if len(formats) == 0 {
		formats = presetDefaultFormats(opt.Preset)
	}

	guides := presetIncludeGuides(opt.Preset)
	if opt.IncludeGuides != nil {
		guides = *opt.IncludeGuides
	}
	dpi := presetDPI(opt.Preset)
	if opt.DPIOverride > 0 {
		dpi = opt.DPIOverride
	}
	eo := Options{
		DPI:     dpi,
		Overlay: &render.Overlay{Grid: guides, Background: t.ExportSettings.IncludeBackground},
	}

	base := fileBase(t)
	var written []string
	for _, f := range formats {
		out := filepath.Join(opt.OutDir, base+"."+string(f))
		if err := WriteFile(out, t, eo); err != nil {
			return written, fmt.Errorf("%s export: %w", f, err)
		}
		written = append(written, out)
	}
	return written, nil
}

func presetDefaultFormats(p PresetName) []Format {
	switch p {
	case PresetWeb:
		return []Format{FormatPNG, FormatSVG}
	case PresetPrint:
		return []Format{FormatPDF, FormatPNG}
	default:
		return []Format{FormatPDF}
	}
}

func presetIncludeGuides(p PresetName) bool {
	return p == PresetPrint
}

func presetDPI(p PresetName) int {
	if p == PresetWeb {
		return 96
	}
	return 300
}

func fileBase(t domain.TemplateData) string {
	var b strings.Builder
	for _, r := range strings.ToLower(strings.TrimSpace(t.Name)) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "-") {
				b.WriteByte('-')
			}
		}
	}
	s := strings.TrimSuffix(b.String(), "-")
	if s == "" {
		s = t.ID
	}
	if s == "" {
		s = "template"
	}
	return s
}
