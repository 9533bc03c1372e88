/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package export writes templates to text, raster, vector and bundle formats.
// Every writer refuses a template that fails validation.
package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/schema"
)

// Format names an export target.
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatPNG  Format = "png"
	FormatSVG  Format = "svg"
	FormatPDF  Format = "pdf"
	FormatZIP  Format = "zip"
)

// Formats lists every supported target.
var Formats = []Format{FormatJSON, FormatYAML, FormatPNG, FormatSVG, FormatPDF, FormatZIP}

// ParseFormat accepts a format name or a file extension.
func ParseFormat(s string) (Format, error) {
	s = strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	if s == "yml" {
		s = "yaml"
	}
	for _, f := range Formats {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// FormatFromPath picks the format from path's extension.
func FormatFromPath(path string) (Format, error) {
	return ParseFormat(filepath.Ext(path))
}

// Write validates t and writes it to w in format f.
func Write(w io.Writer, t domain.TemplateData, f Format, opt Options) error {
	if res := schema.Validate(t); !res.Success {
		return res.Err()
	}
	switch f {
	case FormatJSON, FormatYAML:
		b, err := schema.Marshal(t, schema.Format(f))
		if err != nil {
			return err
		}
		_, err = w.Write(b)
		return err
	case FormatPNG:
		return WritePNG(w, t, opt)
	case FormatSVG:
		return WriteSVG(w, t, opt)
	case FormatPDF:
		return WritePDF(w, t, opt)
	case FormatZIP:
		return WriteBundle(w, t, opt)
	}
	return fmt.Errorf("unknown export format %q", f)
}

// WriteFile exports t to path, choosing the format from the extension.
// Missing parent directories are created.
func WriteFile(path string, t domain.TemplateData, opt Options) error {
	f, err := FormatFromPath(path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure out dir: %w", err)
	}
	out, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", f, err)
	}
	if err := Write(out, t, f, opt); err != nil {
		_ = out.Close()
		_ = os.Remove(path)
		return err
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("close %s: %w", f, err)
	}
	return nil
}
