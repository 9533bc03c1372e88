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
	"archive/zip"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/schema"
	"sheetdesigner/internal/version"
)

// Bundle entry names.
const (
	BundleTemplate = "template.json"
	BundlePreview  = "preview.png"
	BundleProof    = "proof.pdf"
	BundleManifest = "manifest.json"
)

type bundleManifest struct {
	TemplateID    string    `json:"templateId"`
	Name          string    `json:"name"`
	SchemaVersion string    `json:"schemaVersion"`
	Regions       int       `json:"regions"`
	Generator     string    `json:"generator"`
	UpdatedAt     time.Time `json:"updatedAt"`
	Files         []string  `json:"files"`
}

// WriteBundle writes a zip archive holding the template text, a PNG preview
// and a PDF proof, plus a small manifest.
func WriteBundle(w io.Writer, t domain.TemplateData, opt Options) error {
	text, err := schema.Marshal(t, schema.FormatJSON)
	if err != nil {
		return err
	}
	var preview, proof bytes.Buffer
	if err := WritePNG(&preview, t, opt); err != nil {
		return err
	}
	if err := WritePDF(&proof, t, opt); err != nil {
		return err
	}
	man, err := json.MarshalIndent(bundleManifest{
		TemplateID:    t.ID,
		Name:          t.Name,
		SchemaVersion: t.SchemaVersion,
		Regions:       len(t.Regions),
		Generator:     "sheetdesigner " + version.String(),
		UpdatedAt:     t.UpdatedAt,
		Files:         []string{BundleTemplate, BundlePreview, BundleProof},
	}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode manifest: %w", err)
	}

	zw := zip.NewWriter(w)
	entries := []struct {
		name string
		data []byte
	}{
		{BundleManifest, man},
		{BundleTemplate, text},
		{BundlePreview, preview.Bytes()},
		{BundleProof, proof.Bytes()},
	}
	for _, e := range entries {
		method := zip.Deflate
		// png and pdf payloads are already compressed
		if e.name == BundlePreview || e.name == BundleProof {
			method = zip.Store
		}
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: e.name, Method: method, Modified: t.UpdatedAt})
		if err != nil {
			return fmt.Errorf("zip add %s: %w", e.name, err)
		}
		if _, err := fw.Write(e.data); err != nil {
			return fmt.Errorf("zip write %s: %w", e.name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("close zip: %w", err)
	}
	return nil
}
