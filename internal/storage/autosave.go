/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/schema"
)

const autosaveSuffix = ".autosave.json"

// AutosavePath is the autosave file of a template id inside dir.
func AutosavePath(dir, id string) string {
	if id == "" {
		id = "untitled"
	}
	return filepath.Join(dir, id+autosaveSuffix)
}

// WriteAutosave stores t in dir without touching backups. The write is a
// temp file plus rename so a crash mid-write keeps the previous autosave.
func WriteAutosave(dir string, t domain.TemplateData) (string, error) {
	data, err := schema.Marshal(t, schema.FormatJSON)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure autosave dir: %w", err)
	}
	path := AutosavePath(dir, t.ID)
	temp := path + ".tmp"
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return "", fmt.Errorf("write autosave: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return "", fmt.Errorf("replace autosave: %w", err)
	}
	return path, nil
}

// ListAutosaves returns the autosave files found in dir.
func ListAutosaves(dir string) ([]string, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read autosave dir: %w", err)
	}
	var out []string
	for _, e := range ents {
		if !e.IsDir() && strings.HasSuffix(e.Name(), autosaveSuffix) {
			out = append(out, filepath.Join(dir, e.Name()))
		}
	}
	return out, nil
}

// RemoveAutosave deletes the autosave of id, if any.
func RemoveAutosave(dir, id string) error {
	if err := os.Remove(AutosavePath(dir, id)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove autosave: %w", err)
	}
	return nil
}
