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
	"io"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/schema"
)

const (
	BackupsDirName = "backups"
	backupStamp    = "20060102-150405.000000000"
)

// Loaded is the outcome of reading a template file.
// Result is the parse result of the file itself; when it failed and a
// backup could be read instead, FromBackup is set and BackupPath names it.
type Loaded struct {
	Path       string
	Template   domain.TemplateData
	Result     schema.Result
	FromBackup bool
	BackupPath string
}

// ReadTemplate loads a template file. If the file cannot be read or its text
// is corrupt (malformed or structurally invalid), the newest backup that
// parses is used instead. An unsupported schema version is not treated as
// corruption and is reported as is.
func ReadTemplate(path string) (Loaded, error) {
	out := Loaded{Path: path}
	b, err := os.ReadFile(path)
	if err != nil {
		tpl, bpath, berr := openFromLatestBackup(path)
		if berr != nil {
			return out, fmt.Errorf("open template: %w; backup attempt: %v", err, berr)
		}
		out.Template, out.FromBackup, out.BackupPath = tpl, true, bpath
		out.Result = schema.Fail(schema.CodeMalformedText, "read %s: %v", filepath.Base(path), err)
		return out, nil
	}

	tpl, res := schema.Parse(b)
	out.Result = res
	if res.Success {
		out.Template = tpl
		return out, nil
	}
	if res.Code != schema.CodeMalformedText && res.Code != schema.CodeInvalidFormat {
		return out, res.Err()
	}
	btpl, bpath, berr := openFromLatestBackup(path)
	if berr != nil {
		return out, fmt.Errorf("parse template: %w; backup attempt: %v", res.Err(), berr)
	}
	out.Template, out.FromBackup, out.BackupPath = btpl, true, bpath
	return out, nil
}

// WriteTemplate writes t to path in the format implied by the extension.
// The previous file, if any, is first copied to a timestamped backup; the new
// content goes to a temp file in the same directory and is renamed over path.
func WriteTemplate(path string, t domain.TemplateData) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("template path is required")
	}
	data, err := schema.Marshal(t, schema.FormatFromPath(path))
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("ensure dir: %w", err)
	}
	if _, statErr := os.Stat(path); statErr == nil {
		bpath := filepath.Join(BackupDir(path), fmt.Sprintf("%s.%s.bak", filepath.Base(path), time.Now().Format(backupStamp)))
		if cerr := copyFile(path, bpath); cerr != nil {
			return fmt.Errorf("backup current template: %w", cerr)
		}
	}

	temp := filepath.Join(dir, fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if werr := writeFileSync(temp, data); werr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp template: %w", werr)
	}
	// On Windows, replace by removing destination first if needed
	if _, err := os.Stat(path); err == nil {
		_ = os.Remove(path)
	}
	if rerr := os.Rename(temp, path); rerr != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace template: %w", rerr)
	}
	return nil
}

// BackupDir is the directory holding the backups of the template at path.
func BackupDir(path string) string {
	return filepath.Join(filepath.Dir(path), BackupsDirName)
}

// ListBackups returns the backups of path, oldest first.
func ListBackups(path string) ([]string, error) {
	ents, err := os.ReadDir(BackupDir(path))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if !e.IsDir() && strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(BackupDir(path), name))
		}
	}
	sort.Strings(out) // timestamp in name yields lexicographic order
	return out, nil
}

// PruneBackups keeps the newest keep backups of path and deletes the rest.
func PruneBackups(path string, keep int) (int, error) {
	if keep < 0 {
		keep = 0
	}
	all, err := ListBackups(path)
	if err != nil || len(all) <= keep {
		return 0, err
	}
	n := 0
	for _, p := range all[:len(all)-keep] {
		if err := os.Remove(p); err != nil {
			return n, fmt.Errorf("remove backup: %w", err)
		}
		n++
	}
	return n, nil
}

// writeFileSync writes data to a file, ensures it is flushed to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}

// openFromLatestBackup returns the newest backup of path that parses.
func openFromLatestBackup(path string) (domain.TemplateData, string, error) {
	all, err := ListBackups(path)
	if err != nil {
		return domain.TemplateData{}, "", err
	}
	if len(all) == 0 {
		return domain.TemplateData{}, "", errors.New("no backups found")
	}
	var last error
	for i := len(all) - 1; i >= 0; i-- {
		b, err := os.ReadFile(all[i])
		if err != nil {
			last = err
			continue
		}
		tpl, res := schema.Parse(b)
		if res.Success {
			return tpl, all[i], nil
		}
		last = res.Err()
	}
	return domain.TemplateData{}, "", fmt.Errorf("no readable backup: %w", last)
}
