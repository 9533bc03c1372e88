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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sheetdesigner/internal/domain"
	applog "sheetdesigner/internal/log"
)

// Standard library subfolders.
const (
	TemplatesDirName = "templates"
	ExportsDirName   = "exports"
	AutosaveDirName  = "autosave"
)

var standardSubDirs = []string{TemplatesDirName, ExportsDirName, AutosaveDirName}

// ErrNotInLibrary is returned when a template id has no catalog entry.
var ErrNotInLibrary = errors.New("template not in library")

// LibraryOptions controls retention in a library.
type LibraryOptions struct {
	KeepBackups       int // per template file; 0 keeps all
	KeepRevisions     int // per template id; 0 keeps all
	PreviewCacheBytes int64
}

// Library is a directory of template files indexed by a catalog.
type Library struct {
	Root    string
	Catalog *Catalog
	opt     LibraryOptions
	log     *slog.Logger
}

// OpenLibrary creates root and its standard subfolders if needed and opens
// the catalog. A corrupted catalog is rebuilt from the template files.
func OpenLibrary(ctx context.Context, root string, opt LibraryOptions) (*Library, error) {
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("library root is required")
	}
	for _, d := range standardSubDirs {
		if err := os.MkdirAll(filepath.Join(root, d), 0o755); err != nil {
			return nil, fmt.Errorf("create subdir %s: %w", d, err)
		}
	}
	l := applog.WithComponent("library").With(slog.String("root", root))
	if rebuilt, err := DetectAndRebuildCatalog(ctx, root, filepath.Join(root, TemplatesDirName)); err != nil {
		return nil, err
	} else if rebuilt {
		l.Warn("catalog rebuilt from template files")
	}
	c, err := OpenCatalog(root, CatalogOptions{PreviewCacheBytes: opt.PreviewCacheBytes})
	if err != nil {
		return nil, err
	}
	return &Library{Root: root, Catalog: c, opt: opt, log: l}, nil
}

// Close closes the catalog.
func (l *Library) Close() error { return l.Catalog.Close() }

// TemplatesDir is where library templates are stored.
func (l *Library) TemplatesDir() string { return filepath.Join(l.Root, TemplatesDirName) }

// PathFor is the default file path of a template id.
func (l *Library) PathFor(id string) string {
	return filepath.Join(l.TemplatesDir(), id+".json")
}

// Save writes t to its library file, refreshes the catalog and records a revision.
func (l *Library) Save(ctx context.Context, t domain.TemplateData) (string, error) {
	if strings.TrimSpace(t.ID) == "" {
		return "", errors.New("template id is required")
	}
	ctx = applog.ContextWithOperation(applog.ContextWithTemplate(ctx, t.ID), "save")
	path := l.PathFor(t.ID)
	if e, ok, err := l.Catalog.Get(ctx, t.ID); err != nil {
		return "", err
	} else if ok && e.Path != "" {
		path = e.Path
	}
	if err := WriteTemplate(path, t); err != nil {
		return "", err
	}
	if err := l.Catalog.Upsert(ctx, path, t); err != nil {
		return "", err
	}
	if err := l.Catalog.SaveRevision(ctx, t, time.Now()); err != nil {
		return "", err
	}
	if l.opt.KeepRevisions > 0 {
		if _, err := l.Catalog.PruneRevisions(ctx, t.ID, l.opt.KeepRevisions); err != nil {
			l.log.WarnContext(ctx, "prune revisions failed", slog.Any("err", err))
		}
	}
	if l.opt.KeepBackups > 0 {
		if _, err := PruneBackups(path, l.opt.KeepBackups); err != nil {
			l.log.WarnContext(ctx, "prune backups failed", slog.String("path", path), slog.Any("err", err))
		}
	}
	l.log.InfoContext(ctx, "template saved", slog.String("path", path))
	return path, nil
}

// Load reads the template with the given id.
func (l *Library) Load(ctx context.Context, id string) (Loaded, error) {
	ctx = applog.ContextWithOperation(applog.ContextWithTemplate(ctx, id), "load")
	e, ok, err := l.Catalog.Get(ctx, id)
	if err != nil {
		return Loaded{}, err
	}
	if !ok {
		return Loaded{}, fmt.Errorf("%w: %s", ErrNotInLibrary, id)
	}
	ld, err := ReadTemplate(e.Path)
	if err == nil && ld.FromBackup {
		l.log.WarnContext(ctx, "template restored from backup", slog.String("backup", ld.BackupPath))
	}
	return ld, err
}

// Import copies an external template file into the library.
func (l *Library) Import(ctx context.Context, path string) (domain.TemplateData, error) {
	ld, err := ReadTemplate(path)
	if err != nil {
		return domain.TemplateData{}, err
	}
	if _, err := l.Save(ctx, ld.Template); err != nil {
		return domain.TemplateData{}, err
	}
	return ld.Template, nil
}

// Delete removes the template file and its catalog data. Backups stay on disk.
func (l *Library) Delete(ctx context.Context, id string) error {
	ctx = applog.ContextWithOperation(applog.ContextWithTemplate(ctx, id), "delete")
	e, ok, err := l.Catalog.Get(ctx, id)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s", ErrNotInLibrary, id)
	}
	if err := os.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove template: %w", err)
	}
	if _, err := l.Catalog.Remove(ctx, id); err != nil {
		return err
	}
	l.log.InfoContext(ctx, "template deleted", slog.String("path", e.Path))
	return nil
}
