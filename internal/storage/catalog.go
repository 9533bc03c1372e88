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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"sheetdesigner/internal/domain"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// CatalogDirName stores the library's derived data under its root.
	CatalogDirName  = ".shd"
	CatalogFileName = "catalog.sqlite"

	// catalogSchemaVersion tracks the local SQLite schema of the catalog.
	// Bump this when you perform breaking schema changes and add migrations.
	catalogSchemaVersion = 2

	// DefaultPreviewCacheBytes caps the thumbnail cache.
	DefaultPreviewCacheBytes = 64 * 1024 * 1024
)

// CatalogPath returns the full path to a library's catalog database file.
func CatalogPath(root string) string {
	return filepath.Join(root, CatalogDirName, CatalogFileName)
}

// CatalogOptions tunes an opened catalog.
type CatalogOptions struct {
	// PreviewCacheBytes caps the preview cache; 0 uses the default, <0 disables eviction.
	PreviewCacheBytes int64
}

// Catalog is the SQLite index of a template library.
type Catalog struct {
	root       string
	db         *sql.DB
	log        *slog.Logger
	previewCap int64
}

// OpenCatalog ensures the catalog exists at <root>/.shd/catalog.sqlite,
// opens it in WAL mode and brings the schema up to date.
func OpenCatalog(root string, opt CatalogOptions) (*Catalog, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "catalog_open").With(
		slog.String("root", root),
	)
	if strings.TrimSpace(root) == "" {
		return nil, errors.New("library root is required")
	}
	if err := os.MkdirAll(filepath.Join(root, CatalogDirName), 0o755); err != nil {
		l.Error("create catalog dir failed", slog.Any("err", err))
		return nil, fmt.Errorf("create %s dir: %w", CatalogDirName, err)
	}

	path := CatalogPath(root)
	// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := ensureCatalogSchema(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure catalog schema failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}

	capBytes := opt.PreviewCacheBytes
	if capBytes == 0 {
		capBytes = DefaultPreviewCacheBytes
	}
	l.Debug("catalog ready", slog.String("path", path))
	return &Catalog{root: root, db: db, log: applog.WithComponent("catalog"), previewCap: capBytes}, nil
}

// Close releases the database handle.
func (c *Catalog) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// a fresh database starts at schema 1 and migrates forward
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to catalogSchemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < catalogSchemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`CREATE INDEX IF NOT EXISTS idx_templates_updated ON templates(updated_at);`,
				`CREATE INDEX IF NOT EXISTS idx_revisions_template_ts ON revisions(template_id, ts);`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

// ensureCatalogSchema creates the catalog tables and FTS structures if they do not exist.
func ensureCatalogSchema(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS templates (
			doc_id       INTEGER PRIMARY KEY,
			id           TEXT    NOT NULL UNIQUE,
			name         TEXT    NOT NULL,
			description  TEXT    NOT NULL DEFAULT '',
			tags         TEXT    NOT NULL DEFAULT '',
			path         TEXT    NOT NULL,
			anchors      INTEGER NOT NULL DEFAULT 0,
			barcodes     INTEGER NOT NULL DEFAULT 0,
			objectives   INTEGER NOT NULL DEFAULT 0,
			subjectives  INTEGER NOT NULL DEFAULT 0,
			questions    INTEGER NOT NULL DEFAULT 0,
			max_score    REAL    NOT NULL DEFAULT 0,
			updated_at   TEXT    NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_templates_path ON templates(path);`,

		// External-content FTS5 index over templates, kept in sync via triggers.
		`CREATE VIRTUAL TABLE IF NOT EXISTS fts_templates USING fts5(
			name, description, tags,
			content='templates', content_rowid='doc_id',
			tokenize = 'unicode61'
		);`,

		`CREATE TABLE IF NOT EXISTS previews (
			id           INTEGER PRIMARY KEY,
			template_id  TEXT    NOT NULL,
			stamp        TEXT    NOT NULL,
			w            INTEGER NOT NULL,
			h            INTEGER NOT NULL,
			blob         BLOB    NOT NULL,
			size         INTEGER NOT NULL,
			updated_at   TEXT    NOT NULL,
			last_access  TEXT
		);`,
		`CREATE UNIQUE INDEX IF NOT EXISTS ux_previews_variant ON previews(template_id, w, h);`,
		`CREATE INDEX IF NOT EXISTS idx_previews_access ON previews(last_access);`,

		`CREATE TABLE IF NOT EXISTS revisions (
			id           INTEGER PRIMARY KEY,
			template_id  TEXT    NOT NULL,
			ts           TEXT    NOT NULL,
			data         BLOB    NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure catalog schema: %w", err)
		}
	}
	triggers := []string{
		`CREATE TRIGGER IF NOT EXISTS templates_ai AFTER INSERT ON templates BEGIN
			INSERT INTO fts_templates(rowid, name, description, tags) VALUES (new.doc_id, new.name, new.description, new.tags);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS templates_ad AFTER DELETE ON templates BEGIN
			INSERT INTO fts_templates(fts_templates, rowid, name, description, tags) VALUES ('delete', old.doc_id, old.name, old.description, old.tags);
		END;`,
		`CREATE TRIGGER IF NOT EXISTS templates_au AFTER UPDATE ON templates BEGIN
			INSERT INTO fts_templates(fts_templates, rowid, name, description, tags) VALUES ('delete', old.doc_id, old.name, old.description, old.tags);
			INSERT INTO fts_templates(rowid, name, description, tags) VALUES (new.doc_id, new.name, new.description, new.tags);
		END;`,
	}
	for _, q := range triggers {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("ensure fts triggers: %w", err)
		}
	}
	return nil
}

// DetectAndRebuildCatalog checks the catalog for corruption or a missing
// schema and rebuilds it from the template files in dir when needed.
// It returns true when a rebuild was performed.
func DetectAndRebuildCatalog(ctx context.Context, root, dir string) (bool, error) {
	path := CatalogPath(root)
	c, err := OpenCatalog(root, CatalogOptions{})
	if err == nil {
		needs := false
		var chk string
		if qerr := c.db.QueryRowContext(ctx, `PRAGMA quick_check;`).Scan(&chk); qerr != nil || !strings.Contains(strings.ToLower(chk), "ok") {
			needs = true
		}
		if !needs {
			if _, qerr := c.db.ExecContext(ctx, `SELECT 1 FROM templates LIMIT 1;`); qerr != nil {
				needs = true
			}
		}
		_ = c.Close()
		if !needs {
			return false, nil
		}
	}
	backupCatalogFile(path)
	_ = os.Remove(path)
	_ = os.Remove(path + "-wal")
	_ = os.Remove(path + "-shm")
	c, rerr := OpenCatalog(root, CatalogOptions{})
	if rerr != nil {
		return false, fmt.Errorf("reopen catalog: %w (open err: %v)", rerr, err)
	}
	defer c.Close()
	if _, err := c.Rebuild(ctx, dir); err != nil {
		return false, err
	}
	return true, nil
}

// backupCatalogFile copies the current catalog file into a timestamped backup in .shd/backups.
func backupCatalogFile(path string) {
	bdir := filepath.Join(filepath.Dir(path), BackupsDirName)
	_ = os.MkdirAll(bdir, 0o755)
	bak := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(path), time.Now().Format(backupStamp)))
	if data, err := os.ReadFile(path); err == nil {
		_ = os.WriteFile(bak, data, 0o644)
	}
}

// sortableTime keeps fixed-width fractions so TEXT columns order chronologically.
const sortableTime = "2006-01-02T15:04:05.000000000Z07:00"

// Entry is one template row of the catalog.
type Entry struct {
	ID          string
	Name        string
	Description string
	Tags        []string
	Path        string
	Counts      map[domain.RegionType]int
	Questions   int
	MaxScore    float64
	UpdatedAt   time.Time
	Snippet     string
}

// Regions is the total region count.
func (e Entry) Regions() int {
	n := 0
	for _, c := range e.Counts {
		n += c
	}
	return n
}

func summarize(t domain.TemplateData) (counts map[domain.RegionType]int, questions int, score float64) {
	counts = make(map[domain.RegionType]int, len(domain.RegionTypes))
	for _, r := range t.Regions {
		counts[r.Type()]++
		switch p := r.Props.(type) {
		case *domain.ObjectiveProps:
			questions += p.QuestionCount
			score += p.MaxScore()
		case *domain.SubjectiveProps:
			questions++
			score += p.TotalScore
		}
	}
	return counts, questions, score
}

// Upsert records or refreshes the template stored at path.
func (c *Catalog) Upsert(ctx context.Context, path string, t domain.TemplateData) error {
	if strings.TrimSpace(t.ID) == "" {
		return errors.New("template id is required")
	}
	counts, questions, score := summarize(t)
	_, err := c.db.ExecContext(ctx, `INSERT INTO templates(id,name,description,tags,path,anchors,barcodes,objectives,subjectives,questions,max_score,updated_at)
		VALUES(?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(id) DO UPDATE SET name=excluded.name, description=excluded.description, tags=excluded.tags, path=excluded.path,
			anchors=excluded.anchors, barcodes=excluded.barcodes, objectives=excluded.objectives, subjectives=excluded.subjectives,
			questions=excluded.questions, max_score=excluded.max_score, updated_at=excluded.updated_at`,
		t.ID, t.Name, t.Description, strings.Join(t.Metadata.Tags, " "), path,
		counts[domain.RegionAnchor], counts[domain.RegionBarcode], counts[domain.RegionObjective], counts[domain.RegionSubjective],
		questions, score, t.UpdatedAt.UTC().Format(sortableTime))
	if err != nil {
		return fmt.Errorf("upsert template: %w", err)
	}
	c.log.Debug("catalog upsert", slog.String("id", t.ID), slog.String("path", path))
	return nil
}

// Remove deletes a template row with its previews and revisions.
func (c *Catalog) Remove(ctx context.Context, id string) (bool, error) {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("begin tx: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM templates WHERE id=?`, id)
	if err != nil {
		_ = tx.Rollback()
		return false, fmt.Errorf("delete template: %w", err)
	}
	for _, q := range []string{`DELETE FROM previews WHERE template_id=?`, `DELETE FROM revisions WHERE template_id=?`} {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			_ = tx.Rollback()
			return false, fmt.Errorf("delete template data: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("commit: %w", err)
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

const entryColumns = `t.id, t.name, t.description, t.tags, t.path, t.anchors, t.barcodes, t.objectives, t.subjectives, t.questions, t.max_score, t.updated_at`

func scanEntry(sc interface{ Scan(...any) error }, extra ...any) (Entry, error) {
	var e Entry
	var tags, ts string
	var a, b, o, s int
	dest := append([]any{&e.ID, &e.Name, &e.Description, &tags, &e.Path, &a, &b, &o, &s, &e.Questions, &e.MaxScore, &ts}, extra...)
	if err := sc.Scan(dest...); err != nil {
		return Entry{}, err
	}
	e.Tags = strings.Fields(tags)
	e.Counts = map[domain.RegionType]int{
		domain.RegionAnchor: a, domain.RegionBarcode: b, domain.RegionObjective: o, domain.RegionSubjective: s,
	}
	e.UpdatedAt, _ = time.Parse(time.RFC3339Nano, ts)
	return e, nil
}

// Get returns the catalog entry for id.
func (c *Catalog) Get(ctx context.Context, id string) (Entry, bool, error) {
	row := c.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM templates t WHERE t.id=?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("get template: %w", err)
	}
	return e, true, nil
}

// Rebuild replaces the catalog content with the template files found in dir.
// Files that do not parse are skipped and logged. It returns the number of
// templates indexed.
func (c *Catalog) Rebuild(ctx context.Context, dir string) (int, error) {
	ents, err := os.ReadDir(dir)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return 0, fmt.Errorf("read templates dir: %w", err)
	}
	if _, err := c.db.ExecContext(ctx, `DELETE FROM templates;`); err != nil {
		return 0, fmt.Errorf("clear templates: %w", err)
	}
	n := 0
	for _, e := range ents {
		if e.IsDir() || !isTemplateFile(e.Name()) {
			continue
		}
		path := filepath.Join(dir, e.Name())
		ld, err := ReadTemplate(path)
		if err != nil {
			c.log.Warn("skip unreadable template", slog.String("path", path), slog.Any("err", err))
			continue
		}
		if err := c.Upsert(ctx, path, ld.Template); err != nil {
			return n, err
		}
		n++
	}
	return n, nil
}

func isTemplateFile(name string) bool {
	if strings.HasPrefix(name, ".") {
		return false
	}
	switch strings.ToLower(filepath.Ext(name)) {
	case ".json", ".yaml", ".yml":
		return true
	}
	return false
}
