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
	"time"

	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/schema"
)

// language=SQL
// dialect=SQLite
const insertRevisionSQL = `INSERT INTO revisions(template_id, ts, data) VALUES (?, ?, ?)`

// language=SQL
// dialect=SQLite
const selectLatestRevisionSQL = `SELECT ts, data FROM revisions WHERE template_id = ? ORDER BY ts DESC, id DESC LIMIT 1`

// language=SQL
// dialect=SQLite
const listRevisionsSQL = `SELECT ts, data FROM revisions WHERE template_id = ? ORDER BY ts DESC, id DESC LIMIT ?`

// language=SQL
// dialect=SQLite
const pruneOldRevisionsSQL = `DELETE FROM revisions WHERE template_id = ? AND id NOT IN (
	SELECT id FROM revisions WHERE template_id = ? ORDER BY ts DESC, id DESC LIMIT ?
)`

// Revision is one saved state of a template.
type Revision struct {
	TS       time.Time
	Template domain.TemplateData
}

// SaveRevision stores the serialized template under its id.
func (c *Catalog) SaveRevision(ctx context.Context, t domain.TemplateData, ts time.Time) error {
	data, err := schema.Marshal(t, schema.FormatJSON)
	if err != nil {
		return err
	}
	if _, err := c.db.ExecContext(ctx, insertRevisionSQL, t.ID, ts.UTC().Format(sortableTime), data); err != nil {
		return fmt.Errorf("insert revision: %w", err)
	}
	return nil
}

// LatestRevision returns the newest revision of a template; ok is false if none exists.
func (c *Catalog) LatestRevision(ctx context.Context, id string) (rev Revision, ok bool, err error) {
	var ts string
	var data []byte
	err = c.db.QueryRowContext(ctx, selectLatestRevisionSQL, id).Scan(&ts, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Revision{}, false, nil
	}
	if err != nil {
		return Revision{}, false, fmt.Errorf("query revision: %w", err)
	}
	rev, err = decodeRevision(ts, data)
	return rev, err == nil, err
}

// ListRevisions returns up to limit most recent revisions of a template.
func (c *Catalog) ListRevisions(ctx context.Context, id string, limit int) ([]Revision, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := c.db.QueryContext(ctx, listRevisionsSQL, id, limit)
	if err != nil {
		return nil, fmt.Errorf("list revisions: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Revision
	for rows.Next() {
		var ts string
		var data []byte
		if err := rows.Scan(&ts, &data); err != nil {
			return nil, err
		}
		rev, err := decodeRevision(ts, data)
		if err != nil {
			return nil, err
		}
		out = append(out, rev)
	}
	return out, rows.Err()
}

// PruneRevisions keeps at most keepLast revisions of the template and deletes older ones.
func (c *Catalog) PruneRevisions(ctx context.Context, id string, keepLast int) (int64, error) {
	if keepLast <= 0 {
		return 0, nil
	}
	res, err := c.db.ExecContext(ctx, pruneOldRevisionsSQL, id, id, keepLast)
	if err != nil {
		return 0, fmt.Errorf("prune revisions: %w", err)
	}
	return res.RowsAffected()
}

func decodeRevision(ts string, data []byte) (Revision, error) {
	t, res := schema.Parse(data)
	if !res.Success {
		return Revision{}, fmt.Errorf("decode revision: %w", res.Err())
	}
	at, _ := time.Parse(time.RFC3339Nano, ts)
	return Revision{TS: at, Template: t}, nil
}
