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
	"strings"
	"time"
)

// Preview returns a cached thumbnail of template id at w x h. stamp
// identifies the template revision (typically its updatedAt); a cached blob
// with a different stamp is stale and regenerated with gen. A nil gen only
// reads the cache.
func (c *Catalog) Preview(ctx context.Context, id, stamp string, w, h int, gen func(context.Context) ([]byte, error)) ([]byte, error) {
	var blob []byte
	var have string
	err := c.db.QueryRowContext(ctx, `SELECT blob, stamp FROM previews WHERE template_id=? AND w=? AND h=?`, id, w, h).Scan(&blob, &have)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return nil, fmt.Errorf("query preview: %w", err)
	case have == stamp:
		now := time.Now().UTC().Format(sortableTime)
		_, _ = c.db.ExecContext(ctx, `UPDATE previews SET last_access=? WHERE template_id=? AND w=? AND h=?`, now, id, w, h)
		return blob, nil
	}
	if gen == nil {
		return nil, nil
	}
	data, err := gen(ctx)
	if err != nil || data == nil {
		return nil, err
	}
	if err := c.PutPreview(ctx, id, stamp, w, h, data); err != nil {
		return nil, err
	}
	return data, nil
}

// PutPreview upserts a preview blob and enforces the cache size cap via LRU eviction.
func (c *Catalog) PutPreview(ctx context.Context, id, stamp string, w, h int, blob []byte) error {
	now := time.Now().UTC().Format(sortableTime)
	_, err := c.db.ExecContext(ctx, `INSERT INTO previews(template_id,stamp,w,h,blob,size,updated_at,last_access)
		VALUES(?,?,?,?,?,?,?,?)
		ON CONFLICT(template_id,w,h) DO UPDATE SET stamp=excluded.stamp, blob=excluded.blob, size=excluded.size, updated_at=excluded.updated_at, last_access=excluded.last_access`,
		id, stamp, w, h, blob, len(blob), now, now)
	if err != nil {
		return fmt.Errorf("upsert preview: %w", err)
	}
	if c.previewCap > 0 {
		return c.evictPreviewsToFit(ctx, c.previewCap)
	}
	return nil
}

// PreviewBytes returns total bytes tracked by previews.size.
func (c *Catalog) PreviewBytes(ctx context.Context) (int64, error) {
	var total int64
	if err := c.db.QueryRowContext(ctx, `SELECT COALESCE(SUM(size),0) FROM previews`).Scan(&total); err != nil {
		return 0, fmt.Errorf("sum previews size: %w", err)
	}
	return total, nil
}

// evictPreviewsToFit deletes least-recently-used rows until total size <= capBytes.
func (c *Catalog) evictPreviewsToFit(ctx context.Context, capBytes int64) error {
	total, err := c.PreviewBytes(ctx)
	if err != nil || total <= capBytes {
		return err
	}
	rows, err := c.db.QueryContext(ctx, `SELECT id, size FROM previews ORDER BY
		CASE WHEN last_access IS NULL THEN 0 ELSE 1 END ASC, last_access ASC, id ASC`)
	if err != nil {
		return fmt.Errorf("select victims: %w", err)
	}
	var victims []any
	cur := total
	for rows.Next() {
		var id, sz int64
		if err := rows.Scan(&id, &sz); err != nil {
			_ = rows.Close()
			return err
		}
		victims = append(victims, id)
		cur -= sz
		if cur <= capBytes {
			break
		}
	}
	if err := rows.Err(); err != nil {
		_ = rows.Close()
		return err
	}
	// Important: close the rows cursor before attempting to write
	if err := rows.Close(); err != nil {
		return err
	}
	if len(victims) == 0 {
		return nil
	}
	q := `DELETE FROM previews WHERE id IN (` + strings.TrimSuffix(strings.Repeat("?,", len(victims)), ",") + `)`
	if _, err := c.db.ExecContext(ctx, q, victims...); err != nil {
		return fmt.Errorf("evict delete: %w", err)
	}
	c.log.Debug("previews evicted", slog.Int("count", len(victims)), slog.Int64("cap", capBytes))
	return nil
}
