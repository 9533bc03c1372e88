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
	"fmt"
	"strings"

	"sheetdesigner/internal/domain"
)

// Query describes a catalog listing.
// Text uses SQLite FTS5 syntax (simple terms, phrases in quotes, AND/OR/NOT)
// over name, description and tags. Has restricts to templates containing at
// least one region of each listed type. Limit/Offset implement pagination;
// reasonable defaults are applied if zero.
type Query struct {
	Text   string
	Has    []domain.RegionType
	Limit  int
	Offset int
}

// List returns matching templates, most recently updated first. With a Text
// query, Snippet holds a highlighted excerpt using [ ] markers.
func (c *Catalog) List(ctx context.Context, q Query) ([]Entry, error) {
	var args []any
	var sb strings.Builder
	useFTS := strings.TrimSpace(q.Text) != ""
	if useFTS {
		sb.WriteString("SELECT " + entryColumns + ", snippet(fts_templates, -1, '[', ']', '…', 10)\n")
		sb.WriteString("FROM fts_templates JOIN templates t ON fts_templates.rowid = t.doc_id\n")
		sb.WriteString("WHERE fts_templates MATCH ?\n")
		args = append(args, q.Text)
	} else {
		sb.WriteString("SELECT " + entryColumns + ", ''\n")
		sb.WriteString("FROM templates t\nWHERE 1=1\n")
	}
	for _, rt := range q.Has {
		col, err := countColumn(rt)
		if err != nil {
			return nil, err
		}
		sb.WriteString(" AND t." + col + " > 0\n")
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 100
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	sb.WriteString("ORDER BY t.updated_at DESC, t.name\n")
	sb.WriteString("LIMIT ? OFFSET ?")
	args = append(args, limit, q.Offset)

	rows, err := c.db.QueryContext(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("list query: %w", err)
	}
	defer rows.Close()
	var out []Entry
	for rows.Next() {
		var snippet string
		e, err := scanEntry(rows, &snippet)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Snippet = snippet
		out = append(out, e)
	}
	return out, rows.Err()
}

// countColumn maps a region type to its count column. The switch keeps
// column names out of user input.
func countColumn(rt domain.RegionType) (string, error) {
	switch rt {
	case domain.RegionAnchor:
		return "anchors", nil
	case domain.RegionBarcode:
		return "barcodes", nil
	case domain.RegionObjective:
		return "objectives", nil
	case domain.RegionSubjective:
		return "subjectives", nil
	}
	return "", fmt.Errorf("unknown region type %q", rt)
}
