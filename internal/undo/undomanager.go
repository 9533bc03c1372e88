/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"sync"
	"time"

	"github.com/segmentio/ksuid"

	"sheetdesigner/internal/domain"
)

// Config controls the depth cap and id generation.
type Config struct {
	// MaxItems caps the number of snapshots kept; the oldest are evicted first.
	MaxItems int
	// NewID overrides snapshot id generation (tests).
	NewID func() string
}

// Manager is a linear undo/redo list of full template snapshots.
// Index points at the snapshot that represents the live template.
// It is safe for concurrent use.
type Manager struct {
	cfg   Config
	mu    sync.Mutex
	items []domain.HistoryItem
	index int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = 50
	}
	if cfg.NewID == nil {
		cfg.NewID = func() string { return ksuid.New().String() }
	}
	return &Manager{cfg: cfg, index: -1}
}

// Reset replaces the whole history with a single snapshot of data.
func (m *Manager) Reset(action, description string, data domain.TemplateData, ts time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = []domain.HistoryItem{m.newItem(action, description, data, ts)}
	m.index = 0
}

// Push records a snapshot after a structural mutation. Entries after the
// current index are discarded first.
func (m *Manager) Push(action, description string, data domain.TemplateData, ts time.Time) domain.HistoryItem {
	m.mu.Lock()
	defer m.mu.Unlock()
	it := m.newItem(action, description, data, ts)
	m.items = append(m.items[:m.index+1], it)
	m.index = len(m.items) - 1
	m.enforceCapLocked()
	return it
}

// Undo steps back one snapshot and returns a copy of it.
func (m *Manager) Undo() (domain.TemplateData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index <= 0 {
		return domain.TemplateData{}, false
	}
	m.index--
	return m.items[m.index].Data.Clone(), true
}

// Redo steps forward one snapshot and returns a copy of it.
func (m *Manager) Redo() (domain.TemplateData, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.index >= len(m.items)-1 {
		return domain.TemplateData{}, false
	}
	m.index++
	return m.items[m.index].Data.Clone(), true
}

func (m *Manager) CanUndo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index > 0
}

func (m *Manager) CanRedo() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.index < len(m.items)-1
}

// Clear empties the history. The live template is not the manager's concern.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items = nil
	m.index = -1
}

// State returns a deep copy of the history.
func (m *Manager) State() domain.HistoryState {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := make([]domain.HistoryItem, len(m.items))
	for i, it := range m.items {
		items[i] = it
		items[i].Data = it.Data.Clone()
	}
	return domain.HistoryState{Items: items, CurrentIndex: m.index, MaxItems: m.cfg.MaxItems}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (items int, currentIndex int, maxItems int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items), m.index, m.cfg.MaxItems
}

func (m *Manager) newItem(action, description string, data domain.TemplateData, ts time.Time) domain.HistoryItem {
	return domain.HistoryItem{
		ID:          m.cfg.NewID(),
		Timestamp:   ts,
		Action:      action,
		Data:        data.Clone(),
		Description: description,
	}
}

func (m *Manager) enforceCapLocked() {
	if over := len(m.items) - m.cfg.MaxItems; over > 0 {
		// drop the oldest extras
		m.items = append([]domain.HistoryItem{}, m.items[over:]...)
		m.index -= over
		if m.index < 0 {
			m.index = 0
		}
	}
}
