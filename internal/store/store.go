/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package store owns the template being edited and its undo/redo history.
// Every structural action clones the template, applies the change, stamps
// updatedAt and records a full snapshot through one mutation path.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"sheetdesigner/internal/domain"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/schema"
	"sheetdesigner/internal/undo"
)

// History actions recorded by the store.
const (
	ActionSet        = "set"
	ActionReset      = "reset"
	ActionImport     = "import"
	ActionCanvas     = "canvas"
	ActionBackground = "background"
	ActionAdd        = "add"
	ActionUpdate     = "update"
	ActionDelete     = "delete"
	ActionDuplicate  = "duplicate"
	ActionMove       = "move"
	ActionNudge      = "nudge"
	ActionResize     = "resize"
	ActionAlign      = "align"
	ActionDistribute = "distribute"
	ActionReorder    = "reorder"
	ActionUndo       = "undo"
	ActionRedo       = "redo"
	ActionMeta       = "meta"
	ActionClear      = "clear-history"
)

// DefaultTemplateName is used by ResetTemplate and New.
const DefaultTemplateName = "Untitled Template"

var (
	ErrNoVariant      = errors.New("region has no type")
	ErrDuplicateID    = errors.New("region id already exists")
	ErrRegionNotFound = errors.New("region not found")
)

// Options configures a Store. Zero values pick the editor defaults.
type Options struct {
	MaxHistory      int
	DuplicateOffset float64
	Now             func() time.Time
	NewID           func() string
	Logger          *slog.Logger
}

func (o Options) withDefaults() Options {
	if o.MaxHistory <= 0 {
		o.MaxHistory = 50
	}
	if o.DuplicateOffset == 0 {
		o.DuplicateOffset = 20
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	if o.NewID == nil {
		o.NewID = func() string { return uuid.NewString() }
	}
	if o.Logger == nil {
		o.Logger = applog.WithComponent("store")
	}
	return o
}

// ChangeKind distinguishes in-place edits from wholesale replacement.
type ChangeKind int

const (
	// ChangeEdit is any action that modifies the current template.
	ChangeEdit ChangeKind = iota
	// ChangeReplace means a different template was installed (set, reset, import).
	ChangeReplace
	// ChangeHistory means only the history changed.
	ChangeHistory
)

// Change is delivered to subscribers after an action completes.
type Change struct {
	Action string
	Kind   ChangeKind
}

// Listener receives change notifications. It runs on the caller's goroutine
// after the store lock is released, so it may read from the store.
type Listener func(Change)

// Store is the single owner of the live template.
type Store struct {
	opts Options
	log  *slog.Logger
	hist *undo.Manager

	mu  sync.RWMutex
	tpl domain.TemplateData

	subMu   sync.Mutex
	subs    map[int]Listener
	nextSub int
}

// New returns a store holding a blank template with one history entry.
func New(opts Options) *Store {
	opts = opts.withDefaults()
	s := &Store{
		opts: opts,
		log:  opts.Logger,
		hist: undo.NewManager(undo.Config{MaxItems: opts.MaxHistory}),
		subs: make(map[int]Listener),
	}
	now := opts.Now()
	s.tpl = domain.NewTemplate(opts.NewID(), DefaultTemplateName, now)
	s.hist.Reset(ActionReset, "New template", s.tpl, now)
	return s
}

// NewID generates an id with the store's generator.
func (s *Store) NewID() string { return s.opts.NewID() }

// Template returns a deep copy of the live template.
func (s *Store) Template() domain.TemplateData {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tpl.Clone()
}

// Region returns a copy of the region with id.
func (s *Store) Region(id string) (domain.Region, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if r := s.tpl.FindRegion(id); r != nil {
		return r.Clone(), true
	}
	return domain.Region{}, false
}

// Regions returns copies of all regions in stored order.
func (s *Store) Regions() []domain.Region {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Region, len(s.tpl.Regions))
	for i, r := range s.tpl.Regions {
		out[i] = r.Clone()
	}
	return out
}

// Subscribe registers fn for change notifications and returns the function
// that removes it.
func (s *Store) Subscribe(fn Listener) func() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.subMu.Lock()
		delete(s.subs, id)
		s.subMu.Unlock()
	}
}

func (s *Store) notify(c Change) {
	s.subMu.Lock()
	fns := make([]Listener, 0, len(s.subs))
	for i := 0; i < s.nextSub; i++ {
		if fn, ok := s.subs[i]; ok {
			fns = append(fns, fn)
		}
	}
	s.subMu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

// mutate applies fn to a copy of the template. When fn reports a change the
// copy becomes live, updatedAt is stamped and a snapshot is recorded.
func (s *Store) mutate(action, desc string, fn func(t *domain.TemplateData) bool) bool {
	s.mu.Lock()
	next := s.tpl.Clone()
	if !fn(&next) {
		s.mu.Unlock()
		return false
	}
	now := s.opts.Now()
	next.UpdatedAt = now
	s.tpl = next
	s.hist.Push(action, desc, next, now)
	s.mu.Unlock()

	s.log.DebugContext(applog.ContextWithTemplate(context.Background(), next.ID), desc,
		slog.String("action", action), slog.Int("regions", len(next.Regions)))
	s.notify(Change{Action: action, Kind: ChangeEdit})
	return true
}

// replace installs t as the live template and resets history to it.
func (s *Store) replace(action, desc string, t domain.TemplateData) {
	t = t.Clone()
	if t.Regions == nil {
		t.Regions = []domain.Region{}
	}
	s.mu.Lock()
	s.tpl = t
	s.hist.Reset(action, desc, t, s.opts.Now())
	s.mu.Unlock()

	applog.WithTemplate(s.log, t.ID, t.Name).Info(desc, slog.String("action", action), slog.Int("regions", len(t.Regions)))
	s.notify(Change{Action: action, Kind: ChangeReplace})
}

// SetTemplate replaces the template wholesale and resets history to a single
// entry containing it.
func (s *Store) SetTemplate(t domain.TemplateData) {
	s.replace(ActionSet, "Load template", t)
}

// ResetTemplate installs a blank default template.
func (s *Store) ResetTemplate() {
	now := s.opts.Now()
	s.replace(ActionReset, "New template", domain.NewTemplate(s.opts.NewID(), DefaultTemplateName, now))
}

// TemplatePatch holds the top-level fields UpdateTemplate may change.
// Nil fields are left alone.
type TemplatePatch struct {
	Name           *string
	Description    *string
	Version        *string
	Metadata       *domain.Metadata
	ExportSettings *domain.ExportSettings
}

// UpdateTemplate merges p into the template and stamps updatedAt. It records
// no history entry; the edit is captured by the next structural snapshot.
func (s *Store) UpdateTemplate(p TemplatePatch) {
	s.mu.Lock()
	if p.Name != nil {
		s.tpl.Name = *p.Name
	}
	if p.Description != nil {
		s.tpl.Description = *p.Description
	}
	if p.Version != nil {
		s.tpl.Version = *p.Version
	}
	if p.Metadata != nil {
		md := domain.TemplateData{Metadata: *p.Metadata}.Clone().Metadata
		s.tpl.Metadata = md
	}
	if p.ExportSettings != nil {
		s.tpl.ExportSettings = *p.ExportSettings
	}
	s.tpl.UpdatedAt = s.opts.Now()
	s.mu.Unlock()
	s.notify(Change{Action: ActionMeta, Kind: ChangeEdit})
}

// UpdateCanvas replaces the canvas settings. Non-positive sizes are rejected.
func (s *Store) UpdateCanvas(c domain.CanvasSettings) bool {
	if c.Width <= 0 || c.Height <= 0 || c.GridSize < 0 {
		s.log.Warn("canvas update rejected", slog.Float64("width", c.Width), slog.Float64("height", c.Height))
		return false
	}
	return s.mutate(ActionCanvas, "Update canvas", func(t *domain.TemplateData) bool {
		if t.Canvas == c {
			return false
		}
		t.Canvas = c
		return true
	})
}

// SetBackgroundImage sets or, with nil, removes the background. An image
// with known dimensions resizes the canvas to match; regions are untouched.
func (s *Store) SetBackgroundImage(bg *domain.BackgroundImage) bool {
	desc := "Remove background"
	if bg != nil {
		desc = "Set background"
	}
	return s.mutate(ActionBackground, desc, func(t *domain.TemplateData) bool {
		if bg == nil {
			if t.BackgroundImage == nil {
				return false
			}
			t.BackgroundImage = nil
			return true
		}
		img := *bg
		t.BackgroundImage = &img
		if img.Width > 0 && img.Height > 0 {
			t.Canvas.Width = img.Width
			t.Canvas.Height = img.Height
		}
		return true
	})
}

// Undo restores the previous snapshot. It returns false at the history start.
func (s *Store) Undo() bool {
	s.mu.Lock()
	t, ok := s.hist.Undo()
	if ok {
		s.tpl = t
	}
	s.mu.Unlock()
	if ok {
		s.log.Debug("undo")
		s.notify(Change{Action: ActionUndo, Kind: ChangeEdit})
	}
	return ok
}

// Redo re-applies the next snapshot. It returns false at the history end.
func (s *Store) Redo() bool {
	s.mu.Lock()
	t, ok := s.hist.Redo()
	if ok {
		s.tpl = t
	}
	s.mu.Unlock()
	if ok {
		s.log.Debug("redo")
		s.notify(Change{Action: ActionRedo, Kind: ChangeEdit})
	}
	return ok
}

func (s *Store) CanUndo() bool { return s.hist.CanUndo() }
func (s *Store) CanRedo() bool { return s.hist.CanRedo() }

// ClearHistory empties the history without touching the live template.
func (s *Store) ClearHistory() {
	s.hist.Clear()
	s.notify(Change{Action: ActionClear, Kind: ChangeHistory})
}

// History returns a copy of the undo/redo state.
func (s *Store) History() domain.HistoryState { return s.hist.State() }

// ValidateTemplate checks the live template.
func (s *Store) ValidateTemplate() schema.Result {
	return schema.Validate(s.Template())
}

// ExportTemplate validates and serializes the live template. Validation
// failures are returned as the result and produce no text.
func (s *Store) ExportTemplate(f schema.Format) ([]byte, schema.Result) {
	t := s.Template()
	res := schema.Validate(t)
	if !res.Success {
		s.log.Warn("export blocked", slog.String("code", string(res.Code)), slog.String("error", res.Error))
		return nil, res
	}
	b, err := schema.Marshal(t, f)
	if err != nil {
		return nil, schema.Fail(schema.CodeInvalidFormat, "%v", err)
	}
	return b, res
}

// ImportTemplate parses text and on success installs it via SetTemplate.
// A failed import leaves the live template and history untouched.
func (s *Store) ImportTemplate(text []byte) schema.Result {
	t, res := schema.Parse(text)
	if !res.Success {
		s.log.Warn("import rejected", slog.String("code", string(res.Code)), slog.String("error", res.Error))
		return res
	}
	s.replace(ActionImport, fmt.Sprintf("Import %s", t.Name), t)
	return res
}
