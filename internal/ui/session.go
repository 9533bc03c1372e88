/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package ui

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"sheetdesigner/internal/canvas"
	"sheetdesigner/internal/config"
	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/export"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/storage"
	"sheetdesigner/internal/store"
)

// Session is one open template: the store, its controller and the file it
// is bound to. It holds no toolkit state so it can be driven headless.
type Session struct {
	Store *store.Store
	Ctrl  *canvas.Controller
	Path  string

	cfg    config.AppConfig
	dirty  bool
	unsub  func()
	log    *slog.Logger
	notice string
}

// NewSession opens path, or starts a blank template bound to path when the
// file does not exist yet. An empty path starts an unbound template.
func NewSession(path string, cfg config.AppConfig) (*Session, error) {
	st := store.New(cfg.Editor.StoreOptions())
	s := &Session{Store: st, cfg: cfg, log: applog.WithComponent("ui")}

	switch _, err := os.Stat(path); {
	case path == "" || errors.Is(err, os.ErrNotExist):
		t := st.Template()
		t.Canvas = cfg.CanvasSettings()
		st.SetTemplate(t)
	case err != nil:
		return nil, err
	default:
		ld, err := storage.ReadTemplate(path)
		if err != nil {
			return nil, err
		}
		if ld.FromBackup {
			s.notice = fmt.Sprintf("%s was damaged; restored %s", filepath.Base(path), filepath.Base(ld.BackupPath))
		}
		st.SetTemplate(ld.Template)
	}
	s.Path = path
	s.Ctrl = canvas.New(st, cfg.Editor.ControllerOptions())
	s.unsub = st.Subscribe(func(ch store.Change) {
		if ch.Kind != store.ChangeReplace || ch.Action == store.ActionImport {
			s.dirty = true
		}
	})
	return s, nil
}

// Close detaches the controller and listeners.
func (s *Session) Close() {
	s.unsub()
	s.Ctrl.Close()
}

// Dirty reports unsaved edits.
func (s *Session) Dirty() bool { return s.dirty }

// Notice is a one-off message from opening the file, e.g. a backup restore.
func (s *Session) Notice() string { return s.notice }

// Title is the window title.
func (s *Session) Title() string {
	name := s.Store.Template().Name
	if s.Path != "" {
		name += " – " + filepath.Base(s.Path)
	}
	if s.dirty {
		name = "*" + name
	}
	return name + " – Sheet Designer"
}

// Save writes the template to the bound path, or to path when given.
func (s *Session) Save(path string) error {
	if strings.TrimSpace(path) != "" {
		s.Path = path
	}
	if s.Path == "" {
		return errors.New("no file chosen")
	}
	if err := storage.WriteTemplate(s.Path, s.Store.Template()); err != nil {
		return err
	}
	s.dirty = false
	_ = storage.RemoveAutosave(s.AutosaveDir(), s.Store.Template().ID)
	s.log.Info("template saved", slog.String("path", s.Path))
	return nil
}

// Export writes the template to path in the format its extension names.
func (s *Session) Export(path string) error {
	return export.WriteFile(path, s.Store.Template(), export.Options{})
}

// AutosaveDir is where crash and interval autosaves go.
func (s *Session) AutosaveDir() string {
	return filepath.Join(s.cfg.Library.Dir, storage.AutosaveDirName)
}

// Autosave stores unsaved edits; it is a no-op for a clean session.
func (s *Session) Autosave() (string, error) {
	if !s.dirty {
		return "", nil
	}
	return storage.WriteAutosave(s.AutosaveDir(), s.Store.Template())
}

// Status summarizes the selection and validation state for the status bar.
func (s *Session) Status() string {
	t := s.Store.Template()
	res := s.Store.ValidateTemplate()
	msg := fmt.Sprintf("%s · %d regions · %d selected · %.0f%%",
		s.Ctrl.Tool(), len(t.Regions), len(s.Ctrl.Selection()), s.Ctrl.View().Scale*100)
	if !res.Success {
		msg += " · " + res.Error
	} else if n := len(res.Warnings); n > 0 {
		msg += fmt.Sprintf(" · %d warnings", n)
	}
	return msg
}

// SelectedRegion returns the single selected region, if exactly one is selected.
func (s *Session) SelectedRegion() (domain.Region, bool) {
	sel := s.Ctrl.Selection()
	if len(sel) != 1 {
		return domain.Region{}, false
	}
	return s.Store.Region(sel[0])
}
