//go:build fyne && cgo

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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"sheetdesigner/internal/canvas"
	"sheetdesigner/internal/config"
	"sheetdesigner/internal/crash"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/schema"
	"sheetdesigner/internal/store"
)

// autosaveInterval is how often unsaved edits are written to the autosave dir.
const autosaveInterval = 2 * time.Minute

// Run starts the desktop UI. Pass an optional template file to open immediately.
func Run(path string) error {
	cfg, cerr := config.Load()
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("ui")
	if cerr != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", cerr))
	}
	l.Info("starting UI")

	sess, err := NewSession(path, cfg)
	if err != nil {
		return err
	}
	crashSess := &crash.Session{Source: sess.Store, Dir: cfg.Library.Dir}
	defer crash.Recover(crashSess)

	fyneApp := app.NewWithID("sheetdesigner")
	w := fyneApp.NewWindow("Sheet Designer")
	// Restore window size from preferences (with sane minimums)
	prefs := fyneApp.Preferences()
	winW := prefs.IntWithFallback("window.width", 1200)
	winH := prefs.IntWithFallback("window.height", 850)
	if winW < 800 {
		winW = 800
	}
	if winH < 600 {
		winH = 600
	}
	w.Resize(fyne.NewSize(float32(winW), float32(winH)))

	status := widget.NewLabel("Ready")
	sheet := NewSheetCanvas(sess)
	props := newPropertiesPanel()

	refresh := func() {
		w.SetTitle(sess.Title())
		status.SetText(sess.Status())
		props.show(sess)
	}
	bind := func(s *Session) {
		sess.Close()
		sess = s
		crashSess.Source = s.Store
		sheet.SetSession(s)
		if n := s.Notice(); n != "" {
			dialog.ShowInformation("Recovered", n, w)
		}
		if s.Path != "" {
			addRecentTemplate(prefs, s.Path)
		}
		refresh()
	}
	props.onApply = func() { sheet.changed(true) }

	// Tool palette
	toolGroup := widget.NewRadioGroup(toolLabels(), func(label string) {
		if t, err := canvas.ParseTool(strings.ToLower(label)); err == nil && sess.Ctrl.Tool() != t {
			sess.Ctrl.SetTool(t)
			refresh()
		}
	})
	toolGroup.Horizontal = true
	toolGroup.SetSelected(toolLabel(sess.Ctrl.Tool()))
	sheet.OnChange = func() {
		toolGroup.SetSelected(toolLabel(sess.Ctrl.Tool()))
		refresh()
	}

	confirmDiscard := func(next func()) {
		if !sess.Dirty() {
			next()
			return
		}
		dialog.ShowConfirm("Unsaved changes", "Discard unsaved changes?", func(ok bool) {
			if ok {
				next()
			}
		}, w)
	}
	saveAs := func() {
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			p := uc.URI().Path()
			_ = uc.Close()
			if err := sess.Save(p); err != nil {
				l.Error("save failed", slog.Any("err", err))
				dialog.ShowError(err, w)
				return
			}
			addRecentTemplate(prefs, p)
			refresh()
		}, w)
		fd.SetFileName(defaultFileName(sess))
		fd.Show()
	}
	save := func() {
		if sess.Path == "" {
			saveAs()
			return
		}
		if err := sess.Save(""); err != nil {
			l.Error("save failed", slog.Any("err", err))
			dialog.ShowError(err, w)
			return
		}
		refresh()
	}

	newItem := fyne.NewMenuItem("New Template", func() {
		confirmDiscard(func() {
			s, err := NewSession("", cfg)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			bind(s)
		})
	})
	openItem := fyne.NewMenuItem("Open…", func() {
		confirmDiscard(func() {
			fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
				if err != nil || ur == nil {
					return
				}
				p := ur.URI().Path()
				_ = ur.Close()
				s, err := NewSession(p, cfg)
				if err != nil {
					l.Error("open failed", slog.String("path", p), slog.Any("err", err))
					dialog.ShowError(err, w)
					return
				}
				bind(s)
			}, w)
			fd.Show()
		})
	})
	saveItem := fyne.NewMenuItem("Save", save)
	saveAsItem := fyne.NewMenuItem("Save As…", saveAs)
	exportItem := fyne.NewMenuItem("Export…", func() {
		fd := dialog.NewFileSave(func(uc fyne.URIWriteCloser, err error) {
			if err != nil || uc == nil {
				return
			}
			p := uc.URI().Path()
			_ = uc.Close()
			if err := sess.Export(p); err != nil {
				_ = os.Remove(p)
				dialog.ShowError(err, w)
				return
			}
			status.SetText("Exported " + filepath.Base(p))
		}, w)
		fd.SetFileName(strings.TrimSuffix(defaultFileName(sess), ".json") + ".pdf")
		fd.Show()
	})
	importItem := fyne.NewMenuItem("Import…", func() {
		confirmDiscard(func() {
			fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
				if err != nil || ur == nil {
					return
				}
				p := ur.URI().Path()
				_ = ur.Close()
				res, err := sess.ImportFile(p)
				if err == nil {
					err = res.Err()
				}
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				if len(res.Warnings) > 0 {
					dialog.ShowInformation("Imported with warnings", strings.Join(res.Warnings, "\n"), w)
				}
				sheet.changed(true)
			}, w)
			fd.Show()
		})
	})
	infoItem := fyne.NewMenuItem("Template Info…", func() {
		t := sess.Store.Template()
		name := widget.NewEntry()
		name.SetText(t.Name)
		desc := widget.NewMultiLineEntry()
		desc.SetText(t.Description)
		dialog.ShowForm("Template Info", "Apply", "Cancel", []*widget.FormItem{
			widget.NewFormItem("Name", name),
			widget.NewFormItem("Description", desc),
		}, func(ok bool) {
			if !ok {
				return
			}
			if err := sess.SetInfo(name.Text, desc.Text); err != nil {
				dialog.ShowError(err, w)
				return
			}
			refresh()
		}, w)
	})
	backgroundItem := fyne.NewMenuItem("Set Background…", func() {
		fd := dialog.NewFileOpen(func(ur fyne.URIReadCloser, err error) {
			if err != nil || ur == nil {
				return
			}
			p := ur.URI().Path()
			_ = ur.Close()
			if err := sess.SetBackground(p); err != nil {
				dialog.ShowError(err, w)
				return
			}
			sheet.changed(true)
			sheet.Fit()
		}, w)
		fd.Show()
	})
	noBackgroundItem := fyne.NewMenuItem("Remove Background", func() { sheet.changed(sess.RemoveBackground()) })
	newItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyN, Modifier: fyne.KeyModifierControl}
	openItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyO, Modifier: fyne.KeyModifierControl}
	saveItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyS, Modifier: fyne.KeyModifierControl}
	exportItem.Shortcut = &desktop.CustomShortcut{KeyName: fyne.KeyE, Modifier: fyne.KeyModifierControl}

	recentMenu := fyne.NewMenuItem("Open Recent", nil)
	for _, p := range loadRecentTemplates(prefs) {
		p := p
		recentMenu.ChildMenu = appendMenu(recentMenu.ChildMenu, fyne.NewMenuItem(p, func() {
			confirmDiscard(func() {
				s, err := NewSession(p, cfg)
				if err != nil {
					dialog.ShowError(err, w)
					return
				}
				bind(s)
			})
		}))
	}

	editMenu := fyne.NewMenu("Edit",
		fyne.NewMenuItem("Undo", func() { sheet.Command("z", false) }),
		fyne.NewMenuItem("Redo", func() { sheet.Command("z", true) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Duplicate", func() { sheet.Command("d", false) }),
		fyne.NewMenuItem("Select All", func() { sheet.Command("a", false) }),
		fyne.NewMenuItem("Delete", func() { sheet.changed(sess.Ctrl.Handle(canvas.KeyDown{Key: canvas.KeyDelete})) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Copy Template JSON", func() {
			b, err := sess.TemplateText(schema.FormatJSON)
			if err != nil {
				dialog.ShowError(err, w)
				return
			}
			w.Clipboard().SetContent(string(b))
			status.SetText("Template JSON copied")
		}),
		fyne.NewMenuItem("Clear Undo History", func() {
			dialog.ShowConfirm("Clear history", "Forget every undo step?", func(ok bool) {
				if ok {
					sess.ClearHistory()
					refresh()
				}
			}, w)
		}),
	)
	arrangeMenu := fyne.NewMenu("Arrange",
		fyne.NewMenuItem("Align Left", func() { sheet.changed(sess.Align(store.AlignLeft)) }),
		fyne.NewMenuItem("Align Right", func() { sheet.changed(sess.Align(store.AlignRight)) }),
		fyne.NewMenuItem("Align Top", func() { sheet.changed(sess.Align(store.AlignTop)) }),
		fyne.NewMenuItem("Align Bottom", func() { sheet.changed(sess.Align(store.AlignBottom)) }),
		fyne.NewMenuItem("Center Horizontally", func() { sheet.changed(sess.Align(store.AlignCenterHorizontal)) }),
		fyne.NewMenuItem("Center Vertically", func() { sheet.changed(sess.Align(store.AlignCenterVertical)) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Distribute Horizontally", func() { sheet.changed(sess.Distribute(store.AxisHorizontal)) }),
		fyne.NewMenuItem("Distribute Vertically", func() { sheet.changed(sess.Distribute(store.AxisVertical)) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Bring Forward", func() { sheet.changed(sess.Raise(1) > 0) }),
		fyne.NewMenuItem("Send Backward", func() { sheet.changed(sess.Raise(-1) > 0) }),
		fyne.NewMenuItem("Bring to Front", func() { sheet.changed(sess.BringToFront() > 0) }),
		fyne.NewMenuItem("Send to Back", func() { sheet.changed(sess.SendToBack() > 0) }),
		fyne.NewMenuItemSeparator(),
		fyne.NewMenuItem("Fit Size to Grid", func() { sheet.changed(sess.FitSizeToGrid()) }),
	)
	viewMenu := fyne.NewMenu("View",
		fyne.NewMenuItem("Fit to Window", sheet.Fit),
		fyne.NewMenuItem("Toggle Grid", func() {
			c := sess.Store.Template().Canvas
			c.ShowGrid = !c.ShowGrid
			sheet.changed(sess.Store.UpdateCanvas(c))
		}),
		fyne.NewMenuItem("Toggle Snap", func() {
			c := sess.Store.Template().Canvas
			c.SnapToGrid = !c.SnapToGrid
			sheet.changed(sess.Store.UpdateCanvas(c))
		}),
	)
	w.SetMainMenu(fyne.NewMainMenu(
		fyne.NewMenu("File", newItem, openItem, recentMenu, importItem, fyne.NewMenuItemSeparator(),
			saveItem, saveAsItem, exportItem, fyne.NewMenuItemSeparator(),
			infoItem, backgroundItem, noBackgroundItem),
		editMenu,
		arrangeMenu,
		viewMenu,
	))

	// Ctrl/Cmd shortcuts reach the canvas through the window; the focused
	// widget only sees unmodified keys.
	for _, key := range []fyne.KeyName{fyne.KeyZ, fyne.KeyY, fyne.KeyA, fyne.KeyD} {
		k := strings.ToLower(string(key))
		for _, mod := range []fyne.KeyModifier{fyne.KeyModifierControl, fyne.KeyModifierSuper} {
			w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: mod}, func(fyne.Shortcut) { sheet.Command(k, false) })
			w.Canvas().AddShortcut(&desktop.CustomShortcut{KeyName: key, Modifier: mod | fyne.KeyModifierShift}, func(fyne.Shortcut) { sheet.Command(k, true) })
		}
	}

	toolbar := container.NewHBox(toolGroup)
	split := container.NewHSplit(sheet, props.object())
	split.Offset = 0.78
	w.SetContent(container.NewBorder(toolbar, status, nil, nil, split))

	stop := make(chan struct{})
	go func() {
		t := time.NewTicker(autosaveInterval)
		defer t.Stop()
		for {
			select {
			case <-stop:
				return
			case <-t.C:
				fyne.Do(func() {
					if p, err := sess.Autosave(); err != nil {
						l.Warn("autosave failed", slog.Any("err", err))
					} else if p != "" {
						l.Debug("autosaved", slog.String("path", p))
					}
				})
			}
		}
	}()

	w.SetCloseIntercept(func() {
		confirmDiscard(func() {
			sz := w.Canvas().Size()
			prefs.SetInt("window.width", int(sz.Width))
			prefs.SetInt("window.height", int(sz.Height))
			close(stop)
			w.Close()
		})
	})

	if sess.Path != "" {
		addRecentTemplate(prefs, sess.Path)
	}
	refresh()
	w.ShowAndRun()
	sess.Close()
	return nil
}

func appendMenu(m *fyne.Menu, it *fyne.MenuItem) *fyne.Menu {
	if m == nil {
		return fyne.NewMenu("", it)
	}
	m.Items = append(m.Items, it)
	return m
}

func toolLabel(t canvas.ToolMode) string {
	s := string(t)
	return strings.ToUpper(s[:1]) + s[1:]
}

func toolLabels() []string {
	out := make([]string, 0, len(canvas.Tools))
	for _, t := range canvas.Tools {
		out = append(out, toolLabel(t))
	}
	return out
}

func defaultFileName(s *Session) string {
	if s.Path != "" {
		return filepath.Base(s.Path)
	}
	return fmt.Sprintf("%s.json", s.Store.Template().ID)
}

// Recent template persistence helpers
const recentPrefsKey = "recent.templates"
const recentMax = 10

func loadRecentTemplates(p fyne.Preferences) []string {
	raw := p.StringWithFallback(recentPrefsKey, "")
	var items []string
	if strings.TrimSpace(raw) != "" {
		var tmp []string
		if err := json.Unmarshal([]byte(raw), &tmp); err == nil {
			items = tmp
		}
	}
	// Filter out non-existing paths
	out := make([]string, 0, len(items))
	for _, s := range items {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if _, err := os.Stat(s); err == nil {
			out = append(out, s)
		}
	}
	return out
}

func saveRecentTemplates(p fyne.Preferences, items []string) {
	if len(items) > recentMax {
		items = items[:recentMax]
	}
	b, _ := json.Marshal(items)
	p.SetString(recentPrefsKey, string(b))
}

func addRecentTemplate(p fyne.Preferences, path string) {
	if strings.TrimSpace(path) == "" {
		return
	}
	abs, _ := filepath.Abs(path)
	rec := loadRecentTemplates(p)
	out := make([]string, 0, 1+len(rec))
	out = append(out, abs)
	for _, s := range rec {
		// de-dup (case-insensitive on Windows)
		if strings.EqualFold(s, abs) {
			continue
		}
		out = append(out, s)
	}
	saveRecentTemplates(p, out)
}
