/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"time"

	"sheetdesigner/internal/config"
	"sheetdesigner/internal/crash"
	"sheetdesigner/internal/domain"
	"sheetdesigner/internal/export"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/schema"
	"sheetdesigner/internal/storage"
	"sheetdesigner/internal/store"
	"sheetdesigner/internal/ui"
	"sheetdesigner/internal/version"
)

func usage(w io.Writer) {
	_, _ = fmt.Fprintln(w, "Sheet Designer - answer-sheet template tool")
	_, _ = fmt.Fprintf(w, "Version: %s\n", version.String())
	_, _ = fmt.Fprintln(w)
	_, _ = fmt.Fprintln(w, "Usage:")
	_, _ = fmt.Fprintln(w, "  sheetdesigner version|-v|--version                 Show version")
	_, _ = fmt.Fprintln(w, "  sheetdesigner new <file> <name>                    Create an empty template file")
	_, _ = fmt.Fprintln(w, "  sheetdesigner info <file>                          Print a template summary")
	_, _ = fmt.Fprintln(w, "  sheetdesigner validate [--watch] <file>            Validate a template (re-run on change with --watch)")
	_, _ = fmt.Fprintln(w, "  sheetdesigner export <file> <out.(json|yaml|png|svg|pdf|zip)>")
	_, _ = fmt.Fprintln(w, "  sheetdesigner export --preset web|print <file> <dir>")
	_, _ = fmt.Fprintln(w, "  sheetdesigner import <file>                        Copy a template into the library")
	_, _ = fmt.Fprintln(w, "  sheetdesigner list [--has <type>] [query]          Search the template library")
	_, _ = fmt.Fprintln(w, "  sheetdesigner ui [<file>]                          Launch desktop UI (build with -tags fyne for full UI)")
}

// exitError carries the process exit code for a failed command.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string { return e.err.Error() }
func (e *exitError) Unwrap() error { return e.err }

func usageErr(format string, args ...any) error {
	return &exitError{code: 2, err: fmt.Errorf(format, args...)}
}

// app holds what the commands share.
type app struct {
	cfg config.AppConfig
	out io.Writer
	log *slog.Logger
	// crash is updated by commands that hold a template so a panic autosaves it.
	crash *crash.Session
}

func main() {
	cfg, cerr := config.Load()
	applog.Init(cfg.Logging.LogOptions())
	l := applog.WithComponent("cli")
	if cerr != nil {
		l.Warn("config load failed; using defaults", slog.Any("err", cerr))
	}
	a := &app{cfg: cfg, out: os.Stdout, log: l, crash: &crash.Session{Dir: cfg.Library.Dir}}
	defer crash.Recover(a.crash)

	l.Debug("start", slog.Int("args", len(os.Args)))
	if err := a.run(os.Args[1:]); err != nil {
		code := 1
		var ee *exitError
		if errors.As(err, &ee) {
			code = ee.code
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		if code == 2 {
			usage(os.Stderr)
		}
		os.Exit(code)
	}
}

func (a *app) run(args []string) error {
	if len(args) == 0 {
		usage(a.out)
		return nil
	}
	cmd, rest := args[0], args[1:]
	switch cmd {
	case "version", "--version", "-v":
		_, _ = fmt.Fprintln(a.out, "Sheet Designer")
		_, _ = fmt.Fprintln(a.out, version.String())
		return nil
	case "new":
		return a.cmdNew(rest)
	case "info":
		return a.cmdInfo(rest)
	case "validate":
		return a.cmdValidate(rest)
	case "export":
		return a.cmdExport(rest)
	case "import":
		return a.cmdImport(rest)
	case "list":
		return a.cmdList(rest)
	case "ui":
		var path string
		if len(rest) > 0 {
			path = rest[0]
		}
		return ui.Run(path)
	case "help", "-h", "--help":
		usage(a.out)
		return nil
	}
	return usageErr("unknown command %q", cmd)
}

func (a *app) cmdNew(args []string) error {
	if len(args) < 2 {
		return usageErr("new requires <file> and <name>")
	}
	path, name := args[0], strings.TrimSpace(args[1])
	if name == "" {
		return schema.ErrEmptyName
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	}
	st := store.New(a.cfg.Editor.StoreOptions())
	t := st.Template()
	t.Name = name
	t.Canvas = a.cfg.CanvasSettings()
	if err := storage.WriteTemplate(path, t); err != nil {
		a.log.Error("create failed", slog.String("path", path), slog.Any("err", err))
		return err
	}
	a.log.Info("template created", slog.String("path", path), slog.String("id", t.ID))
	_, _ = fmt.Fprintf(a.out, "Created template %q (%s) at %s\n", name, t.ID, path)
	return nil
}

func (a *app) load(path string) (domain.TemplateData, error) {
	ld, err := storage.ReadTemplate(path)
	if err != nil {
		return domain.TemplateData{}, err
	}
	if ld.FromBackup {
		_, _ = fmt.Fprintf(a.out, "Warning: %s could not be read (%s); using backup %s\n", path, ld.Result.Error, ld.BackupPath)
	}
	t := ld.Template
	a.crash.Source = staticSource(t)
	return t, nil
}

type staticSource domain.TemplateData

func (s staticSource) Template() domain.TemplateData { return domain.TemplateData(s) }

func (a *app) cmdInfo(args []string) error {
	if len(args) < 1 {
		return usageErr("info requires <file>")
	}
	t, err := a.load(args[0])
	if err != nil {
		return err
	}
	w := a.out
	_, _ = fmt.Fprintf(w, "Template: %s\n", t.Name)
	_, _ = fmt.Fprintf(w, "ID: %s\n", t.ID)
	_, _ = fmt.Fprintf(w, "Schema: %s  Version: %s\n", t.SchemaVersion, t.Version)
	_, _ = fmt.Fprintf(w, "Canvas: %gx%g @ %d dpi\n", t.Canvas.Width, t.Canvas.Height, t.Canvas.DPI)
	counts := map[domain.RegionType]int{}
	questions, score := 0, 0.0
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
	_, _ = fmt.Fprintf(w, "Regions: %d\n", len(t.Regions))
	for _, rt := range domain.RegionTypes {
		if counts[rt] > 0 {
			_, _ = fmt.Fprintf(w, "  %-10s %d\n", rt, counts[rt])
		}
	}
	_, _ = fmt.Fprintf(w, "Questions: %d  Max score: %g\n", questions, score)
	printResult(w, schema.Validate(t))
	return nil
}

func printResult(w io.Writer, res schema.Result) {
	if res.Success {
		_, _ = fmt.Fprintln(w, "Valid: yes")
	} else {
		_, _ = fmt.Fprintf(w, "Valid: no (%s: %s)\n", res.Code, res.Error)
	}
	for _, warn := range res.Warnings {
		_, _ = fmt.Fprintf(w, "  warning: %s\n", warn)
	}
}

// validateFile parses and validates path without falling back to backups.
func validateFile(path string) schema.Result {
	data, err := os.ReadFile(path)
	if err != nil {
		return schema.Fail(schema.CodeMalformedText, "read %s: %v", filepath.Base(path), err)
	}
	t, res := schema.Parse(data)
	if !res.Success {
		return res
	}
	return schema.Validate(t)
}

func (a *app) cmdValidate(args []string) error {
	watch := false
	var path string
	for _, arg := range args {
		switch arg {
		case "--watch", "-w":
			watch = true
		default:
			path = arg
		}
	}
	if path == "" {
		return usageErr("validate requires <file>")
	}
	res := validateFile(path)
	printResult(a.out, res)
	if !watch {
		if !res.Success {
			return res.Err()
		}
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	_, _ = fmt.Fprintf(a.out, "Watching %s (Ctrl+C to stop)\n", path)
	return storage.Watch(ctx, path, storage.DefaultWatchDebounce, func(_ storage.Loaded, _ error) {
		_, _ = fmt.Fprintf(a.out, "[%s] ", time.Now().Format("15:04:05"))
		printResult(a.out, validateFile(path))
	})
}

func (a *app) cmdExport(args []string) error {
	var preset string
	var pos []string
	for i := 0; i < len(args); i++ {
		switch {
		case args[i] == "--preset":
			if i+1 >= len(args) {
				return usageErr("--preset requires a value")
			}
			preset = args[i+1]
			i++
		case strings.HasPrefix(args[i], "--preset="):
			preset = strings.TrimPrefix(args[i], "--preset=")
		default:
			pos = append(pos, args[i])
		}
	}
	if len(pos) < 2 {
		return usageErr("export requires <file> and <out>")
	}
	t, err := a.load(pos[0])
	if err != nil {
		return err
	}
	if preset != "" {
		p, err := export.ParsePreset(preset)
		if err != nil {
			return usageErr("%v", err)
		}
		written, err := export.Batch(t, export.BatchOptions{Preset: p, OutDir: pos[1]})
		for _, f := range written {
			_, _ = fmt.Fprintln(a.out, "Wrote", f)
		}
		return err
	}
	if err := export.WriteFile(pos[1], t, export.Options{}); err != nil {
		a.log.Error("export failed", slog.String("out", pos[1]), slog.Any("err", err))
		return err
	}
	_, _ = fmt.Fprintln(a.out, "Wrote", pos[1])
	return nil
}

func (a *app) openLibrary(ctx context.Context) (*storage.Library, error) {
	return storage.OpenLibrary(ctx, a.cfg.Library.Dir, a.cfg.Library.LibraryOptions())
}

func (a *app) cmdImport(args []string) error {
	if len(args) < 1 {
		return usageErr("import requires <file>")
	}
	ctx := context.Background()
	lib, err := a.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()
	t, err := lib.Import(ctx, args[0])
	if err != nil {
		return err
	}
	_, _ = fmt.Fprintf(a.out, "Imported %q as %s\n", t.Name, lib.PathFor(t.ID))
	return nil
}

func (a *app) cmdList(args []string) error {
	var q storage.Query
	var terms []string
	for i := 0; i < len(args); i++ {
		if args[i] == "--has" {
			if i+1 >= len(args) {
				return usageErr("--has requires a region type")
			}
			q.Has = append(q.Has, domain.RegionType(args[i+1]))
			i++
			continue
		}
		terms = append(terms, args[i])
	}
	q.Text = strings.Join(terms, " ")
	ctx := context.Background()
	lib, err := a.openLibrary(ctx)
	if err != nil {
		return err
	}
	defer lib.Close()
	entries, err := lib.Catalog.List(ctx, q)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		_, _ = fmt.Fprintln(a.out, "No templates found.")
		return nil
	}
	for _, e := range entries {
		types := make([]string, 0, len(e.Counts))
		for rt, n := range e.Counts {
			if n > 0 {
				types = append(types, fmt.Sprintf("%s:%d", rt, n))
			}
		}
		sort.Strings(types)
		_, _ = fmt.Fprintf(a.out, "%s  %-30s  %-28s  %s\n", e.UpdatedAt.Format("2006-01-02 15:04"), e.Name, strings.Join(types, " "), e.ID)
		if e.Snippet != "" {
			_, _ = fmt.Fprintf(a.out, "    %s\n", e.Snippet)
		}
	}
	return nil
}
