/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"sheetdesigner/internal/domain"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/storage"
	"sheetdesigner/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Source provides the template being edited when a panic hits.
// *store.Store satisfies it.
type Source interface {
	Template() domain.TemplateData
}

// Session describes what to save on a crash. A nil Session, or one with a
// nil Source, only writes the report.
type Session struct {
	Source Source
	// Dir receives the crash report and the autosave. Empty means the OS temp dir.
	Dir string
}

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file, and attempts a crash-safe autosave
// of the template being edited.
//
// Usage: defer crash.Recover(sess)
func Recover(sess *Session) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		var tpl *domain.TemplateData
		if sess != nil && sess.Source != nil {
			if t, ok := snapshot(sess.Source); ok {
				tpl = &t
			} else {
				l.Error("template snapshot failed")
			}
		}

		reportPath, _ := writeReport(sess, tpl, r, stack)
		if tpl != nil {
			if path, err := storage.WriteAutosave(autosaveDir(sess), *tpl); err != nil {
				l.Error("crash autosave failed", slog.Any("err", err))
			} else {
				l.Info("crash autosave written", slog.String("path", path))
				_, _ = fmt.Fprintf(os.Stderr, "Unsaved work was written to: %s\n", path)
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

// snapshot reads the template, tolerating a Source that panics itself.
func snapshot(src Source) (t domain.TemplateData, ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return src.Template(), true
}

func reportDir(sess *Session) string {
	if sess != nil && sess.Dir != "" {
		_ = os.MkdirAll(sess.Dir, 0o755)
		return sess.Dir
	}
	return os.TempDir()
}

func autosaveDir(sess *Session) string {
	return filepath.Join(reportDir(sess), storage.AutosaveDirName)
}

func writeReport(sess *Session, tpl *domain.TemplateData, panicVal any, stack []byte) (string, error) {
	stamp := time.Now().Format("20060102-150405")
	path := filepath.Join(reportDir(sess), fmt.Sprintf("crash-%s.log", stamp))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Sheet Designer Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if tpl != nil {
		_, _ = fmt.Fprintf(&buf, "Template: %s (%s)\n", tpl.Name, tpl.ID)
		_, _ = fmt.Fprintf(&buf, "Regions: %d\n", len(tpl.Regions))
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
