/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"
)

func TestFromEnvAndGetenv(t *testing.T) {
	t.Setenv("SHD_LOG_LEVEL", "warn")
	t.Setenv("SHD_LOG_FORMAT", "json")
	t.Setenv("SHD_LOG_SOURCE", "true")
	// SHD_LOG_FILE intentionally unset

	opts := FromEnv()
	if opts.Level != "warn" || opts.Format != "json" || !opts.AddSource || opts.File != "" {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}

	// Also verify getenv default fallback when var missing
	if err := os.Unsetenv("SOME_UNSET_VAR"); err != nil {
		t.Fatalf("Unsetenv error: %v", err)
	}
	if v := getenv("SOME_UNSET_VAR", "fallback"); v != "fallback" {
		t.Fatalf("getenv fallback failed: %q", v)
	}
}

func TestPrettyTextHandler_Behavior(t *testing.T) {
	// Capture output into a buffer
	var buf bytes.Buffer
	h := &prettyTextHandler{opts: prettyOpts{Level: slog.LevelWarn, AddSource: true}, w: &buf}

	// Enabled should filter below WARN
	if h.Enabled(nil, slog.LevelInfo) {
		t.Fatalf("info should not be enabled at warn level")
	}
	if !h.Enabled(nil, slog.LevelError) {
		t.Fatalf("error should be enabled at warn level")
	}

	// WithAttrs and WithGroup should accumulate
	h2 := h.WithAttrs([]slog.Attr{slog.String("k", "v")})
	h2 = h2.WithGroup("grp")

	// Build a record and handle it
	r := slog.Record{Time: time.Now(), Level: slog.LevelError, Message: "boom"}
	r.AddAttrs(slog.Int("n", 42), slog.Float64("pi", 3.14), slog.Bool("ok", true))
	if err := h2.Handle(nil, r); err != nil {
		t.Fatalf("handle error: %v", err)
	}

	out := buf.String()
	if !strings.Contains(out, "boom") || !strings.Contains(out, "k=v") {
		t.Fatalf("output missing expected content: %q", out)
	}
	// Grouped key should appear as prefix
	if !strings.Contains(out, "grp.n=42") {
		t.Fatalf("grouped attr missing or malformed: %q", out)
	}

	// Spot check level and value stringers
	if !strings.Contains(out, "ERR") { // levelString
		t.Fatalf("expected ERR level tag in output: %q", out)
	}
	if !strings.Contains(out, "pi=3.14") { // attrValueString float trim
		t.Fatalf("expected trimmed float: %q", out)
	}
}

func TestConsoleOutputAndNop(t *testing.T) {
	var buf bytes.Buffer
	Init(Options{Level: "info", Format: "console", Output: &buf})
	WithComponent("store").Debug("hidden")
	WithComponent("store").Info("visible", slog.Int("regions", 3))
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("debug record leaked at info level: %q", out)
	}
	if !strings.Contains(out, "visible") || !strings.Contains(out, "INF [store] visible") || !strings.Contains(out, "regions=3") {
		t.Fatalf("console output missing fields: %q", out)
	}
	if Nop().Enabled(nil, slog.LevelError) {
		t.Fatalf("Nop logger should be disabled")
	}
}

func TestConsoleContextTagsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	l := Init(Options{Level: "debug", Output: &buf})
	ctx := ContextWithOperation(ContextWithTemplate(context.Background(), "tpl-1"), "save")
	WithTemplate(l, "tpl-1", "Final exam").DebugContext(ctx, "saved", slog.Duration("took", 1500*time.Millisecond))
	out := buf.String()
	for _, want := range []string{
		"DBG saved",
		`template.name="Final exam"`,
		"template.id=tpl-1",
		"took=1.5s",
		"template_id=tpl-1",
		"op=save",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
	if id, ok := TemplateFromContext(ctx); !ok || id != "tpl-1" {
		t.Fatalf("TemplateFromContext = %q, %v", id, ok)
	}
	if _, ok := TemplateFromContext(context.Background()); ok {
		t.Fatalf("untagged context reported a template")
	}
}
