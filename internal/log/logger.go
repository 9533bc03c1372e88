/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package log is the designer's slog setup. Records go to a console handler
// (a compact one-line format or JSON) and optionally to a rotating JSON file.
// Every handler is wrapped so records logged with a context carrying a
// template id or operation pick those up as attributes.
package log

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strconv"
	"strings"
	"sync"
	"time"

	"sheetdesigner/internal/version"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Options controls logger initialization. FromEnv fills it from
//   - SHD_LOG_LEVEL=debug|info|warn|error
//   - SHD_LOG_FORMAT=console|json
//   - SHD_LOG_FILE=<path> (rotated JSON file in addition to the console)
//   - SHD_LOG_SOURCE=true|false
type Options struct {
	Level     string
	Format    string // "console" or "json"
	AddSource bool
	File      string
	Output    io.Writer // console destination; nil means os.Stderr
}

var (
	mu      sync.RWMutex
	current *slog.Logger
)

// L returns the application logger, initializing it from the environment on
// first use.
func L() *slog.Logger {
	mu.RLock()
	l := current
	mu.RUnlock()
	if l != nil {
		return l
	}
	return Init(FromEnv())
}

// Init builds the application logger, installs it as slog.Default and
// returns it.
func Init(opts Options) *slog.Logger {
	lvl := parseLevel(opts.Level)
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: lvl, AddSource: opts.AddSource}

	var console slog.Handler
	if strings.EqualFold(strings.TrimSpace(opts.Format), "json") {
		console = slog.NewJSONHandler(out, hopts)
	} else {
		console = &prettyTextHandler{opts: prettyOpts{Level: lvl, AddSource: opts.AddSource}, w: out, mu: &sync.Mutex{}}
	}
	hs := fanout{contextual{console}}
	if f := strings.TrimSpace(opts.File); f != "" {
		w := &lj.Logger{Filename: f, MaxSize: 10, MaxBackups: 3, MaxAge: 28, Compress: true}
		hs = append(hs, contextual{slog.NewJSONHandler(w, hopts)})
	}

	var h slog.Handler = hs
	if len(hs) == 1 {
		h = hs[0]
	}
	logger := slog.New(h).With(
		slog.String("app", "sheetdesigner"),
		slog.String("ver", version.Version),
	)

	mu.Lock()
	current = logger
	mu.Unlock()
	slog.SetDefault(logger)
	return logger
}

// FromEnv builds Options from SHD_LOG_* variables.
func FromEnv() Options {
	return Options{
		Level:     getenv("SHD_LOG_LEVEL", "info"),
		Format:    getenv("SHD_LOG_FORMAT", "console"),
		AddSource: strings.EqualFold(getenv("SHD_LOG_SOURCE", "false"), "true"),
		File:      os.Getenv("SHD_LOG_FILE"),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// WithComponent returns a logger with the component attribute pre-set.
func WithComponent(name string) *slog.Logger { return L().With(slog.String("component", name)) }

// WithOperation annotates the logger with an operation name.
func WithOperation(l *slog.Logger, op string) *slog.Logger { return l.With(slog.String("op", op)) }

// WithTemplate annotates the logger with the template being edited.
func WithTemplate(l *slog.Logger, id, name string) *slog.Logger {
	return l.With(slog.Group("template", slog.String("id", id), slog.String("name", name)))
}

// Nop returns a logger that drops every record.
func Nop() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey int

const (
	templateKey ctxKey = iota
	operationKey
)

// ContextWithTemplate tags ctx so records logged with it carry template_id.
func ContextWithTemplate(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, templateKey, id)
}

// ContextWithOperation tags ctx so records logged with it carry op.
func ContextWithOperation(ctx context.Context, op string) context.Context {
	return context.WithValue(ctx, operationKey, op)
}

// TemplateFromContext returns the template id set by ContextWithTemplate.
func TemplateFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	id, ok := ctx.Value(templateKey).(string)
	return id, ok && id != ""
}

// contextual copies the context tags onto each record.
type contextual struct{ next slog.Handler }

func (c contextual) Enabled(ctx context.Context, l slog.Level) bool { return c.next.Enabled(ctx, l) }

func (c contextual) Handle(ctx context.Context, r slog.Record) error {
	if id, ok := TemplateFromContext(ctx); ok {
		r.AddAttrs(slog.String("template_id", id))
	}
	if ctx != nil {
		if op, ok := ctx.Value(operationKey).(string); ok && op != "" {
			r.AddAttrs(slog.String("op", op))
		}
	}
	return c.next.Handle(ctx, r)
}

func (c contextual) WithAttrs(a []slog.Attr) slog.Handler { return contextual{c.next.WithAttrs(a)} }
func (c contextual) WithGroup(n string) slog.Handler      { return contextual{c.next.WithGroup(n)} }

// fanout sends each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, l slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, l) {
			return true
		}
	}
	return false
}

func (f fanout) Handle(ctx context.Context, r slog.Record) error {
	var errs []error
	for _, h := range f {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (f fanout) WithAttrs(a []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(a)
	}
	return out
}

func (f fanout) WithGroup(n string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(n)
	}
	return out
}

// prettyTextHandler writes one line per record:
//
//	15:04:05.000 INF [store] message key=value group.key=value
//
// The component attribute becomes the bracketed tag; groups flatten into
// dotted keys.
type prettyTextHandler struct {
	opts      prettyOpts
	w         io.Writer
	mu        *sync.Mutex
	component string
	attrs     []string // preformatted key=value pairs
	prefix    string   // open groups, dot terminated
}

type prettyOpts struct {
	Level     slog.Leveler
	AddSource bool
}

func (h *prettyTextHandler) Enabled(_ context.Context, level slog.Level) bool {
	floor := slog.LevelInfo
	if h.opts.Level != nil {
		floor = h.opts.Level.Level()
	}
	return level >= floor
}

func (h *prettyTextHandler) Handle(_ context.Context, r slog.Record) error {
	ts := r.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	var b strings.Builder
	b.WriteString(ts.Format("15:04:05.000"))
	b.WriteByte(' ')
	b.WriteString(levelString(r.Level))
	comp := h.component
	var pairs []string
	r.Attrs(func(a slog.Attr) bool {
		if h.prefix == "" && a.Key == "component" && comp == "" {
			comp = a.Value.String()
			return true
		}
		pairs = appendAttr(pairs, h.prefix, a)
		return true
	})
	if comp != "" {
		b.WriteString(" [")
		b.WriteString(comp)
		b.WriteByte(']')
	}
	if r.Message != "" {
		b.WriteByte(' ')
		b.WriteString(r.Message)
	}
	for _, p := range append(append([]string(nil), h.attrs...), pairs...) {
		b.WriteByte(' ')
		b.WriteString(p)
	}
	if h.opts.AddSource && r.PC != 0 {
		f, _ := runtime.CallersFrames([]uintptr{r.PC}).Next()
		b.WriteString(" src=")
		b.WriteString(f.File)
		b.WriteByte(':')
		b.WriteString(strconv.Itoa(f.Line))
	}
	b.WriteByte('\n')

	if h.mu != nil {
		h.mu.Lock()
		defer h.mu.Unlock()
	}
	_, err := io.WriteString(h.w, b.String())
	return err
}

func (h *prettyTextHandler) clone() *prettyTextHandler {
	c := *h
	c.attrs = append([]string(nil), h.attrs...)
	return &c
}

func (h *prettyTextHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	c := h.clone()
	for _, a := range attrs {
		if c.prefix == "" && a.Key == "component" {
			c.component = a.Value.String()
			continue
		}
		c.attrs = appendAttr(c.attrs, c.prefix, a)
	}
	return c
}

func (h *prettyTextHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	c := h.clone()
	c.prefix += name + "."
	return c
}

func appendAttr(dst []string, prefix string, a slog.Attr) []string {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return dst
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p += a.Key + "."
		}
		for _, g := range a.Value.Group() {
			dst = appendAttr(dst, p, g)
		}
		return dst
	}
	return append(dst, prefix+a.Key+"="+attrValueString(a.Value))
}

func levelString(l slog.Level) string {
	switch {
	case l < slog.LevelInfo:
		return "DBG"
	case l < slog.LevelWarn:
		return "INF"
	case l < slog.LevelError:
		return "WRN"
	default:
		return "ERR"
	}
}

func attrValueString(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		s := v.String()
		if s == "" || strings.ContainsAny(s, " \t\"=") {
			return strconv.Quote(s)
		}
		return s
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return v.String()
	}
}
