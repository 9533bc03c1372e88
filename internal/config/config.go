/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"sheetdesigner/internal/canvas"
	"sheetdesigner/internal/domain"
	applog "sheetdesigner/internal/log"
	"sheetdesigner/internal/storage"
	"sheetdesigner/internal/store"
	"sheetdesigner/internal/vector"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.
// Fields missing from the file keep their defaults.

type EditorConfig struct {
	HistoryMaxItems int     `yaml:"history_max_items"`
	MinDrawSize     float64 `yaml:"min_draw_size"`
	DefaultGridSize float64 `yaml:"default_grid_size"`
	SnapToGrid      bool    `yaml:"snap_to_grid"`
	MinZoom         float64 `yaml:"min_zoom"`
	MaxZoom         float64 `yaml:"max_zoom"`
	MoveThrottleMs  int     `yaml:"move_throttle_ms"`
	DuplicateOffset float64 `yaml:"duplicate_offset"`
	SnapThreshold   float64 `yaml:"snap_threshold"`
}

type CanvasConfig struct {
	Width           float64 `yaml:"width"`
	Height          float64 `yaml:"height"`
	DPI             int     `yaml:"dpi"`
	BackgroundColor string  `yaml:"background_color"`
	ShowGrid        bool    `yaml:"show_grid"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type LibraryConfig struct {
	Dir            string `yaml:"dir"` // empty: next to the config file
	KeepBackups    int    `yaml:"keep_backups"`
	KeepRevisions  int    `yaml:"keep_revisions"`
	PreviewCacheMB int    `yaml:"preview_cache_mb"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	Editor        EditorConfig  `yaml:"editor"`
	Canvas        CanvasConfig  `yaml:"canvas"`
	Logging       LoggingConfig `yaml:"logging"`
	Library       LibraryConfig `yaml:"library"`
}

// Defaults returns the application defaults.
func Defaults() AppConfig {
	c := domain.DefaultCanvas()
	return AppConfig{
		ConfigVersion: 1,
		Editor: EditorConfig{
			HistoryMaxItems: 50,
			MinDrawSize:     10,
			DefaultGridSize: c.GridSize,
			SnapToGrid:      c.SnapToGrid,
			MinZoom:         0.1,
			MaxZoom:         5.0,
			MoveThrottleMs:  16,
			DuplicateOffset: 20,
			SnapThreshold:   6,
		},
		Canvas: CanvasConfig{
			Width:           c.Width,
			Height:          c.Height,
			DPI:             c.DPI,
			BackgroundColor: c.BackgroundColor,
			ShowGrid:        c.ShowGrid,
		},
		Logging: LoggingConfig{Level: "info", Format: "console", Source: false, File: ""},
		Library: LibraryConfig{KeepBackups: 10, KeepRevisions: 20, PreviewCacheMB: 64},
	}
}

// Env var names used as overrides.
const (
	EnvConfigFile = "SHD_CONFIG"
	EnvLibraryDir = "SHD_LIBRARY_DIR"
	EnvHistoryMax = "SHD_HISTORY_MAX"
	EnvGridSize   = "SHD_GRID_SIZE"
	EnvSnapToGrid = "SHD_SNAP_TO_GRID"
	// EnvLogLevel Logging envs
	EnvLogLevel  = "SHD_LOG_LEVEL"
	EnvLogFormat = "SHD_LOG_FORMAT"
	EnvLogSource = "SHD_LOG_SOURCE"
	EnvLogFile   = "SHD_LOG_FILE"
)

// ConfigDir returns the per-user configuration directory.
func ConfigDir() (string, error) {
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" { // fallback
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "SheetDesigner")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "SheetDesigner")
	default: // linux and others
		if x := os.Getenv("XDG_CONFIG_HOME"); x != "" {
			base = filepath.Join(x, "sheetdesigner")
		} else if h := os.Getenv("HOME"); h != "" {
			base = filepath.Join(h, ".config", "sheetdesigner")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return base, nil
}

// ConfigPath returns the config file path. SHD_CONFIG wins over the per-user location.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigFile)); p != "" {
		return p, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults, and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFile(path)
}

// LoadFile is Load for an explicit path. A missing file yields the defaults;
// a file that does not parse is an error and the defaults are returned with it.
func LoadFile(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read config: %w", err)
	default:
		fileCfg := Defaults()
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		cfg = fileCfg
		normalize(&cfg)
	}
	applyEnvOverrides(&cfg)
	if cfg.Library.Dir == "" {
		cfg.Library.Dir = filepath.Join(filepath.Dir(path), "library")
	}
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveFile(path, cfg)
}

// SaveFile writes cfg to path.
func SaveFile(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// normalize repairs values a hand-edited file may get wrong.
func normalize(cfg *AppConfig) {
	d := Defaults()
	cfg.Logging.Level = strings.ToLower(strings.TrimSpace(cfg.Logging.Level))
	cfg.Logging.Format = strings.ToLower(strings.TrimSpace(cfg.Logging.Format))
	cfg.Logging.File = strings.TrimSpace(cfg.Logging.File)
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = d.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = d.Logging.Format
	}
	if cfg.Editor.HistoryMaxItems <= 0 {
		cfg.Editor.HistoryMaxItems = d.Editor.HistoryMaxItems
	}
	if cfg.Editor.DefaultGridSize <= 0 {
		cfg.Editor.DefaultGridSize = d.Editor.DefaultGridSize
	}
	if cfg.Editor.MinZoom <= 0 || cfg.Editor.MaxZoom < cfg.Editor.MinZoom {
		cfg.Editor.MinZoom, cfg.Editor.MaxZoom = d.Editor.MinZoom, d.Editor.MaxZoom
	}
	if cfg.Canvas.Width <= 0 || cfg.Canvas.Height <= 0 {
		cfg.Canvas.Width, cfg.Canvas.Height = d.Canvas.Width, d.Canvas.Height
	}
	if cfg.Canvas.DPI <= 0 {
		cfg.Canvas.DPI = d.Canvas.DPI
	}
}

func parseBool(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvLibraryDir)); v != "" {
		cfg.Library.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryMax)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.HistoryMaxItems = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvGridSize)); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 {
			cfg.Editor.DefaultGridSize = f
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvSnapToGrid)); v != "" {
		cfg.Editor.SnapToGrid = parseBool(v)
	}
	// logging overrides
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = parseBool(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env := map[string]string{
		"library.dir":              EnvLibraryDir,
		"editor.history_max_items": EnvHistoryMax,
		"editor.default_grid_size": EnvGridSize,
		"editor.snap_to_grid":      EnvSnapToGrid,
		"logging.level":            EnvLogLevel,
		"logging.format":           EnvLogFormat,
		"logging.source":           EnvLogSource,
		"logging.file":             EnvLogFile,
	}[key]
	if env != "" && os.Getenv(env) != "" {
		return env, true
	}
	return "", false
}

// StoreOptions feeds the template store.
func (e EditorConfig) StoreOptions() store.Options {
	return store.Options{
		MaxHistory:      e.HistoryMaxItems,
		DuplicateOffset: e.DuplicateOffset,
	}
}

// ControllerOptions feeds the canvas controller.
func (e EditorConfig) ControllerOptions() canvas.Options {
	return canvas.Options{
		MinDrawSize:  e.MinDrawSize,
		MinScale:     e.MinZoom,
		MaxScale:     e.MaxZoom,
		MoveThrottle: time.Duration(e.MoveThrottleMs) * time.Millisecond,
		Snap:         vector.SnapOptions{Threshold: e.SnapThreshold, SnapToEdges: true, SnapToCenters: true},
	}
}

// CanvasSettings is the canvas new templates start with.
func (c AppConfig) CanvasSettings() domain.CanvasSettings {
	return domain.CanvasSettings{
		Width:           c.Canvas.Width,
		Height:          c.Canvas.Height,
		DPI:             c.Canvas.DPI,
		BackgroundColor: c.Canvas.BackgroundColor,
		GridSize:        c.Editor.DefaultGridSize,
		SnapToGrid:      c.Editor.SnapToGrid,
		ShowGrid:        c.Canvas.ShowGrid,
	}
}

// LogOptions converts the logging section for applog.Init.
func (l LoggingConfig) LogOptions() applog.Options {
	return applog.Options{Level: l.Level, Format: l.Format, AddSource: l.Source, File: l.File}
}

// LibraryOptions converts the library section for storage.OpenLibrary.
func (l LibraryConfig) LibraryOptions() storage.LibraryOptions {
	return storage.LibraryOptions{
		KeepBackups:       l.KeepBackups,
		KeepRevisions:     l.KeepRevisions,
		PreviewCacheBytes: int64(l.PreviewCacheMB) << 20,
	}
}
