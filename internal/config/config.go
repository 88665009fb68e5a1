/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
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

	"gopkg.in/yaml.v3"

	"pagecraft/internal/idgen"
)

// AppConfig is the user-editable configuration persisted to a YAML file in the user scope.
// Environment variables are treated as read-only overrides at runtime.
//
// config_version: bump when the structure changes in a backward-incompatible way.

type GeneralConfig struct {
	Theme string `yaml:"theme"` // "system" | "light" | "dark"
}

type EditorConfig struct {
	HistoryLimit int    `yaml:"history_limit"`
	MaxHTMLChars int    `yaml:"max_html_chars"`
	MaxDepth     int    `yaml:"max_depth"`
	MaxNodes     int    `yaml:"max_nodes"`
	IDStrategy   string `yaml:"id_strategy"` // "uuid4" | "uuid7" | "nanoid"
	IDPrefix     string `yaml:"id_prefix"`
}

type StorageConfig struct {
	Backend string `yaml:"backend"` // "file" | "sqlite"
	Path    string `yaml:"path"`    // empty: next to the config file
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Source bool   `yaml:"source"`
	File   string `yaml:"file"`
}

type AppConfig struct {
	ConfigVersion int           `yaml:"config_version"`
	General       GeneralConfig `yaml:"general"`
	Editor        EditorConfig  `yaml:"editor"`
	Storage       StorageConfig `yaml:"storage"`
	Logging       LoggingConfig `yaml:"logging"`
}

const (
	BackendFile   = "file"
	BackendSQLite = "sqlite"
)

// Defaults returns the application defaults.
func Defaults() AppConfig {
	return AppConfig{
		ConfigVersion: 1,
		General:       GeneralConfig{Theme: "system"},
		Editor:        EditorConfig{HistoryLimit: 50, MaxHTMLChars: 200000, MaxDepth: 6, MaxNodes: 40, IDStrategy: idgen.StrategyUUID4},
		Storage:       StorageConfig{Backend: BackendFile},
		Logging:       LoggingConfig{Level: "info", Format: "console"},
	}
}

// Env var names used as overrides.
const (
	EnvConfigPath     = "PCR_CONFIG"
	EnvTheme          = "PCR_THEME"
	EnvHistoryLimit   = "PCR_HISTORY_LIMIT"
	EnvIDStrategy     = "PCR_ID_STRATEGY"
	EnvStorageBackend = "PCR_STORAGE_BACKEND"
	EnvStoragePath    = "PCR_STORAGE_PATH"
	EnvLogLevel       = "PCR_LOG_LEVEL"
	EnvLogFormat      = "PCR_LOG_FORMAT"
	EnvLogSource      = "PCR_LOG_SOURCE"
	EnvLogFile        = "PCR_LOG_FILE"
)

// ConfigPath returns the per-user config file path. PCR_CONFIG wins when set.
func ConfigPath() (string, error) {
	if p := strings.TrimSpace(os.Getenv(EnvConfigPath)); p != "" {
		return p, nil
	}
	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("AppData")
		if base == "" {
			base = filepath.Join(os.Getenv("USERPROFILE"), "AppData", "Roaming")
		}
		base = filepath.Join(base, "Pagecraft")
	case "darwin":
		base = filepath.Join(os.Getenv("HOME"), "Library", "Application Support", "Pagecraft")
	default:
		if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
			base = filepath.Join(xdg, "pagecraft")
		} else if home := os.Getenv("HOME"); home != "" {
			base = filepath.Join(home, ".config", "pagecraft")
		}
	}
	if base == "" {
		return "", errors.New("cannot resolve config directory")
	}
	return filepath.Join(base, "config.yaml"), nil
}

// Load reads the user config file (if present), applies defaults and merges environment overrides.
func Load() (AppConfig, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Defaults()
		applyEnvOverrides(&cfg)
		return cfg, err
	}
	return LoadFrom(path)
}

// LoadFrom is Load with an explicit file. A missing file is not an error.
func LoadFrom(path string) (AppConfig, error) {
	cfg := Defaults()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		var fileCfg AppConfig
		if err := yaml.Unmarshal(data, &fileCfg); err != nil {
			applyEnvOverrides(&cfg)
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
		mergeInto(&cfg, &fileCfg)
	case !errors.Is(err, os.ErrNotExist):
		applyEnvOverrides(&cfg)
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	applyEnvOverrides(&cfg)
	return cfg, nil
}

// Save writes the user config YAML.
func Save(cfg AppConfig) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(path, cfg)
}

func SaveTo(path string, cfg AppConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Validate reports settings that no component can honor.
func (c AppConfig) Validate() error {
	switch c.Storage.Backend {
	case BackendFile, BackendSQLite:
	default:
		return fmt.Errorf("storage.backend: unknown backend %q", c.Storage.Backend)
	}
	if c.Editor.HistoryLimit <= 0 {
		return fmt.Errorf("editor.history_limit must be positive, got %d", c.Editor.HistoryLimit)
	}
	if c.Editor.MaxDepth <= 0 || c.Editor.MaxNodes <= 0 || c.Editor.MaxHTMLChars <= 0 {
		return errors.New("editor: conversion limits must be positive")
	}
	if _, err := c.IDGenerator(); err != nil {
		return fmt.Errorf("editor.id_strategy: %w", err)
	}
	return nil
}

// IDGenerator builds the element id generator named by the editor section.
func (c AppConfig) IDGenerator() (idgen.Generator, error) {
	return idgen.FromStrategy(c.Editor.IDStrategy, c.Editor.IDPrefix)
}

// StatePath resolves where canvas state lives. An empty storage.path places
// it next to the config file, named after the backend.
func (c AppConfig) StatePath() (string, error) {
	if p := strings.TrimSpace(c.Storage.Path); p != "" {
		return p, nil
	}
	cfgPath, err := ConfigPath()
	if err != nil {
		return "", err
	}
	name := "state.json"
	if c.Storage.Backend == BackendSQLite {
		name = "state.db"
	}
	return filepath.Join(filepath.Dir(cfgPath), name), nil
}

func mergeInto(dst *AppConfig, src *AppConfig) {
	if src.ConfigVersion != 0 {
		dst.ConfigVersion = src.ConfigVersion
	}
	if src.General.Theme != "" {
		dst.General.Theme = src.General.Theme
	}
	if src.Editor.HistoryLimit > 0 {
		dst.Editor.HistoryLimit = src.Editor.HistoryLimit
	}
	if src.Editor.MaxHTMLChars > 0 {
		dst.Editor.MaxHTMLChars = src.Editor.MaxHTMLChars
	}
	if src.Editor.MaxDepth > 0 {
		dst.Editor.MaxDepth = src.Editor.MaxDepth
	}
	if src.Editor.MaxNodes > 0 {
		dst.Editor.MaxNodes = src.Editor.MaxNodes
	}
	if v := strings.ToLower(strings.TrimSpace(src.Editor.IDStrategy)); v != "" {
		dst.Editor.IDStrategy = v
	}
	if v := strings.TrimSpace(src.Editor.IDPrefix); v != "" {
		dst.Editor.IDPrefix = v
	}
	if v := strings.ToLower(strings.TrimSpace(src.Storage.Backend)); v != "" {
		dst.Storage.Backend = v
	}
	if v := strings.TrimSpace(src.Storage.Path); v != "" {
		dst.Storage.Path = v
	}
	if strings.TrimSpace(src.Logging.Level) != "" {
		dst.Logging.Level = strings.ToLower(strings.TrimSpace(src.Logging.Level))
	}
	if strings.TrimSpace(src.Logging.Format) != "" {
		dst.Logging.Format = strings.ToLower(strings.TrimSpace(src.Logging.Format))
	}
	dst.Logging.Source = src.Logging.Source
	if strings.TrimSpace(src.Logging.File) != "" {
		dst.Logging.File = strings.TrimSpace(src.Logging.File)
	}
}

func truthy(v string) bool {
	lv := strings.ToLower(v)
	return lv == "1" || lv == "true" || lv == "on" || lv == "yes"
}

func applyEnvOverrides(cfg *AppConfig) {
	if v := strings.TrimSpace(os.Getenv(EnvTheme)); v != "" {
		cfg.General.Theme = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvHistoryLimit)); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Editor.HistoryLimit = n
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvIDStrategy)); v != "" {
		cfg.Editor.IDStrategy = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStorageBackend)); v != "" {
		cfg.Storage.Backend = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvStoragePath)); v != "" {
		cfg.Storage.Path = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = strings.ToLower(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogSource)); v != "" {
		cfg.Logging.Source = truthy(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFile)); v != "" {
		cfg.Logging.File = v
	}
}

var envKeys = map[string]string{
	"general.theme":        EnvTheme,
	"editor.history_limit": EnvHistoryLimit,
	"editor.id_strategy":   EnvIDStrategy,
	"storage.backend":      EnvStorageBackend,
	"storage.path":         EnvStoragePath,
	"logging.level":        EnvLogLevel,
	"logging.format":       EnvLogFormat,
	"logging.source":       EnvLogSource,
	"logging.file":         EnvLogFile,
}

// EnvOverrideFor returns the env var name if the field is overridden by environment variables.
func EnvOverrideFor(key string) (string, bool) {
	env, ok := envKeys[key]
	if !ok || os.Getenv(env) == "" {
		return "", false
	}
	return env, true
}
