/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"pagecraft/internal/config"
	"pagecraft/internal/convert"
	"pagecraft/internal/crash"
	"pagecraft/internal/editor"
	"pagecraft/internal/idgen"
	applog "pagecraft/internal/log"
	"pagecraft/internal/registry"
	"pagecraft/internal/storage"
	"pagecraft/internal/version"
)

// app is the composition root: one instance per process, shared by all commands.
type app struct {
	configPath string
	statePath  string
	backend    string
	logLevel   string
	output     string

	cfg     config.AppConfig
	ids     idgen.Generator
	reg     *registry.Registry
	conv    *convert.Converter
	store   *editor.Store
	writer  *storage.AsyncWriter
	site    *crash.Site
	log     *slog.Logger
	started time.Time
}

func newApp() *app {
	return &app{site: &crash.Site{}, output: "text"}
}

func main() {
	a := newApp()
	defer crash.Recover(a.site)
	err := a.rootCommand().Execute()
	// PostRun is skipped when a command fails; pending saves still go out.
	if cerr := a.close(); cerr != nil {
		fmt.Fprintln(os.Stderr, "Error:", cerr)
		err = cerr
	}
	if err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "pagecraft",
		Short: "Edit a low-code page canvas from the terminal",
		Long: `pagecraft edits the element tree of a visual page canvas.

Every command loads the saved canvas, applies one operation and writes the
result back through the configured storage backend.`,
		SilenceUsage:      true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error { return a.configure() },
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.close()
		},
	}
	pf := root.PersistentFlags()
	pf.StringVar(&a.configPath, "config", "", "config file (default: per-user config path)")
	pf.StringVar(&a.statePath, "state", "", "state file or database (overrides storage.path)")
	pf.StringVar(&a.backend, "backend", "", "storage backend: file or sqlite (overrides storage.backend)")
	pf.StringVar(&a.logLevel, "log-level", "", "log level: debug, info, warn, error")
	pf.StringVarP(&a.output, "output", "o", "text", "output format: text, json or yaml")

	root.AddCommand(
		a.versionCommand(),
		a.configCommand(),
		a.kindsCommand(),
		a.showCommand(),
		a.addCommand(),
		a.updateCommand(),
		a.deleteCommand(),
		a.moveCommand(),
		a.duplicateCommand(),
		a.clearCommand(),
		a.cloneCommand(),
		a.exportCommand(),
		a.copyCommand(),
		a.pasteCommand(),
	)
	return root
}

// configure loads config and logging. It does not touch the state slot.
func (a *app) configure() error {
	var err error
	if a.configPath != "" {
		a.cfg, err = config.LoadFrom(a.configPath)
	} else {
		a.cfg, err = config.Load()
	}
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if a.backend != "" {
		a.cfg.Storage.Backend = strings.ToLower(a.backend)
	}
	switch {
	case a.statePath != "":
		a.cfg.Storage.Path = a.statePath
	case a.configPath != "" && a.cfg.Storage.Path == "":
		name := "state.json"
		if a.cfg.Storage.Backend == config.BackendSQLite {
			name = "state.db"
		}
		a.cfg.Storage.Path = filepath.Join(filepath.Dir(a.configPath), name)
	}
	if err := a.cfg.Validate(); err != nil {
		return err
	}
	applog.Init(applog.Options{
		Level:     a.cfg.Logging.Level,
		Format:    a.cfg.Logging.Format,
		AddSource: a.cfg.Logging.Source,
		File:      a.cfg.Logging.File,
	})
	a.log = applog.WithComponent("cli")
	if a.logLevel != "" {
		applog.SetLevel(a.logLevel)
		if env, ok := config.EnvOverrideFor("logging.level"); ok {
			a.log.Debug("--log-level overrides environment", slog.String("env", env))
		}
	}
	a.started = time.Now()

	if a.ids, err = a.cfg.IDGenerator(); err != nil {
		return err
	}

	if a.reg, err = registry.NewBuiltin(); err != nil {
		return fmt.Errorf("load component catalog: %w", err)
	}
	a.conv = convert.New(convert.Options{
		MaxChars: a.cfg.Editor.MaxHTMLChars,
		MaxDepth: a.cfg.Editor.MaxDepth,
		MaxNodes: a.cfg.Editor.MaxNodes,
		IDs:      a.ids,
	})
	return nil
}

// open loads the canvas into a fresh store wired to an async writer.
func (a *app) open(ctx context.Context) (*editor.Store, error) {
	if a.store != nil {
		return a.store, nil
	}
	path, err := a.cfg.StatePath()
	if err != nil {
		return nil, err
	}
	ctx = applog.WithState(ctx, path)
	backend, err := storage.Open(ctx, a.cfg.Storage.Backend, path)
	if err != nil {
		return nil, fmt.Errorf("open state: %w", err)
	}
	doc, err := storage.LoadOrEmpty(ctx, backend)
	if err != nil {
		if !errors.Is(err, storage.ErrCorrupt) {
			_ = backend.Close()
			return nil, fmt.Errorf("load state: %w", err)
		}
		a.log.WarnContext(ctx, "state unreadable, starting with an empty canvas", slog.Any("err", err))
	}
	a.writer = storage.NewAsyncWriter(backend)
	a.store = editor.New(editor.Options{
		HistoryLimit: a.cfg.Editor.HistoryLimit,
		IDs:          a.ids,
		Saver:        a.writer,
	})
	a.store.Load(doc)
	a.site.StatePath = path
	a.site.Document = a.store.Document
	a.log.DebugContext(ctx, "state opened",
		slog.String("backend", a.cfg.Storage.Backend),
		slog.Int("elements", len(doc.Canvas.Elements)))
	return a.store, nil
}

// close flushes pending writes.
func (a *app) close() error {
	if a.writer == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.writer.Flush(ctx); err != nil {
		a.log.Error("flush failed", slog.Any("err", err))
	}
	err := a.writer.Close()
	a.writer = nil
	if err != nil {
		return fmt.Errorf("save state: %w", err)
	}
	a.log.Debug("done", slog.Duration("took", time.Since(a.started)), slog.String("ver", version.String()))
	return nil
}
