/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

// Package crash turns an unrecovered panic into a logged error, a crash
// report on disk and a last-chance snapshot of the canvas.
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

	"pagecraft/internal/domain"
	applog "pagecraft/internal/log"
	"pagecraft/internal/storage"
	"pagecraft/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Site describes what is at stake when the process panics.
type Site struct {
	// StatePath places the report and snapshot beside the state backups.
	StatePath string
	// Document returns the live canvas; nil skips the snapshot.
	Document func() domain.Document
}

// Recover captures a panic, logs an error with stacktrace, writes an error
// report file and attempts a crash snapshot of the canvas (if site allows).
//
// Usage: defer crash.Recover(site)
func Recover(site *Site) {
	r := recover()
	if r == nil {
		return
	}
	l := applog.WithComponent("crash")
	stack := debug.Stack()
	l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

	reportPath, err := writeReport(site, r, stack)
	if err != nil {
		l.Error("crash report failed", slog.Any("err", err))
	}
	if site != nil && site.Document != nil {
		if path, err := snapshot(site); err != nil {
			l.Error("crash snapshot failed", slog.Any("err", err))
		} else {
			l.Info("crash snapshot written", slog.String("path", path))
		}
	}

	if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
		l.Error("failed to write crash message to stderr", slog.Any("err", err))
	}
	if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
		l.Error("failed to write version info to stderr", slog.Any("err", err))
	}
	exitFn(2)
}

// snapshot runs the Document callback under its own recover; the store may
// be what panicked.
func snapshot(site *Site) (path string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("read document: %v", r)
		}
	}()
	return storage.WriteCrashSnapshot(site.StatePath, site.Document())
}

func writeReport(site *Site, panicVal any, stack []byte) (string, error) {
	dir := os.TempDir()
	if site != nil && site.StatePath != "" {
		dir = storage.BackupDir(site.StatePath)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			dir = os.TempDir()
		}
	}
	path := filepath.Join(dir, fmt.Sprintf("crash-%s.log", time.Now().Format("20060102-150405.000")))

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Pagecraft Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if site != nil && site.StatePath != "" {
		_, _ = fmt.Fprintf(&buf, "State: %s\n", site.StatePath)
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()
	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()
	return path, nil
}
