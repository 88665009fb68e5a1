/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"pagecraft/internal/domain"
	applog "pagecraft/internal/log"
)

const (
	BackupsDirName = "backups"
	// DefaultKeepBackups bounds the number of .bak files kept per state file.
	DefaultKeepBackups = 10

	backupStamp = "20060102-150405.000"
)

// Backend is a durable home for the single state slot.
type Backend interface {
	Load(ctx context.Context) (domain.Document, error)
	Save(ctx context.Context, doc domain.Document) error
	Location() string
	Close() error
}

// FileBackend stores the Document as indented JSON. Each save copies the
// previous file into a timestamped backup before the temp-file-and-rename
// replacement; a corrupt main file is recovered from the newest backup.
type FileBackend struct {
	Path        string
	KeepBackups int
	log         *slog.Logger
}

func NewFileBackend(path string) (*FileBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state path is required")
	}
	return &FileBackend{
		Path:        path,
		KeepBackups: DefaultKeepBackups,
		log:         applog.WithComponent("storage").With(slog.String("backend", "file")),
	}, nil
}

func (b *FileBackend) Location() string { return b.Path }

func (b *FileBackend) Close() error { return nil }

// BackupDir is where backups and crash snapshots for a state file live.
func BackupDir(statePath string) string {
	return filepath.Join(filepath.Dir(statePath), BackupsDirName)
}

// Load returns ErrNotFound when neither the file nor a backup exists. A
// corrupt file falls back to the newest backup; when that fails too the
// empty default Document is returned with an ErrCorrupt-wrapped error.
func (b *FileBackend) Load(ctx context.Context) (domain.Document, error) {
	ctx = applog.WithState(ctx, b.Path)
	l := applog.WithOperation(b.log, "load")
	data, err := os.ReadFile(b.Path)
	if errors.Is(err, os.ErrNotExist) {
		if doc, _, berr := b.latestBackup(); berr == nil {
			l.WarnContext(ctx, "state file missing, restored from backup")
			return doc, nil
		}
		return domain.NewDocument(), ErrNotFound
	}
	if err != nil {
		return domain.NewDocument(), fmt.Errorf("read state: %w", err)
	}
	doc, derr := DecodeJSON(data)
	if derr == nil {
		return doc, nil
	}
	l.WarnContext(ctx, "state file corrupt, trying backups", slog.Any("err", derr))
	doc, from, berr := b.latestBackup()
	if berr != nil {
		return domain.NewDocument(), fmt.Errorf("%w; backup attempt: %v", derr, berr)
	}
	l.InfoContext(ctx, "restored from backup", slog.String("backup", from))
	return doc, nil
}

// Save writes doc transactionally.
func (b *FileBackend) Save(ctx context.Context, doc domain.Document) error {
	ctx = applog.WithState(ctx, b.Path)
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := EncodeJSON(doc)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(b.Path), 0o755); err != nil {
		return fmt.Errorf("ensure state dir: %w", err)
	}
	if _, statErr := os.Stat(b.Path); statErr == nil {
		bdir := BackupDir(b.Path)
		if err := os.MkdirAll(bdir, 0o755); err != nil {
			return fmt.Errorf("ensure backups dir: %w", err)
		}
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", filepath.Base(b.Path), time.Now().Format(backupStamp)))
		if cerr := copyFile(b.Path, bpath); cerr != nil {
			return fmt.Errorf("backup current state: %w", cerr)
		}
		b.pruneBackups(ctx)
	}

	if err := writeAtomic(b.Path, data); err != nil {
		return err
	}
	applog.WithOperation(b.log, "save").DebugContext(ctx, "state written",
		slog.Int("bytes", len(data)), slog.Int("elements", len(doc.Canvas.Elements)))
	return nil
}

// writeAtomic writes to a temp file in the target directory, then renames it over path.
func writeAtomic(path string, data []byte) error {
	temp := filepath.Join(filepath.Dir(path), fmt.Sprintf(".%s.tmp-%d-%d", filepath.Base(path), os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("write temp state: %w", err)
	}
	if err := os.Rename(temp, path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace state: %w", err)
	}
	return nil
}

// backups lists backup files of the state file, oldest first.
func (b *FileBackend) backups() ([]string, error) {
	bdir := BackupDir(b.Path)
	ents, err := os.ReadDir(bdir)
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(b.Path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(bdir, name))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (b *FileBackend) latestBackup() (domain.Document, string, error) {
	candidates, err := b.backups()
	if err != nil {
		return domain.NewDocument(), "", err
	}
	for i := len(candidates) - 1; i >= 0; i-- {
		data, err := os.ReadFile(candidates[i])
		if err != nil {
			continue
		}
		if doc, err := DecodeJSON(data); err == nil {
			return doc, candidates[i], nil
		}
	}
	return domain.NewDocument(), "", errors.New("no usable backups found")
}

func (b *FileBackend) pruneBackups(ctx context.Context) {
	keep := b.KeepBackups
	if keep <= 0 {
		return
	}
	all, err := b.backups()
	if err != nil || len(all) <= keep {
		return
	}
	for _, p := range all[:len(all)-keep] {
		if err := os.Remove(p); err != nil {
			b.log.WarnContext(ctx, "prune backup failed", slog.String("path", p), slog.Any("err", err))
		}
	}
}

// WriteCrashSnapshot stores doc beside the state file's backups without
// touching the main file. It returns the written path.
func WriteCrashSnapshot(statePath string, doc domain.Document) (string, error) {
	data, err := EncodeJSON(doc)
	if err != nil {
		return "", err
	}
	dir := os.TempDir()
	if strings.TrimSpace(statePath) != "" {
		dir = BackupDir(statePath)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("ensure crash dir: %w", err)
	}
	path := filepath.Join(dir, fmt.Sprintf("state.crash-%s.json", time.Now().Format(backupStamp)))
	if err := writeAtomic(path, data); err != nil {
		return "", err
	}
	return path, nil
}

// writeFileSync writes data to a file and flushes it to disk.
func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

// copyFile copies a file from src to dst (overwrites dst if exists).
func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
