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
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/fxamacker/cbor/v2"

	"pagecraft/internal/domain"
	applog "pagecraft/internal/log"
	"pagecraft/internal/tree"
	"pagecraft/internal/version"

	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// StateKey is the kv row holding the canvas Document.
	StateKey = "canvas-state"

	codecCBOR = "cbor"
	codecJSON = "json"

	// sqliteSchemaVersion tracks the kv database layout.
	// 1: kv(key, value, updated_at) with JSON values.
	// 2: adds kv.codec; new rows are CBOR.
	sqliteSchemaVersion = 2
)

var (
	cborEnc cbor.EncMode
	cborDec cbor.DecMode
)

func init() {
	var err error
	if cborEnc, err = cbor.CanonicalEncOptions().EncMode(); err != nil {
		panic(err)
	}
	cborDec, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
}

// SQLiteBackend keeps the Document in a single-row key-value table.
type SQLiteBackend struct {
	path string
	db   *sql.DB
	log  *slog.Logger
}

// OpenSQLite opens (creating if needed) the database at path, enables WAL
// and brings the schema up to date.
func OpenSQLite(ctx context.Context, path string) (*SQLiteBackend, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "sqlite_open").With(slog.String("path", path))
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("state path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create state dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		l.Error("sqlite open failed", slog.Any("err", err))
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		l.Error("enable WAL failed", slog.Any("err", err))
		return nil, fmt.Errorf("enable WAL: %w", err)
	}
	if err := ensureMetaAndVersion(ctx, db); err != nil {
		_ = db.Close()
		l.Error("ensure meta/version failed", slog.Any("err", err))
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("state db ready")
	return &SQLiteBackend{path: path, db: db, log: applog.WithComponent("storage").With(slog.String("backend", "sqlite"))}, nil
}

func ensureMetaAndVersion(ctx context.Context, db *sql.DB) error {
	ddl := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key   TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS version (
			id          INTEGER PRIMARY KEY CHECK(id=1),
			schema      INTEGER NOT NULL,
			app         TEXT,
			created_at  TEXT NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS kv (
			key         TEXT PRIMARY KEY,
			value       BLOB NOT NULL,
			updated_at  TEXT NOT NULL
		);`,
	}
	for _, q := range ddl {
		if _, err := db.ExecContext(ctx, q); err != nil {
			return fmt.Errorf("create table: %w", err)
		}
	}
	now := time.Now().UTC().Format(time.RFC3339)
	appv := version.String()
	var cur int
	err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// Fresh databases start at 1 and migrate forward like old ones.
		if _, err := db.ExecContext(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 1, ?, ?, ?)`, appv, now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := db.ExecContext(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, appv, now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// runMigrations applies incremental schema migrations up to sqliteSchemaVersion.
func runMigrations(ctx context.Context, db *sql.DB) error {
	var cur int
	if err := db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < sqliteSchemaVersion {
		next := cur + 1
		var stmts []string
		switch next {
		case 2:
			stmts = []string{
				`ALTER TABLE kv ADD COLUMN codec TEXT NOT NULL DEFAULT 'json';`,
			}
		}
		tx, err := db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range stmts {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, `UPDATE version SET schema=?, updated_at=? WHERE id=1`, next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

func (b *SQLiteBackend) Location() string { return b.path }

func (b *SQLiteBackend) Close() error { return b.db.Close() }

// Load decodes the state row. Legacy JSON rows go through the same
// migration path as state files.
func (b *SQLiteBackend) Load(ctx context.Context) (domain.Document, error) {
	ctx = applog.WithState(ctx, b.path)
	var (
		value []byte
		codec string
	)
	err := b.db.QueryRowContext(ctx, `SELECT value, codec FROM kv WHERE key=?`, StateKey).Scan(&value, &codec)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.NewDocument(), ErrNotFound
	}
	if err != nil {
		return domain.NewDocument(), fmt.Errorf("read state row: %w", err)
	}
	var doc domain.Document
	switch codec {
	case codecJSON:
		doc, err = DecodeJSON(value)
	case codecCBOR:
		doc, err = decodeCBOR(value)
	default:
		err = fmt.Errorf("%w: unknown codec %q", ErrCorrupt, codec)
	}
	if err != nil {
		applog.WithOperation(b.log, "load").WarnContext(ctx, "state row unreadable", slog.Any("err", err))
		return domain.NewDocument(), err
	}
	return doc, nil
}

func (b *SQLiteBackend) Save(ctx context.Context, doc domain.Document) error {
	ctx = applog.WithState(ctx, b.path)
	data, err := encodeCBOR(doc)
	if err != nil {
		return err
	}
	_, err = b.db.ExecContext(ctx,
		`INSERT INTO kv (key, value, codec, updated_at) VALUES(?, ?, ?, ?)
		 ON CONFLICT(key) DO UPDATE SET value=excluded.value, codec=excluded.codec, updated_at=excluded.updated_at`,
		StateKey, data, codecCBOR, time.Now().UTC().Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("write state row: %w", err)
	}
	applog.WithOperation(b.log, "save").DebugContext(ctx, "state written", slog.Int("bytes", len(data)))
	return nil
}

func encodeCBOR(doc domain.Document) ([]byte, error) {
	doc.Version = domain.SchemaVersion
	doc.Canvas.Elements = tree.DeepCopy(doc.Canvas.Elements)
	data, err := cborEnc.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("encode state: %w", err)
	}
	return data, nil
}

func decodeCBOR(data []byte) (domain.Document, error) {
	doc := domain.NewDocument()
	if err := cborDec.Unmarshal(data, &doc); err != nil {
		return domain.NewDocument(), fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return normalize(doc), nil
}
