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
	"log/slog"
	"strings"
	"sync"
	"time"

	"pagecraft/internal/domain"
	applog "pagecraft/internal/log"
)

// AsyncWriter forwards documents to a Backend from a background goroutine.
// Save never blocks on I/O: only the newest pending document is kept, so a
// burst of mutations collapses into one write. Failures are logged and
// never reach the caller.
type AsyncWriter struct {
	backend Backend
	log     *slog.Logger
	timeout time.Duration

	mu      sync.Mutex
	pending *domain.Document
	queued  uint64 // sequence of the newest Save
	written uint64 // sequence covered by the last finished write
	lastErr error
	closed  bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
}

func NewAsyncWriter(b Backend) *AsyncWriter {
	w := &AsyncWriter{
		backend: b,
		log:     applog.WithComponent("storage").With(slog.String("op", "async_save")),
		timeout: 5 * time.Second,
		wake:    make(chan struct{}, 1),
		quit:    make(chan struct{}),
		done:    make(chan struct{}),
	}
	go w.loop()
	return w
}

// Save queues doc, replacing any document not yet written.
func (w *AsyncWriter) Save(doc domain.Document) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		w.log.Warn("save after close dropped")
		return
	}
	w.pending = &doc
	w.queued++
	w.mu.Unlock()
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

func (w *AsyncWriter) loop() {
	defer close(w.done)
	for {
		select {
		case <-w.wake:
			w.drain()
		case <-w.quit:
			w.drain()
			return
		}
	}
}

func (w *AsyncWriter) drain() {
	for {
		w.mu.Lock()
		doc, seq := w.pending, w.queued
		w.pending = nil
		w.mu.Unlock()
		if doc == nil {
			return
		}
		ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
		err := w.backend.Save(ctx, *doc)
		cancel()
		if err != nil {
			w.log.Error("state save failed", slog.String("location", w.backend.Location()), slog.Any("err", err))
		}
		w.mu.Lock()
		w.written = seq
		w.lastErr = err
		w.mu.Unlock()
	}
}

// Flush waits until every document queued before the call is written.
// It returns the error of the last write, or ctx's error on timeout.
func (w *AsyncWriter) Flush(ctx context.Context) error {
	w.mu.Lock()
	target := w.queued
	w.mu.Unlock()
	for {
		w.mu.Lock()
		written, err := w.written, w.lastErr
		w.mu.Unlock()
		if written >= target {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-w.done:
			w.mu.Lock()
			written, err = w.written, w.lastErr
			w.mu.Unlock()
			if written >= target {
				return err
			}
			return errors.New("async writer stopped before flush completed")
		case <-time.After(5 * time.Millisecond):
		}
	}
}

// Close writes what is pending, stops the goroutine and closes the backend.
func (w *AsyncWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()
	close(w.quit)
	<-w.done
	w.mu.Lock()
	lastErr := w.lastErr
	w.mu.Unlock()
	if err := w.backend.Close(); err != nil {
		return fmt.Errorf("close backend: %w", err)
	}
	return lastErr
}

// Open builds the backend named by kind ("file" or "sqlite") at path.
func Open(ctx context.Context, kind, path string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", "file":
		return NewFileBackend(path)
	case "sqlite":
		return OpenSQLite(ctx, path)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", kind)
	}
}
