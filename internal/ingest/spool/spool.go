// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

// Package spool ingests running orders dropped as JSON files into a
// directory. A new file creates its rundown, a rewrite reloads it and a
// removal deletes it.
package spool

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/ManuGH/rundownd/internal/ingest"
	"github.com/ManuGH/rundownd/internal/log"
)

// DefaultDebounce collapses the burst of events editors emit for one save.
const DefaultDebounce = 250 * time.Millisecond

// Target receives parsed running orders.
type Target interface {
	Replace(ctx context.Context, ro ingest.RunningOrder, isCreate bool) error
	Delete(ctx context.Context, externalID string) error
}

// Watcher feeds a spool directory into a Target.
type Watcher struct {
	dir      string
	target   Target
	debounce time.Duration
	logger   zerolog.Logger

	mu    sync.Mutex
	known map[string]string // path -> running order id
}

// New returns a watcher for dir. A debounce of zero uses DefaultDebounce.
func New(dir string, target Target, debounce time.Duration) *Watcher {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Watcher{
		dir:      dir,
		target:   target,
		debounce: debounce,
		logger:   log.WithComponent("spool"),
		known:    make(map[string]string),
	}
}

func isSpoolFile(path string) bool {
	name := filepath.Base(path)
	return strings.HasSuffix(name, ".json") && !strings.HasPrefix(name, ".")
}

// ParseRunningOrder decodes one spool document.
func ParseRunningOrder(data []byte) (ingest.RunningOrder, error) {
	var ro ingest.RunningOrder
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&ro); err != nil {
		return ingest.RunningOrder{}, fmt.Errorf("decode running order: %w", err)
	}
	if ro.ID == "" {
		return ingest.RunningOrder{}, errors.New("running order has no id")
	}
	for i, st := range ro.Stories {
		if st.ID == "" {
			return ingest.RunningOrder{}, fmt.Errorf("story %d has no id", i)
		}
	}
	return ro, nil
}

// IngestFile reads path and replaces its running order. The first file seen
// for a running order is ingested as a create.
func (w *Watcher) IngestFile(ctx context.Context, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read spool file: %w", err)
	}
	ro, err := ParseRunningOrder(data)
	if err != nil {
		return fmt.Errorf("%s: %w", filepath.Base(path), err)
	}

	w.mu.Lock()
	prevID, seen := w.known[path]
	w.known[path] = ro.ID
	w.mu.Unlock()

	if seen && prevID != ro.ID {
		// the file now describes another running order
		if err := w.target.Delete(ctx, prevID); err != nil {
			return err
		}
		seen = false
	}
	if err := w.target.Replace(ctx, ro, !seen); err != nil {
		return err
	}
	w.logger.Info().
		Str(log.FieldEvent, "spool.ingested").
		Str(log.FieldPath, path).
		Str(log.FieldRundownExtID, ro.ID).
		Int("stories", len(ro.Stories)).
		Bool("create", !seen).
		Msg("running order ingested")
	return nil
}

// RemoveFile deletes the running order last read from path.
func (w *Watcher) RemoveFile(ctx context.Context, path string) error {
	w.mu.Lock()
	id, ok := w.known[path]
	delete(w.known, path)
	w.mu.Unlock()
	if !ok {
		return nil
	}
	if err := w.target.Delete(ctx, id); err != nil {
		return err
	}
	w.logger.Info().
		Str(log.FieldEvent, "spool.removed").
		Str(log.FieldPath, path).
		Str(log.FieldRundownExtID, id).
		Msg("running order removed")
	return nil
}

// Scan ingests every spool file currently in the directory in name order.
func (w *Watcher) Scan(ctx context.Context) error {
	entries, err := os.ReadDir(w.dir)
	if err != nil {
		return fmt.Errorf("read spool dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() && isSpoolFile(e.Name()) {
			names = append(names, e.Name())
		}
	}
	slices.Sort(names)
	for _, name := range names {
		w.handle(ctx, filepath.Join(w.dir, name), false)
	}
	return nil
}

func (w *Watcher) handle(ctx context.Context, path string, removed bool) {
	var err error
	if removed {
		err = w.RemoveFile(ctx, path)
	} else {
		err = w.IngestFile(ctx, path)
	}
	if err != nil {
		w.logger.Error().Err(err).
			Str(log.FieldEvent, "spool.skipped").
			Str(log.FieldPath, path).
			Msg("spool file skipped")
	}
}

// Run scans the directory and then follows it until ctx is done.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch spool dir: %w", err)
	}
	w.logger.Info().
		Str(log.FieldEvent, "spool.watcher_started").
		Str(log.FieldPath, w.dir).
		Msg("watching spool directory")

	if err := w.Scan(ctx); err != nil {
		return err
	}

	type change struct {
		path    string
		removed bool
	}
	due := make(chan change)
	timers := make(map[string]*time.Timer)
	defer func() {
		for _, t := range timers {
			t.Stop()
		}
	}()
	schedule := func(c change) {
		if t, ok := timers[c.path]; ok {
			t.Stop()
		}
		timers[c.path] = time.AfterFunc(w.debounce, func() {
			select {
			case due <- c:
			case <-ctx.Done():
			}
		})
	}

	for {
		select {
		case <-ctx.Done():
			w.logger.Info().Str(log.FieldEvent, "spool.watcher_stopped").Msg("spool watcher stopped")
			return nil

		case c := <-due:
			delete(timers, c.path)
			w.handle(ctx, c.path, c.removed)

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSpoolFile(event.Name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
				schedule(change{path: event.Name, removed: true})
			case event.Has(fsnotify.Write) || event.Has(fsnotify.Create):
				schedule(change{path: event.Name})
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).
				Str(log.FieldEvent, "spool.watcher_error").
				Msg("spool watcher error")
		}
	}
}
