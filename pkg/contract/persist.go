// Debounced snapshot persistence.
//
// Every mutation schedules a deferred write of the entire contract set,
// coalescing bursts of rapid updates into one disk write. In-memory
// state is the source of truth for the running process: a failed write
// is logged and retried after a delay, never surfaced to the caller
// whose mutation triggered it. Flush runs the pending write
// synchronously and is called at shutdown so no update is lost on
// orderly exit.
package contract

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/daviddao/agentbridge/pkg/model"
)

// scheduleFlushLocked marks the store dirty and (re)arms the one-shot
// debounce timer. Must be called with s.mu held. No-op without a path.
func (s *Store) scheduleFlushLocked() {
	if s.path == "" {
		return
	}
	s.dirty = true
	if s.timer != nil {
		s.timer.Reset(s.debounce)
		return
	}
	s.timer = time.AfterFunc(s.debounce, s.flushTimer)
}

// flushTimer fires on the debounce (or retry) timer. A failure re-arms
// the timer with the retry delay instead of propagating.
func (s *Store) flushTimer() {
	if err := s.Flush(); err != nil {
		s.logger.Error("contract snapshot write failed, will retry",
			"path", s.path,
			"retry_in", s.retryDelay,
			"error", err,
		)
		s.mu.Lock()
		s.dirty = true
		if s.timer != nil {
			s.timer.Reset(s.retryDelay)
		}
		s.mu.Unlock()
	}
}

// Flush cancels any pending timer and writes the snapshot now. A clean
// store is a no-op. Safe to call at any time; used at shutdown and in
// tests.
func (s *Store) Flush() error {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
	}
	if !s.dirty || s.path == "" {
		s.mu.Unlock()
		return nil
	}
	data, err := s.encodeLocked()
	s.dirty = false
	s.mu.Unlock()
	if err != nil {
		return err
	}

	if err := writeFileAtomic(s.path, data); err != nil {
		return fmt.Errorf("write snapshot: %w", err)
	}
	s.logger.Debug("contract snapshot written", "path", s.path, "bytes", len(data))
	return nil
}

// Load replaces the in-memory map with the persisted snapshot. A
// missing file is an empty store, not an error. JSON decoding restores
// the RFC 3339 timestamps to time.Time values.
func (s *Store) Load() error {
	if s.path == "" {
		return nil
	}
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read snapshot: %w", err)
	}

	var list []*model.Contract
	if err := json.Unmarshal(data, &list); err != nil {
		return fmt.Errorf("decode snapshot %s: %w", s.path, err)
	}

	contracts := make(map[string]*model.Contract, len(list))
	for _, c := range list {
		contracts[c.ID] = c
	}

	s.mu.Lock()
	s.contracts = contracts
	s.dirty = false
	s.mu.Unlock()

	s.logger.Info("contract snapshot loaded", "path", s.path, "contracts", len(list))
	return nil
}

// encodeLocked serializes the contract set as a JSON array ordered by
// creation time, oldest first, with ID as the tie-break so output is
// deterministic. Must be called with s.mu held.
func (s *Store) encodeLocked() ([]byte, error) {
	list := make([]*model.Contract, 0, len(s.contracts))
	for _, c := range s.contracts {
		list = append(list, c)
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return json.MarshalIndent(list, "", "  ")
}

// writeFileAtomic writes via a temp file and rename so a crash mid-write
// never leaves a truncated snapshot.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
