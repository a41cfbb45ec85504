/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package undo keeps per-target undo/redo stacks of opaque model snapshots.
// Editors push a serialized copy of their model before each edit and swap
// snapshots on undo and redo.
package undo

import (
	"sync"
	"time"
)

// Snapshot is a reversible state blob for one edit target (a table or menu
// id). Blob content is opaque to the manager; size is estimated as len(Blob).
type Snapshot struct {
	Target string
	Blob   []byte
	TS     time.Time
}

// Config controls memory and depth caps and coalescing behavior.
type Config struct {
	// MaxBytes is a soft cap; older entries are pruned when exceeded.
	MaxBytes int
	// MaxPerTarget limits snapshots kept per target (0 means unlimited).
	MaxPerTarget int
	// MinInterval coalesces pushes for the same target that arrive within the
	// interval (0 disables coalescing).
	MinInterval time.Duration
}

// Manager provides in-memory undo/redo stacks keyed by target.
// It is safe for concurrent use.
type Manager struct {
	cfg  Config
	mu   sync.Mutex
	undo map[string][]Snapshot
	redo map[string][]Snapshot
	// accounting covers both stacks
	totalBytes int
}

func NewManager(cfg Config) *Manager {
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = 16 * 1024 * 1024 // 16 MiB
	}
	return &Manager{cfg: cfg, undo: make(map[string][]Snapshot), redo: make(map[string][]Snapshot)}
}

// Push records the state before an edit. A push within MinInterval of the
// previous one on the same target replaces nothing and is dropped, so the
// stack keeps the state from before the burst. Any push clears redo.
func (m *Manager) Push(s Snapshot) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s.TS.IsZero() {
		s.TS = time.Now()
	}
	m.dropRedoLocked(s.Target)
	stack := m.undo[s.Target]
	if n := len(stack); n > 0 && m.cfg.MinInterval > 0 {
		if s.TS.Sub(stack[n-1].TS) < m.cfg.MinInterval {
			stack[n-1].TS = s.TS
			return
		}
	}
	m.undo[s.Target] = append(stack, s)
	m.totalBytes += len(s.Blob)
	m.enforceCapsLocked(s.Target)
}

// Undo pops the latest snapshot of target and parks current on the redo
// stack, so Redo can return to it.
func (m *Manager) Undo(target string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	stack := m.undo[target]
	if len(stack) == 0 {
		return Snapshot{}, false
	}
	s := stack[len(stack)-1]
	m.undo[target] = stack[:len(stack)-1]
	m.totalBytes -= len(s.Blob)
	m.redo[target] = append(m.redo[target], Snapshot{Target: target, Blob: current, TS: time.Now()})
	m.totalBytes += len(current)
	return s, true
}

// Redo pops the latest redo snapshot and parks current on the undo stack.
func (m *Manager) Redo(target string, current []byte) (Snapshot, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r := m.redo[target]
	if len(r) == 0 {
		return Snapshot{}, false
	}
	s := r[len(r)-1]
	m.redo[target] = r[:len(r)-1]
	m.totalBytes -= len(s.Blob)
	m.undo[target] = append(m.undo[target], Snapshot{Target: target, Blob: current, TS: time.Now()})
	m.totalBytes += len(current)
	m.enforceCapsLocked(target)
	return s, true
}

// CanUndo reports whether target has undo history.
func (m *Manager) CanUndo(target string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.undo[target]) > 0
}

// CanRedo reports whether target has redo history.
func (m *Manager) CanRedo(target string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.redo[target]) > 0
}

// Clear drops both stacks of a target, e.g. after Reset.
func (m *Manager) Clear(target string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.undo[target] {
		m.totalBytes -= len(s.Blob)
	}
	m.dropRedoLocked(target)
	delete(m.undo, target)
	if m.totalBytes < 0 {
		m.totalBytes = 0
	}
}

// Stats returns current sizes for diagnostics.
func (m *Manager) Stats() (totalBytes int, targets int, totalSnapshots int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	targets = len(m.undo)
	for _, v := range m.undo {
		totalSnapshots += len(v)
	}
	return m.totalBytes, targets, totalSnapshots
}

func (m *Manager) dropRedoLocked(target string) {
	for _, s := range m.redo[target] {
		m.totalBytes -= len(s.Blob)
	}
	delete(m.redo, target)
}

func (m *Manager) enforceCapsLocked(target string) {
	if m.cfg.MaxPerTarget > 0 {
		stack := m.undo[target]
		if len(stack) > m.cfg.MaxPerTarget {
			toDrop := len(stack) - m.cfg.MaxPerTarget
			for i := 0; i < toDrop; i++ {
				m.totalBytes -= len(stack[i].Blob)
			}
			m.undo[target] = append([]Snapshot{}, stack[toDrop:]...)
		}
	}
	// Global memory cap: prune the oldest undo entry across all targets.
	for m.cfg.MaxBytes > 0 && m.totalBytes > m.cfg.MaxBytes {
		oldest := ""
		found := false
		var oldestTS time.Time
		for tgt, stack := range m.undo {
			if len(stack) == 0 {
				continue
			}
			if !found || stack[0].TS.Before(oldestTS) {
				oldest, oldestTS, found = tgt, stack[0].TS, true
			}
		}
		if !found {
			break
		}
		stack := m.undo[oldest]
		m.totalBytes -= len(stack[0].Blob)
		m.undo[oldest] = stack[1:]
		if len(m.undo[oldest]) == 0 {
			delete(m.undo, oldest)
		}
	}
}
