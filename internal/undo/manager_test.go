/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package undo

import (
	"testing"
	"time"
)

func TestUndoRedoSwapsWithCurrent(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024 * 1024, MaxPerTarget: 10})
	tgt := "table:grades"
	t0 := time.Now()
	m.Push(Snapshot{Target: tgt, Blob: []byte("a"), TS: t0})
	m.Push(Snapshot{Target: tgt, Blob: []byte("b"), TS: t0.Add(time.Second)})
	if _, targets, total := m.Stats(); targets != 1 || total != 2 {
		t.Fatalf("expected 1 target and 2 snapshots, got targets=%d total=%d", targets, total)
	}
	s, ok := m.Undo(tgt, []byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
	if !m.CanRedo(tgt) {
		t.Fatalf("expected redo history after undo")
	}
	s, ok = m.Redo(tgt, []byte("b"))
	if !ok || string(s.Blob) != "c" {
		t.Fatalf("redo expected 'c', got ok=%v blob=%q", ok, string(s.Blob))
	}
	s, ok = m.Undo(tgt, []byte("c"))
	if !ok || string(s.Blob) != "b" {
		t.Fatalf("second undo expected 'b', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestPushClearsRedo(t *testing.T) {
	m := NewManager(Config{})
	m.Push(Snapshot{Target: "x", Blob: []byte("1")})
	m.Undo("x", []byte("2"))
	m.Push(Snapshot{Target: "x", Blob: []byte("3")})
	if m.CanRedo("x") {
		t.Fatalf("expected redo to be cleared by a new push")
	}
}

func TestCoalesceKeepsStateBeforeBurst(t *testing.T) {
	m := NewManager(Config{MinInterval: 50 * time.Millisecond})
	tgt := "menu:main"
	t0 := time.Now()
	m.Push(Snapshot{Target: tgt, Blob: []byte("1"), TS: t0})
	m.Push(Snapshot{Target: tgt, Blob: []byte("2"), TS: t0.Add(10 * time.Millisecond)})
	m.Push(Snapshot{Target: tgt, Blob: []byte("3"), TS: t0.Add(40 * time.Millisecond)})
	_, _, total := m.Stats()
	if total != 1 {
		t.Fatalf("expected coalesced to 1 snapshot, got %d", total)
	}
	s, ok := m.Undo(tgt, nil)
	if !ok || string(s.Blob) != "1" {
		t.Fatalf("expected snapshot '1', got ok=%v blob=%q", ok, string(s.Blob))
	}
}

func TestCaps(t *testing.T) {
	m := NewManager(Config{MaxBytes: 20, MaxPerTarget: 2})
	for i := 0; i < 10; i++ {
		m.Push(Snapshot{Target: "t", Blob: []byte("xxxxx"), TS: time.Now().Add(time.Duration(i) * time.Millisecond)})
	}
	_, _, total := m.Stats()
	if total > 2 {
		t.Fatalf("expected MaxPerTarget cap to limit to 2, got %d", total)
	}
}

func TestClearAndStats(t *testing.T) {
	m := NewManager(Config{MaxBytes: 1024, MaxPerTarget: 10})
	m.Push(Snapshot{Target: "a", Blob: []byte("abcdef")})
	m.Undo("a", []byte("zz"))
	m.Push(Snapshot{Target: "a", Blob: []byte("abcdef")})
	tb, targets, total := m.Stats()
	if tb == 0 || targets != 1 || total != 1 {
		t.Fatalf("unexpected stats before clear: tb=%d targets=%d total=%d", tb, targets, total)
	}
	m.Clear("a")
	tb, targets, total = m.Stats()
	if tb != 0 || targets != 0 || total != 0 {
		t.Fatalf("expected cleared stats to be zero, got tb=%d targets=%d total=%d", tb, targets, total)
	}
	if m.CanUndo("a") || m.CanRedo("a") {
		t.Fatalf("expected no history after clear")
	}
}

func TestGlobalPruneAcrossTargets(t *testing.T) {
	m := NewManager(Config{MaxBytes: 8})
	t0 := time.Now()
	m.Push(Snapshot{Target: "one", Blob: []byte("xxxx"), TS: t0})
	m.Push(Snapshot{Target: "two", Blob: []byte("yyyy"), TS: t0.Add(time.Second)})
	m.Push(Snapshot{Target: "two", Blob: []byte("zzzz"), TS: t0.Add(2 * time.Second)})

	if _, ok := m.Undo("one", nil); ok {
		t.Fatalf("expected target one to have been pruned")
	}
	if _, ok := m.Undo("two", nil); !ok {
		t.Fatalf("expected target two to have snapshots")
	}
}
