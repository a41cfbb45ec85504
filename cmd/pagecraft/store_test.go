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
	"net"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"pagecraft/internal/config"
	"pagecraft/internal/layout"
	applog "pagecraft/internal/log"
)

func testConfig(t *testing.T, driver string) config.AppConfig {
	t.Helper()
	cfg := config.Defaults()
	cfg.Storage.Driver = driver
	cfg.Storage.Dir = t.TempDir()
	return cfg
}

func TestOpenStoreDrivers(t *testing.T) {
	ctx := context.Background()

	s, _, err := openStore(ctx, testConfig(t, "memory"), "")
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := s.(*layout.MemoryStore); !ok {
		t.Fatalf("memory driver gave %T", s)
	}

	cfg := testConfig(t, "file")
	s, dir, err := openStore(ctx, cfg, "")
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if _, ok := s.(*layout.FileStore); !ok {
		t.Fatalf("file driver gave %T", s)
	}
	if dir != cfg.Storage.Dir {
		t.Fatalf("dir = %q, want %q", dir, cfg.Storage.Dir)
	}

	cfg = testConfig(t, "sqlite")
	s, _, err = openStore(ctx, cfg, "")
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	defer s.Close()
	if _, err := os.Stat(filepath.Join(cfg.Storage.Dir, "layouts.db")); err != nil {
		t.Fatalf("sqlite file missing: %v", err)
	}

	if _, _, err := openStore(ctx, testConfig(t, "redis"), ""); err == nil {
		t.Fatal("expected unknown driver error")
	}
}

func TestEnvWiresEditorSettings(t *testing.T) {
	cfg := testConfig(t, "memory")
	cfg.Editor.ColumnMinWidth, cfg.Editor.ColumnMaxWidth = 60, 400
	e, err := newEnv(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("newEnv: %v", err)
	}
	defer e.Close()
	if lim := e.limits(); lim.MinWidth != 60 || lim.MaxWidth != 400 {
		t.Fatalf("limits = %+v", lim)
	}
	if e.undoManager() == nil {
		t.Fatal("nil undo manager")
	}
	if e.ready() != nil {
		t.Fatal("memory store should not report readiness")
	}
	if e.layouts.Len() != 0 {
		t.Fatalf("fresh store has %d layouts", e.layouts.Len())
	}
}

func TestServerRunsBesideEditorWhenEnabled(t *testing.T) {
	cfg := testConfig(t, "memory")
	e, err := newEnv(context.Background(), cfg, "")
	if err != nil {
		t.Fatalf("newEnv: %v", err)
	}
	defer e.Close()
	l := applog.WithComponent("cli")

	if ch := serveBeside(context.Background(), l, cfg, e); ch != nil {
		t.Fatal("server started although disabled")
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	cfg.Server.Addr = ln.Addr().String()
	_ = ln.Close()
	cfg.General.EnableServer = true

	ctx, cancel := context.WithCancel(context.Background())
	done := serveBeside(ctx, l, cfg, e)
	if done == nil {
		t.Fatal("server not started")
	}
	url := "http://" + cfg.Server.Addr + "/healthz"
	var up bool
	for i := 0; i < 50 && !up; i++ {
		if resp, err := http.Get(url); err == nil {
			resp.Body.Close()
			up = resp.StatusCode == http.StatusOK
		} else {
			time.Sleep(20 * time.Millisecond)
		}
	}
	if !up {
		t.Fatalf("no health answer from %s", url)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("shutdown: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("server did not stop with the editor")
	}
}
