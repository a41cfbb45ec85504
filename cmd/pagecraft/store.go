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
	"fmt"
	"path/filepath"
	"time"

	"pagecraft/internal/config"
	"pagecraft/internal/layout"
	"pagecraft/internal/tables"
	"pagecraft/internal/undo"
)

// env bundles what every command needs.
type env struct {
	cfg     config.AppConfig
	dir     string
	store   layout.Store
	layouts *layout.Manager
}

func (e *env) Close() error {
	if e.store == nil {
		return nil
	}
	return e.store.Close()
}

// openStore builds the store selected by cfg.Storage.Driver.
func openStore(ctx context.Context, cfg config.AppConfig, dsn string) (layout.Store, string, error) {
	dir, err := cfg.StorageDir()
	if err != nil {
		return nil, "", err
	}
	switch cfg.Storage.Driver {
	case "memory":
		return &layout.MemoryStore{}, dir, nil
	case "sqlite":
		s, err := layout.OpenSQLite(ctx, filepath.Join(dir, "layouts.db"), cfg.Storage.Slot)
		return s, dir, err
	case "postgres":
		s, err := layout.OpenPostgres(ctx, dsn, cfg.Storage.Slot)
		return s, dir, err
	case "", "file":
		s, err := layout.NewFileStore(dir, cfg.Storage.Slot)
		return s, dir, err
	}
	return nil, "", fmt.Errorf("unknown storage driver %q", cfg.Storage.Driver)
}

func newEnv(ctx context.Context, cfg config.AppConfig, dsn string) (*env, error) {
	store, dir, err := openStore(ctx, cfg, dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	lm, err := layout.NewManager(ctx, store, layout.Options{})
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &env{cfg: cfg, dir: dir, store: store, layouts: lm}, nil
}

func (e *env) limits() tables.Limits {
	return tables.Limits{MinWidth: e.cfg.Editor.ColumnMinWidth, MaxWidth: e.cfg.Editor.ColumnMaxWidth}
}

func (e *env) undoManager() *undo.Manager {
	return undo.NewManager(undo.Config{
		MaxBytes:     e.cfg.Editor.UndoMaxBytes,
		MaxPerTarget: e.cfg.Editor.UndoDepth,
		MinInterval:  e.cfg.Editor.Coalesce(),
	})
}

// ready reports store health for /readyz when the store can ping.
func (e *env) ready() func(context.Context) error {
	p, ok := e.store.(interface{ Ping(context.Context) error })
	if !ok {
		return nil
	}
	return func(ctx context.Context) error {
		ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		return p.Ping(ctx)
	}
}
