/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package layout captures whole-page layouts and keeps the saved collection
// in a Store. Every mutation rewrites the full collection; when the write
// fails the in-memory collection is rolled back so it always matches the
// stored state.
package layout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode"

	"pagecraft/internal/domain"
	applog "pagecraft/internal/log"
	"pagecraft/internal/render"
)

var (
	// ErrNotFound is returned for an unknown layout id.
	ErrNotFound = errors.New("layout: not found")
	// ErrDeclined is returned when the delete confirmation was refused.
	ErrDeclined = errors.New("layout: delete declined")
)

// DefaultName names a layout saved without a name.
const DefaultName = "Untitled Layout"

// Host receives a loaded configuration. Applying it to a page is up to the host.
type Host func(domain.Configuration) error

// Confirm asks the operator before an irreversible delete.
type Confirm func(domain.Configuration) bool

// Options configures a Manager.
type Options struct {
	Host Host
	Now  func() time.Time
}

// Manager owns the layout collection. It is safe for concurrent use.
type Manager struct {
	mu      sync.Mutex
	store   Store
	opts    Options
	layouts []domain.Configuration
	// gen counts successful writes; Reload drops a read that a write overtook.
	gen uint64
	log *slog.Logger
}

// NewManager reads the collection from store.
func NewManager(ctx context.Context, store Store, opts Options) (*Manager, error) {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	m := &Manager{store: store, opts: opts, log: applog.WithComponent("layout")}
	if err := m.Reload(ctx); err != nil {
		return nil, err
	}
	return m, nil
}

// Reload replaces the in-memory collection with the stored one. A read that
// raced with a Save, Delete or Import of this manager is discarded, since the
// write already replaced the stored collection.
func (m *Manager) Reload(ctx context.Context) error {
	m.mu.Lock()
	gen := m.gen
	m.mu.Unlock()
	data, err := m.store.Read(ctx)
	if err != nil {
		return fmt.Errorf("read layouts: %w", err)
	}
	layouts := []domain.Configuration{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &layouts); err != nil {
			return fmt.Errorf("%w: stored collection: %v", ErrMalformed, err)
		}
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.gen != gen {
		m.log.Debug("reload overtaken by a write", slog.Uint64("gen", m.gen))
		return nil
	}
	m.layouts = layouts
	m.log.Debug("layouts loaded", slog.Int("count", len(layouts)))
	return nil
}

// List returns summaries in stored order.
func (m *Manager) List() []domain.Summary {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Summary, len(m.layouts))
	for i, c := range m.layouts {
		out[i] = c.Summarize()
	}
	return out
}

// All returns the collection. The configurations must not be modified.
func (m *Manager) All() []domain.Configuration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Configuration(nil), m.layouts...)
}

// Len returns the number of saved layouts.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.layouts)
}

// Get returns the layout with id.
func (m *Manager) Get(id string) (domain.Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if i := m.indexLocked(id); i >= 0 {
		return m.layouts[i], nil
	}
	return domain.Configuration{}, fmt.Errorf("%w: %s", ErrNotFound, id)
}

func (m *Manager) indexLocked(id string) int {
	for i, c := range m.layouts {
		if c.ID == id {
			return i
		}
	}
	return -1
}

// newIDLocked returns prefix-<unix ms>, moved forward past taken ids.
func (m *Manager) newIDLocked(prefix string) string {
	ms := m.opts.Now().UnixMilli()
	for {
		id := fmt.Sprintf("%s-%d", prefix, ms)
		if m.indexLocked(id) < 0 {
			return id
		}
		ms++
	}
}

// Save stores cfg under a fresh layout-<unix ms> id.
func (m *Manager) Save(ctx context.Context, cfg domain.Configuration) (domain.Configuration, error) {
	l := applog.WithOperation(m.log, "save")
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.ID = m.newIDLocked("layout")
	if strings.TrimSpace(cfg.Name) == "" {
		cfg.Name = DefaultName
	}
	cfg.CreatedAt = m.opts.Now().UTC().Truncate(time.Millisecond)
	cfg.Version = domain.SchemaVersion
	ctx = applog.ContextWithTarget(ctx, cfg.ID)
	if err := m.appendLocked(ctx, cfg); err != nil {
		l.ErrorContext(ctx, "save failed", slog.String("name", cfg.Name), slog.Any("err", err))
		return domain.Configuration{}, err
	}
	l.InfoContext(ctx, "layout saved", slog.String("name", cfg.Name),
		slog.Int("components", len(cfg.Components)))
	return cfg, nil
}

// SaveCapture captures t and saves the result.
func (m *Manager) SaveCapture(ctx context.Context, t render.Tree, name, description string) (domain.Configuration, error) {
	return m.Save(ctx, Capture(t, name, description))
}

// Load hands the layout to the configured host and returns it.
func (m *Manager) Load(id string) (domain.Configuration, error) {
	cfg, err := m.Get(id)
	if err != nil {
		return cfg, err
	}
	if m.opts.Host != nil {
		if err := m.opts.Host(cfg); err != nil {
			return cfg, fmt.Errorf("apply layout %s: %w", id, err)
		}
	}
	m.log.Info("layout loaded", slog.String("id", id))
	return cfg, nil
}

// Delete removes the layout once confirm agrees. A nil confirm declines.
func (m *Manager) Delete(ctx context.Context, id string, confirm Confirm) error {
	ctx = applog.ContextWithTarget(ctx, id)
	m.mu.Lock()
	defer m.mu.Unlock()
	i := m.indexLocked(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if confirm == nil || !confirm(m.layouts[i]) {
		m.log.InfoContext(ctx, "delete declined")
		return ErrDeclined
	}
	prev := m.layouts
	next := make([]domain.Configuration, 0, len(prev)-1)
	next = append(next, prev[:i]...)
	next = append(next, prev[i+1:]...)
	if err := m.persistLocked(ctx, next); err != nil {
		m.log.ErrorContext(ctx, "delete failed", slog.Any("err", err))
		return err
	}
	m.log.InfoContext(ctx, "layout deleted")
	return nil
}

// Export returns the download file name and the pretty-printed document.
func (m *Manager) Export(id string) (string, []byte, error) {
	cfg, err := m.Get(id)
	if err != nil {
		return "", nil, err
	}
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return "", nil, fmt.Errorf("marshal layout: %w", err)
	}
	return FileName(cfg.Name), append(data, '\n'), nil
}

// ExportFile writes the exported document into dir and returns its path.
func (m *Manager) ExportFile(id, dir string) (string, error) {
	name, data, err := m.Export(id)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export dir: %w", err)
	}
	p := filepath.Join(dir, name)
	if err := writeFileSync(p, data); err != nil {
		return "", fmt.Errorf("write %s: %w", p, err)
	}
	return p, nil
}

// FileName lowercases name and strips everything but letters and digits.
func FileName(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		return "layout.json"
	}
	return b.String() + ".json"
}

// Import validates data and appends it under a fresh imported-<unix ms> id.
// A rejected document leaves the collection untouched.
func (m *Manager) Import(ctx context.Context, data []byte) (domain.Configuration, error) {
	l := applog.WithOperation(m.log, "import")
	cfg, err := Decode(data)
	if err != nil {
		l.Warn("import rejected", slog.Any("err", err))
		return domain.Configuration{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cfg.ID = m.newIDLocked("imported")
	ctx = applog.ContextWithTarget(ctx, cfg.ID)
	if err := m.appendLocked(ctx, cfg); err != nil {
		l.ErrorContext(ctx, "import failed", slog.Any("err", err))
		return domain.Configuration{}, err
	}
	l.InfoContext(ctx, "layout imported", slog.String("name", cfg.Name))
	return cfg, nil
}

// ImportFile reads path and imports it.
func (m *Manager) ImportFile(ctx context.Context, path string) (domain.Configuration, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return domain.Configuration{}, fmt.Errorf("read %s: %w", path, err)
	}
	return m.Import(ctx, data)
}

// Merge appends already validated configurations under imported ids in one
// write. Used by bundle installs.
func (m *Manager) Merge(ctx context.Context, cfgs []domain.Configuration) ([]domain.Configuration, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	next := append([]domain.Configuration(nil), m.layouts...)
	added := make([]domain.Configuration, 0, len(cfgs))
	ms := m.opts.Now().UnixMilli()
	for _, c := range cfgs {
		for m.indexLocked(fmt.Sprintf("imported-%d", ms)) >= 0 {
			ms++
		}
		c.ID = fmt.Sprintf("imported-%d", ms)
		ms++
		next = append(next, c)
		added = append(added, c)
	}
	if err := m.persistLocked(ctx, next); err != nil {
		return nil, err
	}
	return added, nil
}

func (m *Manager) appendLocked(ctx context.Context, cfg domain.Configuration) error {
	next := make([]domain.Configuration, 0, len(m.layouts)+1)
	next = append(next, m.layouts...)
	next = append(next, cfg)
	return m.persistLocked(ctx, next)
}

// persistLocked writes next and adopts it only when the write succeeded.
func (m *Manager) persistLocked(ctx context.Context, next []domain.Configuration) error {
	data, err := json.Marshal(next)
	if err != nil {
		return fmt.Errorf("marshal layouts: %w", err)
	}
	if err := m.store.Write(ctx, data); err != nil {
		return fmt.Errorf("write layouts: %w", err)
	}
	m.layouts = next
	m.gen++
	m.log.DebugContext(ctx, "collection written", slog.Int("count", len(next)), slog.Int("bytes", len(data)))
	return nil
}
