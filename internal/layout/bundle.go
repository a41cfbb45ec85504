/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package layout

import (
	"archive/zip"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"pagecraft/internal/domain"
	applog "pagecraft/internal/log"
	"pagecraft/internal/version"
)

// BundleManifestName is the manifest entry at the root of a bundle.
const BundleManifestName = "bundle.manifest.json"

// BundleManifest describes a layout bundle.
type BundleManifest struct {
	ID      string    `json:"id"`
	Created time.Time `json:"created"`
	App     string    `json:"app"`
	Files   []string  `json:"files"`
}

// BundleResult reports what an install did.
type BundleResult struct {
	Manifest  BundleManifest
	Installed []domain.Configuration
	Skipped   []string
}

// ExportBundle zips the given layouts (all when ids is empty) into destZip.
// Each layout becomes layouts/<file name>, numbered when names collide.
func (m *Manager) ExportBundle(destZip string, ids ...string) (BundleManifest, error) {
	l := applog.WithOperation(m.log, "bundle_export").With(slog.String("zip", destZip))
	if strings.TrimSpace(destZip) == "" {
		return BundleManifest{}, errors.New("destination zip is required")
	}
	var cfgs []domain.Configuration
	if len(ids) == 0 {
		cfgs = m.All()
	} else {
		for _, id := range ids {
			c, err := m.Get(id)
			if err != nil {
				return BundleManifest{}, err
			}
			cfgs = append(cfgs, c)
		}
	}
	if err := os.MkdirAll(filepath.Dir(destZip), 0o755); err != nil {
		return BundleManifest{}, fmt.Errorf("ensure zip dir: %w", err)
	}
	_ = os.Remove(destZip)
	zf, err := os.Create(destZip)
	if err != nil {
		return BundleManifest{}, fmt.Errorf("create zip: %w", err)
	}
	defer func() { _ = zf.Close() }()
	zw := zip.NewWriter(zf)

	man := BundleManifest{ID: uuid.NewString(), Created: m.opts.Now().UTC(), App: version.String()}
	used := map[string]int{}
	for _, c := range cfgs {
		name := FileName(c.Name)
		if n := used[name]; n > 0 {
			name = fmt.Sprintf("%s-%d.json", strings.TrimSuffix(name, ".json"), n)
		}
		used[FileName(c.Name)]++
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			_ = zw.Close()
			return BundleManifest{}, fmt.Errorf("marshal %s: %w", c.ID, err)
		}
		entry := path.Join("layouts", name)
		w, err := zw.Create(entry)
		if err != nil {
			_ = zw.Close()
			return BundleManifest{}, fmt.Errorf("add %s: %w", entry, err)
		}
		if _, err := w.Write(data); err != nil {
			_ = zw.Close()
			return BundleManifest{}, fmt.Errorf("write %s: %w", entry, err)
		}
		man.Files = append(man.Files, entry)
	}
	mb, err := json.MarshalIndent(man, "", "  ")
	if err != nil {
		_ = zw.Close()
		return BundleManifest{}, fmt.Errorf("marshal manifest: %w", err)
	}
	w, err := zw.Create(BundleManifestName)
	if err != nil {
		_ = zw.Close()
		return BundleManifest{}, fmt.Errorf("add manifest: %w", err)
	}
	if _, err := w.Write(mb); err != nil {
		_ = zw.Close()
		return BundleManifest{}, fmt.Errorf("write manifest: %w", err)
	}
	if err := zw.Close(); err != nil {
		return BundleManifest{}, fmt.Errorf("finish zip: %w", err)
	}
	l.Info("bundle exported", slog.String("bundle", man.ID), slog.Int("layouts", len(man.Files)))
	return man, nil
}

// InstallBundle imports every valid layouts/*.json entry of packZip in one
// write. Invalid or unsafe entries are skipped and reported.
func (m *Manager) InstallBundle(ctx context.Context, packZip string) (BundleResult, error) {
	l := applog.WithOperation(m.log, "bundle_install").With(slog.String("zip", packZip))
	var res BundleResult
	r, err := zip.OpenReader(packZip)
	if err != nil {
		return res, fmt.Errorf("open bundle: %w", err)
	}
	defer func() { _ = r.Close() }()

	var cfgs []domain.Configuration
	for _, f := range r.File {
		name := f.Name
		if f.FileInfo().IsDir() {
			continue
		}
		data, err := readEntry(f)
		if err != nil {
			return res, fmt.Errorf("read %s: %w", name, err)
		}
		if name == BundleManifestName {
			if err := json.Unmarshal(data, &res.Manifest); err != nil {
				l.Warn("unreadable manifest", slog.Any("err", err))
			}
			continue
		}
		if strings.Contains(name, "..") || path.IsAbs(name) || !strings.HasPrefix(name, "layouts/") ||
			!strings.HasSuffix(strings.ToLower(name), ".json") {
			l.Warn("skip entry", slog.String("entry", name))
			res.Skipped = append(res.Skipped, name)
			continue
		}
		cfg, err := Decode(data)
		if err != nil {
			l.Warn("skip invalid layout", slog.String("entry", name), slog.Any("err", err))
			res.Skipped = append(res.Skipped, name)
			continue
		}
		cfgs = append(cfgs, cfg)
	}
	if len(cfgs) > 0 {
		added, err := m.Merge(ctx, cfgs)
		if err != nil {
			return res, err
		}
		res.Installed = added
	}
	l.Info("bundle installed", slog.Int("layouts", len(res.Installed)), slog.Int("skipped", len(res.Skipped)))
	return res, nil
}

func readEntry(f *zip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer func() { _ = rc.Close() }()
	return io.ReadAll(io.LimitReader(rc, 16<<20))
}
