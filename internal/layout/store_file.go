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
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	applog "pagecraft/internal/log"
)

// DefaultSlot is the name under which the layout collection is stored.
const DefaultSlot = "layoutConfigurations"

// BackupsDirName holds timestamped copies of previous collection files.
const BackupsDirName = "backups"

// DefaultKeepBackups is how many backups a FileStore retains unless Keep says
// otherwise.
const DefaultKeepBackups = 10

// Store keeps the serialized layout collection in a single named slot.
// Read returns nil data and no error when the slot was never written.
type Store interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close() error
}

// FileStore keeps the collection as a JSON file. Writes go to a temp file that
// is renamed over the target after the previous file was copied to backups/.
type FileStore struct {
	Path string
	// Keep bounds the backups kept after each write; 0 means DefaultKeepBackups.
	Keep int
}

// NewFileStore prepares dir and returns a store writing <dir>/<slot>.json.
func NewFileStore(dir, slot string) (*FileStore, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("store directory is required")
	}
	if slot == "" {
		slot = DefaultSlot
	}
	if err := os.MkdirAll(filepath.Join(dir, BackupsDirName), 0o755); err != nil {
		return nil, fmt.Errorf("create store dir: %w", err)
	}
	return &FileStore{Path: filepath.Join(dir, slot+".json")}, nil
}

func (s *FileStore) backupsDir() string { return filepath.Join(filepath.Dir(s.Path), BackupsDirName) }

// Read returns the current file. A missing file yields nil; an unreadable or
// corrupt one falls back to the latest backup.
func (s *FileStore) Read(_ context.Context) ([]byte, error) {
	b, err := os.ReadFile(s.Path)
	if errors.Is(err, os.ErrNotExist) {
		if latest, berr := s.latestBackup(); berr == nil {
			return latest, nil
		}
		return nil, nil
	}
	if err != nil || !json.Valid(b) {
		latest, berr := s.latestBackup()
		if berr != nil {
			if err == nil {
				err = errors.New("corrupt collection file")
			}
			return nil, fmt.Errorf("read %s: %w; backup attempt: %v", s.Path, err, berr)
		}
		return latest, nil
	}
	return b, nil
}

// Write replaces the file transactionally.
func (s *FileStore) Write(_ context.Context, data []byte) error {
	bdir := s.backupsDir()
	if err := os.MkdirAll(bdir, 0o755); err != nil {
		return fmt.Errorf("ensure backups dir: %w", err)
	}
	base := filepath.Base(s.Path)
	if _, statErr := os.Stat(s.Path); statErr == nil {
		stamp := time.Now().Format("20060102-150405.000000000")
		bpath := filepath.Join(bdir, fmt.Sprintf("%s.%s.bak", base, stamp))
		if err := copyFile(s.Path, bpath); err != nil {
			return fmt.Errorf("backup collection: %w", err)
		}
	}
	temp := filepath.Join(filepath.Dir(s.Path), fmt.Sprintf(".%s.tmp-%d-%d", base, os.Getpid(), rand.Int()))
	if err := writeFileSync(temp, data); err != nil {
		return fmt.Errorf("write temp collection: %w", err)
	}
	// Windows will not rename over an existing file.
	if _, err := os.Stat(s.Path); err == nil {
		_ = os.Remove(s.Path)
	}
	if err := os.Rename(temp, s.Path); err != nil {
		_ = os.Remove(temp)
		return fmt.Errorf("replace collection: %w", err)
	}
	s.pruneBackups()
	return nil
}

// pruneBackups removes all but the Keep newest backups. Failures only cost
// disk space, so they are logged and otherwise ignored.
func (s *FileStore) pruneBackups() {
	keep := s.Keep
	if keep <= 0 {
		keep = DefaultKeepBackups
	}
	all, err := s.Backups()
	if err != nil || len(all) <= keep {
		return
	}
	for _, old := range all[:len(all)-keep] {
		if err := os.Remove(old); err != nil {
			applog.WithComponent("layout").Warn("prune backup", slog.String("file", old), slog.Any("err", err))
		}
	}
}

// Close is a no-op.
func (s *FileStore) Close() error { return nil }

// Backups lists backup files oldest first.
func (s *FileStore) Backups() ([]string, error) {
	ents, err := os.ReadDir(s.backupsDir())
	if err != nil {
		return nil, fmt.Errorf("read backups dir: %w", err)
	}
	prefix := filepath.Base(s.Path) + "."
	var out []string
	for _, e := range ents {
		name := e.Name()
		if strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".bak") {
			out = append(out, filepath.Join(s.backupsDir(), name))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *FileStore) latestBackup() ([]byte, error) {
	all, err := s.Backups()
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		return nil, errors.New("no backups found")
	}
	for i := len(all) - 1; i >= 0; i-- {
		b, err := os.ReadFile(all[i])
		if err == nil && json.Valid(b) {
			return b, nil
		}
	}
	return nil, errors.New("no readable backup")
}

func writeFileSync(path string, data []byte) (err error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := f.Write(data); err != nil {
		return err
	}
	return f.Sync()
}

func copyFile(src, dst string) (err error) {
	sf, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := sf.Close(); err == nil {
			err = cerr
		}
	}()
	df, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := df.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err := io.Copy(df, sf); err != nil {
		return err
	}
	return df.Sync()
}
