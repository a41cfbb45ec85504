/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package crash

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"pagecraft/internal/domain"
	"pagecraft/internal/layout"
)

// TestRecover_DumpsLayouts ensures Recover handles a panic, writes a report,
// dumps the layouts, and does not terminate the test process due to injected exitFn.
func TestRecover_DumpsLayouts(t *testing.T) {
	// Capture stderr temporarily to avoid noisy test logs
	oldStderr := os.Stderr
	r, w, _ := os.Pipe()
	os.Stderr = w
	defer func() {
		_ = w.Close()
		os.Stderr = oldStderr
		_, _ = io.Copy(io.Discard, r) // drain pipe
	}()

	called := 0
	oldExit := exitFn
	exitFn = func(code int) { called = code }
	defer func() { exitFn = oldExit }()

	ctx := context.Background()
	lm, err := layout.NewManager(ctx, &layout.MemoryStore{}, layout.Options{})
	if err != nil {
		t.Fatalf("manager: %v", err)
	}
	if _, err := lm.Save(ctx, domain.Configuration{Name: "Unsaved work", Components: []domain.ComponentLayout{{ID: "c1", Visible: true}}}); err != nil {
		t.Fatalf("save: %v", err)
	}

	root := t.TempDir()
	func() {
		defer Recover(&Rescue{Dir: root, Layouts: lm})
		panic("boom")
	}()

	bdir := filepath.Join(root, layout.BackupsDirName)
	files, _ := os.ReadDir(bdir)
	var report, dump string
	for _, f := range files {
		switch {
		case strings.HasSuffix(f.Name(), ".layouts.json"):
			dump = filepath.Join(bdir, f.Name())
		case strings.HasPrefix(f.Name(), "crash-") && strings.HasSuffix(f.Name(), ".log"):
			report = filepath.Join(bdir, f.Name())
		}
	}
	if report == "" || dump == "" {
		t.Fatalf("expected report and layout dump under backups dir, got %v", files)
	}
	b, err := os.ReadFile(report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if !bytes.Contains(b, []byte("Panic: boom")) || !bytes.Contains(b, []byte("Layouts: 1")) {
		t.Fatalf("report content: %s", string(b))
	}
	d, _ := os.ReadFile(dump)
	if !bytes.Contains(d, []byte("Unsaved work")) {
		t.Fatalf("dump misses layout: %s", d)
	}
	if called != 2 {
		t.Fatalf("expected exit code 2, got %d", called)
	}
}
