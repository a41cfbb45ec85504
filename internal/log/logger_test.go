/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package log

import (
	"bufio"
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// lastJSONLine parses the last non-empty line of a JSON log file.
func lastJSONLine(t *testing.T, path string) map[string]any {
	t.Helper()
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	scanner := bufio.NewScanner(strings.NewReader(string(b)))
	var last string
	for scanner.Scan() {
		if s := strings.TrimSpace(scanner.Text()); s != "" {
			last = s
		}
	}
	if last == "" {
		t.Fatalf("no log lines found")
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(last), &m); err != nil {
		t.Fatalf("unmarshal json log: %v", err)
	}
	return m
}

func TestInitAndStructuredLoggingToFile(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "pcf.json")
	Init(Options{Level: "debug", Format: "json", File: fpath})

	l := WithOperation(WithComponent("tables"), "apply")
	l.Info("columns applied", slog.Int("columns", 3))

	m := lastJSONLine(t, fpath)
	if m["app"] != "pagecraft" {
		t.Fatalf("missing app attr: %v", m["app"])
	}
	if _, ok := m["ver"].(string); !ok {
		t.Fatalf("missing ver attr")
	}
	if m["component"] != "tables" || m["op"] != "apply" {
		t.Fatalf("component/op mismatch: %v %v", m["component"], m["op"])
	}
	if m["msg"] != "columns applied" {
		t.Fatalf("msg mismatch: %v", m["msg"])
	}
}

func TestContextTargetIsRecorded(t *testing.T) {
	fpath := filepath.Join(t.TempDir(), "target.json")
	Init(Options{Level: "info", Format: "json", File: fpath})

	ctx := ContextWithTarget(context.Background(), "layout-42")
	WithComponent("layout").InfoContext(ctx, "layout saved")

	m := lastJSONLine(t, fpath)
	if m["target"] != "layout-42" {
		t.Fatalf("target attr mismatch: %v", m["target"])
	}
}
