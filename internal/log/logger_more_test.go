/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package log

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"sync"
	"testing"
)

func TestFromEnvReadsRotationSize(t *testing.T) {
	t.Setenv("PCF_LOG_LEVEL", "debug")
	t.Setenv("PCF_LOG_FILE", "/var/log/pagecraft.log")
	t.Setenv("PCF_LOG_MAX_MB", "64")

	opts := FromEnv()
	if opts.Level != "debug" || opts.File != "/var/log/pagecraft.log" || opts.MaxSizeMB != 64 {
		t.Fatalf("FromEnv mismatch: %+v", opts)
	}
	if opts.Format != "console" || opts.AddSource {
		t.Fatalf("unset vars should keep defaults: %+v", opts)
	}

	for _, bad := range []string{"many", "-3"} {
		t.Setenv("PCF_LOG_MAX_MB", bad)
		if got := FromEnv().MaxSizeMB; got != 0 {
			t.Fatalf("PCF_LOG_MAX_MB=%q gave %d, want 0", bad, got)
		}
	}
}

func consoleLogger(buf *bytes.Buffer, level slog.Level, source bool) *slog.Logger {
	h := &prettyTextHandler{opts: prettyOpts{Level: level, AddSource: source}, w: buf, mu: &sync.Mutex{}}
	return slog.New(withEnricher(h))
}

func TestConsoleLineCarriesSourceAndTarget(t *testing.T) {
	var buf bytes.Buffer
	l := WithOperation(consoleLogger(&buf, slog.LevelInfo, true).With(slog.String("component", "menus")), "move")

	ctx := ContextWithTarget(context.Background(), "mi-0.1")
	l.InfoContext(ctx, "item moved", slog.String("menu", "side"), slog.Bool("asChild", true))

	out := buf.String()
	for _, want := range []string{"INF item moved", "component=menus", "op=move", "menu=side", "asChild=true", "target=mi-0.1", "src=", "logger_more_test.go:"} {
		if !strings.Contains(out, want) {
			t.Fatalf("console line lacks %q: %q", want, out)
		}
	}
}

func TestConsoleLevelsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	l := consoleLogger(&buf, slog.LevelWarn, false)

	l.Info("classified", slog.Int("elements", 3))
	if buf.Len() != 0 {
		t.Fatalf("info written at warn level: %q", buf.String())
	}

	l.WithGroup("column").Error("resize rejected", slog.String("id", "col-2"), slog.Float64("width", 512.5))
	out := buf.String()
	if !strings.Contains(out, "ERR resize rejected") || !strings.Contains(out, "column.id=col-2") || !strings.Contains(out, "column.width=512.5") {
		t.Fatalf("unexpected console line: %q", out)
	}
	if strings.Contains(out, "src=") {
		t.Fatalf("source written without AddSource: %q", out)
	}
	if strings.Contains(out, "target=") {
		t.Fatalf("target written without a context id: %q", out)
	}
}
