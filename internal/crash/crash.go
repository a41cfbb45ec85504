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
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"runtime/debug"
	"time"

	"pagecraft/internal/layout"
	applog "pagecraft/internal/log"
	"pagecraft/internal/telemetry"
	"pagecraft/internal/version"
)

// exitFn is used to allow testing of Recover without terminating the test process.
var exitFn = os.Exit

// Rescue tells Recover where to put the report and which layouts to dump.
// A nil Rescue or an empty Dir writes the report to the temp directory.
type Rescue struct {
	Dir     string
	Layouts *layout.Manager
}

// Recover captures a panic, logs an error with stacktrace,
// writes an error report file, and dumps the in-memory layout
// collection next to it (if provided).
//
// Usage: defer crash.Recover(rescue)
func Recover(rs *Rescue) {
	if r := recover(); r != nil {
		l := applog.WithComponent("crash")
		stack := debug.Stack()
		l.Error("panic recovered", slog.Any("panic", r), slog.String("stack", string(stack)))

		reportPath, _ := writeReport(rs, r, stack)
		if rs != nil && rs.Layouts != nil {
			if path, err := dumpLayouts(rs); err != nil {
				l.Error("layout crash snapshot failed", slog.Any("err", err))
			} else {
				l.Info("layout crash snapshot written", slog.String("path", path))
			}
		}

		if _, err := fmt.Fprintf(os.Stderr, "A fatal error occurred. A crash report was saved to: %s\n", reportPath); err != nil {
			l.Error("failed to write crash message to stderr", slog.Any("err", err))
		}
		if _, err := fmt.Fprintf(os.Stderr, "Version: %s\nOS/Arch: %s/%s\n", version.String(), runtime.GOOS, runtime.GOARCH); err != nil {
			l.Error("failed to write version info to stderr", slog.Any("err", err))
		}
		// Exit with a non-zero code to indicate failure in CLI context.
		exitFn(2)
	}
}

func reportDir(rs *Rescue) string {
	if rs == nil || rs.Dir == "" {
		return os.TempDir()
	}
	dir := filepath.Join(rs.Dir, layout.BackupsDirName)
	_ = os.MkdirAll(dir, 0o755)
	return dir
}

// dumpLayouts writes every layout the manager holds, so a panic between
// an edit and its persistence loses nothing.
func dumpLayouts(rs *Rescue) (string, error) {
	data, err := json.MarshalIndent(rs.Layouts.All(), "", "  ")
	if err != nil {
		return "", err
	}
	path := filepath.Join(reportDir(rs), fmt.Sprintf("crash-%s.layouts.json", time.Now().Format("20060102-150405")))
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}

func writeReport(rs *Rescue, panicVal any, stack []byte) (string, error) {
	dir := reportDir(rs)
	stamp := time.Now().Format("20060102-150405")
	fname := fmt.Sprintf("crash-%s.log", stamp)
	path := filepath.Join(dir, fname)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o644)
	if err != nil {
		return path, err
	}
	defer func() {
		if err := f.Close(); err != nil {
			applog.WithComponent("crash").Error("failed to close crash report file", slog.Any("err", err), slog.String("path", path))
		}
	}()

	var buf bytes.Buffer
	_, _ = fmt.Fprintf(&buf, "Pagecraft Crash Report\n")
	_, _ = fmt.Fprintf(&buf, "Timestamp: %s\n", time.Now().Format(time.RFC3339))
	_, _ = fmt.Fprintf(&buf, "Version: %s\n", version.String())
	_, _ = fmt.Fprintf(&buf, "OS/Arch: %s/%s\n", runtime.GOOS, runtime.GOARCH)
	if rs != nil {
		_, _ = fmt.Fprintf(&buf, "DataDir: %s\n", rs.Dir)
		if rs.Layouts != nil {
			_, _ = fmt.Fprintf(&buf, "Layouts: %d\n", rs.Layouts.Len())
		}
	}
	_, _ = fmt.Fprintf(&buf, "\nPanic: %v\n\n", panicVal)
	_, _ = fmt.Fprintf(&buf, "Stack:\n%s\n", string(stack))

	if _, err := f.Write(buf.Bytes()); err != nil {
		return path, err
	}
	_ = f.Sync()

	// optionally upload anonymized crash report (opt-in via env)
	telemetry.UploadCrash(buf.Bytes())
	return path, nil
}
