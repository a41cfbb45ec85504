/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package telemetry

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
)

// collector records posted event payloads.
type collector struct {
	mu     sync.Mutex
	events []map[string]any
}

func (c *collector) handler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_ = r.Body.Close()
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Errorf("bad event json %q: %v", b, err)
		}
		c.mu.Lock()
		c.events = append(c.events, m)
		c.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}
}

func (c *collector) wait(n int) []map[string]any {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		c.mu.Lock()
		got := len(c.events)
		c.mu.Unlock()
		if got >= n {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]map[string]any(nil), c.events...)
}

func TestEditorEventsShareOneSession(t *testing.T) {
	col := &collector{}
	srv := httptest.NewServer(col.handler(t))
	defer srv.Close()

	c := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer c.Close()
	if _, err := uuid.Parse(c.Session()); err != nil {
		t.Fatalf("session is not a uuid: %q", c.Session())
	}

	c.Event(EventEditorActivated, map[string]any{"elements": 4})
	c.Event(EventEditorOpened, map[string]any{"kind": "table"})
	c.Event(EventLayoutSaved, map[string]any{"components": 2})
	c.Flush(context.Background())

	got := col.wait(3)
	if len(got) != 3 {
		t.Fatalf("expected 3 events, got %d", len(got))
	}
	names := map[string]bool{}
	for _, m := range got {
		if m["session"] != c.Session() {
			t.Fatalf("event %v has session %v, want %s", m["name"], m["session"], c.Session())
		}
		names[m["name"].(string)] = true
	}
	for _, want := range []string{EventEditorActivated, EventEditorOpened, EventLayoutSaved} {
		if !names[want] {
			t.Fatalf("missing event %s in %v", want, names)
		}
	}

	other := New(Config{})
	defer other.Close()
	if other.Session() == c.Session() {
		t.Fatalf("two clients share session %s", c.Session())
	}
}

func TestDisabledClientSendsNothing(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	off := New(Config{OptIn: false, EventsURL: srv.URL, CrashURL: srv.URL, Timeout: time.Second})
	defer off.Close()
	off.Event(EventLayoutExported, map[string]any{"via": "cli"})
	off.UploadCrash([]byte("Pagecraft Crash Report"))

	noURL := New(Config{OptIn: true})
	defer noURL.Close()
	if noURL.Enabled() {
		t.Fatalf("client without endpoint must be disabled")
	}
	noURL.Event(EventLayoutImported, nil)

	on := New(Config{OptIn: true, EventsURL: srv.URL, Timeout: time.Second})
	defer on.Close()
	on.Event("", map[string]any{"via": "cli"})
	on.Flush(context.Background())

	time.Sleep(50 * time.Millisecond)
	if n := atomic.LoadInt32(&hits); n != 0 {
		t.Fatalf("expected no requests, got %d", n)
	}
}
