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
	"testing"
	"time"
)

func TestUnreachableEndpointDoesNotBlock(t *testing.T) {
	c := New(Config{
		OptIn:        true,
		EventsURL:    "http://127.0.0.1:1/events",
		CrashURL:     "http://127.0.0.1:1/crash",
		Timeout:      50 * time.Millisecond,
		DebugLogging: true,
	})
	defer c.Close()

	start := time.Now()
	for i := 0; i < 100; i++ {
		c.Event(EventLayoutLoaded, map[string]any{"n": i})
	}
	if time.Since(start) > time.Second {
		t.Fatalf("Event blocked on a full queue")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	start = time.Now()
	c.Flush(ctx)
	if time.Since(start) > 700*time.Millisecond {
		t.Fatalf("Flush ignored its deadline: %v", time.Since(start))
	}
	c.UploadCrash([]byte("Pagecraft Crash Report"))
}

func TestPackageFlushWithoutDefaultClient(t *testing.T) {
	saved := defaultClient
	defaultClient = nil
	defer func() { defaultClient = saved }()
	Flush(context.Background())
}
