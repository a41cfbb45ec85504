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
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBundleRoundTrip(t *testing.T) {
	ctx := context.Background()
	src := newManager(t, &MemoryStore{})
	_, err := src.Save(ctx, capturePage(t))
	require.NoError(t, err)
	second := capturePage(t)
	_, err = src.Save(ctx, second)
	require.NoError(t, err)

	zpath := filepath.Join(t.TempDir(), "out", "layouts.zip")
	man, err := src.ExportBundle(zpath)
	require.NoError(t, err)
	_, err = uuid.Parse(man.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"layouts/l1.json", "layouts/l1-1.json"}, man.Files)

	dst := newManager(t, &MemoryStore{})
	res, err := dst.InstallBundle(ctx, zpath)
	require.NoError(t, err)
	assert.Equal(t, man.ID, res.Manifest.ID)
	require.Len(t, res.Installed, 2)
	assert.Empty(t, res.Skipped)
	assert.NotEqual(t, res.Installed[0].ID, res.Installed[1].ID)
	for _, c := range dst.All() {
		assert.True(t, strings.HasPrefix(c.ID, "imported-"))
		assert.Len(t, c.Components, 3)
	}
}

func TestBundleSkipsBadEntries(t *testing.T) {
	zpath := filepath.Join(t.TempDir(), "bad.zip")
	f, err := os.Create(zpath)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range map[string]string{
		"../evil.json":         `{"id":"a","name":"a","components":[]}`,
		"layouts/missing.json": `{"id":"b","name":"b"}`,
		"layouts/ok.json":      `{"id":"c","name":"c","components":[]}`,
		"layouts/readme.txt":   "hello",
		"layouts/nested/":      "",
		"layouts/notjson.json": "{",
	} {
		if strings.HasSuffix(name, "/") {
			_, err := zw.Create(name)
			require.NoError(t, err)
			continue
		}
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())

	m := newManager(t, &MemoryStore{})
	res, err := m.InstallBundle(context.Background(), zpath)
	require.NoError(t, err)
	require.Len(t, res.Installed, 1)
	assert.Equal(t, "c", res.Installed[0].Name)
	assert.Len(t, res.Skipped, 4)
	assert.Equal(t, 1, m.Len())
}

func TestExportBundleUnknownID(t *testing.T) {
	m := newManager(t, &MemoryStore{})
	_, err := m.ExportBundle(filepath.Join(t.TempDir(), "x.zip"), "nope")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = m.ExportBundle("")
	assert.Error(t, err)
}

func TestWatchReloadsOnExternalWrite(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir, "")
	require.NoError(t, err)
	watched := newManager(t, fs)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	reloaded := make(chan error, 8)
	require.NoError(t, watched.Watch(ctx, fs, func(err error) { reloaded <- err }))

	other := newManager(t, fs)
	_, err = other.Save(context.Background(), capturePage(t))
	require.NoError(t, err)

	select {
	case err := <-reloaded:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("no reload after external write")
	}
	assert.Eventually(t, func() bool { return watched.Len() == 1 }, 2*time.Second, 20*time.Millisecond)
}
