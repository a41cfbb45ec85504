/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

package server

import (
	"context"
	"encoding/json"
	"errors"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pagecraft/internal/domain"
	"pagecraft/internal/layout"
)

func newAPI(t *testing.T, opts Options) (*httptest.Server, *layout.Manager, domain.Configuration) {
	t.Helper()
	ctx := context.Background()
	lm, err := layout.NewManager(ctx, &layout.MemoryStore{}, layout.Options{})
	require.NoError(t, err)
	cfg, err := lm.Save(ctx, domain.Configuration{
		Name: "Staff View",
		Components: []domain.ComponentLayout{
			{ID: "grid", Type: "table", Size: domain.Size{Width: 400, Height: 200}, Visible: true},
		},
		GlobalStyles: domain.DefaultGlobalStyles(),
	})
	require.NoError(t, err)
	srv := httptest.NewServer(New(lm, opts))
	t.Cleanup(srv.Close)
	return srv, lm, cfg
}

func do(t *testing.T, method, url, body string) *http.Response {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	return resp
}

func TestHealthAndVersion(t *testing.T) {
	srv, _, _ := newAPI(t, Options{})
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/healthz", "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/version", "").StatusCode)
	assert.Equal(t, http.StatusOK, do(t, http.MethodGet, srv.URL+"/readyz", "").StatusCode)

	down, _, _ := newAPI(t, Options{Ready: func(context.Context) error { return errors.New("down") }})
	assert.Equal(t, http.StatusServiceUnavailable, do(t, http.MethodGet, down.URL+"/readyz", "").StatusCode)
}

func TestListAndGet(t *testing.T) {
	srv, _, cfg := newAPI(t, Options{})
	resp := do(t, http.MethodGet, srv.URL+"/api/layouts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var list []domain.Summary
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&list))
	require.Len(t, list, 1)
	assert.Equal(t, cfg.ID, list[0].ID)
	assert.Equal(t, 1, list[0].Components)

	resp = do(t, http.MethodGet, srv.URL+"/api/layouts/"+cfg.ID, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	var got domain.Configuration
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
	assert.Equal(t, "Staff View", got.Name)

	assert.Equal(t, http.StatusNotFound, do(t, http.MethodGet, srv.URL+"/api/layouts/nope", "").StatusCode)
}

func TestExportAndThumbnail(t *testing.T) {
	srv, _, cfg := newAPI(t, Options{})
	resp := do(t, http.MethodGet, srv.URL+"/api/layouts/"+cfg.ID+"/export", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), `filename="staffview.json"`)

	resp = do(t, http.MethodGet, srv.URL+"/api/layouts/"+cfg.ID+"/thumbnail.png?w=100", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	img, err := png.Decode(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, 100, img.Bounds().Dx())
}

func TestImport(t *testing.T) {
	srv, lm, _ := newAPI(t, Options{})
	resp := do(t, http.MethodPost, srv.URL+"/api/layouts/import", `{"id":"x","name":"y"}`)
	require.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	var body struct {
		Missing []string `json:"missing"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Contains(t, body.Missing, "components")

	assert.Equal(t, http.StatusBadRequest, do(t, http.MethodPost, srv.URL+"/api/layouts/import", `{nope`).StatusCode)

	doc := `{"id":"x","name":"Imported","components":[{"id":"c1","visible":true,"size":{"width":1,"height":1}}]}`
	resp = do(t, http.MethodPost, srv.URL+"/api/layouts/import", doc)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 2, lm.Len())
}

func TestDeleteNeedsConfirm(t *testing.T) {
	srv, lm, cfg := newAPI(t, Options{})
	assert.Equal(t, http.StatusConflict, do(t, http.MethodDelete, srv.URL+"/api/layouts/"+cfg.ID, "").StatusCode)
	assert.Equal(t, 1, lm.Len())
	assert.Equal(t, http.StatusNoContent, do(t, http.MethodDelete, srv.URL+"/api/layouts/"+cfg.ID+"?confirm=true", "").StatusCode)
	assert.Zero(t, lm.Len())
}

func TestServeStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler()) }()
	cancel()
	assert.NoError(t, <-done)
}
