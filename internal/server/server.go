/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package server exposes the saved layouts over a small HTTP API, so a page
// host can list, fetch and import layouts without touching the store.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"pagecraft/internal/domain"
	"pagecraft/internal/export"
	"pagecraft/internal/layout"
	applog "pagecraft/internal/log"
	"pagecraft/internal/telemetry"
	"pagecraft/internal/version"
)

// MaxImportBytes caps the request body of an import.
const MaxImportBytes = 4 << 20

// Options configures the handler.
type Options struct {
	// Ready reports backing store health for /readyz; nil means always ready.
	Ready func(ctx context.Context) error
}

type api struct {
	layouts *layout.Manager
	opts    Options
	log     *slog.Logger
}

// New returns the HTTP handler serving lm.
func New(lm *layout.Manager, opts Options) http.Handler {
	a := &api{layouts: lm, opts: opts, log: applog.WithComponent("server")}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(a.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Get("/readyz", a.handleReady)
	r.Get("/version", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(version.String()))
	})

	r.Route("/api/layouts", func(r chi.Router) {
		r.Get("/", a.handleList)
		r.Post("/import", a.handleImport)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", a.handleGet)
			r.Delete("/", a.handleDelete)
			r.Get("/export", a.handleExport)
			r.Get("/thumbnail.png", a.handleThumbnail)
		})
	})
	return r
}

func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		a.log.Debug("request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.String("req_id", middleware.GetReqID(r.Context())),
			slog.Duration("took", time.Since(start)))
	})
}

func (a *api) handleReady(w http.ResponseWriter, r *http.Request) {
	if a.opts.Ready != nil {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := a.opts.Ready(ctx); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("store not ready"))
			return
		}
	}
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

func (a *api) handleList(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, a.layouts.List())
}

func (a *api) handleGet(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.layouts.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.writeLayoutError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleDelete requires ?confirm=true; the query flag is the HTTP form of
// the operator confirmation.
func (a *api) handleDelete(w http.ResponseWriter, r *http.Request) {
	ok, _ := strconv.ParseBool(r.URL.Query().Get("confirm"))
	err := a.layouts.Delete(r.Context(), chi.URLParam(r, "id"), func(domain.Configuration) bool { return ok })
	if err != nil {
		a.writeLayoutError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) handleExport(w http.ResponseWriter, r *http.Request) {
	name, data, err := a.layouts.Export(chi.URLParam(r, "id"))
	if err != nil {
		a.writeLayoutError(w, err)
		return
	}
	telemetry.Event(telemetry.EventLayoutExported, map[string]any{"via": "http"})
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

func (a *api) handleThumbnail(w http.ResponseWriter, r *http.Request) {
	cfg, err := a.layouts.Get(chi.URLParam(r, "id"))
	if err != nil {
		a.writeLayoutError(w, err)
		return
	}
	width, _ := strconv.Atoi(r.URL.Query().Get("w"))
	if width > 2048 {
		width = 2048
	}
	img, err := export.Thumbnail(cfg, export.PNGOptions{Width: width, MaxHeight: 2048, Labels: true})
	if err != nil {
		a.writeLayoutError(w, err)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	if err := enc.Encode(w, img); err != nil {
		a.log.Warn("encode thumbnail", slog.Any("err", err))
	}
}

func (a *api) handleImport(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, MaxImportBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, err)
		return
	}
	cfg, err := a.layouts.Import(r.Context(), data)
	if err != nil {
		a.writeLayoutError(w, err)
		return
	}
	telemetry.Event(telemetry.EventLayoutImported, map[string]any{"via": "http"})
	writeJSON(w, http.StatusCreated, cfg.Summarize())
}

func (a *api) writeLayoutError(w http.ResponseWriter, err error) {
	var verr *layout.ValidationError
	switch {
	case errors.Is(err, layout.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, layout.ErrDeclined):
		writeError(w, http.StatusConflict, errors.New("delete requires confirm=true"))
	case errors.As(err, &verr):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
			"error": verr.Error(), "missing": verr.Missing, "problems": verr.Problems,
		})
	case errors.Is(err, layout.ErrMalformed):
		writeError(w, http.StatusBadRequest, err)
	case errors.Is(err, export.ErrEmpty), errors.Is(err, export.ErrExtent):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		a.log.Error("layout request failed", slog.Any("err", err))
		writeError(w, http.StatusInternalServerError, errors.New("internal error"))
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	_ = enc.Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]any{"error": err.Error()})
}

// Serve runs h on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, h http.Handler) error {
	srv := &http.Server{Addr: addr, Handler: h, ReadHeaderTimeout: 10 * time.Second}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	applog.WithComponent("server").Info("listening", slog.String("addr", addr))
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(sctx); err != nil {
			return err
		}
		return nil
	}
}
