/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package rodtree reaches a live Chrome page through go-rod. A capture
// annotates the page with real geometry and visibility, snapshots it into an
// htmltree.Tree for the engine to work on, and Publish writes the edited body
// back.
package rodtree

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	applog "pagecraft/internal/log"
	"pagecraft/internal/render/htmltree"
)

// Options configures the browser connection.
type Options struct {
	// RemoteURL is the DevTools WebSocket URL of a running Chrome.
	// Empty launches a local browser.
	RemoteURL string
	Headless  bool
	// Timeout bounds navigation; 0 means 30s.
	Timeout time.Duration
}

// Browser wraps a connected rod browser and the launcher that started it.
type Browser struct {
	b    *rod.Browser
	lnch *launcher.Launcher
	opts Options
	log  *slog.Logger
}

// Open connects to RemoteURL or launches a local Chrome.
func Open(ctx context.Context, opts Options) (*Browser, error) {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	lg := applog.WithComponent("rodtree")
	br := &Browser{opts: opts, log: lg}

	wsURL := opts.RemoteURL
	if wsURL == "" {
		l := launcher.New().Headless(opts.Headless).Context(ctx)
		u, err := l.Launch()
		if err != nil {
			return nil, fmt.Errorf("browser launch: %w", err)
		}
		wsURL = u
		br.lnch = l
		lg.Info("launched local chrome", slog.String("url", wsURL), slog.Bool("headless", opts.Headless))
	} else {
		lg.Info("connecting to remote chrome", slog.String("url", wsURL))
	}

	b := rod.New().ControlURL(wsURL).Context(ctx)
	if err := b.Connect(); err != nil {
		if br.lnch != nil {
			br.lnch.Kill()
		}
		return nil, fmt.Errorf("browser connect: %w", err)
	}
	br.b = b
	return br, nil
}

// Page opens a tab on url and waits for it to load.
func (br *Browser) Page(ctx context.Context, url string) (*rod.Page, error) {
	page, err := br.b.Page(proto.TargetCreateTarget{URL: ""})
	if err != nil {
		return nil, fmt.Errorf("open tab: %w", err)
	}
	navCtx, cancel := context.WithTimeout(ctx, br.opts.Timeout)
	defer cancel()
	if err := page.Context(navCtx).Navigate(url); err != nil {
		_ = page.Close()
		return nil, fmt.Errorf("navigate %s: %w", url, err)
	}
	if err := page.Context(navCtx).WaitLoad(); err != nil {
		br.log.Warn("wait load", slog.String("url", url), slog.Any("err", err))
	}
	return page, nil
}

// Close disconnects and stops a launched browser.
func (br *Browser) Close() error {
	var err error
	if br.b != nil {
		err = br.b.Close()
	}
	if br.lnch != nil {
		br.lnch.Kill()
	}
	return err
}

// annotateJS tags every element with its viewport rect and visibility, copies
// whitelisted computed styles onto [data-selectable] elements and the root
// custom properties onto <html>, and records the scroll offset.
const annotateJS = `(styleProps, rootProps) => {
	const all = document.querySelectorAll('*');
	for (const el of all) {
		const r = el.getBoundingClientRect();
		el.setAttribute('data-rect', [r.left, r.top, r.width, r.height].join(','));
		const tag = el.tagName;
		if (tag !== 'HTML' && tag !== 'BODY' && el.offsetParent === null && getComputedStyle(el).position !== 'fixed') {
			el.setAttribute('data-pc-hidden', 'true');
		}
		if (el.hasAttribute('data-selectable')) {
			const cs = getComputedStyle(el);
			const out = {};
			for (const p of styleProps) { out[p] = cs.getPropertyValue(p); }
			el.setAttribute('data-pc-computed', JSON.stringify(out));
		}
	}
	const root = document.documentElement;
	const rs = getComputedStyle(root);
	const vars = {};
	for (const p of rootProps) {
		const v = rs.getPropertyValue(p).trim();
		if (v) { vars[p] = v; }
	}
	root.setAttribute('data-pc-computed', JSON.stringify(vars));
	root.setAttribute('data-pc-scroll', [window.scrollX, window.scrollY].join(','));
	return root.outerHTML;
}`

const stripJS = `(names) => {
	for (const el of document.querySelectorAll('*')) {
		for (const n of names) { el.removeAttribute(n); }
	}
}`

// Capture snapshots page into an htmltree.Tree. styleProps lists the computed
// properties recorded for [data-selectable] elements and rootProps the custom
// properties read from the document element.
func Capture(ctx context.Context, page *rod.Page, styleProps, rootProps []string) (*htmltree.Tree, error) {
	p := page.Context(ctx)
	res, err := p.Eval(annotateJS, styleProps, rootProps)
	if err != nil {
		return nil, fmt.Errorf("annotate page: %w", err)
	}
	markup := res.Value.Str()
	if _, err := p.Eval(stripJS, htmltree.Annotations); err != nil {
		applog.WithComponent("rodtree").Warn("strip annotations", slog.Any("err", err))
	}
	t, err := htmltree.ParseString("<!DOCTYPE html>" + markup)
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Publish writes the body of t back to the live page. Capture annotations
// are removed from a copy first so the live page stays clean.
func Publish(ctx context.Context, page *rod.Page, t *htmltree.Tree) error {
	body, err := cleanBody(t)
	if err != nil {
		return err
	}
	if _, err := page.Context(ctx).Eval(`(b) => { document.body.innerHTML = b; }`, body); err != nil {
		return fmt.Errorf("publish body: %w", err)
	}
	applog.WithComponent("rodtree").Debug("published body", slog.Int("bytes", len(body)))
	return nil
}

// cleanBody renders the body of t without capture annotations. t itself is
// left untouched.
func cleanBody(t *htmltree.Tree) (string, error) {
	clean, err := htmltree.ParseString(t.String())
	if err != nil {
		return "", err
	}
	clean.Strip()
	return clean.RenderBody(), nil
}
