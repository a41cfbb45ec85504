/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"

	"github.com/go-rod/rod"

	"pagecraft/internal/classify"
	"pagecraft/internal/config"
	"pagecraft/internal/crash"
	"pagecraft/internal/domain"
	"pagecraft/internal/export"
	"pagecraft/internal/layout"
	applog "pagecraft/internal/log"
	"pagecraft/internal/menus"
	"pagecraft/internal/render"
	"pagecraft/internal/render/htmltree"
	"pagecraft/internal/render/rodtree"
	"pagecraft/internal/server"
	"pagecraft/internal/tables"
	"pagecraft/internal/telemetry"
	"pagecraft/internal/ui"
	"pagecraft/internal/version"
)

func usage() {
	fmt.Println("Pagecraft - live layout editor")
	fmt.Printf("Version: %s\n", version.String())
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  pagecraft version|-v|--version                      Show version")
	fmt.Println("  pagecraft classify <page.html>                      List editable elements")
	fmt.Println("  pagecraft columns <page.html> <table-id> [move <col> <before-col> <out.html>]")
	fmt.Println("                                                      Show or reorder table columns")
	fmt.Println("  pagecraft menu <page.html> <menu-id> [move <item> <target> [child] <out.html>]")
	fmt.Println("                                                      Show or rearrange a menu tree")
	fmt.Println("  pagecraft capture <url> <out.html>                  Snapshot a live page with geometry")
	fmt.Println("  pagecraft publish <url> <page.html>                 Push an edited page body back into a live page")
	fmt.Println("  pagecraft live <url> <name>                         Capture a live page and save its layout")
	fmt.Println("  pagecraft save <page.html> <name> [description]     Save the layout of a captured page")
	fmt.Println("  pagecraft list                                      List saved layouts")
	fmt.Println("  pagecraft show <id>                                 Print a saved layout as JSON")
	fmt.Println("  pagecraft delete <id> --yes                         Delete a saved layout")
	fmt.Println("  pagecraft export <id> <dir>                         Write a layout file into <dir>")
	fmt.Println("  pagecraft import <file.json>                        Import a layout file")
	fmt.Println("  pagecraft bundle <out.zip> [id...]                  Zip layouts into a bundle")
	fmt.Println("  pagecraft unbundle <bundle.zip>                     Install the layouts of a bundle")
	fmt.Println("  pagecraft render <id> <out.pdf|out.png>             Render a wireframe or thumbnail")
	fmt.Println("  pagecraft serve [addr]                              Serve the layout HTTP API")
	fmt.Println("  pagecraft ui <page.html>                            Launch desktop editor (build with -tags fyne)")
	fmt.Println("                                                      with general.enable_server the layout API runs beside it")
}

func fail(l *slog.Logger, msg string, err error) {
	l.Error(msg, slog.Any("err", err))
	fmt.Println("Error:", err)
	os.Exit(1)
}

func need(args []string, n int, what string) {
	if len(args) < n {
		fmt.Println(args[1], "requires", what)
		usage()
		os.Exit(2)
	}
}

func main() {
	cfg, dsn, cfgErr := config.Load()
	applog.Init(applog.Options{
		Level: cfg.Logging.Level, Format: cfg.Logging.Format,
		AddSource: cfg.Logging.Source, File: cfg.Logging.File,
		MaxSizeMB: cfg.Logging.MaxSizeMB,
	})
	l := applog.WithComponent("cli")
	if cfgErr != nil {
		l.Warn("config ignored", slog.Any("err", cfgErr))
	}
	telemetry.NewDefault(telemetryConfig(cfg))
	rescue := &crash.Rescue{}
	defer crash.Recover(rescue)

	args := os.Args
	l.Debug("start", slog.Int("args", len(args)))
	if len(args) < 2 {
		usage()
		return
	}
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	switch args[1] {
	case "version", "--version", "-v":
		fmt.Println("Pagecraft - live layout editor")
		fmt.Println(version.String())
		return
	case "classify":
		need(args, 3, "<page.html>")
		tree := mustPage(l, args[2])
		reg := classify.Classify(tree, classify.Options{MinSize: cfg.Editor.MinSize})
		for _, e := range reg.All() {
			fmt.Printf("%-8s %-24s %-32s %s\n", e.Type, e.ID, e.Name, e.Selector)
		}
		fmt.Printf("%d elements\n", reg.Len())
		return
	case "columns":
		need(args, 4, "<page.html> <table-id>")
		runColumns(l, cfg, args)
		return
	case "menu":
		need(args, 4, "<page.html> <menu-id>")
		runMenu(l, args)
		return
	case "capture":
		need(args, 4, "<url> <out.html>")
		tree := mustLive(ctx, l, cfg, args[2])
		if err := os.WriteFile(args[3], []byte(tree.String()), 0o644); err != nil {
			fail(l, "write page failed", err)
		}
		fmt.Println("Captured", args[2], "to", args[3])
		return
	case "publish":
		need(args, 4, "<url> <page.html>")
		runPublish(ctx, l, cfg, args[2], args[3])
		return
	case "ui":
		need(args, 3, "<page.html>")
	}

	e, err := newEnv(ctx, cfg, dsn)
	if err != nil {
		fail(l, "storage unavailable", err)
	}
	defer func() { _ = e.Close() }()
	rescue.Dir, rescue.Layouts = e.dir, e.layouts

	switch args[1] {
	case "live":
		need(args, 4, "<url> <name>")
		tree := mustLive(ctx, l, cfg, args[2])
		saveCapture(ctx, l, e, tree, args[3], "Captured from "+args[2])
	case "save":
		need(args, 4, "<page.html> <name>")
		desc := ""
		if len(args) > 4 {
			desc = strings.Join(args[4:], " ")
		}
		saveCapture(ctx, l, e, mustPage(l, args[2]), args[3], desc)
	case "list":
		for _, s := range e.layouts.List() {
			fmt.Printf("%-24s %-28s %s  components=%d tables=%d menus=%d\n",
				s.ID, s.Name, s.CreatedAt.Local().Format("2006-01-02 15:04"), s.Components, s.Tables, s.Menus)
		}
	case "show":
		need(args, 3, "<id>")
		_, data, err := e.layouts.Export(args[2])
		if err != nil {
			fail(l, "show failed", err)
		}
		_, _ = os.Stdout.Write(data)
	case "delete":
		need(args, 3, "<id>")
		yes := len(args) > 3 && (args[3] == "--yes" || args[3] == "-y")
		err := e.layouts.Delete(ctx, args[2], func(domain.Configuration) bool { return yes })
		if errors.Is(err, layout.ErrDeclined) {
			fmt.Println("Not deleted. Re-run with --yes to confirm.")
			os.Exit(2)
		}
		if err != nil {
			fail(l, "delete failed", err)
		}
		fmt.Println("Deleted", args[2])
	case "export":
		need(args, 4, "<id> <dir>")
		p, err := e.layouts.ExportFile(args[2], args[3])
		if err != nil {
			fail(l, "export failed", err)
		}
		telemetry.Event(telemetry.EventLayoutExported, map[string]any{"via": "cli"})
		fmt.Println("Exported to", p)
	case "import":
		need(args, 3, "<file.json>")
		c, err := e.layouts.ImportFile(ctx, args[2])
		var verr *layout.ValidationError
		if errors.As(err, &verr) {
			fmt.Println("Invalid layout file:", verr.Error())
			os.Exit(1)
		}
		if err != nil {
			fail(l, "import failed", err)
		}
		telemetry.Event(telemetry.EventLayoutImported, map[string]any{"via": "cli"})
		fmt.Printf("Imported %q as %s\n", c.Name, c.ID)
	case "bundle":
		need(args, 3, "<out.zip>")
		man, err := e.layouts.ExportBundle(args[2], args[3:]...)
		if err != nil {
			fail(l, "bundle failed", err)
		}
		fmt.Printf("Bundled %d layouts into %s (bundle %s)\n", len(man.Files), args[2], man.ID)
	case "unbundle":
		need(args, 3, "<bundle.zip>")
		res, err := e.layouts.InstallBundle(ctx, args[2])
		if err != nil {
			fail(l, "unbundle failed", err)
		}
		fmt.Printf("Installed %d layouts, skipped %d\n", len(res.Installed), len(res.Skipped))
		for _, s := range res.Skipped {
			fmt.Println("  skipped:", s)
		}
	case "render":
		need(args, 4, "<id> <out.pdf|out.png>")
		runRender(l, e, args[2], args[3])
	case "serve":
		addr := cfg.Server.Addr
		if len(args) > 2 {
			addr = args[2]
		}
		if fs, ok := e.store.(*layout.FileStore); ok {
			go func() {
				err := e.layouts.Watch(ctx, fs, func(err error) {
					if err != nil {
						l.Warn("reload after external change failed", slog.Any("err", err))
					}
				})
				if err != nil && !errors.Is(err, context.Canceled) {
					l.Warn("watch stopped", slog.Any("err", err))
				}
			}()
		}
		h := server.New(e.layouts, server.Options{Ready: e.ready()})
		if err := server.Serve(ctx, addr, h); err != nil {
			fail(l, "server failed", err)
		}
	case "ui":
		sctx, cancel := context.WithCancel(ctx)
		served := serveBeside(sctx, l, cfg, e)
		err := ui.Run(ui.Options{
			Page: args[2], DataDir: e.dir, MinSize: cfg.Editor.MinSize,
			Limits: e.limits(), Undo: e.undoManager(), Layouts: e.layouts,
			Theme: cfg.General.Theme,
		})
		cancel()
		if served != nil {
			<-served
		}
		if err != nil {
			fail(l, "ui failed", err)
		}
	default:
		usage()
	}
	telemetry.Flush(ctx)
}

func telemetryConfig(cfg config.AppConfig) telemetry.Config {
	tc := telemetry.FromEnv()
	tc.OptIn = tc.OptIn || cfg.General.TelemetryOptIn
	return tc
}

func mustPage(l *slog.Logger, path string) *htmltree.Tree {
	f, err := os.Open(path)
	if err != nil {
		fail(l, "open page failed", err)
	}
	defer f.Close()
	t, err := htmltree.Parse(f)
	if err != nil {
		fail(l, "parse page failed", err)
	}
	return t
}

// serveBeside runs the layout API next to the desktop editor when
// general.enable_server is set. The channel yields the server result after
// ctx ends; it is nil when the server is disabled.
func serveBeside(ctx context.Context, l *slog.Logger, cfg config.AppConfig, e *env) <-chan error {
	if !cfg.General.EnableServer {
		return nil
	}
	done := make(chan error, 1)
	go func() {
		h := server.New(e.layouts, server.Options{Ready: e.ready()})
		err := server.Serve(ctx, cfg.Server.Addr, h)
		if err != nil {
			l.Warn("layout server stopped", slog.Any("err", err))
		}
		done <- err
	}()
	return done
}

func openLive(ctx context.Context, l *slog.Logger, cfg config.AppConfig, url string) (*rodtree.Browser, *rod.Page) {
	br, err := rodtree.Open(ctx, rodtree.Options{
		RemoteURL: cfg.Browser.RemoteURL, Headless: cfg.Browser.Headless, Timeout: cfg.Browser.Timeout(),
	})
	if err != nil {
		fail(l, "browser unavailable", err)
	}
	page, err := br.Page(ctx, url)
	if err != nil {
		_ = br.Close()
		fail(l, "open page failed", err)
	}
	return br, page
}

func mustLive(ctx context.Context, l *slog.Logger, cfg config.AppConfig, url string) *htmltree.Tree {
	br, page := openLive(ctx, l, cfg, url)
	defer func() { _ = br.Close() }()
	tree, err := rodtree.Capture(ctx, page, layout.StyleProps, layout.RootProps)
	if err != nil {
		fail(l, "capture failed", err)
	}
	return tree
}

// runPublish loads an edited page (usually the output of capture followed by
// columns or menu moves) and replaces the body of the live page with it.
func runPublish(ctx context.Context, l *slog.Logger, cfg config.AppConfig, url, path string) {
	tree := mustPage(l, path)
	br, page := openLive(ctx, l, cfg, url)
	defer func() { _ = br.Close() }()
	if err := rodtree.Publish(ctx, page, tree); err != nil {
		fail(l, "publish failed", err)
	}
	fmt.Println("Published", path, "to", url)
}

func saveCapture(ctx context.Context, l *slog.Logger, e *env, t render.Tree, name, desc string) {
	c, err := e.layouts.SaveCapture(ctx, t, name, desc)
	if err != nil {
		fail(l, "save failed", err)
	}
	telemetry.Event(telemetry.EventLayoutSaved, map[string]any{"components": len(c.Components)})
	fmt.Printf("Saved %q as %s (%d components, %d tables, %d menus)\n",
		c.Name, c.ID, len(c.Components), len(c.Tables), len(c.Menus))
}

func writePage(l *slog.Logger, t *htmltree.Tree, out string) {
	if err := os.WriteFile(out, []byte(t.String()), 0o644); err != nil {
		fail(l, "write page failed", err)
	}
	fmt.Println("Wrote", out)
}

func runColumns(l *slog.Logger, cfg config.AppConfig, args []string) {
	tree := mustPage(l, args[2])
	h := render.Query(tree, tree.Root(), "#"+args[3])
	ed, err := tables.New(tree, h, tables.Options{Limits: tables.Limits{MinWidth: cfg.Editor.ColumnMinWidth, MaxWidth: cfg.Editor.ColumnMaxWidth}})
	if err != nil {
		fail(l, "table editor failed", err)
	}
	if len(args) >= 8 && args[4] == "move" {
		if !ed.Move(args[5], args[6]) {
			fmt.Println("Nothing moved: unknown column id or same position")
			os.Exit(2)
		}
		if err := ed.Apply(); err != nil {
			fail(l, "apply failed", err)
		}
		writePage(l, tree, args[7])
	}
	for _, c := range ed.Columns() {
		vis := ""
		if !c.Visible {
			vis = " (hidden)"
		}
		fmt.Printf("%2d  %-10s %-24s %6spx%s\n", c.Order, c.ID, c.Title, strconv.FormatFloat(c.Width, 'f', -1, 64), vis)
	}
}

func runMenu(l *slog.Logger, args []string) {
	tree := mustPage(l, args[2])
	h := render.Query(tree, tree.Root(), "#"+args[3])
	ed, err := menus.New(tree, h, menus.Options{})
	if err != nil {
		fail(l, "menu editor failed", err)
	}
	if len(args) >= 8 && args[4] == "move" {
		asChild := len(args) >= 9 && args[7] == "child"
		out := args[len(args)-1]
		if !ed.Move(args[5], args[6], asChild) {
			fmt.Println("Nothing moved: unknown item, same item or target inside the dragged subtree")
			os.Exit(2)
		}
		if err := ed.Apply(); err != nil {
			fail(l, "apply failed", err)
		}
		writePage(l, tree, out)
	}
	for _, it := range menus.Flatten(ed.Items()) {
		flags := ""
		if !it.Visible {
			flags += " (hidden)"
		}
		if it.Disabled {
			flags += " (disabled)"
		}
		fmt.Printf("%s%-10s %s %s%s\n", strings.Repeat("  ", it.Level), it.ID, it.Label, it.URL, flags)
	}
}

func runRender(l *slog.Logger, e *env, id, out string) {
	c, err := e.layouts.Get(id)
	if err != nil {
		fail(l, "render failed", err)
	}
	switch strings.ToLower(filepath.Ext(out)) {
	case ".pdf":
		err = export.WireframePDF(c, out, export.PDFOptions{Summary: true})
	case ".png":
		err = export.WriteThumbnailPNG(c, out, export.PNGOptions{Labels: true, Width: 960})
	default:
		err = fmt.Errorf("unsupported output %q: use .pdf or .png", out)
	}
	if err != nil {
		fail(l, "render failed", err)
	}
	fmt.Println("Rendered", out)
}
