// Command cartograph runs the map persistence engine of a tabletop map
// editor over an asset library.
//
// Usage:
//
//	cartograph -library ./assets                   # serve HTTP on 127.0.0.1:7420
//	cartograph -config cartograph.yaml -mcp-stdio  # also serve MCP on stdio
//	cartograph -library ./assets -init             # create a library and exit
//	cartograph -inspect maps/dungeon.json          # summarize a map file and exit
//	cartograph -library ./assets -resolve maps/dungeon.json
//	cartograph -history [-map maps/dungeon.json]   # save/load history and exit
//	cartograph -recent                             # recent maps and libraries, then exit
package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"golang.org/x/net/netutil"
	"golang.org/x/sync/errgroup"

	"github.com/hazyhaar/cartograph/assetpath"
	"github.com/hazyhaar/cartograph/docstore"
	"github.com/hazyhaar/cartograph/internal/config"
	"github.com/hazyhaar/cartograph/library"
	"github.com/hazyhaar/cartograph/mapfile"
	"github.com/hazyhaar/cartograph/scene"
	"github.com/hazyhaar/cartograph/watch"
	"github.com/hazyhaar/cartograph/workspace"
)

const version = "0.1.0"

// stdout receives the JSON reports of the one-shot modes.
var stdout io.Writer = os.Stdout

type flags struct {
	configPath string
	library    string
	db         string
	addr       string
	mcpStdio   bool
	logLevel   string

	init    bool
	inspect string
	resolve string
	history bool
	recent  bool
	mapPath string
	limit   int
}

func main() {
	var f flags
	flag.StringVar(&f.configPath, "config", "", "path to cartograph.yaml config file")
	flag.StringVar(&f.library, "library", "", "asset library directory")
	flag.StringVar(&f.db, "db", "", "workspace SQLite database")
	flag.StringVar(&f.addr, "addr", "", "HTTP listen address")
	flag.BoolVar(&f.mcpStdio, "mcp-stdio", false, "serve MCP tools on stdin/stdout")
	flag.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flag.BoolVar(&f.init, "init", false, "create the library directory layout and exit")
	flag.StringVar(&f.inspect, "inspect", "", "print a summary of a map file and exit")
	flag.StringVar(&f.resolve, "resolve", "", "resolve a map file's assets against the library and exit")
	flag.BoolVar(&f.history, "history", false, "print the save/load history and exit")
	flag.BoolVar(&f.recent, "recent", false, "print recently used maps and libraries and exit")
	flag.StringVar(&f.mapPath, "map", "", "filter -history by map path")
	flag.IntVar(&f.limit, "limit", 20, "max -history or -recent entries")
	flag.Parse()

	cfg, err := config.Load(f.configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	f.apply(cfg)

	level, err := cfg.Level()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	// Stdout carries MCP frames in -mcp-stdio mode.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, logger, cfg, f); err != nil {
		logger.Error("cartograph: fatal", "error", err)
		os.Exit(1)
	}
}

// apply lets command-line flags win over file and environment values.
func (f flags) apply(cfg *config.Config) {
	if f.library != "" {
		cfg.LibraryRoot = f.library
	}
	if f.db != "" {
		cfg.WorkspaceDB = f.db
	}
	if f.addr != "" {
		cfg.HTTPAddr = f.addr
	}
	if f.mcpStdio {
		cfg.MCPStdio = true
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}
}

func run(ctx context.Context, logger *slog.Logger, cfg *config.Config, f flags) error {
	// One-shot: inspect needs neither library nor workspace.
	if f.inspect != "" {
		return inspect(f.inspect)
	}

	ws, err := workspace.Open(cfg.WorkspaceDB)
	if err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	defer ws.Close()

	if f.history {
		events, err := ws.Events(ctx, f.mapPath, f.limit)
		if err != nil {
			return fmt.Errorf("history: %w", err)
		}
		return printJSON(events)
	}
	if f.recent {
		recent, err := ws.Recent(ctx, f.limit)
		if err != nil {
			return err
		}
		return printJSON(recent)
	}

	root := cfg.LibraryRoot
	if root == "" {
		if root, err = ws.DefaultLibrary(ctx); err != nil {
			return fmt.Errorf("default library: %w", err)
		}
	}
	if root == "" {
		return errors.New("no library: pass -library or set library_root")
	}

	var lib *library.Library
	if f.init {
		lib, err = library.CreateAndOpen(root, logger)
	} else {
		lib, err = library.Open(root, logger)
	}
	if err != nil {
		return err
	}
	if err := ws.SetDefaultLibrary(ctx, lib.Root()); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}

	if f.init {
		if err := ws.AddRecentLibrary(ctx, lib.Root()); err != nil {
			return fmt.Errorf("workspace: %w", err)
		}
		logger.Info("cartograph: library ready", "root", lib.Root(), "name", lib.Metadata().Name)
		return nil
	}
	if f.resolve != "" {
		return resolve(lib, f.resolve)
	}
	return serve(ctx, logger, cfg, ws, lib)
}

func serve(ctx context.Context, logger *slog.Logger, cfg *config.Config, ws *workspace.Store, lib *library.Library) error {
	rec := workspace.NewRecorder(ws, logger, cfg.EventBuffer)
	rec.LibraryOpened(lib.Root())
	store, err := docstore.New(docstore.Options{
		Scene:         scene.NewMemory(),
		Library:       lib,
		Paths:         rec,
		Observer:      rec,
		Workers:       cfg.Workers,
		AbsolutePaths: cfg.AbsolutePaths,
		Logger:        logger,
	})
	if err != nil {
		return err
	}

	last, err := ws.LastMapPath(ctx)
	if err != nil {
		logger.Warn("cartograph: cannot read last map", "error", err)
	} else if last != "" {
		if _, statErr := os.Stat(last); statErr == nil {
			if err := store.StartLoad(last); err != nil {
				logger.Warn("cartograph: cannot reopen last map", "path", last, "error", err)
			}
		}
	}

	loop := docstore.NewLoop(store, docstore.LoopOptions{Interval: cfg.TickInterval})
	svc := docstore.NewService(loop, docstore.ServiceOptions{
		MapsDir: lib.MapsDir(),
		Recents: rec,
		Logger:  logger,
	})

	ln, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.HTTPAddr, err)
	}
	ln = netutil.LimitListener(ln, cfg.MaxConns)
	srv := &http.Server{
		Handler:           svc.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// The recorder outlives the loop so the outcome of a save still running
	// at shutdown gets written.
	recCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return rec.Run(recCtx) })
	g.Go(func() error {
		defer stopRecorder()
		return loop.Run(gctx)
	})
	g.Go(func() error {
		w := lib.Watcher(watch.Options{Interval: cfg.WatchInterval, Debounce: cfg.WatchDebounce, Logger: logger})
		return w.OnChange(gctx, lib.Refresh)
	})
	g.Go(func() error {
		logger.Info("cartograph: listening", "addr", ln.Addr().String(), "library", lib.Root(), "maps", lib.MapsDir())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	if cfg.MCPStdio {
		mcpSrv := mcp.NewServer(&mcp.Implementation{Name: "cartograph", Version: version}, nil)
		svc.RegisterMCP(mcpSrv)
		g.Go(func() error {
			err := mcpSrv.Run(gctx, &mcp.StdioTransport{})
			if err != nil && gctx.Err() == nil {
				return fmt.Errorf("mcp: %w", err)
			}
			return nil
		})
	}

	err = g.Wait()
	logger.Info("cartograph: stopped", "written", rec.Written(), "dropped", rec.Dropped())
	return err
}

type inspectReport struct {
	Path        string         `json:"path"`
	Name        string         `json:"name"`
	GridSize    float32        `json:"grid_size"`
	Items       int            `json:"items"`
	PerLayer    map[string]int `json:"per_layer"`
	Annotations int            `json:"annotations"`
	Revealed    int            `json:"revealed_cells"`
	Manifest    []string       `json:"manifest"`
}

func inspect(path string) error {
	doc, err := mapfile.ReadFile(path)
	if err != nil {
		return err
	}
	r := inspectReport{
		Path:        path,
		Name:        doc.MapData.Name,
		GridSize:    doc.MapData.GridSize,
		Items:       len(doc.PlacedItems),
		PerLayer:    make(map[string]int),
		Annotations: doc.Annotations.Len(),
		Revealed:    len(doc.FogOfWar.RevealedCells),
		Manifest:    assetpath.Manifest(doc),
	}
	for _, it := range doc.PlacedItems {
		r.PerLayer[string(it.Layer)]++
	}
	return printJSON(r)
}

func resolve(lib *library.Library, path string) error {
	doc, err := mapfile.ReadFile(path)
	if err != nil {
		return err
	}
	res := assetpath.Resolve(assetpath.Manifest(doc), lib.Snapshot())
	if err := printJSON(res); err != nil {
		return err
	}
	return res.Err(path)
}

func printJSON(v any) error {
	enc := json.NewEncoder(stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
