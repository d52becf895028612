package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cartograph.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatal(err)
	}
	if cfg.HTTPAddr != "127.0.0.1:7420" || cfg.TickInterval != 50*time.Millisecond || cfg.Workers != 2 {
		t.Fatalf("defaults: %+v", cfg)
	}
	if cfg.WorkspaceDB != "cartograph.db" || cfg.LogLevel != "info" {
		t.Fatalf("defaults: %+v", cfg)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
library_root: /srv/library
http_addr: ":9000"
tick_interval: 20ms
watch_interval: 5s
absolute_paths: true
log_level: debug
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LibraryRoot != "/srv/library" || cfg.HTTPAddr != ":9000" || !cfg.AbsolutePaths {
		t.Fatalf("file values: %+v", cfg)
	}
	if cfg.TickInterval != 20*time.Millisecond || cfg.WatchInterval != 5*time.Second {
		t.Fatalf("durations: %+v", cfg)
	}
	if cfg.WatchDebounce != 500*time.Millisecond {
		t.Fatalf("unset duration should default: %v", cfg.WatchDebounce)
	}
	if lvl, err := cfg.Level(); err != nil || lvl != slog.LevelDebug {
		t.Fatalf("level: %v %v", lvl, err)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "library_root: /from/file\nworkers: 3\n")
	t.Setenv("CARTOGRAPH_LIBRARY", "/from/env")
	t.Setenv("CARTOGRAPH_TICK_INTERVAL", "10ms")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.LibraryRoot != "/from/env" {
		t.Fatalf("library: %q", cfg.LibraryRoot)
	}
	if cfg.Workers != 3 {
		t.Fatalf("workers: %d", cfg.Workers)
	}
	if cfg.TickInterval != 10*time.Millisecond {
		t.Fatalf("tick: %v", cfg.TickInterval)
	}
}

func TestLoad_Errors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for a missing file")
	}
	if _, err := Load(writeConfig(t, "tick_interval: [1, 2]\n")); err == nil {
		t.Fatal("expected parse error")
	}
	t.Setenv("CARTOGRAPH_WORKERS", "many")
	if _, err := Load(""); err == nil {
		t.Fatal("expected env parse error")
	}
}

func TestLevel_Unknown(t *testing.T) {
	cfg := &Config{LogLevel: "loud"}
	if _, err := cfg.Level(); err == nil {
		t.Fatal("expected error")
	}
}
