// Package library is the asset library provider: it scans a directory of
// images, answers existence checks, builds resolver snapshots and keeps the
// library's metadata and maps directory in place.
package library

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/hazyhaar/cartograph/assetpath"
	"github.com/hazyhaar/cartograph/internal/fsx"
	"github.com/hazyhaar/cartograph/watch"
)

const (
	// MetadataFile holds the library's display name.
	MetadataFile = ".library.json"
	// MapsDir is where map files live, relative to the root.
	MapsDir = "maps"
)

// Subfolders are created by Create as suggested asset categories.
var Subfolders = []string{"terrain", "doodads", "tokens"}

var (
	ErrNotFound     = errors.New("library: directory not found")
	ErrNotDirectory = errors.New("library: path is not a directory")
)

// Metadata is the content of MetadataFile.
type Metadata struct {
	Name string `json:"name"`
}

// Library is a scanned asset library. Snapshot, Assets and Exists are safe
// for concurrent use; Refresh replaces the scan atomically.
type Library struct {
	root   string
	logger *slog.Logger
	meta   atomic.Pointer[Metadata]
	state  atomic.Pointer[state]
}

type state struct {
	assets    []Asset
	snapshot  *assetpath.Snapshot
	loadable  map[string]struct{}
	scannedAt time.Time
}

// Validate checks that root exists and is a directory.
func Validate(root string) error {
	fi, err := os.Stat(root)
	if errors.Is(err, os.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("library: %w", err)
	}
	if !fi.IsDir() {
		return ErrNotDirectory
	}
	return nil
}

// Create makes root with the suggested subfolders, the maps directory and a
// metadata file named after the directory.
func Create(root string) error {
	for _, dir := range append(append([]string{}, Subfolders...), MapsDir) {
		if err := fsx.EnsureDir(filepath.Join(root, dir)); err != nil {
			return fmt.Errorf("library: create %s folder: %w", dir, err)
		}
	}
	if _, err := os.Stat(filepath.Join(root, MetadataFile)); errors.Is(err, os.ErrNotExist) {
		return SaveMetadata(root, Metadata{Name: defaultName(root)})
	}
	return nil
}

// LoadMetadata reads MetadataFile. A missing or unreadable file yields a
// name derived from the directory.
func LoadMetadata(root string) (Metadata, error) {
	data, err := os.ReadFile(filepath.Join(root, MetadataFile))
	if err != nil {
		return Metadata{Name: defaultName(root)}, err
	}
	var m Metadata
	if err := json.Unmarshal(data, &m); err != nil {
		return Metadata{Name: defaultName(root)}, fmt.Errorf("library: parse metadata: %w", err)
	}
	return m, nil
}

// SaveMetadata writes MetadataFile atomically.
func SaveMetadata(root string, m Metadata) error {
	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("library: serialize metadata: %w", err)
	}
	if err := fsx.WriteFileAtomic(filepath.Join(root, MetadataFile), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("library: write metadata: %w", err)
	}
	return nil
}

func defaultName(root string) string {
	abs, err := filepath.Abs(root)
	if err != nil {
		return "Unnamed Library"
	}
	if name := filepath.Base(abs); name != "" && name != string(filepath.Separator) && name != "." {
		return name
	}
	return "Unnamed Library"
}

// Open validates root, ensures the maps directory and metadata file exist,
// and performs the first scan. A nil logger uses slog.Default().
func Open(root string, logger *slog.Logger) (*Library, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := Validate(root); err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("library: %w", err)
	}
	l := &Library{root: abs, logger: logger}

	meta, err := LoadMetadata(abs)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			if err := SaveMetadata(abs, meta); err != nil {
				logger.Warn("library: create metadata file failed", "root", abs, "error", err)
			}
		} else {
			logger.Warn("library: metadata unreadable, using directory name", "root", abs, "error", err)
		}
	}
	l.meta.Store(&meta)

	if err := fsx.EnsureDir(l.MapsDir()); err != nil {
		logger.Warn("library: create maps folder failed", "path", l.MapsDir(), "error", err)
	}
	if err := l.Refresh(); err != nil {
		return nil, err
	}
	logger.Info("library: opened", "name", meta.Name, "root", abs, "assets", len(l.Assets()))
	return l, nil
}

// CreateAndOpen creates the library layout at root and opens it.
func CreateAndOpen(root string, logger *slog.Logger) (*Library, error) {
	if err := Create(root); err != nil {
		return nil, err
	}
	return Open(root, logger)
}

// Root is the absolute library directory.
func (l *Library) Root() string { return l.root }

// MapsDir is the directory maps are saved in.
func (l *Library) MapsDir() string { return filepath.Join(l.root, MapsDir) }

// Metadata returns the library metadata.
func (l *Library) Metadata() Metadata { return *l.meta.Load() }

// Rename changes the library's display name and persists it.
func (l *Library) Rename(name string) error {
	m := Metadata{Name: name}
	if err := SaveMetadata(l.root, m); err != nil {
		return err
	}
	l.meta.Store(&m)
	return nil
}

// Refresh rescans the library.
func (l *Library) Refresh() error {
	assets, err := Scan(l.root)
	if err != nil {
		return fmt.Errorf("library: scan %s: %w", l.root, err)
	}
	entries := make([]assetpath.Asset, 0, len(assets))
	loadable := make(map[string]struct{}, len(assets))
	for _, a := range assets {
		entries = append(entries, assetpath.Asset{Relative: a.Relative, Loadable: a.Loadable})
		loadable[a.Loadable] = struct{}{}
	}
	prev := l.state.Swap(&state{
		assets:    assets,
		snapshot:  assetpath.NewSnapshot(entries),
		loadable:  loadable,
		scannedAt: time.Now(),
	})
	if prev != nil && len(prev.assets) != len(assets) {
		l.logger.Info("library: rescanned", "root", l.root, "assets", len(assets), "previous", len(prev.assets))
	}
	return nil
}

// Assets returns the scanned assets sorted by relative path.
func (l *Library) Assets() []Asset { return l.state.Load().assets }

// ScannedAt is the time of the last successful scan.
func (l *Library) ScannedAt() time.Time { return l.state.Load().scannedAt }

// Snapshot returns the resolver view of the last scan.
func (l *Library) Snapshot() *assetpath.Snapshot { return l.state.Load().snapshot }

// Exists reports whether the asset identified by id is present on disk.
// id may be a loadable identifier or a library-relative path.
func (l *Library) Exists(id string) bool {
	path := id
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.root, filepath.FromSlash(id))
	}
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Watcher returns a watcher that detects file changes under the root. Run it
// with w.OnChange(ctx, l.Refresh).
func (l *Library) Watcher(opts watch.Options) *watch.Watcher {
	opts.Name = "library"
	opts.Detector = Fingerprint(l.root)
	if opts.Logger == nil {
		opts.Logger = l.logger
	}
	return watch.New(opts)
}
