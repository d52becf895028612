// Package docstore owns the open documents of a map editor session: which
// one is materialized in the live scene, which ones carry unsaved changes,
// and the single background save or load that may be in flight.
//
// A Store is driven by one goroutine. Call Tick once per frame (or use Loop),
// and route every external request through that same goroutine. Blocking
// file I/O happens on a jobs.Pool; the live scene is only touched from Tick
// and the registry methods.
package docstore

import (
	"errors"
	"log/slog"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/hazyhaar/cartograph/assetpath"
	"github.com/hazyhaar/cartograph/dirty"
	"github.com/hazyhaar/cartograph/idgen"
	"github.com/hazyhaar/cartograph/jobs"
	"github.com/hazyhaar/cartograph/mapfile"
	"github.com/hazyhaar/cartograph/scene"
)

var (
	// ErrBusy rejects a save or load while another one is running.
	ErrBusy = errors.New("docstore: a save or load is already in progress")
	// ErrUnknownDocument is returned for ids that are not open.
	ErrUnknownDocument = errors.New("docstore: unknown document")
	// ErrLastDocument refuses to close the only open document.
	ErrLastDocument = errors.New("docstore: cannot close the last open document")
	// ErrStaleLoad is reported to observers when a load finished after the
	// active document changed. The result is dropped.
	ErrStaleLoad = errors.New("docstore: active document changed while loading")
)

// Operation kinds reported to observers.
const (
	OpSave = "save"
	OpLoad = "load"
)

// Library is the asset library the store resolves against.
type Library interface {
	Snapshot() *assetpath.Snapshot
	Exists(id string) bool
	// ScannedAt is when Snapshot was last rebuilt.
	ScannedAt() time.Time
}

// PathRecorder remembers the last map path that was saved or loaded.
type PathRecorder interface {
	MapPathChanged(path string)
}

// Observer is told about every finished save or load, successful or not.
// It is called on the goroutine that drives the Store.
type Observer interface {
	OperationFinished(kind, path string, err error)
}

// Options configures a Store.
type Options struct {
	// Scene is the live scene. Required.
	Scene scene.Scene
	// Library resolves asset paths. Nil means an empty library: only
	// documents without assets load.
	Library Library
	// Paths is notified after successful saves and loads.
	Paths PathRecorder
	// Observer is notified after every finished operation.
	Observer Observer
	// Pool runs the blocking part of saves and loads. Default: a pool with
	// Workers workers.
	Pool *jobs.Pool
	// Workers sizes the default pool.
	Workers int
	// IDs generates document ids. Default: "map_" + UUIDv7.
	IDs idgen.Generator
	// AbsolutePaths keeps loadable identifiers in saved files instead of
	// library-relative paths.
	AbsolutePaths bool
	// Logger overrides the default slog logger.
	Logger *slog.Logger
}

func (o *Options) defaults() {
	if o.Logger == nil {
		o.Logger = slog.Default()
	}
	if o.IDs == nil {
		o.IDs = idgen.Prefixed("map_", idgen.Default)
	}
	if o.Pool == nil {
		o.Pool = jobs.NewPool(jobs.Options{Workers: o.Workers, Logger: o.Logger})
	}
}

// Entry describes one open document.
type Entry struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Path   string `json:"path,omitempty"`
	Dirty  bool   `json:"dirty"`
	Active bool   `json:"active"`
	Cached bool   `json:"cached"`
}

type document struct {
	id       string
	name     string
	path     string
	dirty    bool
	revision uint64
	snapshot *mapfile.Document
}

// Store is the open-documents registry plus the save/load gate. It is not
// safe for concurrent use.
type Store struct {
	opts    Options
	scene   scene.Scene
	logger  *slog.Logger
	tracker *dirty.Tracker

	docs   []*document // creation order
	active string
	epoch  uint64

	saving  bool
	loading bool
	status  string
	saveJob *pendingSave
	loadJob *pendingLoad
	saveErr string
	loadErr string
	warning *assetpath.MissingAssetsError
}

// New creates a Store with one clean, pathless document standing for the
// current content of opts.Scene.
func New(opts Options) (*Store, error) {
	if opts.Scene == nil {
		return nil, errors.New("docstore: scene is required")
	}
	opts.defaults()
	s := &Store{
		opts:   opts,
		scene:  opts.Scene,
		logger: opts.Logger,
	}
	s.tracker = dirty.New(opts.Scene, s, opts.Logger)
	s.tracker.Discard()

	name := opts.Scene.MapData().Name
	if name == "" {
		name = mapfile.DefaultMapName
	}
	d := &document{id: opts.IDs(), name: name}
	s.docs = append(s.docs, d)
	s.active = d.id
	return s, nil
}

// Tick runs one frame: scene changes are turned into the dirty flag, then
// a finished background job, if any, is applied.
func (s *Store) Tick() {
	s.tracker.Tick()
	s.Poll()
}

// MarkDirty flags the active document as having unsaved changes.
func (s *Store) MarkDirty() {
	d := s.current()
	d.dirty = true
	d.revision++
}

// IsDirty reports whether the active document has unsaved changes.
func (s *Store) IsDirty() bool { return s.current().dirty }

// CurrentPath is the file backing the active document, or "".
func (s *Store) CurrentPath() string { return s.current().path }

// Active returns the active document.
func (s *Store) Active() Entry { return s.entry(s.current()) }

// Documents lists open documents in creation order.
func (s *Store) Documents() []Entry {
	out := make([]Entry, 0, len(s.docs))
	for _, d := range s.docs {
		out = append(out, s.entry(d))
	}
	return out
}

// Document returns the open document with id.
func (s *Store) Document(id string) (Entry, bool) {
	d := s.find(id)
	if d == nil {
		return Entry{}, false
	}
	return s.entry(d), true
}

// HasUnsaved reports whether any open document is dirty.
func (s *Store) HasUnsaved() bool {
	return slices.ContainsFunc(s.docs, func(d *document) bool { return d.dirty })
}

// Unsaved lists dirty documents in creation order.
func (s *Store) Unsaved() []Entry {
	var out []Entry
	for _, d := range s.docs {
		if d.dirty {
			out = append(out, s.entry(d))
		}
	}
	return out
}

// MissingAssets is the warning left by the last load that failed
// validation, or nil.
func (s *Store) MissingAssets() *assetpath.MissingAssetsError { return s.warning }

// DismissLoadWarning clears MissingAssets.
func (s *Store) DismissLoadWarning() { s.warning = nil }

// LibraryScannedAt is when the library was last scanned, or the zero time
// without a library.
func (s *Store) LibraryScannedAt() time.Time {
	if s.opts.Library == nil {
		return time.Time{}
	}
	return s.opts.Library.ScannedAt()
}

// CheckAssets lists the asset identifiers used in the live scene whose files
// the library no longer has. The result is sorted and de-duplicated.
func (s *Store) CheckAssets() []string {
	if s.opts.Library == nil {
		return nil
	}
	var missing []string
	for _, it := range s.scene.Items() {
		if !s.opts.Library.Exists(it.AssetPath) {
			missing = append(missing, it.AssetPath)
		}
	}
	slices.Sort(missing)
	return slices.Compact(missing)
}

func (s *Store) entry(d *document) Entry {
	return Entry{
		ID:     d.id,
		Name:   d.name,
		Path:   d.path,
		Dirty:  d.dirty,
		Active: d.id == s.active,
		Cached: d.snapshot != nil,
	}
}

func (s *Store) find(id string) *document {
	for _, d := range s.docs {
		if d.id == id {
			return d
		}
	}
	return nil
}

func (s *Store) findPath(path string) *document {
	clean := filepath.Clean(path)
	for _, d := range s.docs {
		if d.path != "" && filepath.Clean(d.path) == clean {
			return d
		}
	}
	return nil
}

func (s *Store) current() *document {
	return s.find(s.active)
}

func (s *Store) snapshot() *assetpath.Snapshot {
	if s.opts.Library == nil {
		return assetpath.NewSnapshot(nil)
	}
	return s.opts.Library.Snapshot()
}

// stem is the document name derived from a map file path.
func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
