package docstore

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/hazyhaar/cartograph/assetpath"
	"github.com/hazyhaar/cartograph/jobs"
	"github.com/hazyhaar/cartograph/mapfile"
	"github.com/hazyhaar/cartograph/scene"
)

// SaveResult is what a save job hands back to the loop.
type SaveResult struct {
	Path string
	Err  error
}

// LoadResult is what a load job hands back to the loop. Document is nil when
// Err is set.
type LoadResult struct {
	Path     string
	Document *mapfile.Document
	Err      error
}

type pendingSave struct {
	h        *jobs.Handle[SaveResult]
	docID    string
	revision uint64
}

type pendingLoad struct {
	h     *jobs.Handle[LoadResult]
	epoch uint64
}

// Busy reports whether a save or load is running.
func (s *Store) Busy() bool { return s.saving || s.loading }

// Saving reports whether a save is running.
func (s *Store) Saving() bool { return s.saving }

// Loading reports whether a load is running.
func (s *Store) Loading() bool { return s.loading }

// Status is the progress line for the running operation, or "".
func (s *Store) Status() string { return s.status }

// SaveError is the message of the last failed save, cleared when a new save
// starts or succeeds.
func (s *Store) SaveError() string { return s.saveErr }

// LoadError is the message of the last failed load, cleared when a new load
// starts or succeeds.
func (s *Store) LoadError() string { return s.loadErr }

// StartSave captures the live scene and writes it to path in the
// background.
func (s *Store) StartSave(path string) error {
	if s.Busy() {
		s.logger.Warn("docstore: save rejected, operation in progress", "path", path, "status", s.status)
		return ErrBusy
	}
	doc := scene.Capture(s.scene)
	if !s.opts.AbsolutePaths {
		if n := assetpath.Relativize(doc, s.snapshot()); n > 0 {
			s.logger.Debug("docstore: relativized asset paths", "items", n)
		}
	}

	d := s.current()
	s.saving = true
	s.saveErr = ""
	s.status = fmt.Sprintf("Saving %s...", filepath.Base(path))
	h := jobs.Spawn(s.opts.Pool, OpSave, func() SaveResult {
		return SaveResult{Path: path, Err: mapfile.WriteFile(path, doc)}
	})
	s.saveJob = &pendingSave{h: h, docID: d.id, revision: d.revision}
	s.logger.Info("docstore: save started", "path", path, "document", d.id, "job", h.ID)
	return nil
}

// StartLoad reads and parses path in the background. The scene is replaced
// on a later Tick, once every asset of the file resolves.
func (s *Store) StartLoad(path string) error {
	if s.Busy() {
		s.logger.Warn("docstore: load rejected, operation in progress", "path", path, "status", s.status)
		return ErrBusy
	}
	s.loading = true
	s.loadErr = ""
	s.warning = nil
	s.status = fmt.Sprintf("Loading %s...", filepath.Base(path))
	h := jobs.Spawn(s.opts.Pool, OpLoad, func() LoadResult {
		doc, err := mapfile.ReadFile(path)
		return LoadResult{Path: path, Document: doc, Err: err}
	})
	s.loadJob = &pendingLoad{h: h, epoch: s.epoch}
	s.logger.Info("docstore: load started", "path", path, "job", h.ID)
	return nil
}

// Poll applies the running job's result if it has finished. It never
// blocks.
func (s *Store) Poll() {
	if j := s.saveJob; j != nil {
		res, ok := j.h.Poll()
		if !ok {
			return
		}
		if err := j.h.Err(); err != nil {
			res = SaveResult{Path: res.Path, Err: err}
		}
		s.saving = false
		s.status = ""
		s.saveJob = nil
		s.finishSave(j, res)
	}
	if j := s.loadJob; j != nil {
		res, ok := j.h.Poll()
		if !ok {
			return
		}
		if err := j.h.Err(); err != nil {
			res = LoadResult{Path: res.Path, Err: err}
		}
		s.loading = false
		s.status = ""
		s.loadJob = nil
		s.finishLoad(j, res)
	}
}

// Settle blocks until the running job, if any, has finished and been
// applied, or ctx expires. It is meant for shutdown and tests; the
// interactive loop uses Tick.
func (s *Store) Settle(ctx context.Context) error {
	for {
		var done <-chan struct{}
		switch {
		case s.saveJob != nil:
			done = s.saveJob.h.Done()
		case s.loadJob != nil:
			done = s.loadJob.h.Done()
		default:
			return nil
		}
		select {
		case <-done:
			s.Poll()
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *Store) finishSave(j *pendingSave, res SaveResult) {
	s.notify(OpSave, res.Path, res.Err)
	if res.Err != nil {
		s.saveErr = message(res.Err)
		s.logger.Error("docstore: save failed", "path", res.Path, "error", res.Err)
		return
	}

	if s.opts.Paths != nil {
		s.opts.Paths.MapPathChanged(res.Path)
	}
	d := s.find(j.docID)
	if d == nil {
		s.logger.Info("docstore: save complete, document already closed", "path", res.Path, "document", j.docID)
		return
	}
	d.path = res.Path
	d.name = stem(res.Path)
	if d.revision == j.revision {
		d.dirty = false
	}
	s.logger.Info("docstore: save complete", "path", res.Path, "document", d.id, "dirty", d.dirty)
}

func (s *Store) finishLoad(j *pendingLoad, res LoadResult) {
	if res.Err != nil {
		s.loadErr = message(res.Err)
		s.notify(OpLoad, res.Path, res.Err)
		s.logger.Error("docstore: load failed", "path", res.Path, "error", res.Err)
		return
	}
	if j.epoch != s.epoch {
		s.notify(OpLoad, res.Path, ErrStaleLoad)
		s.logger.Warn("docstore: load result discarded", "path", res.Path, "reason", ErrStaleLoad)
		return
	}

	doc := res.Document
	r := assetpath.Resolve(assetpath.Manifest(doc), s.snapshot())
	if err := r.Err(res.Path); err != nil {
		var missing *assetpath.MissingAssetsError
		errors.As(err, &missing)
		s.warning = missing
		s.loadErr = message(err)
		s.notify(OpLoad, res.Path, err)
		s.logger.Warn("docstore: load aborted, missing assets", "path", res.Path, "missing", len(missing.Missing))
		return
	}
	rewritten := r.Apply(doc)

	s.installLoaded(res.Path, doc)
	s.notify(OpLoad, res.Path, nil)
	if s.opts.Paths != nil {
		s.opts.Paths.MapPathChanged(res.Path)
	}
	s.logger.Info("docstore: load complete",
		"path", res.Path, "document", s.active, "items", len(doc.PlacedItems), "rewritten", rewritten)
}

func (s *Store) notify(kind, path string, err error) {
	if s.opts.Observer != nil {
		s.opts.Observer.OperationFinished(kind, path, err)
	}
}

// message is the user-facing wording of an operation error.
func message(err error) string {
	var (
		ioErr    *mapfile.IOError
		parseErr *mapfile.ParseError
		missing  *assetpath.MissingAssetsError
	)
	switch {
	case errors.As(err, &missing):
		return fmt.Sprintf("Cannot load map %s: %s", missing.MapPath, missing.Summary())
	case errors.As(err, &ioErr):
		return fmt.Sprintf("Failed to %s file %s: %v", ioErr.Op, ioErr.Path, ioErr.Err)
	case errors.As(err, &parseErr) && parseErr.Op == "serialize":
		return fmt.Sprintf("Failed to serialize map: %v", parseErr.Err)
	case errors.As(err, &parseErr) && parseErr.Path != "":
		return fmt.Sprintf("Failed to parse map file %s: %v", parseErr.Path, parseErr.Err)
	case errors.As(err, &parseErr):
		return fmt.Sprintf("Failed to parse map file: %v", parseErr.Err)
	}
	return err.Error()
}
