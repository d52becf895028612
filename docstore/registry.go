package docstore

import (
	"slices"

	"github.com/hazyhaar/cartograph/mapfile"
	"github.com/hazyhaar/cartograph/scene"
)

// NewDocument opens a clean, pathless document and makes it active. The
// live scene is replaced with defaults without being captured: whatever the
// previous document showed is dropped, though its dirty flag is kept.
func (s *Store) NewDocument() Entry {
	s.tracker.Tick()
	scene.Reset(s.scene, mapfile.DefaultMapName)
	s.tracker.Discard()

	d := &document{id: s.opts.IDs(), name: mapfile.DefaultMapName}
	s.docs = append(s.docs, d)
	s.activate(d)
	s.logger.Info("docstore: new document", "document", d.id)
	return s.entry(d)
}

// SwitchDocument makes id the active document. The current scene is cached
// on the outgoing document; the target's cached scene is restored, or
// defaults with its name if it has none.
func (s *Store) SwitchDocument(id string) error {
	target := s.find(id)
	if target == nil {
		return ErrUnknownDocument
	}
	if id == s.active {
		return nil
	}
	s.tracker.Tick()
	s.current().snapshot = scene.Capture(s.scene)
	s.materialize(target)
	s.activate(target)
	s.logger.Info("docstore: switched document", "document", id, "dirty", target.dirty)
	return nil
}

// CloseDocument drops document id and its cached scene. Closing the active
// document activates the most recently created remaining one. The last open
// document cannot be closed.
func (s *Store) CloseDocument(id string) error {
	d := s.find(id)
	if d == nil {
		return ErrUnknownDocument
	}
	if len(s.docs) == 1 {
		return ErrLastDocument
	}
	s.remove(id)
	s.logger.Info("docstore: closed document", "document", id, "dirty", d.dirty)
	if id != s.active {
		return nil
	}
	next := s.docs[len(s.docs)-1]
	s.materialize(next)
	s.activate(next)
	return nil
}

// installLoaded makes a successfully resolved document the active one. An
// open document with the same path absorbs it; otherwise the active document
// is replaced, so loading never adds a document.
func (s *Store) installLoaded(path string, doc *mapfile.Document) {
	d := s.findPath(path)
	if d != nil {
		if d.id != s.active {
			s.current().snapshot = scene.Capture(s.scene)
		}
		d.snapshot = nil
	} else {
		evicted := s.current()
		s.remove(evicted.id)
		d = &document{id: s.opts.IDs()}
		s.docs = append(s.docs, d)
		s.logger.Debug("docstore: document replaced by load", "evicted", evicted.id, "dirty", evicted.dirty)
	}
	d.path = path
	d.name = stem(path)
	d.dirty = false

	scene.Restore(s.scene, doc)
	s.tracker.Discard()
	s.activate(d)
}

// materialize puts d's content into the live scene, consuming its cached
// snapshot.
func (s *Store) materialize(d *document) {
	if d.snapshot != nil {
		scene.Restore(s.scene, d.snapshot)
		d.snapshot = nil
	} else {
		scene.Reset(s.scene, d.name)
	}
	s.tracker.Discard()
}

// activate marks d active. Every change of active document starts a new
// epoch so that loads started under the previous one are discarded.
func (s *Store) activate(d *document) {
	s.active = d.id
	s.epoch++
}

func (s *Store) remove(id string) {
	s.docs = slices.DeleteFunc(s.docs, func(d *document) bool { return d.id == id })
}
