// Package dirty turns scene change events into the unsaved-changes flag.
package dirty

import (
	"log/slog"

	"github.com/hazyhaar/cartograph/scene"
)

// Source yields the changes observed since the previous call.
type Source interface {
	DrainChanges() scene.Changes
}

// Marker receives the dirty signal. It is never asked to clear it; saving,
// loading and switching documents are the only ways back to clean.
type Marker interface {
	MarkDirty()
}

// Tracker checks a Source once per tick.
type Tracker struct {
	src    Source
	target Marker
	logger *slog.Logger
	marks  int64
}

// New creates a Tracker. A nil logger uses slog.Default().
func New(src Source, target Marker, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	return &Tracker{src: src, target: target, logger: logger}
}

// Tick drains pending changes and marks the target dirty if there were any.
// It reports whether it marked.
func (t *Tracker) Tick() bool {
	c := t.src.DrainChanges()
	if !c.Any() {
		return false
	}
	t.marks++
	t.target.MarkDirty()
	t.logger.Debug("dirty: changes observed",
		"added", c.Added, "removed", c.Removed, "transformed", c.Transformed, "fog", c.Fog, "meta", c.Meta)
	return true
}

// Discard drops pending changes without marking, for edits the caller made
// itself, such as materializing a loaded document.
func (t *Tracker) Discard() scene.Changes {
	return t.src.DrainChanges()
}

// Marks is how many ticks marked the target dirty.
func (t *Tracker) Marks() int64 { return t.marks }
