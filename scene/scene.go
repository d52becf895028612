// Package scene defines the live scene contract the document store edits
// through, an in-memory implementation, and the materializer that converts
// between a live scene and a mapfile.Document.
package scene

import "github.com/hazyhaar/cartograph/mapfile"

// ID identifies a spawned entity.
type ID uint64

// Group is the render visibility group of an item.
type Group int

const (
	// GroupPlayer items are visible to players and the editor.
	GroupPlayer Group = iota
	// GroupEditor items are visible in the editor only.
	GroupEditor
)

func (g Group) String() string {
	if g == GroupPlayer {
		return "player"
	}
	return "editor"
}

// GroupOf returns the visibility group of layer l.
func GroupOf(l mapfile.Layer) Group {
	if l.PlayerVisible() {
		return GroupPlayer
	}
	return GroupEditor
}

// Item is a spawned placed item with its live transform.
type Item struct {
	ID ID
	mapfile.PlacedItem
	Depth float32
	Group Group
}

// AnnotationKind discriminates Annotation.
type AnnotationKind int

const (
	KindPath AnnotationKind = iota
	KindLine
	KindText
)

// Annotation is a spawned editor drawing. Only the field matching Kind is
// meaningful.
type Annotation struct {
	ID    ID
	Kind  AnnotationKind
	Path  mapfile.DrawPath
	Line  mapfile.Line
	Text  mapfile.TextBox
	Depth float32
}

// Changes counts the edits observed since the previous drain.
type Changes struct {
	Added       int
	Removed     int
	Transformed int
	Fog         int
	Meta        int
}

// Any reports whether anything changed.
func (c Changes) Any() bool {
	return c.Added+c.Removed+c.Transformed+c.Fog+c.Meta > 0
}

// Scene is the live, mutable scene. Implementations need not be safe for
// concurrent use; the document store only calls them from its loop. Slices
// returned by the accessors may alias live state: Capture copies them.
type Scene interface {
	Items() []Item
	Annotations() []Annotation
	MapData() mapfile.MapData
	SetMapData(mapfile.MapData)
	Fog() []mapfile.Cell
	SetFog([]mapfile.Cell)
	// Clear despawns every item and annotation.
	Clear()
	SpawnItem(Item) ID
	SpawnAnnotation(Annotation) ID
	// DrainChanges returns and resets the accumulated change counters.
	DrainChanges() Changes
}
