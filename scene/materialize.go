package scene

import (
	"slices"

	"github.com/hazyhaar/cartograph/mapfile"
)

// AnnotationDepth is the render depth of every annotation.
var AnnotationDepth = mapfile.LayerAnnotation.ZBase()

// ItemFor builds the spawn description of a placed item: z-index clamped,
// the zero layer replaced by the default one, depth derived from layer and
// z-index, group from layer visibility.
func ItemFor(it mapfile.PlacedItem) Item {
	it.ZIndex = mapfile.ClampZ(it.ZIndex)
	it.Layer = it.Layer.OrDefault()
	return Item{
		PlacedItem: it,
		Depth:      it.Layer.Depth(it.ZIndex),
		Group:      GroupOf(it.Layer),
	}
}

// Capture reads s into a new Document without mutating s. The document
// shares no memory with s, so it may be handed to another goroutine. The
// manifest is rebuilt from the captured items.
func Capture(s Scene) *mapfile.Document {
	doc := &mapfile.Document{
		MapData: s.MapData().Clone(),
		FogOfWar: mapfile.FogOfWar{
			RevealedCells: slices.Clone(s.Fog()),
		},
	}
	items := s.Items()
	doc.PlacedItems = make([]mapfile.PlacedItem, 0, len(items))
	for _, it := range items {
		pi := it.PlacedItem
		pi.Layer = pi.Layer.OrDefault()
		doc.PlacedItems = append(doc.PlacedItems, pi)
	}
	for _, a := range s.Annotations() {
		switch a.Kind {
		case KindPath:
			p := a.Path
			p.Points = slices.Clone(p.Points)
			doc.Annotations.Paths = append(doc.Annotations.Paths, p)
		case KindLine:
			doc.Annotations.Lines = append(doc.Annotations.Lines, a.Line)
		case KindText:
			doc.Annotations.TextBoxes = append(doc.Annotations.TextBoxes, a.Text)
		}
	}
	doc.AssetManifest = mapfile.BuildManifest(doc.PlacedItems)
	return doc
}

// Restore replaces the content of s with doc. Asset paths must already be
// resolved to loadable identifiers.
func Restore(s Scene, doc *mapfile.Document) {
	s.Clear()
	s.SetMapData(doc.MapData)
	s.SetFog(doc.FogOfWar.RevealedCells)
	for _, it := range doc.PlacedItems {
		s.SpawnItem(ItemFor(it))
	}
	for _, p := range doc.Annotations.Paths {
		s.SpawnAnnotation(Annotation{Kind: KindPath, Path: p, Depth: AnnotationDepth})
	}
	for _, l := range doc.Annotations.Lines {
		s.SpawnAnnotation(Annotation{Kind: KindLine, Line: l, Depth: AnnotationDepth})
	}
	for _, tb := range doc.Annotations.TextBoxes {
		s.SpawnAnnotation(Annotation{Kind: KindText, Text: tb, Depth: AnnotationDepth})
	}
}

// Reset empties s and installs default map data named name with all fog
// hidden.
func Reset(s Scene, name string) {
	s.Clear()
	s.SetMapData(mapfile.DefaultMapData(name))
	s.SetFog(nil)
}
