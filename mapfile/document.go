// Package mapfile defines the on-disk map format and its codec.
//
// A map file is a single JSON document:
//
//	{
//	  "asset_manifest": {"assets": [...]},
//	  "map_data":       {"name", "grid_size", "grid_visible", "layers": [...]},
//	  "placed_items":   [{"asset_path", "position", "rotation", "scale", "layer", "z_index"}],
//	  "annotations":    {"paths", "lines", "text_boxes"},
//	  "fog_of_war":     {"revealed_cells": [[x, y], ...]}
//	}
//
// Encoding is deterministic: the same Document always produces the same
// bytes. Decoding tolerates files written by older versions: absent sections
// decode to their empty or default value.
package mapfile

import (
	"cmp"
	"slices"
)

// DefaultMapName is the name of a fresh, never-saved map.
const DefaultMapName = "Untitled Map"

// DefaultGridSize is the grid cell size of a fresh map, in world units.
const DefaultGridSize float32 = 70

// Vec2 is an (x, y) pair, encoded as a two-element array.
type Vec2 [2]float32

// Color is RGBA in 0..1, encoded as a four-element array.
type Color [4]float32

// Cell is a grid coordinate, encoded as a two-element array.
type Cell [2]int32

// Document is the complete persisted form of one map.
type Document struct {
	AssetManifest AssetManifest `json:"asset_manifest"`
	MapData       MapData       `json:"map_data"`
	PlacedItems   []PlacedItem  `json:"placed_items"`
	Annotations   Annotations   `json:"annotations"`
	FogOfWar      FogOfWar      `json:"fog_of_war"`
}

// AssetManifest lists every distinct asset identifier referenced by the
// placed items, sorted.
type AssetManifest struct {
	Assets []string `json:"assets"`
}

// MapData is map-level metadata.
type MapData struct {
	Name        string      `json:"name"`
	GridSize    float32     `json:"grid_size"`
	GridVisible bool        `json:"grid_visible"`
	Layers      []LayerData `json:"layers"`
}

// LayerData holds per-layer editor settings.
type LayerData struct {
	LayerType Layer `json:"layer_type"`
	Visible   bool  `json:"visible"`
	Locked    bool  `json:"locked"`
}

// PlacedItem is one asset instance on the map.
type PlacedItem struct {
	AssetPath string  `json:"asset_path"`
	Position  Vec2    `json:"position"`
	Rotation  float32 `json:"rotation"`
	Scale     Vec2    `json:"scale"`
	Layer     Layer   `json:"layer"`
	ZIndex    int32   `json:"z_index"`
}

// Annotations are editor-only drawings.
type Annotations struct {
	Paths     []DrawPath `json:"paths"`
	Lines     []Line     `json:"lines"`
	TextBoxes []TextBox  `json:"text_boxes"`
}

// Len is the total number of annotation shapes.
func (a Annotations) Len() int { return len(a.Paths) + len(a.Lines) + len(a.TextBoxes) }

// DrawPath is a freehand stroke through Points.
type DrawPath struct {
	Points      []Vec2  `json:"points"`
	Color       Color   `json:"color"`
	StrokeWidth float32 `json:"stroke_width"`
}

// Line is a straight segment from Start to End.
type Line struct {
	Start       Vec2    `json:"start"`
	End         Vec2    `json:"end"`
	Color       Color   `json:"color"`
	StrokeWidth float32 `json:"stroke_width"`
}

// TextBox is a text label anchored at Position.
type TextBox struct {
	Position Vec2    `json:"position"`
	Content  string  `json:"content"`
	FontSize float32 `json:"font_size"`
	Color    Color   `json:"color"`
}

// FogOfWar records the revealed grid cells. Empty means fully hidden.
type FogOfWar struct {
	RevealedCells []Cell `json:"revealed_cells"`
}

// DefaultMapData returns the metadata of a fresh map named name.
func DefaultMapData(name string) MapData {
	layers := EditingLayers()
	md := MapData{
		Name:        name,
		GridSize:    DefaultGridSize,
		GridVisible: true,
		Layers:      make([]LayerData, 0, len(layers)),
	}
	for _, l := range layers {
		md.Layers = append(md.Layers, LayerData{LayerType: l, Visible: true})
	}
	return md
}

// New returns an empty document with default map data.
func New(name string) *Document {
	return &Document{MapData: DefaultMapData(name)}
}

// BuildManifest returns the sorted, de-duplicated asset identifiers of items.
func BuildManifest(items []PlacedItem) AssetManifest {
	assets := make([]string, 0, len(items))
	for _, it := range items {
		assets = append(assets, it.AssetPath)
	}
	slices.Sort(assets)
	return AssetManifest{Assets: slices.Compact(assets)}
}

// Clone returns a deep copy of d.
func (d *Document) Clone() *Document {
	c := &Document{
		AssetManifest: AssetManifest{Assets: slices.Clone(d.AssetManifest.Assets)},
		MapData:       d.MapData.Clone(),
		PlacedItems:   slices.Clone(d.PlacedItems),
		Annotations: Annotations{
			Lines:     slices.Clone(d.Annotations.Lines),
			TextBoxes: slices.Clone(d.Annotations.TextBoxes),
		},
		FogOfWar: FogOfWar{RevealedCells: slices.Clone(d.FogOfWar.RevealedCells)},
	}
	if d.Annotations.Paths != nil {
		c.Annotations.Paths = make([]DrawPath, len(d.Annotations.Paths))
		for i, p := range d.Annotations.Paths {
			p.Points = slices.Clone(p.Points)
			c.Annotations.Paths[i] = p
		}
	}
	return c
}

// Clone returns a deep copy of m.
func (m MapData) Clone() MapData {
	m.Layers = slices.Clone(m.Layers)
	return m
}

// Layer returns the settings of layer l and whether they exist.
func (m MapData) Layer(l Layer) (LayerData, bool) {
	for _, ld := range m.Layers {
		if ld.LayerType == l {
			return ld, true
		}
	}
	return LayerData{}, false
}

// SortCells sorts cells by x then y and removes duplicates.
func SortCells(cells []Cell) []Cell {
	slices.SortFunc(cells, compareCells)
	return slices.Compact(cells)
}

func compareCells(a, b Cell) int {
	if c := cmp.Compare(a[0], b[0]); c != 0 {
		return c
	}
	return cmp.Compare(a[1], b[1])
}
