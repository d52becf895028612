package mapfile

import (
	"encoding/json"
	"errors"
	"os"
	"slices"

	"github.com/hazyhaar/cartograph/internal/fsx"
)

// Encode serialises doc as indented JSON with a trailing newline. Nil slices
// encode as empty arrays and revealed cells are sorted, so equal documents
// produce equal bytes. doc is not modified.
func Encode(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(normalize(doc), "", "  ")
	if err != nil {
		return nil, &ParseError{Op: "serialize", Err: err}
	}
	return append(data, '\n'), nil
}

// Decode parses a map file. Absent sections decode to defaults.
func Decode(data []byte) (*Document, error) {
	var w wireDocument
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, &ParseError{Op: "parse", Err: err}
	}
	return w.document(), nil
}

// ReadFile reads and decodes the map at path.
func ReadFile(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	doc, err := Decode(data)
	if err != nil {
		var pe *ParseError
		if errors.As(err, &pe) {
			pe.Path = path
		}
		return nil, err
	}
	return doc, nil
}

// WriteFile encodes doc and atomically replaces path with the result.
func WriteFile(path string, doc *Document) error {
	data, err := Encode(doc)
	if err != nil {
		return err
	}
	if err := fsx.WriteFileAtomic(path, data, 0o644); err != nil {
		return &IOError{Op: "write", Path: path, Err: err}
	}
	return nil
}

func normalize(doc *Document) *Document {
	n := doc.Clone()
	n.AssetManifest.Assets = orEmpty(n.AssetManifest.Assets)
	n.MapData.Layers = orEmpty(n.MapData.Layers)
	n.PlacedItems = orEmpty(n.PlacedItems)
	n.Annotations.Paths = orEmpty(n.Annotations.Paths)
	for i := range n.Annotations.Paths {
		n.Annotations.Paths[i].Points = orEmpty(n.Annotations.Paths[i].Points)
	}
	n.Annotations.Lines = orEmpty(n.Annotations.Lines)
	n.Annotations.TextBoxes = orEmpty(n.Annotations.TextBoxes)
	n.FogOfWar.RevealedCells = SortCells(orEmpty(n.FogOfWar.RevealedCells))
	return n
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return slices.Clip(s)
}

// wire types mirror Document with pointers where absence must be told apart
// from a zero value.

type wireDocument struct {
	AssetManifest *AssetManifest `json:"asset_manifest"`
	MapData       *wireMapData   `json:"map_data"`
	PlacedItems   []wireItem     `json:"placed_items"`
	Annotations   *Annotations   `json:"annotations"`
	FogOfWar      *wireFog       `json:"fog_of_war"`
}

type wireMapData struct {
	Name        *string      `json:"name"`
	GridSize    *float32     `json:"grid_size"`
	GridVisible *bool        `json:"grid_visible"`
	Layers      *[]LayerData `json:"layers"`
}

type wireItem struct {
	AssetPath string  `json:"asset_path"`
	Position  Vec2    `json:"position"`
	Rotation  float32 `json:"rotation"`
	Scale     *Vec2   `json:"scale"`
	Layer     *Layer  `json:"layer"`
	ZIndex    int32   `json:"z_index"`
}

type wireFog struct {
	RevealedCells []Cell `json:"revealed_cells"`
	// FoggedCells is the legacy inverted representation. Map bounds are not
	// known, so it cannot be converted and is dropped.
	FoggedCells []Cell `json:"fogged_cells"`
}

func (w *wireDocument) document() *Document {
	doc := &Document{MapData: DefaultMapData(DefaultMapName)}
	if w.AssetManifest != nil {
		doc.AssetManifest = *w.AssetManifest
	}
	if md := w.MapData; md != nil {
		if md.Name != nil {
			doc.MapData.Name = *md.Name
		}
		if md.GridSize != nil && *md.GridSize > 0 {
			doc.MapData.GridSize = *md.GridSize
		}
		if md.GridVisible != nil {
			doc.MapData.GridVisible = *md.GridVisible
		}
		if md.Layers != nil {
			doc.MapData.Layers = *md.Layers
		}
	}
	if len(w.PlacedItems) > 0 {
		doc.PlacedItems = make([]PlacedItem, 0, len(w.PlacedItems))
	}
	for _, wi := range w.PlacedItems {
		it := PlacedItem{
			AssetPath: wi.AssetPath,
			Position:  wi.Position,
			Rotation:  wi.Rotation,
			Scale:     Vec2{1, 1},
			Layer:     DefaultLayer,
			ZIndex:    wi.ZIndex,
		}
		if wi.Scale != nil {
			it.Scale = *wi.Scale
		}
		if wi.Layer != nil {
			it.Layer = *wi.Layer
		}
		doc.PlacedItems = append(doc.PlacedItems, it)
	}
	if w.Annotations != nil {
		doc.Annotations = *w.Annotations
	}
	if w.FogOfWar != nil {
		doc.FogOfWar.RevealedCells = w.FogOfWar.RevealedCells
	}
	return doc
}
