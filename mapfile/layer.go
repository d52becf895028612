package mapfile

import (
	"encoding/json"
	"fmt"
)

// Layer is a named depth band. Items render above every item of a lower layer
// regardless of their z-index.
type Layer string

const (
	LayerBackground Layer = "Background"
	LayerTerrain    Layer = "Terrain"
	LayerDoodad     Layer = "Doodad"
	LayerToken      Layer = "Token"
	LayerGM         Layer = "GM" // hidden from players
	LayerAnnotation Layer = "Annotation"
	LayerFogOfWar   Layer = "FogOfWar" // reserved
	LayerPlay       Layer = "Play"     // editor-only viewport indicator
)

// DefaultLayer is the layer new items land on.
const DefaultLayer = LayerTerrain

// MaxZIndex is the highest z-index allowed inside a layer; the valid range is
// 0..MaxZIndex inclusive.
const MaxZIndex int32 = 24

var zBase = map[Layer]float32{
	LayerBackground: 0,
	LayerTerrain:    50,
	LayerDoodad:     100,
	LayerToken:      150,
	LayerGM:         200,
	LayerAnnotation: 250,
	LayerFogOfWar:   300,
	LayerPlay:       400,
}

// EditingLayers returns the layers a map carries settings for, in depth
// order. Play is excluded.
func EditingLayers() []Layer {
	return []Layer{
		LayerBackground,
		LayerTerrain,
		LayerDoodad,
		LayerToken,
		LayerGM,
		LayerAnnotation,
		LayerFogOfWar,
	}
}

// Valid reports whether l is a known layer.
func (l Layer) Valid() bool {
	_, ok := zBase[l]
	return ok
}

// ZBase is the render depth of z-index 0 in this layer.
func (l Layer) ZBase() float32 { return zBase[l] }

// Depth is the render depth of an item at z in this layer. z is clamped.
func (l Layer) Depth(z int32) float32 { return l.ZBase() + float32(ClampZ(z)) }

// PlayerVisible reports whether players see this layer in a live session.
func (l Layer) PlayerVisible() bool {
	switch l {
	case LayerGM, LayerAnnotation, LayerFogOfWar, LayerPlay:
		return false
	}
	return true
}

// Available reports whether items may be placed on this layer.
func (l Layer) Available() bool { return l != LayerFogOfWar }

// OrDefault returns DefaultLayer for the zero Layer and l otherwise.
func (l Layer) OrDefault() Layer {
	if l == "" {
		return DefaultLayer
	}
	return l
}

// MarshalJSON writes the zero Layer as DefaultLayer and rejects unknown
// names, so every encoded layer decodes.
func (l Layer) MarshalJSON() ([]byte, error) {
	l = l.OrDefault()
	if !l.Valid() {
		return nil, fmt.Errorf("unknown layer %q", string(l))
	}
	return json.Marshal(string(l))
}

// UnmarshalJSON rejects unknown layer names.
func (l *Layer) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if !Layer(s).Valid() {
		return fmt.Errorf("unknown layer %q", s)
	}
	*l = Layer(s)
	return nil
}

// ClampZ limits z to 0..MaxZIndex.
func ClampZ(z int32) int32 {
	if z < 0 {
		return 0
	}
	if z > MaxZIndex {
		return MaxZIndex
	}
	return z
}
