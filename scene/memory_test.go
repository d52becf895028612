package scene

import (
	"testing"

	"github.com/hazyhaar/cartograph/mapfile"
)

func TestMemory_ChangeCounters(t *testing.T) {
	m := NewMemory()
	id := m.Place(mapfile.PlacedItem{AssetPath: "a", Layer: mapfile.LayerTerrain})
	if c := m.DrainChanges(); c.Added != 1 {
		t.Fatalf("after place: %+v", c)
	}
	if c := m.DrainChanges(); c.Any() {
		t.Fatalf("drain must reset: %+v", c)
	}

	m.Move(id, mapfile.Vec2{1, 0})
	m.SetZIndex(id, 4)
	if c := m.DrainChanges(); c.Transformed != 2 {
		t.Fatalf("after transform: %+v", c)
	}

	it, _ := m.Item(id)
	// No-op transform still counts.
	m.SetTransform(id, it.Position, it.Rotation, it.Scale)
	if c := m.DrainChanges(); c.Transformed != 1 {
		t.Fatalf("no-op transform: %+v", c)
	}

	m.Despawn(id)
	if c := m.DrainChanges(); c.Removed != 1 {
		t.Fatalf("after despawn: %+v", c)
	}
	if m.Despawn(id) {
		t.Fatal("double despawn reported success")
	}
}

func TestMemory_Fog(t *testing.T) {
	m := NewMemory()
	if !m.RevealCell(mapfile.Cell{1, 1}) || m.RevealCell(mapfile.Cell{1, 1}) {
		t.Fatal("reveal bookkeeping")
	}
	if c := m.DrainChanges(); c.Fog != 1 {
		t.Fatalf("fog changes: %+v", c)
	}
	if !m.HideCell(mapfile.Cell{1, 1}) || len(m.Fog()) != 0 {
		t.Fatal("hide")
	}
}

func TestMemory_SetZIndexClamps(t *testing.T) {
	m := NewMemory()
	id := m.Place(mapfile.PlacedItem{AssetPath: "a", Layer: mapfile.LayerDoodad})
	m.SetZIndex(id, 40)
	it, _ := m.Item(id)
	if it.ZIndex != mapfile.MaxZIndex || it.Depth != 124 {
		t.Fatalf("z %d depth %v", it.ZIndex, it.Depth)
	}
}

func TestMemory_SetLayerVisible(t *testing.T) {
	m := NewMemory()
	if !m.SetLayerVisible(mapfile.LayerGM, false) {
		t.Fatal("GM layer missing from defaults")
	}
	ld, _ := m.MapData().Layer(mapfile.LayerGM)
	if ld.Visible {
		t.Fatal("layer still visible")
	}
	if m.SetLayerVisible(mapfile.LayerPlay, false) {
		t.Fatal("Play is not an editing layer")
	}
}
