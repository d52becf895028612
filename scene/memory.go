package scene

import (
	"maps"
	"slices"

	"github.com/hazyhaar/cartograph/mapfile"
)

// Memory is an in-memory Scene with the editing operations a map editor
// performs. Iteration is in spawn order.
type Memory struct {
	next        ID
	items       map[ID]*Item
	annotations map[ID]*Annotation
	mapData     mapfile.MapData
	fog         map[mapfile.Cell]struct{}
	changes     Changes
}

// NewMemory returns an empty scene with default map data.
func NewMemory() *Memory {
	return &Memory{
		items:       make(map[ID]*Item),
		annotations: make(map[ID]*Annotation),
		mapData:     mapfile.DefaultMapData(mapfile.DefaultMapName),
		fog:         make(map[mapfile.Cell]struct{}),
	}
}

var _ Scene = (*Memory)(nil)

func (m *Memory) Items() []Item {
	out := make([]Item, 0, len(m.items))
	for _, id := range slices.Sorted(maps.Keys(m.items)) {
		it := *m.items[id]
		out = append(out, it)
	}
	return out
}

func (m *Memory) Annotations() []Annotation {
	out := make([]Annotation, 0, len(m.annotations))
	for _, id := range slices.Sorted(maps.Keys(m.annotations)) {
		a := *m.annotations[id]
		a.Path.Points = slices.Clone(a.Path.Points)
		out = append(out, a)
	}
	return out
}

func (m *Memory) MapData() mapfile.MapData { return m.mapData.Clone() }

func (m *Memory) SetMapData(md mapfile.MapData) {
	m.mapData = md.Clone()
	m.changes.Meta++
}

func (m *Memory) Fog() []mapfile.Cell {
	return mapfile.SortCells(slices.Collect(maps.Keys(m.fog)))
}

func (m *Memory) SetFog(cells []mapfile.Cell) {
	m.fog = make(map[mapfile.Cell]struct{}, len(cells))
	for _, c := range cells {
		m.fog[c] = struct{}{}
	}
	m.changes.Fog++
}

func (m *Memory) Clear() {
	m.changes.Removed += len(m.items) + len(m.annotations)
	clear(m.items)
	clear(m.annotations)
}

func (m *Memory) SpawnItem(it Item) ID {
	m.next++
	it.ID = m.next
	m.items[it.ID] = &it
	m.changes.Added++
	return it.ID
}

func (m *Memory) SpawnAnnotation(a Annotation) ID {
	m.next++
	a.ID = m.next
	a.Path.Points = slices.Clone(a.Path.Points)
	m.annotations[a.ID] = &a
	m.changes.Added++
	return a.ID
}

func (m *Memory) DrainChanges() Changes {
	c := m.changes
	m.changes = Changes{}
	return c
}

// Place spawns it the way the editor's placement tool does.
func (m *Memory) Place(it mapfile.PlacedItem) ID {
	return m.SpawnItem(ItemFor(it))
}

// Item returns the item with id.
func (m *Memory) Item(id ID) (Item, bool) {
	it, ok := m.items[id]
	if !ok {
		return Item{}, false
	}
	return *it, true
}

// Despawn removes an item or annotation.
func (m *Memory) Despawn(id ID) bool {
	if _, ok := m.items[id]; ok {
		delete(m.items, id)
		m.changes.Removed++
		return true
	}
	if _, ok := m.annotations[id]; ok {
		delete(m.annotations, id)
		m.changes.Removed++
		return true
	}
	return false
}

// SetTransform updates an item's transform. Writing the same transform still
// counts as a change.
func (m *Memory) SetTransform(id ID, pos mapfile.Vec2, rotation float32, scale mapfile.Vec2) bool {
	it, ok := m.items[id]
	if !ok {
		return false
	}
	it.Position, it.Rotation, it.Scale = pos, rotation, scale
	m.changes.Transformed++
	return true
}

// Move translates an item by delta.
func (m *Memory) Move(id ID, delta mapfile.Vec2) bool {
	it, ok := m.items[id]
	if !ok {
		return false
	}
	return m.SetTransform(id, mapfile.Vec2{it.Position[0] + delta[0], it.Position[1] + delta[1]}, it.Rotation, it.Scale)
}

// SetZIndex moves an item within its layer. z is clamped.
func (m *Memory) SetZIndex(id ID, z int32) bool {
	it, ok := m.items[id]
	if !ok {
		return false
	}
	it.ZIndex = mapfile.ClampZ(z)
	it.Depth = it.Layer.Depth(it.ZIndex)
	m.changes.Transformed++
	return true
}

// RevealCell reveals c. It reports whether c was hidden.
func (m *Memory) RevealCell(c mapfile.Cell) bool {
	if _, ok := m.fog[c]; ok {
		return false
	}
	m.fog[c] = struct{}{}
	m.changes.Fog++
	return true
}

// HideCell hides c. It reports whether c was revealed.
func (m *Memory) HideCell(c mapfile.Cell) bool {
	if _, ok := m.fog[c]; !ok {
		return false
	}
	delete(m.fog, c)
	m.changes.Fog++
	return true
}

// SetLayerVisible toggles a layer's editor visibility.
func (m *Memory) SetLayerVisible(l mapfile.Layer, visible bool) bool {
	for i := range m.mapData.Layers {
		if m.mapData.Layers[i].LayerType == l {
			m.mapData.Layers[i].Visible = visible
			m.changes.Meta++
			return true
		}
	}
	return false
}
