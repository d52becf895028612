package mapfile

import (
	"encoding/json"
	"testing"
)

func TestLayer_ZBaseOrdering(t *testing.T) {
	order := append(EditingLayers(), LayerPlay)
	for i := 1; i < len(order); i++ {
		if order[i-1].ZBase() >= order[i].ZBase() {
			t.Fatalf("%s (%v) not below %s (%v)", order[i-1], order[i-1].ZBase(), order[i], order[i].ZBase())
		}
	}
	if LayerTerrain.ZBase() != 50 || LayerPlay.ZBase() != 400 {
		t.Fatal("unexpected base values")
	}
}

func TestLayer_Depth(t *testing.T) {
	if got := LayerToken.Depth(3); got != 153 {
		t.Fatalf("Depth(3) = %v, want 153", got)
	}
	if got := LayerToken.Depth(99); got != 150+float32(MaxZIndex) {
		t.Fatalf("Depth(99) = %v, want clamp", got)
	}
	if got := LayerToken.Depth(-5); got != 150 {
		t.Fatalf("Depth(-5) = %v, want 150", got)
	}
}

func TestLayer_PlayerVisible(t *testing.T) {
	visible := map[Layer]bool{
		LayerBackground: true, LayerTerrain: true, LayerDoodad: true, LayerToken: true,
		LayerGM: false, LayerAnnotation: false, LayerFogOfWar: false, LayerPlay: false,
	}
	for l, want := range visible {
		if l.PlayerVisible() != want {
			t.Errorf("%s.PlayerVisible() = %v, want %v", l, !want, want)
		}
	}
}

func TestEditingLayers_ExcludesPlay(t *testing.T) {
	for _, l := range EditingLayers() {
		if l == LayerPlay {
			t.Fatal("Play must not be an editing layer")
		}
	}
	if LayerFogOfWar.Available() {
		t.Fatal("FogOfWar is reserved")
	}
}

func TestLayer_JSON(t *testing.T) {
	for _, l := range append(EditingLayers(), LayerPlay) {
		data, err := json.Marshal(l)
		if err != nil {
			t.Fatal(err)
		}
		var back Layer
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatal(err)
		}
		if back != l {
			t.Fatalf("got %s, want %s", back, l)
		}
	}
	var l Layer
	if err := json.Unmarshal([]byte(`"Ceiling"`), &l); err == nil {
		t.Fatal("expected error for unknown layer")
	}
}

func TestBuildManifest(t *testing.T) {
	m := BuildManifest([]PlacedItem{{AssetPath: "b"}, {AssetPath: "a"}, {AssetPath: "b"}})
	if len(m.Assets) != 2 || m.Assets[0] != "a" || m.Assets[1] != "b" {
		t.Fatalf("manifest: %v", m.Assets)
	}
}
