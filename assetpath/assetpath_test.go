package assetpath

import (
	"errors"
	"strings"
	"testing"

	"github.com/hazyhaar/cartograph/mapfile"
)

func testSnapshot() *Snapshot {
	return NewSnapshot([]Asset{
		{Relative: "tokens/hero.png", Loadable: "abs/lib/tokens/hero.png"},
		{Relative: "ogre.png", Loadable: "abs/lib/ogre.png"},
		{Relative: "terrain/grass.png", Loadable: "abs/lib/terrain/grass.png"},
	})
}

func TestResolve_Relative(t *testing.T) {
	r := Resolve([]string{"tokens/hero.png"}, testSnapshot())
	if !r.OK() {
		t.Fatalf("missing: %v", r.Missing)
	}
	m := r.Matches[0]
	if m.Resolved != "abs/lib/tokens/hero.png" || m.Strategy != StrategyRelative {
		t.Fatalf("match: %+v", m)
	}
}

func TestResolve_LegacyExact(t *testing.T) {
	r := Resolve([]string{"abs/lib/terrain/grass.png"}, testSnapshot())
	if !r.OK() {
		t.Fatalf("missing: %v", r.Missing)
	}
	if m := r.Matches[0]; m.Resolved != "abs/lib/terrain/grass.png" || m.Strategy != StrategyLegacyExact {
		t.Fatalf("match: %+v", m)
	}
}

func TestResolve_Suffix(t *testing.T) {
	r := Resolve([]string{"old/location/ogre.png"}, testSnapshot())
	if !r.OK() {
		t.Fatalf("missing: %v", r.Missing)
	}
	if m := r.Matches[0]; m.Resolved != "abs/lib/ogre.png" || m.Strategy != StrategySuffix {
		t.Fatalf("match: %+v", m)
	}
}

func TestResolve_SuffixWindowsSeparators(t *testing.T) {
	r := Resolve([]string{`C:\Users\gm\old\tokens\hero.png`}, testSnapshot())
	if !r.OK() || r.Matches[0].Resolved != "abs/lib/tokens/hero.png" {
		t.Fatalf("resolution: %+v", r)
	}
	if r.Matches[0].Saved != `C:\Users\gm\old\tokens\hero.png` {
		t.Fatal("saved key must keep the original spelling")
	}
}

func TestResolve_RelativeBeatsLegacy(t *testing.T) {
	// "tokens/hero.png" is both a relative path and someone's loadable id.
	snap := NewSnapshot([]Asset{
		{Relative: "tokens/hero.png", Loadable: "abs/lib/tokens/hero.png"},
		{Relative: "other/hero.png", Loadable: "tokens/hero.png"},
	})
	r := Resolve([]string{"tokens/hero.png"}, snap)
	if m := r.Matches[0]; m.Strategy != StrategyRelative || m.Resolved != "abs/lib/tokens/hero.png" {
		t.Fatalf("match: %+v", m)
	}
}

func TestResolve_SuffixDeterministic(t *testing.T) {
	snap := NewSnapshot([]Asset{
		{Relative: "b/x.png", Loadable: "L/b/x.png"},
		{Relative: "x.png", Loadable: "L/x.png"},
		{Relative: "a/x.png", Loadable: "L/a/x.png"},
	})
	for i := 0; i < 20; i++ {
		r := Resolve([]string{"/old/a/x.png"}, snap)
		if r.Matches[0].Resolved != "L/a/x.png" {
			t.Fatalf("iteration %d: got %q", i, r.Matches[0].Resolved)
		}
	}
	// Suffix matching is literal: "zz/x.png" ends with "z/x.png".
	r := Resolve([]string{"zz/x.png"}, NewSnapshot([]Asset{
		{Relative: "z/x.png", Loadable: "L/z"},
		{Relative: "y/x.png", Loadable: "L/y"},
		{Relative: "x.png", Loadable: "L/x"},
	}))
	if r.Matches[0].Resolved != "L/z" {
		t.Fatalf("got %q", r.Matches[0].Resolved)
	}
}

func TestResolve_UnicodeNormalisation(t *testing.T) {
	// Library scanned with decomposed "é", file saved with composed "é".
	snap := NewSnapshot([]Asset{{Relative: "tokens/cafe\u0301.png", Loadable: "L/cafe.png"}})
	r := Resolve([]string{"tokens/caf\u00e9.png"}, snap)
	if !r.OK() || r.Matches[0].Strategy != StrategyRelative {
		t.Fatalf("resolution: %+v", r)
	}
}

func TestResolve_MissingCollectsAll(t *testing.T) {
	r := Resolve([]string{"a.png", "tokens/hero.png", "b.png", "a.png"}, testSnapshot())
	if r.OK() {
		t.Fatal("expected missing entries")
	}
	if len(r.Missing) != 2 || r.Missing[0] != "a.png" || r.Missing[1] != "b.png" {
		t.Fatalf("missing: %v", r.Missing)
	}
	err := r.Err("maps/cave.json")
	var mae *MissingAssetsError
	if !errors.As(err, &mae) || mae.MapPath != "maps/cave.json" || len(mae.Missing) != 2 {
		t.Fatalf("error: %v", err)
	}
	if !IsMissingAssets(err) {
		t.Fatal("IsMissingAssets")
	}
	if !strings.HasPrefix(err.Error(), "assetpath: maps/cave.json: 2 missing assets") {
		t.Fatalf("message: %s", err)
	}
}

func TestResolution_Apply(t *testing.T) {
	doc := &mapfile.Document{PlacedItems: []mapfile.PlacedItem{
		{AssetPath: "tokens/hero.png"},
		{AssetPath: "old/location/ogre.png"},
		{AssetPath: "tokens/hero.png"},
	}}
	r := Resolve(Manifest(doc), testSnapshot())
	if n := r.Apply(doc); n != 3 {
		t.Fatalf("rewritten: got %d, want 3", n)
	}
	want := []string{"abs/lib/tokens/hero.png", "abs/lib/ogre.png", "abs/lib/tokens/hero.png"}
	for i, it := range doc.PlacedItems {
		if it.AssetPath != want[i] {
			t.Errorf("item %d: got %q, want %q", i, it.AssetPath, want[i])
		}
	}
}

func TestManifest_CompletesFromItems(t *testing.T) {
	doc := &mapfile.Document{
		AssetManifest: mapfile.AssetManifest{Assets: []string{"b.png"}},
		PlacedItems:   []mapfile.PlacedItem{{AssetPath: "a.png"}, {AssetPath: "b.png"}},
	}
	got := Manifest(doc)
	if strings.Join(got, ",") != "a.png,b.png" {
		t.Fatalf("manifest: %v", got)
	}
}

func TestRelativize(t *testing.T) {
	doc := &mapfile.Document{PlacedItems: []mapfile.PlacedItem{
		{AssetPath: "abs/lib/tokens/hero.png"},
		{AssetPath: "elsewhere/unknown.png"},
	}}
	if n := Relativize(doc, testSnapshot()); n != 1 {
		t.Fatalf("rewritten: %d", n)
	}
	if doc.PlacedItems[0].AssetPath != "tokens/hero.png" {
		t.Fatalf("item 0: %q", doc.PlacedItems[0].AssetPath)
	}
	if doc.PlacedItems[1].AssetPath != "elsewhere/unknown.png" {
		t.Fatal("unknown id must be kept")
	}
	if strings.Join(doc.AssetManifest.Assets, ",") != "elsewhere/unknown.png,tokens/hero.png" {
		t.Fatalf("manifest: %v", doc.AssetManifest.Assets)
	}
}

func TestStrategy_String(t *testing.T) {
	for s, want := range map[Strategy]string{
		StrategyRelative: "relative", StrategyLegacyExact: "legacy_exact", StrategySuffix: "suffix", 0: "unknown",
	} {
		if s.String() != want {
			t.Errorf("%d: got %q, want %q", s, s.String(), want)
		}
	}
}
