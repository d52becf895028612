package library

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/hazyhaar/cartograph/assetpath"
	"github.com/hazyhaar/cartograph/watch"
)

func touch(t *testing.T, root, rel string) string {
	t.Helper()
	p := filepath.Join(root, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(p, []byte("img"), 0o644); err != nil {
		t.Fatal(err)
	}
	return p
}

func testLibrary(t *testing.T) *Library {
	t.Helper()
	root := t.TempDir()
	touch(t, root, "tokens/hero.png")
	touch(t, root, "terrain/grass.JPG")
	touch(t, root, "notes.txt")
	touch(t, root, ".hidden/secret.png")
	touch(t, root, "tokens/.ghost.png")
	touch(t, root, "maps/preview.png")
	l, err := Open(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	return l
}

func TestScan_Filters(t *testing.T) {
	l := testLibrary(t)
	assets := l.Assets()
	if len(assets) != 2 {
		t.Fatalf("assets: %+v", assets)
	}
	if assets[0].Relative != "terrain/grass.JPG" || assets[0].Extension != "jpg" || assets[0].Folder != "terrain" {
		t.Fatalf("asset 0: %+v", assets[0])
	}
	if assets[1].Relative != "tokens/hero.png" || assets[1].Name != "hero" {
		t.Fatalf("asset 1: %+v", assets[1])
	}
	if !filepath.IsAbs(assets[1].Loadable) {
		t.Fatalf("loadable must be absolute: %q", assets[1].Loadable)
	}
}

func TestOpen_EnsuresMapsAndMetadata(t *testing.T) {
	root := filepath.Join(t.TempDir(), "Dungeon Tiles")
	if err := os.Mkdir(root, 0o755); err != nil {
		t.Fatal(err)
	}
	l, err := Open(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	if fi, err := os.Stat(l.MapsDir()); err != nil || !fi.IsDir() {
		t.Fatalf("maps dir: %v", err)
	}
	if l.Metadata().Name != "Dungeon Tiles" {
		t.Fatalf("name: %q", l.Metadata().Name)
	}
	m, err := LoadMetadata(root)
	if err != nil || m.Name != "Dungeon Tiles" {
		t.Fatalf("metadata file: %+v %v", m, err)
	}
}

func TestOpen_Errors(t *testing.T) {
	if _, err := Open(filepath.Join(t.TempDir(), "missing"), nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	file := touch(t, t.TempDir(), "file.png")
	if _, err := Open(file, nil); !errors.Is(err, ErrNotDirectory) {
		t.Fatalf("expected ErrNotDirectory, got %v", err)
	}
}

func TestCreateAndOpen(t *testing.T) {
	root := filepath.Join(t.TempDir(), "fresh")
	l, err := CreateAndOpen(root, nil)
	if err != nil {
		t.Fatal(err)
	}
	for _, dir := range append(Subfolders, MapsDir) {
		if fi, err := os.Stat(filepath.Join(root, dir)); err != nil || !fi.IsDir() {
			t.Errorf("missing %s: %v", dir, err)
		}
	}
	if err := l.Rename("Renamed"); err != nil {
		t.Fatal(err)
	}
	if m, _ := LoadMetadata(root); m.Name != "Renamed" {
		t.Fatalf("rename not persisted: %+v", m)
	}
}

func TestLoadMetadata_Corrupt(t *testing.T) {
	root := t.TempDir()
	if err := os.WriteFile(filepath.Join(root, MetadataFile), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	m, err := LoadMetadata(root)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if m.Name != filepath.Base(root) {
		t.Fatalf("fallback name: %q", m.Name)
	}
}

func TestSnapshotAndExists(t *testing.T) {
	l := testLibrary(t)
	snap := l.Snapshot()
	id, ok := snap.Loadable("tokens/hero.png")
	if !ok {
		t.Fatal("relative path not in snapshot")
	}
	if !l.Exists(id) || !l.Exists("tokens/hero.png") {
		t.Fatal("Exists false for a present asset")
	}
	if l.Exists("tokens/villain.png") {
		t.Fatal("Exists true for a missing asset")
	}

	r := assetpath.Resolve([]string{"/old/lib/tokens/hero.png"}, snap)
	if !r.OK() || r.Matches[0].Resolved != id {
		t.Fatalf("resolution: %+v", r)
	}
}

func TestRefresh_PicksUpNewFiles(t *testing.T) {
	l := testLibrary(t)
	touch(t, l.Root(), "doodads/barrel.webp")
	if err := l.Refresh(); err != nil {
		t.Fatal(err)
	}
	if _, ok := l.Snapshot().Loadable("doodads/barrel.webp"); !ok {
		t.Fatal("new asset not found after refresh")
	}
}

func TestFingerprint(t *testing.T) {
	l := testLibrary(t)
	det := Fingerprint(l.Root())
	ctx := context.Background()

	a, err := det(ctx)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := det(ctx)
	if a != b {
		t.Fatal("fingerprint unstable")
	}

	touch(t, l.Root(), "maps/ignored.png")
	touch(t, l.Root(), "readme.md")
	if c, _ := det(ctx); c != a {
		t.Fatal("non-asset changes altered the fingerprint")
	}

	touch(t, l.Root(), "tokens/new.png")
	if c, _ := det(ctx); c == a {
		t.Fatal("new asset did not alter the fingerprint")
	}
}

func TestWatcher_RefreshesOnChange(t *testing.T) {
	l := testLibrary(t)
	var refreshed atomic.Int32
	w := l.Watcher(watch.Options{Interval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go w.OnChange(ctx, func() error {
		refreshed.Add(1)
		return l.Refresh()
	})
	time.Sleep(40 * time.Millisecond)

	touch(t, l.Root(), "tokens/late.png")
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := l.Snapshot().Loadable("tokens/late.png"); ok {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("watcher never refreshed (reloads=%d)", refreshed.Load())
}
