package library

import (
	"context"
	"encoding/binary"
	"hash/fnv"
	"io/fs"
	"path/filepath"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// imageExts are the file extensions recognised as assets.
var imageExts = []string{"png", "jpg", "jpeg", "webp", "gif", "bmp", "tiff", "tif"}

// Asset is one image file in the library.
type Asset struct {
	Name      string `json:"name"`      // file stem
	Relative  string `json:"relative"`  // slash-separated, NFC, under the root
	Folder    string `json:"folder"`    // Relative's directory, "" at the root
	Extension string `json:"extension"` // lower case, without dot
	Loadable  string `json:"loadable"`  // absolute OS path
}

// IsImage reports whether name has an image extension.
func IsImage(name string) bool {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	return slices.Contains(imageExts, ext)
}

// Scan walks root and returns its assets sorted by relative path. Hidden
// entries and the maps directory are skipped.
func Scan(root string) ([]Asset, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}
	var assets []Asset
	err = walk(abs, func(path string, d fs.DirEntry) error {
		if d.IsDir() || !IsImage(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(abs, path)
		if err != nil {
			return err
		}
		rel = norm.NFC.String(filepath.ToSlash(rel))
		folder := ""
		if i := strings.LastIndex(rel, "/"); i >= 0 {
			folder = rel[:i]
		}
		name := d.Name()
		ext := filepath.Ext(name)
		assets = append(assets, Asset{
			Name:      norm.NFC.String(strings.TrimSuffix(name, ext)),
			Relative:  rel,
			Folder:    folder,
			Extension: strings.ToLower(strings.TrimPrefix(ext, ".")),
			Loadable:  path,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(assets, func(a, b Asset) int { return strings.Compare(a.Relative, b.Relative) })
	return assets, nil
}

// walk visits every non-hidden entry under root except root/maps.
func walk(root string, fn func(path string, d fs.DirEntry) error) error {
	maps := filepath.Join(root, MapsDir)
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			// Unreadable subtree: skip it rather than fail the scan.
			if d != nil && d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		if path == root {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") || path == maps {
			if d.IsDir() {
				return fs.SkipDir
			}
			return nil
		}
		return fn(path, d)
	})
}

// Fingerprint returns a detector whose token changes whenever an asset file
// under root is added, removed, renamed, resized or touched.
func Fingerprint(root string) func(ctx context.Context) (int64, error) {
	return func(ctx context.Context) (int64, error) {
		h := fnv.New64a()
		var buf [16]byte
		err := walk(root, func(path string, d fs.DirEntry) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if d.IsDir() || !IsImage(d.Name()) {
				return nil
			}
			info, err := d.Info()
			if err != nil {
				return nil
			}
			h.Write([]byte(path))
			binary.LittleEndian.PutUint64(buf[:8], uint64(info.Size()))
			binary.LittleEndian.PutUint64(buf[8:], uint64(info.ModTime().UnixNano()))
			h.Write(buf[:])
			return nil
		})
		if err != nil {
			return 0, err
		}
		return int64(h.Sum64()), nil
	}
}
