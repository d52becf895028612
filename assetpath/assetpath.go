// Package assetpath maps the asset identifiers recorded in a map file to
// identifiers the current asset library can load.
//
// A saved identifier is tried against three strategies in priority order:
//
//  1. Relative: it is a library-relative path known to the library.
//  2. LegacyExact: it is itself a currently loadable identifier (files
//     written before library-relative paths, library not moved).
//  3. Suffix: it ends with some library-relative path (old files whose
//     library moved). Longer relative paths are tried first, ties broken
//     lexicographically, so the outcome does not depend on map iteration.
//
// Comparison uses NFC-normalised, slash-separated forms so a library scanned
// on a filesystem that stores decomposed names still matches.
package assetpath

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/hazyhaar/cartograph/mapfile"
)

// Asset is one library entry.
type Asset struct {
	Relative string // slash-separated path under the library root
	Loadable string // identifier the scene loads the asset by
}

// Snapshot is an immutable view of the library used for one resolution.
type Snapshot struct {
	byRelative map[string]string // normalised relative -> loadable
	toRelative map[string]string // normalised loadable -> relative
	relatives  []string          // normalised, suffix-match order
}

// NewSnapshot indexes assets. Later duplicates of a relative path are ignored.
func NewSnapshot(assets []Asset) *Snapshot {
	s := &Snapshot{
		byRelative: make(map[string]string, len(assets)),
		toRelative: make(map[string]string, len(assets)),
	}
	for _, a := range assets {
		rel := Normalize(a.Relative)
		if rel == "" {
			continue
		}
		if _, dup := s.byRelative[rel]; dup {
			continue
		}
		s.byRelative[rel] = a.Loadable
		s.toRelative[Normalize(a.Loadable)] = a.Relative
		s.relatives = append(s.relatives, rel)
	}
	slices.SortFunc(s.relatives, func(a, b string) int {
		if c := cmp.Compare(len(b), len(a)); c != 0 {
			return c
		}
		return strings.Compare(a, b)
	})
	return s
}

// Len is the number of assets in the snapshot.
func (s *Snapshot) Len() int { return len(s.relatives) }

// Loadable returns the loadable identifier of a library-relative path.
func (s *Snapshot) Loadable(relative string) (string, bool) {
	id, ok := s.byRelative[Normalize(relative)]
	return id, ok
}

// Relative returns the library-relative path of a loadable identifier.
func (s *Snapshot) Relative(loadable string) (string, bool) {
	rel, ok := s.toRelative[Normalize(loadable)]
	return rel, ok
}

// Normalize converts p to NFC with forward slashes.
func Normalize(p string) string {
	return norm.NFC.String(strings.ReplaceAll(p, `\`, "/"))
}

// Strategy names how a saved identifier was resolved.
type Strategy int

const (
	StrategyRelative Strategy = iota + 1
	StrategyLegacyExact
	StrategySuffix
)

func (s Strategy) String() string {
	switch s {
	case StrategyRelative:
		return "relative"
	case StrategyLegacyExact:
		return "legacy_exact"
	case StrategySuffix:
		return "suffix"
	}
	return "unknown"
}

// MarshalText renders the strategy name in JSON reports.
func (s Strategy) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Match is one resolved manifest entry.
type Match struct {
	Saved    string   `json:"saved"`
	Resolved string   `json:"resolved"`
	Strategy Strategy `json:"strategy"`
}

// Resolution is the outcome of resolving a whole manifest.
type Resolution struct {
	Matches []Match  `json:"matches"`
	Missing []string `json:"missing"`
}

// Resolve resolves every entry of manifest against snap. Entries are
// processed in order and duplicates are resolved once.
func Resolve(manifest []string, snap *Snapshot) *Resolution {
	r := &Resolution{}
	seen := make(map[string]struct{}, len(manifest))
	for _, saved := range manifest {
		if _, dup := seen[saved]; dup {
			continue
		}
		seen[saved] = struct{}{}
		if m, ok := snap.resolve(saved); ok {
			r.Matches = append(r.Matches, m)
		} else {
			r.Missing = append(r.Missing, saved)
		}
	}
	return r
}

func (s *Snapshot) resolve(saved string) (Match, bool) {
	p := Normalize(saved)
	if id, ok := s.byRelative[p]; ok {
		return Match{Saved: saved, Resolved: id, Strategy: StrategyRelative}, true
	}
	if _, ok := s.toRelative[p]; ok {
		return Match{Saved: saved, Resolved: saved, Strategy: StrategyLegacyExact}, true
	}
	for _, rel := range s.relatives {
		if strings.HasSuffix(p, rel) {
			return Match{Saved: saved, Resolved: s.byRelative[rel], Strategy: StrategySuffix}, true
		}
	}
	return Match{}, false
}

// OK reports whether every entry resolved.
func (r *Resolution) OK() bool { return len(r.Missing) == 0 }

// Err returns a *MissingAssetsError for mapPath, or nil when OK.
func (r *Resolution) Err(mapPath string) error {
	if r.OK() {
		return nil
	}
	return &MissingAssetsError{MapPath: mapPath, Missing: slices.Clone(r.Missing)}
}

// Apply rewrites every placed item whose asset path equals a resolved
// manifest entry and returns how many items changed.
func (r *Resolution) Apply(doc *mapfile.Document) int {
	mapping := make(map[string]string, len(r.Matches))
	for _, m := range r.Matches {
		mapping[m.Saved] = m.Resolved
	}
	n := 0
	for i := range doc.PlacedItems {
		it := &doc.PlacedItems[i]
		if id, ok := mapping[it.AssetPath]; ok && id != it.AssetPath {
			it.AssetPath = id
			n++
		}
	}
	return n
}

// Manifest returns the entries to resolve for doc: its recorded manifest
// completed with any placed-item path the manifest omits. The result is
// sorted and de-duplicated.
func Manifest(doc *mapfile.Document) []string {
	out := slices.Clone(doc.AssetManifest.Assets)
	for _, it := range doc.PlacedItems {
		out = append(out, it.AssetPath)
	}
	slices.Sort(out)
	return slices.Compact(out)
}

// Relativize replaces every placed-item asset path that is a loadable
// identifier known to snap with its library-relative path, then rebuilds
// the manifest. Unknown identifiers are kept. It returns the number of
// rewritten items.
func Relativize(doc *mapfile.Document, snap *Snapshot) int {
	n := 0
	for i := range doc.PlacedItems {
		it := &doc.PlacedItems[i]
		if rel, ok := snap.Relative(it.AssetPath); ok && rel != it.AssetPath {
			it.AssetPath = rel
			n++
		}
	}
	doc.AssetManifest = mapfile.BuildManifest(doc.PlacedItems)
	return n
}

// MissingAssetsError aborts a load whose manifest does not fully resolve.
type MissingAssetsError struct {
	MapPath string
	Missing []string
}

func (e *MissingAssetsError) Error() string {
	return fmt.Sprintf("assetpath: %s: %s", e.MapPath, e.Summary())
}

// Summary counts the missing assets and names the first three.
func (e *MissingAssetsError) Summary() string {
	const shown = 3
	list := e.Missing
	suffix := ""
	if len(list) > shown {
		suffix = fmt.Sprintf(" (and %d more)", len(list)-shown)
		list = list[:shown]
	}
	return fmt.Sprintf("%d missing assets: %s%s", len(e.Missing), strings.Join(list, ", "), suffix)
}

// IsMissingAssets reports whether err is or wraps a *MissingAssetsError.
func IsMissingAssets(err error) bool {
	var e *MissingAssetsError
	return errors.As(err, &e)
}
