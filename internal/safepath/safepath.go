// Package safepath confines user-supplied map names to the maps directory.
package safepath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// MapExt is the file extension of saved maps.
const MapExt = ".json"

// ErrPathTraversal is returned when a user-supplied path escapes its base.
var ErrPathTraversal = errors.New("safepath: path traversal detected")

// ErrInvalidName wraps every ValidateName failure.
var ErrInvalidName = errors.New("safepath: invalid name")

// Join validates that joining base and userInput does not escape base and
// returns the cleaned path.
func Join(base, userInput string) (string, error) {
	if strings.Contains(userInput, "..") {
		return "", ErrPathTraversal
	}
	cleaned := filepath.Join(base, filepath.Clean("/"+userInput))
	cb := filepath.Clean(base)
	if !strings.HasPrefix(cleaned, cb+string(filepath.Separator)) && cleaned != cb {
		return "", ErrPathTraversal
	}
	return cleaned, nil
}

// MapFile resolves a map name such as "dungeon" or "dungeon.json" to a file
// directly inside mapsDir. Subdirectories are rejected.
func MapFile(mapsDir, name string) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}
	if !strings.EqualFold(filepath.Ext(name), MapExt) {
		name += MapExt
	}
	return Join(mapsDir, name)
}

// ValidateName rejects map names that are empty, too long, contain path
// separators, or start with a dot.
func ValidateName(s string) error {
	if s == "" {
		return fmt.Errorf("%w: must not be empty", ErrInvalidName)
	}
	if len(s) > 255 {
		return fmt.Errorf("%w: too long (max 255)", ErrInvalidName)
	}
	if strings.HasPrefix(s, ".") {
		return fmt.Errorf("%w: must not start with a dot", ErrInvalidName)
	}
	for _, r := range s {
		if r == '/' || r == '\\' || r == 0 {
			return fmt.Errorf("%w: character %q", ErrInvalidName, r)
		}
	}
	return nil
}
