package safepath

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestJoin(t *testing.T) {
	tests := []struct {
		base, input string
		wantErr     bool
	}{
		{"/lib/maps", "cave.json", false},
		{"/lib/maps", "../secrets", true},
		{"/lib/maps", "a/../b", true},
		{"/lib/maps", "a/../../outside", true},
		{"/lib/maps", "dungeon level 2.json", false},
	}
	for _, tt := range tests {
		_, err := Join(tt.base, tt.input)
		if (err != nil) != tt.wantErr {
			t.Errorf("Join(%q, %q) error=%v, wantErr=%v", tt.base, tt.input, err, tt.wantErr)
		}
	}
}

func TestMapFile(t *testing.T) {
	base := filepath.FromSlash("/lib/maps")
	tests := []struct {
		name    string
		want    string
		wantErr bool
	}{
		{"cave", filepath.Join(base, "cave.json"), false},
		{"cave.json", filepath.Join(base, "cave.json"), false},
		{"Cave.JSON", filepath.Join(base, "Cave.JSON"), false},
		{"", "", true},
		{".hidden", "", true},
		{"sub/cave", "", true},
		{"..", "", true},
	}
	for _, tt := range tests {
		got, err := MapFile(base, tt.name)
		if (err != nil) != tt.wantErr {
			t.Errorf("MapFile(%q) error=%v, wantErr=%v", tt.name, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("MapFile(%q) = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestMapFile_TraversalSentinel(t *testing.T) {
	_, err := MapFile("/lib/maps", "x..json")
	if !errors.Is(err, ErrPathTraversal) {
		t.Fatalf("expected ErrPathTraversal, got %v", err)
	}
}

func TestValidateName_Sentinel(t *testing.T) {
	for _, name := range []string{"", ".hidden", "a/b", `a\b`} {
		if err := ValidateName(name); !errors.Is(err, ErrInvalidName) {
			t.Errorf("ValidateName(%q) = %v, want ErrInvalidName", name, err)
		}
	}
}
