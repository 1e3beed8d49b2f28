package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/talgya/hexsettlers/internal/board"
)

func TestCheckLayout(t *testing.T) {
	want := board.Standard()
	path := filepath.Join(t.TempDir(), "layout.json")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := board.WriteLayout(f, want); err != nil {
		t.Fatal(err)
	}
	f.Close()

	if err := checkLayout(path, want); err != nil {
		t.Errorf("standard layout does not match itself: %v", err)
	}

	small, err := board.BuildSpiral(board.StandardVersion, 1)
	if err != nil {
		t.Fatal(err)
	}
	err = checkLayout(path, small)
	if err == nil || !strings.Contains(err.Error(), "tiles") {
		t.Errorf("radius-1 comparison: %v", err)
	}

	relabelled, err := board.BuildSpiral("other", board.StandardRadius)
	if err != nil {
		t.Fatal(err)
	}
	if err := checkLayout(path, relabelled); err == nil {
		t.Error("version mismatch not reported")
	}
}
