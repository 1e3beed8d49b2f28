// Command layoutgen writes the versioned board layout table as JSON, or
// checks that an existing table matches the one this build uses.
package main

import (
	"bytes"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/talgya/hexsettlers/internal/board"
	"github.com/talgya/hexsettlers/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("bad configuration", "error", err)
		os.Exit(1)
	}
	out := flag.String("out", "", "output file (default stdout)")
	radius := flag.Int("radius", board.StandardRadius, "tile rings around the centre tile")
	version := flag.String("version", board.StandardVersion, "layout version label")
	check := flag.String("check", "", "compare this layout file with the generated table instead of writing")
	flag.Parse()

	slog.SetDefault(cfg.Logger())

	topo, err := board.BuildSpiral(*version, *radius)
	if err != nil {
		slog.Error("failed to build layout", "error", err)
		os.Exit(1)
	}

	if *check != "" {
		if err := checkLayout(*check, topo); err != nil {
			slog.Error("layout mismatch", "file", *check, "error", err)
			os.Exit(1)
		}
		slog.Info("layout matches", "file", *check, "version", topo.Version)
		return
	}

	var w io.Writer = os.Stdout
	if *out != "" {
		f, err := os.Create(*out)
		if err != nil {
			slog.Error("failed to create output", "error", err)
			os.Exit(1)
		}
		defer f.Close()
		w = f
	}
	if err := board.WriteLayout(w, topo); err != nil {
		slog.Error("failed to write layout", "error", err)
		os.Exit(1)
	}
	slog.Debug("layout written",
		"version", topo.Version,
		"tiles", topo.NumTiles(),
		"vertices", topo.NumVertices(),
		"edges", topo.NumEdges(),
	)
}

// checkLayout reads path and reports the first difference from want.
func checkLayout(path string, want *board.Topology) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	got, err := board.ReadLayout(f)
	if err != nil {
		return err
	}
	return compare(got, want)
}

func compare(got, want *board.Topology) error {
	if got.Version != want.Version {
		return fmt.Errorf("version %q, want %q", got.Version, want.Version)
	}
	var a, b bytes.Buffer
	if err := board.WriteLayout(&a, got); err != nil {
		return err
	}
	if err := board.WriteLayout(&b, want); err != nil {
		return err
	}
	if bytes.Equal(a.Bytes(), b.Bytes()) {
		return nil
	}
	switch {
	case got.NumTiles() != want.NumTiles():
		return fmt.Errorf("%d tiles, want %d", got.NumTiles(), want.NumTiles())
	case got.NumVertices() != want.NumVertices():
		return fmt.Errorf("%d vertices, want %d", got.NumVertices(), want.NumVertices())
	case got.NumEdges() != want.NumEdges():
		return fmt.Errorf("%d edges, want %d", got.NumEdges(), want.NumEdges())
	}
	for i := range want.Vertices {
		if got.Vertices[i] != want.Vertices[i] {
			return fmt.Errorf("vertex %d at %v, want %v", i, got.Vertices[i], want.Vertices[i])
		}
	}
	for i := range want.Tiles {
		if got.Tiles[i] != want.Tiles[i] {
			return fmt.Errorf("tile %d at %v, want %v", i, got.Tiles[i], want.Tiles[i])
		}
	}
	for i := range want.Edges {
		if got.Edges[i] != want.Edges[i] {
			return fmt.Errorf("edge %d joins %v, want %v", i, got.Edges[i], want.Edges[i])
		}
	}
	return fmt.Errorf("tables differ")
}
