// Command replay lists journaled sessions, audits one for state that went
// backwards, and renders its final board as SVG.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/talgya/hexsettlers/internal/board"
	"github.com/talgya/hexsettlers/internal/config"
	"github.com/talgya/hexsettlers/internal/journal"
	"github.com/talgya/hexsettlers/internal/legality"
	"github.com/talgya/hexsettlers/internal/render"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("bad configuration", "error", err)
		os.Exit(1)
	}
	path := flag.String("journal", cfg.JournalPath, "journal database")
	list := flag.Bool("list", false, "list sessions and exit")
	session := flag.String("session", "", "session id or unique prefix (default latest)")
	svgOut := flag.String("svg", "", "write the final board of the session to this file")
	player := flag.String("player", "", "highlight settlements this player could place on the final board")
	flag.Parse()

	slog.SetDefault(cfg.Logger())

	if *path == "" {
		slog.Error("no journal configured")
		os.Exit(1)
	}
	j, err := journal.Open(*path)
	if err != nil {
		slog.Error("failed to open journal", "error", err)
		os.Exit(1)
	}
	defer j.Close()

	ctx := context.Background()
	if *list {
		if err := listSessions(ctx, os.Stdout, j); err != nil {
			slog.Error("failed to list sessions", "error", err)
			os.Exit(1)
		}
		return
	}

	s, err := j.Resolve(ctx, *session)
	if err != nil {
		slog.Error("no session", "error", err)
		os.Exit(1)
	}
	topo := board.Standard()
	if s.Layout != topo.Version {
		slog.Warn("session used a different layout", "session", s.Layout, "build", topo.Version)
	}

	rep, err := j.Audit(ctx, s.ID, topo)
	if err != nil {
		slog.Error("audit failed", "error", err)
		os.Exit(1)
	}
	printReport(os.Stdout, s, rep)

	if *svgOut != "" {
		if err := writeSVG(*svgOut, topo, rep.Final, board.PlayerID(*player), cfg); err != nil {
			slog.Error("failed to write svg", "error", err)
			os.Exit(1)
		}
		slog.Info("svg written", "path", *svgOut)
	}
	if !rep.OK() {
		os.Exit(2)
	}
}

func listSessions(ctx context.Context, w io.Writer, j *journal.Journal) error {
	sessions, err := j.Sessions(ctx)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(w, "no sessions")
		return nil
	}
	for _, s := range sessions {
		fmt.Fprintf(w, "%s  %-12s %-10s %s snapshots  %s  %s\n",
			s.ID[:8], s.Player, s.Layout,
			humanize.Comma(int64(s.Snapshots)),
			humanize.Bytes(uint64(s.Bytes)),
			humanize.RelTime(s.Started(), time.Now(), "ago", "from now"))
	}
	return nil
}

func printReport(w io.Writer, s journal.Session, rep *journal.Report) {
	fmt.Fprintf(w, "session %s (%s, player %s, started %s)\n",
		s.ID, s.Server, s.Player, humanize.Time(s.Started()))
	fmt.Fprintf(w, "%s snapshots, %s decoded\n",
		humanize.Comma(int64(rep.Snapshots)), humanize.Comma(int64(rep.Decoded)))
	if rep.OK() {
		fmt.Fprintln(w, "no regressions")
		return
	}
	for _, f := range rep.Findings {
		fmt.Fprintf(w, "  %s\n", f)
	}
}

func writeSVG(path string, topo *board.Topology, s *board.State, player board.PlayerID, cfg config.Config) error {
	if s == nil {
		return fmt.Errorf("session has no decodable snapshot")
	}
	opts := render.Options{Scale: cfg.Scale}
	m := legality.Compute(topo, s, "", legality.Options{})
	if player != "" {
		m = legality.Compute(topo, s, player, legality.Options{Phase: legality.PhaseMain, Source: cfg.Source})
		opts.Highlight = render.HighlightSettlements
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := render.SVG(f, topo, s, m, opts); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
