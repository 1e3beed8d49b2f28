// Command hexclient connects to a game server and offers a small terminal
// shell for selecting tools and placing pieces on the standard board.
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/talgya/hexsettlers/internal/board"
	"github.com/talgya/hexsettlers/internal/client"
	"github.com/talgya/hexsettlers/internal/config"
	"github.com/talgya/hexsettlers/internal/journal"
	"github.com/talgya/hexsettlers/internal/transport"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("bad configuration", "error", err)
		os.Exit(1)
	}
	flag.StringVar(&cfg.URL, "url", cfg.URL, "game server websocket URL")
	flag.StringVar(&cfg.Player, "player", cfg.Player, "player name (defaults to the token subject)")
	flag.StringVar(&cfg.JournalPath, "journal", cfg.JournalPath, "snapshot journal path, empty to disable")
	flag.Float64Var(&cfg.Scale, "scale", cfg.Scale, "pixels per lattice unit for svg output")
	flag.Parse()

	slog.SetDefault(cfg.Logger())

	player, err := client.ResolvePlayer(cfg.Player, cfg.Token)
	if err != nil {
		slog.Error("cannot determine player", "error", err)
		os.Exit(1)
	}

	topo := board.Standard()
	slog.Info("hexclient starting",
		"url", cfg.URL,
		"player", player,
		"layout", topo.Version,
		"tiles", topo.NumTiles(),
		"vertices", topo.NumVertices(),
		"edges", topo.NumEdges(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	url, header := transport.WithToken(cfg.URL, nil, cfg.Token)
	sessCfg := client.SessionConfig{
		Dial:   client.DialWebsocket(url, header),
		Redial: cfg.Redial,
	}

	if cfg.JournalPath != "" {
		j, err := journal.Open(cfg.JournalPath)
		if err != nil {
			slog.Error("failed to open journal", "error", err)
			os.Exit(1)
		}
		defer j.Close()
		slog.Info("journal opened", "path", cfg.JournalPath)
		sessCfg.NewRecorder = func(ctx context.Context, p board.PlayerID) (client.Recorder, error) {
			rec, err := j.Begin(ctx, cfg.URL, p, topo.Version)
			if err != nil {
				return nil, err
			}
			return rec, nil
		}
	}

	st := client.NewState(topo, player, client.Options{Source: cfg.Source, Setup: cfg.Setup})
	sess := client.NewSession(st, sessCfg)

	done := make(chan error, 1)
	go func() { done <- sess.Run(ctx) }()

	sh := newShell(sess, cfg.Scale, os.Stdout)
	go sh.watch(ctx)
	go func() {
		sh.run(ctx, os.Stdin)
		stop()
	}()

	<-ctx.Done()
	slog.Info("shutting down")
	<-done
}
