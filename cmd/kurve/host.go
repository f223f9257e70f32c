package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/multiplayer"
	"github.com/vovakirdan/kurve/internal/network"
	"github.com/vovakirdan/kurve/internal/platform/tui"
)

var (
	flagHostName string
	flagHeadless bool
)

var hostCmd = &cobra.Command{
	Use:   "host [addr]",
	Short: "Host a networked match",
	Long: `Host a match that other players join with "kurve join". The host is
authoritative: it runs the simulation and broadcasts every tick.

Unless --headless is set, you also play on this terminal.

Examples:
  kurve host                      # Listen on :7777
  kurve host :9000 --name alice
  kurve host --headless           # Dedicated host, logs to stderr`,
	Args: cobra.MaximumNArgs(1),
	RunE: runHost,
}

func init() {
	hostCmd.Flags().StringVar(&flagHostName, "name", defaultName(), "Your player name")
	hostCmd.Flags().BoolVar(&flagHeadless, "headless", false, "Do not play on this terminal")
}

func runHost(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := ""
	if len(args) > 0 {
		addr = args[0]
	}
	if !flagHeadless {
		if err := checkTerminal(cfg); err != nil {
			return err
		}
	}

	logger, cleanup, err := newLogger(!flagHeadless)
	if err != nil {
		return err
	}
	defer cleanup()

	hm, err := multiplayer.NewHostedMatch(cfg, logger)
	if err != nil {
		return err
	}
	srv := network.NewServer(network.FromKurve(cfg, addr), hm.Host(), logger.WithPrefix("net"))
	if err := srv.Listen(); err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	matchDone := make(chan struct{})
	go func() {
		defer close(matchDone)
		if err := hm.Run(ctx, logResult(logger)); err != nil {
			logger.Error("match stopped", "err", err)
		}
	}()

	if flagHeadless {
		logger.Info("hosting match", "match", hm.ID().Short(), "address", srv.Addr())
		select {
		case <-ctx.Done():
		case <-matchDone:
		}
	} else {
		err = playLocal(ctx, hm, flagHostName, "KURVE · host "+srv.Addr().String(), cfg.Physics.TickRate, logger)
	}

	// Scheduler first, then connections, then the listener.
	hm.Stop()
	<-matchDone
	if cerr := srv.Close(); cerr != nil {
		logger.Warn("closing listener", "err", cerr)
	}
	return err
}

// playLocal joins an in-process player to hm and runs the TUI for it.
func playLocal(ctx context.Context, hm *multiplayer.HostedMatch, name, title string, tickRate int, logger *log.Logger) error {
	client, session := hm.Host().Connect(name, 64, logger.WithPrefix("local"))

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := client.Run(ctx, session); err != nil && !errors.Is(err, context.Canceled) {
			logger.Warn("local player left", "err", err)
		}
	}()

	err := tui.Run(tui.Options{
		Source:   client,
		Seats:    []tui.Seat{client},
		Title:    title,
		TickRate: tickRate,
		Done:     done,
	})
	session.Close()
	<-done
	return err
}

func logResult(logger *log.Logger) func(multiplayer.MatchResult) {
	return func(r multiplayer.MatchResult) {
		scores := ""
		for id := core.PlayerID(1); id <= core.MaxPlayers; id++ {
			if s, ok := r.Scores[id]; ok {
				scores += fmt.Sprintf(" p%d=%d", id, s)
			}
		}
		logger.Info("match result", "state", r.State, "winner", r.Winner, "scores", scores)
	}
}
