package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
	"github.com/vovakirdan/kurve/internal/platform/tui"
)

var (
	flagBots  int
	flagSolo  bool
	flagNames []string
)

var playCmd = &cobra.Command{
	Use:   "play",
	Short: "Play an offline match on this terminal",
	Long: `Play on one keyboard. Player 1 steers with A/D, player 2 with the
arrow keys. Bots fill the remaining slots.

Examples:
  kurve play                       # Two players
  kurve play --bots 2              # Two players and two bots
  kurve play --solo --bots 1       # You against one bot
  kurve play --solo                # Practice alone
  kurve play --names ann,bob`,
	Args: cobra.NoArgs,
	RunE: runPlay,
}

func init() {
	playCmd.Flags().IntVar(&flagBots, "bots", 0, "Number of computer players")
	playCmd.Flags().BoolVar(&flagSolo, "solo", false, "One human player")
	playCmd.Flags().StringSliceVar(&flagNames, "names", nil, "Player names, comma separated")
}

func runPlay(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	humans := 2
	if flagSolo {
		humans = 1
	}
	total := humans + flagBots
	if flagBots < 0 || total > core.MaxPlayers {
		return fmt.Errorf("at most %d players fit in a match", core.MaxPlayers)
	}
	if total == 1 {
		cfg.Match.Solo = true
		cfg.Match.MinPlayers = 1
	}
	if total < cfg.Match.MinPlayers {
		return fmt.Errorf("%d players configured, the match needs %d", total, cfg.Match.MinPlayers)
	}
	if err := checkTerminal(cfg); err != nil {
		return err
	}

	logger, cleanup, err := newLogger(true)
	if err != nil {
		return err
	}
	defer cleanup()

	rules, err := kurve.NewRules(cfg)
	if err != nil {
		return err
	}
	m := kurve.NewMatch(rules, logger.WithPrefix("match"))
	q := kurve.NewInputQueue(64)

	var botIDs []core.PlayerID
	for id := core.PlayerID(humans + 1); int(id) <= total; id++ {
		botIDs = append(botIDs, id)
	}
	sched := kurve.NewScheduler(m, kurve.NewBots(m, q, botIDs...), cfg.TickInterval(), cfg.Network.MaxCatchUp,
		kurve.WithLogger(logger.WithPrefix("tick")),
	)

	seats := make([]tui.Seat, 0, humans)
	for i := range humans {
		id := core.PlayerID(i + 1)
		seat := tui.NewLocalSeat(q, sched, id)
		if err := seat.Join(playerName(i)); err != nil {
			return err
		}
		seats = append(seats, seat)
	}
	for i, id := range botIDs {
		q.Send(kurve.Command{Kind: kurve.CommandJoin, Player: id, Name: fmt.Sprintf("Bot %d", i+1)})
		q.Send(kurve.Command{Kind: kurve.CommandReady, Player: id, Ready: true})
	}

	ctx, cancel := signalContext()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := sched.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("scheduler stopped", "err", err)
		}
	}()

	err = tui.Run(tui.Options{
		Source:   sched,
		Seats:    seats,
		Title:    "KURVE",
		TickRate: cfg.Physics.TickRate,
		Done:     done,
	})
	cancel()
	<-done
	return err
}

func playerName(i int) string {
	if i < len(flagNames) && flagNames[i] != "" {
		return flagNames[i]
	}
	return fmt.Sprintf("Player %d", i+1)
}
