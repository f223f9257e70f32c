package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/kurve/internal/multiplayer"
	"github.com/vovakirdan/kurve/internal/network"
	"github.com/vovakirdan/kurve/internal/platform/tui"
)

var (
	flagJoinName     string
	flagJoinHeadless bool
)

var joinCmd = &cobra.Command{
	Use:   "join [addr]",
	Short: "Join a networked match",
	Long: `Connect to a host started with "kurve host". The address defaults
to localhost; the port defaults to 7777.

Examples:
  kurve join
  kurve join example.org --name bob
  kurve join 10.0.0.5:9000
  kurve join --headless --name bot   # A computer player, no terminal needed`,
	Args: cobra.MaximumNArgs(1),
	RunE: runJoin,
}

func init() {
	joinCmd.Flags().StringVar(&flagJoinName, "name", defaultName(), "Your player name")
	joinCmd.Flags().BoolVar(&flagJoinHeadless, "headless", false, "Play with the built-in bot instead of the keyboard")
}

func runJoin(_ *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	addr := "localhost"
	if len(args) > 0 {
		addr = args[0]
	}
	if !flagJoinHeadless {
		if err := checkTerminal(cfg); err != nil {
			return err
		}
	}

	logger, cleanup, err := newLogger(!flagJoinHeadless)
	if err != nil {
		return err
	}
	defer cleanup()

	ctx, cancel := signalContext()
	defer cancel()

	conn, err := network.Dial(ctx, network.FromKurve(cfg, addr), flagJoinName, logger.WithPrefix("net"))
	if err != nil {
		return err
	}
	client := conn.Client()

	var runErr error
	done := make(chan struct{})
	go func() {
		defer close(done)
		runErr = conn.Run(ctx)
	}()

	if flagJoinHeadless {
		logger.Info("playing headless", "player", client.Player())
		err = multiplayer.Autoplay(ctx, client, done)
		if errors.Is(err, context.Canceled) {
			err = nil
		}
	} else {
		err = tui.Run(tui.Options{
			Source: client,
			Seats:  []tui.Seat{client},
			Title:  "KURVE · " + addr,
			Done:   done,
		})
	}
	//nolint:errcheck // Already gone when the user quit from the TUI
	conn.Close()
	<-done

	if err != nil {
		return err
	}
	if errors.Is(runErr, network.ErrHostGone) {
		fmt.Fprintln(os.Stderr, "The host closed the connection.")
	} else if runErr != nil && !errors.Is(runErr, context.Canceled) {
		return runErr
	}
	return nil
}
