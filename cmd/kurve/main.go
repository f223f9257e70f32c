// kurve is a networked multiplayer line-steering game for the terminal.
//
// Usage:
//
//	kurve play               - Play offline on this terminal (two players, bots)
//	kurve host [addr]        - Host a match over TCP and play on this terminal
//	kurve join [addr]        - Join a hosted match
//	kurve serve              - Host a match that players join with ssh
//	kurve config             - Print the effective configuration
//
// Global flags:
//
//	--config <path>  - Configuration file (default: search path, then built-in)
//	--speed <preset> - slow, normal or fast
//	--log <path>     - Write logs to a file
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/vovakirdan/kurve/internal/config"
)

var (
	// Global flags
	flagConfig string
	flagSpeed  string
	flagLog    string
	flagDebug  bool
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "kurve",
	Short: "Kurve - steer your line, don't crash",
	Long: `Kurve is a terminal take on the classic line-steering arena game.
Every player leaves a permanent trail; whoever crashes into a wall or a
trail is out, and the last one moving scores.

Available commands:
  play     - Offline match on this terminal
  host     - Host a networked match
  join     - Join a networked match
  serve    - Host a match played over ssh
  config   - Print the effective configuration

Examples:
  kurve play --bots 2
  kurve host :7777 --name alice
  kurve join example.org --name bob
  kurve serve --ssh :23234`,
	SilenceErrors: true,
	SilenceUsage:  true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to a kurve.yaml configuration file")
	rootCmd.PersistentFlags().StringVar(&flagSpeed, "speed", "", "Speed preset: slow, normal or fast")
	rootCmd.PersistentFlags().StringVar(&flagLog, "log", "", "Write logs to this file")
	rootCmd.PersistentFlags().BoolVar(&flagDebug, "debug", false, "Log debug messages")

	rootCmd.AddCommand(playCmd)
	rootCmd.AddCommand(hostCmd)
	rootCmd.AddCommand(joinCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(configCmd)
}

// loadConfig loads the configuration and applies --speed.
func loadConfig() (config.KurveConfig, error) {
	cfg, err := config.LoadKurve(flagConfig)
	if err != nil {
		return cfg, err
	}
	if err := config.ApplySpeedPreset(&cfg, config.SpeedPreset(flagSpeed)); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// newLogger returns the process logger. Interactive modes own the
// terminal, so they only log when --log is given.
func newLogger(interactive bool) (*log.Logger, func(), error) {
	var (
		w       io.Writer = os.Stderr
		cleanup           = func() {}
	)
	switch {
	case flagLog != "":
		f, err := os.OpenFile(flagLog, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot open log file: %w", err)
		}
		w = f
		//nolint:errcheck // Best-effort close on exit
		cleanup = func() { f.Close() }
	case interactive:
		w = io.Discard
	}

	logger := log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		Prefix:          "kurve",
	})
	if flagDebug {
		logger.SetLevel(log.DebugLevel)
	}
	return logger, cleanup, nil
}

// checkTerminal fails when stdout is not a terminal and warns when it is
// smaller than the arena.
func checkTerminal(cfg config.KurveConfig) error {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return errors.New("kurve needs an interactive terminal")
	}
	w, h, err := term.GetSize(fd)
	if err != nil {
		return nil
	}
	if w < cfg.Arena.Width+2 || h < cfg.Arena.Height+4 {
		fmt.Fprintf(os.Stderr, "Warning: terminal is %dx%d, the arena needs %dx%d\n",
			w, h, cfg.Arena.Width+2, cfg.Arena.Height+4)
	}
	return nil
}

// signalContext is cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}

// defaultName is the player name used when --name is not given.
func defaultName() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return ""
}
