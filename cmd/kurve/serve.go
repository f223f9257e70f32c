package main

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"

	"github.com/vovakirdan/kurve/internal/multiplayer"
	"github.com/vovakirdan/kurve/internal/network"
	"github.com/vovakirdan/kurve/internal/platform/tui"
)

// finalFrameGrace is how long the ssh server keeps running after the match.
const finalFrameGrace = 5 * time.Second

var (
	flagSSHAddr     string
	flagTCPAddr     string
	flagHostKey     string
	flagIdleTimeout int
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Host a match that players join with ssh",
	Long: `Start an SSH server hosting one match. Every ssh session joins it
as a player and renders on the server; no client install is needed.

Host key handling:
  - If --host-key is provided, uses that key file
  - Otherwise, auto-generates a key at ~/.kurve/host_key

Examples:
  kurve serve                           # Listen on :23234
  kurve serve --ssh :2222               # Listen on port 2222
  kurve serve --tcp :7777               # Also accept "kurve join" clients

Users can connect with:
  ssh localhost -p 23234`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagSSHAddr, "ssh", ":23234", "SSH server address (host:port)")
	serveCmd.Flags().StringVar(&flagTCPAddr, "tcp", "", "Also accept kurve clients on this address")
	serveCmd.Flags().StringVar(&flagHostKey, "host-key", "", "Path to host key file (auto-generated if not specified)")
	serveCmd.Flags().IntVar(&flagIdleTimeout, "idle-timeout", 30, "Idle timeout in minutes before disconnecting")
}

func runServe(_ *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger, cleanup, err := newLogger(false)
	if err != nil {
		return err
	}
	defer cleanup()

	hm, err := multiplayer.NewHostedMatch(cfg, logger)
	if err != nil {
		return err
	}

	sshCfg := tui.DefaultSSHServerConfig()
	sshCfg.Address = flagSSHAddr
	sshCfg.HostKeyPath = flagHostKey
	sshCfg.IdleTimeout = time.Duration(flagIdleTimeout) * time.Minute
	sshSrv, err := tui.NewSSHServer(sshCfg, hm, logger.WithPrefix("ssh"))
	if err != nil {
		return err
	}
	if err := sshSrv.Listen(); err != nil {
		return err
	}

	var tcpSrv *network.Server
	if flagTCPAddr != "" {
		tcpSrv = network.NewServer(network.FromKurve(cfg, flagTCPAddr), hm.Host(), logger.WithPrefix("net"))
		if err := tcpSrv.Listen(); err != nil {
			//nolint:errcheck // Startup already failed
			sshSrv.Shutdown()
			return err
		}
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

	// Sessions get a moment to show the final frame before the server stops.
	serveCtx, stopServe := context.WithCancel(ctx)
	defer stopServe()
	go func() {
		select {
		case <-matchDone:
		case <-serveCtx.Done():
			return
		}
		select {
		case <-time.After(finalFrameGrace):
			stopServe()
		case <-serveCtx.Done():
		}
	}()

	logger.Info("hosting match", "match", hm.ID().Short(), "ssh", sshSrv.Addr())
	serveErr := sshSrv.Serve(serveCtx)

	hm.Stop()
	<-matchDone
	if tcpSrv != nil {
		if err := tcpSrv.Close(); err != nil {
			logger.Warn("closing listener", "err", err)
		}
	}
	// Sessions still open at the shutdown deadline are dropped.
	if serveErr != nil && !errors.Is(serveErr, context.Canceled) && !errors.Is(serveErr, context.DeadlineExceeded) {
		return serveErr
	}
	return nil
}
