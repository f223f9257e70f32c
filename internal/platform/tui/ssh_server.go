package tui

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/charmbracelet/ssh"
	"github.com/charmbracelet/wish"
	"github.com/charmbracelet/wish/bubbletea"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/multiplayer"
)

// SSHServerConfig holds configuration for the SSH server.
type SSHServerConfig struct {
	// Address is the host:port to listen on (e.g., ":23234").
	Address string

	// HostKeyPath is the path to the host key file.
	// If empty, a key will be auto-generated at ~/.kurve/host_key.
	HostKeyPath string

	// IdleTimeout is how long to wait before closing idle connections.
	IdleTimeout time.Duration

	FrameRate  int
	SendBuffer int // Frames queued per session before the oldest is dropped
}

// DefaultSSHServerConfig returns a config with sensible defaults.
func DefaultSSHServerConfig() SSHServerConfig {
	return SSHServerConfig{
		Address:     ":23234",
		IdleTimeout: 30 * time.Minute,
		FrameRate:   core.DefaultConfig().FrameRate,
		SendBuffer:  64,
	}
}

// SSHServer lets players join a hosted match with a plain ssh client.
// Every session gets its own Bubble Tea program rendering server-side.
type SSHServer struct {
	config   SSHServerConfig
	server   *ssh.Server
	listener net.Listener
	match    *multiplayer.HostedMatch
	logger   *log.Logger
}

// NewSSHServer creates a new SSH server for match.
func NewSSHServer(cfg SSHServerConfig, match *multiplayer.HostedMatch, logger *log.Logger) (*SSHServer, error) {
	if logger == nil {
		logger = log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Prefix:          "kurve-ssh",
		})
	}

	srv := &SSHServer{
		config: cfg,
		match:  match,
		logger: logger,
	}

	hostKeyPath := cfg.HostKeyPath
	if hostKeyPath == "" {
		home, homeErr := os.UserHomeDir()
		if homeErr != nil {
			return nil, fmt.Errorf("cannot get home directory: %w", homeErr)
		}
		hostKeyPath = filepath.Join(home, ".kurve", "host_key")
	}

	hostKeyDir := filepath.Dir(hostKeyPath)
	if mkdirErr := os.MkdirAll(hostKeyDir, 0o700); mkdirErr != nil {
		return nil, fmt.Errorf("cannot create host key directory: %w", mkdirErr)
	}

	opts := []ssh.Option{
		wish.WithAddress(cfg.Address),
		wish.WithHostKeyPath(hostKeyPath),
		wish.WithIdleTimeout(cfg.IdleTimeout),
		wish.WithMiddleware(
			bubbletea.Middleware(srv.teaHandler),
			srv.loggingMiddleware,
		),
	}

	server, err := wish.NewServer(opts...)
	if err != nil {
		return nil, fmt.Errorf("cannot create SSH server: %w", err)
	}

	srv.server = server
	return srv, nil
}

// teaHandler joins the session's user to the match and creates its program.
func (s *SSHServer) teaHandler(sshSession ssh.Session) (tea.Model, []tea.ProgramOption) {
	pty, _, ok := sshSession.Pty()
	if !ok {
		s.logger.Warn("no PTY requested", "user", sshSession.User())
		wish.Fatalln(sshSession, "kurve needs an interactive terminal (ssh -t)")
		return nil, nil
	}

	user := sshSession.User()
	client, cs := s.match.Host().Connect(user, s.config.SendBuffer, s.logger.With("user", user))

	ctx := sshSession.Context()
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := client.Run(ctx, cs); err != nil && !errors.Is(err, context.Canceled) {
			s.logger.Info("session left match", "user", user, "err", err)
		}
	}()
	go func() {
		// A dropped connection leaves without a goodbye.
		<-ctx.Done()
		cs.Close()
	}()

	model := NewModel(Options{
		Source: client,
		Seats:  []Seat{client},
		Title:  "KURVE · " + user,
		Done:   done,
		Display: core.RuntimeConfig{
			ScreenW:   pty.Window.Width,
			ScreenH:   pty.Window.Height,
			FrameRate: s.config.FrameRate,
		},
	})

	return model, []tea.ProgramOption{
		tea.WithAltScreen(),
	}
}

// loggingMiddleware logs SSH session events.
func (s *SSHServer) loggingMiddleware(next ssh.Handler) ssh.Handler {
	return func(sshSession ssh.Session) {
		s.logger.Info("session started",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
		next(sshSession)
		s.logger.Info("session ended",
			"user", sshSession.User(),
			"remote", sshSession.RemoteAddr().String(),
		)
	}
}

// Listen binds the configured address. Bind failures surface here,
// before any session is accepted.
func (s *SSHServer) Listen() error {
	l, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return fmt.Errorf("ssh: listen %s: %w", s.config.Address, err)
	}
	s.listener = l
	return nil
}

// Serve accepts sessions until ctx is done, then shuts down.
func (s *SSHServer) Serve(ctx context.Context) error {
	if s.listener == nil {
		return errors.New("ssh: Serve called before Listen")
	}
	s.logger.Info("starting SSH server", "address", s.listener.Addr().String())

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.server.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down...")
		err := s.Shutdown()
		// Serve may not have registered the listener yet.
		_ = s.listener.Close()
		return err
	case err := <-errCh:
		if errors.Is(err, ssh.ErrServerClosed) {
			return nil
		}
		return err
	}
}

// ListenAndServe binds the address and serves until ctx is done.
func (s *SSHServer) ListenAndServe(ctx context.Context) error {
	if err := s.Listen(); err != nil {
		return err
	}
	return s.Serve(ctx)
}

// Shutdown gracefully stops the server.
func (s *SSHServer) Shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

// Addr returns the bound address, or the configured one before Listen.
func (s *SSHServer) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return s.config.Address
}

