package tui

import (
	"errors"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/kurve/internal/core"
	"github.com/vovakirdan/kurve/internal/kurve"
)

// Options configures a Model.
type Options struct {
	Source kurve.ViewSource
	Seats  []Seat // Local seats, in key-pair order
	Title  string

	TickRate int // Simulation rate, for countdowns. Sources with a TickRate method override it.

	// Display is the terminal size and redraw rate. Zero fields take the
	// values of core.DefaultConfig; the size is updated on resize.
	Display core.RuntimeConfig

	HoldInitial time.Duration
	HoldRepeat  time.Duration

	// Done closes when the match or the connection is over.
	Done <-chan struct{}

	// Now replaces time.Now, for tests.
	Now func() time.Time
}

// Model is the Bubble Tea model of the arena screen. It only reads views
// and forwards control events; the simulation runs elsewhere.
type Model struct {
	opts   Options
	keys   KeyMap
	help   help.Model
	holds  []*HoldTracker
	screen *core.Screen
	board  *Scoreboard

	view        *kurve.View
	seenEvents  uint64
	banner      string
	bannerTicks int
	lastErr     error

	width    int
	height   int
	finished bool
	quitting bool
}

// NewModel creates a model for opts, filling in defaults.
func NewModel(opts Options) Model {
	if opts.Display.FrameRate <= 0 {
		opts.Display.FrameRate = core.DefaultConfig().FrameRate
	}
	if opts.HoldInitial <= 0 {
		opts.HoldInitial = DefaultHoldInitial
	}
	if opts.HoldRepeat <= 0 {
		opts.HoldRepeat = DefaultHoldRepeat
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Title == "" {
		opts.Title = "KURVE"
	}

	holds := make([]*HoldTracker, len(opts.Seats))
	for i := range holds {
		holds[i] = NewHoldTracker(opts.HoldInitial, opts.HoldRepeat)
	}
	board := NewScoreboard()

	return Model{
		opts:   opts,
		keys:   DefaultKeyMap(),
		help:   help.New(),
		holds:  holds,
		screen: core.NewScreen(0, 0),
		board:  &board,
		width:  opts.Display.ScreenW,
		height: opts.Display.ScreenH,
	}
}

// Init starts the redraw loop.
func (m Model) Init() tea.Cmd {
	cmds := []tea.Cmd{tickCmd(m.opts.Display.FrameRate)}
	if m.opts.Done != nil {
		cmds = append(cmds, waitDone(m.opts.Done))
	}
	return tea.Batch(cmds...)
}

// Update handles messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick(time.Time(msg))

	case doneMsg:
		m.finished = true
		for _, h := range m.holds {
			h.Release()
		}
		m.refresh()
		return m, nil
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quit()
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil
	}

	if m.finished {
		return m, nil
	}

	if key.Matches(msg, m.keys.Ready) {
		for _, s := range m.opts.Seats {
			m.record(s.ToggleReady())
		}
		return m, nil
	}

	if i, ev, ok := m.keys.Turn(msg, len(m.opts.Seats)); ok {
		if m.holds[i].Press(ev, m.opts.Now()) {
			m.record(m.opts.Seats[i].Control(ev))
		}
	}
	return m, nil
}

// handleTick releases expired keys and takes a new snapshot.
func (m Model) handleTick(now time.Time) (tea.Model, tea.Cmd) {
	for i, h := range m.holds {
		for _, ev := range h.Expire(now) {
			m.record(m.opts.Seats[i].Control(ev))
		}
	}
	m.refresh()
	if m.bannerTicks > 0 {
		m.bannerTicks--
	}
	return m, tickCmd(m.opts.Display.FrameRate)
}

// refresh reads the latest view and picks up new events.
func (m *Model) refresh() {
	v := m.opts.Source.View()
	if v == nil {
		return
	}
	m.view = v
	m.board.Update(&v.Frame)

	if v.EventSeq > m.seenEvents && len(v.Recent) > 0 {
		m.banner = v.Recent[len(v.Recent)-1].Banner(v.Frame.Name)
		m.bannerTicks = 2 * m.opts.Display.FrameRate
		m.seenEvents = v.EventSeq
	}
}

func (m *Model) quit() {
	for i, h := range m.holds {
		for _, ev := range h.Release() {
			m.record(m.opts.Seats[i].Control(ev))
		}
	}
	if m.finished {
		return
	}
	for _, s := range m.opts.Seats {
		if q, ok := s.(quitter); ok {
			m.record(q.Quit())
		}
	}
}

func (m *Model) record(err error) {
	if err != nil {
		m.lastErr = err
	}
}

func (m Model) tickRate() int {
	if r, ok := m.opts.Source.(interface{ TickRate() int }); ok {
		if rate := r.TickRate(); rate > 0 {
			return rate
		}
	}
	return m.opts.TickRate
}

// View renders the current state to a string for display.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	helpView := lipgloss.NewStyle().Foreground(lipgloss.Color("241")).Render(m.help.View(m.keys))
	if m.view == nil {
		return m.waitingView() + "\n\n" + helpView
	}

	v := m.view
	w, h := ArenaSize(v)
	m.screen.Resize(w, h)
	DrawArena(m.screen, v, m.tickRate())
	if m.desynced() {
		m.screen.DrawText(w-len("resyncing"), 0, "resyncing", core.ColorYellow)
	}
	drawOverlay(m.screen, m.overlay(v), core.ColorBrightWhite)

	arena := RenderScreen(m.screen)
	title := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Render(m.opts.Title)
	side := lipgloss.JoinVertical(lipgloss.Left, title, m.board.View())

	var body string
	if m.width == 0 || m.width >= w+minWidthForSidebar {
		body = lipgloss.JoinHorizontal(lipgloss.Top, arena, "  ", side)
	} else {
		body = lipgloss.JoinVertical(lipgloss.Left, arena, side)
	}
	if m.lastErr != nil {
		body += "\n" + colorStyles[core.ColorRed].Render(m.lastErr.Error())
	}
	return body + "\n" + helpView
}

func (m Model) waitingView() string {
	if r, ok := m.opts.Source.(interface{ Rejected() string }); ok {
		if reason := r.Rejected(); reason != "" {
			return "Join rejected: " + reason
		}
	}
	if m.finished {
		return "Disconnected."
	}
	return "Connecting..."
}

func (m Model) desynced() bool {
	d, ok := m.opts.Source.(interface{ Desynced() bool })
	return ok && d.Desynced()
}

// overlay returns the lines shown over the arena for the current state.
func (m Model) overlay(v *kurve.View) []string {
	f := &v.Frame
	switch f.State {
	case kurve.StateLobby:
		lines := []string{"Press space when ready"}
		if m.finished {
			lines = []string{"Disconnected"}
		}
		return lines
	case kurve.StateCountdown:
		return []string{"Get ready!", m.bannerIfFresh()}
	case kurve.StatePlaying:
		if m.finished {
			return []string{"Disconnected"}
		}
		return []string{m.bannerIfFresh()}
	case kurve.StateRoundEnd:
		return []string{m.banner}
	default:
		return []string{m.banner, "Press q to quit"}
	}
}

func (m Model) bannerIfFresh() string {
	if m.bannerTicks > 0 {
		return m.banner
	}
	return ""
}

// Run starts the Bubble Tea program and blocks until the user quits.
func Run(opts Options) error {
	if opts.Source == nil {
		return errors.New("tui: no view source")
	}
	p := tea.NewProgram(
		NewModel(opts),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
