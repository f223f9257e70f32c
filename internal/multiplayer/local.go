package multiplayer

import (
	"github.com/charmbracelet/log"

	"github.com/vovakirdan/kurve/internal/core"
)

// localUplink delivers client messages to an in-process host.
type localUplink struct {
	host    *Host
	session *ChannelSession
}

func (u *localUplink) submit(msg HostMessage) error {
	select {
	case <-u.session.Done():
		return ErrSessionClosed
	default:
	}
	if !u.host.Submit(msg) {
		return ErrSessionBusy
	}
	return nil
}

func (u *localUplink) SendInput(in core.InputMessage) error {
	return u.submit(InputMsg{Session: u.session.ID(), Input: in})
}

func (u *localUplink) SendReady(ready bool) error {
	return u.submit(ReadyMsg{Session: u.session.ID(), Ready: ready})
}

func (u *localUplink) RequestResync(lastTick uint64) error {
	return u.submit(ResyncMsg{Session: u.session.ID(), LastTick: lastTick})
}

func (u *localUplink) Close(polite bool) error {
	err := u.submit(LeaveMsg{Session: u.session.ID(), Polite: polite})
	u.session.Close()
	if err == ErrSessionClosed {
		return nil
	}
	return err
}

// Connect joins an in-process player (the hosting user or an SSH
// session). The returned client must be fed from the session, typically
// with Client.Run.
func (h *Host) Connect(name string, buffer int, logger *log.Logger) (*Client, *ChannelSession) {
	s := NewChannelSession(NewSessionID(), buffer)
	c := NewClient(&localUplink{host: h, session: s}, logger)
	h.Submit(JoinMsg{Session: s, Name: name})
	return c, s
}
