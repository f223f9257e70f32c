package kurve

import (
	"testing"

	"github.com/vovakirdan/kurve/internal/core"
)

func TestBotsSteer(t *testing.T) {
	tests := []struct {
		name    string
		heading core.Angle
		block   []core.Cell // Trail cells of player 2
		want    core.Intent // Zero means no input
	}{
		{"clear ahead", core.West, nil, core.IntentNone},
		{"wall ahead", core.East, nil, core.IntentLeft},
		{"wall ahead, left blocked", core.East,
			[]core.Cell{{X: 36, Y: 8}, {X: 37, Y: 8}, {X: 38, Y: 8}, {X: 39, Y: 8}}, core.IntentRight},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := startMatch(t, testRules(40, 20), 2)
			place(m, 1, core.Cell{X: 36, Y: 10}, tt.heading)
			place(m, 2, core.Cell{X: 10, Y: 10}, core.South)
			for _, c := range tt.block {
				m.trails.Append(2, c, 0)
			}

			b := NewBots(m, nil, 1, 2).Drain(m.Tick() + 1)
			var got core.Intent
			for _, in := range b.Inputs {
				if in.Player == 2 {
					t.Errorf("player 2 is safe going straight, got input %+v", in)
				}
				if in.Player == 1 {
					got = in.Intent
				}
			}
			if got != tt.want {
				t.Errorf("intent = %v, expected %v", got, tt.want)
			}
		})
	}
}

func TestBotsIdleOutsidePlay(t *testing.T) {
	m := NewMatch(testRules(40, 20), nil)
	if err := m.Join(1, "bot"); err != nil {
		t.Fatalf("Join: %v", err)
	}
	q := NewInputQueue(4)
	q.Send(Command{Kind: CommandReady, Player: 1, Ready: true})

	b := NewBots(m, q, 1).Drain(1)
	if len(b.Inputs) != 0 {
		t.Errorf("inputs in lobby: %+v", b.Inputs)
	}
	if len(b.Commands) != 1 {
		t.Errorf("inner commands = %+v, expected the ready command", b.Commands)
	}
}
