package kurve

import "github.com/vovakirdan/kurve/internal/core"

// DefaultBotLookahead is how many ticks ahead a bot probes each option.
const DefaultBotLookahead = 12

// Pilot steers one player by probing the trail grid ahead of it. Its
// decisions depend only on the state it is given, so they are
// deterministic.
type Pilot struct {
	rules     Rules
	detect    *Detector
	lookahead int
}

// NewPilot creates a pilot that probes trails with the given rules.
func NewPilot(rules Rules, trails *TrailStore) *Pilot {
	return &Pilot{rules: rules, detect: NewDetector(rules, trails), lookahead: DefaultBotLookahead}
}

// Decide goes straight while that is safe, otherwise picks the turn that
// stays clear the longest, preferring left on ties.
func (pl *Pilot) Decide(p Player, tick uint64) core.Intent {
	best, bestScore := core.IntentNone, -1
	for _, intent := range []core.Intent{core.IntentNone, core.IntentLeft, core.IntentRight} {
		score := pl.probe(p, intent, tick)
		if score > bestScore {
			best, bestScore = intent, score
		}
		if score == pl.lookahead {
			break
		}
	}
	return best
}

// probe counts how many ticks a player survives while holding intent.
func (pl *Pilot) probe(p Player, intent core.Intent, tick uint64) int {
	for k := 0; k < pl.lookahead; k++ {
		from := p.Pos
		Advance(&p, intent, pl.rules.TurnRate)
		if pl.detect.Check(p.ID, from, p.Pos, tick+uint64(k)).Hit() {
			return k
		}
	}
	return pl.lookahead
}

// Bots is an InputSource that adds intents for computer-controlled players
// to the batch of an inner source.
type Bots struct {
	match *Match
	inner InputSource
	ids   []core.PlayerID
	pilot *Pilot
}

// NewBots creates bots steering the given players of m.
func NewBots(m *Match, inner InputSource, ids ...core.PlayerID) *Bots {
	return &Bots{match: m, inner: inner, ids: ids, pilot: NewPilot(m.rules, m.trails)}
}

// Drain returns the inner batch plus an input for every bot whose intent changes.
func (b *Bots) Drain(tick uint64) Batch {
	var batch Batch
	if b.inner != nil {
		batch = b.inner.Drain(tick)
	}
	if b.match.State() != StatePlaying {
		return batch
	}

	for _, id := range b.ids {
		p := b.match.player(id)
		if p == nil || !p.Alive {
			continue
		}
		if intent := b.pilot.Decide(*p, tick); intent != p.Intent {
			batch.Inputs = append(batch.Inputs, core.InputMessage{Tick: tick, Player: id, Intent: intent})
		}
	}
	return batch
}
