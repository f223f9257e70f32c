package kurve

import "github.com/vovakirdan/kurve/internal/core"

// CommandKind identifies a Command.
type CommandKind uint8

const (
	CommandJoin CommandKind = iota + 1
	CommandLeave
	CommandReady
)

// Command is a membership change applied at a tick boundary.
type Command struct {
	Kind   CommandKind
	Player core.PlayerID
	Name   string // CommandJoin
	Ready  bool   // CommandReady
	Polite bool   // CommandLeave: player said goodbye
}

// Batch is everything an InputSource hands to the scheduler for one tick.
type Batch struct {
	Commands []Command
	Inputs   []core.InputMessage
	Stale    bool // At least one input arrived after its tick and was applied late
}

// InputSource supplies the inputs in effect for a tick. Drain is called
// from the scheduler goroutine and must not block.
type InputSource interface {
	Drain(tick uint64) Batch
}

// FrameSink receives every committed frame. Publish is called from the
// scheduler goroutine and must not block.
type FrameSink interface {
	Publish(f Frame)
}

// InputQueue is an InputSource fed by local producers (keyboard, tests).
// Pushes never block; when the queue is full the input is dropped.
type InputQueue struct {
	inputs   chan core.InputMessage
	commands chan Command
}

// NewInputQueue creates a queue holding up to size pending inputs.
func NewInputQueue(size int) *InputQueue {
	return &InputQueue{
		inputs:   make(chan core.InputMessage, size),
		commands: make(chan Command, size),
	}
}

// Push enqueues an input. Returns false if the queue is full.
func (q *InputQueue) Push(in core.InputMessage) bool {
	select {
	case q.inputs <- in:
		return true
	default:
		return false
	}
}

// Send enqueues a command. Returns false if the queue is full.
func (q *InputQueue) Send(c Command) bool {
	select {
	case q.commands <- c:
		return true
	default:
		return false
	}
}

// Drain returns everything queued so far. Local inputs always apply to
// the tick being drained.
func (q *InputQueue) Drain(uint64) Batch {
	var b Batch
	for {
		select {
		case c := <-q.commands:
			b.Commands = append(b.Commands, c)
		case in := <-q.inputs:
			b.Inputs = append(b.Inputs, in)
		default:
			return b
		}
	}
}

// Sources merges several InputSources in order.
type Sources []InputSource

// Drain concatenates the batches of all sources.
func (s Sources) Drain(tick uint64) Batch {
	var out Batch
	for _, src := range s {
		b := src.Drain(tick)
		out.Commands = append(out.Commands, b.Commands...)
		out.Inputs = append(out.Inputs, b.Inputs...)
		out.Stale = out.Stale || b.Stale
	}
	return out
}
