package world

import (
	"sort"

	"gridarena.ai/internal/protocol"
)

// RecordedIntent is one consumed intent, as written to the journal.
type RecordedIntent struct {
	RobotID int       `json:"robot_id"`
	Move    Direction `json:"move"`
}

// intentBuffer holds at most one pending move per robot between ticks.
type intentBuffer struct {
	pending map[int]Direction
}

func newIntentBuffer() intentBuffer {
	return intentBuffer{pending: map[int]Direction{}}
}

func (b *intentBuffer) put(robotID int, d Direction, policy IntentPolicy) error {
	if _, ok := b.pending[robotID]; ok && policy != LastWins {
		return newValidationError(protocol.ErrIntentPending, "robot", "robot %d already has a move queued for this tick", robotID)
	}
	b.pending[robotID] = d
	return nil
}

func (b *intentBuffer) len() int { return len(b.pending) }

func (b *intentBuffer) get(robotID int) (Direction, bool) {
	d, ok := b.pending[robotID]
	return d, ok
}

// drain empties the buffer and returns its content in robot id order.
func (b *intentBuffer) drain() []RecordedIntent {
	if len(b.pending) == 0 {
		return nil
	}
	out := make([]RecordedIntent, 0, len(b.pending))
	for id, d := range b.pending {
		out = append(out, RecordedIntent{RobotID: id, Move: d})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RobotID < out[j].RobotID })
	clear(b.pending)
	return out
}

func (b *intentBuffer) clear() { clear(b.pending) }
