package world

import (
	"math/rand"

	"gridarena.ai/internal/protocol"
)

// state is the authoritative world generation plus its intent buffer.
// It has no locking of its own; World serializes every access.
type state struct {
	grid GridParams

	robots    []Robot // indexed by id
	obstacles map[Cell]struct{}
	prizes    map[Cell]int

	tick       uint64
	running    bool
	generation uint64
	seed       int64

	// rng places the generation and then breaks ties for its whole lifetime.
	rng *rand.Rand

	intents intentBuffer
}

func newState(grid GridParams) *state {
	return &state{
		grid:      grid,
		obstacles: map[Cell]struct{}{},
		prizes:    map[Cell]int{},
		intents:   newIntentBuffer(),
	}
}

func (s *state) start() (changed bool) {
	if s.running {
		return false
	}
	s.running = true
	return true
}

func (s *state) submit(robotID int, d Direction, policy IntentPolicy) error {
	if robotID < 0 || robotID >= len(s.robots) {
		return newValidationError(protocol.ErrUnknownRobot, "robot", "unknown robot %d", robotID)
	}
	if !d.Valid() {
		return newValidationError(protocol.ErrBadMove, "move", "invalid move %d", d)
	}
	if !s.running {
		return newValidationError(protocol.ErrNotRunning, "", "world is stopped")
	}
	return s.intents.put(robotID, d, policy)
}

func (s *state) isObstacle(c Cell) bool {
	_, ok := s.obstacles[c]
	return ok
}
