package world

// Rand is the randomness source used to break ties between robots proposing
// the same cell. *math/rand.Rand satisfies it.
type Rand interface {
	Intn(n int) int
}

type Move struct {
	RobotID int  `json:"robot_id"`
	From    Cell `json:"from"`
	To      Cell `json:"to"`
}

type Claim struct {
	RobotID int  `json:"robot_id"`
	Pos     Cell `json:"pos"`
	Value   int  `json:"value"`
}

// TickResult describes one resolution pass.
type TickResult struct {
	Tick       uint64           `json:"tick"` // counter value after the pass
	Generation uint64           `json:"generation"`
	Intents    []RecordedIntent `json:"intents,omitempty"`
	Moves      []Move           `json:"moves,omitempty"`
	Claims     []Claim          `json:"claims,omitempty"`
	// Blocked counts proposals into a cell that was occupied when the tick began.
	Blocked int `json:"blocked"`
	// Contended counts proposals that lost a random tie-break.
	Contended int `json:"contended"`
	// Discarded counts proposals that left the grid or hit an obstacle.
	Discarded int `json:"discarded"`
}

// resolve runs one tick. All pending intents are evaluated against the
// occupancy at the start of the tick, so swaps and follow-through moves never
// succeed within a single tick. It is a no-op while the world is stopped.
func (s *state) resolve(rng Rand) (TickResult, bool) {
	if !s.running {
		return TickResult{}, false
	}

	occupied := make(map[Cell]struct{}, len(s.robots))
	for _, r := range s.robots {
		occupied[r.Pos] = struct{}{}
	}

	res := TickResult{Generation: s.generation}
	res.Intents = s.intents.drain()

	// Group proposals by destination, remembering first-proposal order so a
	// seeded rng replays identically.
	var order []Cell
	proposals := map[Cell][]int{}
	for _, in := range res.Intents {
		next := s.robots[in.RobotID].Pos.Add(in.Move)
		if !next.InBounds(s.grid.Width, s.grid.Height) || s.isObstacle(next) {
			res.Discarded++
			continue
		}
		if _, seen := proposals[next]; !seen {
			order = append(order, next)
		}
		proposals[next] = append(proposals[next], in.RobotID)
	}

	for _, dst := range order {
		ids := proposals[dst]
		if _, held := occupied[dst]; held {
			res.Blocked += len(ids)
			continue
		}
		winner := ids[0]
		if len(ids) > 1 {
			winner = ids[rng.Intn(len(ids))]
			res.Contended += len(ids) - 1
		}
		r := &s.robots[winner]
		res.Moves = append(res.Moves, Move{RobotID: winner, From: r.Pos, To: dst})
		r.Pos = dst
		if v, ok := s.prizes[dst]; ok {
			r.Score += v
			delete(s.prizes, dst)
			res.Claims = append(res.Claims, Claim{RobotID: winner, Pos: dst, Value: v})
		}
	}

	s.tick++
	res.Tick = s.tick
	return res, true
}
