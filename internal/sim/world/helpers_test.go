package world

import (
	"io"
	"log"
	"testing"
)

// fixedRand always picks the same index (clamped to n-1).
type fixedRand int

func (f fixedRand) Intn(n int) int {
	if int(f) >= n {
		return n - 1
	}
	return int(f)
}

// layout builds a running state with hand-placed entities.
func layout(w, h int, robots []Cell, obstacles []Cell, prizes map[Cell]int) *state {
	st := newState(GridParams{Width: w, Height: h, Robots: len(robots), Obstacles: len(obstacles), Prizes: len(prizes), PrizeMin: 1, PrizeMax: 5})
	st.generation = 1
	for i, c := range robots {
		st.robots = append(st.robots, Robot{ID: i, Pos: c})
	}
	for _, c := range obstacles {
		st.obstacles[c] = struct{}{}
	}
	for c, v := range prizes {
		st.prizes[c] = v
	}
	st.running = true
	return st
}

func newTestWorld(t *testing.T, cfg WorldConfig) *World {
	t.Helper()
	if cfg.Seed == 0 {
		cfg.Seed = 42
	}
	w, err := New(cfg, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("new world: %v", err)
	}
	return w
}
