package world

import "math/rand"

// reset discards the current generation and builds a new one from seed.
// Obstacles, prizes and robots are placed in that order by rejection sampling
// against a shared occupied set, so no two entities ever share a cell.
func (s *state) reset(seed int64) {
	rng := rand.New(rand.NewSource(seed))
	g := s.grid

	occupied := make(map[Cell]struct{}, g.Obstacles+g.Prizes+g.Robots)
	randomEmpty := func() Cell {
		for {
			c := Cell{X: rng.Intn(g.Width), Y: rng.Intn(g.Height)}
			if _, taken := occupied[c]; !taken {
				occupied[c] = struct{}{}
				return c
			}
		}
	}

	obstacles := make(map[Cell]struct{}, g.Obstacles)
	for i := 0; i < g.Obstacles; i++ {
		obstacles[randomEmpty()] = struct{}{}
	}

	prizes := make(map[Cell]int, g.Prizes)
	span := g.PrizeMax - g.PrizeMin + 1
	for i := 0; i < g.Prizes; i++ {
		pos := randomEmpty()
		prizes[pos] = g.PrizeMin + rng.Intn(span)
	}

	robots := make([]Robot, g.Robots)
	for i := range robots {
		robots[i] = Robot{ID: i, Pos: randomEmpty()}
	}

	s.obstacles = obstacles
	s.prizes = prizes
	s.robots = robots
	s.rng = rng
	s.seed = seed
	s.tick = 0
	s.running = false
	s.generation++
	s.intents.clear()
}
