package world

import "fmt"

// CheckInvariants verifies the placement invariants of a world generation:
// robots on distinct free cells, obstacles and prizes disjoint, everything in bounds.
func (s Snapshot) CheckInvariants() error {
	inBounds := func(c Cell) bool { return c.InBounds(s.Width, s.Height) }

	obstacles := make(map[Cell]struct{}, len(s.Obstacles))
	for _, c := range s.Obstacles {
		if !inBounds(c) {
			return fmt.Errorf("obstacle %v out of bounds", c)
		}
		obstacles[c] = struct{}{}
	}
	for _, p := range s.Prizes {
		if !inBounds(p.Pos) {
			return fmt.Errorf("prize %v out of bounds", p.Pos)
		}
		if _, ok := obstacles[p.Pos]; ok {
			return fmt.Errorf("prize %v on an obstacle", p.Pos)
		}
		if p.Value <= 0 {
			return fmt.Errorf("prize %v has value %d", p.Pos, p.Value)
		}
	}
	prizes := make(map[Cell]struct{}, len(s.Prizes))
	for _, p := range s.Prizes {
		prizes[p.Pos] = struct{}{}
	}
	held := make(map[Cell]int, len(s.Robots))
	for i, r := range s.Robots {
		if r.ID != i {
			return fmt.Errorf("robot at index %d has id %d", i, r.ID)
		}
		if !inBounds(r.Pos) {
			return fmt.Errorf("robot %d at %v out of bounds", r.ID, r.Pos)
		}
		if _, ok := obstacles[r.Pos]; ok {
			return fmt.Errorf("robot %d on obstacle %v", r.ID, r.Pos)
		}
		if _, ok := prizes[r.Pos]; ok {
			return fmt.Errorf("robot %d sits on unclaimed prize %v", r.ID, r.Pos)
		}
		if other, ok := held[r.Pos]; ok {
			return fmt.Errorf("robots %d and %d share %v", other, r.ID, r.Pos)
		}
		if r.Score < 0 {
			return fmt.Errorf("robot %d has negative score %d", r.ID, r.Score)
		}
		held[r.Pos] = r.ID
	}
	return nil
}
