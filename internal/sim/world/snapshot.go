package world

import (
	"sort"

	"gridarena.ai/internal/protocol"
)

// Snapshot is an immutable, fully consistent copy of the world taken under the gate.
type Snapshot struct {
	Tick       uint64  `json:"tick"`
	Running    bool    `json:"running"`
	Generation uint64  `json:"generation"`
	Width      int     `json:"width"`
	Height     int     `json:"height"`
	Robots     []Robot `json:"robots"`
	Obstacles  []Cell  `json:"obstacles"`
	Prizes     []Prize `json:"prizes"`
}

func (s *state) snapshot() Snapshot {
	return Snapshot{
		Tick:       s.tick,
		Running:    s.running,
		Generation: s.generation,
		Width:      s.grid.Width,
		Height:     s.grid.Height,
		Robots:     append([]Robot(nil), s.robots...),
		Obstacles:  s.sortedObstacles(),
		Prizes:     s.sortedPrizes(),
	}
}

func (s *state) sortedObstacles() []Cell {
	out := make([]Cell, 0, len(s.obstacles))
	for c := range s.obstacles {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return cellLess(out[i], out[j]) })
	return out
}

func (s *state) sortedPrizes() []Prize {
	out := make([]Prize, 0, len(s.prizes))
	for c, v := range s.prizes {
		out = append(out, Prize{Pos: c, Value: v})
	}
	sort.Slice(out, func(i, j int) bool { return cellLess(out[i].Pos, out[j].Pos) })
	return out
}

// Robot returns the robot with the given id.
func (s Snapshot) Robot(id int) (Robot, bool) {
	if id < 0 || id >= len(s.Robots) {
		return Robot{}, false
	}
	return s.Robots[id], true
}

// PrizeAt returns the prize value at c, if any.
func (s Snapshot) PrizeAt(c Cell) (int, bool) {
	i := sort.Search(len(s.Prizes), func(i int) bool { return !cellLess(s.Prizes[i].Pos, c) })
	if i < len(s.Prizes) && s.Prizes[i].Pos == c {
		return s.Prizes[i].Value, true
	}
	return 0, false
}

// StateMsg renders the snapshot in its wire form.
func (s Snapshot) StateMsg() protocol.StateMsg {
	msg := protocol.StateMsg{
		Type:            protocol.TypeState,
		ProtocolVersion: protocol.Version,
		Tick:            s.Tick,
		Running:         s.Running,
		Generation:      s.Generation,
		Width:           s.Width,
		Height:          s.Height,
		Robots:          make([]protocol.RobotView, 0, len(s.Robots)),
		Obstacles:       make([]protocol.CellView, 0, len(s.Obstacles)),
		Prizes:          make([]protocol.PrizeView, 0, len(s.Prizes)),
	}
	for _, r := range s.Robots {
		msg.Robots = append(msg.Robots, protocol.RobotView{ID: r.ID, X: r.Pos.X, Y: r.Pos.Y, Score: r.Score})
	}
	for _, c := range s.Obstacles {
		msg.Obstacles = append(msg.Obstacles, protocol.CellView{X: c.X, Y: c.Y})
	}
	for _, p := range s.Prizes {
		msg.Prizes = append(msg.Prizes, protocol.PrizeView{X: p.Pos.X, Y: p.Pos.Y, Value: p.Value})
	}
	return msg
}
