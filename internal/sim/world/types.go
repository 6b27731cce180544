package world

import (
	"strings"

	"gridarena.ai/internal/protocol"
)

// Cell is a board coordinate. (0,0) is the bottom-left corner; UP increases Y.
type Cell struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (c Cell) Add(d Direction) Cell {
	dx, dy := d.Delta()
	return Cell{X: c.X + dx, Y: c.Y + dy}
}

func (c Cell) InBounds(width, height int) bool {
	return c.X >= 0 && c.X < width && c.Y >= 0 && c.Y < height
}

// cellLess orders cells row-major (y, then x).
func cellLess(a, b Cell) bool {
	if a.Y != b.Y {
		return a.Y < b.Y
	}
	return a.X < b.X
}

// Direction is one of the five movement intents.
type Direction uint8

const (
	Stay Direction = iota
	Right
	Left
	Up
	Down
)

var directionTokens = [...]string{
	Stay:  "STAY",
	Right: "RIGHT",
	Left:  "LEFT",
	Up:    "UP",
	Down:  "DOWN",
}

var directionDeltas = [...][2]int{
	Stay:  {0, 0},
	Right: {1, 0},
	Left:  {-1, 0},
	Up:    {0, 1},
	Down:  {0, -1},
}

func (d Direction) String() string {
	if int(d) < len(directionTokens) {
		return directionTokens[d]
	}
	return "INVALID"
}

func (d Direction) Valid() bool { return int(d) < len(directionTokens) }

func (d Direction) Delta() (dx, dy int) {
	if !d.Valid() {
		return 0, 0
	}
	v := directionDeltas[d]
	return v[0], v[1]
}

func (d Direction) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

func (d *Direction) UnmarshalText(b []byte) error {
	v, err := ParseDirection(string(b))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

// ParseDirection maps a move token (case-insensitive) to a Direction.
func ParseDirection(token string) (Direction, error) {
	t := strings.ToUpper(strings.TrimSpace(token))
	for i, name := range directionTokens {
		if name == t {
			return Direction(i), nil
		}
	}
	return Stay, newValidationError(protocol.ErrBadMove, "move", "unknown move %q", token)
}

// Directions lists every valid move in token order.
func Directions() []Direction {
	return []Direction{Stay, Right, Left, Up, Down}
}

type Robot struct {
	ID    int  `json:"id"`
	Pos   Cell `json:"pos"`
	Score int  `json:"score"`
}

type Prize struct {
	Pos   Cell `json:"pos"`
	Value int  `json:"value"`
}
