package world

import (
	"fmt"
	"time"
)

// IntentPolicy decides what happens to a second intent for the same robot
// before the next tick.
type IntentPolicy string

const (
	// FirstWins rejects later submissions until the pending intent is consumed.
	FirstWins IntentPolicy = "first_wins"
	// LastWins replaces the pending intent.
	LastWins IntentPolicy = "last_wins"
)

// IdentityMode selects how commands name the robot they control.
type IdentityMode string

const (
	IdentityRobotID    IdentityMode = "robot_id"
	IdentityAccessCode IdentityMode = "access_code"
	IdentityEither     IdentityMode = "either"
)

type WorldConfig struct {
	ID string

	Width  int
	Height int

	Robots    int
	Obstacles int
	Prizes    int

	// Prize values are drawn uniformly from [PrizeMin, PrizeMax].
	PrizeMin int
	PrizeMax int

	TickDuration time.Duration

	// Seed feeds the generator of per-generation seeds. Zero picks a random seed.
	Seed int64

	IntentPolicy IntentPolicy
	IdentityMode IdentityMode
	// AccessCodes maps robot id -> access code (identity modes access_code/either).
	AccessCodes map[int]string `json:"-"`

	// PublishQueue bounds the tick -> publisher hand-off; SubscriberQueue is the
	// default per-subscriber queue.
	PublishQueue    int
	SubscriberQueue int
	JournalQueue    int
}

func (c *WorldConfig) applyDefaults() {
	if c.ID == "" {
		c.ID = "arena_1"
	}
	if c.Width == 0 {
		c.Width = 20
	}
	if c.Height == 0 {
		c.Height = 20
	}
	if c.PrizeMin == 0 {
		c.PrizeMin = 1
	}
	if c.PrizeMax == 0 {
		c.PrizeMax = 5
	}
	if c.TickDuration <= 0 {
		c.TickDuration = 500 * time.Millisecond
	}
	if c.IntentPolicy == "" {
		c.IntentPolicy = FirstWins
	}
	if c.IdentityMode == "" {
		c.IdentityMode = IdentityRobotID
	}
	if c.PublishQueue <= 0 {
		c.PublishQueue = 8
	}
	if c.SubscriberQueue <= 0 {
		c.SubscriberQueue = 16
	}
	if c.JournalQueue <= 0 {
		c.JournalQueue = 4096
	}
}

func (c WorldConfig) validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("grid %dx%d: dimensions must be positive", c.Width, c.Height)
	}
	if c.Robots < 0 || c.Obstacles < 0 || c.Prizes < 0 {
		return fmt.Errorf("entity counts must not be negative")
	}
	if n := c.Robots + c.Obstacles + c.Prizes; n > c.Width*c.Height {
		return fmt.Errorf("%d entities do not fit a %dx%d grid", n, c.Width, c.Height)
	}
	if c.PrizeMin < 1 || c.PrizeMax < c.PrizeMin {
		return fmt.Errorf("prize range [%d,%d] invalid", c.PrizeMin, c.PrizeMax)
	}
	switch c.IntentPolicy {
	case FirstWins, LastWins:
	default:
		return fmt.Errorf("unknown intent policy %q", c.IntentPolicy)
	}
	switch c.IdentityMode {
	case IdentityRobotID, IdentityAccessCode, IdentityEither:
	default:
		return fmt.Errorf("unknown identity mode %q", c.IdentityMode)
	}
	seen := make(map[string]int, len(c.AccessCodes))
	for id, code := range c.AccessCodes {
		if id < 0 || id >= c.Robots {
			return fmt.Errorf("access code for unknown robot %d", id)
		}
		if code == "" {
			return fmt.Errorf("empty access code for robot %d", id)
		}
		if other, dup := seen[code]; dup {
			return fmt.Errorf("access code %q shared by robots %d and %d", code, other, id)
		}
		seen[code] = id
	}
	return nil
}

// GridParams is the part of the configuration that shapes a world generation.
type GridParams struct {
	Width     int `json:"width"`
	Height    int `json:"height"`
	Robots    int `json:"robots"`
	Obstacles int `json:"obstacles"`
	Prizes    int `json:"prizes"`
	PrizeMin  int `json:"prize_min"`
	PrizeMax  int `json:"prize_max"`
}

func (c WorldConfig) Grid() GridParams {
	return GridParams{
		Width:     c.Width,
		Height:    c.Height,
		Robots:    c.Robots,
		Obstacles: c.Obstacles,
		Prizes:    c.Prizes,
		PrizeMin:  c.PrizeMin,
		PrizeMax:  c.PrizeMax,
	}
}
