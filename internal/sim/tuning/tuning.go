package tuning

import (
	"fmt"
	"math"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"gridarena.ai/internal/sim/world"
)

type Tuning struct {
	WorldID string `yaml:"world_id"`
	Port    int    `yaml:"port"`

	Width     int `yaml:"width"`
	Height    int `yaml:"height"`
	Robots    int `yaml:"robots"`
	Obstacles int `yaml:"obstacles"`
	Prizes    int `yaml:"prizes"`
	PrizeMin  int `yaml:"prize_min"`
	PrizeMax  int `yaml:"prize_max"`

	TickDurationMs int   `yaml:"tick_duration_ms"`
	Seed           int64 `yaml:"seed"`

	IntentPolicy string `yaml:"intent_policy"`
	IdentityMode string `yaml:"identity_mode"`
	// AccessCodes maps robot id -> 5 digit access code.
	AccessCodes map[int]string `yaml:"access_codes"`

	Queues Queues `yaml:"queues"`
}

type Queues struct {
	Publish    int `yaml:"publish"`
	Subscriber int `yaml:"subscriber"`
	Journal    int `yaml:"journal"`
}

// Defaults mirrors the arena the service has always shipped with.
func Defaults() Tuning {
	return Tuning{
		WorldID:        "arena_1",
		Width:          20,
		Height:         20,
		Robots:         20,
		Obstacles:      40,
		Prizes:         30,
		PrizeMin:       1,
		PrizeMax:       5,
		TickDurationMs: 500,
		IntentPolicy:   string(world.FirstWins),
		IdentityMode:   string(world.IdentityRobotID),
		Queues:         Queues{Publish: 8, Subscriber: 16, Journal: 4096},
	}
}

// Load reads a tuning file on top of Defaults.
func Load(path string) (Tuning, error) {
	t := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t, nil
}

// envOverrides are the variables the service has always honored. DT is the
// tick duration in seconds.
type envOverrides struct {
	DT           float64 `env:"DT"`
	Port         int     `env:"PORT"`
	Seed         int64   `env:"GRID_SEED"`
	IntentPolicy string  `env:"GRID_INTENT_POLICY"`
	IdentityMode string  `env:"GRID_IDENTITY_MODE"`
}

// ApplyEnv overrides t with whichever variables are set in the environment.
func ApplyEnv(t *Tuning) error {
	o := envOverrides{
		DT:           float64(t.TickDurationMs) / 1000,
		Port:         t.Port,
		Seed:         t.Seed,
		IntentPolicy: t.IntentPolicy,
		IdentityMode: t.IdentityMode,
	}
	if err := env.Parse(&o); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	if o.DT <= 0 {
		return fmt.Errorf("DT=%v: tick duration must be positive", o.DT)
	}
	t.TickDurationMs = int(math.Round(o.DT * 1000))
	t.Port = o.Port
	t.Seed = o.Seed
	t.IntentPolicy = o.IntentPolicy
	t.IdentityMode = o.IdentityMode
	return nil
}

func (t Tuning) TickDuration() time.Duration {
	return time.Duration(t.TickDurationMs) * time.Millisecond
}

func (t Tuning) WorldConfig() world.WorldConfig {
	codes := make(map[int]string, len(t.AccessCodes))
	for id, code := range t.AccessCodes {
		codes[id] = code
	}
	return world.WorldConfig{
		ID:              t.WorldID,
		Width:           t.Width,
		Height:          t.Height,
		Robots:          t.Robots,
		Obstacles:       t.Obstacles,
		Prizes:          t.Prizes,
		PrizeMin:        t.PrizeMin,
		PrizeMax:        t.PrizeMax,
		TickDuration:    t.TickDuration(),
		Seed:            t.Seed,
		IntentPolicy:    world.IntentPolicy(t.IntentPolicy),
		IdentityMode:    world.IdentityMode(t.IdentityMode),
		AccessCodes:     codes,
		PublishQueue:    t.Queues.Publish,
		SubscriberQueue: t.Queues.Subscriber,
		JournalQueue:    t.Queues.Journal,
	}
}
