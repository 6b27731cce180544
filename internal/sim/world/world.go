// Package world holds the authoritative grid simulation: world state, the
// intent buffer, the per-tick resolution pass and the gate that serializes them.
package world

import (
	crand "crypto/rand"
	"encoding/binary"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"gridarena.ai/internal/sim/broadcast"
)

type World struct {
	cfg WorldConfig
	log *log.Logger

	// mu is the access gate: world state and intent buffer are only touched
	// with it held, and nothing slower than memory work happens inside it.
	mu    sync.Mutex
	st    *state
	seeds *rand.Rand

	codeToRobot map[string]int

	hub *broadcast.Hub[Snapshot]

	journal     Journal
	journalOn   atomic.Bool
	journalCh   chan JournalEntry
	journalLost atomic.Uint64

	tracer trace.Tracer

	lastStepMicros atomic.Int64
	overruns       atomic.Uint64
	resetTotal     atomic.Uint64
	movesTotal     atomic.Uint64
	claimsTotal    atomic.Uint64
}

// New builds a world and its first generation. The world starts Stopped.
func New(cfg WorldConfig, logger *log.Logger) (*World, error) {
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("world config: %w", err)
	}
	seed := cfg.Seed
	if seed == 0 {
		s, err := newSeed()
		if err != nil {
			return nil, err
		}
		seed = s
		cfg.Seed = s
	}

	w := &World{
		cfg:         cfg,
		log:         logger,
		st:          newState(cfg.Grid()),
		seeds:       rand.New(rand.NewSource(seed)),
		codeToRobot: make(map[string]int, len(cfg.AccessCodes)),
		hub:         broadcast.NewHub[Snapshot](cfg.PublishQueue, cfg.SubscriberQueue, logger),
		journalCh:   make(chan JournalEntry, cfg.JournalQueue),
		tracer:      otel.Tracer("gridarena.ai/internal/sim/world"),
	}
	for id, code := range cfg.AccessCodes {
		w.codeToRobot[code] = id
	}

	w.mu.Lock()
	w.resetLocked()
	w.mu.Unlock()
	return w, nil
}

func newSeed() (int64, error) {
	var b [8]byte
	if _, err := crand.Read(b[:]); err != nil {
		return 0, fmt.Errorf("read random seed: %w", err)
	}
	return int64(binary.LittleEndian.Uint64(b[:])), nil
}

func (w *World) Config() WorldConfig { return w.cfg }

func (w *World) ID() string {
	if w == nil {
		return ""
	}
	return w.cfg.ID
}

// SetJournal attaches the tick journal. It must be called before Run.
func (w *World) SetJournal(j Journal) {
	w.journal = j
	w.journalOn.Store(j != nil)
	if j == nil {
		return
	}
	// The current generation predates the journal; record it so replays can start here.
	w.mu.Lock()
	w.emitLocked(w.resetEntryLocked())
	if w.st.running {
		w.emitLocked(JournalEntry{Kind: EntryStart, WorldID: w.cfg.ID, Generation: w.st.generation, Tick: w.st.tick, Digest: w.st.stateDigest()})
	}
	w.mu.Unlock()
}

func (w *World) resetLocked() {
	w.st.reset(w.seeds.Int63())
	w.resetTotal.Add(1)
}

func (w *World) resetEntryLocked() JournalEntry {
	grid := w.st.grid
	return JournalEntry{
		Kind:       EntryReset,
		WorldID:    w.cfg.ID,
		Generation: w.st.generation,
		Tick:       w.st.tick,
		Seed:       w.st.seed,
		Grid:       &grid,
		Digest:     w.st.stateDigest(),
	}
}
