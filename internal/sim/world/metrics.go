package world

import "gridarena.ai/internal/sim/broadcast"

// WorldMetrics is a thread-safe read-only view of key world runtime signals.
// It is updated after each tick and read from HTTP handlers/tests.
type WorldMetrics struct {
	Tick       uint64 `json:"tick"`
	Running    bool   `json:"running"`
	Generation uint64 `json:"generation"`

	Robots         int `json:"robots"`
	PrizesLeft     int `json:"prizes_left"`
	PendingIntents int `json:"pending_intents"`

	StepMS        float64 `json:"step_ms"`
	OverrunsTotal uint64  `json:"overruns_total"`
	ResetTotal    uint64  `json:"reset_total"`

	MovesTotal  uint64 `json:"moves_total"`
	ClaimsTotal uint64 `json:"claims_total"`

	JournalLost uint64 `json:"journal_lost"`

	Broadcast broadcast.Stats `json:"broadcast"`
}

func (w *World) Metrics() WorldMetrics {
	if w == nil {
		return WorldMetrics{}
	}
	w.mu.Lock()
	m := WorldMetrics{
		Tick:           w.st.tick,
		Running:        w.st.running,
		Generation:     w.st.generation,
		Robots:         len(w.st.robots),
		PrizesLeft:     len(w.st.prizes),
		PendingIntents: w.st.intents.len(),
	}
	w.mu.Unlock()

	m.StepMS = float64(w.lastStepMicros.Load()) / 1000.0
	m.OverrunsTotal = w.overruns.Load()
	m.ResetTotal = w.resetTotal.Load()
	m.MovesTotal = w.movesTotal.Load()
	m.ClaimsTotal = w.claimsTotal.Load()
	m.JournalLost = w.journalLost.Load()
	m.Broadcast = w.hub.Stats()
	return m
}
