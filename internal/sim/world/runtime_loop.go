package world

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
)

// Run drives the tick loop until ctx is done. Ticks fire on a drift-corrected
// schedule: each target is the previous target plus the tick duration, so a
// slow pass makes the next one fire at once instead of shifting the schedule.
// Ticks are never skipped and never batched.
func (w *World) Run(ctx context.Context) error {
	go w.hub.Run(ctx)

	pumpDone := make(chan struct{})
	go func() {
		defer close(pumpDone)
		w.pumpJournal(ctx)
	}()
	defer func() { <-pumpDone }()

	dt := w.cfg.TickDuration
	target := time.Now()
	for {
		var wait time.Duration
		target, wait = nextTick(target, dt, time.Now())
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}

		start := time.Now()
		w.tick(ctx)
		if took := time.Since(start); took > dt {
			n := w.overruns.Add(1)
			if w.log != nil {
				w.log.Printf("[tick] budget overrun: duration=%s budget=%s total=%d", took, dt, n)
			}
		}
	}
}

// nextTick returns the next fire time and how long to wait for it.
func nextTick(prevTarget time.Time, dt time.Duration, now time.Time) (time.Time, time.Duration) {
	target := prevTarget.Add(dt)
	wait := target.Sub(now)
	if wait < 0 {
		wait = 0
	}
	return target, wait
}

// Tick runs one resolution pass synchronously. It reports false when the
// world is stopped and nothing happened.
func (w *World) Tick() (TickResult, bool) {
	return w.tick(context.Background())
}

func (w *World) tick(ctx context.Context) (TickResult, bool) {
	_, span := w.tracer.Start(ctx, "world.tick")
	defer span.End()

	start := time.Now()
	w.mu.Lock()
	res, ok := w.st.resolve(w.st.rng)
	if !ok {
		w.mu.Unlock()
		span.SetAttributes(attribute.Bool("world.running", false))
		return TickResult{}, false
	}
	snap := w.st.snapshot()
	if w.journalOn.Load() {
		w.emitLocked(tickEntry(w.cfg.ID, res, w.st.stateDigest()))
	}
	w.hub.Offer(snap)
	w.mu.Unlock()

	w.lastStepMicros.Store(time.Since(start).Microseconds())
	w.movesTotal.Add(uint64(len(res.Moves)))
	w.claimsTotal.Add(uint64(len(res.Claims)))

	span.SetAttributes(
		attribute.Bool("world.running", true),
		attribute.Int64("world.tick", int64(res.Tick)),
		attribute.Int64("world.generation", int64(res.Generation)),
		attribute.Int("world.intents", len(res.Intents)),
		attribute.Int("world.moves", len(res.Moves)),
		attribute.Int("world.claims", len(res.Claims)),
	)
	return res, true
}

func (w *World) pumpJournal(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			w.flushJournal()
			return
		case e := <-w.journalCh:
			w.writeJournal(e)
		}
	}
}
