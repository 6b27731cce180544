package world

import (
	"context"

	"gridarena.ai/internal/sim/broadcast"
)

// Start moves the world to Running. Starting a running world is a no-op.
func (w *World) Start() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.st.start() {
		if w.journalOn.Load() {
			w.emitLocked(JournalEntry{Kind: EntryStart, WorldID: w.cfg.ID, Generation: w.st.generation, Tick: w.st.tick, Digest: w.st.stateDigest()})
		}
		if w.log != nil {
			w.log.Printf("world %s started (generation=%d)", w.cfg.ID, w.st.generation)
		}
		snap := w.st.snapshot()
		w.hub.Offer(snap)
		return snap
	}
	return w.st.snapshot()
}

// Reset replaces the world with a fresh generation, clears pending intents and
// forces Stopped.
func (w *World) Reset() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.resetLocked()
	if w.journalOn.Load() {
		w.emitLocked(w.resetEntryLocked())
	}
	if w.log != nil {
		w.log.Printf("world %s reset (generation=%d seed=%d)", w.cfg.ID, w.st.generation, w.st.seed)
	}
	snap := w.st.snapshot()
	w.hub.Offer(snap)
	return snap
}

// SubmitIntent queues a move token for a robot id, bypassing identity mode.
func (w *World) SubmitIntent(robotID int, move string) error {
	d, err := ParseDirection(move)
	if err != nil {
		return err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.submit(robotID, d, w.cfg.IntentPolicy)
}

// SubmitIntentAs resolves the caller's identity per the configured mode and
// queues the move. It returns the robot id the move was queued for.
func (w *World) SubmitIntentAs(id Identity, move string) (int, error) {
	d, err := ParseDirection(move)
	if err != nil {
		return 0, err
	}
	robotID, err := w.resolveIdentity(id)
	if err != nil {
		return 0, err
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if err := w.st.submit(robotID, d, w.cfg.IntentPolicy); err != nil {
		return 0, err
	}
	return robotID, nil
}

// PendingIntent reports the move queued for a robot, if any.
func (w *World) PendingIntent(robotID int) (Direction, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.intents.get(robotID)
}

func (w *World) ReadSnapshot() Snapshot {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.snapshot()
}

func (w *World) CurrentTick() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.st.tick
}

// Subscribe registers for a snapshot after every tick, start and reset.
// queue <= 0 uses the configured default queue size.
func (w *World) Subscribe(queue int) *broadcast.Subscription[Snapshot] {
	return w.hub.Subscribe(queue)
}

// SubscribeFunc calls fn with each published snapshot on a dedicated
// goroutine until ctx is done, the subscription is dropped or Run returns.
// fn runs outside the gate and may call back into the world.
func (w *World) SubscribeFunc(ctx context.Context, queue int, fn func(Snapshot)) *broadcast.Subscription[Snapshot] {
	return w.hub.SubscribeFunc(ctx, queue, fn)
}

func (w *World) Unsubscribe(id string) bool {
	return w.hub.Unsubscribe(id)
}
