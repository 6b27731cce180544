package world

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNew_RejectsUnsatisfiableConfig(t *testing.T) {
	bad := []WorldConfig{
		{Width: 2, Height: 2, Robots: 3, Obstacles: 1, Prizes: 1},
		{Width: -1, Height: 5},
		{Width: 5, Height: 5, PrizeMin: -1},
		{Width: 5, Height: 5, PrizeMin: 4, PrizeMax: 2},
		{Width: 5, Height: 5, IntentPolicy: "random"},
		{Width: 5, Height: 5, IdentityMode: "token"},
		{Width: 5, Height: 5, Robots: 1, AccessCodes: map[int]string{3: "11111"}},
		{Width: 5, Height: 5, Robots: 2, AccessCodes: map[int]string{0: "11111", 1: "11111"}},
	}
	for i, cfg := range bad {
		cfg.Seed = 1
		if _, err := New(cfg, nil); err == nil {
			t.Fatalf("case %d: expected config error", i)
		}
	}
}

func TestWorld_StartsStoppedAndStartIsIdempotent(t *testing.T) {
	w := newTestWorld(t, WorldConfig{Width: 6, Height: 6, Robots: 3, Obstacles: 4, Prizes: 4})
	snap := w.ReadSnapshot()
	if snap.Running || snap.Tick != 0 || snap.Generation != 1 {
		t.Fatalf("initial snapshot=%+v", snap)
	}
	if err := snap.CheckInvariants(); err != nil {
		t.Fatalf("initial invariants: %v", err)
	}
	if _, ok := w.Tick(); ok {
		t.Fatalf("tick ran while stopped")
	}
	if w.CurrentTick() != 0 {
		t.Fatalf("stopped tick advanced the counter")
	}

	w.Start()
	before := w.ReadSnapshot()
	again := w.Start()
	if !again.Running || again.Tick != before.Tick || again.Generation != before.Generation {
		t.Fatalf("second start changed the world: %+v", again)
	}
}

func TestWorld_SubmitAndTick(t *testing.T) {
	w := newTestWorld(t, WorldConfig{Width: 10, Height: 10, Robots: 4, Obstacles: 5, Prizes: 5})
	if err := w.SubmitIntent(0, "UP"); !errors.Is(err, ErrNotRunning) {
		t.Fatalf("stopped submit err=%v want E_NOT_RUNNING", err)
	}
	w.Start()
	if err := w.SubmitIntent(0, "sideways"); !errors.Is(err, ErrBadMove) {
		t.Fatalf("bad token err=%v want E_BAD_MOVE", err)
	}
	if err := w.SubmitIntent(9, "UP"); !errors.Is(err, ErrUnknownRobot) {
		t.Fatalf("unknown robot err=%v want E_UNKNOWN_ROBOT", err)
	}
	if err := w.SubmitIntent(0, "up"); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := w.SubmitIntent(0, "DOWN"); !errors.Is(err, ErrIntentPending) {
		t.Fatalf("duplicate err=%v want E_INTENT_PENDING", err)
	}
	if d, ok := w.PendingIntent(0); !ok || d != Up {
		t.Fatalf("pending=%s,%v want=UP", d, ok)
	}

	res, ok := w.Tick()
	if !ok || res.Tick != 1 || len(res.Intents) != 1 {
		t.Fatalf("tick result=%+v ok=%v", res, ok)
	}
	if _, ok := w.PendingIntent(0); ok {
		t.Fatalf("intent survived the tick")
	}
	if err := w.SubmitIntent(0, "DOWN"); err != nil {
		t.Fatalf("submit after tick: %v", err)
	}
	if err := w.ReadSnapshot().CheckInvariants(); err != nil {
		t.Fatalf("invariants: %v", err)
	}
}

func TestWorld_LastWinsPolicy(t *testing.T) {
	w := newTestWorld(t, WorldConfig{Width: 5, Height: 5, Robots: 1, IntentPolicy: LastWins})
	w.Start()
	_ = w.SubmitIntent(0, "UP")
	if err := w.SubmitIntent(0, "LEFT"); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	if d, _ := w.PendingIntent(0); d != Left {
		t.Fatalf("pending=%s want=LEFT", d)
	}
}

func TestWorld_ResetClearsEverything(t *testing.T) {
	w := newTestWorld(t, WorldConfig{Width: 8, Height: 8, Robots: 4, Obstacles: 6, Prizes: 10})
	w.Start()
	for i := 0; i < 10; i++ {
		for id := 0; id < 4; id++ {
			_ = w.SubmitIntent(id, Directions()[(i+id)%5].String())
		}
		w.Tick()
	}
	_ = w.SubmitIntent(1, "UP")

	snap := w.Reset()
	if snap.Running || snap.Tick != 0 || snap.Generation != 2 {
		t.Fatalf("after reset=%+v", snap)
	}
	if len(snap.Prizes) != 10 {
		t.Fatalf("prizes=%d want=10", len(snap.Prizes))
	}
	for _, r := range snap.Robots {
		if r.Score != 0 {
			t.Fatalf("robot %d score=%d after reset", r.ID, r.Score)
		}
	}
	if _, ok := w.PendingIntent(1); ok {
		t.Fatalf("intent survived reset")
	}
	if m := w.Metrics(); m.ResetTotal != 2 || m.PendingIntents != 0 {
		t.Fatalf("metrics=%+v", m)
	}
}

func TestWorld_IdentityModes(t *testing.T) {
	codes := map[int]string{0: "19108", 1: "54236"}

	w := newTestWorld(t, WorldConfig{Width: 5, Height: 5, Robots: 2, IdentityMode: IdentityEither, AccessCodes: codes})
	w.Start()
	id, err := w.SubmitIntentAs(CodeIdentity("54236"), "UP")
	if err != nil || id != 1 {
		t.Fatalf("code submit id=%d err=%v", id, err)
	}
	id, err = w.SubmitIntentAs(RobotIdentity(0), "UP")
	if err != nil || id != 0 {
		t.Fatalf("id submit id=%d err=%v", id, err)
	}
	if _, err := w.SubmitIntentAs(CodeIdentity("00000"), "UP"); !errors.Is(err, ErrBadCode) {
		t.Fatalf("unknown code err=%v want E_BAD_CODE", err)
	}

	w = newTestWorld(t, WorldConfig{Width: 5, Height: 5, Robots: 2, IdentityMode: IdentityAccessCode, AccessCodes: codes})
	w.Start()
	if _, err := w.SubmitIntentAs(RobotIdentity(0), "UP"); !errors.Is(err, ErrBadCode) {
		t.Fatalf("id in access_code mode err=%v want E_BAD_CODE", err)
	}

	w = newTestWorld(t, WorldConfig{Width: 5, Height: 5, Robots: 2, AccessCodes: codes})
	w.Start()
	if _, err := w.SubmitIntentAs(CodeIdentity("19108"), "UP"); !errors.Is(err, ErrBadRequest) {
		t.Fatalf("code in robot_id mode err=%v want E_BAD_REQUEST", err)
	}
	if _, err := w.SubmitIntentAs(RobotIdentity(7), "UP"); !errors.Is(err, ErrUnknownRobot) {
		t.Fatalf("unknown id err=%v want E_UNKNOWN_ROBOT", err)
	}
}

func TestNextTick_DriftCorrected(t *testing.T) {
	t0 := time.Unix(1000, 0)
	dt := 100 * time.Millisecond

	target, wait := nextTick(t0, dt, t0.Add(30*time.Millisecond))
	if !target.Equal(t0.Add(dt)) || wait != 70*time.Millisecond {
		t.Fatalf("on time: target=%v wait=%v", target.Sub(t0), wait)
	}

	// A 250ms stall: the two missed ticks fire back to back, then the
	// schedule is back on its original grid.
	now := t0.Add(250 * time.Millisecond)
	target, wait = nextTick(t0, dt, now)
	if target.Sub(t0) != 100*time.Millisecond || wait != 0 {
		t.Fatalf("late #1: target=%v wait=%v", target.Sub(t0), wait)
	}
	target, wait = nextTick(target, dt, now)
	if target.Sub(t0) != 200*time.Millisecond || wait != 0 {
		t.Fatalf("late #2: target=%v wait=%v", target.Sub(t0), wait)
	}
	target, wait = nextTick(target, dt, now)
	if target.Sub(t0) != 300*time.Millisecond || wait != 50*time.Millisecond {
		t.Fatalf("recovered: target=%v wait=%v", target.Sub(t0), wait)
	}
}

func TestRun_PublishesTicksToSubscribers(t *testing.T) {
	w := newTestWorld(t, WorldConfig{Width: 6, Height: 6, Robots: 2, TickDuration: 5 * time.Millisecond, SubscriberQueue: 64})
	sub := w.Subscribe(0)
	defer w.Unsubscribe(sub.ID)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	w.Start()

	deadline := time.After(3 * time.Second)
	var last uint64
	for last < 3 {
		select {
		case snap, ok := <-sub.C:
			if !ok {
				t.Fatalf("subscription closed")
			}
			if snap.Tick < last {
				t.Fatalf("ticks out of order: %d after %d", snap.Tick, last)
			}
			last = snap.Tick
		case <-deadline:
			t.Fatalf("timeout waiting for ticks (last=%d)", last)
		}
	}
	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("run err=%v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestRun_SubscribeFuncOncePerTick(t *testing.T) {
	w := newTestWorld(t, WorldConfig{Width: 6, Height: 6, Robots: 2, TickDuration: 20 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Snapshot, 64)
	w.SubscribeFunc(ctx, 32, func(s Snapshot) { got <- s })

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()
	w.Start()

	// Start publishes tick 0, then every pass publishes exactly once.
	deadline := time.After(5 * time.Second)
	for want := uint64(0); want <= 10; want++ {
		select {
		case snap := <-got:
			if snap.Tick != want || !snap.Running {
				t.Fatalf("callback tick=%d running=%v want tick=%d", snap.Tick, snap.Running, want)
			}
		case <-deadline:
			t.Fatalf("timeout waiting for tick %d", want)
		}
	}
	cancel()
	<-done
}

func TestWorld_ConcurrentSubmittersAndReaders(t *testing.T) {
	w := newTestWorld(t, WorldConfig{Width: 12, Height: 12, Robots: 8, Obstacles: 10, Prizes: 20})
	w.Start()

	var wg sync.WaitGroup
	stop := make(chan struct{})
	for id := 0; id < 8; id++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			for i := 0; ; i++ {
				select {
				case <-stop:
					return
				default:
				}
				_ = w.SubmitIntent(id, Directions()[i%5].String())
			}
		}(id)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			if err := w.ReadSnapshot().CheckInvariants(); err != nil {
				t.Errorf("reader saw broken snapshot: %v", err)
				return
			}
		}
	}()

	for i := 0; i < 200; i++ {
		if _, ok := w.Tick(); !ok {
			t.Fatalf("tick %d did not run", i)
		}
	}
	close(stop)
	wg.Wait()
	if got := w.CurrentTick(); got != 200 {
		t.Fatalf("tick=%d want=200", got)
	}
}
