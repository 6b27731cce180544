package broadcast

import (
	"context"
	"sync"
	"testing"
	"time"
)

func TestHub_PublishDeliversToAll(t *testing.T) {
	h := NewHub[int](4, 4, nil)
	a := h.Subscribe(0)
	b := h.Subscribe(2)
	if a.ID == b.ID {
		t.Fatalf("subscription ids collide: %s", a.ID)
	}

	h.Publish(7)
	if v := <-a.C; v != 7 {
		t.Fatalf("a got=%d want=7", v)
	}
	if v := <-b.C; v != 7 {
		t.Fatalf("b got=%d want=7", v)
	}
	st := h.Stats()
	if st.Subscribers != 2 || st.Delivered != 2 || st.Dropped != 0 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestHub_FullQueueDropsOnlyThatSubscriber(t *testing.T) {
	h := NewHub[int](4, 4, nil)
	slow := h.Subscribe(1)
	fast := h.Subscribe(4)

	h.Publish(1)
	h.Publish(2) // slow is full now

	if _, ok := <-slow.C; !ok {
		t.Fatalf("expected the queued value before close")
	}
	if _, ok := <-slow.C; ok {
		t.Fatalf("expected slow subscriber channel closed")
	}
	for want := 1; want <= 2; want++ {
		if v := <-fast.C; v != want {
			t.Fatalf("fast got=%d want=%d", v, want)
		}
	}
	if h.Len() != 1 {
		t.Fatalf("subscribers=%d want=1", h.Len())
	}
	if h.Stats().Dropped != 1 {
		t.Fatalf("dropped=%d want=1", h.Stats().Dropped)
	}
	if h.Unsubscribe(slow.ID) {
		t.Fatalf("dropped subscriber should already be gone")
	}
}

func TestHub_UnsubscribeClosesChannel(t *testing.T) {
	h := NewHub[string](1, 1, nil)
	sub := h.Subscribe(0)
	if !h.Unsubscribe(sub.ID) {
		t.Fatalf("unsubscribe reported missing id")
	}
	if _, ok := <-sub.C; ok {
		t.Fatalf("channel not closed")
	}
	h.Publish("x") // must not panic on a closed channel
}

func TestHub_OfferKeepsLatest(t *testing.T) {
	h := NewHub[int](1, 8, nil)
	h.Offer(1)
	h.Offer(2)
	if got := <-h.in; got != 2 {
		t.Fatalf("handoff got=%d want=2", got)
	}
	if h.Stats().HandoffLost != 1 {
		t.Fatalf("handoff lost=%d want=1", h.Stats().HandoffLost)
	}
}

func TestHub_RunAndSubscribeFunc(t *testing.T) {
	h := NewHub[int](8, 8, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go h.Run(ctx)

	var mu sync.Mutex
	var got []int
	done := make(chan struct{})
	h.SubscribeFunc(ctx, 8, func(v int) {
		mu.Lock()
		got = append(got, v)
		n := len(got)
		mu.Unlock()
		if n == 3 {
			close(done)
		}
	})

	for i := 1; i <= 3; i++ {
		h.Offer(i)
		time.Sleep(5 * time.Millisecond)
	}
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatalf("callback not invoked 3 times")
	}
	mu.Lock()
	defer mu.Unlock()
	for i, v := range got {
		if v != i+1 {
			t.Fatalf("got=%v want=[1 2 3]", got)
		}
	}
}

func TestHub_RunExitClosesSubscribers(t *testing.T) {
	h := NewHub[int](4, 4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	sub := h.Subscribe(0)
	done := make(chan struct{})
	go func() {
		defer close(done)
		h.Run(ctx)
	}()
	cancel()
	<-done

	select {
	case _, ok := <-sub.C:
		if ok {
			t.Fatalf("expected closed channel")
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("subscriber not closed after Run returned")
	}
	if h.Len() != 0 {
		t.Fatalf("subscribers=%d want=0", h.Len())
	}

	late := h.Subscribe(0)
	if _, ok := <-late.C; ok {
		t.Fatalf("late subscription should be closed")
	}
	if h.Unsubscribe(late.ID) {
		t.Fatalf("late subscription should not be registered")
	}
}
