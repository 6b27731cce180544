package main

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"gridarena.ai/internal/persistence/indexdb"
	"gridarena.ai/internal/sim/world"
)

type fakeIndex struct {
	entries []world.JournalEntry
	closed  bool
}

func (f *fakeIndex) WriteEntry(e world.JournalEntry) error {
	f.entries = append(f.entries, e)
	return nil
}
func (f *fakeIndex) Close() error { f.closed = true; return nil }
func (f *fakeIndex) Stats() indexdb.Stats {
	return indexdb.Stats{RunID: "run", Written: uint64(len(f.entries)), Dropped: 3, QueueDepth: 2}
}

func testWorld(t *testing.T) *world.World {
	t.Helper()
	w, err := world.New(world.WorldConfig{ID: "t", Width: 6, Height: 6, Robots: 2, Obstacles: 3, Prizes: 4, Seed: 9}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	return w
}

func TestMetricsExposition(t *testing.T) {
	w := testWorld(t)
	w.Start()
	w.Tick()
	w.Tick()

	idx := &fakeIndex{}
	mux := newMux(w, idx, log.New(io.Discard, "", 0), muxOptions{})
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != 200 {
		t.Fatalf("status=%d want=200", rr.Code)
	}
	body := rr.Body.String()
	for _, want := range []string{
		"# TYPE gridarena_world_tick gauge",
		`gridarena_world_tick{world="t"} 2`,
		`gridarena_world_running{world="t"} 1`,
		`gridarena_world_robots{world="t"} 2`,
		`gridarena_index_entries_total{world="t",outcome="dropped"} 3`,
		`gridarena_index_queue_depth{world="t"} 2`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("metrics missing %q:\n%s", want, body)
		}
	}
}

func TestMetricsWithoutIndex(t *testing.T) {
	var b strings.Builder
	writeMetrics(&b, "t", world.WorldMetrics{Generation: 4}, nil)
	if !strings.Contains(b.String(), `gridarena_world_generation{world="t"} 4`) {
		t.Fatalf("generation missing:\n%s", b.String())
	}
	if strings.Contains(b.String(), "gridarena_index_") {
		t.Fatalf("index metrics written without an index")
	}
}

func TestAdminState_LoopbackOnly(t *testing.T) {
	w := testWorld(t)
	mux := newMux(w, nil, log.New(io.Discard, "", 0), muxOptions{Admin: true})

	req := httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "203.0.113.9:5000"
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusForbidden {
		t.Fatalf("remote status=%d want=403", rr.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != 200 {
		t.Fatalf("loopback status=%d want=200", rr.Code)
	}
	var st adminState
	if err := json.Unmarshal(rr.Body.Bytes(), &st); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if st.WorldID != "t" || st.Metrics.Robots != 2 || st.Index != nil {
		t.Fatalf("state=%+v", st)
	}
}

func TestAdminDisabled(t *testing.T) {
	w := testWorld(t)
	mux := newMux(w, nil, log.New(io.Discard, "", 0), muxOptions{})
	req := httptest.NewRequest(http.MethodGet, "/admin/v1/state", nil)
	req.RemoteAddr = "127.0.0.1:5000"
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status=%d want=404", rr.Code)
	}
}

func TestMultiJournal_FansOut(t *testing.T) {
	idx := &fakeIndex{}
	m := multiJournal{index: idx}
	if !m.enabled() {
		t.Fatalf("expected enabled")
	}
	if err := m.WriteEntry(world.JournalEntry{Kind: world.EntryStart, Tick: 3}); err != nil {
		t.Fatalf("write: %v", err)
	}
	if len(idx.entries) != 1 || idx.entries[0].Tick != 3 {
		t.Fatalf("entries=%+v", idx.entries)
	}
	if (multiJournal{}).enabled() {
		t.Fatalf("empty fan-out should be disabled")
	}
}

func TestEnvBool(t *testing.T) {
	t.Setenv("GRIDARENA_TEST_FLAG", "off")
	if envBool("GRIDARENA_TEST_FLAG", true) {
		t.Fatalf("off should be false")
	}
	t.Setenv("GRIDARENA_TEST_FLAG", "YES")
	if !envBool("GRIDARENA_TEST_FLAG", false) {
		t.Fatalf("YES should be true")
	}
	t.Setenv("GRIDARENA_TEST_FLAG", "maybe")
	if !envBool("GRIDARENA_TEST_FLAG", true) {
		t.Fatalf("unknown value should keep the default")
	}
	t.Setenv("DEPLOY_ENV", "production")
	if defaultEnableAdminHTTP() {
		t.Fatalf("admin should default off in production")
	}
}

func TestOpenRuntimeIndex_Disabled(t *testing.T) {
	idx, err := openRuntimeIndex(t.TempDir(), true)
	if err != nil || idx != nil {
		t.Fatalf("idx=%v err=%v", idx, err)
	}
	t.Setenv("GRIDARENA_INDEX_BACKEND", "off")
	idx, err = openRuntimeIndex(t.TempDir(), false)
	if err != nil || idx != nil {
		t.Fatalf("idx=%v err=%v", idx, err)
	}
	t.Setenv("GRIDARENA_INDEX_BACKEND", "postgres")
	if _, err := openRuntimeIndex(t.TempDir(), false); err == nil {
		t.Fatalf("expected unsupported backend error")
	}
}

func TestGenerationReporter_LogsOncePerClearedGeneration(t *testing.T) {
	var buf strings.Builder
	g := &generationReporter{log: log.New(&buf, "", 0)}
	robots := []world.Robot{{ID: 0, Score: 2}, {ID: 1, Score: 7}}

	g.observe(world.Snapshot{Running: true, Generation: 1, Tick: 4, Robots: robots, Prizes: []world.Prize{{}}})
	if buf.Len() != 0 {
		t.Fatalf("logged with prizes left: %q", buf.String())
	}
	g.observe(world.Snapshot{Running: true, Generation: 1, Tick: 9, Robots: robots})
	g.observe(world.Snapshot{Running: true, Generation: 1, Tick: 10, Robots: robots})
	if got := strings.Count(buf.String(), "cleared"); got != 1 {
		t.Fatalf("lines=%d want=1: %q", got, buf.String())
	}
	if !strings.Contains(buf.String(), "generation 1 cleared at tick 9: leader robot=1 score=7 total=9") {
		t.Fatalf("log=%q", buf.String())
	}
	g.observe(world.Snapshot{Running: true, Generation: 2, Tick: 3, Robots: robots})
	if got := strings.Count(buf.String(), "cleared"); got != 2 {
		t.Fatalf("lines=%d want=2", got)
	}
}

func TestGenerationReporter_DrivenByWorld(t *testing.T) {
	// Prizes fill every free cell but the robots', so two robots clear it fast.
	w, err := world.New(world.WorldConfig{ID: "r", Width: 2, Height: 2, Robots: 2, Prizes: 2, TickDuration: 5 * time.Millisecond, Seed: 3}, log.New(io.Discard, "", 0))
	if err != nil {
		t.Fatalf("world: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	lines := make(chan string, 4)
	g := &generationReporter{log: log.New(writerFunc(func(p []byte) (int, error) {
		lines <- string(p)
		return len(p), nil
	}), "", 0)}
	w.SubscribeFunc(ctx, 0, g.observe)
	go func() { _ = w.Run(ctx) }()
	w.Start()

	dirs := world.Directions()
	deadline := time.After(5 * time.Second)
	for i := 0; ; i++ {
		select {
		case line := <-lines:
			if !strings.Contains(line, "generation 1 cleared") {
				t.Fatalf("line=%q", line)
			}
			return
		case <-deadline:
			t.Fatalf("generation never reported cleared")
		case <-time.After(5 * time.Millisecond):
			for id := 0; id < 2; id++ {
				_ = w.SubmitIntent(id, dirs[(i+id)%len(dirs)].String())
			}
		}
	}
}

type writerFunc func([]byte) (int, error)

func (f writerFunc) Write(p []byte) (int, error) { return f(p) }
