package main

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/http/pprof"

	"gridarena.ai/internal/persistence/indexdb"
	"gridarena.ai/internal/sim/world"
	"gridarena.ai/internal/transport/httpapi"
	"gridarena.ai/internal/transport/observer"
	"gridarena.ai/internal/transport/ws"
)

type muxOptions struct {
	Admin bool
	Pprof bool
}

func newMux(w *world.World, idx runtimeIndex, logger *log.Logger, opts muxOptions) *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(rw http.ResponseWriter, r *http.Request) {
		rw.WriteHeader(200)
		_, _ = rw.Write([]byte("ok"))
	})
	mux.HandleFunc("/metrics", func(rw http.ResponseWriter, r *http.Request) {
		rw.Header().Set("Content-Type", "text/plain; version=0.0.4")
		writeMetrics(rw, w.ID(), w.Metrics(), idx)
	})

	httpapi.New(w, logger).Register(mux)

	wsHandler := ws.NewServer(w, logger).Handler()
	mux.HandleFunc("/v1/ws", wsHandler)
	mux.HandleFunc("/ws", wsHandler)

	if opts.Admin {
		// Local-only admin endpoints (read-only, never mutate the world).
		mux.HandleFunc("/admin/v1/state", func(rw http.ResponseWriter, r *http.Request) {
			if !observer.IsLoopbackRemote(r.RemoteAddr) {
				http.Error(rw, "forbidden", http.StatusForbidden)
				return
			}
			rw.Header().Set("Content-Type", "application/json")
			resp := adminState{
				WorldID: w.ID(),
				Config:  w.Config(),
				Metrics: w.Metrics(),
			}
			if idx != nil {
				st := idx.Stats()
				resp.Index = &st
			}
			_ = json.NewEncoder(rw).Encode(resp)
		})

		obsSrv := observer.NewServer(w, logger)
		mux.HandleFunc("/admin/v1/observer/bootstrap", obsSrv.BootstrapHandler())
		mux.HandleFunc("/admin/v1/observer/ws", obsSrv.WSHandler())
	} else {
		logger.Printf("admin endpoints disabled (GRIDARENA_ENABLE_ADMIN_HTTP=false)")
	}
	if opts.Pprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

type adminState struct {
	WorldID string             `json:"world_id"`
	Config  world.WorldConfig  `json:"config"`
	Metrics world.WorldMetrics `json:"metrics"`
	Index   *indexdb.Stats     `json:"index,omitempty"`
}

// writeMetrics renders the minimal Prometheus exposition format.
func writeMetrics(out io.Writer, worldID string, m world.WorldMetrics, idx runtimeIndex) {
	gauge := func(name, help string) {
		fmt.Fprintf(out, "# HELP %s %s\n", name, help)
		fmt.Fprintf(out, "# TYPE %s gauge\n", name)
	}
	counter := func(name, help string) {
		fmt.Fprintf(out, "# HELP %s %s\n", name, help)
		fmt.Fprintf(out, "# TYPE %s counter\n", name)
	}
	running := 0
	if m.Running {
		running = 1
	}

	gauge("gridarena_world_tick", "Current world tick.")
	fmt.Fprintf(out, "gridarena_world_tick{world=%q} %d\n", worldID, m.Tick)

	gauge("gridarena_world_running", "1 when the world is running.")
	fmt.Fprintf(out, "gridarena_world_running{world=%q} %d\n", worldID, running)

	gauge("gridarena_world_generation", "Current world generation.")
	fmt.Fprintf(out, "gridarena_world_generation{world=%q} %d\n", worldID, m.Generation)

	gauge("gridarena_world_robots", "Number of robots.")
	fmt.Fprintf(out, "gridarena_world_robots{world=%q} %d\n", worldID, m.Robots)

	gauge("gridarena_world_prizes_left", "Uncollected prizes in this generation.")
	fmt.Fprintf(out, "gridarena_world_prizes_left{world=%q} %d\n", worldID, m.PrizesLeft)

	gauge("gridarena_world_pending_intents", "Intents waiting for the next tick.")
	fmt.Fprintf(out, "gridarena_world_pending_intents{world=%q} %d\n", worldID, m.PendingIntents)

	gauge("gridarena_world_step_ms", "Last tick step duration in milliseconds.")
	fmt.Fprintf(out, "gridarena_world_step_ms{world=%q} %.3f\n", worldID, m.StepMS)

	counter("gridarena_world_overruns_total", "Ticks that started after their scheduled time.")
	fmt.Fprintf(out, "gridarena_world_overruns_total{world=%q} %d\n", worldID, m.OverrunsTotal)

	counter("gridarena_world_resets_total", "World resets since process start.")
	fmt.Fprintf(out, "gridarena_world_resets_total{world=%q} %d\n", worldID, m.ResetTotal)

	counter("gridarena_world_moves_total", "Robot moves applied.")
	fmt.Fprintf(out, "gridarena_world_moves_total{world=%q} %d\n", worldID, m.MovesTotal)

	counter("gridarena_world_claims_total", "Prizes claimed.")
	fmt.Fprintf(out, "gridarena_world_claims_total{world=%q} %d\n", worldID, m.ClaimsTotal)

	counter("gridarena_journal_lost_total", "Journal entries dropped on backlog.")
	fmt.Fprintf(out, "gridarena_journal_lost_total{world=%q} %d\n", worldID, m.JournalLost)

	gauge("gridarena_broadcast_subscribers", "Connected snapshot subscribers.")
	fmt.Fprintf(out, "gridarena_broadcast_subscribers{world=%q} %d\n", worldID, m.Broadcast.Subscribers)

	counter("gridarena_broadcast_dropped_total", "Subscribers dropped for a full queue.")
	fmt.Fprintf(out, "gridarena_broadcast_dropped_total{world=%q} %d\n", worldID, m.Broadcast.Dropped)

	if idx == nil {
		return
	}
	st := idx.Stats()
	counter("gridarena_index_entries_total", "Index entries by outcome.")
	fmt.Fprintf(out, "gridarena_index_entries_total{world=%q,outcome=%q} %d\n", worldID, "written", st.Written)
	fmt.Fprintf(out, "gridarena_index_entries_total{world=%q,outcome=%q} %d\n", worldID, "dropped", st.Dropped)
	fmt.Fprintf(out, "gridarena_index_entries_total{world=%q,outcome=%q} %d\n", worldID, "failed", st.Failed)
	gauge("gridarena_index_queue_depth", "Index write queue backlog.")
	fmt.Fprintf(out, "gridarena_index_queue_depth{world=%q} %d\n", worldID, st.QueueDepth)
}
