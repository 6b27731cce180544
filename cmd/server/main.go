package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	persistlog "gridarena.ai/internal/persistence/log"
	"gridarena.ai/internal/sim/tuning"
	"gridarena.ai/internal/sim/world"
	"gridarena.ai/internal/telemetry"
)

func main() {
	var (
		addr       = flag.String("addr", ":8080", "http listen address (PORT overrides when -addr is not given)")
		worldID    = flag.String("world", "", "world id (default: tuning world_id)")
		seed       = flag.Int64("seed", 0, "master seed (0: tuning/GRID_SEED, else random)")
		configDir  = flag.String("configs", "./configs", "config directory")
		dataDir    = flag.String("data", "./data", "runtime data directory")
		tuningPath = flag.String("tuning", "", "path to tuning.yaml (default: <configs>/tuning.yaml)")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite read model")
		noJournal  = flag.Bool("no_journal", false, "disable the tick journal")
		autoStart  = flag.Bool("autostart", false, "start the world immediately")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lmicroseconds)

	tp := strings.TrimSpace(*tuningPath)
	if tp == "" {
		tp = filepath.Join(*configDir, "tuning.yaml")
	}
	tune, err := tuning.Load(tp)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Fatalf("load tuning: %v", err)
		}
		logger.Printf("tuning not found (%s); using defaults", tp)
		tune = tuning.Defaults()
	}
	if err := tuning.ApplyEnv(&tune); err != nil {
		logger.Fatalf("tuning env: %v", err)
	}
	if *worldID != "" {
		tune.WorldID = *worldID
	}
	if *seed != 0 {
		tune.Seed = *seed
	}
	listen := *addr
	if !flagSet("addr") && tune.Port != 0 {
		listen = fmt.Sprintf(":%d", tune.Port)
	}

	ctx, cancel := signalContext()
	defer cancel()

	shutdownTracing, err := telemetry.Setup(ctx, "gridarena-server")
	if err != nil {
		logger.Printf("tracing disabled: %v", err)
	}
	defer func() {
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = shutdownTracing(ctx2)
	}()

	w, err := world.New(tune.WorldConfig(), logger)
	if err != nil {
		logger.Fatalf("world: %v", err)
	}
	cfg := w.Config()
	logger.Printf("world %s: %dx%d robots=%d obstacles=%d prizes=%d tick=%s seed=%d policy=%s identity=%s",
		cfg.ID, cfg.Width, cfg.Height, cfg.Robots, cfg.Obstacles, cfg.Prizes, cfg.TickDuration, cfg.Seed, cfg.IntentPolicy, cfg.IdentityMode)

	worldDir := filepath.Join(*dataDir, "worlds", cfg.ID)
	_ = os.MkdirAll(worldDir, 0o755)

	// Optional: read-model index backend (never read back into the world).
	idx, err := openRuntimeIndex(worldDir, *disableDB)
	if err != nil {
		logger.Fatalf("open index backend: %v", err)
	}
	if idx != nil {
		defer idx.Close()
	}

	var journal *persistlog.TickJournal
	if !*noJournal {
		journal = persistlog.NewTickJournal(worldDir)
		defer journal.Close()
	}
	if sinks := (multiJournal{journal: journal, index: idx}); sinks.enabled() {
		w.SetJournal(sinks)
	}

	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		if err := w.Run(ctx); err != nil && err != context.Canceled {
			logger.Printf("world stopped: %v", err)
		}
	}()
	// Journal and index close only after Run flushed its queue.
	defer func() { <-runDone }()

	reporter := &generationReporter{log: logger}
	w.SubscribeFunc(ctx, 0, reporter.observe)

	if *autoStart {
		w.Start()
	}

	mux := newMux(w, idx, logger, muxOptions{
		Admin: envBool("GRIDARENA_ENABLE_ADMIN_HTTP", defaultEnableAdminHTTP()),
		Pprof: envBool("GRIDARENA_ENABLE_PPROF_HTTP", false),
	})
	srv := &http.Server{
		Addr:              listen,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		ctx2, cancel2 := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel2()
		_ = srv.Shutdown(ctx2)
	}()

	logger.Printf("listening on %s", listen)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Printf("ListenAndServe: %v", err)
		cancel()
	}
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ch
		cancel()
	}()
	return ctx, cancel
}

func flagSet(name string) bool {
	found := false
	flag.Visit(func(f *flag.Flag) {
		if f.Name == name {
			found = true
		}
	})
	return found
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return def
	}
}

func defaultEnableAdminHTTP() bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv("DEPLOY_ENV"))) {
	case "staging", "production":
		return false
	default:
		return true
	}
}

// multiJournal fans journal entries out to the file journal and the index.
type multiJournal struct {
	journal *persistlog.TickJournal
	index   runtimeIndex
}

func (m multiJournal) enabled() bool { return m.journal != nil || m.index != nil }

func (m multiJournal) WriteEntry(e world.JournalEntry) error {
	var err error
	if m.journal != nil {
		err = m.journal.WriteEntry(e)
	}
	if m.index != nil {
		_ = m.index.WriteEntry(e)
	}
	return err
}
