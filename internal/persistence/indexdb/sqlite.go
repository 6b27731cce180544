package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"gridarena.ai/internal/sim/world"
)

// SQLiteIndex is a queryable read model of the tick journal. Writes are
// queued and applied by one goroutine in batched transactions; when the queue
// is full entries are dropped (the JSONL journal stays the source of truth).
type SQLiteIndex struct {
	db  *sql.DB
	run string

	ch   chan world.JournalEntry
	wg   sync.WaitGroup
	once sync.Once

	// mu orders sends on ch against close(ch).
	mu     sync.RWMutex
	closed bool

	written atomic.Uint64
	dropped atomic.Uint64
	failed  atomic.Uint64

	commitEvery   int
	commitMaxWait time.Duration
}

type Stats struct {
	RunID         string `json:"run_id"`
	Written       uint64 `json:"written"`
	Dropped       uint64 `json:"dropped"`
	Failed        uint64 `json:"failed"`
	QueueDepth    int    `json:"queue_depth"`
	QueueCapacity int    `json:"queue_capacity"`
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db:            db,
		run:           uuid.NewString(),
		ch:            make(chan world.JournalEntry, 65536),
		commitEvery:   2000,
		commitMaxWait: 2 * time.Second,
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// OpenReadOnly opens an existing index for queries.
func OpenReadOnly(path string) (*sql.DB, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	return openDB(path)
}

func openDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS resets (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			world_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			width INTEGER NOT NULL,
			height INTEGER NOT NULL,
			robots INTEGER NOT NULL,
			obstacles INTEGER NOT NULL,
			prizes INTEGER NOT NULL,
			digest TEXT NOT NULL,
			started_tick INTEGER,
			recorded_at TEXT NOT NULL,
			PRIMARY KEY (run_id, generation)
		);`,
		`CREATE TABLE IF NOT EXISTS ticks (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			digest TEXT NOT NULL,
			intents INTEGER NOT NULL,
			moves INTEGER NOT NULL,
			claims INTEGER NOT NULL,
			blocked INTEGER NOT NULL,
			contended INTEGER NOT NULL,
			discarded INTEGER NOT NULL,
			raw_json TEXT NOT NULL,
			PRIMARY KEY (run_id, generation, tick)
		);`,
		`CREATE TABLE IF NOT EXISTS claims (
			run_id TEXT NOT NULL,
			generation INTEGER NOT NULL,
			tick INTEGER NOT NULL,
			robot_id INTEGER NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			value INTEGER NOT NULL,
			PRIMARY KEY (run_id, generation, tick, robot_id)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_claims_robot ON claims(run_id, generation, robot_id);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) RunID() string { return s.run }

// DB exposes the handle for queries in the same process.
func (s *SQLiteIndex) DB() *sql.DB { return s.db }

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.mu.Lock()
		s.closed = true
		close(s.ch)
		s.mu.Unlock()
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

// WriteEntry implements world.Journal. It never blocks.
func (s *SQLiteIndex) WriteEntry(e world.JournalEntry) error {
	if s == nil {
		return nil
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- e:
	default:
		s.dropped.Add(1)
	}
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		RunID:         s.run,
		Written:       s.written.Load(),
		Dropped:       s.dropped.Load(),
		Failed:        s.failed.Load(),
		QueueDepth:    len(s.ch),
		QueueCapacity: cap(s.ch),
	}
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	var (
		tx         *sql.Tx
		opCount    int
		lastCommit = time.Now()
	)
	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		if err := tx.Commit(); err != nil {
			s.failed.Add(uint64(opCount))
		}
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}

	for e := range s.ch {
		begin()
		if tx == nil {
			s.failed.Add(1)
			continue
		}
		if err := s.apply(tx, e); err != nil {
			// Keep what the batch already holds; only this entry is lost.
			s.failed.Add(1)
		} else {
			s.written.Add(1)
			opCount++
		}
		if opCount >= s.commitEvery || time.Since(lastCommit) >= s.commitMaxWait || len(s.ch) == 0 {
			commit()
		}
	}
	commit()
}

func (s *SQLiteIndex) apply(tx *sql.Tx, e world.JournalEntry) error {
	if _, err := tx.Exec(`SAVEPOINT entry`); err != nil {
		return err
	}
	if err := s.applyEntry(tx, e); err != nil {
		_, _ = tx.Exec(`ROLLBACK TO entry`)
		_, _ = tx.Exec(`RELEASE entry`)
		return err
	}
	_, err := tx.Exec(`RELEASE entry`)
	return err
}

func (s *SQLiteIndex) applyEntry(tx *sql.Tx, e world.JournalEntry) error {
	switch e.Kind {
	case world.EntryReset:
		if e.Grid == nil {
			return fmt.Errorf("reset gen=%d without grid", e.Generation)
		}
		g := e.Grid
		_, err := tx.Exec(`INSERT OR REPLACE INTO resets(run_id,generation,world_id,seed,width,height,robots,obstacles,prizes,digest,recorded_at) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			s.run, int64(e.Generation), e.WorldID, e.Seed, g.Width, g.Height, g.Robots, g.Obstacles, g.Prizes, e.Digest,
			time.Now().UTC().Format(time.RFC3339Nano))
		return err

	case world.EntryStart:
		_, err := tx.Exec(`UPDATE resets SET started_tick=? WHERE run_id=? AND generation=? AND started_tick IS NULL`,
			int64(e.Tick), s.run, int64(e.Generation))
		return err

	case world.EntryTick:
		raw, err := json.Marshal(e)
		if err != nil {
			return err
		}
		if _, err := tx.Exec(`INSERT OR REPLACE INTO ticks(run_id,generation,tick,digest,intents,moves,claims,blocked,contended,discarded,raw_json) VALUES(?,?,?,?,?,?,?,?,?,?,?)`,
			s.run, int64(e.Generation), int64(e.Tick), e.Digest,
			len(e.Intents), len(e.Moves), len(e.Claims), e.Blocked, e.Contended, e.Discarded, string(raw)); err != nil {
			return err
		}
		for _, c := range e.Claims {
			if _, err := tx.Exec(`INSERT OR REPLACE INTO claims(run_id,generation,tick,robot_id,x,y,value) VALUES(?,?,?,?,?,?,?)`,
				s.run, int64(e.Generation), int64(e.Tick), c.RobotID, c.Pos.X, c.Pos.Y, c.Value); err != nil {
				return err
			}
		}
		return nil
	}
	return fmt.Errorf("unknown entry kind %q", e.Kind)
}
