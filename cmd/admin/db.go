package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"gridarena.ai/internal/persistence/indexdb"
)

// dbCmd queries the sqlite read model: leaderboard (default), claims or resets.
func dbCmd(args []string, out io.Writer) int {
	fs := flag.NewFlagSet("db", flag.ContinueOnError)
	dataDir := fs.String("data", "./data", "runtime data directory")
	worldID := fs.String("world", "arena_1", "world id (ignored with -db)")
	dbPath := fs.String("db", "", "sqlite db path (optional)")
	runID := fs.String("run", "", "run id (leaderboard; defaults to the latest run)")
	gen := fs.Uint64("gen", 0, "generation (leaderboard; defaults to the latest)")
	limit := fs.Int("limit", 20, "result limit")
	asJSON := fs.Bool("json", false, "print one JSON object per row")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	q := "leaderboard"
	if fs.NArg() > 0 {
		q = strings.TrimSpace(fs.Arg(0))
	}

	path := strings.TrimSpace(*dbPath)
	if path == "" {
		path = filepath.Join(*dataDir, "worlds", *worldID, "index", "world.sqlite")
	}
	db, err := indexdb.OpenReadOnly(path)
	if err != nil {
		fmt.Fprintln(os.Stderr, "open:", err)
		return 1
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if *limit <= 0 {
		*limit = 20
	}

	emit := func(v any, text string) {
		if *asJSON {
			b, _ := json.Marshal(v)
			fmt.Fprintln(out, string(b))
			return
		}
		fmt.Fprintln(out, text)
	}

	switch q {
	case "leaderboard":
		run, g := *runID, *gen
		if run == "" || g == 0 {
			lr, lg, err := indexdb.LatestGeneration(ctx, db)
			if errors.Is(err, indexdb.ErrNoGenerations) {
				fmt.Fprintln(os.Stderr, "no generations recorded")
				return 2
			}
			if err != nil {
				fmt.Fprintln(os.Stderr, "latest generation:", err)
				return 1
			}
			if run == "" {
				run = lr
			}
			if g == 0 {
				g = lg
			}
		}
		rows, err := indexdb.Leaderboard(ctx, db, run, g)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			return 1
		}
		if !*asJSON {
			fmt.Fprintf(out, "run=%s gen=%d\n", run, g)
		}
		for i, r := range rows {
			if i >= *limit {
				break
			}
			emit(r, fmt.Sprintf("%-5s robot=%-4d score=%-6s claims=%s",
				humanize.Ordinal(i+1), r.RobotID, humanize.Comma(int64(r.Score)), humanize.Comma(int64(r.Claims))))
		}

	case "claims":
		rows, err := indexdb.RecentClaims(ctx, db, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			return 1
		}
		for _, r := range rows {
			emit(r, fmt.Sprintf("gen=%d tick=%-8s robot=%-4d (%d,%d) value=%d",
				r.Generation, humanize.Comma(int64(r.Tick)), r.RobotID, r.X, r.Y, r.Value))
		}

	case "resets":
		rows, err := indexdb.Resets(ctx, db, *limit)
		if err != nil {
			fmt.Fprintln(os.Stderr, "query:", err)
			return 1
		}
		for _, r := range rows {
			started := "never started"
			if r.StartedTick != nil {
				started = fmt.Sprintf("started at tick %d", *r.StartedTick)
			}
			emit(r, fmt.Sprintf("run=%s gen=%d seed=%d %dx%d robots=%d obstacles=%d prizes=%d ticks=%s %s, %s",
				r.RunID, r.Generation, r.Seed, r.Width, r.Height, r.Robots, r.Obstacles, r.Prizes,
				humanize.Comma(r.Ticks), started, recordedAgo(r.RecordedAt)))
		}

	default:
		fmt.Fprintln(os.Stderr, "unknown query:", q, "(leaderboard|claims|resets)")
		return 2
	}
	return 0
}

func recordedAgo(ts string) string {
	t, err := time.Parse(time.RFC3339Nano, ts)
	if err != nil {
		return ts
	}
	return humanize.Time(t)
}
