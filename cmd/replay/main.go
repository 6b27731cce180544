package main

import (
	"flag"
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/dustin/go-humanize"

	persistlog "gridarena.ai/internal/persistence/log"
	"gridarena.ai/internal/sim/world"
)

func main() {
	var (
		eventsDir = flag.String("events", "./data/worlds/arena_1/events", "events dir containing events-*.jsonl.zst")
		top       = flag.Int("top", 5, "robots listed per generation")
		verbose   = flag.Bool("v", false, "print every claim")
	)
	flag.Parse()

	sum, err := replayJournal(*eventsDir, os.Stdout, replayOptions{Top: *top, Verbose: *verbose})
	if err != nil {
		fmt.Fprintln(os.Stderr, "replay:", err)
		os.Exit(1)
	}
	fmt.Printf("OK: %s generations, %s ticks verified, %s claims\n",
		humanize.Comma(int64(sum.Generations)), humanize.Comma(int64(sum.Ticks)), humanize.Comma(int64(sum.Claims)))
	if len(sum.Failures) > 0 {
		for _, f := range sum.Failures {
			fmt.Fprintln(os.Stderr, "FAIL:", f)
		}
		os.Exit(1)
	}
}

type replayOptions struct {
	Top     int
	Verbose bool
}

type replaySummary struct {
	Generations int
	Ticks       uint64
	Claims      uint64
	// Failures lists generations that did not verify. Replay resumes at the
	// next RESET entry.
	Failures []string
}

func replayJournal(dir string, out io.Writer, opts replayOptions) (replaySummary, error) {
	var (
		sum    replaySummary
		rp     *world.Replayer
		broken bool
	)
	finish := func() {
		if rp == nil || broken {
			return
		}
		snap, ok := rp.Snapshot()
		if !ok {
			return
		}
		printGeneration(out, snap, opts.Top)
	}

	err := persistlog.ReadJournal(dir, func(e world.JournalEntry) error {
		if e.Kind == world.EntryReset {
			finish()
			rp = world.NewReplayer()
			broken = false
			sum.Generations++
			fmt.Fprintf(out, "== %s gen=%d seed=%d grid=%dx%d\n", e.WorldID, e.Generation, e.Seed, gridW(e), gridH(e))
		}
		if broken {
			return nil
		}
		if rp == nil {
			sum.Failures = append(sum.Failures, fmt.Sprintf("%s gen=%d tick=%d before any RESET", e.Kind, e.Generation, e.Tick))
			return nil
		}
		before := rp.Checked()
		if err := rp.Apply(e); err != nil {
			broken = true
			sum.Failures = append(sum.Failures, err.Error())
			return nil
		}
		sum.Ticks += rp.Checked() - before
		sum.Claims += uint64(len(e.Claims))
		if opts.Verbose {
			for _, c := range e.Claims {
				fmt.Fprintf(out, "  tick=%d robot=%d claimed %d at (%d,%d)\n", e.Tick, c.RobotID, c.Value, c.Pos.X, c.Pos.Y)
			}
		}
		return nil
	})
	if err != nil {
		return sum, err
	}
	finish()
	return sum, nil
}

func printGeneration(out io.Writer, snap world.Snapshot, top int) {
	robots := append([]world.Robot(nil), snap.Robots...)
	sort.SliceStable(robots, func(i, j int) bool { return robots[i].Score > robots[j].Score })
	if top > 0 && len(robots) > top {
		robots = robots[:top]
	}
	fmt.Fprintf(out, "   ticks=%s prizes_left=%d\n", humanize.Comma(int64(snap.Tick)), len(snap.Prizes))
	for i, r := range robots {
		fmt.Fprintf(out, "   %s robot=%d score=%d\n", humanize.Ordinal(i+1), r.ID, r.Score)
	}
}

func gridW(e world.JournalEntry) int {
	if e.Grid == nil {
		return 0
	}
	return e.Grid.Width
}

func gridH(e world.JournalEntry) int {
	if e.Grid == nil {
		return 0
	}
	return e.Grid.Height
}
