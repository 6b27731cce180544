package world

// Journal entry kinds.
const (
	EntryReset = "RESET"
	EntryStart = "START"
	EntryTick  = "TICK"
)

// JournalEntry is one line of the tick journal. A RESET entry carries
// everything needed to rebuild its generation; TICK entries carry the intents
// consumed by the pass and the resulting digest.
type JournalEntry struct {
	Kind       string `json:"kind"`
	WorldID    string `json:"world_id,omitempty"`
	Generation uint64 `json:"generation"`
	Tick       uint64 `json:"tick"`

	Seed int64       `json:"seed,omitempty"`
	Grid *GridParams `json:"grid,omitempty"`

	Intents   []RecordedIntent `json:"intents,omitempty"`
	Moves     []Move           `json:"moves,omitempty"`
	Claims    []Claim          `json:"claims,omitempty"`
	Blocked   int              `json:"blocked,omitempty"`
	Contended int              `json:"contended,omitempty"`
	Discarded int              `json:"discarded,omitempty"`

	Digest string `json:"digest"`
}

// Journal receives entries in the order the world produced them.
type Journal interface {
	WriteEntry(JournalEntry) error
}

// emitLocked queues an entry for the journal pump. Called with the gate held so
// entries keep the world's order; it never blocks.
func (w *World) emitLocked(e JournalEntry) {
	if !w.journalOn.Load() {
		return
	}
	select {
	case w.journalCh <- e:
	default:
		w.journalLost.Add(1)
	}
}

// flushJournal writes every queued entry.
func (w *World) flushJournal() {
	for {
		select {
		case e := <-w.journalCh:
			w.writeJournal(e)
		default:
			return
		}
	}
}

func (w *World) writeJournal(e JournalEntry) {
	j := w.journal
	if j == nil {
		return
	}
	if err := j.WriteEntry(e); err != nil && w.log != nil {
		w.log.Printf("journal: %s tick=%d: %v", e.Kind, e.Tick, err)
	}
}

func tickEntry(worldID string, res TickResult, digest string) JournalEntry {
	return JournalEntry{
		Kind:       EntryTick,
		WorldID:    worldID,
		Generation: res.Generation,
		Tick:       res.Tick,
		Intents:    res.Intents,
		Moves:      res.Moves,
		Claims:     res.Claims,
		Blocked:    res.Blocked,
		Contended:  res.Contended,
		Discarded:  res.Discarded,
		Digest:     digest,
	}
}
