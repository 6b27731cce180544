package log

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"gridarena.ai/internal/sim/world"
)

// segment is one open hourly file: file <- zstd <- bufio.
type segment struct {
	hour string
	f    *os.File
	enc  *zstd.Encoder
	buf  *bufio.Writer
	lines *json.Encoder
}

func openSegment(path, hour string) (*segment, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	buf := bufio.NewWriterSize(enc, 64*1024)
	return &segment{hour: hour, f: f, enc: enc, buf: buf, lines: json.NewEncoder(buf)}, nil
}

// flush pushes everything written so far into the file as a complete zstd
// block, so readers of a live segment see every entry up to here.
func (s *segment) flush() error {
	if err := s.buf.Flush(); err != nil {
		return err
	}
	return s.enc.Flush()
}

func (s *segment) close() error {
	err := s.buf.Flush()
	if cerr := s.enc.Close(); err == nil {
		err = cerr
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// SegmentWriter appends JSON lines to hourly zstd files named
// <prefix>-YYYY-MM-DD-HH.jsonl.zst. Every Write is flushed to the file before
// it returns; a crash loses at most the entry being written.
type SegmentWriter struct {
	baseDir string
	prefix  string
	now     func() time.Time

	mu  sync.Mutex
	cur *segment
}

func NewSegmentWriter(baseDir, prefix string) *SegmentWriter {
	return &SegmentWriter{baseDir: baseDir, prefix: prefix, now: time.Now}
}

func (w *SegmentWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	hour := w.now().UTC().Format("2006-01-02-15")
	if w.cur == nil || w.cur.hour != hour {
		if err := w.rotateLocked(hour); err != nil {
			return err
		}
	}
	// json.Encoder terminates each value with '\n'.
	if err := w.cur.lines.Encode(v); err != nil {
		return err
	}
	return w.cur.flush()
}

func (w *SegmentWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cur == nil {
		return nil
	}
	err := w.cur.close()
	w.cur = nil
	return err
}

func (w *SegmentWriter) rotateLocked(hour string) error {
	if w.cur != nil {
		err := w.cur.close()
		w.cur = nil
		if err != nil {
			return fmt.Errorf("close segment: %w", err)
		}
	}
	if err := os.MkdirAll(w.baseDir, 0o755); err != nil {
		return err
	}
	seg, err := openSegment(w.pathForHour(hour), hour)
	if err != nil {
		return err
	}
	w.cur = seg
	return nil
}

func (w *SegmentWriter) pathForHour(hour string) string {
	return filepath.Join(w.baseDir, fmt.Sprintf("%s-%s.jsonl.zst", w.prefix, hour))
}

// TickJournal writes one JSONL entry per reset, start and tick (compressed).
// It implements world.Journal.
type TickJournal struct{ w *SegmentWriter }

func NewTickJournal(worldDir string) *TickJournal {
	return &TickJournal{w: NewSegmentWriter(filepath.Join(worldDir, "events"), "events")}
}

func (j *TickJournal) WriteEntry(e world.JournalEntry) error { return j.w.Write(e) }
func (j *TickJournal) Close() error                          { return j.w.Close() }
