package world

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// stateDigest hashes everything a tick can change plus the static layout,
// in a canonical order. Replays compare it tick by tick.
func (s *state) stateDigest() string {
	h := sha256.New()
	var tmp [8]byte
	u64 := func(v uint64) {
		binary.LittleEndian.PutUint64(tmp[:], v)
		h.Write(tmp[:])
	}
	i64 := func(v int) { u64(uint64(int64(v))) }

	u64(s.generation)
	u64(s.tick)
	if s.running {
		h.Write([]byte{1})
	} else {
		h.Write([]byte{0})
	}
	i64(s.grid.Width)
	i64(s.grid.Height)

	i64(len(s.robots))
	for _, r := range s.robots {
		i64(r.ID)
		i64(r.Pos.X)
		i64(r.Pos.Y)
		i64(r.Score)
	}
	obstacles := s.sortedObstacles()
	i64(len(obstacles))
	for _, c := range obstacles {
		i64(c.X)
		i64(c.Y)
	}
	prizes := s.sortedPrizes()
	i64(len(prizes))
	for _, p := range prizes {
		i64(p.Pos.X)
		i64(p.Pos.Y)
		i64(p.Value)
	}
	return hex.EncodeToString(h.Sum(nil))
}
