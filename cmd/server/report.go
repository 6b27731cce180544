package main

import (
	"log"

	"gridarena.ai/internal/sim/world"
)

// generationReporter logs once per generation when its last prize is taken,
// naming the leading robot. It is driven by World.SubscribeFunc.
type generationReporter struct {
	log      *log.Logger
	reported uint64
}

func (g *generationReporter) observe(s world.Snapshot) {
	if !s.Running || len(s.Prizes) != 0 || s.Generation == g.reported || len(s.Robots) == 0 {
		return
	}
	g.reported = s.Generation
	lead := s.Robots[0]
	total := 0
	for _, r := range s.Robots {
		total += r.Score
		if r.Score > lead.Score {
			lead = r
		}
	}
	g.log.Printf("generation %d cleared at tick %d: leader robot=%d score=%d total=%d",
		s.Generation, s.Tick, lead.ID, lead.Score, total)
}
