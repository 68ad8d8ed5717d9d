package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper drives the periodic liveness pass on its own timer. It holds
// no state of its own; each tick runs under the orchestrator's guard
// like any other event.
type Sweeper struct {
	orch     *Orchestrator
	interval time.Duration
}

func NewSweeper(orch *Orchestrator, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Sweeper{orch: orch, interval: interval}
}

// Run ticks until ctx is canceled. Nothing is flushed on stop; all
// state is memory-resident and discarded.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	log.Info().Str("module", "app.sweeper").Dur("interval", s.interval).Msg("liveness sweep started")
	for {
		select {
		case <-ctx.Done():
			log.Info().Str("module", "app.sweeper").Msg("liveness sweep stopped")
			return
		case <-ticker.C:
			s.orch.Sweep()
		}
	}
}
