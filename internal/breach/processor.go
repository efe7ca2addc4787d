package breach

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Processor runs the sweep on a timer. It only reads aggregate
// exposure, so it is safe alongside in-flight settlement actions and
// manual sweep invocations.
type Processor struct {
	service    *Service
	sweepDelay time.Duration
}

func NewProcessor(service *Service, sweepDelay time.Duration) *Processor {
	if sweepDelay <= 0 {
		sweepDelay = time.Minute
	}
	return &Processor{
		service:    service,
		sweepDelay: sweepDelay,
	}
}

// Start begins the sweep loop until the context is cancelled.
func (p *Processor) Start(ctx context.Context) {
	logger := log.With().Str("component", "breach_processor").Logger()
	logger.Info().Dur("interval", p.sweepDelay).Msg("starting breach sweep processor")

	ticker := time.NewTicker(p.sweepDelay)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down breach sweep processor")
			return
		case <-ticker.C:
			result, err := p.service.RunSweep()
			if err != nil {
				logger.Error().Err(err).Msg("scheduled sweep failed")
				continue
			}
			if len(result.NewEvents) > 0 {
				logger.Warn().
					Int("new_events", len(result.NewEvents)).
					Msg("scheduled sweep emitted breach events")
			}
		}
	}
}
