package breach

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/goldclear/clearing-api/internal/capital"
	"github.com/goldclear/clearing-api/pkg/response"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service classifies capital snapshots into breach events. Sweeps are
// idempotent: re-running over unchanged exposure emits nothing, because
// events are only created on a per-family level transition.
type Service struct {
	db      *Database
	capital *capital.Service

	// One sweep at a time; concurrent invocations would race the
	// per-family state comparison.
	mu sync.Mutex
}

func NewService(gormDB *gorm.DB, capitalService *capital.Service) *Service {
	return &Service{
		db:      NewDatabase(gormDB),
		capital: capitalService,
	}
}

// SweepResult reports what a sweep run produced.
type SweepResult struct {
	NewEvents []Event           `json:"new_events"`
	Snapshot  *capital.Snapshot `json:"snapshot"`
}

// RunSweep recomputes the snapshot and compares each metric family
// against its last known level, appending an event per transition into
// a caution or breach condition.
func (s *Service) RunSweep() (*SweepResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	logger := log.With().Str("service", "breach_sweep").Logger()

	snap, err := s.capital.Snapshot()
	if err != nil {
		logger.Error().Err(err).Msg("failed to compute snapshot for sweep")
		return nil, fmt.Errorf("failed to compute snapshot for sweep: %w", err)
	}

	snapshotJSON, err := json.Marshal(snap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	result := &SweepResult{Snapshot: snap}
	params := s.capital.Params()
	families := []Family{FamilyECR, FamilyHardstop, FamilyBuffer}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		for _, family := range families {
			level := familyLevel(family, snap, params)

			state, err := s.db.GetState(tx, family)
			if err != nil {
				return err
			}
			lastLevel := capital.LevelClear
			if state != nil {
				lastLevel = capital.Level(state.LastLevel)
			}

			if level == lastLevel {
				continue
			}

			if err := s.db.SaveState(tx, family, string(level)); err != nil {
				return err
			}

			eventType, severity, emit := eventFor(family, level)
			if !emit {
				logger.Info().
					Str("family", string(family)).
					Str("from", string(lastLevel)).
					Str("to", string(level)).
					Msg("family recovered, no event emitted")
				continue
			}

			event := Event{
				EventID:      "BRE_" + uuid.New().String(),
				Type:         eventType,
				Family:       family,
				Level:        string(level),
				Severity:     severity,
				OccurredAt:   snap.AsOf,
				SnapshotJSON: string(snapshotJSON),
				Message:      eventMessage(family, lastLevel, level, snap),
			}
			if err := s.db.CreateEvent(tx, &event); err != nil {
				return fmt.Errorf("failed to persist breach event: %w", err)
			}
			result.NewEvents = append(result.NewEvents, event)

			logger.Warn().
				Str("event_id", event.EventID).
				Str("type", string(event.Type)).
				Str("severity", string(event.Severity)).
				Str("from", string(lastLevel)).
				Str("to", string(level)).
				Msg("breach event emitted")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logger.Info().
		Int("new_events", len(result.NewEvents)).
		Str("level", string(snap.Level)).
		Msg("sweep completed")

	return result, nil
}

// ListEvents returns the persisted breach history, newest first.
func (s *Service) ListEvents(limit int) ([]Event, error) {
	return s.db.ListEvents(limit)
}

func eventMessage(family Family, from, to capital.Level, snap *capital.Snapshot) string {
	var metric string
	switch family {
	case FamilyECR:
		metric = fmt.Sprintf("ECR at %d bps", snap.ECRBps)
	case FamilyHardstop:
		metric = fmt.Sprintf("hardstop utilization at %d bps", snap.HardstopUtilBps)
	case FamilyBuffer:
		metric = fmt.Sprintf("buffer vs TVaR99 at %d minor units", snap.BufferVsTVaR99Minor)
	}
	return fmt.Sprintf("%s level transition %s -> %s: %s", family, from, to, metric)
}

// GinHandlers contains HTTP handlers for breach endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// RunSweepHandler handles POST requests to trigger a manual sweep
// Requires internal authentication
func (h *GinHandlers) RunSweepHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := h.service.RunSweep()
		response.Handle(c, result, err)
	}
}

// ListEventsHandler handles GET requests for breach event history
func (h *GinHandlers) ListEventsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		events, err := h.service.ListEvents(100)
		response.Handle(c, events, err)
	}
}
