package capital

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goldclear/clearing-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service recomputes capital snapshots on demand. Snapshots are never
// persisted as mutable state; they are frozen onto settlements at open
// and embedded into breach events when captured.
type Service struct {
	db     *Database
	params Params
}

func NewService(gormDB *gorm.DB, params Params) *Service {
	return &Service{
		db:     NewDatabase(gormDB),
		params: params,
	}
}

// Snapshot computes the current capital adequacy picture.
func (s *Service) Snapshot() (*Snapshot, error) {
	book, err := s.db.CurrentBook()
	if err != nil {
		log.Error().Err(err).Str("service", "capital").Msg("failed to assemble book")
		return nil, err
	}

	snap := Compute(book, s.params, time.Now().UTC())

	log.Debug().
		Str("service", "capital").
		Int64("exposure_minor", snap.ActiveExposureMinor).
		Int64("ecr_bps", snap.ECRBps).
		Int64("hardstop_util_bps", snap.HardstopUtilBps).
		Str("level", string(snap.Level)).
		Msg("computed capital snapshot")

	return &snap, nil
}

// Params returns the configured risk thresholds.
func (s *Service) Params() Params {
	return s.params
}

// GetDB exposes the database layer for wiring.
func (s *Service) GetDB() *Database {
	return s.db
}

// GinHandlers contains HTTP handlers for capital endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GetSnapshotHandler handles GET requests for the current snapshot
func (h *GinHandlers) GetSnapshotHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		snapshot, err := h.service.Snapshot()
		response.Handle(c, snapshot, err)
	}
}
