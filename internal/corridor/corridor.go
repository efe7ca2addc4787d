package corridor

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/goldclear/clearing-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service maintains the corridor/hub status registry consumed by the
// requirement evaluator.
type Service struct {
	db *gorm.DB
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{db: gormDB}
}

// GetCorridor returns a corridor by id.
func (s *Service) GetCorridor(corridorID string) (*Corridor, error) {
	var c Corridor
	if err := s.db.Where("corridor_id = ?", corridorID).First(&c).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch corridor: %w", err)
	}
	return &c, nil
}

// GetHub returns a hub by id.
func (s *Service) GetHub(hubID string) (*Hub, error) {
	var h Hub
	if err := s.db.Where("hub_id = ?", hubID).First(&h).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch hub: %w", err)
	}
	return &h, nil
}

// SetCorridorStatus flips a corridor's status.
func (s *Service) SetCorridorStatus(corridorID, status string) error {
	if status != CorridorActive && status != CorridorSuspended {
		return fmt.Errorf("invalid corridor status: %s", status)
	}
	result := s.db.Model(&Corridor{}).
		Where("corridor_id = ?", corridorID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	log.Info().
		Str("service", "corridor").
		Str("corridor_id", corridorID).
		Str("status", status).
		Msg("corridor status updated")
	return nil
}

// SetHubStatus flips a hub's status.
func (s *Service) SetHubStatus(hubID, status string) error {
	switch status {
	case HubOnline, HubDegraded, HubOffline:
	default:
		return fmt.Errorf("invalid hub status: %s", status)
	}
	result := s.db.Model(&Hub{}).
		Where("hub_id = ?", hubID).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	log.Info().
		Str("service", "corridor").
		Str("hub_id", hubID).
		Str("status", status).
		Msg("hub status updated")
	return nil
}

// Seed inserts a corridor/hub if missing, for bootstrap.
func (s *Service) Seed(corridors []Corridor, hubs []Hub) error {
	for i := range corridors {
		var existing Corridor
		err := s.db.Where("corridor_id = ?", corridors[i].CorridorID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := s.db.Create(&corridors[i]).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	for i := range hubs {
		var existing Hub
		err := s.db.Where("hub_id = ?", hubs[i].HubID).First(&existing).Error
		if err == gorm.ErrRecordNotFound {
			if err := s.db.Create(&hubs[i]).Error; err != nil {
				return err
			}
			continue
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// GinHandlers contains HTTP handlers for corridor/hub registry endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

// SetCorridorStatusHandler handles POST requests to flip corridor status
// Requires internal authentication
func (h *GinHandlers) SetCorridorStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		corridorID := c.Param("corridor_id")
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if err := h.service.SetCorridorStatus(corridorID, req.Status); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"message": "corridor status updated"})
	}
}

// SetHubStatusHandler handles POST requests to flip hub status
// Requires internal authentication
func (h *GinHandlers) SetHubStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		hubID := c.Param("hub_id")
		var req statusRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		if err := h.service.SetHubStatus(hubID, req.Status); err != nil {
			response.Handle(c, nil, err)
			return
		}
		response.Success(c, gin.H{"message": "hub status updated"})
	}
}
