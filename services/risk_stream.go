package services

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"recovery-companion-system/models"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// RiskHistoryService serves persisted risk snapshots: paginated history plus a
// live SSE stream of snapshots written by the risk sweep worker.
type RiskHistoryService struct {
	DB *gorm.DB
}

func NewRiskHistoryService(db *gorm.DB) *RiskHistoryService {
	return &RiskHistoryService{DB: db}
}

// GetRiskHistory returns the user's most recent snapshots, newest first.
func (s *RiskHistoryService) GetRiskHistory(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)
	limit := c.QueryInt("limit", 30)
	if limit <= 0 || limit > 100 {
		limit = 30
	}

	var snapshots []models.RiskSnapshot
	if err := s.DB.Where("external_user_id = ?", userID).
		Order("computed_at DESC").
		Limit(limit).
		Find(&snapshots).Error; err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "failed to fetch risk history",
			"cause": err.Error(),
		})
	}
	return c.JSON(snapshots)
}

// StreamRiskSSE streams newly persisted risk snapshots for the authenticated user
func (s *RiskHistoryService) StreamRiskSSE(c *fiber.Ctx) error {
	userID := c.Locals("user_id").(string)

	// SSE headers
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no") // nginx

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ticker := time.NewTicker(2 * time.Second)
		defer ticker.Stop()

		var lastComputedAt time.Time

		// Initialize cursor at the latest existing snapshot
		var latest models.RiskSnapshot
		if err := s.DB.
			Where("external_user_id = ?", userID).
			Order("computed_at DESC").
			First(&latest).Error; err == nil {
			lastComputedAt = latest.ComputedAt
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("SSE init error for user %s: %v", userID, err)
		}

		// Initial keepalive (comment event)
		w.WriteString(":\n\n")
		w.Flush()

		for {
			select {
			case <-ticker.C:
				var fresh []models.RiskSnapshot
				err := s.DB.
					Where("external_user_id = ? AND computed_at > ?", userID, lastComputedAt).
					Order("computed_at ASC").
					Find(&fresh).Error
				if err != nil {
					log.Printf("SSE query error for user %s: %v", userID, err)
					continue
				}
				if len(fresh) == 0 {
					continue
				}

				lastComputedAt = fresh[len(fresh)-1].ComputedAt

				for _, snap := range fresh {
					payload, _ := json.Marshal(snap)
					fmt.Fprintf(w, "event: risk\ndata: %s\n\n", payload)
				}

				if err := w.Flush(); err != nil {
					// Client disconnected
					return
				}

			case <-c.Context().Done():
				return
			}
		}
	})

	return nil
}
