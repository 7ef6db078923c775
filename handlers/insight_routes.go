// handlers/insight_routes.go
package handlers

import (
	"encoding/json"
	"fmt"
	"time"

	"recovery-companion-system/middleware"
	"recovery-companion-system/models"
	"recovery-companion-system/services"
	"recovery-companion-system/utils"

	"github.com/gofiber/fiber/v2"
)

func SetupInsightRoutes(app *fiber.App, decision *services.DecisionService, riskHistory *services.RiskHistoryService) {
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Post("/user/observations", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			Type       models.PatternType `json:"type"`
			Severity   *int               `json:"severity,omitempty"`
			Payload    map[string]string  `json:"payload,omitempty"`
			ObservedAt *time.Time         `json:"observed_at,omitempty"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}

		obs := models.PatternObservation{
			Type:     req.Type,
			Severity: req.Severity,
			Payload:  req.Payload,
		}
		if req.ObservedAt != nil {
			obs.ObservedAt = *req.ObservedAt
		}

		ev, err := decision.RecordEvent(userID, services.EventInput{
			Kind:        models.EventKindObservationLogged,
			Observation: &obs,
		})
		if err != nil {
			return progressionError(c, err)
		}
		return c.JSON(ev)
	})

	securedGroup.Get("/user/insights", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		return c.JSON(decision.GetInsights(userID))
	})

	securedGroup.Delete("/user/predictions", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		decision.Insights.ClearPredictions(userID)
		return c.JSON(fiber.Map{"message": "predictions cleared"})
	})

	securedGroup.Get("/user/risk/history", riskHistory.GetRiskHistory)
	securedGroup.Get("/user/risk/stream", riskHistory.StreamRiskSSE)

	// Full data export: events + current insights + overview, uploaded to R2
	securedGroup.Get("/user/export", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		export := fiber.Map{
			"exported_at": time.Now().UTC(),
			"events":      decision.EventsFor(userID),
			"insights":    decision.GetInsights(userID),
			"overview":    decision.Progression.GetUserOverview(userID),
		}
		data, err := json.MarshalIndent(export, "", "  ")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to build export",
				"cause": err.Error(),
			})
		}

		key := fmt.Sprintf("exports/%s/%d.json", userID, time.Now().Unix())
		url, err := utils.UploadBytesToR2(data, key, "application/json")
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to upload export",
				"cause": err.Error(),
			})
		}
		return c.JSON(fiber.Map{"url": url})
	})
}
