// handlers/progression_routes.go
package handlers

import (
	"errors"
	"strconv"

	"recovery-companion-system/middleware"
	"recovery-companion-system/models"
	"recovery-companion-system/services"

	"github.com/gofiber/fiber/v2"
)

func SetupProgressionRoutes(app *fiber.App, decision *services.DecisionService, catalog *services.ModuleCatalog) {
	// 🔓 Public routes — no user context, but still behind Gateway auth
	app.Get("/modules", func(c *fiber.Ctx) error {
		return c.JSON(catalog.ActiveSorted())
	})

	app.Get("/modules/:id", func(c *fiber.Ctx) error {
		moduleID, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "module id must be an integer",
			})
		}
		mod, ok := catalog.Module(moduleID)
		if !ok {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
				"error": "module not found",
			})
		}
		return c.JSON(mod)
	})

	// 🔐 Secured routes — require user context (userID) forwarded by the Gateway
	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	// Derived status for every catalog module — recomputed per request, never cached
	securedGroup.Get("/user/modules", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type moduleWithStatus struct {
			models.Module
			Status *models.ModuleStatus `json:"status"`
		}
		var out []moduleWithStatus
		for _, mod := range catalog.All() {
			status, err := decision.GetModuleStatus(userID, mod.ID)
			if err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to compute module status",
					"cause": err.Error(),
				})
			}
			out = append(out, moduleWithStatus{Module: mod, Status: status})
		}
		return c.JSON(out)
	})

	securedGroup.Get("/user/modules/:id/status", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		moduleID, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "module id must be an integer",
			})
		}

		status, err := decision.GetModuleStatus(userID, moduleID)
		if err != nil {
			return progressionError(c, err)
		}
		return c.JSON(status)
	})

	securedGroup.Post("/user/modules/:id/start", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		moduleID, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "module id must be an integer",
			})
		}

		rec, err := decision.StartModule(userID, moduleID)
		if err != nil {
			return progressionError(c, err)
		}
		return c.JSON(rec)
	})

	securedGroup.Post("/user/modules/:id/activities/:activity_id/complete", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		moduleID, err := strconv.Atoi(c.Params("id"))
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "module id must be an integer",
			})
		}
		activityID := c.Params("activity_id")

		type Req struct {
			Score int64 `json:"score"`
		}
		var req Req
		if len(c.Body()) > 0 {
			if err := c.BodyParser(&req); err != nil {
				return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": "invalid JSON",
					"cause": err.Error(),
				})
			}
		}

		// Default to the activity's configured point value
		if req.Score == 0 {
			if mod, ok := catalog.Module(moduleID); ok {
				if act, ok := mod.Activity(activityID); ok {
					req.Score = act.Points
				}
			}
		}

		if _, err := decision.RecordEvent(userID, services.EventInput{
			Kind:       models.EventKindActivityCompleted,
			ModuleID:   moduleID,
			ActivityID: activityID,
			Score:      req.Score,
		}); err != nil {
			return progressionError(c, err)
		}

		status, err := decision.GetModuleStatus(userID, moduleID)
		if err != nil {
			return progressionError(c, err)
		}
		return c.JSON(status)
	})

	securedGroup.Get("/user/next-module", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		next := decision.Progression.GetNextModule(userID)
		if next == nil {
			return c.JSON(fiber.Map{"next_module": nil})
		}
		return c.JSON(fiber.Map{"next_module": next})
	})

	securedGroup.Get("/user/available-modules", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		return c.JSON(decision.Progression.GetAvailableModules(userID))
	})

	securedGroup.Get("/user/overview", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		return c.JSON(decision.Progression.GetUserOverview(userID))
	})

	securedGroup.Get("/user/events", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		return c.JSON(decision.EventsFor(userID))
	})
}

// progressionError maps typed engine errors onto HTTP status codes. The error
// kind alone is enough — callers never inspect free text.
func progressionError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, services.ErrUnknownModule):
		status = fiber.StatusNotFound
	case errors.Is(err, services.ErrAlreadyCompleted):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrModuleNotStarted):
		status = fiber.StatusConflict
	case errors.Is(err, services.ErrUnknownActivity):
		status = fiber.StatusBadRequest
	case errors.Is(err, services.ErrInvalidObservation):
		status = fiber.StatusBadRequest
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
	})
}
