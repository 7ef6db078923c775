// handlers/reflect_routes.go
package handlers

import (
	"fmt"
	"log"

	"recovery-companion-system/middleware"
	"recovery-companion-system/models"
	"recovery-companion-system/services"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

func SetupReflectRoutes(app *fiber.App, llm *services.LLMClient, catalog *services.ModuleCatalog, db *gorm.DB) {
	// 🔓 Health probe for the text-completion backend
	app.Get("/llm/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"available": llm.IsAvailable(),
			"model":     llm.Model,
		})
	})

	securedGroup := app.Group("/s", middleware.UserContextMiddleware())

	securedGroup.Post("/user/reflect", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)

		type Req struct {
			ModuleID *int                   `json:"module_id,omitempty"`
			Messages []services.ChatMessage `json:"messages"`
		}
		var req Req
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid JSON",
				"cause": err.Error(),
			})
		}
		if len(req.Messages) == 0 {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "messages must not be empty",
			})
		}

		// Module context steers the reply toward the module's reflection theme
		var context string
		if req.ModuleID != nil {
			mod, ok := catalog.Module(*req.ModuleID)
			if !ok {
				return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "module not found",
				})
			}
			context = fmt.Sprintf("The user is reflecting within the %q module. %s", mod.Title, mod.Description)
		}

		reply := llm.GenerateReply(req.Messages, context)

		session := models.ReflectionSession{
			ExternalUserID: userID,
			ModuleID:       req.ModuleID,
			Prompt:         req.Messages[len(req.Messages)-1].Content,
			Reply:          reply.Content,
			Fallback:       reply.Fallback,
		}
		if err := db.Create(&session).Error; err != nil {
			// Reply still goes out; the transcript row is best-effort
			log.Printf("⚠️ Failed to persist reflection session for %s: %v", userID, err)
		}

		return c.JSON(reply)
	})

	securedGroup.Get("/user/reflections", func(c *fiber.Ctx) error {
		userID := c.Locals("user_id").(string)
		limit := c.QueryInt("limit", 20)
		if limit <= 0 || limit > 100 {
			limit = 20
		}

		var sessions []models.ReflectionSession
		if err := db.Where("external_user_id = ?", userID).
			Order("created_at DESC").
			Limit(limit).
			Find(&sessions).Error; err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to fetch reflections",
				"cause": err.Error(),
			})
		}
		return c.JSON(sessions)
	})
}
