package rule

import (
	"adpilot/internal/api"

	"github.com/gofiber/fiber/v2"
)

type RuleApi struct {
	controller *RuleController
}

func NewRuleApi(controller *RuleController) api.Route {
	return &RuleApi{controller: controller}
}

func (h *RuleApi) Setup(app *fiber.App) {
	group := app.Group("/api/rules")

	group.Get("/", h.controller.ListRules)
	group.Get("/:id", h.controller.GetRule)
	group.Post("/", h.controller.CreateRule)
	group.Put("/:id", h.controller.UpdateRule)
	group.Delete("/:id", h.controller.DeleteRule)
	group.Patch("/:id/enable", h.controller.EnableRule)
	group.Post("/:id/run", h.controller.RunNow)
}
