package execlog

import (
	"adpilot/internal/api"

	"github.com/gofiber/fiber/v2"
)

type LogApi struct {
	controller *LogController
}

func NewLogApi(controller *LogController) api.Route {
	return &LogApi{controller: controller}
}

func (h *LogApi) Setup(app *fiber.App) {
	group := app.Group("/api/executions")

	group.Get("/:ruleId", h.controller.ListByRule)
	group.Get("/:ruleId/export", h.controller.ExportByRule)
}
