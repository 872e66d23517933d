package rule

import (
	"context"

	"github.com/gofiber/fiber/v2"
)

// RunTrigger is the engine's "run now" entry point. Wired as an adapter
// in main to avoid a package cycle with the engine feature.
type RunTrigger interface {
	RunRuleNow(ctx context.Context, id string) error
}

type RuleController struct {
	Service RuleService
	Trigger RunTrigger
}

func NewRuleController(service RuleService, trigger RunTrigger) *RuleController {
	return &RuleController{Service: service, Trigger: trigger}
}

// RunNow executes a single rule immediately, outside the tick cadence.
func (ctrl *RuleController) RunNow(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := ctrl.Trigger.RunRuleNow(c.UserContext(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(fiber.Map{"status": "started"})
}

func (ctrl *RuleController) CreateRule(c *fiber.Ctx) error {
	var r AutomationRule
	if err := c.BodyParser(&r); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.CreateRule(c.UserContext(), &r); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.Status(fiber.StatusCreated).JSON(r)
}

func (ctrl *RuleController) GetRule(c *fiber.Ctx) error {
	id := c.Params("id")
	r, err := ctrl.Service.GetRule(c.UserContext(), id)
	if err != nil || r == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "Rule not found"})
	}
	return c.JSON(r)
}

func (ctrl *RuleController) ListRules(c *fiber.Ctx) error {
	rules, err := ctrl.Service.ListRules(c.UserContext())
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(rules)
}

func (ctrl *RuleController) UpdateRule(c *fiber.Ctx) error {
	var r AutomationRule
	if err := c.BodyParser(&r); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}

	if err := ctrl.Service.UpdateRule(c.UserContext(), &r); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	return c.JSON(r)
}

func (ctrl *RuleController) DeleteRule(c *fiber.Ctx) error {
	id := c.Params("id")
	if err := ctrl.Service.DeleteRule(c.UserContext(), id); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (ctrl *RuleController) EnableRule(c *fiber.Ctx) error {
	id := c.Params("id")
	var body struct {
		Active bool `json:"active"`
	}
	if err := c.BodyParser(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid request body"})
	}
	if err := ctrl.Service.EnableRule(c.UserContext(), id, body.Active); err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.SendStatus(fiber.StatusNoContent)
}
