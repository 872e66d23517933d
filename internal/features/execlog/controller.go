package execlog

import (
	"fmt"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/xuri/excelize/v2"
)

type LogController struct {
	Repo LogRepository
}

func NewLogController(repo LogRepository) *LogController {
	return &LogController{Repo: repo}
}

func (ctrl *LogController) ListByRule(c *fiber.Ctx) error {
	ruleID := c.Params("ruleId")
	limit, _ := strconv.Atoi(c.Query("limit", "50"))

	logs, err := ctrl.Repo.ListByRule(c.UserContext(), ruleID, limit)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.JSON(logs)
}

// ExportByRule streams the rule's execution history as an xlsx workbook.
func (ctrl *LogController) ExportByRule(c *fiber.Ctx) error {
	ruleID := c.Params("ruleId")

	logs, err := ctrl.Repo.ListByRule(c.UserContext(), ruleID, 1000)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := "Executions"
	f.SetSheetName("Sheet1", sheet)
	headers := []string{"Run At", "Run ID", "Status", "Summary"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, h)
	}
	for row, log := range logs {
		values := []interface{}{
			log.RunAt.Format("2006-01-02 15:04:05"),
			log.RunID,
			string(log.Status),
			log.Summary,
		}
		for col, v := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row+2)
			f.SetCellValue(sheet, cell, v)
		}
	}

	c.Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set("Content-Disposition", fmt.Sprintf(`attachment; filename="executions-%s.xlsx"`, ruleID))

	buf, err := f.WriteToBuffer()
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	return c.Send(buf.Bytes())
}
