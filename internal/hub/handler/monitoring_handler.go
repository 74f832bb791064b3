package handler

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sandrello1971/intelligencehub/internal/hub/service"
	"github.com/xuri/excelize/v2"
)

// MonitoringHandler serves the SLA monitoring endpoints.
type MonitoringHandler struct {
	sla *service.SLAService
}

func NewMonitoringHandler(sla *service.SLAService) *MonitoringHandler {
	return &MonitoringHandler{sla: sla}
}

// Report handles GET /api/v1/monitoring/sla
func (h *MonitoringHandler) Report(c *gin.Context) {
	report, err := h.sla.Monitor(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to build sla report: "+err.Error())
		return
	}
	Success(c, report)
}

var slaExportHeaders = []string{"Class", "Task", "Status", "Assigned To", "Due Date", "SLA Deadline", "Escalation"}

var slaExportOrder = []service.SLAClass{
	service.SLARed, service.SLAOrange, service.SLAYellow, service.SLAGreen, service.SLANone,
}

// Export handles GET /api/v1/monitoring/sla/export and streams the
// report as an xlsx workbook, most urgent classes first.
func (h *MonitoringHandler) Export(c *gin.Context) {
	report, err := h.sla.Monitor(c.Request.Context())
	if err != nil {
		InternalError(c, "failed to build sla report: "+err.Error())
		return
	}

	f := excelize.NewFile()
	defer f.Close()
	sheet := "SLA"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})

	for i, hdr := range slaExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, hdr)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	colWidths := []float64{10, 36, 14, 16, 18, 18, 18}
	for i, w := range colWidths {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(sheet, col, col, w)
	}

	row := 2
	for _, class := range slaExportOrder {
		for _, task := range report.Top[class] {
			f.SetCellValue(sheet, fmt.Sprintf("A%d", row), string(class))
			f.SetCellValue(sheet, fmt.Sprintf("B%d", row), task.Title)
			f.SetCellValue(sheet, fmt.Sprintf("C%d", row), task.Status)
			f.SetCellValue(sheet, fmt.Sprintf("D%d", row), task.AssignedTo)
			f.SetCellValue(sheet, fmt.Sprintf("E%d", row), formatDeadline(task.DueDate))
			f.SetCellValue(sheet, fmt.Sprintf("F%d", row), formatDeadline(task.SLADeadline))
			f.SetCellValue(sheet, fmt.Sprintf("G%d", row), formatDeadline(task.EscalationDeadline))
			row++
		}
	}

	filename := fmt.Sprintf("SLA_Report_%s.xlsx", report.GeneratedAt.Format("20060102_1504"))
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}

func formatDeadline(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}
