package calls

import (
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/xuri/excelize/v2"

	"callqa-backend/internal/shared/server/respond"
)

var exportHeader = []string{
	"id", "project_id", "filename", "agent_name", "customer_name", "status",
	"uploaded_at", "processed_at", "call_duration", "error_message",
}

func (h *Handler) exportCalls(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}
	// Exports are unbounded by default; the filter narrows them.
	filter.Limit = 0
	filter.Offset = 0

	rows, err := h.Repo.List(c.Request.Context(), filter)
	if err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to export calls", nil)
		return
	}

	stamp := time.Now().UTC().Format("20060102_150405")
	switch c.DefaultQuery("format", "csv") {
	case "xlsx":
		writeXLSX(c, rows, "calls_"+stamp+".xlsx")
	case "csv":
		writeCSV(c, rows, "calls_"+stamp+".csv")
	default:
		respond.Error(c, http.StatusBadRequest, "validation_error", "format must be csv or xlsx", nil)
	}
}

func writeCSV(c *gin.Context, rows []Call, filename string) {
	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "text/csv")
	c.Status(http.StatusOK)

	w := csv.NewWriter(c.Writer)
	_ = w.Write(exportHeader)
	for _, call := range rows {
		_ = w.Write(exportRow(call))
	}
	w.Flush()
}

func writeXLSX(c *gin.Context, rows []Call, filename string) {
	f := excelize.NewFile()
	defer f.Close()

	const sheet = "Calls"
	f.SetSheetName("Sheet1", sheet)

	header := make([]any, len(exportHeader))
	for i, col := range exportHeader {
		header[i] = col
	}
	_ = f.SetSheetRow(sheet, "A1", &header)

	for i, call := range rows {
		cells := exportRow(call)
		row := make([]any, len(cells))
		for j, cell := range cells {
			row[j] = cell
		}
		_ = f.SetSheetRow(sheet, fmt.Sprintf("A%d", i+2), &row)
	}

	c.Header("Content-Disposition", "attachment; filename="+filename)
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := f.Write(c.Writer); err != nil {
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to write export", nil)
	}
}

func exportRow(call Call) []string {
	projectID := ""
	if call.ProjectID != nil {
		projectID = strconv.FormatInt(*call.ProjectID, 10)
	}
	processedAt := ""
	if call.ProcessedAt != nil {
		processedAt = call.ProcessedAt.UTC().Format(time.RFC3339)
	}
	duration := ""
	if call.CallDuration != nil {
		duration = strconv.FormatFloat(*call.CallDuration, 'f', -1, 64)
	}
	return []string{
		strconv.FormatInt(call.ID, 10),
		projectID,
		call.Filename,
		deref(call.AgentName),
		deref(call.CustomerName),
		call.Status,
		call.UploadedAt.UTC().Format(time.RFC3339),
		processedAt,
		duration,
		deref(call.ErrorMessage),
	}
}
