package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/lunahan/aestimo/internal/models"
)

// formatTaskStarted confirms a background analysis launch as markdown
func formatTaskStarted(task *models.AnalysisTask) string {
	var sb strings.Builder
	sb.WriteString("## Analysis task started\n\n")
	sb.WriteString(fmt.Sprintf("**Task ID:** %s\n", task.ID))
	sb.WriteString(fmt.Sprintf("**Stock:** %s\n", task.StockCode))
	if task.EndDate != "" {
		sb.WriteString(fmt.Sprintf("**End date:** %s\n", task.EndDate))
	}
	sb.WriteString("\nPoll `get_task_status` with this task ID; the run takes a few minutes.\n")
	return sb.String()
}

// formatTaskStatus formats a task's current state as markdown
func formatTaskStatus(task *models.AnalysisTask) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Task %s\n\n", task.ID))
	sb.WriteString(fmt.Sprintf("**Stock:** %s\n", task.StockCode))
	sb.WriteString(fmt.Sprintf("**Status:** %s\n", task.Status))
	sb.WriteString(fmt.Sprintf("**Updated:** %s\n", task.UpdatedAt.Format(time.RFC3339)))

	switch task.Status {
	case models.TaskStatusCompleted:
		sb.WriteString("\n### Result\n\n")
		sb.WriteString(indentJSON(task.Result))
		sb.WriteString("\n")
	case models.TaskStatusFailed:
		sb.WriteString(fmt.Sprintf("\n**Failure:** %s\n", indentJSON(task.Result)))
	}
	return sb.String()
}

// formatArtifactList formats a run's artifact inventory as markdown
func formatArtifactList(stockCode, date string, names []string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("## Artifacts for %s / %s (%d)\n\n", stockCode, date, len(names)))
	if len(names) == 0 {
		sb.WriteString("No artifacts found. Run analyze_stock first.\n")
		return sb.String()
	}
	for _, name := range names {
		sb.WriteString(fmt.Sprintf("- %s\n", name))
	}
	return sb.String()
}

// formatReportEnvelope formats a persisted analyst report as markdown
func formatReportEnvelope(stockCode, date, name string, env *models.ReportEnvelope) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s — %s / %s\n\n", name, stockCode, date))
	sb.WriteString(fmt.Sprintf("**Report type:** %s\n", env.ReportType))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", env.Timestamp))
	sb.WriteString(fmt.Sprintf("**Analysis period:** %s\n\n", env.AnalysisPeriod))
	sb.WriteString(indentJSON(env.Data))
	sb.WriteString("\n")
	return sb.String()
}

// formatToolEnvelope formats a persisted raw data group as markdown
func formatToolEnvelope(stockCode, date, name string, env *models.ToolEnvelope) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("# %s — %s / %s\n\n", name, stockCode, date))
	sb.WriteString(fmt.Sprintf("**Tool:** %s\n", env.Tool))
	sb.WriteString(fmt.Sprintf("**Generated:** %s\n", env.Timestamp))
	sb.WriteString(fmt.Sprintf("**Analysis period:** %s\n\n", env.AnalysisPeriod))
	if len(env.Data) > 0 {
		sb.WriteString(indentJSON(env.Data))
		sb.WriteString("\n")
	} else {
		sb.WriteString(env.Text)
		sb.WriteString("\n")
	}
	return sb.String()
}

// indentJSON pretty-prints a raw payload, falling back to the raw bytes
// when the payload is not valid JSON.
func indentJSON(raw json.RawMessage) string {
	var out bytes.Buffer
	if err := json.Indent(&out, raw, "", "  "); err != nil {
		return string(raw)
	}
	return out.String()
}
