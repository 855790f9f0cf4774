package main

import (
	"context"
	"encoding/json"
	"fmt"
	"regexp"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/services/pipeline"
)

var stockCodePattern = regexp.MustCompile(`^\d{6}\.(SZ|SH|BJ)$`)

func errorResult(format string, args ...interface{}) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(fmt.Sprintf(format, args...)),
		},
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{
			mcp.NewTextContent(text),
		},
	}
}

// handleAnalyzeStock implements the analyze_stock tool
func handleAnalyzeStock(pipelineService *pipeline.Service, tasks interfaces.TaskService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stockCode, err := request.RequireString("stock_code")
		if err != nil || !stockCodePattern.MatchString(stockCode) {
			return errorResult("Error: stock_code must be 6 digits with a .SZ/.SH/.BJ suffix"), nil
		}
		endDate := request.GetString("end_date", "")

		task, err := tasks.Create(stockCode, endDate)
		if err != nil {
			logger.Error().Err(err).Msg("Task creation failed")
			return errorResult("Error starting task: %v", err), nil
		}

		// The MCP request context ends with the call; the analysis run
		// outlives it, so the background run gets its own context.
		go func() {
			if err := tasks.MarkRunning(task.ID); err != nil {
				logger.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to mark task running")
			}
			summary, err := pipelineService.Run(context.Background(), task.StockCode, task.EndDate, task.ID)
			if err != nil {
				if failErr := tasks.Fail(task.ID, err.Error()); failErr != nil {
					logger.Warn().Err(failErr).Str("task_id", task.ID).Msg("Failed to mark task failed")
				}
				return
			}
			result, marshalErr := json.Marshal(summary)
			if marshalErr != nil {
				result = json.RawMessage("null")
			}
			if err := tasks.Complete(task.ID, result); err != nil {
				logger.Warn().Err(err).Str("task_id", task.ID).Msg("Failed to mark task completed")
			}
		}()

		return textResult(formatTaskStarted(task)), nil
	}
}

// handleGetTaskStatus implements the get_task_status tool
func handleGetTaskStatus(tasks interfaces.TaskService, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		taskID, err := request.RequireString("task_id")
		if err != nil || taskID == "" {
			return errorResult("Error: task_id parameter is required"), nil
		}

		task, ok := tasks.Get(taskID)
		if !ok {
			return errorResult("Task not found: %s", taskID), nil
		}

		return textResult(formatTaskStatus(task)), nil
	}
}

// handleListReports implements the list_reports tool
func handleListReports(store interfaces.ArtifactStore, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stockCode, date, result := runCoordinates(request)
		if result != nil {
			return result, nil
		}

		names, err := store.List(stockCode, date)
		if err != nil {
			logger.Error().Err(err).Str("stock_code", stockCode).Msg("Artifact listing failed")
			return errorResult("Error listing artifacts: %v", err), nil
		}

		return textResult(formatArtifactList(stockCode, date, names)), nil
	}
}

// handleReadReport implements the read_report tool
func handleReadReport(store interfaces.ArtifactStore, logger arbor.ILogger) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		stockCode, date, result := runCoordinates(request)
		if result != nil {
			return result, nil
		}
		name := request.GetString("name", interfaces.ArtifactAnalysisSummary)

		// Reports and raw data groups share a directory; try the report
		// envelope first, then the tool envelope.
		if report, err := store.LoadReport(stockCode, date, name); err == nil {
			return textResult(formatReportEnvelope(stockCode, date, name, report)), nil
		}
		tool, err := store.LoadToolResult(stockCode, date, name)
		if err != nil {
			logger.Error().Err(err).Str("stock_code", stockCode).Str("name", name).Msg("Artifact read failed")
			return errorResult("Artifact not found: %s/%s/%s.json", stockCode, date, name), nil
		}
		return textResult(formatToolEnvelope(stockCode, date, name, tool)), nil
	}
}

// runCoordinates parses and normalizes the (stock_code, date) pair shared
// by the artifact tools. A non-nil result is the error to return.
func runCoordinates(request mcp.CallToolRequest) (string, string, *mcp.CallToolResult) {
	stockCode, err := request.RequireString("stock_code")
	if err != nil || !stockCodePattern.MatchString(stockCode) {
		return "", "", errorResult("Error: stock_code must be 6 digits with a .SZ/.SH/.BJ suffix")
	}
	date, err := request.RequireString("date")
	if err != nil || date == "" {
		return "", "", errorResult("Error: date parameter is required")
	}
	return stockCode, common.ParseFlexibleDate(date).Format(common.DateCompact), nil
}
