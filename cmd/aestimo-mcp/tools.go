package main

import (
	"github.com/mark3labs/mcp-go/mcp"
)

// createAnalyzeStockTool returns the analyze_stock tool definition
func createAnalyzeStockTool() mcp.Tool {
	return mcp.NewTool("analyze_stock",
		mcp.WithDescription("Start a multi-perspective analysis of a China A-share stock. Runs in the background; poll get_task_status with the returned task_id."),
		mcp.WithString("stock_code",
			mcp.Required(),
			mcp.Description("Stock code with exchange suffix, e.g. 600519.SH, 000001.SZ, 830799.BJ"),
		),
		mcp.WithString("end_date",
			mcp.Description("Analysis end date (YYYYMMDD or YYYY-MM-DD, defaults to today)"),
		),
	)
}

// createGetTaskStatusTool returns the get_task_status tool definition
func createGetTaskStatusTool() mcp.Tool {
	return mcp.NewTool("get_task_status",
		mcp.WithDescription("Check the status of a background analysis task; completed tasks include the run summary"),
		mcp.WithString("task_id",
			mcp.Required(),
			mcp.Description("Task ID returned by analyze_stock"),
		),
	)
}

// createListReportsTool returns the list_reports tool definition
func createListReportsTool() mcp.Tool {
	return mcp.NewTool("list_reports",
		mcp.WithDescription("List the artifacts persisted for one analysis run (raw data groups and analyst reports)"),
		mcp.WithString("stock_code",
			mcp.Required(),
			mcp.Description("Stock code with exchange suffix"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Analysis end date of the run (YYYYMMDD or YYYY-MM-DD)"),
		),
	)
}

// createReadReportTool returns the read_report tool definition
func createReadReportTool() mcp.Tool {
	return mcp.NewTool("read_report",
		mcp.WithDescription("Read a persisted analysis artifact, e.g. supervisor_report, fundamental_report, analysis_summary"),
		mcp.WithString("stock_code",
			mcp.Required(),
			mcp.Description("Stock code with exchange suffix"),
		),
		mcp.WithString("date",
			mcp.Required(),
			mcp.Description("Analysis end date of the run (YYYYMMDD or YYYY-MM-DD)"),
		),
		mcp.WithString("name",
			mcp.Description("Artifact name (default: analysis_summary)"),
		),
	)
}
