package main

import (
	"context"
	"fmt"
	"os"

	"github.com/mark3labs/mcp-go/server"
	"github.com/ternarybob/arbor"
	arbor_models "github.com/ternarybob/arbor/models"

	"github.com/lunahan/aestimo/internal/app"
	"github.com/lunahan/aestimo/internal/common"
)

func main() {
	configPath := os.Getenv("AESTIMO_CONFIG")
	if configPath == "" {
		configPath = "aestimo.toml"
	}

	config, err := common.LoadFromFile(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// Minimal console logger at warn level to keep MCP stdio clean.
	logger := arbor.NewLogger().WithConsoleWriter(arbor_models.WriterConfiguration{
		Type:       arbor_models.LogWriterTypeConsole,
		TimeFormat: "15:04:05",
	}).WithLevelFromString("warn")

	application, err := app.New(context.Background(), config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	mcpServer := server.NewMCPServer(
		"aestimo",
		common.GetVersion(),
		server.WithToolCapabilities(true),
	)

	mcpServer.AddTool(createAnalyzeStockTool(), handleAnalyzeStock(application.Pipeline, application.TaskService, logger))
	mcpServer.AddTool(createGetTaskStatusTool(), handleGetTaskStatus(application.TaskService, logger))
	mcpServer.AddTool(createListReportsTool(), handleListReports(application.ArtifactStore, logger))
	mcpServer.AddTool(createReadReportTool(), handleReadReport(application.ArtifactStore, logger))

	// Blocks on stdio until the client disconnects.
	if err := server.ServeStdio(mcpServer); err != nil {
		logger.Fatal().Err(err).Msg("MCP server failed")
	}
}
