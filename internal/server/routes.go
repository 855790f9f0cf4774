package server

import (
	"net/http"
)

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	// Analysis API
	mux.HandleFunc("POST /api/v1/analyze_stock", s.app.AnalysisHandler.AnalyzeStockHandler)
	mux.HandleFunc("GET /api/v1/get_task_status/{task_id}", s.app.AnalysisHandler.GetTaskStatusHandler)

	// SSE stream: POST carries a JSON body, GET serves EventSource clients
	mux.HandleFunc("/api/v1/stream_analysis", s.app.StreamHandler.StreamAnalysisHandler)

	// WebSocket event mirror
	mux.HandleFunc("/ws", s.app.WSHandler.HandleWebSocket)

	// Health
	mux.HandleFunc("GET /health", s.app.HealthHandler.HealthCheckHandler)

	return mux
}
