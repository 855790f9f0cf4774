package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// ssePingInterval keeps proxies from reaping an idle stream.
const ssePingInterval = 15 * time.Second

// StreamHandler runs an analysis inline and streams its event frames
// over Server-Sent Events until the terminal frame.
type StreamHandler struct {
	runner AnalysisRunner
	events interfaces.EventService
	logger arbor.ILogger
}

func NewStreamHandler(runner AnalysisRunner, events interfaces.EventService, logger arbor.ILogger) *StreamHandler {
	return &StreamHandler{
		runner: runner,
		events: events,
		logger: logger,
	}
}

// StreamAnalysisHandler streams one analysis run as SSE frames.
// POST|GET /api/v1/stream_analysis
func (h *StreamHandler) StreamAnalysisHandler(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		WriteError(w, http.StatusInternalServerError, "Streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	threadID := common.NewThreadID()
	sub := h.events.Subscribe(threadID)
	defer sub.Cancel()

	runCtx, cancelRun := context.WithCancel(context.Background())
	defer cancelRun()
	go func() {
		if _, err := h.runner.Run(runCtx, req.StockCode, req.EndDate, threadID); err != nil {
			h.logger.Error().Err(err).Str("stock_code", req.StockCode).Msg("Streamed analysis failed")
		}
	}()

	ping := time.NewTicker(ssePingInterval)
	defer ping.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ping.C:
			fmt.Fprint(w, ": ping\n\n")
			flusher.Flush()
		case event, open := <-sub.C:
			if !open {
				return
			}
			data, err := json.Marshal(event)
			if err != nil {
				h.logger.Warn().Err(err).Msg("Failed to encode stream frame")
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", data)
			flusher.Flush()
			if isTerminalFrame(event) {
				return
			}
		}
	}
}

// decodeRequest reads the analysis request from the POST body or, for
// EventSource clients that can only GET, from the query string.
func (h *StreamHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (AnalyzeRequest, bool) {
	var req AnalyzeRequest

	switch r.Method {
	case http.MethodPost:
		if err := DecodeJSON(r, &req); err != nil {
			WriteError(w, http.StatusBadRequest, "Invalid request body: "+err.Error())
			return req, false
		}
	case http.MethodGet:
		req.StockCode = r.URL.Query().Get("stock_code")
		req.EndDate = r.URL.Query().Get("end_date")
	default:
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return req, false
	}

	if !stockCodePattern.MatchString(req.StockCode) {
		WriteError(w, http.StatusBadRequest, "无效的股票代码，格式应为 6 位数字加 .SZ/.SH/.BJ 后缀")
		return req, false
	}
	return req, true
}

// isTerminalFrame recognizes the fixed end-of-stream frame.
func isTerminalFrame(event models.StreamEvent) bool {
	return event.ID == "final-run" && event.FinishReason == models.FinishReasonStop
}
