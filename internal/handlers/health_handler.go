package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/interfaces"
)

// HealthHandler reports service liveness plus the LLM and catalogue
// status the pipeline depends on.
type HealthHandler struct {
	llm     interfaces.LLMService
	catalog interfaces.CatalogService
	version string
	logger  arbor.ILogger
}

func NewHealthHandler(llm interfaces.LLMService, catalog interfaces.CatalogService, version string, logger arbor.ILogger) *HealthHandler {
	return &HealthHandler{
		llm:     llm,
		catalog: catalog,
		version: version,
		logger:  logger,
	}
}

// HealthCheckHandler returns the service health snapshot.
// GET /health
func (h *HealthHandler) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	llmStatus := "ok"
	if err := h.llm.HealthCheck(ctx); err != nil {
		llmStatus = "unavailable"
		h.logger.Warn().Err(err).Msg("LLM health check failed")
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"status":             "ok",
		"service":            "aestimo",
		"version":            h.version,
		"llm":                map[string]string{"provider": h.llm.Name(), "status": llmStatus},
		"catalogue_listings": h.catalog.Count(),
		"timestamp":          time.Now().UTC().Format(time.RFC3339),
	})
}
