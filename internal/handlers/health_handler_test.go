package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

type healthLLM struct {
	err error
}

func (l *healthLLM) Name() string { return "claude" }
func (l *healthLLM) Chat(context.Context, []interfaces.Message) (string, error) {
	return "", nil
}
func (l *healthLLM) ChatStream(context.Context, []interfaces.Message, interfaces.ChunkHandler) (string, error) {
	return "", nil
}
func (l *healthLLM) HealthCheck(context.Context) error { return l.err }
func (l *healthLLM) Close() error { return nil }

type healthCatalog struct{}

func (healthCatalog) StockName(code string) string { return code }
func (healthCatalog) Basic(string) (models.StockBasic, bool) {
	return models.StockBasic{}, false
}
func (healthCatalog) Company(string) (models.CompanyProfile, bool) {
	return models.CompanyProfile{}, false
}
func (healthCatalog) OverviewLines(string) []string { return nil }
func (healthCatalog) Bootstrap(context.Context) error { return nil }
func (healthCatalog) Count() int { return 5432 }
func (healthCatalog) Close() error { return nil }

func TestHealthCheckReportsStatus(t *testing.T) {
	h := NewHealthHandler(&healthLLM{}, healthCatalog{}, "1.2.3", arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheckHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "ok", resp["status"])
	assert.Equal(t, "aestimo", resp["service"])
	assert.Equal(t, "1.2.3", resp["version"])
	assert.Equal(t, float64(5432), resp["catalogue_listings"])

	llm := resp["llm"].(map[string]interface{})
	assert.Equal(t, "claude", llm["provider"])
	assert.Equal(t, "ok", llm["status"])
}

func TestHealthCheckFlagsUnavailableLLM(t *testing.T) {
	h := NewHealthHandler(&healthLLM{err: assert.AnError}, healthCatalog{}, "dev", arbor.NewLogger())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.HealthCheckHandler(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	llm := resp["llm"].(map[string]interface{})
	assert.Equal(t, "unavailable", llm["status"])
}
