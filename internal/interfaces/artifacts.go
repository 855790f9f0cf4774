package interfaces

import (
	"time"

	"github.com/lunahan/aestimo/internal/models"
)

// Artifact file names under <root>/<symbol>/<YYYYMMDD>/.
const (
	ArtifactFundamentalData   = "fundamental_data"
	ArtifactTechData          = "tech_data"
	ArtifactFundData          = "fund_data"
	ArtifactNewsData          = "news_data"
	ArtifactSentimentInput    = "sentiment_input"
	ArtifactFundamentalReport = "fundamental_report"
	ArtifactTechnicalReport   = "technical_report"
	ArtifactFundReport        = "fund_report"
	ArtifactNewsReport        = "news_report"
	ArtifactSentimentReport   = "sentiment_report"
	ArtifactSupervisorReport  = "supervisor_report"
	ArtifactAnalysisSummary   = "analysis_summary"
)

// ArtifactStore persists per-run analysis artifacts under a deterministic
// <root>/<symbol>/<YYYYMMDD>/<name>.json layout and reads them back for
// later pipeline stages. Writes within one run target disjoint names;
// re-runs overwrite (last-write-wins, no cross-run locking).
type ArtifactStore interface {
	// SaveToolResult persists an acquisition group's structured output.
	SaveToolResult(symbol, date, name, analysisPeriod string, data interface{}) error

	// SaveReport persists an analyst report under its report type label.
	SaveReport(symbol, date, name, reportType, analysisPeriod string, data interface{}) error

	// LoadToolResult reads a previously saved tool envelope; a typed
	// not-found error when the artifact does not exist.
	LoadToolResult(symbol, date, name string) (*models.ToolEnvelope, error)

	// LoadReport reads a previously saved report envelope.
	LoadReport(symbol, date, name string) (*models.ReportEnvelope, error)

	// BuildRunSummary assembles the analysis_summary payload for one run:
	// the artifact inventory plus supervisor essentials and node timings.
	BuildRunSummary(symbol, date string, supervisor *models.SupervisorReport, durations map[string]time.Duration) *models.RunSummary

	// List returns the artifact names present for one (symbol, date) run.
	List(symbol, date string) ([]string, error)

	// Dir returns the run directory path for one (symbol, date).
	Dir(symbol, date string) string
}
