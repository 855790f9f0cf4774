package interfaces

import (
	"context"

	"github.com/lunahan/aestimo/internal/models"
)

// AnalystRequest carries the per-run identity every analyst stage needs:
// where to persist artifacts and how to label stream frames.
type AnalystRequest struct {
	StockCode      string
	Date           string // compact YYYYMMDD artifact date
	AnalysisPeriod string
	ThreadID       string
	RunID          string
	Agent          string // node name stamped on stream frames
}

// SupervisorInputs are the five blocks the final decision prompt fuses:
// the four perspective reports (rendered as JSON) plus the merged news
// summary text.
type SupervisorInputs struct {
	FundamentalReport string
	TechnicalReport   string
	SentimentReport   string
	FundReport        string
	NewsSummary       string
}

// DebateInputs are the five perspective reports both debate sides argue
// over, rendered as JSON prompt blocks.
type DebateInputs struct {
	FundamentalReport string
	TechnicalReport   string
	SentimentReport   string
	FundReport        string
	NewsReport        string
}

// AnalystService runs the LLM analysis stages. Every stage degrades to a
// sentinel report instead of returning an error, so the pipeline always
// has a report to carry forward.
type AnalystService interface {
	// Run executes one perspective's analysis over the assembled input.
	Run(ctx context.Context, p models.Perspective, req AnalystRequest, input string) *models.AnalystReport

	// BuildSentimentInput assembles and snapshots the sentiment analyst's
	// input from the persisted news and fundamental artifacts, with the
	// fundamental report as fallback.
	BuildSentimentInput(req AnalystRequest, fundamentalReport *models.AnalystReport) string

	// RunSupervisor executes the final decision synthesis.
	RunSupervisor(ctx context.Context, req AnalystRequest, inputs SupervisorInputs) *models.SupervisorReport

	// RunBullDebate and RunBearDebate build the two debate cases; the
	// judge synthesizes them. All three are config-gated.
	RunBullDebate(ctx context.Context, req AnalystRequest, inputs DebateInputs) *models.DebaterReport
	RunBearDebate(ctx context.Context, req AnalystRequest, inputs DebateInputs) *models.DebaterReport
	RunDebateJudge(ctx context.Context, req AnalystRequest, inputs DebateInputs, bull, bear *models.DebaterReport) *models.DebateReport
}
