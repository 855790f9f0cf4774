package pipeline

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/services/acquisition"
	"github.com/lunahan/aestimo/internal/services/analysts"
)

// fetchFunc is the shape shared by the windowed acquisition groups.
type fetchFunc func(ctx context.Context, stockCode string, end time.Time) (*models.ToolResult, error)

// fetchToolText runs one acquisition group between its tool frames and
// renders the result for the analyst prompt. Acquisition failure becomes
// the fetch-error sentence so the analyst still runs and reports on it.
func (r *runContext) fetchToolText(ctx context.Context, node, tool string, fetch fetchFunc) string {
	r.em.toolRunning(node, tool)
	result, err := fetch(ctx, r.stockCode, r.window.End)
	if err != nil {
		r.svc.logger.Error().
			Err(err).
			Str("tool", tool).
			Str("stock_code", r.stockCode).
			Msg("Tool acquisition failed")
		text := models.MarkerFetchError + ": " + err.Error()
		r.em.toolFinished(node, tool, text)
		return text
	}
	text := result.AsText()
	r.em.toolFinished(node, tool, text)
	return text
}

func (r *runContext) fundamentalNode(ctx context.Context, _ *State) (map[string]interface{}, error) {
	input := r.fetchToolText(ctx, NodeFundamental, interfaces.ToolFundamental, r.svc.acquisition.FetchFundamental)
	report := r.svc.analysts.Run(ctx, models.PerspectiveFundamental, r.analystRequest(NodeFundamental), input)
	return map[string]interface{}{KeyFundamentalReport: report}, nil
}

func (r *runContext) technicalNode(ctx context.Context, _ *State) (map[string]interface{}, error) {
	input := r.fetchToolText(ctx, NodeTechnical, interfaces.ToolTechnical, r.svc.acquisition.FetchTechnical)
	report := r.svc.analysts.Run(ctx, models.PerspectiveTechnical, r.analystRequest(NodeTechnical), input)
	return map[string]interface{}{KeyTechnicalReport: report}, nil
}

func (r *runContext) fundNode(ctx context.Context, _ *State) (map[string]interface{}, error) {
	input := r.fetchToolText(ctx, NodeFund, interfaces.ToolFund, r.svc.acquisition.FetchFund)
	report := r.svc.analysts.Run(ctx, models.PerspectiveFund, r.analystRequest(NodeFund), input)
	return map[string]interface{}{KeyFundReport: report}, nil
}

// newsNode fetches the vendor news feeds, folds the web-crawl narrative
// into the combined summary, re-persists the enriched news_data artifact
// and runs the news analyst over the full structured payload.
func (r *runContext) newsNode(ctx context.Context, _ *State) (map[string]interface{}, error) {
	r.em.toolRunning(NodeNews, interfaces.ToolNews)
	result, err := r.svc.acquisition.FetchNews(ctx, r.stockCode, r.window.End, r.svc.cfg.Pipeline.NewsDays)
	if err != nil {
		r.svc.logger.Error().
			Err(err).
			Str("stock_code", r.stockCode).
			Msg("News acquisition failed")
		text := models.MarkerFetchError + ": " + err.Error()
		r.em.toolFinished(NodeNews, interfaces.ToolNews, text)
		report := r.svc.analysts.Run(ctx, models.PerspectiveNews, r.analystRequest(NodeNews), text)
		return map[string]interface{}{KeyNewsReport: report, KeyNewsSummary: text}, nil
	}

	industry := ""
	if basic, ok := r.svc.catalog.Basic(r.stockCode); ok {
		industry = basic.Industry
	}
	analysis := r.svc.newsfeed.Analyze(ctx, r.stockCode, r.stockName, industry, r.window.End)
	if analysis != nil && strings.TrimSpace(analysis.Text) != "" {
		if result.CombinedSummary == "" || result.CombinedSummary == acquisition.NoCombinedSummary {
			result.CombinedSummary = analysis.Text
		} else {
			result.CombinedSummary = result.CombinedSummary + "\n\n" + analysis.Text
		}
	}

	if err := r.svc.artifacts.SaveToolResult(r.stockCode, r.window.EndCompact(), interfaces.ArtifactNewsData, r.window.AnalysisPeriod(), result); err != nil {
		r.svc.logger.Warn().
			Err(err).
			Str("stock_code", r.stockCode).
			Msg("Failed to persist enriched news data")
	}
	r.em.toolFinished(NodeNews, interfaces.ToolNews, result.AsText())

	input := result.AsText()
	if data, mErr := json.Marshal(result); mErr == nil {
		input = string(data)
	}
	report := r.svc.analysts.Run(ctx, models.PerspectiveNews, r.analystRequest(NodeNews), input)
	return map[string]interface{}{KeyNewsReport: report, KeyNewsSummary: result.CombinedSummary}, nil
}

// sentimentNode composes its input from the news and fundamental
// artifacts already on disk, falling back to the fundamental report.
func (r *runContext) sentimentNode(ctx context.Context, st *State) (map[string]interface{}, error) {
	req := r.analystRequest(NodeSentiment)
	input := r.svc.analysts.BuildSentimentInput(req, st.Report(KeyFundamentalReport))
	report := r.svc.analysts.Run(ctx, models.PerspectiveSentiment, req, input)
	return map[string]interface{}{KeySentimentReport: report}, nil
}

func (r *runContext) bullNode(ctx context.Context, st *State) (map[string]interface{}, error) {
	report := r.svc.analysts.RunBullDebate(ctx, r.analystRequest(NodeBull), r.debateInputs(st))
	return map[string]interface{}{KeyBullReport: report}, nil
}

func (r *runContext) bearNode(ctx context.Context, st *State) (map[string]interface{}, error) {
	report := r.svc.analysts.RunBearDebate(ctx, r.analystRequest(NodeBear), r.debateInputs(st))
	return map[string]interface{}{KeyBearReport: report}, nil
}

func (r *runContext) debateNode(ctx context.Context, st *State) (map[string]interface{}, error) {
	report := r.svc.analysts.RunDebateJudge(
		ctx,
		r.analystRequest(NodeDebate),
		r.debateInputs(st),
		st.Debater(KeyBullReport),
		st.Debater(KeyBearReport),
	)
	return map[string]interface{}{KeyDebateReport: report}, nil
}

func (r *runContext) debateInputs(st *State) interfaces.DebateInputs {
	return analysts.DebateInputsFrom(
		st.Report(KeyFundamentalReport),
		st.Report(KeyTechnicalReport),
		st.Report(KeySentimentReport),
		st.Report(KeyFundReport),
		st.Report(KeyNewsReport),
	)
}

func (r *runContext) supervisorNode(ctx context.Context, st *State) (map[string]interface{}, error) {
	inputs := analysts.SupervisorInputsFrom(
		st.Report(KeyFundamentalReport),
		st.Report(KeyTechnicalReport),
		st.Report(KeySentimentReport),
		st.Report(KeyFundReport),
		st.String(KeyNewsSummary),
	)
	report := r.svc.analysts.RunSupervisor(ctx, r.analystRequest(NodeSupervisor), inputs)
	return map[string]interface{}{KeySupervisorReport: report}, nil
}

// finalSaveNode inventories the run directory, folds in the supervisor
// essentials and node timings, and writes analysis_summary.json. This is
// the one node whose failure fails the run result.
func (r *runContext) finalSaveNode(_ context.Context, st *State) (map[string]interface{}, error) {
	summary := r.svc.artifacts.BuildRunSummary(r.stockCode, r.window.EndCompact(), st.SupervisorReport(), r.durationSnapshot())
	err := r.svc.artifacts.SaveReport(
		r.stockCode,
		r.window.EndCompact(),
		interfaces.ArtifactAnalysisSummary,
		interfaces.ArtifactAnalysisSummary,
		r.window.AnalysisPeriod(),
		summary,
	)
	if err != nil {
		return nil, err
	}
	return map[string]interface{}{KeyAnalysisSummary: summary}, nil
}
