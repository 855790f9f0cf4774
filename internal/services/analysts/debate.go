package analysts

import (
	"context"
	"strings"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// Artifact names for the optional debate stage.
const (
	artifactBullReport   = "bull_report"
	artifactBearReport   = "bear_report"
	artifactDebateReport = "debate_report"
)

// DebateInputsFrom renders the perspective reports into prompt blocks.
func DebateInputsFrom(fundamental, technical, sentiment, fund, news *models.AnalystReport) interfaces.DebateInputs {
	return interfaces.DebateInputs{
		FundamentalReport: reportJSON(fundamental),
		TechnicalReport:   reportJSON(technical),
		SentimentReport:   reportJSON(sentiment),
		FundReport:        reportJSON(fund),
		NewsReport:        reportJSON(news),
	}
}

func debateBlocks(d interfaces.DebateInputs) string {
	return strings.Join([]string{
		d.FundamentalReport,
		d.TechnicalReport,
		d.SentimentReport,
		d.FundReport,
		d.NewsReport,
	}, "\n---\n")
}

// RunBullDebate builds the bullish case over the perspective reports.
func (s *Service) RunBullDebate(ctx context.Context, req interfaces.AnalystRequest, inputs interfaces.DebateInputs) *models.DebaterReport {
	return s.runDebater(ctx, req, models.AnalystNameBull, artifactBullReport,
		bullPrompt(req.StockCode, req.AnalysisPeriod, debateBlocks(inputs)))
}

// RunBearDebate builds the bearish case over the perspective reports.
func (s *Service) RunBearDebate(ctx context.Context, req interfaces.AnalystRequest, inputs interfaces.DebateInputs) *models.DebaterReport {
	return s.runDebater(ctx, req, models.AnalystNameBear, artifactBearReport,
		bearPrompt(req.StockCode, req.AnalysisPeriod, debateBlocks(inputs)))
}

func (s *Service) runDebater(ctx context.Context, req interfaces.AnalystRequest, name, artifact, prompt string) *models.DebaterReport {
	content, err := s.chatStream(ctx, req, prompt)
	if err != nil {
		s.logger.Error().Err(err).Str("debater", name).Str("stock_code", req.StockCode).Msg("Debater LLM call failed")
		report := &models.DebaterReport{
			AnalystName:    name,
			Viewpoint:      models.ViewpointNeutral,
			FinalStatement: models.MarkerReportError + ": " + err.Error(),
		}
		s.saveReport(req, artifact, report)
		return report
	}

	report := parseDebaterReport(content, name)
	s.saveReport(req, artifact, report)
	return report
}

// RunDebateJudge synthesizes the two sides into the judge's verdict.
func (s *Service) RunDebateJudge(ctx context.Context, req interfaces.AnalystRequest, inputs interfaces.DebateInputs, bull, bear *models.DebaterReport) *models.DebateReport {
	prompt := judgePrompt(req.StockCode, req.AnalysisPeriod, debateBlocks(inputs), reportJSON(bull), reportJSON(bear))

	content, err := s.chatStream(ctx, req, prompt)
	if err != nil {
		s.logger.Error().Err(err).Str("stock_code", req.StockCode).Msg("Debate judge LLM call failed")
		report := &models.DebateReport{
			AnalystName:    models.AnalystNameDebateJudge,
			FinalViewpoint: models.ViewpointNeutral,
			FinalReason:    models.MarkerReportError + ": " + err.Error(),
		}
		s.saveReport(req, artifactDebateReport, report)
		return report
	}

	report := parseDebateReport(content)
	s.saveReport(req, artifactDebateReport, report)
	return report
}
