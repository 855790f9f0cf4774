package analysts

import (
	"context"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// SupervisorInputsFrom renders the upstream reports into prompt blocks.
// Missing reports render as empty objects so the prompt shape is stable.
func SupervisorInputsFrom(fundamental, technical, sentiment, fund *models.AnalystReport, newsSummary string) interfaces.SupervisorInputs {
	return interfaces.SupervisorInputs{
		FundamentalReport: reportJSON(fundamental),
		TechnicalReport:   reportJSON(technical),
		SentimentReport:   reportJSON(sentiment),
		FundReport:        reportJSON(fund),
		NewsSummary:       newsSummary,
	}
}

// RunSupervisor executes the final decision synthesis and returns the
// full-horizon forecast report. Failures degrade to the supervisor
// sentinel, never to an error.
func (s *Service) RunSupervisor(ctx context.Context, req interfaces.AnalystRequest, inputs interfaces.SupervisorInputs) *models.SupervisorReport {
	prompt := supervisorPrompt(req.StockCode, req.AnalysisPeriod, inputs)

	content, err := s.chatStream(ctx, req, prompt)
	if err != nil {
		s.logger.Error().Err(err).Str("stock_code", req.StockCode).Msg("Supervisor LLM call failed")
		report := models.FallbackSupervisorReport(models.MarkerReportError + ": " + err.Error())
		s.saveReport(req, interfaces.ArtifactSupervisorReport, report)
		return report
	}

	report := parseSupervisorReport(content)
	if report.AnalystName == models.AnalystNameFailed {
		s.logger.Warn().Str("stock_code", req.StockCode).Msg("Supervisor output failed to parse, sentinel report substituted")
	}
	s.saveReport(req, interfaces.ArtifactSupervisorReport, report)
	return report
}
