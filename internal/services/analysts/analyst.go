package analysts

import (
	"context"
	"encoding/json"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

// Service runs the LLM analyst stages: the five perspective reports, the
// final decision synthesis and the optional bull/bear debate. Streamed
// model output is mirrored to the event bus frame by frame; every stage
// degrades to a sentinel report instead of failing the pipeline.
type Service struct {
	llm       interfaces.LLMService
	artifacts interfaces.ArtifactStore
	events    interfaces.EventService
	logger    arbor.ILogger
}

var _ interfaces.AnalystService = (*Service)(nil)

// NewService creates the analyst service.
func NewService(llm interfaces.LLMService, artifacts interfaces.ArtifactStore, events interfaces.EventService, logger arbor.ILogger) *Service {
	return &Service{
		llm:       llm,
		artifacts: artifacts,
		events:    events,
		logger:    logger,
	}
}

// Artifact names for each perspective's report.
var reportArtifactNames = map[models.Perspective]string{
	models.PerspectiveFundamental: interfaces.ArtifactFundamentalReport,
	models.PerspectiveTechnical:   interfaces.ArtifactTechnicalReport,
	models.PerspectiveSentiment:   interfaces.ArtifactSentimentReport,
	models.PerspectiveNews:        interfaces.ArtifactNewsReport,
	models.PerspectiveFund:        interfaces.ArtifactFundReport,
}

// Run executes one perspective's analysis over the assembled input text
// and returns its report. LLM failures and unparseable output both come
// back as sentinel reports, never as errors.
func (s *Service) Run(ctx context.Context, p models.Perspective, req interfaces.AnalystRequest, input string) *models.AnalystReport {
	prompt := analystPrompt(p, req.StockCode, req.AnalysisPeriod, input)

	content, err := s.chatStream(ctx, req, prompt)
	if err != nil {
		s.logger.Error().Err(err).Str("perspective", string(p)).Str("stock_code", req.StockCode).Msg("Analyst LLM call failed")
		report := s.errorReport(p, err)
		s.saveReport(req, reportArtifactNames[p], report)
		return report
	}

	report := parseAnalystReport(content, p)
	if report.AnalystName == models.AnalystNameFailed {
		s.logger.Warn().Str("perspective", string(p)).Msg("Analyst output failed to parse, sentinel report substituted")
	}
	s.saveReport(req, reportArtifactNames[p], report)
	return report
}

// errorReport is the neutral zero-score report substituted when the model
// call itself fails.
func (s *Service) errorReport(p models.Perspective, err error) *models.AnalystReport {
	scores := map[string]int{}
	for _, key := range models.ScoreKeysFor(p) {
		scores[key] = 0
	}
	message := models.MarkerReportError + ": " + err.Error()
	return &models.AnalystReport{
		AnalystName:      p.AnalystName(),
		Viewpoint:        models.ViewpointNeutral,
		Reason:           message,
		Scores:           scores,
		DetailedAnalysis: message,
	}
}

// chatStream sends one prompt and mirrors every response fragment to the
// event bus as a message_chunk frame.
func (s *Service) chatStream(ctx context.Context, req interfaces.AnalystRequest, prompt string) (string, error) {
	messages := []interfaces.Message{{Role: "user", Content: prompt}}
	return s.llm.ChatStream(ctx, messages, func(text string) {
		event := models.NewStreamEvent(models.EventMessageChunk, req.ThreadID, req.Agent, req.RunID)
		event.Content = text
		s.events.Publish(event)
	})
}

// saveReport persists a report artifact; persistence failures are logged
// and swallowed so a full report still reaches the caller.
func (s *Service) saveReport(req interfaces.AnalystRequest, name string, report interface{}) {
	if err := s.artifacts.SaveReport(req.StockCode, req.Date, name, name, req.AnalysisPeriod, report); err != nil {
		s.logger.Warn().Err(err).Str("artifact", name).Str("stock_code", req.StockCode).Msg("Failed to persist report artifact")
	}
}

// reportJSON renders a report for inclusion in a downstream prompt.
func reportJSON(report interface{}) string {
	if report == nil {
		return "{}"
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return "{}"
	}
	return string(raw)
}
