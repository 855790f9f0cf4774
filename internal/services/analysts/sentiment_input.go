package analysts

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// BuildSentimentInput assembles the sentiment analyst's input from the
// persisted news and fundamental tool artifacts: the merged news summary
// plus every fundamental interface's narrative. When the fundamental
// artifact yields nothing the upstream fundamental report stands in. The
// assembled snapshot is persisted for traceability and returned as the
// JSON string handed to the prompt.
func (s *Service) BuildSentimentInput(req interfaces.AnalystRequest, fundamentalReport *models.AnalystReport) string {
	input := models.SentimentInput{
		StockCode: req.StockCode,
		EndDate:   req.Date,
	}

	if envelope, err := s.artifacts.LoadToolResult(req.StockCode, req.Date, interfaces.ArtifactNewsData); err == nil {
		var news models.ToolResult
		if err := envelope.DecodeData(&news); err == nil {
			input.NewsCombined = news.CombinedSummary
		}
	} else {
		s.logger.Warn().Err(err).Str("stock_code", req.StockCode).Msg("News artifact unavailable for sentiment input")
	}

	if envelope, err := s.artifacts.LoadToolResult(req.StockCode, req.Date, interfaces.ArtifactFundamentalData); err == nil {
		var fundamental models.ToolResult
		if err := envelope.DecodeData(&fundamental); err == nil {
			input.FundamentalText = fundamentalNarrative(&fundamental)
		}
	} else {
		s.logger.Warn().Err(err).Str("stock_code", req.StockCode).Msg("Fundamental artifact unavailable for sentiment input")
	}

	if input.FundamentalText == "" && fundamentalReport != nil {
		if fundamentalReport.Reason != "" {
			input.FundamentalText = fundamentalReport.Reason
		} else {
			input.FundamentalText = fundamentalReport.DetailedAnalysis
		}
	}

	s.logger.Info().
		Str("stock_code", req.StockCode).
		Int("news_len", len(input.NewsCombined)).
		Int("fundamental_len", len(input.FundamentalText)).
		Msg("Sentiment input assembled")

	if err := s.artifacts.SaveToolResult(req.StockCode, req.Date, interfaces.ArtifactSentimentInput, req.AnalysisPeriod, input); err != nil {
		s.logger.Warn().Err(err).Str("stock_code", req.StockCode).Msg("Failed to persist sentiment input snapshot")
	}

	raw, err := json.Marshal(input)
	if err != nil {
		return "{}"
	}
	return string(raw)
}

// fundamentalNarrative flattens a fundamental tool result into one block
// per interface, keeping only interfaces that produced a summary.
func fundamentalNarrative(result *models.ToolResult) string {
	var sections []string
	for _, name := range result.Interfaces.Names() {
		entry, _ := result.Interfaces.Get(name)
		text := strings.TrimSpace(entry.Result)
		if text == "" {
			continue
		}
		objective := entry.Objective
		if objective == "" {
			objective = name
		}
		sections = append(sections, fmt.Sprintf("【%s】\n%s", objective, text))
	}
	return strings.Join(sections, "\n\n")
}
