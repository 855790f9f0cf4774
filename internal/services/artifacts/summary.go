package artifacts

import (
	"time"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/models"
)

// BuildRunSummary enumerates the artifacts already written for the run and
// folds in the supervisor essentials and node timings. Enumeration failure
// degrades to an empty inventory.
func (s *Service) BuildRunSummary(symbol, date string, supervisor *models.SupervisorReport, durations map[string]time.Duration) *models.RunSummary {
	names, err := s.List(symbol, date)
	if err != nil {
		s.logger.Warn().
			Err(err).
			Str("symbol", symbol).
			Str("date", date).
			Msg("Failed to enumerate run artifacts")
		names = []string{}
	}

	summary := &models.RunSummary{
		StockCode:   symbol,
		EndDate:     date,
		GeneratedAt: common.Timestamp(time.Now()),
		Artifacts:   names,
	}

	if supervisor != nil {
		summary.Supervisor = &models.SupervisorEssentials{
			Summary:       supervisor.Summary,
			ShortTermBias: supervisor.Forecast.ShortTerm.Bias,
			MidTermBias:   supervisor.Forecast.MidTerm.Bias,
			LongTermBias:  supervisor.Forecast.LongTerm.Bias,
		}
	}

	if len(durations) > 0 {
		summary.NodeDurations = make(map[string]string, len(durations))
		for node, d := range durations {
			summary.NodeDurations[node] = d.Round(time.Millisecond).String()
		}
	}

	return summary
}
