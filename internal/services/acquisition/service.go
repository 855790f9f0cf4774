package acquisition

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/services/summarizer"
)

// maxGroupWorkers bounds the per-group fan-out regardless of how many
// interfaces the group declares.
const maxGroupWorkers = 10

// Service acquires the four analysis groups from the pinned provider,
// summarizes each interface's table, and persists one tool result per
// group. Interface-level failures degrade to status=error entries; only a
// missing provider fails a group call outright.
type Service struct {
	registry   interfaces.ProviderRegistry
	summarizer interfaces.SummarizerService
	artifacts  interfaces.ArtifactStore
	catalog    interfaces.CatalogService
	logger     arbor.ILogger
}

var _ interfaces.AcquisitionService = (*Service)(nil)

// NewService creates the acquisition service.
func NewService(
	registry interfaces.ProviderRegistry,
	sum interfaces.SummarizerService,
	artifacts interfaces.ArtifactStore,
	catalog interfaces.CatalogService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		registry:   registry,
		summarizer: sum,
		artifacts:  artifacts,
		catalog:    catalog,
		logger:     logger,
	}
}

// FetchFundamental acquires the statement and valuation interfaces plus
// the company overview over the two-year window ending at end.
func (s *Service) FetchFundamental(ctx context.Context, stockCode string, end time.Time) (*models.ToolResult, error) {
	market, err := s.registry.Market()
	if err != nil {
		return nil, err
	}

	specs := fundamentalSpecs()
	ifaces := s.runMarketGroup(ctx, market, specs, poolSize(len(specs)), stockCode, end)

	overview := s.catalog.OverviewLines(stockCode)
	if overview == nil {
		overview = []string{}
	}

	result := &models.ToolResult{
		AnalysisType:    models.AnalysisTypeFundamental,
		CompanyOverview: overview,
		Interfaces:      ifaces,
		Summary:         ifaces.Counts(),
	}
	s.persist(stockCode, end, interfaces.ToolFundamental, result)
	return result, nil
}

// FetchTechnical acquires bars, factor indicators, valuation and the
// limit-up history.
func (s *Service) FetchTechnical(ctx context.Context, stockCode string, end time.Time) (*models.ToolResult, error) {
	market, err := s.registry.Market()
	if err != nil {
		return nil, err
	}

	ifaces := s.runMarketGroup(ctx, market, technicalSpecs(), 4, stockCode, end)

	result := &models.ToolResult{
		AnalysisType: models.AnalysisTypeTechnical,
		Interfaces:   ifaces,
		Summary:      ifaces.Counts(),
	}
	s.persist(stockCode, end, interfaces.ToolTechnical, result)
	return result, nil
}

// FetchFund acquires holder structure and money-flow interfaces.
func (s *Service) FetchFund(ctx context.Context, stockCode string, end time.Time) (*models.ToolResult, error) {
	market, err := s.registry.Market()
	if err != nil {
		return nil, err
	}

	specs := fundSpecs()
	ifaces := s.runMarketGroup(ctx, market, specs, poolSize(len(specs)), stockCode, end)

	result := &models.ToolResult{
		AnalysisType: models.AnalysisTypeFund,
		Interfaces:   ifaces,
		Summary:      ifaces.Counts(),
	}
	s.persist(stockCode, end, interfaces.ToolFund, result)
	return result, nil
}

// runMarketGroup fans the specs out over a bounded worker pool and collects
// the results in declaration order regardless of completion order.
func (s *Service) runMarketGroup(ctx context.Context, src interfaces.MarketDataProvider, specs []marketSpec, workers int, stockCode string, end time.Time) models.InterfaceMap {
	results := make([]models.InterfaceResult, len(specs))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup
	for i := range specs {
		wg.Add(1)
		go func(i int, spec marketSpec) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = s.processMarket(ctx, src, spec, stockCode, end)
		}(i, specs[i])
	}
	wg.Wait()

	var m models.InterfaceMap
	for i, spec := range specs {
		m.Set(spec.Name, results[i])
	}
	return m
}

// processMarket fetches one interface's table and reduces it to a summary.
// Empty windows are a normal outcome, not an error.
func (s *Service) processMarket(ctx context.Context, src interfaces.MarketDataProvider, spec marketSpec, stockCode string, end time.Time) models.InterfaceResult {
	s.logger.Debug().
		Str("interface", spec.Name).
		Str("objective", spec.Objective).
		Str("stock_code", stockCode).
		Msg("Processing data interface")

	table, err := spec.Fetch(ctx, src, stockCode, end)
	if err != nil {
		s.logger.Warn().Err(err).Str("interface", spec.Name).Msg("Interface fetch failed")
		return s.entry(spec.Objective, fmt.Sprintf("【%s】: %s - %v", spec.Objective, models.MarkerFetchError, err), nil)
	}

	if table.IsEmpty() {
		w := common.WindowFromEnd(end)
		summary := fmt.Sprintf("【%s】: 在%s到%s之间%s数据为空%s",
			spec.Objective, w.StartCompact(), w.EndCompact(), spec.Objective, spec.EmptyNote)
		return s.entry(spec.Objective, summary, table)
	}

	return s.entry(spec.Objective, s.composeSummary(ctx, spec.Objective, table, spec.Kind), table)
}

// composeSummary runs the table through the summarizer and applies the
// objective header.
func (s *Service) composeSummary(ctx context.Context, objective string, table *models.Table, kind interfaces.SummaryKind) string {
	text := s.summarizer.SummarizeTable(ctx, objective, table, kind)
	if text == summarizer.NoRelevantColumns {
		return fmt.Sprintf("【%s】: %s", objective, text)
	}
	return fmt.Sprintf("【%s】\n%s", objective, text)
}

// entry assembles one interface result; status is derived from the summary
// text so summarizer failures embedded in the narrative still classify as
// errors.
func (s *Service) entry(objective, summary string, table *models.Table) models.InterfaceResult {
	raw := table.Records()
	return models.InterfaceResult{
		Objective: objective,
		Result:    summary,
		Raw:       raw,
		Status:    models.StatusForSummary(summary),
	}
}

// persist writes the group's tool result artifact. Persistence failures are
// logged, not propagated: the in-memory result still feeds the pipeline.
func (s *Service) persist(stockCode string, end time.Time, name string, result *models.ToolResult) {
	date := end.Format(common.DateCompact)
	period := common.WindowFromEnd(end).AnalysisPeriod()
	if err := s.artifacts.SaveToolResult(stockCode, date, name, period, result); err != nil {
		s.logger.Error().Err(err).
			Str("artifact", name).
			Str("stock_code", stockCode).
			Msg("Failed to persist tool result")
	}
}

// poolSize allows one worker per interface plus one, capped.
func poolSize(n int) int {
	if n+1 < maxGroupWorkers {
		return n + 1
	}
	return maxGroupWorkers
}
