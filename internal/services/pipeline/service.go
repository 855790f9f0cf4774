package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/ternarybob/arbor"
)

// Service orchestrates one full analysis run: acquisition tools, the five
// perspective analysts, the optional bull/bear debate, the supervisor and
// the final result save, executed as a dependency DAG with contained
// per-node failures.
type Service struct {
	cfg         *common.Config
	acquisition interfaces.AcquisitionService
	analysts    interfaces.AnalystService
	newsfeed    interfaces.NewsfeedService
	artifacts   interfaces.ArtifactStore
	catalog     interfaces.CatalogService
	events      interfaces.EventService
	logger      arbor.ILogger
}

func NewService(
	cfg *common.Config,
	acquisition interfaces.AcquisitionService,
	analysts interfaces.AnalystService,
	newsfeed interfaces.NewsfeedService,
	artifacts interfaces.ArtifactStore,
	catalog interfaces.CatalogService,
	events interfaces.EventService,
	logger arbor.ILogger,
) *Service {
	return &Service{
		cfg:         cfg,
		acquisition: acquisition,
		analysts:    analysts,
		newsfeed:    newsfeed,
		artifacts:   artifacts,
		catalog:     catalog,
		events:      events,
		logger:      logger,
	}
}

// nodeStateKey maps each node to the state key it publishes; the value
// under that key is carried on the node's analysis_result frame.
var nodeStateKey = map[string]string{
	NodeFundamental: KeyFundamentalReport,
	NodeTechnical:   KeyTechnicalReport,
	NodeSentiment:   KeySentimentReport,
	NodeNews:        KeyNewsReport,
	NodeFund:        KeyFundReport,
	NodeBull:        KeyBullReport,
	NodeBear:        KeyBearReport,
	NodeDebate:      KeyDebateReport,
	NodeSupervisor:  KeySupervisorReport,
	NodeFinalSave:   KeyAnalysisSummary,
}

// Run executes the analysis DAG for one stock and returns the run
// summary. Node failures are contained and streamed as error frames; the
// returned error covers only pipeline-level faults (a malformed graph or
// a failed final save). The stream always ends with the terminal frame.
func (s *Service) Run(ctx context.Context, stockCode, endDate, threadID string) (summary *models.RunSummary, err error) {
	if threadID == "" {
		threadID = common.NewThreadID()
	}
	runID := common.NewRunID()
	em := newEmitter(s.events, threadID, runID)

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("analysis pipeline panicked: %v", r)
		}
		if err != nil {
			em.fatal(err)
		}
		em.terminal()
	}()

	window := common.WindowFromEnd(common.ParseFlexibleDate(endDate))
	run := &runContext{
		svc:       s,
		em:        em,
		stockCode: stockCode,
		stockName: s.catalog.StockName(stockCode),
		window:    window,
		threadID:  threadID,
		runID:     runID,
		durations: make(map[string]time.Duration),
	}

	s.logger.Info().
		Str("stock_code", stockCode).
		Str("stock_name", run.stockName).
		Str("end_date", window.EndDash()).
		Str("thread_id", threadID).
		Bool("debate", s.cfg.Pipeline.DebateEnabled).
		Msg("Starting analysis run")

	st := NewState(map[string]interface{}{
		KeyStockCode: stockCode,
		KeyStockName: run.stockName,
		KeyEndDate:   window.EndDash(),
	})

	graph, err := run.buildGraph(s.cfg.Pipeline.DebateEnabled)
	if err != nil {
		return nil, err
	}

	started := make(map[string]time.Time)
	hooks := Hooks{
		OnNodeStart: func(name string) {
			started[name] = time.Now()
			em.nodeStarted(name)
		},
		OnNodeEnd: func(name string, updates map[string]interface{}, nodeErr error) {
			if begun, ok := started[name]; ok {
				run.recordDuration(name, time.Since(begun))
			}
			if nodeErr != nil {
				s.logger.Error().
					Err(nodeErr).
					Str("node", name).
					Str("stock_code", stockCode).
					Msg("Analysis node failed")
				em.nodeFailed(name, nodeErr)
				return
			}
			report := updates[nodeStateKey[name]]
			em.nodeCompleted(name, marshalContent(report), resultData(name, report))
		},
	}

	if err := graph.Run(ctx, st, hooks); err != nil {
		return nil, err
	}

	value, _ := st.Get(KeyAnalysisSummary)
	summary, _ = value.(*models.RunSummary)
	if summary == nil {
		return nil, fmt.Errorf("final result save produced no summary for %s", stockCode)
	}

	s.logger.Info().
		Str("stock_code", stockCode).
		Int("artifacts", len(summary.Artifacts)).
		Msg("Analysis run complete")
	return summary, nil
}

// runContext carries one run's identity through the node closures.
type runContext struct {
	svc       *Service
	em        *emitter
	stockCode string
	stockName string
	window    common.Window
	threadID  string
	runID     string

	mu        sync.Mutex
	durations map[string]time.Duration
}

func (r *runContext) recordDuration(node string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.durations[node] = d
}

func (r *runContext) durationSnapshot() map[string]time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]time.Duration, len(r.durations))
	for k, v := range r.durations {
		out[k] = v
	}
	return out
}

func (r *runContext) analystRequest(agent string) interfaces.AnalystRequest {
	return interfaces.AnalystRequest{
		StockCode:      r.stockCode,
		Date:           r.window.EndCompact(),
		AnalysisPeriod: r.window.AnalysisPeriod(),
		ThreadID:       r.threadID,
		RunID:          r.runID,
		Agent:          agent,
	}
}

// buildGraph wires the analysis DAG. The four acquisition-backed analysts
// are roots; sentiment joins fundamental and news; the supervisor joins
// every perspective; the final save closes the run. The debate stage,
// when enabled, fans out after the five analysts and gates the final
// save alongside the supervisor.
func (r *runContext) buildGraph(debate bool) (*Graph, error) {
	type step struct {
		name string
		deps []string
		run  NodeFunc
	}

	steps := []step{
		{NodeFundamental, nil, r.fundamentalNode},
		{NodeNews, nil, r.newsNode},
		{NodeTechnical, nil, r.technicalNode},
		{NodeFund, nil, r.fundNode},
		{NodeSentiment, []string{NodeFundamental, NodeNews}, r.sentimentNode},
	}

	finalDeps := []string{NodeSupervisor}
	if debate {
		perspectives := []string{NodeFundamental, NodeTechnical, NodeSentiment, NodeNews, NodeFund}
		steps = append(steps,
			step{NodeBull, perspectives, r.bullNode},
			step{NodeBear, perspectives, r.bearNode},
			step{NodeDebate, []string{NodeBull, NodeBear}, r.debateNode},
		)
		finalDeps = append(finalDeps, NodeDebate)
	}

	steps = append(steps,
		step{NodeSupervisor, []string{NodeSentiment, NodeTechnical, NodeFund, NodeFundamental}, r.supervisorNode},
		step{NodeFinalSave, finalDeps, r.finalSaveNode},
	)

	g := NewGraph()
	for _, s := range steps {
		if err := g.Add(s.name, s.deps, s.run); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// marshalContent renders a node's report for its analysis_result frame.
func marshalContent(report interface{}) string {
	if report == nil {
		return ""
	}
	data, err := json.Marshal(report)
	if err != nil {
		return ""
	}
	return string(data)
}
