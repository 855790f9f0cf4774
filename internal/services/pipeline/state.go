package pipeline

import (
	"sync"

	"github.com/lunahan/aestimo/internal/models"
)

// Well-known state keys. Nodes write disjoint keys; the scheduler merges
// their partial updates under the state lock.
const (
	KeyStockCode         = "stock_code"
	KeyStockName         = "stock_name"
	KeyEndDate           = "end_date"
	KeyNewsSummary       = "news_summary"
	KeyFundamentalReport = "fundamental_report"
	KeyTechnicalReport   = "technical_report"
	KeySentimentReport   = "sentiment_report"
	KeyNewsReport        = "news_report"
	KeyFundReport        = "fund_report"
	KeyBullReport        = "bull_report"
	KeyBearReport        = "bear_report"
	KeyDebateReport      = "debate_report"
	KeySupervisorReport  = "supervisor_report"
	KeyAnalysisSummary   = "analysis_summary"
)

// State is the mutex-guarded key/value map flowing through the DAG.
type State struct {
	mu     sync.RWMutex
	values map[string]interface{}
}

// NewState seeds a run's state with its identity keys.
func NewState(seed map[string]interface{}) *State {
	values := make(map[string]interface{}, len(seed))
	for k, v := range seed {
		values[k] = v
	}
	return &State{values: values}
}

// Merge folds a node's partial updates into the state.
func (s *State) Merge(updates map[string]interface{}) {
	if len(updates) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for k, v := range updates {
		s.values[k] = v
	}
}

// Get returns the raw value stored under key.
func (s *State) Get(key string) (interface{}, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// String returns the string stored under key, or "".
func (s *State) String(key string) string {
	v, ok := s.Get(key)
	if !ok {
		return ""
	}
	str, _ := v.(string)
	return str
}

// Report returns the analyst report stored under key, or nil.
func (s *State) Report(key string) *models.AnalystReport {
	v, ok := s.Get(key)
	if !ok {
		return nil
	}
	report, _ := v.(*models.AnalystReport)
	return report
}

// Debater returns the debater report stored under key, or nil.
func (s *State) Debater(key string) *models.DebaterReport {
	v, ok := s.Get(key)
	if !ok {
		return nil
	}
	report, _ := v.(*models.DebaterReport)
	return report
}

// SupervisorReport returns the supervisor report, or nil.
func (s *State) SupervisorReport() *models.SupervisorReport {
	v, ok := s.Get(KeySupervisorReport)
	if !ok {
		return nil
	}
	report, _ := v.(*models.SupervisorReport)
	return report
}

// Snapshot copies the current state map.
func (s *State) Snapshot() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make(map[string]interface{}, len(s.values))
	for k, v := range s.values {
		out[k] = v
	}
	return out
}
