package models

import (
	"encoding/json"
)

// ReportEnvelope wraps a persisted analyst report with save-time context.
// Timestamp uses the "2006-01-02 15:04:05" layout.
type ReportEnvelope struct {
	ReportType     string          `json:"report_type"`
	Timestamp      string          `json:"timestamp"`
	AnalysisPeriod string          `json:"analysis_period"`
	Data           json.RawMessage `json:"data"`
}

// ToolEnvelope wraps a persisted tool result. Structured payloads land in
// Data; payloads that are plain text (including JSON that fails to parse)
// land in Text instead.
type ToolEnvelope struct {
	Tool           string          `json:"tool"`
	Timestamp      string          `json:"timestamp"`
	AnalysisPeriod string          `json:"analysis_period"`
	Data           json.RawMessage `json:"data,omitempty"`
	Text           string          `json:"text,omitempty"`
}

// DecodeData unmarshals the envelope's structured payload into out.
func (e ToolEnvelope) DecodeData(out interface{}) error {
	return json.Unmarshal(e.Data, out)
}

// DecodeData unmarshals the envelope's report payload into out.
func (e ReportEnvelope) DecodeData(out interface{}) error {
	return json.Unmarshal(e.Data, out)
}

// RunSummary is the analysis_summary.json payload: an inventory of the run
// directory plus the supervisor's bias per horizon and per-node timings.
type RunSummary struct {
	StockCode     string                `json:"stock_code"`
	EndDate       string                `json:"end_date"`
	GeneratedAt   string                `json:"generated_at"`
	Artifacts     []string              `json:"artifacts"`
	Supervisor    *SupervisorEssentials `json:"supervisor,omitempty"`
	NodeDurations map[string]string     `json:"node_durations,omitempty"`
}

// SupervisorEssentials extracts the decision core of the supervisor report.
type SupervisorEssentials struct {
	Summary       string `json:"summary"`
	ShortTermBias string `json:"short_term_bias"`
	MidTermBias   string `json:"mid_term_bias"`
	LongTermBias  string `json:"long_term_bias"`
}
