package models

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Interface outcome status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Analysis type labels carried in acquisition results.
const (
	AnalysisTypeFundamental = "基本面数据分析"
	AnalysisTypeFund        = "资金流向数据分析"
	AnalysisTypeTechnical   = "技术数据分析"
	AnalysisTypeNews        = "新闻数据分析"
)

// summaryErrorMarkers flag an interface summary as failed even when the
// producing goroutine returned no error, e.g. a summarizer that embedded
// its failure message in the text.
var summaryErrorMarkers = []string{
	MarkerReportError,
	MarkerSummaryError,
	MarkerFetchError,
	MarkerVendorError,
}

// StatusForSummary classifies a summary text by scanning for known
// failure markers.
func StatusForSummary(summary string) string {
	for _, marker := range summaryErrorMarkers {
		if strings.Contains(summary, marker) {
			return StatusError
		}
	}
	return StatusSuccess
}

// InterfaceResult is one data interface's contribution to a tool result:
// the narrative summary plus the raw rows it was built from.
type InterfaceResult struct {
	Objective string                   `json:"objective"`
	Result    string                   `json:"result"`
	Raw       []map[string]interface{} `json:"raw"`
	Status    string                   `json:"status"`
}

// InterfaceMap is an insertion-ordered map of interface name to result.
// Order survives JSON round trips so downstream consumers always see
// interfaces in the order the acquisition group declares them.
type InterfaceMap struct {
	names   []string
	entries map[string]InterfaceResult
}

// Set stores a result under name, appending the name on first use.
func (m *InterfaceMap) Set(name string, r InterfaceResult) {
	if m.entries == nil {
		m.entries = make(map[string]InterfaceResult)
	}
	if _, ok := m.entries[name]; !ok {
		m.names = append(m.names, name)
	}
	m.entries[name] = r
}

// Get returns the result stored under name.
func (m *InterfaceMap) Get(name string) (InterfaceResult, bool) {
	r, ok := m.entries[name]
	return r, ok
}

// Names returns the interface names in insertion order.
func (m *InterfaceMap) Names() []string {
	out := make([]string, len(m.names))
	copy(out, m.names)
	return out
}

// Len returns the number of stored interfaces.
func (m *InterfaceMap) Len() int {
	return len(m.names)
}

// Counts tallies the stored interfaces by status.
func (m *InterfaceMap) Counts() InterfaceCounts {
	c := InterfaceCounts{TotalInterfaces: m.Len()}
	for _, name := range m.names {
		switch m.entries[name].Status {
		case StatusSuccess:
			c.SuccessfulInterfaces++
		case StatusError:
			c.ErrorInterfaces++
		}
	}
	return c
}

// MarshalJSON writes the map as a JSON object in insertion order.
func (m InterfaceMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, name := range m.names {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(name)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		val, err := json.Marshal(m.entries[name])
		if err != nil {
			return nil, err
		}
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object preserving its key order.
func (m *InterfaceMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("interfaces: expected JSON object, got %v", tok)
	}
	m.names = nil
	m.entries = make(map[string]InterfaceResult)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return err
		}
		name, ok := keyTok.(string)
		if !ok {
			return fmt.Errorf("interfaces: expected string key, got %v", keyTok)
		}
		var r InterfaceResult
		if err := dec.Decode(&r); err != nil {
			return err
		}
		m.Set(name, r)
	}
	_, err = dec.Token()
	return err
}

// InterfaceCounts tallies interface outcomes for a tool result.
type InterfaceCounts struct {
	TotalInterfaces      int `json:"total_interfaces"`
	SuccessfulInterfaces int `json:"successful_interfaces"`
	ErrorInterfaces      int `json:"error_interfaces"`
}

// ToolResult is the structured output of one acquisition group.
// CompanyOverview is only carried by the fundamental group (always present
// there, even when empty) and CombinedSummary only by the news group.
type ToolResult struct {
	AnalysisType    string          `json:"analysis_type"`
	CompanyOverview []string        `json:"company_overview,omitzero"`
	CombinedSummary string          `json:"combined_summary,omitempty"`
	Interfaces      InterfaceMap    `json:"interfaces"`
	Summary         InterfaceCounts `json:"summary"`
}

// statusIcon marks each interface section in the flat text rendering.
func statusIcon(status string) string {
	switch status {
	case StatusSuccess:
		return "✅"
	case StatusError:
		return "❌"
	default:
		return "⚠️"
	}
}

// AsText renders the structured result as the flat text handed to analyst
// prompts: an optional company overview block followed by one section per
// interface, all joined by "\n---\n".
func (r ToolResult) AsText() string {
	var parts []string
	if len(r.CompanyOverview) > 0 {
		parts = append(parts, "公司概况：\n"+strings.Join(r.CompanyOverview, "\n---\n"))
	}
	if r.Interfaces.Len() > 0 {
		analysisType := r.AnalysisType
		if analysisType == "" {
			analysisType = "数据分析"
		}
		sections := make([]string, 0, r.Interfaces.Len())
		for _, name := range r.Interfaces.Names() {
			entry, _ := r.Interfaces.Get(name)
			sections = append(sections, fmt.Sprintf("%s【%s】\n%s", statusIcon(entry.Status), entry.Objective, entry.Result))
		}
		parts = append(parts, analysisType+"：\n"+strings.Join(sections, "\n---\n"))
	}
	if len(parts) == 0 {
		b, err := json.Marshal(r)
		if err != nil {
			return ""
		}
		return string(b)
	}
	return strings.Join(parts, "\n---\n")
}

// GroupError is the envelope saved when an entire acquisition group fails
// before producing per-interface results.
type GroupError struct {
	AnalysisType string `json:"analysis_type"`
	Error        string `json:"error"`
}

// SentimentInput is the snapshot of upstream material assembled for the
// sentiment analyst, persisted alongside the reports for traceability.
type SentimentInput struct {
	StockCode       string `json:"stock_code"`
	EndDate         string `json:"end_date"`
	NewsCombined    string `json:"news_combined_summary"`
	FundamentalText string `json:"fundamental_result"`
}
