// -----------------------------------------------------------------------
// Report Schemas - Structured LLM outputs for analyst, debate and
// supervisor stages. Unknown JSON fields are preserved on round-trip.
// -----------------------------------------------------------------------

package models

import (
	"encoding/json"

	"github.com/go-playground/validator/v10"
)

// Viewpoint values emitted by analyst and debate reports.
const (
	ViewpointBull    = "看多"
	ViewpointBear    = "看空"
	ViewpointNeutral = "中性"
)

// Analyst display names carried in report payloads.
const (
	AnalystNameFundamental = "基本面分析师"
	AnalystNameTechnical   = "技术分析师"
	AnalystNameSentiment   = "情绪分析师"
	AnalystNameNews        = "新闻分析师"
	AnalystNameFund        = "资金分析师"
	AnalystNameSupervisor  = "总决策分析师"
	AnalystNameBull        = "看涨派分析师"
	AnalystNameBear        = "看跌派分析师"
	AnalystNameDebateJudge = "首席投资分析师"
	AnalystNameFailed      = "分析失败"
)

// Perspective identifies one analysis dimension of the pipeline.
type Perspective string

const (
	PerspectiveFundamental Perspective = "fundamental"
	PerspectiveTechnical   Perspective = "technical"
	PerspectiveSentiment   Perspective = "sentiment"
	PerspectiveNews        Perspective = "news"
	PerspectiveFund        Perspective = "fund"
)

// scoreKeys fixes the score dimensions each perspective must emit.
var scoreKeys = map[Perspective][]string{
	PerspectiveFundamental: {"profitability", "solvency", "growth_potential"},
	PerspectiveTechnical:   {"trend_strength", "momentum", "support_resistance", "volume_analysis", "pattern_analysis"},
	PerspectiveSentiment:   {"market_heat", "investor_sentiment", "institution_opinion"},
	PerspectiveNews:        {"sentiment_score", "news_impact", "market_attention"},
	PerspectiveFund:        {"main_capital", "institution_capital", "retail_capital"},
}

// ScoreKeysFor returns the required score keys for a perspective.
func ScoreKeysFor(p Perspective) []string {
	keys := scoreKeys[p]
	out := make([]string, len(keys))
	copy(out, keys)
	return out
}

// AnalystName returns the display name a perspective reports under.
func (p Perspective) AnalystName() string {
	switch p {
	case PerspectiveFundamental:
		return AnalystNameFundamental
	case PerspectiveTechnical:
		return AnalystNameTechnical
	case PerspectiveSentiment:
		return AnalystNameSentiment
	case PerspectiveNews:
		return AnalystNameNews
	case PerspectiveFund:
		return AnalystNameFund
	default:
		return string(p)
	}
}

// AnalystReport is the structured output of a single-perspective analyst.
type AnalystReport struct {
	AnalystName      string         `json:"analyst_name" validate:"required"`
	Viewpoint        string         `json:"viewpoint" validate:"required,oneof=看多 看空 中性"`
	Reason           string         `json:"reason"`
	Scores           map[string]int `json:"scores" validate:"dive,min=0,max=5"`
	DetailedAnalysis string         `json:"detailed_analysis"`

	// Extra preserves fields the model emitted beyond the schema so a
	// round-trip through the artifact store loses nothing.
	Extra map[string]json.RawMessage `json:"-"`
}

var analystKnownKeys = map[string]bool{
	"analyst_name":      true,
	"viewpoint":         true,
	"reason":            true,
	"scores":            true,
	"detailed_analysis": true,
}

// UnmarshalJSON decodes known fields and captures the remainder in Extra.
func (r *AnalystReport) UnmarshalJSON(data []byte) error {
	type alias AnalystReport
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	*r = AnalystReport(known)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if !analystKnownKeys[k] {
			if r.Extra == nil {
				r.Extra = map[string]json.RawMessage{}
			}
			r.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON re-emits known fields plus any preserved extras.
func (r AnalystReport) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"analyst_name":      r.AnalystName,
		"viewpoint":         r.Viewpoint,
		"reason":            r.Reason,
		"scores":            r.Scores,
		"detailed_analysis": r.DetailedAnalysis,
	}
	for k, v := range r.Extra {
		out[k] = v
	}
	return json.Marshal(out)
}

// Validate validates the report schema using go-playground/validator.
func (r *AnalystReport) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ClampScores forces every score into [0, 5].
func (r *AnalystReport) ClampScores() {
	for k, v := range r.Scores {
		if v < 0 {
			r.Scores[k] = 0
		} else if v > 5 {
			r.Scores[k] = 5
		}
	}
}

// FallbackReport is the sentinel produced when LLM output cannot be parsed.
// The head of the raw content is kept for diagnosis.
func FallbackReport(content string) *AnalystReport {
	head := []rune(content)
	if len(head) > 200 {
		head = head[:200]
	}
	return &AnalystReport{
		AnalystName:      AnalystNameFailed,
		Viewpoint:        ViewpointNeutral,
		Reason:           "数据解析失败",
		Scores:           map[string]int{},
		DetailedAnalysis: "解析失败: " + string(head) + "...",
	}
}

// DebaterReport is one side's output in the bull/bear debate stage.
type DebaterReport struct {
	AnalystName    string   `json:"analyst_name" validate:"required"`
	Viewpoint      string   `json:"viewpoint" validate:"required,oneof=看多 看空 中性"`
	CoreArguments  []string `json:"core_arguments"`
	Rebuttals      []string `json:"rebuttals"`
	FinalStatement string   `json:"final_statement"`
}

// Validate validates the debater schema.
func (r *DebaterReport) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// ScoreComparison carries the average bull and bear scores the debate judge
// computed. Models emit these as numbers or numeric strings; json.Number
// accepts both.
type ScoreComparison struct {
	BullAvgScore json.Number `json:"bull_avg_score"`
	BearAvgScore json.Number `json:"bear_avg_score"`
}

// DebateReport is the judge's synthesis of the bull/bear debate.
type DebateReport struct {
	AnalystName     string          `json:"analyst_name" validate:"required"`
	BullSummary     []string        `json:"bull_summary"`
	BearSummary     []string        `json:"bear_summary"`
	ScoreComparison ScoreComparison `json:"score_comparison"`
	FinalViewpoint  string          `json:"final_viewpoint" validate:"required,oneof=强烈看多 看多 中性 看空 强烈看空"`
	FinalReason     string          `json:"final_reason"`
}

// Validate validates the debate schema.
func (r *DebateReport) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// HorizonForecast is the supervisor's call for one time horizon.
type HorizonForecast struct {
	Bias       string   `json:"bias" validate:"required,oneof=看多 看空 中性"`
	Prediction string   `json:"prediction"`
	Suggestion string   `json:"suggestion"`
	Reason     string   `json:"reason"`
	Risks      []string `json:"risks"`
}

// SupervisorForecast spans the short (1-2周), mid (1-3个月) and long (6个月以上)
// horizons.
type SupervisorForecast struct {
	ShortTerm HorizonForecast `json:"short_term" validate:"required"`
	MidTerm   HorizonForecast `json:"mid_term" validate:"required"`
	LongTerm  HorizonForecast `json:"long_term" validate:"required"`
}

// SupervisorReport is the final decision synthesis across all perspectives.
type SupervisorReport struct {
	AnalystName string             `json:"analyst_name" validate:"required"`
	Summary     string             `json:"summary" validate:"required"`
	Forecast    SupervisorForecast `json:"forecast" validate:"required"`

	Extra map[string]json.RawMessage `json:"-"`
}

var supervisorKnownKeys = map[string]bool{
	"analyst_name": true,
	"summary":      true,
	"forecast":     true,
}

// UnmarshalJSON decodes known fields and captures the remainder in Extra.
func (r *SupervisorReport) UnmarshalJSON(data []byte) error {
	type alias SupervisorReport
	var known alias
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}
	*r = SupervisorReport(known)

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	for k, v := range raw {
		if !supervisorKnownKeys[k] {
			if r.Extra == nil {
				r.Extra = map[string]json.RawMessage{}
			}
			r.Extra[k] = v
		}
	}
	return nil
}

// MarshalJSON re-emits known fields plus any preserved extras.
func (r SupervisorReport) MarshalJSON() ([]byte, error) {
	out := map[string]interface{}{
		"analyst_name": r.AnalystName,
		"summary":      r.Summary,
		"forecast":     r.Forecast,
	}
	for k, v := range r.Extra {
		out[k] = v
	}
	return json.Marshal(out)
}

// Validate validates the supervisor schema.
func (r *SupervisorReport) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// FallbackSupervisorReport is the sentinel when supervisor output cannot be
// parsed.
func FallbackSupervisorReport(content string) *SupervisorReport {
	head := []rune(content)
	if len(head) > 200 {
		head = head[:200]
	}
	neutral := HorizonForecast{Bias: ViewpointNeutral, Reason: "数据解析失败"}
	return &SupervisorReport{
		AnalystName: AnalystNameFailed,
		Summary:     "解析失败: " + string(head) + "...",
		Forecast: SupervisorForecast{
			ShortTerm: neutral,
			MidTerm:   neutral,
			LongTerm:  neutral,
		},
	}
}
