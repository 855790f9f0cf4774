package models

// News layers, ordered from most to least company-specific.
const (
	NewsLayerCompany  = "company"
	NewsLayerIndustry = "industry"
	NewsLayerMacro    = "macro"
)

// Sentiment labels assigned to crawled news items.
const (
	SentimentPositive = "正面"
	SentimentNeutral  = "中性"
	SentimentNegative = "负面"
)

// ItemAnalysis is the per-item LLM read for priority or high-impact news.
type ItemAnalysis struct {
	KeyPoints  []string `json:"key_points"`
	Sentiment  string   `json:"sentiment"`
	Confidence *int     `json:"confidence"`
}

// NewsItem is one search hit after cleaning and enrichment. PublishedAt is
// a Beijing-time "2006-01-02 15:04" string, empty when no timestamp could
// be recovered.
type NewsItem struct {
	Title       string        `json:"title"`
	Snippet     string        `json:"snippet,omitempty"`
	URL         string        `json:"url"`
	Source      string        `json:"source,omitempty"`
	SourceNorm  string        `json:"source_norm,omitempty"`
	Level       string        `json:"level,omitempty"`
	PublishedAt string        `json:"published_at,omitempty"`
	PageText    string        `json:"page_text,omitempty"`
	Sentiment   string        `json:"sentiment,omitempty"`
	Reason      string        `json:"reason,omitempty"`
	Weight      float64       `json:"weight,omitempty"`
	Priority    bool          `json:"priority,omitempty"`
	Impact      int           `json:"impact,omitempty"`
	MacroEvent  bool          `json:"macro_event"`
	Sources     []string      `json:"sources,omitempty"`
	URLs        []string      `json:"urls,omitempty"`
	ItemSummary string        `json:"summary_per_item,omitempty"`
	ItemRead    *ItemAnalysis `json:"analysis_per_item,omitempty"`
}

// BestSource prefers the normalized source name over the raw one.
func (n NewsItem) BestSource() string {
	if n.SourceNorm != "" {
		return n.SourceNorm
	}
	return n.Source
}

// FirstURL returns the representative link: the first merged URL when the
// item absorbed duplicates, otherwise its own.
func (n NewsItem) FirstURL() string {
	if len(n.URLs) > 0 {
		return n.URLs[0]
	}
	return n.URL
}

// NewsEvidence is one source citation attached to a structured news read.
type NewsEvidence struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Source      string `json:"source"`
	Sentiment   string `json:"sentiment"`
	Impact      int    `json:"impact"`
	PublishedAt string `json:"published_at"`
}
