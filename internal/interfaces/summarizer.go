package interfaces

import (
	"context"

	"github.com/lunahan/aestimo/internal/models"
)

// SummaryKind selects the objective-specific prompt template used for a
// table summary.
type SummaryKind string

const (
	SummaryInsight   SummaryKind = "insight"
	SummaryTechnical SummaryKind = "technical"
	SummaryFund      SummaryKind = "fund"
	SummaryNews      SummaryKind = "news"
)

// SummarizerService reduces tables and news corpora to bounded narrative
// summaries. Failures degrade, they do not propagate: a failed column
// selection keeps every column, a failed summary call yields a marker
// string the caller persists as-is.
type SummarizerService interface {
	// SelectColumns asks the model which columns matter for the objective.
	// Hallucinated names are dropped; any failure returns columns unchanged.
	SelectColumns(ctx context.Context, objective string, columns []string) []string

	// SummarizeTable renders the table compactly and produces a narrative
	// summary under the kind's template.
	SummarizeTable(ctx context.Context, objective string, table *models.Table, kind SummaryKind) string

	// SummarizeCorpus batches free-text items under the adaptive token
	// budget (inputRatio is the context-window fraction reserved for the
	// corpus) and concatenates the per-batch summaries.
	SummarizeCorpus(ctx context.Context, objective string, items []string, inputRatio float64) string
}
