package summarizer

import "strings"

// Token budgeting for the batched news summary. The per-batch character cap
// is derived from the model context window, the fraction of it reserved for
// input corpus, and a chars-per-token estimate based on how CJK-heavy the
// corpus is.
const (
	// promptTokens is the budget reserved for the prompt scaffolding.
	promptTokens = 1200

	// outputTokens is the budget reserved for the model's answer.
	outputTokens = 1500

	// minTokenBudget is the floor on the input token budget.
	minTokenBudget = 8000

	// maxBatchChars is the hard upper bound on a single batch.
	maxBatchChars = 38000

	// minBatchChars is the floor on the computed cap.
	minBatchChars = 4000

	// cjkSampleItems bounds how many items feed the CJK ratio estimate.
	cjkSampleItems = 20
)

// cjkRatio estimates the share of CJK runes in the text.
func cjkRatio(text string) float64 {
	if text == "" {
		return 0
	}
	total := 0
	cjk := 0
	for _, r := range text {
		total++
		if r >= 0x4e00 && r <= 0x9fff {
			cjk++
		}
	}
	if total == 0 {
		return 0
	}
	return float64(cjk) / float64(total)
}

// batchCharCap computes the per-batch character cap for the given corpus.
// CJK-heavy text budgets ~1 char per token; latin-heavy text ~3.2.
func batchCharCap(items []string, contextWindow int, inputRatio float64) int {
	sample := items
	if len(sample) > cjkSampleItems {
		sample = sample[:cjkSampleItems]
	}
	charsPerToken := 3.2
	if cjkRatio(strings.Join(sample, "\n")) >= 0.2 {
		charsPerToken = 1.0
	}

	budget := int(float64(contextWindow)*inputRatio) - promptTokens - outputTokens
	if budget < minTokenBudget {
		budget = minTokenBudget
	}

	cap := int(float64(budget) * charsPerToken * 0.95)
	if cap > maxBatchChars {
		cap = maxBatchChars
	}
	if cap < minBatchChars {
		cap = minBatchChars
	}
	return cap
}

// batchByChars packs items greedily in order, joining with blank lines, so
// no batch exceeds maxChars. An item larger than the cap forms its own
// batch rather than being dropped.
func batchByChars(items []string, maxChars int) []string {
	batches := []string{}
	buf := []string{}
	cur := 0
	for _, item := range items {
		n := len(item)
		if len(buf) == 0 {
			buf = append(buf, item)
			cur = n
			continue
		}
		if cur+2+n <= maxChars {
			buf = append(buf, item)
			cur += 2 + n
			continue
		}
		batches = append(batches, strings.Join(buf, "\n\n"))
		buf = []string{item}
		cur = n
	}
	if len(buf) > 0 {
		batches = append(batches, strings.Join(buf, "\n\n"))
	}
	return batches
}
