package newsfeed

import (
	"context"
	"regexp"
	"strings"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// Query caps per layer keep the search fan-out bounded.
const (
	companyQueryCap  = 5
	industryQueryCap = 5
	macroQueryCap    = 4
)

// companyQueryTails qualify the company terms into announcement, research
// and corporate-action searches.
var companyQueryTails = []string{
	"公告", "新闻", "研报", "投资者关系", "定增", "并购", "利润预警",
	"中报", "年报", "分红", "回购", "减持",
}

// searchJob is one search-page fetch tagged with its query layer.
type searchJob struct {
	URL   string
	Layer string
}

// buildSearchJobs assembles the layered query plan: company terms first,
// then expanded industry keywords, then macro themes.
func (s *Service) buildSearchJobs(ctx context.Context, t *Tuning, stockCode, stockName, industry string) []searchJob {
	var jobs []searchJob

	var compTerms []string
	if stockName != "" {
		compTerms = append(compTerms, stockName)
	}
	if stockCode != "" {
		compTerms = append(compTerms, stockCode)
	}
	if len(compTerms) > 0 {
		base := strings.Join(compTerms, " ")
		count := 0
		for _, tail := range companyQueryTails {
			if count >= companyQueryCap {
				break
			}
			jobs = append(jobs, searchJob{URL: searchURL(base + " " + tail), Layer: models.NewsLayerCompany})
			count++
		}
	}

	indBases := s.expandIndustryTerms(ctx, t, industryBases(industry))
	count := 0
induery:
	for _, base := range indBases {
		for _, tail := range t.IndustryQueryTails {
			if count >= industryQueryCap {
				break induery
			}
			jobs = append(jobs, searchJob{URL: searchURL(base + " " + tail), Layer: models.NewsLayerIndustry})
			count++
		}
	}

	count = 0
	for _, tail := range t.MacroQueryTails {
		if count >= macroQueryCap {
			break
		}
		jobs = append(jobs, searchJob{URL: searchURL(tail), Layer: models.NewsLayerMacro})
		count++
	}
	return jobs
}

// industryBases splits a catalogue industry label into keyword bases.
func industryBases(industry string) []string {
	fields := strings.FieldsFunc(industry, func(r rune) bool {
		return r == '、' || r == '/' || r == ',' || r == '，' || r == ' '
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}

// expandIndustryTerms widens industry keywords with broader sector terms:
// first from the tuning file's upper-word map, then, when enabled, by
// asking the model. Order is preserved and duplicates dropped.
func (s *Service) expandIndustryTerms(ctx context.Context, t *Tuning, raw []string) []string {
	var out []string
	seen := make(map[string]bool)
	emit := func(term string) {
		if term != "" && !seen[term] {
			out = append(out, term)
			seen[term] = true
		}
	}

	for _, k := range raw {
		if k == "" {
			continue
		}
		emit(k)
		uppers := t.IndustryUpperMap[k]
		if len(uppers) == 0 && t.IndustryUpperLLMEnabled {
			uppers = s.proposeUpperTerms(ctx, k)
		}
		for _, u := range uppers {
			emit(u)
		}
	}
	return out
}

var upperTermSplitRe = regexp.MustCompile(`[，,\n]+`)

// proposeUpperTerms asks the model for broader sector terms covering the
// given industry. Responses are filtered to short distinct terms; any
// failure returns nothing and the raw keyword stands alone.
func (s *Service) proposeUpperTerms(ctx context.Context, term string) []string {
	prompt := "请给出'" + term + "'所属的上位行业词，不超过5个，用中文输出，使用逗号分隔，且只输出词本身。"
	resp, err := s.llm.Chat(ctx, []interfaces.Message{{Role: "user", Content: prompt}})
	if err != nil {
		s.logger.Warn().Err(err).Str("term", term).Msg("Industry term expansion failed")
		return nil
	}

	var out []string
	seen := make(map[string]bool)
	for _, part := range upperTermSplitRe.Split(resp, -1) {
		c := strings.Trim(strings.TrimSpace(part), "。；; ")
		if c == "" || c == term || len([]rune(c)) > 12 || seen[c] {
			continue
		}
		out = append(out, c)
		seen[c] = true
		if len(out) >= 5 {
			break
		}
	}
	return out
}
