package newsfeed

import (
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"gopkg.in/yaml.v3"
)

// Tuning is one immutable snapshot of the crawler's scoring and query
// behavior. Callers take a snapshot per analysis run; the loader swaps the
// whole value on file change, never mutates one in place.
type Tuning struct {
	WindowDays int
	TopK       int

	SourceWeights map[string]float64
	DomainWeights map[string]float64
	SourceAliases map[string]string
	DomainAliases map[string]string

	PosWords []string
	NegWords []string
	NeuWords []string

	PriorityKeywords []string
	priorityRe       *regexp.Regexp

	IndustryUpperMap        map[string][]string
	IndustryUpperLLMEnabled bool

	IndustryQueryTails []string
	MacroQueryTails    []string

	LayerWeights    map[string]float64
	MacroEventBoost float64
	MacroEventWords []string
}

// PriorityRegexp matches titles that carry announcement or regulatory
// keywords; such items sort ahead of everything else.
func (t *Tuning) PriorityRegexp() *regexp.Regexp {
	return t.priorityRe
}

// LayerWeight returns the layer's score multiplier; company weight for an
// unknown layer.
func (t *Tuning) LayerWeight(layer string) float64 {
	if w, ok := t.LayerWeights[layer]; ok {
		return w
	}
	return t.LayerWeights["company"]
}

// defaultTuning mirrors the embedded defaults; the YAML file overrides
// individual keys.
func defaultTuning() *Tuning {
	t := &Tuning{
		WindowDays: 3,
		TopK:       10,
		SourceWeights: map[string]float64{
			"上海证券报": 1.2, "证券时报": 1.2, "中国证券报": 1.2,
			"上证报": 1.2, "中国证监会": 1.3, "交易所": 1.25,
			"深圳证券交易所": 1.25, "上海证券交易所": 1.25,
			"财联社": 1.15, "券商中国": 1.1, "同花顺": 1.05, "东方财富": 1.05,
		},
		DomainWeights: map[string]float64{
			"cs.com.cn": 1.2, "cnstock.com": 1.2, "csrc.gov.cn": 1.3,
			"sse.com.cn": 1.25, "szse.cn": 1.25, "cls.cn": 1.15,
			"10jqka.com.cn": 1.05, "eastmoney.com": 1.05,
		},
		SourceAliases: map[string]string{
			"上证报": "上海证券报", "上海证券报": "上海证券报", "中国证券网": "上海证券报",
			"证券时报": "证券时报", "证券时报网": "证券时报",
			"中国证券报": "中国证券报", "中证网": "中国证券报",
			"东方财富": "东方财富", "东方财富网": "东方财富",
			"同花顺": "同花顺", "同花顺财经": "同花顺",
			"财联社": "财联社", "CLS": "财联社", "券商中国": "券商中国",
			"证券日报": "证券日报",
			"上交所": "上海证券交易所", "上海证券交易所": "上海证券交易所",
			"深交所": "深圳证券交易所", "深圳证券交易所": "深圳证券交易所",
			"证监会": "中国证监会", "中国证监会": "中国证监会",
		},
		DomainAliases: map[string]string{
			"cnstock.com": "上海证券报", "cs.com.cn": "证券时报",
			"csrc.gov.cn": "中国证监会", "sse.com.cn": "上海证券交易所",
			"szse.cn": "深圳证券交易所", "eastmoney.com": "东方财富",
			"10jqka.com.cn": "同花顺", "cls.cn": "财联社",
			"people.cn": "人民网", "xinhuanet.com": "新华社",
		},
		PosWords: []string{
			"增持", "回购", "超预期", "上调", "利好", "签约", "中标", "获批", "突破", "增长",
			"创新高", "涨停", "提价", "盈利改善", "产能扩张", "政策支持", "订单充足",
		},
		NegWords: []string{
			"减持", "限售解禁", "下调", "利空", "亏损", "违规", "问询函", "处罚", "被调查",
			"下滑", "爆雷", "停牌", "诉讼", "资产减值", "延期", "产线停工", "业绩预亏",
		},
		NeuWords: []string{"发布", "公告", "披露", "召开", "回复", "说明", "说明会"},
		PriorityKeywords: []string{
			"公告", "停复牌", "停牌", "复牌", "问询函", "回购", "减持", "增持", "限售解禁",
			"监管", "处罚", "核查", "业绩预告", "业绩快报", "中报", "年报", "分红", "配股", "定增",
			"并购", "重组",
		},
		IndustryUpperMap:        map[string][]string{},
		IndustryUpperLLMEnabled: false,
		IndustryQueryTails:      []string{"政策", "消费数据", "价格", "行业报告", "库存", "销量", "景气度"},
		MacroQueryTails: []string{
			"中国经济", "消费政策", "监管措施", "货币政策", "财政政策", "房地产政策",
			"通胀", "社零", "制造业PMI",
		},
		LayerWeights:    map[string]float64{"company": 1.0, "industry": 0.8, "macro": 0.6},
		MacroEventBoost: 1.4,
		MacroEventWords: []string{
			"国常会", "中期借贷便利", "MLF", "降准", "降息", "地产新政", "房贷利率", "汇率稳定", "特别国债",
		},
	}
	t.compile()
	return t
}

func (t *Tuning) compile() {
	if len(t.PriorityKeywords) == 0 {
		t.priorityRe = regexp.MustCompile(`$^`)
		return
	}
	quoted := make([]string, len(t.PriorityKeywords))
	for i, kw := range t.PriorityKeywords {
		quoted[i] = regexp.QuoteMeta(kw)
	}
	t.priorityRe = regexp.MustCompile(strings.Join(quoted, "|"))
}

// tuningFile is the YAML override shape. Absent keys leave the defaults in
// place, so every field is optional.
type tuningFile struct {
	NewsWindowDays *int `yaml:"news_window_days"`
	NewsTopK       *int `yaml:"news_topk"`

	SourceWeights map[string]float64 `yaml:"source_weights"`
	DomainWeights map[string]float64 `yaml:"domain_weights"`
	SourceAliases map[string]string  `yaml:"source_aliases"`
	DomainAliases map[string]string  `yaml:"domain_aliases"`

	PosWords []string `yaml:"pos_words"`
	NegWords []string `yaml:"neg_words"`
	NeuWords []string `yaml:"neu_words"`

	PriorityKeywords []string `yaml:"priority_keywords"`

	IndustryUpperMap        map[string][]string `yaml:"industry_upper_map"`
	IndustryUpperLLMEnabled *bool               `yaml:"industry_upper_llm_enabled"`

	IndustryQueryTails []string `yaml:"industry_query_tails"`
	MacroQueryTails    []string `yaml:"macro_query_tails"`

	LayerWeights    map[string]float64 `yaml:"layer_weights"`
	MacroEventBoost *float64           `yaml:"macro_event_boost"`
	MacroEventWords []string           `yaml:"macro_event_keywords"`
}

// Loader serves Tuning snapshots, re-reading the YAML file when its mtime
// changes. A missing or malformed file leaves the defaults active.
type Loader struct {
	path   string
	logger arbor.ILogger

	mu      sync.Mutex
	mtime   time.Time
	haveMt  bool
	current *Tuning
}

// NewLoader creates a tuning loader for the given YAML path. An empty path
// pins the defaults for the process lifetime.
func NewLoader(path string, logger arbor.ILogger) *Loader {
	return &Loader{path: path, logger: logger, current: defaultTuning()}
}

// Snapshot returns the active tuning, reloading first if the file changed.
func (l *Loader) Snapshot() *Tuning {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.path == "" {
		return l.current
	}

	info, err := os.Stat(l.path)
	if err != nil {
		if l.haveMt {
			// File removed: fall back to defaults.
			l.current = defaultTuning()
			l.haveMt = false
		}
		return l.current
	}
	if l.haveMt && info.ModTime().Equal(l.mtime) {
		return l.current
	}

	next := defaultTuning()
	data, err := os.ReadFile(l.path)
	if err == nil {
		var file tuningFile
		if err := yaml.Unmarshal(data, &file); err == nil {
			applyOverrides(next, &file)
			next.compile()
		} else {
			l.logger.Warn().Err(err).Str("path", l.path).Msg("Invalid newsfeed tuning file, using defaults")
		}
	}
	l.current = next
	l.mtime = info.ModTime()
	l.haveMt = true
	return l.current
}

func applyOverrides(t *Tuning, f *tuningFile) {
	if f.NewsWindowDays != nil {
		t.WindowDays = *f.NewsWindowDays
	}
	if f.NewsTopK != nil {
		t.TopK = *f.NewsTopK
	}
	mergeFloats(t.SourceWeights, f.SourceWeights)
	mergeFloats(t.DomainWeights, f.DomainWeights)
	mergeStrings(t.SourceAliases, f.SourceAliases)
	mergeStrings(t.DomainAliases, f.DomainAliases)
	if f.PosWords != nil {
		t.PosWords = f.PosWords
	}
	if f.NegWords != nil {
		t.NegWords = f.NegWords
	}
	if f.NeuWords != nil {
		t.NeuWords = f.NeuWords
	}
	if f.PriorityKeywords != nil {
		t.PriorityKeywords = f.PriorityKeywords
	}
	for k, v := range f.IndustryUpperMap {
		t.IndustryUpperMap[k] = v
	}
	if f.IndustryUpperLLMEnabled != nil {
		t.IndustryUpperLLMEnabled = *f.IndustryUpperLLMEnabled
	}
	if f.IndustryQueryTails != nil {
		t.IndustryQueryTails = f.IndustryQueryTails
	}
	if f.MacroQueryTails != nil {
		t.MacroQueryTails = f.MacroQueryTails
	}
	mergeFloats(t.LayerWeights, f.LayerWeights)
	if f.MacroEventBoost != nil {
		t.MacroEventBoost = *f.MacroEventBoost
	}
	if f.MacroEventWords != nil {
		t.MacroEventWords = f.MacroEventWords
	}
}

func mergeFloats(dst, src map[string]float64) {
	for k, v := range src {
		dst[k] = v
	}
}

func mergeStrings(dst, src map[string]string) {
	for k, v := range src {
		dst[k] = v
	}
}
