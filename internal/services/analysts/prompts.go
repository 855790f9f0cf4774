package analysts

import (
	"fmt"
	"strings"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// Role briefs handed to each perspective's prompt.
var roleDescriptions = map[models.Perspective]string{
	models.PerspectiveFundamental: "你是一位专业的基本面分析师，擅长从财务报表、估值水平、分红与盈利预测中判断公司的内在价值与经营质量。",
	models.PerspectiveTechnical:   "你是一位专业的技术分析师，擅长从K线形态、均线系统、技术指标与量价关系中研判趋势与关键价位。",
	models.PerspectiveSentiment:   "你是一位专业的市场情绪分析师，擅长从新闻舆情与基本面信息的交叉验证中评估市场热度、投资者情绪与机构态度。",
	models.PerspectiveNews:        "你是一位专业的新闻舆情分析师，擅长从新闻事件、政策变化与舆论走向中评估消息面对股价的潜在影响。",
	models.PerspectiveFund:        "你是一位专业的资金流向分析师，擅长从主力动向、机构持仓变化与散户行为中判断资金博弈格局。",
}

// Chinese annotations for each score key, used in the prompt's JSON sample.
var scoreKeyLabels = map[string]string{
	"profitability":       "盈利能力",
	"solvency":            "偿债能力",
	"growth_potential":    "成长潜力",
	"trend_strength":      "趋势强度",
	"momentum":            "动量",
	"support_resistance":  "支撑压力",
	"volume_analysis":     "量能分析",
	"pattern_analysis":    "形态分析",
	"market_heat":         "市场热度",
	"investor_sentiment":  "投资者情绪",
	"institution_opinion": "机构观点",
	"sentiment_score":     "情绪得分",
	"news_impact":         "新闻影响",
	"market_attention":    "市场关注度",
	"main_capital":        "主力资金",
	"institution_capital": "机构资金",
	"retail_capital":      "散户资金",
}

// scoresSample renders the scores object for a perspective's prompt, one
// annotated key per line.
func scoresSample(p models.Perspective) string {
	keys := models.ScoreKeysFor(p)
	lines := make([]string, 0, len(keys))
	for i, key := range keys {
		comma := ","
		if i == len(keys)-1 {
			comma = ""
		}
		lines = append(lines, fmt.Sprintf("    \"%s\": 评分（0-5的整数，%s）%s", key, scoreKeyLabels[key], comma))
	}
	return strings.Join(lines, "\n")
}

// analystPrompt assembles the single-perspective report prompt: role brief,
// analysis window, input data and the strict JSON output contract.
func analystPrompt(p models.Perspective, stockCode, analysisPeriod, data string) string {
	return fmt.Sprintf(`%s

你的任务是对股票 %s 进行深入分析，并给出明确的观点、理由与量化评分。

**分析时间段**: %s

请遵循以下要求：
1. 结论必须基于输入数据，不得凭空捏造信息。
2. 评分为0-5的整数，0表示极差或无数据，5表示极好。
3. 观点只能是：看多、看空、中性 三者之一。
4. detailed_analysis 需给出分维度的具体分析，引用关键数值。

**输入数据**：
%s

**输出格式要求**（严格遵守以下JSON结构，不要输出任何额外内容）：
`+"```json"+`
{
  "analyst_name": "%s",
  "viewpoint": "看多 / 看空 / 中性",
  "reason": "简要说明核心理由，<=100字",
  "scores": {
%s
  },
  "detailed_analysis": "分维度的详细分析"
}
`+"```", roleDescriptions[p], stockCode, analysisPeriod, data, p.AnalystName(), scoresSample(p))
}

// supervisorPrompt assembles the final decision prompt from the four
// perspective reports plus the merged news summary.
func supervisorPrompt(stockCode, analysisPeriod string, inputs interfaces.SupervisorInputs) string {
	blocks := strings.Join([]string{
		inputs.FundamentalReport,
		inputs.TechnicalReport,
		inputs.SentimentReport,
		inputs.FundReport,
		inputs.NewsSummary,
	}, "\n---\n")

	return fmt.Sprintf(`你是一位总决策投资分析师，负责在整合多方信息后，给出**短期、中期、长期**全周期的投资预测与建议。

**分析对象**: %s
**分析时间段**: %s

你将收到以下输入（均为已保存报告/摘要）：
1. **基本面报告**
2. **技术面报告**
3. **情绪面报告**
4. **资金面报告**
5. **新闻面摘要**（来自新闻合并后的摘要，而非新闻分析报告）

请按以下步骤分析：
1. **信息融合**：整合各面结论与评分，提炼一致观点与分歧。
2. **全周期分析**：
   - **短期（1-2周）**：侧重情绪、技术、资金的合力与风险。
   - **中期（1-3个月）**：侧重趋势与基本面变化、资金持续性。
   - **长期（6个月以上）**：侧重基本面、行业与宏观格局。
3. **风险与不确定性**：识别关键催化与风险点。
4. **投资预测与建议**：每个周期给出倾向（看多/看空/中性）、预测区间、建议与风险提示。

**输入数据**：
---
%s
---

**输出格式要求**（严格遵守以下JSON结构）：
`+"```json"+`
{
  "analyst_name": "总决策分析师",
  "summary": "融合所有分析的总体总结，150-250字",
  "forecast": {
    "short_term": {
      "bias": "看多 / 看空 / 中性",
      "prediction": "短期价格走势预测与可能区间",
      "suggestion": "短期操作建议，如快进快出、波段交易等",
      "reason": "短期价格走势预测与可能区间的原因",
      "risks": ["风险因素1", "风险因素2"]
    },
    "mid_term": {
      "bias": "看多 / 看空 / 中性",
      "prediction": "中期价格走势预测与可能区间",
      "suggestion": "中期操作建议，如持仓等待、分批建仓等",
      "reason": "中期价格走势预测与可能区间的原因",
      "risks": ["风险因素1", "风险因素2"]
    },
    "long_term": {
      "bias": "看多 / 看空 / 中性",
      "prediction": "长期价格走势预测与可能区间",
      "suggestion": "长期操作建议，如价值投资、长期持有等",
      "reason": "长期价格走势预测与可能区间的原因",
      "risks": ["风险因素1", "风险因素2"]
    }
  }
}
`+"```", stockCode, analysisPeriod, blocks)
}

// debaterPrompt assembles one side of the bull/bear debate. direction and
// opposite flip between the two sides.
func debaterPrompt(stockCode, analysisPeriod, reports, analystName, viewpoint, direction, opposite string) string {
	return fmt.Sprintf(`你的任务是基于多位分析师的量化评分与观点，为股票 %s 构建**%s论据**。

**分析时间段**: %s

你将收到来自基本面、技术面、资金面、情绪面、舆情面的分析报告（包含分数与结论），请：
1. 选取并强调有利于%s的维度与数据。
2. 对不利数据进行反驳或弱化解释。
3. 逻辑严谨、数据驱动，不得凭空捏造信息。

分析步骤：
- 汇总各维度的评分与结论
- 解释为什么这些数据支持%s
- 回应并反驳不利观点
- 最终给出明确的%s结论

**多位分析师的报告（供参考）**：
---
%s

**输出格式要求**：
`+"```json"+`
{
  "analyst_name": "%s",
  "viewpoint": "%s",
  "core_arguments": [
    "使用分数+结论支持%s的论据1",
    "使用分数+结论支持%s的论据2",
    "使用分数+结论支持%s的论据3"
  ],
  "rebuttals": [
    "对%s论点的反驳1",
    "对%s论点的反驳2"
  ],
  "final_statement": "一句话坚定表明%s立场，<=50字"
}
`+"```", stockCode, direction, analysisPeriod, direction, direction, viewpoint,
		reports, analystName, viewpoint, direction, direction, direction,
		opposite, opposite, viewpoint)
}

func bullPrompt(stockCode, analysisPeriod, reports string) string {
	return debaterPrompt(stockCode, analysisPeriod, reports,
		models.AnalystNameBull, models.ViewpointBull, "看涨", "看空")
}

func bearPrompt(stockCode, analysisPeriod, reports string) string {
	return debaterPrompt(stockCode, analysisPeriod, reports,
		models.AnalystNameBear, models.ViewpointBear, "看跌", "看多")
}

// judgePrompt assembles the debate synthesis prompt.
func judgePrompt(stockCode, analysisPeriod, reports, bullReport, bearReport string) string {
	return fmt.Sprintf(`你是量化分析师，负责主持并总结对股票 %s 的多空辩论。

**分析时间段**: %s

你将收到两位辩手（看涨派与看跌派）的观点，以及各维度分析师的量化评分。
你的任务是整合这些信息，给出**全面、客观且有结论**的投资分析报告。

请遵循以下步骤：
1. **提炼双方核心观点**：找出看涨派和看跌派的主要论据（支持与反驳）。
2. **量化对比**：
   - 统计所有维度的平均得分（盈利能力、技术面、资金面、情绪面、舆情面）。
   - 分别计算看多倾向评分与看空倾向评分。
3. **判断结论**：
   - 如果看多平均分 ≥4 且明显高于看空 → "强烈看多"
   - 如果看多平均分 > 看空平均分且差距明显 → "看多"
   - 如果分数接近 → "中性"
   - 如果看空平均分 > 看多平均分且差距明显 → "看空"
   - 如果看空平均分 ≥4 且明显高于看多 → "强烈看空"
4. **形成最终投资建议**：明确结论并简述原因（50字以内）。
5. **输出结构化报告**：包括双方核心论点、分数对比、最终建议。

**输入数据（供参考）**：
- 各维度分析师的量化评分与结论：
---
%s
---
- 看涨派辩手的观点：
%s
- 看跌派辩手的观点：
%s

**输出格式要求**：
`+"```json"+`
{
  "analyst_name": "首席投资分析师",
  "bull_summary": [
    "看涨派的核心论点1",
    "看涨派的核心论点2"
  ],
  "bear_summary": [
    "看跌派的核心论点1",
    "看跌派的核心论点2"
  ],
  "score_comparison": {
    "bull_avg_score": "数值（1-5）",
    "bear_avg_score": "数值（1-5）"
  },
  "final_viewpoint": "强烈看多 / 看多 / 中性 / 看空 / 强烈看空",
  "final_reason": "一句话总结核心结论（<=50字）"
}
`+"```", stockCode, analysisPeriod, reports, bullReport, bearReport)
}
