package newsfeed

// Prompt templates for the news-corpus reads. The structured prompt asks
// for strict JSON so the answer can drive the formatted blocks and the
// evidence attachment; the plain prompt is the degraded path when the
// model will not produce parseable JSON.

const structuredCorpusPrompt = `你是一位专业的财经舆情分析师。请基于以下新闻语料，输出一份结构化的舆情研判。

时间范围：%s 到 %s
%s

新闻语料：
%s

请只输出一个JSON对象，不要输出其他文字，字段如下：
{
  "overall_sentiment": "正面/中性/负面",
  "reasons": ["判断理由，最多3条"],
  "proportions": {"positive": "正面占比", "neutral": "中性占比", "negative": "负面占比"},
  "catalysts": [{"point": "潜在催化因素", "horizon": "短/中/长"}],
  "risks": [{"point": "潜在风险因素", "horizon": "短/中/长"}],
  "policy_points": ["政策或监管要点"],
  "score": 情绪分（-100到100的整数）,
  "one_liner": "一句话结论"
}`

const plainCorpusPrompt = `你是一位专业的财经舆情分析师。请基于以下新闻语料，生成一段简洁的舆情分析摘要。

时间范围：%s 到 %s
%s

新闻语料：
%s

要求：
1. 概括整体情绪倾向及其主要依据。
2. 指出对股价可能有影响的关键事件。
3. 使用专业、简洁的中文，不超过300字。`

const singleItemPrompt = `你是一位专业的财经新闻分析师。请阅读下面这条新闻，输出一个JSON对象，不要输出其他文字：
{
  "summary": "不超过60字的摘要",
  "key_points": ["关键信息，最多3条"],
  "sentiment": "正面/中性/负面",
  "confidence": 置信度（0到100的整数）
}

标题：%s
摘要：%s
正文：
%s`
