package summarizer

// Prompt templates for the two-stage table reduction and the batched news
// corpus summary. All prompts address the model as a financial data
// analyst and request plain Chinese output.

const columnSelectorPrompt = `你是一位专业的金融数据分析师。
给定一个数据表的可用列名列表，你的任务是为特定的分析目标选择一些最重要和最相关的列。

分析目标: "%s"
可用列名: %s

请只返回一个包含你选择的最相关列名的JSON列表。
例如: ["col1", "col2", "col3"]`

const tableSummarizerPrompt = `你是一位专业的金融数据分析师。
给定一个关于'%s'的数据表，你的任务是生成一段简洁、精炼的自然语言摘要。
摘要应捕捉数据中的核心洞察、关键数值和明显趋势。

数据表:
%s

你的摘要:`

const techTableAnalyzerPrompt = `你是一位专业的金融数据分析师，擅长技术分析。
给定一个关于“%s”的数据表，请基于表格生成一份**详细的小结**，要求：

1. 提供数据的概览（时间范围、样本数量等）。
2. 提炼关键的统计指标或趋势（例如均线形态、指标超买超卖、成交量变化）。
3. 给出基于数据的分析结论，不要空泛表述。
4. 使用专业、简洁的中文表述。

数据表：
%s

请输出分析小结：`

const fundTableAnalyzerPrompt = `你是一位专业的金融数据分析师，擅长资金流向分析。
给定一个关于“%s”的数据表，请基于表格生成一份**详细的小结**，要求：

1. 提供数据的概览（时间范围、样本数量等）。
2. 提炼关键的统计指标或趋势（例如主力资金流入、机构资金增持、散户资金流入）。
3. 给出基于数据的分析结论，不要空泛表述。
4. 使用专业、简洁的中文表述。

数据表：
%s

请输出分析小结：`

const newsCorpusPrompt = `请基于以下新闻数据，生成专业的新闻分析摘要：

时间范围：%s 到 %s
%s

新闻数据：
%s

要求：
1. 分析新闻的整体情绪倾向（正面/中性/负面）
2. 提取关键信息点和重要事件
3. 评估对相关股票或市场的影响
4. 语言简洁专业，适合投资分析使用
5. 重点关注与投资决策相关的信息

请直接返回分析结果，不要添加格式标记。`
