package pipeline

import (
	"fmt"

	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
)

// Node names on the analysis DAG.
const (
	NodeFundamental = "fundamental_analysis"
	NodeTechnical   = "technical_analysis"
	NodeSentiment   = "sentiment_analysis"
	NodeNews        = "news_analysis"
	NodeFund        = "fund_analysis"
	NodeBull        = "bull_debate"
	NodeBear        = "bear_debate"
	NodeDebate      = "debate_judge"
	NodeSupervisor  = "supervisor"
	NodeFinalSave   = "final_result_save"
)

// Chinese report labels attached to each node's analysis_result frame.
var reportTypeMap = map[string]string{
	NodeFundamental: "基本面分析报告",
	NodeTechnical:   "技术分析报告",
	NodeSentiment:   "情绪分析报告",
	NodeNews:        "新闻分析报告",
	NodeFund:        "资金分析报告",
	NodeBull:        "看涨辩论报告",
	NodeBear:        "看跌辩论报告",
	NodeDebate:      "辩论综合报告",
	NodeSupervisor:  "总决策报告",
	NodeFinalSave:   "最终结果保存",
}

// toolOutputHead bounds the tool-completion frame's echoed output.
const toolOutputHead = 200

// emitter formats lifecycle transitions into stream frames for one run.
type emitter struct {
	events   interfaces.EventService
	threadID string
	runID    string
}

func newEmitter(events interfaces.EventService, threadID, runID string) *emitter {
	return &emitter{events: events, threadID: threadID, runID: runID}
}

func (e *emitter) frame(eventType, agent string) models.StreamEvent {
	return models.NewStreamEvent(eventType, e.threadID, agent, e.runID)
}

// nodeStarted announces a node beginning execution.
func (e *emitter) nodeStarted(node string) {
	event := e.frame(models.EventProgress, node)
	event.Content = fmt.Sprintf("节点 '%s' 开始执行...", node)
	event.NodeStatus = models.NodeStatusStarted
	event.ProgressSymbol = models.BoolPtr(true)
	e.events.Publish(event)
}

// nodeCompleted announces a node finishing and carries its assembled
// report to the client: a progress frame, then node_complete, then the
// analysis_result frame with the report payload.
func (e *emitter) nodeCompleted(node string, content string, resultData map[string]interface{}) {
	progress := e.frame(models.EventProgress, node)
	progress.Content = fmt.Sprintf("节点 '%s' 执行完成", node)
	progress.NodeStatus = models.NodeStatusCompleted
	progress.ProgressSymbol = models.BoolPtr(false)
	e.events.Publish(progress)

	complete := e.frame(models.EventNodeComplete, node)
	complete.NodeStatus = models.NodeStatusCompleted
	e.events.Publish(complete)

	result := e.frame(models.EventAnalysisResult, node)
	result.Content = content
	result.ResultData = resultData
	e.events.Publish(result)
}

// nodeFailed reports a contained node error; the DAG keeps running.
func (e *emitter) nodeFailed(node string, err error) {
	event := e.frame(models.EventNodeComplete, node)
	event.NodeStatus = models.NodeStatusCompleted
	event.Content = fmt.Sprintf("节点 '%s' 执行失败: %v", node, err)
	event.ResultData = map[string]interface{}{"error": err.Error()}
	e.events.Publish(event)
}

// toolRunning announces an acquisition tool starting under a node.
func (e *emitter) toolRunning(node, tool string) {
	event := e.frame(models.EventProgress, node)
	event.Content = fmt.Sprintf("工具 '%s' 正在执行...", tool)
	event.ProgressSymbol = models.BoolPtr(true)
	e.events.Publish(event)
}

// toolFinished echoes the head of a tool's output.
func (e *emitter) toolFinished(node, tool, output string) {
	head := []rune(output)
	if len(head) > toolOutputHead {
		head = head[:toolOutputHead]
	}
	event := e.frame(models.EventProgress, node)
	event.Content = fmt.Sprintf("工具 '%s' 执行完成: %s...", tool, string(head))
	event.ProgressSymbol = models.BoolPtr(false)
	e.events.Publish(event)
}

// terminal emits the frame every stream ends with.
func (e *emitter) terminal() {
	event := models.NewStreamEvent(models.EventMessageChunk, e.threadID, "system", "final-run")
	event.Content = "分析流程已结束。"
	event.FinishReason = models.FinishReasonStop
	e.events.Publish(event)
}

// fatal reports an unrecoverable pipeline error ahead of the terminal
// frame.
func (e *emitter) fatal(err error) {
	event := models.NewStreamEvent(models.EventMessageChunk, e.threadID, "system_error", "error-run")
	event.Content = fmt.Sprintf("分析过程中出现严重错误: %v", err)
	e.events.Publish(event)
}

// resultData wraps a report for the analysis_result frame.
func resultData(node string, report interface{}) map[string]interface{} {
	return map[string]interface{}{
		"report_type": reportTypeMap[node],
		"report":      report,
	}
}
