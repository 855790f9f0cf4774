package models

// Stream event types, one per frame kind on the analysis event stream.
const (
	EventMessageChunk   = "message_chunk"
	EventToolCalls      = "tool_calls"
	EventToolCallChunks = "tool_call_chunks"
	EventProgress       = "progress"
	EventNodeComplete   = "node_complete"
	EventAnalysisResult = "analysis_result"
)

// Node lifecycle status values carried by progress and completion frames.
const (
	NodeStatusStarted   = "started"
	NodeStatusCompleted = "completed"
)

// Finish reasons attached to terminal frames.
const (
	FinishReasonStop      = "stop"
	FinishReasonToolCalls = "tool_calls"
)

// RoleAssistant is the fixed role for all stream frames.
const RoleAssistant = "assistant"

// Tool call type discriminators.
const (
	ToolCallType      = "tool_call"
	ToolCallChunkType = "tool_call_chunk"
)

// ToolCall is a fully formed tool invocation surfaced on the stream.
type ToolCall struct {
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
	ID   string                 `json:"id"`
	Type string                 `json:"type"`
}

// ToolCallChunk is a partial tool invocation emitted mid-stream. Args is
// the raw argument fragment, not yet valid JSON on its own.
type ToolCallChunk struct {
	Name  string `json:"name,omitempty"`
	Args  string `json:"args,omitempty"`
	ID    string `json:"id,omitempty"`
	Index int    `json:"index"`
	Type  string `json:"type"`
}

// StreamEvent is one protocol frame pushed to analysis stream subscribers.
// Unset optional fields stay off the wire; Content is always serialized,
// empty string included, because clients key rendering off its presence.
type StreamEvent struct {
	EventType      string                 `json:"event_type"`
	ThreadID       string                 `json:"thread_id"`
	Agent          string                 `json:"agent"`
	ID             string                 `json:"id"`
	Role           string                 `json:"role"`
	Content        string                 `json:"content"`
	FinishReason   string                 `json:"finish_reason,omitempty"`
	ProgressSymbol *bool                  `json:"progress_symbol,omitempty"`
	Parsed         interface{}            `json:"parsed,omitempty"`
	Refusal        interface{}            `json:"refusal,omitempty"`
	ToolCalls      []ToolCall             `json:"tool_calls,omitempty"`
	ToolCallChunks []ToolCallChunk        `json:"tool_call_chunks,omitempty"`
	NodeStatus     string                 `json:"node_status,omitempty"`
	ResultData     map[string]interface{} `json:"result_data,omitempty"`
}

// NewStreamEvent builds a frame with the assistant role preset.
func NewStreamEvent(eventType, threadID, agent, runID string) StreamEvent {
	return StreamEvent{
		EventType: eventType,
		ThreadID:  threadID,
		Agent:     agent,
		ID:        runID,
		Role:      RoleAssistant,
	}
}

// BoolPtr returns a pointer to v for the tri-state ProgressSymbol field.
func BoolPtr(v bool) *bool { return &v }
