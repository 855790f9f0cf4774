package models

import (
	"encoding/json"
	"testing"
)

func TestStreamEventWireShape(t *testing.T) {
	tests := []struct {
		name        string
		event       StreamEvent
		wantKeys    map[string]string
		missingKeys []string
	}{
		{
			name: "progress frame keeps true symbol",
			event: func() StreamEvent {
				ev := NewStreamEvent(EventProgress, "thread-1", "fundamental_analysis", "run-1")
				ev.Content = "节点 'fundamental_analysis' 开始执行..."
				ev.NodeStatus = NodeStatusStarted
				ev.ProgressSymbol = BoolPtr(true)
				return ev
			}(),
			wantKeys: map[string]string{
				"progress_symbol": "true",
				"node_status":     `"started"`,
				"role":            `"assistant"`,
			},
			missingKeys: []string{"finish_reason", "tool_calls", "result_data", "parsed", "refusal"},
		},
		{
			name: "tool end frame keeps false symbol",
			event: func() StreamEvent {
				ev := NewStreamEvent(EventProgress, "thread-1", "news_analysis", "run-2")
				ev.Content = "工具 'get_news' 执行完成: ok"
				ev.ProgressSymbol = BoolPtr(false)
				return ev
			}(),
			wantKeys:    map[string]string{"progress_symbol": "false"},
			missingKeys: []string{"node_status", "finish_reason"},
		},
		{
			name: "chunk frame drops unset optionals but keeps empty content",
			event: func() StreamEvent {
				ev := NewStreamEvent(EventToolCallChunks, "thread-1", "supervisor", "run-3")
				ev.ToolCallChunks = []ToolCallChunk{{Args: `{"stock`, Index: 0, Type: ToolCallChunkType}}
				return ev
			}(),
			wantKeys:    map[string]string{"content": `""`},
			missingKeys: []string{"progress_symbol", "finish_reason", "tool_calls", "node_status"},
		},
		{
			name: "completion frame keeps finish reason",
			event: func() StreamEvent {
				ev := NewStreamEvent(EventNodeComplete, "thread-1", "supervisor", "run-4")
				ev.Content = "节点 'supervisor' 执行完成"
				ev.NodeStatus = NodeStatusCompleted
				ev.FinishReason = FinishReasonStop
				return ev
			}(),
			wantKeys:    map[string]string{"finish_reason": `"stop"`, "node_status": `"completed"`},
			missingKeys: []string{"progress_symbol"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := json.Marshal(tt.event)
			if err != nil {
				t.Fatalf("Marshal: %v", err)
			}
			var raw map[string]json.RawMessage
			if err := json.Unmarshal(data, &raw); err != nil {
				t.Fatalf("Unmarshal: %v", err)
			}
			for key, want := range tt.wantKeys {
				got, ok := raw[key]
				if !ok {
					t.Errorf("key %q missing from %s", key, data)
					continue
				}
				if string(got) != want {
					t.Errorf("key %q = %s, want %s", key, got, want)
				}
			}
			for _, key := range tt.missingKeys {
				if _, ok := raw[key]; ok {
					t.Errorf("key %q unexpectedly present in %s", key, data)
				}
			}
		})
	}
}

func TestToolCallChunkOmitsUnsetFields(t *testing.T) {
	chunk := ToolCallChunk{Index: 2, Type: ToolCallChunkType}
	data, err := json.Marshal(chunk)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if _, ok := raw["name"]; ok {
		t.Errorf("name unexpectedly present in %s", data)
	}
	if string(raw["index"]) != "2" {
		t.Errorf("index = %s", raw["index"])
	}
}
