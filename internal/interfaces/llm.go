package interfaces

import (
	"context"
)

// Message represents a single message in a chat conversation
type Message struct {
	// Role identifies the message sender: "user", "assistant", or "system"
	Role string

	// Content contains the text content of the message
	Content string
}

// ChunkHandler receives one streamed response fragment. Handlers must be
// fast; the stream reader blocks while a chunk is being handled.
type ChunkHandler func(text string)

// LLMService defines the interface for language model operations. The
// pipeline uses Chat for column selection, table summaries and report
// generation, and ChatStream for analyst nodes whose output is mirrored to
// the client frame by frame.
type LLMService interface {
	// Name returns the provider name ("claude" or "gemini").
	Name() string

	// Chat generates a completion response based on the conversation history.
	// The messages slice should contain the full conversation context
	// including system prompts, user messages, and previous assistant
	// responses.
	Chat(ctx context.Context, messages []Message) (string, error)

	// ChatStream generates a completion, invoking onChunk for each text
	// fragment as it arrives, and returns the full concatenated response.
	// A nil onChunk degrades to Chat.
	ChatStream(ctx context.Context, messages []Message, onChunk ChunkHandler) (string, error)

	// HealthCheck verifies the LLM service is operational and can handle
	// requests.
	HealthCheck(ctx context.Context) error

	// Close releases resources and performs cleanup operations.
	Close() error
}
