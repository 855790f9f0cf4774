package llm

import (
	"fmt"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
)

// NewLLMService creates the appropriate LLM service implementation based on
// the configured default provider.
func NewLLMService(cfg common.LLMConfig, logger arbor.ILogger) (interfaces.LLMService, error) {
	provider := cfg.DefaultProvider
	if provider == "" {
		provider = common.LLMProviderClaude
	}

	logger.Info().Str("provider", string(provider)).Msg("Initializing LLM service")

	switch provider {
	case common.LLMProviderClaude:
		return NewClaudeService(cfg.Claude, logger)
	case common.LLMProviderGemini:
		return NewGeminiService(cfg.Gemini, logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider '%s': must be 'claude' or 'gemini'", provider)
	}
}
