package llm

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/time/rate"
	"google.golang.org/genai"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
)

// GeminiService implements the LLMService interface using the Google Gemini
// API. It provides blocking and streaming chat completions with rate-limit
// aware retries on the blocking path.
type GeminiService struct {
	config  common.GeminiConfig
	logger  arbor.ILogger
	client  *genai.Client
	timeout time.Duration
	limiter *rate.Limiter
	retry   geminiRetry
}

// convertMessagesToGemini converts []interfaces.Message to Gemini Content
// format. System messages are extracted separately for SystemInstruction;
// unknown roles default to user.
func convertMessagesToGemini(messages []interfaces.Message) ([]*genai.Content, string, error) {
	if len(messages) == 0 {
		return nil, "", fmt.Errorf("messages cannot be empty")
	}

	hasUserMessage := false
	for _, msg := range messages {
		if msg.Role == "user" {
			hasUserMessage = true
			break
		}
	}
	if !hasUserMessage {
		return nil, "", fmt.Errorf("at least one message must have role 'user'")
	}

	contents := make([]*genai.Content, 0, len(messages))
	var systemText string
	for _, msg := range messages {
		if msg.Role == "system" {
			if systemText == "" {
				systemText = msg.Content
			}
			continue
		}

		geminiRole := genai.RoleUser
		if msg.Role == "assistant" {
			geminiRole = genai.RoleModel
		}

		contents = append(contents, &genai.Content{
			Role:  geminiRole,
			Parts: []*genai.Part{genai.NewPartFromText(msg.Content)},
		})
	}

	return contents, systemText, nil
}

// NewGeminiService creates a new Gemini LLM service instance.
func NewGeminiService(geminiConfig common.GeminiConfig, logger arbor.ILogger) (*GeminiService, error) {
	if geminiConfig.APIKey == "" {
		return nil, fmt.Errorf("Google API key is required for Gemini service (set via GEMINI_API_KEY or llm.gemini.api_key in config)")
	}

	if geminiConfig.Model == "" {
		geminiConfig.Model = "gemini-2.0-flash"
	}

	timeout := common.ParseDurationOr(geminiConfig.Timeout, 5*time.Minute)
	interval := common.ParseDurationOr(geminiConfig.RateLimit, 4*time.Second)

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:  geminiConfig.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize genai client: %w", err)
	}

	service := &GeminiService{
		config:  geminiConfig,
		logger:  logger,
		client:  client,
		timeout: timeout,
		limiter: rate.NewLimiter(rate.Every(interval), 1),
		retry:   defaultGeminiRetry(),
	}

	logger.Debug().
		Str("model", geminiConfig.Model).
		Dur("timeout", timeout).
		Msg("Gemini LLM service initialized successfully")

	return service, nil
}

// Name returns the provider name.
func (s *GeminiService) Name() string { return "gemini" }

// Chat generates a completion response based on the conversation history.
// Rate-limit errors are retried with backoff honoring the API-suggested
// delay when one is present.
func (s *GeminiService) Chat(ctx context.Context, messages []interfaces.Message) (string, error) {
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	startTime := time.Now()
	s.logger.Debug().
		Int("message_count", len(messages)).
		Msg("Starting Gemini chat completion")

	var response string
	var err error
	for attempt := 0; ; attempt++ {
		response, err = s.generateCompletion(timeoutCtx, messages)
		if err == nil || !isRateLimitError(err) || attempt >= s.retry.MaxRetries {
			break
		}
		wait := s.retry.backoff(attempt, extractRetryDelay(err))
		s.logger.Warn().
			Int("attempt", attempt+1).
			Dur("backoff", wait).
			Msg("Gemini rate limited, backing off")
		select {
		case <-timeoutCtx.Done():
			return "", timeoutCtx.Err()
		case <-time.After(wait):
		}
	}
	if err != nil {
		s.logger.Error().
			Err(err).
			Int("message_count", len(messages)).
			Msg("Gemini chat completion failed")
		return "", fmt.Errorf("chat completion failed: %w", err)
	}

	s.logger.Debug().
		Int("message_count", len(messages)).
		Int("response_length", len(response)).
		Dur("duration", time.Since(startTime)).
		Msg("Gemini chat completion completed successfully")

	return response, nil
}

// ChatStream generates a completion, invoking onChunk for each text
// fragment as it arrives, and returns the full concatenated response.
func (s *GeminiService) ChatStream(ctx context.Context, messages []interfaces.Message, onChunk interfaces.ChunkHandler) (string, error) {
	if onChunk == nil {
		return s.Chat(ctx, messages)
	}
	if len(messages) == 0 {
		return "", fmt.Errorf("messages cannot be empty for chat completion")
	}

	timeoutCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	if err := s.limiter.Wait(timeoutCtx); err != nil {
		return "", fmt.Errorf("rate limit wait interrupted: %w", err)
	}

	contents, config, err := s.buildRequest(messages)
	if err != nil {
		return "", err
	}

	var full strings.Builder
	for resp, err := range s.client.Models.GenerateContentStream(timeoutCtx, s.config.Model, contents, config) {
		if err != nil {
			s.logger.Error().
				Err(err).
				Int("message_count", len(messages)).
				Msg("Gemini streaming completion failed")
			return "", fmt.Errorf("streaming completion failed: %w", err)
		}
		text := textOf(resp)
		if text != "" {
			full.WriteString(text)
			onChunk(text)
		}
	}

	if full.Len() == 0 {
		return "", fmt.Errorf("no response generated from chat model")
	}
	return full.String(), nil
}

// HealthCheck verifies the Gemini service is operational with a minimal
// connectivity probe.
func (s *GeminiService) HealthCheck(ctx context.Context) error {
	s.logger.Debug().Msg("Running Gemini LLM service health check")

	if s.client == nil {
		return fmt.Errorf("genai client is not initialized")
	}

	healthCheckCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	response, err := s.generateCompletion(healthCheckCtx, []interfaces.Message{
		{Role: "user", Content: "ping"},
	})
	if err != nil {
		return fmt.Errorf("Gemini health check failed: %w", err)
	}
	if len(strings.TrimSpace(response)) == 0 {
		return fmt.Errorf("Gemini probe returned empty response")
	}

	s.logger.Debug().
		Str("model", s.config.Model).
		Msg("Gemini LLM service health check passed")

	return nil
}

// Close releases resources and performs cleanup operations.
func (s *GeminiService) Close() error {
	s.logger.Debug().Msg("Closing Gemini LLM service")
	s.client = nil
	return nil
}

// buildRequest assembles the contents and generation config shared by the
// blocking and streaming paths.
func (s *GeminiService) buildRequest(messages []interfaces.Message) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	contents, systemText, err := convertMessagesToGemini(messages)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to convert messages to Gemini format: %w", err)
	}

	config := &genai.GenerateContentConfig{
		Temperature: genai.Ptr(s.config.Temperature),
	}
	if s.config.MaxTokens > 0 {
		config.MaxOutputTokens = int32(s.config.MaxTokens)
	}
	if systemText != "" {
		config.SystemInstruction = genai.NewContentFromText(systemText, genai.RoleUser)
	}
	return contents, config, nil
}

// textOf concatenates the text parts of the first candidate with content.
func textOf(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate.Content == nil {
			continue
		}
		for _, part := range candidate.Content.Parts {
			if part.Text != "" {
				b.WriteString(part.Text)
			}
		}
		if b.Len() > 0 {
			break
		}
	}
	return b.String()
}

// generateCompletion encapsulates one blocking Gemini API call.
func (s *GeminiService) generateCompletion(ctx context.Context, messages []interfaces.Message) (string, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return "", fmt.Errorf("rate limit wait interrupted: %w", err)
	}

	contents, config, err := s.buildRequest(messages)
	if err != nil {
		return "", err
	}

	resp, err := s.client.Models.GenerateContent(ctx, s.config.Model, contents, config)
	if err != nil {
		return "", fmt.Errorf("chat generation failed: %w", err)
	}

	response := textOf(resp)
	if response == "" {
		return "", fmt.Errorf("no response generated from chat model")
	}
	return response, nil
}
