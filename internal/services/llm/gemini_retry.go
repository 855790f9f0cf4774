package llm

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// geminiRetry defines retry behavior for Gemini API rate limit handling.
// The quota window resets on a ~60 second cadence, so the initial backoff
// sits just under that.
type geminiRetry struct {
	MaxRetries        int
	InitialBackoff    time.Duration
	MaxBackoff        time.Duration
	BackoffMultiplier float64
}

func defaultGeminiRetry() geminiRetry {
	return geminiRetry{
		MaxRetries:        3,
		InitialBackoff:    45 * time.Second,
		MaxBackoff:        90 * time.Second,
		BackoffMultiplier: 1.5,
	}
}

// isRateLimitError checks if an error is a Gemini rate limit error.
// Matches 429 status codes and RESOURCE_EXHAUSTED errors.
func isRateLimitError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "429") ||
		strings.Contains(errStr, "RESOURCE_EXHAUSTED") ||
		strings.Contains(errStr, "quota")
}

// retryDelayRegex matches "Please retry in Xs" or "retryDelay:Xs" patterns.
var retryDelayRegex = regexp.MustCompile(`(?i)(?:Please retry in |retryDelay[:\s]+)(\d+(?:\.\d+)?)\s*s`)

// extractRetryDelay parses the API-suggested retry delay from a Gemini
// error message. Returns 0 when the message carries no delay.
func extractRetryDelay(err error) time.Duration {
	if err == nil {
		return 0
	}
	matches := retryDelayRegex.FindStringSubmatch(err.Error())
	if len(matches) < 2 {
		return 0
	}
	seconds, parseErr := strconv.ParseFloat(matches[1], 64)
	if parseErr != nil {
		return 0
	}
	return time.Duration(seconds * float64(time.Second))
}

// backoff computes the wait before the given retry attempt. An API-provided
// delay takes precedence over the configured initial backoff.
func (c geminiRetry) backoff(attempt int, apiDelay time.Duration) time.Duration {
	base := c.InitialBackoff
	if apiDelay > 0 {
		base = apiDelay + 5*time.Second
	}
	multiplier := 1.0
	for i := 0; i < attempt; i++ {
		multiplier *= c.BackoffMultiplier
	}
	wait := time.Duration(float64(base) * multiplier)
	if wait > c.MaxBackoff {
		wait = c.MaxBackoff
	}
	return wait
}
