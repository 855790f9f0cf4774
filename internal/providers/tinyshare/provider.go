// Package tinyshare adapts the secondary market-data vendor. Tinyshare
// exposes a tushare-compatible wire protocol on its own gateway, so the
// adapter is the tushare provider bound to a different endpoint and name.
package tinyshare

import (
	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/providers/tushare"
)

// DefaultBaseURL is the tinyshare gateway.
const DefaultBaseURL = "https://api.tinyshare.cn"

// New creates the tinyshare provider from its config section.
func New(cfg common.TinyshareConfig, logger arbor.ILogger) *tushare.Provider {
	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	client := tushare.NewClient(cfg.Token,
		tushare.WithBaseURL(baseURL),
		tushare.WithLogger(logger),
		tushare.WithRateLimit(common.ParseDurationOr(cfg.RateLimit, tushare.DefaultRateLimit)),
	)
	return tushare.New("tinyshare", client, logger)
}
