// Package providers assembles the vendor adapters into a failover chain.
// Vendors are probed once in configured order at startup; the first healthy
// one of each kind (market data, news) is pinned for the process lifetime.
// There is no per-call failover: a pinned vendor's errors surface to the
// caller as partial-data sentinels, not as a reason to switch vendors.
package providers

import (
	"context"
	"sync"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/interfaces"
	"github.com/lunahan/aestimo/internal/models"
	"github.com/lunahan/aestimo/internal/providers/akshare"
	"github.com/lunahan/aestimo/internal/providers/tinyshare"
	"github.com/lunahan/aestimo/internal/providers/tushare"
)

// Registry implements interfaces.ProviderRegistry.
type Registry struct {
	cfg    common.ProvidersConfig
	logger arbor.ILogger

	mu     sync.RWMutex
	market interfaces.MarketDataProvider
	news   interfaces.NewsProvider
}

// NewRegistry creates the registry from the providers config section.
func NewRegistry(cfg common.ProvidersConfig, logger arbor.ILogger) *Registry {
	return &Registry{cfg: cfg, logger: logger}
}

// candidates builds the configured market-data adapters in probe order.
// Disabled vendors and tokenless wire vendors are skipped before probing.
func (r *Registry) candidates() []interfaces.MarketDataProvider {
	out := make([]interfaces.MarketDataProvider, 0, len(r.cfg.Order))
	for _, name := range r.cfg.Order {
		switch name {
		case "tushare":
			if !r.cfg.Tushare.Enabled || r.cfg.Tushare.Token == "" {
				continue
			}
			client := tushare.NewClient(r.cfg.Tushare.Token,
				tushare.WithBaseURL(r.cfg.Tushare.BaseURL),
				tushare.WithLogger(r.logger),
				tushare.WithRateLimit(common.ParseDurationOr(r.cfg.Tushare.RateLimit, tushare.DefaultRateLimit)),
			)
			out = append(out, tushare.New("tushare", client, r.logger))
		case "tinyshare":
			if !r.cfg.Tinyshare.Enabled || r.cfg.Tinyshare.Token == "" {
				continue
			}
			out = append(out, tinyshare.New(r.cfg.Tinyshare, r.logger))
		case "akshare":
			if !r.cfg.Akshare.Enabled {
				continue
			}
			out = append(out, akshare.New(r.cfg.Akshare, r.logger))
		default:
			if r.logger != nil {
				r.logger.Warn().Str("provider", name).Msg("Unknown provider in order, skipping")
			}
		}
	}
	return out
}

// Initialize probes the configured vendors in order and pins the winners.
// A missing news vendor is not fatal: the pipeline degrades to enrichment
// output only. A missing market vendor is fatal.
func (r *Registry) Initialize(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range r.candidates() {
		if err := p.Probe(ctx); err != nil {
			if r.logger != nil {
				r.logger.Warn().
					Str("provider", p.Name()).
					Err(err).
					Msg("Provider probe failed, trying next")
			}
			continue
		}
		if r.logger != nil {
			r.logger.Info().Str("provider", p.Name()).Msg("Market data provider pinned")
		}
		r.market = p
		break
	}
	if r.market == nil {
		return models.Errorf(models.ErrProviderUnavailable, "registry.initialize",
			"no market data provider passed its probe")
	}

	if r.cfg.News.Enabled && r.cfg.News.Token != "" {
		client := tushare.NewClient(r.cfg.News.Token,
			tushare.WithBaseURL(r.cfg.News.BaseURL),
			tushare.WithLogger(r.logger),
		)
		news := tushare.NewNewsProvider(client, r.logger)
		if err := news.Probe(ctx); err != nil {
			// Transport failure disqualifies; an empty feed does not, and
			// Probe only fails on the former.
			if r.logger != nil {
				r.logger.Warn().Err(err).Msg("News provider probe failed, continuing without vendor feeds")
			}
		} else {
			if r.logger != nil {
				r.logger.Info().Str("provider", news.Name()).Msg("News provider pinned")
			}
			r.news = news
		}
	}

	return nil
}

// Market returns the pinned market-data provider.
func (r *Registry) Market() (interfaces.MarketDataProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.market == nil {
		return nil, models.Errorf(models.ErrProviderUnavailable, "registry.market",
			"no market data provider available")
	}
	return r.market, nil
}

// News returns the pinned news provider.
func (r *Registry) News() (interfaces.NewsProvider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.news == nil {
		return nil, models.Errorf(models.ErrProviderUnavailable, "registry.news",
			"no news provider available")
	}
	return r.news, nil
}
