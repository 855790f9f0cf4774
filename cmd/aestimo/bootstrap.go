package main

import (
	"context"
	"flag"
	"time"

	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/providers"
	"github.com/lunahan/aestimo/internal/services/catalog"
	"github.com/lunahan/aestimo/internal/storage/badger"
)

const bootstrapTimeout = 15 * time.Minute

// runBootstrap populates the static catalogue (listings, trade calendar,
// company profiles) from the pinned market provider. It wires only the
// storage and provider layers; no LLM credentials are required.
func runBootstrap(args []string) {
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	var paths configPaths
	registerConfigFlags(fs, &paths)
	fs.Parse(args)

	config := loadConfig(paths)
	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	db, err := badger.NewBadgerDB(logger, &config.Storage.Badger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to open badger store")
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), bootstrapTimeout)
	defer cancel()

	registry := providers.NewRegistry(config.Providers, logger)
	if err := registry.Initialize(ctx); err != nil {
		logger.Fatal().Err(err).Msg("No usable market data provider")
	}

	catalogService := catalog.NewService(registry, badger.NewCatalogStorage(db, logger), logger)

	start := time.Now()
	if err := catalogService.Bootstrap(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Catalogue bootstrap failed")
	}

	// A full reload rewrites every listing; reclaim the old versions.
	if err := db.RunGC(); err != nil {
		logger.Warn().Err(err).Msg("Value-log GC failed")
	}

	logger.Info().
		Int("listings", catalogService.Count()).
		Str("duration", time.Since(start).Round(time.Millisecond).String()).
		Msg("Catalogue bootstrap complete")
}
