package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/lunahan/aestimo/internal/app"
	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/server"
)

// configPaths is a custom flag type that allows multiple -config flags.
type configPaths []string

func (c *configPaths) String() string {
	return fmt.Sprintf("%v", *c)
}

func (c *configPaths) Set(value string) error {
	*c = append(*c, value)
	return nil
}

var (
	configFiles  configPaths
	serverPort   = flag.Int("port", 0, "Server port (overrides config)")
	serverPortP  = flag.Int("p", 0, "Server port (shorthand, overrides config)")
	serverHost   = flag.String("host", "", "Server host (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
}

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "bootstrap":
			runBootstrap(os.Args[2:])
			return
		case "analyze":
			runAnalyze(os.Args[2:])
			return
		case "version":
			fmt.Printf("Aestimo %s\n", common.GetFullVersion())
			return
		}
	}
	runServe()
}

// registerConfigFlags wires the shared -config/-c flags onto a subcommand
// flag set.
func registerConfigFlags(fs *flag.FlagSet, paths *configPaths) {
	fs.Var(paths, "config", "Configuration file path (can be specified multiple times)")
	fs.Var(paths, "c", "Configuration file path (shorthand)")
}

// loadConfig resolves the effective configuration: auto-discovered or
// explicit files layered over defaults, then environment variables.
func loadConfig(paths configPaths) *common.Config {
	if len(paths) == 0 {
		if _, err := os.Stat("aestimo.toml"); err == nil {
			paths = append(paths, "aestimo.toml")
		} else if _, err := os.Stat("deployments/local/aestimo.toml"); err == nil {
			paths = append(paths, "deployments/local/aestimo.toml")
		}
	}

	config, err := common.LoadFromFiles(paths...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", paths).Err(err).Msg("Failed to load configuration")
		os.Exit(1)
	}
	return config
}

func runServe() {
	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("Aestimo version %s\n", common.GetVersion())
		os.Exit(0)
	}

	// Shorthand port flag takes precedence.
	finalPort := *serverPort
	if *serverPortP != 0 {
		finalPort = *serverPortP
	}

	// Startup order: config, CLI overrides, logger, banner, app, server.
	config := loadConfig(configFiles)
	common.ApplyFlagOverrides(config, finalPort, *serverHost)

	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	logger.Info().
		Strs("config_files", configFiles).
		Int("port", config.Server.Port).
		Str("host", config.Server.Host).
		Str("log_level", config.Logging.Level).
		Msg("Application configuration loaded")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	if err := application.Scheduler.Start(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to start catalogue refresh scheduler")
	}

	srv := server.New(application)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				logger.Fatal().Str("panic", fmt.Sprintf("%v", r)).Msg("Server goroutine panicked")
			}
		}()

		if err := srv.Start(); err != nil {
			logger.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	logger.Info().
		Str("url", fmt.Sprintf("http://%s:%d", config.Server.Host, config.Server.Port)).
		Msg("Server ready - Press Ctrl+C to stop")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info().Msg("Shutting down server")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("Server shutdown failed")
	}

	logger.Info().Msg("Server stopped")
}
