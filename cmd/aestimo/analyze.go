package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"regexp"
	"sync"

	"github.com/lunahan/aestimo/internal/app"
	"github.com/lunahan/aestimo/internal/common"
	"github.com/lunahan/aestimo/internal/models"
)

var analyzeCodePattern = regexp.MustCompile(`^\d{6}\.(SZ|SH|BJ)$`)

// runAnalyze executes one analysis pipeline in the foreground and prints
// the stream frames to stdout as they arrive.
func runAnalyze(args []string) {
	fs := flag.NewFlagSet("analyze", flag.ExitOnError)
	var paths configPaths
	registerConfigFlags(fs, &paths)
	endDate := fs.String("date", "", "Analysis end date (YYYYMMDD or YYYY-MM-DD, defaults to today)")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprintln(os.Stderr, "usage: aestimo analyze [-config file] [-date YYYYMMDD] <stock_code>")
		os.Exit(2)
	}
	stockCode := fs.Arg(0)
	if !analyzeCodePattern.MatchString(stockCode) {
		fmt.Fprintf(os.Stderr, "invalid stock code %q: expected 6 digits with a .SZ/.SH/.BJ suffix\n", stockCode)
		os.Exit(2)
	}

	config := loadConfig(paths)
	logger := common.InitLogger(config)
	common.PrintBanner(common.GetVersion())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	application, err := app.New(ctx, config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
	}
	defer application.Close()

	threadID := common.NewThreadID()
	sub := application.EventService.Subscribe(threadID)
	defer sub.Cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for ev := range sub.C {
			printFrame(ev)
			if ev.FinishReason == models.FinishReasonStop {
				return
			}
		}
	}()

	summary, err := application.Pipeline.Run(ctx, stockCode, *endDate, threadID)
	wg.Wait()
	if err != nil {
		logger.Fatal().Err(err).Str("stock_code", stockCode).Msg("Analysis failed")
	}

	out, _ := json.MarshalIndent(summary, "", "  ")
	fmt.Println(string(out))
}

// printFrame renders one stream frame as a progress line. Analyst report
// bodies are elided; the node lifecycle messages carry the narrative.
func printFrame(ev models.StreamEvent) {
	content := ev.Content
	if ev.NodeStatus == models.NodeStatusCompleted && len(content) > 120 {
		content = string([]rune(content)[:120]) + "..."
	}
	fmt.Printf("[%s] %s\n", ev.Agent, content)
}
