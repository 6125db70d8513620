package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	cfg "github.com/pokedexlab/orchestrator/internal/config"
	"github.com/pokedexlab/orchestrator/internal/ledger"
	"github.com/pokedexlab/orchestrator/internal/models"
	"github.com/pokedexlab/orchestrator/internal/oracle"
	"github.com/pokedexlab/orchestrator/internal/orchestrator"
	"github.com/pokedexlab/orchestrator/internal/pokeapi"
	"github.com/pokedexlab/orchestrator/internal/ratecontrol"
	"github.com/pokedexlab/orchestrator/internal/tools"
	"github.com/pokedexlab/orchestrator/internal/tracing"
	"github.com/pokedexlab/orchestrator/internal/websearch"
)

var sampleQueries = []string{
	"What are the best bug-type Pokemon for a balanced team?",
	"Which early-game Pokemon are easiest to train?",
	"Tell me about legendary water Pokemon",
}

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	conf, err := cfg.Load()
	if err != nil {
		logger.Fatal("Failed to load configuration", zap.Error(err))
	}

	if err := tracing.Initialize(tracing.Config{
		Enabled:      conf.TracingEnabled,
		ServiceName:  "pokedex-orchestrator",
		OTLPEndpoint: conf.OTLPEndpoint,
	}, logger); err != nil {
		logger.Warn("Failed to initialize tracing", zap.Error(err))
	}

	if conf.RateLimitsPath != "" {
		if err := ratecontrol.Load(conf.RateLimitsPath); err != nil {
			logger.Warn("Failed to load rate limits, using defaults", zap.Error(err))
		}
		watcher, err := cfg.NewWatcher(conf.RateLimitsPath, func(path string) {
			if err := ratecontrol.Load(path); err != nil {
				logger.Warn("Rate limit reload failed", zap.Error(err))
			}
		}, logger)
		if err != nil {
			logger.Warn("Failed to watch rate limit file", zap.Error(err))
		} else {
			watcher.Start()
			defer watcher.Stop()
		}
	}

	// Metrics endpoint
	go func() {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		addr := ":" + strconv.Itoa(conf.MetricsPort)
		logger.Info("Metrics HTTP server listening", zap.Int("port", conf.MetricsPort))
		server := &http.Server{
			Addr:         addr,
			Handler:      mux,
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		}
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Metrics HTTP server failed", zap.Error(err))
		}
	}()

	completer, err := oracle.NewOpenAI(oracle.OpenAIConfig{
		APIKey:  conf.OpenAIAPIKey,
		Model:   conf.OpenAIModel,
		BaseURL: conf.OpenAIBaseURL,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize oracle client", zap.Error(err))
	}

	var fetchOpts []pokeapi.Option
	if conf.RedisAddr != "" {
		cache, err := pokeapi.NewRedisCache(conf.RedisAddr, conf.RedisPassword, conf.CacheTTL, logger)
		if err != nil {
			logger.Warn("Failed to connect fetch cache, continuing without", zap.Error(err))
		} else {
			defer cache.Close()
			fetchOpts = append(fetchOpts, pokeapi.WithCache(cache))
		}
	}
	fetcher := pokeapi.New(conf.PokeAPIBaseURL, conf.RequestTimeout, logger, fetchOpts...)
	searcher := websearch.New(conf.RequestTimeout, conf.WebScrapingEnabled, conf.MaxWebResults, logger)

	dispatcher, err := tools.NewDispatcher(fetcher, searcher, logger)
	if err != nil {
		logger.Fatal("Tool catalogue and dispatch table out of sync", zap.Error(err))
	}

	var orcOpts []orchestrator.Option
	if conf.LedgerDSN != "" {
		store, err := ledger.Open(conf.LedgerDriver, conf.LedgerDSN, logger)
		if err != nil {
			logger.Warn("Failed to open ledger store, steps stay in memory", zap.Error(err))
		} else {
			defer store.Close()
			orcOpts = append(orcOpts, orchestrator.WithStore(store))
		}
	}

	orc := orchestrator.New(completer, dispatcher, orchestrator.Config{
		MaxSubagents:        conf.MaxSubagents,
		MaxRefinementCycles: conf.MaxRefinementCycles,
	}, logger, orcOpts...)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if len(os.Args) > 1 {
		query := strings.Join(os.Args[1:], " ")
		runOnce(ctx, orc, query)
		return
	}
	interactive(ctx, orc)
}

func runOnce(ctx context.Context, orc *orchestrator.Orchestrator, query string) {
	fmt.Printf("Researching: %s\n\n", query)
	printReport(orc.Run(ctx, query))
}

func interactive(ctx context.Context, orc *orchestrator.Orchestrator) {
	fmt.Println("Interactive Pokedex research mode. Type 'quit' to exit.")
	fmt.Println("Sample queries:")
	for _, q := range sampleQueries {
		fmt.Printf("  - %s\n", q)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("\nWhat would you like to know about Pokemon? ")
		if !scanner.Scan() {
			return
		}
		query := strings.TrimSpace(scanner.Text())
		switch strings.ToLower(query) {
		case "":
			continue
		case "quit", "exit", "q":
			fmt.Println("Goodbye!")
			return
		}
		select {
		case <-ctx.Done():
			return
		default:
		}
		fmt.Printf("\nResearching: %s\n\n", query)
		printReport(orc.Run(ctx, query))
	}
}

func printReport(report models.ResearchReport) {
	fmt.Println(strings.Repeat("=", 72))
	fmt.Printf("Research Report: %s\n", report.Query)
	fmt.Println(strings.Repeat("=", 72))
	fmt.Println()
	fmt.Println(report.ExecutiveSummary)

	if len(report.Recommendations) > 0 {
		fmt.Println("\nRecommendations:")
		for _, r := range report.Recommendations {
			fmt.Printf("  - %s\n", r)
		}
	}
	if len(report.Limitations) > 0 {
		fmt.Println("\nLimitations:")
		for _, l := range report.Limitations {
			fmt.Printf("  - %s\n", l)
		}
	}
	if len(report.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, s := range report.Sources {
			fmt.Printf("  - %s\n", s)
		}
	}

	fmt.Printf("\nResearch steps: %d\n", len(report.ResearchSteps))
	for i, step := range report.ResearchSteps {
		status := "ok"
		if !step.Success {
			status = "FAILED: " + step.ErrorMessage
		}
		fmt.Printf("  %2d. [%s] %s (%s)\n", i+1, step.Kind, step.Description, status)
	}
	fmt.Printf("\nConfidence: %.2f (generated at %s)\n",
		report.ConfidenceScore, report.GeneratedAt.Format(time.RFC3339))
}
