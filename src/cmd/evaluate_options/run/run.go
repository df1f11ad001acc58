package run

import (
	"context"
	"fmt"
	"os"
	"sync"

	log "github.com/sirupsen/logrus"

	"option-screener/src/eventconsumers"
	"option-screener/src/eventmodels"
	"option-screener/src/eventpubsub"
	"option-screener/src/marketdata"
	"option-screener/src/screener"
	"option-screener/src/utils"
	"option-screener/src/worker"
)

type RunArgs struct {
	Symbols        []eventmodels.StockSymbol
	WatchlistFile  string
	ConfigFile     string
	OutDir         string
	Expiry         string
	NoTradingHours bool
}

type RunResult struct {
	Completed int
	Failed    int
	Files     []string
}

// Run wires the full evaluation pipeline and blocks until every symbol task
// reaches a terminal state or the context is cancelled.
func Run(ctx context.Context, args RunArgs) (RunResult, error) {
	if err := utils.InitEnvironmentVariables(); err != nil {
		return RunResult{}, fmt.Errorf("Run: failed to load environment variables: %w", err)
	}

	cfg, err := eventmodels.LoadScreenerConfig(args.ConfigFile)
	if err != nil {
		return RunResult{}, fmt.Errorf("Run: failed to load config: %w", err)
	}

	symbols := args.Symbols
	if args.WatchlistFile != "" {
		fromFile, err := utils.ReadWatchlist(args.WatchlistFile)
		if err != nil {
			return RunResult{}, fmt.Errorf("Run: failed to read watchlist: %w", err)
		}

		symbols = append(symbols, fromFile...)
	}

	if len(symbols) == 0 {
		return RunResult{}, fmt.Errorf("Run: no symbols to evaluate")
	}

	baseURL := os.Getenv("IB_PORTAL_BASE_URL")
	if baseURL == "" {
		baseURL = "https://localhost:5000/v1/api"
	}

	wsURL := os.Getenv("IB_PORTAL_WS_URL")
	if wsURL == "" {
		wsURL = "wss://localhost:5000/v1/api/ws"
	}

	eventpubsub.Init()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	wg := sync.WaitGroup{}

	router := marketdata.NewRouter()
	service := worker.NewIBPortalClient(baseURL, wsURL, router)
	gateway := marketdata.NewGateway(service, router, cfg.QuotePoolSize, cfg.LookupPoolSize)

	writer := eventconsumers.NewRecommendationWriterWorker(&wg, args.OutDir)
	writer.Start(ctx)

	supervisor := screener.NewSupervisor(&wg, gateway, cfg)

	for _, symbol := range symbols {
		supervisor.AddSymbol(symbol, args.Expiry, args.NoTradingHours)
	}

	log.Infof("Run: evaluating %d symbols, expiry %s", len(symbols), args.Expiry)

	supervisor.Start(ctx)

	select {
	case <-supervisor.Done():
	case <-ctx.Done():
		log.Warn("Run: cancelled before all tasks finished")
	}

	// let in-flight bus deliveries land before reading the store
	eventpubsub.WaitAsync()

	cancel()
	wg.Wait()

	result := RunResult{}
	for _, task := range supervisor.Tasks() {
		if task.State() == eventmodels.TaskStateCompleted {
			result.Completed++
		} else {
			result.Failed++
		}
	}

	if err := writer.Flush(); err != nil {
		return result, fmt.Errorf("Run: failed to write reports: %w", err)
	}

	result.Files = writer.Files()

	return result, nil
}
