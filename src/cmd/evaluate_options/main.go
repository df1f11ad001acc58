package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"option-screener/src/cmd/evaluate_options/run"
	"option-screener/src/eventmodels"
	"option-screener/src/screener"
)

var rootCmd = &cobra.Command{
	Use:   "go run src/cmd/evaluate_options/main.go --symbol AAPL --symbol MSFT",
	Short: "Evaluate option trades for a set of underlyings and report price boundaries",
	Run: func(cmd *cobra.Command, args []string) {
		symbols, err := cmd.Flags().GetStringSlice("symbol")
		if err != nil {
			log.Fatalf("error getting symbol: %v", err)
		}

		watchlistFile, err := cmd.Flags().GetString("watchlist-file")
		if err != nil {
			log.Fatalf("error getting watchlist-file: %v", err)
		}

		configFile, err := cmd.Flags().GetString("config")
		if err != nil {
			log.Fatalf("error getting config: %v", err)
		}

		outDir, err := cmd.Flags().GetString("out-dir")
		if err != nil {
			log.Fatalf("error getting out-dir: %v", err)
		}

		expiry, err := cmd.Flags().GetString("expiry")
		if err != nil {
			log.Fatalf("error getting expiry: %v", err)
		}

		noTradingHours, err := cmd.Flags().GetBool("no-trading-hours")
		if err != nil {
			log.Fatalf("error getting no-trading-hours: %v", err)
		}

		logLevel, err := cmd.Flags().GetString("log-level")
		if err != nil {
			log.Fatalf("error getting log-level: %v", err)
		}

		level, err := log.ParseLevel(logLevel)
		if err != nil {
			log.SetLevel(log.InfoLevel)
		} else {
			log.SetLevel(level)
		}

		if expiry == "" {
			expiry = screener.NextFridayExpiry(time.Now().UTC())
		}

		var stockSymbols []eventmodels.StockSymbol
		for _, s := range symbols {
			stockSymbols = append(stockSymbols, eventmodels.NewStockSymbol(s))
		}

		ctx, cancel := context.WithCancel(context.Background())

		// Shut down cleanly on ctrl-c: the supervisor cancels every live
		// task, which vacates the gateway pools.
		stop := make(chan os.Signal, 1)
		signal.Notify(stop, os.Interrupt)
		signal.Notify(stop, syscall.SIGTERM)

		go func() {
			<-stop
			log.Info("shutdown signal received")
			cancel()
		}()

		result, err := run.Run(ctx, run.RunArgs{
			Symbols:        stockSymbols,
			WatchlistFile:  watchlistFile,
			ConfigFile:     configFile,
			OutDir:         outDir,
			Expiry:         expiry,
			NoTradingHours: noTradingHours,
		})

		if err != nil {
			log.Fatalf("error running command: %v", err)
		}

		fmt.Printf("Completed: %d, Failed: %d\n", result.Completed, result.Failed)
		for _, f := range result.Files {
			fmt.Printf("Wrote: %s\n", f)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringSlice("symbol", []string{}, "Underlying symbol to evaluate. Repeatable.")
	rootCmd.PersistentFlags().String("watchlist-file", "", "CSV watchlist of symbols to evaluate.")
	rootCmd.PersistentFlags().String("config", "", "Path to the screener config yaml. Defaults apply when omitted.")
	rootCmd.PersistentFlags().String("out-dir", "output", "The directory to write the reports to.")
	rootCmd.PersistentFlags().String("expiry", "", "Option expiry as YYYYMMDD. Defaults to next Friday.")
	rootCmd.PersistentFlags().Bool("no-trading-hours", false, "Evaluate outside trading hours using mark prices only.")
	rootCmd.PersistentFlags().String("log-level", "info", "The log level to run the command in.")

	cobra.CheckErr(rootCmd.Execute())
}
