package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/rzzdr/options-risk-engine/config"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

var (
	configFile = flag.String("config", "", "Path to configuration file (default ./config/config.yaml)")
	positions  = flag.String("positions", "", "Position CSV to load")
	spot       = flag.Float64("spot", 0, "Spot for every underlying; zero derives spot and volatility from bars")
	vol        = flag.Float64("vol", 0, "Volatility used with -spot")
	format     = flag.String("format", "table", "Report format: table or json")
	stress     = flag.Bool("stress", false, "Print stress scenarios for every strategy")
	profile    = flag.Bool("profile", false, "Print the expiry profile of every strategy")
	serve      = flag.Bool("serve", false, "Serve the HTTP API instead of printing a report")
	bars       = barFiles{}
)

func main() {
	flag.Var(bars, "bars", "OHLC history as UNDERLYING=path.csv; repeatable")
	flag.Parse()

	cfg, err := config.Load(*configFile)
	if err != nil {
		logger.GetLogger("risk-engine.main").Fatalf("Failed to load configuration: %v", err)
	}
	logger.Init(cfg.App.LogLevel, cfg.App.Environment)
	log := logger.GetLogger("risk-engine.main")

	// Create a context that will be canceled on program termination
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	opts := options{
		positions: *positions,
		bars:      bars,
		spot:      *spot,
		vol:       *vol,
		format:    *format,
		stress:    *stress,
		profile:   *profile,
		serve:     *serve,
	}
	if err := run(ctx, cfg, opts, os.Stdout); err != nil {
		log.Fatalf("Risk engine failed: %v", err)
	}
}
