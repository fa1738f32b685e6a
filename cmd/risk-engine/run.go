package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"github.com/rzzdr/options-risk-engine/config"
	"github.com/rzzdr/options-risk-engine/internal/ingest"
	"github.com/rzzdr/options-risk-engine/internal/option"
	"github.com/rzzdr/options-risk-engine/internal/risk"
	"github.com/rzzdr/options-risk-engine/internal/store"
	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/internal/volatility"
	"github.com/rzzdr/options-risk-engine/pkg/api"
	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// barFiles maps underlyings to OHLC CSV paths
type barFiles map[string]string

func (b barFiles) String() string {
	pairs := make([]string, 0, len(b))
	for u, p := range b {
		pairs = append(pairs, u+"="+p)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",")
}

func (b barFiles) Set(v string) error {
	underlying, path, ok := strings.Cut(v, "=")
	if !ok || strings.TrimSpace(underlying) == "" || strings.TrimSpace(path) == "" {
		return fmt.Errorf("want UNDERLYING=path.csv, got %q", v)
	}
	b[strings.TrimSpace(underlying)] = strings.TrimSpace(path)
	return nil
}

type options struct {
	positions string
	bars      barFiles
	spot      float64
	vol       float64
	format    string
	stress    bool
	profile   bool
	serve     bool
}

// app holds everything built from the configuration
type app struct {
	cfg        *config.Config
	settings   []option.Setting
	estimator  volatility.Estimator
	registry   *prometheus.Registry
	recorder   *metrics.Recorder
	engine     *risk.Engine
	strategies *store.StrategyStore
	bars       *store.BarStore
	log        *logger.Logger
}

func newApp(cfg *config.Config) (*app, error) {
	settings, err := cfg.OptionSettings()
	if err != nil {
		return nil, err
	}
	estimator, err := cfg.Volatility.Parse()
	if err != nil {
		return nil, err
	}

	registry := prometheus.NewRegistry()
	recorder := metrics.NewRecorder(registry)

	return &app{
		cfg:       cfg,
		settings:  settings,
		estimator: estimator,
		registry:  registry,
		recorder:  recorder,
		engine: risk.NewEngine(risk.EngineConfig{
			Workers:      cfg.Risk.Workers,
			ProfileMin:   cfg.Risk.ProfileMin,
			ProfileMax:   cfg.Risk.ProfileMax,
			ProfileSteps: cfg.Risk.ProfileSteps,
		}, recorder),
		strategies: store.NewStrategyStore(),
		bars:       store.NewBarStore(),
		log:        logger.GetLogger("risk-engine"),
	}, nil
}

func (a *app) loadBars(files barFiles) error {
	for underlying, path := range files {
		f, err := os.Open(path)
		if err != nil {
			return errors.Wrapf(err, "open bars for %s", underlying)
		}
		bars, err := ingest.ReadBars(f)
		f.Close()
		if err != nil {
			return errors.Wrapf(err, "read %s", path)
		}
		if err := a.bars.Put(underlying, bars); err != nil {
			return err
		}
		a.log.Infow("Loaded bars", "underlying", underlying, "count", len(bars))
	}
	return nil
}

func (a *app) loadPositions(path string) error {
	if path == "" {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open positions")
	}
	defer f.Close()

	strategies, err := ingest.ReadPositions(f, a.settings...)
	if err != nil {
		return err
	}
	for _, s := range strategies {
		if _, err := a.strategies.Save(s); err != nil {
			return err
		}
	}
	a.recorder.RecordStoredStrategies(len(strategies))
	return nil
}

func (a *app) market(spot, vol float64) risk.MarketSource {
	if spot > 0 {
		return risk.StaticMarket{Base: models.MarketInputs{
			Spot:          spot,
			Volatility:    vol,
			Rate:          a.cfg.Pricing.Rate,
			DividendYield: a.cfg.Pricing.DividendYield,
		}}
	}
	return risk.HistoryMarket{
		Bars:           a.bars,
		Estimator:      a.estimator,
		Window:         a.cfg.Volatility.Window,
		PeriodsPerYear: a.cfg.Volatility.PeriodsPerYear,
		Rate:           a.cfg.Pricing.Rate,
		DividendYield:  a.cfg.Pricing.DividendYield,
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, out io.Writer) error {
	a, err := newApp(cfg)
	if err != nil {
		return err
	}
	if err := a.loadBars(opts.bars); err != nil {
		return err
	}
	if err := a.loadPositions(opts.positions); err != nil {
		return err
	}

	if opts.serve {
		return a.serve(ctx)
	}
	return a.report(ctx, opts, out)
}

func (a *app) report(ctx context.Context, opts options, out io.Writer) error {
	entries := a.strategies.List()
	strategies := make([]*strategy.Strategy, len(entries))
	for i, e := range entries {
		strategies[i] = e.Strategy
	}

	market := a.market(opts.spot, opts.vol)
	reports, err := a.engine.EvaluateAll(ctx, strategies, market)
	if err != nil {
		return err
	}

	switch opts.format {
	case "json":
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(reports); err != nil {
			return errors.Wrap(err, "encode reports")
		}
	case "table", "":
		risk.RenderReports(out, reports)
	default:
		return errors.InvalidArgument("unknown report format %q", opts.format)
	}

	if !opts.stress && !opts.profile {
		return nil
	}
	for i, s := range strategies {
		if reports[i].Error != "" || s.Len() == 0 {
			continue
		}
		in, err := market.Inputs(s)
		if err != nil {
			return err
		}

		if opts.stress {
			results, err := a.engine.Stress(s, in, risk.DefaultShocks)
			if err != nil {
				return errors.Wrapf(err, "stress %s", s.Name())
			}
			fmt.Fprintf(out, "\n%s: stress scenarios\n", s.Name())
			risk.RenderScenarios(out, results)
		}

		if opts.profile {
			m, err := in.For(0, s.Len())
			if err != nil {
				return err
			}
			p, err := a.engine.Profile(s, a.engine.Grid(m.Spot), in)
			if err != nil {
				return errors.Wrapf(err, "profile %s", s.Name())
			}
			fmt.Fprintf(out, "\n%s: profile\n", s.Name())
			risk.RenderProfile(out, p)
		}
	}
	return nil
}

func (a *app) serve(ctx context.Context) error {
	cfg := a.cfg

	handlers := api.CreateHandlers(a.strategies, a.bars, a.engine, api.Defaults{
		Rate:           cfg.Pricing.Rate,
		DividendYield:  cfg.Pricing.DividendYield,
		Estimator:      a.estimator,
		Window:         cfg.Volatility.Window,
		PeriodsPerYear: cfg.Volatility.PeriodsPerYear,
		VaRConfidence:  cfg.Risk.VaRConfidence,
		VaRLookback:    cfg.Risk.VaRLookback,
	}, a.settings, a.recorder)

	server := api.NewServer(api.Config{
		Host:           cfg.API.Host,
		Port:           cfg.API.Port,
		ReadTimeout:    cfg.API.ReadTimeout,
		WriteTimeout:   cfg.API.WriteTimeout,
		RateLimit:      cfg.API.RateLimit,
		RateBurst:      cfg.API.RateBurst,
		AllowedOrigins: cfg.API.CORS.AllowedOrigins,
		AllowedMethods: cfg.API.CORS.AllowedMethods,
		AllowedHeaders: cfg.API.CORS.AllowedHeaders,
	}, handlers, a.recorder, a.registry)

	var promServer *metrics.PrometheusServer
	if cfg.Metrics.Prometheus.Enabled {
		promServer = metrics.NewPrometheusServer(cfg.Metrics.Prometheus.Port, a.registry)
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(server.Start)
	if promServer != nil {
		g.Go(promServer.Start)
	}
	if cfg.Metrics.Interval > 0 {
		g.Go(func() error {
			metrics.CollectRuntime(ctx, a.recorder, cfg.Metrics.Interval)
			return nil
		})
	}

	g.Go(func() error {
		<-ctx.Done()
		a.log.Info("Shutting down")

		timeout := cfg.API.ShutdownTimeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := server.Stop(shutdownCtx); err != nil {
			a.log.Errorf("Error stopping API server: %v", err)
		}
		if promServer != nil {
			if err := promServer.Stop(shutdownCtx); err != nil {
				a.log.Errorf("Error stopping metrics server: %v", err)
			}
		}
		return nil
	})

	return g.Wait()
}
