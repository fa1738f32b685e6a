package api

import (
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/rzzdr/options-risk-engine/internal/ingest"
	"github.com/rzzdr/options-risk-engine/internal/option"
	"github.com/rzzdr/options-risk-engine/internal/position"
	"github.com/rzzdr/options-risk-engine/internal/risk"
	"github.com/rzzdr/options-risk-engine/internal/store"
	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/internal/volatility"
	"github.com/rzzdr/options-risk-engine/pkg/metrics"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// Version is reported by the health check
const Version = "1.0.0"

// Defaults fill in what a request leaves out
type Defaults struct {
	Rate           float64
	DividendYield  float64
	Estimator      volatility.Estimator
	Window         int
	PeriodsPerYear float64
	VaRConfidence  float64
	VaRLookback    int
}

// Handlers contains all HTTP handlers for the API
type Handlers struct {
	strategies *store.StrategyStore
	bars       *store.BarStore
	engine     *risk.Engine
	defaults   Defaults
	settings   []option.Setting
	metrics    *metrics.Recorder
	log        *logger.Logger
}

// CreateHandlers creates new API handlers. Settings are applied to every
// option the API builds. The recorder may be nil.
func CreateHandlers(
	strategies *store.StrategyStore,
	bars *store.BarStore,
	engine *risk.Engine,
	defaults Defaults,
	settings []option.Setting,
	recorder *metrics.Recorder,
) *Handlers {
	return &Handlers{
		strategies: strategies,
		bars:       bars,
		engine:     engine,
		defaults:   defaults,
		settings:   settings,
		metrics:    recorder,
		log:        logger.GetLogger("api.handlers"),
	}
}

// statusFor maps an error to the HTTP status it is reported with
func statusFor(err error) int {
	switch errors.TypeOf(err) {
	case errors.ErrorTypeInvalidArgument,
		errors.ErrorTypeInvalidMarketParameter,
		errors.ErrorTypeInvalidStrategyConfiguration:
		return http.StatusBadRequest
	case errors.ErrorTypeNotFound:
		return http.StatusNotFound
	case errors.ErrorTypeUnsupportedExerciseStyle,
		errors.ErrorTypeExpiredContract:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handlers) fail(c *gin.Context, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Errorw("Request failed", "path", c.FullPath(), "error", err)
	} else {
		h.log.Debugw("Request rejected", "path", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, gin.H{
		"error": err.Error(),
		"type":  errors.TypeOf(err).String(),
	})
}

func (h *Handlers) badRequest(c *gin.Context, err error) {
	h.fail(c, errors.InvalidArgument("invalid request: %v", err))
}

// bindOptionalJSON decodes the body into obj; an empty body leaves obj as is
func bindOptionalJSON(c *gin.Context, obj interface{}) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (h *Handlers) marketSource(req *marketRequest) risk.MarketSource {
	if !req.explicit() {
		return risk.HistoryMarket{
			Bars:           h.bars,
			Estimator:      h.defaults.Estimator,
			Window:         h.defaults.Window,
			PeriodsPerYear: h.defaults.PeriodsPerYear,
			Rate:           h.defaults.Rate,
			DividendYield:  h.defaults.DividendYield,
		}
	}

	base := models.MarketInputs{
		Spot:          req.Spot,
		Volatility:    req.Volatility,
		Rate:          h.defaults.Rate,
		DividendYield: h.defaults.DividendYield,
		TimeToExpiry:  req.TimeToExpiry,
	}
	if req.Rate != nil {
		base.Rate = *req.Rate
	}
	if req.DividendYield != nil {
		base.DividendYield = *req.DividendYield
	}
	return risk.StaticMarket{Base: base, Underlyings: req.Underlyings}
}

func (h *Handlers) inputs(s *strategy.Strategy, req *marketRequest) (strategy.Inputs, error) {
	return h.marketSource(req).Inputs(s)
}

func (h *Handlers) lookup(c *gin.Context) (store.StoredStrategy, bool) {
	entry, err := h.strategies.Get(c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return store.StoredStrategy{}, false
	}
	return entry, true
}

func (h *Handlers) recordStored() {
	if h.metrics != nil {
		h.metrics.RecordStoredStrategies(len(h.strategies.List()))
	}
}

// HealthCheckHandler handles health check requests
func (h *Handlers) HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"timestamp":  time.Now().Format(time.RFC3339),
		"version":    Version,
		"strategies": len(h.strategies.List()),
	})
}

// PriceOptionHandler prices a single option and returns its Greeks
func (h *Handlers) PriceOptionHandler(c *gin.Context) {
	var request priceRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}

	style := request.Style
	if style == 0 {
		style = models.ExerciseEuropean
	}
	opt, err := option.New(request.Class, request.Underlying, request.Strike, style, request.Expiry, h.settings...)
	if err != nil {
		h.fail(c, err)
		return
	}
	pos, err := position.New(models.Long, 1, opt, 0, 0)
	if err != nil {
		h.fail(c, err)
		return
	}
	single, err := strategy.New(opt.String(), pos)
	if err != nil {
		h.fail(c, err)
		return
	}

	in, err := h.inputs(single, request.Market)
	if err != nil {
		h.fail(c, err)
		return
	}
	m, err := in.For(0, 1)
	if err != nil {
		h.fail(c, err)
		return
	}

	price, err := opt.Price(m)
	if err != nil {
		h.fail(c, err)
		return
	}
	greeks, err := opt.Greeks(m)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, priceResponse{
		Option:    opt.String(),
		Class:     opt.Class(),
		Style:     opt.ExerciseType(),
		Strike:    opt.Strike(),
		Expiry:    opt.Expiry(),
		Market:    m,
		Price:     price,
		Intrinsic: opt.IntrinsicValue(m.Spot),
		Greeks:    greeks,
	})
}

// CreateStrategyHandler builds and stores a strategy
func (h *Handlers) CreateStrategyHandler(c *gin.Context) {
	var request strategyRequest
	if err := c.ShouldBindJSON(&request); err != nil {
		h.badRequest(c, err)
		return
	}

	s, err := request.build(h.settings)
	if err != nil {
		h.fail(c, err)
		return
	}
	if name := strings.TrimSpace(request.Name); name != "" && name != s.Name() {
		if s, err = strategy.New(name, s.Positions()...); err != nil {
			h.fail(c, err)
			return
		}
	}

	entry, err := h.strategies.Save(s)
	if err != nil {
		h.fail(c, err)
		return
	}
	h.recordStored()

	h.log.Infow("Created strategy", "id", entry.ID, "name", s.Name(), "legs", s.Len())
	c.JSON(http.StatusCreated, newStrategyResponse(entry))
}

// ListStrategiesHandler returns every stored strategy
func (h *Handlers) ListStrategiesHandler(c *gin.Context) {
	entries := h.strategies.List()
	response := make([]strategyResponse, len(entries))
	for i, e := range entries {
		response[i] = newStrategyResponse(e)
	}
	c.JSON(http.StatusOK, gin.H{
		"strategies": response,
		"count":      len(response),
	})
}

// GetStrategyHandler returns one stored strategy
func (h *Handlers) GetStrategyHandler(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, newStrategyResponse(entry))
}

// DeleteStrategyHandler removes a stored strategy
func (h *Handlers) DeleteStrategyHandler(c *gin.Context) {
	if err := h.strategies.Delete(c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	h.recordStored()
	c.Status(http.StatusNoContent)
}

// EvaluateStrategyHandler values a stored strategy
func (h *Handlers) EvaluateStrategyHandler(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	var request evaluateRequest
	if err := bindOptionalJSON(c, &request); err != nil {
		h.badRequest(c, err)
		return
	}

	in, err := h.inputs(entry.Strategy, request.Market)
	if err != nil {
		h.fail(c, err)
		return
	}
	report, err := h.engine.Evaluate(c.Request.Context(), entry.Strategy, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// ProfileStrategyHandler returns the payoff profile of a stored strategy
func (h *Handlers) ProfileStrategyHandler(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	var request profileRequest
	if err := bindOptionalJSON(c, &request); err != nil {
		h.badRequest(c, err)
		return
	}

	var in strategy.Inputs
	grid := request.Prices
	if len(grid) == 0 || request.Market != nil {
		var err error
		if in, err = h.inputs(entry.Strategy, request.Market); err != nil {
			h.fail(c, err)
			return
		}
	}
	if len(grid) == 0 {
		if entry.Strategy.Len() == 0 {
			h.fail(c, errors.InvalidArgument("strategy has no legs to profile"))
			return
		}
		m, err := in.For(0, entry.Strategy.Len())
		if err != nil {
			h.fail(c, err)
			return
		}
		grid = h.engine.Grid(m.Spot)
	}

	profile, err := h.engine.Profile(entry.Strategy, grid, in)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// StressStrategyHandler revalues a stored strategy under market shocks
func (h *Handlers) StressStrategyHandler(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	var request stressRequest
	if err := bindOptionalJSON(c, &request); err != nil {
		h.badRequest(c, err)
		return
	}
	shocks := request.Shocks
	if len(shocks) == 0 {
		shocks = risk.DefaultShocks
	}

	in, err := h.inputs(entry.Strategy, request.Market)
	if err != nil {
		h.fail(c, err)
		return
	}
	results, err := h.engine.Stress(entry.Strategy, in, shocks)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"strategy":  entry.Strategy.Name(),
		"scenarios": results,
	})
}

// ValueAtRiskHandler runs a historical simulation on a stored strategy over
// the stored bars of its first leg's underlying
func (h *Handlers) ValueAtRiskHandler(c *gin.Context) {
	entry, ok := h.lookup(c)
	if !ok {
		return
	}

	var request varRequest
	if err := bindOptionalJSON(c, &request); err != nil {
		h.badRequest(c, err)
		return
	}
	if request.Confidence == 0 {
		request.Confidence = h.defaults.VaRConfidence
	}
	if request.Lookback <= 0 {
		request.Lookback = h.defaults.VaRLookback
	}

	legs := entry.Strategy.Positions()
	if len(legs) == 0 {
		h.fail(c, errors.InvalidArgument("strategy has no legs"))
		return
	}
	underlying := legs[0].Option().Underlying()
	bars, err := h.bars.Bars(underlying, request.Lookback+1)
	if err != nil {
		h.fail(c, err)
		return
	}

	in, err := h.inputs(entry.Strategy, request.Market)
	if err != nil {
		h.fail(c, err)
		return
	}
	result, err := h.engine.HistoricalVaR(entry.Strategy, in, bars, request.Confidence)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"strategy":   entry.Strategy.Name(),
		"underlying": underlying,
		"var":        result,
	})
}

// ReportHandler values every stored strategy. With format=table the reports
// are rendered as text.
func (h *Handlers) ReportHandler(c *gin.Context) {
	var request evaluateRequest
	if err := bindOptionalJSON(c, &request); err != nil {
		h.badRequest(c, err)
		return
	}

	entries := h.strategies.List()
	strategies := make([]*strategy.Strategy, len(entries))
	for i, e := range entries {
		strategies[i] = e.Strategy
	}

	reports, err := h.engine.EvaluateAll(c.Request.Context(), strategies, h.marketSource(request.Market))
	if err != nil {
		h.fail(c, err)
		return
	}

	if c.Query("format") == "table" {
		c.Header("Content-Type", "text/plain; charset=utf-8")
		c.Status(http.StatusOK)
		risk.RenderReports(c.Writer, reports)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"reports": reports,
		"count":   len(reports),
	})
}

// ImportPositionsHandler loads a position CSV and stores one strategy per
// strategy name in it
func (h *Handlers) ImportPositionsHandler(c *gin.Context) {
	strategies, err := ingest.ReadPositions(c.Request.Body, h.settings...)
	if err != nil {
		h.fail(c, err)
		return
	}

	response := make([]strategyResponse, 0, len(strategies))
	for _, s := range strategies {
		entry, err := h.strategies.Save(s)
		if err != nil {
			h.fail(c, err)
			return
		}
		response = append(response, newStrategyResponse(entry))
	}
	h.recordStored()

	h.log.Infow("Imported positions", "strategies", len(response))
	c.JSON(http.StatusCreated, gin.H{
		"strategies": response,
		"count":      len(response),
	})
}

// ExportPositionsHandler writes every stored strategy as position CSV
func (h *Handlers) ExportPositionsHandler(c *gin.Context) {
	entries := h.strategies.List()
	strategies := make([]*strategy.Strategy, len(entries))
	for i, e := range entries {
		strategies[i] = e.Strategy
	}

	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Status(http.StatusOK)
	if err := ingest.WritePositions(c.Writer, strategies); err != nil {
		h.log.Errorw("Position export failed", "error", err)
	}
}

// PutBarsHandler merges OHLC bars for an underlying. The body is either a
// JSON array or CSV with a date,open,high,low,close header.
func (h *Handlers) PutBarsHandler(c *gin.Context) {
	underlying := c.Param("underlying")

	var bars []volatility.Bar
	if strings.HasPrefix(c.ContentType(), "text/csv") {
		var err error
		if bars, err = ingest.ReadBars(c.Request.Body); err != nil {
			h.fail(c, err)
			return
		}
	} else if err := c.ShouldBindJSON(&bars); err != nil {
		h.badRequest(c, err)
		return
	}

	if err := h.bars.Put(underlying, bars); err != nil {
		h.fail(c, err)
		return
	}
	stored, err := h.bars.Bars(underlying, 0)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"underlying": strings.ToUpper(underlying),
		"added":      len(bars),
		"total":      len(stored),
	})
}

// GetBarsHandler returns the latest bars of an underlying; n limits the count
func (h *Handlers) GetBarsHandler(c *gin.Context) {
	n, err := queryInt(c, "n", 0)
	if err != nil {
		h.badRequest(c, err)
		return
	}
	bars, err := h.bars.Bars(c.Param("underlying"), n)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"underlying": strings.ToUpper(c.Param("underlying")),
		"bars":       bars,
	})
}

// VolatilityHandler estimates the historical volatility of an underlying
func (h *Handlers) VolatilityHandler(c *gin.Context) {
	estimator := h.defaults.Estimator
	if name := c.Query("estimator"); name != "" {
		var err error
		if estimator, err = volatility.ParseEstimator(name); err != nil {
			h.fail(c, err)
			return
		}
	}
	window, err := queryInt(c, "window", h.defaults.Window)
	if err != nil {
		h.badRequest(c, err)
		return
	}

	underlying := c.Param("underlying")
	vol, err := h.bars.Volatility(underlying, estimator, window, h.defaults.PeriodsPerYear)
	if err != nil {
		h.fail(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"underlying": strings.ToUpper(underlying),
		"estimator":  estimator.String(),
		"window":     window,
		"volatility": vol,
	})
}

func queryInt(c *gin.Context, key string, fallback int) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.InvalidArgument("query parameter %s: %v", key, err)
	}
	return v, nil
}
