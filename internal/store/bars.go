package store

import (
	"sort"
	"strings"
	"sync"

	"cloud.google.com/go/civil"

	"github.com/rzzdr/options-risk-engine/internal/volatility"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// BarStore keeps daily OHLC history per underlying in date order
type BarStore struct {
	bars map[string][]volatility.Bar
	mu   sync.RWMutex
	log  *logger.Logger
}

// NewBarStore creates an empty bar store
func NewBarStore() *BarStore {
	return &BarStore{
		bars: make(map[string][]volatility.Bar),
		log:  logger.GetLogger("store.bars"),
	}
}

func key(underlying string) string {
	return strings.ToUpper(strings.TrimSpace(underlying))
}

// Put merges bars into the history of underlying. A bar for a date already
// present replaces the stored one.
func (s *BarStore) Put(underlying string, bars []volatility.Bar) error {
	k := key(underlying)
	if k == "" {
		return errors.InvalidArgument("underlying cannot be empty")
	}
	for _, b := range bars {
		if err := b.Validate(); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	byDate := make(map[civil.Date]volatility.Bar, len(s.bars[k])+len(bars))
	for _, b := range s.bars[k] {
		byDate[b.Date] = b
	}
	for _, b := range bars {
		byDate[b.Date] = b
	}

	merged := make([]volatility.Bar, 0, len(byDate))
	for _, b := range byDate {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool {
		return merged[i].Date.Before(merged[j].Date)
	})
	s.bars[k] = merged

	s.log.Debugw("Stored bars", "underlying", k, "added", len(bars), "total", len(merged))
	return nil
}

// Bars returns the most recent n bars of underlying, or all of them when n
// is not positive
func (s *BarStore) Bars(underlying string, n int) ([]volatility.Bar, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	bars, exists := s.bars[key(underlying)]
	if !exists {
		return nil, errors.NotFound("no bars for %s", underlying)
	}
	if n > 0 && n < len(bars) {
		bars = bars[len(bars)-n:]
	}
	return append([]volatility.Bar(nil), bars...), nil
}

// Volatility estimates the annualised volatility of underlying over the
// latest window of bars
func (s *BarStore) Volatility(underlying string, e volatility.Estimator, window int, periodsPerYear float64) (float64, error) {
	bars, err := s.Bars(underlying, window)
	if err != nil {
		return 0, err
	}
	return volatility.Latest(bars, e, window, periodsPerYear)
}
