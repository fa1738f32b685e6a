package store

import (
	"sync"
	"testing"
	"time"

	"cloud.google.com/go/civil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/internal/volatility"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

func init() {
	logger.UseNop()
}

func straddle(t *testing.T) *strategy.Strategy {
	t.Helper()
	s, err := strategy.Straddle(strategy.StraddleConfig{
		Contract: strategy.Contract{Underlying: "SPY", Expiry: civil.Date{Year: 2025, Month: 6, Day: 20}},
		Strike:   500,
	})
	require.NoError(t, err)
	return s
}

func TestStrategyStoreLifecycle(t *testing.T) {
	st := NewStrategyStore()
	clock := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	st.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}

	first, err := st.Save(straddle(t))
	require.NoError(t, err)
	_, err = uuid.Parse(first.ID)
	require.NoError(t, err)

	second, err := st.Save(straddle(t))
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	got, err := st.Get(first.ID)
	require.NoError(t, err)
	assert.Same(t, first.Strategy, got.Strategy)

	list := st.List()
	require.Len(t, list, 2)
	assert.Equal(t, first.ID, list[0].ID)
	assert.Equal(t, second.ID, list[1].ID)

	require.NoError(t, st.Delete(first.ID))
	_, err = st.Get(first.ID)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.True(t, errors.IsType(st.Delete(first.ID), errors.ErrorTypeNotFound))
	assert.Len(t, st.List(), 1)

	_, err = st.Save(nil)
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestStrategyStoreConcurrentSaves(t *testing.T) {
	st := NewStrategyStore()
	s := straddle(t)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := st.Save(s)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Len(t, st.List(), 50)
}

func bar(day int, o, h, l, c float64) volatility.Bar {
	return volatility.Bar{Date: civil.Date{Year: 2024, Month: 4, Day: day}, Open: o, High: h, Low: l, Close: c}
}

func TestBarStore(t *testing.T) {
	bs := NewBarStore()

	require.NoError(t, bs.Put("spy", []volatility.Bar{
		bar(3, 100, 103, 99, 102),
		bar(1, 100, 101, 98, 100),
	}))
	require.NoError(t, bs.Put("SPY ", []volatility.Bar{
		bar(2, 100, 102, 99, 101),
		bar(3, 102, 104, 101, 103),
	}))

	bars, err := bs.Bars("SPY", 0)
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, 1, bars[0].Date.Day)
	assert.Equal(t, 3, bars[2].Date.Day)
	assert.Equal(t, 104.0, bars[2].High)

	last, err := bs.Bars("spy", 2)
	require.NoError(t, err)
	assert.Equal(t, bars[1:], last)

	vol, err := bs.Volatility("SPY", volatility.Parkinson, 3, 252)
	require.NoError(t, err)
	want, err := volatility.Latest(bars, volatility.Parkinson, 3, 252)
	require.NoError(t, err)
	assert.Equal(t, want, vol)

	_, err = bs.Bars("QQQ", 1)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))

	assert.True(t, errors.IsType(bs.Put("", nil), errors.ErrorTypeInvalidArgument))
	assert.True(t, errors.IsType(bs.Put("SPY", []volatility.Bar{bar(4, 100, 90, 80, 85)}), errors.ErrorTypeInvalidMarketParameter))
}
