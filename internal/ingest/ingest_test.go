package ingest

import (
	"strings"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

func init() {
	logger.UseNop()
}

const positionsCSV = `strategy,underlying,class,style,strike,expiry,side,quantity,cost,transaction_cost
bull call,SPY,call,european,95,2025-06-20,long,1,0,0
bull call,SPY,call,european,105,2025-06-20,short,1,0,0
hedge,SPY,put,,90,2025-09-19,buy,2,3.5,0.65
`

func TestReadPositions(t *testing.T) {
	strategies, err := ReadPositions(strings.NewReader(positionsCSV))
	require.NoError(t, err)
	require.Len(t, strategies, 2)

	bull := strategies[0]
	assert.Equal(t, "bull call", bull.Name())
	require.Equal(t, 2, bull.Len())
	assert.Equal(t, []float64{0, 5, 10, 10}, bull.ProfitsAtExpiry([]float64{80, 100, 110, 130}))

	hedge := strategies[1]
	legs := hedge.Positions()
	require.Len(t, legs, 1)
	assert.Equal(t, models.Put, legs[0].Option().Class())
	assert.Equal(t, models.ExerciseEuropean, legs[0].Option().ExerciseType())
	assert.Equal(t, civil.Date{Year: 2025, Month: 9, Day: 19}, legs[0].Option().Expiry())
	assert.Equal(t, models.Long, legs[0].Side())
	assert.Equal(t, 2, legs[0].Quantity())
	assert.Equal(t, 0.65, legs[0].TransactionCost())
	assert.InDelta(t, 7.0, hedge.NetCost(), 1e-12)
}

func TestReadPositionsBlankStrategyStandsAlone(t *testing.T) {
	csv := `strategy,underlying,class,style,strike,expiry,side,quantity,cost,transaction_cost
,AAPL,call,american,200,2025-01-17,long,1,4,0
,AAPL,put,european,180,2025-01-17,short,1,2,0
`
	strategies, err := ReadPositions(strings.NewReader(csv))
	require.NoError(t, err)
	assert.Len(t, strategies, 2)

	// identical blank rows are still separate strategies
	twins := `strategy,underlying,class,style,strike,expiry,side,quantity,cost,transaction_cost
,AAPL,call,american,200,2025-01-17,long,1,4,0
,AAPL,call,american,200,2025-01-17,long,1,4,0
`
	strategies, err = ReadPositions(strings.NewReader(twins))
	require.NoError(t, err)
	require.Len(t, strategies, 2)
	assert.Equal(t, 1, strategies[0].Len())
	assert.Equal(t, 1, strategies[1].Len())
	assert.Equal(t, strategies[0].Name(), strategies[1].Name())
}

func TestReadPositionsErrors(t *testing.T) {
	header := "strategy,underlying,class,style,strike,expiry,side,quantity,cost,transaction_cost\n"

	tests := []struct {
		name string
		row  string
		want errors.ErrorType
	}{
		{"bad class", "s,SPY,straddle,european,100,2025-06-20,long,1,0,0", errors.ErrorTypeInvalidArgument},
		{"bad style", "s,SPY,call,klingon,100,2025-06-20,long,1,0,0", errors.ErrorTypeInvalidArgument},
		{"bad date", "s,SPY,call,european,100,20/06/2025,long,1,0,0", errors.ErrorTypeInvalidArgument},
		{"bad side", "s,SPY,call,european,100,2025-06-20,flat,1,0,0", errors.ErrorTypeInvalidArgument},
		{"zero quantity", "s,SPY,call,european,100,2025-06-20,long,0,0,0", errors.ErrorTypeInvalidArgument},
		{"zero strike", "s,SPY,call,european,0,2025-06-20,long,1,0,0", errors.ErrorTypeInvalidMarketParameter},
		{"not a number", "s,SPY,call,european,abc,2025-06-20,long,1,0,0", errors.ErrorTypeInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadPositions(strings.NewReader(header + tt.row + "\n"))
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.TypeOf(err), "got %v", err)
		})
	}
}

func TestReadBars(t *testing.T) {
	csv := `date,open,high,low,close
2024-05-03,101,104,100,103
2024-05-01,100,102,99,101
2024-05-02,101,101.5,98,99
`
	bars, err := ReadBars(strings.NewReader(csv))
	require.NoError(t, err)
	require.Len(t, bars, 3)
	assert.Equal(t, civil.Date{Year: 2024, Month: 5, Day: 1}, bars[0].Date)
	assert.Equal(t, civil.Date{Year: 2024, Month: 5, Day: 3}, bars[2].Date)
	assert.Equal(t, 104.0, bars[2].High)

	_, err = ReadBars(strings.NewReader("date,open,high,low,close\n2024-05-01,100,99,98,101\n"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidMarketParameter))

	_, err = ReadBars(strings.NewReader("date,open,high,low,close\nyesterday,100,101,98,100\n"))
	assert.True(t, errors.IsType(err, errors.ErrorTypeInvalidArgument))
}

func TestWritePositionsRoundTrip(t *testing.T) {
	strategies, err := ReadPositions(strings.NewReader(positionsCSV))
	require.NoError(t, err)

	var buf strings.Builder
	require.NoError(t, WritePositions(&buf, strategies))
	assert.Contains(t, buf.String(), "hedge,SPY,put,european,")

	again, err := ReadPositions(strings.NewReader(buf.String()))
	require.NoError(t, err)
	require.Len(t, again, 2)
	assert.Equal(t, Records(strategies[0]), Records(again[0]))
	assert.InDelta(t, strategies[1].NetCost(), again[1].NetCost(), 1e-12)
}
