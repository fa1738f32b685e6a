package ingest

import (
	"io"
	"sort"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gocarina/gocsv"

	"github.com/rzzdr/options-risk-engine/internal/volatility"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// BarRecord is one daily OHLC row
type BarRecord struct {
	Date  string  `csv:"date"`
	Open  float64 `csv:"open"`
	High  float64 `csv:"high"`
	Low   float64 `csv:"low"`
	Close float64 `csv:"close"`
}

// ReadBars parses OHLC rows, validates them and returns them in date order
func ReadBars(r io.Reader) ([]volatility.Bar, error) {
	var records []BarRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, errors.InvalidArgument("read bar records: %v", err)
	}

	bars := make([]volatility.Bar, 0, len(records))
	for i, rec := range records {
		date, err := civil.ParseDate(strings.TrimSpace(rec.Date))
		if err != nil {
			return nil, errors.InvalidArgument("bar on line %d: date %q: %v", i+2, rec.Date, err)
		}
		b := volatility.Bar{Date: date, Open: rec.Open, High: rec.High, Low: rec.Low, Close: rec.Close}
		if err := b.Validate(); err != nil {
			return nil, errors.Wrapf(err, "bar on line %d", i+2)
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Date.Before(bars[j].Date)
	})

	logger.GetLogger("ingest.bars").Debugw("Loaded bars", "count", len(bars))
	return bars, nil
}
