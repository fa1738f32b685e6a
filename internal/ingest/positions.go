package ingest

import (
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/civil"
	"github.com/gocarina/gocsv"

	"github.com/rzzdr/options-risk-engine/internal/option"
	"github.com/rzzdr/options-risk-engine/internal/position"
	"github.com/rzzdr/options-risk-engine/internal/strategy"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
	"github.com/rzzdr/options-risk-engine/pkg/utils/logger"
)

// PositionRecord is one leg as exported by a broker statement
type PositionRecord struct {
	Strategy        string  `csv:"strategy" json:"strategy,omitempty"`
	Underlying      string  `csv:"underlying" json:"underlying"`
	Class           string  `csv:"class" json:"class"`
	Style           string  `csv:"style" json:"style,omitempty"`
	Strike          float64 `csv:"strike" json:"strike"`
	Expiry          string  `csv:"expiry" json:"expiry"`
	Side            string  `csv:"side" json:"side"`
	Quantity        int     `csv:"quantity" json:"quantity"`
	Cost            float64 `csv:"cost" json:"cost"`
	TransactionCost float64 `csv:"transaction_cost" json:"transaction_cost"`
}

// Record describes p as a leg of the named strategy
func Record(strategyName string, p *position.Position) PositionRecord {
	opt := p.Option()
	return PositionRecord{
		Strategy:        strategyName,
		Underlying:      opt.Underlying(),
		Class:           opt.Class().String(),
		Style:           opt.ExerciseType().String(),
		Strike:          opt.Strike(),
		Expiry:          opt.Expiry().String(),
		Side:            p.Side().String(),
		Quantity:        p.Quantity(),
		Cost:            p.Cost(),
		TransactionCost: p.TransactionCost(),
	}
}

// Records describes every leg of s
func Records(s *strategy.Strategy) []PositionRecord {
	legs := s.Positions()
	records := make([]PositionRecord, len(legs))
	for i, p := range legs {
		records[i] = Record(s.Name(), p)
	}
	return records
}

// Position converts the record into a position
func (r PositionRecord) Position(settings ...option.Setting) (*position.Position, error) {
	class, err := models.ParseOptionClass(r.Class)
	if err != nil {
		return nil, errors.InvalidArgument("class: %v", err)
	}

	style := models.ExerciseEuropean
	if strings.TrimSpace(r.Style) != "" {
		if style, err = models.ParseExerciseType(r.Style); err != nil {
			return nil, errors.InvalidArgument("style: %v", err)
		}
	}

	expiry, err := civil.ParseDate(strings.TrimSpace(r.Expiry))
	if err != nil {
		return nil, errors.InvalidArgument("expiry %q: %v", r.Expiry, err)
	}

	side, err := models.ParseTradeSide(r.Side)
	if err != nil {
		return nil, errors.InvalidArgument("side: %v", err)
	}

	opt, err := option.New(class, strings.TrimSpace(r.Underlying), r.Strike, style, expiry, settings...)
	if err != nil {
		return nil, err
	}
	return position.New(side, r.Quantity, opt, r.Cost, r.TransactionCost)
}

// ReadPositions parses position records and groups them into strategies by
// the strategy column. Strategies and their legs keep file order; a blank
// strategy name puts the leg in a strategy of its own.
func ReadPositions(r io.Reader, settings ...option.Setting) ([]*strategy.Strategy, error) {
	log := logger.GetLogger("ingest.positions")

	var records []PositionRecord
	if err := gocsv.Unmarshal(r, &records); err != nil {
		return nil, errors.InvalidArgument("read position records: %v", err)
	}

	type group struct {
		name string
		legs []*position.Position
	}
	var order []string
	groups := make(map[string]*group)
	for i, rec := range records {
		// header is line 1
		line := i + 2
		pos, err := rec.Position(settings...)
		if err != nil {
			return nil, errors.Wrapf(err, "position record on line %d", line)
		}

		name := strings.TrimSpace(rec.Strategy)
		key := "strategy:" + name
		if name == "" {
			name = pos.String()
			key = fmt.Sprintf("line:%d", line)
		}
		g, seen := groups[key]
		if !seen {
			g = &group{name: name}
			groups[key] = g
			order = append(order, key)
		}
		g.legs = append(g.legs, pos)
	}

	strategies := make([]*strategy.Strategy, 0, len(order))
	for _, key := range order {
		s, err := strategy.New(groups[key].name, groups[key].legs...)
		if err != nil {
			return nil, err
		}
		strategies = append(strategies, s)
	}

	log.Infow("Loaded positions", "records", len(records), "strategies", len(strategies))
	return strategies, nil
}

// WritePositions writes the legs of strategies in the format ReadPositions
// accepts
func WritePositions(w io.Writer, strategies []*strategy.Strategy) error {
	var records []PositionRecord
	for _, s := range strategies {
		records = append(records, Records(s)...)
	}
	if err := gocsv.Marshal(records, w); err != nil {
		return errors.Wrap(err, "write position records")
	}
	return nil
}
