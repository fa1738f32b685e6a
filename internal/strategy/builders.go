package strategy

import (
	"fmt"

	"cloud.google.com/go/civil"

	"github.com/rzzdr/options-risk-engine/internal/option"
	"github.com/rzzdr/options-risk-engine/internal/position"
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Contract holds the terms shared by every leg a builder creates
type Contract struct {
	Underlying string
	Style      models.ExerciseType // zero means European
	Expiry     civil.Date
	Quantity   int // zero means 1
	Settings   []option.Setting
}

func (c Contract) style() models.ExerciseType {
	if c.Style == 0 {
		return models.ExerciseEuropean
	}
	return c.Style
}

func (c Contract) quantity() int {
	if c.Quantity == 0 {
		return 1
	}
	return c.Quantity
}

type leg struct {
	name   string
	class  models.OptionClass
	strike float64
	expiry civil.Date
	side   models.TradeSide
	qty    int
	cost   float64
	fee    float64
}

func (c Contract) build(name string, legs ...leg) (*Strategy, error) {
	if c.Quantity < 0 {
		return nil, errors.InvalidStrategyConfiguration("%s: quantity must be positive, got %d", name, c.Quantity)
	}

	positions := make([]*position.Position, 0, len(legs))
	for _, l := range legs {
		expiry := l.expiry
		if expiry.IsZero() {
			expiry = c.Expiry
		}
		qty := l.qty
		if qty == 0 {
			qty = c.quantity()
		}

		opt, err := option.New(l.class, c.Underlying, l.strike, c.style(), expiry, c.Settings...)
		if err != nil {
			return nil, errors.InvalidStrategyConfiguration("%s: %s leg: %v", name, l.name, err)
		}
		pos, err := position.New(l.side, qty, opt, l.cost, l.fee)
		if err != nil {
			return nil, errors.InvalidStrategyConfiguration("%s: %s leg: %v", name, l.name, err)
		}
		positions = append(positions, pos)
	}
	return New(fmt.Sprintf("%s %s", c.Underlying, name), positions...)
}

// VerticalSpreadConfig describes two options of one class and expiry at
// different strikes, held on opposite sides
type VerticalSpreadConfig struct {
	Contract
	Class               models.OptionClass
	LowStrike           float64
	HighStrike          float64
	LowSide             models.TradeSide
	HighSide            models.TradeSide
	LowCost             float64
	HighCost            float64
	LowTransactionCost  float64
	HighTransactionCost float64
}

// VerticalSpread builds a low strike leg followed by a high strike leg
func VerticalSpread(cfg VerticalSpreadConfig) (*Strategy, error) {
	if !cfg.Class.Valid() {
		return nil, errors.InvalidStrategyConfiguration("vertical spread: unknown option class %v", cfg.Class)
	}
	if !(cfg.LowStrike < cfg.HighStrike) {
		return nil, errors.InvalidStrategyConfiguration("vertical spread: low strike %v must be below high strike %v", cfg.LowStrike, cfg.HighStrike)
	}
	if !cfg.LowSide.Valid() || !cfg.HighSide.Valid() || cfg.LowSide == cfg.HighSide {
		return nil, errors.InvalidStrategyConfiguration("vertical spread: legs must be on opposite sides, got %s and %s", cfg.LowSide, cfg.HighSide)
	}

	return cfg.build(fmt.Sprintf("%g/%g %s vertical", cfg.LowStrike, cfg.HighStrike, cfg.Class),
		leg{name: "low strike", class: cfg.Class, strike: cfg.LowStrike, side: cfg.LowSide, cost: cfg.LowCost, fee: cfg.LowTransactionCost},
		leg{name: "high strike", class: cfg.Class, strike: cfg.HighStrike, side: cfg.HighSide, cost: cfg.HighCost, fee: cfg.HighTransactionCost},
	)
}

func vertical(cfg VerticalSpreadConfig, class models.OptionClass, low models.TradeSide) (*Strategy, error) {
	cfg.Class = class
	cfg.LowSide = low
	cfg.HighSide = low.Opposite()
	return VerticalSpread(cfg)
}

// LongCallVertical buys the low strike call and sells the high strike call
func LongCallVertical(cfg VerticalSpreadConfig) (*Strategy, error) {
	return vertical(cfg, models.Call, models.Long)
}

// LongPutVertical buys the low strike put and sells the high strike put
func LongPutVertical(cfg VerticalSpreadConfig) (*Strategy, error) {
	return vertical(cfg, models.Put, models.Long)
}

// ShortCallVertical sells the low strike call and buys the high strike call
func ShortCallVertical(cfg VerticalSpreadConfig) (*Strategy, error) {
	return vertical(cfg, models.Call, models.Short)
}

// ShortPutVertical sells the low strike put and buys the high strike put
func ShortPutVertical(cfg VerticalSpreadConfig) (*Strategy, error) {
	return vertical(cfg, models.Put, models.Short)
}

// BullSpread profits from a rise in the underlying: long the low strike, short
// the high strike, in the configured class
func BullSpread(cfg VerticalSpreadConfig) (*Strategy, error) {
	return vertical(cfg, cfg.Class, models.Long)
}

// BearSpread profits from a fall in the underlying: short the low strike, long
// the high strike, in the configured class
func BearSpread(cfg VerticalSpreadConfig) (*Strategy, error) {
	return vertical(cfg, cfg.Class, models.Short)
}

// StraddleConfig is a call and a put at one strike, held on the same side
type StraddleConfig struct {
	Contract
	Strike              float64
	Side                models.TradeSide // zero means long
	CallCost            float64
	PutCost             float64
	CallTransactionCost float64
	PutTransactionCost  float64
}

// Straddle builds the call leg followed by the put leg
func Straddle(cfg StraddleConfig) (*Strategy, error) {
	side, err := sideOrLong("straddle", cfg.Side)
	if err != nil {
		return nil, err
	}
	return cfg.build(fmt.Sprintf("%g straddle", cfg.Strike),
		leg{name: "call", class: models.Call, strike: cfg.Strike, side: side, cost: cfg.CallCost, fee: cfg.CallTransactionCost},
		leg{name: "put", class: models.Put, strike: cfg.Strike, side: side, cost: cfg.PutCost, fee: cfg.PutTransactionCost},
	)
}

// StrangleConfig is an out-of-the-money put and call held on the same side
type StrangleConfig struct {
	Contract
	PutStrike           float64
	CallStrike          float64
	Side                models.TradeSide // zero means long
	PutCost             float64
	CallCost            float64
	PutTransactionCost  float64
	CallTransactionCost float64
}

// Strangle builds the put leg followed by the call leg
func Strangle(cfg StrangleConfig) (*Strategy, error) {
	side, err := sideOrLong("strangle", cfg.Side)
	if err != nil {
		return nil, err
	}
	if !(cfg.PutStrike < cfg.CallStrike) {
		return nil, errors.InvalidStrategyConfiguration("strangle: put strike %v must be below call strike %v", cfg.PutStrike, cfg.CallStrike)
	}
	return cfg.build(fmt.Sprintf("%g/%g strangle", cfg.PutStrike, cfg.CallStrike),
		leg{name: "put", class: models.Put, strike: cfg.PutStrike, side: side, cost: cfg.PutCost, fee: cfg.PutTransactionCost},
		leg{name: "call", class: models.Call, strike: cfg.CallStrike, side: side, cost: cfg.CallCost, fee: cfg.CallTransactionCost},
	)
}

// ButterflyConfig is one wing at each outer strike and two body contracts at
// the middle strike on the opposite side
type ButterflyConfig struct {
	Contract
	Class           models.OptionClass
	LowStrike       float64
	MidStrike       float64
	HighStrike      float64
	Side            models.TradeSide // side of the wings, zero means long
	LowCost         float64
	MidCost         float64
	HighCost        float64
	TransactionCost float64 // per leg
}

// Butterfly builds the low wing, the body and the high wing
func Butterfly(cfg ButterflyConfig) (*Strategy, error) {
	side, err := sideOrLong("butterfly", cfg.Side)
	if err != nil {
		return nil, err
	}
	if !cfg.Class.Valid() {
		return nil, errors.InvalidStrategyConfiguration("butterfly: unknown option class %v", cfg.Class)
	}
	if !(cfg.LowStrike < cfg.MidStrike && cfg.MidStrike < cfg.HighStrike) {
		return nil, errors.InvalidStrategyConfiguration("butterfly: strikes must increase, got %v/%v/%v", cfg.LowStrike, cfg.MidStrike, cfg.HighStrike)
	}
	return cfg.build(fmt.Sprintf("%g/%g/%g %s butterfly", cfg.LowStrike, cfg.MidStrike, cfg.HighStrike, cfg.Class),
		leg{name: "low wing", class: cfg.Class, strike: cfg.LowStrike, side: side, cost: cfg.LowCost, fee: cfg.TransactionCost},
		leg{name: "body", class: cfg.Class, strike: cfg.MidStrike, side: side.Opposite(), qty: 2 * cfg.quantity(), cost: cfg.MidCost, fee: cfg.TransactionCost},
		leg{name: "high wing", class: cfg.Class, strike: cfg.HighStrike, side: side, cost: cfg.HighCost, fee: cfg.TransactionCost},
	)
}

// CondorConfig is a butterfly with the body split across two strikes
type CondorConfig struct {
	Contract
	Class           models.OptionClass
	Strikes         [4]float64       // ascending
	Side            models.TradeSide // side of the outer wings, zero means long
	Costs           [4]float64
	TransactionCost float64 // per leg
}

// Condor builds four legs in strike order
func Condor(cfg CondorConfig) (*Strategy, error) {
	side, err := sideOrLong("condor", cfg.Side)
	if err != nil {
		return nil, err
	}
	if !cfg.Class.Valid() {
		return nil, errors.InvalidStrategyConfiguration("condor: unknown option class %v", cfg.Class)
	}
	k := cfg.Strikes
	if !(k[0] < k[1] && k[1] < k[2] && k[2] < k[3]) {
		return nil, errors.InvalidStrategyConfiguration("condor: strikes must increase, got %v", k)
	}

	sides := [4]models.TradeSide{side, side.Opposite(), side.Opposite(), side}
	names := [4]string{"low wing", "low body", "high body", "high wing"}
	legs := make([]leg, 4)
	for i := range legs {
		legs[i] = leg{name: names[i], class: cfg.Class, strike: k[i], side: sides[i], cost: cfg.Costs[i], fee: cfg.TransactionCost}
	}
	return cfg.build(fmt.Sprintf("%g/%g/%g/%g %s condor", k[0], k[1], k[2], k[3], cfg.Class), legs...)
}

// CalendarSpreadConfig is one strike at two expiries on opposite sides. The
// far leg takes Side and the near leg the opposite side. Contract.Expiry is
// ignored.
type CalendarSpreadConfig struct {
	Contract
	Class           models.OptionClass
	Strike          float64
	NearExpiry      civil.Date
	FarExpiry       civil.Date
	Side            models.TradeSide // zero means long the far leg
	NearCost        float64
	FarCost         float64
	TransactionCost float64 // per leg
}

// CalendarSpread builds the near leg followed by the far leg. Value it with
// PerLeg inputs when the two expiries need different volatilities.
func CalendarSpread(cfg CalendarSpreadConfig) (*Strategy, error) {
	side, err := sideOrLong("calendar spread", cfg.Side)
	if err != nil {
		return nil, err
	}
	if !cfg.Class.Valid() {
		return nil, errors.InvalidStrategyConfiguration("calendar spread: unknown option class %v", cfg.Class)
	}
	if !cfg.NearExpiry.IsValid() || !cfg.FarExpiry.IsValid() || !cfg.NearExpiry.Before(cfg.FarExpiry) {
		return nil, errors.InvalidStrategyConfiguration("calendar spread: near expiry %s must precede far expiry %s", cfg.NearExpiry, cfg.FarExpiry)
	}
	return cfg.build(fmt.Sprintf("%g %s calendar %s/%s", cfg.Strike, cfg.Class, cfg.NearExpiry, cfg.FarExpiry),
		leg{name: "near", class: cfg.Class, strike: cfg.Strike, expiry: cfg.NearExpiry, side: side.Opposite(), cost: cfg.NearCost, fee: cfg.TransactionCost},
		leg{name: "far", class: cfg.Class, strike: cfg.Strike, expiry: cfg.FarExpiry, side: side, cost: cfg.FarCost, fee: cfg.TransactionCost},
	)
}

func sideOrLong(name string, side models.TradeSide) (models.TradeSide, error) {
	if side == 0 {
		return models.Long, nil
	}
	if !side.Valid() {
		return 0, errors.InvalidStrategyConfiguration("%s: unknown trade side %v", name, side)
	}
	return side, nil
}
