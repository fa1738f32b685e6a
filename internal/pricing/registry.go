package pricing

import (
	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

// Model values one (class, exercise style) combination
type Model interface {
	Price(p Params) (float64, error)
	Greeks(p Params) (models.Greeks, error)
}

type europeanModel struct {
	class models.OptionClass
}

func (m europeanModel) Price(p Params) (float64, error) {
	return EuropeanPrice(m.class, p)
}

func (m europeanModel) Greeks(p Params) (models.Greeks, error) {
	return EuropeanGreeks(m.class, p)
}

type americanCallModel struct{}

func (americanCallModel) Price(p Params) (float64, error) {
	return BjerksundStensland2002Call(p)
}

func (americanCallModel) Greeks(p Params) (models.Greeks, error) {
	return AmericanCallGreeks(p)
}

type americanPutModel struct{}

func (americanPutModel) Price(p Params) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return americanPutViaTransform(p)
}

func (americanPutModel) Greeks(p Params) (models.Greeks, error) {
	if err := p.Validate(); err != nil {
		return models.Greeks{}, err
	}
	return bumpGreeks(p, americanPutViaTransform)
}

var (
	EuropeanCall Model = europeanModel{class: models.Call}
	EuropeanPut  Model = europeanModel{class: models.Put}
	AmericanCall Model = americanCallModel{}

	// AmericanPutTransform is the Bjerksund-Stensland put-call transformation.
	// It is not part of DefaultRegistry and must be registered explicitly.
	AmericanPutTransform Model = americanPutModel{}
)

type capability struct {
	class models.OptionClass
	style models.ExerciseType
}

// Registry maps (class, exercise style) to a valuation model. Missing
// entries fail with UnsupportedExerciseStyle. Register everything before
// sharing a Registry between goroutines.
type Registry struct {
	models map[capability]Model
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{models: make(map[capability]Model)}
}

// DefaultRegistry returns a registry with European calls and puts and
// Bjerksund-Stensland American calls.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.models[capability{models.Call, models.ExerciseEuropean}] = EuropeanCall
	r.models[capability{models.Put, models.ExerciseEuropean}] = EuropeanPut
	r.models[capability{models.Call, models.ExerciseAmerican}] = AmericanCall
	return r
}

// Register installs m for the given class and exercise style
func (r *Registry) Register(class models.OptionClass, style models.ExerciseType, m Model) error {
	if !class.Valid() {
		return errors.InvalidArgument("unknown option class %v", class)
	}
	if !style.Valid() {
		return errors.InvalidArgument("unknown exercise type %v", style)
	}
	if m == nil {
		return errors.InvalidArgument("nil model for %s %s", style, class)
	}
	r.models[capability{class, style}] = m
	return nil
}

// Lookup returns the model registered for class and style
func (r *Registry) Lookup(class models.OptionClass, style models.ExerciseType) (Model, error) {
	m, ok := r.models[capability{class, style}]
	if !ok {
		return nil, errors.UnsupportedExerciseStyle("no valuation model for %s %s options", style, class)
	}
	return m, nil
}

// Price values an option through the registered model
func (r *Registry) Price(class models.OptionClass, style models.ExerciseType, p Params) (float64, error) {
	m, err := r.Lookup(class, style)
	if err != nil {
		return 0, err
	}
	return m.Price(p)
}

// Greeks computes sensitivities through the registered model
func (r *Registry) Greeks(class models.OptionClass, style models.ExerciseType, p Params) (models.Greeks, error) {
	m, err := r.Lookup(class, style)
	if err != nil {
		return models.Greeks{}, err
	}
	return m.Greeks(p)
}
