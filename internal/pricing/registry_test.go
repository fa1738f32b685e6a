package pricing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rzzdr/options-risk-engine/pkg/models"
	"github.com/rzzdr/options-risk-engine/pkg/utils/errors"
)

func TestDefaultRegistryCapabilities(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		class     models.OptionClass
		style     models.ExerciseType
		supported bool
	}{
		{models.Call, models.ExerciseEuropean, true},
		{models.Put, models.ExerciseEuropean, true},
		{models.Call, models.ExerciseAmerican, true},
		{models.Put, models.ExerciseAmerican, false},
		{models.Call, models.ExerciseBermudan, false},
		{models.Put, models.ExerciseBermudan, false},
		{models.Call, models.ExerciseAsian, false},
		{models.Put, models.ExerciseAsian, false},
	}

	for _, tt := range tests {
		t.Run(tt.style.String()+"_"+tt.class.String(), func(t *testing.T) {
			price, err := reg.Price(tt.class, tt.style, atm)
			_, gerr := reg.Greeks(tt.class, tt.style, atm)

			if tt.supported {
				require.NoError(t, err)
				require.NoError(t, gerr)
				assert.Greater(t, price, 0.0)
				return
			}
			assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedExerciseStyle), "got %v", err)
			assert.True(t, errors.IsType(gerr, errors.ErrorTypeUnsupportedExerciseStyle))
			assert.Zero(t, price)
		})
	}
}

func TestRegisterAmericanPut(t *testing.T) {
	reg := DefaultRegistry()
	require.NoError(t, reg.Register(models.Put, models.ExerciseAmerican, AmericanPutTransform))

	american, err := reg.Price(models.Put, models.ExerciseAmerican, atm)
	require.NoError(t, err)
	european, err := reg.Price(models.Put, models.ExerciseEuropean, atm)
	require.NoError(t, err)
	assert.Greater(t, american, european)

	// registering on one registry does not leak into fresh ones
	_, err = DefaultRegistry().Lookup(models.Put, models.ExerciseAmerican)
	assert.True(t, errors.IsType(err, errors.ErrorTypeUnsupportedExerciseStyle))
}

func TestRegisterRejectsInvalidKeys(t *testing.T) {
	reg := NewRegistry()
	assert.Error(t, reg.Register(models.OptionClass(7), models.ExerciseEuropean, EuropeanCall))
	assert.Error(t, reg.Register(models.Call, models.ExerciseType(0), EuropeanCall))
	assert.Error(t, reg.Register(models.Call, models.ExerciseEuropean, nil))
}
