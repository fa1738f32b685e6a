package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	c, err := ParseOptionClass(" PUT ")
	require.NoError(t, err)
	assert.Equal(t, Put, c)

	s, err := ParseTradeSide("sell")
	require.NoError(t, err)
	assert.Equal(t, Short, s)
	assert.Equal(t, -1.0, s.Value())
	assert.Equal(t, Long, s.Opposite())

	e, err := ParseExerciseType("Bermudan")
	require.NoError(t, err)
	assert.Equal(t, ExerciseBermudan, e)

	_, err = ParseOptionClass("straddle")
	assert.Error(t, err)
	_, err = ParseExerciseType("")
	assert.Error(t, err)
}

func TestEnumsJSON(t *testing.T) {
	type leg struct {
		Class OptionClass  `json:"class"`
		Side  TradeSide    `json:"side"`
		Style ExerciseType `json:"style"`
	}

	raw, err := json.Marshal(leg{Class: Call, Side: Short, Style: ExerciseEuropean})
	require.NoError(t, err)
	assert.JSONEq(t, `{"class":"call","side":"short","style":"european"}`, string(raw))

	var decoded leg
	require.NoError(t, json.Unmarshal([]byte(`{"class":"put","side":"buy","style":"american"}`), &decoded))
	assert.Equal(t, leg{Class: Put, Side: Long, Style: ExerciseAmerican}, decoded)

	_, err = json.Marshal(leg{})
	assert.Error(t, err)
}

func TestGreeksArithmetic(t *testing.T) {
	g := Greeks{Delta: 0.5, Gamma: 0.02, Theta: -6, Vega: 37, Rho: 53}
	sum := g.Scale(-2).Add(g)
	assert.InDelta(t, -0.5, sum.Delta, 1e-12)
	assert.InDelta(t, -0.02, sum.Gamma, 1e-12)
	assert.InDelta(t, 6, sum.Theta, 1e-12)
	assert.InDelta(t, -37, sum.Vega, 1e-12)
	assert.InDelta(t, -53, sum.Rho, 1e-12)
}
