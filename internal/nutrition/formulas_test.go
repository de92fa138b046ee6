package nutrition

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBMR(t *testing.T) {
	t.Run("MaleKnownValue", func(t *testing.T) {
		bmr, err := BMR(Male, 25, 180, 80)
		require.NoError(t, err)
		assert.InDelta(t, 1805.0, bmr, 1e-9)
	})

	t.Run("FemaleKnownValue", func(t *testing.T) {
		bmr, err := BMR(Female, 25, 180, 80)
		require.NoError(t, err)
		assert.InDelta(t, 1639.0, bmr, 1e-9)
	})

	t.Run("RejectsMinors", func(t *testing.T) {
		_, err := BMR(Male, 17, 180, 80)
		require.Error(t, err)
		assert.True(t, IsValidationError(err))
	})

	t.Run("RejectsBadBody", func(t *testing.T) {
		_, err := BMR(Male, 25, 0, 80)
		assert.Error(t, err)
		_, err = BMR(Male, 25, 180, 0)
		assert.Error(t, err)
	})
}

func TestTDEE(t *testing.T) {
	tdee, err := TDEE(1805, Moderate)
	require.NoError(t, err)
	assert.InDelta(t, 2797.75, tdee, 1e-9)

	_, err = TDEE(0, Sedentary)
	assert.Error(t, err)

	_, err = TDEE(1800, ActivityLevel("couch"))
	assert.Error(t, err)
}

func TestBMI(t *testing.T) {
	bmi, err := BMI(93, 175)
	require.NoError(t, err)
	assert.InDelta(t, 30.367, bmi, 1e-3)

	_, err = BMI(-1, 175)
	assert.Error(t, err)
}

func TestBodyFatPercent(t *testing.T) {
	t.Run("AdultMale", func(t *testing.T) {
		bf, err := BodyFatPercent(30.367, 30, Male)
		require.NoError(t, err)
		require.NotNil(t, bf)
		assert.InDelta(t, 27.1404, *bf, 1e-4)
	})

	t.Run("MinorIsNil", func(t *testing.T) {
		bf, err := BodyFatPercent(22, 16, Female)
		require.NoError(t, err)
		assert.Nil(t, bf)
	})

	t.Run("Clamped", func(t *testing.T) {
		bf, err := BodyFatPercent(80, 90, Female)
		require.NoError(t, err)
		assert.Equal(t, 75.0, *bf)
	})
}

func TestFFMI(t *testing.T) {
	bf := 19.18
	v, err := FFMI(80, 180, &bf)
	require.NoError(t, err)
	require.NotNil(t, v)
	assert.InDelta(t, 19.95, *v, 0.01)

	v, err = FFMI(80, 180, nil)
	require.NoError(t, err)
	assert.Nil(t, v)

	bad := 120.0
	_, err = FFMI(80, 180, &bad)
	assert.Error(t, err)
}

func TestCalculateMacros(t *testing.T) {
	settings := MacroSettings{NetCarbsG: 25, ProteinGPerKg: 1.8}

	m, err := CalculateMacros(2000, 80, GoalMaintain, settings)
	require.NoError(t, err)
	assert.InDelta(t, 2000, m.CaloriesTotal, 1e-9)
	assert.InDelta(t, 144, m.ProteinG, 1e-9)
	assert.InDelta(t, 25, m.NetCarbsG, 1e-9)
	assert.InDelta(t, (2000-144*4-25*4)/9.0, m.FatG, 1e-9)

	m, err = CalculateMacros(2000, 80, GoalLose, settings)
	require.NoError(t, err)
	assert.InDelta(t, 1600, m.CaloriesTotal, 1e-9)

	m, err = CalculateMacros(500, 200, GoalMaintain, settings)
	require.NoError(t, err)
	assert.Equal(t, 0.0, m.FatG)

	_, err = CalculateMacros(2000, 80, Goal("bulk"), settings)
	assert.Error(t, err)
}

func TestForecast(t *testing.T) {
	pts, err := Forecast(80, 2500, 2000, 4)
	require.NoError(t, err)
	require.Len(t, pts, 5)
	assert.Equal(t, 0, pts[0].Week)
	assert.Equal(t, 80.0, pts[0].WeightKg)
	// 500 kcal/day deficit for a week is 3500/7700 kg.
	assert.InDelta(t, 79.55, pts[1].WeightKg, 1e-9)
	assert.InDelta(t, 78.18, pts[4].WeightKg, 1e-9)

	_, err = Forecast(80, 2500, 2000, -1)
	assert.Error(t, err)
}
