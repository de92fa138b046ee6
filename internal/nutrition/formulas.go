package nutrition

import "math"

var activityMultipliers = map[ActivityLevel]float64{
	Sedentary: 1.2,
	Light:     1.375,
	Moderate:  1.55,
	Very:      1.725,
	Athlete:   1.9,
}

var goalFactors = map[Goal]float64{
	GoalLose:     0.8,
	GoalMaintain: 1.0,
	GoalGain:     1.1,
}

func checkBody(weightKg, heightCm float64) error {
	if weightKg <= 0 {
		return invalid("weight_kg", "must be > 0")
	}
	if heightCm <= 0 {
		return invalid("height_cm", "must be > 0")
	}
	return nil
}

// BMI returns weight / height² with height in metres.
func BMI(weightKg, heightCm float64) (float64, error) {
	if err := checkBody(weightKg, heightCm); err != nil {
		return 0, err
	}
	m := heightCm / 100
	return weightKg / (m * m), nil
}

// BMR is the Mifflin-St Jeor basal metabolic rate in kcal/day. Minors are rejected.
func BMR(sex Sex, ageYears int, heightCm, weightKg float64) (float64, error) {
	if ageYears < 18 {
		return 0, invalid("age_years", "BMR is only estimated for adults (18+)")
	}
	if err := checkBody(weightKg, heightCm); err != nil {
		return 0, err
	}
	base := 10*weightKg + 6.25*heightCm - 5*float64(ageYears)
	switch sex {
	case Male:
		return base + 5, nil
	case Female:
		return base - 161, nil
	default:
		return 0, invalid("sex", "unsupported sex %q", sex)
	}
}

// TDEE scales a BMR by the activity multiplier.
func TDEE(bmr float64, activity ActivityLevel) (float64, error) {
	if bmr <= 0 {
		return 0, invalid("bmr", "must be > 0")
	}
	mult, ok := activityMultipliers[activity]
	if !ok {
		return 0, invalid("activity_level", "unsupported activity level %q", activity)
	}
	return bmr * mult, nil
}

// BodyFatPercent is a rough adult estimate from BMI, clamped to [0, 75].
// It returns nil for minors.
func BodyFatPercent(bmi float64, ageYears int, sex Sex) (*float64, error) {
	if ageYears < 18 {
		return nil, nil
	}
	if bmi <= 0 {
		return nil, invalid("bmi", "must be > 0")
	}
	male := 0.0
	if sex == Male {
		male = 1
	}
	bf := 1.2*bmi + 0.23*float64(ageYears) - 10.8*male - 5.4
	bf = math.Max(0, math.Min(75, bf))
	return &bf, nil
}

// FFMI is the fat-free mass index. A nil body fat yields nil.
func FFMI(weightKg, heightCm float64, bodyFatPercent *float64) (*float64, error) {
	if bodyFatPercent == nil {
		return nil, nil
	}
	if *bodyFatPercent < 0 || *bodyFatPercent > 100 {
		return nil, invalid("body_fat_percent", "must be between 0 and 100")
	}
	if err := checkBody(weightKg, heightCm); err != nil {
		return nil, err
	}
	m := heightCm / 100
	ffm := weightKg * (1 - *bodyFatPercent/100)
	v := ffm / (m * m)
	return &v, nil
}

// CalculateMacros splits the goal-adjusted calorie target into keto macros. Protein and
// net carbs are fixed by settings; fat takes the remaining energy and never goes negative.
func CalculateMacros(calories, weightKg float64, goal Goal, settings MacroSettings) (Macros, error) {
	if calories <= 0 {
		return Macros{}, invalid("calories", "must be > 0")
	}
	if weightKg <= 0 {
		return Macros{}, invalid("weight_kg", "must be > 0")
	}
	factor, ok := goalFactors[goal]
	if !ok {
		return Macros{}, invalid("goal", "unsupported goal %q", goal)
	}
	target := calories * factor
	protein := weightKg * settings.ProteinGPerKg
	carbs := settings.NetCarbsG
	fat := math.Max(0, (target-protein*4-carbs*4)/9)
	return Macros{
		CaloriesTotal: target,
		ProteinG:      protein,
		FatG:          fat,
		NetCarbsG:     carbs,
	}, nil
}

// kcalPerKg is the energy content of one kilogram of body weight.
const kcalPerKg = 7700.0

// Forecast projects body weight for weeks 0..weeks from a constant daily energy balance.
func Forecast(startKg, tdee, caloriesTarget float64, weeks int) ([]ForecastPoint, error) {
	if startKg <= 0 {
		return nil, invalid("weight_kg", "must be > 0")
	}
	if weeks < 0 {
		return nil, invalid("weeks", "must be >= 0")
	}
	daily := caloriesTarget - tdee
	points := make([]ForecastPoint, 0, weeks+1)
	for w := 0; w <= weeks; w++ {
		kg := startKg + daily*7*float64(w)/kcalPerKg
		points = append(points, ForecastPoint{Week: w, WeightKg: math.Round(kg*100) / 100})
	}
	return points, nil
}
