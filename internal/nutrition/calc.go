package nutrition

// Calculate derives every metric for u. weeks <= 0 uses DefaultForecastWeeks.
// u is validated after defaults are applied; the caller's value is not modified.
func Calculate(u UserInput, weeks int) (*CalcOutput, error) {
	u.ApplyDefaults()
	if err := u.Validate(); err != nil {
		return nil, err
	}
	if weeks <= 0 {
		weeks = DefaultForecastWeeks
	}

	m, err := NormalizeInputs(u)
	if err != nil {
		return nil, err
	}

	bmi, err := BMI(m.WeightKg, m.HeightCm)
	if err != nil {
		return nil, err
	}
	bmr, err := BMR(u.Sex, m.AgeYears, m.HeightCm, m.WeightKg)
	if err != nil {
		return nil, err
	}
	tdee, err := TDEE(bmr, u.ActivityLevel)
	if err != nil {
		return nil, err
	}
	bf, err := BodyFatPercent(bmi, m.AgeYears, u.Sex)
	if err != nil {
		return nil, err
	}
	ffmi, err := FFMI(m.WeightKg, m.HeightCm, bf)
	if err != nil {
		return nil, err
	}

	macros, err := CalculateMacros(tdee, m.WeightKg, u.Goal, MacroSettings{
		NetCarbsG:     *u.NetCarbsG,
		ProteinGPerKg: *u.ProteinGPerKg,
	})
	if err != nil {
		return nil, err
	}

	forecast, err := Forecast(m.WeightKg, tdee, macros.CaloriesTotal, weeks)
	if err != nil {
		return nil, err
	}

	return &CalcOutput{
		BMI:                    bmi,
		BMR:                    bmr,
		TDEE:                   tdee,
		BodyFatPercentEstimate: bf,
		FFMI:                   ffmi,
		Macros:                 macros,
		Forecast:               forecast,
	}, nil
}
