package telegram

import (
	"fmt"
	"strconv"
	"strings"

	"keto-planner/internal/nutrition"
)

const helpText = "🥑 *Keto Planner*\n\n" +
	"`/calc sex=male age=30 height=180 weight=80 activity=moderate [goal=lose]`\n" +
	"`/plan sex=female age=28 height=165 weight=60 activity=light days=3 meals=2 vegan`\n" +
	"`/metrics [days]` (admin)\n\n" +
	"Imperial: `units=imperial height_in=70 weight_lb=176`.\n" +
	"Options: `carbs=25 protein=1.8 kosher halal vegetarian`."

// ParseUserInput reads space separated key=value pairs and bare dietary flags.
// Range checks are left to nutrition validation.
func ParseUserInput(args string) (nutrition.UserInput, error) {
	var in nutrition.UserInput
	for _, tok := range strings.Fields(args) {
		key, value, hasValue := strings.Cut(strings.ToLower(tok), "=")
		if !hasValue {
			if err := setFlag(&in, key); err != nil {
				return in, err
			}
			continue
		}
		if err := setField(&in, key, value); err != nil {
			return in, err
		}
	}
	return in, nil
}

func setFlag(in *nutrition.UserInput, flag string) error {
	switch flag {
	case "vegan":
		in.Dietary.Vegan = true
	case "vegetarian":
		in.Dietary.Vegetarian = true
	case "kosher":
		in.Dietary.Kosher = true
	case "halal":
		in.Dietary.Halal = true
	case "male", "female":
		in.Sex = nutrition.Sex(flag)
	default:
		return &nutrition.ValidationError{Message: fmt.Sprintf("unknown option %q", flag)}
	}
	return nil
}

func setField(in *nutrition.UserInput, key, value string) error {
	num := func() (float64, error) {
		v, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return 0, &nutrition.ValidationError{Field: key, Message: fmt.Sprintf("%q is not a number", value)}
		}
		return v, nil
	}
	integer := func() (int, error) {
		v, err := strconv.Atoi(value)
		if err != nil {
			return 0, &nutrition.ValidationError{Field: key, Message: fmt.Sprintf("%q is not a whole number", value)}
		}
		return v, nil
	}

	var err error
	switch key {
	case "sex":
		in.Sex = nutrition.Sex(value)
	case "age":
		in.AgeYears, err = integer()
	case "goal":
		in.Goal = nutrition.Goal(value)
	case "activity":
		in.ActivityLevel = nutrition.ActivityLevel(value)
	case "units":
		in.UnitSystem = nutrition.UnitSystem(value)
	case "height", "height_cm":
		in.HeightCm, err = floatPtr(num)
	case "weight", "weight_kg":
		in.WeightKg, err = floatPtr(num)
	case "height_in":
		in.HeightIn, err = floatPtr(num)
	case "weight_lb":
		in.WeightLb, err = floatPtr(num)
	case "carbs":
		in.NetCarbsG, err = floatPtr(num)
	case "protein":
		in.ProteinGPerKg, err = floatPtr(num)
	case "days":
		in.MealPlan.Days, err = integer()
	case "meals":
		in.MealPlan.MealsPerDay, err = integer()
	default:
		return &nutrition.ValidationError{Message: fmt.Sprintf("unknown option %q", key)}
	}
	return err
}

func floatPtr(parse func() (float64, error)) (*float64, error) {
	v, err := parse()
	if err != nil {
		return nil, err
	}
	return &v, nil
}
