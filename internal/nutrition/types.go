package nutrition

// UnitSystem selects which pair of body measurements a UserInput carries.
type UnitSystem string

const (
	Metric   UnitSystem = "metric"
	Imperial UnitSystem = "imperial"
)

type Sex string

const (
	Male   Sex = "male"
	Female Sex = "female"
)

type Goal string

const (
	GoalLose     Goal = "lose"
	GoalMaintain Goal = "maintain"
	GoalGain     Goal = "gain"
)

type ActivityLevel string

const (
	Sedentary ActivityLevel = "sedentary"
	Light     ActivityLevel = "light"
	Moderate  ActivityLevel = "moderate"
	Very      ActivityLevel = "very"
	Athlete   ActivityLevel = "athlete"
)

const (
	DefaultNetCarbsG     = 25.0
	DefaultProteinGPerKg = 1.8
	DefaultMealsPerDay   = 3
	DefaultDays          = 1
	DefaultForecastWeeks = 24
)

// DietaryPreferences are the dietary restrictions a meal plan must honour.
type DietaryPreferences struct {
	Kosher     bool `json:"kosher"`
	Halal      bool `json:"halal"`
	Vegan      bool `json:"vegan"`
	Vegetarian bool `json:"vegetarian"`
}

// MealPlanPreferences controls the shape of a generated meal plan.
// meals_per_day 1 means one meal a day (OMAD).
type MealPlanPreferences struct {
	MealsPerDay int `json:"meals_per_day" validate:"min=1,max=6"`
	Days        int `json:"days" validate:"min=1,max=7"`
}

// UserInput is the biometric and preference payload accepted by /calc and /mealplan.
type UserInput struct {
	UnitSystem UnitSystem `json:"unit_system" validate:"oneof=metric imperial"`
	Sex        Sex        `json:"sex" validate:"required,oneof=male female"`
	AgeYears   int        `json:"age_years" validate:"min=10,max=100"`
	Goal       Goal       `json:"goal" validate:"oneof=lose maintain gain"`

	HeightCm *float64 `json:"height_cm,omitempty" validate:"omitempty,gt=0"`
	WeightKg *float64 `json:"weight_kg,omitempty" validate:"omitempty,gt=0"`

	HeightIn *float64 `json:"height_in,omitempty" validate:"omitempty,gt=0"`
	WeightLb *float64 `json:"weight_lb,omitempty" validate:"omitempty,gt=0"`

	ActivityLevel ActivityLevel `json:"activity_level" validate:"required,oneof=sedentary light moderate very athlete"`

	NetCarbsG     *float64 `json:"net_carbs_g,omitempty" validate:"omitempty,min=0,max=100"`
	ProteinGPerKg *float64 `json:"protein_g_per_kg,omitempty" validate:"omitempty,min=0.5,max=4"`

	Dietary  DietaryPreferences  `json:"dietary"`
	MealPlan MealPlanPreferences `json:"mealplan"`
}

// MacroSettings are the user-tunable inputs of the keto macro split.
type MacroSettings struct {
	NetCarbsG     float64
	ProteinGPerKg float64
}

// Macros are daily macro targets.
type Macros struct {
	CaloriesTotal float64 `json:"calories_total"`
	ProteinG      float64 `json:"protein_g"`
	FatG          float64 `json:"fat_g"`
	NetCarbsG     float64 `json:"net_carbs_g"`
}

type ForecastPoint struct {
	Week     int     `json:"week"`
	WeightKg float64 `json:"weight_kg"`
}

// CalcOutput is the full set of metrics derived from a UserInput.
type CalcOutput struct {
	BMI                    float64         `json:"bmi"`
	BMR                    float64         `json:"bmr"`
	TDEE                   float64         `json:"tdee"`
	BodyFatPercentEstimate *float64        `json:"body_fat_percent_estimate"`
	FFMI                   *float64        `json:"ffmi"`
	Macros                 Macros          `json:"macros"`
	Forecast               []ForecastPoint `json:"forecast"`
}
