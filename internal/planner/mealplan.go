package planner

import (
	"fmt"
)

// DietaryFlags are the restrictions a plan must honour. Vegan wins over vegetarian.
type DietaryFlags struct {
	Vegan      bool `json:"vegan"`
	Vegetarian bool `json:"vegetarian"`
	Kosher     bool `json:"kosher"`
	Halal      bool `json:"halal"`
}

// PlanRequest holds the caller's structural constraints for a meal plan.
type PlanRequest struct {
	Days        int          `json:"days"`
	MealsPerDay int          `json:"meals_per_day"`
	Dietary     DietaryFlags `json:"dietary"`
}

// Validate reports an InvalidInput error when the request is out of range.
func (r PlanRequest) Validate() error {
	if r.Days < 1 || r.Days > 7 {
		return invalidInput(fmt.Sprintf("days must be between 1 and 7, got %d", r.Days))
	}
	if r.MealsPerDay < 1 || r.MealsPerDay > 6 {
		return invalidInput(fmt.Sprintf("meals_per_day must be between 1 and 6, got %d", r.MealsPerDay))
	}
	return nil
}

// NutritionTargets are the daily targets the plan should approximate.
type NutritionTargets struct {
	CaloriesTotal float64 `json:"calories_total"`
	ProteinG      float64 `json:"protein_g"`
	FatG          float64 `json:"fat_g"`
	NetCarbsG     float64 `json:"net_carbs_g"`
}

func (t NutritionTargets) validate() error {
	if t.CaloriesTotal < 0 || t.ProteinG < 0 || t.FatG < 0 || t.NetCarbsG < 0 {
		return invalidInput("nutrition targets must be non-negative")
	}
	return nil
}

type MealItem struct {
	Name  string  `json:"name"`
	Grams float64 `json:"grams"`
	Notes *string `json:"notes,omitempty"`
}

type Meal struct {
	MealName  string     `json:"meal_name"`
	Items     []MealItem `json:"items"`
	ProteinG  float64    `json:"protein_g"`
	FatG      float64    `json:"fat_g"`
	NetCarbsG float64    `json:"net_carbs_g"`
	Calories  float64    `json:"calories"`
}

// DayPlan is one day of the plan. Totals always carries meal_name "totals".
type DayPlan struct {
	Day    int    `json:"day"`
	Meals  []Meal `json:"meals"`
	Totals Meal   `json:"totals"`
}

// MealPlan is a complete multi-day plan.
type MealPlan struct {
	Days         []DayPlan `json:"days"`
	ShoppingList []string  `json:"shopping_list"`
	Assumptions  []string  `json:"assumptions"`
}

const totalsMealName = "totals"

var mealNameVocabulary = []string{"breakfast", "lunch", "dinner", "snack", "snack2", "snack3"}

// MealNames returns the expected ordered meal names for mealsPerDay.
func MealNames(mealsPerDay int) []string {
	if mealsPerDay <= 1 {
		return []string{"meal"}
	}
	if mealsPerDay > len(mealNameVocabulary) {
		mealsPerDay = len(mealNameVocabulary)
	}
	return append([]string(nil), mealNameVocabulary[:mealsPerDay]...)
}

func emptyMeal(name string) Meal {
	return Meal{MealName: name, Items: []MealItem{}}
}

func (m Meal) clone() Meal {
	out := m
	out.Items = make([]MealItem, len(m.Items))
	copy(out.Items, m.Items)
	return out
}

func (p *MealPlan) clone() *MealPlan {
	out := &MealPlan{
		Days:         make([]DayPlan, len(p.Days)),
		ShoppingList: append([]string{}, p.ShoppingList...),
		Assumptions:  append([]string{}, p.Assumptions...),
	}
	for i, d := range p.Days {
		meals := make([]Meal, len(d.Meals))
		for j, m := range d.Meals {
			meals[j] = m.clone()
		}
		out.Days[i] = DayPlan{Day: d.Day, Meals: meals, Totals: d.Totals.clone()}
	}
	return out
}
