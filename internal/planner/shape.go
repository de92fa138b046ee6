package planner

import (
	"fmt"
	"slices"
	"strings"
)

// CheckShape lists every way plan deviates from the structure req asks for.
// An empty result means the plan conforms. The plan is never modified.
func CheckShape(plan *MealPlan, req PlanRequest) []string {
	if plan == nil {
		return []string{"plan is empty"}
	}

	var mismatches []string
	if len(plan.Days) != req.Days {
		mismatches = append(mismatches, fmt.Sprintf("expected %d days, got %d", req.Days, len(plan.Days)))
	}

	names := MealNames(req.MealsPerDay)
	for i, day := range plan.Days {
		if len(day.Meals) != req.MealsPerDay {
			mismatches = append(mismatches, fmt.Sprintf("day %d: expected %d meals, got %d", i+1, req.MealsPerDay, len(day.Meals)))
		}
		for _, meal := range day.Meals {
			if !slices.Contains(names, meal.MealName) {
				mismatches = append(mismatches, fmt.Sprintf("day %d: meal_name %q is not one of [%s]", i+1, meal.MealName, strings.Join(names, ", ")))
			}
		}
	}
	return mismatches
}

func joinReasons(reasons []string) string {
	return strings.Join(reasons, "; ")
}
