package planner

// Normalize reshapes plan to req without calling the model. Missing days reuse the
// source days cyclically; within a day, meals with the expected name are kept, other
// source meals are renamed into the free slots in order, and any slot left over gets an
// empty meal. Days are renumbered from 1. A plan that already conforms is returned as
// a copy with its meal order and names untouched. The source plan is not modified.
func Normalize(plan *MealPlan, req PlanRequest) *MealPlan {
	if plan != nil && len(CheckShape(plan, req)) == 0 {
		return plan.clone()
	}
	var src []DayPlan
	out := &MealPlan{ShoppingList: []string{}, Assumptions: []string{}}
	if plan != nil {
		src = plan.Days
		out.ShoppingList = append(out.ShoppingList, plan.ShoppingList...)
		out.Assumptions = append(out.Assumptions, plan.Assumptions...)
	}

	names := MealNames(req.MealsPerDay)
	out.Days = make([]DayPlan, 0, req.Days)
	for i := 0; i < req.Days; i++ {
		day := DayPlan{Day: i + 1}
		if len(src) == 0 {
			day.Meals = make([]Meal, len(names))
			for j, name := range names {
				day.Meals[j] = emptyMeal(name)
			}
			day.Totals = emptyMeal(totalsMealName)
		} else {
			source := src[i%len(src)]
			day.Meals = fitMeals(source.Meals, names)
			day.Totals = source.Totals.clone()
			day.Totals.MealName = totalsMealName
			if day.Totals.Items == nil {
				day.Totals.Items = []MealItem{}
			}
		}
		out.Days = append(out.Days, day)
	}
	return out
}

// fitMeals assigns source meals to the expected names. Exact name matches are placed
// first so a later expected name never loses its meal to an earlier free slot.
func fitMeals(source []Meal, names []string) []Meal {
	used := make([]bool, len(source))
	slots := make([]int, len(names))
	for i, name := range names {
		slots[i] = -1
		for j, m := range source {
			if !used[j] && m.MealName == name {
				slots[i] = j
				used[j] = true
				break
			}
		}
	}

	next := 0
	for i := range names {
		if slots[i] != -1 {
			continue
		}
		for next < len(source) && used[next] {
			next++
		}
		if next < len(source) {
			slots[i] = next
			used[next] = true
		}
	}

	meals := make([]Meal, len(names))
	for i, name := range names {
		if slots[i] == -1 {
			meals[i] = emptyMeal(name)
			continue
		}
		meals[i] = source[slots[i]].clone()
		meals[i].MealName = name
	}
	return meals
}
