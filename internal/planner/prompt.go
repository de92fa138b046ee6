package planner

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

var (
	//go:embed prompts/generate.md
	generatePrompt string
	//go:embed prompts/repair.md
	repairPrompt string
	//go:embed prompts/constrained_repair.md
	constrainedRepairPrompt string
)

var (
	generateTmpl          = template.Must(template.New("generate").Parse(generatePrompt))
	repairTmpl            = template.Must(template.New("repair").Parse(repairPrompt))
	constrainedRepairTmpl = template.Must(template.New("constrained_repair").Parse(constrainedRepairPrompt))
)

const schemaExample = `{
  "days": [
    {
      "day": 1,
      "meals": [
        {
          "meal_name": "lunch",
          "items": [
            {"name": "chicken breast", "grams": 200, "notes": "grilled"}
          ],
          "protein_g": 0,
          "fat_g": 0,
          "net_carbs_g": 0,
          "calories": 0
        }
      ],
      "totals": {
        "meal_name": "totals",
        "items": [],
        "protein_g": 0,
        "fat_g": 0,
        "net_carbs_g": 0,
        "calories": 0
      }
    }
  ],
  "shopping_list": ["..."],
  "assumptions": ["..."]
}`

// BuildPrompt renders the generation prompt. Identical inputs give identical output.
func BuildPrompt(targets NutritionTargets, req PlanRequest) (string, error) {
	data := struct {
		Calories, Protein, Fat, NetCarbs string
		Days, MealsPerDay                int
		MealNames                        string
		DietaryRules                     []string
		Example                          string
	}{
		Calories:     fmt.Sprintf("%.0f", targets.CaloriesTotal),
		Protein:      fmt.Sprintf("%.0f", targets.ProteinG),
		Fat:          fmt.Sprintf("%.0f", targets.FatG),
		NetCarbs:     fmt.Sprintf("%.0f", targets.NetCarbsG),
		Days:         req.Days,
		MealsPerDay:  req.MealsPerDay,
		MealNames:    quoteNames(MealNames(req.MealsPerDay)),
		DietaryRules: dietaryRules(req.Dietary),
		Example:      schemaExample,
	}
	return render(generateTmpl, data)
}

// BuildRepairPrompt asks the model to fix raw output that did not parse.
func BuildRepairPrompt(raw string) (string, error) {
	return render(repairTmpl, struct{ Example, Raw string }{schemaExample, raw})
}

// BuildConstrainedRepairPrompt asks the model to reshape plan to the request.
func BuildConstrainedRepairPrompt(req PlanRequest, reasons []string, plan string) (string, error) {
	data := struct {
		Days, MealsPerDay int
		MealNames         string
		Reasons           []string
		Plan              string
	}{
		Days:        req.Days,
		MealsPerDay: req.MealsPerDay,
		MealNames:   quoteNames(MealNames(req.MealsPerDay)),
		Reasons:     reasons,
		Plan:        plan,
	}
	return render(constrainedRepairTmpl, data)
}

// MaxOutputTokens sizes the generation cap to the plan being asked for.
func MaxOutputTokens(req PlanRequest) int {
	n := 500 + req.Days*req.MealsPerDay*220
	return max(1200, min(n, 4000))
}

func dietaryRules(d DietaryFlags) []string {
	var rules []string
	if d.Vegan {
		rules = append(rules, "- Must be VEGAN (no meat, fish, eggs, dairy, honey).")
	} else if d.Vegetarian {
		rules = append(rules, "- Must be VEGETARIAN (no meat or fish).")
	}
	if d.Kosher {
		rules = append(rules, "- Must be KOSHER (no pork/shellfish; do not mix meat and dairy).")
	}
	if d.Halal {
		rules = append(rules, "- Must be HALAL (no pork/alcohol; halal meat only if meat is included).")
	}
	if len(rules) == 0 {
		rules = append(rules, "- No special dietary restrictions.")
	}
	return rules
}

func quoteNames(names []string) string {
	quoted := make([]string, len(names))
	for i, n := range names {
		quoted[i] = `"` + n + `"`
	}
	return strings.Join(quoted, ", ")
}

func render(tmpl *template.Template, data any) (string, error) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to render %s prompt: %w", tmpl.Name(), err)
	}
	return buf.String(), nil
}

// responseSchema describes MealPlan for providers that can enforce a schema.
// totals is optional here; a missing one is synthesized after decoding.
func responseSchema() map[string]any {
	number := map[string]any{"type": "number"}
	meal := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"meal_name": map[string]any{"type": "string"},
			"items": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"name":  map[string]any{"type": "string"},
						"grams": number,
						"notes": map[string]any{"type": "string", "nullable": true},
					},
					"required": []string{"name", "grams"},
				},
			},
			"protein_g":   number,
			"fat_g":       number,
			"net_carbs_g": number,
			"calories":    number,
		},
		"required": []string{"meal_name", "items", "protein_g", "fat_g", "net_carbs_g", "calories"},
	}
	strList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"days": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"day":    map[string]any{"type": "integer"},
						"meals":  map[string]any{"type": "array", "items": meal},
						"totals": meal,
					},
					"required": []string{"day", "meals"},
				},
			},
			"shopping_list": strList,
			"assumptions":   strList,
		},
		"required": []string{"days", "shopping_list", "assumptions"},
	}
}
