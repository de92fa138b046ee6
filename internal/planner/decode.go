package planner

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// The wire types mirror MealPlan with pointers so that missing fields are told apart
// from zero values.
type wireItem struct {
	Name  *string  `json:"name" validate:"required"`
	Grams *float64 `json:"grams" validate:"required,gt=0"`
	Notes *string  `json:"notes"`
}

type wireMeal struct {
	MealName  *string    `json:"meal_name" validate:"required"`
	Items     []wireItem `json:"items" validate:"required,dive"`
	ProteinG  *float64   `json:"protein_g" validate:"required,gte=0"`
	FatG      *float64   `json:"fat_g" validate:"required,gte=0"`
	NetCarbsG *float64   `json:"net_carbs_g" validate:"required,gte=0"`
	Calories  *float64   `json:"calories" validate:"required,gte=0"`
}

type wireDay struct {
	Day    *int       `json:"day" validate:"required,gte=1"`
	Meals  []wireMeal `json:"meals" validate:"required,dive"`
	Totals *wireMeal  `json:"totals"`
}

type wirePlan struct {
	Days         []wireDay `json:"days" validate:"required,dive"`
	ShoppingList []string  `json:"shopping_list" validate:"required"`
	Assumptions  []string  `json:"assumptions" validate:"required"`
}

var planValidator = newPlanValidator()

func newPlanValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "" || name == "-" {
			return fld.Name
		}
		return name
	})
	return v
}

// SyntaxError is returned when the text is not valid JSON.
type SyntaxError struct {
	Line, Column int
	Msg          string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s at line %d col %d", e.Msg, e.Line, e.Column)
}

// SchemaError is returned when the JSON is valid but does not describe a MealPlan.
type SchemaError struct {
	Msg string
}

func (e *SchemaError) Error() string { return e.Msg }

// DecodePlan parses text into a MealPlan and checks the field rules.
func DecodePlan(text string) (*MealPlan, error) {
	data := []byte(text)
	var wp wirePlan
	if err := json.Unmarshal(data, &wp); err != nil {
		var se *json.SyntaxError
		var te *json.UnmarshalTypeError
		switch {
		case errors.As(err, &se):
			line, col := lineCol(data, se.Offset)
			return nil, &SyntaxError{Line: line, Column: col, Msg: se.Error()}
		case errors.As(err, &te):
			return nil, &SchemaError{Msg: fmt.Sprintf("field %q: expected %s, got %s", te.Field, te.Type, te.Value)}
		default:
			// io.ErrUnexpectedEOF and friends are syntax problems too.
			line, col := lineCol(data, int64(len(data)))
			return nil, &SyntaxError{Line: line, Column: col, Msg: err.Error()}
		}
	}

	if err := planValidator.Struct(&wp); err != nil {
		return nil, &SchemaError{Msg: describeValidation(err)}
	}
	return wp.toPlan(), nil
}

// ParsePlan runs extraction, decoding and, for syntax errors, one sanitized retry.
func ParsePlan(raw string) (*MealPlan, error) {
	candidate := ExtractJSON(raw)
	plan, err := DecodePlan(candidate)
	if err == nil {
		return plan, nil
	}
	var se *SyntaxError
	if !errors.As(err, &se) {
		return nil, err
	}
	sanitized := SanitizeJSON(candidate)
	if sanitized == candidate {
		return nil, err
	}
	return DecodePlan(sanitized)
}

// lineCol converts a json error offset, which points just past the offending byte, into
// a 1-based line and column.
func lineCol(data []byte, offset int64) (int, int) {
	pos := int(offset) - 1
	pos = max(0, min(pos, len(data)))
	before := data[:pos]
	line := bytes.Count(before, []byte{'\n'}) + 1
	col := pos - bytes.LastIndexByte(before, '\n')
	return line, col
}

func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		field := strings.TrimPrefix(fe.Namespace(), "wirePlan.")
		switch fe.Tag() {
		case "required":
			msgs = append(msgs, fmt.Sprintf("%s is required", field))
		default:
			msgs = append(msgs, fmt.Sprintf("%s must be %s %s", field, fe.Tag(), fe.Param()))
		}
	}
	return strings.Join(msgs, "; ")
}

func (wp *wirePlan) toPlan() *MealPlan {
	plan := &MealPlan{
		Days:         make([]DayPlan, 0, len(wp.Days)),
		ShoppingList: append([]string{}, wp.ShoppingList...),
		Assumptions:  append([]string{}, wp.Assumptions...),
	}
	for _, wd := range wp.Days {
		day := DayPlan{Day: *wd.Day, Meals: make([]Meal, 0, len(wd.Meals))}
		for _, wm := range wd.Meals {
			day.Meals = append(day.Meals, wm.toMeal())
		}
		if wd.Totals != nil {
			day.Totals = wd.Totals.toMeal()
			day.Totals.MealName = totalsMealName
		} else {
			day.Totals = emptyMeal(totalsMealName)
		}
		plan.Days = append(plan.Days, day)
	}
	return plan
}

func (wm wireMeal) toMeal() Meal {
	m := Meal{
		MealName:  *wm.MealName,
		Items:     make([]MealItem, 0, len(wm.Items)),
		ProteinG:  *wm.ProteinG,
		FatG:      *wm.FatG,
		NetCarbsG: *wm.NetCarbsG,
		Calories:  *wm.Calories,
	}
	for _, wi := range wm.Items {
		m.Items = append(m.Items, MealItem{Name: *wi.Name, Grams: *wi.Grams, Notes: wi.Notes})
	}
	return m
}
