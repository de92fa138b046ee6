package nutrition

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

// ValidationError reports an input that the formulas cannot accept.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...any) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidationError reports whether err carries a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(jsonFieldName)
	return v
}

// ApplyDefaults fills in the optional fields the way an omitted JSON key is read.
func (u *UserInput) ApplyDefaults() {
	if u.UnitSystem == "" {
		u.UnitSystem = Metric
	}
	if u.Goal == "" {
		u.Goal = GoalMaintain
	}
	if u.NetCarbsG == nil {
		v := DefaultNetCarbsG
		u.NetCarbsG = &v
	}
	if u.ProteinGPerKg == nil {
		v := DefaultProteinGPerKg
		u.ProteinGPerKg = &v
	}
	if u.MealPlan.MealsPerDay == 0 {
		u.MealPlan.MealsPerDay = DefaultMealsPerDay
	}
	if u.MealPlan.Days == 0 {
		u.MealPlan.Days = DefaultDays
	}
}

// Validate checks field ranges. Call ApplyDefaults first.
func (u *UserInput) Validate() error {
	err := validate.Struct(u)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &ValidationError{Message: err.Error()}
	}
	fe := verrs[0]
	field := strings.TrimPrefix(fe.Namespace(), "UserInput.")
	switch fe.Tag() {
	case "required":
		return invalid(field, "is required")
	case "oneof":
		return invalid(field, "must be one of [%s], got %q", fe.Param(), fmt.Sprint(fe.Value()))
	case "min":
		return invalid(field, "must be >= %s", fe.Param())
	case "max":
		return invalid(field, "must be <= %s", fe.Param())
	case "gt":
		return invalid(field, "must be > %s", fe.Param())
	default:
		return invalid(field, "failed %q validation", fe.Tag())
	}
}

func jsonFieldName(fld reflect.StructField) string {
	name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
	if name == "-" {
		return ""
	}
	if name == "" {
		return fld.Name
	}
	return name
}
