package nutrition

const (
	cmPerInch = 2.54
	kgPerLb   = 0.45359237
)

// Measurements are body measurements in metric units.
type Measurements struct {
	HeightCm float64
	WeightKg float64
	AgeYears int
}

// NormalizeInputs returns the metric measurements of u, converting from imperial when
// needed. The pair for the selected unit system must be present.
func NormalizeInputs(u UserInput) (Measurements, error) {
	switch u.UnitSystem {
	case Imperial:
		if u.HeightIn == nil || u.WeightLb == nil {
			return Measurements{}, invalid("unit_system", "imperial requires height_in and weight_lb")
		}
		return Measurements{
			HeightCm: *u.HeightIn * cmPerInch,
			WeightKg: *u.WeightLb * kgPerLb,
			AgeYears: u.AgeYears,
		}, nil
	case Metric, "":
		if u.HeightCm == nil || u.WeightKg == nil {
			return Measurements{}, invalid("unit_system", "metric requires height_cm and weight_kg")
		}
		return Measurements{HeightCm: *u.HeightCm, WeightKg: *u.WeightKg, AgeYears: u.AgeYears}, nil
	default:
		return Measurements{}, invalid("unit_system", "unsupported unit system %q", u.UnitSystem)
	}
}
