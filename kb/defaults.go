package kb

import "github.com/signalsfoundry/ionoprop/model"

// DefaultElevationDeg is used when a scenario does not set an elevation.
const DefaultElevationDeg = 30.0

// DefaultScenarios returns the built-in presets.
func DefaultScenarios() []*model.Scenario {
	return []*model.Scenario{
		{
			ID:          "day",
			Name:        "Daytime",
			Description: "Moderate daytime conditions, all four layers present",
			FoF2MHz:     12,
		},
		{
			ID:          "night",
			Name:        "Night",
			Description: "Night regime, no D or F1 layer",
			FoF2MHz:     4,
		},
		{
			ID:          "dawn",
			Name:        "Dawn",
			Description: "Transition regime with partial D and F1 layers",
			FoF2MHz:     6,
		},
		{
			ID:          "summer-day",
			Name:        "Summer day",
			Description: "Lower, thinner F2 layer",
			FoF2MHz:     12,
			Season:      model.SeasonSummer,
		},
		{
			ID:          "winter-day",
			Name:        "Winter day",
			Description: "Higher, thicker F2 layer",
			FoF2MHz:     12,
			Season:      model.SeasonWinter,
		},
		{
			ID:          "poor",
			Name:        "Poor conditions",
			Description: "Low daytime foF2",
			FoF2MHz:     6,
			Season:      model.SeasonWinter,
		},
		{
			ID:          "excellent",
			Name:        "Excellent conditions",
			Description: "High foF2, upper HF bands open",
			FoF2MHz:     15,
		},
		{
			ID:          "terminator",
			Name:        "Day/night terminator",
			Description: "foF2 falls from 15 MHz at the transmitter to 4 MHz at 3000 km",
			Tilt: &model.TiltParams{
				FoF2TxMHz:     15,
				FoF2RefMHz:    4,
				RefDistanceKm: 3000,
			},
		},
	}
}

// NewDefaultCatalog returns a catalog preloaded with DefaultScenarios.
func NewDefaultCatalog() *Catalog {
	c := NewCatalog()
	for _, s := range DefaultScenarios() {
		if err := c.Add(s); err != nil {
			panic(err)
		}
	}
	return c
}

// ElevationOrDefault returns the scenario elevation, or
// DefaultElevationDeg when unset.
func ElevationOrDefault(s *model.Scenario) float64 {
	if s == nil || s.ElevationDeg == 0 {
		return DefaultElevationDeg
	}
	return s.ElevationDeg
}
