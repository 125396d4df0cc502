package service

import (
	"strings"

	dom "github.com/ramtunguturi36/hair/internal/domain"
)

var baseRoutine = []dom.RoutineDay{
	{Day: "Monday", Activity: "Wash Day", Products: []string{"Sulfate-free Shampoo", "Deep Conditioner"}},
	{Day: "Tuesday", Activity: "Moisturize", Products: []string{"Leave-in Conditioner", "Light Oil"}},
	{Day: "Wednesday", Activity: "Low Manipulation", Products: []string{}},
	{Day: "Thursday", Activity: "Refresh", Products: []string{"Water Spray", "Curl Cream"}},
	{Day: "Friday", Activity: "Protective Style", Products: []string{"Gel/Butter"}},
	{Day: "Saturday", Activity: "Scalp Care", Products: []string{"Tea Tree Oil"}},
	{Day: "Sunday", Activity: "Self-Care / Mask", Products: []string{"Protein Mask"}},
}

// Routine builds a seven-day care routine, Monday first, tuned to hairType.
func Routine(hairType string) []dom.RoutineDay {
	out := make([]dom.RoutineDay, len(baseRoutine))
	for i, d := range baseRoutine {
		d.Products = append([]string{}, d.Products...)
		out[i] = d
	}

	t := strings.ToLower(hairType)
	switch {
	case strings.Contains(t, "straight") || strings.Contains(t, "type 1"):
		out[2].Activity = "Light Wash (Water only)"
		out[6].Products = []string{"Hydrating Mask (No Protein)"}
	case strings.Contains(t, "coily") || strings.Contains(t, "type 4"):
		out[1].Activity = "LCO Method (Liquid, Cream, Oil)"
		out[3].Activity = "Intense Moisture"
	}
	return out
}
