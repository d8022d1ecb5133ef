package verticals

import (
	"fmt"
	"time"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/internal/matching"
)

const (
	sosEmergency    flow.Step = "emergency"
	sosLocation     flow.Step = "location"
	sosDispatch     flow.Step = "dispatch"
	sosConfirmation flow.Step = "confirmation"
)

var emergencyTypes = []Option{
	{ID: "cardiac", Name: "Chest pain / Cardiac"},
	{ID: "accident", Name: "Accident / Injury"},
	{ID: "breathing", Name: "Breathing difficulty"},
	{ID: "stroke", Name: "Stroke symptoms"},
	{ID: "pregnancy", Name: "Pregnancy emergency"},
	{ID: "other", Name: "Other emergency"},
}

var ambulanceTypes = []Option{
	{ID: "basic", Name: "Basic Life Support", Price: 1500},
	{ID: "advanced", Name: "Advanced Life Support", Price: 2500},
	{ID: "icu", Name: "ICU on Wheels", Price: 4000},
}

var (
	emergencyTypeIndex = optionsByID(emergencyTypes)
	ambulanceTypeIndex = optionsByID(ambulanceTypes)
)

func emergencyDefinition(delay time.Duration) *flow.Definition {
	return &flow.Definition{
		Vertical:    Emergency,
		Label:       "Emergency SOS",
		BookingType: bookings.TypeEmergency,
		CodePrefix:  "SOS",
		Graph:       flow.MustLinear(sosEmergency, sosLocation, sosDispatch, sosConfirmation),
		Prerequisites: map[flow.Step][]string{
			sosLocation:     {"emergencyType", "ambulanceType"},
			sosDispatch:     {"address", "phone"},
			sosConfirmation: {"ambulanceName"},
		},
		Guards: map[flow.Step]func(flow.State) []string{
			sosLocation: validEmergency,
		},
		Required:    []string{"emergencyType", "ambulanceType", "address", "phone", "ambulanceName"},
		Conditional: validEmergency,
		Initial: func() flow.State {
			return flow.State{"ambulanceType": "basic"}
		},
		Price:     emergencyQuote,
		Summarize: emergencySummary,
		Assignment: &flow.AssignmentSpec{
			Step:  sosDispatch,
			Kind:  matching.KindAmbulance,
			Delay: delay,
			Field: "ambulance",
		},
	}
}

func validEmergency(s flow.State) []string {
	var missing []string
	if _, ok := emergencyTypeIndex[s.String("emergencyType")]; !ok {
		missing = append(missing, "emergencyType")
	}
	if _, ok := ambulanceTypeIndex[s.String("ambulanceType")]; !ok {
		missing = append(missing, "ambulanceType")
	}
	return missing
}

func emergencyQuote(s flow.State) flow.Quote {
	amb, ok := ambulanceTypeIndex[s.String("ambulanceType")]
	if !ok {
		return flow.Quote{}
	}
	return flow.Quote{Items: []flow.LineItem{{Label: amb.Name + " base fare", Amount: amb.Price}}}
}

// emergencySummary stamps the booking with the dispatch time.
func emergencySummary(s flow.State, now time.Time) flow.Summary {
	provider := s.String("ambulanceName")
	if v := s.String("ambulanceVehicle"); v != "" {
		provider = fmt.Sprintf("%s (%s)", provider, v)
	}
	return flow.Summary{
		Title:        "Emergency: " + emergencyTypeIndex[s.String("emergencyType")].Name,
		ProviderName: provider,
		Date:         now.Format(time.DateOnly),
		Time:         now.Format("03:04 PM"),
		Location:     s.String("address"),
		Notes:        s.String("notes"),
		ContactEmail: s.String("email"),
	}
}

func emergencyCatalogView() Catalog {
	return Catalog{Options: emergencyTypes, Tiers: ambulanceTypes}
}
