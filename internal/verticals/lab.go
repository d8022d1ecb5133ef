package verticals

import (
	"strings"
	"time"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/internal/matching"
)

const (
	labCatalog      flow.Step = "catalog"
	labSchedule     flow.Step = "schedule"
	labTechnician   flow.Step = "technician"
	labConfirmation flow.Step = "confirmation"
)

var labTests = []Item{
	{ID: "cbc", Name: "Complete Blood Count (CBC)", Description: "Red cells, white cells and platelets", Price: 349},
	{ID: "lipid", Name: "Lipid Profile", Description: "Cholesterol and triglycerides", Price: 499},
	{ID: "thyroid", Name: "Thyroid Profile (T3, T4, TSH)", Price: 599},
	{ID: "hba1c", Name: "HbA1c", Description: "Three-month average blood sugar", Price: 449},
	{ID: "lft", Name: "Liver Function Test", Price: 699},
	{ID: "kft", Name: "Kidney Function Test", Price: 649},
	{ID: "vitd", Name: "Vitamin D (25-OH)", Price: 1199},
}

var labTestIndex = itemsByID(labTests)

func labDefinition(delay time.Duration) *flow.Definition {
	return &flow.Definition{
		Vertical:    Lab,
		Label:       "Lab Test Booking",
		BookingType: bookings.TypeLabTest,
		CodePrefix:  "LAB",
		Graph:       flow.MustLinear(labCatalog, labSchedule, labTechnician, labConfirmation),
		Prerequisites: map[flow.Step][]string{
			labSchedule:     {"tests"},
			labTechnician:   {"date", "time", "address"},
			labConfirmation: {"technicianName"},
		},
		Guards: map[flow.Step]func(flow.State) []string{
			labSchedule:   validLabTests,
			labTechnician: validDate("date"),
		},
		Required:    []string{"tests", "date", "time", "address", "technicianName"},
		Conditional: all(validLabTests, validDate("date")),
		Price:       labQuote,
		Summarize:   labSummary,
		Assignment: &flow.AssignmentSpec{
			Step:  labTechnician,
			Kind:  matching.KindTechnician,
			Delay: delay,
			Field: "technician",
		},
	}
}

func validLabTests(s flow.State) []string {
	for _, id := range s.Strings("tests") {
		if _, ok := labTestIndex[id]; !ok {
			return []string{"tests"}
		}
	}
	return nil
}

func labQuote(s flow.State) flow.Quote {
	var q flow.Quote
	for _, id := range s.Strings("tests") {
		if t, ok := labTestIndex[id]; ok {
			q.Items = append(q.Items, flow.LineItem{Label: t.Name, Amount: t.Price})
		}
	}
	return q
}

func labSummary(s flow.State, _ time.Time) flow.Summary {
	names := make([]string, 0)
	for _, id := range s.Strings("tests") {
		if t, ok := labTestIndex[id]; ok {
			names = append(names, t.Name)
		}
	}
	return flow.Summary{
		Title:        "Lab Tests: " + strings.Join(names, ", "),
		ProviderName: s.String("technicianName"),
		Date:         s.String("date"),
		Time:         s.String("time"),
		Location:     s.String("address"),
		Notes:        s.String("notes"),
		ContactEmail: s.String("email"),
	}
}

func labCatalogView() Catalog {
	return Catalog{Items: labTests, Slots: timeSlots}
}
