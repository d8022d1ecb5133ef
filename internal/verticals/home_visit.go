package verticals

import (
	"time"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/internal/matching"
)

const (
	visitService      flow.Step = "service"
	visitSchedule     flow.Step = "schedule"
	visitDoctor       flow.Step = "doctor"
	visitConfirmation flow.Step = "confirmation"

	urgentVisitSurcharge int64 = 300
)

var visitServices = []Item{
	{ID: "general_checkup", Name: "General Check-up", Price: 799},
	{ID: "fever_infection", Name: "Fever & Infection", Price: 899},
	{ID: "bp_diabetes", Name: "BP & Diabetes Review", Price: 999},
	{ID: "post_hospital", Name: "Post-Hospitalisation Follow-up", Price: 1299},
}

var visitServiceIndex = itemsByID(visitServices)

func homeVisitDefinition(delay time.Duration) *flow.Definition {
	return &flow.Definition{
		Vertical:    HomeVisit,
		Label:       "Doctor Home Visit",
		BookingType: bookings.TypeHomeVisit,
		CodePrefix:  "DHV",
		Graph:       flow.MustLinear(visitService, visitSchedule, visitDoctor, visitConfirmation),
		Prerequisites: map[flow.Step][]string{
			visitSchedule:     {"serviceId"},
			visitDoctor:       {"date", "time", "address"},
			visitConfirmation: {"doctorName"},
		},
		Guards: map[flow.Step]func(flow.State) []string{
			visitSchedule: validVisitService,
			visitDoctor:   validDate("date"),
		},
		Required:    []string{"serviceId", "date", "time", "address", "doctorName"},
		Conditional: all(validVisitService, validDate("date")),
		Initial: func() flow.State {
			return flow.State{"urgent": false}
		},
		Price:     homeVisitQuote,
		Summarize: homeVisitSummary,
		Assignment: &flow.AssignmentSpec{
			Step:  visitDoctor,
			Kind:  matching.KindDoctor,
			Delay: delay,
			Field: "doctor",
		},
	}
}

func validVisitService(s flow.State) []string {
	if _, ok := visitServiceIndex[s.String("serviceId")]; !ok {
		return []string{"serviceId"}
	}
	return nil
}

func homeVisitQuote(s flow.State) flow.Quote {
	svc, ok := visitServiceIndex[s.String("serviceId")]
	if !ok {
		return flow.Quote{}
	}
	q := flow.Quote{Items: []flow.LineItem{{Label: svc.Name, Amount: svc.Price}}}
	if s.Bool("urgent") {
		q.AddOns = append(q.AddOns, flow.LineItem{Label: "Urgent visit", Amount: urgentVisitSurcharge})
	}
	return q
}

func homeVisitSummary(s flow.State, _ time.Time) flow.Summary {
	notes := s.String("symptoms")
	if s.Bool("urgent") {
		notes = joinNotes("Urgent", notes)
	}
	return flow.Summary{
		Title:        "Home Visit: " + visitServiceIndex[s.String("serviceId")].Name,
		ProviderName: s.String("doctorName"),
		Date:         s.String("date"),
		Time:         s.String("time"),
		Location:     s.String("address"),
		Notes:        notes,
		ContactEmail: s.String("email"),
	}
}

func homeVisitCatalogView() Catalog {
	return Catalog{Items: visitServices, Slots: timeSlots}
}
