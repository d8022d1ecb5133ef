package verticals

import (
	"fmt"
	"time"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
)

const (
	nurseService      flow.Step = "service"
	nurseNurse        flow.Step = "nurse"
	nurseSchedule     flow.Step = "schedule"
	nurseConfirmation flow.Step = "confirmation"
)

var nursingServices = []Option{
	{ID: "wound_care", Name: "Wound Dressing & Care"},
	{ID: "injection", Name: "Injection & IV Administration"},
	{ID: "post_op", Name: "Post-Operative Care"},
	{ID: "elder_assist", Name: "Elder Assistance"},
	{ID: "mother_baby", Name: "Mother & Baby Care"},
}

var nurses = []Provider{
	{ID: "nurse-1", Name: "Priya Sharma", Photo: "/img/nurses/1.jpg", Rating: 4.9, Experience: 10, HourlyRate: 400, DailyRate: 2500},
	{ID: "nurse-2", Name: "Anita George", Photo: "/img/nurses/2.jpg", Rating: 4.8, Experience: 7, HourlyRate: 350, DailyRate: 2200},
	{ID: "nurse-3", Name: "Kavita Rao", Photo: "/img/nurses/3.jpg", Rating: 4.6, Experience: 5, HourlyRate: 300, DailyRate: 1800},
}

var (
	nurseIndex          = providersByID(nurses)
	nursingServiceIndex = optionsByID(nursingServices)
)

func nurseDefinition() *flow.Definition {
	return &flow.Definition{
		Vertical:    Nurse,
		Label:       "Nurse Booking",
		BookingType: bookings.TypeNurse,
		CodePrefix:  "NRS",
		Graph:       flow.MustLinear(nurseService, nurseNurse, nurseSchedule, nurseConfirmation),
		Prerequisites: map[flow.Step][]string{
			nurseNurse:        {"serviceId", "bookingMode"},
			nurseSchedule:     {"nurseId"},
			nurseConfirmation: {"date", "time", "address"},
		},
		Guards: map[flow.Step]func(flow.State) []string{
			nurseNurse:        validNursingService,
			nurseSchedule:     validNurse,
			nurseConfirmation: all(nurseDuration, validDate("date")),
		},
		Required: []string{"serviceId", "bookingMode", "nurseId", "date", "time", "address"},
		Conditional: func(s flow.State) []string {
			missing := append(validNursingService(s), validNurse(s)...)
			missing = append(missing, nurseDuration(s)...)
			return append(missing, validDate("date")(s)...)
		},
		Initial: func() flow.State {
			return flow.State{"bookingMode": "hourly", "hours": 2, "days": 1}
		},
		Price:     nurseQuote,
		Summarize: nurseSummary,
	}
}

func validNursingService(s flow.State) []string {
	var missing []string
	if _, ok := nursingServiceIndex[s.String("serviceId")]; !ok {
		missing = append(missing, "serviceId")
	}
	if m := s.String("bookingMode"); m != "hourly" && m != "daily" {
		missing = append(missing, "bookingMode")
	}
	return missing
}

func validNurse(s flow.State) []string {
	if _, ok := nurseIndex[s.String("nurseId")]; !ok {
		return []string{"nurseId"}
	}
	return nil
}

// nurseDuration checks the duration field for the booking mode: hours for
// hourly bookings, days for daily ones.
func nurseDuration(s flow.State) []string {
	if s.String("bookingMode") == "daily" {
		return inRange(s, "days", 1, maxDays)
	}
	return inRange(s, "hours", 1, maxHours)
}

func nurseQuote(s flow.State) flow.Quote {
	n, ok := nurseIndex[s.String("nurseId")]
	if !ok {
		return flow.Quote{}
	}
	if s.String("bookingMode") == "daily" {
		days := clamp(s.Int("days"), 1, maxDays)
		return flow.Quote{Items: []flow.LineItem{{Label: fmt.Sprintf("Nursing care (%d days)", days), Amount: n.DailyRate * days}}}
	}
	hours := clamp(s.Int("hours"), 1, maxHours)
	return flow.Quote{Items: []flow.LineItem{{Label: fmt.Sprintf("Nursing care (%d hours)", hours), Amount: n.HourlyRate * hours}}}
}

func nurseSummary(s flow.State, _ time.Time) flow.Summary {
	svc := nursingServiceIndex[s.String("serviceId")]
	duration := fmt.Sprintf("%d hours", clamp(s.Int("hours"), 1, maxHours))
	if s.String("bookingMode") == "daily" {
		duration = fmt.Sprintf("%d days", clamp(s.Int("days"), 1, maxDays))
	}
	return flow.Summary{
		Title:        svc.Name,
		ProviderName: nurseIndex[s.String("nurseId")].Name,
		Date:         s.String("date"),
		Time:         s.String("time"),
		Location:     s.String("address"),
		Notes:        joinNotes(duration, s.String("notes")),
		ContactEmail: s.String("email"),
	}
}

func nurseCatalogView() Catalog {
	return Catalog{Options: nursingServices, Providers: nurses, Slots: timeSlots}
}
