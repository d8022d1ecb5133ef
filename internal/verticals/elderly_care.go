package verticals

import (
	"fmt"
	"time"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
	"github.com/wolfman30/carehub/internal/matching"
)

const (
	elderPackage      flow.Step = "package"
	elderSchedule     flow.Step = "schedule"
	elderCaregiver    flow.Step = "caregiver"
	elderConfirmation flow.Step = "confirmation"

	nightCarePerDay int64 = 500
)

var carePackages = []Package{
	{ID: "companion", Name: "Companion Care", DailyRate: 2000, HourlyRate: 250, Includes: []string{"Companionship", "Meal assistance", "Medication reminders"}},
	{ID: "assisted", Name: "Assisted Living Care", DailyRate: 2800, HourlyRate: 350, Includes: []string{"Bathing and dressing", "Mobility support", "Vitals monitoring"}},
	{ID: "skilled", Name: "Skilled Nursing Care", DailyRate: 3800, HourlyRate: 480, Includes: []string{"Wound care", "Injections", "Post-operative care"}},
}

var carePackageIndex = func() map[string]Package {
	m := make(map[string]Package, len(carePackages))
	for _, p := range carePackages {
		m[p.ID] = p
	}
	return m
}()

func elderlyCareDefinition(delay time.Duration) *flow.Definition {
	return &flow.Definition{
		Vertical:    ElderlyCare,
		Label:       "Elderly Care",
		BookingType: bookings.TypeElderlyCare,
		CodePrefix:  "ELD",
		Graph:       flow.MustLinear(elderPackage, elderSchedule, elderCaregiver, elderConfirmation),
		Prerequisites: map[flow.Step][]string{
			elderSchedule:     {"packageId", "packageType"},
			elderCaregiver:    {"startDate", "time", "address"},
			elderConfirmation: {"caregiverName"},
		},
		Guards: map[flow.Step]func(flow.State) []string{
			elderSchedule:  validCarePackage,
			elderCaregiver: all(careDuration, validDate("startDate")),
		},
		Required: []string{"packageId", "packageType", "startDate", "time", "address", "caregiverName"},
		Conditional: func(s flow.State) []string {
			return all(validCarePackage, careDuration, validDate("startDate"))(s)
		},
		Initial: func() flow.State {
			return flow.State{"packageType": "daily", "nightCare": false, "days": 1}
		},
		Price:     elderlyCareQuote,
		Summarize: elderlyCareSummary,
		Assignment: &flow.AssignmentSpec{
			Step:  elderCaregiver,
			Kind:  matching.KindCaregiver,
			Delay: delay,
			Field: "caregiver",
		},
	}
}

func validCarePackage(s flow.State) []string {
	var missing []string
	if _, ok := carePackageIndex[s.String("packageId")]; !ok {
		missing = append(missing, "packageId")
	}
	if t := s.String("packageType"); t != "daily" && t != "hourly" {
		missing = append(missing, "packageType")
	}
	return missing
}

func careDuration(s flow.State) []string {
	if s.String("packageType") == "hourly" {
		return inRange(s, "hours", 1, maxHours)
	}
	return inRange(s, "days", 1, maxDays)
}

// elderlyCareQuote prices daily plans per day with an optional night-care
// surcharge per day, and hourly plans per hour. Night care only applies to
// daily plans.
func elderlyCareQuote(s flow.State) flow.Quote {
	pkg, ok := carePackageIndex[s.String("packageId")]
	if !ok {
		return flow.Quote{}
	}
	var q flow.Quote
	if s.String("packageType") == "hourly" {
		hours := clamp(s.Int("hours"), 1, maxHours)
		q.Items = append(q.Items, flow.LineItem{
			Label:  fmt.Sprintf("%s (%d hours)", pkg.Name, hours),
			Amount: pkg.HourlyRate * hours,
		})
		return q
	}

	days := clamp(s.Int("days"), 1, maxDays)
	q.Items = append(q.Items, flow.LineItem{
		Label:  fmt.Sprintf("%s (%d days)", pkg.Name, days),
		Amount: pkg.DailyRate * days,
	})
	if s.Bool("nightCare") {
		q.AddOns = append(q.AddOns, flow.LineItem{
			Label:  "Night care",
			Amount: nightCarePerDay * days,
		})
	}
	return q
}

func elderlyCareSummary(s flow.State, _ time.Time) flow.Summary {
	pkg := carePackageIndex[s.String("packageId")]
	notes := s.String("notes")
	if s.String("packageType") == "daily" && s.Bool("nightCare") {
		notes = joinNotes("Includes night care", notes)
	}
	return flow.Summary{
		Title:        pkg.Name,
		ProviderName: s.String("caregiverName"),
		Date:         s.String("startDate"),
		Time:         s.String("time"),
		Location:     s.String("address"),
		Notes:        notes,
		ContactEmail: s.String("email"),
	}
}

func elderlyCareCatalogView() Catalog {
	return Catalog{Packages: carePackages, Slots: timeSlots}
}
