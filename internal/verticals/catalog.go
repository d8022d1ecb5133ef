package verticals

// Item is a priced catalog entry (a lab test, a medicine, a service).
type Item struct {
	ID                   string `json:"id"`
	Name                 string `json:"name"`
	Description          string `json:"description,omitempty"`
	Price                int64  `json:"price"`
	RequiresPrescription bool   `json:"requires_prescription,omitempty"`
}

// Provider is a selectable professional with rates.
type Provider struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Specialty  string  `json:"specialty,omitempty"`
	Photo      string  `json:"photo"`
	Rating     float64 `json:"rating"`
	Experience int     `json:"experience_years"`
	Fee        int64   `json:"fee,omitempty"`
	VideoFee   int64   `json:"video_fee,omitempty"`
	HourlyRate int64   `json:"hourly_rate,omitempty"`
	DailyRate  int64   `json:"daily_rate,omitempty"`
	Clinic     string  `json:"clinic,omitempty"`
}

// Package is an elderly care plan.
type Package struct {
	ID         string   `json:"id"`
	Name       string   `json:"name"`
	DailyRate  int64    `json:"daily_rate"`
	HourlyRate int64    `json:"hourly_rate"`
	Includes   []string `json:"includes"`
}

// Catalog is everything a vertical's step components render choices from.
type Catalog struct {
	Items     []Item     `json:"items,omitempty"`
	Providers []Provider `json:"providers,omitempty"`
	Packages  []Package  `json:"packages,omitempty"`
	Options   []Option   `json:"options,omitempty"`
	Tiers     []Option   `json:"tiers,omitempty"`
	Slots     []string   `json:"slots,omitempty"`
}

// Option is a named choice with an optional price (service types,
// ambulance types, specialties).
type Option struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Price int64  `json:"price,omitempty"`
}

var timeSlots = []string{
	"08:00 AM", "09:00 AM", "10:00 AM", "11:00 AM", "12:00 PM",
	"02:00 PM", "03:00 PM", "04:00 PM", "05:00 PM", "06:00 PM",
}

func itemsByID(items []Item) map[string]Item {
	m := make(map[string]Item, len(items))
	for _, it := range items {
		m[it.ID] = it
	}
	return m
}

func providersByID(ps []Provider) map[string]Provider {
	m := make(map[string]Provider, len(ps))
	for _, p := range ps {
		m[p.ID] = p
	}
	return m
}

func optionsByID(opts []Option) map[string]Option {
	m := make(map[string]Option, len(opts))
	for _, o := range opts {
		m[o.ID] = o
	}
	return m
}
