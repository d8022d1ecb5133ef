package verticals

import (
	"time"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
)

const (
	doctorSpecialty    flow.Step = "specialty"
	doctorDoctor       flow.Step = "doctor"
	doctorSchedule     flow.Step = "schedule"
	doctorDetails      flow.Step = "details"
	doctorConfirmation flow.Step = "confirmation"
)

var specialties = []Option{
	{ID: "general", Name: "General Physician"},
	{ID: "cardiology", Name: "Cardiology"},
	{ID: "dermatology", Name: "Dermatology"},
	{ID: "pediatrics", Name: "Pediatrics"},
	{ID: "orthopedics", Name: "Orthopedics"},
	{ID: "gynecology", Name: "Gynecology"},
}

var doctors = []Provider{
	{ID: "doc-gen-1", Name: "Dr. Meera Nair", Specialty: "general", Photo: "/img/doctors/gen-1.jpg", Rating: 4.8, Experience: 12, Fee: 500, VideoFee: 400, Clinic: "CareHub Clinic, Indiranagar"},
	{ID: "doc-gen-2", Name: "Dr. Rohit Bansal", Specialty: "general", Photo: "/img/doctors/gen-2.jpg", Rating: 4.6, Experience: 7, Fee: 400, VideoFee: 300, Clinic: "CareHub Clinic, Koramangala"},
	{ID: "doc-car-1", Name: "Dr. Arvind Rao", Specialty: "cardiology", Photo: "/img/doctors/car-1.jpg", Rating: 4.9, Experience: 20, Fee: 1200, VideoFee: 1000, Clinic: "Heart Care Centre, MG Road"},
	{ID: "doc-der-1", Name: "Dr. Nisha Kapoor", Specialty: "dermatology", Photo: "/img/doctors/der-1.jpg", Rating: 4.7, Experience: 9, Fee: 800, VideoFee: 650, Clinic: "Skin & Hair Clinic, HSR Layout"},
	{ID: "doc-ped-1", Name: "Dr. Sameer Joshi", Specialty: "pediatrics", Photo: "/img/doctors/ped-1.jpg", Rating: 4.9, Experience: 14, Fee: 700, VideoFee: 550, Clinic: "Little Steps Children's Clinic"},
	{ID: "doc-ort-1", Name: "Dr. Kiran Shetty", Specialty: "orthopedics", Photo: "/img/doctors/ort-1.jpg", Rating: 4.7, Experience: 16, Fee: 900, VideoFee: 700, Clinic: "Bone & Joint Centre, Jayanagar"},
	{ID: "doc-gyn-1", Name: "Dr. Farah Siddiqui", Specialty: "gynecology", Photo: "/img/doctors/gyn-1.jpg", Rating: 4.8, Experience: 11, Fee: 850, VideoFee: 700, Clinic: "Women's Health Clinic, Whitefield"},
}

var (
	doctorIndex    = providersByID(doctors)
	specialtyIndex = optionsByID(specialties)
)

func doctorDefinition() *flow.Definition {
	return &flow.Definition{
		Vertical:    Doctor,
		Label:       "Doctor Consultation",
		BookingType: bookings.TypeDoctor,
		CodePrefix:  "DOC",
		Graph:       flow.MustLinear(doctorSpecialty, doctorDoctor, doctorSchedule, doctorDetails, doctorConfirmation),
		Prerequisites: map[flow.Step][]string{
			doctorDoctor:       {"specialty"},
			doctorSchedule:     {"doctorId"},
			doctorDetails:      {"date", "time", "consultationType"},
			doctorConfirmation: {"patientName", "phone"},
		},
		Guards: map[flow.Step]func(flow.State) []string{
			doctorDoctor:   validSpecialty,
			doctorSchedule: validDoctor,
			doctorDetails:  validDate("date"),
		},
		Required: []string{"specialty", "doctorId", "date", "time", "consultationType", "patientName", "phone"},
		Conditional: func(s flow.State) []string {
			missing := append(validSpecialty(s), validDoctor(s)...)
			missing = append(missing, validDate("date")(s)...)
			if t := s.String("consultationType"); t != "in_person" && t != "video" {
				missing = append(missing, "consultationType")
			}
			return missing
		},
		Initial: func() flow.State {
			return flow.State{"consultationType": "in_person"}
		},
		Price:     doctorQuote,
		Summarize: doctorSummary,
	}
}

func validSpecialty(s flow.State) []string {
	if _, ok := specialtyIndex[s.String("specialty")]; !ok {
		return []string{"specialty"}
	}
	return nil
}

// validDoctor requires a known doctor practising the selected specialty.
func validDoctor(s flow.State) []string {
	d, ok := doctorIndex[s.String("doctorId")]
	if !ok || d.Specialty != s.String("specialty") {
		return []string{"doctorId"}
	}
	return nil
}

func doctorQuote(s flow.State) flow.Quote {
	d, ok := doctorIndex[s.String("doctorId")]
	if !ok {
		return flow.Quote{}
	}
	if s.String("consultationType") == "video" {
		return flow.Quote{Items: []flow.LineItem{{Label: "Video consultation fee", Amount: d.VideoFee}}}
	}
	return flow.Quote{Items: []flow.LineItem{{Label: "Consultation fee", Amount: d.Fee}}}
}

func doctorSummary(s flow.State, _ time.Time) flow.Summary {
	d := doctorIndex[s.String("doctorId")]
	title := specialtyIndex[s.String("specialty")].Name + " Consultation"
	location := d.Clinic
	if s.String("consultationType") == "video" {
		title = "Video " + title
		location = "Video consultation"
	}
	return flow.Summary{
		Title:        title,
		ProviderName: d.Name,
		Date:         s.String("date"),
		Time:         s.String("time"),
		Location:     location,
		Notes:        joinNotes(s.String("patientName"), s.String("symptoms")),
		ContactEmail: s.String("email"),
	}
}

func doctorCatalogView() Catalog {
	return Catalog{Options: specialties, Providers: doctors, Slots: timeSlots}
}
