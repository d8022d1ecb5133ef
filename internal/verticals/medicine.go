package verticals

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wolfman30/carehub/internal/bookings"
	"github.com/wolfman30/carehub/internal/flow"
)

const (
	medCatalog      flow.Step = "catalog"
	medCart         flow.Step = "cart"
	medPrescription flow.Step = "prescription"
	medAddress      flow.Step = "address"
	medConfirmation flow.Step = "confirmation"

	freeDeliveryThreshold int64 = 500
	deliveryFee           int64 = 40
	expressFee            int64 = 50
)

var medicines = []Item{
	{ID: "paracetamol-650", Name: "Paracetamol 650mg (15 tablets)", Price: 30},
	{ID: "cetirizine-10", Name: "Cetirizine 10mg (10 tablets)", Price: 25},
	{ID: "vitamin-c", Name: "Vitamin C 500mg (30 tablets)", Price: 120},
	{ID: "ors", Name: "ORS Sachets (pack of 10)", Price: 90},
	{ID: "amoxicillin-500", Name: "Amoxicillin 500mg (10 capsules)", Price: 110, RequiresPrescription: true},
	{ID: "metformin-500", Name: "Metformin 500mg (20 tablets)", Price: 45, RequiresPrescription: true},
	{ID: "atorvastatin-10", Name: "Atorvastatin 10mg (15 tablets)", Price: 160, RequiresPrescription: true},
	{ID: "bp-monitor", Name: "Digital BP Monitor", Price: 1850},
}

var medicineIndex = itemsByID(medicines)

var medicineGraph = func() *flow.Graph {
	g, err := flow.NewGraph(
		[]flow.Step{medCatalog, medCart, medPrescription, medAddress, medConfirmation},
		map[flow.Step][]flow.Step{
			medCatalog:      {medCart},
			medCart:         {medPrescription, medAddress},
			medPrescription: {medAddress},
			medAddress:      {medConfirmation},
		},
	)
	if err != nil {
		panic(err)
	}
	return g
}()

func medicineDefinition() *flow.Definition {
	return &flow.Definition{
		Vertical:    Medicine,
		Label:       "Medicine Delivery",
		BookingType: bookings.TypeMedicine,
		CodePrefix:  "MED",
		Graph:       medicineGraph,
		Prerequisites: map[flow.Step][]string{
			medCart:         {"cart"},
			medPrescription: {"cart"},
			medAddress:      {"cart"},
			medConfirmation: {"address", "phone", "deliveryType"},
		},
		Guards: map[flow.Step]func(flow.State) []string{
			medCart:    validCart,
			medAddress: prescriptionNeeded,
		},
		Required: []string{"cart", "address", "phone", "deliveryType"},
		Conditional: func(s flow.State) []string {
			missing := append(validCart(s), prescriptionNeeded(s)...)
			if t := s.String("deliveryType"); t != "standard" && t != "express" {
				missing = append(missing, "deliveryType")
			}
			return missing
		},
		Initial: func() flow.State {
			return flow.State{"deliveryType": "standard"}
		},
		Price:     medicineQuote,
		Summarize: medicineSummary,
	}
}

func validCart(s flow.State) []string {
	cart := s.Quantities("cart")
	if len(cart) == 0 {
		return []string{"cart"}
	}
	for id, qty := range cart {
		if _, ok := medicineIndex[id]; !ok || qty > maxQuantity {
			return []string{"cart"}
		}
	}
	return nil
}

// prescriptionNeeded requires an uploaded prescription when the cart holds
// a prescription-only medicine.
func prescriptionNeeded(s flow.State) []string {
	for id := range s.Quantities("cart") {
		if medicineIndex[id].RequiresPrescription && !s.Has("prescriptionUrl") {
			return []string{"prescriptionUrl"}
		}
	}
	return nil
}

func sortedCartIDs(cart map[string]int) []string {
	ids := make([]string, 0, len(cart))
	for id := range cart {
		if _, ok := medicineIndex[id]; ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

func medicineQuote(s flow.State) flow.Quote {
	cart := s.Quantities("cart")
	var q flow.Quote
	var subtotal int64
	for _, id := range sortedCartIDs(cart) {
		m := medicineIndex[id]
		qty := clamp(int64(cart[id]), 1, maxQuantity)
		amount := m.Price * qty
		subtotal += amount
		q.Items = append(q.Items, flow.LineItem{Label: fmt.Sprintf("%s x%d", m.Name, qty), Amount: amount})
	}
	if len(q.Items) == 0 {
		return q
	}
	if subtotal < freeDeliveryThreshold {
		q.AddOns = append(q.AddOns, flow.LineItem{Label: "Delivery fee", Amount: deliveryFee})
	}
	if s.String("deliveryType") == "express" {
		q.AddOns = append(q.AddOns, flow.LineItem{Label: "Express delivery", Amount: expressFee})
	}
	return q
}

func medicineSummary(s flow.State, now time.Time) flow.Summary {
	cart := s.Quantities("cart")
	ids := sortedCartIDs(cart)
	lines := make([]string, 0, len(ids))
	units := 0
	for _, id := range ids {
		lines = append(lines, fmt.Sprintf("%s x%d", medicineIndex[id].Name, cart[id]))
		units += cart[id]
	}

	slot := "Standard delivery (same day)"
	if s.String("deliveryType") == "express" {
		slot = "Express delivery (within 2 hours)"
	}
	return flow.Summary{
		Title:        fmt.Sprintf("Medicine Delivery (%d items)", units),
		ProviderName: "CareHub Pharmacy",
		Date:         now.Format(time.DateOnly),
		Time:         slot,
		Location:     s.String("address"),
		Notes:        strings.Join(lines, "; "),
		ContactEmail: s.String("email"),
	}
}

func medicineCatalogView() Catalog {
	return Catalog{Items: medicines}
}
