// Package verticals defines the booking flows offered by the app: their
// steps, prerequisites, pricing and catalogs.
package verticals

import (
	"strings"
	"time"

	"github.com/wolfman30/carehub/internal/flow"
)

const (
	Doctor      = "doctor"
	Medicine    = "medicine"
	Lab         = "lab"
	Nurse       = "nurse"
	HomeVisit   = "home_visit"
	ElderlyCare = "elderly_care"
	Emergency   = "emergency"
)

// Default matching delays per vertical.
var defaultDelays = map[string]time.Duration{
	Lab:         2 * time.Second,
	HomeVisit:   2 * time.Second,
	ElderlyCare: 2 * time.Second,
	Emergency:   3 * time.Second,
}

// Options tunes the registry. A zero AssignmentDelay keeps each vertical's
// default delay.
type Options struct {
	AssignmentDelay time.Duration
}

// Info describes a vertical for listings.
type Info struct {
	Vertical   string      `json:"vertical"`
	Label      string      `json:"label"`
	CodePrefix string      `json:"code_prefix"`
	Steps      []flow.Step `json:"steps"`
}

// Registry holds the flow definitions and catalogs of every vertical.
type Registry struct {
	order    []string
	defs     map[string]*flow.Definition
	catalogs map[string]Catalog
}

func NewRegistry(opts Options) *Registry {
	delay := func(vertical string) time.Duration {
		if opts.AssignmentDelay > 0 {
			return opts.AssignmentDelay
		}
		return defaultDelays[vertical]
	}

	r := &Registry{
		defs:     make(map[string]*flow.Definition),
		catalogs: make(map[string]Catalog),
	}
	r.add(doctorDefinition(), doctorCatalogView())
	r.add(medicineDefinition(), medicineCatalogView())
	r.add(labDefinition(delay(Lab)), labCatalogView())
	r.add(nurseDefinition(), nurseCatalogView())
	r.add(homeVisitDefinition(delay(HomeVisit)), homeVisitCatalogView())
	r.add(elderlyCareDefinition(delay(ElderlyCare)), elderlyCareCatalogView())
	r.add(emergencyDefinition(delay(Emergency)), emergencyCatalogView())
	return r
}

func (r *Registry) add(def *flow.Definition, catalog Catalog) {
	r.order = append(r.order, def.Vertical)
	r.defs[def.Vertical] = def
	r.catalogs[def.Vertical] = catalog
}

// Definition returns the flow definition for a vertical.
func (r *Registry) Definition(vertical string) (*flow.Definition, bool) {
	def, ok := r.defs[vertical]
	return def, ok
}

// Catalog returns the choices a vertical's steps offer.
func (r *Registry) Catalog(vertical string) (Catalog, bool) {
	c, ok := r.catalogs[vertical]
	return c, ok
}

// List returns every vertical in display order.
func (r *Registry) List() []Info {
	out := make([]Info, 0, len(r.order))
	for _, v := range r.order {
		def := r.defs[v]
		out = append(out, Info{
			Vertical:   v,
			Label:      def.Label,
			CodePrefix: def.CodePrefix,
			Steps:      def.Graph.Steps(),
		})
	}
	return out
}

func joinNotes(parts ...string) string {
	kept := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, ". ")
}
