package flow

import (
	"fmt"
	"slices"
)

// Step identifies one screen of a booking flow.
type Step string

// Graph is a validated step sequence with an explicit transition table. The
// last step is terminal (confirmation) and has no outgoing edges.
type Graph struct {
	steps []Step
	index map[Step]int
	next  map[Step][]Step
}

// NewGraph validates the transition table against the ordered steps.
func NewGraph(steps []Step, transitions map[Step][]Step) (*Graph, error) {
	if len(steps) < 2 {
		return nil, fmt.Errorf("%w: need at least two steps", ErrInvalidGraph)
	}

	g := &Graph{
		steps: slices.Clone(steps),
		index: make(map[Step]int, len(steps)),
		next:  make(map[Step][]Step, len(steps)),
	}
	for i, s := range steps {
		if s == "" {
			return nil, fmt.Errorf("%w: empty step at %d", ErrInvalidGraph, i)
		}
		if _, dup := g.index[s]; dup {
			return nil, fmt.Errorf("%w: duplicate step %q", ErrInvalidGraph, s)
		}
		g.index[s] = i
	}

	for from, targets := range transitions {
		if _, ok := g.index[from]; !ok {
			return nil, fmt.Errorf("%w: unknown step %q", ErrInvalidGraph, from)
		}
		for _, to := range targets {
			if _, ok := g.index[to]; !ok {
				return nil, fmt.Errorf("%w: %q -> unknown step %q", ErrInvalidGraph, from, to)
			}
			if to == from {
				return nil, fmt.Errorf("%w: self transition on %q", ErrInvalidGraph, from)
			}
		}
		g.next[from] = slices.Clone(targets)
	}

	terminal := g.Terminal()
	if len(g.next[terminal]) > 0 {
		return nil, fmt.Errorf("%w: terminal step %q has outgoing transitions", ErrInvalidGraph, terminal)
	}
	for _, s := range steps[:len(steps)-1] {
		if len(g.next[s]) == 0 {
			return nil, fmt.Errorf("%w: step %q is a dead end", ErrInvalidGraph, s)
		}
	}

	reached := map[Step]bool{steps[0]: true}
	queue := []Step{steps[0]}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, to := range g.next[cur] {
			if !reached[to] {
				reached[to] = true
				queue = append(queue, to)
			}
		}
	}
	for _, s := range steps {
		if !reached[s] {
			return nil, fmt.Errorf("%w: step %q unreachable", ErrInvalidGraph, s)
		}
	}
	return g, nil
}

// Linear builds a graph where each step leads only to the following one.
func Linear(steps ...Step) (*Graph, error) {
	transitions := make(map[Step][]Step, len(steps))
	for i := 0; i+1 < len(steps); i++ {
		transitions[steps[i]] = []Step{steps[i+1]}
	}
	return NewGraph(steps, transitions)
}

// MustLinear is Linear for package-level definitions.
func MustLinear(steps ...Step) *Graph {
	g, err := Linear(steps...)
	if err != nil {
		panic(err)
	}
	return g
}

func (g *Graph) Steps() []Step   { return slices.Clone(g.steps) }
func (g *Graph) First() Step     { return g.steps[0] }
func (g *Graph) Terminal() Step  { return g.steps[len(g.steps)-1] }
func (g *Graph) Len() int        { return len(g.steps) }
func (g *Graph) At(i int) Step   { return g.steps[i] }
func (g *Graph) Has(s Step) bool { _, ok := g.index[s]; return ok }

// Index returns the position of s, or -1.
func (g *Graph) Index(s Step) int {
	if i, ok := g.index[s]; ok {
		return i
	}
	return -1
}

// Next lists the steps reachable in one transition from s.
func (g *Graph) Next(s Step) []Step { return slices.Clone(g.next[s]) }

// Allows reports whether from -> to is an edge.
func (g *Graph) Allows(from, to Step) bool {
	return slices.Contains(g.next[from], to)
}
