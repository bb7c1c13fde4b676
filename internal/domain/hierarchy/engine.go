package hierarchy

import (
	"strconv"
	"time"

	"github.com/rs/zerolog"
)

// Engine turns a partial concept hierarchy and a list of clinical events into
// a flat, count-annotated tree. An Engine holds configuration only; every call
// builds and discards its own working state, so one Engine may be shared.
type Engine struct {
	rootConcept string
	logger      zerolog.Logger
}

// NewEngine creates an engine anchored at rootConcept. An empty rootConcept
// disables the top-concept rule and roots are inferred from the records.
func NewEngine(rootConcept string, logger zerolog.Logger) *Engine {
	return &Engine{rootConcept: rootConcept, logger: logger}
}

// RootConcept returns the configured top-level concept.
func (e *Engine) RootConcept() string {
	return e.rootConcept
}

// Build flattens records into a tree and attaches aggregate counts from
// events. It never fails: malformed input degrades to a partial tree.
func (e *Engine) Build(records []ConceptRecord, events []ClinicalEvent) *Result {
	start := time.Now()

	index := BuildChildIndex(records)
	byCode := IndexByCode(records)

	dangling := DanglingParents(records, byCode)
	for code, parents := range dangling {
		danglingParentsTotal.Add(float64(len(parents)))
		e.logger.Warn().
			Str("code", code).
			Strs("parents", parents).
			Msg("parent concept not found in hierarchy")
	}

	roots := SelectRoots(records, byCode, e.rootConcept)
	nodes, flatCycles := flatten(records, index, roots)

	agg := NewAggregator(events, index)
	counts := agg.Counts()
	cycles := mergeCycles(agg.Cycles(), flatCycles)
	for _, c := range cycles {
		e.logger.Warn().
			Str("from", c.From).
			Str("to", c.To).
			Msg("cyclic parent reference skipped")
	}
	cyclesTotal.Add(float64(len(cycles)))

	if nodes == nil {
		nodes = []FlatTreeNode{}
	}
	result := &Result{
		Nodes:  Attach(nodes, counts),
		Counts: counts,
		Cycles: cycles,
	}

	buildsTotal.WithLabelValues("tree").Inc()
	buildDuration.Observe(time.Since(start).Seconds())
	buildNodes.Observe(float64(len(result.Nodes)))

	e.logger.Debug().
		Int("records", len(records)).
		Int("events", len(events)).
		Int("roots", len(roots)).
		Int("nodes", len(result.Nodes)).
		Dur("elapsed", time.Since(start)).
		Msg("hierarchy built")

	return result
}

// Fallback builds a single-level hierarchy directly from events, used when no
// hierarchy is available. There is one root node per distinct code, in
// first-seen order, with id "{code}_{n}".
func (e *Engine) Fallback(events []ClinicalEvent) *Result {
	type entry struct {
		term     string
		events   int
		patients map[string]struct{}
	}

	var order []string
	byCode := make(map[string]*entry)
	for _, ev := range events {
		if ev.Code == "" {
			continue
		}
		en, ok := byCode[ev.Code]
		if !ok {
			en = &entry{term: ev.Display, patients: make(map[string]struct{})}
			if en.term == "" {
				en.term = ev.Code
			}
			byCode[ev.Code] = en
			order = append(order, ev.Code)
		}
		en.events++
		if ev.PatientID != "" {
			en.patients[ev.PatientID] = struct{}{}
		}
	}

	result := &Result{
		Nodes: make([]FlatTreeNode, 0, len(order)),
		Counts: Counts{
			Patients: make(map[string]int, len(order)),
			Events:   make(map[string]int, len(order)),
		},
		Fallback: true,
	}
	for i, code := range order {
		en := byCode[code]
		result.Nodes = append(result.Nodes, FlatTreeNode{
			InstanceID:   code + "_" + strconv.Itoa(i+1),
			Code:         code,
			Label:        en.term,
			PatientCount: len(en.patients),
			EventCount:   en.events,
			Value:        len(en.patients),
		})
		result.Counts.Patients[code] = len(en.patients)
		result.Counts.Events[code] = en.events
	}

	buildsTotal.WithLabelValues("fallback").Inc()
	buildNodes.Observe(float64(len(result.Nodes)))
	return result
}

func mergeCycles(lists ...[]Cycle) []Cycle {
	seen := make(map[Cycle]bool)
	var out []Cycle
	for _, list := range lists {
		for _, c := range list {
			if seen[c] {
				continue
			}
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}
