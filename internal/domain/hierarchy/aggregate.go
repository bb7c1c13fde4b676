package hierarchy

import "sort"

type patientSet map[string]struct{}

// Aggregator computes, per concept, the distinct patients and the event total
// for the concept and all of its descendants. Results are memoized for the
// lifetime of the Aggregator, which is meant to cover a single run.
type Aggregator struct {
	index         ChildIndex
	direct        map[string]patientSet
	directEvents  map[string]int
	memo          map[string]patientSet
	memoEvents    map[string]int
	visiting      map[string]bool
	cycles        []Cycle
	reportedCycle map[Cycle]bool
}

// NewAggregator attributes every event to its own code. Events without a code
// are ignored; events without a patient count as events only.
func NewAggregator(events []ClinicalEvent, index ChildIndex) *Aggregator {
	a := &Aggregator{
		index:         index,
		direct:        make(map[string]patientSet),
		directEvents:  make(map[string]int),
		memo:          make(map[string]patientSet),
		memoEvents:    make(map[string]int),
		visiting:      make(map[string]bool),
		reportedCycle: make(map[Cycle]bool),
	}
	for _, ev := range events {
		if ev.Code == "" {
			continue
		}
		a.directEvents[ev.Code]++
		if ev.PatientID == "" {
			continue
		}
		set, ok := a.direct[ev.Code]
		if !ok {
			set = make(patientSet)
			a.direct[ev.Code] = set
		}
		set[ev.PatientID] = struct{}{}
	}
	return a
}

// Patients returns the sorted ids of the distinct patients with an event on
// code or on any descendant of code.
func (a *Aggregator) Patients(code string) []string {
	set := a.aggregate("", code)
	out := make([]string, 0, len(set))
	for id := range set {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// PatientCount returns the number of distinct patients for code and its
// descendants.
func (a *Aggregator) PatientCount(code string) int {
	return len(a.aggregate("", code))
}

// EventCount returns the direct event count of code plus the event totals of
// its children. Events reachable through several paths are counted once per
// path.
func (a *Aggregator) EventCount(code string) int {
	a.aggregate("", code)
	return a.memoEvents[code]
}

// Cycles returns the parent edges that were cut while aggregating.
func (a *Aggregator) Cycles() []Cycle {
	return a.cycles
}

// Universe returns every code that may need a count: direct event codes and
// every code mentioned by the child index, sorted.
func (a *Aggregator) Universe() []string {
	seen := make(map[string]struct{})
	for code := range a.directEvents {
		seen[code] = struct{}{}
	}
	for _, code := range a.index.Codes() {
		seen[code] = struct{}{}
	}
	out := make([]string, 0, len(seen))
	for code := range seen {
		out = append(out, code)
	}
	sort.Strings(out)
	return out
}

// Counts computes patient and event counts for the whole universe.
func (a *Aggregator) Counts() Counts {
	universe := a.Universe()
	c := Counts{
		Patients: make(map[string]int, len(universe)),
		Events:   make(map[string]int, len(universe)),
	}
	for _, code := range universe {
		c.Patients[code] = a.PatientCount(code)
		c.Events[code] = a.memoEvents[code]
	}
	return c
}

// aggregate returns the patient set of code and its descendants. Re-entering a
// code that is already being expanded yields its direct set only, which cuts
// the cycle at the cost of under-counting through that edge.
func (a *Aggregator) aggregate(from, code string) patientSet {
	if set, ok := a.memo[code]; ok {
		return set
	}
	if a.visiting[code] {
		a.reportCycle(from, code)
		return a.direct[code]
	}

	a.visiting[code] = true
	result := make(patientSet, len(a.direct[code]))
	for id := range a.direct[code] {
		result[id] = struct{}{}
	}
	events := a.directEvents[code]
	for _, child := range a.index.Children(code) {
		if a.visiting[child] {
			a.reportCycle(code, child)
			for id := range a.direct[child] {
				result[id] = struct{}{}
			}
			events += a.directEvents[child]
			continue
		}
		for id := range a.aggregate(code, child) {
			result[id] = struct{}{}
		}
		events += a.memoEvents[child]
	}
	delete(a.visiting, code)

	a.memo[code] = result
	a.memoEvents[code] = events
	return result
}

func (a *Aggregator) reportCycle(from, to string) {
	c := Cycle{From: from, To: to}
	if a.reportedCycle[c] {
		return
	}
	a.reportedCycle[c] = true
	a.cycles = append(a.cycles, c)
}

// CountsByBaseCode extracts events from the three resource kinds and returns
// the aggregate counts for every concept in the universe.
func CountsByBaseCode(conditions, procedures, medications []Resource, index ChildIndex) Counts {
	return NewAggregator(ExtractEvents(conditions, procedures, medications), index).Counts()
}
