package hierarchy

import (
	"testing"

	"github.com/ehr/conceptchart/internal/platform/fhir"
)

func TestAggregator_DiamondDoesNotDoubleCount(t *testing.T) {
	events := []ClinicalEvent{
		event("4", "p1"),
		event("2", "p1"),
		event("3", "p2"),
	}
	agg := NewAggregator(events, BuildChildIndex(diamond()))

	patients := map[string]int{"1": 2, "2": 1, "3": 2, "4": 1}
	for code, want := range patients {
		if got := agg.PatientCount(code); got != want {
			t.Errorf("PatientCount(%s) = %d, want %d", code, got, want)
		}
	}
	if got := agg.Patients("1"); !equalStrings(got, []string{"p1", "p2"}) {
		t.Errorf("Patients(1) = %v, want [p1 p2]", got)
	}

	// Event totals sum along every path without deduplication.
	evts := map[string]int{"1": 4, "2": 2, "3": 2, "4": 1}
	for code, want := range evts {
		if got := agg.EventCount(code); got != want {
			t.Errorf("EventCount(%s) = %d, want %d", code, got, want)
		}
	}
	if len(agg.Cycles()) != 0 {
		t.Errorf("expected no cycles, got %v", agg.Cycles())
	}
}

func TestAggregator_SamePatientManyEvents(t *testing.T) {
	events := []ClinicalEvent{event("4", "p1"), event("4", "p1"), event("4", "p1")}
	agg := NewAggregator(events, BuildChildIndex(diamond()))

	if got := agg.PatientCount("4"); got != 1 {
		t.Errorf("expected 1 patient, got %d", got)
	}
	if got := agg.EventCount("4"); got != 3 {
		t.Errorf("expected 3 events, got %d", got)
	}
}

func TestAggregator_EventsWithoutPatientOrCode(t *testing.T) {
	events := []ClinicalEvent{
		{Code: "4"},
		{PatientID: "p9"},
	}
	agg := NewAggregator(events, BuildChildIndex(diamond()))

	if got := agg.PatientCount("4"); got != 0 {
		t.Errorf("expected no patients for an anonymous event, got %d", got)
	}
	if got := agg.EventCount("4"); got != 1 {
		t.Errorf("expected the anonymous event to be counted, got %d", got)
	}
	if got := agg.EventCount(""); got != 0 {
		t.Errorf("expected uncoded events to be ignored, got %d", got)
	}
}

func TestAggregator_CycleTerminates(t *testing.T) {
	records := []ConceptRecord{rec("x", "", "y"), rec("y", "", "x")}
	agg := NewAggregator([]ClinicalEvent{event("x", "p1")}, BuildChildIndex(records))

	if got := agg.PatientCount("x"); got < 1 {
		t.Errorf("expected at least one patient for x, got %d", got)
	}
	if got := agg.PatientCount("y"); got != 1 {
		t.Errorf("expected one patient for y, got %d", got)
	}
	if len(agg.Cycles()) == 0 {
		t.Error("expected the cycle to be reported")
	}
}

func TestAggregator_Universe(t *testing.T) {
	records := []ConceptRecord{rec("2", "", "1")}
	agg := NewAggregator([]ClinicalEvent{event("9", "p1")}, BuildChildIndex(records))

	if got := agg.Universe(); !equalStrings(got, []string{"1", "2", "9"}) {
		t.Errorf("Universe() = %v, want [1 2 9]", got)
	}

	counts := agg.Counts()
	if len(counts.Patients) != 3 || len(counts.Events) != 3 {
		t.Fatalf("expected a count for every code, got %+v", counts)
	}
	if counts.Patients["1"] != 0 || counts.Patients["9"] != 1 {
		t.Errorf("unexpected counts: %+v", counts.Patients)
	}
}

func TestCountsByBaseCode(t *testing.T) {
	coded := func(code, patient string) Resource {
		return Resource{
			Code:    &fhir.CodeableConcept{Coding: []fhir.Coding{{Code: code}}},
			Subject: &fhir.Reference{Reference: "Patient/" + patient},
		}
	}
	med := Resource{
		MedicationCodeableConcept: &fhir.CodeableConcept{Coding: []fhir.Coding{{Code: "4"}}},
		Subject:                   &fhir.Reference{Reference: "Patient/p3"},
	}

	counts := CountsByBaseCode(
		[]Resource{coded("4", "p1")},
		[]Resource{coded("3", "p2")},
		[]Resource{med},
		BuildChildIndex(diamond()),
	)

	if counts.Patients["1"] != 3 {
		t.Errorf("expected 3 patients at the root, got %d", counts.Patients["1"])
	}
	if counts.Patients["4"] != 2 {
		t.Errorf("expected 2 patients for 4, got %d", counts.Patients["4"])
	}
	if counts.Events["3"] != 3 {
		t.Errorf("expected 3 events under 3, got %d", counts.Events["3"])
	}
}
