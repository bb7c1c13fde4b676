package hierarchy

import (
	"bytes"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestEngine_Build(t *testing.T) {
	engine := NewEngine(DefaultRootConcept, zerolog.Nop())
	result := engine.Build(diamond(), []ClinicalEvent{event("4", "p1")})

	if result.Fallback {
		t.Error("did not expect a fallback result")
	}
	if got := instanceIDs(result.Nodes); !equalStrings(got, []string{"1", "2", "4", "3", "4_2"}) {
		t.Fatalf("unexpected nodes: %v", got)
	}
	for _, n := range result.Nodes {
		if n.PatientCount != 1 {
			t.Errorf("%s: expected patientCount 1, got %d", n.InstanceID, n.PatientCount)
		}
	}
	if result.Counts.Patients["1"] != 1 {
		t.Errorf("expected root count 1, got %d", result.Counts.Patients["1"])
	}
	if len(result.Cycles) != 0 {
		t.Errorf("expected no cycles, got %v", result.Cycles)
	}
}

func TestEngine_Build_EmptyRecords(t *testing.T) {
	engine := NewEngine(DefaultRootConcept, zerolog.Nop())
	result := engine.Build([]ConceptRecord{}, []ClinicalEvent{event("4", "p1")})

	if result.Nodes == nil || len(result.Nodes) != 0 {
		t.Errorf("expected an empty, non-nil node list, got %#v", result.Nodes)
	}
	if result.Fallback {
		t.Error("an empty hierarchy is not a fallback")
	}
}

func TestEngine_Build_ReportsCyclesAndDanglingParents(t *testing.T) {
	var buf bytes.Buffer
	engine := NewEngine("", zerolog.New(&buf))

	records := []ConceptRecord{
		rec("x", "X", "y"),
		rec("y", "Y", "x", "ghost"),
	}
	result := engine.Build(records, []ClinicalEvent{event("x", "p1")})

	if len(result.Nodes) != 2 {
		t.Errorf("expected both concepts placed, got %v", instanceIDs(result.Nodes))
	}
	if result.Counts.Patients["x"] < 1 {
		t.Errorf("expected x to count p1, got %d", result.Counts.Patients["x"])
	}
	if len(result.Cycles) == 0 {
		t.Error("expected cycles to be reported")
	}

	logs := buf.String()
	if !strings.Contains(logs, "cyclic parent reference skipped") {
		t.Errorf("expected a cycle warning, got %s", logs)
	}
	if !strings.Contains(logs, "parent concept not found in hierarchy") || !strings.Contains(logs, "ghost") {
		t.Errorf("expected a dangling parent warning, got %s", logs)
	}
}

func TestEngine_SharedAcrossRuns(t *testing.T) {
	engine := NewEngine("", zerolog.Nop())
	first := engine.Build(diamond(), []ClinicalEvent{event("4", "p1")})
	second := engine.Build(diamond(), []ClinicalEvent{event("4", "p1")})

	if !equalStrings(instanceIDs(first.Nodes), instanceIDs(second.Nodes)) {
		t.Errorf("expected no state to leak between runs: %v vs %v", instanceIDs(first.Nodes), instanceIDs(second.Nodes))
	}
}

func TestEngine_Fallback(t *testing.T) {
	engine := NewEngine(DefaultRootConcept, zerolog.Nop())
	events := []ClinicalEvent{
		{Code: "44054006", PatientID: "p1", Display: "Diabetes mellitus type 2"},
		{Code: "44054006", PatientID: "p2"},
		{Code: "44054006", PatientID: "p1"},
		{Code: "38341003", PatientID: "p1"},
		{PatientID: "p3"},
	}
	result := engine.Fallback(events)

	if !result.Fallback {
		t.Error("expected the fallback flag")
	}
	if len(result.Nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %v", instanceIDs(result.Nodes))
	}

	first := result.Nodes[0]
	if first.InstanceID != "44054006_1" || first.Label != "Diabetes mellitus type 2" {
		t.Errorf("unexpected first node: %+v", first)
	}
	if first.PatientCount != 2 || first.EventCount != 3 || first.Value != 2 {
		t.Errorf("expected 2 patients and 3 events, got %+v", first)
	}
	if !first.IsRoot() {
		t.Error("expected fallback nodes to be roots")
	}

	second := result.Nodes[1]
	if second.InstanceID != "38341003_2" || second.Label != "38341003" {
		t.Errorf("unexpected second node: %+v", second)
	}
	if result.Counts.Patients["38341003"] != 1 {
		t.Errorf("expected 1 patient for 38341003, got %d", result.Counts.Patients["38341003"])
	}
}

func TestEngine_Fallback_NoEvents(t *testing.T) {
	result := NewEngine("", zerolog.Nop()).Fallback(nil)
	if result.Nodes == nil || len(result.Nodes) != 0 {
		t.Errorf("expected an empty, non-nil node list, got %#v", result.Nodes)
	}
}
