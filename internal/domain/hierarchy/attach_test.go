package hierarchy

import "testing"

func TestAttach_CopiesCountsPerBaseCode(t *testing.T) {
	nodes := flattenAll(diamond(), "")
	counts := Counts{
		Patients: map[string]int{"1": 3, "2": 1, "3": 2, "4": 1},
		Events:   map[string]int{"1": 7, "4": 2},
	}

	out := Attach(nodes, counts)
	if len(out) != len(nodes) {
		t.Fatalf("expected %d nodes, got %d", len(nodes), len(out))
	}
	for _, n := range out {
		if n.PatientCount != counts.Patients[n.Code] {
			t.Errorf("%s: expected patientCount %d, got %d", n.InstanceID, counts.Patients[n.Code], n.PatientCount)
		}
		if n.Value != n.PatientCount {
			t.Errorf("%s: expected value to mirror patientCount", n.InstanceID)
		}
	}
	if out[2].EventCount != 2 || out[4].EventCount != 2 {
		t.Errorf("expected both instances of 4 to carry 2 events, got %d and %d", out[2].EventCount, out[4].EventCount)
	}
	if out[1].EventCount != 0 {
		t.Errorf("expected missing event count to be 0, got %d", out[1].EventCount)
	}
}

func TestAttach_DoesNotMutateInput(t *testing.T) {
	nodes := flattenAll(diamond(), "")
	counts := Counts{Patients: map[string]int{"4": 5}, Events: map[string]int{}}

	out := Attach(nodes, counts)
	for _, n := range nodes {
		if n.PatientCount != 0 || n.Value != 0 {
			t.Fatalf("input node %s was modified", n.InstanceID)
		}
	}

	*out[2].ParentInstanceID = "changed"
	if nodes[2].Parent() != "2" {
		t.Errorf("expected input parent pointer to be independent, got %q", nodes[2].Parent())
	}
}

func TestAttach_Idempotent(t *testing.T) {
	nodes := flattenAll(diamond(), "")
	counts := Counts{Patients: map[string]int{"1": 2, "4": 1}, Events: map[string]int{"1": 2, "4": 1}}

	once := Attach(nodes, counts)
	twice := Attach(once, counts)
	for i := range once {
		if once[i].PatientCount != twice[i].PatientCount || once[i].EventCount != twice[i].EventCount || once[i].Parent() != twice[i].Parent() {
			t.Errorf("node %s differs after a second Attach", once[i].InstanceID)
		}
	}
}
