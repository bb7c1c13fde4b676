package hierarchy

import "testing"

func rec(code, term string, parents ...string) ConceptRecord {
	return ConceptRecord{Code: code, Term: term, Parents: parents}
}

func event(code, patient string) ClinicalEvent {
	return ClinicalEvent{Code: code, PatientID: patient}
}

// diamond is the four-concept hierarchy 1 -> {2, 3} -> 4.
func diamond() []ConceptRecord {
	return []ConceptRecord{
		rec("1", "Root"),
		rec("2", "Alpha", "1"),
		rec("3", "Beta", "1"),
		rec("4", "Leaf", "2", "3"),
	}
}

func instanceIDs(nodes []FlatTreeNode) []string {
	out := make([]string, len(nodes))
	for i, n := range nodes {
		out[i] = n.InstanceID
	}
	return out
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// assertTree checks that nodes form a forest: ids are unique and every parent
// id refers to a node emitted earlier.
func assertTree(t *testing.T, nodes []FlatTreeNode) {
	t.Helper()
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n.InstanceID] {
			t.Fatalf("duplicate instance id %q", n.InstanceID)
		}
		if n.ParentInstanceID != nil && !seen[*n.ParentInstanceID] {
			t.Fatalf("node %q references parent %q before it was emitted", n.InstanceID, *n.ParentInstanceID)
		}
		seen[n.InstanceID] = true
	}
}
