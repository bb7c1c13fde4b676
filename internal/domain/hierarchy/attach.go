package hierarchy

// Attach returns a copy of nodes with the aggregate counts of each node's base
// code. Every instance of a code carries the same counts. Codes missing from
// counts get 0. The input slice is not modified.
func Attach(nodes []FlatTreeNode, counts Counts) []FlatTreeNode {
	out := make([]FlatTreeNode, len(nodes))
	for i, n := range nodes {
		if n.ParentInstanceID != nil {
			n.ParentInstanceID = strPtr(*n.ParentInstanceID)
		}
		n.PatientCount = counts.Patients[n.Code]
		n.EventCount = counts.Events[n.Code]
		n.Value = n.PatientCount
		out[i] = n
	}
	return out
}
