package hierarchy

import "sort"

// ChildIndex maps a concept code to the set of codes that declare it as a
// parent.
type ChildIndex map[string]map[string]struct{}

// BuildChildIndex inverts the parent pointers of records. Parents that have no
// record of their own are still indexed.
func BuildChildIndex(records []ConceptRecord) ChildIndex {
	idx := make(ChildIndex)
	for _, rec := range records {
		for _, p := range rec.Parents {
			set, ok := idx[p]
			if !ok {
				set = make(map[string]struct{})
				idx[p] = set
			}
			set[rec.Code] = struct{}{}
		}
	}
	return idx
}

// Children returns the child codes of code in ascending code order.
func (idx ChildIndex) Children(code string) []string {
	set := idx[code]
	if len(set) == 0 {
		return nil
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// HasChild reports whether child declares parent.
func (idx ChildIndex) HasChild(parent, child string) bool {
	_, ok := idx[parent][child]
	return ok
}

// Codes returns every code mentioned by the index, as a parent or a child,
// in ascending order.
func (idx ChildIndex) Codes() []string {
	seen := make(map[string]struct{}, len(idx))
	for p, set := range idx {
		seen[p] = struct{}{}
		for c := range set {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
