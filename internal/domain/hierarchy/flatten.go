package hierarchy

import "sort"

type stackItem struct {
	code           string
	parentInstance string
	hasParent      bool
}

// flattener turns the concept DAG into a tree by placing a concept once per
// parent instance it is reached from.
type flattener struct {
	byCode   map[string]ConceptRecord
	index    ChildIndex
	alloc    *InstanceAllocator
	seen     map[string]bool
	codeOf   map[string]string
	parentOf map[string]string
	nodes    []FlatTreeNode
	skipped  []Cycle
}

// Flatten walks records from roots depth-first with an explicit stack and
// returns one node per (code, parent instance) pairing. Children are visited
// in label order. Records that are not reachable from any root are placed
// afterwards as extra root subtrees, in record order. Counts are left at 0.
func Flatten(records []ConceptRecord, index ChildIndex, roots []string) []FlatTreeNode {
	nodes, _ := flatten(records, index, roots)
	return nodes
}

func flatten(records []ConceptRecord, index ChildIndex, roots []string) ([]FlatTreeNode, []Cycle) {
	f := &flattener{
		byCode:   IndexByCode(records),
		index:    index,
		alloc:    NewInstanceAllocator(),
		seen:     make(map[string]bool),
		codeOf:   make(map[string]string),
		parentOf: make(map[string]string),
	}

	f.walk(roots)

	for _, rec := range records {
		if f.alloc.Placed(rec.Code) == 0 {
			f.walk([]string{rec.Code})
		}
	}
	return f.nodes, f.skipped
}

func (f *flattener) label(code string) string {
	if rec, ok := f.byCode[code]; ok && rec.Term != "" {
		return rec.Term
	}
	return code
}

// sortedChildren orders children by label, then by code for equal labels.
func (f *flattener) sortedChildren(code string) []string {
	children := f.index.Children(code)
	sort.SliceStable(children, func(i, j int) bool {
		li, lj := f.label(children[i]), f.label(children[j])
		if li != lj {
			return li < lj
		}
		return children[i] < children[j]
	})
	return children
}

// onPath reports whether code is the code of instance or of one of its
// ancestors.
func (f *flattener) onPath(code, instance string) bool {
	for id, ok := instance, true; ok; id, ok = f.parentOf[id] {
		if f.codeOf[id] == code {
			return true
		}
	}
	return false
}

func (f *flattener) walk(seeds []string) {
	stack := make([]stackItem, 0, len(seeds))
	for i := len(seeds) - 1; i >= 0; i-- {
		stack = append(stack, stackItem{code: seeds[i]})
	}

	for len(stack) > 0 {
		item := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		inst := f.alloc.Next(item.code)
		if f.seen[inst.ID] {
			continue
		}
		f.seen[inst.ID] = true
		f.codeOf[inst.ID] = item.code

		node := FlatTreeNode{
			InstanceID: inst.ID,
			Code:       item.code,
			Label:      f.label(item.code),
		}
		if item.hasParent {
			node.ParentInstanceID = strPtr(item.parentInstance)
			f.parentOf[inst.ID] = item.parentInstance
		}
		f.nodes = append(f.nodes, node)

		if _, ok := f.byCode[item.code]; !ok {
			continue
		}
		children := f.sortedChildren(item.code)
		for i := len(children) - 1; i >= 0; i-- {
			child := children[i]
			if f.onPath(child, inst.ID) {
				f.skipped = append(f.skipped, Cycle{From: item.code, To: child})
				continue
			}
			stack = append(stack, stackItem{code: child, parentInstance: inst.ID, hasParent: true})
		}
	}
}
