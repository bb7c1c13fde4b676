package hierarchy

import "strconv"

// Instance identifies one placement of a code in the flattened tree.
type Instance struct {
	ID      string
	Ordinal int
}

// InstanceAllocator hands out per-code instance ids for a single flattening
// run. The first placement of a code uses the bare code; later placements
// are suffixed with their ordinal ("code_2", "code_3", ...). An id already
// issued for another code is skipped, so ids stay unique even when a real
// code happens to look like "code_N".
type InstanceAllocator struct {
	counters map[string]int
	placed   map[string]int
	issued   map[string]bool
}

// NewInstanceAllocator creates an empty allocator.
func NewInstanceAllocator() *InstanceAllocator {
	return &InstanceAllocator{
		counters: make(map[string]int),
		placed:   make(map[string]int),
		issued:   make(map[string]bool),
	}
}

// Next allocates the next instance for code.
func (a *InstanceAllocator) Next(code string) Instance {
	a.placed[code]++
	for {
		a.counters[code]++
		n := a.counters[code]
		id := code
		if n > 1 {
			id = code + "_" + strconv.Itoa(n)
		}
		if a.issued[id] {
			continue
		}
		a.issued[id] = true
		return Instance{ID: id, Ordinal: n}
	}
}

// Placed reports how many instances of code have been allocated.
func (a *InstanceAllocator) Placed(code string) int {
	return a.placed[code]
}
