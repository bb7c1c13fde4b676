package hierarchy

import "context"

// EventRepository provides the clinical resources whose codes are counted.
type EventRepository interface {
	ListConditions(ctx context.Context) ([]Resource, error)
	ListProcedures(ctx context.Context) ([]Resource, error)
	ListMedicationRequests(ctx context.Context) ([]Resource, error)
}

// HierarchySource resolves the partial hierarchy (the codes and all of their
// ancestors) for a set of concept codes.
type HierarchySource interface {
	PartialHierarchy(ctx context.Context, codes []string) ([]ConceptRecord, error)
}

// HierarchyCache stores concept records fetched from a HierarchySource.
type HierarchyCache interface {
	GetByCodes(ctx context.Context, codes []string) ([]ConceptRecord, error)
	Upsert(ctx context.Context, records []ConceptRecord) error
}
