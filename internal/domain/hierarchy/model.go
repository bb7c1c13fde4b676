package hierarchy

// DefaultRootConcept is the SNOMED CT top-level concept ("SNOMED CT Concept").
const DefaultRootConcept = "138875005"

// SystemSNOMED is the SNOMED CT code system URI.
const SystemSNOMED = "http://snomed.info/sct"

// ConceptRecord is one node of a partial concept hierarchy as returned by a
// hierarchy lookup. A record may declare several parents.
type ConceptRecord struct {
	Code    string   `db:"code" json:"code"`
	Term    string   `db:"term" json:"term"`
	Parents []string `db:"parents" json:"parents"`
}

// Event kinds.
const (
	KindCondition  = "Condition"
	KindProcedure  = "Procedure"
	KindMedication = "MedicationRequest"
)

// ClinicalEvent is a single coded clinical fact owned by a patient.
type ClinicalEvent struct {
	Code      string `json:"code"`
	PatientID string `json:"patientId"`
	Display   string `json:"display,omitempty"`
	Kind      string `json:"kind,omitempty"`
}

// FlatTreeNode is one placement of a concept in the flattened tree. Value
// mirrors PatientCount for chart components that size segments by "value".
type FlatTreeNode struct {
	InstanceID       string  `json:"id"`
	Code             string  `json:"code"`
	Label            string  `json:"label"`
	ParentInstanceID *string `json:"parent"`
	PatientCount     int     `json:"patientCount"`
	EventCount       int     `json:"eventCount"`
	Value            int     `json:"value"`
}

// IsRoot reports whether the node has no parent instance.
func (n FlatTreeNode) IsRoot() bool {
	return n.ParentInstanceID == nil
}

// Parent returns the parent instance id, or "" for roots.
func (n FlatTreeNode) Parent() string {
	if n.ParentInstanceID == nil {
		return ""
	}
	return *n.ParentInstanceID
}

// Counts holds the per-base-code aggregates.
type Counts struct {
	Patients map[string]int `json:"patients"`
	Events   map[string]int `json:"events"`
}

// Cycle is a parent edge that was skipped during aggregation because it
// closed a loop on the active path.
type Cycle struct {
	From string `json:"from"`
	To   string `json:"to"`
}

// Result is the output of one engine run.
type Result struct {
	Nodes    []FlatTreeNode `json:"nodes"`
	Counts   Counts         `json:"counts"`
	Cycles   []Cycle        `json:"cycles,omitempty"`
	Fallback bool           `json:"fallback"`
}

func strPtr(s string) *string {
	return &s
}
