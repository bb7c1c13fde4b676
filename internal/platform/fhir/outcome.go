package fhir

const (
	IssueSeverityError   = "error"
	IssueSeverityWarning = "warning"

	IssueTypeInvalid    = "invalid"
	IssueTypeProcessing = "processing"
	IssueTypeNotFound   = "not-found"
	IssueTypeTooCostly  = "too-costly"
	IssueTypeTransient  = "transient"
	IssueTypeTimeout    = "timeout"
)

// OperationOutcome represents a FHIR OperationOutcome for errors.
type OperationOutcome struct {
	ResourceType string                  `json:"resourceType"`
	Issue        []OperationOutcomeIssue `json:"issue"`
}

type OperationOutcomeIssue struct {
	Severity    string   `json:"severity"`
	Code        string   `json:"code"`
	Diagnostics string   `json:"diagnostics,omitempty"`
	Expression  []string `json:"expression,omitempty"`
}

func NewOperationOutcome(severity, code, diagnostics string) *OperationOutcome {
	return &OperationOutcome{
		ResourceType: "OperationOutcome",
		Issue: []OperationOutcomeIssue{
			{
				Severity:    severity,
				Code:        code,
				Diagnostics: diagnostics,
			},
		},
	}
}

func ErrorOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeProcessing, diagnostics)
}

// InvalidOutcome reports a malformed request body or parameter.
func InvalidOutcome(diagnostics string, expression ...string) *OperationOutcome {
	oo := NewOperationOutcome(IssueSeverityError, IssueTypeInvalid, diagnostics)
	if len(expression) > 0 {
		oo.Issue[0].Expression = expression
	}
	return oo
}

// UnavailableOutcome reports a dependency such as the database that is not
// reachable or not configured.
func UnavailableOutcome(diagnostics string) *OperationOutcome {
	return NewOperationOutcome(IssueSeverityError, IssueTypeTransient, diagnostics)
}
