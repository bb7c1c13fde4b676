package hierarchy

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ehr/conceptchart/internal/platform/fhir"
)

// Resource is the subset of a FHIR Condition, Procedure or MedicationRequest
// that carries the coded concept and the owning patient.
type Resource struct {
	ResourceType              string                `json:"resourceType"`
	ID                        string                `json:"id,omitempty"`
	Code                      *fhir.CodeableConcept `json:"code,omitempty"`
	MedicationCodeableConcept *fhir.CodeableConcept `json:"medicationCodeableConcept,omitempty"`
	Subject                   *fhir.Reference       `json:"subject,omitempty"`
}

// ExtractCode returns the first coding of code, or of medicationCodeableConcept
// when the resource has no code. It returns "" when neither is coded.
func ExtractCode(r Resource) string {
	if code := r.Code.FirstCode(); code != "" {
		return code
	}
	return r.MedicationCodeableConcept.FirstCode()
}

// ExtractDisplay returns the human-readable term of the resource's concept.
func ExtractDisplay(r Resource) string {
	if r.Code != nil && r.Code.Text != "" {
		return r.Code.Text
	}
	if r.MedicationCodeableConcept != nil && r.MedicationCodeableConcept.Text != "" {
		return r.MedicationCodeableConcept.Text
	}
	for _, cc := range []*fhir.CodeableConcept{r.Code, r.MedicationCodeableConcept} {
		c := cc.First()
		if c == nil {
			continue
		}
		if c.Display != "" {
			return c.Display
		}
		return c.Code
	}
	return "Unknown"
}

// PatientIDFromReference returns the id part of a "Patient/{id}" reference.
func PatientIDFromReference(ref string) string {
	return fhir.ReferenceID(ref)
}

// ToEvent converts a resource into a clinical event. ok is false when the
// resource carries no concept code.
func ToEvent(r Resource, kind string) (ClinicalEvent, bool) {
	code := ExtractCode(r)
	if code == "" {
		return ClinicalEvent{}, false
	}
	ev := ClinicalEvent{
		Code:    code,
		Display: ExtractDisplay(r),
		Kind:    kind,
	}
	if r.Subject != nil {
		ev.PatientID = PatientIDFromReference(r.Subject.Reference)
	}
	return ev, true
}

// ExtractEvents flattens the three resource kinds into events, skipping
// resources without a code.
func ExtractEvents(conditions, procedures, medications []Resource) []ClinicalEvent {
	events := make([]ClinicalEvent, 0, len(conditions)+len(procedures)+len(medications))
	add := func(rs []Resource, kind string) {
		for _, r := range rs {
			if ev, ok := ToEvent(r, kind); ok {
				events = append(events, ev)
			}
		}
	}
	add(conditions, KindCondition)
	add(procedures, KindProcedure)
	add(medications, KindMedication)
	return events
}

// ExtractCodes returns the distinct event codes in first-seen order.
func ExtractCodes(events []ClinicalEvent) []string {
	seen := make(map[string]bool, len(events))
	var codes []string
	for _, ev := range events {
		if ev.Code == "" || seen[ev.Code] {
			continue
		}
		seen[ev.Code] = true
		codes = append(codes, ev.Code)
	}
	return codes
}

// ClinicalResources groups the event-bearing resources by kind.
type ClinicalResources struct {
	Conditions  []Resource `json:"conditions"`
	Procedures  []Resource `json:"procedures"`
	Medications []Resource `json:"medications"`
}

// Events extracts the clinical events of all three kinds.
func (c ClinicalResources) Events() []ClinicalEvent {
	return ExtractEvents(c.Conditions, c.Procedures, c.Medications)
}

// Merge appends other's resources to c.
func (c *ClinicalResources) Merge(other ClinicalResources) {
	c.Conditions = append(c.Conditions, other.Conditions...)
	c.Procedures = append(c.Procedures, other.Procedures...)
	c.Medications = append(c.Medications, other.Medications...)
}

// Add decodes raw and routes it by resource type. Other resource types are
// ignored.
func (c *ClinicalResources) Add(raw json.RawMessage) error {
	var r Resource
	if err := json.Unmarshal(raw, &r); err != nil {
		return err
	}
	switch r.ResourceType {
	case KindCondition:
		c.Conditions = append(c.Conditions, r)
	case KindProcedure:
		c.Procedures = append(c.Procedures, r)
	case KindMedication:
		c.Medications = append(c.Medications, r)
	}
	return nil
}

// Len returns the number of resources across all kinds.
func (c ClinicalResources) Len() int {
	return len(c.Conditions) + len(c.Procedures) + len(c.Medications)
}

// SplitBundle routes the Condition, Procedure and MedicationRequest entries of
// a FHIR Bundle by kind.
func SplitBundle(b *fhir.Bundle) (ClinicalResources, error) {
	var out ClinicalResources
	if b == nil {
		return out, nil
	}
	for i, entry := range b.Entry {
		if len(entry.Resource) == 0 {
			continue
		}
		if err := out.Add(entry.Resource); err != nil {
			return out, fmt.Errorf("bundle entry %d: %w", i, err)
		}
	}
	return out, nil
}

// ReadNDJSON routes every resource of an NDJSON stream by kind.
func ReadNDJSON(r io.Reader) (ClinicalResources, error) {
	var out ClinicalResources
	err := fhir.ReadNDJSON(r, func(_ int, raw json.RawMessage) error {
		return out.Add(raw)
	})
	return out, err
}
