// Package fhir holds the small set of FHIR R4 datatypes this service reads
// and writes: coded concepts, references, bundles and OperationOutcome.
package fhir

import (
	"fmt"
	"strings"
)

type Coding struct {
	System  string `json:"system,omitempty"`
	Code    string `json:"code,omitempty"`
	Display string `json:"display,omitempty"`
}

type CodeableConcept struct {
	Coding []Coding `json:"coding,omitempty"`
	Text   string   `json:"text,omitempty"`
}

// First returns the first coding, or nil when the concept is uncoded.
func (cc *CodeableConcept) First() *Coding {
	if cc == nil || len(cc.Coding) == 0 {
		return nil
	}
	return &cc.Coding[0]
}

// FirstCode returns the code of the first coding, or "".
func (cc *CodeableConcept) FirstCode() string {
	if c := cc.First(); c != nil {
		return c.Code
	}
	return ""
}

type Reference struct {
	Reference string `json:"reference,omitempty"`
	Type      string `json:"type,omitempty"`
	Display   string `json:"display,omitempty"`
}

// FormatReference creates a FHIR reference string.
func FormatReference(resourceType, id string) string {
	return fmt.Sprintf("%s/%s", resourceType, id)
}

// ReferenceID returns the last path segment of a literal reference, so both
// "Patient/123" and "http://host/fhir/Patient/123" yield "123".
func ReferenceID(ref string) string {
	ref = strings.TrimRight(ref, "/")
	if ref == "" {
		return ""
	}
	if i := strings.LastIndex(ref, "/"); i >= 0 {
		return ref[i+1:]
	}
	return ref
}
