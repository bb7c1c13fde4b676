package fhir

import (
	"encoding/json"
	"fmt"
	"io"
)

// Bundle represents a FHIR Bundle resource. Entries keep their resource
// as raw JSON so callers decode only the types they need.
type Bundle struct {
	ResourceType string        `json:"resourceType"`
	ID           string        `json:"id,omitempty"`
	Type         string        `json:"type"`
	Total        *int          `json:"total,omitempty"`
	Entry        []BundleEntry `json:"entry,omitempty"`
}

type BundleEntry struct {
	FullURL  string          `json:"fullUrl,omitempty"`
	Resource json.RawMessage `json:"resource,omitempty"`
}

// ResourceHeader is the part of any resource needed to route it.
type ResourceHeader struct {
	ResourceType string `json:"resourceType"`
	ID           string `json:"id,omitempty"`
}

// DecodeBundle reads a single Bundle from r.
func DecodeBundle(r io.Reader) (*Bundle, error) {
	var b Bundle
	if err := json.NewDecoder(r).Decode(&b); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if b.ResourceType != "Bundle" {
		return nil, fmt.Errorf("expected resourceType Bundle, got %q", b.ResourceType)
	}
	return &b, nil
}

// NewCollectionBundle wraps already-encoded resources in a collection Bundle.
func NewCollectionBundle(resources []json.RawMessage) *Bundle {
	total := len(resources)
	b := &Bundle{
		ResourceType: "Bundle",
		Type:         "collection",
		Total:        &total,
		Entry:        make([]BundleEntry, 0, len(resources)),
	}
	for _, r := range resources {
		b.Entry = append(b.Entry, BundleEntry{Resource: r})
	}
	return b
}
