// Package snowstorm is a client for the partial-hierarchy operation of a
// Snowstorm Lite terminology server. Given a set of SNOMED CT codes it
// returns those concepts together with all of their ancestors, each with
// its immediate parents.
package snowstorm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// SystemSNOMED is the code system sent with every request.
const SystemSNOMED = "http://snomed.info/sct"

// ErrDisabled is returned when the client has no base URL.
var ErrDisabled = errors.New("hierarchy server disabled")

// HierarchyNode is one concept of a partial hierarchy response.
type HierarchyNode struct {
	Code    string   `json:"code"`
	Term    string   `json:"term"`
	Parents []string `json:"parents"`
}

// PartialHierarchyRequest is the body of a partial-hierarchy call.
type PartialHierarchyRequest struct {
	System       string   `json:"system"`
	IncludeTerms bool     `json:"includeTerms"`
	Codes        []string `json:"codes"`
}

// StatusError is returned for non-2xx responses.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("partial-hierarchy: non-2xx response: %d", e.StatusCode)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.httpClient = c }
}

// WithTimeout sets the per-request timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(cl *Client) {
		if d > 0 {
			cl.httpClient.Timeout = d
		}
	}
}

// WithoutTerms requests codes and parents only.
func WithoutTerms() Option {
	return func(cl *Client) { cl.includeTerms = false }
}

// Client calls {baseURL}/fhir/partial-hierarchy.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	includeTerms bool
}

// NewClient creates a client for the server at baseURL. An empty baseURL
// yields a client whose calls return ErrDisabled.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		includeTerms: true,
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Enabled reports whether the client has a server to talk to.
func (c *Client) Enabled() bool {
	return c.baseURL != ""
}

// URL returns the partial-hierarchy endpoint.
func (c *Client) URL() string {
	return c.baseURL + "/fhir/partial-hierarchy"
}

// PartialHierarchy returns the concepts for codes and all their ancestors.
func (c *Client) PartialHierarchy(ctx context.Context, codes []string) ([]HierarchyNode, error) {
	if !c.Enabled() {
		return nil, ErrDisabled
	}

	payload, err := json.Marshal(PartialHierarchyRequest{
		System:       SystemSNOMED,
		IncludeTerms: c.includeTerms,
		Codes:        codes,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal partial-hierarchy request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.URL(), bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build partial-hierarchy request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("partial-hierarchy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		// Read at most 1KB of response body.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var nodes []HierarchyNode
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		return nil, fmt.Errorf("decode partial-hierarchy response: %w", err)
	}
	return nodes, nil
}
