package hierarchy

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/parquet-go/parquet-go"

	"github.com/ehr/conceptchart/internal/platform/fhir"
)

// Export formats.
const (
	FormatJSON    = "json"
	FormatNDJSON  = "ndjson"
	FormatParquet = "parquet"
)

// NodeParquet is the Parquet row layout of a FlatTreeNode. Roots have an
// empty parent.
type NodeParquet struct {
	ID           string `parquet:"id"`
	Code         string `parquet:"code"`
	Label        string `parquet:"label"`
	Parent       string `parquet:"parent"`
	PatientCount int64  `parquet:"patient_count"`
	EventCount   int64  `parquet:"event_count"`
}

// WriteNodes writes nodes to w in the given format.
func WriteNodes(w io.Writer, format string, nodes []FlatTreeNode) error {
	switch format {
	case FormatJSON, "":
		return WriteJSON(w, nodes)
	case FormatNDJSON:
		return WriteNDJSON(w, nodes)
	case FormatParquet:
		return WriteParquet(w, nodes)
	default:
		return fmt.Errorf("unsupported export format: %s", format)
	}
}

// WriteJSON writes nodes as a single JSON array.
func WriteJSON(w io.Writer, nodes []FlatTreeNode) error {
	if nodes == nil {
		nodes = []FlatTreeNode{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(nodes)
}

// WriteNDJSON writes one JSON node per line.
func WriteNDJSON(w io.Writer, nodes []FlatTreeNode) error {
	nw := fhir.NewNDJSONWriter(w)
	for _, n := range nodes {
		if err := nw.WriteResource(n); err != nil {
			return fmt.Errorf("write ndjson node %s: %w", n.InstanceID, err)
		}
	}
	return nw.Flush()
}

// WriteParquet writes nodes as a Snappy-compressed Parquet file.
func WriteParquet(w io.Writer, nodes []FlatTreeNode) error {
	pw := parquet.NewGenericWriter[NodeParquet](w,
		parquet.Compression(&parquet.Snappy),
	)
	rows := make([]NodeParquet, 0, len(nodes))
	for _, n := range nodes {
		rows = append(rows, NodeParquet{
			ID:           n.InstanceID,
			Code:         n.Code,
			Label:        n.Label,
			Parent:       n.Parent(),
			PatientCount: int64(n.PatientCount),
			EventCount:   int64(n.EventCount),
		})
	}
	if _, err := pw.Write(rows); err != nil {
		pw.Close()
		return fmt.Errorf("failed to write parquet rows: %w", err)
	}
	if err := pw.Close(); err != nil {
		return fmt.Errorf("failed to close parquet writer: %w", err)
	}
	return nil
}

// ContentType returns the MIME type used when serving format over HTTP.
func ContentType(format string) string {
	switch format {
	case FormatNDJSON:
		return "application/fhir+ndjson"
	case FormatParquet:
		return "application/vnd.apache.parquet"
	default:
		return "application/json"
	}
}
