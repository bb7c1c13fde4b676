package fhir

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
)

// NDJSONWriter writes values in NDJSON (Newline Delimited JSON) format, the
// layout used by FHIR Bulk Data exports.
type NDJSONWriter struct {
	w *bufio.Writer
}

// NewNDJSONWriter creates a new NDJSONWriter that writes to w.
func NewNDJSONWriter(w io.Writer) *NDJSONWriter {
	return &NDJSONWriter{
		w: bufio.NewWriter(w),
	}
}

// WriteResource serialises v as a single JSON line.
func (n *NDJSONWriter) WriteResource(v interface{}) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := n.w.Write(data); err != nil {
		return err
	}
	return n.w.WriteByte('\n')
}

// Flush flushes any buffered data to the underlying writer.
func (n *NDJSONWriter) Flush() error {
	return n.w.Flush()
}

// maxNDJSONLine bounds a single resource line.
const maxNDJSONLine = 16 << 20

// ReadNDJSON calls fn with every non-blank line of r. Line numbers passed to
// fn start at 1.
func ReadNDJSON(r io.Reader, fn func(line int, raw json.RawMessage) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), maxNDJSONLine)
	n := 0
	for sc.Scan() {
		n++
		raw := bytes.TrimSpace(sc.Bytes())
		if len(raw) == 0 {
			continue
		}
		buf := make(json.RawMessage, len(raw))
		copy(buf, raw)
		if err := fn(n, buf); err != nil {
			return fmt.Errorf("ndjson line %d: %w", n, err)
		}
	}
	return sc.Err()
}
