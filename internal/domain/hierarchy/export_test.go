package hierarchy

import (
	"bufio"
	"bytes"
	"encoding/json"
	"testing"

	"github.com/parquet-go/parquet-go"
	"github.com/rs/zerolog"
)

func builtDiamond(t *testing.T) []FlatTreeNode {
	t.Helper()
	result := NewEngine(DefaultRootConcept, zerolog.Nop()).Build(diamond(), []ClinicalEvent{event("4", "p1")})
	return result.Nodes
}

func TestWriteParquet_RoundTrip(t *testing.T) {
	nodes := builtDiamond(t)

	var buf bytes.Buffer
	if err := WriteParquet(&buf, nodes); err != nil {
		t.Fatalf("WriteParquet: %v", err)
	}

	rows, err := parquet.Read[NodeParquet](bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("read parquet: %v", err)
	}
	if len(rows) != len(nodes) {
		t.Fatalf("expected %d rows, got %d", len(nodes), len(rows))
	}
	if rows[0].ID != "1" || rows[0].Parent != "" {
		t.Errorf("expected root row first with an empty parent, got %+v", rows[0])
	}
	last := rows[len(rows)-1]
	if last.ID != "4_2" || last.Code != "4" || last.Parent != "3" || last.PatientCount != 1 || last.EventCount != 1 {
		t.Errorf("unexpected last row: %+v", last)
	}
}

func TestWriteNDJSON(t *testing.T) {
	nodes := builtDiamond(t)

	var buf bytes.Buffer
	if err := WriteNDJSON(&buf, nodes); err != nil {
		t.Fatalf("WriteNDJSON: %v", err)
	}

	var got []FlatTreeNode
	scanner := bufio.NewScanner(&buf)
	for scanner.Scan() {
		var n FlatTreeNode
		if err := json.Unmarshal(scanner.Bytes(), &n); err != nil {
			t.Fatalf("line %d: %v", len(got)+1, err)
		}
		got = append(got, n)
	}
	if ids := instanceIDs(got); !equalStrings(ids, []string{"1", "2", "4", "3", "4_2"}) {
		t.Errorf("unexpected ndjson nodes: %v", ids)
	}
	if got[2].Parent() != "2" {
		t.Errorf("expected 4 under 2, got %q", got[2].Parent())
	}
}

func TestWriteJSON_EmptyIsArray(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteJSON(&buf, nil); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	if got := bytes.TrimSpace(buf.Bytes()); string(got) != "[]" {
		t.Errorf("expected [], got %s", got)
	}
}

func TestWriteNodes_UnsupportedFormat(t *testing.T) {
	if err := WriteNodes(&bytes.Buffer{}, "xml", nil); err == nil {
		t.Error("expected an error for an unsupported format")
	}
}
