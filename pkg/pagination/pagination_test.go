package pagination

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func paramsFor(target string) Params {
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, target, nil)
	return FromContext(e.NewContext(req, httptest.NewRecorder()))
}

func TestFromContext_Defaults(t *testing.T) {
	p := paramsFor("/")
	if p.Limit != DefaultLimit {
		t.Errorf("expected default limit %d, got %d", DefaultLimit, p.Limit)
	}
	if p.Offset != 0 {
		t.Errorf("expected default offset 0, got %d", p.Offset)
	}
}

func TestFromContext_CustomValues(t *testing.T) {
	p := paramsFor("/?limit=50&offset=10")
	if p.Limit != 50 || p.Offset != 10 {
		t.Errorf("expected 50/10, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_FHIRParamsTakePrecedence(t *testing.T) {
	p := paramsFor("/?_count=25&_offset=5&limit=50&offset=10")
	if p.Limit != 25 || p.Offset != 5 {
		t.Errorf("expected 25/5, got %d/%d", p.Limit, p.Offset)
	}
}

func TestFromContext_Bounds(t *testing.T) {
	if p := paramsFor("/?_count=100000"); p.Limit != MaxLimit {
		t.Errorf("expected limit capped at %d, got %d", MaxLimit, p.Limit)
	}
	if p := paramsFor("/?_offset=-5"); p.Offset != 0 {
		t.Errorf("expected negative offset clamped to 0, got %d", p.Offset)
	}
}

func TestParams_Window(t *testing.T) {
	tests := []struct {
		p          Params
		total      int
		start, end int
	}{
		{Params{Limit: 2, Offset: 0}, 5, 0, 2},
		{Params{Limit: 2, Offset: 4}, 5, 4, 5},
		{Params{Limit: 2, Offset: 9}, 5, 5, 5},
		{Params{Limit: 10, Offset: 0}, 0, 0, 0},
	}
	for _, tt := range tests {
		start, end := tt.p.Window(tt.total)
		if start != tt.start || end != tt.end {
			t.Errorf("%+v.Window(%d) = %d,%d; want %d,%d", tt.p, tt.total, start, end, tt.start, tt.end)
		}
	}
}

func TestParams_Links(t *testing.T) {
	links := Params{Limit: 10, Offset: 10}.Links("/api/v1/hierarchy", 25)
	if len(links) != 3 {
		t.Fatalf("expected self, next and previous, got %+v", links)
	}
	want := map[string]string{
		"self":     "/api/v1/hierarchy?_offset=10&_count=10",
		"next":     "/api/v1/hierarchy?_offset=20&_count=10",
		"previous": "/api/v1/hierarchy?_offset=0&_count=10",
	}
	for _, l := range links {
		if want[l.Relation] != l.URL {
			t.Errorf("%s: expected %s, got %s", l.Relation, want[l.Relation], l.URL)
		}
	}

	first := Params{Limit: 10, Offset: 0}.Links("/x", 5)
	if len(first) != 1 || first[0].Relation != "self" {
		t.Errorf("expected only a self link, got %+v", first)
	}
}

func TestNewResponse(t *testing.T) {
	p := Params{Limit: 2, Offset: 2}
	resp := NewResponse([]string{"c", "d"}, 5, p, "/api/v1/hierarchy")

	if resp.Total != 5 || resp.Limit != 2 || resp.Offset != 2 {
		t.Errorf("unexpected response: %+v", resp)
	}
	if !resp.HasMore {
		t.Error("expected has_more")
	}
	if len(resp.Links) != 3 {
		t.Errorf("expected 3 links, got %d", len(resp.Links))
	}
}

func TestParams_PreviousOffset(t *testing.T) {
	if got := (Params{Limit: 10, Offset: 5}).PreviousOffset(); got != 0 {
		t.Errorf("expected 0, got %d", got)
	}
	if got := (Params{Limit: 10, Offset: 25}).PreviousOffset(); got != 15 {
		t.Errorf("expected 15, got %d", got)
	}
}
