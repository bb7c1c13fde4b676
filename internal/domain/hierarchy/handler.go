package hierarchy

import (
	"bytes"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ehr/conceptchart/internal/platform/fhir"
	"github.com/ehr/conceptchart/pkg/pagination"
)

// Handler provides REST endpoints for concept hierarchies.
type Handler struct {
	svc *Service
}

// NewHandler creates a new hierarchy handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// RegisterRoutes registers hierarchy routes on the API group.
func (h *Handler) RegisterRoutes(api *echo.Group) {
	g := api.Group("/hierarchy")
	g.GET("", h.GetHierarchy)
	g.GET("/counts", h.GetCounts)
	g.GET("/export", h.Export)
	g.POST("/$flatten", h.Flatten)
}

func wantsPage(c echo.Context) bool {
	for _, p := range []string{"_count", "limit", "_offset", "offset"} {
		if c.QueryParam(p) != "" {
			return true
		}
	}
	return false
}

// GetHierarchy handles GET /api/v1/hierarchy. Without paging parameters the
// whole result is returned; with _count/_offset a page of nodes is returned.
func (h *Handler) GetHierarchy(c echo.Context) error {
	result, err := h.svc.PatientHierarchy(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	if !wantsPage(c) {
		return c.JSON(http.StatusOK, result)
	}

	p := pagination.FromContext(c)
	total := len(result.Nodes)
	start, end := p.Window(total)
	return c.JSON(http.StatusOK, pagination.NewResponse(result.Nodes[start:end], total, p, c.Request().URL.Path))
}

// GetCounts handles GET /api/v1/hierarchy/counts
func (h *Handler) GetCounts(c echo.Context) error {
	result, err := h.svc.PatientHierarchy(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, result.Counts)
}

// Export handles GET /api/v1/hierarchy/export?_format=json|ndjson|parquet
func (h *Handler) Export(c echo.Context) error {
	format := c.QueryParam("_format")
	if format == "" {
		format = FormatJSON
	}
	switch format {
	case FormatJSON, FormatNDJSON, FormatParquet:
	default:
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome("unsupported _format: "+format, "_format"))
	}

	result, err := h.svc.PatientHierarchy(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}

	var buf bytes.Buffer
	if err := WriteNodes(&buf, format, result.Nodes); err != nil {
		return c.JSON(http.StatusInternalServerError, fhir.ErrorOutcome(err.Error()))
	}
	return c.Blob(http.StatusOK, ContentType(format), buf.Bytes())
}

// Flatten handles POST /api/v1/hierarchy/$flatten
func (h *Handler) Flatten(c echo.Context) error {
	var req ComputeRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, fhir.InvalidOutcome(err.Error()))
	}
	return c.JSON(http.StatusOK, h.svc.Compute(&req))
}
