package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/shecares/shecares-backend/internal/model"
	"github.com/shecares/shecares-backend/internal/queue"
	"github.com/shecares/shecares-backend/internal/repository"
	queue_publisher "github.com/shecares/shecares-backend/internal/service"
)

// IncidentHandler serves the public incident form and the operator-facing
// listing.  Submission requires no authentication.
type IncidentHandler struct {
	Incidents *repository.IncidentRepo
}

// NewIncidentHandler constructs an IncidentHandler.
func NewIncidentHandler(incidents *repository.IncidentRepo) *IncidentHandler {
	if incidents == nil {
		panic("nil repository passed to NewIncidentHandler")
	}
	return &IncidentHandler{Incidents: incidents}
}

type submitIncidentReq struct {
	IncidentType  string `json:"incidentType"`
	IncidentDate  string `json:"incidentDate"` // "YYYY-MM-DD"
	IncidentTime  string `json:"incidentTime"` // "HH:MM"
	Location      string `json:"location"`
	Description   string `json:"description"`
	ReporterName  string `json:"reporterName"`
	ReporterPhone string `json:"reporterPhone"`
}

// Submit handles POST /api/submit-form.
func (h *IncidentHandler) Submit(c echo.Context) error {
	var req submitIncidentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.IncidentType = strings.TrimSpace(req.IncidentType)
	req.Description = strings.TrimSpace(req.Description)
	if req.IncidentType == "" || req.Description == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "incidentType and description are required"})
	}
	if req.IncidentDate != "" {
		if _, err := time.Parse("2006-01-02", req.IncidentDate); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid incidentDate"})
		}
	}
	if req.IncidentTime != "" {
		if _, err := time.Parse("15:04", req.IncidentTime); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid incidentTime"})
		}
	}

	in := &model.Incident{
		IncidentType:  req.IncidentType,
		IncidentDate:  req.IncidentDate,
		IncidentTime:  req.IncidentTime,
		Location:      strings.TrimSpace(req.Location),
		Description:   req.Description,
		ReporterName:  strings.TrimSpace(req.ReporterName),
		ReporterPhone: strings.TrimSpace(req.ReporterPhone),
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()
	if err := h.Incidents.Create(ctx, in); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}

	ev := queue.IncidentReportedEvent{
		IncidentID:    in.ID,
		IncidentType:  in.IncidentType,
		IncidentDate:  in.IncidentDate,
		IncidentTime:  in.IncidentTime,
		Location:      in.Location,
		ReporterName:  in.ReporterName,
		ReporterPhone: in.ReporterPhone,
		ReportedAt:    in.CreatedAt.UTC().Format(time.RFC3339),
	}
	go func() { _ = queue_publisher.PublishIncidentReported(context.Background(), ev) }()

	return c.JSON(http.StatusCreated, in)
}

// List handles GET /api/incidents with an optional ?limit= parameter.
func (h *IncidentHandler) List(c echo.Context) error {
	limit := 50
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 || n > 500 {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid limit"})
		}
		limit = n
	}
	ctx, cancel := context.WithTimeout(c.Request().Context(), dbTimeout)
	defer cancel()

	incidents, err := h.Incidents.ListRecent(ctx, limit)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "database error"})
	}
	return c.JSON(http.StatusOK, incidents)
}
