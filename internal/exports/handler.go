// Package exports serves lead spreadsheets for offline follow-up.
package exports

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"permitleads_backend/internal/leads/domain"
	"permitleads_backend/internal/leads/management"
	"permitleads_backend/internal/leads/repository"
	"permitleads_backend/internal/leads/transport"
	"permitleads_backend/platform/httpkit"
	"permitleads_backend/platform/logger"
	"permitleads_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const (
	dateLayout        = "2006-01-02"
	defaultWindowDays = 7
)

// LeadLister is the lead read access an export needs.
type LeadLister interface {
	ListAll(ctx context.Context, params repository.ListParams) ([]domain.Lead, error)
}

// ExportRequest narrows the exported leads. Without dateFrom and dateTo the
// export covers permits issued in the last seven days.
type ExportRequest struct {
	DateFrom string `form:"dateFrom" validate:"omitempty,datetime=2006-01-02"`
	DateTo   string `form:"dateTo" validate:"omitempty,datetime=2006-01-02"`
	MinScore *int   `form:"minScore" validate:"omitempty,min=0,max=10"`
	County   string `form:"county" validate:"max=100"`
	Town     string `form:"town" validate:"max=100"`
	Source   string `form:"source" validate:"max=200"`
}

// Handler handles CSV exports.
type Handler struct {
	leads LeadLister
	val   *validator.Validator
	log   *logger.Logger
	now   func() time.Time
}

// NewHandler creates a new export handler.
func NewHandler(leads LeadLister, val *validator.Validator, log *logger.Logger) *Handler {
	return &Handler{leads: leads, val: val, log: log, now: time.Now}
}

func (h *Handler) ExportCSV(c *gin.Context) {
	var req ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid request", nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, "validation failed", validator.Describe(err))
		return
	}

	params, err := h.listParams(req)
	if httpkit.HandleError(c, err) {
		return
	}

	leads, err := h.leads.ListAll(c.Request.Context(), params)
	if httpkit.HandleError(c, err) {
		return
	}

	filename := fmt.Sprintf("leads-export-%s.csv", h.now().UTC().Format(dateLayout))
	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	writer := csv.NewWriter(c.Writer)
	if err := writeLeads(writer, leads); err != nil {
		// headers are already sent
		h.log.Error("csv export aborted", "error", err, "rows", len(leads))
	}
}

func (h *Handler) listParams(req ExportRequest) (repository.ListParams, error) {
	params, err := management.ListParamsFrom(transport.ListLeadsRequest{
		MinScore: req.MinScore,
		DateFrom: req.DateFrom,
		DateTo:   req.DateTo,
		County:   req.County,
		Town:     req.Town,
		Source:   req.Source,
	})
	if err != nil {
		return repository.ListParams{}, err
	}

	if params.DateFrom == nil && params.DateTo == nil {
		today := h.now().UTC().Truncate(24 * time.Hour)
		from := today.AddDate(0, 0, -defaultWindowDays)
		params.DateFrom = &from
	}
	return params, nil
}

var csvHeaders = []string{
	"street",
	"city",
	"state",
	"zip",
	"county",
	"town",
	"score",
	"status",
	"issueDate",
	"permitType",
	"contractorName",
	"lotAcres",
	"estValue",
	"source",
	"lastSeen",
}

func writeLeads(writer *csv.Writer, leads []domain.Lead) error {
	if err := writer.Write(csvHeaders); err != nil {
		return err
	}
	for _, lead := range leads {
		if err := writer.Write(leadRow(lead)); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func leadRow(lead domain.Lead) []string {
	return []string{
		lead.Street,
		lead.City,
		lead.State,
		lead.Zip,
		orEmpty(lead.County),
		orEmpty(lead.Town),
		strconv.Itoa(lead.Score),
		orEmpty(lead.Status),
		formatDate(lead.IssueDate),
		orEmpty(lead.PermitType),
		orEmpty(lead.ContractorName),
		formatFloat(lead.LotAcres),
		formatFloat(lead.EstValue),
		lead.Source,
		lead.LastSeen.UTC().Format(time.RFC3339),
	}
}

func orEmpty(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}

func formatDate(value *time.Time) string {
	if value == nil {
		return ""
	}
	return value.Format(dateLayout)
}

func formatFloat(value *float64) string {
	if value == nil {
		return ""
	}
	return strconv.FormatFloat(*value, 'f', -1, 64)
}
