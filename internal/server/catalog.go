package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/praxishq/praxis/internal/catalog/domain"
)

type createTemplateRequest struct {
	Title            string            `json:"title"`
	Priority         string            `json:"priority"`
	EstimatedHours   int               `json:"estimated_hours"`
	Cadence          string            `json:"cadence"`
	OffsetKind       string            `json:"offset_kind"`
	OffsetValue      int               `json:"offset_value"`
	MonthsAfter      int               `json:"months_after"`
	ExactDueDate     string            `json:"exact_due_date"`
	AnchorMonth      int               `json:"anchor_month"`
	AnchorDay        int               `json:"anchor_day"`
	Weekday          *int              `json:"weekday"`
	DueDateOverrides map[string]string `json:"due_date_overrides"`
	SortOrder        int               `json:"sort_order"`
}

type createServiceRequest struct {
	Name            string                  `json:"name"`
	DefaultPrice    *int64                  `json:"default_price"`
	TaxRatePercent  string                  `json:"tax_rate_percent"`
	IncomeAccountID int64                   `json:"income_account_id"`
	PaymentTermDays int                     `json:"payment_term_days"`
	Templates       []createTemplateRequest `json:"templates"`
}

func (s *Server) CreateService(c *gin.Context) {
	var req createServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	templates := make([]catalogdomain.CreateTemplateRequest, 0, len(req.Templates))
	for _, t := range req.Templates {
		templates = append(templates, catalogdomain.CreateTemplateRequest{
			Title:            strings.TrimSpace(t.Title),
			Priority:         t.Priority,
			EstimatedHours:   t.EstimatedHours,
			Cadence:          t.Cadence,
			OffsetKind:       t.OffsetKind,
			OffsetValue:      t.OffsetValue,
			MonthsAfter:      t.MonthsAfter,
			ExactDueDate:     t.ExactDueDate,
			AnchorMonth:      t.AnchorMonth,
			AnchorDay:        t.AnchorDay,
			Weekday:          t.Weekday,
			DueDateOverrides: t.DueDateOverrides,
			SortOrder:        t.SortOrder,
		})
	}

	svc, err := s.catalogSvc.CreateService(c.Request.Context(), catalogdomain.CreateServiceRequest{
		OrgID:           orgID(c),
		Name:            strings.TrimSpace(req.Name),
		DefaultPrice:    req.DefaultPrice,
		TaxRatePercent:  req.TaxRatePercent,
		IncomeAccountID: snowflakeID(req.IncomeAccountID),
		PaymentTermDays: req.PaymentTermDays,
		Templates:       templates,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": svc})
}

func (s *Server) ListServices(c *gin.Context) {
	resp, err := s.catalogSvc.ListServices(c.Request.Context(), catalogdomain.ListServicesRequest{OrgID: orgID(c)})
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListServiceTemplates(c *gin.Context) {
	serviceID, ok := pathID(c, "id")
	if !ok {
		return
	}
	templates, err := s.catalogSvc.ListTemplates(c.Request.Context(), orgID(c), serviceID)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": gin.H{"templates": templates}})
}
