package server

import (
	"net/http"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	orgdomain "github.com/praxishq/praxis/internal/org/domain"
)

func (s *Server) GetSettings(c *gin.Context) {
	settings, err := s.orgSvc.SettingsFor(c.Request.Context(), orgID(c))
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}

type updateSettingsRequest struct {
	DefaultIncomeAccountID *int64  `json:"default_income_account_id"`
	CashAccountID          *int64  `json:"cash_account_id"`
	InvoicePrefix          *string `json:"invoice_prefix"`
	InvoiceNumberWidth     *int    `json:"invoice_number_width"`
	InvoiceZeroPad         *bool   `json:"invoice_zero_pad"`
	InvoiceStartNumber     *int64  `json:"invoice_start_number"`
	InvoiceSuffix          *string `json:"invoice_suffix"`
}

func (s *Server) UpdateSettings(c *gin.Context) {
	var req updateSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	update := orgdomain.UpdateSettingsRequest{
		OrgID:              orgID(c),
		InvoicePrefix:      req.InvoicePrefix,
		InvoiceNumberWidth: req.InvoiceNumberWidth,
		InvoiceZeroPad:     req.InvoiceZeroPad,
		InvoiceStartNumber: req.InvoiceStartNumber,
		InvoiceSuffix:      req.InvoiceSuffix,
	}
	if req.DefaultIncomeAccountID != nil {
		id := snowflake.ID(*req.DefaultIncomeAccountID)
		update.DefaultIncomeAccountID = &id
	}
	if req.CashAccountID != nil {
		id := snowflake.ID(*req.CashAccountID)
		update.CashAccountID = &id
	}

	settings, err := s.orgSvc.Update(c.Request.Context(), update)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": settings})
}
