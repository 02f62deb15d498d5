package server

import (
	"net/http"
	"strconv"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	ledgerdomain "github.com/praxishq/praxis/internal/ledger/domain"
)

func (s *Server) ListLedgerTransactions(c *gin.Context) {
	req := ledgerdomain.ListTransactionsRequest{OrgID: orgID(c)}
	if raw := c.Query("invoice_id"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			AbortWithError(c, newValidationError("invoice_id", "invalid_id", "invalid invoice_id"))
			return
		}
		req.InvoiceID = snowflake.ID(parsed)
	}

	resp, err := s.ledgerSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": resp})
}
